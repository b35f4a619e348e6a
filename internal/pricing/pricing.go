// Package pricing computes the system anchor price from material, labor,
// and setup cost inputs. The anchor is pure cost truth: it never reflects
// the user's price override.
package pricing

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/precisionworks/quote-engine/internal/model"
	"github.com/precisionworks/quote-engine/pkg/constants"
)

// MaterialSource resolves material cost and machinability by name. The
// second return is false when the material is not in the catalog.
type MaterialSource interface {
	Material(ctx context.Context, name string) (model.Material, bool, error)
}

// Params carries the shop-level pricing configuration.
type Params struct {
	MaterialMarkup  float64 // material markup multiplier, e.g. 1.2
	BaseMRR         float64 // in³/min removal rate for machinability 1.0
	MinHandTimeMins float64 // minimum hand time per part
}

// DefaultParams returns the seeded shop configuration.
func DefaultParams() Params {
	return Params{
		MaterialMarkup:  constants.DefaultMaterialMarkup,
		BaseMRR:         constants.DefaultBaseMRR,
		MinHandTimeMins: constants.DefaultMinHandTimeMins,
	}
}

// Calculator computes runtime estimates and anchor prices.
type Calculator struct {
	materials MaterialSource
	params    Params
	logger    *zap.Logger
}

// NewCalculator builds a calculator over a material source. Zero-valued
// params fields fall back to the shop defaults.
func NewCalculator(materials MaterialSource, params Params, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if params.MaterialMarkup <= 0 {
		params.MaterialMarkup = constants.DefaultMaterialMarkup
	}
	if params.BaseMRR <= 0 {
		params.BaseMRR = constants.DefaultBaseMRR
	}
	if params.MinHandTimeMins <= 0 {
		params.MinHandTimeMins = constants.DefaultMinHandTimeMins
	}
	return &Calculator{materials: materials, params: params, logger: logger}
}

// Runtime is the per-part machining time estimate, without setup.
type Runtime struct {
	MachineTimeMins float64
	HandTimeMins    float64
	PerPartMins     float64
}

// Anchor is the system price breakdown for one quantity.
type Anchor struct {
	MaterialCost        float64 `json:"material_cost"`
	LaborCost           float64 `json:"labor_cost"`
	TotalPrice          float64 `json:"total_price"`
	MaterialCostPerUnit float64 `json:"material_cost_per_unit"`
	LaborCostPerUnit    float64 `json:"labor_cost_per_unit"`
	PricePerUnit        float64 `json:"price_per_unit"`
	TotalRuntimeMins    float64 `json:"total_runtime_mins"`
}

// resolveMaterial looks a material up, falling back to Aluminum 6061
// pricing with a warning when it is missing from the catalog.
func (c *Calculator) resolveMaterial(ctx context.Context, name string) (model.Material, []model.Warning, error) {
	mat, ok, err := c.materials.Material(ctx, name)
	if err != nil {
		return model.Material{}, nil, err
	}
	if ok {
		return mat, nil, nil
	}
	c.logger.Warn("material not found, using fallback pricing",
		zap.String("op", "pricing.resolveMaterial"),
		zap.String("material", name),
	)
	warn := model.Warning{
		Code:    model.WarnUnknownMaterial,
		Field:   "material_name",
		Message: "material " + name + " not found; using Aluminum 6061 pricing",
	}
	return model.Material{
		Name:          name,
		CostPerIn3:    constants.FallbackMaterialCostPerIn3,
		Machinability: constants.FallbackMachinability,
	}, []model.Warning{warn}, nil
}

// EstimateRuntime estimates the per-part runtime for machining a part out
// of stock: removal volume over the machinability-adjusted removal rate,
// floored at the minimum spindle time, plus minimum hand time.
func (c *Calculator) EstimateRuntime(stockVolume, partVolume, machinability float64) Runtime {
	if machinability <= 0 {
		machinability = constants.FallbackMachinability
	}
	adjustedMRR := c.params.BaseMRR / machinability

	removal := stockVolume - partVolume
	machineTime := removal / adjustedMRR
	if machineTime < constants.MinMachineTimeMins {
		machineTime = constants.MinMachineTimeMins
	}

	return Runtime{
		MachineTimeMins: machineTime,
		HandTimeMins:    c.params.MinHandTimeMins,
		PerPartMins:     machineTime + c.params.MinHandTimeMins,
	}
}

// CalculateAnchor computes the anchor price for a cost/geometry payload.
// The customer is billed for the whole stock block, not the part volume.
// Setup time is charged once; per-part and handling time scale with
// quantity. Low quantities carry one extra stock unit for setup scrap,
// higher quantities a flat scrap factor.
func (c *Calculator) CalculateAnchor(ctx context.Context, in model.QuoteInput) (Anchor, []model.Warning, error) {
	mat, warnings, err := c.resolveMaterial(ctx, in.Material)
	if err != nil {
		return Anchor{}, nil, err
	}

	quantity := in.Quantity
	if quantity < 1 {
		quantity = 1
	}
	handling := in.HandlingTime
	if handling <= 0 {
		handling = constants.DefaultHandlingTimeMins
	}

	stockVolume := in.Stock.Volume()
	rt := c.EstimateRuntime(stockVolume, in.PartVolume, mat.Machinability)

	baseMaterialPerUnit := stockVolume * mat.CostPerIn3 * c.params.MaterialMarkup

	var totalMaterial float64
	if quantity < constants.LowQuantityScrapCutoff {
		totalMaterial = baseMaterialPerUnit * float64(quantity+1)
	} else {
		totalMaterial = baseMaterialPerUnit * float64(quantity) * constants.HighQuantityScrapFactor
	}

	totalRuntime := in.SetupTime + (rt.PerPartMins+handling)*float64(quantity)
	totalLabor := totalRuntime / 60 * in.ShopRate

	total := totalMaterial + totalLabor

	anchor := Anchor{
		MaterialCost:        totalMaterial,
		LaborCost:           totalLabor,
		TotalPrice:          total,
		MaterialCostPerUnit: baseMaterialPerUnit,
		LaborCostPerUnit:    totalLabor / float64(quantity),
		PricePerUnit:        total / float64(quantity),
		TotalRuntimeMins:    totalRuntime,
	}

	c.logger.Debug("anchor computed",
		zap.String("op", "pricing.CalculateAnchor"),
		zap.String("material", in.Material),
		zap.Int("quantity", quantity),
		zap.Float64("pricePerUnit", anchor.PricePerUnit),
	)
	return anchor, warnings, nil
}

// PriceBreak is one row of the quantity break table.
type PriceBreak struct {
	Quantity     int     `json:"quantity"`
	TotalPrice   float64 `json:"total_price"`
	MaterialCost float64 `json:"material_cost"`
	LaborCost    float64 `json:"labor_cost"`
	PricePerUnit float64 `json:"price_per_unit"`
}

// CalculatePriceBreaks computes the anchor at each standard quantity break.
func (c *Calculator) CalculatePriceBreaks(ctx context.Context, in model.QuoteInput) ([]PriceBreak, error) {
	breaks := make([]PriceBreak, 0, len(constants.QuantityBreaks))
	for _, qty := range constants.QuantityBreaks {
		in.Quantity = qty
		anchor, _, err := c.CalculateAnchor(ctx, in)
		if err != nil {
			return nil, err
		}
		breaks = append(breaks, PriceBreak{
			Quantity:     qty,
			TotalPrice:   round2(anchor.TotalPrice),
			MaterialCost: round2(anchor.MaterialCost),
			LaborCost:    round2(anchor.LaborCost),
			PricePerUnit: round2(anchor.TotalPrice / float64(qty)),
		})
	}
	return breaks, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
