// Package levers keeps the stock envelope, part volume, and removal ratio
// mutually consistent as any one of them is edited. Each entry point names
// the driving input; the solver re-derives the other two and reports what
// it clamped. No operation here ever returns an error: validation failures
// degrade to the nearest legal value plus a warning.
package levers

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/precisionworks/quote-engine/internal/model"
	"github.com/precisionworks/quote-engine/pkg/constants"
	"github.com/precisionworks/quote-engine/pkg/geometry"
	"github.com/precisionworks/quote-engine/pkg/stock"
)

// State holds the three linked signals plus the optional active shape.
// When Shape is set, part volume is a pure derivative of the shape and the
// removal ratio becomes display-only.
type State struct {
	Stock        stock.Envelope
	PartVolume   float64
	RemovalRatio float64 // percent in [0,100]
	Shape        *geometry.ShapeConfig
}

// Solver applies the directional consistency rules. It is stateless apart
// from its catalog and padding configuration; callers own the State.
type Solver struct {
	catalog *stock.Catalog
	padding float64
	logger  *zap.Logger
}

// NewSolver builds a solver over the given size catalog. A nil catalog uses
// the default commercial sizes; padding <= 0 uses the standard machining
// allowance.
func NewSolver(catalog *stock.Catalog, padding float64, logger *zap.Logger) *Solver {
	if catalog == nil {
		catalog = stock.DefaultCatalog()
	}
	if padding <= 0 {
		padding = constants.StockPaddingPerSide
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{catalog: catalog, padding: padding, logger: logger}
}

// ApplyRatio drives the state from a removal-ratio edit: part volume is
// re-derived from the stock volume at the new ratio (rule: ratio -> volume).
func (s *Solver) ApplyRatio(st *State, ratio float64) []model.Warning {
	var warnings []model.Warning

	if ratio < 0 {
		ratio = 0
	} else if ratio > 100 {
		ratio = 100
	}
	st.RemovalRatio = ratio

	stockVol := st.Stock.Volume()
	if stockVol <= 0 {
		warnings = append(warnings, invalidStockWarning(st.Stock))
		st.PartVolume = 0
		return warnings
	}

	partVol := stockVol * (1 - ratio/100)
	if partVol < 0 {
		partVol = 0
	}
	// Removal volume can never go negative; clamp part volume to stock.
	if stockVol-partVol < 0 {
		partVol = stockVol
	}
	st.PartVolume = partVol

	s.logger.Debug("ratio drive",
		zap.String("op", "levers.ApplyRatio"),
		zap.Float64("ratio", ratio),
		zap.Float64("partVolume", partVol),
	)
	return warnings
}

// ApplyPartVolume drives the state from a part-volume edit: the removal
// ratio is re-derived (rule: volume -> ratio). Out-of-range volumes are
// clamped and surfaced as warnings.
func (s *Solver) ApplyPartVolume(st *State, partVol float64) []model.Warning {
	var warnings []model.Warning

	stockVol := st.Stock.Volume()
	if stockVol <= 0 {
		warnings = append(warnings, invalidStockWarning(st.Stock))
		return warnings
	}

	if partVol > stockVol {
		warnings = append(warnings, model.Warning{
			Code:  model.WarnPartExceedsStock,
			Field: "part_volume",
			Message: fmt.Sprintf(
				"part volume %.3f exceeds stock volume %.3f; clamped to stock",
				partVol, stockVol),
		})
		partVol = stockVol
	}
	if partVol < 0 {
		warnings = append(warnings, model.Warning{
			Code:    model.WarnNegativeVolume,
			Field:   "part_volume",
			Message: fmt.Sprintf("part volume %.3f cannot be negative; reset to 0", partVol),
		})
		partVol = 0
	}
	st.PartVolume = partVol

	ratio := (1 - partVol/stockVol) * 100
	if ratio < 0 {
		ratio = 0
	} else if ratio > 100 {
		ratio = 100
	}
	st.RemovalRatio = ratio

	s.logger.Debug("volume drive",
		zap.String("op", "levers.ApplyPartVolume"),
		zap.Float64("partVolume", partVol),
		zap.Float64("ratio", ratio),
	)
	return warnings
}

// ApplyStock drives the state from a stock-dimension edit. All three axes
// are snapped to commercial sizes first; then part volume is re-derived at
// the held removal ratio, or from the active shape when one is configured.
func (s *Solver) ApplyStock(st *State, env stock.Envelope) []model.Warning {
	var warnings []model.Warning

	if !env.Valid() {
		warnings = append(warnings, invalidStockWarning(env))
		st.Stock = env
		return warnings
	}

	snapped := s.catalog.SnapEnvelope(env)
	merged, changed := stock.ApplySnapped(env, snapped)
	if changed {
		warnings = append(warnings, model.Warning{
			Code:  model.WarnStockSnapped,
			Field: "stock",
			Message: fmt.Sprintf(
				"stock adjusted to standard sizes: %.3f x %.3f x %.3f",
				merged.X, merged.Y, merged.Z),
		})
	}
	st.Stock = merged

	if st.Shape != nil && st.Shape.Complete() {
		// Parametric path: part volume comes from the shape and ratio is a
		// display derivative.
		st.PartVolume = st.Shape.Volume
		s.refreshDisplayRatio(st)
		return warnings
	}

	return append(warnings, s.ApplyRatio(st, st.RemovalRatio)...)
}

// ApplyShape drives the state from a configured parametric shape: part
// volume is recomputed from the shape and the stock envelope is auto-padded
// from the shape's bounding box, then snapped. The removal ratio does not
// participate; it is re-derived for display only. Incomplete shapes leave
// the previous stock untouched.
func (s *Solver) ApplyShape(st *State, cfg geometry.ShapeConfig) ([]model.Warning, error) {
	vol, complete, err := geometry.Volume(cfg.Type, cfg.Dimensions)
	if err != nil {
		// Geometry errors halt only this computation; prior state stands.
		return nil, err
	}
	cfg.Volume = vol
	st.Shape = &cfg
	st.PartVolume = vol

	if !complete {
		return nil, nil
	}

	bx, by, bz, ok := geometry.BoundingBox(cfg.Type, cfg.Dimensions)
	if !ok {
		return nil, nil
	}
	padded := stock.Envelope{
		X: bx + 2*s.padding,
		Y: by + 2*s.padding,
		Z: bz + 2*s.padding,
	}
	snapped := s.catalog.SnapEnvelope(padded)
	merged, _ := stock.ApplySnapped(padded, snapped)
	st.Stock = merged
	s.refreshDisplayRatio(st)

	s.logger.Debug("shape drive",
		zap.String("op", "levers.ApplyShape"),
		zap.String("shape", string(cfg.Type)),
		zap.Float64("volume", vol),
		zap.Float64("stockX", merged.X),
		zap.Float64("stockY", merged.Y),
		zap.Float64("stockZ", merged.Z),
	)
	return nil, nil
}

// ClearShape removes the active parametric shape; part volume and ratio
// keep their current values and become directly editable again.
func (s *Solver) ClearShape(st *State) {
	st.Shape = nil
}

// refreshDisplayRatio recomputes the ratio as a derivative of the current
// stock and part volumes, clamped to [0,100].
func (s *Solver) refreshDisplayRatio(st *State) {
	stockVol := st.Stock.Volume()
	if stockVol <= 0 {
		st.RemovalRatio = 0
		return
	}
	ratio := (1 - st.PartVolume/stockVol) * 100
	if ratio < 0 {
		ratio = 0
	} else if ratio > 100 {
		ratio = 100
	}
	st.RemovalRatio = ratio
}

func invalidStockWarning(env stock.Envelope) model.Warning {
	return model.Warning{
		Code:  model.WarnInvalidStock,
		Field: "stock",
		Message: fmt.Sprintf(
			"stock dimensions must all be positive (got %.3f x %.3f x %.3f)",
			env.X, env.Y, env.Z),
	}
}
