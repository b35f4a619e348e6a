// Package model defines the shared payload and record types passed across
// the engine boundary: cost/geometry inputs, warnings, and the persistence
// payload for saved quotes.
package model

import (
	"time"

	"github.com/precisionworks/quote-engine/pkg/geometry"
	"github.com/precisionworks/quote-engine/pkg/stock"
)

// WarningCode classifies a non-fatal validation warning. Warnings always
// accompany an auto-corrected value; they are surfaced for display and
// never abort a computation.
type WarningCode string

const (
	// WarnPartExceedsStock fires when a user-entered part volume is larger
	// than the stock envelope and has been clamped to it.
	WarnPartExceedsStock WarningCode = "part_exceeds_stock"

	// WarnNegativeVolume fires when a negative volume input was clamped to 0.
	WarnNegativeVolume WarningCode = "negative_volume"

	// WarnStockSnapped fires when an envelope dimension was adjusted to a
	// commercial stock size.
	WarnStockSnapped WarningCode = "stock_snapped"

	// WarnInvalidStock fires when stock dimensions are not all positive and
	// downstream computation was skipped.
	WarnInvalidStock WarningCode = "invalid_stock"

	// WarnUnknownMaterial fires when a material is missing from the catalog
	// and fallback pricing was applied.
	WarnUnknownMaterial WarningCode = "unknown_material"

	// WarnIncompleteShape fires when a parametric shape is missing required
	// dimensions and pricing was skipped.
	WarnIncompleteShape WarningCode = "incomplete_shape"
)

// Warning is a dismissible, auto-corrected validation notice.
type Warning struct {
	Code    WarningCode `json:"code"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"message"`
}

// QuoteInput is the cost/geometry payload the engine consumes from the host.
// Either PartVolume or Shape is populated; when both are present the shape
// wins and part volume is derived from it.
type QuoteInput struct {
	Material     string                `json:"material_name" yaml:"material_name"`
	Stock        stock.Envelope        `json:"stock" yaml:"stock"`
	PartVolume   float64               `json:"part_volume,omitempty" yaml:"part_volume,omitempty"`
	Shape        *geometry.ShapeConfig `json:"shape_config,omitempty" yaml:"shape_config,omitempty"`
	SetupTime    float64               `json:"setup_time" yaml:"setup_time"`
	ShopRate     float64               `json:"shop_rate" yaml:"shop_rate"`
	HandlingTime float64               `json:"handling_time" yaml:"handling_time"`
	Quantity     int                   `json:"quantity" yaml:"quantity"`
}

// Attribution is the weighted breakdown of why a user-entered price differs
// from the system anchor. Cause weights are fractions in (0,1].
type Attribution struct {
	Causes  map[string]float64 `json:"causes"`
	Delta   float64            `json:"delta"`
	Percent float64            `json:"percent"`
}

// GlassBox is the price-reconciliation payload emitted for persistence.
// Attribution is nil when no override is active or no causes carry weight.
type GlassBox struct {
	SystemPriceAnchor float64      `json:"system_price_anchor"`
	FinalQuotedPrice  float64      `json:"final_quoted_price"`
	Attribution       *Attribution `json:"variance_attribution"`
}

// QuoteRecord is a saved quote row.
type QuoteRecord struct {
	ID         string                `json:"id"`
	QuoteID    string                `json:"quote_id"`
	Material   string                `json:"material"`
	Stock      stock.Envelope        `json:"stock"`
	PartVolume float64               `json:"part_volume"`
	Shape      *geometry.ShapeConfig `json:"shape_config,omitempty"`
	GlassBox   GlassBox              `json:"glass_box"`
	CreatedAt  time.Time             `json:"created_at"`
}

// Material is a catalog row with per-cubic-inch cost and a machinability
// score relative to Aluminum 6061 (1.0).
type Material struct {
	Name          string  `json:"name"`
	CostPerIn3    float64 `json:"cost_per_cubic_inch"`
	Machinability float64 `json:"machinability_score"`
}
