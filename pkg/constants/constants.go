// Package constants provides shared constants for the quote engine.
package constants

// Geometry and stock constants
const (
	// StockPaddingPerSide is the machining allowance added to each side of a
	// part's bounding box when deriving stock from a parametric shape (inches).
	StockPaddingPerSide = 0.125

	// SnapEpsilon is the minimum dimension delta before a snapped value
	// overwrites a live envelope field. Smaller deltas are dropped to avoid
	// redundant downstream recalculation.
	SnapEpsilon = 0.001

	// MinMachineTimeMins is the floor on spindle time per part so tiny parts
	// still carry a nonzero machining cost.
	MinMachineTimeMins = 0.1
)

// Shop defaults, matching the seeded shop configuration of the ops layer.
const (
	// DefaultShopRate is the standard shop rate in dollars per hour.
	DefaultShopRate = 75.0

	// DefaultSetupTimeMins is the one-time setup allowance in minutes.
	DefaultSetupTimeMins = 60.0

	// DefaultHandlingTimeMins is the per-cycle load/unload time in minutes.
	DefaultHandlingTimeMins = 0.5

	// DefaultMaterialMarkup is the material markup multiplier (1.2 = 20%).
	DefaultMaterialMarkup = 1.2

	// DefaultBaseMRR is the material removal rate for Aluminum 6061 in
	// cubic inches per minute; divided by machinability for other alloys.
	DefaultBaseMRR = 30.0

	// DefaultMinHandTimeMins is the minimum hand time per part in minutes.
	DefaultMinHandTimeMins = 5.0

	// FallbackMaterialCostPerIn3 is the Aluminum 6061 cost used when a
	// material is missing from the catalog.
	FallbackMaterialCostPerIn3 = 0.30

	// FallbackMachinability is the Aluminum 6061 machinability score used
	// when a material is missing from the catalog.
	FallbackMachinability = 1.0

	// LowQuantityScrapCutoff is the quantity below which one whole extra
	// stock unit is billed for setup scrap.
	LowQuantityScrapCutoff = 10

	// HighQuantityScrapFactor is the scrap multiplier applied at or above
	// the cutoff quantity.
	HighQuantityScrapFactor = 1.02
)

// QuantityBreaks are the quantities quoted in the price break table.
var QuantityBreaks = []int{1, 5, 25, 100, 250}

// Variance attribution constants
const (
	// SignificantVariancePercent is the unexplained-variance percentage above
	// which the value demands user attention.
	SignificantVariancePercent = 1.0

	// SignificantVarianceDollars is the unexplained-variance dollar amount
	// above which the value demands user attention.
	SignificantVarianceDollars = 2.00

	// VarianceDisplayDollars is the per-unit price delta above which the
	// attribution breakdown is surfaced at all.
	VarianceDisplayDollars = 0.50
)

// Debounce windows for coalescing rapid input.
const (
	// DefaultDebounceMillis is the settle window for most input classes.
	DefaultDebounceMillis = 200

	// DimensionDebounceMillis is the settle window for shape dimension edits,
	// which arrive as individual keystrokes.
	DimensionDebounceMillis = 300
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API.
	DefaultServerAddress = ":8080"

	// DefaultConfigFile is the default configuration file name.
	DefaultConfigFile = "config.yaml"

	// DefaultStorePath is the default SQLite database path.
	DefaultStorePath = "quote-engine.db"
)
