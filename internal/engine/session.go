// Package engine owns the per-quote session: one stock envelope, one
// optional parametric shape, and one price ledger, kept consistent through
// the constraint solver and re-priced through the anchor calculator. The
// session is the explicit replacement for the module-level singletons of
// the original tool; construct one per active quote and discard it on
// reset so no state leaks between quotes.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/precisionworks/quote-engine/internal/ledger"
	"github.com/precisionworks/quote-engine/internal/levers"
	"github.com/precisionworks/quote-engine/internal/model"
	"github.com/precisionworks/quote-engine/internal/pricing"
	"github.com/precisionworks/quote-engine/pkg/constants"
	"github.com/precisionworks/quote-engine/pkg/geometry"
	"github.com/precisionworks/quote-engine/pkg/stock"
)

// Field names accepted by OnChange and reported in emitted events.
const (
	FieldStockX       = "stock_x"
	FieldStockY       = "stock_y"
	FieldStockZ       = "stock_z"
	FieldPartVolume   = "part_volume"
	FieldRemovalRatio = "removal_ratio"
	FieldUserPrice    = "user_price"
	FieldQuantity     = "quantity"
	FieldSetupTime    = "setup_time"
	FieldShopRate     = "shop_rate"
	FieldHandlingTime = "handling_time"
	FieldAnchorPrice  = "anchor_price"
)

// Input classes for debouncing. Each class owns an independent timer.
const (
	classStock      = "stock"
	classDimensions = "dimensions"
	classEconomics  = "economics"
	classPrice      = "price"
)

// Event is emitted to subscribers after the session applies a change.
type Event struct {
	Field    string
	NewValue float64
	Warnings []model.Warning
}

// Result is the full engine output for one settled recompute. Priced is
// false when the payload was too incomplete to anchor (missing shape
// dimensions or an invalid stock envelope); Anchor and GlassBox are then
// zero-valued and the warnings say why.
type Result struct {
	Stock        stock.Envelope        `json:"stock"`
	PartVolume   float64               `json:"part_volume"`
	RemovalRatio float64               `json:"removal_ratio"`
	Shape        *geometry.ShapeConfig `json:"shape_config,omitempty"`
	Priced       bool                  `json:"priced"`
	Anchor       pricing.Anchor        `json:"anchor"`
	GlassBox     model.GlassBox        `json:"glass_box"`
	Warnings     []model.Warning       `json:"warnings,omitempty"`
}

// Session is the engine facade for one in-progress quote. All methods are
// safe for the debounce timers that fire off the caller's goroutine; the
// session serializes every mutation internally.
type Session struct {
	mu     sync.Mutex
	logger *zap.Logger

	solver *levers.Solver
	ledger *ledger.Ledger
	calc   *pricing.Calculator
	sched  *Scheduler

	state levers.State
	input model.QuoteInput

	quoteID  string
	warnings []model.Warning
	subs     []func(Event)
}

// Windows holds the settle windows for a session's debounce scheduler.
// The zero value means the standard windows.
type Windows struct {
	Default    time.Duration
	Dimensions time.Duration
}

// DefaultWindows returns the standard settle windows: 300 ms for shape
// dimension edits, 200 ms for everything else.
func DefaultWindows() Windows {
	return Windows{
		Default:    constants.DefaultDebounceMillis * time.Millisecond,
		Dimensions: constants.DimensionDebounceMillis * time.Millisecond,
	}
}

func (w Windows) withDefaults() Windows {
	std := DefaultWindows()
	if w.Default <= 0 {
		w.Default = std.Default
	}
	if w.Dimensions <= 0 {
		w.Dimensions = std.Dimensions
	}
	return w
}

// NewSession builds a session for a fresh quote with the given variance
// cause names, all weighted zero.
func NewSession(solver *levers.Solver, calc *pricing.Calculator, causes []string, windows Windows, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	windows = windows.withDefaults()
	s := &Session{
		logger: logger,
		solver: solver,
		ledger: ledger.New(causes, logger),
		calc:   calc,
		sched: NewScheduler(windows.Default, map[string]time.Duration{
			classDimensions: windows.Dimensions,
		}),
		quoteID: GenerateQuoteID(),
	}
	s.input.Quantity = 1
	s.input.SetupTime = constants.DefaultSetupTimeMins
	s.input.ShopRate = constants.DefaultShopRate
	s.input.HandlingTime = constants.DefaultHandlingTimeMins
	return s
}

// GenerateQuoteID returns a default quote ID in the Q-YYYYMMDD-### format.
func GenerateQuoteID() string {
	return fmt.Sprintf("Q-%s-%03d", time.Now().Format("20060102"), 100+rand.Intn(900))
}

// QuoteID returns the session's quote ID.
func (s *Session) QuoteID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quoteID
}

// SetQuoteID overrides the generated quote ID.
func (s *Session) SetQuoteID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		s.quoteID = id
	}
}

// Subscribe registers a callback for engine events. The host binds these
// to whatever UI toolkit it uses.
func (s *Session) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// emit must be called with the lock held; callbacks run without it.
func (s *Session) emit(ev Event) {
	subs := make([]func(Event), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
	s.mu.Lock()
}

// OnChange is the numeric entry point for user edits. The change is applied
// to the session state immediately; the recompute chain runs once the
// field's input class settles. Unknown fields are ignored with a log line.
func (s *Session) OnChange(field string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	class := classEconomics
	switch field {
	case FieldStockX:
		s.state.Stock.X = value
		class = classStock
	case FieldStockY:
		s.state.Stock.Y = value
		class = classStock
	case FieldStockZ:
		s.state.Stock.Z = value
		class = classStock
	case FieldPartVolume:
		s.warnings = append(s.warnings, s.solver.ApplyPartVolume(&s.state, value)...)
	case FieldRemovalRatio:
		s.warnings = append(s.warnings, s.solver.ApplyRatio(&s.state, value)...)
	case FieldUserPrice:
		s.ledger.SetUserPrice(value)
		class = classPrice
	case FieldQuantity:
		if value < 1 {
			value = 1
		}
		s.input.Quantity = int(value)
	case FieldSetupTime:
		s.input.SetupTime = value
	case FieldShopRate:
		s.input.ShopRate = value
	case FieldHandlingTime:
		s.input.HandlingTime = value
	default:
		s.logger.Debug("ignoring unknown field",
			zap.String("op", "engine.OnChange"),
			zap.String("field", field),
		)
		return
	}

	if class == classStock {
		s.sched.Schedule(class, func() { s.settleStock() })
		return
	}
	s.sched.Schedule(class, func() { s.recompute() })
}

// Commit applies any pending recompute for a field immediately. Blur and
// defocus events route here so snapping corrections never arrive visibly
// late.
func (s *Session) Commit(field string) {
	switch field {
	case FieldStockX, FieldStockY, FieldStockZ:
		s.sched.Flush(classStock)
	case FieldUserPrice:
		s.sched.Flush(classPrice)
	default:
		s.sched.Flush(classDimensions)
		s.sched.Flush(classEconomics)
	}
}

// settleStock runs the stock-edit rule (snap, then re-derive) once a burst
// of stock dimension edits has settled, then recomputes pricing.
func (s *Session) settleStock() {
	s.mu.Lock()
	warnings := s.solver.ApplyStock(&s.state, s.state.Stock)
	s.warnings = append(s.warnings, warnings...)
	s.mu.Unlock()
	s.recompute()
}

// SetMaterial switches the active material. A material change resets the
// price ledger: the override unlocks and all cause weights clear.
func (s *Session) SetMaterial(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == s.input.Material {
		return
	}
	s.input.Material = name
	names := make([]string, 0, len(s.ledger.Causes()))
	for _, c := range s.ledger.Causes() {
		names = append(names, c.Name)
	}
	s.ledger.Reset(names)
	s.sched.Schedule(classEconomics, func() { s.recompute() })
}

// SetShape installs a parametric shape configuration. Part volume is
// derived from the shape and the stock envelope auto-pads around its
// bounding box. Geometry errors leave the previous state untouched.
func (s *Session) SetShape(shapeType geometry.ShapeType, dims geometry.Dimensions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	warnings, err := s.solver.ApplyShape(&s.state, geometry.ShapeConfig{Type: shapeType, Dimensions: dims})
	if err != nil {
		return err
	}
	s.warnings = append(s.warnings, warnings...)
	s.sched.Schedule(classDimensions, func() { s.recompute() })
	return nil
}

// ClearShape removes the active shape; part volume becomes directly
// editable again.
func (s *Session) ClearShape() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solver.ClearShape(&s.state)
}

// SetCauseWeight edits one variance cause weight; the others renormalize
// so the total closes to 100.
func (s *Session) SetCauseWeight(name string, weight int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ledger.SetWeight(name, weight); err != nil {
		return err
	}
	dollars, _ := s.ledger.Unexplained()
	s.emit(Event{Field: "unexplained_variance", NewValue: dollars})
	return nil
}

// ResetPriceToAnchor clears the user override and all cause weights.
func (s *Session) ResetPriceToAnchor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.ResetToAnchor()
	s.emit(Event{Field: FieldUserPrice, NewValue: s.ledger.UserPrice()})
}

// Ledger exposes the price ledger for read access.
func (s *Session) Ledger() *ledger.Ledger {
	return s.ledger
}

// recompute runs the full chain once per settled burst: anchor pricing
// from the current physical state, then ledger reconciliation, then event
// emission. All accumulated warnings ride on the anchor event.
func (s *Session) recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()

	in := s.input
	in.Stock = s.state.Stock
	in.PartVolume = s.state.PartVolume

	if in.Material == "" || !in.Stock.Valid() {
		return
	}

	anchor, warnings, err := s.calc.CalculateAnchor(context.Background(), in)
	if err != nil {
		s.logger.Error("anchor calculation failed",
			zap.String("op", "engine.recompute"),
			zap.Error(err),
		)
		return
	}
	s.warnings = append(s.warnings, warnings...)
	s.ledger.Recalculate(anchor.PricePerUnit)

	drained := s.warnings
	s.warnings = nil

	s.emit(Event{Field: FieldPartVolume, NewValue: s.state.PartVolume})
	s.emit(Event{Field: FieldRemovalRatio, NewValue: s.state.RemovalRatio})
	s.emit(Event{Field: FieldAnchorPrice, NewValue: anchor.PricePerUnit, Warnings: drained})
	s.emit(Event{Field: FieldUserPrice, NewValue: s.ledger.UserPrice()})
}

// Apply runs the engine once over a complete cost/geometry payload and
// returns the settled result. This is the stateless entry used by the HTTP
// surface; interactive hosts use OnChange instead.
func (s *Session) Apply(ctx context.Context, in model.QuoteInput) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var warnings []model.Warning

	s.input.Material = in.Material
	if in.SetupTime > 0 {
		s.input.SetupTime = in.SetupTime
	}
	if in.ShopRate > 0 {
		s.input.ShopRate = in.ShopRate
	}
	if in.HandlingTime > 0 {
		s.input.HandlingTime = in.HandlingTime
	}
	if in.Quantity >= 1 {
		s.input.Quantity = in.Quantity
	}

	if in.Shape != nil {
		s.state.Stock = in.Stock
		w, err := s.solver.ApplyShape(&s.state, *in.Shape)
		if err != nil {
			return Result{}, err
		}
		warnings = append(warnings, w...)
		if !s.state.Shape.Complete() {
			warnings = append(warnings, model.Warning{
				Code:    model.WarnIncompleteShape,
				Field:   "shape_config",
				Message: "shape is missing required dimensions; pricing skipped",
			})
			return s.unpricedResult(warnings), nil
		}
	} else {
		warnings = append(warnings, s.solver.ApplyStock(&s.state, in.Stock)...)
		if !s.state.Stock.Valid() {
			return s.unpricedResult(warnings), nil
		}
		warnings = append(warnings, s.solver.ApplyPartVolume(&s.state, in.PartVolume)...)
	}

	// An anchor over a zero-volume envelope would be labor-only noise, so
	// an unpriceable payload returns its warnings instead.
	if !s.state.Stock.Valid() {
		return s.unpricedResult(warnings), nil
	}

	calcIn := s.input
	calcIn.Stock = s.state.Stock
	calcIn.PartVolume = s.state.PartVolume

	anchor, w, err := s.calc.CalculateAnchor(ctx, calcIn)
	if err != nil {
		return Result{}, err
	}
	warnings = append(warnings, w...)
	s.ledger.Recalculate(anchor.PricePerUnit)

	return Result{
		Stock:        s.state.Stock,
		PartVolume:   s.state.PartVolume,
		RemovalRatio: s.state.RemovalRatio,
		Shape:        s.state.Shape,
		Priced:       true,
		Anchor:       anchor,
		GlassBox:     s.ledger.GlassBox(),
		Warnings:     warnings,
	}, nil
}

// unpricedResult must be called with the lock held.
func (s *Session) unpricedResult(warnings []model.Warning) Result {
	return Result{
		Stock:        s.state.Stock,
		PartVolume:   s.state.PartVolume,
		RemovalRatio: s.state.RemovalRatio,
		Shape:        s.state.Shape,
		Warnings:     warnings,
	}
}

// Save validates the ledger and assembles the persistence record. It
// refuses while cause weights do not close to exactly 100.
func (s *Session) Save() (model.QuoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.Validate(); err != nil {
		return model.QuoteRecord{}, err
	}
	return model.QuoteRecord{
		QuoteID:    s.quoteID,
		Material:   s.input.Material,
		Stock:      s.state.Stock,
		PartVolume: s.state.PartVolume,
		Shape:      s.state.Shape,
		GlassBox:   s.ledger.GlassBox(),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Close releases the session's timers. The session must not be used after
// Close.
func (s *Session) Close() {
	s.sched.Stop()
}
