package engine

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/precisionworks/quote-engine/internal/levers"
	"github.com/precisionworks/quote-engine/internal/model"
	"github.com/precisionworks/quote-engine/internal/pricing"
	"github.com/precisionworks/quote-engine/pkg/geometry"
	"github.com/precisionworks/quote-engine/pkg/stock"
)

type fakeMaterials map[string]model.Material

func (f fakeMaterials) Material(_ context.Context, name string) (model.Material, bool, error) {
	m, ok := f[name]
	return m, ok, nil
}

var sessionCauses = []string{"Rush Fee", "Material Surcharge", "Strategic Discount", "Other"}

func newTestSession() *Session {
	materials := fakeMaterials{
		"Aluminum 6061": {Name: "Aluminum 6061", CostPerIn3: 0.30, Machinability: 1.0},
	}
	solver := levers.NewSolver(nil, 0, nil)
	calc := pricing.NewCalculator(materials, pricing.DefaultParams(), nil)
	return NewSession(solver, calc, sessionCauses, Windows{}, nil)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) last(field string) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Field == field {
			return r.events[i], true
		}
	}
	return Event{}, false
}

// settle pushes a standard aluminum block quote through the session and
// flushes every pending recompute.
func settle(s *Session) {
	s.Commit(FieldStockX)
	s.Commit(FieldPartVolume)
	s.Commit(FieldUserPrice)
}

func TestSessionConfiguredWindows(t *testing.T) {
	materials := fakeMaterials{
		"Aluminum 6061": {Name: "Aluminum 6061", CostPerIn3: 0.30, Machinability: 1.0},
	}
	solver := levers.NewSolver(nil, 0, nil)
	calc := pricing.NewCalculator(materials, pricing.DefaultParams(), nil)

	// Short configured windows must reach the scheduler: the recompute
	// fires on its own, with no Commit, well before the standard 200 ms.
	s := NewSession(solver, calc, sessionCauses, Windows{
		Default:    10 * time.Millisecond,
		Dimensions: 10 * time.Millisecond,
	}, nil)
	defer s.Close()

	rec := &eventRecorder{}
	s.Subscribe(rec.record)

	s.SetMaterial("Aluminum 6061")
	s.OnChange(FieldStockX, 2)
	s.OnChange(FieldStockY, 4)
	s.OnChange(FieldStockZ, 5)

	deadline := time.After(150 * time.Millisecond)
	for {
		if _, ok := rec.last(FieldAnchorPrice); ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("anchor event never fired; configured window not applied")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSessionStockEditRecomputes(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	rec := &eventRecorder{}
	s.Subscribe(rec.record)

	s.SetMaterial("Aluminum 6061")
	s.OnChange(FieldStockX, 2)
	s.OnChange(FieldStockY, 4)
	s.OnChange(FieldStockZ, 5)
	s.OnChange(FieldRemovalRatio, 75)
	settle(s)

	ev, ok := rec.last(FieldAnchorPrice)
	if !ok {
		t.Fatal("expected an anchor price event")
	}
	if ev.NewValue <= 0 {
		t.Errorf("anchor price = %.2f, expected positive", ev.NewValue)
	}

	volEv, ok := rec.last(FieldPartVolume)
	if !ok {
		t.Fatal("expected a part volume event")
	}
	// 40 in³ stock at 75% removal leaves 10 in³.
	if math.Abs(volEv.NewValue-10) > 1e-9 {
		t.Errorf("part volume = %.4f, expected 10", volEv.NewValue)
	}
}

func TestSessionStockSnapWarning(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	rec := &eventRecorder{}
	s.Subscribe(rec.record)

	s.SetMaterial("Aluminum 6061")
	s.OnChange(FieldStockX, 3.2)
	s.OnChange(FieldStockY, 0.3)
	s.OnChange(FieldStockZ, 5.1)
	settle(s)

	ev, ok := rec.last(FieldAnchorPrice)
	if !ok {
		t.Fatal("expected an anchor price event")
	}
	found := false
	for _, w := range ev.Warnings {
		if w.Code == model.WarnStockSnapped {
			found = true
		}
	}
	if !found {
		t.Error("expected a snap warning on the anchor event")
	}
}

func TestSessionPriceLockSurvivesRecalc(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	s.SetMaterial("Aluminum 6061")
	s.OnChange(FieldStockX, 2)
	s.OnChange(FieldStockY, 4)
	s.OnChange(FieldStockZ, 5)
	s.OnChange(FieldRemovalRatio, 50)
	settle(s)

	anchorBefore := s.Ledger().Anchor()
	if anchorBefore <= 0 {
		t.Fatalf("anchor = %.2f, expected positive", anchorBefore)
	}

	s.OnChange(FieldUserPrice, anchorBefore+25)
	s.Commit(FieldUserPrice)
	if !s.Ledger().Locked() {
		t.Fatal("user price edit should lock the ledger")
	}

	// A physical edit recomputes the anchor but must not clobber the override.
	s.OnChange(FieldRemovalRatio, 80)
	settle(s)

	if got := s.Ledger().UserPrice(); math.Abs(got-(anchorBefore+25)) > 1e-9 {
		t.Errorf("user price = %.2f, expected preserved override %.2f", got, anchorBefore+25)
	}
	if s.Ledger().Anchor() == anchorBefore {
		t.Error("anchor should have moved with the ratio change")
	}
}

func TestSessionMaterialChangeResetsLedger(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	s.SetMaterial("Aluminum 6061")
	s.OnChange(FieldStockX, 2)
	s.OnChange(FieldStockY, 4)
	s.OnChange(FieldStockZ, 5)
	settle(s)

	s.OnChange(FieldUserPrice, 500)
	s.Commit(FieldUserPrice)
	if err := s.SetCauseWeight("Rush Fee", 100); err != nil {
		t.Fatalf("SetCauseWeight: %v", err)
	}

	s.SetMaterial("Steel 1018")
	if s.Ledger().Locked() {
		t.Error("material change should unlock the ledger")
	}
	if s.Ledger().TotalWeight() != 0 {
		t.Errorf("total weight = %d, expected 0 after material change", s.Ledger().TotalWeight())
	}
	if len(s.Ledger().Causes()) != len(sessionCauses) {
		t.Errorf("causes = %d, expected names retained", len(s.Ledger().Causes()))
	}
}

func TestSessionShape(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	s.SetMaterial("Aluminum 6061")
	if err := s.SetShape(geometry.ShapeCylinder, geometry.Dimensions{Diameter: 2, Length: 10}); err != nil {
		t.Fatalf("SetShape: %v", err)
	}
	s.Commit(FieldPartVolume)

	rec, err := s.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rec.Shape == nil || rec.Shape.Type != geometry.ShapeCylinder {
		t.Fatalf("record shape = %+v", rec.Shape)
	}
	if math.Abs(rec.PartVolume-math.Pi*10) > 1e-9 {
		t.Errorf("part volume = %.4f, expected %.4f", rec.PartVolume, math.Pi*10)
	}
	if !rec.Stock.Valid() {
		t.Errorf("stock should be auto-derived, got %+v", rec.Stock)
	}

	// Invalid geometry is rejected without touching the session.
	err = s.SetShape(geometry.ShapeTube, geometry.Dimensions{OuterDiameter: 1, InnerDiameter: 2, Length: 5})
	if err == nil {
		t.Fatal("expected geometry error")
	}
	if !strings.Contains(err.Error(), "inner diameter") {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestSessionSaveRequiresClosedWeights(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	s.SetMaterial("Aluminum 6061")
	s.OnChange(FieldStockX, 2)
	s.OnChange(FieldStockY, 4)
	s.OnChange(FieldStockZ, 5)
	settle(s)

	s.OnChange(FieldUserPrice, 999)
	s.Commit(FieldUserPrice)
	if err := s.SetCauseWeight("Rush Fee", 60); err != nil {
		t.Fatalf("SetCauseWeight: %v", err)
	}

	if _, err := s.Save(); err == nil {
		t.Fatal("save must be refused while weights total 60")
	}

	if err := s.SetCauseWeight("Other", 40); err != nil {
		t.Fatalf("SetCauseWeight: %v", err)
	}
	rec, err := s.Save()
	if err != nil {
		t.Fatalf("Save after closing weights: %v", err)
	}
	if rec.GlassBox.Attribution == nil {
		t.Error("expected attribution on the saved record")
	}
	if !strings.HasPrefix(rec.QuoteID, "Q-") {
		t.Errorf("quote ID = %q, expected Q- prefix", rec.QuoteID)
	}
}

func TestSessionApply(t *testing.T) {
	t.Run("Stock and volume payload", func(t *testing.T) {
		s := newTestSession()
		defer s.Close()
		result, err := s.Apply(context.Background(), model.QuoteInput{
			Material:   "Aluminum 6061",
			Stock:      stock.Envelope{X: 2, Y: 4, Z: 5},
			PartVolume: 10,
			Quantity:   1,
		})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if math.Abs(result.RemovalRatio-75) > 1e-9 {
			t.Errorf("ratio = %.4f, expected 75", result.RemovalRatio)
		}
		if !result.Priced {
			t.Error("complete payload should be priced")
		}
		if result.Anchor.PricePerUnit <= 0 {
			t.Errorf("anchor = %.2f, expected positive", result.Anchor.PricePerUnit)
		}
		if result.GlassBox.SystemPriceAnchor != result.Anchor.PricePerUnit {
			t.Error("glass box anchor should match the computed anchor")
		}
	})

	t.Run("Shape payload wins over part volume", func(t *testing.T) {
		s := newTestSession()
		defer s.Close()
		shape := &geometry.ShapeConfig{
			Type:       geometry.ShapeBlock,
			Dimensions: geometry.Dimensions{X: 2, Y: 2, Z: 2},
		}
		result, err := s.Apply(context.Background(), model.QuoteInput{
			Material:   "Aluminum 6061",
			PartVolume: 999,
			Shape:      shape,
			Quantity:   5,
		})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if result.PartVolume != 8 {
			t.Errorf("part volume = %.4f, expected shape-derived 8", result.PartVolume)
		}
		if !result.Stock.Valid() {
			t.Errorf("stock should be auto-derived from the shape, got %+v", result.Stock)
		}
	})

	t.Run("Incomplete shape is not priced", func(t *testing.T) {
		s := newTestSession()
		defer s.Close()
		// Missing length: pricing must be skipped, not anchored on a
		// zero-volume envelope.
		result, err := s.Apply(context.Background(), model.QuoteInput{
			Material: "Aluminum 6061",
			Shape: &geometry.ShapeConfig{
				Type:       geometry.ShapeCylinder,
				Dimensions: geometry.Dimensions{Diameter: 2},
			},
		})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if result.Priced {
			t.Error("incomplete shape must not be priced")
		}
		if result.Anchor.TotalPrice != 0 {
			t.Errorf("anchor total = %.2f, expected 0", result.Anchor.TotalPrice)
		}
		found := false
		for _, w := range result.Warnings {
			if w.Code == model.WarnIncompleteShape {
				found = true
			}
		}
		if !found {
			t.Error("expected incomplete shape warning")
		}
	})

	t.Run("Invalid stock is not priced", func(t *testing.T) {
		s := newTestSession()
		defer s.Close()
		result, err := s.Apply(context.Background(), model.QuoteInput{
			Material:   "Aluminum 6061",
			PartVolume: 5,
		})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if result.Priced {
			t.Error("zero stock must not be priced")
		}
		found := false
		for _, w := range result.Warnings {
			if w.Code == model.WarnInvalidStock {
				found = true
			}
		}
		if !found {
			t.Error("expected invalid stock warning")
		}
	})

	t.Run("Oversize part volume clamps with warning", func(t *testing.T) {
		s := newTestSession()
		defer s.Close()
		result, err := s.Apply(context.Background(), model.QuoteInput{
			Material:   "Aluminum 6061",
			Stock:      stock.Envelope{X: 1, Y: 1, Z: 1},
			PartVolume: 50,
			Quantity:   1,
		})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		found := false
		for _, w := range result.Warnings {
			if w.Code == model.WarnPartExceedsStock {
				found = true
			}
		}
		if !found {
			t.Error("expected part-exceeds-stock warning")
		}
		if result.PartVolume != result.Stock.Volume() {
			t.Errorf("part volume = %.4f, expected clamp to stock %.4f",
				result.PartVolume, result.Stock.Volume())
		}
	})
}
