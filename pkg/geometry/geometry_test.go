package geometry

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
)

func TestVolume(t *testing.T) {
	tests := []struct {
		name        string
		shape       ShapeType
		dims        Dimensions
		expected    float64
		complete    bool
		expectedErr error
	}{
		{
			name:     "Block volume",
			shape:    ShapeBlock,
			dims:     Dimensions{X: 2, Y: 3, Z: 4},
			expected: 24,
			complete: true,
		},
		{
			name:     "Plate matches block formula",
			shape:    ShapePlate,
			dims:     Dimensions{X: 12, Y: 12, Z: 0.25},
			expected: 36,
			complete: true,
		},
		{
			name:     "Cylinder volume",
			shape:    ShapeCylinder,
			dims:     Dimensions{Diameter: 2, Length: 10},
			expected: math.Pi * 1 * 1 * 10,
			complete: true,
		},
		{
			name:     "Tube volume",
			shape:    ShapeTube,
			dims:     Dimensions{OuterDiameter: 3, InnerDiameter: 2, Length: 6},
			expected: math.Pi * (1.5*1.5 - 1.0*1.0) * 6,
			complete: true,
		},
		{
			name:     "L-bracket volume",
			shape:    ShapeLBracket,
			dims:     Dimensions{Leg1: 3, Leg2: 2, Width: 1, Thickness: 0.25},
			expected: 3*0.25*1 + (2-0.25)*0.25*1,
			complete: true,
		},
		{
			name:     "Cone volume",
			shape:    ShapeCone,
			dims:     Dimensions{Diameter: 4, Height: 9},
			expected: (1.0 / 3.0) * math.Pi * 4 * 9,
			complete: true,
		},
		{
			name:     "Incomplete block reports zero without error",
			shape:    ShapeBlock,
			dims:     Dimensions{X: 2, Y: 3},
			expected: 0,
			complete: false,
		},
		{
			name:     "Zero dimension is incomplete, not invalid",
			shape:    ShapeCylinder,
			dims:     Dimensions{Diameter: 0, Length: 10},
			expected: 0,
			complete: false,
		},
		{
			name:        "Tube inner diameter equal to outer is invalid",
			shape:       ShapeTube,
			dims:        Dimensions{OuterDiameter: 2, InnerDiameter: 2, Length: 5},
			expectedErr: ErrInvalidGeometry,
		},
		{
			name:        "Tube inner diameter exceeding outer is invalid",
			shape:       ShapeTube,
			dims:        Dimensions{OuterDiameter: 2, InnerDiameter: 2.5, Length: 5},
			expectedErr: ErrInvalidGeometry,
		},
		{
			name:        "Bracket thickness equal to a leg is invalid",
			shape:       ShapeLBracket,
			dims:        Dimensions{Leg1: 2, Leg2: 3, Width: 1, Thickness: 2},
			expectedErr: ErrInvalidGeometry,
		},
		{
			name:        "Unknown shape",
			shape:       ShapeType("sphere"),
			dims:        Dimensions{Diameter: 2},
			expectedErr: ErrUnknownShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vol, complete, err := Volume(tt.shape, tt.dims)

			if tt.expectedErr != nil {
				if err == nil {
					t.Fatalf("expected error %v, got nil", tt.expectedErr)
				}
				if !eris.Is(err, tt.expectedErr) {
					t.Errorf("expected error %v, got %v", tt.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if complete != tt.complete {
				t.Errorf("expected complete=%v, got %v", tt.complete, complete)
			}
			if math.Abs(vol-tt.expected) > 1e-9 {
				t.Errorf("expected volume %.9f, got %.9f", tt.expected, vol)
			}
		})
	}
}

func TestVolumeNeverNegative(t *testing.T) {
	// Every valid shape configuration must produce a non-negative volume.
	shapes := []struct {
		shape ShapeType
		dims  Dimensions
	}{
		{ShapeBlock, Dimensions{X: 0.001, Y: 0.001, Z: 0.001}},
		{ShapeTube, Dimensions{OuterDiameter: 1.001, InnerDiameter: 1.0, Length: 0.01}},
		{ShapeLBracket, Dimensions{Leg1: 1, Leg2: 1, Width: 1, Thickness: 0.999}},
	}
	for _, s := range shapes {
		vol, _, err := Volume(s.shape, s.dims)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", s.shape, err)
		}
		if vol < 0 {
			t.Errorf("%s: negative volume %.9f", s.shape, vol)
		}
	}
}

func TestBoundingBox(t *testing.T) {
	tests := []struct {
		name    string
		shape   ShapeType
		dims    Dimensions
		x, y, z float64
		ok      bool
	}{
		{
			name:  "Block bounding box is itself",
			shape: ShapeBlock,
			dims:  Dimensions{X: 2, Y: 3, Z: 4},
			x:     2, y: 3, z: 4, ok: true,
		},
		{
			name:  "Cylinder bounds are diameter square by length",
			shape: ShapeCylinder,
			dims:  Dimensions{Diameter: 2, Length: 8},
			x:     2, y: 2, z: 8, ok: true,
		},
		{
			name:  "Tube bounds use outer diameter",
			shape: ShapeTube,
			dims:  Dimensions{OuterDiameter: 3, InnerDiameter: 1, Length: 5},
			x:     3, y: 3, z: 5, ok: true,
		},
		{
			name:  "L-bracket bounds are legs by width",
			shape: ShapeLBracket,
			dims:  Dimensions{Leg1: 3, Leg2: 2, Width: 1.5, Thickness: 0.25},
			x:     3, y: 2, z: 1.5, ok: true,
		},
		{
			name:  "Cone bounds are diameter square by height",
			shape: ShapeCone,
			dims:  Dimensions{Diameter: 4, Height: 6},
			x:     4, y: 4, z: 6, ok: true,
		},
		{
			name:  "Incomplete shape has no bounds",
			shape: ShapeCylinder,
			dims:  Dimensions{Diameter: 2},
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, z, ok := BoundingBox(tt.shape, tt.dims)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if !ok {
				return
			}
			if x != tt.x || y != tt.y || z != tt.z {
				t.Errorf("expected bounds (%.3f, %.3f, %.3f), got (%.3f, %.3f, %.3f)",
					tt.x, tt.y, tt.z, x, y, z)
			}
		})
	}
}

func TestNewShapeConfig(t *testing.T) {
	cfg, err := NewShapeConfig(ShapeBlock, Dimensions{X: 1, Y: 2, Z: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Volume != 6 {
		t.Errorf("expected volume 6, got %.3f", cfg.Volume)
	}
	if !cfg.Complete() {
		t.Error("expected config to be complete")
	}

	incomplete, err := NewShapeConfig(ShapeBlock, Dimensions{X: 1})
	if err != nil {
		t.Fatalf("unexpected error for incomplete dims: %v", err)
	}
	if incomplete.Volume != 0 || incomplete.Complete() {
		t.Error("incomplete config should carry zero volume and report incomplete")
	}

	if _, err := NewShapeConfig(ShapeTube, Dimensions{OuterDiameter: 1, InnerDiameter: 2, Length: 3}); err == nil {
		t.Error("expected error for invalid tube geometry")
	}
}
