// Package geometry computes closed-form volumes and bounding boxes for the
// parametric shapes supported by the quote engine. All functions are pure:
// they never mutate their inputs and carry no state between calls.
package geometry

import (
	"math"

	"github.com/rotisserie/eris"
)

// ShapeType identifies a parametric shape variant.
type ShapeType string

// Supported shape variants. Plate is dimensionally identical to Block and
// exists only as a display distinction.
const (
	ShapeBlock    ShapeType = "block"
	ShapePlate    ShapeType = "plate"
	ShapeCylinder ShapeType = "cylinder"
	ShapeTube     ShapeType = "tube"
	ShapeLBracket ShapeType = "l-bracket"
	ShapeCone     ShapeType = "cone"
)

// Sentinel errors for the geometry taxonomy. Both halt only the affected
// computation; the caller's prior state stays untouched.
var (
	// ErrInvalidGeometry reports dimensions that are individually positive
	// but physically impossible together (tube ID >= OD, bracket thickness
	// not smaller than both legs).
	ErrInvalidGeometry = eris.New("invalid geometry")

	// ErrUnknownShape reports an unrecognized shape variant.
	ErrUnknownShape = eris.New("unknown shape type")
)

// Dimensions carries the dimension record for every shape variant; each
// variant reads only its own fields. All values are inches.
type Dimensions struct {
	X float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y float64 `json:"y,omitempty" yaml:"y,omitempty"`
	Z float64 `json:"z,omitempty" yaml:"z,omitempty"`

	Diameter float64 `json:"diameter,omitempty" yaml:"diameter,omitempty"`
	Length   float64 `json:"length,omitempty" yaml:"length,omitempty"`
	Height   float64 `json:"height,omitempty" yaml:"height,omitempty"`

	OuterDiameter float64 `json:"od,omitempty" yaml:"od,omitempty"`
	InnerDiameter float64 `json:"id,omitempty" yaml:"id,omitempty"`

	Leg1      float64 `json:"leg1,omitempty" yaml:"leg1,omitempty"`
	Leg2      float64 `json:"leg2,omitempty" yaml:"leg2,omitempty"`
	Width     float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Thickness float64 `json:"thickness,omitempty" yaml:"thickness,omitempty"`
}

// ShapeConfig is a fully specified parametric shape: exactly one variant,
// its dimension record, and the derived volume. It is replaced wholesale
// when the user picks a different shape.
type ShapeConfig struct {
	Type       ShapeType  `json:"type" yaml:"type"`
	Dimensions Dimensions `json:"dimensions" yaml:"dimensions"`
	Volume     float64    `json:"volume" yaml:"volume"`
}

// required returns the dimension values a variant needs, in a fixed order.
func required(shape ShapeType, d Dimensions) ([]float64, error) {
	switch shape {
	case ShapeBlock, ShapePlate:
		return []float64{d.X, d.Y, d.Z}, nil
	case ShapeCylinder:
		return []float64{d.Diameter, d.Length}, nil
	case ShapeTube:
		return []float64{d.OuterDiameter, d.InnerDiameter, d.Length}, nil
	case ShapeLBracket:
		return []float64{d.Leg1, d.Leg2, d.Width, d.Thickness}, nil
	case ShapeCone:
		return []float64{d.Diameter, d.Height}, nil
	default:
		return nil, eris.Wrapf(ErrUnknownShape, "%q", shape)
	}
}

// Volume returns the closed-form volume for a shape variant. The second
// result is false while any required dimension is not yet positive: the
// shape is incomplete, the volume is 0, and the caller should not proceed.
// An error is returned only for physically invalid or unknown geometry.
func Volume(shape ShapeType, dims Dimensions) (float64, bool, error) {
	req, err := required(shape, dims)
	if err != nil {
		return 0, false, err
	}
	for _, v := range req {
		if v <= 0 {
			return 0, false, nil
		}
	}

	switch shape {
	case ShapeBlock, ShapePlate:
		return dims.X * dims.Y * dims.Z, true, nil

	case ShapeCylinder:
		r := dims.Diameter / 2
		return math.Pi * r * r * dims.Length, true, nil

	case ShapeTube:
		if dims.InnerDiameter >= dims.OuterDiameter {
			return 0, false, eris.Wrapf(ErrInvalidGeometry,
				"tube inner diameter %.3f must be less than outer diameter %.3f",
				dims.InnerDiameter, dims.OuterDiameter)
		}
		or := dims.OuterDiameter / 2
		ir := dims.InnerDiameter / 2
		return math.Pi * (or*or - ir*ir) * dims.Length, true, nil

	case ShapeLBracket:
		// The original tool let thickness >= leg slip through and produced a
		// negative volume; reject it instead.
		if dims.Thickness >= dims.Leg1 || dims.Thickness >= dims.Leg2 {
			return 0, false, eris.Wrapf(ErrInvalidGeometry,
				"bracket thickness %.3f must be less than both legs (%.3f, %.3f)",
				dims.Thickness, dims.Leg1, dims.Leg2)
		}
		// Bounding box of both legs minus the removed inner rectangle.
		return dims.Leg1*dims.Thickness*dims.Width +
			(dims.Leg2-dims.Thickness)*dims.Thickness*dims.Width, true, nil

	case ShapeCone:
		r := dims.Diameter / 2
		return (1.0 / 3.0) * math.Pi * r * r * dims.Height, true, nil
	}

	return 0, false, eris.Wrapf(ErrUnknownShape, "%q", shape)
}

// BoundingBox returns the axis-aligned bounding dimensions of a shape,
// used to derive the stock envelope. The second result is false while the
// shape is incomplete.
func BoundingBox(shape ShapeType, dims Dimensions) (x, y, z float64, ok bool) {
	req, err := required(shape, dims)
	if err != nil {
		return 0, 0, 0, false
	}
	for _, v := range req {
		if v <= 0 {
			return 0, 0, 0, false
		}
	}

	switch shape {
	case ShapeBlock, ShapePlate:
		return dims.X, dims.Y, dims.Z, true
	case ShapeCylinder:
		return dims.Diameter, dims.Diameter, dims.Length, true
	case ShapeTube:
		return dims.OuterDiameter, dims.OuterDiameter, dims.Length, true
	case ShapeLBracket:
		return dims.Leg1, dims.Leg2, dims.Width, true
	case ShapeCone:
		return dims.Diameter, dims.Diameter, dims.Height, true
	}
	return 0, 0, 0, false
}

// NewShapeConfig validates a variant and dimension record and returns the
// config with its derived volume. Incomplete dimensions produce a config
// with Volume 0 and no error.
func NewShapeConfig(shape ShapeType, dims Dimensions) (ShapeConfig, error) {
	vol, _, err := Volume(shape, dims)
	if err != nil {
		return ShapeConfig{}, err
	}
	return ShapeConfig{Type: shape, Dimensions: dims, Volume: vol}, nil
}

// Complete reports whether every required dimension of the config is positive.
func (c ShapeConfig) Complete() bool {
	req, err := required(c.Type, c.Dimensions)
	if err != nil {
		return false
	}
	for _, v := range req {
		if v <= 0 {
			return false
		}
	}
	return true
}
