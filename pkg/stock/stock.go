// Package stock snaps raw envelope dimensions to commercially purchasable
// stock sizes and owns the stock envelope type.
package stock

import (
	"math"

	"github.com/precisionworks/quote-engine/pkg/constants"
)

// AxisClass selects which size catalog applies to a dimension.
type AxisClass int

const (
	// AxisWidth uses the coarse width/length catalog.
	AxisWidth AxisClass = iota
	// AxisThickness uses the fine-grained plate/bar thickness catalog.
	AxisThickness
)

// StandardThicknesses lists common industrial plate/bar thicknesses in
// inches, from 1/16" up to 6".
var StandardThicknesses = []float64{
	0.0625, 0.125, 0.1875, 0.25, 0.375, 0.5, 0.625, 0.75,
	1.0, 1.25, 1.5, 2.0, 2.5, 3.0, 4.0, 5.0, 6.0,
}

// StandardWidths lists common width/length sizes in inches. Suppliers sell
// in half-inch increments up to 12", then progressively coarser steps.
var StandardWidths = []float64{
	0.25, 0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0, 2.5, 3.0, 3.5, 4.0,
	4.5, 5.0, 5.5, 6.0, 6.5, 7.0, 7.5, 8.0, 8.5, 9.0, 9.5, 10.0,
	10.5, 11.0, 11.5, 12.0, 13.0, 14.0, 15.0, 16.0, 18.0, 20.0,
	24.0, 30.0, 36.0, 48.0,
}

// Envelope is a rectangular stock envelope. Dimensions are unordered at
// input time; axis classification is a heuristic applied at snap time.
type Envelope struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Volume returns X*Y*Z, or 0 while any dimension is not positive.
func (e Envelope) Volume() float64 {
	if !e.Valid() {
		return 0
	}
	return e.X * e.Y * e.Z
}

// Valid reports whether all three dimensions are positive.
func (e Envelope) Valid() bool {
	return e.X > 0 && e.Y > 0 && e.Z > 0
}

// Catalog holds the ordered reference size lists used for snapping. The
// zero value is not usable; construct with DefaultCatalog or NewCatalog.
type Catalog struct {
	thicknesses []float64
	widths      []float64
}

// DefaultCatalog returns a catalog backed by the standard size lists.
func DefaultCatalog() *Catalog {
	return NewCatalog(StandardThicknesses, StandardWidths)
}

// NewCatalog builds a catalog from custom size lists; empty lists fall back
// to the standard ones. Lists must be sorted ascending.
func NewCatalog(thicknesses, widths []float64) *Catalog {
	if len(thicknesses) == 0 {
		thicknesses = StandardThicknesses
	}
	if len(widths) == 0 {
		widths = StandardWidths
	}
	c := &Catalog{
		thicknesses: make([]float64, len(thicknesses)),
		widths:      make([]float64, len(widths)),
	}
	copy(c.thicknesses, thicknesses)
	copy(c.widths, widths)
	return c
}

// Snap rounds a dimension up to the nearest stock size for the given axis
// class. Snapping is monotonic and idempotent, and the result is always
// >= the input. Dimensions beyond the largest listed size round up to the
// next whole inch. Non-positive input snaps to 0.
func (c *Catalog) Snap(dimension float64, axis AxisClass) float64 {
	if dimension <= 0 {
		return 0
	}
	list := c.widths
	if axis == AxisThickness {
		list = c.thicknesses
	}
	for _, size := range list {
		if size >= dimension {
			return size
		}
	}
	return math.Ceil(dimension)
}

// ClassifyAxes returns the axis class for each envelope dimension. The
// smallest of the three is treated as the thickness axis; the other two use
// the width/length catalog. Ties resolve in stable X, Y, Z order so the
// classification is deterministic.
func ClassifyAxes(e Envelope) (x, y, z AxisClass) {
	x, y, z = AxisWidth, AxisWidth, AxisWidth
	switch {
	case e.X <= e.Y && e.X <= e.Z:
		x = AxisThickness
	case e.Y <= e.Z:
		y = AxisThickness
	default:
		z = AxisThickness
	}
	return x, y, z
}

// SnapEnvelope snaps all three dimensions of an envelope, classifying axes
// with the smallest-is-thickness heuristic.
func (c *Catalog) SnapEnvelope(e Envelope) Envelope {
	ax, ay, az := ClassifyAxes(e)
	return Envelope{
		X: c.Snap(e.X, ax),
		Y: c.Snap(e.Y, ay),
		Z: c.Snap(e.Z, az),
	}
}

// ApplySnapped overlays snapped values onto a live envelope, overwriting
// only fields whose delta exceeds the snap epsilon. It returns the merged
// envelope and whether anything actually changed, so callers can skip
// redundant recalculation.
func ApplySnapped(live, snapped Envelope) (Envelope, bool) {
	changed := false
	out := live
	if math.Abs(live.X-snapped.X) > constants.SnapEpsilon {
		out.X = snapped.X
		changed = true
	}
	if math.Abs(live.Y-snapped.Y) > constants.SnapEpsilon {
		out.Y = snapped.Y
		changed = true
	}
	if math.Abs(live.Z-snapped.Z) > constants.SnapEpsilon {
		out.Z = snapped.Z
		changed = true
	}
	return out, changed
}

// Recommend returns the snapped stock size for a part bounding box after
// adding the given margin per side to every axis.
func (c *Catalog) Recommend(x, y, z, marginPerSide float64) Envelope {
	return c.SnapEnvelope(Envelope{
		X: x + 2*marginPerSide,
		Y: y + 2*marginPerSide,
		Z: z + 2*marginPerSide,
	})
}
