package geometry

import "math"

// RoundLayoutValue snaps a value to the device-pixel grid described by
// dpiScale (device pixels per layout unit). Ties round to even so that
// repeated rounding of the same value is stable. Values that cannot be
// snapped (NaN, infinities, overflow) are returned unchanged.
func RoundLayoutValue(value, dpiScale float64) float64 {
	var rounded float64
	if AreClose(dpiScale, 1.0) {
		rounded = math.RoundToEven(value)
	} else {
		rounded = math.RoundToEven(value*dpiScale) / dpiScale
	}
	if math.IsNaN(rounded) || math.IsInf(rounded, 0) || AreClose(rounded, math.MaxFloat64) {
		return value
	}
	return rounded
}

// DPI is the single device conversion point consumed by layout.
type DPI struct {
	ScaleX, ScaleY float64
}

// DefaultDPI is 96 DPI: one device pixel per layout unit.
var DefaultDPI = DPI{ScaleX: 1, ScaleY: 1}

// RoundSize snaps both dimensions.
func (d DPI) RoundSize(s Size) Size {
	return Size{Width: RoundLayoutValue(s.Width, d.ScaleX), Height: RoundLayoutValue(s.Height, d.ScaleY)}
}

// RoundPoint snaps both coordinates.
func (d DPI) RoundPoint(p Point) Point {
	return Point{X: RoundLayoutValue(p.X, d.ScaleX), Y: RoundLayoutValue(p.Y, d.ScaleY)}
}

// RoundThickness snaps every edge.
func (d DPI) RoundThickness(t Thickness) Thickness {
	return Thickness{
		Left:   RoundLayoutValue(t.Left, d.ScaleX),
		Top:    RoundLayoutValue(t.Top, d.ScaleY),
		Right:  RoundLayoutValue(t.Right, d.ScaleX),
		Bottom: RoundLayoutValue(t.Bottom, d.ScaleY),
	}
}

// RoundRect snaps the edges of a rectangle rather than its size, so that
// adjacent rectangles keep sharing an edge after rounding.
func (d DPI) RoundRect(r Rect) Rect {
	x := RoundLayoutValue(r.X, d.ScaleX)
	y := RoundLayoutValue(r.Y, d.ScaleY)
	return Rect{
		X:      x,
		Y:      y,
		Width:  RoundLayoutValue(r.X+r.Width, d.ScaleX) - x,
		Height: RoundLayoutValue(r.Y+r.Height, d.ScaleY) - y,
	}
}
