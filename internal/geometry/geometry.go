// internal/geometry/geometry.go
package geometry

import (
	"fmt"
	"math"
)

// -- Core Structures: Sizes, Points and Rectangles --

// Size is a width/height pair. Infinite components are legal in constraints
// (an unbounded axis); NaN is never legal.
type Size struct {
	Width, Height float64
}

// Infinite returns a constraint that is unbounded on both axes.
func Infinite() Size {
	return Size{Width: math.Inf(1), Height: math.Inf(1)}
}

// IsEmpty reports whether either dimension is zero or negative.
func (s Size) IsEmpty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// HasNaN reports whether either component is NaN.
func (s Size) HasNaN() bool {
	return math.IsNaN(s.Width) || math.IsNaN(s.Height)
}

// HasInf reports whether either component is infinite.
func (s Size) HasInf() bool {
	return math.IsInf(s.Width, 0) || math.IsInf(s.Height, 0)
}

// Get is an axis-agnostic accessor.
func (s Size) Get(axis Axis) float64 {
	if axis == Horizontal {
		return s.Width
	}
	return s.Height
}

// With returns a copy of s with the given axis replaced.
func (s Size) With(axis Axis, v float64) Size {
	if axis == Horizontal {
		s.Width = v
	} else {
		s.Height = v
	}
	return s
}

func (s Size) String() string {
	return fmt.Sprintf("%gx%g", s.Width, s.Height)
}

// Point is a location in some coordinate space.
type Point struct {
	X, Y float64
}

// Add offsets a point.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, Width, Height float64
}

// RectFromSize builds a rectangle anchored at the origin.
func RectFromSize(s Size) Rect {
	return Rect{Width: s.Width, Height: s.Height}
}

// Size returns the dimensions of the rectangle.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Location returns the top-left corner.
func (r Rect) Location() Point {
	return Point{X: r.X, Y: r.Y}
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// IsEmpty reports whether the rectangle covers no area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether p lies inside the rectangle (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Intersect returns the overlap of two rectangles. Disjoint rectangles
// yield an empty rectangle located at the origin.
func (r Rect) Intersect(o Rect) Rect {
	left := math.Max(r.X, o.X)
	top := math.Max(r.Y, o.Y)
	right := math.Min(r.Right(), o.Right())
	bottom := math.Min(r.Bottom(), o.Bottom())
	if right < left || bottom < top {
		return Rect{}
	}
	return Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// HasNaN reports whether any component is NaN.
func (r Rect) HasNaN() bool {
	return math.IsNaN(r.X) || math.IsNaN(r.Y) || math.IsNaN(r.Width) || math.IsNaN(r.Height)
}

// HasInf reports whether any component is infinite.
func (r Rect) HasInf() bool {
	return math.IsInf(r.X, 0) || math.IsInf(r.Y, 0) || math.IsInf(r.Width, 0) || math.IsInf(r.Height, 0)
}

func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g %gx%g)", r.X, r.Y, r.Width, r.Height)
}

// Thickness describes the four edges of a frame (margin, padding, border).
type Thickness struct {
	Left, Top, Right, Bottom float64
}

// Uniform returns a thickness with the same value on every edge.
func Uniform(v float64) Thickness {
	return Thickness{Left: v, Top: v, Right: v, Bottom: v}
}

// Horizontal returns the combined left and right extent.
func (t Thickness) Horizontal() float64 { return t.Left + t.Right }

// Vertical returns the combined top and bottom extent.
func (t Thickness) Vertical() float64 { return t.Top + t.Bottom }

// Collapse returns the space consumed by the frame.
func (t Thickness) Collapse() Size {
	return Size{Width: t.Horizontal(), Height: t.Vertical()}
}

// Deflate shrinks a size by the frame, never below zero.
func (t Thickness) Deflate(s Size) Size {
	return Size{
		Width:  math.Max(0, s.Width-t.Horizontal()),
		Height: math.Max(0, s.Height-t.Vertical()),
	}
}

// DeflateRect shrinks a rectangle by the frame, never below zero size.
func (t Thickness) DeflateRect(r Rect) Rect {
	return Rect{
		X:      r.X + t.Left,
		Y:      r.Y + t.Top,
		Width:  math.Max(0, r.Width-t.Horizontal()),
		Height: math.Max(0, r.Height-t.Vertical()),
	}
}

// IsFinite reports whether every edge is a finite number.
func (t Thickness) IsFinite() bool {
	for _, v := range []float64{t.Left, t.Top, t.Right, t.Bottom} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// IsNonNegative reports whether no edge is negative.
func (t Thickness) IsNonNegative() bool {
	return t.Left >= 0 && t.Top >= 0 && t.Right >= 0 && t.Bottom >= 0
}

// Axis represents a layout direction.
type Axis int

const (
	// Horizontal axis for layout calculations.
	Horizontal Axis = iota
	// Vertical axis for layout calculations.
	Vertical
)
