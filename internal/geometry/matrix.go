// internal/geometry/matrix.go
package geometry

import (
	"errors"
	"math"
)

// ErrSingular is returned when a matrix has no inverse.
var ErrSingular = errors.New("matrix is not invertible")

// -- 2D Affine Transforms --

// Matrix represents a 2D affine transformation matrix (3x3).
// [ a c e ]
// [ b d f ]
// [ 0 0 1 ]
// A point (x, y) maps to (a*x + c*y + e, b*x + d*y + f).
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity returns the identity matrix (no transformation).
func Identity() Matrix {
	return Matrix{A: 1, D: 1}
}

// IsIdentity reports whether m leaves every point unchanged.
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

// Multiply combines two matrices (m * m2): m2 is applied first. Order matters.
func (m Matrix) Multiply(m2 Matrix) Matrix {
	return Matrix{
		A: m.A*m2.A + m.C*m2.B,
		B: m.B*m2.A + m.D*m2.B,
		C: m.A*m2.C + m.C*m2.D,
		D: m.B*m2.C + m.D*m2.D,
		E: m.A*m2.E + m.C*m2.F + m.E,
		F: m.B*m2.E + m.D*m2.F + m.F,
	}
}

// Then returns the matrix that applies m first and next second.
func (m Matrix) Then(next Matrix) Matrix {
	return next.Multiply(m)
}

// Apply transforms a point.
func (m Matrix) Apply(p Point) Point {
	return Point{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// Determinant of the linear part.
func (m Matrix) Determinant() float64 {
	return m.A*m.D - m.B*m.C
}

// HasInverse reports whether the matrix is non-singular.
func (m Matrix) HasInverse() bool {
	return !IsZero(m.Determinant())
}

// Inverse calculates the inverse of the transformation matrix.
// If the matrix is not invertible (i.e., its determinant is zero),
// it returns ErrSingular.
func (m Matrix) Inverse() (Matrix, error) {
	det := m.Determinant()
	if IsZero(det) {
		return Matrix{}, ErrSingular
	}
	invDet := 1.0 / det
	return Matrix{
		A: m.D * invDet,
		B: -m.B * invDet,
		C: -m.C * invDet,
		D: m.A * invDet,
		E: (m.C*m.F - m.D*m.E) * invDet,
		F: (m.B*m.E - m.A*m.F) * invDet,
	}, nil
}

// TransformRect returns the axis-aligned bounding box of r's image under m.
func (m Matrix) TransformRect(r Rect) Rect {
	if m.IsIdentity() {
		return r
	}
	corners := [4]Point{
		m.Apply(Point{X: r.X, Y: r.Y}),
		m.Apply(Point{X: r.Right(), Y: r.Y}),
		m.Apply(Point{X: r.X, Y: r.Bottom()}),
		m.Apply(Point{X: r.Right(), Y: r.Bottom()}),
	}
	minX, minY := corners[0].X, corners[0].Y
	maxX, maxY := minX, minY
	for _, c := range corners[1:] {
		minX, maxX = math.Min(minX, c.X), math.Max(maxX, c.X)
		minY, maxY = math.Min(minY, c.Y), math.Max(maxY, c.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// WithoutTranslation drops the offset components.
func (m Matrix) WithoutTranslation() Matrix {
	m.E, m.F = 0, 0
	return m
}

// Translate creates a translation matrix.
func Translate(tx, ty float64) Matrix {
	return Matrix{A: 1, D: 1, E: tx, F: ty}
}

// Scale creates a scaling matrix.
func Scale(sx, sy float64) Matrix {
	return Matrix{A: sx, D: sy}
}

// Rotate creates a rotation matrix. Angle is in radians.
func Rotate(angle float64) Matrix {
	cosA := math.Cos(angle)
	sinA := math.Sin(angle)
	return Matrix{A: cosA, B: sinA, C: -sinA, D: cosA}
}

// Skew creates a skewing matrix. Angles are in radians.
func Skew(ax, ay float64) Matrix {
	return Matrix{A: 1, C: math.Tan(ax), B: math.Tan(ay), D: 1}
}

// About returns m applied around the given origin instead of (0,0).
func (m Matrix) About(origin Point) Matrix {
	return Translate(-origin.X, -origin.Y).Then(m).Then(Translate(origin.X, origin.Y))
}
