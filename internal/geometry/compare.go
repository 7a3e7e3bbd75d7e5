package geometry

import "math"

// epsilon mirrors the tolerance layout code uses when comparing computed
// doubles; exact equality is too strict after transforms and rounding.
const epsilon = 2.2204460492503131e-016

// AreClose reports whether two values are equal within a relative tolerance.
func AreClose(a, b float64) bool {
	if a == b {
		return true
	}
	eps := (math.Abs(a) + math.Abs(b) + 10.0) * epsilon
	delta := a - b
	return -eps < delta && eps > delta
}

// LessThan reports a < b with the AreClose tolerance.
func LessThan(a, b float64) bool {
	return a < b && !AreClose(a, b)
}

// GreaterThan reports a > b with the AreClose tolerance.
func GreaterThan(a, b float64) bool {
	return a > b && !AreClose(a, b)
}

// LessThanOrClose reports a <= b with the AreClose tolerance.
func LessThanOrClose(a, b float64) bool {
	return a < b || AreClose(a, b)
}

// GreaterThanOrClose reports a >= b with the AreClose tolerance.
func GreaterThanOrClose(a, b float64) bool {
	return a > b || AreClose(a, b)
}

// IsZero reports whether v is within an absolute tolerance of zero.
func IsZero(v float64) bool {
	return math.Abs(v) < 10.0*epsilon
}

// SizesClose compares two sizes component-wise.
func SizesClose(a, b Size) bool {
	return AreClose(a.Width, b.Width) && AreClose(a.Height, b.Height)
}

// RectsClose compares two rectangles component-wise.
func RectsClose(a, b Rect) bool {
	return AreClose(a.X, b.X) && AreClose(a.Y, b.Y) && AreClose(a.Width, b.Width) && AreClose(a.Height, b.Height)
}
