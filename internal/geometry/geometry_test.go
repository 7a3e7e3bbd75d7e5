package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrix_InverseRoundTrip(t *testing.T) {
	m := Rotate(math.Pi / 6).Then(Scale(2, 3)).Then(Translate(5, -7))
	inv, err := m.Inverse()
	require.NoError(t, err)

	p := Point{X: 12, Y: -4}
	back := inv.Apply(m.Apply(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)
}

func TestMatrix_SingularHasNoInverse(t *testing.T) {
	m := Scale(0, 1)
	assert.False(t, m.HasInverse())
	_, err := m.Inverse()
	assert.ErrorIs(t, err, ErrSingular)
}

func TestMatrix_ThenOrder(t *testing.T) {
	// Scale first, then translate: (1,1) -> (2,2) -> (12,2).
	m := Scale(2, 2).Then(Translate(10, 0))
	p := m.Apply(Point{X: 1, Y: 1})
	assert.Equal(t, Point{X: 12, Y: 2}, p)
}

func TestMatrix_TransformRectBoundingBox(t *testing.T) {
	r := Rotate(math.Pi / 2).TransformRect(Rect{Width: 100, Height: 20})
	assert.InDelta(t, -20, r.X, 1e-9)
	assert.InDelta(t, 0, r.Y, 1e-9)
	assert.InDelta(t, 20, r.Width, 1e-9)
	assert.InDelta(t, 100, r.Height, 1e-9)
}

func TestMatrix_About(t *testing.T) {
	// Rotating 180 degrees about (5,5) maps (0,0) onto (10,10).
	p := Rotate(math.Pi).About(Point{X: 5, Y: 5}).Apply(Point{})
	assert.InDelta(t, 10, p.X, 1e-9)
	assert.InDelta(t, 10, p.Y, 1e-9)
}

func TestRoundLayoutValue(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		scale float64
		want  float64
	}{
		{"unit scale rounds to integer", 10.4, 1, 10},
		{"ties go to even", 10.5, 1, 10},
		{"ties go to even upward", 11.5, 1, 12},
		{"fractional scale snaps to device grid", 10.5, 1.5, 10.0 + 2.0/3.0},
		{"infinity passes through", math.Inf(1), 1.25, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundLayoutValue(tt.value, tt.scale)
			if math.IsInf(tt.want, 0) {
				assert.True(t, math.IsInf(got, 1))
				return
			}
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRect_Intersect(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: -5, Width: 10, Height: 10}
	assert.Equal(t, Rect{X: 5, Y: 0, Width: 5, Height: 5}, a.Intersect(b))
	assert.True(t, a.Intersect(Rect{X: 20, Y: 20, Width: 1, Height: 1}).IsEmpty())
}

func TestParseTransform(t *testing.T) {
	t.Run("identity spellings", func(t *testing.T) {
		for _, s := range []string{"", "none", "identity"} {
			m, err := ParseTransform(s)
			require.NoError(t, err)
			assert.True(t, m.IsIdentity())
		}
	})

	t.Run("composition left to right", func(t *testing.T) {
		m, err := ParseTransform("translate(10, 0) scale(2)")
		require.NoError(t, err)
		// CSS semantics: the rightmost function touches the point first.
		p := m.Apply(Point{X: 1, Y: 1})
		assert.Equal(t, Point{X: 12, Y: 2}, p)
	})

	t.Run("angles", func(t *testing.T) {
		m, err := ParseTransform("rotate(0.25turn)")
		require.NoError(t, err)
		p := m.Apply(Point{X: 1})
		assert.InDelta(t, 0, p.X, 1e-9)
		assert.InDelta(t, 1, p.Y, 1e-9)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := ParseTransform("wobble(3)")
		assert.Error(t, err)
		_, err = ParseTransform("matrix(1,2,3)")
		assert.Error(t, err)
	})
}

func TestParseThickness(t *testing.T) {
	th, err := ParseThickness("1,2,3,4")
	require.NoError(t, err)
	assert.Equal(t, Thickness{Left: 1, Top: 2, Right: 3, Bottom: 4}, th)

	th, err = ParseThickness("4 2")
	require.NoError(t, err)
	assert.Equal(t, Thickness{Left: 4, Top: 2, Right: 4, Bottom: 2}, th)

	_, err = ParseThickness("1,2,3")
	assert.Error(t, err)
}
