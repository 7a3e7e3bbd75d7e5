// internal/layout/measure.go
package layout

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/xkilldash9x/elementcore/internal/element"
	"github.com/xkilldash9x/elementcore/internal/geometry"
	"github.com/xkilldash9x/elementcore/internal/property"
)

// -- Property Snapshot --

// reader resolves typed values and keeps the first error.
type reader struct {
	t   *element.Tree
	n   *element.Node
	err error
}

func get[T any](r *reader, k *property.Key) T {
	v, err := element.ValueAs[T](r.t, r.n, k)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("resolving %s on %s: %w", k.FullName(), r.n, err)
	}
	return v
}

// sizing is the set of layout properties read once per measure or arrange.
type sizing struct {
	width, height        float64
	minWidth, maxWidth   float64
	minHeight, maxHeight float64
	margin               geometry.Thickness
	hAlign               element.HorizontalAlignment
	vAlign               element.VerticalAlignment
	layoutTransform      geometry.Matrix
	rounding             bool
}

func (e *Engine) readSizing(n *element.Node) (sizing, error) {
	r := &reader{t: e.tree, n: n}
	s := sizing{
		width:           get[float64](r, element.WidthProperty),
		height:          get[float64](r, element.HeightProperty),
		minWidth:        get[float64](r, element.MinWidthProperty),
		maxWidth:        get[float64](r, element.MaxWidthProperty),
		minHeight:       get[float64](r, element.MinHeightProperty),
		maxHeight:       get[float64](r, element.MaxHeightProperty),
		margin:          get[geometry.Thickness](r, element.MarginProperty),
		hAlign:          get[element.HorizontalAlignment](r, element.HorizontalAlignmentProperty),
		vAlign:          get[element.VerticalAlignment](r, element.VerticalAlignmentProperty),
		layoutTransform: get[geometry.Matrix](r, element.LayoutTransformProperty),
		rounding:        get[bool](r, element.UseLayoutRoundingProperty) || e.rounding,
	}
	return s, r.err
}

// minMax folds Width/Height into the min and max constraints: an explicit
// size pins both bounds, clamped by the user min and max.
type minMax struct {
	minWidth, maxWidth   float64
	minHeight, maxHeight float64
}

func newMinMax(s sizing) minMax {
	var mm minMax

	mm.maxHeight = s.maxHeight
	mm.minHeight = s.minHeight
	h := s.height
	if math.IsNaN(h) {
		h = math.Inf(1)
	}
	mm.maxHeight = math.Max(math.Min(h, mm.maxHeight), mm.minHeight)
	h = s.height
	if math.IsNaN(h) {
		h = 0
	}
	mm.minHeight = math.Max(math.Min(mm.maxHeight, h), mm.minHeight)

	mm.maxWidth = s.maxWidth
	mm.minWidth = s.minWidth
	w := s.width
	if math.IsNaN(w) {
		w = math.Inf(1)
	}
	mm.maxWidth = math.Max(math.Min(w, mm.maxWidth), mm.minWidth)
	w = s.width
	if math.IsNaN(w) {
		w = 0
	}
	mm.minWidth = math.Max(math.Min(mm.maxWidth, w), mm.minWidth)

	return mm
}

// -- Measure --

// Measure computes n's desired size for the available space. A clean node
// measured again at a close constraint returns immediately.
func (e *Engine) Measure(n *element.Node, available geometry.Size) error {
	if n.Tree() != e.tree {
		return ErrForeignNode
	}
	if available.HasNaN() {
		return fmt.Errorf("%s: %w", n, ErrNaNConstraint)
	}
	l := n.Layout()
	if l.InMeasure {
		return fmt.Errorf("measure of %s: %w", n, element.ErrReentrantLayout)
	}

	vis, err := element.ValueAs[element.Visibility](e.tree, n, element.VisibilityProperty)
	if err != nil {
		return err
	}
	neverMeasured := l.NeverMeasured
	closeToPrevious := geometry.SizesClose(available, l.PreviousAvailable)

	if vis == element.Collapsed {
		// Remember the constraint so that the node re-measures at the right
		// size once it becomes visible again.
		if !closeToPrevious || neverMeasured {
			l.MeasureDirty = true
			l.PreviousAvailable = available
		}
		l.DesiredSize = geometry.Size{}
		return nil
	}
	if !l.MeasureDirty && !neverMeasured && closeToPrevious {
		return nil
	}

	if e.depth >= e.tree.MaxDepth() {
		return fmt.Errorf("measure of %s at depth %d: %w", n, e.depth, element.ErrRecursionLimit)
	}
	e.depth++
	defer func() { e.depth-- }()

	l.NeverMeasured = false
	prev := l.DesiredSize
	if err := e.tree.InvalidateArrange(n.Handle()); err != nil {
		return err
	}

	l.InMeasure = true
	desired, err := e.measureCore(n, available)
	l.InMeasure = false
	l.PreviousAvailable = available
	if err != nil {
		return err
	}

	if math.IsInf(desired.Width, 1) || math.IsInf(desired.Height, 1) {
		return fmt.Errorf("%s: %w", n, ErrInfiniteDesired)
	}
	if desired.HasNaN() {
		return fmt.Errorf("%s: %w", n, ErrNaNDesired)
	}

	l.MeasureDirty = false
	l.DesiredSize = desired

	if !l.MeasureDuringArrange && !geometry.SizesClose(prev, desired) {
		if p := e.tree.Parent(n); p != nil && !p.Layout().InMeasure {
			if err := e.tree.InvalidateMeasure(p.Handle()); err != nil {
				return err
			}
		}
	}

	e.logger.Debug("Measured",
		zap.Stringer("node", n),
		zap.Stringer("available", available),
		zap.Stringer("desired", desired))
	return nil
}

// measureCore applies margins, min/max constraints, the layout transform
// and rounding around the node's own content measurement.
func (e *Engine) measureCore(n *element.Node, available geometry.Size) (geometry.Size, error) {
	s, err := e.readSizing(n)
	if err != nil {
		return geometry.Size{}, err
	}
	l := n.Layout()

	if _, err := e.tree.EnsureTemplate(n); err != nil {
		return geometry.Size{}, err
	}

	marginWidth := s.margin.Horizontal()
	marginHeight := s.margin.Vertical()
	if s.rounding {
		marginWidth = geometry.RoundLayoutValue(marginWidth, e.dpi.ScaleX)
		marginHeight = geometry.RoundLayoutValue(marginHeight, e.dpi.ScaleY)
	}

	frameworkAvailable := geometry.Size{
		Width:  math.Max(available.Width-marginWidth, 0),
		Height: math.Max(available.Height-marginHeight, 0),
	}
	mm := newMinMax(s)

	var ltd *element.LayoutTransformData
	if !s.layoutTransform.IsIdentity() {
		ltd = &element.LayoutTransformData{Transform: s.layoutTransform}
		frameworkAvailable = FindMaximalAreaLocalSpaceRect(ltd.Transform, frameworkAvailable)
	}
	l.LayoutTransform = ltd

	frameworkAvailable.Width = math.Max(mm.minWidth, math.Min(frameworkAvailable.Width, mm.maxWidth))
	frameworkAvailable.Height = math.Max(mm.minHeight, math.Min(frameworkAvailable.Height, mm.maxHeight))
	if s.rounding {
		frameworkAvailable = e.dpi.RoundSize(frameworkAvailable)
	}

	desired, err := e.measureOverride(n, frameworkAvailable)
	if err != nil {
		return geometry.Size{}, err
	}
	desired = geometry.Size{
		Width:  math.Max(desired.Width, mm.minWidth),
		Height: math.Max(desired.Height, mm.minHeight),
	}

	unclipped := desired
	if ltd != nil {
		ltd.UntransformedDS = unclipped
		b := ltd.Transform.TransformRect(geometry.RectFromSize(unclipped))
		unclipped = b.Size()
	}

	clipped := false
	if desired.Width > mm.maxWidth {
		desired.Width = mm.maxWidth
		clipped = true
	}
	if desired.Height > mm.maxHeight {
		desired.Height = mm.maxHeight
		clipped = true
	}
	if ltd != nil {
		desired = ltd.Transform.TransformRect(geometry.RectFromSize(desired)).Size()
	}

	// Negative margins can make this negative; clamp only at the very end.
	clippedWidth := desired.Width + marginWidth
	clippedHeight := desired.Height + marginHeight
	if clippedWidth > available.Width {
		clippedWidth = available.Width
		clipped = true
	}
	if clippedHeight > available.Height {
		clippedHeight = available.Height
		clipped = true
	}
	if ltd != nil {
		ltd.TransformedUnroundedDS = geometry.Size{Width: math.Max(0, clippedWidth), Height: math.Max(0, clippedHeight)}
	}
	if s.rounding {
		clippedWidth = geometry.RoundLayoutValue(clippedWidth, e.dpi.ScaleX)
		clippedHeight = geometry.RoundLayoutValue(clippedHeight, e.dpi.ScaleY)
	}

	if clipped || clippedWidth < 0 || clippedHeight < 0 {
		l.UnclippedDesiredSize = unclipped
		l.HasUnclippedDesiredSize = true
	} else {
		l.UnclippedDesiredSize = geometry.Size{}
		l.HasUnclippedDesiredSize = false
	}

	return geometry.Size{Width: math.Max(0, clippedWidth), Height: math.Max(0, clippedHeight)}, nil
}

// -- Layout Transform Fitting --

// FindMaximalAreaLocalSpaceRect returns the largest-area size in local
// space whose image under transform fits inside bounds. Infinite bounds in
// one dimension assume a square constraint; a singular transform yields 0.
func FindMaximalAreaLocalSpaceRect(transform geometry.Matrix, bounds geometry.Size) geometry.Size {
	xConstr := bounds.Width
	yConstr := bounds.Height
	if geometry.IsZero(xConstr) || geometry.IsZero(yConstr) {
		return geometry.Size{}
	}

	xInf := math.IsInf(xConstr, 0)
	yInf := math.IsInf(yConstr, 0)
	switch {
	case xInf && yInf:
		return geometry.Infinite()
	case xInf:
		xConstr = yConstr
	case yInf:
		yConstr = xConstr
	}

	if !transform.HasInverse() {
		return geometry.Size{}
	}
	a, b, c, d := transform.A, transform.B, transform.C, transform.D

	var w, h float64
	switch {
	case geometry.IsZero(b) || geometry.IsZero(c):
		yCoverD := math.Inf(1)
		if !yInf {
			yCoverD = math.Abs(yConstr / d)
		}
		xCoverA := math.Inf(1)
		if !xInf {
			xCoverA = math.Abs(xConstr / a)
		}
		switch {
		case geometry.IsZero(b) && geometry.IsZero(c):
			h, w = yCoverD, xCoverA
		case geometry.IsZero(b):
			h = math.Min(0.5*math.Abs(xConstr/c), yCoverD)
			w = xCoverA - (c*h)/a
		default:
			w = math.Min(0.5*math.Abs(yConstr/b), xCoverA)
			h = yCoverD - (b*w)/d
		}

	case geometry.IsZero(a) || geometry.IsZero(d):
		yCoverB := math.Abs(yConstr / b)
		xCoverC := math.Abs(xConstr / c)
		switch {
		case geometry.IsZero(a) && geometry.IsZero(d):
			h, w = xCoverC, yCoverB
		case geometry.IsZero(a):
			h = math.Min(0.5*math.Abs(yConstr/d), xCoverC)
			w = yCoverB - (d*h)/b
		default:
			w = math.Min(0.5*math.Abs(xConstr/a), yCoverB)
			h = xCoverC - (a*w)/c
		}

	default:
		xCoverA := math.Abs(xConstr / a)
		xCoverC := math.Abs(xConstr / c)
		yCoverB := math.Abs(yConstr / b)
		yCoverD := math.Abs(yConstr / d)

		// The optimum under a single constraint line sits halfway to both intercepts.
		w = math.Min(yCoverB, xCoverA) * 0.5
		h = math.Min(xCoverC, yCoverD) * 0.5

		if (geometry.GreaterThanOrClose(xCoverA, yCoverB) && geometry.LessThanOrClose(xCoverC, yCoverD)) ||
			(geometry.LessThanOrClose(xCoverA, yCoverB) && geometry.GreaterThanOrClose(xCoverC, yCoverD)) {
			// Constraint lines cross: scale the midpoint out until it touches the bounds.
			tb := transform.TransformRect(geometry.Rect{Width: w, Height: h})
			expand := math.Min(xConstr/tb.Width, yConstr/tb.Height)
			if !math.IsNaN(expand) && !math.IsInf(expand, 0) {
				w *= expand
				h *= expand
			}
		}
	}
	return geometry.Size{Width: w, Height: h}
}
