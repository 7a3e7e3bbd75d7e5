// internal/layout/arrange.go
package layout

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/xkilldash9x/elementcore/internal/element"
	"github.com/xkilldash9x/elementcore/internal/geometry"
)

// Arrange positions n inside finalRect. A node that still needs measure is
// measured first, at finalRect's size if it was never measured.
func (e *Engine) Arrange(n *element.Node, finalRect geometry.Rect) error {
	if n.Tree() != e.tree {
		return ErrForeignNode
	}
	if finalRect.HasNaN() || math.IsInf(finalRect.Width, 1) || math.IsInf(finalRect.Height, 1) {
		return fmt.Errorf("%s at %s: %w", n, finalRect, ErrInvalidArrange)
	}
	l := n.Layout()
	if l.InArrange {
		return fmt.Errorf("arrange of %s: %w", n, element.ErrReentrantLayout)
	}

	vis, err := element.ValueAs[element.Visibility](e.tree, n, element.VisibilityProperty)
	if err != nil {
		return err
	}
	if vis == element.Collapsed {
		l.PreviousFinalRect = finalRect
		return nil
	}

	if l.MeasureDirty || l.NeverMeasured {
		constraint := l.PreviousAvailable
		if l.NeverMeasured {
			constraint = finalRect.Size()
		}
		l.MeasureDuringArrange = true
		err := e.Measure(n, constraint)
		l.MeasureDuringArrange = false
		if err != nil {
			return err
		}
	}

	if !l.ArrangeDirty && !l.NeverArranged && geometry.RectsClose(finalRect, l.PreviousFinalRect) {
		return nil
	}

	if e.depth >= e.tree.MaxDepth() {
		return fmt.Errorf("arrange of %s at depth %d: %w", n, e.depth, element.ErrRecursionLimit)
	}
	e.depth++
	defer func() { e.depth-- }()

	s, err := e.readSizing(n)
	if err != nil {
		return err
	}
	if s.rounding {
		finalRect = e.dpi.RoundRect(finalRect)
	}

	l.NeverArranged = false
	l.InArrange = true
	err = e.arrangeCore(n, s, finalRect)
	l.InArrange = false
	if err != nil {
		return err
	}

	l.PreviousFinalRect = finalRect
	l.ArrangeDirty = false

	e.logger.Debug("Arranged",
		zap.Stringer("node", n),
		zap.Stringer("slot", finalRect),
		zap.Stringer("render_size", l.RenderSize))
	return nil
}

// arrangeCore turns the layout slot into the size handed to the node's
// content, then aligns the resulting ink inside the slot minus margins.
func (e *Engine) arrangeCore(n *element.Node, s sizing, finalRect geometry.Rect) error {
	l := n.Layout()
	ltd := l.LayoutTransform
	l.NeedsClipBounds = false

	marginWidth := s.margin.Horizontal()
	marginHeight := s.margin.Vertical()
	if s.rounding {
		marginWidth = geometry.RoundLayoutValue(marginWidth, e.dpi.ScaleX)
		marginHeight = geometry.RoundLayoutValue(marginHeight, e.dpi.ScaleY)
	}

	arrangeSize := geometry.Size{
		Width:  math.Max(0, finalRect.Width-marginWidth),
		Height: math.Max(0, finalRect.Height-marginHeight),
	}

	var unclipped geometry.Size
	if l.HasUnclippedDesiredSize {
		unclipped = l.UnclippedDesiredSize
	} else {
		unclipped = geometry.Size{
			Width:  math.Max(0, l.DesiredSize.Width-marginWidth),
			Height: math.Max(0, l.DesiredSize.Height-marginHeight),
		}
		if s.rounding && ltd != nil {
			// Rounding happened after the transform, so compare against
			// the unrounded transformed size as well.
			unclipped.Width = math.Max(unclipped.Width, math.Max(0, ltd.TransformedUnroundedDS.Width-marginWidth))
			unclipped.Height = math.Max(unclipped.Height, math.Max(0, ltd.TransformedUnroundedDS.Height-marginHeight))
		}
	}

	if geometry.LessThan(arrangeSize.Width, unclipped.Width) {
		l.NeedsClipBounds = true
		arrangeSize.Width = unclipped.Width
	}
	if geometry.LessThan(arrangeSize.Height, unclipped.Height) {
		l.NeedsClipBounds = true
		arrangeSize.Height = unclipped.Height
	}

	if s.hAlign != element.HorizontalStretch {
		arrangeSize.Width = unclipped.Width
	}
	if s.vAlign != element.VerticalStretch {
		arrangeSize.Height = unclipped.Height
	}

	if ltd != nil {
		potential := FindMaximalAreaLocalSpaceRect(ltd.Transform, arrangeSize)
		arrangeSize = potential
		unclipped = ltd.UntransformedDS
		if !geometry.IsZero(potential.Width) && !geometry.IsZero(potential.Height) {
			if layoutLessThan(potential.Width, unclipped.Width) || layoutLessThan(potential.Height, unclipped.Height) {
				arrangeSize = unclipped
			}
		}
		if geometry.LessThan(arrangeSize.Width, unclipped.Width) {
			l.NeedsClipBounds = true
			arrangeSize.Width = unclipped.Width
		}
		if geometry.LessThan(arrangeSize.Height, unclipped.Height) {
			l.NeedsClipBounds = true
			arrangeSize.Height = unclipped.Height
		}
	}

	mm := newMinMax(s)
	effectiveMaxWidth := math.Max(unclipped.Width, mm.maxWidth)
	if geometry.LessThan(effectiveMaxWidth, arrangeSize.Width) {
		l.NeedsClipBounds = true
		arrangeSize.Width = effectiveMaxWidth
	}
	effectiveMaxHeight := math.Max(unclipped.Height, mm.maxHeight)
	if geometry.LessThan(effectiveMaxHeight, arrangeSize.Height) {
		l.NeedsClipBounds = true
		arrangeSize.Height = effectiveMaxHeight
	}
	if s.rounding {
		arrangeSize = e.dpi.RoundSize(arrangeSize)
	}

	ink, err := e.arrangeOverride(n, arrangeSize)
	if err != nil {
		return err
	}
	l.RenderSize = ink
	if s.rounding {
		l.RenderSize = e.dpi.RoundSize(l.RenderSize)
	}

	clippedInk := geometry.Size{
		Width:  math.Min(ink.Width, mm.maxWidth),
		Height: math.Min(ink.Height, mm.maxHeight),
	}
	if s.rounding {
		clippedInk = e.dpi.RoundSize(clippedInk)
	}
	if geometry.LessThan(clippedInk.Width, ink.Width) || geometry.LessThan(clippedInk.Height, ink.Height) {
		l.NeedsClipBounds = true
	}
	if ltd != nil {
		clippedInk = ltd.Transform.TransformRect(geometry.RectFromSize(clippedInk)).Size()
		if s.rounding {
			clippedInk = e.dpi.RoundSize(clippedInk)
		}
	}

	client := geometry.Size{
		Width:  math.Max(0, finalRect.Width-marginWidth),
		Height: math.Max(0, finalRect.Height-marginHeight),
	}
	if s.rounding {
		client = e.dpi.RoundSize(client)
	}
	if geometry.LessThan(client.Width, clippedInk.Width) || geometry.LessThan(client.Height, clippedInk.Height) {
		l.NeedsClipBounds = true
	}

	offset := alignmentOffset(s.hAlign, s.vAlign, client, clippedInk)
	offset.X += finalRect.X + s.margin.Left
	offset.Y += finalRect.Y + s.margin.Top
	if s.rounding {
		offset = e.dpi.RoundPoint(offset)
	}
	l.VisualOffset = offset

	return e.composeTransform(n, s, mm)
}

// alignmentOffset places ink inside client. Stretch degrades to the start
// edge when the ink overflows, so clipping always keeps the top-left part.
func alignmentOffset(ha element.HorizontalAlignment, va element.VerticalAlignment, client, ink geometry.Size) geometry.Point {
	if ha == element.HorizontalStretch && ink.Width > client.Width {
		ha = element.HorizontalLeft
	}
	if va == element.VerticalStretch && ink.Height > client.Height {
		va = element.VerticalTop
	}

	var off geometry.Point
	switch ha {
	case element.HorizontalCenter, element.HorizontalStretch:
		off.X = (client.Width - ink.Width) * 0.5
	case element.HorizontalRight:
		off.X = client.Width - ink.Width
	}
	switch va {
	case element.VerticalCenter, element.VerticalStretch:
		off.Y = (client.Height - ink.Height) * 0.5
	case element.VerticalBottom:
		off.Y = client.Height - ink.Height
	}
	return off
}

// composeTransform builds the node's visual transform: flow-direction
// mirror, then the layout transform re-anchored at the origin, then the
// render transform about its origin scaled by the render size.
func (e *Engine) composeTransform(n *element.Node, s sizing, mm minMax) error {
	l := n.Layout()
	m := geometry.Identity()

	mirror, err := e.mirrorTransform(n)
	if err != nil {
		return err
	}
	if mirror != nil {
		m = m.Then(*mirror)
	}

	if ltd := l.LayoutTransform; ltd != nil {
		m = m.Then(ltd.Transform)
		ink := geometry.Size{
			Width:  math.Min(l.RenderSize.Width, mm.maxWidth),
			Height: math.Min(l.RenderSize.Height, mm.maxHeight),
		}
		b := ltd.Transform.TransformRect(geometry.RectFromSize(ink))
		m = m.Then(geometry.Translate(-b.X, -b.Y))
	}

	r := &reader{t: e.tree, n: n}
	render := get[geometry.Matrix](r, element.RenderTransformProperty)
	origin := get[geometry.Point](r, element.RenderTransformOriginProperty)
	if r.err != nil {
		return r.err
	}
	if !render.IsIdentity() {
		abs := geometry.Point{X: l.RenderSize.Width * origin.X, Y: l.RenderSize.Height * origin.Y}
		m = m.Then(render.About(abs))
	}

	l.Transform = m
	return nil
}

// mirrorTransform returns the horizontal flip applied when a node's flow
// direction differs from its parent's, or nil.
func (e *Engine) mirrorTransform(n *element.Node) (*geometry.Matrix, error) {
	fd, err := element.ValueAs[element.FlowDirection](e.tree, n, element.FlowDirectionProperty)
	if err != nil {
		return nil, err
	}
	parentFD := element.LeftToRight
	if p := e.tree.Parent(n); p != nil {
		if parentFD, err = element.ValueAs[element.FlowDirection](e.tree, p, element.FlowDirectionProperty); err != nil {
			return nil, err
		}
	}
	if fd == parentFD {
		return nil, nil
	}
	m := geometry.Matrix{A: -1, D: 1, E: n.Layout().RenderSize.Width}
	return &m, nil
}

// layoutLessThan is a looser comparison used where float jitter from
// transform fitting would otherwise flip decisions.
func layoutLessThan(a, b float64) bool {
	const eps = 0.00000153
	return a < b && !layoutClose(a, b, eps)
}

func layoutClose(a, b, eps float64) bool {
	if a == b {
		return true
	}
	delta := a - b
	return delta < eps && delta > -eps
}
