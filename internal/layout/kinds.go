// internal/layout/kinds.go
package layout

import (
	"math"
	"unicode/utf8"

	"github.com/xkilldash9x/elementcore/internal/element"
	"github.com/xkilldash9x/elementcore/internal/geometry"
)

// Glyph metrics for the text stand-in: each rune is half the font size
// wide, each line 1.2 font sizes tall.
const (
	GlyphWidthFactor = 0.5
	LineHeightFactor = 1.2
)

// behavior is the sizing logic of a built-in kind.
type behavior interface {
	measure(e *Engine, n *element.Node, available geometry.Size) (geometry.Size, error)
	arrange(e *Engine, n *element.Node, final geometry.Size) (geometry.Size, error)
}

var builtins = map[element.Kind]behavior{
	element.KindElement:    leaf{},
	element.KindTextBlock:  textBlock{},
	element.KindBorder:     border{},
	element.KindStackPanel: stackPanel{},
	element.KindCanvas:     canvas{},
	element.KindControl:    control{},
}

func (e *Engine) measureOverride(n *element.Node, available geometry.Size) (geometry.Size, error) {
	if m := n.Measurer(); m != nil {
		return m.MeasureOverride(e, n, available)
	}
	return behaviorOf(n).measure(e, n, available)
}

func (e *Engine) arrangeOverride(n *element.Node, final geometry.Size) (geometry.Size, error) {
	if a := n.Arranger(); a != nil {
		return a.ArrangeOverride(e, n, final)
	}
	return behaviorOf(n).arrange(e, n, final)
}

func behaviorOf(n *element.Node) behavior {
	if b, ok := builtins[n.Kind()]; ok {
		return b
	}
	return leaf{}
}

// -- Leaf --

// leaf has no content: it wants nothing and uses whatever it is given.
type leaf struct{}

func (leaf) measure(*Engine, *element.Node, geometry.Size) (geometry.Size, error) {
	return geometry.Size{}, nil
}

func (leaf) arrange(_ *Engine, _ *element.Node, final geometry.Size) (geometry.Size, error) {
	return final, nil
}

// -- TextBlock --

type textBlock struct{ leaf }

func (textBlock) measure(e *Engine, n *element.Node, _ geometry.Size) (geometry.Size, error) {
	r := &reader{t: e.tree, n: n}
	text := get[string](r, element.TextProperty)
	fontSize := get[float64](r, element.FontSizeProperty)
	if r.err != nil {
		return geometry.Size{}, r.err
	}
	return geometry.Size{
		Width:  float64(utf8.RuneCountInString(text)) * fontSize * GlyphWidthFactor,
		Height: fontSize * LineHeightFactor,
	}, nil
}

// -- Border --

// border insets its first child by border thickness and padding.
type border struct{}

func (border) insets(e *Engine, n *element.Node) (geometry.Thickness, geometry.Thickness, error) {
	r := &reader{t: e.tree, n: n}
	bt := get[geometry.Thickness](r, element.BorderThicknessProperty)
	pad := get[geometry.Thickness](r, element.PaddingProperty)
	rounding := get[bool](r, element.UseLayoutRoundingProperty) || e.rounding
	if r.err != nil {
		return bt, pad, r.err
	}
	if rounding {
		bt = e.dpi.RoundThickness(bt)
	}
	return bt, pad, nil
}

func (b border) measure(e *Engine, n *element.Node, available geometry.Size) (geometry.Size, error) {
	bt, pad, err := b.insets(e, n)
	if err != nil {
		return geometry.Size{}, err
	}
	combined := geometry.Size{
		Width:  bt.Horizontal() + pad.Horizontal(),
		Height: bt.Vertical() + pad.Vertical(),
	}
	child := firstChild(e, n)
	if child == nil {
		return combined, nil
	}
	constraint := geometry.Size{
		Width:  math.Max(0, available.Width-combined.Width),
		Height: math.Max(0, available.Height-combined.Height),
	}
	if err := e.Measure(child, constraint); err != nil {
		return geometry.Size{}, err
	}
	ds := child.Layout().DesiredSize
	return geometry.Size{Width: ds.Width + combined.Width, Height: ds.Height + combined.Height}, nil
}

func (b border) arrange(e *Engine, n *element.Node, final geometry.Size) (geometry.Size, error) {
	bt, pad, err := b.insets(e, n)
	if err != nil {
		return geometry.Size{}, err
	}
	if child := firstChild(e, n); child != nil {
		inner := pad.DeflateRect(bt.DeflateRect(geometry.RectFromSize(final)))
		if err := e.Arrange(child, inner); err != nil {
			return geometry.Size{}, err
		}
	}
	return final, nil
}

// -- StackPanel --

type stackPanel struct{}

func orientation(e *Engine, n *element.Node) (element.Orientation, error) {
	return element.ValueAs[element.Orientation](e.tree, n, element.OrientationProperty)
}

func (stackPanel) measure(e *Engine, n *element.Node, available geometry.Size) (geometry.Size, error) {
	o, err := orientation(e, n)
	if err != nil {
		return geometry.Size{}, err
	}
	horizontal := o == element.OrientationHorizontal

	slot := available
	if horizontal {
		slot.Width = math.Inf(1)
	} else {
		slot.Height = math.Inf(1)
	}

	var stack geometry.Size
	for _, c := range e.tree.Children(n) {
		if err := e.Measure(c, slot); err != nil {
			return geometry.Size{}, err
		}
		ds := c.Layout().DesiredSize
		if horizontal {
			stack.Width += ds.Width
			stack.Height = math.Max(stack.Height, ds.Height)
		} else {
			stack.Width = math.Max(stack.Width, ds.Width)
			stack.Height += ds.Height
		}
	}
	return stack, nil
}

func (stackPanel) arrange(e *Engine, n *element.Node, final geometry.Size) (geometry.Size, error) {
	o, err := orientation(e, n)
	if err != nil {
		return geometry.Size{}, err
	}
	horizontal := o == element.OrientationHorizontal

	rc := geometry.RectFromSize(final)
	previous := 0.0
	for _, c := range e.tree.Children(n) {
		ds := c.Layout().DesiredSize
		if horizontal {
			rc.X += previous
			previous = ds.Width
			rc.Width = previous
			rc.Height = math.Max(final.Height, ds.Height)
		} else {
			rc.Y += previous
			previous = ds.Height
			rc.Height = previous
			rc.Width = math.Max(final.Width, ds.Width)
		}
		if err := e.Arrange(c, rc); err != nil {
			return geometry.Size{}, err
		}
	}
	return final, nil
}

// -- Canvas --

// canvas measures children unconstrained, wants no space itself, and
// places each child at its Canvas.Left/Canvas.Top (NaN meaning 0).
type canvas struct{}

func (canvas) measure(e *Engine, n *element.Node, _ geometry.Size) (geometry.Size, error) {
	for _, c := range e.tree.Children(n) {
		if err := e.Measure(c, geometry.Infinite()); err != nil {
			return geometry.Size{}, err
		}
	}
	return geometry.Size{}, nil
}

func (canvas) arrange(e *Engine, n *element.Node, final geometry.Size) (geometry.Size, error) {
	for _, c := range e.tree.Children(n) {
		r := &reader{t: e.tree, n: c}
		left := get[float64](r, element.CanvasLeftProperty)
		top := get[float64](r, element.CanvasTopProperty)
		if r.err != nil {
			return geometry.Size{}, r.err
		}
		var x, y float64
		if !math.IsNaN(left) {
			x = left
		}
		if !math.IsNaN(top) {
			y = top
		}
		ds := c.Layout().DesiredSize
		if err := e.Arrange(c, geometry.Rect{X: x, Y: y, Width: ds.Width, Height: ds.Height}); err != nil {
			return geometry.Size{}, err
		}
	}
	return final, nil
}

// -- Control --

// control sizes to its template root, the first visual child.
type control struct{}

func (control) measure(e *Engine, n *element.Node, available geometry.Size) (geometry.Size, error) {
	child := firstChild(e, n)
	if child == nil {
		return geometry.Size{}, nil
	}
	if err := e.Measure(child, available); err != nil {
		return geometry.Size{}, err
	}
	return child.Layout().DesiredSize, nil
}

func (control) arrange(e *Engine, n *element.Node, final geometry.Size) (geometry.Size, error) {
	if child := firstChild(e, n); child != nil {
		if err := e.Arrange(child, geometry.RectFromSize(final)); err != nil {
			return geometry.Size{}, err
		}
	}
	return final, nil
}

func firstChild(e *Engine, n *element.Node) *element.Node {
	children := e.tree.Children(n)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}
