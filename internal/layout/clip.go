// internal/layout/clip.go
package layout

import (
	"math"

	"github.com/xkilldash9x/elementcore/internal/element"
	"github.com/xkilldash9x/elementcore/internal/geometry"
)

// ClipGeometry is the region a node is clipped to after arrange, in the
// node's local coordinates. The region is Mirror applied to the
// intersection of Local and Slot, with Slot first mapped through
// SlotTransform. A nil rectangle does not restrict.
type ClipGeometry struct {
	Local         *geometry.Rect
	Slot          *geometry.Rect
	SlotTransform geometry.Matrix
	Mirror        geometry.Matrix
}

// Contains reports whether p lies inside the clip region.
func (c *ClipGeometry) Contains(p geometry.Point) bool {
	if !c.Mirror.IsIdentity() {
		inv, err := c.Mirror.Inverse()
		if err != nil {
			return false
		}
		p = inv.Apply(p)
	}
	if c.Local != nil && !c.Local.Contains(p) {
		return false
	}
	if c.Slot != nil {
		q := p
		if !c.SlotTransform.IsIdentity() {
			inv, err := c.SlotTransform.Inverse()
			if err != nil {
				return false
			}
			q = inv.Apply(p)
		}
		if !c.Slot.Contains(q) {
			return false
		}
	}
	return true
}

// Bounds returns the axis-aligned bounding box of the clip region.
func (c *ClipGeometry) Bounds() geometry.Rect {
	var (
		r    geometry.Rect
		have bool
	)
	if c.Slot != nil {
		r, have = c.SlotTransform.TransformRect(*c.Slot), true
	}
	if c.Local != nil {
		if have {
			r = r.Intersect(*c.Local)
		} else {
			r, have = *c.Local, true
		}
	}
	if !have {
		return geometry.Rect{}
	}
	return c.Mirror.TransformRect(r)
}

// GetLayoutClip returns the clip that keeps h inside its layout slot and
// max size, or nil when nothing needs clipping.
func (e *Engine) GetLayoutClip(h element.Handle) (*ClipGeometry, error) {
	n, err := e.enter(h)
	if err != nil {
		return nil, err
	}
	return e.layoutClip(n, n.Layout().PreviousFinalRect.Size())
}

func (e *Engine) layoutClip(n *element.Node, slotSize geometry.Size) (*ClipGeometry, error) {
	l := n.Layout()
	clipToBounds, err := element.ValueAs[bool](e.tree, n, element.ClipToBoundsProperty)
	if err != nil {
		return nil, err
	}
	if !l.NeedsClipBounds && !clipToBounds {
		return nil, nil
	}

	s, err := e.readSizing(n)
	if err != nil {
		return nil, err
	}
	mm := newMinMax(s)
	round := func(r geometry.Rect) geometry.Rect {
		if s.rounding {
			return e.dpi.RoundRect(r)
		}
		return r
	}

	ink := l.RenderSize
	maxWidthClip := mm.maxWidth
	if math.IsInf(maxWidthClip, 1) {
		maxWidthClip = ink.Width
	}
	maxHeightClip := mm.maxHeight
	if math.IsInf(maxHeightClip, 1) {
		maxHeightClip = ink.Height
	}
	clipLocally := clipToBounds || geometry.LessThan(maxWidthClip, ink.Width) || geometry.LessThan(maxHeightClip, ink.Height)

	ink.Width = math.Min(ink.Width, mm.maxWidth)
	ink.Height = math.Min(ink.Height, mm.maxHeight)

	ltd := l.LayoutTransform
	var inkTransformed geometry.Rect
	if ltd != nil {
		inkTransformed = ltd.Transform.TransformRect(geometry.RectFromSize(ink))
		ink = inkTransformed.Size()
	}

	clipping := geometry.Size{
		Width:  math.Max(0, slotSize.Width-s.margin.Horizontal()),
		Height: math.Max(0, slotSize.Height-s.margin.Vertical()),
	}
	clipSlot := clipToBounds || geometry.LessThan(clipping.Width, ink.Width) || geometry.LessThan(clipping.Height, ink.Height)

	clip := &ClipGeometry{SlotTransform: geometry.Identity(), Mirror: geometry.Identity()}
	mirror, err := e.mirrorTransform(n)
	if err != nil {
		return nil, err
	}
	if mirror != nil {
		clip.Mirror = *mirror
	}
	local := round(geometry.Rect{Width: maxWidthClip, Height: maxHeightClip})

	switch {
	case clipLocally && !clipSlot:
		clip.Local = &local
		return clip, nil

	case clipSlot && ltd != nil:
		off := alignmentOffset(s.hAlign, s.vAlign, clipping, ink)
		slot := round(geometry.Rect{
			X:      -off.X + inkTransformed.X,
			Y:      -off.Y + inkTransformed.Y,
			Width:  clipping.Width,
			Height: clipping.Height,
		})
		clip.Slot = &slot
		if inv, err := ltd.Transform.Inverse(); err == nil {
			clip.SlotTransform = inv
		}
		if clipLocally {
			clip.Local = &local
		}
		return clip, nil

	case clipSlot:
		off := alignmentOffset(s.hAlign, s.vAlign, clipping, ink)
		slot := round(geometry.Rect{X: -off.X, Y: -off.Y, Width: clipping.Width, Height: clipping.Height})
		if clipLocally {
			slot = slot.Intersect(local)
		}
		clip.Slot = &slot
		return clip, nil
	}
	return nil, nil
}
