// internal/element/layouthooks.go
package element

import (
	"github.com/xkilldash9x/elementcore/internal/geometry"
	"github.com/xkilldash9x/elementcore/internal/property"
)

// LayoutContext is the view of the layout engine handed to sizing overrides
// so that they can lay out their children.
type LayoutContext interface {
	Measure(n *Node, available geometry.Size) error
	Arrange(n *Node, finalRect geometry.Rect) error
}

// Measurer computes the desired size of a node's content.
type Measurer interface {
	MeasureOverride(lc LayoutContext, n *Node, available geometry.Size) (geometry.Size, error)
}

// Arranger positions a node's children and returns the size it used.
type Arranger interface {
	ArrangeOverride(lc LayoutContext, n *Node, final geometry.Size) (geometry.Size, error)
}

// InvalidateMeasure marks the node for re-measure on the next layout update.
func (t *Tree) InvalidateMeasure(h Handle) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	n, err := t.lookup(h)
	if err != nil {
		return err
	}
	t.invalidateMeasure(n)
	return nil
}

// InvalidateArrange marks the node for re-arrange on the next layout update.
func (t *Tree) InvalidateArrange(h Handle) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	n, err := t.lookup(h)
	if err != nil {
		return err
	}
	t.invalidateArrange(n)
	return nil
}

// invalidateMeasure sets the dirty flag and queues the node. A node that
// was never measured is reached through its parent and is not queued.
func (t *Tree) invalidateMeasure(n *Node) {
	l := &n.layout
	if l.MeasureDirty || l.InMeasure {
		return
	}
	if !l.NeverMeasured {
		t.measureQueue[n.handle] = struct{}{}
	}
	l.MeasureDirty = true
}

func (t *Tree) invalidateArrange(n *Node) {
	l := &n.layout
	if l.ArrangeDirty || l.InArrange {
		return
	}
	if !l.NeverArranged {
		t.arrangeQueue[n.handle] = struct{}{}
	}
	l.ArrangeDirty = true
}

func (t *Tree) invalidateMeasureSubtree(n *Node) {
	t.invalidateMeasure(n)
	for _, h := range n.visualChildren {
		if c := t.live(h); c != nil {
			t.invalidateMeasureSubtree(c)
		}
	}
}

// applyLayoutFlags translates a property's Affects flags into invalidations.
func (t *Tree) applyLayoutFlags(n *Node, k *property.Key) {
	if k.Has(property.AffectsMeasure) {
		t.invalidateMeasure(n)
	}
	if k.Has(property.AffectsArrange) {
		t.invalidateArrange(n)
	}
	if vp := t.live(n.visualParent); vp != nil {
		if k.Has(property.AffectsParentMeasure) {
			t.invalidateMeasure(vp)
		}
		if k.Has(property.AffectsParentArrange) {
			t.invalidateArrange(vp)
		}
	}
	if k.Has(property.AffectsRender) {
		n.layout.RenderDirty = true
		t.renderVersion++
	}
}

// TakeMeasureQueue drains the measure queue, shallowest nodes first.
func (t *Tree) TakeMeasureQueue() []*Node {
	return t.drain(t.measureQueue)
}

// TakeArrangeQueue drains the arrange queue, shallowest nodes first.
func (t *Tree) TakeArrangeQueue() []*Node {
	return t.drain(t.arrangeQueue)
}

// QueuesEmpty reports whether no layout work is pending.
func (t *Tree) QueuesEmpty() bool {
	return len(t.measureQueue) == 0 && len(t.arrangeQueue) == 0
}

func (t *Tree) drain(q map[Handle]struct{}) []*Node {
	out := make([]*Node, 0, len(q))
	for h := range q {
		if n := t.live(h); n != nil {
			out = append(out, n)
		}
		delete(q, h)
	}
	sortNodesByDepth(t, out)
	return out
}

// EnsureTemplate applies the node's template during measure.
func (t *Tree) EnsureTemplate(n *Node) (bool, error) {
	return t.applyTemplate(n)
}

// Parent returns the visual parent node, or nil.
func (t *Tree) Parent(n *Node) *Node {
	return t.live(n.visualParent)
}

// Children returns the live visual children of n in order.
func (t *Tree) Children(n *Node) []*Node {
	out := make([]*Node, 0, len(n.visualChildren))
	for _, h := range n.visualChildren {
		if c := t.live(h); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Value resolves k on n without the access check; for use by layout code
// that already runs inside an entry point.
func (t *Tree) Value(n *Node, k *property.Key) (any, error) {
	return t.value(n, k)
}

// ValueAs resolves k on n and asserts its type.
func ValueAs[T any](t *Tree, n *Node, k *property.Key) (T, error) {
	var zero T
	v, err := t.value(n, k)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	tv, ok := v.(T)
	if !ok {
		return zero, &property.ValidationError{Property: k.FullName(), Value: v, Reason: "unexpected type"}
	}
	return tv, nil
}
