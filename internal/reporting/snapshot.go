// internal/reporting/snapshot.go
package reporting

import (
	"fmt"

	"github.com/xkilldash9x/elementcore/internal/element"
	"github.com/xkilldash9x/elementcore/internal/geometry"
	"github.com/xkilldash9x/elementcore/internal/layout"
)

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Matrix is an affine transform in a, b, c, d, e, f order.
type Matrix [6]float64

// NodeReport is the layout result of one node and its visual subtree.
type NodeReport struct {
	Handle    string        `json:"handle"`
	Name      string        `json:"name,omitempty"`
	Type      string        `json:"type"`
	Kind      string        `json:"kind"`
	Desired   Size          `json:"desired"`
	Render    Size          `json:"render"`
	Offset    Point         `json:"offset"`
	Transform *Matrix       `json:"transform,omitempty"`
	Clip      *Rect         `json:"clip,omitempty"`
	Children  []*NodeReport `json:"children,omitempty"`
}

// Report is the layout of one scene.
type Report struct {
	Scene    string      `json:"scene"`
	TreeID   string      `json:"tree_id"`
	Viewport Size        `json:"viewport"`
	Root     *NodeReport `json:"root"`
}

// Snapshot records the arranged state of root's visual subtree. It must run
// where the engine's tree may be accessed.
func Snapshot(e *layout.Engine, scene string, root element.Handle, viewport geometry.Size) (*Report, error) {
	tree := e.Tree()
	n, err := tree.Node(root)
	if err != nil {
		return nil, err
	}
	node, err := snapshotNode(e, n, 0)
	if err != nil {
		return nil, err
	}
	return &Report{
		Scene:    scene,
		TreeID:   tree.ID().String(),
		Viewport: sizeOf(viewport),
		Root:     node,
	}, nil
}

func snapshotNode(e *layout.Engine, n *element.Node, depth int) (*NodeReport, error) {
	tree := e.Tree()
	if depth > tree.MaxDepth() {
		return nil, fmt.Errorf("snapshot of %s: %w", n, element.ErrRecursionLimit)
	}
	ls := n.Layout()
	r := &NodeReport{
		Handle:  n.Handle().String(),
		Name:    n.Name(),
		Type:    n.TypeName(),
		Kind:    n.Kind().String(),
		Desired: sizeOf(ls.DesiredSize),
		Render:  sizeOf(ls.RenderSize),
		Offset:  Point{X: ls.VisualOffset.X, Y: ls.VisualOffset.Y},
	}
	if m := ls.Transform; !m.IsIdentity() {
		r.Transform = &Matrix{m.A, m.B, m.C, m.D, m.E, m.F}
	}

	clip, err := e.GetLayoutClip(n.Handle())
	if err != nil {
		return nil, err
	}
	if clip != nil {
		b := clip.Bounds()
		r.Clip = &Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
	}

	for _, c := range tree.Children(n) {
		child, err := snapshotNode(e, c, depth+1)
		if err != nil {
			return nil, err
		}
		r.Children = append(r.Children, child)
	}
	return r, nil
}

func sizeOf(s geometry.Size) Size {
	return Size{Width: s.Width, Height: s.Height}
}

// Walk visits r and its descendants in pre-order.
func (r *NodeReport) Walk(fn func(*NodeReport)) {
	fn(r)
	for _, c := range r.Children {
		c.Walk(fn)
	}
}
