// internal/element/tree.go
package element

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/elementcore/internal/geometry"
	"github.com/xkilldash9x/elementcore/internal/property"
	"github.com/xkilldash9x/elementcore/internal/resource"
)

const (
	DefaultMaxTreeDepth       = 256
	DefaultMaxResolutionDepth = 4096
)

// Tree is an arena of nodes sharing application and theme resources. A
// tree is owned by a single goroutine; when bound to a Dispatcher every
// entry point verifies it runs on that dispatcher.
type Tree struct {
	id     uuid.UUID
	logger *zap.Logger

	nodes []*Node
	gens  []uint32
	free  []uint32

	app        *resource.Dictionary
	theme      *resource.Dictionary
	appOwner   *scopeOwner
	themeOwner *scopeOwner

	dispatcher      *Dispatcher
	maxDepth        int
	maxResolveDepth int
	resolveDepth    int

	measureQueue  map[Handle]struct{}
	arrangeQueue  map[Handle]struct{}
	renderVersion uint64
}

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the tree's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tree) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithDispatcher binds the tree to a dispatcher for access checks.
func WithDispatcher(d *Dispatcher) Option {
	return func(t *Tree) { t.dispatcher = d }
}

// WithMaxTreeDepth bounds the depth of the tree.
func WithMaxTreeDepth(depth int) Option {
	return func(t *Tree) {
		if depth > 0 {
			t.maxDepth = depth
		}
	}
}

// WithMaxResolutionDepth bounds nested property resolutions.
func WithMaxResolutionDepth(depth int) Option {
	return func(t *Tree) {
		if depth > 0 {
			t.maxResolveDepth = depth
		}
	}
}

// WithApplicationResources sets the application-level dictionary.
func WithApplicationResources(d *resource.Dictionary) Option {
	return func(t *Tree) { t.app = d }
}

// WithThemeResources sets the theme-level dictionary.
func WithThemeResources(d *resource.Dictionary) Option {
	return func(t *Tree) { t.theme = d }
}

// NewTree creates an empty tree.
func NewTree(opts ...Option) *Tree {
	t := &Tree{
		id:              uuid.New(),
		logger:          zap.NewNop(),
		maxDepth:        DefaultMaxTreeDepth,
		maxResolveDepth: DefaultMaxResolutionDepth,
		measureQueue:    make(map[Handle]struct{}),
		arrangeQueue:    make(map[Handle]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.Named("tree").With(zap.String("tree_id", t.id.String()))
	t.appOwner = &scopeOwner{tree: t}
	t.themeOwner = &scopeOwner{tree: t, theme: true}
	if t.app != nil {
		t.app.AddOwner(t.appOwner)
	}
	if t.theme != nil {
		t.theme.AddOwner(t.themeOwner)
	}
	return t
}

func (t *Tree) ID() uuid.UUID { return t.id }
func (t *Tree) Logger() *zap.Logger { return t.logger }
func (t *Tree) Dispatcher() *Dispatcher { return t.dispatcher }
func (t *Tree) Application() *resource.Dictionary { return t.app }
func (t *Tree) Theme() *resource.Dictionary { return t.theme }
func (t *Tree) MaxDepth() int { return t.maxDepth }

// RenderVersion increases whenever a property flagged AffectsRender changes.
func (t *Tree) RenderVersion() uint64 { return t.renderVersion }

// CheckAccess reports ErrWrongThread when called off the bound dispatcher.
func (t *Tree) CheckAccess() error { return t.checkAccess() }

// checkAccess enforces thread affinity when a dispatcher is bound.
func (t *Tree) checkAccess() error {
	if t.dispatcher != nil && !t.dispatcher.CheckAccess() {
		return ErrWrongThread
	}
	return nil
}

// -- Arena --

// NewNode allocates a detached, uninitialized node. typeName keys implicit
// and theme styles; an empty name falls back to the kind's name.
func (t *Tree) NewNode(typeName string, kind Kind) (Handle, error) {
	if err := t.checkAccess(); err != nil {
		return NoHandle, err
	}
	return t.newNode(typeName, kind).handle, nil
}

func (t *Tree) newNode(typeName string, kind Kind) *Node {
	if typeName == "" {
		typeName = kind.String()
	}
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
		t.gens[idx]++
	} else {
		idx = uint32(len(t.nodes))
		t.nodes = append(t.nodes, nil)
		t.gens = append(t.gens, 0)
	}
	n := &Node{
		tree:          t,
		handle:        Handle{index: idx + 1, gen: t.gens[idx]},
		kind:          kind,
		typeName:      typeName,
		alive:         true,
		local:         make(map[*property.Key]any),
		cache:         make(map[*property.Key]property.Entry),
		templateIndex: -1,
		layout: LayoutState{
			MeasureDirty:  true,
			ArrangeDirty:  true,
			NeverMeasured: true,
			NeverArranged: true,
		},
	}
	n.layout.Transform = geometry.Identity()
	t.nodes[idx] = n
	return n
}

// Node returns the node behind h.
func (t *Tree) Node(h Handle) (*Node, error) {
	if err := t.checkAccess(); err != nil {
		return nil, err
	}
	return t.lookup(h)
}

func (t *Tree) lookup(h Handle) (*Node, error) {
	if n := t.live(h); n != nil {
		return n, nil
	}
	return nil, fmt.Errorf("%s: %w", h, ErrDeadHandle)
}

// live returns the node for h or nil when h is empty or stale.
func (t *Tree) live(h Handle) *Node {
	if !h.IsValid() || int(h.index) > len(t.nodes) {
		return nil
	}
	n := t.nodes[h.index-1]
	if n == nil || !n.alive || n.handle != h {
		return nil
	}
	return n
}

// Nodes returns every live node in allocation order.
func (t *Tree) Nodes() []*Node {
	out := make([]*Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		if n != nil && n.alive {
			out = append(out, n)
		}
	}
	return out
}

// Roots returns the live nodes that have no parent of any kind.
func (t *Tree) Roots() []*Node {
	var out []*Node
	for _, n := range t.Nodes() {
		if t.parentOf(n) == nil {
			out = append(out, n)
		}
	}
	return out
}

// Release frees a detached subtree. Handles into it go stale.
func (t *Tree) Release(h Handle) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	n, err := t.lookup(h)
	if err != nil {
		return err
	}
	if t.parentOf(n) != nil {
		return fmt.Errorf("%s: release of attached node: %w", n, ErrStructural)
	}
	t.release(n)
	return nil
}

func (t *Tree) release(n *Node) {
	for _, h := range append(n.visualChildren, n.logicalChildren...) {
		if c := t.live(h); c != nil {
			t.release(c)
		}
	}
	for _, h := range n.mentees {
		if c := t.live(h); c != nil && c.mentor == n.handle {
			c.mentor = NoHandle
		}
	}
	if m := t.live(n.mentor); m != nil {
		m.mentees = removeHandle(m.mentees, n.handle)
	}
	for _, d := range n.owned {
		d.RemoveOwner(n)
	}
	n.owned = nil
	delete(t.measureQueue, n.handle)
	delete(t.arrangeQueue, n.handle)
	n.alive = false
	idx := n.handle.index - 1
	t.nodes[idx] = nil
	t.free = append(t.free, idx)
}

// -- Structure --

// parentOf is the parent used for inheritance and resource lookup: the
// logical parent, else the visual parent, else the mentor.
func (t *Tree) parentOf(n *Node) *Node {
	if p := t.live(n.logicalParent); p != nil {
		return p
	}
	if p := t.live(n.visualParent); p != nil {
		return p
	}
	return t.live(n.mentor)
}

// inheritanceChildren lists the nodes whose parentOf is n.
func (t *Tree) inheritanceChildren(n *Node) []*Node {
	var out []*Node
	seen := make(map[*Node]bool)
	add := func(hs []Handle) {
		for _, h := range hs {
			c := t.live(h)
			if c == nil || seen[c] || t.parentOf(c) != n {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	add(n.logicalChildren)
	add(n.visualChildren)
	add(n.mentees)
	return out
}

// depth counts the ancestors of n along parentOf.
func (t *Tree) depth(n *Node) int {
	d := 0
	for p := t.parentOf(n); p != nil; p = t.parentOf(p) {
		d++
		if d > t.maxDepth+1 {
			break
		}
	}
	return d
}

// height is the number of levels in the subtree rooted at n.
func (t *Tree) height(n *Node) int {
	h := 0
	for _, c := range t.inheritanceChildren(n) {
		h = max(h, t.height(c))
	}
	return h + 1
}

// VisualDepth counts visual ancestors; the layout queues sort by it.
func (t *Tree) VisualDepth(n *Node) int {
	d := 0
	for p := t.live(n.visualParent); p != nil; p = t.live(p.visualParent) {
		d++
	}
	return d
}

func (t *Tree) isAncestorOrSelf(anc, n *Node) bool {
	for cur := n; cur != nil; cur = t.parentOf(cur) {
		if cur == anc {
			return true
		}
	}
	return false
}

// AppendChild attaches child as the last logical and visual child of parent.
func (t *Tree) AppendChild(parent, child Handle) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	p, err := t.lookup(parent)
	if err != nil {
		return err
	}
	c, err := t.lookup(child)
	if err != nil {
		return err
	}
	if c.logicalParent.IsValid() || c.visualParent.IsValid() {
		return fmt.Errorf("%s under %s: %w", c, p, ErrAlreadyParented)
	}
	if t.isAncestorOrSelf(c, p) {
		return fmt.Errorf("%s under %s: %w", c, p, ErrTreeCycle)
	}
	if d := t.depth(p) + 1 + t.height(c); d > t.maxDepth {
		return fmt.Errorf("%s under %s reaches depth %d of %d: %w", c, p, d, t.maxDepth, ErrRecursionLimit)
	}

	err = t.onTreeMutation(c, func() {
		c.logicalParent = p.handle
		c.visualParent = p.handle
		p.logicalChildren = append(p.logicalChildren, c.handle)
		p.visualChildren = append(p.visualChildren, c.handle)
		c.initialized = true
	})
	t.invalidateMeasure(p)
	t.invalidateMeasureSubtree(c)
	t.logger.Debug("Child attached", zap.Stringer("parent", p), zap.Stringer("child", c))
	return err
}

// RemoveChild detaches child from parent. The child becomes a root.
func (t *Tree) RemoveChild(parent, child Handle) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	p, err := t.lookup(parent)
	if err != nil {
		return err
	}
	c, err := t.lookup(child)
	if err != nil {
		return err
	}
	if c.logicalParent != p.handle && c.visualParent != p.handle {
		return fmt.Errorf("%s from %s: %w", c, p, ErrNotChild)
	}

	err = t.onTreeMutation(c, func() {
		if c.logicalParent == p.handle {
			p.logicalChildren = removeHandle(p.logicalChildren, c.handle)
			c.logicalParent = NoHandle
		}
		if c.visualParent == p.handle {
			p.visualChildren = removeHandle(p.visualChildren, c.handle)
			c.visualParent = NoHandle
		}
	})
	t.invalidateMeasure(p)
	t.logger.Debug("Child detached", zap.Stringer("parent", p), zap.Stringer("child", c))
	return err
}

// SetMentor sets the inheritance context used when a node has neither a
// logical nor a visual parent. NoHandle clears it.
func (t *Tree) SetMentor(h, mentor Handle) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	n, err := t.lookup(h)
	if err != nil {
		return err
	}
	var m *Node
	if mentor.IsValid() {
		if m, err = t.lookup(mentor); err != nil {
			return err
		}
		if t.isAncestorOrSelf(n, m) {
			return fmt.Errorf("%s mentored by %s: %w", n, m, ErrTreeCycle)
		}
	}
	return t.onTreeMutation(n, func() {
		if old := t.live(n.mentor); old != nil {
			old.mentees = removeHandle(old.mentees, n.handle)
		}
		n.mentor = NoHandle
		if m != nil {
			n.mentor = m.handle
			m.mentees = append(m.mentees, n.handle)
		}
	})
}

// BeginInit and EndInit bracket the initialization of a node. After EndInit
// the inheritance behavior can no longer change.
func (t *Tree) BeginInit(h Handle) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	_, err := t.lookup(h)
	return err
}

func (t *Tree) EndInit(h Handle) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	n, err := t.lookup(h)
	if err != nil {
		return err
	}
	n.initialized = true
	return nil
}

// SetInheritanceBehavior changes the scope boundary of an uninitialized node.
func (t *Tree) SetInheritanceBehavior(h Handle, b InheritanceBehavior) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	n, err := t.lookup(h)
	if err != nil {
		return err
	}
	if n.initialized {
		return fmt.Errorf("%s: %w", n, ErrInitialized)
	}
	if n.inheritance == b {
		return nil
	}
	return t.onTreeMutation(n, func() {
		n.inheritance = b
		n.sipValid = false
	})
}

// IsSelfInheritanceParent reports whether the node stores its inherited
// values itself instead of reading them through its ancestors.
func (t *Tree) IsSelfInheritanceParent(h Handle) (bool, error) {
	if err := t.checkAccess(); err != nil {
		return false, err
	}
	n, err := t.lookup(h)
	if err != nil {
		return false, err
	}
	return t.isSIP(n), nil
}

func removeHandle(hs []Handle, h Handle) []Handle {
	for i, x := range hs {
		if x == h {
			return append(hs[:i], hs[i+1:]...)
		}
	}
	return hs
}

func sortNodesByDepth(t *Tree, nodes []*Node) {
	depths := make(map[*Node]int, len(nodes))
	for _, n := range nodes {
		depths[n] = t.VisualDepth(n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		di, dj := depths[nodes[i]], depths[nodes[j]]
		if di != dj {
			return di < dj
		}
		return nodes[i].handle.index < nodes[j].handle.index
	})
}
