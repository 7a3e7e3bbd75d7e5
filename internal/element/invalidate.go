// internal/element/invalidate.go
package element

import (
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/elementcore/internal/property"
	"github.com/xkilldash9x/elementcore/internal/styling"
)

// slot names one (node, property) pair.
type slot struct {
	n *Node
	k *property.Key
}

// batch tracks the slots already refreshed while handling one mutation so
// that every slot is re-resolved and reported at most once.
type batch struct {
	done map[slot]bool
}

func newBatch() *batch {
	return &batch{done: make(map[slot]bool)}
}

// snapshot is a recorded entry taken before a mutation.
type snapshot struct {
	slot
	old property.Entry
}

// refresh drops the cached entry for k on n, re-resolves it, and reports a
// change against old. Without a known old value only layout is invalidated.
func (t *Tree) refresh(b *batch, n *Node, k *property.Key, old property.Entry, haveOld bool) error {
	s := slot{n, k}
	if b.done[s] || !n.alive {
		return nil
	}
	b.done[s] = true

	delete(n.cache, k)
	if k.Inherits() {
		n.sipValid = false
	}
	e, err := t.entry(n, k)
	if err != nil {
		return err
	}
	if !haveOld {
		t.applyLayoutFlags(n, k)
		return nil
	}
	if !property.Equal(old.Value, e.Value) {
		return t.changed(b, n, k, old, e)
	}
	if old.Rank != e.Rank && k.Inherits() {
		return t.propagate(b, n, k, old, e)
	}
	return nil
}

// priorEntry returns what the node last exposed for k. Cached entries are
// authoritative. An uncached inheritable value can only have come through
// inheritance, which the current mutation has not touched.
func (t *Tree) priorEntry(n *Node, k *property.Key) (property.Entry, bool) {
	if e, ok := n.cache[k]; ok {
		return e, true
	}
	if !k.Inherits() {
		return property.Entry{}, false
	}
	inh, ok, err := t.inheritedEntry(n, k)
	if err != nil {
		return property.Entry{}, false
	}
	return childEntry(k, inh, ok), true
}

// changed reports an effective-value change and fans it out.
func (t *Tree) changed(b *batch, n *Node, k *property.Key, old, cur property.Entry) error {
	t.logger.Debug("Effective value changed",
		zap.Stringer("node", n),
		zap.String("property", k.FullName()),
		zap.Any("old", old.Value),
		zap.Any("new", cur.Value),
		zap.Stringer("rank", cur.Rank))

	if cb := k.Metadata().Changed; cb != nil {
		cb(n, property.ChangedEvent{Key: k, Old: old.Value, New: cur.Value, OldRank: old.Rank, NewRank: cur.Rank})
	}
	t.applyLayoutFlags(n, k)

	var err error
	switch k {
	case StyleProperty:
		err = t.styleChanged(b, n, old.Value, cur.Value)
	case TemplateProperty:
		err = t.templateChanged(b, n, old.Value)
	case OverridesDefaultStyleProperty:
		err = t.themeStyleInvalidated(b, n)
	}
	if err != nil {
		return err
	}
	if k.Inherits() {
		if err := t.propagate(b, n, k, old, cur); err != nil {
			return err
		}
	}
	return t.refreshDependents(b, n, k)
}

// propagate pushes an inheritable change to the children that inherit it.
// Children with a closer source and children behind a Now boundary are
// left alone; their subtrees cannot see the change.
func (t *Tree) propagate(b *batch, n *Node, k *property.Key, old, cur property.Entry) error {
	vo, okOld := visibleToChildren(n, old)
	vn, okNew := visibleToChildren(n, cur)
	childOld, childNew := childEntry(k, vo, okOld), childEntry(k, vn, okNew)
	if childOld.Rank == childNew.Rank && property.Equal(childOld.Value, childNew.Value) {
		return nil
	}
	for _, c := range t.inheritanceChildren(n) {
		if c.inheritance.SkipsNow() {
			continue
		}
		if e, ok := c.cache[k]; ok && e.Rank > property.RankInherited {
			continue
		}
		src, err := t.resolveAbove(c, k)
		if err != nil {
			return err
		}
		if src.found {
			continue
		}
		prior := childOld
		if e, ok := c.cache[k]; ok {
			prior = e
		}
		if err := t.refresh(b, c, k, prior, true); err != nil {
			return err
		}
	}
	return nil
}

// refreshDependents re-resolves the setters of triggers whose conditions
// read k on n.
func (t *Tree) refreshDependents(b *batch, n *Node, k *property.Key) error {
	var targets []slot
	collect := func(owner *Node, setters []styling.Setter) {
		for _, st := range setters {
			target := owner
			if st.TargetName != "" {
				target = t.templateChild(owner, st.TargetName)
			}
			if target != nil {
				targets = append(targets, slot{target, st.Property})
			}
		}
	}

	if k != StyleProperty {
		if e, ok := n.cache[StyleProperty]; ok {
			if s, _ := e.Value.(*styling.Style); s != nil {
				collect(n, styling.Dependents(s.EffectiveTriggers(), k, ""))
			}
		}
	}
	if n.themeStyleValid && n.themeStyle != nil {
		collect(n, styling.Dependents(n.themeStyle.EffectiveTriggers(), k, ""))
	}
	if n.appliedTemplate != nil {
		collect(n, styling.Dependents(n.appliedTemplate.Triggers, k, ""))
	}
	if tp := t.live(n.templatedParent); tp != nil && n.templateName != "" && tp.appliedTemplate != nil {
		collect(tp, styling.Dependents(tp.appliedTemplate.Triggers, k, n.templateName))
	}

	for _, s := range targets {
		old, ok := t.priorEntry(s.n, s.k)
		if err := t.refresh(b, s.n, s.k, old, ok); err != nil {
			return err
		}
	}
	return nil
}

// refreshKeys re-resolves the given properties on n against their prior entries.
func (t *Tree) refreshKeys(b *batch, n *Node, keys []*property.Key) error {
	for _, k := range keys {
		old, ok := t.priorEntry(n, k)
		if err := t.refresh(b, n, k, old, ok); err != nil {
			return err
		}
	}
	return nil
}

// -- Style and template changes --

// OnStyleOrTemplateChanged re-resolves everything on the node that its
// style, template or theme style can supply.
func (t *Tree) OnStyleOrTemplateChanged(h Handle) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	n, err := t.lookup(h)
	if err != nil {
		return err
	}
	b := newBatch()
	for _, k := range []*property.Key{StyleProperty, TemplateProperty, OverridesDefaultStyleProperty} {
		old, ok := t.priorEntry(n, k)
		if err := t.refresh(b, n, k, old, ok); err != nil {
			return err
		}
	}
	return t.themeStyleInvalidated(b, n)
}

func (t *Tree) styleChanged(b *batch, n *Node, oldV, newV any) error {
	n.updatingStyle++
	defer func() { n.updatingStyle-- }()

	oldS, _ := oldV.(*styling.Style)
	newS, _ := newV.(*styling.Style)
	t.logger.Debug("Style changed", zap.Stringer("node", n))

	if err := t.refreshKeys(b, n, unionKeys(styleKeys(oldS), styleKeys(newS))); err != nil {
		return err
	}
	n.sipValid = false
	t.rewireOwnership(n)
	t.invalidateMeasure(n)
	return t.refreshResourceDependents(b, n, true)
}

func (t *Tree) templateChanged(b *batch, n *Node, oldV any) error {
	n.updatingStyle++
	defer func() { n.updatingStyle-- }()

	oldT, _ := oldV.(*styling.Template)
	applied := n.appliedTemplate
	if applied != nil {
		t.clearTemplateChildren(n)
		if err := t.refreshKeys(b, n, applied.TriggerProperties()); err != nil {
			return err
		}
	}
	t.logger.Debug("Template changed", zap.Stringer("node", n), zap.Bool("had_template", oldT != nil))
	n.sipValid = false
	t.rewireOwnership(n)
	t.invalidateMeasure(n)
	return t.refreshResourceDependents(b, n, true)
}

// themeStyleInvalidated recomputes the node's theme style and refreshes
// what it supplies when it changed. A theme style that was never computed
// cannot have been observed.
func (t *Tree) themeStyleInvalidated(b *batch, n *Node) error {
	if !n.alive || !n.themeStyleValid {
		return nil
	}
	old := n.themeStyle
	n.themeStyleValid = false
	cur, err := t.themeStyleOf(n)
	if err != nil {
		return err
	}
	if old == cur {
		return nil
	}
	t.logger.Debug("Theme style changed", zap.Stringer("node", n))
	n.updatingStyle++
	defer func() { n.updatingStyle-- }()

	if err := t.refreshKeys(b, n, unionKeys(styleKeys(old), styleKeys(cur))); err != nil {
		return err
	}
	n.sipValid = false
	t.rewireOwnership(n)
	t.invalidateMeasure(n)
	return t.refreshResourceDependents(b, n, true)
}

func styleKeys(s *styling.Style) []*property.Key {
	if s == nil {
		return nil
	}
	return s.Properties()
}

func unionKeys(a, b []*property.Key) []*property.Key {
	seen := make(map[*property.Key]bool, len(a)+len(b))
	var out []*property.Key
	for _, k := range append(append([]*property.Key(nil), a...), b...) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// -- Resource dependents --

// refreshResourceDependents re-resolves every resource-derived entry in
// the subtree below root. When scoped, the walk honors scope boundaries
// because the change happened in root's own dictionaries.
func (t *Tree) refreshResourceDependents(b *batch, root *Node, scoped bool) error {
	var walk func(n *Node, depth int) error
	walk = func(n *Node, depth int) error {
		if depth > t.maxDepth+1 {
			return ErrRecursionLimit
		}
		var snaps []snapshot
		for k, e := range n.cache {
			if e.FromResource || e.Rank == property.RankImplicitStyleReference {
				snaps = append(snaps, snapshot{slot{n, k}, e})
			}
		}
		sortSnapshots(snaps)
		for _, s := range snaps {
			if err := t.refresh(b, s.n, s.k, s.old, true); err != nil {
				return err
			}
		}
		if scoped && n != root && n.inheritance.SkipsNext() {
			return nil
		}
		for _, c := range t.inheritanceChildren(n) {
			if scoped && c.inheritance.SkipsNow() {
				continue
			}
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root, 0)
}

// -- Structural changes --

// onTreeMutation wraps a change to the parent chain or scope of root. It
// records what root and its direct children expose for every inheritable
// property, plus every resource-derived entry in the subtree, applies the
// change, then re-resolves exactly those slots.
func (t *Tree) onTreeMutation(root *Node, mutate func()) error {
	inheritable := property.Global.Inheritable()
	var snaps []snapshot
	capture := func(n *Node) {
		for _, k := range inheritable {
			if e, err := t.entry(n, k); err == nil {
				snaps = append(snaps, snapshot{slot{n, k}, e})
			}
		}
	}
	capture(root)
	for _, c := range t.inheritanceChildren(root) {
		capture(c)
	}
	var resourceSnaps []snapshot
	var walk func(n *Node)
	walk = func(n *Node) {
		for k, e := range n.cache {
			if e.FromResource || e.Rank == property.RankImplicitStyleReference {
				resourceSnaps = append(resourceSnaps, snapshot{slot{n, k}, e})
			}
		}
		for _, c := range t.inheritanceChildren(n) {
			walk(c)
		}
	}
	walk(root)
	sortSnapshots(resourceSnaps)
	// Style and template slots go first: refreshing them re-resolves what
	// they supply, which a stale style must not have fixed beforehand.
	split := 0
	for split < len(resourceSnaps) && suppliesValues(resourceSnaps[split].k) {
		split++
	}
	order := append(append(resourceSnaps[:split:split], snaps...), resourceSnaps[split:]...)

	mutate()
	root.sipValid = false

	b := newBatch()
	for _, s := range order {
		if err := t.refresh(b, s.n, s.k, s.old, true); err != nil {
			return err
		}
	}
	return nil
}

// suppliesValues reports whether k selects a style or template that other
// properties resolve through.
func suppliesValues(k *property.Key) bool {
	return k == StyleProperty || k == TemplateProperty
}

// sortSnapshots orders style and template slots first, then by property id,
// keeping the tree order of equal keys.
func sortSnapshots(snaps []snapshot) {
	sort.SliceStable(snaps, func(i, j int) bool {
		si, sj := suppliesValues(snaps[i].k), suppliesValues(snaps[j].k)
		if si != sj {
			return si
		}
		return snaps[i].k.ID() < snaps[j].k.ID()
	})
}
