// internal/element/resources.go
package element

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/elementcore/internal/property"
	"github.com/xkilldash9x/elementcore/internal/resource"
	"github.com/xkilldash9x/elementcore/internal/styling"
)

// lookupMode tunes a resource walk.
type lookupMode struct {
	// startOnly restricts the start node to its own Resources. Used when the
	// lookup itself feeds the start node's style or template.
	startOnly bool
	// implicit stops a template child's walk at its templated parent.
	implicit bool
}

func startOnlyLookup(k *property.Key) lookupMode {
	return lookupMode{startOnly: k == StyleProperty || k == TemplateProperty || k == OverridesDefaultStyleProperty}
}

// FindResource looks key up from the node outward and fails with a lookup
// error when nothing matches.
func (t *Tree) FindResource(h Handle, key any) (any, error) {
	if err := t.checkAccess(); err != nil {
		return nil, err
	}
	n, err := t.lookup(h)
	if err != nil {
		return nil, err
	}
	v, ok, err := t.findResource(n, key, lookupMode{})
	if err != nil {
		return nil, err
	}
	if !ok {
		t.logger.Warn("Resource not found", zap.Stringer("node", n), zap.Any("key", key))
		return nil, fmt.Errorf("%v from %s: %w", key, n, ErrResourceNotFound)
	}
	return v, nil
}

// TryFindResource is FindResource without failure: any miss or error
// reports absent.
func (t *Tree) TryFindResource(h Handle, key any) (any, bool) {
	if t.checkAccess() != nil {
		return nil, false
	}
	n := t.live(h)
	if n == nil {
		return nil, false
	}
	v, ok, err := t.findResource(n, key, lookupMode{})
	if err != nil {
		t.logger.Debug("Resource lookup failed", zap.Stringer("node", n), zap.Any("key", key), zap.Error(err))
		return nil, false
	}
	return v, ok
}

// findResource walks the node chain, then the application and theme
// dictionaries as far as the scope boundaries allow.
func (t *Tree) findResource(n *Node, key any, mode lookupMode) (any, bool, error) {
	boundary := InheritDefault
	var stopAt *Node
	if mode.implicit {
		stopAt = t.live(n.templatedParent)
	}
	steps := 0
	for cur := n; cur != nil; cur = t.parentOf(cur) {
		if steps++; steps > t.maxDepth+1 {
			return nil, false, fmt.Errorf("resource walk from %s: %w", n, ErrRecursionLimit)
		}
		dicts, err := t.nodeDictionaries(cur, mode.startOnly && cur == n)
		if err != nil {
			return nil, false, err
		}
		v, ok, err := resource.Find(key, dicts...)
		if err != nil || ok {
			return v, ok, err
		}
		if cur == stopAt {
			break
		}
		if cur.inheritance.SkipsNow() || (cur != n && cur.inheritance.SkipsNext()) {
			boundary = cur.inheritance
			break
		}
	}
	var scope []*resource.Dictionary
	if boundary.ReachesApp() {
		scope = append(scope, t.app)
	}
	if boundary.ReachesTheme() {
		scope = append(scope, t.theme)
	}
	return resource.Find(key, scope...)
}

// nodeDictionaries lists the dictionaries a node contributes to a lookup:
// its own, its style chain's, its template's, then its theme style chain's.
func (t *Tree) nodeDictionaries(n *Node, ownOnly bool) ([]*resource.Dictionary, error) {
	dicts := []*resource.Dictionary{n.resources}
	if ownOnly {
		return dicts, nil
	}
	style, err := t.styleOf(n)
	if err != nil {
		return nil, err
	}
	if style != nil {
		dicts = append(dicts, style.ResourceChain()...)
	}
	tmpl, err := t.templateOf(n)
	if err != nil {
		return nil, err
	}
	if tmpl != nil {
		dicts = append(dicts, tmpl.Resources)
	}
	theme, err := t.themeStyleOf(n)
	if err != nil {
		return nil, err
	}
	if theme != nil {
		dicts = append(dicts, theme.ResourceChain()...)
	}
	return dicts, nil
}

// implicitStyle finds the style keyed by the node's type name.
func (t *Tree) implicitStyle(n *Node) (*styling.Style, bool, error) {
	v, ok, err := t.findResource(n, resource.TypeKey(n.typeName), lookupMode{startOnly: true, implicit: true})
	if err != nil || !ok {
		return nil, false, err
	}
	s, isStyle := v.(*styling.Style)
	if !isStyle || s == nil {
		return nil, false, nil
	}
	if err := t.checkStyle(n, s); err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// -- Dictionary replacement --

// SetResources replaces the node's own dictionary.
func (t *Tree) SetResources(h Handle, d *resource.Dictionary) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	n, err := t.lookup(h)
	if err != nil {
		return err
	}
	return t.OnResourceDictionaryReplaced(n, n.resources, d)
}

// OnResourceDictionaryReplaced swaps owner's dictionary and re-resolves
// every resource-derived value that can see it.
func (t *Tree) OnResourceDictionaryReplaced(owner *Node, oldDict, newDict *resource.Dictionary) error {
	if oldDict == newDict {
		return nil
	}
	owner.resources = newDict
	t.rewireOwnership(owner)
	t.logger.Debug("Resource dictionary replaced", zap.Stringer("owner", owner))
	return t.refreshResourceDependents(newBatch(), owner, true)
}

// SetApplicationResources replaces the application-level dictionary.
func (t *Tree) SetApplicationResources(d *resource.Dictionary) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	if t.app == d {
		return nil
	}
	if t.app != nil {
		t.app.RemoveOwner(t.appOwner)
	}
	t.app = d
	if d != nil {
		d.AddOwner(t.appOwner)
	}
	return t.onScopeResourcesChanged(false)
}

// SetThemeResources replaces the theme-level dictionary.
func (t *Tree) SetThemeResources(d *resource.Dictionary) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	if t.theme == d {
		return nil
	}
	if t.theme != nil {
		t.theme.RemoveOwner(t.themeOwner)
	}
	t.theme = d
	if d != nil {
		d.AddOwner(t.themeOwner)
	}
	return t.onScopeResourcesChanged(true)
}

// -- Ownership and change notification --

// scopeOwner receives changes of the application or theme dictionary.
type scopeOwner struct {
	tree  *Tree
	theme bool
}

func (o *scopeOwner) ResourcesChanged(c resource.Change) {
	if err := o.tree.onScopeResourcesChanged(o.theme); err != nil {
		o.tree.logger.Error("Failed to refresh after resource change", zap.Stringer("op", c.Op), zap.Error(err))
	}
}

func (t *Tree) onScopeResourcesChanged(theme bool) error {
	b := newBatch()
	if theme {
		for _, n := range t.Nodes() {
			if err := t.themeStyleInvalidated(b, n); err != nil {
				return err
			}
		}
	}
	for _, root := range t.Roots() {
		if err := t.refreshResourceDependents(b, root, false); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) onResourcesChanged(n *Node, c resource.Change) {
	if !n.alive {
		return
	}
	t.logger.Debug("Resources changed", zap.Stringer("owner", n), zap.Stringer("op", c.Op), zap.Any("key", c.Key))
	if err := t.refreshResourceDependents(newBatch(), n, true); err != nil {
		t.logger.Error("Failed to refresh after resource change", zap.Stringer("owner", n), zap.Error(err))
	}
}

// rewireOwnership registers n with exactly the dictionaries its lookups
// read: its own, and those of its current style, template and theme style.
func (t *Tree) rewireOwnership(n *Node) {
	var want []*resource.Dictionary
	add := func(ds ...*resource.Dictionary) {
		for _, d := range ds {
			if d != nil {
				want = append(want, d)
			}
		}
	}
	add(n.resources)
	if e, ok := n.cache[StyleProperty]; ok {
		if s, _ := e.Value.(*styling.Style); s != nil {
			add(s.ResourceChain()...)
		}
	}
	if e, ok := n.cache[TemplateProperty]; ok {
		if tmpl, _ := e.Value.(*styling.Template); tmpl != nil {
			add(tmpl.Resources)
		}
	}
	if n.themeStyleValid && n.themeStyle != nil {
		add(n.themeStyle.ResourceChain()...)
	}

	keep := make(map[*resource.Dictionary]bool, len(want))
	for _, d := range want {
		keep[d] = true
		d.AddOwner(n)
	}
	for _, d := range n.owned {
		if !keep[d] {
			d.RemoveOwner(n)
		}
	}
	n.owned = n.owned[:0]
	for d := range keep {
		n.owned = append(n.owned, d)
	}
}
