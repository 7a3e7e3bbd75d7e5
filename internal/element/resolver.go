// internal/element/resolver.go
package element

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/elementcore/internal/property"
	"github.com/xkilldash9x/elementcore/internal/resource"
	"github.com/xkilldash9x/elementcore/internal/styling"
)

// -- Public value access --

// GetValue returns the effective value of k on the node.
func (t *Tree) GetValue(h Handle, k *property.Key) (any, error) {
	e, err := t.GetEntry(h, k)
	return e.Value, err
}

// GetEntry resolves k on the node and returns the value with its source
// rank. Resolution fills the node's cache; repeated calls without an
// intervening change return the same entry.
func (t *Tree) GetEntry(h Handle, k *property.Key) (property.Entry, error) {
	if err := t.checkAccess(); err != nil {
		return property.Entry{}, err
	}
	n, err := t.lookup(h)
	if err != nil {
		return property.Entry{}, err
	}
	return t.entry(n, k)
}

// ReadLocalValue returns the local value of k, if one is set.
func (t *Tree) ReadLocalValue(h Handle, k *property.Key) (any, bool, error) {
	if err := t.checkAccess(); err != nil {
		return nil, false, err
	}
	n, err := t.lookup(h)
	if err != nil {
		return nil, false, err
	}
	v, ok := n.local[k]
	return v, ok, nil
}

// SetValue sets the local value of k. Invalid values are rejected and the
// property keeps its previous value.
func (t *Tree) SetValue(h Handle, k *property.Key, v any) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	n, err := t.lookup(h)
	if err != nil {
		return err
	}
	if _, isRef := v.(resource.Ref); !isRef {
		if err := k.Validate(v); err != nil {
			return err
		}
		if err := t.prepareValue(n, k, v); err != nil {
			return err
		}
	}
	if n.updatingStyle > 0 && (k == StyleProperty || k == TemplateProperty) {
		return fmt.Errorf("%s.%s: %w", n, k.Name(), ErrReentrantUpdate)
	}
	return t.mutateLocal(n, k, func() { n.local[k] = v })
}

// SetValueText parses text with the property's parser and sets the result.
func (t *Tree) SetValueText(h Handle, k *property.Key, text string) error {
	v, err := k.Parse(text)
	if err != nil {
		return err
	}
	return t.SetValue(h, k, v)
}

// ClearValue removes the local value of k.
func (t *Tree) ClearValue(h Handle, k *property.Key) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	n, err := t.lookup(h)
	if err != nil {
		return err
	}
	if _, ok := n.local[k]; !ok {
		return nil
	}
	if n.updatingStyle > 0 && (k == StyleProperty || k == TemplateProperty) {
		return fmt.Errorf("%s.%s: %w", n, k.Name(), ErrReentrantUpdate)
	}
	return t.mutateLocal(n, k, func() { delete(n.local, k) })
}

// CoerceValue re-runs coercion of k against the node's current state.
func (t *Tree) CoerceValue(h Handle, k *property.Key) error {
	if err := t.checkAccess(); err != nil {
		return err
	}
	n, err := t.lookup(h)
	if err != nil {
		return err
	}
	return t.mutateLocal(n, k, func() {})
}

// prepareValue seals styles and templates before they can be stored.
func (t *Tree) prepareValue(n *Node, k *property.Key, v any) error {
	switch val := v.(type) {
	case *styling.Style:
		if val == nil {
			return nil
		}
		return t.checkStyle(n, val)
	case *styling.Template:
		if val == nil {
			return nil
		}
		if err := val.Seal(); err != nil {
			return fmt.Errorf("%s.%s: %w", n, k.Name(), err)
		}
	}
	return nil
}

func (t *Tree) checkStyle(n *Node, s *styling.Style) error {
	if err := s.Seal(); err != nil {
		return fmt.Errorf("%s.Style: %w", n, err)
	}
	if s.TargetType != "" && s.TargetType != n.typeName && s.TargetType != n.kind.String() {
		return fmt.Errorf("%s for %s: %w", s, n, ErrStyleTarget)
	}
	return nil
}

// mutateLocal applies a change to the local map and refreshes k.
func (t *Tree) mutateLocal(n *Node, k *property.Key, mutate func()) error {
	old, err := t.entry(n, k)
	haveOld := err == nil
	mutate()
	return t.refresh(newBatch(), n, k, old, haveOld)
}

// -- Resolution --

// entry returns the cached entry for k or resolves and caches it.
// Inherited entries are cached only on self-inheritance parents.
func (t *Tree) entry(n *Node, k *property.Key) (property.Entry, error) {
	if e, ok := n.cache[k]; ok {
		return e, nil
	}
	if n.resolving[k] {
		return property.Entry{}, fmt.Errorf("%s.%s: %w", n, k.Name(), ErrResolutionCycle)
	}
	if t.resolveDepth >= t.maxResolveDepth {
		return property.Entry{}, fmt.Errorf("resolving %s.%s: %w", n, k.Name(), ErrRecursionLimit)
	}
	if n.resolving == nil {
		n.resolving = make(map[*property.Key]bool)
	}
	n.resolving[k] = true
	t.resolveDepth++
	e, err := t.resolve(n, k)
	t.resolveDepth--
	delete(n.resolving, k)
	if err != nil {
		return property.Entry{}, err
	}

	if e.Rank != property.RankInherited || t.isSIP(n) {
		n.cache[k] = e
		if k == StyleProperty || k == TemplateProperty {
			t.rewireOwnership(n)
		}
	}
	return e, nil
}

func (t *Tree) value(n *Node, k *property.Key) (any, error) {
	e, err := t.entry(n, k)
	return e.Value, err
}

// resolve computes the entry for k without consulting the cache for k.
func (t *Tree) resolve(n *Node, k *property.Key) (property.Entry, error) {
	src, err := t.resolveAbove(n, k)
	if err != nil {
		return property.Entry{}, err
	}
	e := property.Entry{Value: src.value, Rank: src.rank, FromResource: src.fromResource}
	if !src.found {
		e.Rank = property.RankDefault
		e.Value = k.Default()
		if k.Inherits() {
			inh, ok, err := t.inheritedEntry(n, k)
			if err != nil {
				return property.Entry{}, err
			}
			if ok {
				e.Value, e.Rank = inh.Value, inh.Rank
			}
		}
	}

	e.BaseValue = e.Value
	if coerce := k.Metadata().Coerce; coerce != nil {
		cv := coerce(n, e.Value)
		if !property.Equal(cv, e.Value) {
			if verr := k.Validate(cv); verr == nil {
				e.Value = cv
				e.Coerced = true
			} else {
				t.logger.Debug("Coerced value rejected", zap.Stringer("node", n), zap.String("property", k.FullName()), zap.Error(verr))
			}
		}
	}
	return e, nil
}

// source is the outcome of searching the ranks above Inherited.
type source struct {
	value        any
	rank         property.Rank
	found        bool
	fromResource bool
}

// resolveAbove walks the sources that outrank inheritance, highest first.
func (t *Tree) resolveAbove(n *Node, k *property.Key) (source, error) {
	var src source
	// accept dereferences resource references; an unresolved reference
	// contributes nothing and lower ranks are consulted.
	accept := func(v any, rank property.Rank) (bool, error) {
		if ref, isRef := v.(resource.Ref); isRef {
			src.fromResource = true
			rv, ok, err := t.findResource(n, ref.Key, startOnlyLookup(k))
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			if verr := k.Validate(rv); verr != nil {
				t.logger.Debug("Resource value rejected", zap.Stringer("node", n), zap.Any("key", ref.Key), zap.Error(verr))
				return false, nil
			}
			if err := t.prepareValue(n, k, rv); err != nil {
				return false, err
			}
			v = rv
		}
		src.value, src.rank, src.found = v, rank, true
		return true, nil
	}

	if v, ok := n.local[k]; ok {
		if done, err := accept(v, property.RankLocal); done || err != nil {
			return src, err
		}
	}

	tp := t.live(n.templatedParent)
	if tp != nil && n.templateName != "" && tp.appliedTemplate != nil {
		v, ok, err := styling.TriggerValue(tp.appliedTemplate.Triggers, k, n.templateName, t.templateCondition(tp))
		if err != nil {
			return src, err
		}
		if ok {
			if done, err := accept(v, property.RankTemplateParentTrigger); done || err != nil {
				return src, err
			}
		}
	}

	var style *styling.Style
	if k != StyleProperty {
		var err error
		if style, err = t.styleOf(n); err != nil {
			return src, err
		}
	}
	if style != nil {
		v, ok, err := styling.TriggerValue(style.EffectiveTriggers(), k, "", t.ownCondition(n))
		if err != nil {
			return src, err
		}
		if ok {
			if done, err := accept(v, property.RankStyleTrigger); done || err != nil {
				return src, err
			}
		}
	}

	if k != StyleProperty && k != TemplateProperty && n.appliedTemplate != nil {
		v, ok, err := styling.TriggerValue(n.appliedTemplate.Triggers, k, "", t.templateCondition(n))
		if err != nil {
			return src, err
		}
		if ok {
			if done, err := accept(v, property.RankTemplateTrigger); done || err != nil {
				return src, err
			}
		}
	}

	var theme *styling.Style
	if k != StyleProperty && k != OverridesDefaultStyleProperty {
		var err error
		if theme, err = t.themeStyleOf(n); err != nil {
			return src, err
		}
	}
	if theme != nil {
		v, ok, err := styling.TriggerValue(theme.EffectiveTriggers(), k, "", t.ownCondition(n))
		if err != nil {
			return src, err
		}
		if ok {
			if done, err := accept(v, property.RankThemeStyleTrigger); done || err != nil {
				return src, err
			}
		}
	}

	if style != nil {
		if v, ok := style.Value(k); ok {
			if done, err := accept(v, property.RankStyleSetter); done || err != nil {
				return src, err
			}
		}
	}

	if tp != nil && tp.appliedTemplate != nil && n.templateIndex >= 0 {
		if v, ok := tp.appliedTemplate.ChildValue(n.templateIndex, k); ok {
			if done, err := accept(v, property.RankTemplateSetter); done || err != nil {
				return src, err
			}
		}
	}

	if theme != nil {
		if v, ok := theme.Value(k); ok {
			if done, err := accept(v, property.RankThemeStyleSetter); done || err != nil {
				return src, err
			}
		}
	}

	if k == StyleProperty {
		// A miss depends on the lookup chain as much as a hit does, so both
		// are marked and revisited when ancestors or dictionaries change.
		src.fromResource = true
		s, ok, err := t.implicitStyle(n)
		if err != nil {
			return src, err
		}
		if ok {
			src.value, src.rank, src.found = s, property.RankImplicitStyleReference, true
		}
	}
	return src, nil
}

// inheritedEntry returns the value n inherits for k, if any.
func (t *Tree) inheritedEntry(n *Node, k *property.Key) (property.Entry, bool, error) {
	if n.inheritance.SkipsNow() {
		return property.Entry{}, false, nil
	}
	p := t.parentOf(n)
	if p == nil {
		return property.Entry{}, false, nil
	}
	pe, err := t.entry(p, k)
	if err != nil {
		return property.Entry{}, false, err
	}
	e, ok := visibleToChildren(p, pe)
	return e, ok, nil
}

// visibleToChildren is the inherited entry p's children see when p's own
// entry is e. A Next boundary passes on only values it supplies itself.
func visibleToChildren(p *Node, e property.Entry) (property.Entry, bool) {
	if e.Rank == property.RankDefault {
		return property.Entry{}, false
	}
	if p.inheritance.SkipsNext() && e.Rank == property.RankInherited {
		return property.Entry{}, false
	}
	return property.Entry{Value: e.Value, Rank: property.RankInherited}, true
}

// childEntry is the entry a child without a closer source would get.
func childEntry(k *property.Key, e property.Entry, ok bool) property.Entry {
	if !ok {
		return property.Entry{Value: k.Default(), Rank: property.RankDefault}
	}
	return e
}

// isSIP reports whether n is a self-inheritance parent: a root, a scope
// boundary, or a node with a non-inherited source for some inheritable
// property. Treating any node as one is always correct; the flag only
// decides where inherited entries are stored.
func (t *Tree) isSIP(n *Node) bool {
	if n.sipValid {
		return n.sip
	}
	if n.sipComputing {
		return true
	}
	n.sipComputing = true
	sip := t.parentOf(n) == nil || n.inheritance != InheritDefault
	if !sip {
		for _, k := range property.Global.Inheritable() {
			src, err := t.resolveAbove(n, k)
			if err != nil || src.found {
				sip = true
				break
			}
		}
	}
	n.sipComputing = false
	n.sip, n.sipValid = sip, true
	if !sip {
		for k, e := range n.cache {
			if e.Rank == property.RankInherited {
				delete(n.cache, k)
			}
		}
	}
	return sip
}

// -- Style, template and theme style --

func (t *Tree) styleOf(n *Node) (*styling.Style, error) {
	v, err := t.value(n, StyleProperty)
	if err != nil {
		return nil, err
	}
	s, _ := v.(*styling.Style)
	return s, nil
}

func (t *Tree) templateOf(n *Node) (*styling.Template, error) {
	v, err := t.value(n, TemplateProperty)
	if err != nil {
		return nil, err
	}
	tmpl, _ := v.(*styling.Template)
	return tmpl, nil
}

// themeStyleOf returns the theme dictionary's style for the node's type
// unless OverridesDefaultStyle is set.
func (t *Tree) themeStyleOf(n *Node) (*styling.Style, error) {
	if n.themeStyleValid {
		return n.themeStyle, nil
	}
	ods, err := t.value(n, OverridesDefaultStyleProperty)
	if err != nil {
		return nil, err
	}
	var ts *styling.Style
	if ods != true && t.theme != nil {
		v, ok, err := t.theme.Get(resource.TypeKey(n.typeName))
		if err != nil {
			return nil, fmt.Errorf("%s theme style: %w", n, err)
		}
		if s, isStyle := v.(*styling.Style); ok && isStyle && s != nil {
			if err := t.checkStyle(n, s); err != nil {
				return nil, err
			}
			ts = s
		}
	}
	n.themeStyle, n.themeStyleValid = ts, true
	t.rewireOwnership(n)
	return ts, nil
}

// ownCondition evaluates style trigger conditions on n itself.
func (t *Tree) ownCondition(n *Node) styling.ConditionFunc {
	return func(c styling.Condition) (bool, error) {
		if c.SourceName != "" {
			return false, nil
		}
		v, err := t.value(n, c.Property)
		if err != nil {
			return false, err
		}
		return property.Equal(v, c.Value), nil
	}
}

// templateCondition evaluates template trigger conditions on the templated
// element or on one of its named template children.
func (t *Tree) templateCondition(owner *Node) styling.ConditionFunc {
	return func(c styling.Condition) (bool, error) {
		target := owner
		if c.SourceName != "" {
			target = t.templateChild(owner, c.SourceName)
			if target == nil {
				return false, nil
			}
		}
		v, err := t.value(target, c.Property)
		if err != nil {
			return false, err
		}
		return property.Equal(v, c.Value), nil
	}
}

// templateChild finds a generated child of owner by template name.
func (t *Tree) templateChild(owner *Node, name string) *Node {
	if owner.appliedTemplate == nil {
		return nil
	}
	idx, ok := owner.appliedTemplate.IndexOf(name)
	if !ok || idx >= len(owner.templateChildren) {
		return nil
	}
	return t.live(owner.templateChildren[idx])
}
