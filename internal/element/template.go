// internal/element/template.go
package element

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/elementcore/internal/styling"
)

// ApplyTemplate materializes the node's current template and reports
// whether new visual children were produced. It is a no-op when the
// applied template is already current.
func (t *Tree) ApplyTemplate(h Handle) (bool, error) {
	if err := t.checkAccess(); err != nil {
		return false, err
	}
	n, err := t.lookup(h)
	if err != nil {
		return false, err
	}
	return t.applyTemplate(n)
}

func (t *Tree) applyTemplate(n *Node) (bool, error) {
	tmpl, err := t.templateOf(n)
	if err != nil {
		return false, err
	}
	if tmpl == n.appliedTemplate {
		return false, nil
	}
	if n.applyingTemplate {
		return false, fmt.Errorf("%s: %w", n, ErrReentrantUpdate)
	}
	n.applyingTemplate = true
	defer func() { n.applyingTemplate = false }()

	b := newBatch()
	if old := n.appliedTemplate; old != nil {
		t.clearTemplateChildren(n)
		if err := t.refreshKeys(b, n, old.TriggerProperties()); err != nil {
			return false, err
		}
	}
	if tmpl == nil {
		return false, nil
	}
	if err := tmpl.Seal(); err != nil {
		return false, fmt.Errorf("%s: %w", n, err)
	}
	if d := t.depth(n) + tmpl.Height(); d > t.maxDepth {
		return false, fmt.Errorf("%s: %s reaches depth %d of %d: %w", n, tmpl, d, t.maxDepth, ErrRecursionLimit)
	}

	generated := make([]Handle, 0, len(tmpl.Specs()))
	var build func(cs *styling.ChildSpec, parent *Node)
	build = func(cs *styling.ChildSpec, parent *Node) {
		kind, ok := ParseKind(cs.Type)
		typeName := cs.Type
		if !ok {
			kind = KindElement
		}
		c := t.newNode(typeName, kind)
		c.templatedParent = n.handle
		c.templateIndex = len(generated)
		c.templateName = cs.Name
		c.initialized = true
		c.visualParent = parent.handle
		parent.visualChildren = append(parent.visualChildren, c.handle)
		generated = append(generated, c.handle)
		for _, child := range cs.Children {
			if child != nil {
				build(child, c)
			}
		}
	}

	// Generated children resolve their template setters through this.
	n.appliedTemplate = tmpl
	build(tmpl.VisualTree, n)
	n.templateChildren = generated

	if err := t.refreshKeys(b, n, tmpl.TriggerProperties()); err != nil {
		return true, err
	}
	n.sipValid = false
	t.rewireOwnership(n)
	t.invalidateMeasure(n)
	t.logger.Debug("Template applied",
		zap.Stringer("node", n),
		zap.Stringer("template", tmpl),
		zap.Int("children", len(generated)))
	return true, nil
}

// clearTemplateChildren releases the visual subtree generated by the
// applied template.
func (t *Tree) clearTemplateChildren(n *Node) {
	for _, h := range n.templateChildren {
		c := t.live(h)
		if c == nil || c.visualParent != n.handle {
			continue
		}
		n.visualChildren = removeHandle(n.visualChildren, c.handle)
		c.visualParent = NoHandle
		t.release(c)
	}
	n.templateChildren = nil
	n.appliedTemplate = nil
	t.invalidateMeasure(n)
}
