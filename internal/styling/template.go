// internal/styling/template.go
package styling

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/elementcore/internal/property"
	"github.com/xkilldash9x/elementcore/internal/resource"
)

var (
	ErrCyclicTemplate = errors.New("template visual tree contains a cycle")
	ErrDuplicateName  = errors.New("duplicate template child name")
	ErrUnknownTarget  = errors.New("template trigger targets an unknown child")
	ErrEmptyTemplate  = errors.New("template has no visual tree")
)

// ChildSpec describes one node of a template's visual tree.
type ChildSpec struct {
	Name     string
	Type     string
	Setters  []Setter
	Children []*ChildSpec
}

// Template describes the visual tree generated for a templated element.
// Triggers with an empty TargetName set properties on the templated
// element itself; named setters reach into the generated children.
type Template struct {
	Key        any
	TargetType string
	VisualTree *ChildSpec
	Triggers   []Trigger
	Resources  *resource.Dictionary

	sealed bool
	specs  []*ChildSpec
	names  map[string]int
	values []map[*property.Key]any
}

func (t *Template) String() string {
	if t.Key != nil {
		return fmt.Sprintf("Template(%v)", t.Key)
	}
	if t.TargetType != "" {
		return "Template<" + t.TargetType + ">"
	}
	return "Template"
}

func (t *Template) IsSealed() bool { return t.sealed }

// Seal indexes the visual tree in pre-order, checks names and trigger
// targets, and freezes the per-child setter values.
func (t *Template) Seal() error {
	if t.sealed {
		return nil
	}
	if t.VisualTree == nil {
		return fmt.Errorf("%s: %w", t, ErrEmptyTemplate)
	}

	names := make(map[string]int)
	var specs []*ChildSpec
	var values []map[*property.Key]any
	onPath := make(map[*ChildSpec]bool)

	var walk func(cs *ChildSpec) error
	walk = func(cs *ChildSpec) error {
		if onPath[cs] {
			return fmt.Errorf("%s: %q: %w", t, cs.Name, ErrCyclicTemplate)
		}
		onPath[cs] = true
		defer delete(onPath, cs)

		idx := len(specs)
		specs = append(specs, cs)
		if cs.Name != "" {
			if _, dup := names[cs.Name]; dup {
				return fmt.Errorf("%s: %q: %w", t, cs.Name, ErrDuplicateName)
			}
			names[cs.Name] = idx
		}
		vals := make(map[*property.Key]any, len(cs.Setters))
		for _, st := range cs.Setters {
			if err := checkSetter(t, st, false); err != nil {
				return err
			}
			vals[st.Property] = st.Value
		}
		values = append(values, vals)
		for _, c := range cs.Children {
			if c == nil {
				continue
			}
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(t.VisualTree); err != nil {
		return err
	}

	for _, tr := range t.Triggers {
		for _, st := range tr.Setters {
			if err := checkSetter(t, st, true); err != nil {
				return err
			}
			if _, ok := names[st.TargetName]; st.TargetName != "" && !ok {
				return fmt.Errorf("%s: setter %s: %q: %w", t, st.Property, st.TargetName, ErrUnknownTarget)
			}
		}
		for _, c := range tr.Conditions {
			if _, ok := names[c.SourceName]; c.SourceName != "" && !ok {
				return fmt.Errorf("%s: condition %s: %q: %w", t, c.Property, c.SourceName, ErrUnknownTarget)
			}
		}
	}

	t.specs = specs
	t.names = names
	t.values = values
	t.sealed = true
	return nil
}

// Specs returns the visual tree in pre-order; the index of a spec is the
// TemplateChildIndex of the node generated from it.
func (t *Template) Specs() []*ChildSpec { return t.specs }

// IndexOf returns the child index for a name.
func (t *Template) IndexOf(name string) (int, bool) {
	i, ok := t.names[name]
	return i, ok
}

// ChildValue returns the template setter value for k on the child at index.
func (t *Template) ChildValue(index int, k *property.Key) (any, bool) {
	if index < 0 || index >= len(t.values) {
		return nil, false
	}
	v, ok := t.values[index][k]
	return v, ok
}

// TriggerProperties lists the properties the template's triggers set on
// the templated element itself.
func (t *Template) TriggerProperties() []*property.Key {
	seen := make(map[*property.Key]bool)
	for _, tr := range t.Triggers {
		for _, st := range tr.Setters {
			if st.TargetName == "" {
				seen[st.Property] = true
			}
		}
	}
	return sortedKeys(seen)
}

// Height is the depth of the visual tree, counting the root.
func (t *Template) Height() int {
	var height func(cs *ChildSpec, seen map[*ChildSpec]bool) int
	height = func(cs *ChildSpec, seen map[*ChildSpec]bool) int {
		if cs == nil || seen[cs] {
			return 0
		}
		seen[cs] = true
		defer delete(seen, cs)
		h := 0
		for _, c := range cs.Children {
			h = max(h, height(c, seen))
		}
		return h + 1
	}
	return height(t.VisualTree, make(map[*ChildSpec]bool))
}
