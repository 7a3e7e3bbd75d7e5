// internal/scene/build.go
package scene

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/elementcore/internal/element"
	"github.com/xkilldash9x/elementcore/internal/resource"
	"github.com/xkilldash9x/elementcore/internal/styling"
	"github.com/xkilldash9x/elementcore/internal/stylesheet"
)

// Scene is a document materialized into a tree.
type Scene struct {
	Tree  *element.Tree
	Root  element.Handle
	names map[string]element.Handle
}

// Lookup returns the node declared with the given name.
func (s *Scene) Lookup(name string) (element.Handle, error) {
	h, ok := s.names[name]
	if !ok {
		return element.NoHandle, fmt.Errorf("%q: %w", name, ErrUnknownNode)
	}
	return h, nil
}

// Names lists the declared node names in sorted order.
func (s *Scene) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type builder struct {
	tree      *element.Tree
	logger    *zap.Logger
	templates map[string]*styling.Template
	names     map[string]element.Handle
	nodes     int
}

// Build populates tree from doc. Templates are installed in the application
// dictionary under their names, so properties can reach them either through
// a node's template field or through resource(Name). It must run on the
// tree's dispatcher when the tree has one.
func Build(tree *element.Tree, doc *Document) (*Scene, error) {
	b := &builder{
		tree:      tree,
		logger:    tree.Logger().Named("scene"),
		templates: make(map[string]*styling.Template, len(doc.Templates)),
		names:     make(map[string]element.Handle),
	}

	app, err := b.scopeDictionary(tree.Application(), "application", tree.SetApplicationResources)
	if err != nil {
		return nil, err
	}
	if err := b.compileTemplates(doc.Templates, app); err != nil {
		return nil, err
	}
	if err := fillScope(app, doc.Application); err != nil {
		return nil, fmt.Errorf("application: %w", err)
	}

	if len(doc.Theme.Resources) > 0 || doc.Theme.Stylesheet != "" {
		theme, err := b.scopeDictionary(tree.Theme(), "theme", tree.SetThemeResources)
		if err != nil {
			return nil, err
		}
		if err := fillScope(theme, doc.Theme); err != nil {
			return nil, fmt.Errorf("theme: %w", err)
		}
	}

	root, err := b.node(doc.Root, "root")
	if err != nil {
		return nil, err
	}
	b.logger.Debug("Scene built",
		zap.Stringer("tree", tree.ID()),
		zap.Int("nodes", b.nodes),
		zap.Int("templates", len(b.templates)))
	return &Scene{Tree: tree, Root: root, names: b.names}, nil
}

func (b *builder) scopeDictionary(d *resource.Dictionary, name string, install func(*resource.Dictionary) error) (*resource.Dictionary, error) {
	if d != nil {
		return d, nil
	}
	d = resource.New(name)
	if err := install(d); err != nil {
		return nil, fmt.Errorf("installing %s resources: %w", name, err)
	}
	return d, nil
}

// fillScope adds the resources first so the style sheet can base its
// styles on ones already in the dictionary.
func fillScope(d *resource.Dictionary, s Scope) error {
	if err := addResources(d, s.Resources); err != nil {
		return err
	}
	if s.Stylesheet == "" {
		return nil
	}
	if err := stylesheet.Load(s.Stylesheet, d, stylesheet.WithBaseDictionary(d)); err != nil {
		return fmt.Errorf("stylesheet: %w", err)
	}
	return nil
}

func addResources(d *resource.Dictionary, specs map[string]ResourceSpec) error {
	for _, key := range sortedKeys(specs) {
		if err := d.Set(key, specs[key].Value); err != nil {
			return fmt.Errorf("resource %q: %w", key, err)
		}
	}
	return nil
}

func (b *builder) node(spec NodeSpec, path string) (element.Handle, error) {
	kind := element.KindElement
	if spec.Kind != "" {
		k, ok := element.ParseKind(spec.Kind)
		if !ok {
			return element.NoHandle, fmt.Errorf("%s: unknown kind %q: %w", path, spec.Kind, ErrInvalidScene)
		}
		kind = k
	}
	if spec.Name != "" {
		path = spec.Name
	}

	t := b.tree
	h, err := t.NewNode(spec.Type, kind)
	if err != nil {
		return element.NoHandle, fmt.Errorf("%s: %w", path, err)
	}
	b.nodes++
	if err := t.BeginInit(h); err != nil {
		return element.NoHandle, fmt.Errorf("%s: %w", path, err)
	}

	if spec.Name != "" {
		if _, dup := b.names[spec.Name]; dup {
			return element.NoHandle, fmt.Errorf("%s: duplicate node name: %w", path, ErrInvalidScene)
		}
		b.names[spec.Name] = h
		if err := t.SetValue(h, element.NameProperty, spec.Name); err != nil {
			return element.NoHandle, fmt.Errorf("%s: %w", path, err)
		}
	}
	if spec.Inheritance != "" {
		ib, err := element.ParseInheritanceBehavior(spec.Inheritance)
		if err != nil {
			return element.NoHandle, fmt.Errorf("%s: inheritance: %w: %w", path, ErrInvalidScene, err)
		}
		if err := t.SetInheritanceBehavior(h, ib); err != nil {
			return element.NoHandle, fmt.Errorf("%s: %w", path, err)
		}
	}

	if len(spec.Resources) > 0 || spec.Stylesheet != "" {
		d := resource.New(path)
		if err := fillScope(d, Scope{Resources: spec.Resources, Stylesheet: spec.Stylesheet}); err != nil {
			return element.NoHandle, fmt.Errorf("%s: %w", path, err)
		}
		if err := t.SetResources(h, d); err != nil {
			return element.NoHandle, fmt.Errorf("%s: %w", path, err)
		}
	}

	for _, name := range sortedKeys(spec.Properties) {
		if err := b.setProperty(h, name, spec.Properties[name]); err != nil {
			return element.NoHandle, fmt.Errorf("%s: %w", path, err)
		}
	}
	if spec.Template != "" {
		tmpl, ok := b.templates[spec.Template]
		if !ok {
			return element.NoHandle, fmt.Errorf("%s: unknown template %q: %w", path, spec.Template, ErrInvalidScene)
		}
		if err := t.SetValue(h, element.TemplateProperty, tmpl); err != nil {
			return element.NoHandle, fmt.Errorf("%s: %w", path, err)
		}
	}

	for i, cs := range spec.Children {
		c, err := b.node(cs, fmt.Sprintf("%s/children[%d]", path, i))
		if err != nil {
			return element.NoHandle, err
		}
		if err := t.AppendChild(h, c); err != nil {
			return element.NoHandle, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := t.EndInit(h); err != nil {
		return element.NoHandle, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

func (b *builder) setProperty(h element.Handle, name, text string) error {
	k, err := element.FindProperty(name)
	if err != nil {
		return err
	}
	v, err := stylesheet.ParseValue(k, text)
	if err != nil {
		return err
	}
	return b.tree.SetValue(h, k, v)
}

// -- Templates --

func (b *builder) compileTemplates(specs map[string]TemplateSpec, app *resource.Dictionary) error {
	for _, name := range sortedKeys(specs) {
		tmpl, err := compileTemplate(name, specs[name])
		if err != nil {
			return fmt.Errorf("template %q: %w", name, err)
		}
		b.templates[name] = tmpl
		if err := app.Set(name, tmpl); err != nil {
			return fmt.Errorf("template %q: %w", name, err)
		}
	}
	return nil
}

func compileTemplate(name string, spec TemplateSpec) (*styling.Template, error) {
	tree, err := childSpec(spec.Root)
	if err != nil {
		return nil, err
	}
	tmpl := &styling.Template{Key: name, TargetType: spec.TargetType, VisualTree: tree}

	if len(spec.Resources) > 0 {
		tmpl.Resources = resource.New(name)
		if err := addResources(tmpl.Resources, spec.Resources); err != nil {
			return nil, err
		}
	}

	for i, ts := range spec.Triggers {
		var tr styling.Trigger
		for _, cs := range ts.Conditions {
			k, err := element.FindProperty(cs.Property)
			if err != nil {
				return nil, fmt.Errorf("trigger %d: %w", i, err)
			}
			v, err := k.Parse(cs.Value)
			if err != nil {
				return nil, fmt.Errorf("trigger %d: %w", i, err)
			}
			tr.Conditions = append(tr.Conditions, styling.Condition{Property: k, Value: v, SourceName: cs.Source})
		}
		for _, ss := range ts.Setters {
			k, err := element.FindProperty(ss.Property)
			if err != nil {
				return nil, fmt.Errorf("trigger %d: %w", i, err)
			}
			v, err := stylesheet.ParseValue(k, ss.Value)
			if err != nil {
				return nil, fmt.Errorf("trigger %d: %w", i, err)
			}
			tr.Setters = append(tr.Setters, styling.Setter{Property: k, Value: v, TargetName: ss.Target})
		}
		tmpl.Triggers = append(tmpl.Triggers, tr)
	}

	if err := tmpl.Seal(); err != nil {
		return nil, err
	}
	return tmpl, nil
}

func childSpec(spec ChildSpec) (*styling.ChildSpec, error) {
	if spec.Type == "" {
		return nil, fmt.Errorf("template child %q has no type: %w", spec.Name, ErrInvalidScene)
	}
	cs := &styling.ChildSpec{Name: spec.Name, Type: spec.Type}
	for _, name := range sortedKeys(spec.Properties) {
		k, err := element.FindProperty(name)
		if err != nil {
			return nil, err
		}
		v, err := stylesheet.ParseValue(k, spec.Properties[name])
		if err != nil {
			return nil, err
		}
		cs.Setters = append(cs.Setters, styling.Setter{Property: k, Value: v})
	}
	for _, c := range spec.Children {
		child, err := childSpec(c)
		if err != nil {
			return nil, err
		}
		cs.Children = append(cs.Children, child)
	}
	return cs, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
