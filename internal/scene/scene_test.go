// internal/scene/scene_test.go
package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/elementcore/internal/element"
	"github.com/xkilldash9x/elementcore/internal/geometry"
	"github.com/xkilldash9x/elementcore/internal/property"
	"github.com/xkilldash9x/elementcore/internal/resource"
)

const sampleScene = `
application:
  resources:
    accent: Teal
    gap: {type: thickness, value: "4"}
    size: 18
  stylesheet: |
    #Title { Foreground: resource(accent); FontSize: 20 }
theme:
  resources:
    themeOnly: Purple
templates:
  ButtonTemplate:
    target: Button
    root:
      name: chrome
      type: Border
      properties: {Padding: "2"}
      children:
        - name: label
          type: TextBlock
          properties: {Text: OK}
    triggers:
      - conditions: [{property: IsEnabled, value: "False"}]
        setters: [{property: Foreground, value: Gray, target: label}]
viewport: {width: 200, height: 100}
root:
  kind: StackPanel
  name: panel
  properties:
    Foreground: Maroon
    Margin: resource(gap)
  children:
    - kind: TextBlock
      name: title
      properties: {Style: "resource(Title)", Text: Hello}
    - kind: Control
      type: Button
      name: ok
      template: ButtonTemplate
    - kind: Border
      name: island
      inheritance: SkipAllNext
      resources: {accent: Orange}
      children:
        - kind: TextBlock
          name: inner
          properties: {Foreground: resource(accent)}
`

func buildSample(t *testing.T) *Scene {
	t.Helper()
	doc, err := Parse([]byte(sampleScene))
	require.NoError(t, err)
	tree := element.NewTree(element.WithLogger(zaptest.NewLogger(t)))
	s, err := Build(tree, doc)
	require.NoError(t, err)
	return s
}

func lookup(t *testing.T, s *Scene, name string) element.Handle {
	t.Helper()
	h, err := s.Lookup(name)
	require.NoError(t, err)
	return h
}

func value(t *testing.T, s *Scene, name string, k *property.Key) any {
	t.Helper()
	v, err := s.Tree.GetValue(lookup(t, s, name), k)
	require.NoError(t, err)
	return v
}

func TestBuild_Structure(t *testing.T) {
	s := buildSample(t)
	assert.Equal(t, []string{"inner", "island", "ok", "panel", "title"}, s.Names())
	assert.Equal(t, lookup(t, s, "panel"), s.Root)

	root, err := s.Tree.Node(s.Root)
	require.NoError(t, err)
	assert.Equal(t, element.KindStackPanel, root.Kind())
	assert.True(t, root.IsInitialized())
	assert.Len(t, root.LogicalChildren(), 3)

	ok, err := s.Tree.Node(lookup(t, s, "ok"))
	require.NoError(t, err)
	assert.Equal(t, "Button", ok.TypeName())
	assert.Equal(t, element.KindControl, ok.Kind())

	island, err := s.Tree.Node(lookup(t, s, "island"))
	require.NoError(t, err)
	assert.Equal(t, element.SkipAllNext, island.InheritanceBehavior())

	_, err = s.Lookup("nobody")
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestBuild_Values(t *testing.T) {
	s := buildSample(t)

	assert.Equal(t, geometry.Uniform(4), value(t, s, "panel", element.MarginProperty))
	assert.Equal(t, "Teal", value(t, s, "title", element.ForegroundProperty))
	assert.Equal(t, 20.0, value(t, s, "title", element.FontSizeProperty))
	assert.Equal(t, "Hello", value(t, s, "title", element.TextProperty))
	assert.Equal(t, "Orange", value(t, s, "inner", element.ForegroundProperty), "the island's own dictionary")

	size, ok := s.Tree.TryFindResource(s.Root, "size")
	require.True(t, ok)
	assert.Equal(t, 18.0, size, "integers widen to float64")

	_, ok = s.Tree.TryFindResource(lookup(t, s, "title"), "themeOnly")
	assert.True(t, ok)
	_, ok = s.Tree.TryFindResource(lookup(t, s, "inner"), "themeOnly")
	assert.False(t, ok, "SkipAllNext hides the theme from descendants")
}

func TestBuild_NodeStylesheet(t *testing.T) {
	doc, err := Parse([]byte(`
root:
  kind: StackPanel
  name: panel
  stylesheet: |
    TextBlock { FontSize: 30; Tag: styled }
  children:
    - kind: Border
      name: frame
      children:
        - kind: TextBlock
          name: label
`))
	require.NoError(t, err)
	s, err := Build(element.NewTree(element.WithLogger(zaptest.NewLogger(t))), doc)
	require.NoError(t, err)

	e, err := s.Tree.GetEntry(lookup(t, s, "label"), element.FontSizeProperty)
	require.NoError(t, err)
	assert.Equal(t, 30.0, e.Value)
	assert.Equal(t, property.RankStyleSetter, e.Rank, "the implicit style from the panel's sheet applies")
	assert.Equal(t, "styled", value(t, s, "label", element.TagProperty))
	assert.Equal(t, 12.0, value(t, s, "frame", element.FontSizeProperty), "keyed by type name")
}

func TestBuild_Template(t *testing.T) {
	s := buildSample(t)
	h := lookup(t, s, "ok")

	tmpl, found := s.Tree.TryFindResource(h, "ButtonTemplate")
	require.True(t, found)
	assert.Equal(t, tmpl, value(t, s, "ok", element.TemplateProperty))

	applied, err := s.Tree.ApplyTemplate(h)
	require.NoError(t, err)
	require.True(t, applied)

	ok, err := s.Tree.Node(h)
	require.NoError(t, err)
	require.Len(t, ok.VisualChildren(), 1)
	chrome, err := s.Tree.Node(ok.VisualChildren()[0])
	require.NoError(t, err)
	assert.Equal(t, "chrome", chrome.Name())
	assert.Equal(t, geometry.Uniform(2), mustValue(t, s.Tree, chrome.Handle(), element.PaddingProperty))

	require.Len(t, chrome.VisualChildren(), 1)
	label := chrome.VisualChildren()[0]
	assert.Equal(t, "OK", mustValue(t, s.Tree, label, element.TextProperty))
	assert.Equal(t, "Maroon", mustValue(t, s.Tree, label, element.ForegroundProperty), "inherited through the templated parent")

	require.NoError(t, s.Tree.SetValue(h, element.IsEnabledProperty, false))
	assert.Equal(t, "Gray", mustValue(t, s.Tree, label, element.ForegroundProperty))
}

func mustValue(t *testing.T, tree *element.Tree, h element.Handle, k *property.Key) any {
	t.Helper()
	v, err := tree.GetValue(h, k)
	require.NoError(t, err)
	return v
}

func TestBuild_ReusesExistingDictionaries(t *testing.T) {
	app := resource.New("app")
	require.NoError(t, app.Add("preset", "x"))
	tree := element.NewTree(element.WithLogger(zaptest.NewLogger(t)), element.WithApplicationResources(app))

	doc, err := Parse([]byte("application:\n  resources: {accent: Red}\nroot: {kind: Border}\n"))
	require.NoError(t, err)
	s, err := Build(tree, doc)
	require.NoError(t, err)

	assert.Same(t, app, tree.Application())
	assert.True(t, app.Contains("preset"))
	v, ok := s.Tree.TryFindResource(s.Root, "accent")
	require.True(t, ok)
	assert.Equal(t, "Red", v)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		target error
	}{
		{"unknown kind", "root: {kind: Window}", ErrInvalidScene},
		{"unknown property", "root: {properties: {Colour: red}}", property.ErrUnknownProperty},
		{"unparsable value", "root: {properties: {Width: wide}}", property.ErrInvalidValue},
		{"unknown template", "root: {template: Nope}", ErrInvalidScene},
		{"duplicate name", "root: {name: a, children: [{name: a}]}", ErrInvalidScene},
		{"template child without type", "templates: {T: {root: {name: x}}}\nroot: {}", ErrInvalidScene},
		{"bad inheritance", "root: {inheritance: Sideways}", ErrInvalidScene},
		{"bad stylesheet", "application: {stylesheet: 'A > B { Tag: x }'}\nroot: {}", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.src))
			require.NoError(t, err)
			_, err = Build(element.NewTree(element.WithLogger(zaptest.NewLogger(t))), doc)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", "root: {colour: red}"},
		{"bad resource type", "application: {resources: {a: {type: colour, value: red}}}"},
		{"bad bool", "application: {resources: {a: {type: bool, value: maybe}}}"},
		{"sequence resource", "application: {resources: {a: [1, 2]}}"},
		{"not yaml", "root: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			assert.ErrorIs(t, err, ErrInvalidScene)
		})
	}
}

func TestResourceSpec_Types(t *testing.T) {
	doc, err := Parse([]byte(`
application:
  resources:
    s: text
    n: 1.5
    b: true
    f: {type: float, value: "2.5"}
    p: {type: point, value: "0.5,0.5"}
    m: {type: thickness, value: "1,2"}
`))
	require.NoError(t, err)
	r := doc.Application.Resources
	assert.Equal(t, "text", r["s"].Value)
	assert.Equal(t, 1.5, r["n"].Value)
	assert.Equal(t, true, r["b"].Value)
	assert.Equal(t, 2.5, r["f"].Value)
	assert.Equal(t, geometry.Point{X: 0.5, Y: 0.5}, r["p"].Value)
	assert.Equal(t, geometry.Thickness{Left: 1, Top: 2, Right: 1, Bottom: 2}, r["m"].Value)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleScene), 0o600))

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, geometry.Size{Width: 200, Height: 100}, doc.ViewportOr(geometry.Size{}))

	empty := &Document{}
	assert.Equal(t, geometry.Size{Width: 5, Height: 6}, empty.ViewportOr(geometry.Size{Width: 5, Height: 6}))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
