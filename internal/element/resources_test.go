// internal/element/resources_test.go
package element

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/elementcore/internal/property"
	"github.com/xkilldash9x/elementcore/internal/resource"
	"github.com/xkilldash9x/elementcore/internal/styling"
)

func TestFindResource_ApplicationOnly(t *testing.T) {
	app := resource.New("app")
	require.NoError(t, app.Add("accent", "Teal"))
	tree := newTestTree(t, WithApplicationResources(app))
	root := addNode(t, tree, NoHandle, "", KindStackPanel)
	leaf := addNode(t, tree, root, "", KindTextBlock)

	v, err := tree.FindResource(leaf, "accent")
	require.NoError(t, err)
	assert.Equal(t, "Teal", v)

	require.True(t, app.Remove("accent"))

	v, ok := tree.TryFindResource(leaf, "accent")
	assert.False(t, ok)
	assert.Nil(t, v)

	_, err = tree.FindResource(leaf, "accent")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResourceNotFound)
	assert.ErrorIs(t, err, resource.ErrNotFound)
	assert.Equal(t, LookupError, KindOf(err))
}

func TestFindResource_Scopes(t *testing.T) {
	app := resource.New("app")
	require.NoError(t, app.Add("k", "app"))
	theme := resource.New("theme")
	require.NoError(t, theme.Add("t", "theme"))

	tests := []struct {
		behavior InheritanceBehavior
		want     map[string]any
	}{
		{InheritDefault, map[string]any{"own": "own", "k": "root", "t": "theme"}},
		{SkipToAppNow, map[string]any{"own": "own", "k": "app", "t": "theme"}},
		{SkipToThemeNow, map[string]any{"own": "own", "k": nil, "t": "theme"}},
		{SkipAllNow, map[string]any{"own": "own", "k": nil, "t": nil}},
	}
	for _, tt := range tests {
		t.Run(tt.behavior.String(), func(t *testing.T) {
			tree := newTestTree(t, WithApplicationResources(app), WithThemeResources(theme))
			root := addNode(t, tree, NoHandle, "", KindStackPanel)
			rootDict := resource.New("root")
			require.NoError(t, rootDict.Add("k", "root"))
			require.NoError(t, tree.SetResources(root, rootDict))

			child := addNode(t, tree, NoHandle, "", KindBorder)
			own := resource.New("own")
			require.NoError(t, own.Add("own", "own"))
			require.NoError(t, tree.SetResources(child, own))
			require.NoError(t, tree.SetInheritanceBehavior(child, tt.behavior))
			require.NoError(t, tree.AppendChild(root, child))

			for key, want := range tt.want {
				got, ok := tree.TryFindResource(child, key)
				if want == nil {
					assert.False(t, ok, "%q should be out of scope", key)
					continue
				}
				assert.True(t, ok, "%q should be found", key)
				assert.Equal(t, want, got, "%q", key)
			}
		})
	}
}

func TestFindResource_NextBoundaryAppliesToDescendants(t *testing.T) {
	app := resource.New("app")
	require.NoError(t, app.Add("k", "app"))
	tree := newTestTree(t, WithApplicationResources(app))
	root := addNode(t, tree, NoHandle, "", KindStackPanel)
	rootDict := resource.New("root")
	require.NoError(t, rootDict.Add("k", "root"))
	require.NoError(t, tree.SetResources(root, rootDict))

	mid := addNode(t, tree, NoHandle, "", KindBorder)
	require.NoError(t, tree.SetInheritanceBehavior(mid, SkipToAppNext))
	require.NoError(t, tree.AppendChild(root, mid))
	leaf := addNode(t, tree, mid, "", KindTextBlock)

	v, err := tree.FindResource(mid, "k")
	require.NoError(t, err)
	assert.Equal(t, "root", v, "the boundary node itself still sees its ancestors")

	v, err = tree.FindResource(leaf, "k")
	require.NoError(t, err)
	assert.Equal(t, "app", v)
}

func TestFindResource_Deferred(t *testing.T) {
	builds := 0
	d := resource.Defer(func() (any, error) {
		builds++
		return "built", nil
	})
	app := resource.New("app")
	require.NoError(t, app.Add("lazy", d))
	tree := newTestTree(t, WithApplicationResources(app))
	h := addNode(t, tree, NoHandle, "", KindElement)

	assert.False(t, d.IsRealized())
	for range 2 {
		v, err := tree.FindResource(h, "lazy")
		require.NoError(t, err)
		assert.Equal(t, "built", v)
	}
	assert.Equal(t, 1, builds)
	assert.True(t, d.IsRealized())
}

func TestResourceReference_TracksDictionary(t *testing.T) {
	tree := newTestTree(t)
	root := addNode(t, tree, NoHandle, "", KindStackPanel)
	dict := resource.New("root")
	require.NoError(t, dict.Add("brush", "Blue"))
	require.NoError(t, tree.SetResources(root, dict))
	leaf := addNode(t, tree, root, "", KindTextBlock)

	require.NoError(t, tree.SetValue(leaf, ForegroundProperty, resource.Ref{Key: "brush"}))
	e := entryOf(t, tree, leaf, ForegroundProperty)
	assert.Equal(t, "Blue", e.Value)
	assert.Equal(t, property.RankLocal, e.Rank)
	assert.True(t, e.FromResource)

	raw, ok, err := tree.ReadLocalValue(leaf, ForegroundProperty)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, resource.Ref{Key: "brush"}, raw, "the local value keeps the reference")

	require.NoError(t, dict.Set("brush", "Green"))
	assert.Equal(t, "Green", entryOf(t, tree, leaf, ForegroundProperty).Value)

	require.True(t, dict.Remove("brush"))
	e = entryOf(t, tree, leaf, ForegroundProperty)
	assert.Equal(t, "Black", e.Value, "an unresolved reference falls through to lower ranks")
	assert.Equal(t, property.RankDefault, e.Rank)

	require.NoError(t, dict.Set("brush", 42))
	assert.Equal(t, "Black", entryOf(t, tree, leaf, ForegroundProperty).Value, "a mistyped resource is ignored")
}

func TestResourceReference_FollowsReparent(t *testing.T) {
	tree := newTestTree(t)
	a := addNode(t, tree, NoHandle, "", KindStackPanel)
	b := addNode(t, tree, NoHandle, "", KindStackPanel)
	for h, color := range map[Handle]string{a: "Red", b: "Blue"} {
		d := resource.New(color)
		require.NoError(t, d.Add("brush", color))
		require.NoError(t, tree.SetResources(h, d))
	}
	leaf := addNode(t, tree, a, "", KindTextBlock)
	require.NoError(t, tree.SetValue(leaf, ForegroundProperty, resource.Ref{Key: "brush"}))
	assert.Equal(t, "Red", entryOf(t, tree, leaf, ForegroundProperty).Value)

	require.NoError(t, tree.RemoveChild(a, leaf))
	require.NoError(t, tree.AppendChild(b, leaf))
	assert.Equal(t, "Blue", entryOf(t, tree, leaf, ForegroundProperty).Value)
}

func buttonStyle(tag string) *styling.Style {
	return &styling.Style{
		TargetType: "Button",
		Setters: []styling.Setter{
			{Property: TagProperty, Value: tag},
			{Property: FontSizeProperty, Value: 30.0},
		},
	}
}

// implicitButtonStyle returns a dictionary holding the implicit Button style.
func implicitButtonStyle(t *testing.T, tag string) *resource.Dictionary {
	t.Helper()
	d := resource.New(tag)
	require.NoError(t, d.Add(resource.TypeKey("Button"), buttonStyle(tag)))
	return d
}

func TestImplicitStyle_ElementResources(t *testing.T) {
	t.Run("ancestor dictionary", func(t *testing.T) {
		tree := newTestTree(t)
		root := addNode(t, tree, NoHandle, "", KindStackPanel)
		require.NoError(t, tree.SetResources(root, implicitButtonStyle(t, "scoped")))
		btn := addNode(t, tree, root, "Button", KindControl)

		e := entryOf(t, tree, btn, StyleProperty)
		assert.Equal(t, property.RankImplicitStyleReference, e.Rank)
		assert.Equal(t, "scoped", entryOf(t, tree, btn, TagProperty).Value)
	})

	t.Run("type key added and removed later", func(t *testing.T) {
		tree := newTestTree(t)
		root := addNode(t, tree, NoHandle, "", KindStackPanel)
		dict := resource.New("root")
		require.NoError(t, tree.SetResources(root, dict))
		btn := addNode(t, tree, root, "Button", KindControl)
		assert.Nil(t, entryOf(t, tree, btn, TagProperty).Value)

		require.NoError(t, dict.Add(resource.TypeKey("Button"), buttonStyle("late")))
		assert.Equal(t, "late", entryOf(t, tree, btn, TagProperty).Value)

		require.True(t, dict.Remove(resource.TypeKey("Button")))
		e := entryOf(t, tree, btn, StyleProperty)
		assert.Nil(t, e.Value)
		assert.Equal(t, property.RankDefault, e.Rank)
		assert.Nil(t, entryOf(t, tree, btn, TagProperty).Value)
	})

	t.Run("reparent into and out of scope", func(t *testing.T) {
		tree := newTestTree(t)
		styled := addNode(t, tree, NoHandle, "", KindStackPanel)
		plain := addNode(t, tree, NoHandle, "", KindStackPanel)
		require.NoError(t, tree.SetResources(styled, implicitButtonStyle(t, "implicit")))
		btn := addNode(t, tree, plain, "Button", KindControl)
		assert.Nil(t, entryOf(t, tree, btn, TagProperty).Value)

		require.NoError(t, tree.RemoveChild(plain, btn))
		require.NoError(t, tree.AppendChild(styled, btn))
		assert.Equal(t, "implicit", entryOf(t, tree, btn, TagProperty).Value)

		require.NoError(t, tree.RemoveChild(styled, btn))
		require.NoError(t, tree.AppendChild(plain, btn))
		assert.Nil(t, entryOf(t, tree, btn, TagProperty).Value)
		assert.Equal(t, property.RankDefault, entryOf(t, tree, btn, StyleProperty).Rank)
	})

	t.Run("dictionary replaced", func(t *testing.T) {
		tree := newTestTree(t)
		root := addNode(t, tree, NoHandle, "", KindStackPanel)
		btn := addNode(t, tree, root, "Button", KindControl)
		assert.Nil(t, entryOf(t, tree, btn, TagProperty).Value)

		require.NoError(t, tree.SetResources(root, implicitButtonStyle(t, "swapped")))
		assert.Equal(t, "swapped", entryOf(t, tree, btn, TagProperty).Value)

		require.NoError(t, tree.SetResources(root, resource.New("empty")))
		assert.Nil(t, entryOf(t, tree, btn, TagProperty).Value)
	})

	t.Run("inherited setter reaches resolved descendants", func(t *testing.T) {
		tree := newTestTree(t)
		root := addNode(t, tree, NoHandle, "", KindStackPanel)
		require.NoError(t, tree.SetResources(root, implicitButtonStyle(t, "implicit")))
		btn := addNode(t, tree, NoHandle, "Button", KindBorder)
		label := addNode(t, tree, btn, "", KindTextBlock)
		assert.Equal(t, 12.0, entryOf(t, tree, label, FontSizeProperty).Value)

		require.NoError(t, tree.AppendChild(root, btn))
		e := entryOf(t, tree, btn, FontSizeProperty)
		assert.Equal(t, 30.0, e.Value)
		assert.Equal(t, property.RankStyleSetter, e.Rank)
		e = entryOf(t, tree, label, FontSizeProperty)
		assert.Equal(t, 30.0, e.Value)
		assert.Equal(t, property.RankInherited, e.Rank)
	})
}

// -- Styles --

func TestImplicitStyle(t *testing.T) {
	app := resource.New("app")
	require.NoError(t, app.Add(resource.TypeKey("Button"), &styling.Style{
		TargetType: "Button",
		Setters:    []styling.Setter{{Property: TagProperty, Value: "implicit"}},
	}))
	tree := newTestTree(t, WithApplicationResources(app))
	root := addNode(t, tree, NoHandle, "", KindStackPanel)
	btn := addNode(t, tree, root, "Button", KindControl)
	other := addNode(t, tree, root, "Label", KindControl)

	e := entryOf(t, tree, btn, StyleProperty)
	assert.Equal(t, property.RankImplicitStyleReference, e.Rank)
	e = entryOf(t, tree, btn, TagProperty)
	assert.Equal(t, "implicit", e.Value)
	assert.Equal(t, property.RankStyleSetter, e.Rank)
	assert.Nil(t, entryOf(t, tree, other, TagProperty).Value, "keyed by type name")

	require.NoError(t, app.Set(resource.TypeKey("Button"), &styling.Style{
		TargetType: "Button",
		Setters:    []styling.Setter{{Property: TagProperty, Value: "replaced"}},
	}))
	assert.Equal(t, "replaced", entryOf(t, tree, btn, TagProperty).Value)

	require.NoError(t, tree.SetValue(btn, StyleProperty, &styling.Style{TargetType: "Button"}))
	assert.Nil(t, entryOf(t, tree, btn, TagProperty).Value, "an explicit style replaces the implicit one")
}

func TestStyle_FromResourceReference(t *testing.T) {
	tree := newTestTree(t)
	root := addNode(t, tree, NoHandle, "", KindStackPanel)
	dict := resource.New("root")
	base := &styling.Style{Key: "base", Setters: []styling.Setter{{Property: TagProperty, Value: "base"}}}
	derived := &styling.Style{
		Key:     "derived",
		BasedOn: base,
		Setters: []styling.Setter{{Property: FontSizeProperty, Value: 20.0}},
	}
	require.NoError(t, dict.Add("style", derived))
	require.NoError(t, tree.SetResources(root, dict))
	leaf := addNode(t, tree, root, "", KindTextBlock)

	require.NoError(t, tree.SetValue(leaf, StyleProperty, resource.Ref{Key: "style"}))
	assert.Equal(t, "base", entryOf(t, tree, leaf, TagProperty).Value, "BasedOn setters apply")
	assert.Equal(t, 20.0, entryOf(t, tree, leaf, FontSizeProperty).Value)
}

func TestStyle_Rejections(t *testing.T) {
	t.Run("cyclic BasedOn", func(t *testing.T) {
		tree := newTestTree(t)
		h := addNode(t, tree, NoHandle, "", KindElement)
		a := &styling.Style{Key: "A"}
		b := &styling.Style{Key: "B", BasedOn: a}
		a.BasedOn = b

		err := tree.SetValue(h, StyleProperty, a)
		require.Error(t, err)
		assert.ErrorIs(t, err, styling.ErrCyclicStyle)
		assert.Equal(t, ConfigurationError, KindOf(err))
		assert.Nil(t, entryOf(t, tree, h, StyleProperty).Value)
	})

	t.Run("target type mismatch", func(t *testing.T) {
		tree := newTestTree(t)
		h := addNode(t, tree, NoHandle, "Button", KindControl)
		err := tree.SetValue(h, StyleProperty, &styling.Style{TargetType: "Label"})
		assert.ErrorIs(t, err, ErrStyleTarget)
	})

	t.Run("target type matches kind name", func(t *testing.T) {
		tree := newTestTree(t)
		h := addNode(t, tree, NoHandle, "Button", KindControl)
		assert.NoError(t, tree.SetValue(h, StyleProperty, &styling.Style{TargetType: "Control"}))
	})
}

func TestOverridesDefaultStyle(t *testing.T) {
	theme := resource.New("theme")
	require.NoError(t, theme.Add(resource.TypeKey("Button"), &styling.Style{
		Setters: []styling.Setter{{Property: TagProperty, Value: "theme"}},
	}))
	tree := newTestTree(t, WithThemeResources(theme))
	btn := addNode(t, tree, NoHandle, "Button", KindControl)
	assert.Equal(t, "theme", entryOf(t, tree, btn, TagProperty).Value)

	require.NoError(t, tree.SetValue(btn, OverridesDefaultStyleProperty, true))
	assert.Nil(t, entryOf(t, tree, btn, TagProperty).Value)

	require.NoError(t, tree.ClearValue(btn, OverridesDefaultStyleProperty))
	assert.Equal(t, "theme", entryOf(t, tree, btn, TagProperty).Value)
}
