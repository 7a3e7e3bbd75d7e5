// internal/element/template_test.go
package element

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/elementcore/internal/geometry"
	"github.com/xkilldash9x/elementcore/internal/property"
	"github.com/xkilldash9x/elementcore/internal/styling"
)

func buttonTemplate() *styling.Template {
	return &styling.Template{
		Key:        "button",
		TargetType: "Button",
		VisualTree: &styling.ChildSpec{
			Name:    "chrome",
			Type:    "Border",
			Setters: []styling.Setter{{Property: PaddingProperty, Value: geometry.Uniform(4)}},
			Children: []*styling.ChildSpec{{
				Name:    "label",
				Type:    "TextBlock",
				Setters: []styling.Setter{{Property: TextProperty, Value: "hi"}},
			}},
		},
		Triggers: []styling.Trigger{
			{
				Conditions: []styling.Condition{{Property: IsEnabledProperty, Value: false}},
				Setters: []styling.Setter{
					{Property: ForegroundProperty, Value: "Gray", TargetName: "label"},
					{Property: TagProperty, Value: "disabled"},
				},
			},
			{
				Conditions: []styling.Condition{{Property: TextProperty, Value: "bye", SourceName: "label"}},
				Setters:    []styling.Setter{{Property: TagProperty, Value: "leaving"}},
			},
		},
	}
}

// templatedButton returns a button with buttonTemplate applied, plus its
// generated chrome and label nodes.
func templatedButton(t *testing.T, tree *Tree) (btn, chrome, label *Node) {
	t.Helper()
	h := addNode(t, tree, NoHandle, "Button", KindControl)
	require.NoError(t, tree.SetValue(h, TemplateProperty, buttonTemplate()))
	applied, err := tree.ApplyTemplate(h)
	require.NoError(t, err)
	require.True(t, applied)

	btn = mustNode(t, tree, h)
	generated := btn.TemplateChildren()
	require.Len(t, generated, 2)
	return btn, mustNode(t, tree, generated[0]), mustNode(t, tree, generated[1])
}

func TestApplyTemplate_GeneratesVisualTree(t *testing.T) {
	tree := newTestTree(t)
	btn, chrome, label := templatedButton(t, tree)

	assert.Equal(t, []Handle{chrome.Handle()}, btn.VisualChildren())
	assert.Empty(t, btn.LogicalChildren(), "generated children are visual only")
	assert.Equal(t, []Handle{label.Handle()}, chrome.VisualChildren())

	assert.Equal(t, btn.Handle(), chrome.TemplatedParent())
	assert.Equal(t, btn.Handle(), label.TemplatedParent())
	assert.Equal(t, "label", label.Name())
	assert.Equal(t, 1, label.TemplateChildIndex())
	assert.Equal(t, KindTextBlock, label.Kind())

	e := entryOf(t, tree, label.Handle(), TextProperty)
	assert.Equal(t, "hi", e.Value)
	assert.Equal(t, property.RankTemplateSetter, e.Rank)
	assert.Equal(t, geometry.Uniform(4), entryOf(t, tree, chrome.Handle(), PaddingProperty).Value)

	applied, err := tree.ApplyTemplate(btn.Handle())
	require.NoError(t, err)
	assert.False(t, applied, "a current template is not regenerated")
	assert.Len(t, btn.TemplateChildren(), 2)
}

func TestApplyTemplate_ChildrenInheritFromTemplatedParent(t *testing.T) {
	tree := newTestTree(t)
	btn, _, label := templatedButton(t, tree)

	require.NoError(t, tree.SetValue(btn.Handle(), FontSizeProperty, 22.0))
	e := entryOf(t, tree, label.Handle(), FontSizeProperty)
	assert.Equal(t, 22.0, e.Value)
	assert.Equal(t, property.RankInherited, e.Rank)
}

func TestTemplateTriggers(t *testing.T) {
	tree := newTestTree(t)
	btn, _, label := templatedButton(t, tree)

	assert.Equal(t, "Black", entryOf(t, tree, label.Handle(), ForegroundProperty).Value)
	assert.Nil(t, entryOf(t, tree, btn.Handle(), TagProperty).Value)

	require.NoError(t, tree.SetValue(btn.Handle(), IsEnabledProperty, false))

	e := entryOf(t, tree, label.Handle(), ForegroundProperty)
	assert.Equal(t, "Gray", e.Value)
	assert.Equal(t, property.RankTemplateParentTrigger, e.Rank)
	e = entryOf(t, tree, btn.Handle(), TagProperty)
	assert.Equal(t, "disabled", e.Value)
	assert.Equal(t, property.RankTemplateTrigger, e.Rank)
	assert.Equal(t, false, entryOf(t, tree, label.Handle(), IsEnabledProperty).Value, "IsEnabled inherits into the template")

	require.NoError(t, tree.ClearValue(btn.Handle(), IsEnabledProperty))
	assert.Equal(t, "Black", entryOf(t, tree, label.Handle(), ForegroundProperty).Value)
	assert.Nil(t, entryOf(t, tree, btn.Handle(), TagProperty).Value)

	t.Run("condition on a named child", func(t *testing.T) {
		require.NoError(t, tree.SetValue(label.Handle(), TextProperty, "bye"))
		e := entryOf(t, tree, btn.Handle(), TagProperty)
		assert.Equal(t, "leaving", e.Value)
		assert.Equal(t, property.RankTemplateTrigger, e.Rank)

		require.NoError(t, tree.ClearValue(label.Handle(), TextProperty))
		assert.Nil(t, entryOf(t, tree, btn.Handle(), TagProperty).Value)
	})

	t.Run("local value beats template trigger", func(t *testing.T) {
		require.NoError(t, tree.SetValue(label.Handle(), ForegroundProperty, "Red"))
		require.NoError(t, tree.SetValue(btn.Handle(), IsEnabledProperty, false))
		assert.Equal(t, "Red", entryOf(t, tree, label.Handle(), ForegroundProperty).Value)
	})
}

func TestTemplateChange_ReleasesGeneratedChildren(t *testing.T) {
	tree := newTestTree(t)
	btn, chrome, label := templatedButton(t, tree)

	require.NoError(t, tree.ClearValue(btn.Handle(), TemplateProperty))
	assert.Empty(t, btn.VisualChildren())
	assert.Empty(t, btn.TemplateChildren())
	_, err := tree.Node(chrome.Handle())
	assert.ErrorIs(t, err, ErrDeadHandle)
	_, err = tree.Node(label.Handle())
	assert.ErrorIs(t, err, ErrDeadHandle)

	applied, err := tree.ApplyTemplate(btn.Handle())
	require.NoError(t, err)
	assert.False(t, applied)

	require.NoError(t, tree.SetValue(btn.Handle(), TemplateProperty, buttonTemplate()))
	applied, err = tree.ApplyTemplate(btn.Handle())
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Len(t, btn.TemplateChildren(), 2)
}

func TestApplyTemplate_Errors(t *testing.T) {
	t.Run("duplicate names", func(t *testing.T) {
		tree := newTestTree(t)
		h := addNode(t, tree, NoHandle, "Button", KindControl)
		tmpl := &styling.Template{VisualTree: &styling.ChildSpec{
			Name:     "x",
			Type:     "Border",
			Children: []*styling.ChildSpec{{Name: "x", Type: "TextBlock"}},
		}}
		err := tree.SetValue(h, TemplateProperty, tmpl)
		assert.ErrorIs(t, err, styling.ErrDuplicateName)
		assert.Equal(t, ConfigurationError, KindOf(err))
	})

	t.Run("too deep for the tree", func(t *testing.T) {
		tree := newTestTree(t, WithMaxTreeDepth(1))
		h := addNode(t, tree, NoHandle, "Button", KindControl)
		require.NoError(t, tree.SetValue(h, TemplateProperty, buttonTemplate()))
		_, err := tree.ApplyTemplate(h)
		assert.ErrorIs(t, err, ErrRecursionLimit)
		assert.Empty(t, mustNode(t, tree, h).VisualChildren())
	})

	t.Run("re-entrant template update", func(t *testing.T) {
		tree := newTestTree(t)
		h := addNode(t, tree, NoHandle, "Button", KindControl)
		n := mustNode(t, tree, h)
		n.updatingStyle++
		defer func() { n.updatingStyle-- }()
		err := tree.SetValue(h, TemplateProperty, buttonTemplate())
		assert.ErrorIs(t, err, ErrReentrantUpdate)
		assert.Equal(t, ConfigurationError, KindOf(err))
	})
}
