package resource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingOwner struct {
	name    string
	changes []Change
}

func (o *recordingOwner) ResourcesChanged(c Change) {
	o.changes = append(o.changes, c)
}

func TestDictionary_AddGetRemove(t *testing.T) {
	d := New("app")

	require.NoError(t, d.Add("Accent", "blue"))
	require.NoError(t, d.Add("Nothing", nil))

	err := d.Add("Accent", "red")
	assert.ErrorIs(t, err, ErrDuplicateKey)

	v, ok, err := d.Get("Accent")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "blue", v)

	t.Run("present nil is a match", func(t *testing.T) {
		v, ok, err := d.Get("Nothing")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Nil(t, v)
	})

	t.Run("missing key", func(t *testing.T) {
		_, ok, err := d.Get("Missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalid keys", func(t *testing.T) {
		assert.ErrorIs(t, d.Add(nil, 1), ErrInvalidKey)
		assert.ErrorIs(t, d.Add([]string{"x"}, 1), ErrInvalidKey)
	})

	assert.Equal(t, []any{"Accent", "Nothing"}, d.Keys())
	assert.True(t, d.Remove("Accent"))
	assert.False(t, d.Remove("Accent"))
	assert.Equal(t, []any{"Nothing"}, d.Keys())
}

func TestDictionary_MergedLookupOrder(t *testing.T) {
	base := New("base")
	first := New("first")
	second := New("second")
	require.NoError(t, first.Add("Brush", "first"))
	require.NoError(t, second.Add("Brush", "second"))
	require.NoError(t, first.Add("OnlyFirst", 1))

	require.NoError(t, base.Merge(first))
	require.NoError(t, base.Merge(second))

	v, ok, _ := base.Get("Brush")
	require.True(t, ok)
	assert.Equal(t, "second", v, "later merged dictionaries win")

	v, ok, _ = base.Get("OnlyFirst")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	require.NoError(t, base.Set("Brush", "own"))
	v, _, _ = base.Get("Brush")
	assert.Equal(t, "own", v, "own entries win over merged ones")

	assert.True(t, base.Unmerge(second))
	assert.False(t, base.Unmerge(second))
	assert.Len(t, base.Merged(), 1)
}

func TestDictionary_MergeCycle(t *testing.T) {
	a, b, c := New("a"), New("b"), New("c")
	require.NoError(t, a.Merge(b))
	require.NoError(t, b.Merge(c))

	assert.ErrorIs(t, c.Merge(a), ErrMergeCycle)
	assert.ErrorIs(t, a.Merge(a), ErrMergeCycle)
}

func TestDictionary_Deferred(t *testing.T) {
	d := New("lazy")
	calls := 0
	require.NoError(t, d.Add("Big", Defer(func() (any, error) {
		calls++
		return "built", nil
	})))

	raw, ok := d.Raw("Big")
	require.True(t, ok)
	def, isDeferred := raw.(*Deferred)
	require.True(t, isDeferred)
	assert.False(t, def.IsRealized())

	for i := 0; i < 2; i++ {
		v, ok, err := d.Get("Big")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "built", v)
	}
	assert.Equal(t, 1, calls)
	assert.True(t, def.IsRealized())

	raw, _ = d.Raw("Big")
	assert.Equal(t, "built", raw, "realized value replaces the deferred entry")

	t.Run("build failure", func(t *testing.T) {
		boom := errors.New("boom")
		require.NoError(t, d.Add("Broken", Defer(func() (any, error) { return nil, boom })))
		_, ok, err := d.Get("Broken")
		assert.True(t, ok)
		assert.ErrorIs(t, err, boom)
	})
}

func TestDictionary_OwnerNotification(t *testing.T) {
	app := New("app")
	shared := New("shared")
	require.NoError(t, app.Merge(shared))

	elemA := &recordingOwner{name: "a"}
	elemB := &recordingOwner{name: "b"}
	app.AddOwner(elemA)
	shared.AddOwner(elemB)
	shared.AddOwner(elemA)
	assert.Equal(t, 2, shared.OwnerCount())

	require.NoError(t, shared.Add("Key", 1))

	require.Len(t, elemA.changes, 1, "owner registered twice along the chain hears once")
	require.Len(t, elemB.changes, 1)
	assert.Equal(t, OpAdd, elemA.changes[0].Op)
	assert.Same(t, shared, elemA.changes[0].Dictionary)

	app.Clear()
	assert.Len(t, elemA.changes, 1, "clearing an empty dictionary is silent")

	require.NoError(t, app.Add("Own", 2))
	assert.Len(t, elemA.changes, 2)
	assert.Len(t, elemB.changes, 1, "parent changes do not reach merged children's owners")

	shared.RemoveOwner(elemB)
	assert.False(t, shared.HasOwner(elemB))
	shared.Remove("Key")
	assert.Len(t, elemB.changes, 1)
	assert.Equal(t, OpRemove, elemA.changes[2].Op)
}

// callbackOwner records its name into a shared log and runs hook on each
// change.
type callbackOwner struct {
	name string
	log  *[]string
	hook func()
}

func (o *callbackOwner) ResourcesChanged(Change) {
	*o.log = append(*o.log, o.name)
	if o.hook != nil {
		o.hook()
	}
}

func TestDictionary_NotifyOrder(t *testing.T) {
	t.Run("registration order then parents", func(t *testing.T) {
		app := New("app")
		shared := New("shared")
		require.NoError(t, app.Merge(shared))

		var log []string
		owners := make([]*callbackOwner, 0, 8)
		for _, name := range []string{"e", "b", "g", "a", "f", "c", "d"} {
			owners = append(owners, &callbackOwner{name: name, log: &log})
		}
		for _, o := range owners[:4] {
			shared.AddOwner(o)
		}
		for _, o := range owners[4:] {
			app.AddOwner(o)
		}
		app.AddOwner(owners[0])

		for i := 0; i < 5; i++ {
			log = nil
			require.NoError(t, shared.Set("Key", i))
			assert.Equal(t, []string{"e", "b", "g", "a", "f", "c", "d"}, log)
		}
	})

	t.Run("owners changed by a callback wait for the next change", func(t *testing.T) {
		d := New("local")
		var log []string
		late := &callbackOwner{name: "late", log: &log}
		dropped := &callbackOwner{name: "dropped", log: &log}
		first := &callbackOwner{name: "first", log: &log}
		first.hook = func() {
			d.AddOwner(late)
			d.RemoveOwner(dropped)
		}
		d.AddOwner(first)
		d.AddOwner(dropped)

		require.NoError(t, d.Add("Key", 1))
		assert.Equal(t, []string{"first", "dropped"}, log)
		assert.True(t, d.HasOwner(late))
		assert.False(t, d.HasOwner(dropped))

		log = nil
		first.hook = nil
		require.NoError(t, d.Set("Key", 2))
		assert.Equal(t, []string{"first", "late"}, log)
	})
}

func TestFind_Chain(t *testing.T) {
	local, app, theme := New("local"), New("app"), New("theme")
	require.NoError(t, theme.Add("Key", "theme"))
	require.NoError(t, app.Add("Key", "app"))

	v, ok, err := Find("Key", local, nil, app, theme)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "app", v)

	_, ok, _ = Find("Other", local, app, theme)
	assert.False(t, ok)

	require.NoError(t, theme.Add(TypeKey("Button"), "style"))
	v, ok, _ = Find(TypeKey("Button"), local, app, theme)
	require.True(t, ok)
	assert.Equal(t, "style", v)
	assert.Equal(t, "{type Button}", TypeKey("Button").String())
}
