// internal/resource/dictionary.go
package resource

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicateKey = errors.New("resource key already present")
	ErrInvalidKey   = errors.New("resource key must be non-nil and comparable")
	ErrMergeCycle   = errors.New("merged dictionary cycle")
)

// TypeKey keys an implicit style by the runtime type name of the element
// it targets. Theme dictionaries use the same key for theme styles.
type TypeKey string

func (k TypeKey) String() string { return "{type " + string(k) + "}" }

// Ref is a resource reference: a value that stands for whatever the lookup
// chain yields for Key at resolution time.
type Ref struct {
	Key any
}

func (r Ref) String() string { return fmt.Sprintf("{resource %v}", r.Key) }

// Deferred is a resource whose value is built on first use.
type Deferred struct {
	once  sync.Once
	build func() (any, error)
	value any
	err   error
	done  bool
}

// Defer wraps a builder into a deferred resource.
func Defer(build func() (any, error)) *Deferred {
	return &Deferred{build: build}
}

// Realize builds the value once and returns the cached result afterwards.
func (d *Deferred) Realize() (any, error) {
	d.once.Do(func() {
		d.value, d.err = d.build()
		d.done = true
	})
	return d.value, d.err
}

// IsRealized reports whether Realize has run.
func (d *Deferred) IsRealized() bool { return d.done }

// -- Change notification --

// Op identifies a dictionary mutation.
type Op int

const (
	OpAdd Op = iota
	OpReplace
	OpRemove
	OpClear
	OpMerge
	OpUnmerge
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpReplace:
		return "replace"
	case OpRemove:
		return "remove"
	case OpClear:
		return "clear"
	case OpMerge:
		return "merge"
	case OpUnmerge:
		return "unmerge"
	}
	return "unknown"
}

// Change describes a mutation. Key is nil for bulk operations.
type Change struct {
	Dictionary *Dictionary
	Op         Op
	Key        any
}

// Owner is anything whose resolved values depend on a dictionary: an
// element, a style or a template. Owners must be comparable.
type Owner interface {
	ResourcesChanged(c Change)
}

// -- Dictionary --

// Dictionary is an ordered, mergeable key/value store. Lookup checks the
// dictionary's own entries, then its merged dictionaries from the most
// recently merged to the first.
type Dictionary struct {
	name    string
	entries map[any]any
	order   []any
	merged  []*Dictionary
	// parents are the dictionaries this one is merged into; their owners
	// see this dictionary's changes too.
	parents []*Dictionary
	// owners map to their registration sequence, which orders delivery.
	owners  map[Owner]uint64
	seq     uint64
}

// New creates an empty dictionary. The name is used only in diagnostics.
func New(name string) *Dictionary {
	return &Dictionary{
		name:    name,
		entries: make(map[any]any),
		owners:  make(map[Owner]uint64),
	}
}

func (d *Dictionary) Name() string { return d.name }

func (d *Dictionary) String() string {
	if d.name == "" {
		return fmt.Sprintf("dictionary(%d entries)", len(d.entries))
	}
	return d.name
}

func validKey(key any) bool {
	return key != nil && reflect.TypeOf(key).Comparable()
}

// Add inserts a new entry and fails if the key is already present.
func (d *Dictionary) Add(key, value any) error {
	if !validKey(key) {
		return fmt.Errorf("%v: %w", key, ErrInvalidKey)
	}
	if _, ok := d.entries[key]; ok {
		return fmt.Errorf("%s: %v: %w", d, key, ErrDuplicateKey)
	}
	d.entries[key] = value
	d.order = append(d.order, key)
	d.notify(Change{Dictionary: d, Op: OpAdd, Key: key})
	return nil
}

// Set inserts or replaces an entry.
func (d *Dictionary) Set(key, value any) error {
	if !validKey(key) {
		return fmt.Errorf("%v: %w", key, ErrInvalidKey)
	}
	op := OpReplace
	if _, ok := d.entries[key]; !ok {
		op = OpAdd
		d.order = append(d.order, key)
	}
	d.entries[key] = value
	d.notify(Change{Dictionary: d, Op: op, Key: key})
	return nil
}

// Remove deletes an entry and reports whether it existed.
func (d *Dictionary) Remove(key any) bool {
	if !validKey(key) {
		return false
	}
	if _, ok := d.entries[key]; !ok {
		return false
	}
	delete(d.entries, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.notify(Change{Dictionary: d, Op: OpRemove, Key: key})
	return true
}

// Clear removes every own entry. Merged dictionaries stay merged.
func (d *Dictionary) Clear() {
	if len(d.entries) == 0 {
		return
	}
	d.entries = make(map[any]any)
	d.order = nil
	d.notify(Change{Dictionary: d, Op: OpClear})
}

// Merge appends other to the merged list. Merging a dictionary into
// itself, directly or transitively, is rejected.
func (d *Dictionary) Merge(other *Dictionary) error {
	if other == nil {
		return fmt.Errorf("%s: merge nil dictionary: %w", d, ErrInvalidKey)
	}
	if other == d || other.reaches(d, make(map[*Dictionary]bool)) {
		return fmt.Errorf("%s <- %s: %w", d, other, ErrMergeCycle)
	}
	d.merged = append(d.merged, other)
	other.parents = append(other.parents, d)
	d.notify(Change{Dictionary: d, Op: OpMerge})
	return nil
}

// Unmerge removes other from the merged list.
func (d *Dictionary) Unmerge(other *Dictionary) bool {
	idx := -1
	for i, m := range d.merged {
		if m == other {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	d.merged = append(d.merged[:idx], d.merged[idx+1:]...)
	for i, p := range other.parents {
		if p == d {
			other.parents = append(other.parents[:i], other.parents[i+1:]...)
			break
		}
	}
	d.notify(Change{Dictionary: d, Op: OpUnmerge})
	return true
}

// reaches reports whether target is d or is merged somewhere below d.
func (d *Dictionary) reaches(target *Dictionary, seen map[*Dictionary]bool) bool {
	if d == target {
		return true
	}
	if seen[d] {
		return false
	}
	seen[d] = true
	for _, m := range d.merged {
		if m.reaches(target, seen) {
			return true
		}
	}
	return false
}

// Merged returns the merged dictionaries in insertion order.
func (d *Dictionary) Merged() []*Dictionary {
	return append([]*Dictionary(nil), d.merged...)
}

// Get looks key up in d and its merged dictionaries. A present nil value
// is a match. Deferred values are realized and the entry replaced.
func (d *Dictionary) Get(key any) (any, bool, error) {
	if d == nil || !validKey(key) {
		return nil, false, nil
	}
	owner, v, ok := d.find(key)
	if !ok {
		return nil, false, nil
	}
	if def, isDeferred := v.(*Deferred); isDeferred {
		built, err := def.Realize()
		if err != nil {
			return nil, true, fmt.Errorf("%s: realizing %v: %w", owner, key, err)
		}
		owner.entries[key] = built
		return built, true, nil
	}
	return v, true, nil
}

// Raw returns the stored value without realizing deferred entries.
func (d *Dictionary) Raw(key any) (any, bool) {
	if d == nil || !validKey(key) {
		return nil, false
	}
	_, v, ok := d.find(key)
	return v, ok
}

func (d *Dictionary) find(key any) (*Dictionary, any, bool) {
	if v, ok := d.entries[key]; ok {
		return d, v, true
	}
	for i := len(d.merged) - 1; i >= 0; i-- {
		if o, v, ok := d.merged[i].find(key); ok {
			return o, v, true
		}
	}
	return nil, nil, false
}

// Contains reports whether Get would find key.
func (d *Dictionary) Contains(key any) bool {
	_, ok := d.Raw(key)
	return ok
}

// Keys returns the own keys in insertion order.
func (d *Dictionary) Keys() []any {
	return append([]any(nil), d.order...)
}

// Len counts own entries.
func (d *Dictionary) Len() int { return len(d.entries) }

// -- Owners --

// AddOwner registers o for change notifications. Registering an owner again
// keeps its original place in the delivery order.
func (d *Dictionary) AddOwner(o Owner) {
	if _, ok := d.owners[o]; ok {
		return
	}
	d.seq++
	d.owners[o] = d.seq
}

// RemoveOwner unregisters o.
func (d *Dictionary) RemoveOwner(o Owner) {
	delete(d.owners, o)
}

// HasOwner reports whether o is registered.
func (d *Dictionary) HasOwner(o Owner) bool {
	_, ok := d.owners[o]
	return ok
}

// OwnerCount counts registered owners.
func (d *Dictionary) OwnerCount() int { return len(d.owners) }

// notify delivers c to the owners of d and of every dictionary d is merged
// into. Each owner hears about a change once. Recipients are fixed before the
// first callback runs: owners added or removed by a callback take effect from
// the next change.
func (d *Dictionary) notify(c Change) {
	for _, o := range d.recipients() {
		o.ResourcesChanged(c)
	}
}

// recipients lists the owners notify reaches: d's own in registration order,
// then each parent's in merge order, without repeats.
func (d *Dictionary) recipients() []Owner {
	var out []Owner
	told := make(map[Owner]bool)
	seen := make(map[*Dictionary]bool)
	var walk func(x *Dictionary)
	walk = func(x *Dictionary) {
		if seen[x] {
			return
		}
		seen[x] = true
		own := make([]Owner, 0, len(x.owners))
		for o := range x.owners {
			if !told[o] {
				told[o] = true
				own = append(own, o)
			}
		}
		sort.Slice(own, func(i, j int) bool { return x.owners[own[i]] < x.owners[own[j]] })
		out = append(out, own...)
		for _, p := range x.parents {
			walk(p)
		}
	}
	walk(d)
	return out
}

// -- Chain lookup --

// Find searches the dictionaries in order and returns the first match.
func Find(key any, chain ...*Dictionary) (any, bool, error) {
	for _, d := range chain {
		if d == nil {
			continue
		}
		v, ok, err := d.Get(key)
		if ok || err != nil {
			return v, ok, err
		}
	}
	return nil, false, nil
}
