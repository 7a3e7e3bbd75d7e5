// internal/property/key.go
package property

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"sync"
)

var (
	// ErrInvalidValue is wrapped by every ValidationError.
	ErrInvalidValue = errors.New("invalid property value")
	// ErrDuplicateProperty is returned when an owner registers a name twice.
	ErrDuplicateProperty = errors.New("property already registered")
	// ErrUnknownProperty is returned by name lookups that find nothing.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrNoParser is returned when a textual value is given for a property
	// that has no parser.
	ErrNoParser = errors.New("property has no text parser")
)

// ValidationError reports a value rejected before it entered the cache.
type ValidationError struct {
	Property string
	Value    any
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %v for %s: %s", e.Value, e.Property, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidValue }

// Key identifies a registered property. Keys are immutable, created once
// at registration time and shared by every instance of the owning type.
type Key struct {
	id        int
	name      string
	owner     string
	meta      Metadata
	valueType reflect.Type
}

func (k *Key) ID() int { return k.id }
func (k *Key) Name() string { return k.name }
func (k *Key) Owner() string { return k.owner }
func (k *Key) Default() any { return k.meta.Default }
func (k *Key) Metadata() Metadata { return k.meta }
func (k *Key) Inherits() bool { return k.meta.Flags&Inherits != 0 }
func (k *Key) Has(f Flags) bool { return k.meta.Flags&f == f }
func (k *Key) FullName() string { return k.owner + "." + k.name }
func (k *Key) String() string { return k.FullName() }
func (k *Key) Type() reflect.Type { return k.valueType }

// Validate checks the value against the property's type and validation callback.
func (k *Key) Validate(v any) error {
	if k.valueType != nil {
		if v == nil {
			if !nillable(k.valueType) {
				return &ValidationError{Property: k.FullName(), Value: v, Reason: "nil not allowed"}
			}
		} else if !reflect.TypeOf(v).AssignableTo(k.valueType) {
			return &ValidationError{
				Property: k.FullName(),
				Value:    v,
				Reason:   fmt.Sprintf("want %s, got %T", k.valueType, v),
			}
		}
	}
	if k.meta.Validate != nil && !k.meta.Validate(v) {
		return &ValidationError{Property: k.FullName(), Value: v, Reason: "rejected by validation callback"}
	}
	return nil
}

// Parse converts text into a validated value.
func (k *Key) Parse(s string) (any, error) {
	if k.meta.Parse == nil {
		return nil, fmt.Errorf("%s: %w", k.FullName(), ErrNoParser)
	}
	v, err := k.meta.Parse(s)
	if err != nil {
		return nil, &ValidationError{Property: k.FullName(), Value: s, Reason: err.Error()}
	}
	if err := k.Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// -- Registry --

// Registry holds registered properties. Registration normally happens
// during package initialization; lookups are safe from any goroutine.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Key
	keys   []*Key
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Key)}
}

// Global is the process-wide registry used by the framework properties.
var Global = NewRegistry()

// Register adds a property owned by owner. The default value must pass
// validation.
func (r *Registry) Register(name, owner string, meta Metadata) (*Key, error) {
	k := &Key{name: name, owner: owner, meta: meta, valueType: meta.Type}
	if k.valueType == nil && meta.Default != nil {
		k.valueType = reflect.TypeOf(meta.Default)
	}
	if err := k.Validate(meta.Default); err != nil {
		return nil, fmt.Errorf("registering %s: default: %w", k.FullName(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[k.FullName()]; exists {
		return nil, fmt.Errorf("%s: %w", k.FullName(), ErrDuplicateProperty)
	}
	k.id = len(r.keys)
	r.keys = append(r.keys, k)
	r.byName[k.FullName()] = k
	return k, nil
}

// MustRegister is Register for package initialization; it panics on error.
func (r *Registry) MustRegister(name, owner string, meta Metadata) *Key {
	k, err := r.Register(name, owner, meta)
	if err != nil {
		panic(err)
	}
	return k
}

// Lookup finds a property by owner and name.
func (r *Registry) Lookup(owner, name string) (*Key, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.byName[owner+"."+name]
	return k, ok
}

// Find resolves "Owner.Name" directly and a bare "Name" against the given
// owner candidates in order.
func (r *Registry) Find(name string, owners ...string) (*Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if k, ok := r.byName[name]; ok {
		return k, nil
	}
	for _, o := range owners {
		if k, ok := r.byName[o+"."+name]; ok {
			return k, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownProperty)
}

// Inheritable lists every property flagged Inherits, in registration order.
func (r *Registry) Inheritable() []*Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Key
	for _, k := range r.keys {
		if k.Inherits() {
			out = append(out, k)
		}
	}
	return out
}

// All lists every property sorted by full name.
func (r *Registry) All() []*Key {
	r.mu.RLock()
	out := append([]*Key(nil), r.keys...)
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].FullName() < out[j].FullName() })
	return out
}

// -- Value helpers --

// Equal compares two effective values. NaN equals NaN so that an "Auto"
// size does not register as a change on every re-resolution.
func Equal(a, b any) bool {
	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			return fa == fb || (math.IsNaN(fa) && math.IsNaN(fb))
		}
		return false
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// ParseFloat is a parser for double-valued properties. "Auto" maps to NaN
// and "Infinity" to +Inf; validation decides whether either is acceptable.
func ParseFloat(s string) (any, error) {
	switch s {
	case "Auto", "auto", "NaN":
		return math.NaN(), nil
	case "Infinity", "inf", "+Inf":
		return math.Inf(1), nil
	}
	return strconv.ParseFloat(s, 64)
}

// ParseBool is a parser for boolean properties.
func ParseBool(s string) (any, error) {
	return strconv.ParseBool(s)
}

// ParseString is a parser for string properties.
func ParseString(s string) (any, error) {
	return s, nil
}
