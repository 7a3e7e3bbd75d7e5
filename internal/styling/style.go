// internal/styling/style.go
package styling

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xkilldash9x/elementcore/internal/property"
	"github.com/xkilldash9x/elementcore/internal/resource"
)

var (
	ErrCyclicStyle       = errors.New("cyclic BasedOn chain")
	ErrTargetMismatch    = errors.New("BasedOn target type mismatch")
	ErrSealed            = errors.New("style or template is sealed")
	ErrTargetNameInStyle = errors.New("style setters cannot target named children")
	ErrInvalidSetter     = errors.New("invalid setter")
)

// Setter assigns Value to Property. TargetName selects a named template
// child and is only meaningful inside template triggers.
type Setter struct {
	Property   *property.Key
	Value      any
	TargetName string
}

// Condition holds when Property equals Value. SourceName selects a named
// template child as the object the condition is evaluated on.
type Condition struct {
	Property   *property.Key
	Value      any
	SourceName string
}

// Trigger applies its setters while every condition holds.
type Trigger struct {
	Conditions []Condition
	Setters    []Setter
}

// Style is an ordered setter list plus triggers, optionally based on
// another style. A style is sealed on first use and immutable afterwards.
type Style struct {
	Key        any
	TargetType string
	BasedOn    *Style
	Setters    []Setter
	Triggers   []Trigger
	Resources  *resource.Dictionary

	sealed   bool
	values   map[*property.Key]any
	triggers []Trigger
	chain    []*Style
}

func (s *Style) String() string {
	switch {
	case s.Key != nil:
		return fmt.Sprintf("Style(%v)", s.Key)
	case s.TargetType != "":
		return "Style<" + s.TargetType + ">"
	}
	return "Style"
}

// IsSealed reports whether Seal succeeded.
func (s *Style) IsSealed() bool { return s.sealed }

// AddSetter appends a setter before sealing.
func (s *Style) AddSetter(st Setter) error {
	if s.sealed {
		return fmt.Errorf("%s: %w", s, ErrSealed)
	}
	s.Setters = append(s.Setters, st)
	return nil
}

// AddTrigger appends a trigger before sealing.
func (s *Style) AddTrigger(tr Trigger) error {
	if s.sealed {
		return fmt.Errorf("%s: %w", s, ErrSealed)
	}
	s.Triggers = append(s.Triggers, tr)
	return nil
}

// Seal validates the BasedOn chain and freezes the flattened setters and
// triggers. Sealing an already sealed style is a no-op.
func (s *Style) Seal() error {
	if s.sealed {
		return nil
	}

	visited := make(map[*Style]bool)
	var chain []*Style
	for cur := s; cur != nil; cur = cur.BasedOn {
		if visited[cur] {
			names := make([]string, 0, len(chain)+1)
			for _, c := range chain {
				names = append(names, c.String())
			}
			names = append(names, cur.String())
			return fmt.Errorf("%s: %w", strings.Join(names, " -> "), ErrCyclicStyle)
		}
		visited[cur] = true
		chain = append(chain, cur)
	}

	for i := 0; i+1 < len(chain); i++ {
		derived, base := chain[i], chain[i+1]
		if base.TargetType != "" && derived.TargetType != "" && base.TargetType != derived.TargetType {
			return fmt.Errorf("%s based on %s: %w", derived, base, ErrTargetMismatch)
		}
	}

	values := make(map[*property.Key]any)
	var triggers []Trigger
	// Base first so that derived setters overwrite and derived triggers
	// come later in the list.
	for i := len(chain) - 1; i >= 0; i-- {
		for _, st := range chain[i].Setters {
			if err := checkSetter(chain[i], st, false); err != nil {
				return err
			}
			values[st.Property] = st.Value
		}
		for _, tr := range chain[i].Triggers {
			for _, st := range tr.Setters {
				if err := checkSetter(chain[i], st, false); err != nil {
					return err
				}
			}
			triggers = append(triggers, cloneTrigger(tr))
		}
	}

	s.values = values
	s.triggers = triggers
	s.chain = chain
	s.sealed = true
	return nil
}

func checkSetter(owner fmt.Stringer, st Setter, allowTarget bool) error {
	if st.Property == nil {
		return fmt.Errorf("%s: nil property: %w", owner, ErrInvalidSetter)
	}
	if st.TargetName != "" && !allowTarget {
		return fmt.Errorf("%s: %s -> %q: %w", owner, st.Property, st.TargetName, ErrTargetNameInStyle)
	}
	if _, isRef := st.Value.(resource.Ref); isRef {
		return nil
	}
	if err := st.Property.Validate(st.Value); err != nil {
		return fmt.Errorf("%s: %w", owner, err)
	}
	return nil
}

func cloneTrigger(tr Trigger) Trigger {
	return Trigger{
		Conditions: append([]Condition(nil), tr.Conditions...),
		Setters:    append([]Setter(nil), tr.Setters...),
	}
}

// Value returns the flattened setter value for k. The style must be sealed.
func (s *Style) Value(k *property.Key) (any, bool) {
	v, ok := s.values[k]
	return v, ok
}

// EffectiveTriggers returns base triggers first, derived ones last.
func (s *Style) EffectiveTriggers() []Trigger { return s.triggers }

// Chain returns the style followed by its BasedOn ancestors.
func (s *Style) Chain() []*Style { return s.chain }

// ResourceChain returns the resource dictionaries of the style and its
// bases, nearest first.
func (s *Style) ResourceChain() []*resource.Dictionary {
	var out []*resource.Dictionary
	for _, c := range s.chain {
		if c.Resources != nil {
			out = append(out, c.Resources)
		}
	}
	return out
}

// SetsProperty reports whether any setter or trigger setter targets k.
func (s *Style) SetsProperty(k *property.Key) bool {
	if _, ok := s.values[k]; ok {
		return true
	}
	for _, tr := range s.triggers {
		for _, st := range tr.Setters {
			if st.Property == k {
				return true
			}
		}
	}
	return false
}

// Properties lists every property the style can supply on its target,
// from setters or trigger setters, ordered by registration.
func (s *Style) Properties() []*property.Key {
	seen := make(map[*property.Key]bool)
	for k := range s.values {
		seen[k] = true
	}
	for _, tr := range s.triggers {
		for _, st := range tr.Setters {
			seen[st.Property] = true
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[*property.Key]bool) []*property.Key {
	out := make([]*property.Key, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
