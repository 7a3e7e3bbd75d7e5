// internal/property/metadata.go
package property

import "reflect"

// Flags describe how a property participates in inheritance and layout.
type Flags uint16

const (
	// Inherits marks a property whose value flows down the logical tree.
	Inherits Flags = 1 << iota
	AffectsMeasure
	AffectsArrange
	AffectsParentMeasure
	AffectsParentArrange
	AffectsRender
)

// Object is the view of a node handed to coercion and change callbacks.
type Object interface {
	GetValue(k *Key) (any, error)
}

// ChangedEvent describes a change of effective value.
type ChangedEvent struct {
	Key      *Key
	Old, New any
	OldRank  Rank
	NewRank  Rank
}

// CoerceFunc adjusts a base value given the rest of the object's state.
type CoerceFunc func(obj Object, base any) any

// ChangedFunc observes effective-value changes.
type ChangedFunc func(obj Object, ev ChangedEvent)

// Metadata is the static description of a property, fixed at registration.
type Metadata struct {
	Default any
	// Type is the accepted value type. When nil it is taken from Default;
	// when both are nil any value is accepted.
	Type     reflect.Type
	Flags    Flags
	Validate func(v any) bool
	Coerce   CoerceFunc
	Changed  ChangedFunc
	// Parse converts a textual value (style sheets, scene documents).
	Parse func(s string) (any, error)
}
