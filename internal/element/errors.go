// internal/element/errors.go
package element

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/elementcore/internal/property"
	"github.com/xkilldash9x/elementcore/internal/resource"
	"github.com/xkilldash9x/elementcore/internal/styling"
)

// Error classes. Every error returned from this package wraps exactly one of
// them, or a property/resource/styling sentinel that KindOf maps onto one.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrStructural    = errors.New("invalid operation")
	ErrLookup        = errors.New("lookup failed")
)

var (
	ErrAlreadyParented = fmt.Errorf("%w: node already has a parent", ErrStructural)
	ErrTreeCycle       = fmt.Errorf("%w: node would become its own ancestor", ErrStructural)
	ErrRecursionLimit  = fmt.Errorf("%w: recursion limit exceeded", ErrStructural)
	ErrReentrantLayout = fmt.Errorf("%w: re-entrant measure or arrange", ErrStructural)
	ErrDeadHandle      = fmt.Errorf("%w: handle does not refer to a live node", ErrStructural)
	ErrNotChild        = fmt.Errorf("%w: node is not a child of the given parent", ErrStructural)
	ErrInitialized     = fmt.Errorf("%w: inheritance behavior is fixed once initialized", ErrStructural)
	ErrWrongThread     = fmt.Errorf("%w: tree accessed outside its dispatcher", ErrStructural)

	ErrResolutionCycle = fmt.Errorf("%w: property resolution cycle", ErrConfiguration)
	ErrReentrantUpdate = fmt.Errorf("%w: re-entrant style or template update", ErrConfiguration)
	ErrStyleTarget     = fmt.Errorf("%w: style target type does not match element", ErrConfiguration)

	ErrResourceNotFound = fmt.Errorf("%w: %w", ErrLookup, resource.ErrNotFound)
)

// ErrorKind classifies errors surfaced by the element core.
type ErrorKind int

const (
	NoError ErrorKind = iota
	ConfigurationError
	ValidationError
	StructuralError
	LookupError
	UnknownError
)

func (k ErrorKind) String() string {
	switch k {
	case NoError:
		return "none"
	case ConfigurationError:
		return "configuration"
	case ValidationError:
		return "validation"
	case StructuralError:
		return "structural"
	case LookupError:
		return "lookup"
	}
	return "unknown"
}

var configurationSentinels = []error{
	ErrConfiguration,
	styling.ErrCyclicStyle,
	styling.ErrTargetMismatch,
	styling.ErrSealed,
	styling.ErrTargetNameInStyle,
	styling.ErrInvalidSetter,
	styling.ErrCyclicTemplate,
	styling.ErrDuplicateName,
	styling.ErrUnknownTarget,
	styling.ErrEmptyTemplate,
	resource.ErrMergeCycle,
	resource.ErrDuplicateKey,
	resource.ErrInvalidKey,
}

// KindOf maps an error onto the error taxonomy.
func KindOf(err error) ErrorKind {
	if err == nil {
		return NoError
	}
	if errors.Is(err, property.ErrInvalidValue) {
		return ValidationError
	}
	if errors.Is(err, ErrStructural) {
		return StructuralError
	}
	if errors.Is(err, ErrLookup) || errors.Is(err, resource.ErrNotFound) || errors.Is(err, property.ErrUnknownProperty) {
		return LookupError
	}
	for _, s := range configurationSentinels {
		if errors.Is(err, s) {
			return ConfigurationError
		}
	}
	return UnknownError
}
