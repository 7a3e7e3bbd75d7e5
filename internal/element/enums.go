// internal/element/enums.go
package element

import (
	"fmt"
	"strings"
)

type HorizontalAlignment int

const (
	HorizontalLeft HorizontalAlignment = iota
	HorizontalCenter
	HorizontalRight
	HorizontalStretch
)

var horizontalNames = []string{"Left", "Center", "Right", "Stretch"}

func (a HorizontalAlignment) String() string { return enumName(horizontalNames, int(a)) }

type VerticalAlignment int

const (
	VerticalTop VerticalAlignment = iota
	VerticalCenter
	VerticalBottom
	VerticalStretch
)

var verticalNames = []string{"Top", "Center", "Bottom", "Stretch"}

func (a VerticalAlignment) String() string { return enumName(verticalNames, int(a)) }

type FlowDirection int

const (
	LeftToRight FlowDirection = iota
	RightToLeft
)

var flowNames = []string{"LeftToRight", "RightToLeft"}

func (f FlowDirection) String() string { return enumName(flowNames, int(f)) }

type Visibility int

const (
	Visible Visibility = iota
	Hidden
	Collapsed
)

var visibilityNames = []string{"Visible", "Hidden", "Collapsed"}

func (v Visibility) String() string { return enumName(visibilityNames, int(v)) }

type Orientation int

const (
	OrientationVertical Orientation = iota
	OrientationHorizontal
)

var orientationNames = []string{"Vertical", "Horizontal"}

func (o Orientation) String() string { return enumName(orientationNames, int(o)) }

// InheritanceBehavior controls how far property inheritance and resource
// lookup reach above a node. The Now variants apply to the node itself;
// the Next variants apply to its descendants.
type InheritanceBehavior int

const (
	InheritDefault InheritanceBehavior = iota
	SkipToAppNow
	SkipToAppNext
	SkipToThemeNow
	SkipToThemeNext
	SkipAllNow
	SkipAllNext
)

var inheritanceNames = []string{
	"Default", "SkipToAppNow", "SkipToAppNext", "SkipToThemeNow", "SkipToThemeNext", "SkipAllNow", "SkipAllNext",
}

func (b InheritanceBehavior) String() string { return enumName(inheritanceNames, int(b)) }

// SkipsNow reports whether the node itself is cut off from its ancestors.
func (b InheritanceBehavior) SkipsNow() bool {
	return b == SkipToAppNow || b == SkipToThemeNow || b == SkipAllNow
}

// SkipsNext reports whether the node's descendants are cut off at the node.
func (b InheritanceBehavior) SkipsNext() bool {
	return b == SkipToAppNext || b == SkipToThemeNext || b == SkipAllNext
}

// ReachesApp reports whether resource lookup continues into the application
// dictionary after stopping at this boundary.
func (b InheritanceBehavior) ReachesApp() bool {
	return b == InheritDefault || b == SkipToAppNow || b == SkipToAppNext
}

// ReachesTheme reports whether resource lookup reaches the theme dictionary.
func (b InheritanceBehavior) ReachesTheme() bool {
	return b != SkipAllNow && b != SkipAllNext
}

// ParseInheritanceBehavior parses a behavior name, case-insensitively.
func ParseInheritanceBehavior(s string) (InheritanceBehavior, error) {
	i, err := parseEnum(inheritanceNames, s)
	return InheritanceBehavior(i), err
}

func enumName(names []string, i int) string {
	if i >= 0 && i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("%d", i)
}

func parseEnum(names []string, s string) (int, error) {
	s = strings.TrimSpace(s)
	for i, n := range names {
		if strings.EqualFold(n, s) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%q is not one of %s", s, strings.Join(names, ", "))
}

func enumParser[T ~int](names []string) func(string) (any, error) {
	return func(s string) (any, error) {
		i, err := parseEnum(names, s)
		if err != nil {
			return nil, err
		}
		return T(i), nil
	}
}

func enumValidator[T ~int](names []string) func(any) bool {
	return func(v any) bool {
		e, ok := v.(T)
		return ok && int(e) >= 0 && int(e) < len(names)
	}
}
