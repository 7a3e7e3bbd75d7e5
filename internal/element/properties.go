// internal/element/properties.go
package element

import (
	"math"
	"reflect"
	"strings"

	"github.com/xkilldash9x/elementcore/internal/geometry"
	"github.com/xkilldash9x/elementcore/internal/property"
	"github.com/xkilldash9x/elementcore/internal/styling"
)

// Owner names used when registering the framework properties.
const (
	OwnerElement    = "Element"
	OwnerText       = "Text"
	OwnerStackPanel = "StackPanel"
	OwnerCanvas     = "Canvas"
)

var propertyOwners = []string{OwnerElement, OwnerText, OwnerStackPanel, OwnerCanvas}

// -- Validators --

// isSizeValid accepts NaN (Auto) or a finite non-negative value.
func isSizeValid(v any) bool {
	f := v.(float64)
	return math.IsNaN(f) || (f >= 0 && !math.IsInf(f, 0))
}

func isMinSizeValid(v any) bool {
	f := v.(float64)
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}

func isMaxSizeValid(v any) bool {
	f := v.(float64)
	return !math.IsNaN(f) && f >= 0
}

func isMarginValid(v any) bool {
	return v.(geometry.Thickness).IsFinite()
}

func isPaddingValid(v any) bool {
	t := v.(geometry.Thickness)
	return t.IsFinite() && t.IsNonNegative()
}

func isFontSizeValid(v any) bool {
	f := v.(float64)
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}

func isCoordinateValid(v any) bool {
	f := v.(float64)
	return math.IsNaN(f) || !math.IsInf(f, 0)
}

func isTransformValid(v any) bool {
	m := v.(geometry.Matrix)
	for _, f := range []float64{m.A, m.B, m.C, m.D, m.E, m.F} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// -- Parsers --

func parseThickness(s string) (any, error) { return geometry.ParseThickness(s) }
func parsePoint(s string) (any, error)     { return geometry.ParsePoint(s) }
func parseTransform(s string) (any, error) { return geometry.ParseTransform(s) }

var (
	styleType    = reflect.TypeOf((*styling.Style)(nil))
	templateType = reflect.TypeOf((*styling.Template)(nil))
)

// -- Framework properties --

var (
	WidthProperty = property.Global.MustRegister("Width", OwnerElement, property.Metadata{
		Default: math.NaN(), Flags: property.AffectsMeasure, Validate: isSizeValid, Parse: property.ParseFloat,
	})
	HeightProperty = property.Global.MustRegister("Height", OwnerElement, property.Metadata{
		Default: math.NaN(), Flags: property.AffectsMeasure, Validate: isSizeValid, Parse: property.ParseFloat,
	})
	MinWidthProperty = property.Global.MustRegister("MinWidth", OwnerElement, property.Metadata{
		Default: 0.0, Flags: property.AffectsMeasure, Validate: isMinSizeValid, Parse: property.ParseFloat,
	})
	MinHeightProperty = property.Global.MustRegister("MinHeight", OwnerElement, property.Metadata{
		Default: 0.0, Flags: property.AffectsMeasure, Validate: isMinSizeValid, Parse: property.ParseFloat,
	})
	MaxWidthProperty = property.Global.MustRegister("MaxWidth", OwnerElement, property.Metadata{
		Default: math.Inf(1), Flags: property.AffectsMeasure, Validate: isMaxSizeValid, Parse: property.ParseFloat,
	})
	MaxHeightProperty = property.Global.MustRegister("MaxHeight", OwnerElement, property.Metadata{
		Default: math.Inf(1), Flags: property.AffectsMeasure, Validate: isMaxSizeValid, Parse: property.ParseFloat,
	})
	MarginProperty = property.Global.MustRegister("Margin", OwnerElement, property.Metadata{
		Default: geometry.Thickness{}, Flags: property.AffectsMeasure, Validate: isMarginValid, Parse: parseThickness,
	})
	PaddingProperty = property.Global.MustRegister("Padding", OwnerElement, property.Metadata{
		Default: geometry.Thickness{}, Flags: property.AffectsMeasure, Validate: isPaddingValid, Parse: parseThickness,
	})
	BorderThicknessProperty = property.Global.MustRegister("BorderThickness", OwnerElement, property.Metadata{
		Default: geometry.Thickness{}, Flags: property.AffectsMeasure | property.AffectsRender, Validate: isPaddingValid, Parse: parseThickness,
	})
	HorizontalAlignmentProperty = property.Global.MustRegister("HorizontalAlignment", OwnerElement, property.Metadata{
		Default:  HorizontalStretch,
		Flags:    property.AffectsArrange,
		Validate: enumValidator[HorizontalAlignment](horizontalNames),
		Parse:    enumParser[HorizontalAlignment](horizontalNames),
	})
	VerticalAlignmentProperty = property.Global.MustRegister("VerticalAlignment", OwnerElement, property.Metadata{
		Default:  VerticalStretch,
		Flags:    property.AffectsArrange,
		Validate: enumValidator[VerticalAlignment](verticalNames),
		Parse:    enumParser[VerticalAlignment](verticalNames),
	})
	FlowDirectionProperty = property.Global.MustRegister("FlowDirection", OwnerElement, property.Metadata{
		Default:  LeftToRight,
		Flags:    property.Inherits | property.AffectsArrange,
		Validate: enumValidator[FlowDirection](flowNames),
		Parse:    enumParser[FlowDirection](flowNames),
	})
	VisibilityProperty = property.Global.MustRegister("Visibility", OwnerElement, property.Metadata{
		Default:  Visible,
		Flags:    property.AffectsMeasure | property.AffectsParentMeasure | property.AffectsRender,
		Validate: enumValidator[Visibility](visibilityNames),
		Parse:    enumParser[Visibility](visibilityNames),
	})
	ClipToBoundsProperty = property.Global.MustRegister("ClipToBounds", OwnerElement, property.Metadata{
		Default: false, Flags: property.AffectsRender, Parse: property.ParseBool,
	})
	UseLayoutRoundingProperty = property.Global.MustRegister("UseLayoutRounding", OwnerElement, property.Metadata{
		Default: false, Flags: property.Inherits | property.AffectsMeasure, Parse: property.ParseBool,
	})
	LayoutTransformProperty = property.Global.MustRegister("LayoutTransform", OwnerElement, property.Metadata{
		Default: geometry.Identity(), Flags: property.AffectsMeasure, Validate: isTransformValid, Parse: parseTransform,
	})
	RenderTransformProperty = property.Global.MustRegister("RenderTransform", OwnerElement, property.Metadata{
		Default: geometry.Identity(), Flags: property.AffectsArrange | property.AffectsRender, Validate: isTransformValid, Parse: parseTransform,
	})
	RenderTransformOriginProperty = property.Global.MustRegister("RenderTransformOrigin", OwnerElement, property.Metadata{
		Default: geometry.Point{}, Flags: property.AffectsArrange, Parse: parsePoint,
	})
	StyleProperty = property.Global.MustRegister("Style", OwnerElement, property.Metadata{
		Type: styleType, Flags: property.AffectsMeasure,
	})
	TemplateProperty = property.Global.MustRegister("Template", OwnerElement, property.Metadata{
		Type: templateType, Flags: property.AffectsMeasure,
	})
	OverridesDefaultStyleProperty = property.Global.MustRegister("OverridesDefaultStyle", OwnerElement, property.Metadata{
		Default: false, Flags: property.AffectsMeasure, Parse: property.ParseBool,
	})
	IsEnabledProperty = property.Global.MustRegister("IsEnabled", OwnerElement, property.Metadata{
		Default: true, Flags: property.Inherits | property.AffectsRender, Parse: property.ParseBool,
	})
	TagProperty = property.Global.MustRegister("Tag", OwnerElement, property.Metadata{
		Parse: property.ParseString,
	})
	NameProperty = property.Global.MustRegister("Name", OwnerElement, property.Metadata{
		Default: "", Parse: property.ParseString,
	})

	FontSizeProperty = property.Global.MustRegister("FontSize", OwnerText, property.Metadata{
		Default: 12.0, Flags: property.Inherits | property.AffectsMeasure, Validate: isFontSizeValid, Parse: property.ParseFloat,
	})
	ForegroundProperty = property.Global.MustRegister("Foreground", OwnerText, property.Metadata{
		Default: "Black", Flags: property.Inherits | property.AffectsRender, Parse: property.ParseString,
	})
	TextProperty = property.Global.MustRegister("Text", OwnerText, property.Metadata{
		Default: "", Flags: property.AffectsMeasure, Parse: property.ParseString,
	})

	OrientationProperty = property.Global.MustRegister("Orientation", OwnerStackPanel, property.Metadata{
		Default:  OrientationVertical,
		Flags:    property.AffectsMeasure,
		Validate: enumValidator[Orientation](orientationNames),
		Parse:    enumParser[Orientation](orientationNames),
	})

	CanvasLeftProperty = property.Global.MustRegister("Left", OwnerCanvas, property.Metadata{
		Default: math.NaN(), Flags: property.AffectsParentArrange, Validate: isCoordinateValid, Parse: property.ParseFloat,
	})
	CanvasTopProperty = property.Global.MustRegister("Top", OwnerCanvas, property.Metadata{
		Default: math.NaN(), Flags: property.AffectsParentArrange, Validate: isCoordinateValid, Parse: property.ParseFloat,
	})
)

// FindProperty resolves a property by "Owner.Name" or by a bare name
// against the framework owners.
func FindProperty(name string) (*property.Key, error) {
	return property.Global.Find(strings.TrimSpace(name), propertyOwners...)
}
