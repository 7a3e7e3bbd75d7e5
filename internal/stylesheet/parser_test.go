// internal/stylesheet/parser_test.go
package stylesheet

import (
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper functions to build expected structures concisely
func d(prop, val string, line int) Declaration {
	return Declaration{Property: prop, Value: val, Line: line}
}

func sel(typeName, key string, conds ...Condition) Selector {
	return Selector{TypeName: typeName, Key: key, Conditions: conds}
}

func TestParseSelectors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Selector
	}{
		{"Type", "Button", sel("Button", "")},
		{"Key", "#Primary", sel("", "Primary")},
		{"Type and key", "Button#Primary", sel("Button", "Primary")},
		{"Presence", "Button[IsEnabled]", sel("Button", "", Condition{Property: "IsEnabled"})},
		{"Quoted", `Button[IsEnabled="False"]`, sel("Button", "", Condition{Property: "IsEnabled", Operator: "=", Value: "False"})},
		{"Single quoted", `Button[Tag='a b']`, sel("Button", "", Condition{Property: "Tag", Operator: "=", Value: "a b"})},
		{"Bare value", `Button[FontSize=14]`, sel("Button", "", Condition{Property: "FontSize", Operator: "=", Value: "14"})},
		{"Qualified property", `Label[Canvas.Left="0"]`, sel("Label", "", Condition{Property: "Canvas.Left", Operator: "=", Value: "0"})},
		{"Mixed", `Button#Ok[IsEnabled="False"][Tag="x"]`, sel("Button", "Ok",
			Condition{Property: "IsEnabled", Operator: "=", Value: "False"},
			Condition{Property: "Tag", Operator: "=", Value: "x"},
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(tt.input + " { }")
			group, err := p.parseSelectorGroup()
			require.NoError(t, err)
			require.Len(t, group, 1)
			assert.Equal(t, tt.expected, group[0])
		})
	}
}

func TestParseSelectorGroup(t *testing.T) {
	p := NewParser("Button, Label#Title,\n  #Base { }")
	group, err := p.parseSelectorGroup()
	require.NoError(t, err)
	assert.Equal(t, []Selector{sel("Button", ""), sel("Label", "Title"), sel("", "Base")}, group)
}

func TestParseSelector_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Combinator", "StackPanel > Button"},
		{"Descendant", "StackPanel Button"},
		{"Class", "Button.primary"},
		{"Operator", `Button[Tag^="a"]`},
		{"Two keys", "#A#B"},
		{"Empty", "[IsEnabled]"},
		{"Unterminated condition", `Button[Tag="x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(tt.input + " { }").parseSelectorGroup()
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestParseDeclarations(t *testing.T) {
	input := `{
		Foreground: Red;
		Margin: 1, 2, 3, 4;
		RenderTransform: rotate(30) scale(2; 2);
		/* Comment between declarations */
		Canvas.Left: 10;;
		Tag: "a; b"
	}`
	p := NewParser(input)

	got, err := p.parseDeclarations()
	require.NoError(t, err)

	expected := []Declaration{
		d("Foreground", "Red", 2),
		d("Margin", "1, 2, 3, 4", 3),
		d("RenderTransform", "rotate(30) scale(2; 2)", 4),
		d("Canvas.Left", "10", 6),
		d("Tag", `"a; b"`, 7),
	}
	assert.Equal(t, expected, got)
	assert.Empty(t, p.errs)
}

func TestSpecificity(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"Button", 0},
		{"#Key", 0},
		{"Button[IsEnabled]", 1},
		{`Button#Key[IsEnabled="False"][Tag="x"]`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			group, err := NewParser(tt.input + " {}").parseSelectorGroup()
			require.NoError(t, err)
			assert.Equal(t, tt.want, group[0].Specificity())
		})
	}
}

func TestEdgeCasesAndSkipping(t *testing.T) {
	t.Run("Skip Comments", func(t *testing.T) {
		sheet, err := Parse(`/* Start */ Button { Tag: x; } /* End */`)
		require.NoError(t, err)
		require.Len(t, sheet.Rules, 1)
		assert.Equal(t, "Tag", sheet.Rules[0].Declarations[0].Property)
	})

	t.Run("At-Rules reported and skipped", func(t *testing.T) {
		sheet, err := Parse(`@media screen { Label { Tag: a; } } Button { Tag: b; } @import "x";`)
		assert.ErrorIs(t, err, ErrSyntax)
		require.Len(t, sheet.Rules, 1)
		assert.Equal(t, "Button", sheet.Rules[0].Selectors[0].TypeName)
	})

	t.Run("Malformed Declarations Recovery", func(t *testing.T) {
		p := NewParser(`{ Foreground: ; FontSize: 12; Tag }`)
		decls, err := p.parseDeclarations()
		require.NoError(t, err)
		require.Len(t, decls, 1)
		assert.Equal(t, "FontSize", decls[0].Property)
		assert.Len(t, p.errs, 2)
	})

	t.Run("Bad rule does not hide the next", func(t *testing.T) {
		sheet, err := Parse("A > B { Tag: x; }\nButton { Tag: y; }")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 1")
		require.Len(t, sheet.Rules, 1)
		assert.Equal(t, 2, sheet.Rules[0].Line)
	})

	t.Run("Unterminated block", func(t *testing.T) {
		sheet, err := Parse("Button { Tag: x;")
		assert.ErrorIs(t, err, ErrSyntax)
		assert.Empty(t, sheet.Rules)
	})

	t.Run("Unterminated comment", func(t *testing.T) {
		_, err := Parse("Button { Tag: x; } /* open")
		assert.ErrorIs(t, err, ErrSyntax)
	})
}

// FuzzParse checks that arbitrary input never panics or loops and that
// every returned rule is well formed.
func FuzzParse(f *testing.F) {
	f.Add([]byte(`Button#Ok[IsEnabled="False"] { Foreground: Gray; based-on: Base; }`))
	f.Add([]byte(`@x { } /* */ A, B { C: d(;) }`))
	f.Fuzz(func(t *testing.T, data []byte) {
		c := fuzz.NewConsumer(data)
		src, err := c.GetString()
		if err != nil {
			return
		}
		sheet, _ := Parse(src)
		for _, r := range sheet.Rules {
			require.NotEmpty(t, r.Selectors)
			for _, s := range r.Selectors {
				require.True(t, s.IsValid())
			}
			for _, decl := range r.Declarations {
				require.NotEmpty(t, decl.Property)
				require.NotEmpty(t, decl.Value)
			}
		}
	})
}
