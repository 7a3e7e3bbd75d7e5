// internal/stylesheet/compile.go
package stylesheet

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xkilldash9x/elementcore/internal/element"
	"github.com/xkilldash9x/elementcore/internal/property"
	"github.com/xkilldash9x/elementcore/internal/resource"
	"github.com/xkilldash9x/elementcore/internal/styling"
)

var (
	ErrUnknownBase = errors.New("based-on names no known style")
	ErrBadValue    = errors.New("invalid value")
)

// basedOnProperty is the pseudo property that links a style to its base.
const basedOnProperty = "based-on"

// PropertyResolver maps a property name to its key.
type PropertyResolver func(name string) (*property.Key, error)

// Option configures a compilation.
type Option func(*compiler)

// WithPropertyResolver replaces the framework property lookup.
func WithPropertyResolver(r PropertyResolver) Option {
	return func(c *compiler) {
		if r != nil {
			c.resolve = r
		}
	}
}

// WithBaseDictionary lets based-on refer to styles defined outside the
// sheet, by key or by type name.
func WithBaseDictionary(d *resource.Dictionary) Option {
	return func(c *compiler) { c.bases = d }
}

type pendingTrigger struct {
	trigger     styling.Trigger
	specificity int
	order       int
}

type compiler struct {
	resolve PropertyResolver
	bases   *resource.Dictionary

	styles   map[any]*styling.Style
	order    []any
	basedOn  map[any]Declaration
	triggers map[any][]pendingTrigger
	seq      int
	errs     []error
}

// Compile turns a parsed sheet into sealed styles, in order of first
// appearance. An unkeyed selector yields the implicit style of its type,
// keyed by resource.TypeKey; a #Key selector yields a style keyed by the
// string Key. All problems are reported together.
func Compile(sheet Sheet, opts ...Option) ([]*styling.Style, error) {
	c := &compiler{
		resolve:  element.FindProperty,
		styles:   make(map[any]*styling.Style),
		basedOn:  make(map[any]Declaration),
		triggers: make(map[any][]pendingTrigger),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, r := range sheet.Rules {
		for _, sel := range r.Selectors {
			c.addRule(sel, r)
		}
	}
	c.attachTriggers()
	c.linkBases()

	out := make([]*styling.Style, 0, len(c.order))
	for _, key := range c.order {
		s := c.styles[key]
		if err := s.Seal(); err != nil {
			c.errs = append(c.errs, err)
			continue
		}
		out = append(out, s)
	}
	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}
	return out, nil
}

// Load parses and compiles src and stores every style in d under its key,
// replacing existing entries.
func Load(src string, d *resource.Dictionary, opts ...Option) error {
	sheet, err := Parse(src)
	if err != nil {
		return err
	}
	styles, err := Compile(sheet, opts...)
	if err != nil {
		return err
	}
	for _, s := range styles {
		if err := d.Set(s.Key, s); err != nil {
			return fmt.Errorf("installing %s: %w", s, err)
		}
	}
	return nil
}

func styleKey(sel Selector) any {
	if sel.Key != "" {
		return sel.Key
	}
	return resource.TypeKey(sel.TypeName)
}

func (c *compiler) style(sel Selector) (any, *styling.Style) {
	key := styleKey(sel)
	if s, ok := c.styles[key]; ok {
		if sel.TypeName != "" && s.TargetType == "" {
			s.TargetType = sel.TypeName
		}
		return key, s
	}
	s := &styling.Style{Key: key, TargetType: sel.TypeName}
	c.styles[key] = s
	c.order = append(c.order, key)
	return key, s
}

func (c *compiler) addRule(sel Selector, r Rule) {
	key, s := c.style(sel)

	var setters []styling.Setter
	for _, d := range r.Declarations {
		if strings.EqualFold(d.Property, basedOnProperty) {
			if len(sel.Conditions) > 0 {
				c.errs = append(c.errs, fmt.Errorf("line %d: %s: based-on inside a conditional rule: %w", d.Line, sel, ErrSyntax))
				continue
			}
			c.basedOn[key] = d
			continue
		}
		st, err := c.setter(d)
		if err != nil {
			c.errs = append(c.errs, err)
			continue
		}
		setters = append(setters, st)
	}

	if len(sel.Conditions) == 0 {
		s.Setters = append(s.Setters, setters...)
		return
	}

	conds := make([]styling.Condition, 0, len(sel.Conditions))
	for _, sc := range sel.Conditions {
		cond, err := c.condition(sc)
		if err != nil {
			c.errs = append(c.errs, fmt.Errorf("line %d: %s: %w", r.Line, sel, err))
			return
		}
		conds = append(conds, cond)
	}
	c.seq++
	c.triggers[key] = append(c.triggers[key], pendingTrigger{
		trigger:     styling.Trigger{Conditions: conds, Setters: setters},
		specificity: sel.Specificity(),
		order:       c.seq,
	})
}

func (c *compiler) setter(d Declaration) (styling.Setter, error) {
	k, err := c.resolve(d.Property)
	if err != nil {
		return styling.Setter{}, fmt.Errorf("line %d: %w", d.Line, err)
	}
	v, err := ParseValue(k, d.Value)
	if err != nil {
		return styling.Setter{}, fmt.Errorf("line %d: %w", d.Line, err)
	}
	return styling.Setter{Property: k, Value: v}, nil
}

func (c *compiler) condition(sc Condition) (styling.Condition, error) {
	k, err := c.resolve(sc.Property)
	if err != nil {
		return styling.Condition{}, err
	}
	if sc.Operator == "" {
		if err := k.Validate(true); err != nil {
			return styling.Condition{}, fmt.Errorf("[%s] needs a boolean property: %w", sc.Property, err)
		}
		return styling.Condition{Property: k, Value: true}, nil
	}
	v, err := k.Parse(sc.Value)
	if err != nil {
		return styling.Condition{}, fmt.Errorf("%s=%q: %w", sc.Property, sc.Value, err)
	}
	return styling.Condition{Property: k, Value: v}, nil
}

// attachTriggers appends each style's triggers weakest first, since later
// triggers take precedence.
func (c *compiler) attachTriggers() {
	for key, pending := range c.triggers {
		sort.SliceStable(pending, func(i, j int) bool {
			if pending[i].specificity != pending[j].specificity {
				return pending[i].specificity < pending[j].specificity
			}
			return pending[i].order < pending[j].order
		})
		s := c.styles[key]
		for _, p := range pending {
			s.Triggers = append(s.Triggers, p.trigger)
		}
	}
}

// linkBases resolves based-on names: a keyed style of the sheet first,
// then the implicit style of that type name, then the base dictionary.
func (c *compiler) linkBases() {
	for _, key := range c.order {
		d, ok := c.basedOn[key]
		if !ok {
			continue
		}
		name := strings.TrimSpace(d.Value)
		base := c.lookupBase(name)
		if base == nil {
			c.errs = append(c.errs, fmt.Errorf("line %d: %q: %w", d.Line, name, ErrUnknownBase))
			continue
		}
		c.styles[key].BasedOn = base
	}
}

func (c *compiler) lookupBase(name string) *styling.Style {
	if s, ok := c.styles[name]; ok {
		return s
	}
	if s, ok := c.styles[resource.TypeKey(name)]; ok {
		return s
	}
	if c.bases == nil {
		return nil
	}
	for _, key := range []any{name, resource.TypeKey(name)} {
		v, ok, err := c.bases.Get(key)
		if err != nil || !ok {
			continue
		}
		if s, isStyle := v.(*styling.Style); isStyle {
			return s
		}
	}
	return nil
}

// ParseValue converts declaration text for k. resource(Key) yields a
// resource reference; a quoted value is unquoted before parsing.
func ParseValue(k *property.Key, text string) (any, error) {
	text = strings.TrimSpace(text)
	if inner, ok := strings.CutPrefix(text, "resource("); ok {
		inner, ok = strings.CutSuffix(inner, ")")
		inner = strings.TrimSpace(inner)
		if !ok || inner == "" {
			return nil, fmt.Errorf("%s: %q: %w", k.FullName(), text, ErrBadValue)
		}
		return resource.Ref{Key: unquote(inner)}, nil
	}
	return k.Parse(unquote(text))
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		if s[0] == '"' {
			if u, err := strconv.Unquote(s); err == nil {
				return u
			}
		}
		return s[1 : len(s)-1]
	}
	return s
}
