// internal/stylesheet/parser.go
package stylesheet

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax marks malformed style sheet text.
var ErrSyntax = errors.New("style sheet syntax error")

// Declaration is one "Property: value" pair.
type Declaration struct {
	Property string
	Value    string
	Line     int
}

// Condition is an attribute selector such as [IsEnabled="False"]. A
// condition without an operator tests for the value true.
type Condition struct {
	Property string
	Operator string
	Value    string
}

// Selector picks the style a rule contributes to: TypeName alone is the
// implicit style of that type, #Key names a keyed style. Conditions turn
// the rule into a trigger on that style.
type Selector struct {
	TypeName   string
	Key        string
	Conditions []Condition
}

// Specificity orders triggers of one style: more conditions win, ties go
// to the later rule.
func (s Selector) Specificity() int {
	return len(s.Conditions)
}

// IsValid checks if the selector has at least one component.
func (s Selector) IsValid() bool {
	return s.TypeName != "" || s.Key != ""
}

func (s Selector) String() string {
	var b strings.Builder
	b.WriteString(s.TypeName)
	if s.Key != "" {
		b.WriteString("#")
		b.WriteString(s.Key)
	}
	for _, c := range s.Conditions {
		if c.Operator == "" {
			fmt.Fprintf(&b, "[%s]", c.Property)
			continue
		}
		fmt.Fprintf(&b, "[%s%s%q]", c.Property, c.Operator, c.Value)
	}
	return b.String()
}

// Rule applies its declarations to every selector in the group.
type Rule struct {
	Selectors    []Selector
	Declarations []Declaration
	Line         int
}

// Sheet is a parsed style sheet.
type Sheet struct {
	Rules []Rule
}

// Parser holds the state of the style sheet parser.
type Parser struct {
	input string
	pos   int
	errs  []error
}

func NewParser(input string) *Parser {
	return &Parser{input: input}
}

// Parse reads the whole input. Malformed rules are skipped and reported;
// the returned sheet holds every rule that parsed cleanly.
func (p *Parser) Parse() (Sheet, error) {
	var rules []Rule
	for {
		p.consumeWhitespace()
		if p.eof() {
			break
		}
		if p.startsWith("/*") {
			p.skipComment()
			continue
		}
		if p.currentChar() == '@' {
			p.fail("at-rules are not supported")
			p.skipAtRule()
			continue
		}

		line := p.line()
		selectors, err := p.parseSelectorGroup()
		if err != nil {
			p.errs = append(p.errs, err)
			p.skipTo('{')
			if !p.eof() {
				p.consumeChar()
				p.skipBlock('{', '}')
			}
			continue
		}

		declarations, err := p.parseDeclarations()
		if err != nil {
			p.errs = append(p.errs, err)
			continue
		}
		rules = append(rules, Rule{Selectors: selectors, Declarations: declarations, Line: line})
	}
	return Sheet{Rules: rules}, errors.Join(p.errs...)
}

// Parse is a shorthand for NewParser(src).Parse().
func Parse(src string) (Sheet, error) {
	return NewParser(src).Parse()
}

// parseSelectorGroup parses a comma-separated list of selectors.
func (p *Parser) parseSelectorGroup() ([]Selector, error) {
	var group []Selector
	for {
		p.consumeWhitespace()
		sel, err := p.parseSelector()
		if err != nil {
			return nil, err
		}
		group = append(group, sel)

		p.consumeWhitespace()
		switch {
		case p.eof():
			return nil, p.errorf("unexpected end of input after selector %s", sel)
		case p.currentChar() == '{':
			return group, nil
		case p.currentChar() == ',':
			p.consumeChar()
		default:
			return nil, p.errorf("unexpected %q after selector %s; combinators are not supported", p.currentChar(), sel)
		}
	}
}

// parseSelector parses Type#Key[Cond]... where every part is optional but
// one of Type and Key must be present.
func (p *Parser) parseSelector() (Selector, error) {
	var sel Selector
	if isValidIdentifierStart(p.currentChar()) {
		sel.TypeName = p.parseIdentifier()
	}

	for !p.eof() {
		switch p.currentChar() {
		case '#':
			p.consumeChar()
			if sel.Key != "" {
				return sel, p.errorf("selector %s has two keys", sel)
			}
			sel.Key = p.parseIdentifier()
			if sel.Key == "" {
				return sel, p.errorf("empty key in selector")
			}
		case '.':
			return sel, p.errorf("class selectors are not supported")
		case '[':
			p.consumeChar()
			c, err := p.parseCondition()
			if err != nil {
				return sel, err
			}
			sel.Conditions = append(sel.Conditions, c)
		default:
			goto done
		}
	}

done:
	if !sel.IsValid() {
		return sel, p.errorf("selector needs a type name or a #key")
	}
	return sel, nil
}

// parseCondition parses the contents of `[...]`.
func (p *Parser) parseCondition() (Condition, error) {
	p.consumeWhitespace()
	name := p.parsePropertyName()
	p.consumeWhitespace()
	if name == "" {
		return Condition{}, p.errorf("empty property in condition")
	}
	if p.eof() {
		return Condition{}, p.errorf("unexpected end of input in condition")
	}

	if p.currentChar() == ']' {
		p.consumeChar()
		return Condition{Property: name}, nil
	}

	if p.currentChar() != '=' {
		return Condition{}, p.errorf("condition operator %q is not supported", p.currentChar())
	}
	p.consumeChar()
	p.consumeWhitespace()

	var value string
	if ch := p.currentChar(); ch == '"' || ch == '\'' {
		p.consumeChar()
		start := p.pos
		for !p.eof() && p.currentChar() != ch {
			p.pos++
		}
		value = p.input[start:p.pos]
		if p.eof() {
			return Condition{}, p.errorf("unterminated string in condition")
		}
		p.consumeChar()
	} else {
		start := p.pos
		for !p.eof() && p.currentChar() != ']' && !isWhitespace(p.currentChar()) {
			p.pos++
		}
		value = p.input[start:p.pos]
	}
	p.consumeWhitespace()

	if p.eof() || p.currentChar() != ']' {
		return Condition{}, p.errorf("expected ']' to close condition")
	}
	p.consumeChar()
	return Condition{Property: name, Operator: "=", Value: value}, nil
}

// parseDeclarations parses the content within { ... }.
func (p *Parser) parseDeclarations() ([]Declaration, error) {
	p.consumeWhitespace()
	if p.eof() || p.currentChar() != '{' {
		return nil, p.errorf("expected '{' at start of declarations")
	}
	p.consumeChar()

	var declarations []Declaration
	for {
		p.consumeWhitespace()
		if p.eof() {
			return nil, p.errorf("unterminated declaration block")
		}
		if p.currentChar() == '}' {
			p.consumeChar()
			return declarations, nil
		}
		if p.currentChar() == ';' {
			p.consumeChar()
			continue
		}
		if p.startsWith("/*") {
			p.skipComment()
			continue
		}

		d, err := p.parseDeclaration()
		if err != nil {
			p.errs = append(p.errs, err)
			continue
		}
		declarations = append(declarations, d)
	}
}

// parseDeclaration parses a single 'Property: value;' pair.
func (p *Parser) parseDeclaration() (Declaration, error) {
	line := p.line()
	skip := func() {
		p.skipTo(';', '}')
		if !p.eof() && p.currentChar() == ';' {
			p.consumeChar()
		}
	}

	name := p.parsePropertyName()
	if name == "" {
		err := p.errorf("expected a property name, found %q", p.currentChar())
		if !p.eof() {
			p.consumeChar()
		}
		skip()
		return Declaration{}, err
	}
	p.consumeWhitespace()
	if p.eof() || p.currentChar() != ':' {
		err := p.errorf("expected ':' after %s", name)
		skip()
		return Declaration{}, err
	}
	p.consumeChar()
	p.consumeWhitespace()

	value := p.parseValue()
	if value == "" {
		err := p.errorf("empty value for %s", name)
		skip()
		return Declaration{}, err
	}
	if !p.eof() && p.currentChar() == ';' {
		p.consumeChar()
	}
	return Declaration{Property: name, Value: value, Line: line}, nil
}

// parseValue reads a value until a delimiter. Quotes and parentheses
// may contain delimiters.
func (p *Parser) parseValue() string {
	start := p.pos
	for !p.eof() {
		ch := p.currentChar()
		if ch == ';' || ch == '}' {
			break
		}
		if ch == '"' || ch == '\'' {
			p.skipQuotedString(ch)
			continue
		}
		if ch == '(' {
			p.consumeChar()
			p.skipBlock('(', ')')
			continue
		}
		p.pos++
	}
	return strings.TrimSpace(p.input[start:p.pos])
}

// -- Lexer-like Helpers --

func (p *Parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *Parser) currentChar() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) consumeChar() byte {
	ch := p.currentChar()
	if !p.eof() {
		p.pos++
	}
	return ch
}

func (p *Parser) consumeWhitespace() {
	for !p.eof() && isWhitespace(p.currentChar()) {
		p.pos++
	}
}

func (p *Parser) startsWith(s string) bool {
	return strings.HasPrefix(p.input[p.pos:], s)
}

func (p *Parser) line() int {
	return strings.Count(p.input[:p.pos], "\n") + 1
}

func (p *Parser) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s: %w", p.line(), fmt.Sprintf(format, args...), ErrSyntax)
}

func (p *Parser) fail(msg string) {
	p.errs = append(p.errs, p.errorf("%s", msg))
}

func (p *Parser) skipComment() {
	p.pos += 2
	end := strings.Index(p.input[p.pos:], "*/")
	if end == -1 {
		p.fail("unterminated comment")
		p.pos = len(p.input)
		return
	}
	p.pos += end + 2
}

func (p *Parser) skipTo(targets ...byte) {
	for !p.eof() {
		ch := p.currentChar()
		for _, target := range targets {
			if ch == target {
				return
			}
		}
		p.pos++
	}
}

// skipBlock skips past the close that balances an already consumed open.
func (p *Parser) skipBlock(open, closing byte) {
	depth := 1
	for !p.eof() {
		c := p.consumeChar()
		if c == open {
			depth++
		} else if c == closing {
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

func (p *Parser) skipQuotedString(quote byte) {
	p.consumeChar()
	for !p.eof() {
		ch := p.consumeChar()
		if ch == '\\' {
			p.consumeChar()
		} else if ch == quote {
			return
		}
	}
}

func (p *Parser) skipAtRule() {
	p.consumeChar()
	_ = p.parseIdentifier()
	for !p.eof() {
		ch := p.currentChar()
		if ch == '{' {
			p.consumeChar()
			p.skipBlock('{', '}')
			return
		}
		if ch == ';' {
			p.consumeChar()
			return
		}
		p.pos++
	}
}

func (p *Parser) parseIdentifier() string {
	start := p.pos
	for !p.eof() && isValidIdentifierChar(p.currentChar()) {
		p.pos++
	}
	return p.input[start:p.pos]
}

// parsePropertyName is an identifier that may be qualified by its owner,
// as in Canvas.Left.
func (p *Parser) parsePropertyName() string {
	start := p.pos
	if !isValidIdentifierStart(p.currentChar()) {
		return ""
	}
	for !p.eof() && (isValidIdentifierChar(p.currentChar()) || p.currentChar() == '.') {
		p.pos++
	}
	return p.input[start:p.pos]
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isValidIdentifierStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '-'
}

func isValidIdentifierChar(ch byte) bool {
	return isValidIdentifierStart(ch) || (ch >= '0' && ch <= '9')
}
