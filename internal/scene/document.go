// internal/scene/document.go
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/elementcore/internal/geometry"
)

var (
	ErrInvalidScene = errors.New("invalid scene")
	ErrUnknownNode  = errors.New("no node with that name")
)

// Document is a scene file: resources and style sheets for the
// application and theme scopes, named templates, and the element tree.
type Document struct {
	Application Scope                   `yaml:"application"`
	Theme       Scope                   `yaml:"theme"`
	Templates   map[string]TemplateSpec `yaml:"templates"`
	Viewport    *SizeSpec               `yaml:"viewport"`
	Root        NodeSpec                `yaml:"root"`
}

// Scope is a resource dictionary plus a style sheet compiled into it.
type Scope struct {
	Resources  map[string]ResourceSpec `yaml:"resources"`
	Stylesheet string                  `yaml:"stylesheet"`
}

type SizeSpec struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// NodeSpec describes one element and its logical children. Property values
// are text in the syntax of the property's parser; resource(Key) makes a
// resource reference.
type NodeSpec struct {
	Kind        string                  `yaml:"kind"`
	Type        string                  `yaml:"type"`
	Name        string                  `yaml:"name"`
	Inheritance string                  `yaml:"inheritance"`
	Template    string                  `yaml:"template"`
	Properties  map[string]string       `yaml:"properties"`
	Resources   map[string]ResourceSpec `yaml:"resources"`
	Stylesheet  string                  `yaml:"stylesheet"`
	Children    []NodeSpec              `yaml:"children"`
}

type TemplateSpec struct {
	TargetType string                  `yaml:"target"`
	Root       ChildSpec               `yaml:"root"`
	Triggers   []TriggerSpec           `yaml:"triggers"`
	Resources  map[string]ResourceSpec `yaml:"resources"`
}

type ChildSpec struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	Properties map[string]string `yaml:"properties"`
	Children   []ChildSpec       `yaml:"children"`
}

type TriggerSpec struct {
	Conditions []ConditionSpec `yaml:"conditions"`
	Setters    []SetterSpec    `yaml:"setters"`
}

type ConditionSpec struct {
	Property string `yaml:"property"`
	Value    string `yaml:"value"`
	Source   string `yaml:"source"`
}

type SetterSpec struct {
	Property string `yaml:"property"`
	Value    string `yaml:"value"`
	Target   string `yaml:"target"`
}

// ResourceSpec is a dictionary value. A plain scalar keeps its YAML type,
// with integers widened to float64; the {type, value} form parses text as
// string, float, bool, thickness, point or transform.
type ResourceSpec struct {
	Value any
}

func (r *ResourceSpec) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}
		if i, ok := v.(int); ok {
			v = float64(i)
		}
		r.Value = v
		return nil
	case yaml.MappingNode:
		var typed struct {
			Type  string `yaml:"type"`
			Value string `yaml:"value"`
		}
		if err := n.Decode(&typed); err != nil {
			return err
		}
		v, err := parseTyped(typed.Type, typed.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		r.Value = v
		return nil
	}
	return fmt.Errorf("line %d: resource must be a scalar or {type, value}: %w", n.Line, ErrInvalidScene)
}

func parseTyped(typ, text string) (any, error) {
	switch strings.ToLower(typ) {
	case "", "string":
		return text, nil
	case "float", "number":
		var f float64
		if _, err := fmt.Sscan(text, &f); err != nil {
			return nil, fmt.Errorf("float %q: %w", text, ErrInvalidScene)
		}
		return f, nil
	case "bool":
		switch strings.ToLower(text) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("bool %q: %w", text, ErrInvalidScene)
	case "thickness":
		return geometry.ParseThickness(text)
	case "point":
		return geometry.ParsePoint(text)
	case "transform":
		return geometry.ParseTransform(text)
	}
	return nil, fmt.Errorf("unknown resource type %q: %w", typ, ErrInvalidScene)
}

// Parse decodes a scene document. Unknown fields are rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	return &doc, nil
}

// LoadFile reads and parses the scene at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ViewportOr returns the document's viewport, or fallback when none is set.
func (d *Document) ViewportOr(fallback geometry.Size) geometry.Size {
	if d.Viewport == nil {
		return fallback
	}
	return geometry.Size{Width: d.Viewport.Width, Height: d.Viewport.Height}
}
