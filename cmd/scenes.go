// File: cmd/scenes.go
package cmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/elementcore/internal/config"
	"github.com/xkilldash9x/elementcore/internal/element"
	"github.com/xkilldash9x/elementcore/internal/geometry"
	"github.com/xkilldash9x/elementcore/internal/scene"
)

// newTree creates a tree bounded by the configured limits. d may be nil for
// single-goroutine use.
func newTree(cfg config.Interface, logger *zap.Logger, d *element.Dispatcher) *element.Tree {
	opts := []element.Option{
		element.WithLogger(logger),
		element.WithMaxTreeDepth(cfg.Layout().MaxTreeDepth),
		element.WithMaxResolutionDepth(cfg.Resolver().MaxResolutionDepth),
	}
	if d != nil {
		opts = append(opts, element.WithDispatcher(d))
	}
	return element.NewTree(opts...)
}

// loadScene parses path and builds it into a fresh tree. Trees bound to a
// dispatcher must be built inside one of its closures, so callers that use
// one build with buildScene instead.
func loadScene(cfg config.Interface, logger *zap.Logger, path string) (*scene.Scene, error) {
	doc, err := scene.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return scene.Build(newTree(cfg, logger, nil), doc)
}

// lookupNode resolves a node by name, defaulting to the scene root.
func lookupNode(sc *scene.Scene, name string) (element.Handle, error) {
	if name == "" {
		return sc.Root, nil
	}
	return sc.Lookup(name)
}

// parseViewport reads "WIDTHxHEIGHT"; either side may be "inf".
func parseViewport(s string) (geometry.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return geometry.Size{}, fmt.Errorf("viewport %q: want WIDTHxHEIGHT", s)
	}
	width, err := parseExtent(w)
	if err != nil {
		return geometry.Size{}, fmt.Errorf("viewport %q: %w", s, err)
	}
	height, err := parseExtent(h)
	if err != nil {
		return geometry.Size{}, fmt.Errorf("viewport %q: %w", s, err)
	}
	return geometry.Size{Width: width, Height: height}, nil
}

func parseExtent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "inf" {
		return math.Inf(1), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || math.IsNaN(v) {
		return 0, fmt.Errorf("extent %v must be non-negative", v)
	}
	return v, nil
}
