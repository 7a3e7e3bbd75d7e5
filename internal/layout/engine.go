// internal/layout/engine.go
package layout

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/xkilldash9x/elementcore/internal/element"
	"github.com/xkilldash9x/elementcore/internal/geometry"
)

// DefaultMaxLayoutPasses bounds UpdateLayout when arrange keeps dirtying measure.
const DefaultMaxLayoutPasses = 64

var (
	ErrNaNConstraint   = fmt.Errorf("%w: measure constraint contains NaN", element.ErrStructural)
	ErrInvalidArrange  = fmt.Errorf("%w: arrange rect must be finite", element.ErrStructural)
	ErrInfiniteDesired = fmt.Errorf("%w: measure produced an infinite desired size", element.ErrStructural)
	ErrNaNDesired      = fmt.Errorf("%w: measure produced a NaN desired size", element.ErrStructural)
	ErrNotSettled      = fmt.Errorf("%w: layout did not settle", element.ErrRecursionLimit)
	ErrForeignNode     = errors.New("node belongs to another tree")
)

// Engine runs the two-pass layout protocol over one element.Tree.
type Engine struct {
	tree      *element.Tree
	logger    *zap.Logger
	dpi       geometry.DPI
	rounding  bool
	maxPasses int
	depth     int
}

// Ensures Engine can be handed to sizing overrides.
var _ element.LayoutContext = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDPI sets the device scale used for layout rounding.
func WithDPI(dpi geometry.DPI) Option {
	return func(e *Engine) {
		if dpi.ScaleX > 0 && dpi.ScaleY > 0 {
			e.dpi = dpi
		}
	}
}

// WithLayoutRounding forces pixel snapping for every node, regardless of
// the UseLayoutRounding property.
func WithLayoutRounding(on bool) Option {
	return func(e *Engine) { e.rounding = on }
}

// WithMaxLayoutPasses bounds the number of measure/arrange rounds in UpdateLayout.
func WithMaxLayoutPasses(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPasses = n
		}
	}
}

// NewEngine binds a layout engine to tree.
func NewEngine(tree *element.Tree, opts ...Option) *Engine {
	e := &Engine{
		tree:      tree,
		logger:    zap.NewNop(),
		dpi:       geometry.DefaultDPI,
		maxPasses: DefaultMaxLayoutPasses,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("layout").With(zap.String("tree_id", tree.ID().String()))
	return e
}

// Tree returns the tree the engine lays out.
func (e *Engine) Tree() *element.Tree { return e.tree }

// DPI returns the device scale in use.
func (e *Engine) DPI() geometry.DPI { return e.dpi }

// -- Entry Points --

// MeasureNode measures h against available and returns its desired size.
func (e *Engine) MeasureNode(h element.Handle, available geometry.Size) (geometry.Size, error) {
	n, err := e.enter(h)
	if err != nil {
		return geometry.Size{}, err
	}
	if err := e.Measure(n, available); err != nil {
		return geometry.Size{}, err
	}
	return n.Layout().DesiredSize, nil
}

// ArrangeNode positions h inside finalRect.
func (e *Engine) ArrangeNode(h element.Handle, finalRect geometry.Rect) error {
	n, err := e.enter(h)
	if err != nil {
		return err
	}
	return e.Arrange(n, finalRect)
}

// UpdateLayout brings root and every queued node up to date. The root is
// measured against viewport and arranged at the origin; an infinite
// viewport dimension arranges at the desired size instead.
func (e *Engine) UpdateLayout(root element.Handle, viewport geometry.Size) error {
	rn, err := e.enter(root)
	if err != nil {
		return err
	}
	if viewport.HasNaN() {
		return ErrNaNConstraint
	}

	for pass := 0; pass < e.maxPasses; pass++ {
		l := rn.Layout()
		if l.MeasureDirty || l.NeverMeasured || !geometry.SizesClose(l.PreviousAvailable, viewport) {
			if err := e.Measure(rn, viewport); err != nil {
				return err
			}
		}
		if err := e.drainMeasure(rn); err != nil {
			return err
		}

		final := geometry.RectFromSize(viewport)
		if viewport.HasInf() {
			ds := rn.Layout().DesiredSize
			final = geometry.RectFromSize(geometry.Size{
				Width:  finiteOr(viewport.Width, ds.Width),
				Height: finiteOr(viewport.Height, ds.Height),
			})
		}
		if err := e.Arrange(rn, final); err != nil {
			return err
		}
		if err := e.drainArrange(rn); err != nil {
			return err
		}

		if e.tree.QueuesEmpty() && !rn.Layout().MeasureDirty && !rn.Layout().ArrangeDirty {
			e.logger.Debug("Layout settled", zap.Int("passes", pass+1), zap.Stringer("root", rn.Handle()))
			return nil
		}
	}
	e.logger.Warn("Layout did not settle", zap.Int("max_passes", e.maxPasses))
	return fmt.Errorf("after %d passes: %w", e.maxPasses, ErrNotSettled)
}

func (e *Engine) enter(h element.Handle) (*element.Node, error) {
	if err := e.tree.CheckAccess(); err != nil {
		return nil, err
	}
	return e.tree.Node(h)
}

// drainMeasure re-measures queued nodes under root at their previous
// constraint until no measure work is left.
func (e *Engine) drainMeasure(root *element.Node) error {
	for i := 0; i < e.maxPasses; i++ {
		queued := e.tree.TakeMeasureQueue()
		if len(queued) == 0 {
			return nil
		}
		for _, n := range queued {
			l := n.Layout()
			if !l.MeasureDirty || !e.under(root, n) {
				continue
			}
			if err := e.Measure(n, l.PreviousAvailable); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("measure queue: %w", ErrNotSettled)
}

func (e *Engine) drainArrange(root *element.Node) error {
	for i := 0; i < e.maxPasses; i++ {
		queued := e.tree.TakeArrangeQueue()
		if len(queued) == 0 {
			return nil
		}
		for _, n := range queued {
			l := n.Layout()
			if !l.ArrangeDirty || !e.under(root, n) {
				continue
			}
			if err := e.Arrange(n, l.PreviousFinalRect); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("arrange queue: %w", ErrNotSettled)
}

func (e *Engine) under(root, n *element.Node) bool {
	for cur := n; cur != nil; cur = e.tree.Parent(cur) {
		if cur == root {
			return true
		}
	}
	return false
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
