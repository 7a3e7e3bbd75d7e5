// File: cmd/layout.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/elementcore/internal/config"
	"github.com/xkilldash9x/elementcore/internal/element"
	"github.com/xkilldash9x/elementcore/internal/layout"
	"github.com/xkilldash9x/elementcore/internal/observability"
	"github.com/xkilldash9x/elementcore/internal/reporting"
	"github.com/xkilldash9x/elementcore/internal/scene"
)

// newLayoutCmd creates the `layout` command.
func newLayoutCmd() *cobra.Command {
	layoutCmd := &cobra.Command{
		Use:   "layout [scenes...]",
		Short: "Measures and arranges scene files and reports the resulting geometry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if vp, _ := cmd.Flags().GetString("viewport"); vp != "" {
				size, err := parseViewport(vp)
				if err != nil {
					return err
				}
				cfg.SetViewport(size.Width, size.Height)
			}
			return runLayout(cmd.Context(), cfg, args)
		},
	}

	layoutCmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	layoutCmd.Flags().StringP("format", "f", "json", "report format (json, xml)")
	layoutCmd.Flags().Bool("pretty", true, "indent the report")
	layoutCmd.Flags().Bool("rounding", false, "round layout to device pixels")
	layoutCmd.Flags().IntP("concurrency", "j", 4, "scenes laid out at once")
	layoutCmd.Flags().String("viewport", "", "fallback viewport as WIDTHxHEIGHT when a scene names none")
	return layoutCmd
}

// runLayout lays out every scene concurrently. Each scene gets its own tree
// and dispatcher; the reporter orders the output by scene path.
func runLayout(ctx context.Context, cfg config.Interface, paths []string) error {
	logger := observability.GetLogger().Named("layout")
	out := cfg.Output()

	reporter, err := reporting.New(out.Format, out.Path, reporting.Options{Pretty: out.Pretty, Logger: logger})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Layout().Concurrency)
	for _, path := range paths {
		g.Go(func() error {
			report, err := layoutScene(gctx, cfg, logger, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return reporter.Write(report)
		})
	}

	err = g.Wait()
	if closeErr := reporter.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		logger.Info("Layout complete", zap.Int("scenes", len(paths)), zap.String("format", out.Format))
	}
	return err
}

func layoutScene(ctx context.Context, cfg config.Interface, logger *zap.Logger, path string) (*reporting.Report, error) {
	doc, err := scene.LoadFile(path)
	if err != nil {
		return nil, err
	}

	d := element.NewDispatcher(logger.With(zap.String("scene", path)))
	defer d.Close()
	tree := newTree(cfg, logger, d)
	logger = observability.ForScene(logger, path, tree.ID())

	var report *reporting.Report
	err = d.Invoke(ctx, func() error {
		sc, err := scene.Build(tree, doc)
		if err != nil {
			return err
		}
		lc := cfg.Layout()
		engine := layout.NewEngine(tree,
			layout.WithLogger(logger),
			layout.WithDPI(lc.DPI()),
			layout.WithLayoutRounding(lc.UseLayoutRounding),
			layout.WithMaxLayoutPasses(lc.MaxLayoutPasses),
		)
		viewport := doc.ViewportOr(lc.Viewport())
		if err := engine.UpdateLayout(sc.Root, viewport); err != nil {
			return err
		}
		report, err = reporting.Snapshot(engine, path, sc.Root, viewport)
		return err
	})
	return report, err
}
