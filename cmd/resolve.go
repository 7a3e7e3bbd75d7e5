// File: cmd/resolve.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/elementcore/internal/element"
	"github.com/xkilldash9x/elementcore/internal/observability"
)

// newResolveCmd creates the `resolve` command, which prints a property's
// effective value together with the source that produced it.
func newResolveCmd() *cobra.Command {
	var nodeName string
	var properties []string

	resolveCmd := &cobra.Command{
		Use:   "resolve [scene]",
		Short: "Prints the effective value and value source of node properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			logger := observability.GetLogger().Named("resolve")

			sc, err := loadScene(cfg, logger, args[0])
			if err != nil {
				return err
			}
			h, err := lookupNode(sc, nodeName)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range properties {
				k, err := element.FindProperty(name)
				if err != nil {
					return err
				}
				entry, err := sc.Tree.GetEntry(h, k)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", name, err)
				}

				var flags []string
				if entry.FromResource {
					flags = append(flags, "resource")
				}
				if entry.Coerced {
					flags = append(flags, fmt.Sprintf("coerced from %v", entry.BaseValue))
				}
				line := fmt.Sprintf("%s = %v (%s)", k.Name(), entry.Value, entry.Rank)
				if len(flags) > 0 {
					line += " [" + strings.Join(flags, ", ") + "]"
				}
				fmt.Fprintln(out, line)
				logger.Debug("Resolved property", zap.String("property", k.Name()), zap.Stringer("rank", entry.Rank))
			}
			return nil
		},
	}

	resolveCmd.Flags().StringVarP(&nodeName, "node", "n", "", "node name (default the scene root)")
	resolveCmd.Flags().StringSliceVarP(&properties, "property", "p", nil, "property names to resolve")
	_ = resolveCmd.MarkFlagRequired("property")
	return resolveCmd
}
