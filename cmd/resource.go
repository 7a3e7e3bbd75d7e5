// File: cmd/resource.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/elementcore/internal/observability"
)

// newResourceCmd creates the `resource` command, which runs a resource
// lookup from a node the way a resource reference on that node would.
func newResourceCmd() *cobra.Command {
	var nodeName, key string
	var strict bool

	resourceCmd := &cobra.Command{
		Use:   "resource [scene]",
		Short: "Looks up a resource key from a node outward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			sc, err := loadScene(cfg, observability.GetLogger().Named("resource"), args[0])
			if err != nil {
				return err
			}
			h, err := lookupNode(sc, nodeName)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if strict {
				v, err := sc.Tree.FindResource(h, key)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s = %v\n", key, v)
				return nil
			}
			if v, ok := sc.Tree.TryFindResource(h, key); ok {
				fmt.Fprintf(out, "%s = %v\n", key, v)
			} else {
				fmt.Fprintf(out, "%s not found\n", key)
			}
			return nil
		},
	}

	resourceCmd.Flags().StringVarP(&nodeName, "node", "n", "", "node name (default the scene root)")
	resourceCmd.Flags().StringVarP(&key, "key", "k", "", "resource key")
	resourceCmd.Flags().BoolVar(&strict, "strict", false, "fail when the key is not found")
	_ = resourceCmd.MarkFlagRequired("key")
	return resourceCmd
}
