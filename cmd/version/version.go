package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/tapedeck/internal/app"
	"github.com/tphakala/tapedeck/internal/cpuspec"
)

// Command creates a new cobra.Command to print build metadata.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tapedeck version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "tapedeck %s (revision %s, built %s)\ncpu: %s\n",
				ctx.Build.Version(), ctx.Build.Revision(), ctx.Build.BuildDate(), cpuspec.GetCPUSpec())
			return err
		},
	}
}
