package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the kennel release, set at build time with
// -ldflags "-X github.com/mesh-intelligence/kennel/internal/cli.Version=...".
var Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/kennel"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kennel version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "kennel v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
