package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/kennel/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and the local store",
		Long: "Write a default config.yaml if none exists and create the storage\n" +
			"backend in the data directory. Running init again changes nothing.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, s *session) error {
				configDir, err := paths.ResolveConfigDir(a.flags.configDir)
				if err != nil {
					return err
				}
				dataDir, err := a.dataDir()
				if err != nil {
					return err
				}
				out := map[string]any{
					"config":   paths.ConfigFile(configDir),
					"data_dir": dataDir,
					"backend":  a.v.GetString(cfgKeyBackend),
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), out)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "kennel initialized\nconfig:   %s\ndata dir: %s\nbackend:  %s\n",
					out["config"], out["data_dir"], out["backend"])
				return nil
			})
		},
	}
}
