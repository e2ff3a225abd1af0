package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, s *session) error {
				settings := s.state.Settings()
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), settings)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "dark mode: %s\n", onOff(settings.DarkMode))
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:       "dark-mode on|off",
		Short:     "Turn dark mode on or off",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on := args[0] == "on"
			return a.session(cmd, func(ctx context.Context, s *session) error {
				if err := s.state.SetDarkMode(on); err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), s.state.Settings())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "dark mode: %s\n", onOff(on))
				return nil
			})
		},
	})
	return cmd
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
