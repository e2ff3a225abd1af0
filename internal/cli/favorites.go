package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newFavoritesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "List and toggle favorite breeds",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List favorite breeds",
		Long: "List favorite breed ids with their names when the breed list is\n" +
			"cached. Nothing is fetched from the API.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, s *session) error {
				ids := s.state.Favorites()
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"ids":    ids,
						"breeds": s.state.FavoriteBreeds(),
					})
				}
				if len(ids) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no favorites")
					return nil
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "ID\tNAME")
				for _, id := range ids {
					name := "-"
					if b, ok := s.state.Breed(id); ok {
						name = b.Name
					}
					fmt.Fprintf(tw, "%s\t%s\n", id, name)
				}
				return tw.Flush()
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <id>",
		Short: "Add a breed to favorites, or remove it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, s *session) error {
				on, err := s.state.ToggleFavorite(args[0])
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{"id": args[0], "favorite": on})
				}
				verb := "removed from"
				if on {
					verb = "added to"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s favorites\n", args[0], verb)
				return nil
			})
		},
	})
	return cmd
}
