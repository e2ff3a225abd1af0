package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/kennel/pkg/types"
)

func newPhotosCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photos",
		Short: "Record captured photos and their notes",
	}
	cmd.AddCommand(newPhotosListCmd(a))
	cmd.AddCommand(newPhotosAddCmd(a))
	cmd.AddCommand(newPhotosNoteCmd(a))
	return cmd
}

func newPhotosListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List photos, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, s *session) error {
				photos := s.state.Photos()
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), photos)
				}
				if len(photos) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no photos")
					return nil
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "ID\tTAKEN\tURI\tNOTE")
				for _, p := range photos {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, humanize.Time(p.Time()), p.URI, orDash(p.Note))
				}
				return tw.Flush()
			})
		},
	}
}

func newPhotosAddCmd(a *app) *cobra.Command {
	var (
		note    string
		takenAt string
	)
	cmd := &cobra.Command{
		Use:   "add <uri>",
		Short: "Record a captured photo",
		Example: `  kennel photos add file:///sdcard/DCIM/rex.jpg --note "first walk"
  kennel photos add file:///tmp/a.jpg --taken-at 2024-05-01T09:30:00Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taken := time.Now()
			if takenAt != "" {
				t, err := time.Parse(time.RFC3339, takenAt)
				if err != nil {
					return fmt.Errorf("invalid --taken-at %q: want RFC 3339, for example 2024-05-01T09:30:00Z", takenAt)
				}
				taken = t
			}
			return a.session(cmd, func(ctx context.Context, s *session) error {
				photo := types.NewPhoto(args[0], taken)
				photo.Note = note
				saved, err := s.state.SavePhoto(photo)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), saved)
				}
				fmt.Fprintln(cmd.OutOrStdout(), saved.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "note to attach")
	cmd.Flags().StringVar(&takenAt, "taken-at", "", "capture time in RFC 3339 (default: now)")
	return cmd
}

func newPhotosNoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> <text>",
		Short: "Replace the note of a photo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, s *session) error {
				ok, err := s.state.UpdatePhotoNote(args[0], args[1])
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{"id": args[0], "updated": ok})
				}
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "no photo %s, nothing changed\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "note updated for %s\n", args[0])
				return nil
			})
		},
	}
}
