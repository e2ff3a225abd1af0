package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/kennel/internal/appstate"
	"github.com/mesh-intelligence/kennel/internal/fetcher"
	"github.com/mesh-intelligence/kennel/pkg/types"
)

func newBreedsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breeds",
		Short: "List and inspect breeds",
	}
	cmd.AddCommand(newBreedsListCmd(a))
	cmd.AddCommand(newBreedsShowCmd(a))
	cmd.AddCommand(newBreedsImagesCmd(a))
	cmd.AddCommand(newBreedsGroupsCmd(a))
	return cmd
}

// loadOptions controls how the breed list is obtained.
type loadOptions struct {
	refresh bool
	timeout time.Duration
}

func (o *loadOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "ignore the cached list and fetch from the API")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0, "request timeout (default: api.timeout)")
}

// loadBreeds fetches the breed list, serving the cache unless a refresh is
// requested, and hands it to the state.
func loadBreeds(ctx context.Context, s *session, o loadOptions) ([]types.Breed, error) {
	breeds, err := s.fetcher.FetchBreeds(ctx,
		fetcher.UseCache(!o.refresh),
		fetcher.Timeout(o.timeout))
	if err != nil {
		return nil, err
	}
	if err := s.state.SetBreeds(breeds); err != nil {
		return nil, err
	}
	return breeds, nil
}

// breedView is the JSON shape of a breed in command output.
type breedView struct {
	types.Breed
	Favorite bool `json:"favorite"`
}

func newBreedsListCmd(a *app) *cobra.Command {
	var (
		load   loadOptions
		filter appstate.Filter
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List breeds, optionally filtered",
		Example: `  kennel breeds list
  kennel breeds list --search hound
  kennel breeds list --group Toy --favorites
  kennel breeds list --refresh --timeout 5s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, s *session) error {
				if _, err := loadBreeds(ctx, s, load); err != nil {
					return err
				}
				breeds := s.state.FilterBreeds(filter)

				if a.flags.jsonMode {
					views := make([]breedView, len(breeds))
					for i, b := range breeds {
						views[i] = breedView{Breed: b, Favorite: s.state.IsFavorite(b.ID)}
					}
					return printJSON(cmd.OutOrStdout(), views)
				}

				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "ID\tNAME\tGROUP\tLIFE SPAN\tFAV")
				for _, b := range breeds {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						b.ID, b.Name, orDash(b.BreedGroup), orDash(b.LifeSpan), mark(s.state.IsFavorite(b.ID)))
				}
				return tw.Flush()
			})
		},
	}
	load.register(cmd)
	cmd.Flags().StringVar(&filter.Query, "search", "", "match breed names containing this text")
	cmd.Flags().StringVar(&filter.Group, "group", "", "only breeds of this group")
	cmd.Flags().BoolVar(&filter.FavoritesOnly, "favorites", false, "only favorite breeds")
	return cmd
}

func newBreedsShowCmd(a *app) *cobra.Command {
	var load loadOptions
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one breed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, s *session) error {
				if _, err := loadBreeds(ctx, s, load); err != nil {
					return err
				}
				b, ok := s.state.Breed(args[0])
				if !ok {
					return fmt.Errorf("no breed with id %q", args[0])
				}
				fav := s.state.IsFavorite(b.ID)

				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), breedView{Breed: b, Favorite: fav})
				}
				tw := newTable(cmd.OutOrStdout())
				rows := [][2]string{
					{"ID", string(b.ID)},
					{"Name", b.Name},
					{"Group", orDash(b.BreedGroup)},
					{"Temperament", orDash(b.Temperament)},
					{"Bred for", orDash(b.BredFor)},
					{"Origin", orDash(b.Origin)},
					{"Life span", orDash(b.LifeSpan)},
					{"Weight", orDash(measure(b.Weight.Metric, "kg"))},
					{"Height", orDash(measure(b.Height.Metric, "cm"))},
					{"Image", orDash(b.ImageURL())},
					{"Favorite", fmt.Sprint(fav)},
				}
				for _, r := range rows {
					fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
				}
				return tw.Flush()
			})
		},
	}
	load.register(cmd)
	return cmd
}

// measure appends a unit to a non-empty metric range.
func measure(v, unit string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	return v + " " + unit
}

func newBreedsImagesCmd(a *app) *cobra.Command {
	var (
		limit   int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "images <id>",
		Short: "Fetch images of a breed",
		Long:  "Fetch images of a breed from the API. Images are never cached.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, s *session) error {
				images, err := s.fetcher.FetchBreedImages(ctx, args[0], limit, timeout)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), images)
				}
				if len(images) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no images")
					return nil
				}
				for _, img := range images {
					fmt.Fprintln(cmd.OutOrStdout(), img.URL)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", fetcher.DefaultImageLimit, "number of images to request")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "request timeout (default: api.timeout)")
	return cmd
}

func newBreedsGroupsCmd(a *app) *cobra.Command {
	var load loadOptions
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List breed groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, s *session) error {
				if _, err := loadBreeds(ctx, s, load); err != nil {
					return err
				}
				groups := s.state.BreedGroups()
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), groups)
				}
				for _, g := range groups {
					fmt.Fprintln(cmd.OutOrStdout(), g)
				}
				return nil
			})
		},
	}
	load.register(cmd)
	return cmd
}
