package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvee/internal/directory"
	"github.com/jmylchreest/tvee/internal/epg"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List categories or the channels in a category",
	Long: `Without --category, list the provider's live categories, with the
favorites category first when any favorites exist. With --category, list
that category's channels. Use --category favorites for favorites only.

--search filters by name (case-insensitive). --guide loads the XMLTV
guide first so the now-playing column is filled in.`,
	RunE: runChannels,
}

func init() {
	rootCmd.AddCommand(channelsCmd)

	channelsCmd.Flags().String("category", "", "category id to list channels for")
	channelsCmd.Flags().String("search", "", "filter by name")
	channelsCmd.Flags().Bool("guide", false, "load the XMLTV guide to show what is airing")
}

func runChannels(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Account.Validate(); err != nil {
		return err
	}

	category, _ := cmd.Flags().GetString("category")
	search, _ := cmd.Flags().GetString("search")
	withGuide, _ := cmd.Flags().GetBool("guide")

	logger := slog.Default()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	favStore, cleanup, err := openFavorites(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	provider := newXtreamClient(cfg)
	guide := epg.NewService(provider, logger)
	defer guide.Close()
	if withGuide {
		if err := guide.Load(ctx); err != nil {
			return fmt.Errorf("loading guide: %w", err)
		}
	}

	dir := directory.NewService(provider, favStore, guide, logger)
	if category == "" {
		categories, err := dir.BrowseCategories(ctx, search)
		if err != nil {
			return fmt.Errorf("listing categories: %w", err)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME")
		for _, c := range categories {
			fmt.Fprintf(tw, "%s\t%s\n", c.ID, c.Name)
		}
		return tw.Flush()
	}

	channels, err := dir.BrowseChannels(ctx, category, search)
	if err != nil {
		return fmt.Errorf("listing channels: %w", err)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFAV\tNOW PLAYING")
	for _, ch := range channels {
		fav := ""
		if ch.Favorite {
			fav = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", ch.StreamID, ch.DisplayName, fav, ch.NowPlaying)
	}
	return tw.Flush()
}
