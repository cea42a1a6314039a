package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/curated"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/ui"
)

// CacheRefresh re-fetches the curator playlist snapshot from the catalog.
func (r *Runner) CacheRefresh(ctx context.Context, cmd *cli.Command) error {
	if !r.config.HasCatalogCredentials() {
		return fmt.Errorf("%w: spotify client credentials", shared.ErrMissingCredentials)
	}

	r.logger.Info("refreshing curator playlist cache")

	playlists, err := r.cache.Refresh(ctx, r.catalog)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	r.writePlainln("%s", ui.OK(fmt.Sprintf("✓ Cached %d curator playlists", len(playlists))))
	return nil
}

// CacheShow prints the cached curator playlists.
func (r *Runner) CacheShow(ctx context.Context, cmd *cli.Command) error {
	playlists := r.cache.Get()

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainln("%s", ui.Title("Curator playlist cache"))
	if len(playlists) == 0 {
		r.writePlainln("%s", ui.Warn("Cache is empty. Run 'mixtape cache refresh'."))
		return nil
	}

	for i, playlist := range playlists {
		r.writePlainln("%3d. %s (%s, %d tracks)", i+1, playlist.Name, playlist.Owner, playlist.TrackCount)
		if playlist.Description != "" {
			r.writePlainln("     %s", ui.Help(playlist.Description))
		}
	}
	if r.cache.NeedsRefresh() {
		r.writePlainln("%s", ui.Warn("Snapshot is stale. Run 'mixtape cache refresh'."))
	}
	return nil
}

// CacheSearch ranks cached playlists against the given keywords.
func (r *Runner) CacheSearch(ctx context.Context, cmd *cli.Command) error {
	keywords := cmd.Args().Slice()
	if len(keywords) == 0 {
		return fmt.Errorf("%w: keywords", shared.ErrMissingArgument)
	}

	for i, keyword := range keywords {
		keywords[i] = strings.ToLower(keyword)
	}

	matches := curated.Search(r.cache.Get(), keywords, int(cmd.Int("limit")))
	if len(matches) == 0 {
		r.writePlainln("%s", ui.Warn("No matching playlists."))
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(matches, cmd.Bool("pretty"))
	}

	r.writePlainln("%s", ui.Title(fmt.Sprintf("Playlists matching %q", strings.Join(keywords, " "))))
	for i, playlist := range matches {
		r.writePlainln("%3d. %s (%s)", i+1, playlist.Name, playlist.Owner)
	}
	return nil
}

// cacheCommand groups the curator playlist cache operations.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the curator playlist cache",
		Commands: []*cli.Command{
			{
				Name:   "refresh",
				Usage:  "Re-fetch curator playlists from the catalog",
				Action: r.CacheRefresh,
			},
			{
				Name:  "show",
				Usage: "List the cached playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Emit JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Indent JSON output"},
				},
				Action: r.CacheShow,
			},
			{
				Name:      "search",
				Usage:     "Rank cached playlists against keywords",
				ArgsUsage: "<keyword>...",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Maximum results", Value: 5},
					&cli.BoolFlag{Name: "json", Usage: "Emit JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Indent JSON output"},
				},
				Action: r.CacheSearch,
			},
		},
	}
}
