package main

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/ui"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// CacheUpdate merges what was saved since the last update into the snapshot.
func (r *Runner) CacheUpdate(ctx context.Context, cmd *cli.Command) error {
	engine, cache, err := r.engine(ctx, nil)
	if err != nil {
		return err
	}
	defer r.persistToken()

	r.logger.Info("updating library cache")
	summary, err := cache.UpdateAll(ctx, engine.Reconciler())
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Styles.OK("✓ Cache updated"))
	r.writePlain("Tracks: %d new, %d refreshed\n", summary.NewTracks, summary.UpdatedTracks)
	r.writePlain("Albums: %d new, %d refreshed\n", summary.NewAlbums, summary.UpdatedAlbums)
	return nil
}

// CacheRebuild reads every saved album and track and refreshes the whole snapshot.
func (r *Runner) CacheRebuild(ctx context.Context, cmd *cli.Command) error {
	engine, cache, err := r.engine(ctx, nil)
	if err != nil {
		return err
	}
	defer r.persistToken()

	r.logger.Info("rebuilding library cache")
	albums, err := engine.Reconciler().AllAlbums(ctx)
	if err != nil {
		return err
	}
	tracks, err := engine.Reconciler().AllTracks(ctx)
	if err != nil {
		return err
	}

	newTracks, updatedTracks, err := cache.MergeTracks(ctx, tracks)
	if err != nil {
		return fmt.Errorf("failed to update tracks: %w", err)
	}
	newAlbums, updatedAlbums, err := cache.MergeAlbums(ctx, models.Albums(albums))
	if err != nil {
		return fmt.Errorf("failed to update albums: %w", err)
	}

	r.writePlain("%s\n", ui.Styles.OK("✓ Cache rebuilt"))
	r.writePlain("Tracks: %d new, %d refreshed\n", newTracks, updatedTracks)
	r.writePlain("Albums: %d new, %d refreshed\n", newAlbums, updatedAlbums)
	return nil
}

// CacheSearch prints the cached tracks matching the query argument.
func (r *Runner) CacheSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	cache, err := r.cache()
	if err != nil {
		return err
	}

	tracks, err := cache.SearchTracks(ctx, query)
	if err != nil {
		return err
	}
	r.logger.Debug("searched cache", "query", query, "matches", len(tracks))

	listing := formatter.Listing{
		Title:       fmt.Sprintf("Search: %s", query),
		Description: fmt.Sprintf("%d matching tracks", len(tracks)),
		Tracks:      tracks,
	}

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteExport(format, listing, path)
		if err != nil {
			return err
		}
		r.writePlain("✓ %d tracks written to %s\n", len(tracks), written)
		return nil
	}

	data, err := formatter.Render(format, listing)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// CacheGenres lists every genre with the number of cached tracks on albums tagged with it.
func (r *Runner) CacheGenres(ctx context.Context, cmd *cli.Command) error {
	cache, err := r.cache()
	if err != nil {
		return err
	}

	genres, err := cache.Genres(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(genres, true)
	}

	if len(genres) == 0 {
		r.writePlain("No genres cached. Run 'crate cache update' first.\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("%d genres", len(genres)))
	for _, name := range slices.Sorted(maps.Keys(genres)) {
		r.writePlain("%-40s %s\n", name, humanize.Comma(int64(len(genres[name]))))
	}
	return nil
}

// CacheStats prints entry counts and snapshot sizes.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	cache, err := r.cache()
	if err != nil {
		return err
	}

	stats, err := cache.Stats(ctx)
	if err != nil {
		return err
	}

	r.writePlainHeader("Library cache")
	r.writePlain("Backend: %s\n", r.config.Cache.Backend)
	r.writePlain("Tracks:  %s (%s)\n", humanize.Comma(int64(stats.Tracks)), humanize.Bytes(uint64(stats.TracksBytes)))
	r.writePlain("Albums:  %s (%s)\n", humanize.Comma(int64(stats.Albums)), humanize.Bytes(uint64(stats.AlbumsBytes)))
	r.writePlain("Genres:  %s\n", humanize.Comma(int64(stats.Genres)))
	return nil
}
