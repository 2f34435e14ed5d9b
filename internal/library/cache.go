package library

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/storage"
)

// Default snapshot keys.
const (
	DefaultTracksKey = "tracks"
	DefaultAlbumsKey = "albums"
)

// Source reports library items that are new relative to the cache.
type Source interface {
	RecentlyAdded(ctx context.Context, maxCount int) ([]models.SavedTrack, error)
	RecentAlbums(ctx context.Context, maxCount int) ([]models.SavedAlbum, error)
}

// CacheOpts configures a [Cache]. Empty keys select the defaults.
type CacheOpts struct {
	TracksKey string
	AlbumsKey string
	Logger    *log.Logger
}

// Cache is the identifier-keyed library snapshot.
type Cache struct {
	store     storage.KeyValueStore
	tracksKey string
	albumsKey string
	logger    *log.Logger
}

// NewCache creates a cache over store.
func NewCache(store storage.KeyValueStore, opts CacheOpts) *Cache {
	c := &Cache{
		store:     store,
		tracksKey: cmp.Or(opts.TracksKey, DefaultTracksKey),
		albumsKey: cmp.Or(opts.AlbumsKey, DefaultAlbumsKey),
		logger:    opts.Logger,
	}
	if c.logger == nil {
		c.logger = shared.DiscardLogger()
	}
	return c
}

// UpdateSummary counts what an update added or refreshed.
type UpdateSummary struct {
	NewTracks     int
	UpdatedTracks int
	NewAlbums     int
	UpdatedAlbums int
}

func load[T any](ctx context.Context, store storage.KeyValueStore, key string) (map[string]T, error) {
	data, ok, err := store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok || len(data) == 0 {
		return map[string]T{}, nil
	}

	entries := map[string]T{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrCorruptCache, key, err)
	}
	return entries, nil
}

func save[T any](ctx context.Context, store storage.KeyValueStore, key string, entries map[string]T) error {
	// encoding/json writes map keys in sorted order, so equal mappings serialize to equal bytes.
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode %s snapshot: %w", key, err)
	}
	return store.Store(ctx, key, data)
}

// RetrieveTracks returns the tracks snapshot, empty when none has been stored.
func (c *Cache) RetrieveTracks(ctx context.Context) (map[string]models.Track, error) {
	return load[models.Track](ctx, c.store, c.tracksKey)
}

// RetrieveAlbums returns the albums snapshot, empty when none has been stored.
func (c *Cache) RetrieveAlbums(ctx context.Context) (map[string]models.Album, error) {
	return load[models.Album](ctx, c.store, c.albumsKey)
}

// RetrieveLiked returns the cached tracks ordered by artist, album, track number and identifier.
func (c *Cache) RetrieveLiked(ctx context.Context) ([]models.Track, error) {
	tracks, err := c.RetrieveTracks(ctx)
	if err != nil {
		return nil, err
	}

	liked := slices.Collect(maps.Values(tracks))
	slices.SortFunc(liked, func(a, b models.Track) int {
		return cmp.Or(
			cmp.Compare(a.Artist(), b.Artist()),
			cmp.Compare(a.Album.Name, b.Album.Name),
			cmp.Compare(a.TrackNumber, b.TrackNumber),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return liked, nil
}

// MergeTracks adds tracks to the snapshot, replacing entries with the same identifier. Local tracks are skipped.
// It returns how many identifiers were new and how many were replaced.
func (c *Cache) MergeTracks(ctx context.Context, tracks []models.Track) (added, replaced int, err error) {
	current, err := c.RetrieveTracks(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, t := range tracks {
		if t.Local() {
			continue
		}
		if _, ok := current[t.ID]; ok {
			replaced++
		} else {
			added++
		}
		current[t.ID] = t
	}

	if err := save(ctx, c.store, c.tracksKey, current); err != nil {
		return 0, 0, err
	}
	return added, replaced, nil
}

// MergeAlbums is [Cache.MergeTracks] for the albums snapshot.
func (c *Cache) MergeAlbums(ctx context.Context, albums []models.Album) (added, replaced int, err error) {
	current, err := c.RetrieveAlbums(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, a := range albums {
		if a.ID == "" {
			continue
		}
		if _, ok := current[a.ID]; ok {
			replaced++
		} else {
			added++
		}
		current[a.ID] = a
	}

	if err := save(ctx, c.store, c.albumsKey, current); err != nil {
		return 0, 0, err
	}
	return added, replaced, nil
}

// UpdateAll merges everything src reports as new into the snapshots.
//
// The tracks snapshot is written before albums are read, and each snapshot is only written after its read
// completed, so a failed album read still keeps the track update.
func (c *Cache) UpdateAll(ctx context.Context, src Source) (UpdateSummary, error) {
	var summary UpdateSummary

	recent, err := src.RecentlyAdded(ctx, 0)
	if err != nil {
		return summary, fmt.Errorf("failed to read recent tracks: %w", err)
	}
	summary.NewTracks, summary.UpdatedTracks, err = c.MergeTracks(ctx, models.Tracks(recent))
	if err != nil {
		return summary, fmt.Errorf("failed to update tracks: %w", err)
	}
	c.logger.Info("updated tracks snapshot", "new", summary.NewTracks, "refreshed", summary.UpdatedTracks)

	albums, err := src.RecentAlbums(ctx, 0)
	if err != nil {
		return summary, fmt.Errorf("failed to read recent albums: %w", err)
	}
	summary.NewAlbums, summary.UpdatedAlbums, err = c.MergeAlbums(ctx, models.Albums(albums))
	if err != nil {
		return summary, fmt.Errorf("failed to update albums: %w", err)
	}
	c.logger.Info("updated albums snapshot", "new", summary.NewAlbums, "refreshed", summary.UpdatedAlbums)

	return summary, nil
}

// Stats describes the stored snapshots.
type Stats struct {
	Tracks      int
	Albums      int
	TracksBytes int
	AlbumsBytes int
	Genres      int
}

// Stats reads both snapshots and reports their sizes.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	var s Stats

	for _, key := range []string{c.tracksKey, c.albumsKey} {
		data, _, err := c.store.Load(ctx, key)
		if err != nil {
			return s, err
		}
		if key == c.tracksKey {
			s.TracksBytes = len(data)
		} else {
			s.AlbumsBytes = len(data)
		}
	}

	tracks, err := c.RetrieveTracks(ctx)
	if err != nil {
		return s, err
	}
	albums, err := c.RetrieveAlbums(ctx)
	if err != nil {
		return s, err
	}

	s.Tracks = len(tracks)
	s.Albums = len(albums)
	s.Genres = len(CompileGenres(sortedAlbums(albums)))
	return s, nil
}
