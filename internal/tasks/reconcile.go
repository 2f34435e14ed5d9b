package tasks

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/paging"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
)

// KnownItems is the cache consulted to tell new library items from already seen ones.
type KnownItems interface {
	RetrieveTracks(ctx context.Context) (map[string]models.Track, error)
	RetrieveAlbums(ctx context.Context) (map[string]models.Album, error)
}

// Reconciler derives the recently added part of the library.
type Reconciler struct {
	remote   services.Remote
	known    KnownItems
	logger   *log.Logger
	progress chan<- ProgressUpdate
	now      func() time.Time
}

// NewReconciler creates a reconciler reading from remote and comparing against known.
func NewReconciler(remote services.Remote, known KnownItems, opts Opts) *Reconciler {
	opts = opts.withDefaults()
	return &Reconciler{
		remote:   remote,
		known:    known,
		logger:   opts.Logger,
		progress: opts.Progress,
		now:      opts.Now,
	}
}

// RecentAlbums returns the newest saved albums: every album until maxCount tracks are collected, plus any further
// albums the cache has not seen, stopping at the first album that is neither.
func (r *Reconciler) RecentAlbums(ctx context.Context, maxCount int) ([]models.SavedAlbum, error) {
	known, err := r.known.RetrieveAlbums(ctx)
	if err != nil {
		return nil, err
	}

	var (
		admitted  []models.SavedAlbum
		collected int
		fresh     int
	)
	admit := func(album models.SavedAlbum) bool {
		_, seen := known[album.ID]
		return collected < maxCount || !seen
	}
	albums := paging.TakeWhile(paging.Items[models.SavedAlbum](ctx, r.remote.SavedAlbums, services.ReadBatch), admit)
	for album, err := range albums {
		if err != nil {
			return nil, fmt.Errorf("%w: saved albums: %w", shared.ErrRemoteRead, err)
		}

		if _, seen := known[album.ID]; !seen {
			fresh++
			r.logger.Info("New album", "album", album.Name, "artist", firstOr(album.Artists, models.UnknownArtist))
		}
		collected += album.TotalTracks
		admitted = append(admitted, album)
	}

	sendProgress(r.progress, fetchAlbumsUpdate(len(admitted), fresh))
	return admitted, nil
}

// RecentlyAdded returns the recently added tracks in presentation order. See [Arrange] for the ordering.
func (r *Reconciler) RecentlyAdded(ctx context.Context, maxCount int) ([]models.SavedTrack, error) {
	albums, err := r.RecentAlbums(ctx, maxCount)
	if err != nil {
		return nil, err
	}

	albumTracks, err := r.expand(ctx, albums)
	if err != nil {
		return nil, err
	}

	threshold := r.now()
	if len(albumTracks) > 0 {
		threshold = slices.MinFunc(albumTracks, func(a, b models.SavedTrack) int {
			return a.AddedAt.Compare(b.AddedAt)
		}).AddedAt
	}

	liked, err := r.recentLiked(ctx, threshold)
	if err != nil {
		return nil, err
	}

	arranged := Arrange(merge(albumTracks, liked))
	sendProgress(r.progress, arrangeUpdate(arranged))
	return arranged, nil
}

// expand resolves album listings to full tracks stamped with the album's save time.
func (r *Reconciler) expand(ctx context.Context, albums []models.SavedAlbum) ([]models.SavedTrack, error) {
	savedAt := map[string]time.Time{}
	var ids []string
	for _, a := range albums {
		for _, id := range a.TrackIDs() {
			if _, ok := savedAt[id]; ok {
				continue
			}
			savedAt[id] = a.AddedAt
			ids = append(ids, id)
		}
	}

	total := (len(ids) + services.ReadBatch - 1) / services.ReadBatch
	tracks := make([]models.SavedTrack, 0, len(ids))
	step := 0
	for batch := range slices.Chunk(ids, services.ReadBatch) {
		step++
		sendProgress(r.progress, expandAlbumsUpdate(step, total))

		found, err := r.remote.Tracks(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: album tracks: %w", shared.ErrRemoteRead, err)
		}
		for _, t := range found {
			addedAt, ok := savedAt[t.ID]
			if t.Local() || !ok {
				continue
			}
			tracks = append(tracks, models.SavedTrack{Track: t, AddedAt: addedAt})
		}
	}
	return tracks, nil
}

// recentLiked scans liked tracks newest first, keeping uncached tracks and tracks liked after threshold.
func (r *Reconciler) recentLiked(ctx context.Context, threshold time.Time) ([]models.SavedTrack, error) {
	known, err := r.known.RetrieveTracks(ctx)
	if err != nil {
		return nil, err
	}

	// Local tracks pass the check and are dropped below, so they never end the scan.
	recent := func(t models.SavedTrack) bool {
		_, seen := known[t.ID]
		return t.Local() || !seen || t.AddedAt.After(threshold)
	}

	var liked []models.SavedTrack
	for t, err := range paging.TakeWhile(paging.Items[models.SavedTrack](ctx, r.remote.SavedTracks, services.ReadBatch), recent) {
		if err != nil {
			return nil, fmt.Errorf("%w: saved tracks: %w", shared.ErrRemoteRead, err)
		}
		if !t.Local() {
			liked = append(liked, t)
		}
	}

	sendProgress(r.progress, fetchLikedUpdate(len(liked)))
	return liked, nil
}

// merge unions album tracks and liked tracks by identifier, keeping the album entry.
func merge(albumTracks, liked []models.SavedTrack) []models.SavedTrack {
	seen := make(map[string]struct{}, len(albumTracks)+len(liked))
	merged := make([]models.SavedTrack, 0, len(albumTracks)+len(liked))
	for _, t := range slices.Concat(albumTracks, liked) {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		merged = append(merged, t)
	}
	return merged
}

// Arrange groups tracks by album. Groups are ordered by their latest AddedAt, newest first, then album
// identifier; tracks within a group by track number, then identifier.
func Arrange(tracks []models.SavedTrack) []models.SavedTrack {
	groups := map[string][]models.SavedTrack{}
	latest := map[string]time.Time{}
	for _, t := range tracks {
		key := groupKey(t.Track)
		groups[key] = append(groups[key], t)
		if cur, ok := latest[key]; !ok || t.AddedAt.After(cur) {
			latest[key] = t.AddedAt
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return cmp.Or(latest[b].Compare(latest[a]), cmp.Compare(a, b))
	})

	arranged := make([]models.SavedTrack, 0, len(tracks))
	for _, k := range keys {
		group := groups[k]
		slices.SortStableFunc(group, func(a, b models.SavedTrack) int {
			return cmp.Or(cmp.Compare(a.TrackNumber, b.TrackNumber), cmp.Compare(a.ID, b.ID))
		})
		arranged = append(arranged, group...)
	}
	return arranged
}

// groupKey is the album identifier, or the track's own identifier for tracks without an album.
func groupKey(t models.Track) string {
	if t.Album.ID == "" {
		return "track:" + t.ID
	}
	return t.Album.ID
}

// AllAlbums reads every saved album.
func (r *Reconciler) AllAlbums(ctx context.Context) ([]models.SavedAlbum, error) {
	albums, err := paging.Collect(paging.Items[models.SavedAlbum](ctx, r.remote.SavedAlbums, services.ReadBatch))
	if err != nil {
		return nil, fmt.Errorf("%w: saved albums: %w", shared.ErrRemoteRead, err)
	}
	return albums, nil
}

// AllTracks reads every liked track followed by every track of every saved album, without the cache.
func (r *Reconciler) AllTracks(ctx context.Context) ([]models.Track, error) {
	var tracks []models.Track
	for t, err := range paging.Items[models.SavedTrack](ctx, r.remote.SavedTracks, services.ReadBatch) {
		if err != nil {
			return nil, fmt.Errorf("%w: saved tracks: %w", shared.ErrRemoteRead, err)
		}
		if !t.Local() {
			tracks = append(tracks, t.Track)
		}
	}
	sendProgress(r.progress, fetchLikedUpdate(len(tracks)))

	albums, err := r.AllAlbums(ctx)
	if err != nil {
		return nil, err
	}
	albumTracks, err := r.expand(ctx, albums)
	if err != nil {
		return nil, err
	}
	return append(tracks, models.Tracks(albumTracks)...), nil
}

func firstOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}
