package tasks

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
)

// Library is the cached library the engine samples and searches.
type Library interface {
	KnownItems
	RetrieveLiked(ctx context.Context) ([]models.Track, error)
	SearchTracks(ctx context.Context, query string) ([]models.Track, error)
}

// SyncResult summarizes the changes one operation made to a playlist.
type SyncResult struct {
	Added   int
	Removed int
	// NewTracks were inserted at the head of the playlist.
	NewTracks []models.Track
	// OldTracks were appended at the tail.
	OldTracks     []models.Track
	RemovedTracks []models.Track
}

// Engine runs the playlist operations.
type Engine struct {
	remote     services.Remote
	library    Library
	reconciler *Reconciler
	applier    *Applier
	trimmer    *Trimmer
	logger     *log.Logger
	progress   chan<- ProgressUpdate
	rng        *rand.Rand
}

// NewEngine wires the sync stages over remote and library.
func NewEngine(remote services.Remote, library Library, opts Opts) *Engine {
	opts = opts.withDefaults()
	applier := NewApplier(remote, opts)
	return &Engine{
		remote:     remote,
		library:    library,
		reconciler: NewReconciler(remote, library, opts),
		applier:    applier,
		trimmer:    NewTrimmer(remote, applier, opts),
		logger:     opts.Logger,
		progress:   opts.Progress,
		rng:        opts.Rand,
	}
}

// Reconciler exposes the engine's reconciler, used as the cache update source.
func (e *Engine) Reconciler() *Reconciler {
	return e.reconciler
}

// UpdateRecentlyAdded adds the n most recently added tracks to playlistID and trims it back to about n tracks.
func (e *Engine) UpdateRecentlyAdded(ctx context.Context, playlistID string, n int) (SyncResult, error) {
	recent, err := e.reconciler.RecentlyAdded(ctx, n)
	if err != nil {
		return SyncResult{}, err
	}

	res, err := e.AddNewTracks(ctx, playlistID, models.Tracks(recent))
	if err != nil {
		return res, err
	}

	removed, err := e.trimmer.Trim(ctx, playlistID, n)
	if err != nil {
		return res, err
	}
	res.Removed = len(removed)
	res.RemovedTracks = removed
	return res, nil
}

// Trim cuts playlistID back to about keep tracks without adding anything.
func (e *Engine) Trim(ctx context.Context, playlistID string, keep int) (SyncResult, error) {
	removed, err := e.trimmer.Trim(ctx, playlistID, keep)
	if err != nil {
		return SyncResult{}, err
	}
	return SyncResult{Removed: len(removed), RemovedTracks: removed}, nil
}

// AddNewTracks inserts the tracks missing from playlistID. Tracks preceding the first one already present go to
// the head, the rest are appended.
func (e *Engine) AddNewTracks(ctx context.Context, playlistID string, tracks []models.Track) (SyncResult, error) {
	var res SyncResult

	state, err := services.PlaylistState(ctx, e.remote, playlistID)
	if err != nil {
		return res, fmt.Errorf("%w: playlist %s: %w", shared.ErrRemoteRead, playlistID, err)
	}
	sendProgress(e.progress, fetchPlaylistUpdate(playlistID, len(state)))

	newSeg, oldSeg := Diff(tracks, models.IDSet(state))
	sendProgress(e.progress, compareUpdate(newSeg, oldSeg))
	for _, t := range newSeg {
		e.logger.Infof("Adding %s", t)
	}

	head := 0
	added, err := e.applier.AddTracks(ctx, playlistID, newSeg, &head)
	res.Added += added
	if err != nil {
		return res, err
	}
	res.NewTracks = newSeg

	added, err = e.applier.AddTracks(ctx, playlistID, oldSeg, nil)
	res.Added += added
	if err != nil {
		return res, err
	}
	res.OldTracks = oldSeg
	return res, nil
}

// UpdateEverything rebuilds playlistID from the nRecent most recently added tracks followed by nTotal tracks
// sampled from the cache.
func (e *Engine) UpdateEverything(ctx context.Context, playlistID string, nRecent, nTotal int) (SyncResult, error) {
	recent, err := e.reconciler.RecentlyAdded(ctx, nRecent)
	if err != nil {
		return SyncResult{}, err
	}

	sample, err := e.sample(ctx, nTotal)
	if err != nil {
		return SyncResult{}, err
	}

	return e.replace(ctx, playlistID, slices.Concat(models.Tracks(recent), sample))
}

// UpdateWeeklySample rebuilds playlistID from n tracks sampled from the cache.
func (e *Engine) UpdateWeeklySample(ctx context.Context, playlistID string, n int) (SyncResult, error) {
	sample, err := e.sample(ctx, n)
	if err != nil {
		return SyncResult{}, err
	}
	return e.replace(ctx, playlistID, sample)
}

// UpdateLiked rebuilds playlistID from every cached liked track.
func (e *Engine) UpdateLiked(ctx context.Context, playlistID string) (SyncResult, error) {
	liked, err := e.library.RetrieveLiked(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	return e.replace(ctx, playlistID, liked)
}

// AddSearchedTracks rebuilds playlistID from the cached tracks matching query and sets the playlist description
// to the query. A failed description update is logged, not returned.
func (e *Engine) AddSearchedTracks(ctx context.Context, playlistID, query string) (SyncResult, error) {
	matches, err := e.library.SearchTracks(ctx, query)
	if err != nil {
		return SyncResult{}, err
	}
	sendProgress(e.progress, searchCacheUpdate(query, len(matches)))
	for _, t := range matches {
		e.logger.Infof("Adding %s", t)
	}

	res, err := e.replace(ctx, playlistID, matches)
	if err != nil {
		return res, err
	}

	sendProgress(e.progress, updateDetailsUpdate(playlistID))
	if err := e.remote.SetDetails(ctx, playlistID, query); err != nil {
		e.logger.Warn("failed to update playlist description", "playlist", playlistID, "error", err)
	}
	return res, nil
}

// replace clears playlistID and adds tracks in order.
func (e *Engine) replace(ctx context.Context, playlistID string, tracks []models.Track) (SyncResult, error) {
	var res SyncResult
	if err := e.applier.ClearPlaylist(ctx, playlistID); err != nil {
		return res, err
	}

	added, err := e.applier.AddTracks(ctx, playlistID, tracks, nil)
	res.Added = added
	if err != nil {
		return res, err
	}
	res.OldTracks = tracks
	return res, nil
}

func (e *Engine) sample(ctx context.Context, n int) ([]models.Track, error) {
	cached, err := e.library.RetrieveTracks(ctx)
	if err != nil {
		return nil, err
	}
	picked := Sample(e.rng, cached, n)
	sendProgress(e.progress, sampleTracksUpdate(len(picked), len(cached)))
	return picked, nil
}

// Sample picks up to n distinct tracks uniformly at random. The result depends only on rng's state and the set
// of tracks.
func Sample(rng *rand.Rand, tracks map[string]models.Track, n int) []models.Track {
	if n <= 0 || len(tracks) == 0 {
		return nil
	}

	pool := slices.Collect(maps.Values(tracks))
	slices.SortFunc(pool, func(a, b models.Track) int { return cmp.Compare(a.ID, b.ID) })
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:min(n, len(pool))]
}
