package testing

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/paging"
)

// Call is one recorded [FakeRemote] invocation.
type Call struct {
	Method     string
	PlaylistID string
	IDs        []string
	Position   *int
	Offset     int
}

// FakeRemote is an in-memory [services.Remote] serving fixture pages and holding playlists.
//
// Albums and Liked are listed in slice order, so fixtures should be newest first like the real service.
type FakeRemote struct {
	mu sync.Mutex

	Albums  []models.SavedAlbum
	Liked   []models.SavedTrack
	Catalog map[string]models.Track

	Playlists    map[string][]models.Track
	Descriptions map[string]string

	Calls []Call

	failures map[string]failure
	counts   map[string]int
}

type failure struct {
	call int
	err  error
}

func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		Catalog:      map[string]models.Track{},
		Playlists:    map[string][]models.Track{},
		Descriptions: map[string]string{},
		failures:     map[string]failure{},
		counts:       map[string]int{},
	}
}

// FailOn makes the nth call (1-based) of method return err. n = 0 fails every call.
func (f *FakeRemote) FailOn(method string, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = failure{call: n, err: err}
}

// SetPlaylist replaces the contents of a playlist, resolving ids through the fixtures.
func (f *FakeRemote) SetPlaylist(playlistID string, ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Playlists[playlistID] = f.resolve(ids)
}

// PlaylistIDs returns a playlist's identifiers in position order.
func (f *FakeRemote) PlaylistIDs(playlistID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.Playlists[playlistID]))
	for _, t := range f.Playlists[playlistID] {
		ids = append(ids, t.ID)
	}
	return ids
}

// CallsTo returns the recorded calls of method.
func (f *FakeRemote) CallsTo(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var calls []Call
	for _, c := range f.Calls {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

func (f *FakeRemote) record(c Call) error {
	f.Calls = append(f.Calls, c)
	f.counts[c.Method]++
	if fl, ok := f.failures[c.Method]; ok && (fl.call == 0 || fl.call == f.counts[c.Method]) {
		return fl.err
	}
	return nil
}

func (f *FakeRemote) lookup() map[string]models.Track {
	index := make(map[string]models.Track, len(f.Catalog))
	for _, a := range f.Albums {
		for _, t := range a.Tracks {
			index[t.ID] = t
		}
	}
	for _, s := range f.Liked {
		index[s.ID] = s.Track
	}
	for id, t := range f.Catalog {
		index[id] = t
	}
	return index
}

func (f *FakeRemote) resolve(ids []string) []models.Track {
	index := f.lookup()
	tracks := make([]models.Track, 0, len(ids))
	for _, id := range ids {
		t, ok := index[id]
		if !ok {
			t = models.Track{ID: id, Name: id}
		}
		tracks = append(tracks, t)
	}
	return tracks
}

func (f *FakeRemote) SavedAlbums(ctx context.Context, offset, limit int) (paging.Page[models.SavedAlbum], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "SavedAlbums", Offset: offset}); err != nil {
		return paging.Page[models.SavedAlbum]{}, err
	}
	return paging.FromSlice(f.Albums)(ctx, offset, limit)
}

func (f *FakeRemote) SavedTracks(ctx context.Context, offset, limit int) (paging.Page[models.SavedTrack], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "SavedTracks", Offset: offset}); err != nil {
		return paging.Page[models.SavedTrack]{}, err
	}
	return paging.FromSlice(f.Liked)(ctx, offset, limit)
}

func (f *FakeRemote) PlaylistItems(ctx context.Context, playlistID string, offset, limit int) (paging.Page[models.Track], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "PlaylistItems", PlaylistID: playlistID, Offset: offset}); err != nil {
		return paging.Page[models.Track]{}, err
	}
	items := slices.Clone(f.Playlists[playlistID])
	return paging.FromSlice(items)(ctx, offset, limit)
}

func (f *FakeRemote) Tracks(_ context.Context, ids []string) ([]models.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "Tracks", IDs: slices.Clone(ids)}); err != nil {
		return nil, err
	}
	if len(ids) > 50 {
		return nil, fmt.Errorf("lookup of %d ids exceeds the read limit", len(ids))
	}

	index := f.lookup()
	tracks := make([]models.Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := index[id]; ok {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

func (f *FakeRemote) AddItems(_ context.Context, playlistID string, ids []string, position *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pos *int
	if position != nil {
		p := *position
		pos = &p
	}
	if err := f.record(Call{Method: "AddItems", PlaylistID: playlistID, IDs: slices.Clone(ids), Position: pos}); err != nil {
		return err
	}
	if len(ids) > 99 {
		return fmt.Errorf("add of %d ids exceeds the write limit", len(ids))
	}

	current := f.Playlists[playlistID]
	added := f.resolve(ids)
	if pos == nil || *pos >= len(current) {
		f.Playlists[playlistID] = append(current, added...)
		return nil
	}
	f.Playlists[playlistID] = slices.Insert(current, max(*pos, 0), added...)
	return nil
}

func (f *FakeRemote) RemoveAllOccurrences(_ context.Context, playlistID string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "RemoveAllOccurrences", PlaylistID: playlistID, IDs: slices.Clone(ids)}); err != nil {
		return err
	}
	if len(ids) > 99 {
		return fmt.Errorf("remove of %d ids exceeds the write limit", len(ids))
	}

	f.Playlists[playlistID] = slices.DeleteFunc(f.Playlists[playlistID], func(t models.Track) bool {
		return slices.Contains(ids, t.ID)
	})
	return nil
}

func (f *FakeRemote) ReplaceItems(_ context.Context, playlistID string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "ReplaceItems", PlaylistID: playlistID, IDs: slices.Clone(ids)}); err != nil {
		return err
	}
	f.Playlists[playlistID] = f.resolve(ids)
	return nil
}

func (f *FakeRemote) SetDetails(_ context.Context, playlistID, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "SetDetails", PlaylistID: playlistID}); err != nil {
		return err
	}
	f.Descriptions[playlistID] = description
	return nil
}
