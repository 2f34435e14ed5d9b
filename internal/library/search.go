package library

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/desertthunder/crate/internal/models"
)

// SearchSongs returns the identifiers of cached tracks whose title, artists or album name contain query, ignoring
// case, sorted by identifier.
func (c *Cache) SearchSongs(ctx context.Context, query string) ([]string, error) {
	tracks, err := c.RetrieveTracks(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	var ids []string
	for id, t := range tracks {
		if strings.Contains(strings.ToLower(t.SearchText()), needle) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// SearchTracks is [Cache.SearchSongs] resolved to the cached tracks.
func (c *Cache) SearchTracks(ctx context.Context, query string) ([]models.Track, error) {
	ids, err := c.SearchSongs(ctx, query)
	if err != nil {
		return nil, err
	}

	tracks, err := c.RetrieveTracks(ctx)
	if err != nil {
		return nil, err
	}

	found := make([]models.Track, 0, len(ids))
	for _, id := range ids {
		found = append(found, tracks[id])
	}
	return found, nil
}

// CompileGenres maps each genre tag to the track identifiers of the albums carrying it, in album order.
func CompileGenres(albums []models.Album) map[string][]string {
	genres := map[string][]string{}
	for _, a := range albums {
		ids := a.TrackIDs()
		for _, g := range a.Genres {
			genres[g] = append(genres[g], ids...)
		}
	}
	return genres
}

// Genres compiles the genre index of the cached albums, visited in identifier order.
func (c *Cache) Genres(ctx context.Context) (map[string][]string, error) {
	albums, err := c.RetrieveAlbums(ctx)
	if err != nil {
		return nil, err
	}
	return CompileGenres(sortedAlbums(albums)), nil
}

func sortedAlbums(albums map[string]models.Album) []models.Album {
	sorted := slices.Collect(maps.Values(albums))
	slices.SortFunc(sorted, func(a, b models.Album) int { return cmp.Compare(a.ID, b.ID) })
	return sorted
}
