package tasks

import (
	"fmt"

	"github.com/desertthunder/crate/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchAlbums Phase = iota
	ExpandAlbums
	FetchLiked
	ArrangeTracks
	FetchPlaylist
	Compare
	AddTracks
	RemoveTracks
	ClearPlaylist
	SampleTracks
	SearchCache
	UpdateDetails
)

func (p Phase) String() string {
	switch p {
	case FetchAlbums:
		return "fetch_albums"
	case ExpandAlbums:
		return "expand_albums"
	case FetchLiked:
		return "fetch_liked"
	case ArrangeTracks:
		return "arrange"
	case FetchPlaylist:
		return "fetch_playlist"
	case Compare:
		return "compare"
	case AddTracks:
		return "add_tracks"
	case RemoveTracks:
		return "remove_tracks"
	case ClearPlaylist:
		return "clear_playlist"
	case SampleTracks:
		return "sample_tracks"
	case SearchCache:
		return "search_cache"
	case UpdateDetails:
		return "update_details"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchAlbumsUpdate(admitted, newAlbums int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchAlbums,
		Step:    admitted,
		Message: fmt.Sprintf("Found %d recent albums (%d new)", admitted, newAlbums),
	}
}

func expandAlbumsUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExpandAlbums,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Looking up album tracks...", step, total),
	}
}

func fetchLikedUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLiked,
		Step:    count,
		Message: fmt.Sprintf("Found %d recently liked tracks", count),
	}
}

func arrangeUpdate(tracks []models.SavedTrack) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ArrangeTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Arranged %d recent tracks", len(tracks)),
		Data:    tracks,
	}
}

func fetchPlaylistUpdate(playlistID string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    count,
		Message: fmt.Sprintf("Playlist %s holds %d tracks", playlistID, count),
	}
}

func compareUpdate(newSeg, oldSeg []models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Compare,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d new tracks, %d to backfill", len(newSeg), len(oldSeg)),
	}
}

func addTracksUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Adding tracks...", step, total),
	}
}

func removeTracksUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RemoveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Removing tracks...", step, total),
	}
}

func clearPlaylistUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ClearPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Clearing playlist %s...", playlistID),
	}
}

func sampleTracksUpdate(picked, available int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SampleTracks,
		Step:    picked,
		Total:   available,
		Message: fmt.Sprintf("Sampled %d of %d cached tracks", picked, available),
	}
}

func searchCacheUpdate(query string, found int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchCache,
		Step:    found,
		Message: fmt.Sprintf("%d cached tracks match %q", found, query),
	}
}

func updateDetailsUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UpdateDetails,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Updating description of %s...", playlistID),
	}
}
