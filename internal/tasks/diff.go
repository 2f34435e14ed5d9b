package tasks

import "github.com/desertthunder/crate/internal/models"

// Diff partitions desired against the identifiers already in a playlist.
//
// Tracks missing from current before the first present track form newSeg, to be inserted at the head. Missing
// tracks after it form oldSeg, to be appended. Present tracks are left where they are. Local tracks are dropped.
// Both segments keep the relative order of desired.
func Diff(desired []models.Track, current map[string]struct{}) (newSeg, oldSeg []models.Track) {
	inNew := true
	for _, t := range desired {
		if t.Local() {
			continue
		}
		_, present := current[t.ID]
		switch {
		case !present && inNew:
			newSeg = append(newSeg, t)
		case !present:
			oldSeg = append(oldSeg, t)
		case inNew:
			inNew = false
		}
	}
	return newSeg, oldSeg
}
