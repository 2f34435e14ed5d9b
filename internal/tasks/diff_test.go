package tasks

import (
	"slices"
	"testing"

	"github.com/desertthunder/crate/internal/models"
)

func ids(ss ...string) []models.Track {
	tracks := make([]models.Track, 0, len(ss))
	for _, s := range ss {
		tracks = append(tracks, models.Track{ID: s})
	}
	return tracks
}

func set(ss ...string) map[string]struct{} {
	return models.IDSet(ids(ss...))
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name    string
		desired []models.Track
		current map[string]struct{}
		wantNew []string
		wantOld []string
	}{
		{
			name:    "present track flips to backfill",
			desired: ids("t4", "t1", "t5"),
			current: set("t1", "t2", "t3"),
			wantNew: []string{"t4"},
			wantOld: []string{"t5"},
		},
		{
			name:    "empty playlist takes everything at the head",
			desired: ids("a", "b", "c"),
			current: set(),
			wantNew: []string{"a", "b", "c"},
		},
		{
			name:    "everything present",
			desired: ids("a", "b"),
			current: set("a", "b"),
		},
		{
			name:    "first track present",
			desired: ids("a", "b", "c"),
			current: set("a"),
			wantOld: []string{"b", "c"},
		},
		{
			name:    "local tracks are dropped",
			desired: append(ids("a"), models.Track{Name: "upload"}, models.Track{ID: "b"}),
			current: set("b"),
			wantNew: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newSeg, oldSeg := Diff(tt.desired, tt.current)
			if got := models.IDs(newSeg); !slices.Equal(got, tt.wantNew) {
				t.Errorf("new segment: expected %v, got %v", tt.wantNew, got)
			}
			if got := models.IDs(oldSeg); !slices.Equal(got, tt.wantOld) {
				t.Errorf("old segment: expected %v, got %v", tt.wantOld, got)
			}
		})
	}
}

func TestDiffPartition(t *testing.T) {
	desired := ids("a", "b", "c", "d", "e", "f")
	current := set("c", "e", "z")

	newSeg, oldSeg := Diff(desired, current)

	seen := map[string]int{}
	for _, tr := range slices.Concat(newSeg, oldSeg) {
		seen[tr.ID]++
	}
	for id := range current {
		seen[id]++
	}
	for _, tr := range desired {
		if seen[tr.ID] != 1 {
			t.Errorf("track %s accounted for %d times", tr.ID, seen[tr.ID])
		}
	}
}
