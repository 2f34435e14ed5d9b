package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/crate/internal/models"
)

var (
	_ list.Item = operationItem{}
	_ list.Item = trackItem{}
)

// operationItem wraps [Operation] to implement [list.Item].
type operationItem struct {
	op Operation
}

func (i operationItem) FilterValue() string { return i.op.Name }
func (i operationItem) Title() string       { return i.op.Name }
func (i operationItem) Description() string {
	desc := fmt.Sprintf("playlist %s", i.op.PlaylistID)
	if i.op.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.op.Description)
	}
	return desc
}

// trackItem wraps [models.Track] to implement [list.Item]. removed marks tracks taken out by a trim.
type trackItem struct {
	track   models.Track
	removed bool
}

func (i trackItem) FilterValue() string { return i.track.SearchText() }
func (i trackItem) Title() string {
	if i.removed {
		return "− " + i.track.Name
	}
	return "+ " + i.track.Name
}
func (i trackItem) Description() string {
	desc := i.track.Artist()
	if i.track.Album.Name != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album.Name)
	}
	return desc
}

func resultItems(added, removed []models.Track) []list.Item {
	items := make([]list.Item, 0, len(added)+len(removed))
	for _, t := range added {
		items = append(items, trackItem{track: t})
	}
	for _, t := range removed {
		items = append(items, trackItem{track: t, removed: true})
	}
	return items
}
