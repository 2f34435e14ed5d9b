package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/crate/internal/tasks"
)

// progressUpdateMsg carries one engine update into the update loop.
type progressUpdateMsg tasks.ProgressUpdate

// syncCompleteMsg ends the sync view.
type syncCompleteMsg struct {
	result tasks.SyncResult
	err    error
}

// waitForProgress blocks until the next progress update or the end of the operation.
func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan syncCompleteMsg) tea.Cmd {
	return func() tea.Msg {
		select {
		case update := <-progress:
			return progressUpdateMsg(update)
		case msg := <-done:
			return msg
		}
	}
}
