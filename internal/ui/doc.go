// Package ui implements the interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through one playlist operation:
//  1. [OperationListView] : Pick a configured operation (recent, everything, weekly, liked)
//  2. [ConfirmView] : Confirm the target playlist
//  3. [SyncView] : Follow progress updates while the operation runs
//  4. [ResultView] : Browse the tracks that were added and removed
//
// Progress updates flow through a buffered channel from the sync engine. The engine never blocks on it, so a slow
// terminal only drops intermediate updates.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, r, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
