package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/crate/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	OperationListView ViewState = iota
	ConfirmView
	SyncView
	ResultView
)

// maxLog is how many progress messages the sync view keeps on screen.
const maxLog = 6

// RunFunc runs an operation, reporting progress on the given channel.
type RunFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (tasks.SyncResult, error)

// Operation is one entry of the operation menu.
type Operation struct {
	Name        string
	PlaylistID  string
	Description string
	Run         RunFunc
}

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	operations []Operation
	width      int
	height     int
	opList     list.Model
	resultList list.Model
	selected   *Operation
	spinner    spinner.Model
	progress   chan tasks.ProgressUpdate
	done       chan syncCompleteMsg
	log        []string
	result     tasks.SyncResult
	err        error
	help       help.Model
	keys       keyMap
}

// NewModel creates a new TUI model offering operations.
func NewModel(ctx context.Context, operations []Operation) *Model {
	items := make([]list.Item, len(operations))
	for i, op := range operations {
		items[i] = operationItem{op: op}
	}

	opList := list.New(items, list.NewDefaultDelegate(), 76, 16)
	opList.Title = "Playlist Operations"

	return &Model{
		ctx:        ctx,
		view:       OperationListView,
		operations: operations,
		width:      80,
		height:     24,
		opList:     opList,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// State returns the current view.
func (m *Model) State() ViewState { return m.view }

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.opList.SetSize(msg.Width-4, msg.Height-8)
		if m.view == ResultView {
			m.resultList.SetSize(msg.Width-4, msg.Height-10)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case OperationListView:
			return m.handleOperationKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		m.log = append(m.log, msg.Message)
		if len(m.log) > maxLog {
			m.log = slices.Clone(m.log[len(m.log)-maxLog:])
		}
		return m, waitForProgress(m.progress, m.done)

	case syncCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.progress, m.done = nil, nil
		m.resultList = list.New(
			resultItems(slices.Concat(msg.result.NewTracks, msg.result.OldTracks), msg.result.RemovedTracks),
			list.NewDefaultDelegate(), m.width-4, m.height-10,
		)
		m.resultList.Title = fmt.Sprintf("%s: %d added, %d removed", m.selected.Name, msg.result.Added, msg.result.Removed)
		m.view = ResultView
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case OperationListView:
		return m.renderOperationList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleOperationKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit) && !m.opList.SettingFilter():
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter) && !m.opList.SettingFilter():
		if item, ok := m.opList.SelectedItem().(operationItem); ok {
			op := item.op
			m.selected = &op
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.opList, cmd = m.opList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = SyncView
		return m, m.startSync()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = OperationListView
		m.selected = nil
		return m, nil
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit) && !m.resultList.SettingFilter():
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart) && !m.resultList.SettingFilter():
		m.view = OperationListView
		m.selected = nil
		m.result = tasks.SyncResult{}
		m.err = nil
		m.log = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.resultList, cmd = m.resultList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case OperationListView:
		m.opList, cmd = m.opList.Update(msg)
	case ResultView:
		m.resultList, cmd = m.resultList.Update(msg)
	}
	return m, cmd
}

// startSync runs the selected operation in the background. Its result arrives as a [syncCompleteMsg].
func (m *Model) startSync() tea.Cmd {
	m.progress = make(chan tasks.ProgressUpdate, 50)
	m.done = make(chan syncCompleteMsg, 1)
	m.log = nil

	op, progress, done := *m.selected, m.progress, m.done
	go func() {
		result, err := op.Run(m.ctx, progress)
		done <- syncCompleteMsg{result: result, err: err}
	}()

	return waitForProgress(progress, done)
}

func (m *Model) renderOperationList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.opList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	title := Styles.Title(fmt.Sprintf("Run '%s'?", m.selected.Name))
	info := fmt.Sprintf("\nPlaylist: %s\n", m.selected.PlaylistID)
	if m.selected.Description != "" {
		info += m.selected.Description + "\n"
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderSync() string {
	title := Styles.Title(fmt.Sprintf("%s Running %s", m.spinner.View(), m.selected.Name))
	if len(m.log) == 0 {
		return fmt.Sprintf("%s\n\n%s", title, Styles.Help("Starting..."))
	}
	return fmt.Sprintf("%s\n\n%s", title, strings.Join(m.log, "\n"))
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.err != nil {
		summary := fmt.Sprintf("%s failed: %v", m.selected.Name, m.err)
		if m.result.Added > 0 || m.result.Removed > 0 {
			summary += fmt.Sprintf("\n%d added, %d removed before the failure", m.result.Added, m.result.Removed)
		}
		return fmt.Sprintf("%s\n\n%s", Styles.Err(summary), helpView)
	}

	if m.result.Added == 0 && m.result.Removed == 0 {
		return fmt.Sprintf("%s\n\n%s", Styles.OK(fmt.Sprintf("✓ %s: playlist already up to date", m.selected.Name)), helpView)
	}

	return fmt.Sprintf("%s\n%s\n\n%s", Styles.OK("✓ Sync Complete!"), m.resultList.View(), helpView)
}
