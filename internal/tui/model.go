// Package tui is the interactive board: tasks in status columns, a
// detail panel with history, and inline lifecycle actions.
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/brucedev/bruce/internal/graph"
	"github.com/brucedev/bruce/internal/lifecycle"
	"github.com/brucedev/bruce/internal/store"
)

// screen represents which view the TUI is showing.
type screen int

const (
	screenBoard  screen = iota // status columns (main)
	screenDetail               // one task with history
)

// popup represents the active input overlay, if any.
type popup int

const (
	popupNone popup = iota
	popupBlock
	popupUnblock
	popupComplete
)

// column indices for navigation.
const (
	colPending    = 0
	colInProgress = 1
	colBlocked    = 2
	colCompleted  = 3
	numColumns    = 4
)

var columnStatuses = [numColumns]store.TaskStatus{
	store.StatusPending,
	store.StatusInProgress,
	store.StatusBlocked,
	store.StatusCompleted,
}

var columnLabels = [numColumns]string{
	"PENDING",
	"IN PROGRESS",
	"BLOCKED",
	"COMPLETED",
}

// Model is the top-level bubbletea model.
type Model struct {
	store  *store.Store
	engine *lifecycle.Engine
	width  int
	height int

	currentScreen screen
	activePopup   popup

	// Board state.
	columns   [numColumns][]*store.Task
	eligible  map[string]bool // pending tasks with no unmet dependency
	cursorCol int
	cursorRow int

	// Selected task for the detail screen.
	selected *store.Task

	// Input for block reasons and completion notes.
	input       textinput.Model
	popupTaskID string

	statusMsg string
	quitting  bool
}

// New creates the board model over a store.
func New(s *store.Store) Model {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 50

	return Model{
		store:         s,
		engine:        lifecycle.New(s),
		currentScreen: screenBoard,
		eligible:      make(map[string]bool),
		input:         ti,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.refresh()
}

type tasksLoadedMsg struct {
	tasks    []*store.Task
	eligible map[string]bool
	err      error
}

type actionDoneMsg struct {
	note string
	err  error
}

func (m Model) refresh() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		u, err := s.Load()
		if err != nil {
			return tasksLoadedMsg{err: err}
		}
		g, err := graph.Build(u)
		if err != nil {
			return tasksLoadedMsg{err: err}
		}
		eligible := make(map[string]bool)
		for _, t := range u.Tasks() {
			if t.Status == store.StatusPending && len(g.UnmetDependencies(t.ID)) == 0 {
				eligible[t.ID] = true
			}
		}
		return tasksLoadedMsg{tasks: u.Tasks(), eligible: eligible}
	}
}

func (m *Model) rebuildColumns(tasks []*store.Task) {
	for i := range m.columns {
		m.columns[i] = nil
	}
	for _, t := range tasks {
		for i, status := range columnStatuses {
			if t.Status == status {
				m.columns[i] = append(m.columns[i], t)
				break
			}
		}
	}
	m.clampCursor()

	// Keep the detail screen on the same task across refreshes.
	if m.selected != nil {
		id := m.selected.ID
		m.selected = nil
		for _, col := range m.columns {
			for _, t := range col {
				if t.ID == id {
					m.selected = t
				}
			}
		}
		if m.selected == nil {
			m.currentScreen = screenBoard
		}
	}
}

func (m *Model) clampCursor() {
	if m.cursorCol < 0 {
		m.cursorCol = 0
	}
	if m.cursorCol >= numColumns {
		m.cursorCol = numColumns - 1
	}
	col := m.columns[m.cursorCol]
	if m.cursorRow >= len(col) {
		m.cursorRow = len(col) - 1
	}
	if m.cursorRow < 0 {
		m.cursorRow = 0
	}
}

func (m *Model) taskUnderCursor() *store.Task {
	col := m.columns[m.cursorCol]
	if m.cursorRow < len(col) {
		return col[m.cursorRow]
	}
	return nil
}
