package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/brucedev/bruce/internal/store"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.activePopup != popupNone {
			return m.handlePopupKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tasksLoadedMsg:
		if msg.err != nil {
			m.statusMsg = "Load failed: " + msg.err.Error()
			return m, nil
		}
		m.eligible = msg.eligible
		m.rebuildColumns(msg.tasks)
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
		} else {
			m.statusMsg = msg.note
		}
		return m, m.refresh()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.currentScreen == screenBoard {
			m.quitting = true
			return m, tea.Quit
		}
		m.currentScreen = screenBoard
		m.selected = nil
		return m, nil

	case "esc", "backspace":
		if m.currentScreen == screenDetail {
			m.currentScreen = screenBoard
			m.selected = nil
		}
		return m, nil
	}

	switch m.currentScreen {
	case screenBoard:
		return m.handleBoardKey(msg)
	case screenDetail:
		return m.handleDetailKey(msg)
	}
	return m, nil
}

func (m Model) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.cursorRow++
		m.clampCursor()
	case "k", "up":
		m.cursorRow--
		m.clampCursor()
	case "h", "left":
		m.cursorCol--
		m.clampCursor()
	case "l", "right":
		m.cursorCol++
		m.clampCursor()

	case "enter", " ":
		if t := m.taskUnderCursor(); t != nil {
			m.selected = t
			m.currentScreen = screenDetail
		}

	case "s":
		if t := m.taskUnderCursor(); t != nil {
			return m, m.doStart(t.ID)
		}

	case "d":
		if t := m.taskUnderCursor(); t != nil {
			return m.openPopup(popupComplete, t.ID, "Completion note (enter to skip)...")
		}

	case "b":
		if t := m.taskUnderCursor(); t != nil {
			return m.openPopup(popupBlock, t.ID, "Why is this blocked?")
		}

	case "u":
		if t := m.taskUnderCursor(); t != nil && t.Status == store.StatusBlocked {
			return m.openPopup(popupUnblock, t.ID, "Resolution (enter to skip)...")
		}

	case "o":
		if t := m.taskUnderCursor(); t != nil {
			return m, m.doReopen(t.ID)
		}

	case "R":
		return m, m.refresh()
	}

	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.selected == nil {
		m.currentScreen = screenBoard
		return m, nil
	}

	switch msg.String() {
	case "s":
		return m, m.doStart(m.selected.ID)
	case "d":
		return m.openPopup(popupComplete, m.selected.ID, "Completion note (enter to skip)...")
	case "b":
		return m.openPopup(popupBlock, m.selected.ID, "Why is this blocked?")
	case "u":
		if m.selected.Status == store.StatusBlocked {
			return m.openPopup(popupUnblock, m.selected.ID, "Resolution (enter to skip)...")
		}
	case "o":
		return m, m.doReopen(m.selected.ID)
	}
	return m, nil
}

func (m Model) openPopup(p popup, taskID, placeholder string) (tea.Model, tea.Cmd) {
	m.activePopup = p
	m.popupTaskID = taskID
	m.input.Reset()
	m.input.Placeholder = placeholder
	m.input.Focus()
	return m, textinput.Blink
}

func (m Model) handlePopupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.activePopup = popupNone
		return m, nil
	case "enter":
		text := m.input.Value()
		p := m.activePopup
		m.activePopup = popupNone

		switch p {
		case popupBlock:
			if text == "" {
				m.statusMsg = "A block needs a reason"
				return m, nil
			}
			return m, m.doBlock(m.popupTaskID, text)
		case popupUnblock:
			return m, m.doUnblock(m.popupTaskID)
		case popupComplete:
			return m, m.doComplete(m.popupTaskID, text)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// --- Lifecycle commands ---

func (m Model) doStart(id string) tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		if _, err := e.Start(id); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{note: "Started " + id}
	}
}

func (m Model) doComplete(id, note string) tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		if _, err := e.Complete(id, note); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{note: "Completed " + id}
	}
}

func (m Model) doBlock(id, reason string) tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		if _, err := e.Block(id, reason); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{note: "Blocked " + id}
	}
}

func (m Model) doUnblock(id string) tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		if _, err := e.Unblock(id); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{note: "Unblocked " + id}
	}
}

func (m Model) doReopen(id string) tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		if _, err := e.Reopen(id); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{note: "Reopened " + id}
	}
}
