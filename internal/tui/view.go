package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/brucedev/bruce/internal/store"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrBlue      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle    = lipgloss.NewStyle().Foreground(clrDim)
	subtleStyle = lipgloss.NewStyle().Foreground(clrSubtle)

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrSubtle).
			Padding(0, 1).
			Width(28)

	columnActiveStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(clrHighlight).
				Padding(0, 1).
				Width(28)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrHighlight).
			Padding(1, 2).
			Width(60)

	statusStyle = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

var columnColors = [numColumns]lipgloss.AdaptiveColor{
	clrYellow,
	clrBlue,
	clrRed,
	clrGreen,
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.currentScreen {
	case screenBoard:
		content = m.viewBoard()
	case screenDetail:
		content = m.viewDetail()
	}

	if m.activePopup != popupNone {
		content += "\n" + m.viewPopup()
	}

	if m.statusMsg != "" {
		content += "\n" + statusStyle.Render(m.statusMsg)
	}
	return content
}

func (m Model) viewBoard() string {
	total := 0
	for _, col := range m.columns {
		total += len(col)
	}

	header := titleStyle.Render("bruce board") + dimStyle.Render(fmt.Sprintf(" — %d tasks", total))

	var cols []string
	for i := range m.columns {
		cols = append(cols, m.renderColumn(i))
	}
	board := lipgloss.JoinHorizontal(lipgloss.Top, cols...)

	footer := footerKeyStyle.Render("s") + footerDescStyle.Render(" start  ") +
		footerKeyStyle.Render("d") + footerDescStyle.Render(" done  ") +
		footerKeyStyle.Render("b") + footerDescStyle.Render(" block  ") +
		footerKeyStyle.Render("u") + footerDescStyle.Render(" unblock  ") +
		footerKeyStyle.Render("o") + footerDescStyle.Render(" reopen  ") +
		footerKeyStyle.Render("enter") + footerDescStyle.Render(" detail  ") +
		footerKeyStyle.Render("q") + footerDescStyle.Render(" quit")

	return header + "\n\n" + board + "\n" + footer
}

func (m Model) renderColumn(i int) string {
	var b strings.Builder

	label := lipgloss.NewStyle().Bold(true).Foreground(columnColors[i]).
		Render(fmt.Sprintf("%s (%d)", columnLabels[i], len(m.columns[i])))
	b.WriteString(label + "\n")

	if len(m.columns[i]) == 0 {
		b.WriteString(dimStyle.Render("—"))
	}
	for row, t := range m.columns[i] {
		line := truncate(t.ID, 24)
		if m.eligible[t.ID] {
			line += dimStyle.Render(" *")
		}
		if i == m.cursorCol && row == m.cursorRow {
			line = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight).Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	style := columnStyle
	if i == m.cursorCol {
		style = columnActiveStyle
	}
	return style.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) viewDetail() string {
	t := m.selected
	if t == nil {
		return ""
	}
	var b strings.Builder

	b.WriteString(titleStyle.Render(t.ID))
	b.WriteString(subtleStyle.Render(fmt.Sprintf("  [%s]  phase %d: %s", t.Status, t.PhaseID, t.PhaseName)))
	b.WriteString("\n\n")

	if t.Description != "" {
		b.WriteString(t.Description + "\n")
	}
	if t.Output != "" {
		b.WriteString(subtleStyle.Render("Output: ") + t.Output + "\n")
	}
	if t.Status == store.StatusBlocked && t.BlockedReason != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(clrRed).Render("Blocked: "+t.BlockedReason) + "\n")
	}
	if len(t.DependsOn) > 0 {
		b.WriteString(subtleStyle.Render("Depends on: ") + strings.Join(t.DependsOn, ", ") + "\n")
	}
	if len(t.AcceptanceCriteria) > 0 {
		b.WriteString("\n" + subtleStyle.Render("Acceptance criteria:") + "\n")
		for _, c := range t.AcceptanceCriteria {
			b.WriteString("  - " + c + "\n")
		}
	}

	if len(t.Notes) > 0 {
		b.WriteString("\n" + subtleStyle.Render("History:") + "\n")
		for _, h := range t.Notes {
			b.WriteString(dimStyle.Render(h.Timestamp.UTC().Format("2006-01-02 15:04")) + "  " + h.Note + "\n")
		}
	}

	footer := footerKeyStyle.Render("s") + footerDescStyle.Render(" start  ") +
		footerKeyStyle.Render("d") + footerDescStyle.Render(" done  ") +
		footerKeyStyle.Render("b") + footerDescStyle.Render(" block  ") +
		footerKeyStyle.Render("esc") + footerDescStyle.Render(" back")

	return b.String() + "\n" + footer
}

func (m Model) viewPopup() string {
	var title string
	switch m.activePopup {
	case popupBlock:
		title = "Block " + m.popupTaskID
	case popupUnblock:
		title = "Unblock " + m.popupTaskID
	case popupComplete:
		title = "Complete " + m.popupTaskID
	}

	body := titleStyle.Render(title) + "\n\n" +
		m.input.View() + "\n\n" +
		dimStyle.Render("enter to confirm, esc to cancel")
	return popupStyle.Render(body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
