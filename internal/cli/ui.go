package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/brucedev/bruce/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive task board",
	Long:  "Opens an interactive board with tasks grouped by status. Start, complete, block, and unblock tasks without leaving the terminal.",
	RunE:  runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}

	model := tui.New(a.store())
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
