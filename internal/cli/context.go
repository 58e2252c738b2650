package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	taskctx "github.com/brucedev/bruce/internal/context"
)

var contextStdout bool

var contextCmd = &cobra.Command{
	Use:   "context [id]",
	Short: "Generate the handoff context document for a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runContext,
}

var handoffCmd = &cobra.Command{
	Use:   "handoff",
	Short: "Print the project-wide handoff snapshot",
	RunE:  runHandoff,
}

func init() {
	contextCmd.Flags().BoolVar(&contextStdout, "stdout", false, "Print instead of writing under the contexts directory")
}

func runContext(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}

	if contextStdout {
		tc, err := a.builder().TaskContext(args[0])
		if err != nil {
			return err
		}
		fmt.Print(taskctx.Render(tc))
		return nil
	}

	path, err := writeTaskContext(a, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Context written to %s\n", path)
	return nil
}

// writeTaskContext renders a task's context document into the contexts
// directory, grouped by phase, and returns the path relative to root.
func writeTaskContext(a *app, id string) (string, error) {
	tc, err := a.builder().TaskContext(id)
	if err != nil {
		return "", err
	}

	rel := filepath.Join(a.cfg.Paths.ContextsDir,
		fmt.Sprintf("phase%d", tc.Task.PhaseID),
		fmt.Sprintf("context_%s.md", tc.Task.ID))
	full := filepath.Join(a.root, rel)

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, []byte(taskctx.Render(tc)), 0644); err != nil {
		return "", err
	}
	return rel, nil
}

func runHandoff(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	snap, err := a.builder().ProjectSnapshot()
	if err != nil {
		return err
	}
	fmt.Print(taskctx.RenderSnapshot(snap))
	return nil
}
