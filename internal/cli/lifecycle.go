package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brucedev/bruce/internal/lifecycle"
)

var doneMessage string

var startCmd = &cobra.Command{
	Use:   "start [id]",
	Short: "Start a task and open a work session",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

var doneCmd = &cobra.Command{
	Use:   "done [id]",
	Short: "Mark a task completed and close its work session",
	Args:  cobra.ExactArgs(1),
	RunE:  runDone,
}

var blockCmd = &cobra.Command{
	Use:   "block [id] [reason...]",
	Short: "Mark a task blocked with a reason",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runBlock,
}

var unblockCmd = &cobra.Command{
	Use:   "unblock [id]",
	Short: "Return a blocked task to pending",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnblock,
}

var reopenCmd = &cobra.Command{
	Use:   "reopen [id]",
	Short: "Return a completed task to pending",
	Args:  cobra.ExactArgs(1),
	RunE:  runReopen,
}

func init() {
	doneCmd.Flags().StringVarP(&doneMessage, "message", "m", "", "Completion note for the task history")
}

func runStart(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}

	t, err := a.engine().Start(args[0])
	if err != nil {
		var unmet *lifecycle.DependenciesUnmetError
		if errors.As(err, &unmet) {
			fmt.Printf("%sCannot start %s yet.%s Finish these first:\n", colorYellow, args[0], colorReset)
			for _, id := range unmet.Unmet {
				fmt.Printf("  - %s\n", id)
			}
			return fmt.Errorf("dependencies unmet")
		}
		return err
	}

	if tr, serr := a.sessions(); serr == nil {
		tr.Start(t.ID)
		tr.Close()
	}

	fmt.Printf("%sStarted%s %s\n", colorGreen, colorReset, t.ID)
	if path, err := writeTaskContext(a, t.ID); err == nil {
		fmt.Printf("Context written to %s\n", path)
	}
	return nil
}

func runDone(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}

	t, err := a.engine().Complete(args[0], doneMessage)
	if err != nil {
		return err
	}

	if tr, serr := a.sessions(); serr == nil {
		tr.End(t.ID, doneMessage)
		tr.Close()
	}

	fmt.Printf("%sCompleted%s %s\n", colorGreen, colorReset, t.ID)
	return nil
}

func runBlock(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}

	reason := strings.Join(args[1:], " ")
	t, err := a.engine().Block(args[0], reason)
	if err != nil {
		return err
	}
	fmt.Printf("%sBlocked%s %s: %s\n", colorRed, colorReset, t.ID, reason)
	return nil
}

func runUnblock(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}

	t, err := a.engine().Unblock(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%sUnblocked%s %s (back to pending)\n", colorGreen, colorReset, t.ID)
	return nil
}

func runReopen(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}

	t, err := a.engine().Reopen(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%sReopened%s %s\n", colorYellow, colorReset, t.ID)
	return nil
}
