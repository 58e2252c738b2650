package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Track work sessions on tasks",
}

var sessionNoteCmd = &cobra.Command{
	Use:   "note [id] [text...]",
	Short: "Add a note to the active session for a task",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSessionNote,
}

var sessionEndCmd = &cobra.Command{
	Use:   "end [id]",
	Short: "End the active session for a task without completing it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSessionEnd,
}

var sessionSummaryCmd = &cobra.Command{
	Use:   "summary [id]",
	Short: "Show total time and session count for a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionSummary,
}

func init() {
	sessionCmd.AddCommand(sessionNoteCmd)
	sessionCmd.AddCommand(sessionEndCmd)
	sessionCmd.AddCommand(sessionSummaryCmd)
}

func runSessionNote(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	tr, err := a.sessions()
	if err != nil {
		return err
	}
	defer tr.Close()

	ok, err := tr.AddNote(args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no active session for %s. Run: bruce start %s", args[0], args[0])
	}
	fmt.Println("Noted.")
	return nil
}

func runSessionEnd(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	tr, err := a.sessions()
	if err != nil {
		return err
	}
	defer tr.Close()

	note := strings.Join(args[1:], " ")
	s, err := tr.End(args[0], note)
	if err != nil {
		return err
	}
	if s == nil {
		fmt.Printf("%sNo active session for %s.%s\n", colorDim, args[0], colorReset)
		return nil
	}
	fmt.Printf("Session ended after %s.\n", s.Duration().Round(time.Second))
	return nil
}

func runSessionSummary(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	tr, err := a.sessions()
	if err != nil {
		return err
	}
	defer tr.Close()

	sum, err := tr.Summarize(args[0])
	if err != nil {
		return err
	}
	if sum.TotalSessions == 0 {
		fmt.Printf("%sNo sessions recorded for %s.%s\n", colorDim, args[0], colorReset)
		return nil
	}

	fmt.Printf("%s%s%s\n", colorBold, sum.TaskID, colorReset)
	fmt.Printf("Sessions:   %d\n", sum.TotalSessions)
	fmt.Printf("Total time: %s\n", sum.TotalDuration.Round(time.Second))
	if sum.Last != nil {
		state := "ended " + sum.Last.EndedAt.UTC().Format("2006-01-02 15:04")
		if sum.Last.Active() {
			state = colorGreen + "active" + colorReset
		}
		fmt.Printf("Last:       started %s, %s\n", sum.Last.StartedAt.UTC().Format("2006-01-02 15:04"), state)
	}
	return nil
}
