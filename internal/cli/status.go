package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/brucedev/bruce/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is active, blocked, and ready to start",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	u, err := a.store().Load()
	if err != nil {
		return err
	}
	snap, err := a.builder().ProjectSnapshot()
	if err != nil {
		return err
	}

	var active, blocked []*store.Task
	for _, t := range u.Tasks() {
		switch t.Status {
		case store.StatusInProgress:
			active = append(active, t)
		case store.StatusBlocked:
			blocked = append(blocked, t)
		}
	}

	// Session durations are decoration; status works without the db.
	elapsed := map[string]time.Duration{}
	if tr, serr := a.sessions(); serr == nil {
		if open, err := tr.ActiveSessions(); err == nil {
			for _, s := range open {
				elapsed[s.TaskID] = s.Duration()
			}
		}
		tr.Close()
	}

	fmt.Printf("%s%s%s\n", colorBold, a.cfg.Project.Name, colorReset)

	fmt.Printf("\n%sIn progress:%s\n", colorBlue, colorReset)
	if len(active) == 0 {
		fmt.Printf("  %snothing active%s\n", colorDim, colorReset)
	}
	for _, t := range active {
		fmt.Printf("  %s (phase %d)", t.ID, t.PhaseID)
		if d, ok := elapsed[t.ID]; ok {
			fmt.Printf(" %s— working for %s%s", colorDim, d.Round(time.Minute), colorReset)
		}
		fmt.Println()
	}

	if len(blocked) > 0 {
		fmt.Printf("\n%sBlocked:%s\n", colorRed, colorReset)
		for _, t := range blocked {
			fmt.Printf("  %s — %s\n", t.ID, t.BlockedReason)
		}
	}

	fmt.Printf("\n%sReady to start:%s\n", colorGreen, colorReset)
	if len(snap.Eligible) == 0 {
		fmt.Printf("  %snothing eligible%s\n", colorDim, colorReset)
	}
	for _, t := range snap.Eligible {
		fmt.Printf("  %s (phase %d)\n", t.ID, t.PhaseID)
	}
	return nil
}
