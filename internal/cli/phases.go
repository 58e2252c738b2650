package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var phasesCmd = &cobra.Command{
	Use:   "phases",
	Short: "Show progress per phase",
	RunE:  runPhases,
}

const barWidth = 24

func runPhases(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	snap, err := a.builder().ProjectSnapshot()
	if err != nil {
		return err
	}

	if len(snap.Phases) == 0 {
		fmt.Printf("%sNo phases yet.%s Add files under %s/\n", colorDim, colorReset, a.cfg.Paths.PhasesDir)
		return nil
	}

	fmt.Printf("%s%s%s\n\n", colorBold, a.cfg.Project.Name, colorReset)
	for _, p := range snap.Phases {
		filled := 0
		if p.Total > 0 {
			filled = p.Completed * barWidth / p.Total
		}
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

		fmt.Printf("%sPhase %d: %s%s\n", colorCyan, p.ID, p.Name, colorReset)
		fmt.Printf("  %s%s%s %5.1f%%  (%d/%d done", colorGreen, bar, colorReset, p.Percent, p.Completed, p.Total)
		if p.InProgress > 0 {
			fmt.Printf(", %d active", p.InProgress)
		}
		if p.Blocked > 0 {
			fmt.Printf(", %s%d blocked%s", colorRed, p.Blocked, colorReset)
		}
		fmt.Println(")")
	}
	return nil
}
