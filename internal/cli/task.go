package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brucedev/bruce/internal/graph"
	"github.com/brucedev/bruce/internal/store"
)

var (
	listStatus string
	listPhase  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks grouped by phase",
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show task details, dependencies, and history",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Filter by status: pending, in-progress, completed, blocked")
	listCmd.Flags().IntVarP(&listPhase, "phase", "p", -1, "Filter by phase id")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	u, err := a.store().Load()
	if err != nil {
		return err
	}
	g, err := graph.Build(u)
	if err != nil {
		return err
	}

	if listStatus != "" && !store.ValidStatus(store.TaskStatus(listStatus)) {
		return fmt.Errorf("unknown status %q", listStatus)
	}

	shown := 0
	for _, p := range u.Phases {
		if listPhase >= 0 && p.ID != listPhase {
			continue
		}
		var rows []*store.Task
		for _, t := range p.Tasks {
			if listStatus != "" && string(t.Status) != listStatus {
				continue
			}
			rows = append(rows, t)
		}
		if len(rows) == 0 {
			continue
		}

		fmt.Printf("%s%sPhase %d: %s%s\n", colorBold, colorCyan, p.ID, p.Name, colorReset)
		for _, t := range rows {
			marker := " "
			if t.Status == store.StatusPending && len(g.UnmetDependencies(t.ID)) == 0 {
				marker = "*" // eligible to start now
			}
			fmt.Printf("  %s %s[%-11s]%s %s", marker, statusColor(t.Status), t.Status, colorReset, t.ID)
			if t.Description != "" {
				fmt.Printf(" %s— %s%s", colorDim, t.Description, colorReset)
			}
			fmt.Println()
		}
		shown += len(rows)
	}

	if shown == 0 {
		fmt.Printf("%sNo matching tasks.%s\n", colorDim, colorReset)
		return nil
	}
	fmt.Printf("\n%s* = ready to start%s\n", colorDim, colorReset)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := mustApp()
	if err != nil {
		return err
	}
	u, err := a.store().Load()
	if err != nil {
		return err
	}
	g, err := graph.Build(u)
	if err != nil {
		return err
	}
	t := u.Task(args[0])
	if t == nil {
		return &store.NotFoundError{ID: args[0]}
	}

	fmt.Printf("%s%s%s  %s[%s]%s\n", colorBold, t.ID, colorReset, statusColor(t.Status), t.Status, colorReset)
	fmt.Printf("Phase:       %d - %s\n", t.PhaseID, t.PhaseName)
	if t.Description != "" {
		fmt.Printf("Description: %s\n", t.Description)
	}
	if t.Output != "" {
		fmt.Printf("Output:      %s\n", t.Output)
	}
	if t.Why != "" {
		fmt.Printf("Why:         %s\n", t.Why)
	}
	if t.ConnectsTo != "" {
		fmt.Printf("Connects to: %s\n", t.ConnectsTo)
	}
	if t.Status == store.StatusBlocked && t.BlockedReason != "" {
		fmt.Printf("%sBlocked:     %s%s\n", colorRed, t.BlockedReason, colorReset)
	}

	if len(t.AcceptanceCriteria) > 0 {
		fmt.Println("\nAcceptance criteria:")
		for _, c := range t.AcceptanceCriteria {
			fmt.Printf("  - %s\n", c)
		}
	}

	if len(t.DependsOn) > 0 {
		unmet := map[string]bool{}
		for _, id := range g.UnmetDependencies(t.ID) {
			unmet[id] = true
		}
		fmt.Println("\nDepends on:")
		for _, dep := range t.DependsOn {
			state := colorGreen + "met" + colorReset
			if unmet[dep] {
				state = colorYellow + "unmet" + colorReset
			}
			fmt.Printf("  - %s (%s)\n", dep, state)
		}
	}
	if deps := g.Dependents(t.ID); len(deps) > 0 {
		fmt.Printf("\nUnlocks: %s\n", strings.Join(deps, ", "))
	}

	if len(t.Notes) > 0 {
		fmt.Println("\nHistory:")
		for _, h := range t.Notes {
			fmt.Printf("  %s%s%s  %s\n", colorDim, h.Timestamp.UTC().Format("2006-01-02 15:04"), colorReset, h.Note)
		}
	}
	return nil
}
