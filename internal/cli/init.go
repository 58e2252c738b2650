package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/brucedev/bruce/internal/config"
	"github.com/brucedev/bruce/internal/store"
)

var initDescription string

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Initialize a bruce project in the current directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initDescription, "desc", "d", "", "Project description")
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(wd, config.FileName)); err == nil {
		return fmt.Errorf("%s already exists here", config.FileName)
	}

	name := filepath.Base(wd)
	if len(args) == 1 {
		name = args[0]
	}

	cfg := config.Default(name)
	cfg.Project.Description = initDescription
	if err := config.Save(wd, cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(wd, cfg.Paths.PhasesDir), 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(wd, cfg.Paths.ContextsDir), 0755); err != nil {
		return err
	}

	// Seed a first phase so `bruce phases` has something to show.
	s := store.New(wd, store.Paths{PhasesDir: cfg.Paths.PhasesDir, TasksFile: cfg.Paths.TasksFile})
	phase := &store.Phase{
		PhaseInfo: store.PhaseInfo{
			ID:          1,
			Name:        "Foundation",
			Description: "Initial project setup",
		},
		Tasks: []*store.Task{
			{
				ID:          "setup_project",
				Description: "Describe the project and plan its first tasks",
				Status:      store.StatusPending,
				Output:      "A populated phase file with real tasks",
			},
		},
	}
	if err := s.WritePhase(phase); err != nil {
		return err
	}

	fmt.Printf("%sInitialized bruce project %q%s\n", colorGreen, name, colorReset)
	fmt.Printf("  %s — project config\n", config.FileName)
	fmt.Printf("  %s/ — one YAML file per phase\n", cfg.Paths.PhasesDir)
	fmt.Printf("\nNext: edit %s/phase1_foundation.yml, then %sbruce list%s\n",
		cfg.Paths.PhasesDir, colorCyan, colorReset)
	return nil
}
