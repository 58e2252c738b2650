package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bruce",
	Short: "Phase-based task tracking with dependency ordering",
	Long: "bruce — tracks tasks grouped into phases, enforces dependency order,\n" +
		"and generates handoff context so a collaborator can pick up where you left off.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProjectRoot, "project-root", "", "Project root directory (default: current directory or registered current project)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(unblockCmd)
	rootCmd.AddCommand(reopenCmd)
	rootCmd.AddCommand(phasesCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(handoffCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(uiCmd)
}
