package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brucedev/bruce/internal/project"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage the registry of bruce projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects",
	RunE:  runProjectsList,
}

var projectsAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Register a project (default: current directory)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProjectsAdd,
}

var projectsRemoveCmd = &cobra.Command{
	Use:   "remove [path]",
	Short: "Remove a project from the registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsRemove,
}

var projectsUseCmd = &cobra.Command{
	Use:   "use [path]",
	Short: "Set the current project for commands run elsewhere",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsUse,
}

var projectsDiscoverCmd = &cobra.Command{
	Use:   "discover [paths...]",
	Short: "Scan directories for bruce projects and register them",
	RunE:  runProjectsDiscover,
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsAddCmd)
	projectsCmd.AddCommand(projectsRemoveCmd)
	projectsCmd.AddCommand(projectsUseCmd)
	projectsCmd.AddCommand(projectsDiscoverCmd)
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	reg, err := project.Open("")
	if err != nil {
		return err
	}

	entries := reg.List()
	if len(entries) == 0 {
		fmt.Printf("%sNo projects registered.%s Run: bruce projects add\n", colorDim, colorReset)
		return nil
	}

	cur := reg.Current()
	for _, e := range entries {
		marker := " "
		if cur != nil && cur.Path == e.Path {
			marker = colorGreen + "*" + colorReset
		}
		fmt.Printf("%s %s%s%s  %s%s%s\n", marker, colorBold, e.Name, colorReset, colorDim, e.Path, colorReset)
		if e.Description != "" {
			fmt.Printf("    %s\n", e.Description)
		}
	}
	return nil
}

func runProjectsAdd(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) == 1 {
		path = args[0]
	} else if wd, err := os.Getwd(); err == nil {
		path = wd
	}

	reg, err := project.Open("")
	if err != nil {
		return err
	}
	e, err := reg.Register(path)
	if err != nil {
		return err
	}
	fmt.Printf("%sRegistered%s %s (%s)\n", colorGreen, colorReset, e.Name, e.Path)
	return nil
}

func runProjectsRemove(cmd *cobra.Command, args []string) error {
	reg, err := project.Open("")
	if err != nil {
		return err
	}
	removed, err := reg.Unregister(args[0])
	if err != nil {
		return err
	}
	if !removed {
		fmt.Printf("%sNot registered: %s%s\n", colorDim, args[0], colorReset)
		return nil
	}
	fmt.Println("Removed.")
	return nil
}

func runProjectsUse(cmd *cobra.Command, args []string) error {
	reg, err := project.Open("")
	if err != nil {
		return err
	}
	if err := reg.SetCurrent(args[0]); err != nil {
		return err
	}
	fmt.Printf("%sCurrent project set.%s\n", colorGreen, colorReset)
	return nil
}

func runProjectsDiscover(cmd *cobra.Command, args []string) error {
	reg, err := project.Open("")
	if err != nil {
		return err
	}
	n, err := reg.Discover(args)
	if err != nil {
		return err
	}
	fmt.Printf("Registered %d project(s).\n", n)
	return nil
}
