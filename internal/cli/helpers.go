package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/brucedev/bruce/internal/config"
	"github.com/brucedev/bruce/internal/context"
	"github.com/brucedev/bruce/internal/lifecycle"
	"github.com/brucedev/bruce/internal/project"
	"github.com/brucedev/bruce/internal/session"
	"github.com/brucedev/bruce/internal/store"
)

var flagProjectRoot string

// ANSI color codes.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

// app bundles everything a command needs for one project.
type app struct {
	root string
	cfg  *config.Config
}

// mustApp resolves the project root and loads its config. Resolution
// order: --project-root flag, then the working directory if it holds a
// bruce.yml, then the registry's current project.
func mustApp() (*app, error) {
	root, err := resolveRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return &app{root: root, cfg: cfg}, nil
}

func resolveRoot() (string, error) {
	if flagProjectRoot != "" {
		return filepath.Abs(flagProjectRoot)
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(wd, config.FileName)); err == nil {
		return wd, nil
	}

	reg, err := project.Open("")
	if err == nil {
		if cur := reg.Current(); cur != nil {
			return cur.Path, nil
		}
	}
	return "", fmt.Errorf("no %s here and no current project set. Run: bruce init", config.FileName)
}

func (a *app) store() *store.Store {
	return store.New(a.root, store.Paths{
		PhasesDir: a.cfg.Paths.PhasesDir,
		TasksFile: a.cfg.Paths.TasksFile,
	})
}

func (a *app) engine() *lifecycle.Engine {
	return lifecycle.New(a.store())
}

func (a *app) builder() *context.Builder {
	return context.New(a.store())
}

func (a *app) sessions() (*session.Tracker, error) {
	return session.Open(filepath.Join(a.root, a.cfg.Paths.SessionsDB))
}

// statusColor maps a task status to its display color.
func statusColor(s store.TaskStatus) string {
	switch s {
	case store.StatusCompleted:
		return colorGreen
	case store.StatusInProgress:
		return colorBlue
	case store.StatusBlocked:
		return colorRed
	default:
		return colorYellow
	}
}
