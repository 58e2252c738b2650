// Package project keeps the registry of known bruce projects under the
// user's home directory, so the CLI can address a project from anywhere.
package project

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brucedev/bruce/internal/config"
)

// Entry describes one registered project.
type Entry struct {
	Name         string    `yaml:"name"`
	Description  string    `yaml:"description,omitempty"`
	Path         string    `yaml:"path"`
	RegisteredAt time.Time `yaml:"registered_at"`
}

// settings is the small mutable state next to the registry.
type settings struct {
	CurrentProject string   `json:"current_project,omitempty"`
	ScanPaths      []string `json:"scan_paths,omitempty"`
}

// Registry reads and writes the project list in its home directory
// (normally ~/.bruce). Each Registry instance is independent.
type Registry struct {
	home     string
	entries  map[string]Entry // keyed by resolved path
	settings settings
}

// Open loads (or initializes) the registry at home. An empty home uses
// ~/.bruce.
func Open(home string) (*Registry, error) {
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home: %w", err)
		}
		home = filepath.Join(dir, ".bruce")
	}
	if err := os.MkdirAll(home, 0755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}

	r := &Registry{home: home, entries: make(map[string]Entry)}

	if data, err := os.ReadFile(r.registryPath()); err == nil {
		var list []Entry
		if err := yaml.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("parse project registry: %w", err)
		}
		for _, e := range list {
			r.entries[e.Path] = e
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read project registry: %w", err)
	}

	if data, err := os.ReadFile(r.settingsPath()); err == nil {
		if err := json.Unmarshal(data, &r.settings); err != nil {
			return nil, fmt.Errorf("parse settings: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	return r, nil
}

func (r *Registry) registryPath() string { return filepath.Join(r.home, "projects.yml") }
func (r *Registry) settingsPath() string { return filepath.Join(r.home, "settings.json") }

// Register adds or refreshes a project rooted at path. The project's
// bruce.yml supplies name and description.
func (r *Registry) Register(path string) (*Entry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	cfg, err := config.Load(abs)
	if err != nil {
		return nil, fmt.Errorf("not a bruce project at %s: %w", abs, err)
	}

	e := Entry{
		Name:         cfg.Project.Name,
		Description:  cfg.Project.Description,
		Path:         abs,
		RegisteredAt: time.Now().UTC(),
	}
	if prev, ok := r.entries[abs]; ok {
		e.RegisteredAt = prev.RegisteredAt
	}
	r.entries[abs] = e

	if err := r.save(); err != nil {
		return nil, err
	}
	return &e, nil
}

// Unregister removes a project from the registry. Reports whether it
// was present.
func (r *Registry) Unregister(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", path, err)
	}
	if _, ok := r.entries[abs]; !ok {
		return false, nil
	}
	delete(r.entries, abs)
	if r.settings.CurrentProject == abs {
		r.settings.CurrentProject = ""
	}
	return true, r.save()
}

// List returns all registered projects sorted by name, then path.
func (r *Registry) List() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// SetCurrent marks a registered project as the default for commands run
// outside a project directory.
func (r *Registry) SetCurrent(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if _, ok := r.entries[abs]; !ok {
		return fmt.Errorf("project %s is not registered", abs)
	}
	r.settings.CurrentProject = abs
	return r.save()
}

// Current returns the current project entry, or nil if unset.
func (r *Registry) Current() *Entry {
	if r.settings.CurrentProject == "" {
		return nil
	}
	if e, ok := r.entries[r.settings.CurrentProject]; ok {
		return &e
	}
	return nil
}

// Discover walks the given paths for directories containing bruce.yml
// and registers each one found. Returns the number registered.
func (r *Registry) Discover(scanPaths []string) (int, error) {
	if len(scanPaths) == 0 {
		scanPaths = r.settings.ScanPaths
	}
	found := 0
	for _, sp := range scanPaths {
		err := filepath.WalkDir(sp, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable subtree, keep walking
			}
			if d.IsDir() && d.Name() != "." && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			if !d.IsDir() && d.Name() == config.FileName {
				if _, err := r.Register(filepath.Dir(path)); err == nil {
					found++
				}
			}
			return nil
		})
		if err != nil {
			return found, err
		}
	}
	return found, nil
}

// AddScanPath remembers a directory for future Discover calls.
func (r *Registry) AddScanPath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	for _, p := range r.settings.ScanPaths {
		if p == abs {
			return nil
		}
	}
	r.settings.ScanPaths = append(r.settings.ScanPaths, abs)
	return r.save()
}

func (r *Registry) save() error {
	list := r.List()
	data, err := yaml.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	if err := os.WriteFile(r.registryPath(), data, 0644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}

	sdata, err := json.MarshalIndent(r.settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(r.settingsPath(), sdata, 0644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
