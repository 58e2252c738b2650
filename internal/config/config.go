package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project marker: a directory containing bruce.yml is a
// bruce project root.
const FileName = "bruce.yml"

// Config is the root configuration for a bruce project.
type Config struct {
	Project Project `yaml:"project"`
	Paths   Dirs    `yaml:"paths"`
}

// Project identifies the project in rendered output.
type Project struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Type        string `yaml:"type,omitempty"`
}

// Dirs locates the task containers and generated artifacts, relative to
// the project root.
type Dirs struct {
	PhasesDir   string `yaml:"phases_dir"`
	TasksFile   string `yaml:"tasks_file"`
	ContextsDir string `yaml:"contexts_dir"`
	SessionsDB  string `yaml:"sessions_db"`
}

// Default returns a starter config for a new project.
func Default(name string) *Config {
	return &Config{
		Project: Project{Name: name, Type: "general"},
		Paths: Dirs{
			PhasesDir:   "phases",
			TasksFile:   "tasks.yml",
			ContextsDir: "contexts",
			SessionsDB:  filepath.Join(".bruce", "sessions.db"),
		},
	}
}

// Load reads and parses the config file at the project root.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to the project root.
func Save(root string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(root, FileName), data, 0644)
}

// applyDefaults fills in unset paths so hand-edited configs stay short.
func (c *Config) applyDefaults() {
	def := Default(c.Project.Name)
	if c.Paths.PhasesDir == "" {
		c.Paths.PhasesDir = def.Paths.PhasesDir
	}
	if c.Paths.TasksFile == "" {
		c.Paths.TasksFile = def.Paths.TasksFile
	}
	if c.Paths.ContextsDir == "" {
		c.Paths.ContextsDir = def.Paths.ContextsDir
	}
	if c.Paths.SessionsDB == "" {
		c.Paths.SessionsDB = def.Paths.SessionsDB
	}
}

func (c *Config) validate() error {
	if c.Project.Name == "" {
		return fmt.Errorf("config: project.name is required")
	}
	for field, p := range map[string]string{
		"paths.phases_dir":   c.Paths.PhasesDir,
		"paths.tasks_file":   c.Paths.TasksFile,
		"paths.contexts_dir": c.Paths.ContextsDir,
		"paths.sessions_db":  c.Paths.SessionsDB,
	} {
		if filepath.IsAbs(p) {
			return fmt.Errorf("config: %s must be relative to the project root, got %q", field, p)
		}
	}
	return nil
}
