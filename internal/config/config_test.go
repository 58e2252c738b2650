package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return root
}

func TestLoad(t *testing.T) {
	root := writeConfig(t, `
project:
  name: my-project
  description: Something worth tracking
  type: api
paths:
  phases_dir: planning/phases
`)

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Project.Name != "my-project" {
		t.Errorf("name = %q", cfg.Project.Name)
	}
	if cfg.Paths.PhasesDir != "planning/phases" {
		t.Errorf("phases_dir = %q", cfg.Paths.PhasesDir)
	}
	// Unset paths fall back to defaults.
	if cfg.Paths.TasksFile != "tasks.yml" {
		t.Errorf("tasks_file default not applied, got %q", cfg.Paths.TasksFile)
	}
	if cfg.Paths.SessionsDB != filepath.Join(".bruce", "sessions.db") {
		t.Errorf("sessions_db default not applied, got %q", cfg.Paths.SessionsDB)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestLoad_MissingName(t *testing.T) {
	root := writeConfig(t, `
project:
  description: nameless
`)
	_, err := Load(root)
	if err == nil || !strings.Contains(err.Error(), "project.name") {
		t.Fatalf("expected project.name error, got %v", err)
	}
}

func TestLoad_AbsolutePathRejected(t *testing.T) {
	root := writeConfig(t, `
project:
  name: p
paths:
  phases_dir: /etc/phases
`)
	_, err := Load(root)
	if err == nil || !strings.Contains(err.Error(), "relative") {
		t.Fatalf("expected relative-path error, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := Default("roundtrip")
	cfg.Project.Description = "back and forth"

	if err := Save(root, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Project.Name != "roundtrip" || loaded.Project.Description != "back and forth" {
		t.Errorf("round trip lost data: %+v", loaded.Project)
	}
}
