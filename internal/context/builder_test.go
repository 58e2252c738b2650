package context

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brucedev/bruce/internal/store"
)

func testBuilder(t *testing.T, files map[string]string) *Builder {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "phases"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, "phases", name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return New(store.New(root, store.DefaultPaths()))
}

func TestTaskContext(t *testing.T) {
	b := testBuilder(t, map[string]string{
		"phase1_main.yml": `
phase:
  id: 1
  name: Main
  context:
    background: The groundwork
    constraints: No new services
tasks:
  - id: done_dep
    status: completed
  - id: pending_dep
    status: pending
  - id: target
    status: in-progress
    description: The work itself
    depends_on: [done_dep, pending_dep]
  - id: follower
    status: pending
    depends_on: [target]
`,
	})

	tc, err := b.TaskContext("target")
	if err != nil {
		t.Fatalf("TaskContext: %v", err)
	}
	if tc.Task.ID != "target" {
		t.Fatalf("wrong task %s", tc.Task.ID)
	}
	if tc.Phase == nil || tc.Phase.Name != "Main" {
		t.Fatal("phase not attached")
	}

	// Ancestors are filtered to completed and in-progress; descendants
	// come through regardless of status.
	ids := map[string]bool{}
	for _, r := range tc.Related {
		ids[r.Task.ID] = true
	}
	if !ids["done_dep"] {
		t.Error("completed ancestor missing")
	}
	if ids["pending_dep"] {
		t.Error("pending ancestor should be filtered out")
	}
	if !ids["follower"] {
		t.Error("pending descendant missing")
	}
}

func TestTaskContext_NotFound(t *testing.T) {
	b := testBuilder(t, map[string]string{
		"phase1_main.yml": `
phase: {id: 1, name: Main}
tasks:
  - id: a
`,
	})
	if _, err := b.TaskContext("ghost"); err == nil {
		t.Fatal("expected error for unknown task")
	}
}

func TestProjectSnapshot(t *testing.T) {
	b := testBuilder(t, map[string]string{
		"phase1_main.yml": `
phase: {id: 1, name: Main}
tasks:
  - id: a
    status: completed
  - id: b
    status: in-progress
  - id: c
    status: pending
  - id: d
    status: pending
    depends_on: [b]
`,
		"phase2_next.yml": `
phase: {id: 2, name: Next}
tasks:
  - id: e
    status: blocked
    blocked_reason: waiting
`,
	})

	snap, err := b.ProjectSnapshot()
	if err != nil {
		t.Fatalf("ProjectSnapshot: %v", err)
	}
	if len(snap.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(snap.Phases))
	}

	p1 := snap.Phases[0]
	if p1.Total != 4 || p1.Completed != 1 || p1.InProgress != 1 || p1.Pending != 2 {
		t.Errorf("phase 1 counts wrong: %+v", p1)
	}
	if p1.Percent != 25.0 {
		t.Errorf("expected 25.0%%, got %.1f", p1.Percent)
	}
	if snap.Phases[1].Blocked != 1 || snap.Phases[1].Percent != 0.0 {
		t.Errorf("phase 2 counts wrong: %+v", snap.Phases[1])
	}

	// c has no dependencies, d waits on b.
	if len(snap.Eligible) != 1 || snap.Eligible[0].ID != "c" {
		ids := []string{}
		for _, e := range snap.Eligible {
			ids = append(ids, e.ID)
		}
		t.Errorf("expected eligible [c], got %v", ids)
	}
}

func TestProjectSnapshot_OneThirdRounding(t *testing.T) {
	b := testBuilder(t, map[string]string{
		"phase1_main.yml": `
phase: {id: 1, name: Main}
tasks:
  - id: a
    status: completed
  - id: b
  - id: c
`,
	})
	snap, err := b.ProjectSnapshot()
	if err != nil {
		t.Fatalf("ProjectSnapshot: %v", err)
	}
	if got := snap.Phases[0].Percent; got != 33.3 {
		t.Errorf("expected 33.3, got %v", got)
	}
}

func TestRender_Deterministic(t *testing.T) {
	ts := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	tc := &TaskContext{
		Task: &store.Task{
			ID:                 "build_api",
			Description:        "Build the API",
			Status:             store.StatusInProgress,
			Output:             "A running service",
			DependsOn:          []string{"design_api"},
			AcceptanceCriteria: []string{"All endpoints respond"},
			PhaseID:            1,
			PhaseName:          "Main",
		},
		Phase: &store.Phase{
			PhaseInfo: store.PhaseInfo{
				ID:      1,
				Name:    "Main",
				Context: store.PhaseContext{Background: "Greenfield"},
			},
		},
		History: []store.HistoryEntry{
			{Timestamp: ts, Note: "Task started"},
		},
	}

	out := Render(tc)
	if out != Render(tc) {
		t.Fatal("render is not deterministic")
	}

	for _, want := range []string{
		"# Context for Task: build_api",
		"**Phase:** 1 - Main",
		"**Status:** in-progress",
		"**Expected Output:** A running service",
		"- All endpoints respond",
		"**Dependencies:** design_api",
		"**Background:** Greenfield",
		"## History",
		"2026-01-15 10:00 — Task started",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered output missing %q", want)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("rendered output should end with a newline")
	}
}

func TestRender_OmitsEmptySections(t *testing.T) {
	tc := &TaskContext{
		Task: &store.Task{ID: "bare", Status: store.StatusPending, PhaseID: 1, PhaseName: "Main"},
	}
	out := Render(tc)
	if strings.Contains(out, "## Phase Context") {
		t.Error("empty phase context should be omitted")
	}
	if strings.Contains(out, "## Related Tasks") || strings.Contains(out, "## History") {
		t.Error("empty sections should be omitted")
	}
	if !strings.Contains(out, "**Description:** Not specified") {
		t.Error("missing fields should render as Not specified")
	}
}

func TestRenderSnapshot(t *testing.T) {
	s := &Snapshot{
		Phases: []PhaseProgress{
			{ID: 1, Name: "Main", Total: 2, Completed: 1, Pending: 1, Percent: 50.0},
		},
		Eligible: []*store.Task{
			{ID: "next_up", PhaseID: 1, Description: "The next thing"},
		},
	}
	out := RenderSnapshot(s)

	for _, want := range []string{
		"# Project Snapshot",
		"## Phase 1: Main",
		"Progress: 50.0% (1/2 completed)",
		"## Ready to Start",
		"- next_up (phase 1): The next thing",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("snapshot missing %q", want)
		}
	}
}

func TestRenderSnapshot_NoEligible(t *testing.T) {
	out := RenderSnapshot(&Snapshot{})
	if !strings.Contains(out, "No tasks are currently eligible.") {
		t.Error("empty eligible list should say so")
	}
}
