package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// testStore creates a store over a temporary project root.
func testStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir(), DefaultPaths())
}

func writePhaseFile(t *testing.T, s *Store, name, content string) {
	t.Helper()
	dir := filepath.Join(s.Root(), "phases")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir phases: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func writeLegacyFile(t *testing.T, s *Store, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(s.Root(), "tasks.yml"), []byte(content), 0644); err != nil {
		t.Fatalf("write tasks.yml: %v", err)
	}
}

func TestLoad_EmptyProject(t *testing.T) {
	s := testStore(t)

	u, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if u.Len() != 0 {
		t.Errorf("expected empty universe, got %d tasks", u.Len())
	}
}

func TestLoad_MergesLegacyAndPhases(t *testing.T) {
	s := testStore(t)
	writeLegacyFile(t, s, `
tasks:
  - id: old_task
    description: From the flat file
    status: completed
`)
	writePhaseFile(t, s, "phase1_setup.yml", `
phase:
  id: 1
  name: Setup
tasks:
  - id: new_task
    status: pending
    depends_on: [old_task]
`)

	u, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if u.Len() != 2 {
		t.Fatalf("expected 2 tasks, got %d", u.Len())
	}

	old := u.Task("old_task")
	if old == nil {
		t.Fatal("old_task not loaded")
	}
	if old.PhaseID != LegacyPhaseID || old.PhaseName != LegacyPhaseName {
		t.Errorf("legacy task got phase %d %q", old.PhaseID, old.PhaseName)
	}

	nt := u.Task("new_task")
	if nt == nil {
		t.Fatal("new_task not loaded")
	}
	if nt.PhaseID != 1 || nt.PhaseName != "Setup" {
		t.Errorf("expected phase 1 Setup, got %d %q", nt.PhaseID, nt.PhaseName)
	}

	// Legacy phase sorts first.
	if u.Phases[0].ID != LegacyPhaseID || u.Phases[1].ID != 1 {
		t.Errorf("phases out of order: %d, %d", u.Phases[0].ID, u.Phases[1].ID)
	}
}

func TestLoad_EmptyStatusDefaultsToPending(t *testing.T) {
	s := testStore(t)
	writePhaseFile(t, s, "phase1_setup.yml", `
phase:
  id: 1
  name: Setup
tasks:
  - id: a
`)

	u, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := u.Task("a").Status; got != StatusPending {
		t.Errorf("expected pending, got %s", got)
	}
}

func TestLoad_UnknownStatus(t *testing.T) {
	s := testStore(t)
	writePhaseFile(t, s, "phase1_setup.yml", `
phase:
  id: 1
  name: Setup
tasks:
  - id: a
    status: paused
`)

	_, err := s.Load()
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !strings.Contains(le.Reason, "paused") {
		t.Errorf("reason should name the bad status, got %q", le.Reason)
	}
}

func TestLoad_DuplicateID(t *testing.T) {
	s := testStore(t)
	writePhaseFile(t, s, "phase1_setup.yml", `
phase: {id: 1, name: Setup}
tasks:
  - id: shared
    status: pending
`)
	writePhaseFile(t, s, "phase2_build.yml", `
phase: {id: 2, name: Build}
tasks:
  - id: shared
    status: pending
`)

	_, err := s.Load()
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !strings.Contains(le.Reason, "shared") {
		t.Errorf("reason should name the duplicate id, got %q", le.Reason)
	}
}

func TestLoad_DuplicatePhaseID(t *testing.T) {
	s := testStore(t)
	writePhaseFile(t, s, "phase1_setup.yml", `
phase: {id: 1, name: Setup}
tasks:
  - id: a
    status: pending
`)
	writePhaseFile(t, s, "phase1_other.yml", `
phase: {id: 1, name: Other}
tasks:
  - id: b
    status: pending
`)

	_, err := s.Load()
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !strings.Contains(le.Reason, "duplicate phase id 1") {
		t.Errorf("reason should name the duplicate phase id, got %q", le.Reason)
	}
}

func TestLoad_PhaseZeroCollidesWithLegacy(t *testing.T) {
	s := testStore(t)
	writeLegacyFile(t, s, `
tasks:
  - id: old
    status: pending
`)
	writePhaseFile(t, s, "phase0_extra.yml", `
phase: {id: 0, name: Extra}
tasks:
  - id: a
    status: pending
`)

	_, err := s.Load()
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !strings.Contains(le.Reason, "duplicate phase id 0") {
		t.Errorf("reason should name phase 0, got %q", le.Reason)
	}
}

func TestLoad_DanglingDependency(t *testing.T) {
	s := testStore(t)
	writePhaseFile(t, s, "phase1_setup.yml", `
phase: {id: 1, name: Setup}
tasks:
  - id: a
    status: pending
    depends_on: [ghost]
`)

	_, err := s.Load()
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !strings.Contains(le.Reason, "ghost") {
		t.Errorf("reason should name the missing id, got %q", le.Reason)
	}
}

func TestLoad_ForwardDependencyAcrossFiles(t *testing.T) {
	// A phase 1 task may depend on a phase 2 task; references resolve
	// only after every container is loaded.
	s := testStore(t)
	writePhaseFile(t, s, "phase1_setup.yml", `
phase: {id: 1, name: Setup}
tasks:
  - id: a
    status: pending
    depends_on: [b]
`)
	writePhaseFile(t, s, "phase2_build.yml", `
phase: {id: 2, name: Build}
tasks:
  - id: b
    status: pending
`)

	if _, err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoad_UnparseableYAML(t *testing.T) {
	s := testStore(t)
	writePhaseFile(t, s, "phase1_setup.yml", "phase: [this is: not valid\n")

	_, err := s.Load()
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
}

func TestSaveTask_PreservesSiblings(t *testing.T) {
	s := testStore(t)
	writePhaseFile(t, s, "phase1_setup.yml", `
phase:
  id: 1
  name: Setup
  context:
    background: Early groundwork
tasks:
  - id: a
    description: First
    status: pending
  - id: b
    description: Second
    status: pending
`)

	u, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a := u.Task("a")
	a.Status = StatusInProgress
	if err := s.SaveTask(a); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}

	u2, err := s.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := u2.Task("a").Status; got != StatusInProgress {
		t.Errorf("a status not persisted, got %s", got)
	}
	if got := u2.Task("b").Description; got != "Second" {
		t.Errorf("sibling b mutated, description %q", got)
	}
	if got := u2.Phase(1).Context.Background; got != "Early groundwork" {
		t.Errorf("phase context lost, got %q", got)
	}
}

func TestSaveTask_Legacy(t *testing.T) {
	s := testStore(t)
	writeLegacyFile(t, s, `
tasks:
  - id: old
    status: pending
`)

	u, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	old := u.Task("old")
	old.Status = StatusCompleted
	if err := s.SaveTask(old); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}

	u2, err := s.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := u2.Task("old").Status; got != StatusCompleted {
		t.Errorf("legacy task not persisted, got %s", got)
	}
}

func TestSaveTask_RemovedFromContainer(t *testing.T) {
	s := testStore(t)
	writePhaseFile(t, s, "phase1_setup.yml", `
phase: {id: 1, name: Setup}
tasks:
  - id: a
    status: pending
`)

	u, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a := u.Task("a")

	// Someone edits the file and removes the task before we save.
	writePhaseFile(t, s, "phase1_setup.yml", `
phase: {id: 1, name: Setup}
tasks:
  - id: other
    status: pending
`)

	err = s.SaveTask(a)
	var pe *PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistError, got %v", err)
	}
}

func TestSaveTask_ConcurrentWritesAllLand(t *testing.T) {
	s := testStore(t)
	writePhaseFile(t, s, "phase1_setup.yml", `
phase: {id: 1, name: Setup}
tasks:
  - id: a
    status: pending
  - id: b
    status: pending
  - id: c
    status: pending
`)

	u, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			task := u.Task(id)
			task.Status = StatusInProgress
			if err := s.SaveTask(task); err != nil {
				t.Errorf("SaveTask %s: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	u2, err := s.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if got := u2.Task(id).Status; got != StatusInProgress {
			t.Errorf("task %s lost its update, status %s", id, got)
		}
	}
}

func TestSaveTask_StaleCopyRefused(t *testing.T) {
	s := testStore(t)
	writePhaseFile(t, s, "phase1_setup.yml", `
phase: {id: 1, name: Setup}
tasks:
  - id: a
    status: pending
`)

	// Two writers load the same state.
	u1, err := s.Load()
	if err != nil {
		t.Fatalf("Load u1: %v", err)
	}
	u2, err := s.Load()
	if err != nil {
		t.Fatalf("Load u2: %v", err)
	}

	// Writer B blocks the task and commits.
	b := u2.Task("a")
	b.Status = StatusBlocked
	b.BlockedReason = "waiting on credentials"
	b.Notes = append(b.Notes, HistoryEntry{Note: "Blocked: waiting on credentials"})
	if err := s.SaveTask(b); err != nil {
		t.Fatalf("SaveTask (writer B): %v", err)
	}

	// Writer A still holds the pre-block copy and tries to start it.
	a := u1.Task("a")
	a.Status = StatusInProgress
	a.Notes = append(a.Notes, HistoryEntry{Note: "Task started"})
	err = s.SaveTask(a)
	var pe *PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("stale save must fail with PersistError, got %v", err)
	}
	if !strings.Contains(pe.Reason, "concurrent modification") {
		t.Errorf("expected concurrent-modification reason, got %q", pe.Reason)
	}

	// Writer B's commit survives untouched.
	u3, err := s.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	final := u3.Task("a")
	if final.Status != StatusBlocked {
		t.Errorf("writer B's status overwritten, got %s", final.Status)
	}
	if len(final.Notes) != 1 || final.Notes[0].Note != "Blocked: waiting on credentials" {
		t.Errorf("writer B's history lost: %+v", final.Notes)
	}
}

func TestSaveTask_RepeatedSavesOfSameCopy(t *testing.T) {
	s := testStore(t)
	writePhaseFile(t, s, "phase1_setup.yml", `
phase: {id: 1, name: Setup}
tasks:
  - id: a
    status: pending
`)

	u, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a := u.Task("a")

	a.Status = StatusInProgress
	a.Notes = append(a.Notes, HistoryEntry{Note: "Task started"})
	if err := s.SaveTask(a); err != nil {
		t.Fatalf("first SaveTask: %v", err)
	}

	// The same in-memory copy stays current after its own save.
	a.Status = StatusCompleted
	a.Notes = append(a.Notes, HistoryEntry{Note: "Completed: done"})
	if err := s.SaveTask(a); err != nil {
		t.Fatalf("second SaveTask: %v", err)
	}

	u2, err := s.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := u2.Task("a"); got.Status != StatusCompleted || len(got.Notes) != 2 {
		t.Errorf("expected completed with 2 notes, got %s with %d", got.Status, len(got.Notes))
	}
}

func TestWritePhase_NamesFileFromSlug(t *testing.T) {
	s := testStore(t)
	p := &Phase{
		PhaseInfo: PhaseInfo{ID: 3, Name: "Data Layer"},
		Tasks:     []*Task{{ID: "schema", Status: StatusPending}},
	}
	if err := s.WritePhase(p); err != nil {
		t.Fatalf("WritePhase: %v", err)
	}
	if filepath.Base(p.File) != "phase3_data_layer.yml" {
		t.Errorf("unexpected file name %s", filepath.Base(p.File))
	}

	u, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if u.Task("schema") == nil {
		t.Error("written phase not loadable")
	}
}
