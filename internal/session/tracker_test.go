package session

import (
	"path/filepath"
	"testing"
)

func testTracker(t *testing.T) *Tracker {
	t.Helper()
	tr, err := Open(filepath.Join(t.TempDir(), ".bruce", "sessions.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestStartAndEnd(t *testing.T) {
	tr := testTracker(t)

	s, err := tr.Start("build_api")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Active() {
		t.Error("fresh session should be active")
	}

	ended, err := tr.End("build_api", "pausing for review")
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended == nil || ended.Active() {
		t.Fatal("session should have ended")
	}

	notes, err := tr.Notes(s.ID)
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected start + end notes, got %d", len(notes))
	}
	if notes[0].Text != "Session started" || notes[1].Text != "pausing for review" {
		t.Errorf("unexpected notes: %+v", notes)
	}
}

func TestEnd_NoActiveSession(t *testing.T) {
	tr := testTracker(t)

	s, err := tr.End("never_started", "")
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if s != nil {
		t.Error("expected nil for task with no active session")
	}
}

func TestStart_EndsStaleSession(t *testing.T) {
	tr := testTracker(t)

	first, err := tr.Start("task")
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	second, err := tr.Start("task")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("expected a new session")
	}

	sessions, err := tr.Sessions("task")
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].Active() {
		t.Error("stale session should be closed")
	}
	if !sessions[1].Active() {
		t.Error("new session should be active")
	}
}

func TestAddNote(t *testing.T) {
	tr := testTracker(t)

	ok, err := tr.AddNote("task", "before any session")
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if ok {
		t.Error("note without a session should report false")
	}

	s, _ := tr.Start("task")
	ok, err = tr.AddNote("task", "midway progress")
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if !ok {
		t.Fatal("note with active session should report true")
	}

	notes, _ := tr.Notes(s.ID)
	if len(notes) != 2 || notes[1].Text != "midway progress" {
		t.Errorf("unexpected notes: %+v", notes)
	}
}

func TestAddNote_InsertFailureSurfaces(t *testing.T) {
	tr := testTracker(t)

	if _, err := tr.Start("task"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := tr.db.Exec("DROP TABLE session_notes"); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	if _, err := tr.AddNote("task", "into the void"); err == nil {
		t.Fatal("expected error when the note insert fails")
	}
}

func TestActiveSessions(t *testing.T) {
	tr := testTracker(t)

	if _, err := tr.Start("one"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := tr.Start("two"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := tr.End("one", ""); err != nil {
		t.Fatalf("End: %v", err)
	}

	open, err := tr.ActiveSessions()
	if err != nil {
		t.Fatalf("ActiveSessions: %v", err)
	}
	if len(open) != 1 || open[0].TaskID != "two" {
		t.Errorf("expected only task two open, got %+v", open)
	}
}

func TestSummarize(t *testing.T) {
	tr := testTracker(t)

	if _, err := tr.Start("task"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := tr.End("task", ""); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := tr.Start("task"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sum, err := tr.Summarize("task")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.TotalSessions != 2 {
		t.Errorf("expected 2 sessions, got %d", sum.TotalSessions)
	}
	if sum.Last == nil || !sum.Last.Active() {
		t.Error("last session should be the active one")
	}

	empty, err := tr.Summarize("untouched")
	if err != nil {
		t.Fatalf("Summarize empty: %v", err)
	}
	if empty.TotalSessions != 0 || empty.Last != nil {
		t.Errorf("expected empty summary, got %+v", empty)
	}
}
