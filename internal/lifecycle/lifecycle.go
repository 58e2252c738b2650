// Package lifecycle is the sole state-machine authority for task status.
// Every transition validates against the dependency graph, appends
// exactly one history entry, and persists through the store. Nothing
// else in the engine mutates task state.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/brucedev/bruce/internal/graph"
	"github.com/brucedev/bruce/internal/store"
)

// InvalidTransitionError means the task's current status does not permit
// the requested operation.
type InvalidTransitionError struct {
	ID   string
	From store.TaskStatus
	Op   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s task %q from status %s", e.Op, e.ID, e.From)
}

// DependenciesUnmetError means a start was attempted while prerequisites
// are incomplete. Unmet carries the blocking ids, sorted.
type DependenciesUnmetError struct {
	ID    string
	Unmet []string
}

func (e *DependenciesUnmetError) Error() string {
	return fmt.Sprintf("task %q has unmet dependencies: %s", e.ID, strings.Join(e.Unmet, ", "))
}

// Engine drives task status transitions for one project. Construct one
// per project root; engines share no state.
type Engine struct {
	store *store.Store
	now   func() time.Time
}

// New creates an engine over the given store.
func New(s *store.Store) *Engine {
	return &Engine{store: s, now: time.Now}
}

// load pulls a fresh universe, builds the graph over it, and resolves the
// task. A cyclic or corrupt graph aborts the operation.
func (e *Engine) load(id string) (*store.Universe, *graph.Graph, *store.Task, error) {
	u, err := e.store.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	g, err := graph.Build(u)
	if err != nil {
		return nil, nil, nil, err
	}
	t := u.Task(id)
	if t == nil {
		return nil, nil, nil, &store.NotFoundError{ID: id}
	}
	return u, g, t, nil
}

// appendNote records one history entry with the current timestamp.
// History is append-only; entries are never edited or dropped.
func (e *Engine) appendNote(t *store.Task, note string) {
	t.Notes = append(t.Notes, store.HistoryEntry{Timestamp: e.now().UTC(), Note: note})
}

// Start moves a pending task to in-progress. It fails with
// DependenciesUnmetError while any dependency is not completed.
func (e *Engine) Start(id string) (*store.Task, error) {
	_, g, t, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if t.Status != store.StatusPending {
		return nil, &InvalidTransitionError{ID: id, From: t.Status, Op: "start"}
	}
	if unmet := g.UnmetDependencies(id); len(unmet) > 0 {
		return nil, &DependenciesUnmetError{ID: id, Unmet: unmet}
	}

	t.Status = store.StatusInProgress
	e.appendNote(t, "Task started")
	if err := e.store.SaveTask(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Complete marks a task completed. Direct completion from pending is
// permitted; completing an already-completed task fails without touching
// its history.
func (e *Engine) Complete(id, message string) (*store.Task, error) {
	_, _, t, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if t.Status != store.StatusInProgress && t.Status != store.StatusPending {
		return nil, &InvalidTransitionError{ID: id, From: t.Status, Op: "complete"}
	}

	now := e.now().UTC()
	t.Status = store.StatusCompleted
	t.CompletedAt = &now
	if message == "" {
		message = "Task completed"
	}
	e.appendNote(t, "Completed: "+message)
	if err := e.store.SaveTask(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Block marks a pending or in-progress task blocked with a reason.
func (e *Engine) Block(id, reason string) (*store.Task, error) {
	_, _, t, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if t.Status != store.StatusPending && t.Status != store.StatusInProgress {
		return nil, &InvalidTransitionError{ID: id, From: t.Status, Op: "block"}
	}

	now := e.now().UTC()
	t.Status = store.StatusBlocked
	t.BlockedAt = &now
	t.BlockedReason = reason
	e.appendNote(t, "Blocked: "+reason)
	if err := e.store.SaveTask(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Unblock returns a blocked task to pending, clearing the block marker.
func (e *Engine) Unblock(id string) (*store.Task, error) {
	_, _, t, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if t.Status != store.StatusBlocked {
		return nil, &InvalidTransitionError{ID: id, From: t.Status, Op: "unblock"}
	}

	t.Status = store.StatusPending
	t.BlockedAt = nil
	t.BlockedReason = ""
	e.appendNote(t, "Unblocked")
	if err := e.store.SaveTask(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Reopen returns a completed task to pending. This is the only way out
// of the completed status.
func (e *Engine) Reopen(id string) (*store.Task, error) {
	_, _, t, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if t.Status != store.StatusCompleted {
		return nil, &InvalidTransitionError{ID: id, From: t.Status, Op: "reopen"}
	}

	t.Status = store.StatusPending
	t.CompletedAt = nil
	e.appendNote(t, "Reopened")
	if err := e.store.SaveTask(t); err != nil {
		return nil, err
	}
	return t, nil
}
