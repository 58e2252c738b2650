// Package context assembles handoff documents from task data: the
// point-in-time context a collaborator needs to resume a task, and the
// project-wide snapshot. It reads from store and graph and never
// mutates anything.
package context

import (
	"fmt"
	"math"
	"strings"

	"github.com/brucedev/bruce/internal/graph"
	"github.com/brucedev/bruce/internal/store"
)

// Builder constructs read-only projections over one project. Think of
// the task context as the "ticket" a resuming collaborator reads before
// touching anything.
type Builder struct {
	store *store.Store
}

// New creates a context builder over the given store.
func New(s *store.Store) *Builder {
	return &Builder{store: s}
}

// TaskContext is everything a collaborator needs to resume one task.
type TaskContext struct {
	Task    *store.Task
	Phase   *store.Phase
	Related []graph.RelatedTask
	History []store.HistoryEntry
}

// PhaseProgress is the per-phase completion roll-up.
type PhaseProgress struct {
	ID         int
	Name       string
	Total      int
	Completed  int
	InProgress int
	Pending    int
	Blocked    int
	Percent    float64 // completed/total, rounded to one decimal
}

// Snapshot is the project-wide handoff summary.
type Snapshot struct {
	Phases   []PhaseProgress
	Eligible []*store.Task // pending tasks with no unmet dependencies
}

// TaskContext assembles the context for one task: its own fields, the
// owning phase's narrative, related tasks from the graph (ancestors
// truncated to completed and in-progress for relevance, descendants
// unfiltered), and the full history.
func (b *Builder) TaskContext(id string) (*TaskContext, error) {
	u, err := b.store.Load()
	if err != nil {
		return nil, err
	}
	g, err := graph.Build(u)
	if err != nil {
		return nil, err
	}
	t := u.Task(id)
	if t == nil {
		return nil, &store.NotFoundError{ID: id}
	}

	var related []graph.RelatedTask
	for _, r := range g.Related(id, 0) {
		if r.Ancestor && r.Task.Status != store.StatusCompleted && r.Task.Status != store.StatusInProgress {
			continue
		}
		related = append(related, r)
	}

	return &TaskContext{
		Task:    t,
		Phase:   u.Phase(t.PhaseID),
		Related: related,
		History: t.Notes,
	}, nil
}

// ProjectSnapshot assembles per-phase progress and the flattened
// eligible-to-start list, ordered by phase then authoring order.
func (b *Builder) ProjectSnapshot() (*Snapshot, error) {
	u, err := b.store.Load()
	if err != nil {
		return nil, err
	}
	g, err := graph.Build(u)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{}
	for _, p := range u.Phases {
		prog := PhaseProgress{ID: p.ID, Name: p.Name, Total: len(p.Tasks)}
		for _, t := range p.Tasks {
			switch t.Status {
			case store.StatusCompleted:
				prog.Completed++
			case store.StatusInProgress:
				prog.InProgress++
			case store.StatusBlocked:
				prog.Blocked++
			default:
				prog.Pending++
			}
			if t.Status == store.StatusPending && len(g.UnmetDependencies(t.ID)) == 0 {
				snap.Eligible = append(snap.Eligible, t)
			}
		}
		if prog.Total > 0 {
			prog.Percent = math.Round(float64(prog.Completed)/float64(prog.Total)*1000) / 10
		}
		snap.Phases = append(snap.Phases, prog)
	}
	return snap, nil
}

// Render formats a task context as markdown. It is a pure function of
// the assembled data: the same context always renders to the same
// bytes, so handoff documents diff cleanly.
func Render(tc *TaskContext) string {
	var parts []string

	parts = append(parts, taskSection(tc))
	if s := phaseSection(tc.Phase); s != "" {
		parts = append(parts, s)
	}
	if s := relatedSection(tc.Related); s != "" {
		parts = append(parts, s)
	}
	if s := historySection(tc.History); s != "" {
		parts = append(parts, s)
	}

	return strings.Join(parts, "\n\n") + "\n"
}

func taskSection(tc *TaskContext) string {
	t := tc.Task
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Context for Task: %s\n\n", t.ID)
	fmt.Fprintf(&sb, "**Phase:** %d - %s\n", t.PhaseID, t.PhaseName)
	fmt.Fprintf(&sb, "**Status:** %s\n", t.Status)
	fmt.Fprintf(&sb, "**Description:** %s\n", orUnspecified(t.Description))
	fmt.Fprintf(&sb, "**Expected Output:** %s\n", orUnspecified(t.Output))
	if t.Why != "" {
		fmt.Fprintf(&sb, "**Why:** %s\n", t.Why)
	}
	if t.ConnectsTo != "" {
		fmt.Fprintf(&sb, "**Connects To:** %s\n", t.ConnectsTo)
	}
	if t.Status == store.StatusBlocked && t.BlockedReason != "" {
		fmt.Fprintf(&sb, "**Blocked:** %s\n", t.BlockedReason)
	}

	if len(t.AcceptanceCriteria) > 0 {
		sb.WriteString("\n**Acceptance Criteria:**\n")
		for _, c := range t.AcceptanceCriteria {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
	}
	if len(t.DependsOn) > 0 {
		fmt.Fprintf(&sb, "\n**Dependencies:** %s\n", strings.Join(t.DependsOn, ", "))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func phaseSection(p *store.Phase) string {
	if p == nil {
		return ""
	}
	ctx := p.Context
	if ctx.Background == "" && ctx.Vision == "" && ctx.Decisions == "" && ctx.Constraints == "" {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Phase Context: %s\n", p.Name)
	if ctx.Background != "" {
		fmt.Fprintf(&sb, "\n**Background:** %s\n", ctx.Background)
	}
	if ctx.Vision != "" {
		fmt.Fprintf(&sb, "\n**Vision:** %s\n", ctx.Vision)
	}
	if ctx.Decisions != "" {
		fmt.Fprintf(&sb, "\n**Decisions:** %s\n", ctx.Decisions)
	}
	if ctx.Constraints != "" {
		fmt.Fprintf(&sb, "\n**Constraints:** %s\n", ctx.Constraints)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func relatedSection(related []graph.RelatedTask) string {
	if len(related) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Related Tasks\n\n")
	for _, r := range related {
		direction := "depended on by"
		if r.Ancestor {
			direction = "depends on"
		}
		fmt.Fprintf(&sb, "- **%s** [%s, distance %d, %s]: %s\n",
			r.Task.ID, r.Task.Status, r.Distance, direction, orUnspecified(r.Task.Description))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func historySection(history []store.HistoryEntry) string {
	if len(history) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## History\n\n")
	for _, h := range history {
		fmt.Fprintf(&sb, "- %s — %s\n", h.Timestamp.UTC().Format("2006-01-02 15:04"), h.Note)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RenderSnapshot formats the project snapshot as markdown, deterministic
// like Render.
func RenderSnapshot(s *Snapshot) string {
	var sb strings.Builder
	sb.WriteString("# Project Snapshot\n")

	for _, p := range s.Phases {
		fmt.Fprintf(&sb, "\n## Phase %d: %s\n", p.ID, p.Name)
		fmt.Fprintf(&sb, "Progress: %.1f%% (%d/%d completed)\n", p.Percent, p.Completed, p.Total)
		fmt.Fprintf(&sb, "In progress: %d, pending: %d, blocked: %d\n", p.InProgress, p.Pending, p.Blocked)
	}

	sb.WriteString("\n## Ready to Start\n")
	if len(s.Eligible) == 0 {
		sb.WriteString("No tasks are currently eligible.\n")
	} else {
		for _, t := range s.Eligible {
			fmt.Fprintf(&sb, "- %s (phase %d): %s\n", t.ID, t.PhaseID, orUnspecified(t.Description))
		}
	}
	return sb.String()
}

func orUnspecified(s string) string {
	if s == "" {
		return "Not specified"
	}
	return s
}
