package store

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
)

// ValidStatus reports whether s is one of the four known statuses.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// HistoryEntry is one timestamped note in a task's append-only history.
type HistoryEntry struct {
	Timestamp time.Time `yaml:"timestamp"`
	Note      string    `yaml:"note"`
}

// Task is a unit of trackable work. The id is the sole cross-reference
// key and must be unique across every container in the project.
type Task struct {
	ID                 string         `yaml:"id"`
	Description        string         `yaml:"description,omitempty"`
	Status             TaskStatus     `yaml:"status"`
	DependsOn          []string       `yaml:"depends_on,omitempty"`
	Output             string         `yaml:"output,omitempty"`
	AcceptanceCriteria []string       `yaml:"acceptance_criteria,omitempty"`
	Why                string         `yaml:"why,omitempty"`
	ConnectsTo         string         `yaml:"connects_to,omitempty"`
	Notes              []HistoryEntry `yaml:"notes,omitempty"`
	CompletedAt        *time.Time     `yaml:"completed_at,omitempty"`
	BlockedAt          *time.Time     `yaml:"blocked_at,omitempty"`
	BlockedReason      string         `yaml:"blocked_reason,omitempty"`

	// Back-references set at load time from the container the task came
	// from. Never serialized into the task record.
	PhaseID   int    `yaml:"-"`
	PhaseName string `yaml:"-"`
	PhaseFile string `yaml:"-"`

	// snapshot is the canonical serialization of the record as it was
	// loaded. SaveTask compares it against the on-disk record under the
	// container lock to detect a concurrent writer's commit.
	snapshot []byte
}

// PhaseContext is the narrative quad attached to a phase. The fields are
// opaque to the engine; only the context builder renders them.
type PhaseContext struct {
	Background  string `yaml:"background,omitempty"`
	Vision      string `yaml:"vision,omitempty"`
	Decisions   string `yaml:"decisions,omitempty"`
	Constraints string `yaml:"constraints,omitempty"`
}

// PhaseInfo is the phase header of a container.
type PhaseInfo struct {
	ID          int          `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Context     PhaseContext `yaml:"context,omitempty"`
}

// Phase is an ordered container of tasks sharing a planning context.
// Task order is authoring order, not execution order; execution order
// comes from the dependency graph.
type Phase struct {
	PhaseInfo
	File  string
	Tasks []*Task
}

// LegacyPhaseID is the synthetic phase assigned to tasks from the flat
// legacy container.
const LegacyPhaseID = 0

// LegacyPhaseName names the synthetic legacy phase.
const LegacyPhaseName = "Legacy Tasks"

// Universe is the full merged task set of one project: every phase
// container plus the legacy flat file, indexed by task id.
type Universe struct {
	Phases []*Phase
	byID   map[string]*Task
}

// Task returns the task with the given id, or nil.
func (u *Universe) Task(id string) *Task {
	return u.byID[id]
}

// Tasks returns every task in phase order, authoring order within a phase.
func (u *Universe) Tasks() []*Task {
	var all []*Task
	for _, p := range u.Phases {
		all = append(all, p.Tasks...)
	}
	return all
}

// Len returns the total task count.
func (u *Universe) Len() int {
	return len(u.byID)
}

// Phase returns the phase with the given id, or nil.
func (u *Universe) Phase(id int) *Phase {
	for _, p := range u.Phases {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// phaseDoc is the on-disk shape of a phase container.
type phaseDoc struct {
	Phase PhaseInfo `yaml:"phase"`
	Tasks []*Task   `yaml:"tasks"`
}

// legacyDoc is the on-disk shape of the flat legacy container.
type legacyDoc struct {
	Tasks []*Task `yaml:"tasks"`
}
