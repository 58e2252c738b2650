package store

import (
	"fmt"
	"strings"
)

// LoadError means a container could not be loaded: unparseable YAML, a
// duplicate task id, or a dangling dependency reference. The whole load
// aborts; the engine never operates on a partially loaded universe.
type LoadError struct {
	File   string // container file, if the problem is file-specific
	Reason string
	Err    error // parse error, if any
}

func (e *LoadError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("load %s: %s", e.File, e.Reason)
	}
	return "load: " + e.Reason
}

func (e *LoadError) Unwrap() error { return e.Err }

// PersistError means a mutation could not be made durable: an I/O failure
// or a lock-wait timeout. The in-memory change stands but nothing was
// committed to disk; callers may retry.
type PersistError struct {
	File   string
	Reason string
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %s", e.File, e.Reason)
}

func (e *PersistError) Unwrap() error { return e.Err }

// NotFoundError means no loaded task has the requested id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %q not found", e.ID)
}

// dupIDReason formats the duplicate-id load failure.
func dupIDReason(id, first, second string) string {
	return fmt.Sprintf("duplicate task id %q (in %s and %s)", id, first, second)
}

// danglingReason formats the dangling-dependency load failure.
func danglingReason(id string, missing []string) string {
	return fmt.Sprintf("task %q depends on unknown task(s): %s", id, strings.Join(missing, ", "))
}
