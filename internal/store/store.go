// Package store owns the on-disk schema for bruce projects: phase
// containers under phases/ plus the legacy flat task file, merged into a
// single addressable universe. It is the only package that touches
// durable storage.
package store

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// Paths locates the containers inside a project root. The config layer
// resolves these; the store never discovers paths itself.
type Paths struct {
	PhasesDir string // directory of phase containers
	TasksFile string // legacy flat container
}

// DefaultPaths returns the conventional container locations.
func DefaultPaths() Paths {
	return Paths{PhasesDir: "phases", TasksFile: "tasks.yml"}
}

// Store reads and writes one project's task containers. Two Stores for
// two different roots share no state.
type Store struct {
	root     string
	paths    Paths
	lockWait time.Duration
}

// defaultLockWait bounds how long a mutation waits for a container lock
// before failing with a PersistError.
const defaultLockWait = 2 * time.Second

// New creates a store bound to the given project root.
func New(root string, paths Paths) *Store {
	if paths.PhasesDir == "" {
		paths.PhasesDir = DefaultPaths().PhasesDir
	}
	if paths.TasksFile == "" {
		paths.TasksFile = DefaultPaths().TasksFile
	}
	return &Store{root: root, paths: paths, lockWait: defaultLockWait}
}

// Root returns the project root the store was opened with.
func (s *Store) Root() string { return s.root }

func (s *Store) phasesDir() string  { return filepath.Join(s.root, s.paths.PhasesDir) }
func (s *Store) legacyPath() string { return filepath.Join(s.root, s.paths.TasksFile) }

// Load reads every container and merges them into one Universe. It fails
// with a LoadError on unparseable YAML, a duplicate task id, an unknown
// status value, or a dependency reference that no loaded task satisfies.
// Load takes no locks and never writes; it is safe to call repeatedly.
func (s *Store) Load() (*Universe, error) {
	u := &Universe{byID: make(map[string]*Task)}
	idFile := make(map[string]string)
	phaseFile := make(map[int]string)

	// Legacy flat container first, as synthetic phase 0.
	if data, err := os.ReadFile(s.legacyPath()); err == nil {
		var doc legacyDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &LoadError{File: s.paths.TasksFile, Reason: "unparseable YAML", Err: err}
		}
		if len(doc.Tasks) > 0 {
			p := &Phase{
				PhaseInfo: PhaseInfo{ID: LegacyPhaseID, Name: LegacyPhaseName},
				File:      s.legacyPath(),
				Tasks:     doc.Tasks,
			}
			if err := s.adoptTasks(u, idFile, p); err != nil {
				return nil, err
			}
			phaseFile[p.ID] = filepath.Base(p.File)
			u.Phases = append(u.Phases, p)
		}
	} else if !os.IsNotExist(err) {
		return nil, &LoadError{File: s.paths.TasksFile, Reason: "unreadable", Err: err}
	}

	// Phase containers, sorted by filename for a stable load order.
	files, err := filepath.Glob(filepath.Join(s.phasesDir(), "phase*_*.yml"))
	if err != nil {
		return nil, &LoadError{File: s.paths.PhasesDir, Reason: "bad phase glob", Err: err}
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, &LoadError{File: filepath.Base(file), Reason: "unreadable", Err: err}
		}
		var doc phaseDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &LoadError{File: filepath.Base(file), Reason: "unparseable YAML", Err: err}
		}
		p := &Phase{PhaseInfo: doc.Phase, File: file, Tasks: doc.Tasks}
		base := filepath.Base(file)
		if first, ok := phaseFile[p.ID]; ok {
			return nil, &LoadError{File: base, Reason: fmt.Sprintf("duplicate phase id %d (in %s and %s)", p.ID, first, base)}
		}
		if err := s.adoptTasks(u, idFile, p); err != nil {
			return nil, err
		}
		phaseFile[p.ID] = base
		u.Phases = append(u.Phases, p)
	}

	// Dependency references are resolved only after every container is in,
	// so validation never depends on load order.
	for _, t := range u.Tasks() {
		var missing []string
		for _, dep := range t.DependsOn {
			if u.byID[dep] == nil {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			return nil, &LoadError{File: filepath.Base(t.PhaseFile), Reason: danglingReason(t.ID, missing)}
		}
	}

	sort.SliceStable(u.Phases, func(i, j int) bool { return u.Phases[i].ID < u.Phases[j].ID })
	return u, nil
}

// adoptTasks indexes a phase's tasks into the universe, stamping the
// phase back-references and normalizing statuses.
func (s *Store) adoptTasks(u *Universe, idFile map[string]string, p *Phase) error {
	base := filepath.Base(p.File)
	for _, t := range p.Tasks {
		if t.ID == "" {
			return &LoadError{File: base, Reason: "task with empty id"}
		}
		if first, ok := idFile[t.ID]; ok {
			return &LoadError{File: base, Reason: dupIDReason(t.ID, first, base)}
		}
		if t.Status == "" {
			t.Status = StatusPending
		}
		if !ValidStatus(t.Status) {
			return &LoadError{File: base, Reason: fmt.Sprintf("task %q has unknown status %q", t.ID, t.Status)}
		}
		t.PhaseID = p.ID
		t.PhaseName = p.Name
		t.PhaseFile = p.File
		fp, err := fingerprint(t)
		if err != nil {
			return &LoadError{File: base, Reason: fmt.Sprintf("task %q not serializable", t.ID), Err: err}
		}
		t.snapshot = fp
		idFile[t.ID] = base
		u.byID[t.ID] = t
	}
	return nil
}

// fingerprint canonicalizes a task record for comparison. An empty
// status normalizes to pending; back-references and the snapshot itself
// never marshal, so only the persisted fields are compared.
func fingerprint(t *Task) ([]byte, error) {
	c := *t
	if c.Status == "" {
		c.Status = StatusPending
	}
	return yaml.Marshal(&c)
}

// SaveTask persists one task back to its owning container. The container
// is locked exclusively (bounded wait), re-read under the lock, and only
// the matching record is replaced before an atomic rewrite. Sibling tasks
// survive untouched.
func (s *Store) SaveTask(t *Task) error {
	if t.PhaseFile == "" {
		return &PersistError{File: t.ID, Reason: "task has no owning container"}
	}
	base := filepath.Base(t.PhaseFile)

	lock := flock.New(t.PhaseFile + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), s.lockWait)
	defer cancel()
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil || !locked {
		return &PersistError{File: base, Reason: "locked", Err: err}
	}
	defer lock.Unlock()

	if t.PhaseID == LegacyPhaseID && t.PhaseFile == s.legacyPath() {
		err = s.rewriteLegacy(t)
	} else {
		err = s.rewritePhase(t)
	}
	if err != nil {
		return err
	}

	// The saved record is now the on-disk truth; re-stamp so the same
	// in-memory task can be mutated and saved again.
	if fp, err := fingerprint(t); err == nil {
		t.snapshot = fp
	}
	return nil
}

func (s *Store) rewritePhase(t *Task) error {
	base := filepath.Base(t.PhaseFile)
	data, err := os.ReadFile(t.PhaseFile)
	if err != nil {
		return &PersistError{File: base, Reason: "unreadable", Err: err}
	}
	var doc phaseDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &PersistError{File: base, Reason: "unparseable YAML", Err: err}
	}
	if err := replaceTask(doc.Tasks, t, base); err != nil {
		return err
	}
	return atomicWriteYAML(t.PhaseFile, &doc)
}

func (s *Store) rewriteLegacy(t *Task) error {
	base := filepath.Base(t.PhaseFile)
	data, err := os.ReadFile(t.PhaseFile)
	if err != nil {
		return &PersistError{File: base, Reason: "unreadable", Err: err}
	}
	var doc legacyDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &PersistError{File: base, Reason: "unparseable YAML", Err: err}
	}
	if err := replaceTask(doc.Tasks, t, base); err != nil {
		return err
	}
	return atomicWriteYAML(t.PhaseFile, &doc)
}

// replaceTask swaps the record with t's id for a clean copy of t. Before
// swapping it verifies the on-disk record still matches the snapshot t
// was loaded from; a divergence means another writer committed in the
// meantime and the stale copy must not overwrite it.
func replaceTask(tasks []*Task, t *Task, file string) error {
	for i, existing := range tasks {
		if existing.ID != t.ID {
			continue
		}
		if t.snapshot != nil {
			fp, err := fingerprint(existing)
			if err != nil {
				return &PersistError{File: file, Reason: fmt.Sprintf("task %q not comparable", t.ID), Err: err}
			}
			if !bytes.Equal(fp, t.snapshot) {
				return &PersistError{File: file, Reason: fmt.Sprintf("concurrent modification of task %q", t.ID)}
			}
		}
		clean := *t
		tasks[i] = &clean
		return nil
	}
	return &PersistError{File: file, Reason: fmt.Sprintf("task %q no longer in container", t.ID)}
}

// atomicWriteYAML writes doc to a unique temp file in the same directory
// and renames it over path, so readers never observe a partial container.
func atomicWriteYAML(path string, doc any) error {
	base := filepath.Base(path)
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return &PersistError{File: base, Reason: "temp suffix", Err: err}
	}
	tmp := path + ".tmp." + hex.EncodeToString(suffix)

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return &PersistError{File: base, Reason: "create temp", Err: err}
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		f.Close()
		os.Remove(tmp)
		return &PersistError{File: base, Reason: "encode", Err: err}
	}
	if err := enc.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &PersistError{File: base, Reason: "encode", Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &PersistError{File: base, Reason: "sync", Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &PersistError{File: base, Reason: "close", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &PersistError{File: base, Reason: "rename", Err: err}
	}
	return nil
}

// WritePhase creates or replaces a whole phase container. Used by project
// scaffolding and bulk import, not by lifecycle transitions.
func (s *Store) WritePhase(p *Phase) error {
	if err := os.MkdirAll(s.phasesDir(), 0755); err != nil {
		return &PersistError{File: s.paths.PhasesDir, Reason: "mkdir", Err: err}
	}
	file := p.File
	if file == "" {
		file = filepath.Join(s.phasesDir(), fmt.Sprintf("phase%d_%s.yml", p.ID, slugify(p.Name)))
		p.File = file
	}
	doc := phaseDoc{Phase: p.PhaseInfo, Tasks: p.Tasks}
	return atomicWriteYAML(file, &doc)
}

// slugify lowercases a phase name into a filename fragment.
func slugify(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "phase"
	}
	return string(out)
}
