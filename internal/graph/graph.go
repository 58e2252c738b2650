// Package graph indexes the dependency relation over a loaded task
// universe and answers structural queries: cycle detection, unmet
// dependencies, and related-task discovery.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brucedev/bruce/internal/store"
)

// CycleError reports that the depends_on relation is not acyclic. Members
// lists the cycle's task ids in discovery order.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Members, " -> "))
}

// Graph is a read-only index over one universe. Edges change only by
// reloading after the underlying containers change.
type Graph struct {
	universe   *store.Universe
	dependents map[string][]string // reverse edges: id -> tasks depending on it
}

// Build indexes the universe and verifies the dependency relation is
// acyclic. Dangling references are a load-time error, so every edge here
// resolves.
func Build(u *store.Universe) (*Graph, error) {
	g := &Graph{
		universe:   u,
		dependents: make(map[string][]string),
	}
	for _, t := range u.Tasks() {
		for _, dep := range t.DependsOn {
			g.dependents[dep] = append(g.dependents[dep], t.ID)
		}
	}
	for _, ids := range g.dependents {
		sort.Strings(ids)
	}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// checkAcyclic runs a depth-first search with recursion-stack marking
// over the depends_on edges. The first back-edge found yields the cycle.
func (g *Graph) checkAcyclic() error {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int)
	var stack []string

	var visit func(id string) *CycleError
	visit = func(id string) *CycleError {
		state[id] = inStack
		stack = append(stack, id)
		t := g.universe.Task(id)
		for _, dep := range t.DependsOn {
			switch state[dep] {
			case unvisited:
				if err := visit(dep); err != nil {
					return err
				}
			case inStack:
				// Back-edge: the cycle is the stack from dep onward.
				for i, member := range stack {
					if member == dep {
						members := make([]string, len(stack)-i)
						copy(members, stack[i:])
						return &CycleError{Members: members}
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, t := range g.universe.Tasks() {
		if state[t.ID] == unvisited {
			if err := visit(t.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// UnmetDependencies returns the sorted ids in the task's depends_on set
// whose current status is not completed. An empty result means the task
// is eligible to start. Unknown ids yield nil.
func (g *Graph) UnmetDependencies(id string) []string {
	t := g.universe.Task(id)
	if t == nil {
		return nil
	}
	var unmet []string
	for _, dep := range t.DependsOn {
		if d := g.universe.Task(dep); d != nil && d.Status != store.StatusCompleted {
			unmet = append(unmet, dep)
		}
	}
	sort.Strings(unmet)
	return unmet
}

// Dependents returns the ids of tasks that directly depend on id.
func (g *Graph) Dependents(id string) []string {
	return g.dependents[id]
}

// RelatedTask pairs a task with its graph distance from the query task.
type RelatedTask struct {
	Task     *store.Task
	Distance int
	Ancestor bool // true if the query task (transitively) depends on this one
}

// Related walks the graph in both directions from id: ancestors (tasks
// this one depends on, transitively) and descendants (tasks depending on
// this one, transitively), bounded by depth hops (depth <= 0 means
// unbounded). Results are deduplicated and ordered by distance, then id.
func (g *Graph) Related(id string, depth int) []RelatedTask {
	origin := g.universe.Task(id)
	if origin == nil {
		return nil
	}

	found := make(map[string]*RelatedTask)

	walk := func(next func(string) []string, ancestor bool) {
		type hop struct {
			id   string
			dist int
		}
		seen := map[string]bool{id: true}
		queue := []hop{{id, 0}}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if depth > 0 && cur.dist == depth {
				continue
			}
			for _, n := range next(cur.id) {
				if seen[n] {
					continue
				}
				seen[n] = true
				d := cur.dist + 1
				if prev, ok := found[n]; !ok || d < prev.Distance {
					found[n] = &RelatedTask{Task: g.universe.Task(n), Distance: d, Ancestor: ancestor}
				}
				queue = append(queue, hop{n, d})
			}
		}
	}

	walk(func(cur string) []string { return g.universe.Task(cur).DependsOn }, true)
	walk(g.Dependents, false)

	out := make([]RelatedTask, 0, len(found))
	for _, r := range found {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Task.ID < out[j].Task.ID
	})
	return out
}
