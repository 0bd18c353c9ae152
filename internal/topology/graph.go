package topology

import (
	"fmt"
	"sync"

	"apphost/internal/models"
)

// Reference means "From depends on To".
type Reference struct {
	From string               `json:"from"`
	To   string               `json:"to"`
	Mode models.ReferenceMode `json:"mode"`
}

// Graph owns the resources of a topology and the references between them.
// It is always acyclic and names are unique.
type Graph struct {
	mu sync.RWMutex

	order      []string
	nodes      map[string]Descriptor
	refs       []Reference
	deps       map[string][]string
	dependents map[string][]string
}

func New() *Graph {
	return &Graph{
		nodes:      make(map[string]Descriptor),
		deps:       make(map[string][]string),
		dependents: make(map[string][]string),
	}
}

// AddResource adds d to the graph. The graph is unchanged on error.
func (g *Graph) AddResource(d Descriptor) error {
	if d.name == "" {
		return ValidationError{Resource: d.name, Field: "name", Reason: "must not be empty"}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.nodes[d.name]; exists {
		return DuplicateNameError{Name: d.name}
	}
	g.nodes[d.name] = d
	g.order = append(g.order, d.name)
	return nil
}

/**
 * Declare that resource "from" depends on resource "to"
 * @param {string} from - Dependent resource name
 * @param {string} to - Dependency resource name
 * @param {models.ReferenceMode} mode - What the reference propagates
 * @returns {error} UnknownResourceError, ValidationError or CycleError
 * @description
 * - Both endpoints must already be in the graph
 * - The edge is rejected when "from" is reachable from "to", that is when
 *   it would close a cycle; the rejected edge leaves the graph unchanged
 * - Adding an identical edge twice is a no-op
 */
func (g *Graph) AddReference(from, to string, mode models.ReferenceMode) error {
	if !mode.Valid() {
		return ValidationError{Resource: from, Field: "reference", Reason: fmt.Sprintf("unknown mode %q", mode)}
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[from]; !ok {
		return UnknownResourceError{Name: from}
	}
	if _, ok := g.nodes[to]; !ok {
		return UnknownResourceError{Name: to}
	}
	if from == to {
		return ValidationError{Resource: from, Field: "reference", Reason: "a resource cannot reference itself"}
	}
	ref := Reference{From: from, To: to, Mode: mode}
	for _, existing := range g.refs {
		if existing == ref {
			return nil
		}
	}
	if path := g.pathLocked(to, from); path != nil {
		return CycleError{Path: append([]string{from}, path...)}
	}

	g.refs = append(g.refs, ref)
	if !contains(g.deps[from], to) {
		g.deps[from] = append(g.deps[from], to)
		g.dependents[to] = append(g.dependents[to], from)
	}
	return nil
}

// pathLocked returns a dependency path from src to dst, both included, or nil.
func (g *Graph) pathLocked(src, dst string) []string {
	parent := map[string]string{src: ""}
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == dst {
			var path []string
			for n := cur; n != ""; n = parent[n] {
				path = append([]string{n}, path...)
			}
			return path
		}
		for _, next := range g.deps[cur] {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = cur
			queue = append(queue, next)
		}
	}
	return nil
}

/**
 * Compute the launch order of the graph
 * @returns {[]string} Resource names, every resource after all of its dependencies
 * @returns {error} CycleError if the references are cyclic
 * @description
 * - Kahn's algorithm; among ready resources the earliest added goes first,
 *   so the order is deterministic for a given sequence of Add calls
 */
func (g *Graph) TopologicalOrder() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	placed := make(map[string]bool, len(g.order))
	result := make([]string, 0, len(g.order))
	for len(result) < len(g.order) {
		progressed := false
		for _, name := range g.order {
			if placed[name] || !g.readyLocked(name, placed) {
				continue
			}
			placed[name] = true
			result = append(result, name)
			progressed = true
			break
		}
		if !progressed {
			var rest []string
			for _, name := range g.order {
				if !placed[name] {
					rest = append(rest, name)
				}
			}
			return nil, CycleError{Path: rest}
		}
	}
	return result, nil
}

func (g *Graph) readyLocked(name string, placed map[string]bool) bool {
	for _, dep := range g.deps[name] {
		if !placed[dep] {
			return false
		}
	}
	return true
}

func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// Resources returns the descriptors in insertion order.
func (g *Graph) Resources() []Descriptor {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Descriptor, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

func (g *Graph) Resource(name string) (Descriptor, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	d, ok := g.nodes[name]
	return d, ok
}

func (g *Graph) References() []Reference {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Reference(nil), g.refs...)
}

// ReferencesFrom returns the outgoing references of name in insertion order.
func (g *Graph) ReferencesFrom(name string) []Reference {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Reference
	for _, ref := range g.refs {
		if ref.From == name {
			out = append(out, ref)
		}
	}
	return out
}

// Dependencies returns the direct dependencies of name.
func (g *Graph) Dependencies(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.deps[name]...)
}

// Dependents returns the resources that directly depend on name.
func (g *Graph) Dependents(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.dependents[name]...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
