package topology

import (
	"fmt"
	"strings"
)

// ValidationError means a descriptor or a reference is malformed.
type ValidationError struct {
	Resource string
	Field    string
	Reason   string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid resource %q: %s", e.Resource, e.Reason)
	}
	return fmt.Sprintf("invalid resource %q: %s: %s", e.Resource, e.Field, e.Reason)
}

// DuplicateNameError means a resource name is already taken in the graph.
type DuplicateNameError struct {
	Name string
}

func (e DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate resource name: %s", e.Name)
}

// UnknownResourceError means a reference points at a resource that was never added.
type UnknownResourceError struct {
	Name string
}

func (e UnknownResourceError) Error() string {
	return fmt.Sprintf("unknown resource: %s", e.Name)
}

// CycleError means the references form a dependency cycle.
// Path starts and ends with the same resource.
type CycleError struct {
	Path []string
}

func (e CycleError) Error() string {
	if len(e.Path) == 0 {
		return "resource dependency cycle detected"
	}
	return "resource dependency cycle detected: " + strings.Join(e.Path, " -> ")
}
