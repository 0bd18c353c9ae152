package binding

import "fmt"

// UnresolvedDependencyError means a dependency had no published binding when
// a dependent was planned or resolved. It can only happen when resources are
// started out of dependency order.
type UnresolvedDependencyError struct {
	Resource   string
	Dependency string
}

func (e UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("unresolved dependency: %s -> %s has no binding", e.Resource, e.Dependency)
}
