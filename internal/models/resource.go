package models

// ResourceKind selects the option schema and the backend of a resource.
type ResourceKind string

const (
	KindDatabase ResourceKind = "database"
	KindProcess  ResourceKind = "process"
)

func (k ResourceKind) Valid() bool {
	return k == KindDatabase || k == KindProcess
}

// ReferenceMode says what a reference propagates from the dependency.
type ReferenceMode string

const (
	// The dependent receives the connection facts of the dependency
	DataConnection ReferenceMode = "data-connection"
	// The dependent receives the environment exported by the dependency
	EnvInjection ReferenceMode = "env-injection"
)

func (m ReferenceMode) Valid() bool {
	return m == DataConnection || m == EnvInjection
}
