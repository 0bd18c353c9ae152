package binding

import (
	"fmt"
	"strconv"

	"apphost/internal/models"
	"apphost/internal/topology"
)

// EmulatorAccountKey is the well-known account key of the cosmos-db emulator.
const EmulatorAccountKey = "C2y6yDjf5/R+ob0N8A7Cgv30VRDJIWEHLM+4QDU5DE2nQ9nDuVTqobD4b8mGGyPMbIZnqyMsEcaGQy67XIw/Jw=="

// Connection is the data-connection descriptor of a running database.
type Connection struct {
	Endpoint         string `json:"endpoint"`
	AccountKey       string `json:"-"`
	ConnectionString string `json:"-"`
}

// Binding is the set of runtime facts a running resource publishes to its
// dependents. It is read-only once published.
type Binding struct {
	Resource   string              `json:"resource"`
	Kind       models.ResourceKind `json:"kind"`
	Endpoint   models.Endpoint     `json:"endpoint"`
	Connection *Connection         `json:"connection,omitempty"`
	Env        map[string]string   `json:"-"`
	DependsOn  []string            `json:"dependsOn,omitempty"`
}

// Published maps resource names to their bindings.
type Published map[string]Binding

// Plan is what a resource needs before it is materialized.
type Plan struct {
	Env  map[string]string
	Port int
}

// PortAllocator hands out a free local port.
type PortAllocator func() (int, error)

type Binder struct {
	allocate PortAllocator
}

func NewBinder(allocate PortAllocator) *Binder {
	return &Binder{allocate: allocate}
}

/**
 * Compute the launch plan of a resource from its dependencies' bindings
 * @param {topology.Descriptor} d - Resource about to be materialized
 * @param {[]topology.Reference} refs - Outgoing references of d
 * @param {Published} published - Bindings of resources already running
 * @returns {Plan} Environment and host port for the resource
 * @returns {error} UnresolvedDependencyError when a dependency is not running yet
 * @description
 * - DataConnection: connection-string variables of a database, or the
 *   service URL variable of a process
 * - EnvInjection: the dependency's exported environment is merged in
 * - The resource's own "env" option overrides injected values
 * - A port is allocated when none is configured and the resource needs one
 * - portEnv, when set, receives the port
 */
func (b *Binder) Plan(d topology.Descriptor, refs []topology.Reference, published Published) (Plan, error) {
	env := make(map[string]string)
	for _, ref := range refs {
		if ref.From != d.Name() {
			continue
		}
		dep, ok := published[ref.To]
		if !ok {
			return Plan{}, UnresolvedDependencyError{Resource: d.Name(), Dependency: ref.To}
		}
		switch ref.Mode {
		case models.DataConnection:
			vars, err := connectionEnv(dep)
			if err != nil {
				return Plan{}, fmt.Errorf("bind %s -> %s: %w", d.Name(), ref.To, err)
			}
			merge(env, vars)
		case models.EnvInjection:
			merge(env, dep.Env)
		}
	}
	merge(env, d.GetStringMapString(topology.OptEnv))

	port := d.GetInt(topology.OptPort)
	if port == 0 && b.needsPort(d) {
		p, err := b.allocate()
		if err != nil {
			return Plan{}, fmt.Errorf("allocate port for %s: %w", d.Name(), err)
		}
		port = p
	}
	if name := d.GetString(topology.OptPortEnv); name != "" && port > 0 {
		env[name] = strconv.Itoa(port)
	}
	return Plan{Env: env, Port: port}, nil
}

func (b *Binder) needsPort(d topology.Descriptor) bool {
	if b.allocate == nil {
		return false
	}
	switch d.Kind() {
	case models.KindDatabase:
		return d.GetBool(topology.OptEmulated) && d.GetString(topology.OptDriver) != "external"
	case models.KindProcess:
		return d.GetString(topology.OptPortEnv) != ""
	}
	return false
}

/**
 * Build the binding a resource publishes once it is running
 * @param {topology.Descriptor} d - Running resource
 * @param {[]topology.Reference} refs - Outgoing references of d
 * @param {models.Endpoint} ep - Endpoint reported by the backend, may be zero for processes
 * @param {Published} published - Bindings of resources already running
 * @returns {Binding} The binding of d
 * @returns {error} UnresolvedDependencyError, or an error when a database reports no endpoint
 */
func (b *Binder) Resolve(d topology.Descriptor, refs []topology.Reference, ep models.Endpoint, published Published) (Binding, error) {
	var deps []string
	for _, ref := range refs {
		if ref.From != d.Name() {
			continue
		}
		if _, ok := published[ref.To]; !ok {
			return Binding{}, UnresolvedDependencyError{Resource: d.Name(), Dependency: ref.To}
		}
		if !contains(deps, ref.To) {
			deps = append(deps, ref.To)
		}
	}

	bd := Binding{
		Resource:  d.Name(),
		Kind:      d.Kind(),
		Endpoint:  ep,
		Env:       make(map[string]string),
		DependsOn: deps,
	}
	switch d.Kind() {
	case models.KindDatabase:
		if ep.IsZero() {
			return Binding{}, fmt.Errorf("database %s reported no endpoint", d.Name())
		}
		key := d.GetString(topology.OptAccountKey)
		if key == "" && d.GetBool(topology.OptEmulated) {
			key = EmulatorAccountKey
		}
		conn := &Connection{Endpoint: ep.URL(), AccountKey: key}
		conn.ConnectionString = "AccountEndpoint=" + conn.Endpoint + ";"
		if key != "" {
			conn.ConnectionString += "AccountKey=" + key + ";"
		}
		bd.Connection = conn
		merge(bd.Env, databaseEnv(d.Name(), conn))
	case models.KindProcess:
		if !ep.IsZero() {
			bd.Env[serviceVar(d.Name(), ep.Scheme)] = ep.URL()
		}
	}
	return bd, nil
}

func connectionEnv(dep Binding) (map[string]string, error) {
	if dep.Connection != nil {
		return databaseEnv(dep.Resource, dep.Connection), nil
	}
	if !dep.Endpoint.IsZero() {
		return map[string]string{serviceVar(dep.Resource, dep.Endpoint.Scheme): dep.Endpoint.URL()}, nil
	}
	return nil, fmt.Errorf("resource %s exposes no endpoint to connect to", dep.Resource)
}

func databaseEnv(name string, conn *Connection) map[string]string {
	prefix := "ConnectionStrings__" + name
	env := make(map[string]string, 3)
	env[prefix] = conn.ConnectionString
	env[prefix+"__AccountEndpoint"] = conn.Endpoint
	if conn.AccountKey != "" {
		env[prefix+"__AccountKey"] = conn.AccountKey
	}
	return env
}

func serviceVar(name, scheme string) string {
	if scheme == "" {
		scheme = "http"
	}
	return "services__" + name + "__" + scheme + "__0"
}

func merge(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
