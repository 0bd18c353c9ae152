// Package backend materializes resources. Backends are the only code that
// starts or stops anything; the launcher only decides when.
package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"apphost/internal/models"
	"apphost/internal/topology"
)

// Request is everything a backend needs to materialize one resource.
type Request struct {
	Descriptor topology.Descriptor
	Env        map[string]string
	Port       int
}

// Handle identifies a materialized resource.
type Handle interface {
	Resource() string
	Endpoint() models.Endpoint
	Pid() int
}

// Exiter is implemented by handles whose resource can stop on its own.
// The channel is closed once the resource is gone.
type Exiter interface {
	Exited() <-chan struct{}
}

// Backend starts and stops resources. Teardown should treat the ctx
// deadline as the grace period and force the resource down once it passes.
type Backend interface {
	Materialize(ctx context.Context, req Request) (Handle, error)
	Teardown(ctx context.Context, h Handle) error
}

// Driver names.
const (
	DriverExec      = "exec"
	DriverContainer = "container"
	DriverExternal  = "external"
)

// DriverOf returns the driver that materializes d.
func DriverOf(d topology.Descriptor) string {
	switch d.Kind() {
	case models.KindDatabase:
		if driver := d.GetString(topology.OptDriver); driver != "" {
			return driver
		}
		if d.GetBool(topology.OptEmulated) {
			return DriverContainer
		}
		return DriverExternal
	case models.KindProcess:
		return DriverExec
	}
	return ""
}

type registryKey struct {
	kind   models.ResourceKind
	driver string
}

// Registry routes each resource to the backend registered for its
// (kind, driver). It is itself a Backend.
type Registry struct {
	mu       sync.RWMutex
	backends map[registryKey]Backend
}

func NewRegistry() *Registry {
	return &Registry{backends: make(map[registryKey]Backend)}
}

func (r *Registry) Register(kind models.ResourceKind, driver string, b Backend) error {
	if b == nil {
		return fmt.Errorf("register backend %s:%s: backend is nil", kind, driver)
	}
	k := registryKey{kind: kind, driver: driver}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.backends[k]; exists {
		return fmt.Errorf("register backend: duplicate backend for %s:%s", kind, driver)
	}
	r.backends[k] = b
	return nil
}

func (r *Registry) lookup(d topology.Descriptor) (Backend, error) {
	driver := DriverOf(d)
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[registryKey{kind: d.Kind(), driver: driver}]
	if !ok {
		return nil, fmt.Errorf("no backend registered for %s:%s", d.Kind(), driver)
	}
	return b, nil
}

type routedHandle struct {
	Handle
	backend Backend
}

func (h routedHandle) Exited() <-chan struct{} {
	if e, ok := h.Handle.(Exiter); ok {
		return e.Exited()
	}
	return nil
}

func (r *Registry) Materialize(ctx context.Context, req Request) (Handle, error) {
	b, err := r.lookup(req.Descriptor)
	if err != nil {
		return nil, err
	}
	h, err := b.Materialize(ctx, req)
	if err != nil {
		return nil, err
	}
	return routedHandle{Handle: h, backend: b}, nil
}

func (r *Registry) Teardown(ctx context.Context, h Handle) error {
	routed, ok := h.(routedHandle)
	if !ok {
		return fmt.Errorf("teardown %s: handle was not materialized by this registry", h.Resource())
	}
	return routed.backend.Teardown(ctx, routed.Handle)
}

// Options configures the default backends.
type Options struct {
	ContainerRuntime string
	ReadyTimeout     time.Duration
	DefaultGrace     time.Duration
}

// NewDefaultRegistry registers the exec, container and external backends.
func NewDefaultRegistry(opts Options) *Registry {
	if opts.DefaultGrace <= 0 {
		opts.DefaultGrace = 10 * time.Second
	}
	r := NewRegistry()
	procs := NewProcessBackend(opts.DefaultGrace)
	_ = r.Register(models.KindProcess, DriverExec, procs)
	_ = r.Register(models.KindDatabase, DriverContainer, NewContainerBackend(procs, opts.ContainerRuntime, opts.ReadyTimeout))
	_ = r.Register(models.KindDatabase, DriverExternal, ExternalBackend{})
	return r
}

func graceFrom(ctx context.Context, fallback time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left > 0 {
			return left
		}
		return 0
	}
	return fallback
}
