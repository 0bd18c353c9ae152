package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"apphost/internal/backend"
	"apphost/internal/binding"
	"apphost/internal/logger"
	"apphost/internal/models"
	"apphost/internal/topology"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrAlreadyStarted = errors.New("launcher already started")

// StartError reports that a resource could not be materialized.
type StartError struct {
	Resource string
	Err      error
}

func (e StartError) Error() string {
	return fmt.Sprintf("resource %s failed to start: %v", e.Resource, e.Err)
}

func (e StartError) Unwrap() error {
	return e.Err
}

type LaunchOptions struct {
	// Grace bounds each teardown before the backend force-kills.
	Grace time.Duration
	// Parallel starts independent resources concurrently.
	Parallel bool
}

type resourceEntry struct {
	desc      topology.Descriptor
	state     models.RunState
	handle    backend.Handle
	binding   binding.Binding
	env       map[string]string
	stopping  bool
	startTime time.Time
	stopTime  time.Time
	lastErr   error
	ready     chan struct{}
}

// Launcher owns every resource state transition of one launch.
type Launcher struct {
	graph   *topology.Graph
	backend backend.Backend
	binder  *binding.Binder
	opts    LaunchOptions
	runID   string
	log     zerolog.Logger

	mu        sync.Mutex
	state     models.HostState
	startTime time.Time
	order     []string
	entries   map[string]*resourceEntry
	published binding.Published

	stopCh   chan struct{}
	stopOnce sync.Once
	halt     chan struct{}
	watchers sync.WaitGroup
}

/**
 * Create a launcher for a validated topology
 * @param {*topology.Graph} graph - Resources and references to launch
 * @param {backend.Backend} b - Backend that materializes resources
 * @param {*binding.Binder} binder - Computes environments and bindings
 * @param {LaunchOptions} opts - Grace period and parallel mode
 * @returns {*Launcher} Idle launcher, every resource Pending
 */
func NewLauncher(graph *topology.Graph, b backend.Backend, binder *binding.Binder, opts LaunchOptions) *Launcher {
	if opts.Grace <= 0 {
		opts.Grace = 10 * time.Second
	}
	runID := uuid.NewString()
	l := &Launcher{
		graph:     graph,
		backend:   b,
		binder:    binder,
		opts:      opts,
		runID:     runID,
		log:       logger.With("run_id", runID),
		state:     models.HostIdle,
		entries:   make(map[string]*resourceEntry),
		published: make(binding.Published),
		stopCh:    make(chan struct{}),
		halt:      make(chan struct{}),
	}
	for _, d := range graph.Resources() {
		l.entries[d.Name()] = &resourceEntry{desc: d, state: models.StatePending, ready: make(chan struct{})}
	}
	return l
}

func (l *Launcher) RunID() string {
	return l.runID
}

func (l *Launcher) Graph() *topology.Graph {
	return l.graph
}

/**
 * Materialize every resource in dependency order
 * @param {context.Context} ctx - Cancelling it aborts the remaining startups
 * @returns {error} nil when every resource is Running, a StartError when one
 *   failed, ctx.Err() when cancelled, or a structural error from the graph
 * @description
 * - Fail-fast: the first failure stops further startups, dependents stay Pending
 * - Resources already Running are torn down in reverse order before returning
 */
func (l *Launcher) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.state != models.HostIdle {
		l.mu.Unlock()
		return ErrAlreadyStarted
	}
	order, err := l.graph.TopologicalOrder()
	if err != nil {
		l.mu.Unlock()
		return err
	}
	l.order = order
	l.state = models.HostRunning
	l.startTime = time.Now()
	l.mu.Unlock()

	l.log.Info().Strs("order", order).Bool("parallel", l.opts.Parallel).Msg("starting resources")
	if l.opts.Parallel {
		err = l.startParallel(ctx, order)
	} else {
		err = l.startSequential(ctx, order)
	}
	if err == nil {
		l.log.Info().Int("resources", len(order)).Msg("all resources running")
		return nil
	}

	l.log.Error().Err(err).Msg("startup aborted, tearing down started resources")
	if tdErr := l.Shutdown(context.Background()); tdErr != nil {
		l.log.Warn().Err(tdErr).Msg("teardown after failed startup reported errors")
	}
	return err
}

func (l *Launcher) startSequential(ctx context.Context, order []string) error {
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.startOne(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// startParallel runs one goroutine per resource. Each waits on the ready
// latch of every dependency, so a failed dependency leaves it Pending.
func (l *Launcher) startParallel(ctx context.Context, order []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range order {
		deps := l.graph.Dependencies(name)
		g.Go(func() error {
			for _, dep := range deps {
				select {
				case <-l.entries[dep].ready:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return l.startOne(gctx, name)
		})
	}
	err := g.Wait()
	if err == nil {
		// errgroup cancels gctx only on error; the caller's ctx may still have ended.
		return ctx.Err()
	}
	return err
}

func (l *Launcher) startOne(ctx context.Context, name string) error {
	l.mu.Lock()
	e := l.entries[name]
	if e.state != models.StatePending {
		l.mu.Unlock()
		return fmt.Errorf("resource %s is %s, not pending", name, e.state)
	}
	l.setState(e, models.StateStarting)
	published := make(binding.Published, len(l.published))
	for k, v := range l.published {
		published[k] = v
	}
	l.mu.Unlock()

	d := e.desc
	refs := l.graph.ReferencesFrom(name)
	log := l.log.With().Str("resource", name).Str("kind", string(d.Kind())).Logger()

	plan, err := l.binder.Plan(d, refs, published)
	if err != nil {
		return l.fail(e, err)
	}
	log.Info().Int("port", plan.Port).Msg("materializing")

	begin := time.Now()
	h, err := l.backend.Materialize(ctx, backend.Request{Descriptor: d, Env: plan.Env, Port: plan.Port})
	recordMaterialize(d.Kind(), time.Since(begin))
	if err != nil {
		if ctx.Err() != nil {
			l.mu.Lock()
			l.setState(e, models.StatePending)
			l.mu.Unlock()
			return ctx.Err()
		}
		return l.fail(e, err)
	}

	bd, err := l.binder.Resolve(d, refs, h.Endpoint(), published)
	if err != nil {
		if tdErr := l.teardownHandle(h); tdErr != nil {
			log.Warn().Err(tdErr).Msg("teardown after failed binding")
		}
		return l.fail(e, err)
	}

	l.mu.Lock()
	if l.state != models.HostRunning {
		// Shutdown began while this resource was starting.
		l.setState(e, models.StatePending)
		l.mu.Unlock()
		if tdErr := l.teardownHandle(h); tdErr != nil {
			log.Warn().Err(tdErr).Msg("teardown of late resource")
		}
		return context.Canceled
	}
	e.handle = h
	e.binding = bd
	e.env = plan.Env
	e.startTime = time.Now()
	l.published[name] = bd
	l.setState(e, models.StateRunning)
	close(e.ready)
	if ex, ok := h.(backend.Exiter); ok && ex.Exited() != nil {
		l.watchers.Add(1)
		go l.watchExit(e, ex.Exited())
	}
	l.mu.Unlock()

	log.Info().Str("endpoint", bd.Endpoint.URL()).Int("pid", h.Pid()).Msg("running")
	return nil
}

func (l *Launcher) fail(e *resourceEntry, err error) error {
	l.mu.Lock()
	e.lastErr = err
	l.setState(e, models.StateFailed)
	l.mu.Unlock()
	l.log.Error().Str("resource", e.desc.Name()).Err(err).Msg("failed to start")
	return StartError{Resource: e.desc.Name(), Err: err}
}

// watchExit marks a resource Failed when it goes away without being asked to.
func (l *Launcher) watchExit(e *resourceEntry, exited <-chan struct{}) {
	defer l.watchers.Done()
	select {
	case <-exited:
	case <-l.halt:
		// every resource is already torn down or abandoned
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if e.stopping || e.state != models.StateRunning {
		return
	}
	e.lastErr = errors.New("exited unexpectedly")
	e.stopTime = time.Now()
	l.setState(e, models.StateFailed)
	l.log.Warn().Str("resource", e.desc.Name()).Msg("resource exited unexpectedly")
}

// setState must be called with l.mu held.
func (l *Launcher) setState(e *resourceEntry, state models.RunState) {
	if e.state == models.StateRunning && state != models.StateRunning {
		recordLeftRunning()
	}
	e.state = state
	recordTransition(e.desc.Kind(), state)
}

/**
 * Start the topology and block until ctx is cancelled or Stop is called
 * @param {context.Context} ctx - Usually cancelled by SIGINT/SIGTERM
 * @returns {error} The startup error, nil after a clean shutdown
 */
func (l *Launcher) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-l.stopCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	if err := l.Start(runCtx); err != nil {
		if errors.Is(err, context.Canceled) && l.stopRequested() {
			l.log.Info().Msg("startup aborted by stop call")
			return nil
		}
		return err
	}
	select {
	case <-ctx.Done():
		l.log.Info().Msg("shutdown requested by signal")
	case <-l.stopCh:
		l.log.Info().Msg("shutdown requested by stop call")
	}
	if err := l.Shutdown(context.Background()); err != nil {
		l.log.Warn().Err(err).Msg("teardown reported errors")
	}
	return nil
}

// Stop asks Run to shut down, aborting a startup in progress. Safe to call more than once.
func (l *Launcher) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *Launcher) stopRequested() bool {
	select {
	case <-l.stopCh:
		return true
	default:
		return false
	}
}

/**
 * Tear down every running resource in reverse topological order
 * @param {context.Context} ctx - Parent of the per-resource grace timeouts
 * @returns {error} Teardown errors combined with errors.Join, nil if none
 * @description
 * - Each teardown gets its own grace timeout, after which the backend kills
 * - A failing teardown does not stop the others
 * - Calling it again after the launch stopped is a no-op
 */
func (l *Launcher) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	if l.state == models.HostShuttingDown || l.state == models.HostStopped {
		l.mu.Unlock()
		return nil
	}
	l.state = models.HostShuttingDown
	order := l.order
	if order == nil {
		order, _ = l.graph.TopologicalOrder()
	}
	var victims []*resourceEntry
	for i := len(order) - 1; i >= 0; i-- {
		e := l.entries[order[i]]
		if e.state == models.StateRunning {
			e.stopping = true
			victims = append(victims, e)
		}
	}
	l.mu.Unlock()

	var errs []error
	for _, e := range victims {
		name := e.desc.Name()
		tctx, cancel := context.WithTimeout(ctx, l.opts.Grace)
		err := l.backend.Teardown(tctx, e.handle)
		cancel()

		l.mu.Lock()
		e.stopTime = time.Now()
		if err != nil {
			e.lastErr = err
			errs = append(errs, fmt.Errorf("teardown %s: %w", name, err))
			l.log.Error().Str("resource", name).Err(err).Msg("teardown failed")
		} else {
			l.log.Info().Str("resource", name).Msg("stopped")
		}
		l.setState(e, models.StateStopped)
		delete(l.published, name)
		l.mu.Unlock()
	}

	// A process whose kill failed may never report its exit.
	close(l.halt)
	l.watchers.Wait()
	l.mu.Lock()
	l.state = models.HostStopped
	l.mu.Unlock()
	return errors.Join(errs...)
}

func (l *Launcher) teardownHandle(h backend.Handle) error {
	ctx, cancel := context.WithTimeout(context.Background(), l.opts.Grace)
	defer cancel()
	return l.backend.Teardown(ctx, h)
}

// State returns the host state and the state of every resource.
func (l *Launcher) State() (models.HostState, map[string]models.RunState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	states := make(map[string]models.RunState, len(l.entries))
	for name, e := range l.entries {
		states[name] = e.state
	}
	return l.state, states
}

// Snapshot returns the externally visible status of the launch.
func (l *Launcher) Snapshot() models.HostStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	order := l.order
	if order == nil {
		order, _ = l.graph.TopologicalOrder()
	}
	status := models.HostStatus{
		RunID:     l.runID,
		State:     l.state,
		StartTime: l.startTime,
		Order:     append([]string(nil), order...),
	}
	for _, name := range order {
		status.Resources = append(status.Resources, l.resourceStatus(name))
	}
	return status
}

// ResourceStatus returns the status of one resource.
func (l *Launcher) ResourceStatus(name string) (models.ResourceStatus, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[name]; !ok {
		return models.ResourceStatus{}, false
	}
	return l.resourceStatus(name), true
}

func (l *Launcher) resourceStatus(name string) models.ResourceStatus {
	e := l.entries[name]
	rs := models.ResourceStatus{
		Name:      name,
		Kind:      e.desc.Kind(),
		State:     e.state,
		DependsOn: l.graph.Dependencies(name),
		Env:       redactEnv(e.env),
		StartTime: e.startTime,
		StopTime:  e.stopTime,
	}
	if e.state == models.StateRunning && e.handle != nil {
		rs.Pid = e.handle.Pid()
		rs.Endpoint = e.binding.Endpoint.URL()
	}
	if e.lastErr != nil {
		rs.LastError = e.lastErr.Error()
	}
	return rs
}

func redactEnv(env map[string]string) map[string]string {
	if len(env) == 0 {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		switch {
		case strings.HasSuffix(k, "__AccountKey"):
			v = "***"
		case strings.Contains(v, "AccountKey="):
			v = v[:strings.Index(v, "AccountKey=")] + "AccountKey=***;"
		}
		out[k] = v
	}
	return out
}
