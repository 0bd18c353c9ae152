package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"apphost/internal/logger"
	"apphost/internal/models"
	"apphost/internal/proc"
	"apphost/internal/topology"
	"apphost/internal/utils"
)

// ProcessBackend runs process resources as child processes of the launcher.
type ProcessBackend struct {
	defaultGrace time.Duration
}

func NewProcessBackend(defaultGrace time.Duration) *ProcessBackend {
	return &ProcessBackend{defaultGrace: defaultGrace}
}

type processHandle struct {
	name     string
	instance *proc.ProcessInstance
	endpoint models.Endpoint
}

func (h *processHandle) Resource() string          { return h.name }
func (h *processHandle) Endpoint() models.Endpoint { return h.endpoint }
func (h *processHandle) Pid() int                  { return h.instance.Pid() }

func (h *processHandle) Exited() <-chan struct{} { return h.instance.Done() }

// Instance exposes the underlying process, mainly for status reporting.
func (h *processHandle) Instance() *proc.ProcessInstance { return h.instance }

// commandData is what command and argument templates can refer to.
type commandData struct {
	Name string
	Port int
	Env  map[string]string
}

/**
 * Start a process resource
 * @param {context.Context} ctx - Startup context, checked before starting
 * @param {Request} req - Descriptor, environment and port of the resource
 * @returns {Handle} Handle of the started process
 * @returns {error} Template or start error
 * @description
 * - command and args may use {{.Name}}, {{.Port}} and {{.Env.KEY}}
 * - The request environment is appended to the launcher's own environment
 * - Fails early when the assigned port is already taken
 * - Child output is logged line by line with the resource name
 */
func (b *ProcessBackend) Materialize(ctx context.Context, req Request) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := req.Descriptor
	data := commandData{Name: d.Name(), Port: req.Port, Env: req.Env}
	command, args, err := utils.GetCommandLine(d.GetString(topology.OptCommand), d.GetStringSlice(topology.OptArgs), data)
	if err != nil {
		return nil, fmt.Errorf("expand command of %s: %w", d.Name(), err)
	}
	if req.Port > 0 && !utils.CheckPortAvailable(req.Port) {
		return nil, fmt.Errorf("port %d of %s is already in use", req.Port, d.Name())
	}
	h, err := b.start(d.Name(), command, args, d.GetString(topology.OptWorkDir), req.Env, endpointFor(d, req.Port))
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (b *ProcessBackend) start(name, command string, args []string, workDir string, env map[string]string, ep models.Endpoint) (*processHandle, error) {
	pi := proc.NewProcessInstance(name, command, args)
	pi.WorkDir = workDir
	pi.Env = envList(env)
	pi.Stdout = newLineLogger(logger.With("resource", name).With().Str("stream", "stdout").Logger())
	pi.Stderr = newLineLogger(logger.With("resource", name).With().Str("stream", "stderr").Logger())
	pi.OnExited(func(p *proc.ProcessInstance) {
		detail := p.GetDetail()
		logger.Warnf("Resource '%s' exited while running: %s", detail.Title, detail.LastExitReason)
	})
	if err := pi.StartProcess(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	return &processHandle{name: name, instance: pi, endpoint: ep}, nil
}

func (b *ProcessBackend) Teardown(ctx context.Context, h Handle) error {
	ph, ok := h.(*processHandle)
	if !ok {
		return fmt.Errorf("teardown %s: not a process handle", h.Resource())
	}
	err := ph.instance.StopProcess(graceFrom(ctx, b.defaultGrace))
	if errors.Is(err, proc.ErrNotRunning) {
		logger.Infof("Resource '%s' was no longer running at teardown", ph.name)
		return nil
	}
	return err
}

func endpointFor(d topology.Descriptor, port int) models.Endpoint {
	if port <= 0 {
		return models.Endpoint{}
	}
	scheme := d.GetString(topology.OptScheme)
	if scheme == "" {
		scheme = "http"
	}
	return models.Endpoint{Scheme: scheme, Host: "localhost", Port: port}
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
