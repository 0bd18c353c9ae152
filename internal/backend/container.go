package backend

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"apphost/internal/logger"
	"apphost/internal/models"
	"apphost/internal/topology"
	"apphost/internal/utils"
)

const (
	EmulatorImage        = "mcr.microsoft.com/cosmosdb/linux/azure-cosmos-emulator:latest"
	EmulatorPreviewImage = "mcr.microsoft.com/cosmosdb/linux/azure-cosmos-emulator:vnext-preview"

	emulatorPort         = 8081
	emulatorExplorerPort = 1234
	emulatorDataDir      = "/tmp/cosmos/appdata"
	containerPrefix      = "apphost-"
)

// ContainerBackend runs emulated databases through a container runtime CLI.
// The runtime runs in the foreground, so the container lives exactly as
// long as the child process does.
type ContainerBackend struct {
	procs        *ProcessBackend
	runtime      string
	readyTimeout time.Duration
	pollInterval time.Duration
}

func NewContainerBackend(procs *ProcessBackend, runtime string, readyTimeout time.Duration) *ContainerBackend {
	if runtime == "" {
		runtime = "docker"
	}
	if readyTimeout <= 0 {
		readyTimeout = 2 * time.Minute
	}
	return &ContainerBackend{
		procs:        procs,
		runtime:      runtime,
		readyTimeout: readyTimeout,
		pollInterval: 500 * time.Millisecond,
	}
}

// RunArgs returns the runtime arguments that start the emulator for req.
func (b *ContainerBackend) RunArgs(req Request) []string {
	d := req.Descriptor
	preview := d.GetBool(topology.OptPreview)
	args := []string{"run", "--rm", "--name", containerPrefix + d.Name(),
		"-p", fmt.Sprintf("%d:%d", req.Port, emulatorPort)}
	if preview {
		// 仅 preview 镜像提供数据浏览器
		if d.GetBool(topology.OptDataExplorer) {
			args = append(args, "-p", fmt.Sprintf("%d:%d", emulatorExplorerPort, emulatorExplorerPort),
				"-e", "ENABLE_EXPLORER=true")
		}
	}
	if volume := d.GetString(topology.OptDataVolume); volume != "" {
		args = append(args, "-v", volume+":"+emulatorDataDir,
			"-e", "AZURE_COSMOS_EMULATOR_ENABLE_DATA_PERSISTENCE=true")
	}
	for _, kv := range envList(req.Env) {
		args = append(args, "-e", kv)
	}
	return append(args, b.image(d))
}

func (b *ContainerBackend) image(d topology.Descriptor) string {
	if image := d.GetString(topology.OptImage); image != "" {
		return image
	}
	if d.GetBool(topology.OptPreview) {
		return EmulatorPreviewImage
	}
	return EmulatorImage
}

func emulatorEndpoint(d topology.Descriptor, port int) models.Endpoint {
	scheme := "https"
	if d.GetBool(topology.OptPreview) {
		scheme = "http"
	}
	return models.Endpoint{Scheme: scheme, Host: "127.0.0.1", Port: port}
}

/**
 * Start an emulated database container and wait until it accepts connections
 * @param {context.Context} ctx - Startup context, bounds the readiness wait
 * @param {Request} req - Descriptor, environment and host port of the database
 * @returns {Handle} Handle of the runtime process
 * @returns {error} Start error, early exit, or readiness timeout
 * @description
 * - Maps the host port to the emulator gateway port
 * - Mounts the data volume when one is configured
 * - Tears the container down again when it never becomes ready
 */
func (b *ContainerBackend) Materialize(ctx context.Context, req Request) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := req.Descriptor
	if req.Port <= 0 {
		return nil, fmt.Errorf("database %s has no host port", d.Name())
	}
	h, err := b.procs.start(d.Name(), b.runtime, b.RunArgs(req), "", nil, emulatorEndpoint(d, req.Port))
	if err != nil {
		return nil, err
	}
	if err := b.waitReady(ctx, h); err != nil {
		_ = h.instance.StopProcess(b.procs.defaultGrace)
		return nil, err
	}
	if d.GetBool(topology.OptPreview) && d.GetBool(topology.OptDataExplorer) {
		logger.Infof("Data explorer of '%s' available at http://localhost:%d/", d.Name(), emulatorExplorerPort)
	}
	return h, nil
}

func (b *ContainerBackend) waitReady(ctx context.Context, h *processHandle) error {
	ctx, cancel := context.WithTimeout(ctx, b.readyTimeout)
	defer cancel()

	exited := h.instance.Done()
	ready := make(chan error, 1)
	addr := net.JoinHostPort(h.endpoint.Host, strconv.Itoa(h.endpoint.Port))
	go func() { ready <- utils.WaitForPort(ctx, addr, b.pollInterval) }()

	select {
	case err := <-ready:
		if err != nil {
			return fmt.Errorf("database %s not ready: %w", h.name, err)
		}
		return nil
	case <-exited:
		cancel()
		<-ready
		return fmt.Errorf("database %s exited before becoming ready: %s", h.name, h.instance.GetDetail().LastExitReason)
	}
}

func (b *ContainerBackend) Teardown(ctx context.Context, h Handle) error {
	if err := b.procs.Teardown(ctx, h); err != nil {
		return fmt.Errorf("stop container %s: %w", containerPrefix+h.Resource(), err)
	}
	return nil
}
