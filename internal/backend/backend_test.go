//go:build !windows

package backend

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"apphost/internal/config"
	"apphost/internal/models"
	"apphost/internal/topology"
	"apphost/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processRequest(t *testing.T, name string, options map[string]any, port int, env map[string]string) Request {
	t.Helper()
	d, err := topology.NewDescriptor(name, models.KindProcess, options)
	require.NoError(t, err)
	return Request{Descriptor: d, Env: env, Port: port}
}

func TestDriverOf(t *testing.T) {
	emulated := topology.MustDescriptor("db", models.KindDatabase, map[string]any{topology.OptEmulated: true})
	external := topology.MustDescriptor("db", models.KindDatabase, map[string]any{topology.OptEndpoint: "https://db.example.com/"})
	forced := topology.MustDescriptor("db", models.KindDatabase, map[string]any{
		topology.OptEmulated: true, topology.OptDriver: DriverExternal, topology.OptEndpoint: "https://db.example.com/",
	})
	app := topology.MustDescriptor("app", models.KindProcess, map[string]any{topology.OptCommand: "app"})

	assert.Equal(t, DriverContainer, DriverOf(emulated))
	assert.Equal(t, DriverExternal, DriverOf(external))
	assert.Equal(t, DriverExternal, DriverOf(forced))
	assert.Equal(t, DriverExec, DriverOf(app))
}

func TestProcessBackendLifecycle(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")
	port, err := utils.AllocatePort()
	require.NoError(t, err)
	req := processRequest(t, "app", map[string]any{
		topology.OptCommand: "sh",
		topology.OptArgs:    []string{"-c", `echo "{{.Name}} {{.Port}} $EXTRA" > ` + out + `; sleep 30`},
		topology.OptPortEnv: "APP_PORT",
	}, port, map[string]string{"APP_PORT": strconv.Itoa(port), "EXTRA": "yes"})

	b := NewProcessBackend(2 * time.Second)
	h, err := b.Materialize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "app", h.Resource())
	assert.Greater(t, h.Pid(), 0)
	assert.Equal(t, models.Endpoint{Scheme: "http", Host: "localhost", Port: port}, h.Endpoint())

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(out)
		return err == nil && strings.TrimSpace(string(data)) == "app "+strconv.Itoa(port)+" yes"
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, b.Teardown(context.Background(), h))
	assert.Zero(t, h.Pid())
	// A second teardown finds nothing running.
	require.NoError(t, b.Teardown(context.Background(), h))
}

func TestProcessBackendTemplateError(t *testing.T) {
	req := processRequest(t, "app", map[string]any{
		topology.OptCommand: "echo",
		topology.OptArgs:    []string{"{{.Missing}}"},
	}, 0, nil)
	_, err := NewProcessBackend(time.Second).Materialize(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expand command of app")
}

func TestProcessBackendMissingExecutable(t *testing.T) {
	req := processRequest(t, "ghost", map[string]any{topology.OptCommand: "/nonexistent/ghost"}, 0, nil)
	_, err := NewProcessBackend(time.Second).Materialize(context.Background(), req)
	require.Error(t, err)
}

func TestProcessBackendCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := processRequest(t, "app", map[string]any{topology.OptCommand: "sleep", topology.OptArgs: []string{"30"}}, 0, nil)
	_, err := NewProcessBackend(time.Second).Materialize(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessBackendPortInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	port := l.Addr().(*net.TCPAddr).Port
	req := processRequest(t, "app", map[string]any{topology.OptCommand: "sleep", topology.OptArgs: []string{"30"}}, port, nil)
	_, err = NewProcessBackend(time.Second).Materialize(context.Background(), req)
	assert.ErrorContains(t, err, "already in use")
}

func TestContainerRunArgs(t *testing.T) {
	b := NewContainerBackend(NewProcessBackend(time.Second), "", 0)
	d := topology.MustDescriptor("cosmos-db", models.KindDatabase, map[string]any{
		topology.OptEmulated:   true,
		topology.OptDataVolume: true,
	})
	args := b.RunArgs(Request{Descriptor: d, Port: 18081, Env: map[string]string{"A": "1"}})
	assert.Equal(t, []string{
		"run", "--rm", "--name", "apphost-cosmos-db",
		"-p", "18081:8081",
		"-v", "cosmos-db-data:/tmp/cosmos/appdata",
		"-e", "AZURE_COSMOS_EMULATOR_ENABLE_DATA_PERSISTENCE=true",
		"-e", "A=1",
		EmulatorImage,
	}, args)

	preview := topology.MustDescriptor("cosmos-db", models.KindDatabase, map[string]any{
		topology.OptEmulated:     true,
		topology.OptPreview:      true,
		topology.OptDataExplorer: true,
	})
	args = b.RunArgs(Request{Descriptor: preview, Port: 8081})
	assert.Contains(t, args, "ENABLE_EXPLORER=true")
	assert.Contains(t, args, "1234:1234")
	assert.Equal(t, EmulatorPreviewImage, args[len(args)-1])
	assert.Equal(t, "http", emulatorEndpoint(preview, 8081).Scheme)
	assert.Equal(t, "https", emulatorEndpoint(d, 8081).Scheme)
}

func TestContainerRunArgsSampleTopology(t *testing.T) {
	resources, _ := config.SampleTopology()
	db := resources[0]
	d, err := topology.NewDescriptor(db.Name, models.ResourceKind(db.Kind), db.Options)
	require.NoError(t, err)

	b := NewContainerBackend(NewProcessBackend(time.Second), "docker", 0)
	args := b.RunArgs(Request{Descriptor: d, Port: 8081})
	assert.Equal(t, []string{
		"run", "--rm", "--name", "apphost-cosmos-db",
		"-p", "8081:8081",
		"-p", "1234:1234",
		"-e", "ENABLE_EXPLORER=true",
		"-v", "cosmos-db-data:/tmp/cosmos/appdata",
		"-e", "AZURE_COSMOS_EMULATOR_ENABLE_DATA_PERSISTENCE=true",
		EmulatorPreviewImage,
	}, args)
}

func fakeRuntime(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runtime")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestContainerBackendWaitsForPort(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	b := NewContainerBackend(NewProcessBackend(2*time.Second), fakeRuntime(t, "exec sleep 30"), 5*time.Second)
	d := topology.MustDescriptor("db", models.KindDatabase, map[string]any{topology.OptEmulated: true})
	h, err := b.Materialize(context.Background(), Request{Descriptor: d, Port: port})
	require.NoError(t, err)
	assert.Equal(t, port, h.Endpoint().Port)
	assert.Equal(t, "https", h.Endpoint().Scheme)
	require.NoError(t, b.Teardown(context.Background(), h))
}

func TestContainerBackendExitBeforeReady(t *testing.T) {
	b := NewContainerBackend(NewProcessBackend(time.Second), fakeRuntime(t, "exit 125"), 5*time.Second)
	d := topology.MustDescriptor("db", models.KindDatabase, map[string]any{topology.OptEmulated: true})
	_, err := b.Materialize(context.Background(), Request{Descriptor: d, Port: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited before becoming ready")
}

func TestContainerBackendNeedsPort(t *testing.T) {
	b := NewContainerBackend(NewProcessBackend(time.Second), "docker", time.Second)
	d := topology.MustDescriptor("db", models.KindDatabase, map[string]any{topology.OptEmulated: true})
	_, err := b.Materialize(context.Background(), Request{Descriptor: d})
	require.Error(t, err)
}

func TestExternalBackend(t *testing.T) {
	d := topology.MustDescriptor("db", models.KindDatabase, map[string]any{topology.OptEndpoint: "https://db.example.com/"})
	h, err := ExternalBackend{}.Materialize(context.Background(), Request{Descriptor: d})
	require.NoError(t, err)
	assert.Equal(t, models.Endpoint{Scheme: "https", Host: "db.example.com", Port: 443}, h.Endpoint())
	assert.Zero(t, h.Pid())
	assert.NoError(t, ExternalBackend{}.Teardown(context.Background(), h))
}

func TestParseEndpoint(t *testing.T) {
	ep, err := ParseEndpoint("http://localhost:8081/")
	require.NoError(t, err)
	assert.Equal(t, models.Endpoint{Scheme: "http", Host: "localhost", Port: 8081}, ep)

	ep, err = ParseEndpoint("http://db")
	require.NoError(t, err)
	assert.Equal(t, 80, ep.Port)

	_, err = ParseEndpoint("localhost:8081")
	assert.Error(t, err)
	_, err = ParseEndpoint("")
	assert.Error(t, err)
}

type recordingBackend struct {
	materialized []string
	tornDown     []string
}

func (r *recordingBackend) Materialize(_ context.Context, req Request) (Handle, error) {
	r.materialized = append(r.materialized, req.Descriptor.Name())
	return externalHandle{name: req.Descriptor.Name()}, nil
}

func (r *recordingBackend) Teardown(_ context.Context, h Handle) error {
	r.tornDown = append(r.tornDown, h.Resource())
	return nil
}

func TestRegistryRoutes(t *testing.T) {
	r := NewRegistry()
	procs, dbs := &recordingBackend{}, &recordingBackend{}
	require.NoError(t, r.Register(models.KindProcess, DriverExec, procs))
	require.NoError(t, r.Register(models.KindDatabase, DriverContainer, dbs))
	require.Error(t, r.Register(models.KindProcess, DriverExec, procs))
	require.Error(t, r.Register(models.KindProcess, "other", nil))

	app := topology.MustDescriptor("app", models.KindProcess, map[string]any{topology.OptCommand: "app"})
	db := topology.MustDescriptor("db", models.KindDatabase, map[string]any{topology.OptEmulated: true})
	ext := topology.MustDescriptor("ext", models.KindDatabase, map[string]any{topology.OptEndpoint: "https://x/"})

	ha, err := r.Materialize(context.Background(), Request{Descriptor: app})
	require.NoError(t, err)
	hd, err := r.Materialize(context.Background(), Request{Descriptor: db})
	require.NoError(t, err)
	_, err = r.Materialize(context.Background(), Request{Descriptor: ext})
	assert.ErrorContains(t, err, "no backend registered for database:external")

	require.NoError(t, r.Teardown(context.Background(), hd))
	require.NoError(t, r.Teardown(context.Background(), ha))
	assert.Equal(t, []string{"app"}, procs.materialized)
	assert.Equal(t, []string{"db"}, dbs.materialized)
	assert.Equal(t, []string{"db"}, dbs.tornDown)
	assert.Equal(t, []string{"app"}, procs.tornDown)

	assert.Error(t, r.Teardown(context.Background(), externalHandle{name: "stray"}))
}

func TestGraceFrom(t *testing.T) {
	assert.Equal(t, 3*time.Second, graceFrom(context.Background(), 3*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	assert.Greater(t, graceFrom(ctx, time.Second), 59*time.Minute)
}
