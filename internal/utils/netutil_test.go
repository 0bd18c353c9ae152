package utils

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatePortAndWait(t *testing.T) {
	port, err := AllocatePort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)
	assert.True(t, CheckPortAvailable(port))

	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, WaitForPort(ctx, l.Addr().String(), 20*time.Millisecond))
	assert.False(t, CheckPortAvailable(port))
}

func TestWaitForPortTimesOut(t *testing.T) {
	port, err := AllocatePort()
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err = WaitForPort(ctx, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 20*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetCommandLine(t *testing.T) {
	data := struct {
		Name string
		Port int
	}{Name: "cosmos-db", Port: 8081}
	cmd, args, err := GetCommandLine("docker", []string{"--name={{.Name}}", "-p", "{{.Port}}:8081"}, data)
	require.NoError(t, err)
	assert.Equal(t, "docker", cmd)
	assert.Equal(t, []string{"--name=cosmos-db", "-p", "8081:8081"}, args)

	_, _, err = GetCommandLine("x", []string{"{{.Missing}}"}, data)
	require.Error(t, err)

	cmd, args, err = GetCommandLine("./bin/{{.Name}}", []string{" plain "}, data)
	require.NoError(t, err)
	assert.Equal(t, "./bin/cosmos-db", cmd)
	assert.Equal(t, []string{"plain"}, args)

	_, _, err = GetCommandLine("x", []string{"ok", "{{.Port"}, data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arg 1")
}
