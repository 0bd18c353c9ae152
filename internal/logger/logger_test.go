package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"apphost/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogLevelFromString(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, GetLogLevelFromString("DEBUG"))
	assert.Equal(t, zerolog.InfoLevel, GetLogLevelFromString("info"))
	assert.Equal(t, zerolog.ErrorLevel, GetLogLevelFromString("error"))
	assert.Equal(t, zerolog.WarnLevel, GetLogLevelFromString("bogus"))
}

func TestSetOutputFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.WarnLevel)
	t.Cleanup(func() { SetOutput(consoleWriter(), zerolog.InfoLevel) })

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)
	l := With("resource", "db")
	l.Error().Msg("failed")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "shown 2", entry["message"])
	require.NoError(t, json.Unmarshal(lines[1], &entry))
	assert.Equal(t, "db", entry["resource"])
}

func TestInitLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "apphost.log")
	InitLogger(&config.LogConfig{Level: "debug", Path: path})
	t.Cleanup(func() { SetOutput(consoleWriter(), zerolog.InfoLevel) })

	Debug("written to file")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
