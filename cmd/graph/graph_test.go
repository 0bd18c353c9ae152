package graph

import (
	"bytes"
	"encoding/json"
	"testing"

	"apphost/internal/config"
	"apphost/internal/topology"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintGraphFormats(t *testing.T) {
	cfg := config.Config

	var dot bytes.Buffer
	require.NoError(t, printGraph(&dot, &cfg, "dot"))
	assert.Contains(t, dot.String(), "digraph apphost")
	assert.Contains(t, dot.String(), `n1 -> n0 [label="data-connection"]`)

	var mermaid bytes.Buffer
	require.NoError(t, printGraph(&mermaid, &cfg, "mermaid"))
	assert.Contains(t, mermaid.String(), "graph TD")

	var js bytes.Buffer
	require.NoError(t, printGraph(&js, &cfg, "json"))
	var snap topology.Snapshot
	require.NoError(t, json.Unmarshal(js.Bytes(), &snap))
	assert.Equal(t, []string{"cosmos-db", "python-app"}, snap.TopoOrder)

	assert.Error(t, printGraph(&bytes.Buffer{}, &cfg, "png"))
}
