package topology

import (
	"errors"
	"fmt"
	"testing"

	"apphost/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T, name string) Descriptor {
	t.Helper()
	d, err := NewDescriptor(name, models.KindDatabase, map[string]any{OptEmulated: true})
	require.NoError(t, err)
	return d
}

func testProc(t *testing.T, name string) Descriptor {
	t.Helper()
	d, err := NewDescriptor(name, models.KindProcess, map[string]any{OptCommand: "true"})
	require.NoError(t, err)
	return d
}

func TestTopologicalOrderSample(t *testing.T) {
	g := New()
	require.NoError(t, g.AddResource(testProc(t, "app")))
	require.NoError(t, g.AddResource(testDB(t, "db")))
	require.NoError(t, g.AddReference("app", "db", models.DataConnection))

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "app"}, order)
}

func TestTopologicalOrderTiesFollowInsertion(t *testing.T) {
	g := New()
	for _, name := range []string{"c", "a", "b", "d"} {
		require.NoError(t, g.AddResource(testProc(t, name)))
	}
	require.NoError(t, g.AddReference("d", "b", models.EnvInjection))

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b", "d"}, order)

	again, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, order, again)
}

func TestTopologicalOrderRespectsAllDependencies(t *testing.T) {
	g := New()
	names := []string{"web", "api", "worker", "cache", "db", "queue"}
	for _, name := range names {
		require.NoError(t, g.AddResource(testProc(t, name)))
	}
	edges := [][2]string{
		{"web", "api"}, {"api", "db"}, {"api", "cache"},
		{"worker", "queue"}, {"worker", "db"}, {"cache", "db"},
	}
	for _, e := range edges {
		require.NoError(t, g.AddReference(e[0], e[1], models.DataConnection))
	}

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	require.Len(t, order, len(names))
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	for _, ref := range g.References() {
		assert.Less(t, pos[ref.To], pos[ref.From], "%s must come before %s", ref.To, ref.From)
	}
}

func TestAddReferenceCycleLeavesGraphUnchanged(t *testing.T) {
	g := New()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddResource(testProc(t, name)))
	}
	require.NoError(t, g.AddReference("a", "b", models.DataConnection))
	require.NoError(t, g.AddReference("b", "c", models.DataConnection))
	before := g.References()

	err := g.AddReference("c", "a", models.EnvInjection)
	require.Error(t, err)
	var cycleErr CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"c", "a", "b", "c"}, cycleErr.Path)

	assert.Equal(t, before, g.References())
	assert.Empty(t, g.Dependencies("c"))
	assert.Equal(t, []string{"b"}, g.Dependents("c"))
	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, order)
}

func TestAddReferenceErrors(t *testing.T) {
	g := New()
	require.NoError(t, g.AddResource(testProc(t, "app")))

	var unknown UnknownResourceError
	err := g.AddReference("app", "db", models.DataConnection)
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "db", unknown.Name)

	err = g.AddReference("ghost", "app", models.DataConnection)
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "ghost", unknown.Name)

	var invalid ValidationError
	err = g.AddReference("app", "app", models.DataConnection)
	require.True(t, errors.As(err, &invalid))

	err = g.AddReference("app", "app", models.ReferenceMode("bogus"))
	require.True(t, errors.As(err, &invalid))

	assert.Empty(t, g.References())
}

func TestAddReferenceIdenticalIsNoop(t *testing.T) {
	g := New()
	require.NoError(t, g.AddResource(testDB(t, "db")))
	require.NoError(t, g.AddResource(testProc(t, "app")))
	require.NoError(t, g.AddReference("app", "db", models.DataConnection))
	require.NoError(t, g.AddReference("app", "db", models.DataConnection))
	require.NoError(t, g.AddReference("app", "db", models.EnvInjection))

	assert.Len(t, g.References(), 2)
	assert.Equal(t, []string{"db"}, g.Dependencies("app"))
	assert.Equal(t, []string{"app"}, g.Dependents("db"))
	assert.Len(t, g.ReferencesFrom("app"), 2)
}

func TestAddResourceDuplicateIsAtomic(t *testing.T) {
	g := New()
	first := testDB(t, "db")
	require.NoError(t, g.AddResource(first))

	err := g.AddResource(testProc(t, "db"))
	var dup DuplicateNameError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "db", dup.Name)

	assert.Equal(t, 1, g.Len())
	got, ok := g.Resource("db")
	require.True(t, ok)
	assert.Equal(t, models.KindDatabase, got.Kind())
}

func TestSnapshotExport(t *testing.T) {
	g, err := NewBuilder().
		AddDatabase("cosmos-db", map[string]any{OptEmulated: true, OptDataVolume: true}).
		AddProcess("python-app", map[string]any{OptCommand: "python", OptPortEnv: "PORT", OptPort: 8000}).
		WithReference("python-app", "cosmos-db", models.DataConnection).
		Build()
	require.NoError(t, err)

	snap, err := g.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []string{"cosmos-db", "python-app"}, snap.TopoOrder)
	require.Len(t, snap.Edges, 1)
	assert.Contains(t, snap.DOT(), "digraph apphost")
	assert.Contains(t, snap.DOT(), "n1 -> n0")
	assert.Contains(t, snap.Mermaid(), "graph TD")
	assert.Contains(t, snap.Mermaid(), fmt.Sprintf("n1 -->|%s| n0", models.DataConnection))
}

func TestBuilderFirstErrorSticks(t *testing.T) {
	_, err := NewBuilder().
		AddProcess("app", map[string]any{OptCommand: "true"}).
		WithReference("app", "db", models.DataConnection).
		AddDatabase("db", map[string]any{OptEmulated: true}).
		Build()
	var unknown UnknownResourceError
	require.True(t, errors.As(err, &unknown))
}
