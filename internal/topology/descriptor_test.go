package topology

import (
	"errors"
	"testing"

	"apphost/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDescriptorValidation(t *testing.T) {
	cases := []struct {
		name    string
		resName string
		kind    models.ResourceKind
		opts    map[string]any
		field   string
	}{
		{"empty name", "", models.KindDatabase, map[string]any{OptEmulated: true}, "name"},
		{"upper case name", "CosmosDB", models.KindDatabase, map[string]any{OptEmulated: true}, "name"},
		{"unknown kind", "queue", models.ResourceKind("queue"), nil, "kind"},
		{"unknown option", "db", models.KindDatabase, map[string]any{OptEmulated: true, "replicas": 3}, "replicas"},
		{"process option on database", "db", models.KindDatabase, map[string]any{OptEmulated: true, OptCommand: "x"}, OptCommand},
		{"wrong type", "db", models.KindDatabase, map[string]any{OptEmulated: "yes"}, OptEmulated},
		{"fractional port", "app", models.KindProcess, map[string]any{OptCommand: "x", OptPort: 80.5}, OptPort},
		{"port range", "app", models.KindProcess, map[string]any{OptCommand: "x", OptPort: 70000}, OptPort},
		{"missing command", "app", models.KindProcess, map[string]any{OptPort: 8000}, OptCommand},
		{"args not strings", "app", models.KindProcess, map[string]any{OptCommand: "x", OptArgs: []any{"a", 1}}, OptArgs},
		{"database without runtime", "db", models.KindDatabase, nil, OptEmulated},
		{"external without endpoint", "db", models.KindDatabase, map[string]any{OptDriver: "external"}, OptEndpoint},
		{"unknown driver", "db", models.KindDatabase, map[string]any{OptEmulated: true, OptDriver: "k8s"}, OptDriver},
		{"huge port", "app", models.KindProcess, map[string]any{OptCommand: "x", OptPort: 1e30}, OptPort},
		{"huge negative port", "app", models.KindProcess, map[string]any{OptCommand: "x", OptPort: -1e30}, OptPort},
		{"explorer without preview", "db", models.KindDatabase, map[string]any{OptEmulated: true, OptDataExplorer: true}, OptDataExplorer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDescriptor(tc.resName, tc.kind, tc.opts)
			require.Error(t, err)
			var verr ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestNewDescriptorNormalizesOptions(t *testing.T) {
	d, err := NewDescriptor("python-app", models.KindProcess, map[string]any{
		OptCommand: "python",
		OptArgs:    []any{"main.py"},
		OptPort:    float64(8000),
		OptPortEnv: "PORT",
		OptEnv:     map[string]any{"MODE": "dev"},
	})
	require.NoError(t, err)
	assert.Equal(t, "python-app", d.Name())
	assert.Equal(t, models.KindProcess, d.Kind())
	assert.Equal(t, []string{"main.py"}, d.GetStringSlice(OptArgs))
	assert.Equal(t, 8000, d.GetInt(OptPort))
	assert.Equal(t, map[string]string{"MODE": "dev"}, d.GetStringMapString(OptEnv))
	assert.False(t, d.Has(OptWorkDir))

	db, err := NewDescriptor("cosmos-db", models.KindDatabase, map[string]any{
		OptEmulated:   true,
		OptDataVolume: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "cosmos-db-data", db.GetString(OptDataVolume))
	assert.True(t, db.GetBool(OptEmulated))
	assert.False(t, db.GetBool(OptDataExplorer))
}

func TestDataExplorerRequiresPreview(t *testing.T) {
	d, err := NewDescriptor("cosmos-db", models.KindDatabase, map[string]any{
		OptEmulated:     true,
		OptPreview:      true,
		OptDataExplorer: true,
	})
	require.NoError(t, err)
	assert.True(t, d.GetBool(OptDataExplorer))

	_, err = NewDescriptor("cosmos-db", models.KindDatabase, map[string]any{
		OptEmulated:     true,
		OptPreview:      false,
		OptDataExplorer: true,
	})
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, OptDataExplorer, verr.Field)

	// switched off explicitly it needs nothing
	_, err = NewDescriptor("cosmos-db", models.KindDatabase, map[string]any{
		OptEmulated:     true,
		OptDataExplorer: false,
	})
	require.NoError(t, err)
}

func TestDescriptorIsImmutable(t *testing.T) {
	env := map[string]string{"A": "1"}
	args := []string{"x"}
	opts := map[string]any{OptCommand: "run", OptEnv: env, OptArgs: args}
	d, err := NewDescriptor("app", models.KindProcess, opts)
	require.NoError(t, err)

	env["A"] = "2"
	args[0] = "y"
	opts[OptCommand] = "other"
	assert.Equal(t, "1", d.GetStringMapString(OptEnv)["A"])
	assert.Equal(t, []string{"x"}, d.GetStringSlice(OptArgs))
	assert.Equal(t, "run", d.GetString(OptCommand))

	copied := d.Options()
	copied[OptCommand] = "mutated"
	copied[OptEnv].(map[string]string)["A"] = "3"
	assert.Equal(t, "run", d.GetString(OptCommand))
	assert.Equal(t, "1", d.GetStringMapString(OptEnv)["A"])
}
