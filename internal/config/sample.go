package config

/**
 * The topology used when the config declares no resources: a preview cosmos-db
 * emulator with a persistent data volume and the data explorer, and a
 * python app that connects to it and receives its port through PORT.
 */
func SampleTopology() ([]ResourceConfig, []ReferenceConfig) {
	resources := []ResourceConfig{
		{
			Name: "cosmos-db",
			Kind: "database",
			Options: map[string]any{
				"emulated":     true,
				"preview":      true,
				"dataVolume":   true,
				"dataExplorer": true,
				"port":         8081,
			},
		},
		{
			Name: "python-app",
			Kind: "process",
			Options: map[string]any{
				"command": "python",
				"args":    []string{"main.py"},
				"workDir": "../PythonApp",
				"port":    8000,
				"portEnv": "PORT",
			},
		},
	}
	references := []ReferenceConfig{
		{From: "python-app", To: "cosmos-db", Mode: "data-connection"},
	}
	return resources, references
}
