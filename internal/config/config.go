package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"apphost/internal/env"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

/**
 * Control API configuration
 * @property {string} address - Listening address of the control API (e.g. "127.0.0.1:18888")
 * @property {bool} enabled - Whether "launch" serves the control API
 * @property {string} mode - Gin mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Enabled bool   `mapstructure:"enabled"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" or empty writes to stderr
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Metrics configuration
 * @property {bool} enabled - Whether /metrics is exposed on the control API
 */
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

/**
 * Launch behaviour
 * @property {int} timeoutSeconds - Grace period for each resource at shutdown
 * @property {bool} parallel - Materialize independent resources concurrently
 * @property {string} containerRuntime - Container CLI used for emulated databases
 */
type LaunchConfig struct {
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	Parallel         bool   `mapstructure:"parallel"`
	ContainerRuntime string `mapstructure:"container_runtime"`
}

/**
 * Declared resource
 * @property {string} name - Unique resource name
 * @property {string} kind - database or process
 * @property {map} options - Options validated against the kind's schema
 */
type ResourceConfig struct {
	Name    string         `mapstructure:"name" yaml:"name"`
	Kind    string         `mapstructure:"kind" yaml:"kind"`
	Options map[string]any `mapstructure:"options" yaml:"options"`
}

/**
 * Declared reference, "from" depends on "to"
 */
type ReferenceConfig struct {
	From string `mapstructure:"from" yaml:"from"`
	To   string `mapstructure:"to" yaml:"to"`
	Mode string `mapstructure:"mode" yaml:"mode"`
}

// topologyFile is decoded with yaml directly, viper lower-cases map keys
// and option keys and env names are case sensitive.
type topologyFile struct {
	Resources  []ResourceConfig  `yaml:"resources"`
	References []ReferenceConfig `yaml:"references"`
}

type AppConfig struct {
	Server     ServerConfig      `mapstructure:"server"`
	Log        LogConfig         `mapstructure:"log"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Launch     LaunchConfig      `mapstructure:"launch"`
	Resources  []ResourceConfig  `mapstructure:"resources"`
	References []ReferenceConfig `mapstructure:"references"`
}

const (
	DefaultAddress          = "127.0.0.1:18888"
	DefaultTimeoutSeconds   = 10
	DefaultContainerRuntime = "docker"
)

var ErrConfigNotFound = errors.New("config file not found")

/**
 * Load application configuration
 * @param {string} file - Explicit config file, empty searches "apphost.yaml" in . and ~/.apphost
 * @returns {AppConfig} Loaded configuration with defaults applied
 * @returns {error} ErrConfigNotFound when an explicit file is missing, or a parse error
 * @description
 * - Environment variables prefixed with APPHOST_ override file values,
 *   e.g. APPHOST_LAUNCH_TIMEOUT_SECONDS
 * - A missing file in the search path is not an error
 */
func LoadConfig(file string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APPHOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if file != "" {
		if _, err := os.Stat(file); err != nil {
			return nil, ErrConfigNotFound
		}
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("apphost")
		v.AddConfigPath(".")
		v.AddConfigPath(env.ApphostDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		if err := loadTopology(used, &cfg); err != nil {
			return nil, err
		}
	}
	return collectConfig(&cfg), nil
}

func loadTopology(file string, cfg *AppConfig) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	var tf topologyFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("parse topology in %s: %w", file, err)
	}
	cfg.Resources = tf.Resources
	cfg.References = tf.References
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", DefaultAddress)
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "console")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("launch.timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("launch.parallel", false)
	v.SetDefault("launch.container_runtime", DefaultContainerRuntime)
}

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Server.Address == "" {
		cfg.Server.Address = DefaultAddress
	}
	if cfg.Launch.TimeoutSeconds <= 0 {
		cfg.Launch.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.Launch.ContainerRuntime == "" {
		cfg.Launch.ContainerRuntime = DefaultContainerRuntime
	}
	if len(cfg.Resources) == 0 {
		cfg.Resources, cfg.References = SampleTopology()
	}
	return cfg
}

// Config is the configuration loaded by the root command before any subcommand runs.
var Config = *collectConfig(&AppConfig{})
