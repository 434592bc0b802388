// Package config provides configuration management for componentry using
// Viper for flexible configuration loading from files, environment
// variables, and command-line flags.
//
// The configuration system supports YAML files, environment variable
// overrides with the COMPONENTRY_ prefix and validation. It covers fragment
// loading, marker attribute names, the runtime nesting bound, the
// development server and logging.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. COMPONENTRY_SERVER_PORT.
const EnvPrefix = "COMPONENTRY"

type Config struct {
	Loader      LoaderConfig      `mapstructure:"loader" yaml:"loader"`
	Markers     MarkersConfig     `mapstructure:"markers" yaml:"markers"`
	Runtime     RuntimeConfig     `mapstructure:"runtime" yaml:"runtime"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Development DevelopmentConfig `mapstructure:"development" yaml:"development"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

// LoaderConfig controls where fragments and resources come from. With a
// BaseURL they are fetched over HTTP; otherwise they are read from Root.
type LoaderConfig struct {
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	Root        string        `mapstructure:"root" yaml:"root"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
}

// MarkersConfig names the declarative marker attributes.
type MarkersConfig struct {
	Component   string `mapstructure:"component" yaml:"component"`
	Nested      string `mapstructure:"nested" yaml:"nested"`
	ParamPrefix string `mapstructure:"param_prefix" yaml:"param_prefix"`
}

type RuntimeConfig struct {
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	Host           string   `mapstructure:"host" yaml:"host"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type DevelopmentConfig struct {
	HotReload         bool          `mapstructure:"hot_reload" yaml:"hot_reload"`
	StatePreservation bool          `mapstructure:"state_preservation" yaml:"state_preservation"`
	StateDB           string        `mapstructure:"state_db" yaml:"state_db"`
	Debounce          time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultMarkers returns the standard marker attribute names.
func DefaultMarkers() MarkersConfig {
	return MarkersConfig{
		Component:   "data-component",
		Nested:      "data-nested-component",
		ParamPrefix: "data-param-",
	}
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	markers := DefaultMarkers()

	v.SetDefault("loader.base_url", "")
	v.SetDefault("loader.root", ".")
	v.SetDefault("loader.timeout", 10*time.Second)
	v.SetDefault("loader.concurrency", 8)
	v.SetDefault("markers.component", markers.Component)
	v.SetDefault("markers.nested", markers.Nested)
	v.SetDefault("markers.param_prefix", markers.ParamPrefix)
	v.SetDefault("runtime.max_depth", 16)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("development.hot_reload", true)
	v.SetDefault("development.state_preservation", false)
	v.SetDefault("development.state_db", ".componentry/state.db")
	v.SetDefault("development.debounce", 100*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v, applying defaults for every
// key v does not set.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Handle allowed origins set via viper (workaround for viper slice handling)
	if v.IsSet("server.allowed_origins") && len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}

	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{
			fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port),
		}
	}

	// Validate configuration values
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Addr returns the listen address of the development server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
