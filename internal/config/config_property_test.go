//go:build property
// +build property

package config

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestConfigurationProperties tests configuration validation properties
func TestConfigurationProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	base := func() *Config {
		return &Config{
			Loader:  LoaderConfig{Root: ".", Concurrency: 1},
			Markers: DefaultMarkers(),
			Server:  ServerConfig{Port: 8080, Host: "localhost"},
			Log:     LogConfig{Level: "info"},
		}
	}

	// Property: Valid configurations should always validate
	properties.Property("valid config validates", prop.ForAll(
		func(port int, host string, root string) bool {
			cfg := base()
			cfg.Server.Port = port
			cfg.Server.Host = host
			cfg.Loader.Root = root
			return validateConfig(cfg) == nil
		},
		gen.IntRange(0, 65535),
		gen.RegexMatch(`^[a-zA-Z0-9.-]+$`),
		gen.RegexMatch(`^[a-zA-Z0-9_/]+$`),
	))

	// Property: Out of range ports are always rejected
	properties.Property("invalid port rejected", prop.ForAll(
		func(port int) bool {
			cfg := base()
			cfg.Server.Port = port
			return validateConfig(cfg) != nil
		},
		gen.OneGenOf(gen.IntRange(-10000, -1), gen.IntRange(65536, 100000)),
	))

	// Property: Paths with traversal are always rejected
	properties.Property("traversal rejected", prop.ForAll(
		func(prefix string) bool {
			return validatePath("../"+prefix) != nil
		},
		gen.RegexMatch(`^[a-z]*$`),
	))

	// Property: Marker names containing whitespace are rejected
	properties.Property("marker whitespace rejected", prop.ForAll(
		func(a, b string) bool {
			cfg := base()
			cfg.Markers.Component = a + " " + b
			err := validateConfig(cfg)
			return err != nil && strings.Contains(err.Error(), "markers")
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
