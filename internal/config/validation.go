package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/conneroisu/componentry/internal/logging"
)

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateLoaderConfig(&config.Loader); err != nil {
		return fmt.Errorf("loader config: %w", err)
	}

	if err := validateMarkersConfig(&config.Markers); err != nil {
		return fmt.Errorf("markers config: %w", err)
	}

	if config.Runtime.MaxDepth < 0 {
		return fmt.Errorf("runtime config: max_depth %d is negative", config.Runtime.MaxDepth)
	}

	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateDevelopmentConfig(&config.Development); err != nil {
		return fmt.Errorf("development config: %w", err)
	}

	if err := validateLogConfig(&config.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}

	return nil
}

func validateLoaderConfig(config *LoaderConfig) error {
	if config.BaseURL != "" {
		u, err := url.Parse(config.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("base_url must be http or https: %s", config.BaseURL)
		}
	} else if err := validatePath(config.Root); err != nil {
		return fmt.Errorf("invalid root '%s': %w", config.Root, err)
	}

	if config.Timeout < 0 {
		return fmt.Errorf("timeout %s is negative", config.Timeout)
	}
	if config.Concurrency < 1 {
		return fmt.Errorf("concurrency %d must be at least 1", config.Concurrency)
	}

	return nil
}

func validateMarkersConfig(config *MarkersConfig) error {
	for name, attr := range map[string]string{
		"component":    config.Component,
		"nested":       config.Nested,
		"param_prefix": config.ParamPrefix,
	} {
		if attr == "" {
			return fmt.Errorf("%s attribute is empty", name)
		}
		if strings.ContainsAny(attr, " \t\n\"'<>=/") {
			return fmt.Errorf("%s attribute %q is not a valid attribute name", name, attr)
		}
	}
	if config.Component == config.Nested {
		return fmt.Errorf("component and nested attributes must differ")
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Validate port range (allow 0 for system-assigned ports in testing)
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	// Validate host
	if config.Host != "" {
		// Basic validation - no dangerous characters
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	for _, origin := range config.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid allowed origin: %s", origin)
		}
	}

	return nil
}

func validateDevelopmentConfig(config *DevelopmentConfig) error {
	if config.Debounce < 0 {
		return fmt.Errorf("debounce %s is negative", config.Debounce)
	}
	if config.StatePreservation {
		if err := validatePath(config.StateDB); err != nil {
			return fmt.Errorf("invalid state_db '%s': %w", config.StateDB, err)
		}
	}

	return nil
}

func validateLogConfig(config *LogConfig) error {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		return err
	}
	switch config.Format {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("unknown log format %q", config.Format)
	}
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	// Clean the path
	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	// Reject dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
