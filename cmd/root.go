// Package cmd provides the componentry command-line interface.
//
// Configuration is read, in increasing priority, from .componentry.yml (or
// the file named by --config or COMPONENTRY_CONFIG_FILE), COMPONENTRY_*
// environment variables such as COMPONENTRY_SERVER_PORT, and flags.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/componentry/internal/config"
	"github.com/conneroisu/componentry/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "componentry",
	Short: "Render and serve pages built from HTML fragment components",
	Long: `componentry renders pages whose elements are declared as components:
each marker element loads an HTML fragment, renders it with its parameters
and brings its stylesheet, script and nested components along.

Quick Start:
  componentry render index.html       Render a page to stdout
  componentry list index.html         List the component markers of a page
  componentry serve                   Start the live-reload development server`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .componentry.yml, can also use COMPONENTRY_CONFIG_FILE)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("root", ".", "directory fragments are read from")
	rootCmd.PersistentFlags().String("base-url", "", "fetch fragments over HTTP from this URL instead of --root")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("loader.root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindPFlag("loader.base_url", rootCmd.PersistentFlags().Lookup("base-url"))
}

// initConfig selects the config file and enables environment overrides.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".componentry")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads the configuration and builds the logger it describes.
// Logs go to errOut so command output stays clean.
func loadConfig(errOut io.Writer) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    errOut,
		Component: "componentry",
	})
	return cfg, logger, nil
}
