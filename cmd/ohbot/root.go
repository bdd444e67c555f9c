package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-ohbot/internal/config"
	"github.com/teslashibe/go-ohbot/internal/log"
	"github.com/teslashibe/go-ohbot/pkg/character"
	"github.com/teslashibe/go-ohbot/pkg/gesture"
	"github.com/teslashibe/go-ohbot/pkg/metrics"
)

var rootCmd = &cobra.Command{
	Use:           "ohbot",
	Short:         "Animate an Ohbot-style robot head",
	Long:          `ohbot runs the motion core of an animatronic head: smooth PID moves, idle behaviour, keyword gestures and talking lips.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("backend", "", "Actuator backend: serial, feetech or sim")
}

// loadConfig reads --config and applies the flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if cmd.Flags().Changed("backend") {
		cfg.Backend, _ = cmd.Flags().GetString("backend")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// startLogging initialises the global logger. While a full-screen renderer
// owns the terminal, log lines go to a file instead of stderr.
func startLogging(cfg config.Config, fullscreen bool) (func(), error) {
	path := cfg.Log.File
	if path == "" && fullscreen {
		path = filepath.Join(os.TempDir(), "ohbot.log")
	}
	if path == "" {
		log.Init(cfg.Log.Level)
		return func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.InitWriter(cfg.Log.Level, f)
	if fullscreen {
		fmt.Fprintf(os.Stderr, "logging to %s\n", path)
	}
	return func() { _ = f.Close() }, nil
}

// newApp builds the character from cfg with the given options filled in.
func newApp(cfg config.Config, opts character.Options) (*character.App, error) {
	act, err := cfg.Actuator()
	if err != nil {
		return nil, err
	}
	opts.Actuator = act

	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if cfg.Gestures.File != "" {
		reg, err := gesture.LoadFile(cfg.Gestures.File)
		if err != nil {
			return nil, err
		}
		opts.Gestures = reg
	}
	return character.New(cfg.Character(), opts)
}

// backendName describes the configured backend for user-facing messages.
func backendName(cfg config.Config) string {
	switch cfg.Backend {
	case "serial", "ohbot":
		return "serial " + cfg.Serial.Port
	case "feetech":
		return "feetech " + cfg.Feetech.Port
	default:
		return "simulator"
	}
}
