package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"fortio.org/safecast"

	"trans/internal/config"
	"trans/internal/diag"
	"trans/internal/diagfmt"
)

// resolveConfig loads transc.toml and lets explicitly set flags win.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Find(path)
	if err != nil {
		return config.Config{}, err
	}

	strs := []struct {
		flag string
		dst  *string
	}{
		{"color", &cfg.Diagnostics.Color},
		{"error-format", &cfg.Diagnostics.Format},
		{"path-mode", &cfg.Diagnostics.Paths},
		{"trace", &cfg.Trace.Output},
		{"trace-level", &cfg.Trace.Level},
		{"trace-mode", &cfg.Trace.Mode},
	}
	for _, s := range strs {
		if !flags.Changed(s.flag) {
			continue
		}
		v, err := flags.GetString(s.flag)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to get %s flag: %w", s.flag, err)
		}
		*s.dst = v
	}
	if flags.Changed("max-diagnostics") {
		if cfg.Diagnostics.Max, err = flags.GetInt("max-diagnostics"); err != nil {
			return config.Config{}, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
		}
	}
	// lower-only flags are absent on other subcommands
	if f := flags.Lookup("jobs"); f != nil && f.Changed {
		if cfg.Lower.Jobs, err = flags.GetInt("jobs"); err != nil {
			return config.Config{}, fmt.Errorf("failed to get jobs flag: %w", err)
		}
	}
	if f := flags.Lookup("ptr-size"); f != nil && f.Changed {
		if cfg.Lower.PtrSize, err = flags.GetInt("ptr-size"); err != nil {
			return config.Config{}, fmt.Errorf("failed to get ptr-size flag: %w", err)
		}
	}
	return cfg, cfg.Validate()
}

// emitterOptions maps the [diagnostics] settings onto the renderer.
func emitterOptions(cfg config.Config, reg *diag.Registry) (diagfmt.Options, error) {
	color, err := diagfmt.ParseColorMode(cfg.Diagnostics.Color)
	if err != nil {
		return diagfmt.Options{}, err
	}
	format, err := diagfmt.ParseFormat(cfg.Diagnostics.Format)
	if err != nil {
		return diagfmt.Options{}, err
	}
	paths, err := diagfmt.ParsePathMode(cfg.Diagnostics.Paths)
	if err != nil {
		return diagfmt.Options{}, err
	}
	return diagfmt.Options{Color: color, Format: format, PathMode: paths, Registry: reg, Program: "transc"}, nil
}

func diagnosticLimit(cfg config.Config) uint16 {
	n, err := safecast.Conv[uint16](cfg.Diagnostics.Max)
	if err != nil {
		panic(fmt.Errorf("max diagnostics overflow: %w", err))
	}
	return n
}
