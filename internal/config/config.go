// Package config loads transc.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is looked up in the working directory when --config is not
// given.
const FileName = "transc.toml"

// Diagnostics is the [diagnostics] section.
type Diagnostics struct {
	Color  string `toml:"color"`
	Format string `toml:"format"`
	Max    int    `toml:"max"`
	Paths  string `toml:"paths"`
}

// Lower is the [lower] section.
type Lower struct {
	Jobs    int `toml:"jobs"`
	PtrSize int `toml:"ptr_size"`
}

// Trace is the [trace] section.
type Trace struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Output string `toml:"output"`
}

// Config holds every setting a flag can override.
type Config struct {
	Diagnostics Diagnostics `toml:"diagnostics"`
	Lower       Lower       `toml:"lower"`
	Trace       Trace       `toml:"trace"`

	// Path is the file the values came from, empty for defaults.
	Path string `toml:"-"`
}

// Default returns the settings used without a config file.
func Default() Config {
	return Config{
		Diagnostics: Diagnostics{Color: "auto", Format: "new", Max: 100},
		Lower:       Lower{PtrSize: 8},
		Trace:       Trace{Level: "off", Mode: "ring"},
	}
}

// Load decodes path over the defaults. Keys missing from the file keep
// their default value; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	var file Config
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	set := func(dst *string, src string, key ...string) {
		if meta.IsDefined(key...) {
			*dst = strings.TrimSpace(src)
		}
	}
	set(&cfg.Diagnostics.Color, file.Diagnostics.Color, "diagnostics", "color")
	set(&cfg.Diagnostics.Format, file.Diagnostics.Format, "diagnostics", "format")
	set(&cfg.Diagnostics.Paths, file.Diagnostics.Paths, "diagnostics", "paths")
	set(&cfg.Trace.Level, file.Trace.Level, "trace", "level")
	set(&cfg.Trace.Mode, file.Trace.Mode, "trace", "mode")
	set(&cfg.Trace.Output, file.Trace.Output, "trace", "output")
	if meta.IsDefined("diagnostics", "max") {
		cfg.Diagnostics.Max = file.Diagnostics.Max
	}
	if meta.IsDefined("lower", "jobs") {
		cfg.Lower.Jobs = file.Lower.Jobs
	}
	if meta.IsDefined("lower", "ptr_size") {
		cfg.Lower.PtrSize = file.Lower.PtrSize
	}
	cfg.Path = path
	return cfg, cfg.Validate()
}

// Find loads explicit when it is set, else FileName from the working
// directory if present, else the defaults.
func Find(explicit string) (Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	if _, err := os.Stat(FileName); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("stat %s: %w", FileName, err)
	}
	return Load(FileName)
}

// Validate checks ranges that the decoder cannot.
func (c Config) Validate() error {
	var errs []error
	if c.Diagnostics.Max < 0 || c.Diagnostics.Max > 65535 {
		errs = append(errs, fmt.Errorf("diagnostics.max must be in [0, 65535], got %d", c.Diagnostics.Max))
	}
	if c.Lower.Jobs < 0 {
		errs = append(errs, fmt.Errorf("lower.jobs must not be negative, got %d", c.Lower.Jobs))
	}
	switch c.Lower.PtrSize {
	case 4, 8:
	default:
		errs = append(errs, fmt.Errorf("lower.ptr_size must be 4 or 8, got %d", c.Lower.PtrSize))
	}
	if err := errors.Join(errs...); err != nil {
		if c.Path != "" {
			return fmt.Errorf("%s: %w", c.Path, err)
		}
		return err
	}
	return nil
}
