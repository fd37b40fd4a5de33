package diagfmt

import (
	"fmt"
	"os"

	"trans/internal/diag"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAsIs prints the path the file was loaded with.
	PathModeAsIs PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
	// PathModeAuto shortens long absolute paths to their base name.
	PathModeAuto
)

func (m PathMode) String() string {
	switch m {
	case PathModeAbsolute:
		return "absolute"
	case PathModeRelative:
		return "relative"
	case PathModeBasename:
		return "basename"
	case PathModeAuto:
		return "auto"
	}
	return ""
}

// ParsePathMode is the inverse of PathMode.String; "" and "as-is" keep
// paths unchanged.
func ParsePathMode(s string) (PathMode, error) {
	switch s {
	case "", "as-is":
		return PathModeAsIs, nil
	case "absolute":
		return PathModeAbsolute, nil
	case "relative":
		return PathModeRelative, nil
	case "basename":
		return PathModeBasename, nil
	case "auto":
		return PathModeAuto, nil
	}
	return PathModeAsIs, fmt.Errorf("unknown path mode %q", s)
}

// Format selects the rendering mode.
type Format uint8

const (
	// FormatNew is the multi-line annotated snippet format.
	FormatNew Format = iota
	// FormatOld is the single-line file:line:col format.
	FormatOld
	// FormatEnv picks FormatOld when ErrorFormatEnv is "old".
	FormatEnv
)

// ErrorFormatEnv is consulted by FormatEnv on every emission.
const ErrorFormatEnv = "TRANSC_ERROR_FORMAT"

// ParseFormat accepts new, old and env.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "new":
		return FormatNew, nil
	case "old":
		return FormatOld, nil
	case "env":
		return FormatEnv, nil
	}
	return FormatNew, fmt.Errorf("unknown error format %q", s)
}

func (f Format) oldSchool() bool {
	switch f {
	case FormatOld:
		return true
	case FormatEnv:
		return os.Getenv(ErrorFormatEnv) == "old"
	}
	return false
}

// Options configures an Emitter.
type Options struct {
	Color    ColorMode
	Format   Format
	PathMode PathMode
	// Registry enables the "run explain" help line of the old format.
	Registry *diag.Registry
	// Program is the command named in that help line.
	Program string
}
