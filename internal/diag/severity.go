package diag

import "fmt"

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevHelp suggests a fix.
	SevHelp Severity = iota
	// SevNote adds context.
	SevNote
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
	// SevFatal aborts the current run.
	SevFatal
	// SevBug reports an internal invariant violation.
	SevBug
)

func (s Severity) String() string {
	switch s {
	case SevHelp:
		return "help"
	case SevNote:
		return "note"
	case SevWarning:
		return "warning"
	case SevError, SevFatal:
		return "error"
	case SevBug:
		return "error: internal compiler error"
	}
	return fmt.Sprintf("Severity(%d)", uint8(s))
}

// ParseSeverity accepts the lowercase level names used in diagnostic files.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "help":
		return SevHelp, nil
	case "note":
		return SevNote, nil
	case "warning":
		return SevWarning, nil
	case "error":
		return SevError, nil
	case "fatal":
		return SevFatal, nil
	case "bug":
		return SevBug, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}
