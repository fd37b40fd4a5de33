package diag

import (
	"fmt"
	"io"

	"trans/internal/source"
)

// FormatShort writes one line per diagnostic and child:
//
//	path:line:col: level CODE: message
//
// Spans without a file render as "<no-span>".
func FormatShort(w io.Writer, fs *source.FileSet, items []Diagnostic) error {
	for _, d := range items {
		if err := writeShort(w, fs, d.Span, d.Severity, d.Code, d.Message); err != nil {
			return err
		}
		for _, c := range d.Children {
			if err := writeShort(w, fs, c.Span, c.Severity, UnknownCode, c.Message); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeShort(w io.Writer, fs *source.FileSet, msp MultiSpan, sev Severity, code Code, msg string) error {
	loc := "<no-span>"
	if sp, ok := msp.PrimarySpan(); ok && fs != nil {
		if f := fs.Get(sp.File); f != nil {
			start, _ := fs.Resolve(sp)
			loc = fmt.Sprintf("%s:%d:%d", f.Path, start.Line, start.Col)
		}
	}
	head := sev.String()
	if id := code.ID(); id != "" {
		head += " " + id
	}
	if _, err := fmt.Fprintf(w, "%s: %s: %s\n", loc, head, msg); err != nil {
		return fmt.Errorf("write diagnostic: %w", err)
	}
	return nil
}
