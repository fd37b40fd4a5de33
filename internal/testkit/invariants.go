package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"trans/internal/diag"
	"trans/internal/source"
)

// CheckSpanInvariants verifies that every span of d points into a file of
// fs and stays within its content:
// 1) Start <= End
// 2) End does not exceed the file length
// 3) children obey the same rules
// The sentinel span is always accepted.
func CheckSpanInvariants(fs *source.FileSet, d *diag.Diagnostic) error {
	if fs == nil || d == nil {
		return fmt.Errorf("nil file set or diagnostic")
	}
	if err := checkMultiSpan(fs, d.Span); err != nil {
		return fmt.Errorf("%s: %w", d.Message, err)
	}
	for i, c := range d.Children {
		if err := checkMultiSpan(fs, c.Span); err != nil {
			return fmt.Errorf("%s: child %d: %w", d.Message, i, err)
		}
		if c.Suggestion != nil {
			if err := checkSpan(fs, c.Suggestion.Span); err != nil {
				return fmt.Errorf("%s: child %d suggestion: %w", d.Message, i, err)
			}
		}
	}
	return nil
}

func checkMultiSpan(fs *source.FileSet, ms diag.MultiSpan) error {
	for _, sp := range ms.Primary {
		if err := checkSpan(fs, sp); err != nil {
			return err
		}
	}
	for _, l := range ms.Labels {
		if err := checkSpan(fs, l.Span); err != nil {
			return err
		}
	}
	return nil
}

func checkSpan(fs *source.FileSet, sp source.Span) error {
	if sp.IsDummy() {
		return nil
	}
	if sp.End < sp.Start {
		return fmt.Errorf("span %v ends before it starts", sp)
	}
	f := fs.Get(sp.File)
	if f == nil {
		return fmt.Errorf("span %v points to unknown file %d", sp, sp.File)
	}
	lenContent, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	if sp.End > lenContent {
		return fmt.Errorf("span end beyond content: %d > %d", sp.End, lenContent)
	}
	return nil
}
