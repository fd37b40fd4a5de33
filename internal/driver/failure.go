package driver

import (
	"context"
	"errors"
	"io"

	"trans/internal/diag"
	"trans/internal/lower"
	"trans/internal/source"
	"trans/internal/trace"
)

// Diagnose turns a lowering failure into the diagnostic shown to the user.
// Errors that did not come from the lowerer become an internal bug report
// without a location.
func Diagnose(err error) diag.Diagnostic {
	var fe *lower.FatalError
	if errors.As(err, &fe) {
		return fe.Diag
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return diag.New(diag.SevError, diag.UnknownCode, source.NoSpan, "lowering interrupted: "+err.Error())
	case errors.Is(err, ErrInstanceLimit):
		return diag.New(diag.SevFatal, diag.LowUnresolvedGeneric, source.NoSpan, err.Error()).
			WithNote("instance bodies kept requesting new instances; polymorphic recursion is not supported")
	}
	return diag.New(diag.SevBug, diag.LowInvalidState, source.NoSpan, err.Error())
}

// DumpTrace writes the ring buffer of the tracer in ctx, if there is one.
// It is called after a fatal error so that the events leading to it are
// not lost.
func DumpTrace(ctx context.Context, w io.Writer) error {
	ring, ok := trace.RingOf(trace.FromContext(ctx))
	if !ok {
		return nil
	}
	return ring.Dump(w, trace.FormatText)
}
