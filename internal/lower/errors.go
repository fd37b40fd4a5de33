package lower

import (
	"errors"
	"fmt"

	"trans/internal/diag"
	"trans/internal/source"
)

var (
	// ErrMissingDefinition: a referenced function, trait or impl is absent.
	ErrMissingDefinition = errors.New("missing definition")
	// ErrUnresolvedGeneric: a type still mentions a generic parameter.
	ErrUnresolvedGeneric = errors.New("unresolved generic parameter")
	// ErrUnimplemented: a type or expression shape the lowerer cannot handle.
	ErrUnimplemented = errors.New("unimplemented")
	// ErrScopeMismatch: cleanup scopes were not popped in LIFO order.
	ErrScopeMismatch = errors.New("cleanup scope mismatch")

	errInvalidState = errors.New("invalid lowering state")
)

// FatalError aborts lowering. It carries the diagnostic shown to the user.
type FatalError struct {
	Diag diag.Diagnostic
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Diag.Code.ID(), e.Diag.Message)
}

func (e *FatalError) Unwrap() error { return e.Err }

var codeOf = map[error]diag.Code{
	ErrMissingDefinition: diag.LowMissingDefinition,
	ErrUnresolvedGeneric: diag.LowUnresolvedGeneric,
	ErrUnimplemented:     diag.LowUnsupportedShape,
	errInvalidState:      diag.LowInvalidState,
	ErrScopeMismatch:     diag.LowScopeDiscipline,
}

// fatalf builds a FatalError around one of the sentinels above.
func fatalf(kind error, sp source.Span, format string, args ...any) *FatalError {
	msg := fmt.Sprintf(format, args...)
	return &FatalError{
		Diag: diag.New(diag.SevFatal, codeOf[kind], sp, msg),
		Err:  fmt.Errorf("%s: %w", msg, kind),
	}
}
