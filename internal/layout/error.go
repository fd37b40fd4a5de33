package layout

import (
	"fmt"
	"strings"

	"trans/internal/types"
)

// LayoutErrorKind classifies layout failures.
type LayoutErrorKind uint8

const (
	// LayoutErrRecursiveUnsized: a type contains itself by value.
	LayoutErrRecursiveUnsized LayoutErrorKind = iota + 1
	// LayoutErrGeneric: the type still mentions a type parameter.
	LayoutErrGeneric
	LayoutErrLengthConversion
	LayoutErrUnknownType
)

// LayoutError reports a type the engine cannot lay out. Messages use the
// source spelling of the types involved.
type LayoutError struct {
	Kind  LayoutErrorKind
	Type  types.TypeID
	Cycle []types.TypeID // LayoutErrRecursiveUnsized
	Err   error          // LayoutErrLengthConversion

	name       string
	cycleNames []string
}

func (e *LayoutEngine) errorf(kind LayoutErrorKind, t types.TypeID) *LayoutError {
	err := &LayoutError{Kind: kind, Type: t}
	if _, ok := e.Types.Lookup(t); ok {
		err.name = e.Types.Format(t)
	}
	return err
}

func (e *LayoutError) typeName() string {
	if e.name != "" {
		return "`" + e.name + "`"
	}
	return fmt.Sprintf("type#%d", e.Type)
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case LayoutErrRecursiveUnsized:
		msg := fmt.Sprintf("recursive type %s has infinite size", e.typeName())
		if len(e.cycleNames) > 1 {
			msg += " (" + strings.Join(e.cycleNames, " -> ") + ")"
		}
		return msg
	case LayoutErrGeneric:
		return fmt.Sprintf("%s is still generic", e.typeName())
	case LayoutErrLengthConversion:
		return fmt.Sprintf("array length of %s does not fit: %v", e.typeName(), e.Err)
	case LayoutErrUnknownType:
		return fmt.Sprintf("unknown %s", e.typeName())
	}
	return fmt.Sprintf("layout error %d for %s", e.Kind, e.typeName())
}

func (e *LayoutError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
