package diag

import (
	"fmt"
	"strconv"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Ошибки понижения (lowering), L0001..
	LowMissingDefinition Code = 5001
	LowUnresolvedGeneric Code = 5002
	LowUnsupportedShape  Code = 5003
	LowInvalidState      Code = 5004
	LowScopeDiscipline   Code = 5005
)

const lowerBase = 5000

var codeDescription = map[Code]string{
	UnknownCode:          "Unknown error",
	LowMissingDefinition: "Missing definition",
	LowUnresolvedGeneric: "Unresolved generic parameter",
	LowUnsupportedShape:  "Unsupported type shape",
	LowInvalidState:      "Invalid lowering state",
	LowScopeDiscipline:   "Cleanup scope discipline violated",
}

// ID returns the stable printable identifier: E0308 for user codes,
// L0001 for lowering codes.
func (c Code) ID() string {
	switch ic := int(c); {
	case ic == 0:
		return ""
	case ic < lowerBase:
		return fmt.Sprintf("E%04d", ic)
	case ic < 2*lowerBase:
		return fmt.Sprintf("L%04d", ic-lowerBase)
	}
	return fmt.Sprintf("X%04d", int(c))
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// ParseCode is the inverse of Code.ID.
func ParseCode(id string) (Code, error) {
	if id == "" {
		return UnknownCode, nil
	}
	if len(id) < 2 {
		return 0, fmt.Errorf("invalid code %q", id)
	}
	n, err := strconv.ParseUint(id[1:], 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid code %q: %w", id, err)
	}
	switch id[0] {
	case 'E':
		if n == 0 || n >= lowerBase {
			return 0, fmt.Errorf("code %q out of range", id)
		}
		return Code(n), nil
	case 'L':
		if n == 0 || n >= lowerBase {
			return 0, fmt.Errorf("code %q out of range", id)
		}
		return Code(n + lowerBase), nil
	}
	return 0, fmt.Errorf("invalid code prefix in %q", id)
}
