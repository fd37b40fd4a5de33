package emit

import (
	"strconv"
	"strings"
)

// Type is the backend spelling of a value representation, e.g. "i32",
// "i8*" or "{ i32, i64 }". Pointers are typed, so two representations of the
// same bits compare unequal until a Cast reconciles them.
type Type string

const (
	Void   Type = "void"
	I1     Type = "i1"
	I8     Type = "i8"
	I32    Type = "i32"
	I64    Type = "i64"
	Opaque Type = "i8*"
)

// Int spells an integer of the given bit width.
func Int(bits int) Type {
	return Type("i" + strconv.Itoa(bits))
}

// Float spells a floating-point type of the given bit width.
func Float(bits int) Type {
	switch bits {
	case 16:
		return "half"
	case 32:
		return "float"
	default:
		return "double"
	}
}

// Struct spells a literal struct type.
func Struct(fields ...Type) Type {
	if len(fields) == 0 {
		return "{}"
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return Type("{ " + strings.Join(parts, ", ") + " }")
}

// Array spells a fixed array type.
func Array(n int, elem Type) Type {
	return Type("[" + strconv.Itoa(n) + " x " + string(elem) + "]")
}

// Ptr returns a pointer to t.
func (t Type) Ptr() Type { return t + "*" }

// IsPtr reports whether t is a pointer type.
func (t Type) IsPtr() bool { return strings.HasSuffix(string(t), "*") }

// Elem strips one level of pointer.
func (t Type) Elem() Type {
	if !t.IsPtr() {
		return t
	}
	return t[:len(t)-1]
}

// IsStruct reports whether t is a literal struct type.
func (t Type) IsStruct() bool {
	return strings.HasPrefix(string(t), "{") && strings.HasSuffix(string(t), "}")
}

// Fields splits a literal struct type into its field types.
func (t Type) Fields() []Type {
	if !t.IsStruct() || t == "{}" {
		return nil
	}
	inner := strings.TrimSpace(string(t[1 : len(t)-1]))
	return splitTop(inner)
}

// ArrayElem returns the element type of an array type.
func (t Type) ArrayElem() (Type, bool) {
	s := string(t)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return "", false
	}
	_, elem, ok := strings.Cut(s[1:len(s)-1], " x ")
	return Type(elem), ok
}

// FuncPtr spells a pointer to a function with the given signature.
func FuncPtr(sig Signature) Type {
	return Type(string(sig.Ret) + " (" + joinTypes(sig.Params) + ")*")
}

// splitTop splits a comma separated list, ignoring commas nested inside
// braces, brackets and parentheses.
func splitTop(s string) []Type {
	var out []Type
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, Type(strings.TrimSpace(s[start:i])))
				start = i + 1
			}
		}
	}
	return append(out, Type(strings.TrimSpace(s[start:])))
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
