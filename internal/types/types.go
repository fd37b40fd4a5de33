package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNever
	KindUnit
	KindBool
	KindChar
	KindInt
	KindUint
	KindFloat
	KindPointer
	KindStruct
	KindTuple
	KindEnum
	KindFn
	KindClosure
	KindDyn
	KindArray
	KindString
	KindParam
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNever:
		return "never"
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindPointer:
		return "pointer"
	case KindStruct:
		return "struct"
	case KindTuple:
		return "tuple"
	case KindEnum:
		return "enum"
	case KindFn:
		return "fn"
	case KindClosure:
		return "closure"
	case KindDyn:
		return "dyn"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindParam:
		return "param"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of integers/floats.
type Width uint8

const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// Own describes who owns the pointee of a pointer type.
type Own uint8

const (
	// OwnShared is a borrowed pointer (&T). It never frees its target.
	OwnShared Own = iota
	// OwnUnique is a uniquely owned heap pointer (~T).
	OwnUnique
	// OwnBox is a managed heap box (@T).
	OwnBox
)

func (o Own) String() string {
	switch o {
	case OwnShared:
		return "&"
	case OwnUnique:
		return "~"
	case OwnBox:
		return "@"
	default:
		return fmt.Sprintf("Own(%d)", o)
	}
}

// CallConv selects the calling convention of a function type.
type CallConv uint8

const (
	// CCDefault is the internal convention.
	CCDefault CallConv = iota
	// CCC is the platform C convention used by extern functions.
	CCC
)

// TraitID identifies a trait definition of the crate being lowered.
type TraitID uint32

// AdtID indexes an algebraic data type definition.
type AdtID uint32

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Width   Width  // numeric primitives
	Own     Own    // pointers
	Elem    TypeID // pointer/array/string pointee, closure signature
	Count   uint32 // array length, fixed string length, param index, dyn trait
	Payload uint32 // slot in the kind-specific side table
}

// Descriptor helpers ---------------------------------------------------------

// MakeInt describes a signed integer of the given width.
func MakeInt(width Width) Type {
	return Type{Kind: KindInt, Width: width}
}

// MakeUint describes an unsigned integer type.
func MakeUint(width Width) Type {
	return Type{Kind: KindUint, Width: width}
}

// MakeFloat describes a floating-point type.
func MakeFloat(width Width) Type {
	return Type{Kind: KindFloat, Width: width}
}

// MakePointer describes a pointer with the given ownership.
func MakePointer(own Own, elem TypeID) Type {
	return Type{Kind: KindPointer, Own: own, Elem: elem}
}

// MakeArray describes a fixed-length array.
func MakeArray(elem TypeID, count uint32) Type {
	return Type{Kind: KindArray, Elem: elem, Count: count}
}

// MakeString describes a fixed-length byte string.
func MakeString(count uint32) Type {
	return Type{Kind: KindString, Count: count}
}

// MakeParam describes the generic parameter with the given index.
func MakeParam(index uint32) Type {
	return Type{Kind: KindParam, Count: index}
}

// MakeDyn describes a trait object for the trait. own says whether the
// object owns its data pointer (~dyn) or borrows it (&dyn).
func MakeDyn(own Own, trait TraitID) Type {
	return Type{Kind: KindDyn, Own: own, Count: uint32(trait)}
}

// IsScalar reports kinds that are a single machine value with no structure.
func (t Type) IsScalar() bool {
	switch t.Kind {
	case KindBool, KindChar, KindInt, KindUint, KindFloat:
		return true
	default:
		return false
	}
}
