package emit

import "strconv"

// Value is an SSA operand: a register, a global, or a constant.
type Value struct {
	Ref string
	Ty  Type
}

// IsValid reports whether the value refers to anything.
func (v Value) IsValid() bool { return v.Ref != "" }

func (v Value) String() string { return string(v.Ty) + " " + v.Ref }

// Const builds an integer constant.
func Const(ty Type, v int64) Value {
	return Value{Ref: strconv.FormatInt(v, 10), Ty: ty}
}

// Bool builds an i1 constant.
func Bool(b bool) Value {
	if b {
		return Value{Ref: "true", Ty: I1}
	}
	return Value{Ref: "false", Ty: I1}
}

// Undef builds an undefined value of ty.
func Undef(ty Type) Value { return Value{Ref: "undef", Ty: ty} }

// Null builds a null pointer of ty.
func Null(ty Type) Value { return Value{Ref: "null", Ty: ty} }

// Zero builds the all-zero value of ty.
func Zero(ty Type) Value {
	if ty.IsPtr() {
		return Null(ty)
	}
	return Value{Ref: "zeroinitializer", Ty: ty}
}

// Block identifies a basic block of the function being built.
type Block int

// NoBlock marks an absent block.
const NoBlock Block = -1

// Instr identifies an emitted instruction for inspection.
type Instr int
