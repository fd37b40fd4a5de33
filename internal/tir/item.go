package tir

import (
	"trans/internal/source"
	"trans/internal/types"
)

// Bound requires generic parameter Param to implement Trait. A generic
// function receives one capability per bound, in order.
type Bound struct {
	Param uint32        `msgpack:"param"`
	Trait types.TraitID `msgpack:"trait"`
}

// FnDef is one function definition.
type FnDef struct {
	ID       DefID       `msgpack:"id"`
	Name     string      `msgpack:"name"`
	Span     source.Span `msgpack:"span"`
	Generics int         `msgpack:"generics"`
	Bounds   []Bound     `msgpack:"bounds,omitempty"`
	// Sig is a KindFn type; it may mention Param(i) for i < Generics.
	Sig    types.TypeID `msgpack:"sig"`
	Params []*Pattern   `msgpack:"params,omitempty"`
	Body   *Expr        `msgpack:"body,omitempty"`
	// Env lists captured upvar types of a closure body.
	Env       []types.TypeID `msgpack:"env,omitempty"`
	IsClosure bool           `msgpack:"closure,omitempty"`
	// External functions live in another crate. A generic external function
	// carries its body so it can be instantiated locally.
	External  bool   `msgpack:"external,omitempty"`
	Intrinsic string `msgpack:"intrinsic,omitempty"`
	// Trait is set on default methods; their Param(0) is Self and the first
	// bound is Self: Trait.
	Trait types.TraitID `msgpack:"trait,omitempty"`
}

// IsGeneric reports whether the definition has to be instantiated per use.
func (f *FnDef) IsGeneric() bool {
	return f.Generics > 0 || f.Intrinsic != "" || f.Trait != 0
}

// HasEnv reports whether the body expects an environment pointer.
func (f *FnDef) HasEnv() bool {
	return f.IsClosure
}

// TraitMethod is one method slot of a trait.
type TraitMethod struct {
	Name string `msgpack:"name"`
	// Default is the provided body, or NoDefID.
	Default DefID `msgpack:"default,omitempty"`
}

// TraitDef lists methods in vtable order.
type TraitDef struct {
	ID       types.TraitID `msgpack:"id"`
	Name     string        `msgpack:"name"`
	Generics int           `msgpack:"generics"` // parameters besides Self
	Methods  []TraitMethod `msgpack:"methods"`
}

// MethodIndex returns the vtable slot of a method.
func (t *TraitDef) MethodIndex(name string) (int, bool) {
	for i, m := range t.Methods {
		if m.Name == name {
			return i, true
		}
	}
	return -1, false
}

// ImplDef implements a trait for SelfTy. SelfTy and TraitArgs may mention
// the impl's own parameters.
type ImplDef struct {
	ID        ImplID           `msgpack:"id"`
	Trait     types.TraitID    `msgpack:"trait"`
	Generics  int              `msgpack:"generics"`
	SelfTy    types.TypeID     `msgpack:"self"`
	TraitArgs []types.TypeID   `msgpack:"trait_args,omitempty"`
	Methods   map[string]DefID `msgpack:"methods"`
}

// CapKind distinguishes how a capability is known.
type CapKind uint8

const (
	// CapImpl names a concrete impl and its type arguments.
	CapImpl CapKind = iota + 1
	// CapParam refers to the enclosing function's Bound-th capability.
	CapParam
	// CapDyn dispatches through the vtable of a trait object receiver.
	CapDyn
)

// Cap is a capability table: evidence that a type implements a trait.
type Cap struct {
	Kind  CapKind        `msgpack:"kind"`
	Impl  ImplID         `msgpack:"impl,omitempty"`
	Args  []types.TypeID `msgpack:"args,omitempty"`
	Bound int            `msgpack:"bound,omitempty"`
}
