// Package tir is the typed input to lowering: function bodies after type
// checking, with every expression annotated by its type.
package tir

// DefID identifies a function definition. Zero is never a valid id.
type DefID uint32

// ImplID identifies an impl block.
type ImplID uint32

// LocalID identifies a local binding inside one function body.
type LocalID uint32

const (
	NoDefID  DefID  = 0
	NoImplID ImplID = 0
)
