package mono

import (
	"strconv"
	"strings"

	"trans/internal/tir"
	"trans/internal/types"
)

// InstantiationKind identifies the kind of entity being instantiated.
type InstantiationKind uint8

const (
	// InstFn represents a function instantiation.
	InstFn InstantiationKind = iota
	// InstDropGlue is the drop glue of one type.
	InstDropGlue
	// InstHashGlue is the hash glue of one type.
	InstHashGlue
	// InstVtable is the vtable of one (impl, type args) pair.
	InstVtable
	// InstEnvGlue frees a closure environment of one capture tuple type.
	InstEnvGlue
)

func (k InstantiationKind) String() string {
	switch k {
	case InstFn:
		return "fn"
	case InstDropGlue:
		return "drop"
	case InstHashGlue:
		return "hash"
	case InstVtable:
		return "vtable"
	case InstEnvGlue:
		return "env"
	default:
		return "inst?"
	}
}

// Key is a comparable key for instantiations.
//
// Go maps cannot use slices as keys, so type arguments and capability
// tables are folded into stable strings.
type Key struct {
	Kind    InstantiationKind
	Def     uint32
	ArgsKey string
	CapsKey string
}

// NewKey builds the key of a function instance. The type arguments and
// capabilities must already be concrete.
func NewKey(def tir.DefID, typeArgs []types.TypeID, caps []tir.Cap) Key {
	return Key{Kind: InstFn, Def: uint32(def), ArgsKey: typeArgsKey(typeArgs), CapsKey: capsKey(caps)}
}

// GlueKey builds the key of a per-type glue function.
func GlueKey(kind InstantiationKind, ty types.TypeID) Key {
	return Key{Kind: kind, ArgsKey: typeArgsKey([]types.TypeID{ty})}
}

// VtableKey builds the key of the vtable for impl at the given arguments.
func VtableKey(impl tir.ImplID, args []types.TypeID) Key {
	return Key{Kind: InstVtable, Def: uint32(impl), ArgsKey: typeArgsKey(args)}
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Kind.String())
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(uint64(k.Def), 10))
	b.WriteByte('<')
	b.WriteString(k.ArgsKey)
	b.WriteByte('>')
	if k.CapsKey != "" {
		b.WriteByte('[')
		b.WriteString(k.CapsKey)
		b.WriteByte(']')
	}
	return b.String()
}

func typeArgsKey(args []types.TypeID) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteByte('#')
		}
		b.WriteString(strconv.FormatUint(uint64(arg), 10))
	}
	return b.String()
}

func capsKey(caps []tir.Cap) string {
	if len(caps) == 0 {
		return ""
	}
	var b strings.Builder
	for i, c := range caps {
		if i > 0 {
			b.WriteByte(';')
		}
		switch c.Kind {
		case tir.CapImpl:
			b.WriteString("impl")
			b.WriteString(strconv.FormatUint(uint64(c.Impl), 10))
			b.WriteByte('<')
			b.WriteString(typeArgsKey(c.Args))
			b.WriteByte('>')
		case tir.CapDyn:
			b.WriteString("dyn")
		default:
			// a parameter capability leaking into a key is a lowering bug;
			// keep it distinct so it never aliases a concrete instance
			b.WriteString("param")
			b.WriteString(strconv.Itoa(c.Bound))
		}
	}
	return b.String()
}
