package lower

import (
	"trans/internal/emit"
	"trans/internal/source"
	"trans/internal/tir"
	"trans/internal/types"
)

// Frame holds the per-function state of a body under construction.
type Frame struct {
	fn  emit.Function
	cx  *Context
	abi *fnABI
	// Params are the declared parameters in order; indirect ones are
	// pointers to caller-owned copies.
	Params []emit.Value

	locals   map[tir.LocalID]emit.Value
	retTy    types.TypeID
	retRepr  emit.Type
	retSlot  emit.Value
	env      emit.Value
	retBlock emit.Block
	scopes   []*cleanupScope
}

// BeginFrame lays out the parameters of fn for a function of type sig.
// When the result does not fit in registers the first parameter is the
// caller's return slot; an environment pointer follows when hasEnv is set.
func (cx *Context) BeginFrame(fn emit.Function, sig types.TypeID, hasEnv bool) (*Frame, error) {
	if cx.Types.HasParams(sig) {
		return nil, fatalf(ErrUnresolvedGeneric, source.NoSpan, "%s: signature `%s` is not fully instantiated", fn.Name(), cx.Types.Format(sig))
	}
	abi, err := cx.abiOf(sig, hasEnv, source.NoSpan)
	if err != nil {
		return nil, err
	}
	retRepr, err := cx.repr(abi.ret, source.NoSpan)
	if err != nil {
		return nil, err
	}
	params := fn.Params()
	if len(params) != len(abi.sig.Params) {
		return nil, fatalf(errInvalidState, source.NoSpan, "%s: body has %d parameters, signature wants %d", fn.Name(), len(params), len(abi.sig.Params))
	}
	f := &Frame{
		fn:       fn,
		cx:       cx,
		abi:      abi,
		locals:   make(map[tir.LocalID]emit.Value),
		retTy:    abi.ret,
		retRepr:  retRepr,
		retBlock: emit.NoBlock,
	}
	i := 0
	if abi.retIndirect {
		f.retSlot = params[0]
		i++
	}
	if hasEnv {
		f.env = params[i]
		i++
	}
	f.Params = params[i:]
	return f, nil
}

// ReturnSlot returns where the result is written. The slot of an
// immediate result is allocated on first use; void results have none.
func (f *Frame) ReturnSlot() emit.Value {
	if f.retSlot.IsValid() || f.cx.isVoid(f.retTy) {
		return f.retSlot
	}
	f.retSlot = f.fn.Alloca(f.retRepr, "ret")
	return f.retSlot
}

// ReturnBlock returns the single block every exit path ends in.
func (f *Frame) ReturnBlock() emit.Block {
	if f.retBlock == emit.NoBlock {
		f.retBlock = f.fn.NewBlock("return")
	}
	return f.retBlock
}

// Env returns the environment pointer of a closure body.
func (f *Frame) Env() emit.Value { return f.env }

// Local returns the slot bound to id.
func (f *Frame) Local(id tir.LocalID) (emit.Value, bool) {
	v, ok := f.locals[id]
	return v, ok
}

func (f *Frame) bind(id tir.LocalID, slot emit.Value) {
	f.locals[id] = slot
}

// ActiveCleanups counts scheduled cleanups that were not revoked.
func (f *Frame) ActiveCleanups() int {
	n := 0
	for _, sc := range f.scopes {
		n += sc.live(cleanNormal)
	}
	return n
}

// Depth returns the number of open cleanup scopes.
func (f *Frame) Depth() int { return len(f.scopes) }
