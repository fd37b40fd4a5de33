package lower

import (
	"sync"

	"trans/internal/emit"
	"trans/internal/layout"
	"trans/internal/mono"
	"trans/internal/source"
	"trans/internal/tir"
	"trans/internal/trace"
	"trans/internal/types"
)

// Runtime entry points every module may call.
const (
	rtMalloc = "rt_malloc"
	rtFree   = "rt_free"
	rtFail   = "rt_fail"
)

// Context is the state shared by every function lowered into one module.
// It is safe for concurrent use by one goroutine per function.
type Context struct {
	Crate  *tir.Crate
	Types  *types.Interner
	Layout *layout.LayoutEngine
	Module emit.Module
	// Mono caches function instances, Glue caches per-type glue and vtables.
	Mono *mono.Cache
	Glue *mono.Cache
	// Tracer receives one point event per created instance. Nil disables it.
	Tracer trace.Tracer

	mu      sync.Mutex
	pending []*mono.Instance
	reprs   sync.Map // types.TypeID -> emit.Type
}

// NewContext prepares lowering of crate into mod for target.
func NewContext(crate *tir.Crate, target layout.Target, mod emit.Module) *Context {
	return &Context{
		Crate:  crate,
		Types:  crate.Types,
		Layout: layout.New(target, crate.Types),
		Module: mod,
		Mono:   mono.NewCache(),
		Glue:   mono.NewCache(),
	}
}

// TakePending removes and returns the instances whose bodies still have
// to be lowered, in creation order.
func (cx *Context) TakePending() []*mono.Instance {
	cx.mu.Lock()
	defer cx.mu.Unlock()
	out := cx.pending
	cx.pending = nil
	return out
}

func (cx *Context) enqueue(inst *mono.Instance) {
	cx.mu.Lock()
	cx.pending = append(cx.pending, inst)
	cx.mu.Unlock()
	if cx.Tracer != nil {
		trace.Point(cx.Tracer, trace.ScopeNode, "instance "+inst.Symbol, 0, inst.Key.String())
	}
}

func (cx *Context) runtime(name string) emit.Value {
	switch name {
	case rtMalloc:
		return cx.Module.DeclareFunction(name, emit.Signature{Ret: emit.Opaque, Params: []emit.Type{emit.I64}, Conv: emit.ConvC})
	case rtFree:
		return cx.Module.DeclareFunction(name, emit.Signature{Ret: emit.Void, Params: []emit.Type{emit.Opaque}, Conv: emit.ConvC})
	default:
		return cx.Module.DeclareFunction(name, emit.Signature{Ret: emit.Void, Conv: emit.ConvC})
	}
}

// fnSymbol names a non-generic definition. Local names are unique per
// crate, external ones are shared with the defining crate.
func fnSymbol(def *tir.FnDef) string {
	return def.Name
}

// declareFn declares a non-generic function and returns its symbol.
func (cx *Context) declareFn(def *tir.FnDef) (emit.Value, *fnABI, error) {
	abi, err := cx.abiOf(def.Sig, def.HasEnv(), def.Span)
	if err != nil {
		return emit.Value{}, nil, err
	}
	return cx.Module.DeclareFunction(fnSymbol(def), abi.sig), abi, nil
}

// instantiate returns the instance of def at concrete type arguments and
// capabilities, declaring and queueing it on first request.
func (cx *Context) instantiate(def *tir.FnDef, typeArgs []types.TypeID, caps []tir.Cap, site mono.UseSite) (*mono.Instance, error) {
	key := mono.NewKey(def.ID, typeArgs, caps)
	inst, err := cx.Mono.Resolve(key, func() (*mono.Instance, error) {
		if def.Body == nil && def.Intrinsic == "" {
			return nil, fatalf(ErrMissingDefinition, site.Span, "generic function `%s` has no body to instantiate", def.Name)
		}
		if len(typeArgs) < def.Generics {
			return nil, fatalf(ErrUnresolvedGeneric, site.Span, "`%s` expects %d type arguments, got %d", def.Name, def.Generics, len(typeArgs))
		}
		fnTy := cx.Types.Apply(types.Subst{Types: typeArgs}, def.Sig)
		abi, err := cx.abiOf(fnTy, def.HasEnv(), site.Span)
		if err != nil {
			return nil, err
		}
		sym := mono.Mangle(def.Name, key)
		inst := &mono.Instance{
			Key:      key,
			Symbol:   sym,
			Def:      def,
			TypeArgs: append([]types.TypeID(nil), typeArgs...),
			Caps:     append([]tir.Cap(nil), caps...),
			Ty:       fnTy,
			Fn:       cx.Module.DeclareFunction(sym, abi.sig),
			Sig:      abi.sig,
		}
		cx.enqueue(inst)
		return inst, nil
	})
	if err != nil {
		return nil, err
	}
	cx.Mono.Record(key, site)
	return inst, nil
}

func (cx *Context) fnDef(id tir.DefID, sp source.Span) (*tir.FnDef, error) {
	def, ok := cx.Crate.Fn(id)
	if !ok || def == nil {
		return nil, fatalf(ErrMissingDefinition, sp, "function #%d is not defined in crate `%s`", id, cx.Crate.Name)
	}
	if _, ok := cx.Types.FnInfo(def.Sig); !ok {
		return nil, fatalf(ErrMissingDefinition, sp, "function `%s` has corrupt metadata: signature is not a function type", def.Name)
	}
	return def, nil
}
