// Package ir is the in-memory implementation of the emit interfaces. It
// prints LLVM-flavoured text and round-trips through msgpack.
package ir

import (
	"fmt"
	"sort"
	"sync"

	"trans/internal/emit"
)

// Decl is an external function declaration.
type Decl struct {
	Name string         `msgpack:"name"`
	Sig  emit.Signature `msgpack:"sig"`
}

// Global is a constant global, used for vtables.
type Global struct {
	Name string       `msgpack:"name"`
	Ty   emit.Type    `msgpack:"ty"`
	Init []emit.Value `msgpack:"init"`
}

// Module owns every symbol produced by one lowering run. Declarations,
// definitions and globals may be added from many goroutines.
type Module struct {
	Name string

	mu      sync.Mutex
	decls   map[string]*Decl
	funcs   map[string]*Func
	globals map[string]*Global
}

var _ emit.Module = (*Module)(nil)

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{
		Name:    name,
		decls:   make(map[string]*Decl),
		funcs:   make(map[string]*Func),
		globals: make(map[string]*Global),
	}
}

func symbol(name string, sig emit.Signature) emit.Value {
	return emit.Value{Ref: "@" + name, Ty: emit.FuncPtr(sig)}
}

// DeclareFunction returns the symbol for name, declaring it on first use. A
// later declaration with a different signature keeps the first one.
func (m *Module) DeclareFunction(name string, sig emit.Signature) emit.Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.funcs[name]; ok {
		return symbol(name, f.Sig)
	}
	if d, ok := m.decls[name]; ok {
		return symbol(name, d.Sig)
	}
	m.decls[name] = &Decl{Name: name, Sig: sig}
	return symbol(name, sig)
}

// DefineFunction opens a new body.
func (m *Module) DefineFunction(name string, sig emit.Signature) (emit.Function, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.funcs[name]; ok {
		return nil, fmt.Errorf("function %s already defined", name)
	}
	f := newFunc(name, sig)
	m.funcs[name] = f
	return f, nil
}

// DefineGlobal defines a constant global once.
func (m *Module) DefineGlobal(name string, ty emit.Type, init []emit.Value) emit.Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.globals[name]; ok {
		return emit.Value{Ref: "@" + name, Ty: g.Ty.Ptr()}
	}
	m.globals[name] = &Global{Name: name, Ty: ty, Init: append([]emit.Value(nil), init...)}
	return emit.Value{Ref: "@" + name, Ty: ty.Ptr()}
}

// Func returns a defined function.
func (m *Module) Func(name string) (*Func, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.funcs[name]
	return f, ok
}

// Global returns a defined global.
func (m *Module) Global(name string) (*Global, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.globals[name]
	return g, ok
}

// Funcs returns the defined functions sorted by name.
func (m *Module) Funcs() []*Func {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Func, 0, len(m.funcs))
	for _, f := range m.funcs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Decls returns declarations without a definition, sorted by name.
func (m *Module) Decls() []Decl {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Decl, 0, len(m.decls))
	for name, d := range m.decls {
		if _, defined := m.funcs[name]; defined {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Globals returns the globals sorted by name.
func (m *Module) Globals() []Global {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Global, 0, len(m.globals))
	for _, g := range m.globals {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
