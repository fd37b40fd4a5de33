package ir

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// moduleImage is the serialised shape of a Module.
type moduleImage struct {
	Name    string   `msgpack:"name"`
	Decls   []Decl   `msgpack:"decls"`
	Globals []Global `msgpack:"globals"`
	Funcs   []*Func  `msgpack:"funcs"`
}

// Encode writes the module as msgpack.
func (m *Module) Encode(w io.Writer) error {
	img := moduleImage{
		Name:    m.Name,
		Decls:   m.Decls(),
		Globals: m.Globals(),
		Funcs:   m.Funcs(),
	}
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&img); err != nil {
		return fmt.Errorf("encode module %s: %w", m.Name, err)
	}
	return nil
}

// Decode reads a module written by Encode. Decoded functions are finished
// and cannot be extended.
func Decode(r io.Reader) (*Module, error) {
	var img moduleImage
	if err := msgpack.NewDecoder(r).Decode(&img); err != nil {
		return nil, fmt.Errorf("decode module: %w", err)
	}
	m := NewModule(img.Name)
	for i := range img.Decls {
		d := img.Decls[i]
		m.decls[d.Name] = &d
	}
	for i := range img.Globals {
		g := img.Globals[i]
		m.globals[g.Name] = &g
	}
	for _, f := range img.Funcs {
		f.restore()
		m.funcs[f.Symbol] = f
	}
	return m, nil
}

func (f *Func) restore() {
	g := newFunc(f.Symbol, f.Sig)
	f.params = g.params
	f.finished = true
	for _, idx := range f.Blocks[0].Instrs {
		if f.Instrs[idx].Op == OpAlloca && !f.Instrs[idx].Erased {
			f.allocas++
		}
	}
}
