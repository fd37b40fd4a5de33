package ir

import (
	"errors"
	"fmt"
	"strings"

	"trans/internal/emit"
)

// Func is an in-memory function body. It implements emit.Function and
// emit.Inspector.
type Func struct {
	Symbol string         `msgpack:"name"`
	Sig    emit.Signature `msgpack:"sig"`
	Blocks []Block        `msgpack:"blocks"`
	Instrs []Instr        `msgpack:"instrs"`

	params   []emit.Value
	cur      emit.Block
	nextTmp  int
	allocas  int
	finished bool
	errs     []error
}

var (
	_ emit.Function  = (*Func)(nil)
	_ emit.Inspector = (*Func)(nil)
)

func newFunc(name string, sig emit.Signature) *Func {
	f := &Func{Symbol: name, Sig: sig}
	f.params = make([]emit.Value, len(sig.Params))
	for i, ty := range sig.Params {
		f.params[i] = emit.Value{Ref: fmt.Sprintf("%%p%d", i), Ty: ty}
	}
	f.Blocks = append(f.Blocks, Block{Name: "entry"})
	return f
}

// Name returns the symbol name.
func (f *Func) Name() string { return f.Symbol }

// Params returns the incoming parameter values.
func (f *Func) Params() []emit.Value { return f.params }

// Finish seals the body. Blocks that were opened but never reached are
// closed with unreachable; any other block without a terminator is an error.
func (f *Func) Finish() error {
	if f.finished {
		return fmt.Errorf("%s: already finished", f.Symbol)
	}
	preds := f.predecessors()
	for i := range f.Blocks {
		b := emit.Block(i)
		if f.blockTerminated(b) {
			continue
		}
		if i != 0 && len(preds[b]) == 0 {
			f.cur = b
			f.Unreachable()
			continue
		}
		f.errs = append(f.errs, fmt.Errorf("block %s has no terminator", f.label(b)))
	}
	f.finished = true
	if len(f.errs) > 0 {
		return fmt.Errorf("%s: %w", f.Symbol, errors.Join(f.errs...))
	}
	return nil
}

// Block helpers --------------------------------------------------------------

func (f *Func) NewBlock(name string) emit.Block {
	if name == "" {
		name = "bb"
	}
	f.Blocks = append(f.Blocks, Block{Name: name})
	return emit.Block(len(f.Blocks) - 1)
}

func (f *Func) SetInsertPoint(b emit.Block) {
	if int(b) < 0 || int(b) >= len(f.Blocks) {
		f.errs = append(f.errs, fmt.Errorf("insert point %d out of range", b))
		return
	}
	f.cur = b
}

func (f *Func) InsertPoint() emit.Block { return f.cur }

func (f *Func) Terminated() bool { return f.blockTerminated(f.cur) }

func (f *Func) blockTerminated(b emit.Block) bool {
	last := f.lastLive(b)
	return last >= 0 && f.Instrs[last].Op.IsTerminator()
}

func (f *Func) lastLive(b emit.Block) int {
	idxs := f.Blocks[b].Instrs
	for i := len(idxs) - 1; i >= 0; i-- {
		if !f.Instrs[idxs[i]].Erased {
			return idxs[i]
		}
	}
	return -1
}

func (f *Func) label(b emit.Block) string {
	if b == 0 {
		return "entry"
	}
	return fmt.Sprintf("%s%d", f.Blocks[b].Name, b)
}

func (f *Func) tmp() string {
	f.nextTmp++
	return fmt.Sprintf("%%t%d", f.nextTmp)
}

func (f *Func) push(in Instr) int {
	if f.finished {
		f.errs = append(f.errs, fmt.Errorf("%s emitted after finish", in.Op))
	} else if f.Terminated() {
		f.errs = append(f.errs, fmt.Errorf("%s emitted after terminator in block %s", in.Op, f.label(f.cur)))
	}
	in.Block = f.cur
	f.Instrs = append(f.Instrs, in)
	idx := len(f.Instrs) - 1
	f.Blocks[f.cur].Instrs = append(f.Blocks[f.cur].Instrs, idx)
	return idx
}

func (f *Func) value(in Instr) emit.Value {
	in.Result = f.tmp()
	idx := f.push(in)
	return f.Instrs[idx].Value()
}

// Memory ---------------------------------------------------------------------

func (f *Func) Alloca(ty emit.Type, name string) emit.Value {
	if name == "" {
		name = "slot"
	}
	f.nextTmp++
	in := Instr{
		Op:     OpAlloca,
		Result: fmt.Sprintf("%%%s.%d", sanitize(name), f.nextTmp),
		Ty:     ty.Ptr(),
		Alloc:  ty,
		Block:  0,
	}
	f.Instrs = append(f.Instrs, in)
	idx := len(f.Instrs) - 1
	entry := &f.Blocks[0]
	entry.Instrs = append(entry.Instrs, 0)
	copy(entry.Instrs[f.allocas+1:], entry.Instrs[f.allocas:])
	entry.Instrs[f.allocas] = idx
	f.allocas++
	return in.Value()
}

func (f *Func) Load(ptr emit.Value) emit.Value {
	return f.value(Instr{Op: OpLoad, Ty: ptr.Ty.Elem(), Args: []emit.Value{ptr}})
}

func (f *Func) Store(val, ptr emit.Value) {
	f.push(Instr{Op: OpStore, Args: []emit.Value{val, ptr}})
}

func (f *Func) FieldAddr(ptr emit.Value, index int) emit.Value {
	fields := ptr.Ty.Elem().Fields()
	var ty emit.Type
	if index >= 0 && index < len(fields) {
		ty = fields[index].Ptr()
	} else {
		f.errs = append(f.errs, fmt.Errorf("field %d out of range for %s", index, ptr.Ty))
		ty = emit.Opaque
	}
	return f.value(Instr{Op: OpFieldAddr, Ty: ty, Args: []emit.Value{ptr}, Index: index})
}

func (f *Func) ElemAddr(ptr emit.Value, index emit.Value) emit.Value {
	elem := ptr.Ty.Elem()
	if inner, ok := elem.ArrayElem(); ok {
		elem = inner
	}
	return f.value(Instr{Op: OpElemAddr, Ty: elem.Ptr(), Args: []emit.Value{ptr, index}})
}

// Aggregates -----------------------------------------------------------------

func (f *Func) InsertValue(agg, elem emit.Value, index int) emit.Value {
	return f.value(Instr{Op: OpInsertValue, Ty: agg.Ty, Args: []emit.Value{agg, elem}, Index: index})
}

func (f *Func) ExtractValue(agg emit.Value, index int) emit.Value {
	fields := agg.Ty.Fields()
	var ty emit.Type
	if index >= 0 && index < len(fields) {
		ty = fields[index]
	} else {
		f.errs = append(f.errs, fmt.Errorf("extract %d out of range for %s", index, agg.Ty))
	}
	return f.value(Instr{Op: OpExtractValue, Ty: ty, Args: []emit.Value{agg}, Index: index})
}

// Arithmetic -----------------------------------------------------------------

func (f *Func) Compare(pred emit.Predicate, a, b emit.Value) emit.Value {
	return f.value(Instr{Op: OpCompare, Ty: emit.I1, Args: []emit.Value{a, b}, Sub: uint8(pred)})
}

func (f *Func) Binary(op emit.BinOp, a, b emit.Value) emit.Value {
	return f.value(Instr{Op: OpBinary, Ty: a.Ty, Args: []emit.Value{a, b}, Sub: uint8(op)})
}

func (f *Func) Cast(op emit.CastOp, v emit.Value, to emit.Type) emit.Value {
	return f.value(Instr{Op: OpCast, Ty: to, Args: []emit.Value{v}, Sub: uint8(op)})
}

// Calls ----------------------------------------------------------------------

func (f *Func) Call(fn emit.Value, args []emit.Value, ret emit.Type) emit.Value {
	in := Instr{Op: OpCall, Ty: ret, Args: append([]emit.Value{fn}, args...)}
	if ret == emit.Void {
		f.push(in)
		return emit.Value{Ty: emit.Void}
	}
	return f.value(in)
}

func (f *Func) Invoke(fn emit.Value, args []emit.Value, ret emit.Type, normal, unwind emit.Block) emit.Value {
	in := Instr{
		Op:      OpInvoke,
		Ty:      ret,
		Args:    append([]emit.Value{fn}, args...),
		Targets: []emit.Block{normal, unwind},
	}
	if ret == emit.Void {
		f.push(in)
		return emit.Value{Ty: emit.Void}
	}
	return f.value(in)
}

// LandingPadType is the exception record produced by LandingPad.
const LandingPadType emit.Type = "{ i8*, i32 }"

func (f *Func) LandingPad() emit.Value {
	return f.value(Instr{Op: OpLandingPad, Ty: LandingPadType})
}

// Terminators ----------------------------------------------------------------

func (f *Func) Br(target emit.Block) {
	f.push(Instr{Op: OpBr, Targets: []emit.Block{target}})
}

func (f *Func) CondBr(cond emit.Value, then, els emit.Block) {
	f.push(Instr{Op: OpCondBr, Args: []emit.Value{cond}, Targets: []emit.Block{then, els}})
}

func (f *Func) Switch(v emit.Value, def emit.Block, cases []emit.SwitchCase) {
	in := Instr{Op: OpSwitch, Args: []emit.Value{v}, Targets: []emit.Block{def}}
	for _, c := range cases {
		in.Targets = append(in.Targets, c.Dest)
		in.Cases = append(in.Cases, c.Value)
	}
	f.push(in)
}

func (f *Func) Resume(v emit.Value) {
	f.push(Instr{Op: OpResume, Args: []emit.Value{v}})
}

func (f *Func) Ret(v emit.Value) {
	f.push(Instr{Op: OpRet, Args: []emit.Value{v}})
}

func (f *Func) RetVoid() {
	f.push(Instr{Op: OpRetVoid})
}

func (f *Func) Unreachable() {
	f.push(Instr{Op: OpUnreachable})
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
