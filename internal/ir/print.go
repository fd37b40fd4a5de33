package ir

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"trans/internal/emit"
)

// Print writes the module as LLVM-style text.
func (m *Module) Print(w io.Writer) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "; module %s\n\n", m.Name)
	for _, g := range m.Globals() {
		fmt.Fprintf(&buf, "@%s = constant %s [%s]\n", g.Name, g.Ty, joinValues(g.Init))
	}
	if len(m.Globals()) > 0 {
		buf.WriteByte('\n')
	}
	for _, d := range m.Decls() {
		fmt.Fprintf(&buf, "declare %s%s @%s(%s)\n", conv(d.Sig.Conv), d.Sig.Ret, d.Name, joinTypes(d.Sig.Params))
	}
	if len(m.Decls()) > 0 {
		buf.WriteByte('\n')
	}
	for _, f := range m.Funcs() {
		f.print(&buf)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write module %s: %w", m.Name, err)
	}
	return nil
}

// String renders one function, mainly for tests and debugging.
func (f *Func) String() string {
	var buf bytes.Buffer
	f.print(&buf)
	return buf.String()
}

func (f *Func) print(buf *bytes.Buffer) {
	params := make([]string, len(f.params))
	for i, p := range f.params {
		params[i] = p.String()
	}
	fmt.Fprintf(buf, "define %s%s @%s(%s) {\n", conv(f.Sig.Conv), f.Sig.Ret, f.Symbol, strings.Join(params, ", "))
	for i := range f.Blocks {
		b := emit.Block(i)
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(buf, "%s:\n", f.label(b))
		for _, idx := range f.Blocks[b].Instrs {
			in := &f.Instrs[idx]
			if in.Erased {
				continue
			}
			buf.WriteString("  ")
			f.printInstr(buf, in)
			buf.WriteByte('\n')
		}
	}
	buf.WriteString("}\n\n")
}

func (f *Func) printInstr(buf *bytes.Buffer, in *Instr) {
	if in.Result != "" {
		fmt.Fprintf(buf, "%s = ", in.Result)
	}
	switch in.Op {
	case OpAlloca:
		fmt.Fprintf(buf, "alloca %s", in.Alloc)
	case OpLoad:
		fmt.Fprintf(buf, "load %s, %s", in.Ty, in.Args[0])
	case OpStore:
		fmt.Fprintf(buf, "store %s, %s", in.Args[0], in.Args[1])
	case OpFieldAddr:
		fmt.Fprintf(buf, "getelementptr inbounds %s, %s, i32 0, i32 %d", in.Args[0].Ty.Elem(), in.Args[0], in.Index)
	case OpElemAddr:
		base := in.Args[0].Ty.Elem()
		if _, ok := base.ArrayElem(); ok {
			fmt.Fprintf(buf, "getelementptr inbounds %s, %s, i64 0, %s", base, in.Args[0], in.Args[1])
		} else {
			fmt.Fprintf(buf, "getelementptr inbounds %s, %s, %s", base, in.Args[0], in.Args[1])
		}
	case OpInsertValue:
		fmt.Fprintf(buf, "insertvalue %s, %s, %d", in.Args[0], in.Args[1], in.Index)
	case OpExtractValue:
		fmt.Fprintf(buf, "extractvalue %s, %d", in.Args[0], in.Index)
	case OpCompare:
		fmt.Fprintf(buf, "icmp %s %s, %s", emit.Predicate(in.Sub), in.Args[0], in.Args[1].Ref)
	case OpBinary:
		fmt.Fprintf(buf, "%s %s, %s", emit.BinOp(in.Sub), in.Args[0], in.Args[1].Ref)
	case OpCast:
		fmt.Fprintf(buf, "%s %s to %s", emit.CastOp(in.Sub), in.Args[0], in.Ty)
	case OpCall:
		fmt.Fprintf(buf, "call %s %s(%s)", in.Ty, in.Args[0].Ref, joinValues(in.Args[1:]))
	case OpInvoke:
		fmt.Fprintf(buf, "invoke %s %s(%s) to label %%%s unwind label %%%s",
			in.Ty, in.Args[0].Ref, joinValues(in.Args[1:]), f.label(in.Targets[0]), f.label(in.Targets[1]))
	case OpLandingPad:
		fmt.Fprintf(buf, "landingpad %s cleanup", in.Ty)
	case OpBr:
		fmt.Fprintf(buf, "br label %%%s", f.label(in.Targets[0]))
	case OpCondBr:
		fmt.Fprintf(buf, "br %s, label %%%s, label %%%s", in.Args[0], f.label(in.Targets[0]), f.label(in.Targets[1]))
	case OpSwitch:
		fmt.Fprintf(buf, "switch %s, label %%%s [", in.Args[0], f.label(in.Targets[0]))
		for i, c := range in.Cases {
			fmt.Fprintf(buf, " %s %d, label %%%s", in.Args[0].Ty, c, f.label(in.Targets[i+1]))
		}
		buf.WriteString(" ]")
	case OpResume:
		fmt.Fprintf(buf, "resume %s", in.Args[0])
	case OpRet:
		fmt.Fprintf(buf, "ret %s", in.Args[0])
	case OpRetVoid:
		buf.WriteString("ret void")
	case OpUnreachable:
		buf.WriteString("unreachable")
	default:
		fmt.Fprintf(buf, "; unknown op %d", in.Op)
	}
}

func conv(c emit.CallConv) string {
	if c == emit.ConvDefault {
		return ""
	}
	return string(c) + " "
}

func joinValues(vs []emit.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func joinTypes(ts []emit.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
