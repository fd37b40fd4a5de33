package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders a type the way the surface language spells it. Symbol
// mangling and diagnostics both use it.
func (in *Interner) Format(id TypeID) string {
	var sb strings.Builder
	in.format(&sb, id)
	return sb.String()
}

func (in *Interner) format(sb *strings.Builder, id TypeID) {
	tt, ok := in.Lookup(id)
	if !ok {
		sb.WriteString("<invalid>")
		return
	}
	switch tt.Kind {
	case KindNever:
		sb.WriteString("!")
	case KindUnit:
		sb.WriteString("()")
	case KindBool:
		sb.WriteString("bool")
	case KindChar:
		sb.WriteString("char")
	case KindInt:
		sb.WriteString("i" + strconv.Itoa(int(tt.Width)))
	case KindUint:
		sb.WriteString("u" + strconv.Itoa(int(tt.Width)))
	case KindFloat:
		sb.WriteString("f" + strconv.Itoa(int(tt.Width)))
	case KindPointer:
		sb.WriteString(tt.Own.String())
		in.format(sb, tt.Elem)
	case KindArray:
		sb.WriteByte('[')
		in.format(sb, tt.Elem)
		fmt.Fprintf(sb, "; %d]", tt.Count)
	case KindString:
		fmt.Fprintf(sb, "str/%d", tt.Count)
	case KindParam:
		fmt.Fprintf(sb, "T%d", tt.Count)
	case KindDyn:
		if tt.Own != OwnShared {
			sb.WriteString(tt.Own.String())
		}
		fmt.Fprintf(sb, "dyn#%d", tt.Count)
	case KindTuple:
		elems, _ := in.TupleElems(id)
		sb.WriteByte('(')
		in.formatList(sb, elems)
		if len(elems) == 1 {
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
	case KindFn, KindClosure:
		info, _ := in.FnInfo(id)
		if tt.Kind == KindClosure {
			sb.WriteString("closure ")
		} else if info.CC == CCC {
			sb.WriteString("extern ")
		}
		sb.WriteString("fn(")
		for i, p := range info.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			if info.IsByRef(i) {
				sb.WriteString("ref ")
			}
			in.format(sb, p)
		}
		sb.WriteString(") -> ")
		in.format(sb, info.Result)
	case KindStruct, KindEnum:
		inst, _ := in.AdtOf(id)
		def, _ := in.AdtDef(inst.Adt)
		sb.WriteString(def.Name)
		if len(inst.Args) > 0 {
			sb.WriteByte('<')
			in.formatList(sb, inst.Args)
			sb.WriteByte('>')
		}
	default:
		sb.WriteString(tt.Kind.String())
	}
}

func (in *Interner) formatList(sb *strings.Builder, ids []TypeID) {
	for i, id := range ids {
		if i > 0 {
			sb.WriteString(", ")
		}
		in.format(sb, id)
	}
}
