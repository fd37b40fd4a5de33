package ir

import "trans/internal/emit"

// Op enumerates instruction opcodes.
type Op uint8

const (
	OpAlloca Op = iota + 1
	OpLoad
	OpStore
	OpFieldAddr
	OpElemAddr
	OpInsertValue
	OpExtractValue
	OpCompare
	OpBinary
	OpCast
	OpCall
	OpInvoke
	OpLandingPad
	OpBr
	OpCondBr
	OpSwitch
	OpResume
	OpRet
	OpRetVoid
	OpUnreachable
)

var opNames = map[Op]string{
	OpAlloca:       "alloca",
	OpLoad:         "load",
	OpStore:        "store",
	OpFieldAddr:    "fieldaddr",
	OpElemAddr:     "elemaddr",
	OpInsertValue:  "insertvalue",
	OpExtractValue: "extractvalue",
	OpCompare:      "icmp",
	OpBinary:       "binary",
	OpCast:         "cast",
	OpCall:         "call",
	OpInvoke:       "invoke",
	OpLandingPad:   "landingpad",
	OpBr:           "br",
	OpCondBr:       "condbr",
	OpSwitch:       "switch",
	OpResume:       "resume",
	OpRet:          "ret",
	OpRetVoid:      "retvoid",
	OpUnreachable:  "unreachable",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return "op?"
}

// IsTerminator reports opcodes that end a block.
func (op Op) IsTerminator() bool {
	switch op {
	case OpBr, OpCondBr, OpSwitch, OpInvoke, OpResume, OpRet, OpRetVoid, OpUnreachable:
		return true
	default:
		return false
	}
}

// Instr is one emitted instruction.
type Instr struct {
	Op      Op           `msgpack:"op"`
	Result  string       `msgpack:"res,omitempty"`
	Ty      emit.Type    `msgpack:"ty,omitempty"` // result type
	Alloc   emit.Type    `msgpack:"alloc,omitempty"`
	Args    []emit.Value `msgpack:"args,omitempty"`
	Index   int          `msgpack:"idx,omitempty"`
	Sub     uint8        `msgpack:"sub,omitempty"` // predicate, binop or cast op
	Targets []emit.Block `msgpack:"targets,omitempty"`
	Cases   []int64      `msgpack:"cases,omitempty"`
	Block   emit.Block   `msgpack:"block"`
	Erased  bool         `msgpack:"erased,omitempty"`
}

// Value returns the instruction result as an operand.
func (in *Instr) Value() emit.Value {
	return emit.Value{Ref: in.Result, Ty: in.Ty}
}

func (in *Instr) uses(ref string) bool {
	for _, a := range in.Args {
		if a.Ref == ref {
			return true
		}
	}
	return false
}

// Block is a named list of instruction indices.
type Block struct {
	Name   string `msgpack:"name"`
	Instrs []int  `msgpack:"instrs"`
}
