package tir

import (
	"trans/internal/source"
	"trans/internal/types"
)

// ExprKind enumerates expression forms.
type ExprKind uint8

const (
	ExprLit     ExprKind = iota + 1 // Lit
	ExprUnit                        // ()
	ExprLocal                       // Local
	ExprUpvar                       // Index into the closure environment
	ExprCall                        // Callee(Args)
	ExprField                       // Elems[0].Index
	ExprTuple                       // (Elems...)
	ExprStruct                      // S { Elems... } in declaration order
	ExprEnum                        // variant Index with fields Elems
	ExprBinary                      // Elems[0] Op Elems[1]
	ExprIf                          // if Elems[0] { Elems[1] } else { Elems[2] }
	ExprBlock                       // { Stmts; Elems[0] }
	ExprReturn                      // return Elems[0]
	ExprFail                        // diverges through the runtime
	ExprAddrOf                      // &Elems[0]
	ExprDeref                       // *Elems[0]
	ExprBox                         // ~Elems[0]
	ExprClosure                     // closure Def capturing Elems
	ExprToDyn                       // Elems[0] (a pointer) coerced to a trait object via Cap
	ExprAssign                      // Elems[0] = Elems[1]
)

var exprNames = map[ExprKind]string{
	ExprLit: "literal", ExprUnit: "unit", ExprLocal: "local", ExprUpvar: "upvar",
	ExprCall: "call", ExprField: "field", ExprTuple: "tuple", ExprStruct: "struct",
	ExprEnum: "enum", ExprBinary: "binary", ExprIf: "if", ExprBlock: "block",
	ExprReturn: "return", ExprFail: "fail", ExprAddrOf: "addr-of", ExprDeref: "deref",
	ExprBox: "box", ExprClosure: "closure", ExprToDyn: "to-dyn", ExprAssign: "assign",
}

func (k ExprKind) String() string {
	if s, ok := exprNames[k]; ok {
		return s
	}
	return "expr?"
}

// BinOp enumerates binary operators.
type BinOp uint8

const (
	OpAdd BinOp = iota + 1
	OpSub
	OpMul
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

// PassMode selects how an argument reaches the callee.
type PassMode uint8

const (
	ByValue PassMode = iota
	ByReference
)

// Arg is one call argument.
type Arg struct {
	Expr *Expr    `msgpack:"expr"`
	Mode PassMode `msgpack:"mode,omitempty"`
}

// CalleeKind enumerates call targets.
type CalleeKind uint8

const (
	// CalleeFn calls a named function, possibly generic.
	CalleeFn CalleeKind = iota + 1
	// CalleeMethod calls a trait method through a capability. The receiver
	// is the first argument.
	CalleeMethod
	// CalleeValue calls a closure value.
	CalleeValue
)

// Callee is the symbolic target of a call.
type Callee struct {
	Kind     CalleeKind     `msgpack:"kind"`
	Def      DefID          `msgpack:"def,omitempty"`
	TypeArgs []types.TypeID `msgpack:"type_args,omitempty"`
	Caps     []Cap          `msgpack:"caps,omitempty"`
	Trait    types.TraitID  `msgpack:"trait,omitempty"`
	Method   string         `msgpack:"method,omitempty"`
	Self     *Cap           `msgpack:"self,omitempty"`
	Value    *Expr          `msgpack:"value,omitempty"`
}

// Expr is a typed expression node.
type Expr struct {
	Kind   ExprKind     `msgpack:"kind"`
	Ty     types.TypeID `msgpack:"ty"`
	Span   source.Span  `msgpack:"span"`
	Lit    int64        `msgpack:"lit,omitempty"`
	Local  LocalID      `msgpack:"local,omitempty"`
	Index  int          `msgpack:"index,omitempty"`
	Op     BinOp        `msgpack:"op,omitempty"`
	Elems  []*Expr      `msgpack:"elems,omitempty"`
	Stmts  []*Stmt      `msgpack:"stmts,omitempty"`
	Callee *Callee      `msgpack:"callee,omitempty"`
	Args   []Arg        `msgpack:"args,omitempty"`
	Cap    *Cap         `msgpack:"cap,omitempty"`
	// closure creation
	Def      DefID          `msgpack:"def,omitempty"`
	TypeArgs []types.TypeID `msgpack:"type_args,omitempty"`
	Caps     []Cap          `msgpack:"caps,omitempty"`
}

// StmtKind enumerates statement forms.
type StmtKind uint8

const (
	StmtLet StmtKind = iota + 1
	StmtExpr
)

// Stmt is a block statement.
type Stmt struct {
	Kind StmtKind    `msgpack:"kind"`
	Pat  *Pattern    `msgpack:"pat,omitempty"`
	Init *Expr       `msgpack:"init,omitempty"`
	Expr *Expr       `msgpack:"expr,omitempty"`
	Span source.Span `msgpack:"span"`
}

// PatKind enumerates irrefutable pattern forms.
type PatKind uint8

const (
	PatBind PatKind = iota + 1
	PatTuple
	PatStruct
	PatWild
)

// Pattern destructures a value in let statements and parameters.
type Pattern struct {
	Kind  PatKind      `msgpack:"kind"`
	Ty    types.TypeID `msgpack:"ty"`
	Local LocalID      `msgpack:"local,omitempty"`
	Name  string       `msgpack:"name,omitempty"`
	Elems []*Pattern   `msgpack:"elems,omitempty"`
	Span  source.Span  `msgpack:"span"`
}
