package ast

import (
	"github.com/kray10/project6/compiler/diag"
	"github.com/kray10/project6/compiler/symtab"
	"github.com/kray10/project6/compiler/tp"
)

type (
	Pos = diag.Pos

	// Node families are sealed: only this package defines variants.
	Node interface {
		Position() Pos
	}

	Decl interface {
		Node
		decl()
	}

	Stmt interface {
		Node
		stmt()
	}

	Expr interface {
		Node
		expr()
	}

	Base struct {
		Pos Pos
	}

	Program struct {
		Base `tlog:",embed"`

		Decls []Decl
	}

	// Type is a type as written in a declaration.
	Type struct {
		Base `tlog:",embed"`

		Name   string
		Struct bool
	}

	VarDecl struct {
		Base `tlog:",embed"`

		Type Type
		Name *Ident
	}

	Formal struct {
		Base `tlog:",embed"`

		Type Type
		Name *Ident
	}

	FnDecl struct {
		Base `tlog:",embed"`

		Ret    Type
		Name   *Ident
		Params []*Formal
		Body   *Block
	}

	StructDecl struct {
		Base `tlog:",embed"`

		Name   *Ident
		Fields []*VarDecl
	}

	// Block is a function body or an if/else/while body.
	Block struct {
		Base `tlog:",embed"`

		Decls []*VarDecl
		Stmts []Stmt
	}

	AssignStmt struct {
		Base `tlog:",embed"`

		Assign *Assign
	}

	IncDec struct {
		Base `tlog:",embed"`

		X   Expr
		Dec bool
	}

	Read struct {
		Base `tlog:",embed"`

		X Expr
	}

	Write struct {
		Base `tlog:",embed"`

		X Expr

		// Type is the static type of X, set by type analysis.
		Type tp.Type
	}

	If struct {
		Base `tlog:",embed"`

		Cond Expr
		Body *Block
	}

	IfElse struct {
		Base `tlog:",embed"`

		Cond Expr
		Then *Block
		Else *Block
	}

	While struct {
		Base `tlog:",embed"`

		Cond Expr
		Body *Block
	}

	CallStmt struct {
		Base `tlog:",embed"`

		Call *Call
	}

	Return struct {
		Base `tlog:",embed"`

		X Expr // nil for a bare return
	}

	IntLit struct {
		Base `tlog:",embed"`

		Value int32
	}

	// StrLit keeps the literal as written, quotes and escapes included.
	StrLit struct {
		Base `tlog:",embed"`

		Raw string
	}

	BoolLit struct {
		Base `tlog:",embed"`

		Value bool
	}

	Ident struct {
		Base `tlog:",embed"`

		Name string

		sym symtab.Symbol
	}

	DotAccess struct {
		Base `tlog:",embed"`

		X     Expr
		Field *Ident
	}

	Assign struct {
		Base `tlog:",embed"`

		LHS Expr
		RHS Expr
	}

	Call struct {
		Base `tlog:",embed"`

		Fn   *Ident
		Args []Expr
	}

	Unary struct {
		Base `tlog:",embed"`

		Op Op
		X  Expr
	}

	Binary struct {
		Base `tlog:",embed"`

		Op Op
		L  Expr
		R  Expr
	}

	Op int
)

const (
	_ Op = iota

	Plus
	Minus
	Times
	Divide

	And
	Or

	Eq
	Ne
	Lt
	Gt
	Le
	Ge

	Neg
	Not
)

var opText = []string{
	Plus:   "+",
	Minus:  "-",
	Times:  "*",
	Divide: "/",
	And:    "&&",
	Or:     "||",
	Eq:     "==",
	Ne:     "!=",
	Lt:     "<",
	Gt:     ">",
	Le:     "<=",
	Ge:     ">=",
	Neg:    "-",
	Not:    "!",
}

func (op Op) String() string {
	if op <= 0 || int(op) >= len(opText) {
		return "?"
	}

	return opText[op]
}

func (op Op) Arithmetic() bool { return op >= Plus && op <= Divide }
func (op Op) Logical() bool    { return op == And || op == Or }
func (op Op) Equality() bool   { return op == Eq || op == Ne }
func (op Op) Relational() bool { return op >= Lt && op <= Ge }

func (b Base) Position() Pos { return b.Pos }

func (t Type) IsVoid() bool { return !t.Struct && t.Name == "void" }

func (t Type) String() string {
	if t.Struct {
		return "struct " + t.Name
	}

	return t.Name
}

// Size is the number of bytes the block's own declarations occupy.
func (b *Block) Size() int { return len(b.Decls) * tp.WordSize }

// Bind attaches the resolved symbol. It is done exactly once.
func (x *Ident) Bind(s symtab.Symbol) {
	if x.sym != nil {
		panic(diag.Internal("identifier %q at %v bound twice", x.Name, x.Pos))
	}

	if s == nil {
		panic(diag.Internal("identifier %q at %v bound to nil", x.Name, x.Pos))
	}

	x.sym = s
}

func (x *Ident) Resolved() bool { return x.sym != nil }

// Sym returns the resolved symbol. Reading an unresolved
// identifier is a compiler defect.
func (x *Ident) Sym() symtab.Symbol {
	if x.sym == nil {
		panic(diag.Internal("identifier %q at %v used before resolution", x.Name, x.Pos))
	}

	return x.sym
}

func (x *Ident) Var() *symtab.VarSymbol {
	v, ok := x.Sym().(*symtab.VarSymbol)
	if !ok {
		panic(diag.Internal("identifier %q at %v is %T, not a variable", x.Name, x.Pos, x.sym))
	}

	return v
}

func (x *Ident) Func() *symtab.FuncSymbol {
	f, ok := x.Sym().(*symtab.FuncSymbol)
	if !ok {
		panic(diag.Internal("identifier %q at %v is %T, not a function", x.Name, x.Pos, x.sym))
	}

	return f
}

func (*VarDecl) decl()    {}
func (*FnDecl) decl()     {}
func (*StructDecl) decl() {}

func (*AssignStmt) stmt() {}
func (*IncDec) stmt()     {}
func (*Read) stmt()       {}
func (*Write) stmt()      {}
func (*If) stmt()         {}
func (*IfElse) stmt()     {}
func (*While) stmt()      {}
func (*CallStmt) stmt()   {}
func (*Return) stmt()     {}

func (*IntLit) expr()    {}
func (*StrLit) expr()    {}
func (*BoolLit) expr()   {}
func (*Ident) expr()     {}
func (*DotAccess) expr() {}
func (*Assign) expr()    {}
func (*Call) expr()      {}
func (*Unary) expr()     {}
func (*Binary) expr()    {}
