package back

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/kray10/project6/compiler/asm"
	"github.com/kray10/project6/compiler/ast"
	"github.com/kray10/project6/compiler/diag"
	"github.com/kray10/project6/compiler/symtab"
	"github.com/kray10/project6/compiler/tp"
)

type (
	// Compiler lowers resolved and type checked programs into MIPS assembly.
	Compiler struct{}

	// UnsupportedError is a construct the code generator
	// has no storage layout for.
	UnsupportedError struct {
		Pos  diag.Pos
		What string
	}

	funContext struct {
		*asm.Emitter

		fn   *symtab.FuncSymbol
		exit asm.Label
	}
)

// New creates a code generator. One Compiler can be used for many programs.
func New() *Compiler {
	return &Compiler{}
}

// CompileProgram appends assembly for a resolved and type checked program to b.
func (c *Compiler) CompileProgram(ctx context.Context, b []byte, p *ast.Program) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile program", "decls", len(p.Decls))
	defer tr.Finish("err", &err)

	err = unsupported(p)
	if err != nil {
		return nil, err
	}

	e := asm.NewEmitter(b)

	for _, d := range p.Decls {
		switch d := d.(type) {
		case *ast.VarDecl:
			e.Global(d.Name.Name, tp.WordSize)
		case *ast.FnDecl:
			err = c.compileFunc(ctx, e, d)
			if err != nil {
				return nil, errors.Wrap(err, "func %v", d.Name.Name)
			}
		case *ast.StructDecl:
		default:
			panic(diag.Internal("unexpected declaration: %T", d))
		}
	}

	if l := e.Unplaced(); len(l) != 0 {
		panic(diag.Internal("labels used but never defined: %v", l))
	}

	if tr.If("dump_asm") {
		tr.Printw("assembly", "text", e.Bytes())
	}

	return e.Bytes(), nil
}

func (c *Compiler) compileFunc(ctx context.Context, e *asm.Emitter, d *ast.FnDecl) (err error) {
	f := d.Name.Func()

	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "compile func", "name", f.Name, "formals", f.FormalsSize, "locals", f.LocalsSize)
	defer tr.Finish("err", &err)

	g := &funContext{
		Emitter: e,
		fn:      f,
		exit:    e.NextLabel(),
	}

	g.prologue()

	for _, s := range d.Body.Stmts {
		g.stmt(s, g.exit)
	}

	g.epilogue()

	return nil
}

func (g *funContext) prologue() {
	g.Text()

	if g.fn.Name == symtab.EntryPoint {
		g.Gen(".globl", symtab.EntryPoint)
		g.Label(FuncLabel(g.fn.Name), "")
		g.Label("__start", "program entry")
	} else {
		g.Label(FuncLabel(g.fn.Name), "")
	}

	g.Push(asm.RA)
	g.Push(asm.FP)
	g.GenComment("addu", "set frame pointer", asm.FP, asm.SP, g.fn.FormalsSize+2*tp.WordSize)
	g.GenComment("subu", "reserve locals", asm.SP, asm.SP, g.fn.LocalsSize)

	// saved registers are frame, not operands
	g.SetDepth(0)
}

func (g *funContext) epilogue() {
	f := g.fn.FormalsSize

	g.Label(g.exit, "exit "+g.fn.Name)
	g.GenIndexed("lw", asm.RA, asm.FP, -f, "restore return address")
	g.GenComment("move", "caller stack pointer", asm.T0, asm.FP)
	g.GenIndexed("lw", asm.FP, asm.FP, -(f + tp.WordSize), "restore frame pointer")
	g.Gen("move", asm.SP, asm.T0)

	if g.fn.Name == symtab.EntryPoint {
		g.Syscall(asm.SysExit)
	} else {
		g.GenComment("jr", "return", asm.RA)
	}
}

// FuncLabel is the entry label of a function.
// Only the entry point keeps its bare name.
func FuncLabel(name string) asm.Label {
	if name == symtab.EntryPoint {
		return asm.Label(name)
	}

	return asm.Label("_" + name)
}

func (g *funContext) block(b *ast.Block, exit asm.Label) {
	g.GenComment("subu", "reserve block locals", asm.SP, asm.SP, b.Size())

	for _, s := range b.Stmts {
		g.stmt(s, exit)
	}

	g.GenComment("addu", "release block locals", asm.SP, asm.SP, b.Size())
}

func (g *funContext) stmt(s ast.Stmt, exit asm.Label) {
	d := g.Depth()

	switch s := s.(type) {
	case *ast.AssignStmt:
		g.expr(s.Assign)
		g.Pop(asm.T0)
	case *ast.IncDec:
		op := ast.Plus
		if s.Dec {
			op = ast.Minus
		}

		g.expr(s.X)
		g.IntLit(1)
		g.arith(op)
		g.addr(s.X)
		g.Assign()
		g.Pop(asm.T0)
	case *ast.Read:
		g.addr(s.X)
		g.Syscall(asm.SysReadInt)
		g.Pop(asm.T0)
		g.GenIndexed("sw", asm.V0, asm.T0, 0, "store input")
	case *ast.Write:
		if s.Type == nil {
			panic(diag.Internal("write at %v: type is not set", s.Pos))
		}

		_, str := s.Type.(tp.String)

		g.expr(s.X)
		g.Write(str)
	case *ast.If:
		end := g.NextLabel()

		g.cond(s.Cond, end)
		g.block(s.Body, exit)
		g.Label(end, "end if")
	case *ast.IfElse:
		els := g.NextLabel()
		end := g.NextLabel()

		g.cond(s.Cond, els)
		g.block(s.Then, exit)
		g.Gen("j", end)
		g.Label(els, "else")
		g.block(s.Else, exit)
		g.Label(end, "end if")
	case *ast.While:
		loop := g.NextLabel()
		end := g.NextLabel()

		g.Label(loop, "while")
		g.cond(s.Cond, end)
		g.block(s.Body, exit)
		g.Gen("j", loop)
		g.Label(end, "end while")
	case *ast.CallStmt:
		g.call(s.Call)
		g.Pop(asm.T0)
	case *ast.Return:
		if s.X != nil {
			g.expr(s.X)
			g.Pop(asm.V0)
		}

		g.GenComment("j", "return", exit)
	default:
		panic(diag.Internal("unexpected statement: %T", s))
	}

	if g.Depth() != d {
		panic(diag.Internal("%T at %v: operand stack depth %d, want %d", s, s.Position(), g.Depth(), d))
	}
}

// cond evaluates x and jumps to l if it is false.
func (g *funContext) cond(x ast.Expr, l asm.Label) {
	g.expr(x)
	g.Pop(asm.T0)
	g.Gen("beq", asm.T0, asm.False, l)
}

func (g *funContext) expr(x ast.Expr) {
	d := g.Depth()

	switch x := x.(type) {
	case *ast.IntLit:
		g.IntLit(x.Value)
	case *ast.BoolLit:
		g.BoolLit(x.Value)
	case *ast.StrLit:
		g.StringLit(x.Raw)
	case *ast.Ident:
		v := g.variable(x)

		g.Load(v.Name, v.Global, v.Offset())
	case *ast.Assign:
		g.expr(x.RHS)
		g.addr(x.LHS)
		g.Assign()
	case *ast.Call:
		g.call(x)
	case *ast.Unary:
		g.expr(x.X)

		switch x.Op {
		case ast.Neg:
			g.Negate()
		case ast.Not:
			g.Not()
		default:
			panic(diag.Internal("unexpected unary operator: %v", x.Op))
		}
	case *ast.Binary:
		g.binary(x)
	default:
		panic(diag.Internal("unexpected expression: %T", x))
	}

	if g.Depth() != d+1 {
		panic(diag.Internal("%T at %v: operand stack depth %d, want %d", x, x.Position(), g.Depth(), d+1))
	}
}

// addr pushes the address of a location.
func (g *funContext) addr(x ast.Expr) {
	id, ok := x.(*ast.Ident)
	if !ok {
		panic(diag.Internal("address of %T at %v", x, x.Position()))
	}

	v := g.variable(id)

	g.Addr(v.Name, v.Global, v.Offset())
}

func (g *funContext) variable(x *ast.Ident) *symtab.VarSymbol {
	v := x.Var()

	if v.Struct != nil {
		panic(diag.Internal("struct variable %q at %v reached code generation", x.Name, x.Pos))
	}

	return v
}

func (g *funContext) call(x *ast.Call) {
	f := x.Fn.Func()

	for _, a := range x.Args {
		g.expr(a)
	}

	g.GenComment("jal", "call "+f.Name, FuncLabel(f.Name))

	// callee restores $sp to its frame pointer, arguments are gone
	g.SetDepth(g.Depth() - len(x.Args))

	g.Push(asm.V0)
}

func (g *funContext) binary(x *ast.Binary) {
	switch {
	case x.Op.Arithmetic():
		g.expr(x.L)
		g.expr(x.R)
		g.arith(x.Op)
	case x.Op.Logical():
		g.shortCircuit(x)
	case x.Op.Relational(), x.Op.Equality():
		g.compare(x)
	default:
		panic(diag.Internal("unexpected binary operator: %v", x.Op))
	}
}

// arith pops two operands and pushes the result.
func (g *funContext) arith(op ast.Op) {
	g.Pop(asm.T1)
	g.Pop(asm.T0)

	switch op {
	case ast.Plus:
		g.Gen("add", asm.T0, asm.T0, asm.T1)
	case ast.Minus:
		g.Gen("sub", asm.T0, asm.T0, asm.T1)
	case ast.Times:
		g.Mult(asm.T0, asm.T1, asm.T0)
	case ast.Divide:
		g.Div(asm.T0, asm.T1, asm.T0)
	default:
		panic(diag.Internal("unexpected arithmetic operator: %v", op))
	}

	g.Push(asm.T0)
}

func (g *funContext) shortCircuit(x *ast.Binary) {
	sentinel := x.Op == ast.Or

	skip := g.NextLabel()
	end := g.NextLabel()

	g.expr(x.L)
	d := g.Depth() - 1

	g.Pop(asm.T0)

	if sentinel {
		g.GenComment("beq", "short circuit "+x.Op.String(), asm.T0, asm.True, skip)
	} else {
		g.GenComment("beq", "short circuit "+x.Op.String(), asm.T0, asm.False, skip)
	}

	g.expr(x.R)
	g.Gen("j", end)

	g.SetDepth(d)
	g.Label(skip, "")
	g.BoolLit(sentinel)
	g.Label(end, "")
}

var branches = map[ast.Op]string{
	ast.Eq: "beq",
	ast.Ne: "bne",
	ast.Lt: "blt",
	ast.Gt: "bgt",
	ast.Le: "ble",
	ast.Ge: "bge",
}

func (g *funContext) compare(x *ast.Binary) {
	br, ok := branches[x.Op]
	if !ok {
		panic(diag.Internal("unexpected comparison operator: %v", x.Op))
	}

	g.expr(x.L)
	g.expr(x.R)

	g.Pop(asm.T1)
	g.Pop(asm.T0)

	d := g.Depth()

	yes := g.NextLabel()
	end := g.NextLabel()

	g.GenComment(br, x.Op.String(), asm.T0, asm.T1, yes)
	g.BoolLit(false)
	g.Gen("j", end)

	g.SetDepth(d)
	g.Label(yes, "")
	g.BoolLit(true)
	g.Label(end, "")
}

// unsupported finds the first construct that needs struct layout.
func unsupported(p *ast.Program) (err error) {
	ast.Walk(p, func(n ast.Node) bool {
		if err != nil {
			return false
		}

		switch n := n.(type) {
		case *ast.StructDecl:
			return false
		case *ast.VarDecl:
			if n.Type.Struct {
				err = UnsupportedError{Pos: n.Name.Pos, What: "struct variable " + n.Name.Name}
			}
		case *ast.Formal:
			if n.Type.Struct {
				err = UnsupportedError{Pos: n.Name.Pos, What: "struct parameter " + n.Name.Name}
			}
		case *ast.FnDecl:
			if n.Ret.Struct {
				err = UnsupportedError{Pos: n.Ret.Pos, What: "struct return type"}
			}
		case *ast.DotAccess:
			err = UnsupportedError{Pos: n.Pos, What: "field access"}
		}

		return err == nil
	})

	return err
}

func (e UnsupportedError) Error() string {
	return fmt.Sprintf("%v: %s is not supported by code generation", e.Pos, e.What)
}
