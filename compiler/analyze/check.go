package analyze

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/kray10/project6/compiler/ast"
	"github.com/kray10/project6/compiler/diag"
	"github.com/kray10/project6/compiler/tp"
)

type (
	checker struct {
		diag.Reporter

		ret tp.Type // of the function being checked
	}
)

// Check validates types of a resolved program and records
// the static type of every written expression.
func Check(ctx context.Context, p *ast.Program) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "check", "decls", len(p.Decls))
	defer tr.Finish("err", &err)

	c := &checker{}

	for _, d := range p.Decls {
		if f, ok := d.(*ast.FnDecl); ok {
			c.fnDecl(ctx, f)
		}
	}

	return c.Err()
}

func (c *checker) fnDecl(ctx context.Context, d *ast.FnDecl) {
	switch {
	case d.Ret.Struct:
		c.ret = tp.Struct{Name: d.Ret.Name}
	default:
		c.ret, _ = tp.Basic(d.Ret.Name)
	}

	c.block(ctx, d.Body)
}

func (c *checker) block(ctx context.Context, b *ast.Block) {
	for _, s := range b.Stmts {
		c.stmt(ctx, s)
	}
}

func (c *checker) stmt(ctx context.Context, s ast.Stmt) {
	switch s := s.(type) {
	case *ast.AssignStmt:
		c.expr(ctx, s.Assign)
	case *ast.IncDec:
		t := c.expr(ctx, s.X)

		if !isError(t) && !isInt(t) {
			c.errorf(ctx, s.X.Position(), "Arithmetic operator applied to non-numeric operand")
		}
	case *ast.Read:
		switch c.expr(ctx, s.X).(type) {
		case tp.Func:
			c.errorf(ctx, s.X.Position(), "Attempt to read a function")
		case tp.StructDef:
			c.errorf(ctx, s.X.Position(), "Attempt to read a struct name")
		case tp.Struct:
			c.errorf(ctx, s.X.Position(), "Attempt to read a struct variable")
		}
	case *ast.Write:
		t := c.expr(ctx, s.X)

		switch t.(type) {
		case tp.Func:
			c.errorf(ctx, s.X.Position(), "Attempt to write a function")
		case tp.StructDef:
			c.errorf(ctx, s.X.Position(), "Attempt to write a struct name")
		case tp.Struct:
			c.errorf(ctx, s.X.Position(), "Attempt to write a struct variable")
		case tp.Void:
			c.errorf(ctx, s.X.Position(), "Attempt to write void")
		}

		s.Type = t
	case *ast.CallStmt:
		c.expr(ctx, s.Call)
	case *ast.Return:
		c.returnStmt(ctx, s)
	case *ast.If:
		c.cond(ctx, s.Cond, "if")
		c.block(ctx, s.Body)
	case *ast.IfElse:
		c.cond(ctx, s.Cond, "if")
		c.block(ctx, s.Then)
		c.block(ctx, s.Else)
	case *ast.While:
		c.cond(ctx, s.Cond, "while")
		c.block(ctx, s.Body)
	default:
		panic(diag.Internal("unexpected statement: %T", s))
	}
}

func (c *checker) returnStmt(ctx context.Context, s *ast.Return) {
	_, void := c.ret.(tp.Void)

	if s.X == nil {
		if !void {
			c.errorf(ctx, s.Pos, "Missing return value")
		}

		return
	}

	t := c.expr(ctx, s.X)

	switch {
	case void:
		c.errorf(ctx, s.X.Position(), "Return with a value in a void function")
	case isError(t):
	case !tp.Equal(t, c.ret):
		c.errorf(ctx, s.X.Position(), "Bad return value")
	}
}

func (c *checker) cond(ctx context.Context, x ast.Expr, what string) {
	t := c.expr(ctx, x)

	if !isError(t) && !isBool(t) {
		c.errorf(ctx, x.Position(), "Non-bool expression used as an %s condition", what)
	}
}

func (c *checker) expr(ctx context.Context, x ast.Expr) tp.Type {
	switch x := x.(type) {
	case *ast.IntLit:
		return tp.Int{}
	case *ast.StrLit:
		return tp.String{}
	case *ast.BoolLit:
		return tp.Bool{}
	case *ast.Ident:
		return x.Sym().SymbolType()
	case *ast.DotAccess:
		return x.Field.Sym().SymbolType()
	case *ast.Assign:
		return c.assign(ctx, x)
	case *ast.Call:
		return c.call(ctx, x)
	case *ast.Unary:
		return c.unary(ctx, x)
	case *ast.Binary:
		return c.binary(ctx, x)
	default:
		panic(diag.Internal("unexpected expression: %T", x))
	}
}

func (c *checker) assign(ctx context.Context, x *ast.Assign) tp.Type {
	l := c.expr(ctx, x.LHS)
	r := c.expr(ctx, x.RHS)

	if isError(l) || isError(r) {
		return tp.Error{}
	}

	switch l.(type) {
	case tp.Func:
		c.errorf(ctx, x.Pos, "Function assignment")
	case tp.StructDef:
		c.errorf(ctx, x.Pos, "Struct name assignment")
	case tp.Struct:
		if !tp.Equal(l, r) {
			c.errorf(ctx, x.Pos, "Type mismatch")
			break
		}

		c.errorf(ctx, x.Pos, "Struct variable assignment")
	default:
		if !tp.Equal(l, r) {
			c.errorf(ctx, x.Pos, "Type mismatch")
			break
		}

		return l
	}

	return tp.Error{}
}

func (c *checker) call(ctx context.Context, x *ast.Call) tp.Type {
	f, ok := x.Fn.Sym().SymbolType().(tp.Func)
	if !ok {
		c.errorf(ctx, x.Fn.Pos, "Attempt to call a non-function")

		for _, a := range x.Args {
			c.expr(ctx, a)
		}

		return tp.Error{}
	}

	if len(x.Args) != len(f.In) {
		c.errorf(ctx, x.Fn.Pos, "Function call with wrong number of args")

		for _, a := range x.Args {
			c.expr(ctx, a)
		}

		return f.Out
	}

	for i, a := range x.Args {
		t := c.expr(ctx, a)

		if isError(t) || isError(f.In[i]) {
			continue
		}

		if !tp.Equal(t, f.In[i]) {
			c.errorf(ctx, a.Position(), "Type of actual does not match type of formal")
		}
	}

	return f.Out
}

func (c *checker) unary(ctx context.Context, x *ast.Unary) tp.Type {
	t := c.expr(ctx, x.X)
	if isError(t) {
		return t
	}

	switch x.Op {
	case ast.Neg:
		if isInt(t) {
			return t
		}

		c.errorf(ctx, x.X.Position(), "Arithmetic operator applied to non-numeric operand")
	case ast.Not:
		if isBool(t) {
			return t
		}

		c.errorf(ctx, x.X.Position(), "Logical operator applied to non-bool operand")
	default:
		panic(diag.Internal("unexpected unary operator: %v", x.Op))
	}

	return tp.Error{}
}

func (c *checker) binary(ctx context.Context, x *ast.Binary) tp.Type {
	l := c.expr(ctx, x.L)
	r := c.expr(ctx, x.R)

	switch {
	case x.Op.Arithmetic():
		return c.operands(ctx, x, l, r, isInt, tp.Int{}, "Arithmetic operator applied to non-numeric operand")
	case x.Op.Relational():
		return c.operands(ctx, x, l, r, isInt, tp.Bool{}, "Relational operator applied to non-numeric operand")
	case x.Op.Logical():
		return c.operands(ctx, x, l, r, isBool, tp.Bool{}, "Logical operator applied to non-bool operand")
	case x.Op.Equality():
		return c.equality(ctx, x, l, r)
	default:
		panic(diag.Internal("unexpected binary operator: %v", x.Op))
	}
}

// operands reports every operand of a wrong type.
func (c *checker) operands(ctx context.Context, x *ast.Binary, l, r tp.Type, want func(tp.Type) bool, res tp.Type, msg string) tp.Type {
	ok := true

	if isError(l) {
		ok = false
	} else if !want(l) {
		c.errorf(ctx, x.L.Position(), "%s", msg)
		ok = false
	}

	if isError(r) {
		ok = false
	} else if !want(r) {
		c.errorf(ctx, x.R.Position(), "%s", msg)
		ok = false
	}

	if !ok {
		return tp.Error{}
	}

	return res
}

func (c *checker) equality(ctx context.Context, x *ast.Binary, l, r tp.Type) tp.Type {
	if isError(l) || isError(r) {
		return tp.Error{}
	}

	_, lvoid := l.(tp.Void)
	_, rvoid := r.(tp.Void)
	_, lfn := l.(tp.Func)
	_, rfn := r.(tp.Func)
	_, ldef := l.(tp.StructDef)
	_, rdef := r.(tp.StructDef)
	_, lst := l.(tp.Struct)
	_, rst := r.(tp.Struct)

	switch {
	case lvoid && rvoid:
		c.errorf(ctx, x.Pos, "Equality operator applied to void functions")
	case lfn && rfn:
		c.errorf(ctx, x.Pos, "Equality operator applied to functions")
	case ldef && rdef:
		c.errorf(ctx, x.Pos, "Equality operator applied to struct names")
	case lst && rst:
		c.errorf(ctx, x.Pos, "Equality operator applied to struct variables")
	case !tp.Equal(l, r):
		c.errorf(ctx, x.Pos, "Type mismatch")
	default:
		return tp.Bool{}
	}

	return tp.Error{}
}

func (c *checker) errorf(ctx context.Context, pos diag.Pos, format string, args ...any) {
	c.Reportf(ctx, pos, diag.TypeError, format, args...)
}

func isError(t tp.Type) bool { return tp.IsError(t) }

func isInt(t tp.Type) bool {
	_, ok := t.(tp.Int)
	return ok
}

func isBool(t tp.Type) bool {
	_, ok := t.(tp.Bool)
	return ok
}
