package format

import (
	"context"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/kray10/project6/compiler/ast"
)

// Format appends canonical source text of x to b.
func Format(ctx context.Context, b []byte, x ast.Node) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x ast.Node, d int) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.Program:
		return formatProgram(ctx, b, x, d)
	case ast.Decl:
		return formatDecl(ctx, b, x, d)
	case *ast.Block:
		return formatBlock(ctx, b, x, d)
	case ast.Stmt:
		return formatStmt(ctx, b, x, d)
	case ast.Expr:
		return formatExpr(ctx, b, x)
	default:
		return nil, errors.New("unsupported node: %T", x)
	}
}

func formatProgram(ctx context.Context, b []byte, x *ast.Program, d int) (_ []byte, err error) {
	for i, dcl := range x.Decls {
		if _, ok := dcl.(*ast.FnDecl); ok && i != 0 {
			b = append(b, '\n')
		}

		b, err = formatDecl(ctx, b, dcl, d)
		if err != nil {
			return nil, errors.Wrap(err, "decl %d", i)
		}
	}

	return b, nil
}

func formatDecl(ctx context.Context, b []byte, x ast.Decl, d int) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.VarDecl:
		b = app(b, d, "%v %v;\n", x.Type, x.Name.Name)
	case *ast.StructDecl:
		b = app(b, d, "struct %v {\n", x.Name.Name)

		for _, f := range x.Fields {
			b = app(b, d+1, "%v %v;\n", f.Type, f.Name.Name)
		}

		b = app(b, d, "};\n")
	case *ast.FnDecl:
		b = app(b, d, "%v %v(", x.Ret, x.Name.Name)

		for i, p := range x.Params {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = app(b, 0, "%v %v", p.Type, p.Name.Name)
		}

		b = append(b, ") "...)

		b, err = formatBlock(ctx, b, x.Body, d)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", x.Name.Name)
		}

		b = append(b, '\n')
	default:
		return nil, errors.New("unsupported decl: %T", x)
	}

	return b, nil
}

// formatBlock writes braces, the opening one is not indented.
func formatBlock(ctx context.Context, b []byte, x *ast.Block, d int) (_ []byte, err error) {
	b = append(b, "{\n"...)

	for _, v := range x.Decls {
		b = app(b, d+1, "%v %v;\n", v.Type, v.Name.Name)
	}

	for _, s := range x.Stmts {
		b, err = formatStmt(ctx, b, s, d+1)
		if err != nil {
			return nil, err
		}
	}

	b = app(b, d, "}")

	return b, nil
}

func formatStmt(ctx context.Context, b []byte, x ast.Stmt, d int) (_ []byte, err error) {
	b = app(b, d, "")

	switch x := x.(type) {
	case *ast.AssignStmt:
		b, err = formatExpr(ctx, b, x.Assign)
		b = append(b, ';')
	case *ast.IncDec:
		b, err = formatExpr(ctx, b, x.X)

		if x.Dec {
			b = append(b, "--;"...)
		} else {
			b = append(b, "++;"...)
		}
	case *ast.Read:
		b = append(b, "cin >> "...)
		b, err = formatExpr(ctx, b, x.X)
		b = append(b, ';')
	case *ast.Write:
		b = append(b, "cout << "...)
		b, err = formatExpr(ctx, b, x.X)
		b = append(b, ';')
	case *ast.CallStmt:
		b, err = formatExpr(ctx, b, x.Call)
		b = append(b, ';')
	case *ast.Return:
		b = append(b, "return"...)

		if x.X != nil {
			b = append(b, ' ')
			b, err = formatExpr(ctx, b, x.X)
		}

		b = append(b, ';')
	case *ast.If:
		b, err = formatCond(ctx, b, "if", x.Cond)
		if err == nil {
			b, err = formatBlock(ctx, b, x.Body, d)
		}
	case *ast.IfElse:
		b, err = formatCond(ctx, b, "if", x.Cond)
		if err == nil {
			b, err = formatBlock(ctx, b, x.Then, d)
		}

		if err == nil {
			b = append(b, " else "...)
			b, err = formatBlock(ctx, b, x.Else, d)
		}
	case *ast.While:
		b, err = formatCond(ctx, b, "while", x.Cond)
		if err == nil {
			b, err = formatBlock(ctx, b, x.Body, d)
		}
	default:
		return nil, errors.New("unsupported stmt: %T", x)
	}

	if err != nil {
		return nil, errors.Wrap(err, "%T at %v", x, x.Position())
	}

	b = append(b, '\n')

	return b, nil
}

func formatCond(ctx context.Context, b []byte, kw string, x ast.Expr) (_ []byte, err error) {
	b = append(b, kw...)
	b = append(b, " ("...)

	b, err = formatExpr(ctx, b, x)
	if err != nil {
		return nil, err
	}

	b = append(b, ") "...)

	return b, nil
}

func formatExpr(ctx context.Context, b []byte, x ast.Expr) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.IntLit:
		b = strconv.AppendInt(b, int64(x.Value), 10)
	case *ast.StrLit:
		b = append(b, x.Raw...)
	case *ast.BoolLit:
		b = strconv.AppendBool(b, x.Value)
	case *ast.Ident:
		b = append(b, x.Name...)
	case *ast.DotAccess:
		b, err = formatExpr(ctx, b, x.X)
		b = append(b, '.')
		b = append(b, x.Field.Name...)
	case *ast.Assign:
		b, err = formatExpr(ctx, b, x.LHS)
		if err != nil {
			return nil, err
		}

		b = append(b, " = "...)
		b, err = formatExpr(ctx, b, x.RHS)
	case *ast.Call:
		b = append(b, x.Fn.Name...)
		b = append(b, '(')

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = formatExpr(ctx, b, a)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}
		}

		b = append(b, ')')
	case *ast.Unary:
		b = append(b, x.Op.String()...)
		b, err = formatOperand(ctx, b, x.X)
	case *ast.Binary:
		b, err = formatOperand(ctx, b, x.L)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = app(b, 0, " %v ", x.Op)

		b, err = formatOperand(ctx, b, x.R)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	if err != nil {
		return nil, err
	}

	return b, nil
}

// formatOperand parenthesizes compound operands.
func formatOperand(ctx context.Context, b []byte, x ast.Expr) (_ []byte, err error) {
	switch x.(type) {
	case *ast.Binary, *ast.Unary, *ast.Assign:
	default:
		return formatExpr(ctx, b, x)
	}

	b = append(b, '(')

	b, err = formatExpr(ctx, b, x)
	if err != nil {
		return nil, err
	}

	return append(b, ')'), nil
}

func app(b []byte, d int, f string, args ...any) []byte {
	for i := 0; i < d; i++ {
		b = append(b, '\t')
	}

	b = hfmt.Appendf(b, f, args...)
	return b
}
