package parse

import (
	"context"
	"strconv"

	"github.com/kray10/project6/compiler/ast"
)

type parser struct {
	s    *State
	toks []token
	i    int
}

func (p *parser) program(ctx context.Context) (x *ast.Program, err error) {
	x = &ast.Program{
		Base: p.base(p.tok()),
	}

	for p.tok().kind != tEOF {
		d, err := p.decl()
		if err != nil {
			return nil, err
		}

		x.Decls = append(x.Decls, d)
	}

	return x, nil
}

func (p *parser) decl() (_ ast.Decl, err error) {
	if p.isKeyword("struct") && p.peek(1).kind == tIdent && p.peekIs(2, "{") {
		return p.structDecl()
	}

	typ, err := p.typ()
	if err != nil {
		return nil, err
	}

	name, err := p.ident()
	if err != nil {
		return nil, err
	}

	if p.is("(") {
		return p.fnDecl(typ, name)
	}

	if err = p.expect(";"); err != nil {
		return nil, err
	}

	return &ast.VarDecl{
		Base: typ.Base,
		Type: typ,
		Name: name,
	}, nil
}

func (p *parser) structDecl() (_ *ast.StructDecl, err error) {
	st := p.next() // struct

	name, err := p.ident()
	if err != nil {
		return nil, err
	}

	if err = p.expect("{"); err != nil {
		return nil, err
	}

	d := &ast.StructDecl{
		Base: p.base(st),
		Name: name,
	}

	for !p.is("}") {
		f, err := p.varDecl()
		if err != nil {
			return nil, err
		}

		d.Fields = append(d.Fields, f)
	}

	if len(d.Fields) == 0 {
		return nil, p.errorf(p.tok(), "struct %s has no fields", name.Name)
	}

	p.next() // }

	if err = p.expect(";"); err != nil {
		return nil, err
	}

	return d, nil
}

func (p *parser) varDecl() (_ *ast.VarDecl, err error) {
	typ, err := p.typ()
	if err != nil {
		return nil, err
	}

	name, err := p.ident()
	if err != nil {
		return nil, err
	}

	if err = p.expect(";"); err != nil {
		return nil, err
	}

	return &ast.VarDecl{
		Base: typ.Base,
		Type: typ,
		Name: name,
	}, nil
}

func (p *parser) fnDecl(ret ast.Type, name *ast.Ident) (_ *ast.FnDecl, err error) {
	d := &ast.FnDecl{
		Base: ret.Base,
		Ret:  ret,
		Name: name,
	}

	p.next() // (

	for !p.is(")") {
		if len(d.Params) != 0 {
			if err = p.expect(","); err != nil {
				return nil, err
			}
		}

		typ, err := p.typ()
		if err != nil {
			return nil, err
		}

		id, err := p.ident()
		if err != nil {
			return nil, err
		}

		d.Params = append(d.Params, &ast.Formal{
			Base: typ.Base,
			Type: typ,
			Name: id,
		})
	}

	p.next() // )

	d.Body, err = p.block()
	if err != nil {
		return nil, err
	}

	return d, nil
}

func (p *parser) block() (_ *ast.Block, err error) {
	st := p.tok()

	if err = p.expect("{"); err != nil {
		return nil, err
	}

	b := &ast.Block{
		Base: p.base(st),
	}

	for p.typeStart() {
		d, err := p.varDecl()
		if err != nil {
			return nil, err
		}

		b.Decls = append(b.Decls, d)
	}

	for !p.is("}") {
		if p.tok().kind == tEOF {
			return nil, p.errorf(p.tok(), "unexpected end of file, expected }")
		}

		s, err := p.stmt()
		if err != nil {
			return nil, err
		}

		b.Stmts = append(b.Stmts, s)
	}

	p.next() // }

	return b, nil
}

func (p *parser) stmt() (_ ast.Stmt, err error) {
	st := p.tok()

	switch {
	case p.isKeyword("if"):
		return p.ifStmt()
	case p.isKeyword("while"):
		p.next()

		cond, err := p.cond()
		if err != nil {
			return nil, err
		}

		body, err := p.block()
		if err != nil {
			return nil, err
		}

		return &ast.While{Base: p.base(st), Cond: cond, Body: body}, nil
	case p.isKeyword("return"):
		p.next()

		r := &ast.Return{Base: p.base(st)}

		if !p.is(";") {
			r.X, err = p.expr()
			if err != nil {
				return nil, err
			}
		}

		return r, p.expect(";")
	case p.isKeyword("cin"):
		p.next()

		if err = p.expect(">>"); err != nil {
			return nil, err
		}

		x, err := p.location()
		if err != nil {
			return nil, err
		}

		return &ast.Read{Base: p.base(st), X: x}, p.expect(";")
	case p.isKeyword("cout"):
		p.next()

		if err = p.expect("<<"); err != nil {
			return nil, err
		}

		x, err := p.expr()
		if err != nil {
			return nil, err
		}

		return &ast.Write{Base: p.base(st), X: x}, p.expect(";")
	}

	x, err := p.expr()
	if err != nil {
		return nil, err
	}

	if p.is("++") || p.is("--") {
		op := p.next()

		if !isLocation(x) {
			return nil, p.errorf(op, "%s applied to a non-location", op.text)
		}

		dec := op.text == "--"

		return &ast.IncDec{Base: p.base(st), X: x, Dec: dec}, p.expect(";")
	}

	if err = p.expect(";"); err != nil {
		return nil, err
	}

	switch x := x.(type) {
	case *ast.Assign:
		return &ast.AssignStmt{Base: p.base(st), Assign: x}, nil
	case *ast.Call:
		return &ast.CallStmt{Base: p.base(st), Call: x}, nil
	}

	return nil, p.errorf(st, "expression statement must be an assignment or a call")
}

func (p *parser) ifStmt() (_ ast.Stmt, err error) {
	st := p.next() // if

	cond, err := p.cond()
	if err != nil {
		return nil, err
	}

	then, err := p.block()
	if err != nil {
		return nil, err
	}

	if !p.isKeyword("else") {
		return &ast.If{Base: p.base(st), Cond: cond, Body: then}, nil
	}

	p.next()

	els, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.IfElse{Base: p.base(st), Cond: cond, Then: then, Else: els}, nil
}

func (p *parser) cond() (x ast.Expr, err error) {
	if err = p.expect("("); err != nil {
		return nil, err
	}

	x, err = p.expr()
	if err != nil {
		return nil, err
	}

	return x, p.expect(")")
}

func (p *parser) expr() (ast.Expr, error) {
	return p.assign()
}

func (p *parser) assign() (x ast.Expr, err error) {
	x, err = p.or()
	if err != nil {
		return nil, err
	}

	if !p.is("=") {
		return x, nil
	}

	op := p.next()

	if !isLocation(x) {
		return nil, p.errorf(op, "left side of assignment must be a location")
	}

	r, err := p.assign()
	if err != nil {
		return nil, err
	}

	return &ast.Assign{Base: ast.Base{Pos: x.Position()}, LHS: x, RHS: r}, nil
}

func (p *parser) or() (x ast.Expr, err error) {
	return p.binary(p.and, map[string]ast.Op{"||": ast.Or})
}

func (p *parser) and() (x ast.Expr, err error) {
	return p.binary(p.rel, map[string]ast.Op{"&&": ast.And})
}

var relOps = map[string]ast.Op{
	"==": ast.Eq,
	"!=": ast.Ne,
	"<":  ast.Lt,
	">":  ast.Gt,
	"<=": ast.Le,
	">=": ast.Ge,
}

func (p *parser) rel() (x ast.Expr, err error) {
	x, err = p.add()
	if err != nil {
		return nil, err
	}

	op, ok := p.op(relOps)
	if !ok {
		return x, nil
	}

	p.next()

	r, err := p.add()
	if err != nil {
		return nil, err
	}

	if _, ok := p.op(relOps); ok {
		return nil, p.errorf(p.tok(), "comparison operators do not chain")
	}

	return &ast.Binary{Base: ast.Base{Pos: x.Position()}, Op: op, L: x, R: r}, nil
}

func (p *parser) add() (x ast.Expr, err error) {
	return p.binary(p.mul, map[string]ast.Op{"+": ast.Plus, "-": ast.Minus})
}

func (p *parser) mul() (x ast.Expr, err error) {
	return p.binary(p.unary, map[string]ast.Op{"*": ast.Times, "/": ast.Divide})
}

// binary parses a left-associative level.
func (p *parser) binary(sub func() (ast.Expr, error), ops map[string]ast.Op) (x ast.Expr, err error) {
	x, err = sub()
	if err != nil {
		return nil, err
	}

	for {
		op, ok := p.op(ops)
		if !ok {
			return x, nil
		}

		p.next()

		r, err := sub()
		if err != nil {
			return nil, err
		}

		x = &ast.Binary{Base: ast.Base{Pos: x.Position()}, Op: op, L: x, R: r}
	}
}

func (p *parser) unary() (x ast.Expr, err error) {
	var op ast.Op

	switch {
	case p.is("!"):
		op = ast.Not
	case p.is("-"):
		op = ast.Neg
	default:
		return p.primary()
	}

	st := p.next()

	x, err = p.unary()
	if err != nil {
		return nil, err
	}

	return &ast.Unary{Base: p.base(st), Op: op, X: x}, nil
}

func (p *parser) primary() (x ast.Expr, err error) {
	t := p.tok()

	switch {
	case t.kind == tInt:
		p.next()

		v, err := strconv.ParseInt(t.text, 10, 32)
		if err != nil {
			return nil, p.errorf(t, "bad integer literal %s", t.text)
		}

		return &ast.IntLit{Base: p.base(t), Value: int32(v)}, nil
	case t.kind == tStr:
		p.next()

		return &ast.StrLit{Base: p.base(t), Raw: t.text}, nil
	case p.isKeyword("true"), p.isKeyword("false"):
		p.next()

		return &ast.BoolLit{Base: p.base(t), Value: t.text == "true"}, nil
	case p.is("("):
		p.next()

		x, err = p.expr()
		if err != nil {
			return nil, err
		}

		return x, p.expect(")")
	case t.kind == tIdent:
		id, _ := p.ident()

		if p.is("(") {
			return p.call(id)
		}

		return p.dots(id)
	}

	return nil, p.errorf(t, "expression expected, got %v", t)
}

func (p *parser) call(fn *ast.Ident) (_ ast.Expr, err error) {
	c := &ast.Call{
		Base: fn.Base,
		Fn:   fn,
	}

	p.next() // (

	for !p.is(")") {
		if len(c.Args) != 0 {
			if err = p.expect(","); err != nil {
				return nil, err
			}
		}

		a, err := p.expr()
		if err != nil {
			return nil, err
		}

		c.Args = append(c.Args, a)
	}

	p.next() // )

	return c, nil
}

func (p *parser) location() (ast.Expr, error) {
	id, err := p.ident()
	if err != nil {
		return nil, err
	}

	return p.dots(id)
}

func (p *parser) dots(id *ast.Ident) (x ast.Expr, err error) {
	x = id

	for p.is(".") {
		p.next()

		f, err := p.ident()
		if err != nil {
			return nil, err
		}

		x = &ast.DotAccess{Base: id.Base, X: x, Field: f}
	}

	return x, nil
}

func (p *parser) typ() (t ast.Type, err error) {
	tk := p.tok()

	switch {
	case p.isKeyword("int"), p.isKeyword("bool"), p.isKeyword("void"):
		p.next()

		return ast.Type{Base: p.base(tk), Name: tk.text}, nil
	case p.isKeyword("struct"):
		p.next()

		id, err := p.ident()
		if err != nil {
			return t, err
		}

		return ast.Type{Base: p.base(tk), Name: id.Name, Struct: true}, nil
	}

	return t, p.errorf(tk, "type expected, got %v", tk)
}

func (p *parser) typeStart() bool {
	return p.isKeyword("int") || p.isKeyword("bool") || p.isKeyword("void") || p.isKeyword("struct")
}

func (p *parser) ident() (*ast.Ident, error) {
	t := p.tok()
	if t.kind != tIdent {
		return nil, p.errorf(t, "identifier expected, got %v", t)
	}

	p.next()

	return &ast.Ident{Base: p.base(t), Name: t.text}, nil
}

func (p *parser) op(ops map[string]ast.Op) (ast.Op, bool) {
	t := p.tok()
	if t.kind != tPunct {
		return 0, false
	}

	op, ok := ops[t.text]

	return op, ok
}

func (p *parser) expect(text string) error {
	t := p.tok()

	if t.kind != tPunct || t.text != text {
		return p.errorf(t, "%q expected, got %v", text, t)
	}

	p.next()

	return nil
}

func (p *parser) tok() token { return p.toks[p.i] }

func (p *parser) peek(n int) token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}

	return p.toks[p.i+n]
}

func (p *parser) next() token {
	t := p.toks[p.i]

	if p.i+1 < len(p.toks) {
		p.i++
	}

	return t
}

func (p *parser) is(text string) bool {
	t := p.tok()
	return t.kind == tPunct && t.text == text
}

func (p *parser) peekIs(n int, text string) bool {
	t := p.peek(n)
	return t.kind == tPunct && t.text == text
}

func (p *parser) isKeyword(text string) bool {
	t := p.tok()
	return t.kind == tKeyword && t.text == text
}

func (p *parser) base(t token) ast.Base {
	_, pos := p.s.Pos(t.pos)

	return ast.Base{Pos: pos}
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return p.s.errorf(t.pos, format, args...)
}

func isLocation(x ast.Expr) bool {
	switch x.(type) {
	case *ast.Ident, *ast.DotAccess:
		return true
	}

	return false
}
