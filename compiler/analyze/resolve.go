package analyze

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/kray10/project6/compiler/ast"
	"github.com/kray10/project6/compiler/diag"
	"github.com/kray10/project6/compiler/symtab"
	"github.com/kray10/project6/compiler/tp"
)

type (
	resolver struct {
		diag.Reporter

		t *symtab.Table

		main bool
	}
)

// frameHeader is saved $ra and $fp between formals and locals.
const frameHeader = 2 * tp.WordSize

// Resolve binds every identifier to its symbol, lays out frames
// and checks declarations. It returns the global scope.
func Resolve(ctx context.Context, p *ast.Program) (globals *symtab.Scope, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "resolve", "decls", len(p.Decls))
	defer tr.Finish("err", &err)

	r := &resolver{
		t: symtab.New(),
	}

	r.t.EnterScope()

	globals = r.t.CurrentScope()

	for _, d := range p.Decls {
		r.decl(ctx, d)
	}

	for _, name := range globals.Names() {
		sym, _ := globals.Lookup(name)
		sym.MarkGlobal()

		if tr.If("dump_symbols") {
			tr.Printw("global", "name", name, "type", sym.SymbolType().String())
		}
	}

	r.t.ExitScope()

	if !r.main {
		r.Report(ctx, diag.Pos{}, diag.NoEntryPoint)
	}

	if err = r.Err(); err != nil {
		return nil, err
	}

	return globals, nil
}

func (r *resolver) decl(ctx context.Context, d ast.Decl) {
	switch d := d.(type) {
	case *ast.VarDecl:
		r.declare(ctx, d.Type, d.Name)
	case *ast.FnDecl:
		r.fnDecl(ctx, d)
	case *ast.StructDecl:
		r.structDecl(ctx, d)
	default:
		panic(diag.Internal("unexpected declaration: %T", d))
	}
}

// declare adds a variable to the current scope.
// It returns nil if the declaration is erroneous.
// Only the first failed check is reported.
func (r *resolver) declare(ctx context.Context, typ ast.Type, name *ast.Ident) *symtab.VarSymbol {
	if typ.IsVoid() {
		r.Report(ctx, name.Pos, diag.BadVoidType)
		return nil
	}

	if r.t.Collides(name.Name) {
		r.Report(ctx, name.Pos, diag.MultiplyDeclared)
		return nil
	}

	v := r.newVar(ctx, name.Name, typ, name.Pos)
	if v == nil {
		return nil
	}

	r.t.Add(name.Name, v)
	name.Bind(v)

	return v
}

func (r *resolver) newVar(ctx context.Context, name string, typ ast.Type, pos diag.Pos) *symtab.VarSymbol {
	if typ.Struct {
		s, ok := r.structType(typ.Name)
		if !ok {
			r.Report(ctx, pos, diag.UndefinedType)
			return nil
		}

		return symtab.NewStructVar(name, s)
	}

	t, ok := tp.Basic(typ.Name)
	if !ok {
		panic(diag.Internal("unknown basic type %q at %v", typ.Name, typ.Pos))
	}

	return symtab.NewVar(name, t)
}

func (r *resolver) structType(name string) (*symtab.StructSymbol, bool) {
	sym, ok := r.t.Lookup(name)
	if !ok {
		return nil, false
	}

	s, ok := sym.(*symtab.StructSymbol)

	return s, ok
}

func (r *resolver) structDecl(ctx context.Context, d *ast.StructDecl) {
	unique := !r.t.Collides(d.Name.Name)
	if !unique {
		r.Report(ctx, d.Name.Pos, diag.MultiplyDeclared)
	}

	s := symtab.NewStruct(d.Name.Name)
	ok := true

	for _, f := range d.Fields {
		name := f.Name

		if f.Type.IsVoid() {
			r.Report(ctx, name.Pos, diag.BadVoidType)
			ok = false

			continue
		}

		if _, dup := s.Field(name.Name); dup {
			r.Report(ctx, name.Pos, diag.MultiplyDeclared)
			ok = false

			continue
		}

		v := r.newVar(ctx, name.Name, f.Type, name.Pos)
		if v == nil {
			ok = false
			continue
		}

		s.AddField(name.Name, v)
		name.Bind(v)
	}

	if !unique || !ok {
		return
	}

	r.t.Add(d.Name.Name, s)
	d.Name.Bind(s)
}

func (r *resolver) fnDecl(ctx context.Context, d *ast.FnDecl) {
	name := d.Name

	if name.Name == symtab.EntryPoint {
		r.main = true
	}

	outer := r.t.CurrentScope()

	unique := !outer.Has(name.Name)
	if !unique {
		r.Report(ctx, name.Pos, diag.MultiplyDeclared)
	}

	r.t.EnterScope()
	defer r.t.ExitScope()

	f := &symtab.FuncSymbol{
		Name:        name.Name,
		FormalsSize: len(d.Params) * tp.WordSize,
	}

	ok := true

	for i, p := range d.Params {
		v := r.declare(ctx, p.Type, p.Name)
		if v == nil {
			v = symtab.NewVar(p.Name.Name, tp.Error{})
			ok = false
		}

		v.SetOffset(-i * tp.WordSize)

		f.Params = append(f.Params, v)
	}

	f.Ret = r.retVar(ctx, d.Ret)
	if f.Ret == nil {
		ok = false
	}

	if unique && ok {
		outer.Add(name.Name, f)
		name.Bind(f)
	}

	base := f.FormalsSize + frameHeader

	end := r.block(ctx, d.Body, base)

	f.LocalsSize = end - base

	tlog.V("dump_frames").Printw("frame", "func", name.Name, "formals", f.FormalsSize, "locals", f.LocalsSize, "registered", unique && ok)
}

func (r *resolver) retVar(ctx context.Context, typ ast.Type) *symtab.VarSymbol {
	if typ.IsVoid() {
		return symtab.NewVar("", tp.Void{})
	}

	return r.newVar(ctx, "", typ, typ.Pos)
}

// block resolves declarations and statements in the current scope.
// off is the running frame offset, the next one is returned.
func (r *resolver) block(ctx context.Context, b *ast.Block, off int) int {
	for _, d := range b.Decls {
		if v := r.declare(ctx, d.Type, d.Name); v != nil {
			v.SetOffset(-off)
		}

		off += tp.WordSize
	}

	for _, s := range b.Stmts {
		off = r.stmt(ctx, s, off)
	}

	return off
}

func (r *resolver) nested(ctx context.Context, b *ast.Block, off int) int {
	r.t.EnterScope()
	defer r.t.ExitScope()

	return r.block(ctx, b, off)
}

func (r *resolver) stmt(ctx context.Context, s ast.Stmt, off int) int {
	switch s := s.(type) {
	case *ast.AssignStmt:
		r.expr(ctx, s.Assign)
	case *ast.IncDec:
		r.expr(ctx, s.X)
	case *ast.Read:
		r.expr(ctx, s.X)
	case *ast.Write:
		r.expr(ctx, s.X)
	case *ast.CallStmt:
		r.expr(ctx, s.Call)
	case *ast.Return:
		if s.X != nil {
			r.expr(ctx, s.X)
		}
	case *ast.If:
		r.expr(ctx, s.Cond)
		off = r.nested(ctx, s.Body, off)
	case *ast.IfElse:
		r.expr(ctx, s.Cond)
		off = r.nested(ctx, s.Then, off)
		off = r.nested(ctx, s.Else, off)
	case *ast.While:
		r.expr(ctx, s.Cond)
		off = r.nested(ctx, s.Body, off)
	default:
		panic(diag.Internal("unexpected statement: %T", s))
	}

	return off
}

func (r *resolver) expr(ctx context.Context, x ast.Expr) {
	switch x := x.(type) {
	case *ast.IntLit, *ast.StrLit, *ast.BoolLit:
	case *ast.Ident:
		r.use(ctx, x)
	case *ast.DotAccess:
		r.dot(ctx, x)
	case *ast.Assign:
		r.expr(ctx, x.LHS)
		r.expr(ctx, x.RHS)
	case *ast.Call:
		r.use(ctx, x.Fn)

		for _, a := range x.Args {
			r.expr(ctx, a)
		}
	case *ast.Unary:
		r.expr(ctx, x.X)
	case *ast.Binary:
		r.expr(ctx, x.L)
		r.expr(ctx, x.R)
	default:
		panic(diag.Internal("unexpected expression: %T", x))
	}
}

func (r *resolver) use(ctx context.Context, x *ast.Ident) {
	sym, ok := r.t.Lookup(x.Name)
	if !ok {
		r.Report(ctx, x.Pos, diag.UndeclaredIdentifier)
		return
	}

	x.Bind(sym)
}

// dot resolves a field access. It returns the struct
// of the accessed field, nil if it is not a struct.
func (r *resolver) dot(ctx context.Context, x *ast.DotAccess) *symtab.StructSymbol {
	var s *symtab.StructSymbol

	switch l := x.X.(type) {
	case *ast.Ident:
		r.use(ctx, l)

		if !l.Resolved() {
			return nil
		}

		if v, ok := l.Sym().(*symtab.VarSymbol); ok {
			s = v.Struct
		}
	case *ast.DotAccess:
		s = r.dot(ctx, l)

		if !l.Field.Resolved() {
			return nil
		}
	default:
		panic(diag.Internal("unexpected dot-access base: %T", l))
	}

	if s == nil {
		r.Report(ctx, x.X.Position(), diag.BadDotLeftHandSide)
		return nil
	}

	f, ok := s.Field(x.Field.Name)
	if !ok {
		r.Report(ctx, x.Field.Pos, diag.BadDotRightHandSide)
		return nil
	}

	x.Field.Bind(f)

	return f.Struct
}
