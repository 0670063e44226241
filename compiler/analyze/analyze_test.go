package analyze

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kray10/project6/compiler/ast"
	"github.com/kray10/project6/compiler/diag"
	"github.com/kray10/project6/compiler/parse"
	"github.com/kray10/project6/compiler/symtab"
	"github.com/kray10/project6/compiler/tp"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()

	x, err := parse.Parse(context.Background(), "", []byte(src))
	require.NoError(t, err)

	return x
}

// posOf is the position of the n-th (0-based) occurrence of s in src.
func posOf(t *testing.T, src, s string, n int) diag.Pos {
	t.Helper()

	off := -1

	for i := 0; i <= n; i++ {
		j := strings.Index(src[off+1:], s)
		require.True(t, j >= 0, "%q #%d not found", s, n)

		off += 1 + j
	}

	line := 1 + strings.Count(src[:off], "\n")
	col := off - strings.LastIndex(src[:off], "\n")

	return diag.Pos{Line: line, Col: col}
}

func fn(p *ast.Program, name string) *ast.FnDecl {
	for _, d := range p.Decls {
		if f, ok := d.(*ast.FnDecl); ok && f.Name.Name == name {
			return f
		}
	}

	return nil
}

func TestResolveShadowing(t *testing.T) {
	p := mustParse(t, `
int x;
void main() {
	bool x;
	x = true;
	if (x) {
		int x;
		x = 1;
	}
	x = false;
}
`)

	globals, err := Resolve(context.Background(), p)
	require.NoError(t, err)

	gsym, ok := globals.Lookup("x")
	require.True(t, ok)
	assert.True(t, gsym.IsGlobal())

	main := fn(p, "main")
	local := main.Body.Decls[0].Name.Var()

	assert.False(t, local.IsGlobal())
	assert.NotSame(t, gsym, local)

	first := main.Body.Stmts[0].(*ast.AssignStmt).Assign.LHS.(*ast.Ident)
	assert.Same(t, local, first.Var())

	ifs := main.Body.Stmts[1].(*ast.If)
	assert.Same(t, local, ifs.Cond.(*ast.Ident).Var())

	inner := ifs.Body.Decls[0].Name.Var()
	assert.Same(t, inner, ifs.Body.Stmts[0].(*ast.AssignStmt).Assign.LHS.(*ast.Ident).Var())
	assert.Equal(t, tp.Int{}, inner.Type)

	last := main.Body.Stmts[2].(*ast.AssignStmt).Assign.LHS.(*ast.Ident)
	assert.Same(t, local, last.Var())
}

func TestResolveOffsets(t *testing.T) {
	p := mustParse(t, `
int f(int a, int b) {
	int c;
	if (a < b) {
		int d;
		int e;
	} else {
		int g;
	}
	while (true) {
		int h;
	}
	return c;
}
void main() {}
`)

	_, err := Resolve(context.Background(), p)
	require.NoError(t, err)

	f := fn(p, "f")
	sym := f.Name.Func()

	assert.Equal(t, 8, sym.FormalsSize)
	assert.Equal(t, 20, sym.LocalsSize)

	assert.Equal(t, 0, sym.Params[0].Offset())
	assert.Equal(t, -4, sym.Params[1].Offset())

	ie := f.Body.Stmts[0].(*ast.IfElse)
	wh := f.Body.Stmts[1].(*ast.While)

	var offs []int
	for _, d := range [][]*ast.VarDecl{f.Body.Decls, ie.Then.Decls, ie.Else.Decls, wh.Body.Decls} {
		for _, v := range d {
			offs = append(offs, v.Name.Var().Offset())
		}
	}

	assert.Equal(t, []int{-16, -20, -24, -28, -32}, offs)

	m := fn(p, "main").Name.Func()
	assert.Equal(t, 0, m.FormalsSize)
	assert.Equal(t, 0, m.LocalsSize)
}

func TestResolveRecursion(t *testing.T) {
	p := mustParse(t, `
int fact(int n) {
	if (n < 2) {
		return 1;
	}
	return n * fact(n - 1);
}
void main() {
	cout << fact(5);
}
`)

	_, err := Resolve(context.Background(), p)
	require.NoError(t, err)

	f := fn(p, "fact")
	ret := f.Body.Stmts[1].(*ast.Return).X.(*ast.Binary)
	call := ret.R.(*ast.Call)

	assert.Same(t, f.Name.Func(), call.Fn.Func())
}

func TestResolveNoEntryPoint(t *testing.T) {
	p := mustParse(t, `
int main;
void f() {}
`)

	_, err := Resolve(context.Background(), p)
	require.Error(t, err)

	l, ok := diag.AsList(err)
	require.True(t, ok)
	require.Len(t, l, 1)

	assert.Equal(t, diag.NoEntryPoint, l[0].Kind)
	assert.True(t, l[0].Pos.IsZero())
}

func TestResolveDiagnostics(t *testing.T) {
	type want struct {
		kind diag.Kind
		at   string
		n    int
	}

	for _, tc := range []struct {
		src  string
		want []want
	}{{
		src:  "void x; void main() {}",
		want: []want{{diag.BadVoidType, "x", 0}},
	}, {
		src:  "int x; bool x; void main() {}",
		want: []want{{diag.MultiplyDeclared, "x", 1}},
	}, {
		src:  "struct Q q; void main() {}",
		want: []want{{diag.UndefinedType, "q", 0}},
	}, {
		src:  "void main() { y = 1; }",
		want: []want{{diag.UndeclaredIdentifier, "y", 0}},
	}, {
		src:  "int x; void main() { x.a = 1; }",
		want: []want{{diag.BadDotLeftHandSide, "x", 1}},
	}, {
		src:  "struct P { int a; }; struct P p; void main() { p.b = 1; }",
		want: []want{{diag.BadDotRightHandSide, "b", 0}},
	}, {
		src:  "struct P { int a; bool a; }; void main() {}",
		want: []want{{diag.MultiplyDeclared, "a", 1}},
	}, {
		src:  "struct P { void a; }; void main() {}",
		want: []want{{diag.BadVoidType, "a", 0}},
	}, {
		src:  "void f() {} int f() { return 1; } void main() {}",
		want: []want{{diag.MultiplyDeclared, "f", 1}},
	}, {
		src: "void f(void a) {} void main() { f(1); }",
		want: []want{
			{diag.BadVoidType, "a", 0},
			{diag.UndeclaredIdentifier, "f", 1},
		},
	}, {
		src: "struct A { int v; }; struct B { struct A a; }; struct B b; void main() { b.a.v = 1; b.a.w = 2; b.v.x = 3; }",
		want: []want{
			{diag.BadDotRightHandSide, "w", 0},
			{diag.BadDotRightHandSide, "v", 3},
		},
	}, {
		src:  "int x; struct Undef x; void main() {}",
		want: []want{{diag.MultiplyDeclared, "x", 1}},
	}, {
		src:  "void x; void x; void main() {}",
		want: []want{{diag.BadVoidType, "x", 0}, {diag.BadVoidType, "x", 1}},
	}, {
		src:  "void f(int a, struct Undef a) {} void main() {}",
		want: []want{{diag.MultiplyDeclared, "a", 1}},
	}, {
		src: "void main() { int a; bool a; a = b; }",
		want: []want{
			{diag.MultiplyDeclared, "a", 2},
			{diag.UndeclaredIdentifier, "b", 1},
		},
	}} {
		_, err := Resolve(context.Background(), mustParse(t, tc.src))
		require.Error(t, err, "%s", tc.src)

		l, ok := diag.AsList(err)
		require.True(t, ok, "%s", tc.src)
		require.Len(t, l, len(tc.want), "%s: %v", tc.src, err)

		for i, w := range tc.want {
			assert.Equal(t, w.kind, l[i].Kind, "%s: %v", tc.src, err)
			assert.Equal(t, posOf(t, tc.src, w.at, w.n), l[i].Pos, "%s: %v", tc.src, err)
		}
	}
}

func TestResolveGlobals(t *testing.T) {
	p := mustParse(t, `
int a;
struct S { int f; };
bool b;
void main() {}
`)

	globals, err := Resolve(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, []string{"S", "a", "b", "main"}, globals.Names())

	for _, n := range globals.Names() {
		sym, _ := globals.Lookup(n)
		assert.True(t, sym.IsGlobal(), n)
	}

	s, _ := globals.Lookup("S")
	require.IsType(t, &symtab.StructSymbol{}, s)

	f, ok := s.(*symtab.StructSymbol).Field("f")
	require.True(t, ok)
	assert.False(t, f.Placed())
}

func TestCheckDiagnostics(t *testing.T) {
	for _, tc := range []struct {
		src  string
		msgs []string
	}{
		{"void main() { int a; a = true; }", []string{"Type mismatch"}},
		{"void main() { cout << main; }", []string{"Attempt to write a function"}},
		{"void f() {} void main() { cout << f(); }", []string{"Attempt to write void"}},
		{"struct P { int a; }; void main() { cin >> P; }", []string{"Attempt to read a struct name"}},
		{"int f() { return; } void main() {}", []string{"Missing return value"}},
		{"void main() { return 1; }", []string{"Return with a value in a void function"}},
		{"int f() { return true; } void main() {}", []string{"Bad return value"}},
		{"void main() { if (1) {} }", []string{"Non-bool expression used as an if condition"}},
		{"void main() { while (1) {} }", []string{"Non-bool expression used as an while condition"}},
		{"int f(int a) { return a; } void main() { f(); f(true); }", []string{
			"Function call with wrong number of args",
			"Type of actual does not match type of formal",
		}},
		{"void main() { int a; a(); }", []string{"Attempt to call a non-function"}},
		{"void main() { int a; a = 1 + true; }", []string{"Arithmetic operator applied to non-numeric operand"}},
		{"void main() { bool b; b = 1 && true; }", []string{"Logical operator applied to non-bool operand"}},
		{"void main() { bool b; b = true < 1; }", []string{"Relational operator applied to non-numeric operand"}},
		{"void f() {} void main() { bool b; b = f() == f(); }", []string{"Equality operator applied to void functions"}},
		{"void main() { bool b; b = main == main; }", []string{"Equality operator applied to functions"}},
		{"void main() { main = main; }", []string{"Function assignment"}},
		{"void main() { bool b; b++; }", []string{"Arithmetic operator applied to non-numeric operand"}},
	} {
		p := mustParse(t, tc.src)

		_, err := Resolve(context.Background(), p)
		require.NoError(t, err, "%s", tc.src)

		err = Check(context.Background(), p)
		require.Error(t, err, "%s", tc.src)

		l, ok := diag.AsList(err)
		require.True(t, ok, "%s", tc.src)

		var msgs []string
		for _, d := range l {
			assert.Equal(t, diag.TypeError, d.Kind)
			msgs = append(msgs, d.Msg)
		}

		assert.Equal(t, tc.msgs, msgs, "%s", tc.src)
	}
}

func TestCheckWriteTypes(t *testing.T) {
	p := mustParse(t, `void main() { cout << "s"; cout << 1; cout << true; }`)

	_, err := Analyze(context.Background(), p)
	require.NoError(t, err)

	var types []tp.Type

	ast.Walk(p, func(n ast.Node) bool {
		if w, ok := n.(*ast.Write); ok {
			types = append(types, w.Type)
		}

		return true
	})

	assert.Equal(t, []tp.Type{tp.String{}, tp.Int{}, tp.Bool{}}, types)
}
