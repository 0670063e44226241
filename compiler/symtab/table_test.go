package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kray10/project6/compiler/diag"
	"github.com/kray10/project6/compiler/tp"
)

func TestShadowing(t *testing.T) {
	tab := New()

	outer := NewVar("x", tp.Int{})
	inner := NewVar("x", tp.Bool{})

	tab.EnterScope()
	require.True(t, tab.Add("x", outer))

	tab.EnterScope()
	assert.False(t, tab.Collides("x"))
	require.True(t, tab.Add("x", inner))

	sym, ok := tab.Lookup("x")
	require.True(t, ok)
	assert.Same(t, inner, sym)

	tab.ExitScope()

	sym, ok = tab.Lookup("x")
	require.True(t, ok)
	assert.Same(t, outer, sym)
}

func TestAddCollides(t *testing.T) {
	tab := New()
	tab.EnterScope()

	require.True(t, tab.Add("f", &FuncSymbol{Name: "f"}))
	assert.True(t, tab.Collides("f"))
	assert.False(t, tab.Add("f", NewVar("f", tp.Int{})))

	_, ok := tab.Lookup("g")
	assert.False(t, ok)

	assert.Equal(t, []string{"f"}, tab.CurrentScope().Names())
}

func TestExitScopeUnderflow(t *testing.T) {
	defer func() {
		p := recover()

		ie, ok := p.(diag.InternalError)
		require.True(t, ok, "panic value: %v", p)
		assert.Contains(t, ie.Msg, "no open scope")
	}()

	New().ExitScope()
}

func TestOffsetOnce(t *testing.T) {
	v := NewVar("a", tp.Int{})

	assert.False(t, v.Placed())
	assert.Panics(t, func() { v.Offset() })

	v.SetOffset(-8)
	assert.Equal(t, -8, v.Offset())
	assert.Panics(t, func() { v.SetOffset(-12) })

	g := NewVar("g", tp.Int{})
	g.MarkGlobal()
	assert.NotPanics(t, func() { g.Offset() })
}

func TestFuncSymbolType(t *testing.T) {
	f := &FuncSymbol{
		Name:   "f",
		Params: []*VarSymbol{NewVar("a", tp.Int{}), NewVar("b", tp.Bool{})},
		Ret:    NewVar("", tp.Int{}),
	}

	assert.True(t, tp.Equal(tp.Func{In: []tp.Type{tp.Int{}, tp.Bool{}}, Out: tp.Int{}}, f.SymbolType()))
	assert.Equal(t, "int,bool->int", f.SymbolType().String())
}

func TestStructFields(t *testing.T) {
	s := NewStruct("P")

	require.True(t, s.AddField("x", NewVar("x", tp.Int{})))
	require.True(t, s.AddField("y", NewVar("y", tp.Int{})))
	assert.False(t, s.AddField("x", NewVar("x", tp.Bool{})))

	assert.Equal(t, []string{"x", "y"}, s.Order)

	v := NewStructVar("p", s)
	assert.Same(t, s, v.Struct)
	assert.Equal(t, tp.Struct{Name: "P"}, v.Type)
}
