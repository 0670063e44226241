package diag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"
)

func TestReporterOrder(t *testing.T) {
	ctx := context.Background()

	var r Reporter

	require.NoError(t, r.Err())

	r.Report(ctx, Pos{}, NoEntryPoint)
	r.Report(ctx, Pos{Line: 3, Col: 5}, UndeclaredIdentifier)
	r.Reportf(ctx, Pos{Line: 1, Col: 9}, TypeError, "Type mismatch")
	r.Report(ctx, Pos{Line: 3, Col: 5}, MultiplyDeclared)

	assert.Equal(t, 4, r.Len())

	err := r.Err()
	require.Error(t, err)

	l, ok := AsList(err)
	require.True(t, ok)

	kinds := make([]Kind, len(l))
	for i, d := range l {
		kinds[i] = d.Kind
	}

	assert.Equal(t, []Kind{TypeError, UndeclaredIdentifier, MultiplyDeclared, NoEntryPoint}, kinds)
	assert.Equal(t, 1, l.Count(NoEntryPoint))

	assert.Equal(t, ""+
		"1:9: Type mismatch\n"+
		"3:5: Undeclared identifier\n"+
		"3:5: Multiply declared identifier\n"+
		"No main function",
		err.Error())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "BadDotRightHandSide", BadDotRightHandSide.String())
	assert.Equal(t, "Invalid struct field name", BadDotRightHandSide.Message())
	assert.Equal(t, "Kind(100)", Kind(100).String())
}

func TestInternal(t *testing.T) {
	e := Internal("bad %v", 1)

	assert.Equal(t, "bad 1", e.Msg)
	assert.Contains(t, e.Error(), "internal error: bad 1 (at diag_test.go:")
}

func TestAsListMissing(t *testing.T) {
	_, ok := AsList(Internal("x"))
	assert.False(t, ok)

	_, ok = AsList(nil)
	assert.False(t, ok)
}

func TestAsListWrapped(t *testing.T) {
	var r Reporter

	r.Report(context.Background(), Pos{Line: 2, Col: 1}, UndefinedType)

	err := errors.Wrap(errors.Wrap(r.Err(), "resolve"), "analyze")

	l, ok := AsList(err)
	require.True(t, ok)
	require.Len(t, l, 1)
	assert.Equal(t, UndefinedType, l[0].Kind)
}
