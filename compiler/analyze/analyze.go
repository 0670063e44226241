package analyze

import (
	"context"

	"tlog.app/go/errors"

	"github.com/kray10/project6/compiler/ast"
	"github.com/kray10/project6/compiler/symtab"
)

// Analyze resolves names and then checks types.
// Types are checked only if resolution succeeded.
func Analyze(ctx context.Context, p *ast.Program) (globals *symtab.Scope, err error) {
	globals, err = Resolve(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "resolve")
	}

	err = Check(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "check")
	}

	return globals, nil
}
