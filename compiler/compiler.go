package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/kray10/project6/compiler/analyze"
	"github.com/kray10/project6/compiler/ast"
	"github.com/kray10/project6/compiler/back"
	"github.com/kray10/project6/compiler/diag"
	"github.com/kray10/project6/compiler/parse"
)

// CompileFile compiles src and writes assembly to dst.
// Nothing is written if compilation fails.
func CompileFile(ctx context.Context, src, dst string) (err error) {
	text, err := os.ReadFile(src)
	if err != nil {
		return errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", src)

	obj, err := Compile(ctx, src, text)
	if err != nil {
		return err
	}

	err = os.WriteFile(dst, obj, 0o644)
	if err != nil {
		return errors.Wrap(err, "write file")
	}

	return nil
}

func Compile(ctx context.Context, name string, text []byte) (obj []byte, err error) {
	defer recoverInternal(&err)

	x, err := parse.Parse(ctx, name, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse text")
	}

	err = Analyze(ctx, x)
	if err != nil {
		return nil, err
	}

	obj, err = back.New().CompileProgram(ctx, nil, x)
	if err != nil {
		return nil, errors.Wrap(err, "compile")
	}

	return obj, nil
}

// Analyze runs the semantic passes over a parsed program.
func Analyze(ctx context.Context, x *ast.Program) (err error) {
	defer recoverInternal(&err)

	_, err = analyze.Analyze(ctx, x)
	if err != nil {
		return errors.Wrap(err, "analyze")
	}

	return nil
}

// recoverInternal turns a compiler defect into an error.
// Any other panic is not ours.
func recoverInternal(errp *error) {
	p := recover()
	if p == nil {
		return
	}

	ie, ok := p.(diag.InternalError)
	if !ok {
		panic(p)
	}

	*errp = ie
}
