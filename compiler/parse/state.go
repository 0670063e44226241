package parse

import (
	"context"
	"fmt"
	"os"
	"sort"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/kray10/project6/compiler/ast"
	"github.com/kray10/project6/compiler/diag"
)

type (
	State struct {
		b []byte // all files concatenated

		files []file
	}

	file struct {
		base int
		size int
		name string

		lines []int // line start offsets in State.b
	}

	SyntaxError struct {
		File string
		Pos  diag.Pos
		Msg  string
	}
)

func ParseFile(ctx context.Context, name string) (*ast.Program, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Parse(ctx, name, text)
}

func Parse(ctx context.Context, name string, text []byte) (*ast.Program, error) {
	s := New()

	s.AddFile(name, text)

	return s.Parse(ctx)
}

func New() *State {
	return &State{}
}

func (s *State) AddFile(name string, text []byte) {
	f := file{
		name:  name,
		base:  len(s.b),
		size:  len(text),
		lines: []int{len(s.b)},
	}

	s.b = append(s.b, text...)

	// keep tokens from running across file boundaries
	if len(text) != 0 && text[len(text)-1] != '\n' {
		s.b = append(s.b, '\n')
	}

	for i, c := range s.b[f.base:] {
		if c == '\n' {
			f.lines = append(f.lines, f.base+i+1)
		}
	}

	s.files = append(s.files, f)
}

func (s *State) Text(pos, end int) []byte {
	return s.b[pos:end]
}

// Pos converts an offset into a file line and column.
func (s *State) Pos(off int) (name string, p diag.Pos) {
	if len(s.files) == 0 {
		return "", diag.Pos{Line: 1, Col: off + 1}
	}

	fi := sort.Search(len(s.files), func(i int) bool {
		return s.files[i].base > off
	}) - 1

	if fi < 0 {
		fi = 0
	}

	f := &s.files[fi]

	li := sort.Search(len(f.lines), func(i int) bool {
		return f.lines[i] > off
	}) - 1

	if li < 0 {
		li = 0
	}

	return f.name, diag.Pos{
		Line: li + 1,
		Col:  off - f.lines[li] + 1,
	}
}

func (s *State) Parse(ctx context.Context) (x *ast.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse", "files", len(s.files), "size", len(s.b))
	defer tr.Finish("err", &err)

	toks, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	if tr.If("dump_tokens") {
		for _, t := range toks {
			tr.Printw("token", "kind", t.kind.String(), "text", t.text, "pos", t.pos)
		}
	}

	p := &parser{
		s:    s,
		toks: toks,
	}

	return p.program(ctx)
}

func (s *State) errorf(off int, format string, args ...any) SyntaxError {
	name, pos := s.Pos(off)

	return SyntaxError{
		File: name,
		Pos:  pos,
		Msg:  fmt.Sprintf(format, args...),
	}
}

func (e SyntaxError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%v: syntax error: %s", e.Pos, e.Msg)
	}

	return fmt.Sprintf("%s:%v: syntax error: %s", e.File, e.Pos, e.Msg)
}
