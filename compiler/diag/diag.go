package diag

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/tlwire"
)

type (
	// Pos is a 1-based source position. Zero Pos means the
	// diagnostic belongs to the whole program.
	Pos struct {
		Line int
		Col  int
	}

	Kind int

	Diagnostic struct {
		Pos  Pos
		Kind Kind
		Msg  string

		seq int
	}

	// Reporter collects user-facing diagnostics of one pass.
	// Each one is logged as soon as it is reported.
	Reporter struct {
		list []Diagnostic
	}

	// List is the error returned by a pass that reported diagnostics.
	// It is ordered by position; position-less entries go last.
	List []Diagnostic

	// InternalError is a compiler defect, never a property of the
	// compiled program. It is raised with panic.
	InternalError struct {
		Msg string
		PC  loc.PC
	}
)

const (
	_ Kind = iota
	UndeclaredIdentifier
	MultiplyDeclared
	BadVoidType
	UndefinedType
	BadDotLeftHandSide
	BadDotRightHandSide
	NoEntryPoint
	TypeError
)

var kindNames = []string{
	UndeclaredIdentifier: "UndeclaredIdentifier",
	MultiplyDeclared:     "MultiplyDeclared",
	BadVoidType:          "BadVoidType",
	UndefinedType:        "UndefinedType",
	BadDotLeftHandSide:   "BadDotLeftHandSide",
	BadDotRightHandSide:  "BadDotRightHandSide",
	NoEntryPoint:         "NoEntryPoint",
	TypeError:            "TypeError",
}

var kindMessages = []string{
	UndeclaredIdentifier: "Undeclared identifier",
	MultiplyDeclared:     "Multiply declared identifier",
	BadVoidType:          "Non-function declared void",
	UndefinedType:        "Invalid name of struct type",
	BadDotLeftHandSide:   "Dot-access of non-struct type",
	BadDotRightHandSide:  "Invalid struct field name",
	NoEntryPoint:         "No main function",
	TypeError:            "Type error",
}

func (k Kind) String() string {
	if k <= 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}

	return kindNames[k]
}

// Message is the default human-readable text for the kind.
func (k Kind) Message() string {
	if k <= 0 || int(k) >= len(kindMessages) {
		return k.String()
	}

	return kindMessages[k]
}

func (p Pos) IsZero() bool { return p == Pos{} }

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

func (p Pos) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt64(b, "line", int64(p.Line))
	b = e.AppendKeyInt64(b, "col", int64(p.Col))

	return b
}

func (d Diagnostic) Error() string {
	if d.Pos.IsZero() {
		return d.Msg
	}

	return fmt.Sprintf("%v: %s", d.Pos, d.Msg)
}

// Report records a diagnostic with the kind's default message.
func (r *Reporter) Report(ctx context.Context, pos Pos, kind Kind) {
	r.report(ctx, pos, kind, kind.Message())
}

func (r *Reporter) Reportf(ctx context.Context, pos Pos, kind Kind, format string, args ...any) {
	r.report(ctx, pos, kind, fmt.Sprintf(format, args...))
}

func (r *Reporter) report(ctx context.Context, pos Pos, kind Kind, msg string) {
	d := Diagnostic{
		Pos:  pos,
		Kind: kind,
		Msg:  msg,
		seq:  len(r.list),
	}

	r.list = append(r.list, d)

	tlog.SpanFromContext(ctx).Printw("diagnostic", "pos", pos, "kind", kind.String(), "msg", d.Msg, "from", loc.Caller(2))
}

func (r *Reporter) Len() int { return len(r.list) }

// Diagnostics returns diagnostics in report order.
func (r *Reporter) Diagnostics() []Diagnostic { return r.list }

// Err returns nil if nothing was reported and the ordered List otherwise.
func (r *Reporter) Err() error {
	if len(r.list) == 0 {
		return nil
	}

	return Sorted(r.list)
}

// Sorted orders diagnostics by position keeping report order for ties.
func Sorted(ds []Diagnostic) List {
	h := heap.Heap[Diagnostic]{Less: diagLess}

	for _, d := range ds {
		h.Push(d)
	}

	l := make(List, 0, len(ds))

	for h.Len() != 0 {
		l = append(l, h.Pop())
	}

	return l
}

func diagLess(d []Diagnostic, i, j int) bool {
	a, b := d[i], d[j]

	if az, bz := a.Pos.IsZero(), b.Pos.IsZero(); az != bz {
		return bz
	}

	if a.Pos.Line != b.Pos.Line {
		return a.Pos.Line < b.Pos.Line
	}

	if a.Pos.Col != b.Pos.Col {
		return a.Pos.Col < b.Pos.Col
	}

	return a.seq < b.seq
}

func (l List) Error() string {
	var b strings.Builder

	for i, d := range l {
		if i != 0 {
			b.WriteByte('\n')
		}

		b.WriteString(d.Error())
	}

	return b.String()
}

// Count returns the number of diagnostics of the given kind.
func (l List) Count(k Kind) (n int) {
	for _, d := range l {
		if d.Kind == k {
			n++
		}
	}

	return n
}

// AsList finds a List in the error chain.
func AsList(err error) (l List, ok bool) {
	ok = errors.As(err, &l)

	return l, ok
}

// Internal builds an InternalError pointing at the caller.
func Internal(format string, args ...any) InternalError {
	return InternalError{
		Msg: fmt.Sprintf(format, args...),
		PC:  loc.Caller(1),
	}
}

func (e InternalError) Error() string {
	if e.PC == 0 {
		return "internal error: " + e.Msg
	}

	_, file, line := e.PC.NameFileLine()

	return fmt.Sprintf("internal error: %s (at %s:%d)", e.Msg, filepath.Base(file), line)
}
