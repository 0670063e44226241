package asm

import (
	"strconv"
	"strings"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/tlog"

	"github.com/kray10/project6/compiler/diag"
	"github.com/kray10/project6/compiler/set"
)

type (
	Reg   string
	Label string

	// Emitter is the only producer of assembly text.
	// It also keeps static operand-stack depth accounting:
	// Push and Pop move it, code that merges control flow
	// paths restores it with SetDepth.
	Emitter struct {
		b []byte

		label  int
		placed set.Bitmap

		depth int
	}
)

// Registers.
const (
	FP Reg = "$fp"
	SP Reg = "$sp"
	RA Reg = "$ra"
	V0 Reg = "$v0"
	V1 Reg = "$v1"
	A0 Reg = "$a0"
	T0 Reg = "$t0"
	T1 Reg = "$t1"
)

// Boolean encoding.
const (
	True  = 1
	False = 0
)

// System primitives, loaded into $v0 before syscall.
const (
	SysPrintInt    = 1
	SysPrintString = 4
	SysReadInt     = 5
	SysExit        = 10
)

// Word is the operand stack cell size.
const Word = 4

const maxlen = 4

func New() *Emitter { return NewEmitter(nil) }

// NewEmitter appends output to b.
func NewEmitter(b []byte) *Emitter {
	return &Emitter{b: b}
}

func (e *Emitter) Bytes() []byte { return e.b }

// NextLabel returns a fresh label: L0, L1, ...
func (e *Emitter) NextLabel() Label {
	l := Label("L" + strconv.Itoa(e.label))
	e.label++

	return l
}

// Unplaced returns labels from NextLabel that were never defined.
func (e *Emitter) Unplaced() (l []Label) {
	s := set.MakeBitmap(e.label)
	s.FillSet(0, e.label)
	s.AndNot(e.placed)

	s.Range(func(i int) bool {
		l = append(l, Label("L"+strconv.Itoa(i)))
		return true
	})

	return l
}

// place records a generated label definition.
// Defining one twice is a code generator defect.
func (e *Emitter) place(l Label) {
	n, ok := l.num()
	if !ok || n >= e.label {
		return
	}

	if e.placed.IsSet(n) {
		panic(diag.Internal("label %v defined twice", l))
	}

	e.placed.Set(n)
}

func (l Label) num() (int, bool) {
	if !strings.HasPrefix(string(l), "L") {
		return 0, false
	}

	n, err := strconv.Atoi(string(l[1:]))
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}

func (e *Emitter) Depth() int { return e.depth }

func (e *Emitter) SetDepth(d int) { e.depth = d }

// Gen writes an instruction with 0 to 3 operands.
func (e *Emitter) Gen(op string, args ...any) {
	e.GenComment(op, "", args...)
}

func (e *Emitter) GenComment(op, comment string, args ...any) {
	e.b = append(e.b, '\t')
	e.instr(op, comment, args)
}

// GenIndexed writes `op r, off(base)`.
func (e *Emitter) GenIndexed(op string, r, base Reg, off int, comment string) {
	e.b = append(e.b, '\t')
	e.b = append(e.b, op...)
	e.b = pad(e.b, op)
	e.b = hfmt.Appendf(e.b, "%v, %d(%v)", r, off, base)
	e.b = appendComment(e.b, comment)
	e.b = append(e.b, '\n')
}

// GenLabeled writes an instruction or directive on a label line.
func (e *Emitter) GenLabeled(l Label, op, comment string, args ...any) {
	e.place(l)

	e.b = append(e.b, l...)
	e.b = append(e.b, ":\t"...)
	e.instr(op, comment, args)
}

func (e *Emitter) Label(l Label, comment string) {
	e.place(l)

	e.b = append(e.b, l...)
	e.b = append(e.b, ':')
	e.b = appendComment(e.b, comment)
	e.b = append(e.b, '\n')
}

// Comment writes a comment-only line.
func (e *Emitter) Comment(c string) {
	e.b = append(e.b, '\t')
	e.b = appendComment(e.b, c)
	e.b = append(e.b, '\n')
}

func (e *Emitter) Push(r Reg) {
	e.GenIndexed("sw", r, SP, 0, "PUSH")
	e.Gen("subu", SP, SP, Word)

	e.depth++
	tlog.V("emit_stack").Printw("push", "reg", r, "depth", e.depth)
}

func (e *Emitter) Pop(r Reg) {
	e.GenIndexed("lw", r, SP, Word, "POP")
	e.Gen("addu", SP, SP, Word)

	e.depth--
	tlog.V("emit_stack").Printw("pop", "reg", r, "depth", e.depth)
}

func (e *Emitter) Data() { e.Gen(".data") }
func (e *Emitter) Text() { e.Gen(".text") }

func (e *Emitter) instr(op, comment string, args []any) {
	e.b = append(e.b, op...)

	for i, a := range args {
		if i == 0 {
			e.b = pad(e.b, op)
		} else {
			e.b = append(e.b, ", "...)
		}

		e.b = hfmt.Appendf(e.b, "%v", a)
	}

	e.b = appendComment(e.b, comment)
	e.b = append(e.b, '\n')
}

func pad(b []byte, op string) []byte {
	n := maxlen - len(op) + 2
	if n < 1 {
		n = 1
	}

	for i := 0; i < n; i++ {
		b = append(b, ' ')
	}

	return b
}

func appendComment(b []byte, c string) []byte {
	if c == "" {
		return b
	}

	b = append(b, "\t\t# "...)
	b = append(b, c...)

	return b
}
