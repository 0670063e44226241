package sim

import (
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

type (
	opKind int

	operand struct {
		kind  opKind
		reg   int
		imm   int32
		label string
	}

	instr struct {
		op   string
		args []operand
		line int
	}

	// Program is assembled text: instructions plus an initialized data segment.
	Program struct {
		code []instr

		data   []byte
		text   map[string]int    // label -> instruction index
		labels map[string]uint32 // data label -> address
	}

	// SyntaxError is an assembly line the loader does not understand.
	SyntaxError struct {
		Line int
		Text string
		Msg  string
	}
)

const (
	oReg opKind = iota
	oImm
	oLabel
	oMem // imm(reg)
)

const (
	TextBase  = 0x00400000
	DataBase  = 0x10010000
	StackTop  = 0x7ffffffc
	MaxSteps  = 1_000_000
	wordBytes = 4
)

var regNames = []string{
	"$zero", "$at", "$v0", "$v1", "$a0", "$a1", "$a2", "$a3",
	"$t0", "$t1", "$t2", "$t3", "$t4", "$t5", "$t6", "$t7",
	"$s0", "$s1", "$s2", "$s3", "$s4", "$s5", "$s6", "$s7",
	"$t8", "$t9", "$k0", "$k1", "$gp", "$sp", "$fp", "$ra",
}

var regIndex = func() map[string]int {
	m := make(map[string]int, len(regNames))

	for i, n := range regNames {
		m[n] = i
	}

	return m
}()

const (
	rZero = 0
	rV0   = 2
	rA0   = 4
	rSP   = 29
	rFP   = 30
	rRA   = 31
)

// Assemble parses assembly text as produced by the code generator.
func Assemble(text []byte) (*Program, error) {
	p := &Program{
		text:   make(map[string]int),
		labels: make(map[string]uint32),
	}

	data := false

	for i, line := range strings.Split(string(text), "\n") {
		ln := i + 1

		line = stripComment(line)

		label, rest := splitLabel(line)
		rest = strings.TrimSpace(rest)

		if label != "" {
			if _, dup := p.text[label]; dup {
				return nil, p.errorf(ln, line, "duplicate label %q", label)
			}

			if _, dup := p.labels[label]; dup {
				return nil, p.errorf(ln, line, "duplicate label %q", label)
			}

			if data {
				p.labels[label] = DataBase + uint32(len(p.data))
			} else {
				p.text[label] = len(p.code)
			}
		}

		if rest == "" {
			continue
		}

		op, args := splitOp(rest)

		switch op {
		case ".data":
			data = true
			continue
		case ".text":
			data = false
			continue
		case ".globl":
			continue
		}

		if data {
			err := p.directive(op, args)
			if err != nil {
				return nil, p.errorf(ln, line, "%v", err)
			}

			continue
		}

		in := instr{op: op, line: ln}

		if args != "" {
			for _, a := range strings.Split(args, ",") {
				o, err := parseOperand(strings.TrimSpace(a))
				if err != nil {
					return nil, p.errorf(ln, line, "%v", err)
				}

				in.args = append(in.args, o)
			}
		}

		if err := checkShape(in); err != nil {
			return nil, p.errorf(ln, line, "%v", err)
		}

		p.code = append(p.code, in)
	}

	return p, nil
}

func (p *Program) directive(op, args string) (err error) {
	switch op {
	case ".align":
		n, err := strconv.Atoi(args)
		if err != nil || n < 0 || n > 8 {
			return errors.New("bad alignment: %q", args)
		}

		for len(p.data)%(1<<n) != 0 {
			p.data = append(p.data, 0)
		}
	case ".space":
		n, err := strconv.Atoi(args)
		if err != nil || n < 0 {
			return errors.New("bad size: %q", args)
		}

		p.data = append(p.data, make([]byte, n)...)
	case ".word":
		for _, a := range strings.Split(args, ",") {
			v, err := strconv.ParseInt(strings.TrimSpace(a), 0, 64)
			if err != nil {
				return errors.Wrap(err, "word")
			}

			p.data = appendWord(p.data, uint32(v))
		}
	case ".asciiz":
		s, err := unquote(args)
		if err != nil {
			return errors.Wrap(err, "asciiz")
		}

		p.data = append(p.data, s...)
		p.data = append(p.data, 0)
	default:
		return errors.New("unsupported data directive: %s", op)
	}

	return nil
}

func parseOperand(s string) (o operand, err error) {
	if s == "" {
		return o, errors.New("empty operand")
	}

	if i := strings.IndexByte(s, '('); i >= 0 && strings.HasSuffix(s, ")") {
		r, ok := regIndex[s[i+1:len(s)-1]]
		if !ok {
			return o, errors.New("bad register: %q", s[i+1:len(s)-1])
		}

		var off int64

		if i != 0 {
			off, err = strconv.ParseInt(s[:i], 0, 32)
			if err != nil {
				return o, errors.Wrap(err, "offset")
			}
		}

		return operand{kind: oMem, reg: r, imm: int32(off)}, nil
	}

	if s[0] == '$' {
		r, ok := regIndex[s]
		if !ok {
			return o, errors.New("bad register: %q", s)
		}

		return operand{kind: oReg, reg: r}, nil
	}

	if s[0] == '-' || s[0] >= '0' && s[0] <= '9' {
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return o, errors.Wrap(err, "immediate")
		}

		return operand{kind: oImm, imm: int32(v)}, nil
	}

	return operand{kind: oLabel, label: s}, nil
}

// Operand shapes: r register, i immediate, v register or immediate,
// a memory or label address, l label.
var shapes = map[string]string{
	"nop":     "",
	"syscall": "",
	"li":      "ri",
	"move":    "rr",
	"la":      "ra",
	"lw":      "ra",
	"sw":      "ra",
	"add":     "rrv",
	"addu":    "rrv",
	"addi":    "rri",
	"addiu":   "rri",
	"sub":     "rrv",
	"subu":    "rrv",
	"xori":    "rri",
	"mult":    "rr",
	"div":     "rr",
	"mflo":    "r",
	"mfhi":    "r",
	"b":       "l",
	"j":       "l",
	"jal":     "l",
	"jr":      "r",
	"beq":     "rvl",
	"bne":     "rvl",
	"blt":     "rvl",
	"bgt":     "rvl",
	"ble":     "rvl",
	"bge":     "rvl",
}

func checkShape(in instr) error {
	shape, ok := shapes[in.op]
	if !ok {
		return errors.New("unsupported instruction %q", in.op)
	}

	if len(in.args) != len(shape) {
		return errors.New("%s: want %d operands, got %d", in.op, len(shape), len(in.args))
	}

	for i, a := range in.args {
		var ok bool

		switch shape[i] {
		case 'r':
			ok = a.kind == oReg
		case 'i':
			ok = a.kind == oImm
		case 'v':
			ok = a.kind == oReg || a.kind == oImm
		case 'a':
			ok = a.kind == oMem || a.kind == oLabel
		case 'l':
			ok = a.kind == oLabel
		}

		if !ok {
			return errors.New("%s: bad operand %d", in.op, i+1)
		}
	}

	return nil
}

// stripComment cuts a trailing # comment outside of string literals.
func stripComment(l string) string {
	quoted := false

	for i := 0; i < len(l); i++ {
		switch {
		case quoted && l[i] == '\\':
			i++
		case l[i] == '"':
			quoted = !quoted
		case !quoted && l[i] == '#':
			return l[:i]
		}
	}

	return l
}

func splitLabel(l string) (label, rest string) {
	if l == "" || l[0] == ' ' || l[0] == '\t' {
		return "", l
	}

	i := strings.IndexByte(l, ':')
	if i < 0 {
		return "", l
	}

	return strings.TrimSpace(l[:i]), l[i+1:]
}

func splitOp(s string) (op, args string) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}

	return s[:i], strings.TrimSpace(s[i:])
}

func unquote(s string) ([]byte, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return nil, errors.New("bad string literal: %s", s)
	}

	s = s[1 : len(s)-1]

	b := make([]byte, 0, len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b = append(b, s[i])
			continue
		}

		i++
		if i == len(s) {
			return nil, errors.New("bad escape at the end of string")
		}

		switch s[i] {
		case 'n':
			b = append(b, '\n')
		case 't':
			b = append(b, '\t')
		case '"', '\\', '\'':
			b = append(b, s[i])
		default:
			return nil, errors.New("bad escape: \\%c", s[i])
		}
	}

	return b, nil
}

func appendWord(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (p *Program) errorf(ln int, text, format string, args ...any) SyntaxError {
	return SyntaxError{
		Line: ln,
		Text: strings.TrimSpace(text),
		Msg:  errors.New(format, args...).Error(),
	}
}

func (e SyntaxError) Error() string {
	return "line " + strconv.Itoa(e.Line) + ": " + e.Msg + ": " + e.Text
}
