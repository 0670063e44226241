package sim

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	Config struct {
		MaxSteps int    // 0 means MaxSteps
		StackTop uint32 // 0 means StackTop

		Input  io.Reader
		Output io.Writer
	}

	// Machine executes an assembled Program.
	Machine struct {
		p *Program

		regs   [32]int32
		hi, lo int32

		mem map[uint32]byte

		pc    int
		steps int
		exit  bool

		in  *bufio.Reader
		out io.Writer

		maxSteps int
	}

	// RuntimeError is a fault of the executed program.
	RuntimeError struct {
		Line int
		Op   string
		Err  error
	}
)

var ErrStepLimit = errors.New("step limit exceeded")

// Run assembles and executes text.
func Run(ctx context.Context, text []byte, cfg Config) (m *Machine, err error) {
	p, err := Assemble(text)
	if err != nil {
		return nil, errors.Wrap(err, "assemble")
	}

	m, err = New(p, cfg)
	if err != nil {
		return nil, err
	}

	return m, m.Run(ctx)
}

func New(p *Program, cfg Config) (*Machine, error) {
	m := &Machine{
		p:        p,
		mem:      make(map[uint32]byte),
		out:      cfg.Output,
		maxSteps: cfg.MaxSteps,
	}

	if m.out == nil {
		m.out = io.Discard
	}

	if cfg.Input != nil {
		m.in = bufio.NewReader(cfg.Input)
	}

	if m.maxSteps == 0 {
		m.maxSteps = MaxSteps
	}

	top := cfg.StackTop
	if top == 0 {
		top = StackTop
	}

	m.regs[rSP] = int32(top)

	for i, c := range p.data {
		m.mem[DataBase+uint32(i)] = c
	}

	start, ok := p.text["__start"]
	if !ok {
		start, ok = p.text["main"]
	}

	if !ok {
		return nil, errors.New("no entry label")
	}

	m.pc = start

	return m, nil
}

func (m *Machine) Run(ctx context.Context) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "sim: run", "instrs", len(m.p.code), "data", len(m.p.data))
	defer tr.Finish("err", &err)

	trace := tr.If("sim_trace")

	for !m.exit {
		if m.steps == m.maxSteps {
			return errors.Wrap(ErrStepLimit, "after %d steps", m.steps)
		}

		if m.pc < 0 || m.pc >= len(m.p.code) {
			return errors.New("pc out of text: %#x", m.addrOf(m.pc))
		}

		in := &m.p.code[m.pc]

		if trace {
			tr.Printw("step", "line", in.line, "op", in.op, "sp", m.SP(), "t0", m.regs[8], "t1", m.regs[9])
		}

		m.steps++
		m.pc++

		err = m.exec(in)
		if err != nil {
			return RuntimeError{Line: in.line, Op: in.op, Err: err}
		}
	}

	tr.Printw("exited", "steps", m.steps, "sp", m.SP())

	return nil
}

func (m *Machine) exec(in *instr) (err error) {
	a := in.args

	switch in.op {
	case "nop":
	case "li":
		m.set(a[0], a[1].imm)
	case "move":
		m.set(a[0], m.val(a[1]))
	case "la":
		addr, err := m.addr(a[1])
		if err != nil {
			return err
		}

		m.set(a[0], int32(addr))
	case "lw":
		addr, err := m.addr(a[1])
		if err != nil {
			return err
		}

		v, err := m.load(addr)
		if err != nil {
			return err
		}

		m.set(a[0], v)
	case "sw":
		addr, err := m.addr(a[1])
		if err != nil {
			return err
		}

		return m.store(addr, m.val(a[0]))
	case "add", "addu", "addi", "addiu":
		m.set(a[0], m.val(a[1])+m.val(a[2]))
	case "sub", "subu":
		m.set(a[0], m.val(a[1])-m.val(a[2]))
	case "xori":
		m.set(a[0], m.val(a[1])^m.val(a[2]))
	case "mult":
		r := int64(m.val(a[0])) * int64(m.val(a[1]))

		m.lo = int32(r)
		m.hi = int32(r >> 32)
	case "div":
		d := m.val(a[1])
		if d == 0 {
			return errors.New("division by zero")
		}

		m.lo = m.val(a[0]) / d
		m.hi = m.val(a[0]) % d
	case "mflo":
		m.set(a[0], m.lo)
	case "mfhi":
		m.set(a[0], m.hi)
	case "b", "j":
		return m.jump(a[0])
	case "jal":
		m.regs[rRA] = int32(m.addrOf(m.pc))

		return m.jump(a[0])
	case "jr":
		addr := uint32(m.val(a[0]))
		if addr < TextBase || (addr-TextBase)%wordBytes != 0 {
			return errors.New("jump to bad address %#x", addr)
		}

		m.pc = int((addr - TextBase) / wordBytes)
	case "beq", "bne", "blt", "bgt", "ble", "bge":
		if branch(in.op, m.val(a[0]), m.val(a[1])) {
			return m.jump(a[2])
		}
	case "syscall":
		return m.syscall()
	default:
		panic(errors.New("instruction %q passed assembly unchecked", in.op))
	}

	return nil
}

func branch(op string, x, y int32) bool {
	switch op {
	case "beq":
		return x == y
	case "bne":
		return x != y
	case "blt":
		return x < y
	case "bgt":
		return x > y
	case "ble":
		return x <= y
	default: // bge
		return x >= y
	}
}

func (m *Machine) syscall() error {
	switch v := m.regs[rV0]; v {
	case 1:
		_, err := fmt.Fprintf(m.out, "%d", m.regs[rA0])
		return err
	case 4:
		s, err := m.cstring(uint32(m.regs[rA0]))
		if err != nil {
			return err
		}

		_, err = m.out.Write(s)

		return err
	case 5:
		if m.in == nil {
			return errors.New("read int: no input")
		}

		var x int32

		_, err := fmt.Fscan(m.in, &x)
		if err != nil {
			return errors.Wrap(err, "read int")
		}

		m.regs[rV0] = x
	case 10:
		m.exit = true
	default:
		return errors.New("unsupported syscall %d", v)
	}

	return nil
}

// val is a register or an immediate operand.
func (m *Machine) val(o operand) int32 {
	if o.kind == oImm {
		return o.imm
	}

	return m.regs[o.reg]
}

func (m *Machine) set(o operand, v int32) {
	if o.reg == rZero {
		return
	}

	m.regs[o.reg] = v
}

func (m *Machine) addr(o operand) (uint32, error) {
	switch o.kind {
	case oMem:
		return uint32(m.regs[o.reg] + o.imm), nil
	case oLabel:
		if a, ok := m.p.labels[o.label]; ok {
			return a, nil
		}

		if i, ok := m.p.text[o.label]; ok {
			return m.addrOf(i), nil
		}

		return 0, errors.New("undefined label %q", o.label)
	default:
		return 0, errors.New("not an address operand")
	}
}

func (m *Machine) jump(o operand) error {
	if o.kind != oLabel {
		return errors.New("jump target must be a label")
	}

	i, ok := m.p.text[o.label]
	if !ok {
		return errors.New("undefined label %q", o.label)
	}

	m.pc = i

	return nil
}

func (m *Machine) addrOf(pc int) uint32 {
	return TextBase + uint32(pc)*wordBytes
}

func (m *Machine) load(addr uint32) (int32, error) {
	if addr%wordBytes != 0 {
		return 0, errors.New("unaligned load at %#x", addr)
	}

	v := uint32(m.mem[addr]) | uint32(m.mem[addr+1])<<8 | uint32(m.mem[addr+2])<<16 | uint32(m.mem[addr+3])<<24

	return int32(v), nil
}

func (m *Machine) store(addr uint32, v int32) error {
	if addr%wordBytes != 0 {
		return errors.New("unaligned store at %#x", addr)
	}

	for i := uint32(0); i < wordBytes; i++ {
		m.mem[addr+i] = byte(uint32(v) >> (8 * i))
	}

	return nil
}

func (m *Machine) cstring(addr uint32) ([]byte, error) {
	var b []byte

	for {
		c, ok := m.mem[addr]
		if !ok {
			return nil, errors.New("string at %#x runs out of memory", addr)
		}

		if c == 0 {
			return b, nil
		}

		b = append(b, c)
		addr++
	}
}

// SP is the current stack pointer.
func (m *Machine) SP() uint32 { return uint32(m.regs[rSP]) }

// Reg returns a register value by name, like "$v0".
func (m *Machine) Reg(name string) (int32, bool) {
	i, ok := regIndex[name]
	if !ok {
		return 0, false
	}

	return m.regs[i], true
}

func (m *Machine) Steps() int   { return m.steps }
func (m *Machine) Exited() bool { return m.exit }

func (e RuntimeError) Error() string {
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Op, e.Err)
}

func (e RuntimeError) Unwrap() error { return e.Err }
