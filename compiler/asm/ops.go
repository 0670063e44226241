package asm

// Global defines a zeroed global cell.
func (e *Emitter) Global(name string, size int) {
	e.Data()
	e.Gen(".align", 2)
	e.GenLabeled(GlobalLabel(name), ".space", "", size)
}

// GlobalLabel is the data label of a global variable.
func GlobalLabel(name string) Label { return Label("_" + name) }

// StringLit places raw (quoted) text into the data section
// and pushes its address.
func (e *Emitter) StringLit(raw string) Label {
	l := e.NextLabel()

	e.Data()
	e.GenLabeled(l, ".asciiz", "", raw)
	e.Text()

	e.Gen("la", T0, l)
	e.Push(T0)

	return l
}

func (e *Emitter) IntLit(v int32) {
	e.Gen("li", T0, v)
	e.Push(T0)
}

func (e *Emitter) BoolLit(v bool) {
	x := False
	if v {
		x = True
	}

	e.Gen("li", T0, x)
	e.Push(T0)
}

// Addr pushes the address of a variable.
func (e *Emitter) Addr(name string, global bool, off int) {
	if global {
		e.Gen("la", T0, GlobalLabel(name))
	} else {
		e.GenIndexed("la", T0, FP, off, "")
	}

	e.Push(T0)
}

// Load pushes the value of a variable.
func (e *Emitter) Load(name string, global bool, off int) {
	if global {
		e.Gen("lw", T0, GlobalLabel(name))
	} else {
		e.GenIndexed("lw", T0, FP, off, "")
	}

	e.Push(T0)
}

// Assign pops an address and a value, stores the value
// and pushes it back.
func (e *Emitter) Assign() {
	e.Pop(T1)
	e.Pop(T0)
	e.GenIndexed("sw", T0, T1, 0, "")
	e.Push(T0)
}

func (e *Emitter) Negate() {
	e.GenComment("li", "negate", T0, -1)
	e.Pop(T1)
	e.Mult(T0, T1, T0)
	e.Push(T0)
}

func (e *Emitter) Not() {
	e.Pop(T0)
	e.GenComment("xori", "not", T0, T0, True)
	e.Push(T0)
}

func (e *Emitter) Mult(a, b, res Reg) {
	e.Gen("mult", a, b)
	e.Gen("mflo", res)
}

func (e *Emitter) Div(a, b, res Reg) {
	e.Gen("div", a, b)
	e.Gen("mflo", res)
}

// Syscall invokes a numbered system primitive.
func (e *Emitter) Syscall(n int) {
	e.Gen("li", V0, n)
	e.Gen("syscall")
}

// Write pops a value and prints it.
func (e *Emitter) Write(str bool) {
	e.Pop(A0)

	if str {
		e.Syscall(SysPrintString)
	} else {
		e.Syscall(SysPrintInt)
	}
}
