package symtab

import (
	"github.com/kray10/project6/compiler/diag"
	"github.com/kray10/project6/compiler/tp"
)

// EntryPoint is the name of the function program execution starts from.
const EntryPoint = "main"

type (
	Symbol interface {
		SymbolName() string
		SymbolType() tp.Type
		MarkGlobal()
		IsGlobal() bool
	}

	VarSymbol struct {
		Name string
		Type tp.Type

		// Struct is set when Type is a tp.Struct.
		Struct *StructSymbol

		Global bool

		off    int
		placed bool
	}

	FuncSymbol struct {
		Name string

		Params []*VarSymbol
		Ret    *VarSymbol

		FormalsSize int
		LocalsSize  int

		Global bool
	}

	StructSymbol struct {
		Name string

		Fields map[string]*VarSymbol
		Order  []string

		Global bool
	}
)

func NewVar(name string, t tp.Type) *VarSymbol {
	return &VarSymbol{
		Name: name,
		Type: t,
	}
}

func NewStructVar(name string, s *StructSymbol) *VarSymbol {
	return &VarSymbol{
		Name:   name,
		Type:   tp.Struct{Name: s.Name},
		Struct: s,
	}
}

func NewStruct(name string) *StructSymbol {
	return &StructSymbol{
		Name:   name,
		Fields: make(map[string]*VarSymbol),
	}
}

// SetOffset assigns the frame offset. It is done exactly once.
func (s *VarSymbol) SetOffset(off int) {
	if s.placed {
		panic(diag.Internal("offset of %q assigned twice: %d then %d", s.Name, s.off, off))
	}

	s.off = off
	s.placed = true
}

// Offset is the byte offset relative to the frame pointer.
func (s *VarSymbol) Offset() int {
	if !s.placed && !s.Global {
		panic(diag.Internal("offset of %q read before it is assigned", s.Name))
	}

	return s.off
}

func (s *VarSymbol) Placed() bool { return s.placed }

func (s *VarSymbol) SymbolName() string  { return s.Name }
func (s *VarSymbol) SymbolType() tp.Type { return s.Type }
func (s *VarSymbol) MarkGlobal()         { s.Global = true }
func (s *VarSymbol) IsGlobal() bool      { return s.Global }

func (s *FuncSymbol) SymbolName() string { return s.Name }

func (s *FuncSymbol) SymbolType() tp.Type {
	f := tp.Func{
		In:  make([]tp.Type, len(s.Params)),
		Out: tp.Void{},
	}

	for i, p := range s.Params {
		f.In[i] = p.Type
	}

	if s.Ret != nil {
		f.Out = s.Ret.Type
	}

	return f
}

func (s *FuncSymbol) MarkGlobal()    { s.Global = true }
func (s *FuncSymbol) IsGlobal() bool { return s.Global }

func (s *StructSymbol) SymbolName() string  { return s.Name }
func (s *StructSymbol) SymbolType() tp.Type { return tp.StructDef{Name: s.Name} }
func (s *StructSymbol) MarkGlobal()         { s.Global = true }
func (s *StructSymbol) IsGlobal() bool      { return s.Global }

// AddField fails if a field with the same name is already there.
func (s *StructSymbol) AddField(name string, f *VarSymbol) bool {
	if _, ok := s.Fields[name]; ok {
		return false
	}

	s.Fields[name] = f
	s.Order = append(s.Order, name)

	return true
}

func (s *StructSymbol) Field(name string) (*VarSymbol, bool) {
	f, ok := s.Fields[name]
	return f, ok
}
