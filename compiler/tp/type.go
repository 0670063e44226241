package tp

import "strings"

// WordSize is the size of every storage cell: ints, bools,
// string addresses, saved registers.
const WordSize = 4

type (
	Type interface {
		String() string
	}

	Int struct{}

	Bool struct{}

	String struct{}

	Void struct{}

	// Struct is the type of a variable declared with a struct type.
	Struct struct {
		Name string
	}

	// StructDef is the type of a struct name itself.
	StructDef struct {
		Name string
	}

	Func struct {
		In  []Type
		Out Type
	}

	// Error is produced by an ill-typed expression so that
	// one mistake is reported once.
	Error struct{}
)

// Basic maps a primitive type name to its type.
func Basic(name string) (Type, bool) {
	switch name {
	case "int":
		return Int{}, true
	case "bool":
		return Bool{}, true
	case "void":
		return Void{}, true
	}

	return nil, false
}

func Equal(a, b Type) bool {
	switch a := a.(type) {
	case Func:
		b, ok := b.(Func)
		if !ok || len(a.In) != len(b.In) || !Equal(a.Out, b.Out) {
			return false
		}

		for i := range a.In {
			if !Equal(a.In[i], b.In[i]) {
				return false
			}
		}

		return true
	case Error:
		return false
	case nil:
		return b == nil
	default:
		return a == b
	}
}

func IsError(t Type) bool {
	_, ok := t.(Error)
	return ok
}

func (Int) String() string    { return "int" }
func (Bool) String() string   { return "bool" }
func (String) String() string { return "string" }
func (Void) String() string   { return "void" }
func (Error) String() string  { return "<error>" }

func (x Struct) String() string    { return "struct " + x.Name }
func (x StructDef) String() string { return "struct " + x.Name + " {...}" }

func (x Func) String() string {
	var b strings.Builder

	for i, t := range x.In {
		if i != 0 {
			b.WriteString(",")
		}

		b.WriteString(t.String())
	}

	b.WriteString("->")

	if x.Out != nil {
		b.WriteString(x.Out.String())
	}

	return b.String()
}
