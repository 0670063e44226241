package symtab

import (
	"sort"

	"github.com/kray10/project6/compiler/diag"
)

type (
	Scope struct {
		syms map[string]Symbol
	}

	// Table is a stack of scopes. The last one is the innermost.
	Table struct {
		scopes []*Scope
	}
)

func NewScope() *Scope {
	return &Scope{
		syms: make(map[string]Symbol),
	}
}

func (s *Scope) Lookup(name string) (Symbol, bool) {
	sym, ok := s.syms[name]
	return sym, ok
}

func (s *Scope) Has(name string) bool {
	_, ok := s.syms[name]
	return ok
}

// Add inserts the symbol unless the name is already declared here.
func (s *Scope) Add(name string, sym Symbol) bool {
	if s.Has(name) {
		return false
	}

	s.syms[name] = sym

	return true
}

func (s *Scope) Len() int { return len(s.syms) }

// Names returns declared names in lexical order.
func (s *Scope) Names() []string {
	l := make([]string, 0, len(s.syms))

	for name := range s.syms {
		l = append(l, name)
	}

	sort.Strings(l)

	return l
}

func New() *Table { return &Table{} }

func (t *Table) EnterScope() {
	t.scopes = append(t.scopes, NewScope())
}

func (t *Table) ExitScope() {
	if len(t.scopes) == 0 {
		panic(diag.Internal("exit scope: no open scope"))
	}

	t.scopes[len(t.scopes)-1] = nil
	t.scopes = t.scopes[:len(t.scopes)-1]
}

func (t *Table) Depth() int { return len(t.scopes) }

func (t *Table) CurrentScope() *Scope {
	if len(t.scopes) == 0 {
		panic(diag.Internal("current scope: no open scope"))
	}

	return t.scopes[len(t.scopes)-1]
}

// Collides reports whether name is declared in the current scope only.
func (t *Table) Collides(name string) bool {
	return t.CurrentScope().Has(name)
}

// Add declares name in the current scope.
// It returns false if the name is already declared there.
func (t *Table) Add(name string, sym Symbol) bool {
	return t.CurrentScope().Add(name, sym)
}

// Lookup searches scopes from the innermost outward.
func (t *Table) Lookup(name string) (Symbol, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i].Lookup(name); ok {
			return sym, true
		}
	}

	return nil, false
}
