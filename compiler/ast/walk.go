package ast

import "github.com/kray10/project6/compiler/diag"

// Walk visits n and its children depth-first, left to right.
// Children are skipped when f returns false.
func Walk(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}

	switch n := n.(type) {
	case *Program:
		for _, d := range n.Decls {
			Walk(d, f)
		}
	case *VarDecl:
		Walk(n.Name, f)
	case *Formal:
		Walk(n.Name, f)
	case *StructDecl:
		Walk(n.Name, f)

		for _, d := range n.Fields {
			Walk(d, f)
		}
	case *FnDecl:
		Walk(n.Name, f)

		for _, p := range n.Params {
			Walk(p, f)
		}

		Walk(n.Body, f)
	case *Block:
		for _, d := range n.Decls {
			Walk(d, f)
		}

		for _, s := range n.Stmts {
			Walk(s, f)
		}
	case *AssignStmt:
		Walk(n.Assign, f)
	case *IncDec:
		Walk(n.X, f)
	case *Read:
		Walk(n.X, f)
	case *Write:
		Walk(n.X, f)
	case *If:
		Walk(n.Cond, f)
		Walk(n.Body, f)
	case *IfElse:
		Walk(n.Cond, f)
		Walk(n.Then, f)
		Walk(n.Else, f)
	case *While:
		Walk(n.Cond, f)
		Walk(n.Body, f)
	case *CallStmt:
		Walk(n.Call, f)
	case *Return:
		if n.X != nil {
			Walk(n.X, f)
		}
	case *IntLit, *StrLit, *BoolLit, *Ident:
	case *DotAccess:
		Walk(n.X, f)
		Walk(n.Field, f)
	case *Assign:
		Walk(n.LHS, f)
		Walk(n.RHS, f)
	case *Call:
		Walk(n.Fn, f)

		for _, a := range n.Args {
			Walk(a, f)
		}
	case *Unary:
		Walk(n.X, f)
	case *Binary:
		Walk(n.L, f)
		Walk(n.R, f)
	default:
		panic(diag.Internal("walk: unexpected node %T", n))
	}
}
