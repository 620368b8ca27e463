// Package analysis computes per-function summaries for the middle-end
// passes. Summaries are computed once per module before any rewriting; the
// resulting store is read-only for the rest of the compilation.
package analysis

import (
	"github.com/ferrylang/ferry/compiler/ir"
)

// Summary is the precomputed fact base for one function: which variables
// are mutated in place, which escape, which participate in assignments
// between plain variables, and what is known about the provenance of the
// result. Consumers never write to a Summary.
type Summary struct {
	Func   string
	Params []ir.VarID

	// Mutated holds variables written through: member, index, or
	// dereference stores, compound updates, and address exposure. A
	// whole-variable replacement does not count.
	Mutated map[ir.VarID]bool
	Escapes map[ir.VarID]bool

	// Aliases maps a source variable to a variable it was assigned into.
	// Consumers treat any participation, on either side, as aliasing.
	Aliases map[ir.VarID]ir.VarID

	// ResultVar names the formal parameter that every return yields
	// unmodified, if there is one.
	ResultVar *ir.VarID

	// FreshResult reports that every return yields a freshly constructed
	// aggregate.
	FreshResult bool
}

// Param returns the formal parameter at a positional index.
func (s *Summary) Param(i int) (ir.VarID, bool) {
	if i < 0 || i >= len(s.Params) {
		return ir.VarID{}, false
	}
	return s.Params[i], true
}

// ParamIndex returns the position of a formal parameter, or -1.
func (s *Summary) ParamIndex(id ir.VarID) int {
	for i, p := range s.Params {
		if p == id {
			return i
		}
	}
	return -1
}

// Aliased reports whether id participates in any recorded alias pair.
func (s *Summary) Aliased(id ir.VarID) bool {
	if _, ok := s.Aliases[id]; ok {
		return true
	}
	for _, to := range s.Aliases {
		if to == id {
			return true
		}
	}
	return false
}

// Store holds the summaries of a module's functions, keyed by name.
type Store struct {
	byFunc map[string]*Summary
}

func NewStore() *Store {
	return &Store{byFunc: make(map[string]*Summary)}
}

func (st *Store) Add(s *Summary) {
	st.byFunc[s.Func] = s
}

// Get returns the summary of a function, or nil when none was computed
// (an external or otherwise unknown callee).
func (st *Store) Get(fn string) *Summary {
	return st.byFunc[fn]
}

// AnalyzeModule summarizes every function in a module, nested literals
// included, so the store is complete before any pass runs.
func AnalyzeModule(mod *ir.Module) *Store {
	st := NewStore()
	for _, fn := range mod.Funcs {
		analyzeAll(st, fn)
	}
	return st
}

func analyzeAll(st *Store, fn *ir.FuncNode) {
	st.Add(Analyze(fn))
	c := &litCollector{}
	for _, n := range fn.Body {
		ir.Walk(c, n)
	}
	for _, lit := range c.lits {
		analyzeAll(st, lit.Func)
	}
}

// Analyze walks one function body and collects its summary. The analysis
// is conservative and flow-insensitive: a fact holds if any statement
// anywhere in the body establishes it. Nested function literals are not
// entered; each is summarized under its own name.
func Analyze(fn *ir.FuncNode) *Summary {
	s := &Summary{
		Func:    fn.Name,
		Params:  make([]ir.VarID, len(fn.Params)),
		Mutated: make(map[ir.VarID]bool),
		Escapes: make(map[ir.VarID]bool),
		Aliases: make(map[ir.VarID]ir.VarID),
	}
	for i, p := range fn.Params {
		s.Params[i] = p.ID
	}

	a := &analyzer{sum: s}
	for _, n := range fn.Body {
		ir.Walk(a, n)
	}

	if len(a.returns) > 0 {
		s.FreshResult = allFresh(a.returns)
		if id, ok := passThrough(a.returns, s); ok {
			s.ResultVar = &id
		}
	}

	return s
}

type analyzer struct {
	sum     *Summary
	returns []ir.Node
}

func (a *analyzer) Visit(node ir.Node) ir.Visitor {
	switch n := node.(type) {
	case *ir.FuncLitNode:
		// Separate scope, separate summary.
		return nil

	case *ir.AssignNode:
		// Whole-variable replacement is not an in-place mutation; writes
		// through a member, index, or dereference chain are, as are
		// compound updates.
		if target, ok := n.Target.(*ir.NameNode); ok {
			if n.Op != ir.ASSIGN {
				a.sum.Mutated[target.ID] = true
			}
		} else if root := rootVar(n.Target); root != nil {
			a.sum.Mutated[root.ID] = true
		}
		if n.Op == ir.ASSIGN {
			if src, ok := n.Val.(*ir.NameNode); ok {
				if dst, ok := n.Target.(*ir.NameNode); ok {
					a.sum.Aliases[src.ID] = dst.ID
				}
			}
		}

	case *ir.GetReferenceNode:
		// Address exposure: anything may be read or written through it.
		if root := rootVar(n.Item); root != nil {
			a.sum.Mutated[root.ID] = true
			a.sum.Escapes[root.ID] = true
		}

	case *ir.PassByRefNode:
		if root := rootVar(n.Item); root != nil {
			a.sum.Mutated[root.ID] = true
			a.sum.Escapes[root.ID] = true
		}

	case *ir.ReturnNode:
		a.returns = append(a.returns, n.Val)
		if name, ok := n.Val.(*ir.NameNode); ok {
			a.sum.Escapes[name.ID] = true
		}

	case *ir.CallNode:
		a.markArgEscapes(n.Arguments)

	case *ir.IndirectCallNode:
		a.markArgEscapes(n.Arguments)
	}

	return a
}

// markArgEscapes records that a variable handed to a callee may be
// retained by it. Without the callee's body this cannot be refined.
func (a *analyzer) markArgEscapes(args []ir.Node) {
	for _, arg := range args {
		if name, ok := arg.(*ir.NameNode); ok {
			a.sum.Escapes[name.ID] = true
		}
	}
}

// rootVar resolves the variable whose storage an lvalue chain ultimately
// names, or nil when the chain does not bottom out in a variable.
func rootVar(node ir.Node) *ir.NameNode {
	for {
		switch n := node.(type) {
		case *ir.NameNode:
			return n
		case *ir.LoadMemberNode:
			node = n.Target
		case *ir.LoadIndexNode:
			node = n.Target
		case *ir.DereferenceNode:
			node = n.Item
		case *ir.GetReferenceNode:
			node = n.Item
		default:
			return nil
		}
	}
}

func allFresh(returns []ir.Node) bool {
	for _, r := range returns {
		switch r.(type) {
		case *ir.NewNode, *ir.InitializeStructNode:
		default:
			return false
		}
	}
	return true
}

// passThrough reports the formal parameter that every return yields, as
// long as nothing in the body mutates it.
func passThrough(returns []ir.Node, s *Summary) (ir.VarID, bool) {
	var id ir.VarID
	for i, r := range returns {
		name, ok := r.(*ir.NameNode)
		if !ok || !name.Param {
			return ir.VarID{}, false
		}
		if i == 0 {
			id = name.ID
		} else if name.ID != id {
			return ir.VarID{}, false
		}
	}
	if s.Mutated[id] {
		return ir.VarID{}, false
	}
	return id, true
}

type litCollector struct {
	lits []*ir.FuncLitNode
}

func (c *litCollector) Visit(node ir.Node) ir.Visitor {
	if lit, ok := node.(*ir.FuncLitNode); ok {
		c.lits = append(c.lits, lit)
		return nil
	}
	return c
}
