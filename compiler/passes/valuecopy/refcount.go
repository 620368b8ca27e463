package valuecopy

import "github.com/ferrylang/ferry/compiler/ir"

// countRefs counts syntactic occurrences of each variable in one function
// body. Declarations are not occurrences, and nested function literals are
// not entered: their occurrences belong to their own pass instance.
func countRefs(fn *ir.FuncNode) map[ir.VarID]int {
	c := &refCounter{counts: make(map[ir.VarID]int)}
	for _, n := range fn.Body {
		ir.Walk(c, n)
	}
	return c.counts
}

type refCounter struct {
	counts map[ir.VarID]int
}

func (c *refCounter) Visit(node ir.Node) ir.Visitor {
	switch n := node.(type) {
	case *ir.FuncLitNode:
		return nil
	case *ir.NameNode:
		c.counts[n.ID]++
	}
	return c
}
