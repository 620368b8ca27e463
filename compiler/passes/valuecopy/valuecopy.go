// Package valuecopy rewrites function bodies so that Fir's value semantics
// survive lowering to a reference-only target. In the target, assigning or
// passing a value-typed aggregate shares storage; this pass wraps an
// operand in an explicit copy node at each point where that sharing would
// be observable, and leaves it bare wherever a copy is provably redundant.
//
// The pass consumes the per-function summaries of package analysis as a
// finished, read-only fact base and never recomputes them. Decisions are
// pure functions of the tree, the summaries, and the type metadata; every
// unresolvable case defaults to copying.
package valuecopy

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/ferrylang/ferry/compiler/analysis"
	"github.com/ferrylang/ferry/compiler/ir"
)

// Options configure a pass run. Optimize enables copy elision; with it off
// every structurally copyable operand is wrapped, a maximally conservative
// baseline used for differential testing. Debug logs every insertion.
type Options struct {
	Optimize bool
	Debug    bool
}

// Pass rewrites one function body. Construct one instance per function;
// instances share only the read-only summary store, so separate instances
// may run concurrently.
type Pass struct {
	fn    *ir.FuncNode
	sum   *analysis.Summary
	store *analysis.Store
	refs  map[ir.VarID]int
	opts  Options
}

// NewPass prepares a pass over fn: counts the body's variable references
// and fetches the function's summary once.
func NewPass(fn *ir.FuncNode, store *analysis.Store, opts Options) *Pass {
	return &Pass{
		fn:    fn,
		sum:   store.Get(fn.Name),
		store: store,
		refs:  countRefs(fn),
		opts:  opts,
	}
}

// Rewrite runs the value-copy pass over one function and returns it.
// Nested function literals are rewritten by freshly constructed instances
// with their own reference counts and summaries.
func Rewrite(fn *ir.FuncNode, store *analysis.Store, opts Options) *ir.FuncNode {
	ir.Walk(NewPass(fn, store, opts), fn)
	return fn
}

// RewriteModule rewrites every top-level function of a module. With jobs
// greater than one the functions are rewritten concurrently; no locking is
// needed because instances share only the immutable store.
func RewriteModule(ctx context.Context, mod *ir.Module, store *analysis.Store, opts Options, jobs int) error {
	if jobs <= 1 {
		for _, fn := range mod.Funcs {
			Rewrite(fn, store, opts)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, jobs)
	for _, fn := range mod.Funcs {
		fn := fn
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}
			Rewrite(fn, store, opts)
			return nil
		})
	}
	return g.Wait()
}

// Visit applies the rewrite rule for the node's kind. A wrap happens
// before Walk descends into the node's children, so an inserted copy node
// is never re-examined as a fresh candidate.
func (p *Pass) Visit(node ir.Node) ir.Visitor {
	switch n := node.(type) {
	case *ir.FuncLitNode:
		// Separate identifier namespace: fresh instance, no shared counts.
		Rewrite(n.Func, p.store, p.opts)
		return nil

	case *ir.InitializeStructNode:
		for _, f := range n.Fields {
			if p.IsCopyNeeded(f.Value) {
				f.Value = p.wrap(f.Value, "field init")
			}
		}

	case *ir.CallNode:
		sum := p.store.Get(n.Function)
		for i, arg := range n.Arguments {
			if p.IsParameterCopyNeeded(sum, i, arg) {
				n.Arguments[i] = p.wrap(arg, "call "+n.Function)
			}
		}

	case *ir.IndirectCallNode:
		// The callee is not statically known, so the parameter-level
		// refinement is forfeit.
		for i, arg := range n.Arguments {
			if p.IsCopyNeeded(arg) {
				n.Arguments[i] = p.wrap(arg, "indirect call")
			}
		}

	case *ir.AssignNode:
		if n.Op != ir.ASSIGN {
			break
		}
		if !p.IsCopyNeeded(n.Val) {
			break
		}
		// A right-hand side that references a variable mutated somewhere
		// in this function may be a snapshot; it must not silently track
		// later writes to its source, however quiet the target is.
		if p.mutatedInside(n.Val) || p.IsCopyNeededForAssignmentTarget(n.Target) {
			n.Val = p.wrap(n.Val, "assign")
		}
	}

	return p
}

func (p *Pass) wrap(val ir.Node, site string) ir.Node {
	if p.opts.Debug {
		log.Printf("valuecopy: %s: %s: copy %v", p.fn.Name, site, val)
	}
	return &ir.CopyNode{Val: val}
}

// mutatedInside reports whether any variable referenced in the subtree is
// recorded as mutated in the function's summary.
func (p *Pass) mutatedInside(node ir.Node) bool {
	if p.sum == nil {
		return false
	}
	s := &mutScan{sum: p.sum}
	ir.Walk(s, node)
	return s.found
}

type mutScan struct {
	sum   *analysis.Summary
	found bool
}

func (s *mutScan) Visit(node ir.Node) ir.Visitor {
	if s.found {
		return nil
	}
	switch n := node.(type) {
	case *ir.FuncLitNode:
		return nil
	case *ir.NameNode:
		if s.sum.Mutated[n.ID] {
			s.found = true
			return nil
		}
	}
	return s
}
