package valuecopy

import (
	"github.com/ferrylang/ferry/compiler/analysis"
	"github.com/ferrylang/ferry/compiler/ir"
	"github.com/ferrylang/ferry/compiler/types"
)

// IsCopyNeeded decides whether evaluating expr as a value-typed operand
// requires an explicit copy. The decision is pure; unresolvable inputs
// default toward copying.
func (p *Pass) IsCopyNeeded(expr ir.Node) bool {
	if expr == nil || isNull(expr) {
		return false
	}
	expr = unwrapRefs(expr)

	apparent, _ := types.Dereference(ir.TypeOf(expr))
	original := apparent
	if cast, ok := expr.(*ir.TypeCastNode); ok {
		original, _ = types.Dereference(ir.TypeOf(cast.Val))
	}
	// Reference types alias by design; nothing to defend.
	if !types.IsValue(apparent) && !types.IsValue(original) {
		return false
	}
	// The nullable wrapper's payload semantics are already value-like.
	if types.IsNullable(apparent) {
		return false
	}

	switch expr.(type) {
	case *ir.ConstantNode, *ir.NewNode, *ir.InitializeStructNode:
		// Freshly owned.
		return false
	case *ir.PassByRefNode:
		// Already explicitly indirected.
		return false
	case *ir.CopyNode:
		// Already an independent duplicate. This also keeps the rewrite
		// idempotent: a wrapped operand is never wrapped again.
		return false
	}

	if !p.opts.Optimize {
		return true
	}

	if p.IsImmutable(expr) {
		return false
	}

	// A parameter used exactly once and never aliased cannot be observed
	// to diverge from a copy of itself.
	if name, ok := expr.(*ir.NameNode); ok {
		if name.Param && !name.ByRef && p.refs[name.ID] == 1 &&
			p.sum != nil && !p.sum.Aliased(name.ID) {
			return false
		}
	}

	if call, ok := expr.(*ir.CallNode); ok {
		if sum := p.store.Get(call.Function); sum != nil {
			if sum.FreshResult {
				return false
			}
			// A pass-through result is exactly as safe as the argument
			// that flowed through.
			if sum.ResultVar != nil {
				if i := sum.ParamIndex(*sum.ResultVar); i >= 0 && i < len(call.Arguments) {
					return p.IsCopyNeeded(call.Arguments[i])
				}
			}
		}
	}

	return true
}

// IsImmutable reports whether expr reads through a member chain marked
// immutable. The marking is contagious through the chain: an immutable
// field of a mutable container and a mutable field reached only through an
// immutable container are both copy-exempt at this granularity.
func (p *Pass) IsImmutable(expr ir.Node) bool {
	expr = unwrapRefs(expr)

	switch n := expr.(type) {
	case *ir.LoadMemberNode:
		if markedImmutable(n) {
			return true
		}
		return p.IsImmutable(n.Target)
	case *ir.LoadIndexNode:
		return p.IsImmutable(n.Target)
	}
	return false
}

// IsCopyNeededForAssignmentTarget decides whether storing into target is
// volatile enough that the source value must be defended with a copy.
func (p *Pass) IsCopyNeededForAssignmentTarget(target ir.Node) bool {
	if !p.opts.Optimize {
		return true
	}
	if p.IsImmutable(target) {
		return false
	}
	if name, ok := target.(*ir.NameNode); ok {
		return p.sum == nil || p.sum.Mutated[name.ID]
	}
	return true
}

// IsParameterCopyNeeded decides whether the argument at position argIndex
// must be copied before the call, layering the callee's per-parameter
// facts on top of the structural verdict. sum may be nil for callees with
// no computable summary.
func (p *Pass) IsParameterCopyNeeded(sum *analysis.Summary, argIndex int, arg ir.Node) bool {
	if !p.IsCopyNeeded(arg) {
		return false
	}
	if !p.opts.Optimize {
		return true
	}
	if sum == nil {
		// Unknown callee: assume it both mutates and retains the argument.
		return true
	}
	param, ok := sum.Param(argIndex)
	if !ok {
		return true
	}
	if sum.Mutated[param] {
		return true
	}
	// An escaping-but-returned parameter is already handled by the
	// pass-through rule at the call site; copying here would double-copy.
	return sum.Escapes[param] && (sum.ResultVar == nil || *sum.ResultVar != param)
}

func unwrapRefs(expr ir.Node) ir.Node {
	for {
		ref, ok := expr.(*ir.GetReferenceNode)
		if !ok {
			return expr
		}
		expr = ref.Item
	}
}

// isNull reports whether expr is statically null, through casts and
// reference-of wrappers.
func isNull(expr ir.Node) bool {
	for {
		switch n := expr.(type) {
		case *ir.ConstantNode:
			return n.Type == ir.NULL
		case *ir.TypeCastNode:
			expr = n.Val
		case *ir.GetReferenceNode:
			expr = n.Item
		default:
			return false
		}
	}
}

// markedImmutable resolves the accessed member's field metadata.
func markedImmutable(n *ir.LoadMemberNode) bool {
	target, _ := types.Dereference(ir.TypeOf(n.Target))
	if st, ok := target.(*types.Struct); ok {
		if f := st.FieldByName(n.Member); f != nil {
			return f.Immutable
		}
	}
	return false
}
