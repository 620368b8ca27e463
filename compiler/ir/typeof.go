package ir

import "github.com/ferrylang/ferry/compiler/types"

// TypeOf resolves the static type of an expression from declarations and
// field metadata. It returns nil for statements and for expressions whose
// type cannot be resolved; callers treat nil as "not known to be a value
// type".
func TypeOf(node Node) types.Type {
	switch n := node.(type) {
	case *NameNode:
		if n.ByRef {
			return &types.Pointer{Elem: n.Typ}
		}
		return n.Typ

	case *ConstantNode:
		if n.Typ != nil {
			return n.Typ
		}
		switch n.Type {
		case NUMBER:
			return types.I64
		case FLOAT:
			return types.F64
		case STRING:
			return types.String
		case BOOL:
			return types.Bool
		}
		// The type of a null literal is known only from context.
		return nil

	case *NewNode:
		return n.Typ

	case *InitializeStructNode:
		return n.Typ

	case *CallNode:
		return n.Ret

	case *IndirectCallNode:
		target, _ := types.Dereference(TypeOf(n.Target))
		if ft, ok := target.(*types.Func); ok {
			return ft.Ret
		}
		return nil

	case *LoadMemberNode:
		target, _ := types.Dereference(TypeOf(n.Target))
		if st, ok := target.(*types.Struct); ok {
			if f := st.FieldByName(n.Member); f != nil {
				return f.Type
			}
		}
		return nil

	case *LoadIndexNode:
		target, _ := types.Dereference(TypeOf(n.Target))
		if at, ok := target.(*types.Array); ok {
			return at.Elem
		}
		return nil

	case *OperatorNode:
		if n.Operator.IsComparison() {
			return types.Bool
		}
		return TypeOf(n.Left)

	case *TypeCastNode:
		return n.Typ

	case *GetReferenceNode:
		if item := TypeOf(n.Item); item != nil {
			return &types.Pointer{Elem: item}
		}
		return nil

	case *PassByRefNode:
		if item := TypeOf(n.Item); item != nil {
			return &types.Pointer{Elem: item}
		}
		return nil

	case *DereferenceNode:
		if pt, ok := TypeOf(n.Item).(*types.Pointer); ok {
			return pt.Elem
		}
		return nil

	case *CopyNode:
		return TypeOf(n.Val)

	case *FuncLitNode:
		return n.Func.Type()
	}

	return nil
}
