package ir

import "fmt"

// Visitor has its Visit method invoked for each node encountered by Walk.
// If the resulting visitor w is not nil, Walk visits each of the children
// of node with the visitor w.
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses a tree in depth-first order: it starts by calling
// v.Visit(node), and if the returned visitor is not nil, Walk is invoked
// recursively with it for each non-nil child of node.
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	case *FuncNode:
		walkList(v, n.Body)

	case *FuncLitNode:
		Walk(v, n.Func)

	case *NameNode, *ConstantNode, *NewNode:
		// Leaves.

	case *InitializeStructNode:
		for _, f := range n.Fields {
			Walk(v, f)
		}

	case *FieldInitNode:
		Walk(v, n.Value)

	case *CallNode:
		walkList(v, n.Arguments)

	case *IndirectCallNode:
		Walk(v, n.Target)
		walkList(v, n.Arguments)

	case *LoadMemberNode:
		Walk(v, n.Target)

	case *LoadIndexNode:
		Walk(v, n.Target)
		Walk(v, n.Index)

	case *OperatorNode:
		Walk(v, n.Left)
		Walk(v, n.Right)

	case *TypeCastNode:
		Walk(v, n.Val)

	case *GetReferenceNode:
		Walk(v, n.Item)

	case *DereferenceNode:
		Walk(v, n.Item)

	case *PassByRefNode:
		Walk(v, n.Item)

	case *CopyNode:
		Walk(v, n.Val)

	case *AssignNode:
		Walk(v, n.Target)
		Walk(v, n.Val)

	case *ReturnNode:
		if n.Val != nil {
			Walk(v, n.Val)
		}

	case *ConditionNode:
		Walk(v, n.Cond)
		walkList(v, n.True)
		walkList(v, n.False)

	case *ForNode:
		Walk(v, n.Condition)
		walkList(v, n.Block)

	default:
		panic(fmt.Sprintf("unexpected type in Walk(): %T", node))
	}
}

func walkList(v Visitor, nodes []Node) {
	for _, n := range nodes {
		Walk(v, n)
	}
}
