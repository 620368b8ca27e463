// Package ir holds the typed expression trees that the Fir front-end
// serializes and that every middle-end stage rewrites in place.
package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ferrylang/ferry/compiler/types"
)

// VarID identifies a variable. Scope is unique per function in a module
// (nested literals included) and Local unique per declaration within the
// function, so an ID never collides across nested scopes.
type VarID struct {
	Scope int
	Local int
}

func (v VarID) String() string {
	return fmt.Sprintf("v%d.%d", v.Scope, v.Local)
}

// Node is one node in a function body tree. The set of kinds is closed;
// traversal and rewrite code switches exhaustively and panics on kinds it
// does not know.
type Node interface {
	Node()
	String() string
}

type baseNode struct{}

func (n baseNode) Node() {}

// Module is one loaded .fir compilation unit.
type Module struct {
	Name    string
	Structs []*types.Struct
	Funcs   []*FuncNode
}

// FuncNode is a function definition. Params and Locals declare every
// variable of the body up front, the way the front-end emits decompiled
// bytecode. Scope is the function's identity component in VarIDs.
type FuncNode struct {
	baseNode

	Name   string
	Scope  int
	Params []*NameNode
	Locals []*NameNode
	Ret    types.Type
	Body   []Node
}

func (n *FuncNode) String() string {
	params := make([]string, len(n.Params))
	for i, p := range n.Params {
		params[i] = p.Name
	}
	return fmt.Sprintf("func %s(%s)", n.Name, strings.Join(params, ", "))
}

// Type returns the function's type as seen by callers of a literal.
func (n *FuncNode) Type() *types.Func {
	params := make([]types.Type, len(n.Params))
	for i, p := range n.Params {
		if p.ByRef {
			params[i] = &types.Pointer{Elem: p.Typ}
		} else {
			params[i] = p.Typ
		}
	}
	return &types.Func{Params: params, Ret: n.Ret}
}

// NameNode is a variable reference, in declarations and in use positions.
// Occurrences share the declaration's ID, type, and flags; the display name
// carries no identity.
type NameNode struct {
	baseNode

	ID    VarID
	Name  string
	Typ   types.Type
	Param bool
	ByRef bool
}

func (n *NameNode) String() string {
	return n.Name
}

type DataType uint8

const (
	NUMBER DataType = iota
	FLOAT
	STRING
	BOOL
	NULL
)

// ConstantNode is a literal. Type selects which value field is meaningful;
// Typ may pin a static type, otherwise the literal kind's default applies.
type ConstantNode struct {
	baseNode

	Type       DataType
	Value      int64
	ValueFloat float64
	ValueStr   string
	Typ        types.Type
}

func (n *ConstantNode) String() string {
	switch n.Type {
	case NUMBER:
		return strconv.FormatInt(n.Value, 10)
	case FLOAT:
		return strconv.FormatFloat(n.ValueFloat, 'g', -1, 64)
	case STRING:
		return strconv.Quote(n.ValueStr)
	case BOOL:
		if n.Value != 0 {
			return "true"
		}
		return "false"
	case NULL:
		return "null"
	}
	panic(fmt.Sprintf("unknown ConstantNode type: %d", n.Type))
}

// NewNode constructs a fresh zero-initialized aggregate.
type NewNode struct {
	baseNode

	Typ types.Type
}

func (n *NewNode) String() string {
	return fmt.Sprintf("new(%s)", n.Typ.Name())
}

// InitializeStructNode constructs a fresh aggregate from field values.
type InitializeStructNode struct {
	baseNode

	Typ    types.Type
	Fields []*FieldInitNode
}

func (n *InitializeStructNode) String() string {
	fields := make([]string, len(n.Fields))
	for i, f := range n.Fields {
		fields[i] = f.String()
	}
	return fmt.Sprintf("%s{%s}", n.Typ.Name(), strings.Join(fields, ", "))
}

// FieldInitNode is one field: value pair of a struct literal.
type FieldInitNode struct {
	baseNode

	Name  string
	Value Node
}

func (n *FieldInitNode) String() string {
	return fmt.Sprintf("%s: %v", n.Name, n.Value)
}

// CallNode is a call with a statically known callee, identified by its
// module-level name.
type CallNode struct {
	baseNode

	Function  string
	Arguments []Node
	Ret       types.Type
}

func (n *CallNode) String() string {
	args := make([]string, len(n.Arguments))
	for i, a := range n.Arguments {
		args[i] = fmt.Sprintf("%v", a)
	}
	return fmt.Sprintf("%s(%s)", n.Function, strings.Join(args, ", "))
}

// IndirectCallNode calls through a function value. The callee is not
// statically known.
type IndirectCallNode struct {
	baseNode

	Target    Node
	Arguments []Node
}

func (n *IndirectCallNode) String() string {
	args := make([]string, len(n.Arguments))
	for i, a := range n.Arguments {
		args[i] = fmt.Sprintf("%v", a)
	}
	return fmt.Sprintf("(%v)(%s)", n.Target, strings.Join(args, ", "))
}

// LoadMemberNode reads a member of an aggregate.
type LoadMemberNode struct {
	baseNode

	Target Node
	Member string
}

func (n *LoadMemberNode) String() string {
	return fmt.Sprintf("%v.%s", n.Target, n.Member)
}

// LoadIndexNode reads an element of an array.
type LoadIndexNode struct {
	baseNode

	Target Node
	Index  Node
}

func (n *LoadIndexNode) String() string {
	return fmt.Sprintf("%v[%v]", n.Target, n.Index)
}

type Operator string

const (
	OP_ADD Operator = "+"
	OP_SUB Operator = "-"
	OP_MUL Operator = "*"
	OP_DIV Operator = "/"

	OP_GT   Operator = ">"
	OP_GTEQ Operator = ">="
	OP_LT   Operator = "<"
	OP_LTEQ Operator = "<="
	OP_EQ   Operator = "=="
	OP_NEQ  Operator = "!="
)

// IsComparison reports whether the operator yields bool.
func (op Operator) IsComparison() bool {
	switch op {
	case OP_GT, OP_GTEQ, OP_LT, OP_LTEQ, OP_EQ, OP_NEQ:
		return true
	}
	return false
}

// OperatorNode is a binary operation.
type OperatorNode struct {
	baseNode

	Operator Operator
	Left     Node
	Right    Node
}

func (n *OperatorNode) String() string {
	return fmt.Sprintf("(%v %s %v)", n.Left, string(n.Operator), n.Right)
}

// TypeCastNode converts Val to Typ.
type TypeCastNode struct {
	baseNode

	Val Node
	Typ types.Type
}

func (n *TypeCastNode) String() string {
	return fmt.Sprintf("%s(%v)", n.Typ.Name(), n.Val)
}

// GetReferenceNode takes a reference to the storage of Item.
type GetReferenceNode struct {
	baseNode

	Item Node
}

func (n *GetReferenceNode) String() string {
	return fmt.Sprintf("&%v", n.Item)
}

// DereferenceNode reads through a reference.
type DereferenceNode struct {
	baseNode

	Item Node
}

func (n *DereferenceNode) String() string {
	return fmt.Sprintf("*%v", n.Item)
}

// PassByRefNode marks an argument that is passed by reference rather than
// by value. The callee sees the caller's storage.
type PassByRefNode struct {
	baseNode

	Item Node
}

func (n *PassByRefNode) String() string {
	return fmt.Sprintf("byref(%v)", n.Item)
}

// CopyNode instructs the lowering stage to materialize an independent
// duplicate of its operand's value. It wraps exactly one child and carries
// no other state.
type CopyNode struct {
	baseNode

	Val Node
}

func (n *CopyNode) String() string {
	return fmt.Sprintf("copy(%v)", n.Val)
}

// FuncLitNode is a function literal in expression position. Its body is an
// independent scope.
type FuncLitNode struct {
	baseNode

	Func *FuncNode
}

func (n *FuncLitNode) String() string {
	return n.Func.String()
}

type AssignOp string

const (
	ASSIGN     AssignOp = "="
	ADD_ASSIGN AssignOp = "+="
	SUB_ASSIGN AssignOp = "-="
)

// AssignNode stores Val into Target.
type AssignNode struct {
	baseNode

	Op     AssignOp
	Target Node
	Val    Node
}

func (n *AssignNode) String() string {
	return fmt.Sprintf("%v %s %v", n.Target, string(n.Op), n.Val)
}

// ReturnNode returns from the enclosing function. Val is nil for void
// returns.
type ReturnNode struct {
	baseNode

	Val Node
}

func (n *ReturnNode) String() string {
	if n.Val == nil {
		return "return"
	}
	return fmt.Sprintf("return %v", n.Val)
}

// ConditionNode branches on Cond.
type ConditionNode struct {
	baseNode

	Cond  Node
	True  []Node
	False []Node
}

func (n *ConditionNode) String() string {
	return fmt.Sprintf("if %v", n.Cond)
}

// ForNode loops while Condition holds.
type ForNode struct {
	baseNode

	Condition Node
	Block     []Node
}

func (n *ForNode) String() string {
	return fmt.Sprintf("for %v", n.Condition)
}
