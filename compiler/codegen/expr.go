package codegen

import (
	"fmt"

	llvmIR "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	llvmTypes "github.com/llir/llvm/ir/types"
	llvmValue "github.com/llir/llvm/ir/value"

	"github.com/ferrylang/ferry/compiler/codegen/strings"
	"github.com/ferrylang/ferry/compiler/ir"
	"github.com/ferrylang/ferry/compiler/types"
)

func (c *Compiler) compileExpr(node ir.Node) llvmValue.Value {
	switch n := node.(type) {
	case *ir.NameNode:
		return c.contextBlock.NewLoad(c.varCell(n))

	case *ir.ConstantNode:
		return c.compileConstant(n)

	case *ir.NewNode:
		ptr := c.heapAlloc(n.Typ)
		c.contextBlock.NewStore(constant.NewZeroInitializer(c.storage(n.Typ)), ptr)
		return ptr

	case *ir.InitializeStructNode:
		return c.compileStructLit(n)

	case *ir.CallNode:
		return c.compileCall(n)

	case *ir.IndirectCallNode:
		target := c.compileExpr(n.Target)
		args := make([]llvmValue.Value, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = c.compileExpr(a)
		}
		return c.contextBlock.NewCall(target, args...)

	case *ir.LoadMemberNode:
		slot, embedded := c.memberSlot(n)
		if embedded {
			return slot
		}
		return c.contextBlock.NewLoad(slot)

	case *ir.LoadIndexNode:
		slot, embedded := c.indexSlot(n)
		if embedded {
			return slot
		}
		return c.contextBlock.NewLoad(slot)

	case *ir.OperatorNode:
		return c.compileOperator(n)

	case *ir.TypeCastNode:
		return c.compileCast(n)

	case *ir.GetReferenceNode:
		return c.compileAddr(n.Item)

	case *ir.PassByRefNode:
		return c.compileAddr(n.Item)

	case *ir.DereferenceNode:
		return c.contextBlock.NewLoad(c.compileExpr(n.Item))

	case *ir.CopyNode:
		return c.compileCopy(n)

	case *ir.FuncLitNode:
		return c.compileFuncLit(n)
	}

	panic(fmt.Sprintf("cannot compile expression: %T", node))
}

// compileExprTyped compiles node where the consumer's type is known,
// which is what gives a bare null literal its pointer type.
func (c *Compiler) compileExprTyped(node ir.Node, want types.Type) llvmValue.Value {
	if cn, ok := node.(*ir.ConstantNode); ok && cn.Type == ir.NULL {
		return c.nullFor(want)
	}
	return c.compileExpr(node)
}

func (c *Compiler) nullFor(t types.Type) constant.Constant {
	pt, ok := c.lower(t).(*llvmTypes.PointerType)
	if !ok {
		panic(fmt.Sprintf("null is not a value of %v", t))
	}
	return constant.NewNull(pt)
}

// compileAddr compiles node down to the location it denotes.
func (c *Compiler) compileAddr(node ir.Node) llvmValue.Value {
	switch n := node.(type) {
	case *ir.NameNode:
		return c.varCell(n)
	case *ir.LoadMemberNode:
		slot, _ := c.memberSlot(n)
		return slot
	case *ir.LoadIndexNode:
		slot, _ := c.indexSlot(n)
		return slot
	case *ir.DereferenceNode:
		return c.compileExpr(n.Item)
	}
	panic(fmt.Sprintf("not an addressable expression: %T", node))
}

func (c *Compiler) varCell(n *ir.NameNode) llvmValue.Value {
	cell, ok := c.vars[n.ID]
	if !ok {
		panic(fmt.Sprintf("undefined variable %s (function literals do not capture)", n.Name))
	}
	return cell
}

func (c *Compiler) compileConstant(n *ir.ConstantNode) llvmValue.Value {
	switch n.Type {
	case ir.NUMBER:
		return constant.NewInt(i64, n.Value)
	case ir.FLOAT:
		return constant.NewFloat(double, n.ValueFloat)
	case ir.BOOL:
		return constant.NewInt(i1, n.Value)
	case ir.STRING:
		g := c.module.NewGlobalDef(strings.NextStringName(), strings.Constant(n.ValueStr))
		return strings.Toi8Ptr(c.contextBlock, g)
	case ir.NULL:
		panic("null literal outside a typed context")
	}
	panic(fmt.Sprintf("unknown constant kind: %d", n.Type))
}

// heapAlloc reserves storage for one aggregate. Storage outlives the
// frame, so result values survive their producer.
func (c *Compiler) heapAlloc(t types.Type) llvmValue.Value {
	st, ok := t.(*types.Struct)
	if !ok {
		panic(fmt.Sprintf("cannot construct %v", t))
	}
	layout := c.storage(st)
	raw := c.contextBlock.NewCall(c.malloc, constant.NewInt(i64, c.sizeOf(layout)))
	return c.contextBlock.NewBitCast(raw, llvmTypes.NewPointer(layout))
}

func (c *Compiler) compileStructLit(n *ir.InitializeStructNode) llvmValue.Value {
	st, ok := n.Typ.(*types.Struct)
	if !ok {
		panic(fmt.Sprintf("cannot construct %v", n.Typ))
	}
	ptr := c.heapAlloc(st)
	c.contextBlock.NewStore(constant.NewZeroInitializer(c.storage(st)), ptr)

	for _, f := range n.Fields {
		idx := st.FieldIndex(f.Name)
		if idx < 0 {
			panic(fmt.Sprintf("unknown member %s on %s", f.Name, st.SourceName))
		}
		slot := c.contextBlock.NewGetElementPtr(ptr, constant.NewInt(i32, 0), constant.NewInt(i32, int64(idx)))
		val := c.compileExprTyped(f.Value, st.Fields[idx].Type)
		if fs, isStruct := st.Fields[idx].Type.(*types.Struct); isStruct && !fs.Ref {
			val = c.contextBlock.NewLoad(val)
		}
		c.contextBlock.NewStore(val, slot)
	}
	return ptr
}

// compileCopy clones the operand's storage. This is the single place the
// emitter duplicates an aggregate.
func (c *Compiler) compileCopy(n *ir.CopyNode) llvmValue.Value {
	src := c.compileExpr(n.Val)
	t, _ := types.Dereference(ir.TypeOf(n.Val))
	st, ok := t.(*types.Struct)
	if !ok {
		// Scalars already copy on every load.
		return src
	}
	dst := c.heapAlloc(st)
	c.contextBlock.NewStore(c.contextBlock.NewLoad(src), dst)
	return dst
}

func (c *Compiler) compileCall(n *ir.CallNode) llvmValue.Value {
	if n.Function == "print" {
		return c.compilePrint(n)
	}

	callee, known := c.funcs[n.Function]
	if !known {
		callee = c.externalFunc(n)
	}
	def := c.fnDefs[n.Function]

	args := make([]llvmValue.Value, len(n.Arguments))
	for i, a := range n.Arguments {
		if def != nil && i < len(def.Params) {
			args[i] = c.compileExprTyped(a, ir.TypeOf(def.Params[i]))
		} else {
			args[i] = c.compileExpr(a)
		}
	}
	return c.contextBlock.NewCall(callee, args...)
}

// externalFunc declares an out-of-module callee from its first call
// site's shapes.
func (c *Compiler) externalFunc(n *ir.CallNode) *llvmIR.Func {
	if f, ok := c.externals[n.Function]; ok {
		return f
	}
	params := make([]*llvmIR.Param, len(n.Arguments))
	for i, a := range n.Arguments {
		t := ir.TypeOf(a)
		if t == nil {
			panic(fmt.Sprintf("cannot infer the signature of %s", n.Function))
		}
		params[i] = llvmIR.NewParam("", c.lower(t))
	}
	f := c.module.NewFunc(n.Function, c.lower(n.Ret), params...)
	c.externals[n.Function] = f
	return f
}

// compilePrint lowers the print builtin onto printf.
func (c *Compiler) compilePrint(n *ir.CallNode) llvmValue.Value {
	var last llvmValue.Value
	for _, a := range n.Arguments {
		v := c.compileExpr(a)
		b, ok := ir.TypeOf(a).(*types.Basic)
		if !ok {
			panic(fmt.Sprintf("cannot print %v", ir.TypeOf(a)))
		}
		var format string
		switch b.Kind {
		case types.IntKind:
			format = "%lld\n"
		case types.FloatKind:
			format = "%f\n"
		case types.BoolKind:
			format = "%lld\n"
			v = c.contextBlock.NewZExt(v, i64)
		case types.StringKind:
			format = "%s\n"
		default:
			panic(fmt.Sprintf("cannot print %v", b))
		}
		last = c.contextBlock.NewCall(c.printf, c.formatPtr(format), v)
	}
	return last
}

func (c *Compiler) formatPtr(format string) llvmValue.Value {
	g, ok := c.formats[format]
	if !ok {
		g = c.module.NewGlobalDef(strings.NextStringName(), strings.Constant(format))
		c.formats[format] = g
	}
	return strings.Toi8Ptr(c.contextBlock, g)
}

func (c *Compiler) memberSlot(n *ir.LoadMemberNode) (llvmValue.Value, bool) {
	base := c.autoDeref(n.Target)
	parent, _ := types.Dereference(ir.TypeOf(n.Target))
	st, ok := parent.(*types.Struct)
	if !ok {
		panic(fmt.Sprintf("member access on %v", parent))
	}
	idx := st.FieldIndex(n.Member)
	if idx < 0 {
		panic(fmt.Sprintf("unknown member %s on %s", n.Member, st.SourceName))
	}
	slot := c.contextBlock.NewGetElementPtr(base, constant.NewInt(i32, 0), constant.NewInt(i32, int64(idx)))
	fs, isStruct := st.Fields[idx].Type.(*types.Struct)
	return slot, isStruct && !fs.Ref
}

func (c *Compiler) indexSlot(n *ir.LoadIndexNode) (llvmValue.Value, bool) {
	base := c.autoDeref(n.Target)
	parent, _ := types.Dereference(ir.TypeOf(n.Target))
	at, ok := parent.(*types.Array)
	if !ok {
		panic(fmt.Sprintf("indexing %v", parent))
	}
	idx := c.compileExpr(n.Index)
	slot := c.contextBlock.NewGetElementPtr(base, idx)
	es, isStruct := at.Elem.(*types.Struct)
	return slot, isStruct && !es.Ref
}

// autoDeref compiles an aggregate operand and peels pointer layers, so
// member chains work uniformly through by-reference parameters.
func (c *Compiler) autoDeref(node ir.Node) llvmValue.Value {
	v := c.compileExpr(node)
	t := ir.TypeOf(node)
	for {
		pt, ok := t.(*types.Pointer)
		if !ok {
			return v
		}
		v = c.contextBlock.NewLoad(v)
		t = pt.Elem
	}
}

func (c *Compiler) compileOperator(n *ir.OperatorNode) llvmValue.Value {
	// A null side takes its pointer type from the other operand.
	var left, right llvmValue.Value
	switch {
	case isNullLit(n.Right):
		left = c.compileExpr(n.Left)
		right = constant.NewNull(mustPointer(left.Type()))
	case isNullLit(n.Left):
		right = c.compileExpr(n.Right)
		left = constant.NewNull(mustPointer(right.Type()))
	default:
		left = c.compileExpr(n.Left)
		right = c.compileExpr(n.Right)
	}

	t := ir.TypeOf(n.Left)
	if t == nil {
		t = ir.TypeOf(n.Right)
	}
	switch {
	case isFloat(t):
		return c.floatOp(n.Operator, left, right)
	case isPointer(left.Type()):
		return c.pointerOp(n.Operator, left, right)
	default:
		return c.intOp(n.Operator, left, right)
	}
}

func isNullLit(node ir.Node) bool {
	cn, ok := node.(*ir.ConstantNode)
	return ok && cn.Type == ir.NULL
}

func mustPointer(t llvmTypes.Type) *llvmTypes.PointerType {
	pt, ok := t.(*llvmTypes.PointerType)
	if !ok {
		panic(fmt.Sprintf("null compared against a non-reference %v", t))
	}
	return pt
}

func (c *Compiler) intOp(op ir.Operator, left, right llvmValue.Value) llvmValue.Value {
	switch op {
	case ir.OP_ADD:
		return c.contextBlock.NewAdd(left, right)
	case ir.OP_SUB:
		return c.contextBlock.NewSub(left, right)
	case ir.OP_MUL:
		return c.contextBlock.NewMul(left, right)
	case ir.OP_DIV:
		return c.contextBlock.NewSDiv(left, right)
	case ir.OP_GT:
		return c.contextBlock.NewICmp(enum.IPredSGT, left, right)
	case ir.OP_GTEQ:
		return c.contextBlock.NewICmp(enum.IPredSGE, left, right)
	case ir.OP_LT:
		return c.contextBlock.NewICmp(enum.IPredSLT, left, right)
	case ir.OP_LTEQ:
		return c.contextBlock.NewICmp(enum.IPredSLE, left, right)
	case ir.OP_EQ:
		return c.contextBlock.NewICmp(enum.IPredEQ, left, right)
	case ir.OP_NEQ:
		return c.contextBlock.NewICmp(enum.IPredNE, left, right)
	}
	panic(fmt.Sprintf("cannot compile operator: %s", op))
}

func (c *Compiler) floatOp(op ir.Operator, left, right llvmValue.Value) llvmValue.Value {
	switch op {
	case ir.OP_ADD:
		return c.contextBlock.NewFAdd(left, right)
	case ir.OP_SUB:
		return c.contextBlock.NewFSub(left, right)
	case ir.OP_MUL:
		return c.contextBlock.NewFMul(left, right)
	case ir.OP_DIV:
		return c.contextBlock.NewFDiv(left, right)
	case ir.OP_GT:
		return c.contextBlock.NewFCmp(enum.FPredOGT, left, right)
	case ir.OP_GTEQ:
		return c.contextBlock.NewFCmp(enum.FPredOGE, left, right)
	case ir.OP_LT:
		return c.contextBlock.NewFCmp(enum.FPredOLT, left, right)
	case ir.OP_LTEQ:
		return c.contextBlock.NewFCmp(enum.FPredOLE, left, right)
	case ir.OP_EQ:
		return c.contextBlock.NewFCmp(enum.FPredOEQ, left, right)
	case ir.OP_NEQ:
		return c.contextBlock.NewFCmp(enum.FPredONE, left, right)
	}
	panic(fmt.Sprintf("cannot compile operator: %s", op))
}

// pointerOp compares identities; aggregates have no other operators.
func (c *Compiler) pointerOp(op ir.Operator, left, right llvmValue.Value) llvmValue.Value {
	switch op {
	case ir.OP_EQ:
		return c.contextBlock.NewICmp(enum.IPredEQ, left, right)
	case ir.OP_NEQ:
		return c.contextBlock.NewICmp(enum.IPredNE, left, right)
	}
	panic(fmt.Sprintf("cannot compile operator %s on references", op))
}

func (c *Compiler) compileCast(n *ir.TypeCastNode) llvmValue.Value {
	val := c.compileExprTyped(n.Val, n.Typ)
	from := val.Type()
	to := c.lower(n.Typ)
	if from.Equal(to) {
		return val
	}

	switch {
	case isPointer(from) && isPointer(to):
		return c.contextBlock.NewBitCast(val, to)
	case from.Equal(i64) && to.Equal(double):
		return c.contextBlock.NewSIToFP(val, double)
	case from.Equal(double) && to.Equal(i64):
		return c.contextBlock.NewFPToSI(val, i64)
	}
	panic(fmt.Sprintf("cannot cast %v to %v", from, to))
}

// compileFuncLit defines the literal as a function of its own and yields
// the function pointer.
func (c *Compiler) compileFuncLit(n *ir.FuncLitNode) llvmValue.Value {
	f := c.declareFunc(n.Func)
	c.compileFunc(n.Func, f)
	return f
}

func isPointer(t llvmTypes.Type) bool {
	_, ok := t.(*llvmTypes.PointerType)
	return ok
}
