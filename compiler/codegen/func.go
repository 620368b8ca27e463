package codegen

import (
	"fmt"

	llvmIR "github.com/llir/llvm/ir"
	llvmValue "github.com/llir/llvm/ir/value"

	"github.com/ferrylang/ferry/compiler/ir"
	"github.com/ferrylang/ferry/compiler/types"
)

// declareFunc registers the signature so call sites resolve before any
// body compiles. The module's own main is mangled out of the way of the
// C entry point.
func (c *Compiler) declareFunc(fn *ir.FuncNode) *llvmIR.Func {
	name := fn.Name
	if name == "main" {
		name = "fir.main"
	}
	params := make([]*llvmIR.Param, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = llvmIR.NewParam(p.Name, c.lower(ir.TypeOf(p)))
	}
	f := c.module.NewFunc(name, c.lower(fn.Ret), params...)
	c.funcs[fn.Name] = f
	c.fnDefs[fn.Name] = fn
	return f
}

func (c *Compiler) compileFunc(fn *ir.FuncNode, f *llvmIR.Func) {
	prevFunc, prevBlock, prevRet, prevVars := c.contextFunc, c.contextBlock, c.contextRet, c.vars
	c.contextFunc = f
	c.contextRet = fn.Ret
	c.vars = make(map[ir.VarID]llvmValue.Value)
	c.contextBlock = f.NewBlock("entry")

	// One cell per declared variable. Incoming parameters are spilled so
	// every variable reads and writes the same way.
	for i, p := range fn.Params {
		cell := c.contextBlock.NewAlloca(c.lower(ir.TypeOf(p)))
		c.contextBlock.NewStore(f.Params[i], cell)
		c.vars[p.ID] = cell
	}
	for _, l := range fn.Locals {
		c.vars[l.ID] = c.contextBlock.NewAlloca(c.lower(ir.TypeOf(l)))
	}

	for _, stmt := range fn.Body {
		c.compileStmt(stmt)
	}

	if c.contextBlock.Term == nil {
		if fn.Ret == types.Void {
			c.contextBlock.NewRet(nil)
		} else {
			c.contextBlock.NewUnreachable()
		}
	}

	c.contextFunc, c.contextBlock, c.contextRet, c.vars = prevFunc, prevBlock, prevRet, prevVars
}

func (c *Compiler) compileStmt(node ir.Node) {
	// Statements after a terminator are unreachable; park them in a dead
	// block so the emitted function stays well formed.
	if c.contextBlock.Term != nil {
		c.contextBlock = c.contextFunc.NewBlock(c.blockName("dead"))
	}

	switch n := node.(type) {
	case *ir.AssignNode:
		c.compileAssign(n)

	case *ir.ReturnNode:
		if n.Val == nil {
			c.contextBlock.NewRet(nil)
			return
		}
		c.contextBlock.NewRet(c.compileExprTyped(n.Val, c.contextRet))

	case *ir.ConditionNode:
		c.compileCondition(n)

	case *ir.ForNode:
		c.compileFor(n)

	case *ir.CallNode, *ir.IndirectCallNode:
		c.compileExpr(node)

	default:
		panic(fmt.Sprintf("cannot compile statement: %T", node))
	}
}

func (c *Compiler) compileAssign(n *ir.AssignNode) {
	if n.Op != ir.ASSIGN {
		c.compileCompound(n)
		return
	}

	val := c.compileExprTyped(n.Val, ir.TypeOf(n.Target))
	addr := c.compileAddr(n.Target)

	// A value struct stored into an embedded slot moves its bytes;
	// stored into a variable cell it moves the pointer, which is how
	// sharing happens and why copies are explicit nodes.
	if c.embeddedSlot(n.Target) {
		tmp := c.contextBlock.NewLoad(val)
		c.contextBlock.NewStore(tmp, addr)
		return
	}
	c.contextBlock.NewStore(val, addr)
}

func (c *Compiler) compileCompound(n *ir.AssignNode) {
	addr := c.compileAddr(n.Target)
	cur := c.contextBlock.NewLoad(addr)
	val := c.compileExpr(n.Val)

	float := isFloat(ir.TypeOf(n.Target))
	var next llvmValue.Value
	switch n.Op {
	case ir.ADD_ASSIGN:
		if float {
			next = c.contextBlock.NewFAdd(cur, val)
		} else {
			next = c.contextBlock.NewAdd(cur, val)
		}
	case ir.SUB_ASSIGN:
		if float {
			next = c.contextBlock.NewFSub(cur, val)
		} else {
			next = c.contextBlock.NewSub(cur, val)
		}
	default:
		panic(fmt.Sprintf("cannot compile assignment operator: %s", n.Op))
	}
	c.contextBlock.NewStore(next, addr)
}

// embeddedSlot reports whether target denotes storage embedded in a
// parent aggregate rather than a variable cell.
func (c *Compiler) embeddedSlot(target ir.Node) bool {
	switch target.(type) {
	case *ir.LoadMemberNode, *ir.LoadIndexNode:
		st, ok := ir.TypeOf(target).(*types.Struct)
		return ok && !st.Ref
	}
	return false
}

func (c *Compiler) compileCondition(n *ir.ConditionNode) {
	cond := c.compileExpr(n.Cond)
	thenBlk := c.contextFunc.NewBlock(c.blockName("if.then"))
	elseBlk := c.contextFunc.NewBlock(c.blockName("if.else"))
	endBlk := c.contextFunc.NewBlock(c.blockName("if.end"))
	c.contextBlock.NewCondBr(cond, thenBlk, elseBlk)

	c.contextBlock = thenBlk
	for _, s := range n.True {
		c.compileStmt(s)
	}
	if c.contextBlock.Term == nil {
		c.contextBlock.NewBr(endBlk)
	}

	c.contextBlock = elseBlk
	for _, s := range n.False {
		c.compileStmt(s)
	}
	if c.contextBlock.Term == nil {
		c.contextBlock.NewBr(endBlk)
	}

	c.contextBlock = endBlk
}

func (c *Compiler) compileFor(n *ir.ForNode) {
	condBlk := c.contextFunc.NewBlock(c.blockName("for.cond"))
	bodyBlk := c.contextFunc.NewBlock(c.blockName("for.body"))
	endBlk := c.contextFunc.NewBlock(c.blockName("for.end"))

	c.contextBlock.NewBr(condBlk)
	c.contextBlock = condBlk
	cond := c.compileExpr(n.Condition)
	c.contextBlock.NewCondBr(cond, bodyBlk, endBlk)

	c.contextBlock = bodyBlk
	for _, s := range n.Block {
		c.compileStmt(s)
	}
	if c.contextBlock.Term == nil {
		c.contextBlock.NewBr(condBlk)
	}

	c.contextBlock = endBlk
}

func isFloat(t types.Type) bool {
	b, ok := t.(*types.Basic)
	return ok && b.Kind == types.FloatKind
}
