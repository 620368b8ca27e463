// Package codegen lowers typed modules to LLVM IR for a target that only
// knows references. Every variable is a frame cell; aggregate storage is
// heap allocated and travels by pointer, so plain assignment shares and
// only an explicit copy node clones storage. The copy pass has already
// decided where those nodes belong; the emitter just obeys the tree.
package codegen

import (
	"fmt"

	llvmIR "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	llvmTypes "github.com/llir/llvm/ir/types"
	llvmValue "github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"github.com/ferrylang/ferry/compiler/ir"
	"github.com/ferrylang/ferry/compiler/types"
)

var (
	i1     = llvmTypes.I1
	i8     = llvmTypes.I8
	i32    = llvmTypes.I32
	i64    = llvmTypes.I64
	double = llvmTypes.Double
	i8Ptr  = llvmTypes.NewPointer(llvmTypes.I8)
)

type Compiler struct {
	module *llvmIR.Module

	structs   map[*types.Struct]llvmTypes.Type
	funcs     map[string]*llvmIR.Func
	fnDefs    map[string]*ir.FuncNode
	externals map[string]*llvmIR.Func
	formats   map[string]llvmValue.Value

	printf *llvmIR.Func
	malloc *llvmIR.Func

	contextFunc  *llvmIR.Func
	contextBlock *llvmIR.Block
	contextRet   types.Type
	vars         map[ir.VarID]llvmValue.Value

	blocks int
}

func NewCompiler() *Compiler {
	return &Compiler{
		module:    llvmIR.NewModule(),
		structs:   make(map[*types.Struct]llvmTypes.Type),
		funcs:     make(map[string]*llvmIR.Func),
		fnDefs:    make(map[string]*ir.FuncNode),
		externals: make(map[string]*llvmIR.Func),
		formats:   make(map[string]llvmValue.Value),
	}
}

// Compile lowers mod into the compiler's module. The emitter panics on
// trees that never should have reached it; the panic comes back as the
// returned error.
func (c *Compiler) Compile(mod *ir.Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("codegen: %v", r)
		}
	}()

	c.module.TargetTriple = "x86_64-unknown-linux-gnu"

	c.addExternals()
	for _, st := range mod.Structs {
		c.declareStruct(st)
	}
	for _, fn := range mod.Funcs {
		c.declareFunc(fn)
	}
	for _, fn := range mod.Funcs {
		c.compileFunc(fn, c.funcs[fn.Name])
	}
	if entry, ok := c.funcs["main"]; ok {
		c.addEntry(entry)
	}
	return nil
}

// GetIR renders the module as LLVM assembly.
func (c *Compiler) GetIR() string {
	return fmt.Sprintln(c.module)
}

func (c *Compiler) addExternals() {
	c.printf = c.module.NewFunc("printf", i32, llvmIR.NewParam("", i8Ptr))
	c.printf.Sig.Variadic = true
	c.externals["printf"] = c.printf

	c.malloc = c.module.NewFunc("malloc", i8Ptr, llvmIR.NewParam("", i64))
	c.externals["malloc"] = c.malloc
}

// addEntry emits the C-level main that calls the module's own.
func (c *Compiler) addEntry(entry *llvmIR.Func) {
	f := c.module.NewFunc("main", i32)
	block := f.NewBlock("entry")
	block.NewCall(entry)
	block.NewRet(constant.NewInt(i32, 0))
}

func (c *Compiler) blockName(prefix string) string {
	c.blocks++
	return fmt.Sprintf("%s.%d", prefix, c.blocks)
}
