package strings

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Constant builds a null-terminated char array for a source literal.
func Constant(in string) *constant.CharArray {
	return constant.NewCharArray(append([]byte(in), 0))
}

// Toi8Ptr decays a char array global into the i8 pointer the C runtime
// functions expect.
func Toi8Ptr(block *ir.Block, src value.Value) *ir.InstGetElementPtr {
	return block.NewGetElementPtr(src, constant.NewInt(types.I64, 0), constant.NewInt(types.I64, 0))
}

var globalStringCounter uint

// NextStringName hands out module-unique names for string globals.
func NextStringName() string {
	name := fmt.Sprintf("str.%d", globalStringCounter)
	globalStringCounter++
	return name
}
