package codegen

import (
	"fmt"

	llvmTypes "github.com/llir/llvm/ir/types"

	"github.com/ferrylang/ferry/compiler/types"
)

// declareStruct registers the named typedef for st. The shell goes into
// the table before the fields resolve so reference cycles terminate.
func (c *Compiler) declareStruct(st *types.Struct) {
	if _, done := c.structs[st]; done {
		return
	}
	def := llvmTypes.NewStruct()
	c.structs[st] = c.module.NewTypeDef(st.SourceName, def)
	for _, f := range st.Fields {
		def.Fields = append(def.Fields, c.fieldType(f.Type))
	}
}

// storage is the in-memory layout of t.
func (c *Compiler) storage(t types.Type) llvmTypes.Type {
	if st, ok := t.(*types.Struct); ok {
		c.declareStruct(st)
		return c.structs[st]
	}
	return c.lower(t)
}

// fieldType is the layout of a member or element slot: value structs
// embed their storage, everything else sits in the slot directly.
func (c *Compiler) fieldType(t types.Type) llvmTypes.Type {
	if st, ok := t.(*types.Struct); ok && !st.Ref {
		return c.storage(st)
	}
	return c.lower(t)
}

// lower is how a value of t travels between instructions. Aggregates
// travel as pointers to their storage, which is also exactly what a
// variable's frame cell holds.
func (c *Compiler) lower(t types.Type) llvmTypes.Type {
	switch t := t.(type) {
	case *types.Basic:
		switch t.Kind {
		case types.IntKind:
			return i64
		case types.FloatKind:
			return double
		case types.BoolKind:
			return i1
		case types.StringKind:
			return i8Ptr
		case types.VoidKind:
			return llvmTypes.Void
		}

	case *types.Struct:
		return llvmTypes.NewPointer(c.storage(t))

	case *types.Array:
		return llvmTypes.NewPointer(c.fieldType(t.Elem))

	case *types.Nullable:
		// Absence is the null pointer.
		return llvmTypes.NewPointer(c.fieldType(t.Elem))

	case *types.Pointer:
		return llvmTypes.NewPointer(c.lower(t.Elem))

	case *types.Func:
		params := make([]llvmTypes.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = c.lower(p)
		}
		return llvmTypes.NewPointer(llvmTypes.NewFunc(c.lower(t.Ret), params...))
	}

	panic(fmt.Sprintf("cannot lower type: %v", t))
}

// sizeOf over-approximates the byte size of a storage layout; malloc
// rounds up, it never trims.
func (c *Compiler) sizeOf(t llvmTypes.Type) int64 {
	if st, ok := t.(*llvmTypes.StructType); ok {
		var n int64
		for _, f := range st.Fields {
			n += c.sizeOf(f)
		}
		if n == 0 {
			n = 8
		}
		return n
	}
	return 8
}
