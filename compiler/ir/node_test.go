package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ferrylang/ferry/compiler/types"
)

func TestNodeString(t *testing.T) {
	vec := &types.Struct{SourceName: "Vec2", Fields: []*types.Field{
		{Name: "X", Type: types.F64},
	}}
	v := &NameNode{ID: VarID{1, 1}, Name: "v", Typ: vec}

	assert.Equal(t, "v1.1", v.ID.String())
	assert.Equal(t, "v.X", (&LoadMemberNode{Target: v, Member: "X"}).String())
	assert.Equal(t, "v[0]", (&LoadIndexNode{Target: v, Index: &ConstantNode{Type: NUMBER}}).String())
	assert.Equal(t, `"hi"`, (&ConstantNode{Type: STRING, ValueStr: "hi"}).String())
	assert.Equal(t, "null", (&ConstantNode{Type: NULL}).String())
	assert.Equal(t, "true", (&ConstantNode{Type: BOOL, Value: 1}).String())
	assert.Equal(t, "new(Vec2)", (&NewNode{Typ: vec}).String())
	assert.Equal(t, "copy(v)", (&CopyNode{Val: v}).String())
	assert.Equal(t, "&v", (&GetReferenceNode{Item: v}).String())
	assert.Equal(t, "byref(v)", (&PassByRefNode{Item: v}).String())
	assert.Equal(t, "(1 + 2)", (&OperatorNode{
		Operator: OP_ADD,
		Left:     &ConstantNode{Type: NUMBER, Value: 1},
		Right:    &ConstantNode{Type: NUMBER, Value: 2},
	}).String())
	assert.Equal(t, "scale(v, 2)", (&CallNode{
		Function:  "scale",
		Arguments: []Node{v, &ConstantNode{Type: NUMBER, Value: 2}},
	}).String())
	assert.Equal(t, "v = null", (&AssignNode{Op: ASSIGN, Target: v, Val: &ConstantNode{Type: NULL}}).String())
}

func TestTypeOf(t *testing.T) {
	vec := &types.Struct{SourceName: "Vec2", Fields: []*types.Field{
		{Name: "X", Type: types.F64},
		{Name: "Y", Type: types.F64},
	}}
	box := &types.Struct{SourceName: "Box", Fields: []*types.Field{
		{Name: "Inner", Type: vec},
	}}

	v := &NameNode{ID: VarID{1, 1}, Name: "v", Typ: vec}
	b := &NameNode{ID: VarID{1, 2}, Name: "b", Typ: box}

	assert.Equal(t, types.Type(vec), TypeOf(v))
	assert.Equal(t, types.Type(types.F64), TypeOf(&LoadMemberNode{Target: v, Member: "X"}))
	assert.Equal(t, types.Type(vec), TypeOf(&LoadMemberNode{Target: b, Member: "Inner"}))
	assert.Nil(t, TypeOf(&LoadMemberNode{Target: v, Member: "Nope"}))

	arr := &NameNode{ID: VarID{1, 3}, Name: "xs", Typ: &types.Array{Elem: vec}}
	assert.Equal(t, types.Type(vec), TypeOf(&LoadIndexNode{Target: arr, Index: &ConstantNode{Type: NUMBER}}))

	// Reference-of wraps, dereference unwraps.
	ref := &GetReferenceNode{Item: v}
	assert.Equal(t, types.Type(&types.Pointer{Elem: vec}), TypeOf(ref))
	assert.Equal(t, types.Type(vec), TypeOf(&DereferenceNode{Item: ref}))

	// A by-reference parameter denotes the caller's storage.
	p := &NameNode{ID: VarID{1, 4}, Name: "p", Typ: vec, Param: true, ByRef: true}
	assert.Equal(t, types.Type(&types.Pointer{Elem: vec}), TypeOf(p))

	assert.Equal(t, types.Type(types.Bool), TypeOf(&OperatorNode{
		Operator: OP_LT,
		Left:     &ConstantNode{Type: NUMBER, Value: 1},
		Right:    &ConstantNode{Type: NUMBER, Value: 2},
	}))
	assert.Equal(t, types.Type(types.I64), TypeOf(&OperatorNode{
		Operator: OP_ADD,
		Left:     &ConstantNode{Type: NUMBER, Value: 1},
		Right:    &ConstantNode{Type: NUMBER, Value: 2},
	}))

	assert.Equal(t, types.Type(vec), TypeOf(&CallNode{Function: "scale", Ret: vec}))
	assert.Equal(t, types.Type(vec), TypeOf(&CopyNode{Val: v}))
	assert.Nil(t, TypeOf(&ConstantNode{Type: NULL}))
	assert.Nil(t, TypeOf(&ReturnNode{}))

	lit := &FuncNode{Name: "main.func1", Scope: 2, Params: []*NameNode{
		{ID: VarID{2, 1}, Name: "x", Typ: vec, Param: true},
	}, Ret: vec}
	assert.Equal(t, types.Type(&types.Func{Params: []types.Type{vec}, Ret: vec}), TypeOf(&FuncLitNode{Func: lit}))
}
