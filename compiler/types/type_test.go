package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValue(t *testing.T) {
	vec := &Struct{SourceName: "Vec2", Fields: []*Field{
		{Name: "X", Type: F64},
		{Name: "Y", Type: F64},
	}}
	node := &Struct{SourceName: "Node", Ref: true}

	assert.True(t, IsValue(vec))
	assert.True(t, IsValue(&Nullable{Elem: vec}))
	assert.False(t, IsValue(node))
	assert.False(t, IsValue(I64))
	assert.False(t, IsValue(String))
	assert.False(t, IsValue(&Array{Elem: vec}))
	assert.False(t, IsValue(&Pointer{Elem: vec}))
	assert.False(t, IsValue(nil))
}

func TestIsNullable(t *testing.T) {
	vec := &Struct{SourceName: "Vec2"}

	assert.True(t, IsNullable(&Nullable{Elem: vec}))
	assert.False(t, IsNullable(vec))
	assert.False(t, IsNullable(nil))
}

func TestDereference(t *testing.T) {
	vec := &Struct{SourceName: "Vec2"}

	underlying, indirected := Dereference(vec)
	assert.Equal(t, vec, underlying)
	assert.False(t, indirected)

	underlying, indirected = Dereference(&Pointer{Elem: vec})
	assert.Equal(t, vec, underlying)
	assert.True(t, indirected)

	underlying, indirected = Dereference(&Pointer{Elem: &Pointer{Elem: I64}})
	assert.Equal(t, Type(I64), underlying)
	assert.True(t, indirected)
}

func TestStructFields(t *testing.T) {
	vec := &Struct{SourceName: "Vec2", Fields: []*Field{
		{Name: "X", Type: F64},
		{Name: "Y", Type: F64, Immutable: true},
	}}

	assert.Equal(t, 1, vec.FieldIndex("Y"))
	assert.Equal(t, -1, vec.FieldIndex("Z"))
	assert.Nil(t, vec.FieldByName("Z"))
	assert.True(t, vec.FieldByName("Y").Immutable)
	assert.False(t, vec.FieldByName("X").Immutable)
}

func TestNames(t *testing.T) {
	vec := &Struct{SourceName: "Vec2"}

	assert.Equal(t, "[]Vec2", (&Array{Elem: vec}).Name())
	assert.Equal(t, "Vec2?", (&Nullable{Elem: vec}).Name())
	assert.Equal(t, "*Vec2", (&Pointer{Elem: vec}).Name())
	assert.Equal(t, "func(Vec2, f64) Vec2", (&Func{Params: []Type{vec, F64}, Ret: vec}).Name())
	assert.Equal(t, "func()", (&Func{Ret: Void}).Name())
}
