package types

import "strings"

// Type is the static type of a Fir expression. The set of kinds is closed:
// code that classifies a type switches over the concrete structs and treats
// an unknown kind as a compiler bug.
type Type interface {
	// Name returns the type's source-level spelling.
	Name() string

	typeKind()
}

type BasicKind uint8

const (
	IntKind BasicKind = iota
	FloatKind
	BoolKind
	StringKind
	VoidKind
)

// Basic is a scalar built-in. Scalars copy implicitly on assignment, so the
// value-copy machinery never has to wrap them.
type Basic struct {
	Kind     BasicKind
	TypeName string
}

func (b *Basic) Name() string { return b.TypeName }
func (b *Basic) typeKind()    {}

var (
	I64    = &Basic{Kind: IntKind, TypeName: "i64"}
	F64    = &Basic{Kind: FloatKind, TypeName: "f64"}
	Bool   = &Basic{Kind: BoolKind, TypeName: "bool"}
	String = &Basic{Kind: StringKind, TypeName: "string"}
	Void   = &Basic{Kind: VoidKind, TypeName: "void"}
)

// Field is a single struct member. Immutable carries the source-level
// marking that the member is never written after construction.
type Field struct {
	Name      string
	Type      Type
	Immutable bool
}

// Struct is an aggregate type. With Ref unset the aggregate has value
// semantics: assigning, passing, or returning it must behave as a copy of
// the whole aggregate. With Ref set it behaves like everything in the
// target language: a shared reference.
type Struct struct {
	SourceName string
	Ref        bool
	Fields     []*Field
}

func (s *Struct) Name() string { return s.SourceName }
func (s *Struct) typeKind()    {}

func (s *Struct) FieldByName(name string) *Field {
	for _, f := range s.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FieldIndex returns the positional index of a member, or -1 when the
// struct has no such member.
func (s *Struct) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Array is a growable sequence. Arrays have reference semantics: the
// backing storage is shared on assignment, only elements may be value
// typed.
type Array struct {
	Elem Type
}

func (a *Array) Name() string { return "[]" + a.Elem.Name() }
func (a *Array) typeKind()    {}

// Nullable wraps a type with an explicit "absent" state.
type Nullable struct {
	Elem Type
}

func (n *Nullable) Name() string { return n.Elem.Name() + "?" }
func (n *Nullable) typeKind()    {}

// Pointer is an explicit indirection, produced by reference-of expressions
// and by-reference parameters.
type Pointer struct {
	Elem Type
}

func (p *Pointer) Name() string { return "*" + p.Elem.Name() }
func (p *Pointer) typeKind()    {}

// Func is the type of a function value.
type Func struct {
	Params []Type
	Ret    Type
}

func (f *Func) Name() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Name()
	}
	name := "func(" + strings.Join(params, ", ") + ")"
	if f.Ret != nil && f.Ret != Void {
		name += " " + f.Ret.Name()
	}
	return name
}

func (f *Func) typeKind() {}

// IsValue reports whether assignment of a value of type t must behave as a
// copy in the source language. Nullable wrappers count as value types; the
// copy pass exempts them separately.
func IsValue(t Type) bool {
	switch tt := t.(type) {
	case *Struct:
		return !tt.Ref
	case *Nullable:
		return true
	}
	return false
}

// IsNullable reports whether t is the nullable wrapper type.
func IsNullable(t Type) bool {
	_, ok := t.(*Nullable)
	return ok
}

// Dereference strips pointer layers from t. The second result reports
// whether any indirection was removed.
func Dereference(t Type) (Type, bool) {
	indirected := false
	for {
		p, ok := t.(*Pointer)
		if !ok {
			return t, indirected
		}
		t = p.Elem
		indirected = true
	}
}
