package valuecopy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrylang/ferry/compiler/analysis"
	"github.com/ferrylang/ferry/compiler/ir"
	"github.com/ferrylang/ferry/compiler/types"
)

func TestNoCopyForOwnedAndNullOperands(t *testing.T) {
	y := vecN(1, 1, "y")
	null := &ir.ConstantNode{Type: ir.NULL}

	for _, optimize := range []bool{true, false} {
		p := passOver(emptyMain(), optimize)

		assert.False(t, p.IsCopyNeeded(nil))
		assert.False(t, p.IsCopyNeeded(null))
		assert.False(t, p.IsCopyNeeded(&ir.TypeCastNode{Val: null, Typ: vecType}))
		assert.False(t, p.IsCopyNeeded(&ir.NewNode{Typ: vecType}))
		assert.False(t, p.IsCopyNeeded(&ir.InitializeStructNode{Typ: vecType}))
		assert.False(t, p.IsCopyNeeded(&ir.PassByRefNode{Item: y}))
		assert.False(t, p.IsCopyNeeded(&ir.CopyNode{Val: y}), "optimize=%v", optimize)
	}
}

func TestNoCopyForReferenceTypes(t *testing.T) {
	n := &ir.NameNode{ID: ir.VarID{Scope: 1, Local: 1}, Name: "n", Typ: nodeType}
	xs := &ir.NameNode{ID: ir.VarID{Scope: 1, Local: 2}, Name: "xs", Typ: &types.Array{Elem: vecType}}
	s := &ir.NameNode{ID: ir.VarID{Scope: 1, Local: 3}, Name: "s", Typ: types.String}
	opt := &ir.NameNode{ID: ir.VarID{Scope: 1, Local: 4}, Name: "opt", Typ: &types.Nullable{Elem: vecType}}

	for _, optimize := range []bool{true, false} {
		p := passOver(emptyMain(), optimize)

		assert.False(t, p.IsCopyNeeded(n))
		assert.False(t, p.IsCopyNeeded(xs))
		assert.False(t, p.IsCopyNeeded(s))
		assert.False(t, p.IsCopyNeeded(opt), "optimize=%v", optimize)
		assert.False(t, p.IsCopyNeeded(&ir.TypeCastNode{Val: n, Typ: nodeType}))
	}
}

func TestCastFromValueStillCopies(t *testing.T) {
	y := vecN(1, 1, "y")
	cast := &ir.TypeCastNode{Val: y, Typ: nodeType}

	for _, optimize := range []bool{true, false} {
		p := passOver(emptyMain(), optimize)
		assert.True(t, p.IsCopyNeeded(cast),
			"optimize=%v: the operand held a value before the cast", optimize)
	}
}

func TestConservativeModeCopiesTheRest(t *testing.T) {
	y := vecN(1, 1, "y")
	p := passOver(emptyMain(), false)
	assert.True(t, p.IsCopyNeeded(y))

	// Even the single-use parameter elision is off.
	id := idFn()
	pid := passOver(id, false)
	assert.True(t, pid.IsCopyNeeded(id.Params[0]))
}

func TestImmutableChains(t *testing.T) {
	b := boxN(1, 1, "b")
	origin := &ir.LoadMemberNode{Target: b, Member: "Origin"}
	cursor := &ir.LoadMemberNode{Target: b, Member: "Cursor"}
	trail0 := &ir.LoadIndexNode{
		Target: &ir.LoadMemberNode{Target: b, Member: "Trail"},
		Index:  &ir.ConstantNode{Type: ir.NUMBER, Value: 0},
	}
	wake0 := &ir.LoadIndexNode{
		Target: &ir.LoadMemberNode{Target: b, Member: "Wake"},
		Index:  &ir.ConstantNode{Type: ir.NUMBER, Value: 0},
	}

	p := passOver(emptyMain(), true)

	assert.True(t, p.IsImmutable(origin))
	assert.False(t, p.IsImmutable(cursor))
	assert.True(t, p.IsImmutable(trail0), "indexing through a marked member")
	assert.False(t, p.IsImmutable(wake0))
	assert.True(t, p.IsImmutable(&ir.GetReferenceNode{Item: origin}))
	// Marking is contagious downward through the chain.
	assert.True(t, p.IsImmutable(&ir.LoadMemberNode{Target: origin, Member: "X"}))

	assert.False(t, p.IsCopyNeeded(origin))
	assert.True(t, p.IsCopyNeeded(cursor))
	assert.False(t, p.IsCopyNeeded(trail0))
	assert.True(t, p.IsCopyNeeded(wake0))
}

func TestSingleUseParameterElision(t *testing.T) {
	// One read, never aliased: safe to hand over without a copy.
	p1 := vecP(1, 1, "p")
	once := &ir.FuncNode{
		Name: "once", Scope: 1, Params: []*ir.NameNode{p1}, Ret: vecType,
		Body: []ir.Node{&ir.ReturnNode{Val: vecP(1, 1, "p")}},
	}
	assert.False(t, passOver(once, true).IsCopyNeeded(p1))

	// Two reads: mutation through one occurrence is observable via the other.
	p2 := vecP(2, 1, "p")
	twice := &ir.FuncNode{
		Name: "twice", Scope: 2, Params: []*ir.NameNode{p2}, Ret: types.F64,
		Body: []ir.Node{
			&ir.ReturnNode{Val: &ir.OperatorNode{
				Operator: ir.OP_ADD,
				Left:     &ir.LoadMemberNode{Target: vecP(2, 1, "p"), Member: "X"},
				Right:    &ir.LoadMemberNode{Target: vecP(2, 1, "p"), Member: "Y"},
			}},
		},
	}
	assert.True(t, passOver(twice, true).IsCopyNeeded(p2))

	// A recorded alias disqualifies even a single textual use.
	p3 := vecP(3, 1, "p")
	a3 := vecN(3, 2, "a")
	aliased := &ir.FuncNode{
		Name: "aliased", Scope: 3, Params: []*ir.NameNode{p3}, Locals: []*ir.NameNode{a3}, Ret: types.Void,
		Body: []ir.Node{
			&ir.AssignNode{Op: ir.ASSIGN, Target: a3, Val: vecP(3, 1, "p")},
		},
	}
	assert.True(t, passOver(aliased, true).IsCopyNeeded(p3))

	// By-reference parameters share storage with the caller outright.
	p4 := vecP(4, 1, "p")
	p4.ByRef = true
	byref := &ir.FuncNode{
		Name: "byref", Scope: 4, Params: []*ir.NameNode{p4}, Ret: vecType,
		Body: []ir.Node{&ir.ReturnNode{Val: &ir.DereferenceNode{Item: p4}}},
	}
	assert.True(t, passOver(byref, true).IsCopyNeeded(p4))
}

func TestCallResultProvenance(t *testing.T) {
	y := vecN(1, 1, "y")
	p := passOver(emptyMain(), true, callees()...)

	// A constructed result is already owned by the receiver.
	assert.False(t, p.IsCopyNeeded(&ir.CallNode{Function: "fresh", Ret: vecType}))

	// A pass-through result inherits the argument's verdict.
	for _, arg := range []ir.Node{
		y,
		&ir.NewNode{Typ: vecType},
		&ir.LoadMemberNode{Target: boxN(1, 2, "b"), Member: "Origin"},
	} {
		call := &ir.CallNode{Function: "id", Arguments: []ir.Node{arg}, Ret: vecType}
		assert.Equal(t, p.IsCopyNeeded(arg), p.IsCopyNeeded(call), "arg %v", arg)
	}

	// No summary, no trust.
	unknown := &ir.CallNode{Function: "ext", Arguments: []ir.Node{y}, Ret: vecType}
	assert.True(t, p.IsCopyNeeded(unknown))
}

func TestAssignmentTargetAnalysis(t *testing.T) {
	x := vecN(1, 1, "x")
	y := vecN(1, 2, "y")
	b := boxN(1, 3, "b")
	fn := &ir.FuncNode{
		Name: "main", Scope: 1, Locals: []*ir.NameNode{x, y, b}, Ret: types.Void,
		Body: []ir.Node{
			&ir.AssignNode{
				Op:     ir.ASSIGN,
				Target: &ir.LoadMemberNode{Target: vecN(1, 2, "y"), Member: "X"},
				Val:    fnum(1),
			},
		},
	}

	p := passOver(fn, true)
	assert.True(t, p.IsCopyNeededForAssignmentTarget(y), "y is written through later")
	assert.False(t, p.IsCopyNeededForAssignmentTarget(x), "x is never touched again")
	assert.False(t, p.IsCopyNeededForAssignmentTarget(&ir.LoadMemberNode{Target: b, Member: "Origin"}))
	assert.True(t, p.IsCopyNeededForAssignmentTarget(&ir.LoadMemberNode{Target: b, Member: "Cursor"}))

	cons := passOver(fn, false)
	assert.True(t, cons.IsCopyNeededForAssignmentTarget(x))

	// Without a summary every variable is assumed volatile.
	bare := NewPass(fn, analysis.NewStore(), Options{Optimize: true})
	assert.True(t, bare.IsCopyNeededForAssignmentTarget(x))
}

func TestParameterCopyNeeded(t *testing.T) {
	y := vecN(1, 1, "y")
	store := storeOver(callees()...)
	p := NewPass(emptyMain(), store, Options{Optimize: true})

	poke := store.Get("poke")
	peek := store.Get("peek")
	keep := store.Get("keep")
	id := store.Get("id")
	require.NotNil(t, poke)
	require.NotNil(t, peek)
	require.NotNil(t, keep)
	require.NotNil(t, id)

	assert.True(t, p.IsParameterCopyNeeded(poke, 0, y), "callee mutates")
	assert.True(t, p.IsParameterCopyNeeded(keep, 0, y), "callee lets it escape")
	assert.False(t, p.IsParameterCopyNeeded(peek, 0, y), "callee only reads")
	assert.False(t, p.IsParameterCopyNeeded(id, 0, y),
		"escaping through the result is the call site's business")

	assert.True(t, p.IsParameterCopyNeeded(nil, 0, y))
	assert.True(t, p.IsParameterCopyNeeded(peek, 5, y), "unresolvable position")
	assert.False(t, p.IsParameterCopyNeeded(poke, 0, &ir.NewNode{Typ: vecType}),
		"the structural verdict screens first")

	cons := NewPass(emptyMain(), store, Options{Optimize: false})
	assert.True(t, cons.IsParameterCopyNeeded(peek, 0, y))
}
