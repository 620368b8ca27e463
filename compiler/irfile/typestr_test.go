package irfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrylang/ferry/compiler/types"
)

func TestParseType(t *testing.T) {
	vec := &types.Struct{SourceName: "Vec2"}
	d := &decoder{structs: map[string]*types.Struct{"Vec2": vec}}

	t.Run("basics", func(t *testing.T) {
		for s, want := range map[string]types.Type{
			"i64":    types.I64,
			"f64":    types.F64,
			"bool":   types.Bool,
			"string": types.String,
			"void":   types.Void,
			"Vec2":   vec,
			" i64 ":  types.I64,
		} {
			got, err := d.parseType(s)
			require.NoError(t, err, s)
			assert.Same(t, want, got, s)
		}
	})

	t.Run("compound", func(t *testing.T) {
		got, err := d.parseType("[]Vec2")
		require.NoError(t, err)
		assert.Same(t, vec, got.(*types.Array).Elem)

		got, err = d.parseType("*Vec2")
		require.NoError(t, err)
		assert.Same(t, vec, got.(*types.Pointer).Elem)

		got, err = d.parseType("Vec2?")
		require.NoError(t, err)
		assert.Same(t, vec, got.(*types.Nullable).Elem)

		// The nullable suffix binds loosest.
		got, err = d.parseType("[]Vec2?")
		require.NoError(t, err)
		arr := got.(*types.Nullable).Elem.(*types.Array)
		assert.Same(t, vec, arr.Elem)
	})

	t.Run("func", func(t *testing.T) {
		got, err := d.parseType("func()")
		require.NoError(t, err)
		ft := got.(*types.Func)
		assert.Empty(t, ft.Params)
		assert.Same(t, types.Void, ft.Ret)

		got, err = d.parseType("func(Vec2, i64) f64")
		require.NoError(t, err)
		ft = got.(*types.Func)
		require.Len(t, ft.Params, 2)
		assert.Same(t, vec, ft.Params[0])
		assert.Same(t, types.I64, ft.Params[1])
		assert.Same(t, types.F64, ft.Ret)

		got, err = d.parseType("func(func(i64) i64) i64")
		require.NoError(t, err)
		ft = got.(*types.Func)
		require.Len(t, ft.Params, 1)
		inner := ft.Params[0].(*types.Func)
		assert.Same(t, types.I64, inner.Ret)
	})

	t.Run("errors", func(t *testing.T) {
		for _, s := range []string{"", "   ", "Nope", "[]Nope", "func(", "func(Nope) i64"} {
			_, err := d.parseType(s)
			assert.Error(t, err, "%q", s)
		}
	})
}
