package pass

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// TestEliminateDuplicatesMergesAlphaEquivalentTopLevels is spec.md §8
// scenario 7 in its literal shape: two top-levels computing the same
// value get merged, with the later one's Tail rewritten to Return the
// earlier one's result rather than recomputing it.
func TestEliminateDuplicatesMergesAlphaEquivalentTopLevels(t *testing.T) {
	prog := mil.NewProgram("t")

	first := prog.AddTopLevel(&mil.TopLevel{
		Name: "first",
		Lhs:  []mil.TopLhs{{Name: "first", Type: mil.WordType{}}},
		Tail: mustCall(t, prog, mil.PrimAdd, mil.IntConst{Value: 3}, mil.IntConst{Value: 4}),
	})

	second := prog.AddTopLevel(&mil.TopLevel{
		Name: "second",
		Lhs:  []mil.TopLhs{{Name: "second", Type: mil.WordType{}}},
		Tail: mustCall(t, prog, mil.PrimAdd, mil.IntConst{Value: 3}, mil.IntConst{Value: 4}),
	})

	changed := eliminateDuplicates(prog)
	require.True(t, changed)

	ret, ok := second.Tail.(mil.Return)
	require.True(t, ok, "duplicate top-level must become a Return of the survivor's results")
	require.Equal(t, []mil.Atom{mil.TopRef{Top: first, Index: 0}}, ret.Args)

	_, stillOriginal := first.Tail.(mil.PrimCall)
	require.True(t, stillOriginal, "the earlier top-level survives untouched")
}

// TestEliminateDuplicatesMergesAlphaEquivalentBlocks is spec.md §8
// scenario 7 applied to blocks instead of top-levels: two blocks with
// alpha-equivalent tails are merged, and the later one's callers are
// redirected to the earlier one's survivor.
func TestEliminateDuplicatesMergesAlphaEquivalentBlocks(t *testing.T) {
	prog := mil.NewProgram("t")

	x0 := prog.FreshTemp()
	a := &mil.Block{
		Name:        "a",
		Params:      []mil.Temp{x0},
		ParamTypes:  []mil.Type{mil.WordType{}},
		Body:        mil.CodeOf(mustCall(t, prog, mil.PrimAdd, x0, mil.IntConst{Value: 1})),
		ResultTypes: []mil.Type{mil.WordType{}},
	}

	y0 := prog.FreshTemp()
	b := &mil.Block{
		Name:        "b",
		Params:      []mil.Temp{y0},
		ParamTypes:  []mil.Type{mil.WordType{}},
		Body:        mil.CodeOf(mustCall(t, prog, mil.PrimAdd, y0, mil.IntConst{Value: 1})),
		ResultTypes: []mil.Type{mil.WordType{}},
	}

	prog.AddBlock(a)
	prog.AddBlock(b)

	caller := &mil.Block{
		Name:        "caller",
		Body:        mil.CodeOf(mil.BlockCall{Block: b, Args: []mil.Atom{mil.IntConst{Value: 7}}}),
		ResultTypes: []mil.Type{mil.WordType{}},
	}
	prog.AddBlock(caller)

	changed := eliminateDuplicates(prog)
	require.True(t, changed)
	require.Len(t, prog.Blocks, 2, "one of a/b must be dropped as a duplicate")

	_, term := flatten(caller.Body)
	done, ok := term.(mil.Done)
	require.True(t, ok)

	bc, ok := done.Tail.(mil.BlockCall)
	require.True(t, ok)
	require.Equal(t, a, bc.Block, "caller must be redirected to the surviving block")
}
