package frontend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseConstantFoldingScenario parses spec.md §8 scenario 1's
// block as source text: bind x to add(3,4), return x.
func TestParseConstantFoldingScenario(t *testing.T) {
	src := `
block fold() -> (word) {
	let x = add(3, 4)
	return x
}
`

	f, err := Parse(context.Background(), "fold.mil", []byte(src))
	require.NoError(t, err)
	require.Len(t, f.Blocks, 1)

	b := f.Blocks[0]
	require.Equal(t, "fold", b.Name)
	require.Len(t, b.Lets, 1)
	require.Equal(t, []string{"x"}, b.Lets[0].Vars)

	prim, ok := b.Lets[0].Expr.(PrimExpr)
	require.True(t, ok)
	require.Equal(t, "add", prim.Name)
	require.Equal(t, IntExpr{Value: 3, Pos: prim.Args[0].(IntExpr).Pos}, prim.Args[0])
	require.Equal(t, IntExpr{Value: 4, Pos: prim.Args[1].(IntExpr).Pos}, prim.Args[1])

	ret, ok := b.Term.(*ReturnStmt)
	require.True(t, ok)
	require.Equal(t, []AtomExpr{IdentExpr{Name: "x", Pos: ret.Args[0].(IdentExpr).Pos}}, ret.Args)
}

// TestParseIfDispatchesToNamedBlocks exercises the if/else surface
// form, both arms tail-calling another block.
func TestParseIfDispatchesToNamedBlocks(t *testing.T) {
	src := `
block matched(x0: word) -> (word) { return x0 }
block missed(x0: word) -> (word) { return x0 }

block dispatch(x0: word, c0: flag) -> (word) {
	if c0 {
		call matched(x0)
	} else {
		call missed(x0)
	}
}
`

	f, err := Parse(context.Background(), "dispatch.mil", []byte(src))
	require.NoError(t, err)
	require.Len(t, f.Blocks, 3)

	dispatch := f.Blocks[2]
	require.Equal(t, "dispatch", dispatch.Name)

	ifs, ok := dispatch.Term.(*IfStmt)
	require.True(t, ok)
	require.Equal(t, "matched", ifs.Then.Target)
	require.Equal(t, "missed", ifs.Else.Target)
}

func TestParseTopLevel(t *testing.T) {
	src := `top answer : word = add(40, 2)`

	f, err := Parse(context.Background(), "top.mil", []byte(src))
	require.NoError(t, err)
	require.Len(t, f.Tops, 1)
	require.Equal(t, "answer", f.Tops[0].Name)
	require.Equal(t, "word", f.Tops[0].Type)
}

func TestParseRejectsMalformedBlock(t *testing.T) {
	_, err := Parse(context.Background(), "bad.mil", []byte("block f( -> (word) { return x }"))
	require.Error(t, err)
}
