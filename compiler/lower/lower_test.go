package lower

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EmiliaPaz/mil-tools/compiler/frontend"
	"github.com/EmiliaPaz/mil-tools/compiler/interp"
	"github.com/EmiliaPaz/mil-tools/compiler/mil"
	"github.com/EmiliaPaz/mil-tools/compiler/tycheck"
)

func lowerSource(t *testing.T, src string) *mil.Program {
	t.Helper()

	f, err := frontend.Parse(context.Background(), "t.mil", []byte(src))
	require.NoError(t, err)

	tf, err := tycheck.Check(context.Background(), f)
	require.NoError(t, err)

	prog := mil.NewProgram("t")

	err = Lower(context.Background(), prog, tf)
	require.NoError(t, err)

	return prog
}

// TestLowerConstantFoldingScenario runs spec.md §8 scenario 1's block
// all the way from source text to an interpreted result: fold() binds
// x to add(3,4) and returns it.
func TestLowerConstantFoldingScenario(t *testing.T) {
	src := `
block fold() -> (word) {
	let x = add(3, 4)
	return x
}
`

	prog := lowerSource(t, src)
	require.Len(t, prog.Blocks, 1)
	require.Equal(t, "fold", prog.Blocks[0].Name)

	results, trace, err := interp.RunBlock(context.Background(), prog, "fold")
	require.NoError(t, err)
	require.Empty(t, trace)
	require.Equal(t, []uint64{7}, results)
}

// TestLowerIfDispatchesToNamedBlocks checks that an if/else statement
// lowers to a mil.If whose arms are tail calls to the named blocks,
// and that both arms actually execute correctly through the
// interpreter.
func TestLowerIfDispatchesToNamedBlocks(t *testing.T) {
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

	prog := lowerSource(t, src)

	var dispatch *mil.Block
	for _, b := range prog.Blocks {
		if b.Name == "dispatch" {
			dispatch = b
		}
	}
	require.NotNil(t, dispatch)

	ifs, ok := dispatch.Body.(mil.If)
	require.True(t, ok)
	require.Equal(t, "matched", ifs.Then.Block.Name)
	require.Equal(t, "missed", ifs.Else.Block.Name)

	results, _, err := interp.RunBlock(context.Background(), prog, "dispatch", 9, 1)
	require.NoError(t, err)
	require.Equal(t, []uint64{9}, results)

	results, _, err = interp.RunBlock(context.Background(), prog, "dispatch", 9, 0)
	require.NoError(t, err)
	require.Equal(t, []uint64{9}, results)
}

func TestLowerTopLevelEvaluatesConstant(t *testing.T) {
	prog := lowerSource(t, `top answer : word = add(40, 2)`)

	require.Len(t, prog.TopLevels, 1)
	require.Len(t, prog.Entries, 1)
	require.Equal(t, "answer", prog.TopLevels[0].Name)
	require.Equal(t, mil.WordType{}, prog.TopLevels[0].Lhs[0].Type)

	trace, err := interp.Run(context.Background(), prog)
	require.NoError(t, err)
	require.Empty(t, trace)
}

func TestLowerRejectsCallToUndeclaredBlock(t *testing.T) {
	f, err := frontend.Parse(context.Background(), "t.mil", []byte(`
block start() -> (word) {
	call missing()
}
`))
	require.NoError(t, err)

	_, err = tycheck.Check(context.Background(), f)
	require.Error(t, err)
}
