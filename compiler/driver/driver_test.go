package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EmiliaPaz/mil-tools/compiler/pipeline"
)

func TestCompileEndToEnd(t *testing.T) {
	src := `
block fold() -> (word) {
	let x = add(3, 4)
	return x
}
`

	prog, mod, err := Compile(context.Background(), "fold.mil", []byte(src), pipeline.Default())
	require.NoError(t, err)
	require.NotEmpty(t, prog.Blocks)

	s := mod.String()
	require.Contains(t, s, "@fold")
}

func TestCompileRejectsUncheckedSource(t *testing.T) {
	_, _, err := Compile(context.Background(), "bad.mil", []byte("block f(x: nope) -> (word) { return x }"), pipeline.Default())
	require.Error(t, err)
}

func TestBuildThenOptimizeThenEmitSeparately(t *testing.T) {
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

	prog, err := Build(context.Background(), "dispatch.mil", []byte(src))
	require.NoError(t, err)
	require.Len(t, prog.Blocks, 3)

	err = Optimize(context.Background(), prog, pipeline.Default(), nil, nil)
	require.NoError(t, err)

	mod, err := Emit(context.Background(), prog)
	require.NoError(t, err)
	require.Contains(t, mod.String(), "define")
}
