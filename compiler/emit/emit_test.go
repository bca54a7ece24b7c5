package emit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

func mustPrimCall(t *testing.T, prog *mil.Program, id mil.PrimID, args ...mil.Atom) mil.PrimCall {
	t.Helper()

	pc, err := mil.NewPrimCall(prog.Prims, id, args)
	require.NoError(t, err)

	return pc
}

func TestEmitModuleDeclaresSupportFunctions(t *testing.T) {
	prog := mil.NewProgram("t")

	mod, err := EmitModule(context.Background(), prog)
	require.NoError(t, err)

	s := mod.String()
	require.Contains(t, s, "declare void @llmil.print(i64 %w)")
	require.Contains(t, s, "declare void @llmil.abort()")
}

func TestEmitModuleEmitsAddBlockAsFunction(t *testing.T) {
	prog := mil.NewProgram("t")

	x := prog.FreshTemp()
	y := prog.FreshTemp()
	sum := prog.FreshTemp()

	b := &mil.Block{
		Name:        "add2",
		Params:      []mil.Temp{x, y},
		ParamTypes:  []mil.Type{mil.WordType{}, mil.WordType{}},
		ResultTypes: []mil.Type{mil.WordType{}},
		Body: mil.Bindn([]mil.Temp{sum}, mustPrimCall(t, prog, mil.PrimAdd, x, y),
			mil.CodeOf(mil.Return{Args: []mil.Atom{sum}})),
	}
	prog.AddBlock(b)

	mod, err := EmitModule(context.Background(), prog)
	require.NoError(t, err)

	s := mod.String()
	require.Contains(t, s, "define i64 @add2(i64 %t0, i64 %t1)")
	require.Contains(t, s, "add i64")
	require.Contains(t, s, "ret i64")
}

func TestEmitModuleEmitsTopLevelAsZeroArgFunction(t *testing.T) {
	prog := mil.NewProgram("t")

	top := &mil.TopLevel{
		Name: "answer",
		Lhs:  []mil.TopLhs{{Name: "answer", Type: mil.WordType{}}},
		Tail: mustPrimCall(t, prog, mil.PrimAdd, mil.IntConst{Value: 40}, mil.IntConst{Value: 2}),
	}
	prog.AddTopLevel(top)

	mod, err := EmitModule(context.Background(), prog)
	require.NoError(t, err)

	s := mod.String()
	require.Contains(t, s, "define i64 @top.answer()")
	require.Contains(t, s, "ret i64")
}

func TestEmitModuleBranchesOnIf(t *testing.T) {
	prog := mil.NewProgram("t")

	x := prog.FreshTemp()
	zero := prog.FreshTemp()
	cond := prog.FreshTemp()

	then := &mil.Block{
		Name:        "then",
		ResultTypes: []mil.Type{mil.WordType{}},
		Body:        mil.CodeOf(mil.Return{Args: []mil.Atom{mil.IntConst{Value: 1}}}),
	}
	els := &mil.Block{
		Name:        "else",
		ResultTypes: []mil.Type{mil.WordType{}},
		Body:        mil.CodeOf(mil.Return{Args: []mil.Atom{mil.IntConst{Value: 0}}}),
	}
	prog.AddBlock(then)
	prog.AddBlock(els)

	main := &mil.Block{
		Name:        "iszero",
		Params:      []mil.Temp{x},
		ParamTypes:  []mil.Type{mil.WordType{}},
		ResultTypes: []mil.Type{mil.WordType{}},
		Body: mil.Bindn([]mil.Temp{zero}, mustPrimCall(t, prog, mil.PrimSub, x, x),
			mil.Bindn([]mil.Temp{cond}, mustPrimCall(t, prog, mil.PrimEq, x, zero),
				mil.If{
					Cond: cond,
					Then: mil.BlockCall{Block: then},
					Else: mil.BlockCall{Block: els},
				})),
	}
	prog.AddBlock(main)

	mod, err := EmitModule(context.Background(), prog)
	require.NoError(t, err)

	s := mod.String()
	require.Contains(t, s, "define i64 @iszero(i64 %t0)")
	require.Contains(t, s, "br i1")
	require.Contains(t, s, "if.then.")
	require.Contains(t, s, "if.else.")
}

func TestEmitModuleRejectsUnloweredType(t *testing.T) {
	prog := mil.NewProgram("t")

	dn := prog.AddDataName(&mil.DataName{Name: "T"})

	b := &mil.Block{
		Name:        "bad",
		Params:      []mil.Temp{prog.FreshTemp()},
		ParamTypes:  []mil.Type{mil.DataType{Name: dn}},
		ResultTypes: []mil.Type{mil.WordType{}},
		Body:        mil.CodeOf(mil.Return{Args: []mil.Atom{mil.IntConst{Value: 0}}}),
	}
	prog.AddBlock(b)

	_, err := EmitModule(context.Background(), prog)
	require.Error(t, err)
}
