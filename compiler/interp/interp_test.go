package interp

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

func TestRunBlockAddsTwoWords(t *testing.T) {
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

	results, trace, err := RunBlock(context.Background(), prog, "add2", 3, 4)
	require.NoError(t, err)
	require.Empty(t, trace)
	require.Equal(t, []uint64{7}, results)
}

func TestRunBlockTrapsOnDivideByZero(t *testing.T) {
	prog := mil.NewProgram("t")

	x := prog.FreshTemp()
	zero := prog.FreshTemp()

	q := prog.FreshTemp()

	b := &mil.Block{
		Name:        "divz",
		Params:      []mil.Temp{x},
		ParamTypes:  []mil.Type{mil.WordType{}},
		ResultTypes: []mil.Type{mil.WordType{}},
		Body: mil.Bindn([]mil.Temp{zero}, mustPrimCall(t, prog, mil.PrimSub, x, x),
			mil.Bindn([]mil.Temp{q}, mustPrimCall(t, prog, mil.PrimDiv, x, zero),
				mil.CodeOf(mil.Return{Args: []mil.Atom{q}}))),
	}
	prog.AddBlock(b)

	_, _, err := RunBlock(context.Background(), prog, "divz", 5)
	require.Error(t, err)

	var trap *Trap
	require.ErrorAs(t, err, &trap)
	require.Equal(t, "division by zero", trap.Reason)
}

// A block whose body prints an argument twice, exercising the
// printWord trace spec.md §8's round-trip property is stated in terms
// of.
func TestRunBlockCollectsPrintWordTrace(t *testing.T) {
	prog := mil.NewProgram("t")

	x := prog.FreshTemp()

	body := mil.Bindn(nil, mustPrimCall(t, prog, mil.PrimPrintWord, x),
		mil.Bindn(nil, mustPrimCall(t, prog, mil.PrimPrintWord, x),
			mil.CodeOf(mil.Return{})))

	b := &mil.Block{
		Name:        "printtwice",
		Params:      []mil.Temp{x},
		ParamTypes:  []mil.Type{mil.WordType{}},
		ResultTypes: nil,
		Body:        body,
	}
	prog.AddBlock(b)

	results, trace, err := RunBlock(context.Background(), prog, "printtwice", 9)
	require.NoError(t, err)
	require.Empty(t, results)
	require.Equal(t, []uint64{9, 9}, trace)
}

func TestRunEvaluatesTopLevelsOnce(t *testing.T) {
	prog := mil.NewProgram("t")

	top := &mil.TopLevel{
		Name: "answer",
		Lhs:  []mil.TopLhs{{Name: "answer", Type: mil.WordType{}}},
		Tail: mustPrimCall(t, prog, mil.PrimAdd, mil.IntConst{Value: 40}, mil.IntConst{Value: 2}),
	}
	prog.AddTopLevel(top)
	prog.Entries = append(prog.Entries, top)

	trace, err := Run(context.Background(), prog)
	require.NoError(t, err)
	require.Empty(t, trace)

	st := New(prog)
	vs, err := st.forceTop(top)
	require.NoError(t, err)
	require.Equal(t, []Value{Word(42)}, vs)
}
