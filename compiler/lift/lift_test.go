package lift

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

func mustCall(t *testing.T, prog *mil.Program, id mil.PrimID, args ...mil.Atom) mil.PrimCall {
	t.Helper()

	pc, err := mil.NewPrimCall(prog.Prims, id, args)
	require.NoError(t, err)

	return pc
}

// TestLiftAppendsSingleFreeVariable covers a local function g(y) that
// reads a variable x captured from its enclosing scope but never
// declared as its own parameter: after Lift, g gains x as a trailing
// parameter, and both its outer definition-site call and any call from
// within its own body carry the extra argument.
func TestLiftAppendsSingleFreeVariable(t *testing.T) {
	prog := mil.NewProgram("t")

	x := prog.FreshTemp() // captured from the enclosing scope
	y := prog.FreshTemp() // g's own declared parameter
	r := prog.FreshTemp()

	g := &mil.Block{
		Name:       "g",
		Params:     []mil.Temp{y},
		ParamTypes: []mil.Type{mil.WordType{}},
		Body: mil.Bindn([]mil.Temp{r}, mustCall(t, prog, mil.PrimAdd, x, y),
			mil.CodeOf(mil.Return{Args: []mil.Atom{r}})),
		ResultTypes: []mil.Type{mil.WordType{}},
	}
	prog.AddBlock(g)

	// outer entry point calls g(y) from a context where x is in scope
	entry := &mil.TopLevel{
		Name: "main",
		Lhs:  []mil.TopLhs{{Name: "result", Type: mil.WordType{}}},
		Tail: mil.BlockCall{Block: g, Args: []mil.Atom{mil.IntConst{Value: 7}}},
	}
	prog.AddTopLevel(entry)

	funcs := []LocalFunc{
		{Block: g, Free: []mil.Temp{x}, FreeTypes: []mil.Type{mil.WordType{}}},
	}

	env := Lift(context.Background(), prog, funcs)

	require.Equal(t, []mil.Temp{x}, env.Extra(g))
	require.Equal(t, []mil.Temp{y, x}, g.Params)
	require.Equal(t, []mil.Type{mil.WordType{}, mil.WordType{}}, g.ParamTypes)

	call, ok := entry.Tail.(mil.BlockCall)
	require.True(t, ok)
	require.Equal(t, []mil.Atom{mil.IntConst{Value: 7}, x}, call.Args)
}

// TestLiftPropagatesThroughMutualRecursion covers an SCC of size 2:
// even(n) calls odd(n-1) and odd(m) calls even(m+base); only odd's body
// itself reads the captured variable base, but since even calls odd,
// even must also gain base as an extra parameter to be able to pass it
// along, and every call site — even's own recursive call into odd,
// odd's call back into even, and the outer entry call into even — must
// carry the extra argument.
func TestLiftPropagatesThroughMutualRecursion(t *testing.T) {
	prog := mil.NewProgram("t")

	base := prog.FreshTemp() // captured only by odd, transitively needed by even
	n := prog.FreshTemp()
	m := prog.FreshTemp()
	nMinus1 := prog.FreshTemp()
	mMinus1 := prog.FreshTemp()

	even := &mil.Block{
		Name:        "even",
		Params:      []mil.Temp{n},
		ParamTypes:  []mil.Type{mil.WordType{}},
		ResultTypes: []mil.Type{mil.WordType{}},
	}
	odd := &mil.Block{
		Name:        "odd",
		Params:      []mil.Temp{m},
		ParamTypes:  []mil.Type{mil.WordType{}},
		ResultTypes: []mil.Type{mil.WordType{}},
	}

	even.Body = mil.Bindn([]mil.Temp{nMinus1}, mustCall(t, prog, mil.PrimSub, n, mil.IntConst{Value: 1}),
		mil.CodeOf(mil.BlockCall{Block: odd, Args: []mil.Atom{nMinus1}}))

	// odd is the only body that mentions base directly
	odd.Body = mil.Bindn([]mil.Temp{mMinus1}, mustCall(t, prog, mil.PrimAdd, m, base),
		mil.CodeOf(mil.BlockCall{Block: even, Args: []mil.Atom{mMinus1}}))

	prog.AddBlock(even)
	prog.AddBlock(odd)

	entry := &mil.TopLevel{
		Name: "main",
		Lhs:  []mil.TopLhs{{Name: "result", Type: mil.WordType{}}},
		Tail: mil.BlockCall{Block: even, Args: []mil.Atom{mil.IntConst{Value: 10}}},
	}
	prog.AddTopLevel(entry)

	funcs := []LocalFunc{
		{Block: even, Free: nil, Calls: []*mil.Block{odd}},
		{Block: odd, Free: []mil.Temp{base}, FreeTypes: []mil.Type{mil.WordType{}}, Calls: []*mil.Block{even}},
	}

	env := Lift(context.Background(), prog, funcs)

	require.Equal(t, []mil.Temp{base}, env.Extra(even), "even must also gain base to pass it on to odd")
	require.Equal(t, []mil.Temp{base}, env.Extra(odd))

	require.Equal(t, []mil.Temp{n, base}, even.Params)
	require.Equal(t, []mil.Temp{m, base}, odd.Params)

	// even's internal call into odd now carries base
	evenBinds, evenTerm := flattenForTest(even.Body)
	require.Len(t, evenBinds, 1)
	evenDone, ok := evenTerm.(mil.Done)
	require.True(t, ok)
	evenCall, ok := evenDone.Tail.(mil.BlockCall)
	require.True(t, ok)
	require.Equal(t, []mil.Atom{nMinus1, base}, evenCall.Args)

	// odd's internal call into even now carries base
	oddBinds, oddTerm := flattenForTest(odd.Body)
	require.Len(t, oddBinds, 1)
	oddDone, ok := oddTerm.(mil.Done)
	require.True(t, ok)
	oddCall, ok := oddDone.Tail.(mil.BlockCall)
	require.True(t, ok)
	require.Equal(t, []mil.Atom{mMinus1, base}, oddCall.Args)

	// the outer entry call site into even also carries base
	entryCall, ok := entry.Tail.(mil.BlockCall)
	require.True(t, ok)
	require.Equal(t, []mil.Atom{mil.IntConst{Value: 10}, base}, entryCall.Args)
}

// flattenForTest walks a Bind spine to its terminal Code, mirroring
// compiler/pass's flatten without importing that package (lift sits
// below pass in the layering).
func flattenForTest(c mil.Code) (binds []mil.Bind, term mil.Code) {
	for {
		b, ok := c.(mil.Bind)
		if !ok {
			return binds, c
		}

		binds = append(binds, b)
		c = b.Next
	}
}
