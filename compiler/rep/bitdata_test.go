package rep

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// TestAllocateLayoutPacksTagAndPayload traces spec §8 scenario 5's
// running example directly: a 2-bit tag pattern 0b10 over a 6-bit
// payload field packs into a single 8-bit-wide layout with the tag at
// the top and the field at offset 0.
func TestAllocateLayoutPacksTagAndPayload(t *testing.T) {
	lay, err := AllocateLayout(0b10, 2, []FieldSpec{{Name: "payload", Width: 6}})
	require.NoError(t, err)

	require.Equal(t, 8, lay.Width)
	require.Equal(t, 6, lay.TagShift)
	require.Equal(t, 0, lay.Fields[0].Shift)
	require.Equal(t, uint64(0x80), lay.TagBits())
	require.Equal(t, uint64(0xC0), lay.TagMask())
}

// TestClaimRejectsOverlap exercises the overlap guard AllocateLayout's
// contiguous packer relies on but never itself triggers (since
// packing bits downward from the tag can't overlap by construction).
func TestClaimRejectsOverlap(t *testing.T) {
	claimed := newBitSet(8)

	require.NoError(t, claim(&claimed, 0, 4))
	require.Error(t, claim(&claimed, 2, 4), "bit 2 is already claimed by the first range")
}

// TestBuildConstructorBlockProducesExpectedWord builds the generated
// constructor block for the scenario-5 layout and evaluates it with
// payload 0x2A, expecting the packed word 0b10_101010 == 0xAA.
func TestBuildConstructorBlockProducesExpectedWord(t *testing.T) {
	prog := mil.NewProgram("t")

	dn := &mil.DataName{Name: "Packed"}
	prog.AddDataName(dn)

	cf := &mil.Cfun{Data: dn, ArgTypes: []mil.Type{mil.WordType{}}}
	prog.AddCfun(cf)

	lay, err := AllocateLayout(0b10, 2, []FieldSpec{{Name: "payload", Width: 6}})
	require.NoError(t, err)

	blk := BuildConstructorBlock(prog, cf, lay)
	require.Len(t, blk.Params, 1)

	got := evalStraightLine(t, blk.Body, map[mil.Temp]uint64{blk.Params[0]: 0x2A})
	require.Equal(t, uint64(0xAA), got)
}

// TestBuildSelectorBlockRecoversPayload builds the generated selector
// block and confirms it recovers the original payload from a packed
// word.
func TestBuildSelectorBlockRecoversPayload(t *testing.T) {
	prog := mil.NewProgram("t")

	dn := &mil.DataName{Name: "Packed"}
	prog.AddDataName(dn)

	cf := &mil.Cfun{Data: dn, ArgTypes: []mil.Type{mil.WordType{}}}
	prog.AddCfun(cf)

	lay, err := AllocateLayout(0b10, 2, []FieldSpec{{Name: "payload", Width: 6}})
	require.NoError(t, err)

	blk := BuildSelectorBlock(prog, cf, lay, 0)
	require.Len(t, blk.Params, 1)

	got := evalStraightLine(t, blk.Body, map[mil.Temp]uint64{blk.Params[0]: 0xAA})
	require.Equal(t, uint64(0x2A), got)
}

// TestTransformLowersMaskTestDispatch runs the full Transform pass
// over a block whose body dispatches on a bitdata-typed Case, and
// confirms the generated mask-test chain routes 0xAA to the matching
// arm and 0x6A to the fallback, per spec §8 scenario 5's "masktest on
// 0xAA returns True, on 0x6A returns False."
func TestTransformLowersMaskTestDispatch(t *testing.T) {
	prog := mil.NewProgram("t")

	dn := &mil.DataName{Name: "Packed"}
	prog.AddDataName(dn)

	cf := &mil.Cfun{Data: dn, ArgTypes: []mil.Type{mil.WordType{}}}
	prog.AddCfun(cf)

	lay, err := AllocateLayout(0b10, 2, []FieldSpec{{Name: "payload", Width: 6}})
	require.NoError(t, err)

	matchArg := prog.FreshTemp()
	matchBlock := &mil.Block{
		Name:        "matched",
		Params:      []mil.Temp{matchArg},
		ParamTypes:  []mil.Type{mil.WordType{}},
		Body:        mil.CodeOf(mil.Return{Args: []mil.Atom{mil.IntConst{Value: 1}}}),
		ResultTypes: []mil.Type{mil.WordType{}},
	}
	prog.AddBlock(matchBlock)

	missArg := prog.FreshTemp()
	missBlock := &mil.Block{
		Name:        "missed",
		Params:      []mil.Temp{missArg},
		ParamTypes:  []mil.Type{mil.WordType{}},
		Body:        mil.CodeOf(mil.Return{Args: []mil.Atom{mil.IntConst{Value: 0}}}),
		ResultTypes: []mil.Type{mil.WordType{}},
	}
	prog.AddBlock(missBlock)

	scrutinee := prog.FreshTemp()
	container := &mil.Block{
		Name:       "dispatch",
		Params:     []mil.Temp{scrutinee},
		ParamTypes: []mil.Type{mil.WordType{}},
		Body: mil.Case{
			Cond:    scrutinee,
			Alts:    []mil.CaseAlt{{Cfun: cf, Call: mil.BlockCall{Block: matchBlock, Args: []mil.Atom{scrutinee}}}},
			Default: &mil.BlockCall{Block: missBlock, Args: []mil.Atom{scrutinee}},
		},
		ResultTypes: []mil.Type{mil.WordType{}},
	}
	prog.AddBlock(container)

	env := &Env{Layouts: map[*mil.DataName]map[*mil.Cfun]Layout{dn: {cf: lay}}}

	require.NoError(t, Transform(context.Background(), prog, env))

	done, ok := container.Body.(mil.Done)
	require.True(t, ok)
	call, ok := done.Tail.(mil.BlockCall)
	require.True(t, ok, "Case must have been lowered to a BlockCall into the generated chain")

	require.Equal(t, matchBlock, runDispatch(t, call.Block, 0xAA))
	require.Equal(t, missBlock, runDispatch(t, call.Block, 0x6A))
}

// evalStraightLine evaluates a Bind spine of shl/lshr/and/or PrimCalls
// terminated by a Return, substituting params for the given values —
// a minimal stand-in for compiler/interp, scoped to
// this test's straight-line generated blocks only.
func evalStraightLine(t *testing.T, body mil.Code, params map[mil.Temp]uint64) uint64 {
	t.Helper()

	vals := map[mil.Temp]uint64{}
	for k, v := range params {
		vals[k] = v
	}

	atomVal := func(a mil.Atom) uint64 {
		switch a := a.(type) {
		case mil.Temp:
			v, ok := vals[a]
			require.True(t, ok, "temp %v not bound", a)

			return v
		case mil.IntConst:
			return a.Value
		default:
			t.Fatalf("unexpected atom %T", a)

			return 0
		}
	}

	for {
		switch x := body.(type) {
		case mil.Bind:
			require.Len(t, x.Vars, 1)

			pc, ok := x.Tail.(mil.PrimCall)
			require.True(t, ok)

			var result uint64

			switch pc.Prim.ID {
			case mil.PrimShl:
				result = atomVal(pc.Args[0]) << atomVal(pc.Args[1])
			case mil.PrimLshr:
				result = atomVal(pc.Args[0]) >> atomVal(pc.Args[1])
			case mil.PrimAnd:
				result = atomVal(pc.Args[0]) & atomVal(pc.Args[1])
			case mil.PrimOr:
				result = atomVal(pc.Args[0]) | atomVal(pc.Args[1])
			default:
				t.Fatalf("unexpected prim %s", pc.Prim.Name)
			}

			vals[x.Vars[0]] = result
			body = x.Next
		case mil.Done:
			ret, ok := x.Tail.(mil.Return)
			require.True(t, ok)
			require.Len(t, ret.Args, 1)

			return atomVal(ret.Args[0])
		default:
			t.Fatalf("unexpected code %T", body)

			return 0
		}
	}
}

// runDispatch drives a generated mask-test chain block with a single
// word argument, following If branches (recursing into the Else
// block, which is always another generated chain block taking the
// same word) until it reaches a terminal BlockCall, and returns the
// block that call targets.
func runDispatch(t *testing.T, blk *mil.Block, word uint64) *mil.Block {
	t.Helper()

	require.Len(t, blk.Params, 1)

	vals := map[mil.Temp]uint64{blk.Params[0]: word}

	c := blk.Body
	for {
		switch x := c.(type) {
		case mil.Bind:
			require.Len(t, x.Vars, 1)

			pc, ok := x.Tail.(mil.PrimCall)
			require.True(t, ok)

			var result uint64

			switch pc.Prim.ID {
			case mil.PrimAnd:
				result = vals[pc.Args[0].(mil.Temp)] & pc.Args[1].(mil.IntConst).Value
			case mil.PrimEq:
				a, ok := pc.Args[0].(mil.Temp)
				require.True(t, ok)

				if vals[a] == pc.Args[1].(mil.IntConst).Value {
					result = 1
				}
			default:
				t.Fatalf("unexpected prim in dispatch chain: %s", pc.Prim.Name)
			}

			vals[x.Vars[0]] = result
			c = x.Next
		case mil.If:
			if vals[x.Cond] != 0 {
				return x.Then.Block
			}

			return runDispatch(t, x.Else.Block, word)
		case mil.Done:
			tail, ok := x.Tail.(mil.BlockCall)
			require.True(t, ok)

			return tail.Block
		default:
			t.Fatalf("unexpected code %T", c)

			return nil
		}
	}
}
