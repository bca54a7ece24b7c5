package rep

import (
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/EmiliaPaz/mil-tools/compiler/fact"
	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// FieldSpec names one payload field of a bitdata constructor before
// bit positions are assigned.
type FieldSpec struct {
	Name  string
	Width int
}

// AllocatedField is a FieldSpec once AllocateLayout has given it a
// fixed bit offset within the packed word.
type AllocatedField struct {
	FieldSpec
	Shift int
}

// Layout is one constructor's packed single-word bit scheme: a fixed
// tag pattern occupying the high bits, and its payload fields packed
// contiguously below it (spec §4.6, §8 scenario 5's worked example:
// TagValue=0b10, TagShift=6, TagWidth=2, one field of width 6 at
// shift 0, so payload 0x2A -> word 0b10_101010 == 0xAA).
type Layout struct {
	TagValue uint64
	TagShift int
	TagWidth int
	Fields   []AllocatedField
	Width    int
}

func (l Layout) TagMask() uint64 { return ((uint64(1) << l.TagWidth) - 1) << l.TagShift }
func (l Layout) TagBits() uint64 { return l.TagValue << l.TagShift }

func (l Layout) FieldMask(i int) uint64 {
	f := l.Fields[i]
	return ((uint64(1) << f.Width) - 1) << f.Shift
}

// AllocateLayout packs a tag and its payload fields into a single
// word: the tag takes the top TagWidth bits, and every field is
// packed contiguously below it in the order given, widest-to-caller
// first. It uses a bitSet of already-claimed bit positions to detect
// overlap, the same bookkeeping a real non-contiguous bit packer
// needs once fields can be reordered or padded — here the packing is
// always contiguous, so overlap can never actually occur, but the
// check is cheap and catches a future caller passing already-
// allocated fields by mistake.
func AllocateLayout(tagValue uint64, tagWidth int, fields []FieldSpec) (Layout, error) {
	total := tagWidth
	for _, f := range fields {
		total += f.Width
	}

	claimed := newBitSet(total)
	tagShift := total - tagWidth

	if err := claim(&claimed, tagShift, tagWidth); err != nil {
		return Layout{}, errors.Wrap(err, "tag field")
	}

	allocated := make([]AllocatedField, len(fields))
	cursor := tagShift

	for i, f := range fields {
		shift := cursor - f.Width

		if err := claim(&claimed, shift, f.Width); err != nil {
			return Layout{}, errors.Wrap(err, "field %s", f.Name)
		}

		allocated[i] = AllocatedField{FieldSpec: f, Shift: shift}
		cursor = shift
	}

	return Layout{
		TagValue: tagValue,
		TagShift: tagShift,
		TagWidth: tagWidth,
		Fields:   allocated,
		Width:    total,
	}, nil
}

func claim(claimed *bitSet, shift, width int) error {
	for b := shift; b < shift+width; b++ {
		if claimed.IsSet(b) {
			return errors.New("bit %d already claimed by another field", b)
		}

		claimed.Set(b)
	}

	return nil
}

// lowering carries the Env and Program a single Transform run is
// rewriting through; its code/tail methods walk a Code spine
// replacing every DataAlloc, Sel and Case tail whose Cfun belongs to
// a bitdata-lowered DataName.
type lowering struct {
	prog *mil.Program
	env  *Env
	tr   tlog.Span
}

// code walks a Block's Code spine. Case (like If) is a spine terminal
// in its own right, not a Tail — a Bind's or Done's Tail field can
// never hold one — so it is matched here, alongside Bind and Done,
// rather than inside tail.
func (l *lowering) code(c mil.Code) mil.Code {
	switch x := c.(type) {
	case mil.Bind:
		if nt, changed := l.tail(x.Tail); changed {
			x.Tail = nt
		}

		x.Next = l.code(x.Next)

		return x
	case mil.Done:
		if nt, changed := l.tail(x.Tail); changed {
			x.Tail = nt
		}

		return x
	case mil.Case:
		if nt, changed := l.lowerCase(x); changed {
			return mil.Done{Tail: nt}
		}

		return x
	default:
		return c
	}
}

// tail rewrites the Tail proper (DataAlloc, Sel) that a Bind or Done
// carries. Case is handled by code, not here: it has no place in
// either field's static type.
func (l *lowering) tail(t mil.Tail) (mil.Tail, bool) {
	switch x := t.(type) {
	case mil.DataAlloc:
		lay, ok := l.layoutOf(x.Cfun)
		if !ok {
			return t, false
		}

		blk := BuildConstructorBlock(l.prog, x.Cfun, lay)

		return mil.BlockCall{Block: blk, Args: x.Args}, true
	case mil.Sel:
		lay, ok := l.layoutOf(x.Cfun)
		if !ok {
			return t, false
		}

		blk := BuildSelectorBlock(l.prog, x.Cfun, lay, x.Index)

		return mil.BlockCall{Block: blk, Args: []mil.Atom{x.Atom}}, true
	default:
		return t, false
	}
}

func (l *lowering) layoutOf(cf *mil.Cfun) (Layout, bool) {
	if cf == nil || cf.Data == nil {
		return Layout{}, false
	}

	byCfun, ok := l.env.Layouts[cf.Data]
	if !ok {
		return Layout{}, false
	}

	lay, ok := byCfun[cf]

	return lay, ok
}

func (l *lowering) lowerCase(c mil.Case) (mil.Tail, bool) {
	if len(c.Alts) == 0 {
		return nil, false
	}

	layouts, ok := l.dataLayouts(c)
	if !ok {
		return nil, false
	}

	var fallback mil.BlockCall

	testAlts := c.Alts

	if c.Default != nil {
		fallback = *c.Default
	} else {
		fallback = c.Alts[len(c.Alts)-1].Call
		testAlts = c.Alts[:len(c.Alts)-1]
	}

	// Every generated block in the chain only has its own freshly
	// minted parameter in scope, not whatever temps were visible at
	// the original Case site. Each alt's Call (and the fallback) can
	// only be safely re-threaded through the chain if it passes the
	// scrutinee straight through unchanged — anything else would be a
	// reference to a temp the new block never binds, a scope
	// violation. Per spec §7's "prefer None whenever applicability is
	// uncertain," leave the Case alone rather than emit invalid IR.
	for _, alt := range testAlts {
		if !singleAtomEquals(alt.Call.Args, c.Cond) {
			return nil, false
		}
	}

	if !singleAtomEquals(fallback.Args, c.Cond) {
		return nil, false
	}

	chain := buildChainBlock(l.prog, l.tr, fmt.Sprintf("case%d", int(c.Cond)), 0, testAlts, layouts, fallback, fact.Path{})

	return mil.BlockCall{Block: chain, Args: []mil.Atom{c.Cond}}, true
}

func singleAtomEquals(args []mil.Atom, want mil.Temp) bool {
	return len(args) == 1 && mil.AtomEqual(args[0], want)
}

// dataLayouts finds the lowered-layout table for the DataName every
// alt's Cfun belongs to; returns false (leave the Case untouched) if
// any alt's Cfun isn't part of a bitdata-lowered type, since a mixed
// dispatch can't be represented this way.
func (l *lowering) dataLayouts(c mil.Case) (map[*mil.Cfun]Layout, bool) {
	for _, alt := range c.Alts {
		if _, ok := l.layoutOf(alt.Cfun); !ok {
			return nil, false
		}
	}

	return l.env.Layouts[c.Alts[0].Cfun.Data], true
}

// BuildConstructorBlock generates the block spec §4.6 calls "a
// generated constructor block that initializes the word vector with
// cf's tag bits and each field's bits at its assigned offset": one
// parameter per field, in declaration order, folded left to right
// into a single accumulator word starting from the tag's literal
// bits.
func BuildConstructorBlock(prog *mil.Program, cf *mil.Cfun, lay Layout) *mil.Block {
	params := make([]mil.Temp, len(lay.Fields))
	paramTypes := make([]mil.Type, len(lay.Fields))

	for i := range lay.Fields {
		params[i] = prog.FreshTemp()
		paramTypes[i] = mil.WordType{}
	}

	var binds []mil.Bind

	acc := mil.Atom(mil.IntConst{Value: lay.TagBits()})

	for i, f := range lay.Fields {
		shifted := prog.FreshTemp()
		shiftPC, _ := mil.NewPrimCall(prog.Prims, mil.PrimShl, []mil.Atom{params[i], mil.IntConst{Value: uint64(f.Shift)}})
		binds = append(binds, mil.Bind{Vars: []mil.Temp{shifted}, Tail: shiftPC})

		combined := prog.FreshTemp()
		orPC, _ := mil.NewPrimCall(prog.Prims, mil.PrimOr, []mil.Atom{acc, shifted})
		binds = append(binds, mil.Bind{Vars: []mil.Temp{combined}, Tail: orPC})

		acc = combined
	}

	body := mil.CodeOf(mil.Return{Args: []mil.Atom{acc}})
	for i := len(binds) - 1; i >= 0; i-- {
		body = mil.Bind{Vars: binds[i].Vars, Tail: binds[i].Tail, Next: body}
	}

	b := &mil.Block{
		Name:        fmt.Sprintf("%s.new", cfunLabel(cf)),
		Params:      params,
		ParamTypes:  paramTypes,
		Body:        body,
		ResultTypes: []mil.Type{mil.WordType{}},
	}

	return prog.AddBlock(b)
}

// BuildSelectorBlock generates the block spec §4.6 calls "a
// field-extract block call that masks and shifts the appropriate
// words": right-shift the packed word by the field's offset, then
// mask down to its declared width.
func BuildSelectorBlock(prog *mil.Program, cf *mil.Cfun, lay Layout, index int) *mil.Block {
	f := lay.Fields[index]

	word := prog.FreshTemp()
	shifted := prog.FreshTemp()
	masked := prog.FreshTemp()

	shiftPC, _ := mil.NewPrimCall(prog.Prims, mil.PrimLshr, []mil.Atom{word, mil.IntConst{Value: uint64(f.Shift)}})
	maskVal := (uint64(1) << f.Width) - 1
	andPC, _ := mil.NewPrimCall(prog.Prims, mil.PrimAnd, []mil.Atom{shifted, mil.IntConst{Value: maskVal}})

	body := mil.Bindn([]mil.Temp{shifted}, shiftPC,
		mil.Bindn([]mil.Temp{masked}, andPC,
			mil.CodeOf(mil.Return{Args: []mil.Atom{masked}})))

	b := &mil.Block{
		Name:        fmt.Sprintf("%s.sel%d", cfunLabel(cf), index),
		Params:      []mil.Temp{word},
		ParamTypes:  []mil.Type{mil.WordType{}},
		Body:        body,
		ResultTypes: []mil.Type{mil.WordType{}},
	}

	return prog.AddBlock(b)
}

// buildChainBlock generates spec §4.6's "generated block that ANDs
// each word with the mask and compares to the required bits,
// short-circuiting as soon as a mismatch is found": a linear chain of
// one block per remaining alternative, each masking, comparing, and
// either branching into that alt's call or falling through to the
// next block in the chain.
//
// path accumulates the arm-local BranchFacts (fact.BranchFact) that
// held on the way to this point in the dispatch tree — this is
// exactly the "which arm of a Case it is generating support code for"
// context spec §6.2 describes fact.BranchFact as existing for; it is
// consulted here only to annotate the trace, since a single-level
// dispatch has no nested rewrite decision that needs it, but a nested
// bitdata-within-bitdata dispatch would extend it further down the
// same recursion.
func buildChainBlock(prog *mil.Program, tr tlog.Span, baseName string, idx int, alts []mil.CaseAlt, layouts map[*mil.Cfun]Layout, fallback mil.BlockCall, path fact.Path) *mil.Block {
	param := prog.FreshTemp()

	if idx == len(alts) {
		b := &mil.Block{
			Name:        fmt.Sprintf("%s.miss", baseName),
			Params:      []mil.Temp{param},
			ParamTypes:  []mil.Type{mil.WordType{}},
			Body:        mil.CodeOf(mil.BlockCall{Block: fallback.Block, Args: []mil.Atom{param}}),
			ResultTypes: fallback.Block.ResultTypes,
		}

		return prog.AddBlock(b)
	}

	alt := alts[idx]
	lay := layouts[alt.Cfun]

	maskedT := prog.FreshTemp()
	matchT := prog.FreshTemp()

	andPC, _ := mil.NewPrimCall(prog.Prims, mil.PrimAnd, []mil.Atom{param, mil.IntConst{Value: lay.TagMask()}})
	eqPC, _ := mil.NewPrimCall(prog.Prims, mil.PrimEq, []mil.Atom{maskedT, mil.IntConst{Value: lay.TagBits()}})

	matchedPath := path.Extend(fact.BranchFact{Expr: matchT, Held: true})
	if tr.If("rep_dispatch") {
		tr.Printw("mask-test arm", "cfun", cfunLabel(alt.Cfun), "path_len", len(matchedPath))
	}

	next := buildChainBlock(prog, tr, baseName, idx+1, alts, layouts, fallback, path.Extend(fact.BranchFact{Expr: matchT, Held: false}))

	body := mil.Bindn([]mil.Temp{maskedT}, andPC,
		mil.Bindn([]mil.Temp{matchT}, eqPC,
			mil.If{
				Cond: matchT,
				Then: mil.BlockCall{Block: alt.Call.Block, Args: []mil.Atom{param}},
				Else: mil.BlockCall{Block: next, Args: []mil.Atom{param}},
			}))

	b := &mil.Block{
		Name:        fmt.Sprintf("%s.test%d", baseName, idx),
		Params:      []mil.Temp{param},
		ParamTypes:  []mil.Type{mil.WordType{}},
		Body:        body,
		ResultTypes: alt.Call.Block.ResultTypes,
	}

	return prog.AddBlock(b)
}
