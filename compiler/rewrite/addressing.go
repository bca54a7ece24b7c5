package rewrite

import (
	"github.com/EmiliaPaz/mil-tools/compiler/fact"
	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// load/store argument layout (mil.NewPrimSet): (size, base, offset,
// index, mult, [value]). rewriteAddressing is dispatch step 5 of spec
// §4.3: fold pointer arithmetic on base into offset, and a constant
// scale on index into mult, so later addressing-mode selection in
// compiler/emit sees a single indexed-load/store shape instead of a
// chain of adds and muls feeding it.
//
// The empty/unset sentinel for base, index and (pre-synthesis) mult is
// the literal 0; a synthesized load/store with no index term
// canonicalizes mult to 1 at the end, matching compiler/emit's
// assumption that mult is always a real multiplier once addressing has
// run.
func rewriteAddressing(prog *mil.Program, pc mil.PrimCall, facts fact.Facts) (mil.Code, bool) {
	const (
		argSize = iota
		argBase
		argOffset
		argIndex
		argMult
	)

	args := append([]mil.Atom(nil), pc.Args...)
	changed := false

	addPrim := prog.Prims.Get(mil.PrimAdd)

	// step 1: offset is itself a bare base atom with nothing left to
	// decompose — move it straight into the empty base slot.
	stepBaseFromOffset := func() bool {
		if !isEmptySlot(args[argBase]) || !isBaseAtom(args[argOffset]) {
			return false
		}

		if _, _, ok := factBinaryGeneral(facts, args[argOffset], addPrim); ok {
			return false
		}

		args[argBase], args[argOffset] = args[argOffset], intAtom(0)

		return true
	}

	// step 2: offset == b + o with b a base atom — split into (b, o).
	stepSplitOffsetBase := func() bool {
		if !isEmptySlot(args[argBase]) {
			return false
		}

		lhs, rhs, ok := factBinaryGeneral(facts, args[argOffset], addPrim)
		if !ok {
			return false
		}

		switch {
		case isBaseAtom(lhs):
			args[argBase], args[argOffset] = lhs, rhs
		case isBaseAtom(rhs):
			args[argBase], args[argOffset] = rhs, lhs
		default:
			return false
		}

		return true
	}

	// step 3: index == b + i with b a base atom and no multiplier yet —
	// split the same way into base and a plain index.
	stepSplitIndexBase := func() bool {
		if !isEmptySlot(args[argBase]) || !isEmptySlot(args[argMult]) {
			return false
		}

		lhs, rhs, ok := factBinaryGeneral(facts, args[argIndex], addPrim)
		if !ok {
			return false
		}

		switch {
		case isBaseAtom(lhs):
			args[argBase], args[argIndex] = lhs, rhs
		case isBaseAtom(rhs):
			args[argBase], args[argIndex] = rhs, lhs
		default:
			return false
		}

		return true
	}

	// step 4: offset == o + i — move i into the still-empty index slot.
	stepMoveOffsetRemainderToIndex := func() bool {
		if !isEmptySlot(args[argIndex]) {
			return false
		}

		lhs, rhs, ok := factBinaryGeneral(facts, args[argOffset], addPrim)
		if !ok {
			return false
		}

		args[argOffset], args[argIndex] = lhs, rhs

		return true
	}

	// step 5: offset or index is v*M for a recognized multiplier M —
	// move v to index and M to multiplier.
	stepScale := func() bool {
		if !isEmptySlot(args[argMult]) {
			return false
		}

		if v, scale, ok := factScaleOf(facts, args[argOffset], prog); ok && isRecognizedMultiplier(scale) && isEmptySlot(args[argIndex]) {
			args[argOffset], args[argIndex], args[argMult] = intAtom(0), v, intAtom(scale)
			return true
		}

		if v, scale, ok := factScaleOf(facts, args[argIndex], prog); ok && isRecognizedMultiplier(scale) {
			args[argIndex], args[argMult] = v, intAtom(scale)
			return true
		}

		return false
	}

	steps := []func() bool{
		stepBaseFromOffset,
		stepSplitOffsetBase,
		stepSplitIndexBase,
		stepMoveOffsetRemainderToIndex,
		stepScale,
	}

	for iter := 0; iter < 2*len(steps); iter++ {
		progressed := false

		for _, step := range steps {
			if step() {
				progressed = true
				changed = true

				break
			}
		}

		if !progressed {
			break
		}
	}

	// index==0: the index term contributes nothing, canonicalize the
	// multiplier to 1 so later folds see a plain base+offset address.
	if isEmptySlot(args[argIndex]) {
		if m, ok := args[argMult].(mil.IntConst); !ok || m.Value != 1 {
			args[argMult] = intAtom(1)
			changed = true
		}
	}

	if !changed {
		return none()
	}

	return done(mil.PrimCall{Prim: pc.Prim, Args: args})
}

// isEmptySlot reports whether a base/index/mult argument is still at
// its unset sentinel value, the literal 0.
func isEmptySlot(a mil.Atom) bool {
	lit, ok := a.(mil.IntConst)
	return ok && lit.Value == 0
}

// isBaseAtom reports whether a can serve as a pointer base for
// load/store addressing. MIL has no separate pointer type at this
// level, so anything other than an integer literal — a value that
// could hold a runtime address — qualifies.
func isBaseAtom(a mil.Atom) bool {
	_, isLit := a.(mil.IntConst)
	return !isLit
}

func isRecognizedMultiplier(m uint64) bool {
	switch m {
	case 1, 2, 4, 8:
		return true
	default:
		return false
	}
}

// factScaleOf reports whether p is defined by mul(u, c) for a literal
// c, i.e. p can serve as an index with c folded into the caller's mult.
func factScaleOf(f fact.Facts, p mil.Atom, prog *mil.Program) (idx mil.Atom, scale uint64, ok bool) {
	return factBinaryLit(f, p, prog.Prims.Get(mil.PrimMul))
}
