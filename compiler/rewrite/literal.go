package rewrite

import (
	"github.com/EmiliaPaz/mil-tools/compiler/fact"
	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// rewriteTwoLiterals is dispatch step 2 of spec §4.3: fold a binary
// call with two literal arguments to its constant result.
func rewriteTwoLiterals(pc mil.PrimCall, a, b uint64) (mil.Code, bool) {
	if pc.Prim.IsRelation() {
		v, ok := foldRelation(pc.Prim.ID, a, b)
		if !ok {
			return none()
		}

		return done(mil.Return{Args: []mil.Atom{mil.FlagConst(v)}})
	}

	v, ok := foldConstBinary(pc.Prim.ID, a, b)
	if !ok {
		return none() // e.g. division by zero: leave the trap in place
	}

	return done(mil.Return{Args: []mil.Atom{intAtom(v)}})
}

// rewriteOneLiteral is dispatch step 3 of spec §4.3: the operator/
// constant identity table. nonLit is whichever atom isn't the
// literal; c is the literal's value.
func rewriteOneLiteral(prog *mil.Program, pc mil.PrimCall, facts fact.Facts, litOnLeft bool, litA, litB mil.IntConst) (mil.Code, bool) {
	var nonLit mil.Atom
	var c uint64

	if litOnLeft {
		nonLit, c = pc.Args[1], litA.Value
	} else {
		nonLit, c = pc.Args[0], litB.Value
	}

	x := nonLit
	prims := prog.Prims

	switch pc.Prim.ID {
	case mil.PrimAdd:
		if c == 0 {
			return done(mil.Return{Args: []mil.Atom{x}})
		}

		if u, n, ok := factBinaryLit(facts, x, prims.Get(mil.PrimAdd)); ok {
			// (x+n)+c -> x+(n+c)
			sum, _ := foldConstBinary(mil.PrimAdd, n, c)
			return done(mil.PrimCall{Prim: prims.Get(mil.PrimAdd), Args: []mil.Atom{u, intAtom(sum)}})
		}

		if u, n, negated, ok := factSubLit(facts, x, prims); ok {
			if !negated {
				// x = u-n => (u-n)+c = u+(c-n)
				diff := c - n
				return done(mil.PrimCall{Prim: prims.Get(mil.PrimAdd), Args: []mil.Atom{u, intAtom(diff)}})
			}
			// x = n-u => (n-u)+c = (n+c)-u
			sum, _ := foldConstBinary(mil.PrimAdd, n, c)
			return done(mil.PrimCall{Prim: prims.Get(mil.PrimSub), Args: []mil.Atom{intAtom(sum), u}})
		}

		if u, ok := factUnary(facts, x, prims.Get(mil.PrimNeg)); ok {
			// (-x)+c = c-x
			return done(mil.PrimCall{Prim: prims.Get(mil.PrimSub), Args: []mil.Atom{intAtom(c), u}})
		}
	case mil.PrimSub:
		if !litOnLeft {
			if c == 0 {
				return done(mil.Return{Args: []mil.Atom{x}})
			}
			// x - c -> x + (-c)
			return done(mil.PrimCall{Prim: prims.Get(mil.PrimAdd), Args: []mil.Atom{x, intAtom(-c)}})
		}

		if litOnLeft && c == 0 {
			// 0 - y -> -y
			return done(mil.PrimCall{Prim: prims.Get(mil.PrimNeg), Args: []mil.Atom{x}})
		}
	case mil.PrimMul:
		switch c {
		case 0:
			return done(mil.Return{Args: []mil.Atom{intAtom(0)}})
		case 1:
			return done(mil.Return{Args: []mil.Atom{x}})
		case allOnes: // c == -1 mod 2^64
			return done(mil.PrimCall{Prim: prims.Get(mil.PrimNeg), Args: []mil.Atom{x}})
		default:
			if isPowerOfTwo(c) && c > 1 {
				return done(mil.PrimCall{Prim: prims.Get(mil.PrimShl), Args: []mil.Atom{x, intAtom(log2Exact(c))}})
			}
		}
	case mil.PrimOr:
		if c == 0 {
			return done(mil.Return{Args: []mil.Atom{x}})
		}

		if c == allOnes {
			return done(mil.Return{Args: []mil.Atom{intAtom(allOnes)}})
		}
	case mil.PrimAnd:
		if c == 0 {
			return done(mil.Return{Args: []mil.Atom{intAtom(0)}})
		}

		if c == allOnes {
			return done(mil.Return{Args: []mil.Atom{x}})
		}

		if !litOnLeft {
			if u, shiftAmt, ok := factBinaryLit(facts, x, prims.Get(mil.PrimShl)); ok {
				em := allOnes << (shiftAmt % mil.WordSize)
				if c&em == em {
					return done(mil.PrimCall{Prim: prims.Get(mil.PrimShl), Args: []mil.Atom{u, intAtom(shiftAmt)}})
				}
			}
		}
	case mil.PrimXor:
		if c == 0 {
			return done(mil.Return{Args: []mil.Atom{x}})
		}

		if c == allOnes {
			return done(mil.PrimCall{Prim: prims.Get(mil.PrimNot), Args: []mil.Atom{x}})
		}
	case mil.PrimShl, mil.PrimLshr, mil.PrimAshr:
		if !litOnLeft && c == 0 {
			return done(mil.Return{Args: []mil.Atom{x}})
		}

		if !litOnLeft && (pc.Prim.ID == mil.PrimShl || pc.Prim.ID == mil.PrimLshr) {
			if u, d, ok := factBinaryLit(facts, x, pc.Prim); ok {
				total := c + d
				if total >= mil.WordSize {
					return done(mil.Return{Args: []mil.Atom{intAtom(0)}})
				}

				return done(mil.PrimCall{Prim: pc.Prim, Args: []mil.Atom{u, intAtom(total)}})
			}
		}
	}

	return none()
}

// factSubLit reports whether x is defined by sub(u, n) (negated=false)
// or sub(n, u) (negated=true) for a literal n.
func factSubLit(f fact.Facts, x mil.Atom, prims *mil.PrimSet) (u mil.Atom, n uint64, negated bool, ok bool) {
	tail, ok := f.LookupFact(x)
	if !ok {
		return nil, 0, false, false
	}

	pc, ok := tail.(mil.PrimCall)
	if !ok || pc.Prim.ID != mil.PrimSub {
		return nil, 0, false, false
	}

	if lit, litok := pc.Args[1].(mil.IntConst); litok {
		return pc.Args[0], lit.Value, false, true
	}

	if lit, litok := pc.Args[0].(mil.IntConst); litok {
		return pc.Args[1], lit.Value, true, true
	}

	return nil, 0, false, false
}
