// Package rewrite implements the fact-driven peephole rewriter over
// primitive calls: the algorithmic heart of the optimizer (spec §4.3).
// It is organized the way the dispatch order suggests (spec §9's
// "helper functions per family" note): unary.go, literal.go,
// variable.go and addressing.go each own one family of the ordered
// dispatch in rewrite.go.
//
// Grounded on _examples/GriffinCanCode-Typthon/typthon-compiler/pkg/optimizer/peephole.go
// for the shape of a family-of-pattern-functions rewriter returning
// "no match" as a bare false, generalized from untyped three-address
// code to MIL's typed tail/fact model.
package rewrite

import (
	"github.com/EmiliaPaz/mil-tools/compiler/fact"
	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

const allOnes = ^uint64(0)

func isPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// log2Exact returns k such that 1<<k == n; n must be a power of two.
func log2Exact(n uint64) uint64 {
	k := uint64(0)
	for n > 1 {
		n >>= 1
		k++
	}

	return k
}

func intAtom(v uint64) mil.Atom { return mil.IntConst{Value: v} }

func done(t mil.Tail) (mil.Code, bool) { return mil.CodeOf(t), true }

func none() (mil.Code, bool) { return nil, false }

// factBinaryLit looks up a's defining fact: if it is a PrimCall of p
// with exactly one literal argument, factBinaryLit returns the other
// (non-literal) argument and the literal's value.
func factBinaryLit(f fact.Facts, a mil.Atom, p *mil.Prim) (other mil.Atom, lit uint64, ok bool) {
	tail, ok := f.LookupFact(a)
	if !ok {
		return nil, 0, false
	}

	pc, ok := tail.(mil.PrimCall)
	if !ok || pc.Prim != p || len(pc.Args) != 2 {
		return nil, 0, false
	}

	l, lok := pc.Args[0].(mil.IntConst)
	r, rok := pc.Args[1].(mil.IntConst)

	switch {
	case lok && !rok:
		return pc.Args[1], l.Value, true
	case rok && !lok:
		return pc.Args[0], r.Value, true
	default:
		return nil, 0, false
	}
}

// factBinaryGeneral looks up a's defining fact: if it is a PrimCall of
// p with exactly two arguments, factBinaryGeneral returns them in
// order, literal or not. Unlike factBinaryLit it does not require
// either operand to be a constant — used by addressing-mode synthesis,
// which needs to split a sum of two atoms neither of which is known
// yet to be a literal.
func factBinaryGeneral(f fact.Facts, a mil.Atom, p *mil.Prim) (lhs, rhs mil.Atom, ok bool) {
	tail, ok := f.LookupFact(a)
	if !ok {
		return nil, nil, false
	}

	pc, ok := tail.(mil.PrimCall)
	if !ok || pc.Prim != p || len(pc.Args) != 2 {
		return nil, nil, false
	}

	return pc.Args[0], pc.Args[1], true
}

// factUnary looks up a's defining fact: if it is a PrimCall of the
// given unary primitive, factUnary returns its argument.
func factUnary(f fact.Facts, a mil.Atom, p *mil.Prim) (arg mil.Atom, ok bool) {
	tail, ok := f.LookupFact(a)
	if !ok {
		return nil, false
	}

	pc, ok := tail.(mil.PrimCall)
	if !ok || pc.Prim != p || len(pc.Args) != 1 {
		return nil, false
	}

	return pc.Args[0], true
}

func foldConstBinary(id mil.PrimID, a, b uint64) (uint64, bool) {
	switch id {
	case mil.PrimAdd:
		return a + b, true
	case mil.PrimSub:
		return a - b, true
	case mil.PrimMul:
		return a * b, true
	case mil.PrimDiv:
		if b == 0 {
			return 0, false
		}

		return a / b, true // unsigned: decided open question (a)
	case mil.PrimMod:
		if b == 0 {
			return 0, false
		}

		return a % b, true
	case mil.PrimAnd:
		return a & b, true
	case mil.PrimOr:
		return a | b, true
	case mil.PrimXor:
		return a ^ b, true
	case mil.PrimShl:
		return a << (b % mil.WordSize), true
	case mil.PrimLshr:
		return a >> (b % mil.WordSize), true
	case mil.PrimAshr:
		return uint64(int64(a) >> (b % mil.WordSize)), true
	default:
		return 0, false
	}
}

func foldRelation(id mil.PrimID, a, b uint64) (bool, bool) {
	switch id {
	case mil.PrimEq:
		return a == b, true
	case mil.PrimNeq:
		return a != b, true
	case mil.PrimLt:
		return a < b, true
	case mil.PrimLte:
		return a <= b, true
	case mil.PrimGt:
		return a > b, true
	case mil.PrimGte:
		return a >= b, true
	default:
		return false, false
	}
}
