package rewrite

import (
	"github.com/EmiliaPaz/mil-tools/compiler/fact"
	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// rewriteTwoVariables is dispatch step 4 of spec §4.3: both operands
// are opaque atoms, so every rewrite here goes through facts on one
// or both sides. Tried in the order the spec lists them.
func rewriteTwoVariables(prog *mil.Program, pc mil.PrimCall, facts fact.Facts) (mil.Code, bool) {
	p := pc.Prim
	x, y := pc.Args[0], pc.Args[1]

	if c, ok := commuteRearrange(prog, p, x, y, facts); ok {
		return c, true
	}

	if c, ok := distributiveRearrange(prog, p, x, y, facts); ok {
		return c, true
	}

	if c, ok := deMorgan(prog, p, x, y, facts); ok {
		return c, true
	}

	if c, ok := annihilateIdempotent(prog, p, x, y); ok {
		return c, true
	}

	if c, ok := multSumFusion(prog, p, x, y, facts); ok {
		return c, true
	}

	return none()
}

var commuteAssocFamily = map[mil.PrimID]bool{
	mil.PrimAdd: true, mil.PrimMul: true, mil.PrimAnd: true, mil.PrimOr: true, mil.PrimXor: true,
}

// commuteRearrange implements spec's "commutative/associative
// rearrangement": p(q(u,c), q(v,d)) with q==p -> q(p(u,v), p(c,d)),
// plus the one-sided forms.
func commuteRearrange(prog *mil.Program, p *mil.Prim, x, y mil.Atom, facts fact.Facts) (mil.Code, bool) {
	if !commuteAssocFamily[p.ID] {
		return none()
	}

	xu, xc, xok := factBinaryLit(facts, x, p)
	yu, yc, yok := factBinaryLit(facts, y, p)

	switch {
	case xok && yok:
		t1 := prog.FreshTemp()
		newC, _ := foldConstBinary(p.ID, xc, yc)
		inner := mil.PrimCall{Prim: p, Args: []mil.Atom{xu, yu}}
		final := mil.PrimCall{Prim: p, Args: []mil.Atom{t1, intAtom(newC)}}

		return mil.Bindn([]mil.Temp{t1}, inner, mil.CodeOf(final)), true
	case xok:
		t1 := prog.FreshTemp()
		inner := mil.PrimCall{Prim: p, Args: []mil.Atom{xu, y}}
		final := mil.PrimCall{Prim: p, Args: []mil.Atom{t1, intAtom(xc)}}

		return mil.Bindn([]mil.Temp{t1}, inner, mil.CodeOf(final)), true
	case yok:
		t1 := prog.FreshTemp()
		inner := mil.PrimCall{Prim: p, Args: []mil.Atom{x, yu}}
		final := mil.PrimCall{Prim: p, Args: []mil.Atom{t1, intAtom(yc)}}

		return mil.Bindn([]mil.Temp{t1}, inner, mil.CodeOf(final)), true
	default:
		return none()
	}
}

// distributiveRearrange implements spec's distributive rearrangement
// for {or/and, and/or}: p(q(u,c), q(v,d)) -> q(p(u,v), c) when c==d
// and q is p's bitwise dual.
func distributiveRearrange(prog *mil.Program, p *mil.Prim, x, y mil.Atom, facts fact.Facts) (mil.Code, bool) {
	dualID, ok := mil.DualBitwise(p.ID)
	if !ok {
		return none()
	}

	q := prog.Prims.Get(dualID)

	xu, xc, xok := factBinaryLit(facts, x, q)
	yu, yc, yok := factBinaryLit(facts, y, q)

	if !xok || !yok || xc != yc {
		return none()
	}

	t1 := prog.FreshTemp()
	inner := mil.PrimCall{Prim: p, Args: []mil.Atom{xu, yu}}
	final := mil.PrimCall{Prim: q, Args: []mil.Atom{t1, intAtom(xc)}}

	return mil.Bindn([]mil.Temp{t1}, inner, mil.CodeOf(final)), true
}

// deMorgan implements spec's deMorgan rule: p(inv(u), inv(v)) ->
// inv(dual(u,v)) for p in {and, or}, inv the bitwise not.
func deMorgan(prog *mil.Program, p *mil.Prim, x, y mil.Atom, facts fact.Facts) (mil.Code, bool) {
	dualID, ok := mil.DualBitwise(p.ID)
	if !ok {
		return none()
	}

	notPrim := prog.Prims.Get(mil.PrimNot)

	xu, xok := factUnary(facts, x, notPrim)
	yu, yok := factUnary(facts, y, notPrim)

	if !xok || !yok {
		return none()
	}

	dual := prog.Prims.Get(dualID)

	t1 := prog.FreshTemp()
	inner := mil.PrimCall{Prim: dual, Args: []mil.Atom{xu, yu}}
	final := mil.PrimCall{Prim: notPrim, Args: []mil.Atom{t1}}

	return mil.Bindn([]mil.Temp{t1}, inner, mil.CodeOf(final)), true
}

// annihilateIdempotent implements x^x=0, x&x=x, x|x=x, x-x=0, x+x=x*2.
func annihilateIdempotent(prog *mil.Program, p *mil.Prim, x, y mil.Atom) (mil.Code, bool) {
	if !mil.AtomEqual(x, y) {
		return none()
	}

	switch p.ID {
	case mil.PrimXor, mil.PrimSub:
		return done(mil.Return{Args: []mil.Atom{intAtom(0)}})
	case mil.PrimAnd, mil.PrimOr:
		return done(mil.Return{Args: []mil.Atom{x}})
	case mil.PrimAdd:
		return done(mil.PrimCall{Prim: prog.Prims.Get(mil.PrimMul), Args: []mil.Atom{x, intAtom(2)}})
	default:
		return none()
	}
}

// multSumFusion implements (u*c)+u -> u*(c+1), (u*c)-u -> u*(c-1),
// u+(v*d) with u==v -> v*(1+d), and the symmetric sub case.
func multSumFusion(prog *mil.Program, p *mil.Prim, x, y mil.Atom, facts fact.Facts) (mil.Code, bool) {
	mul := prog.Prims.Get(mil.PrimMul)

	switch p.ID {
	case mil.PrimAdd:
		if u, c, ok := factBinaryLit(facts, x, mul); ok && mil.AtomEqual(u, y) {
			sum, _ := foldConstBinary(mil.PrimAdd, c, 1)
			return done(mil.PrimCall{Prim: mul, Args: []mil.Atom{y, intAtom(sum)}})
		}

		if v, d, ok := factBinaryLit(facts, y, mul); ok && mil.AtomEqual(v, x) {
			sum, _ := foldConstBinary(mil.PrimAdd, 1, d)
			return done(mil.PrimCall{Prim: mul, Args: []mil.Atom{x, intAtom(sum)}})
		}
	case mil.PrimSub:
		if u, c, ok := factBinaryLit(facts, x, mul); ok && mil.AtomEqual(u, y) {
			diff, _ := foldConstBinary(mil.PrimSub, c, 1)
			return done(mil.PrimCall{Prim: mul, Args: []mil.Atom{y, intAtom(diff)}})
		}

		if v, d, ok := factBinaryLit(facts, y, mul); ok && mil.AtomEqual(v, x) {
			diff, _ := foldConstBinary(mil.PrimSub, 1, d)
			return done(mil.PrimCall{Prim: mul, Args: []mil.Atom{x, intAtom(diff)}})
		}
	}

	return none()
}
