package rewrite

import (
	"github.com/EmiliaPaz/mil-tools/compiler/fact"
	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// rewriteUnary is dispatch step 1 of spec §4.3: literal folding for
// bnot/not/neg/flagToWord, then, on an opaque arg, involution,
// relational inversion and arithmetic involution via facts.
func rewriteUnary(prog *mil.Program, pc mil.PrimCall, facts fact.Facts) (mil.Code, bool) {
	x := pc.Args[0]
	p := pc.Prim

	if lit, ok := x.(mil.IntConst); ok {
		switch p.ID {
		case mil.PrimNot:
			return done(mil.Return{Args: []mil.Atom{intAtom(^lit.Value)}})
		case mil.PrimNeg:
			return done(mil.Return{Args: []mil.Atom{intAtom(-lit.Value)}})
		}
	}

	if lit, ok := x.(mil.FlagConst); ok {
		switch p.ID {
		case mil.PrimBnot:
			return done(mil.Return{Args: []mil.Atom{mil.FlagConst(!bool(lit))}})
		case mil.PrimFlagToWord:
			v := uint64(0)
			if lit {
				v = 1
			}

			return done(mil.Return{Args: []mil.Atom{intAtom(v)}})
		}
	}

	switch p.ID {
	case mil.PrimNot:
		if inner, ok := factUnary(facts, x, p); ok {
			return done(mil.Return{Args: []mil.Atom{inner}})
		}
	case mil.PrimBnot:
		if inner, ok := factUnary(facts, x, p); ok {
			return done(mil.Return{Args: []mil.Atom{inner}})
		}

		if inverted, ok := invertRelationFact(prog, facts, x); ok {
			return done(inverted)
		}
	case mil.PrimNeg:
		if inner, ok := factUnary(facts, x, p); ok {
			return done(mil.Return{Args: []mil.Atom{inner}})
		}

		if l, r, ok := factSub(facts, x); ok {
			// neg(u - v) = v - u
			return done(mil.PrimCall{Prim: prog.Prims.Get(mil.PrimSub), Args: []mil.Atom{r, l}})
		}
	}

	return none()
}

// invertRelationFact finds x's defining relation (eq/neq/lt/...) and
// returns the logically-negated relation call, per spec's relational
// inversion table.
func invertRelationFact(prog *mil.Program, f fact.Facts, x mil.Atom) (mil.Tail, bool) {
	tail, ok := f.LookupFact(x)
	if !ok {
		return nil, false
	}

	pc, ok := tail.(mil.PrimCall)
	if !ok || !pc.Prim.IsRelation() {
		return nil, false
	}

	invID, ok := mil.InvertRelation(pc.Prim.ID)
	if !ok {
		return nil, false
	}

	return mil.PrimCall{Prim: prog.Prims.Get(invID), Args: pc.Args}, true
}

// factSub reports whether x's defining fact is sub(l, r).
func factSub(f fact.Facts, x mil.Atom) (l, r mil.Atom, ok bool) {
	tail, ok := f.LookupFact(x)
	if !ok {
		return nil, nil, false
	}

	pc, ok := tail.(mil.PrimCall)
	if !ok || pc.Prim.ID != mil.PrimSub {
		return nil, nil, false
	}

	return pc.Args[0], pc.Args[1], true
}
