// Package fact implements the per-block "facts" mapping from spec
// §4.2: a persistent temp -> defining-tail map the peephole rewriter
// consults but never writes. It is grounded on the teacher's
// compiler/df package, whose Pred/Merge machinery tracked branch
// predicates for backend merge-point reconciliation; that narrower
// idea survives here as BranchFact, while Facts itself generalizes it
// into the rewriter's general definition map.
package fact

import "github.com/EmiliaPaz/mil-tools/compiler/mil"

// Facts is a persistent (copy-on-extend) mapping from temp to the
// unique, repeatable tail that defines it. It grows as the rewriter
// walks a Code spine downward and is invalidated at block boundaries
// (a fresh, empty Facts is used for every block).
type Facts struct {
	m map[mil.Temp]mil.Tail
}

func New() Facts {
	return Facts{m: map[mil.Temp]mil.Tail{}}
}

// Bind extends the fact map with vs -> tail, but only records a fact
// when there is exactly one result temp and the tail is repeatable
// (spec §4.2's definition of a fact). Facts.Bind never mutates the
// receiver; it returns a new Facts sharing the old map's entries.
func (f Facts) Bind(vs []mil.Temp, tail mil.Tail) Facts {
	if len(vs) != 1 || !tail.IsRepeatable() {
		return f
	}

	n := make(map[mil.Temp]mil.Tail, len(f.m)+1)
	for k, v := range f.m {
		n[k] = v
	}

	n[vs[0]] = tail

	return Facts{m: n}
}

// LookupFact returns the tail an atom is known to have been defined
// by, or (nil, false) if a is not a Temp with a recorded repeatable
// defining tail.
func (f Facts) LookupFact(a mil.Atom) (mil.Tail, bool) {
	t, ok := a.(mil.Temp)
	if !ok {
		return nil, false
	}

	tail, ok := f.m[t]
	return tail, ok
}

// IsPrim returns the argument list of tail iff it is a PrimCall of p.
func IsPrim(tail mil.Tail, p *mil.Prim) ([]mil.Atom, bool) {
	pc, ok := tail.(mil.PrimCall)
	if !ok || pc.Prim != p {
		return nil, false
	}

	return pc.Args, true
}

// FactOf resolves an atom straight through to a PrimCall of the given
// primitive, if the fact map knows one: FactOf(a, add) is the args of
// add(...) when a is a Temp bound to an add call.
func FactOf(f Facts, a mil.Atom, p *mil.Prim) ([]mil.Atom, bool) {
	tail, ok := f.LookupFact(a)
	if !ok {
		return nil, false
	}

	return IsPrim(tail, p)
}
