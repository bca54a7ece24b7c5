package fact

import "github.com/EmiliaPaz/mil-tools/compiler/mil"

// BranchFact is an arm-local predicate: "this atom's condition held
// (or did not hold) on the path to this point." It is strictly
// narrower than Facts: it is never merged across sibling branches
// (spec §5 "no fact from a sibling branch is visible"), and it is
// consulted only by compiler/rep's mask-test lowering, which needs to
// know which arm of a Case it is generating support code for.
//
// Grounded on the teacher's df.Pred / df.Merge / df.Alias shapes.
type BranchFact struct {
	Expr mil.Temp
	Held bool
}

// Path is the ordered list of BranchFacts holding on the way to a
// point in a Case/If tree, outermost first.
type Path []BranchFact

func (p Path) Extend(f BranchFact) Path {
	return append(append(Path{}, p...), f)
}

// Holds reports whether t is known to be held (true) or known to be
// not held (false) somewhere on the path; ok is false if t isn't
// mentioned at all.
func (p Path) Holds(t mil.Temp) (held bool, ok bool) {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Expr == t {
			return p[i].Held, true
		}
	}

	return false, false
}
