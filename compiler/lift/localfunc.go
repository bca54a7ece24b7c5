// Package lift implements spec §4.5's lambda lifter: given a nest of
// mutually-referential local function bodies with their own immediate
// free-variable lists, it computes each one's full transitive closure
// of captured variables (SCC over the call graph, then a union-closure
// fixpoint) and turns every local function into a fully explicit,
// top-level-callable *mil.Block, appending the captured variables as
// extra trailing parameters everywhere it is called.
//
// Grounded on the teacher's compiler/back/back6.go job-heap scheduler
// for the fixpoint's worklist, generalized from control-flow merge
// points to a call graph.
package lift

import "github.com/EmiliaPaz/mil-tools/compiler/mil"

// LocalFunc describes one not-yet-lifted local function: Block already
// carries its declared Params/ParamTypes/Body/ResultTypes (already
// added to the Program with AddBlock, so its identity is stable across
// the lift; compiler/lower builds no LocalFunc, so the caller
// constructs these), Free lists the temps its Body reads that are
// neither its own Params nor bound within its own Body (i.e. its
// syntactic free variables), and Calls names the sibling local functions (by their Block, from
// the same mutually-recursive nest) that its Body calls directly.
type LocalFunc struct {
	Block *mil.Block

	Free      []mil.Temp
	FreeTypes []mil.Type

	Calls []*mil.Block
}

// LiftEnv is the program-wide record of what Lift decided: for every
// lifted block, the ordered list of extra temps appended to its
// parameter list beyond what compiler/lower originally declared (spec
// §5's "lifted-binding list attached to the LiftEnv" shared resource).
type LiftEnv struct {
	extra map[*mil.Block][]mil.Temp
}

// Extra returns the extra captured temps Lift appended to b's
// parameter list, or nil if b was not part of the lifted nest.
func (e *LiftEnv) Extra(b *mil.Block) []mil.Temp {
	return e.extra[b]
}
