package pass

import (
	"github.com/EmiliaPaz/mil-tools/compiler/fact"
	"github.com/EmiliaPaz/mil-tools/compiler/mil"
	"github.com/EmiliaPaz/mil-tools/compiler/rewrite"
)

// maxRewritePasses bounds how many times flowTail retries Rewrite on
// the tail it just produced before giving up; the peephole families
// are confluent in practice (see rewrite_test.go's fixpoint test) so
// this is a safety net, not a normal exit path.
const maxRewritePasses = 32

// flow applies the peephole rewriter (compiler/rewrite) to every
// PrimCall in b's body under a freshly-seeded fact map, then prunes
// bindings whose result is both unused and effect-free. It reports
// whether it changed b.
func flow(prog *mil.Program, b *mil.Block) bool {
	binds, term := flatten(b.Body)

	binds, term, changed := flowSpine(prog, binds, term)

	binds, term, cpChanged := copyPropagate(binds, term)

	binds, term, prunedChanged := pruneDead(binds, term)

	b.Body = unflatten(binds, term)

	return changed || cpChanged || prunedChanged
}

// copyPropagate substitutes a binding whose (possibly just-folded)
// tail is a bare single-atom Return directly at its uses, then drops
// the binding: "x = c; ...uses of x..." becomes "...c...". This is
// what turns rewrite's constant folds and identity simplifications
// (which leave behind a Return tail, not a value in place) into an
// actual reduction of the spine, and it can expose further dead code
// for pruneDead to remove.
func copyPropagate(binds []mil.Bind, term mil.Code) ([]mil.Bind, mil.Code, bool) {
	sub := map[mil.Temp]mil.Atom{}
	out := make([]mil.Bind, 0, len(binds))
	changed := false

	for _, b := range binds {
		tail := substTail(b.Tail, sub)

		if ret, ok := tail.(mil.Return); ok && len(b.Vars) == 1 && len(ret.Args) == 1 {
			sub[b.Vars[0]] = ret.Args[0]
			changed = true

			continue
		}

		if !mil.AlphaTail(tail, nil, b.Tail, nil) {
			changed = true
		}

		out = append(out, mil.Bind{Vars: b.Vars, Tail: tail})
	}

	newTerm, termChanged := substTerm(term, sub)

	return out, newTerm, changed || termChanged
}

func substTerm(term mil.Code, sub map[mil.Temp]mil.Atom) (mil.Code, bool) {
	switch x := term.(type) {
	case mil.Done:
		tail := substTail(x.Tail, sub)
		return mil.Done{Tail: tail}, !mil.AlphaTail(tail, nil, x.Tail, nil)
	case mil.If:
		cond, condChanged := substCond(x.Cond, sub)

		return mil.If{Cond: cond, Then: substCall(x.Then, sub), Else: substCall(x.Else, sub)}, condChanged
	case mil.Case:
		cond, condChanged := substCond(x.Cond, sub)

		alts := make([]mil.CaseAlt, len(x.Alts))
		for i, alt := range x.Alts {
			alts[i] = mil.CaseAlt{Cfun: alt.Cfun, Call: substCall(alt.Call, sub)}
		}

		var def *mil.BlockCall
		if x.Default != nil {
			d := substCall(*x.Default, sub)
			def = &d
		}

		return mil.Case{Cond: cond, Alts: alts, Default: def}, condChanged
	default:
		return term, false
	}
}

// substCond only ever substitutes a Temp cond with another Temp: a
// branch condition's type doesn't admit a bare literal, so propagating
// a folded FlagConst into it is constant-branch folding, a separate
// concern this pass leaves alone.
func substCond(cond mil.Temp, sub map[mil.Temp]mil.Atom) (mil.Temp, bool) {
	a, ok := sub[cond]
	if !ok {
		return cond, false
	}

	t, ok := a.(mil.Temp)
	if !ok {
		return cond, false
	}

	return t, true
}

func substCall(bc mil.BlockCall, sub map[mil.Temp]mil.Atom) mil.BlockCall {
	return mil.BlockCall{Block: bc.Block, Args: substAtoms(bc.Args, sub)}
}

func flowSpine(prog *mil.Program, binds []mil.Bind, term mil.Code) ([]mil.Bind, mil.Code, bool) {
	facts := fact.New()
	out := make([]mil.Bind, 0, len(binds))
	changed := false

	for _, bind := range binds {
		extra, tail, f := flowTail(prog, bind.Tail, facts)
		if len(extra) > 0 || !mil.AlphaTail(tail, nil, bind.Tail, nil) {
			changed = true
		}

		out = append(out, extra...)
		out = append(out, mil.Bind{Vars: bind.Vars, Tail: tail})
		facts = f.Bind(bind.Vars, tail)
	}

	if done, ok := term.(mil.Done); ok {
		extra, tail, _ := flowTail(prog, done.Tail, facts)
		if len(extra) > 0 || !mil.AlphaTail(tail, nil, done.Tail, nil) {
			changed = true
		}

		out = append(out, extra...)

		return out, mil.Done{Tail: tail}, changed
	}

	return out, term, changed
}

// flowTail repeatedly applies rewrite.Rewrite to tail, accumulating
// any extra bindings the rewrites introduce, until no further rewrite
// applies or the safety cap is hit.
func flowTail(prog *mil.Program, tail mil.Tail, facts fact.Facts) ([]mil.Bind, mil.Tail, fact.Facts) {
	var extra []mil.Bind

	for i := 0; i < maxRewritePasses; i++ {
		code, ok := rewrite.Rewrite(prog, tail, facts)
		if !ok {
			return extra, tail, facts
		}

		binds, term := flatten(code)
		for _, bd := range binds {
			extra = append(extra, bd)
			facts = facts.Bind(bd.Vars, bd.Tail)
		}

		done, ok := term.(mil.Done)
		if !ok {
			// Rewrite never produces If/Case; treat as no further rewrite.
			return extra, tail, facts
		}

		tail = done.Tail
	}

	return extra, tail, facts
}

// pruneDead walks a flattened spine backward, dropping bindings whose
// results are unused and whose tail has no effect (spec §4.2's
// liveness-pruning clause).
func pruneDead(binds []mil.Bind, term mil.Code) ([]mil.Bind, mil.Code, bool) {
	live := map[mil.Temp]bool{}
	for _, a := range terminalAtoms(term) {
		markLive(live, a)
	}

	kept := make([]mil.Bind, 0, len(binds))
	changed := false

	for i := len(binds) - 1; i >= 0; i-- {
		b := binds[i]

		anyLive := false
		for _, v := range b.Vars {
			if live[v] {
				anyLive = true
			}
		}

		if !anyLive && b.Tail.HasNoEffect() {
			changed = true
			continue
		}

		for _, a := range mil.InputAtoms(b.Tail) {
			markLive(live, a)
		}

		kept = append(kept, b)
	}

	// reverse kept back into forward order
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}

	return kept, term, changed
}

func markLive(live map[mil.Temp]bool, a mil.Atom) {
	if t, ok := a.(mil.Temp); ok {
		live[t] = true
	}
}
