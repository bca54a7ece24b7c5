package pass

import "github.com/EmiliaPaz/mil-tools/compiler/mil"

// inline unfolds every BlockCall to a trivial callee — one taking no
// arguments whose entire body is a single Done — splicing a
// substituted copy of that Done's Tail in place of the call
// ("inlineTail unfolds trivial BlockCalls to zero-argument blocks
// whose body is a single Done"). It never inlines a block into
// itself.
func inline(prog *mil.Program, b *mil.Block) bool {
	binds, term := flatten(b.Body)
	changed := false

	newBinds := make([]mil.Bind, 0, len(binds))

	for _, bind := range binds {
		bc, ok := bind.Tail.(mil.BlockCall)
		if !ok || !inlineCandidate(bc.Block, b) {
			newBinds = append(newBinds, bind)
			continue
		}

		extra, tail := inlineCall(prog, bc)
		newBinds = append(newBinds, extra...)
		newBinds = append(newBinds, mil.Bind{Vars: bind.Vars, Tail: tail})
		changed = true
	}

	newTerm := term
	if done, ok := term.(mil.Done); ok {
		if bc, ok := done.Tail.(mil.BlockCall); ok && inlineCandidate(bc.Block, b) {
			extra, tail := inlineCall(prog, bc)
			newBinds = append(newBinds, extra...)
			newTerm = mil.Done{Tail: tail}
			changed = true
		}
	}

	if !changed {
		return false
	}

	b.Body = unflatten(newBinds, newTerm)

	return true
}

func inlineCandidate(callee, caller *mil.Block) bool {
	if callee == caller {
		return false
	}

	if len(callee.Params) != 0 {
		return false
	}

	binds, term := flatten(callee.Body)
	if len(binds) != 0 {
		return false
	}

	// A callee ending in If/Case has its own control split; splicing it
	// into the middle of a linear spine would require restructuring the
	// caller into a matching branch, which inline leaves to a dedicated
	// tail-duplication pass rather than doing implicitly here.
	_, ok := term.(mil.Done)

	return ok
}

// inlineCall substitutes bc's args for callee.Params throughout a copy
// of callee's body, renaming every bound temp to a fresh one so the
// inlined copy shares no identity with the original definition (spec
// §4.4: inlining must not create aliasing between call sites).
func inlineCall(prog *mil.Program, bc mil.BlockCall) ([]mil.Bind, mil.Tail) {
	callee := bc.Block

	sub := make(map[mil.Temp]mil.Atom, len(callee.Params))
	for i, p := range callee.Params {
		sub[p] = bc.Args[i]
	}

	binds, term := flatten(callee.Body)
	out := make([]mil.Bind, 0, len(binds))

	for _, bd := range binds {
		freshVars := make([]mil.Temp, len(bd.Vars))
		for i, v := range bd.Vars {
			nv := prog.FreshTemp()
			sub[v] = nv
			freshVars[i] = nv
		}

		out = append(out, mil.Bind{Vars: freshVars, Tail: substTail(bd.Tail, sub)})
	}

	done := term.(mil.Done)

	return out, substTail(done.Tail, sub)
}

func substAtom(a mil.Atom, sub map[mil.Temp]mil.Atom) mil.Atom {
	if t, ok := a.(mil.Temp); ok {
		if r, ok := sub[t]; ok {
			return r
		}
	}

	return a
}

func substAtoms(as []mil.Atom, sub map[mil.Temp]mil.Atom) []mil.Atom {
	out := make([]mil.Atom, len(as))
	for i, a := range as {
		out[i] = substAtom(a, sub)
	}

	return out
}

func substTail(t mil.Tail, sub map[mil.Temp]mil.Atom) mil.Tail {
	switch t := t.(type) {
	case mil.Return:
		return mil.Return{Args: substAtoms(t.Args, sub)}
	case mil.PrimCall:
		return mil.PrimCall{Prim: t.Prim, Args: substAtoms(t.Args, sub)}
	case mil.BlockCall:
		return mil.BlockCall{Block: t.Block, Args: substAtoms(t.Args, sub)}
	case mil.DataAlloc:
		return mil.DataAlloc{Cfun: t.Cfun, Args: substAtoms(t.Args, sub)}
	case mil.ClosAlloc:
		return mil.ClosAlloc{Clos: t.Clos, Args: substAtoms(t.Args, sub)}
	case mil.Enter:
		return mil.Enter{Func: substAtom(t.Func, sub), Args: substAtoms(t.Args, sub), NOut: t.NOut}
	case mil.Sel:
		return mil.Sel{Cfun: t.Cfun, Index: t.Index, Atom: substAtom(t.Atom, sub)}
	default:
		return t
	}
}
