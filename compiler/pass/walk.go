// Package pass implements the optimizer's pass driver: the fixpoint of
// inline -> flow -> eliminateDuplicates -> removeUnusedArgs described
// in spec §4.4. It is grounded on the teacher's compiler/back/back6.go
// job-heap merge-point scheduler: that file drove a worklist of
// control-flow positions to a fixpoint with nikand.dev/go/heap; Pipeline
// generalizes the same "heap-ordered worklist, run until nothing
// changes" shape to a worklist of blocks instead of control-flow jobs.
package pass

import "github.com/EmiliaPaz/mil-tools/compiler/mil"

// replaceBlockRefs rewrites every BlockCall in c that targets old to
// target new instead, leaving everything else untouched. Code and Tail
// are immutable value trees, so a replacement means rebuilding the
// spine down to every touched node.
func replaceBlockRefs(c mil.Code, old, new_ *mil.Block) mil.Code {
	switch x := c.(type) {
	case mil.Bind:
		return mil.Bind{
			Vars: x.Vars,
			Tail: replaceTailBlockRef(x.Tail, old, new_),
			Next: replaceBlockRefs(x.Next, old, new_),
		}
	case mil.Done:
		return mil.Done{Tail: replaceTailBlockRef(x.Tail, old, new_)}
	case mil.If:
		return mil.If{
			Cond: x.Cond,
			Then: replaceCallRef(x.Then, old, new_),
			Else: replaceCallRef(x.Else, old, new_),
		}
	case mil.Case:
		alts := make([]mil.CaseAlt, len(x.Alts))
		for i, a := range x.Alts {
			alts[i] = mil.CaseAlt{Cfun: a.Cfun, Call: replaceCallRef(a.Call, old, new_)}
		}

		var def *mil.BlockCall
		if x.Default != nil {
			d := replaceCallRef(*x.Default, old, new_)
			def = &d
		}

		return mil.Case{Cond: x.Cond, Alts: alts, Default: def}
	default:
		return c
	}
}

func replaceCallRef(bc mil.BlockCall, old, new_ *mil.Block) mil.BlockCall {
	if bc.Block == old {
		bc.Block = new_
	}

	return bc
}

func replaceTailBlockRef(t mil.Tail, old, new_ *mil.Block) mil.Tail {
	if bc, ok := t.(mil.BlockCall); ok && bc.Block == old {
		bc.Block = new_
		return bc
	}

	return t
}

// flatten splits a Code spine into its leading Binds and its terminal
// (Done, If or Case) node.
func flatten(c mil.Code) (binds []mil.Bind, term mil.Code) {
	for {
		b, ok := c.(mil.Bind)
		if !ok {
			return binds, c
		}

		binds = append(binds, b)
		c = b.Next
	}
}

// unflatten rebuilds a Code spine from flatten's output.
func unflatten(binds []mil.Bind, term mil.Code) mil.Code {
	c := term
	for i := len(binds) - 1; i >= 0; i-- {
		c = mil.Bind{Vars: binds[i].Vars, Tail: binds[i].Tail, Next: c}
	}

	return c
}

// allBlockCalls returns every *mil.Block referenced by a BlockCall
// reachable from c.
func allBlockCalls(c mil.Code, out map[*mil.Block]bool) {
	switch x := c.(type) {
	case mil.Bind:
		if bc, ok := x.Tail.(mil.BlockCall); ok {
			out[bc.Block] = true
		}

		allBlockCalls(x.Next, out)
	case mil.Done:
		if bc, ok := x.Tail.(mil.BlockCall); ok {
			out[bc.Block] = true
		}
	case mil.If:
		out[x.Then.Block] = true
		out[x.Else.Block] = true
	case mil.Case:
		for _, a := range x.Alts {
			out[a.Call.Block] = true
		}

		if x.Default != nil {
			out[x.Default.Block] = true
		}
	}
}

// terminalAtoms returns the atoms directly read by a spine's terminal
// node (its own args plus, for If/Case, the condition and every branch
// target's call args).
func terminalAtoms(c mil.Code) []mil.Atom {
	switch x := c.(type) {
	case mil.Done:
		return mil.InputAtoms(x.Tail)
	case mil.If:
		atoms := []mil.Atom{x.Cond}
		atoms = append(atoms, x.Then.Args...)
		atoms = append(atoms, x.Else.Args...)

		return atoms
	case mil.Case:
		atoms := []mil.Atom{x.Cond}
		for _, a := range x.Alts {
			atoms = append(atoms, a.Call.Args...)
		}

		if x.Default != nil {
			atoms = append(atoms, x.Default.Args...)
		}

		return atoms
	default:
		return nil
	}
}
