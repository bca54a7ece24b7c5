package pass

import "github.com/EmiliaPaz/mil-tools/compiler/mil"

// removeUnusedArgs drops block parameters that the block's own body
// never reads, then strips the matching argument from every call site
// in the program (spec §4.4's final fixpoint stage: this only pays off
// after flow and inline have simplified bodies enough that a parameter
// genuinely goes unread, so it runs after both in the pass order).
func removeUnusedArgs(prog *mil.Program) bool {
	changed := false

	for _, b := range prog.Blocks {
		used := map[mil.Temp]bool{}
		collectUsedTemps(b.Body, used)

		var unused []int
		for i, p := range b.Params {
			if !used[p] {
				unused = append(unused, i)
			}
		}

		if len(unused) == 0 {
			b.UnusedArgs = nil
			continue
		}

		b.UnusedArgs = unused
		b.Params = dropIndices(b.Params, unused)
		b.ParamTypes = dropTypeIndices(b.ParamTypes, unused)

		for _, caller := range prog.Blocks {
			caller.Body = dropCallArgs(caller.Body, b, unused)
		}

		for _, t := range prog.TopLevels {
			t.Tail = dropCallArgsInTail(t.Tail, b, unused)
		}

		for _, cl := range prog.Closures {
			cl.Body = dropCallArgsInTail(cl.Body, b, unused)
		}

		changed = true
	}

	return changed
}

func collectUsedTemps(c mil.Code, used map[mil.Temp]bool) {
	switch x := c.(type) {
	case mil.Bind:
		for _, a := range mil.InputAtoms(x.Tail) {
			markLive(used, a)
		}

		collectUsedTemps(x.Next, used)
	case mil.Done:
		for _, a := range mil.InputAtoms(x.Tail) {
			markLive(used, a)
		}
	case mil.If:
		markLive(used, x.Cond)

		for _, a := range x.Then.Args {
			markLive(used, a)
		}

		for _, a := range x.Else.Args {
			markLive(used, a)
		}
	case mil.Case:
		markLive(used, x.Cond)

		for _, alt := range x.Alts {
			for _, a := range alt.Call.Args {
				markLive(used, a)
			}
		}

		if x.Default != nil {
			for _, a := range x.Default.Args {
				markLive(used, a)
			}
		}
	}
}

func dropIndices(vs []mil.Temp, drop []int) []mil.Temp {
	skip := make(map[int]bool, len(drop))
	for _, i := range drop {
		skip[i] = true
	}

	out := make([]mil.Temp, 0, len(vs)-len(drop))
	for i, v := range vs {
		if !skip[i] {
			out = append(out, v)
		}
	}

	return out
}

func dropTypeIndices(ts []mil.Type, drop []int) []mil.Type {
	skip := make(map[int]bool, len(drop))
	for _, i := range drop {
		skip[i] = true
	}

	out := make([]mil.Type, 0, len(ts)-len(drop))
	for i, t := range ts {
		if !skip[i] {
			out = append(out, t)
		}
	}

	return out
}

func dropAtomIndices(as []mil.Atom, drop []int) []mil.Atom {
	skip := make(map[int]bool, len(drop))
	for _, i := range drop {
		skip[i] = true
	}

	out := make([]mil.Atom, 0, len(as)-len(drop))
	for i, a := range as {
		if !skip[i] {
			out = append(out, a)
		}
	}

	return out
}

func dropCallArgs(c mil.Code, target *mil.Block, drop []int) mil.Code {
	switch x := c.(type) {
	case mil.Bind:
		return mil.Bind{Vars: x.Vars, Tail: dropCallArgsInTail(x.Tail, target, drop), Next: dropCallArgs(x.Next, target, drop)}
	case mil.Done:
		return mil.Done{Tail: dropCallArgsInTail(x.Tail, target, drop)}
	case mil.If:
		return mil.If{Cond: x.Cond, Then: dropCallArgsInCall(x.Then, target, drop), Else: dropCallArgsInCall(x.Else, target, drop)}
	case mil.Case:
		alts := make([]mil.CaseAlt, len(x.Alts))
		for i, a := range x.Alts {
			alts[i] = mil.CaseAlt{Cfun: a.Cfun, Call: dropCallArgsInCall(a.Call, target, drop)}
		}

		var def *mil.BlockCall
		if x.Default != nil {
			d := dropCallArgsInCall(*x.Default, target, drop)
			def = &d
		}

		return mil.Case{Cond: x.Cond, Alts: alts, Default: def}
	default:
		return c
	}
}

func dropCallArgsInCall(bc mil.BlockCall, target *mil.Block, drop []int) mil.BlockCall {
	if bc.Block != target {
		return bc
	}

	return mil.BlockCall{Block: bc.Block, Args: dropAtomIndices(bc.Args, drop)}
}

func dropCallArgsInTail(t mil.Tail, target *mil.Block, drop []int) mil.Tail {
	if bc, ok := t.(mil.BlockCall); ok && bc.Block == target {
		return mil.BlockCall{Block: bc.Block, Args: dropAtomIndices(bc.Args, drop)}
	}

	return t
}
