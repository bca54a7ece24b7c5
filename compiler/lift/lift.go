package lift

import (
	"context"

	"nikand.dev/go/heap"
	"tlog.app/go/tlog"

	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

type liftJob struct{ idx int }

func liftJobLess(d []liftJob, i, j int) bool { return d[i].idx < d[j].idx }

// Lift computes, for every func in funcs, the transitive closure of
// its captured variables and rewrites the whole program so every call
// to a lifted block supplies them. Blocks outside funcs are visited
// too, since a local function's original definition site (outside the
// nest) is exactly where its free variables were already in scope and
// must now be passed explicitly.
func Lift(ctx context.Context, prog *mil.Program, funcs []LocalFunc) *LiftEnv {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lift: compute extra variables", "funcs", len(funcs))
	defer tr.Finish()

	_ = ctx

	extra := computeExtras(tr, funcs)

	env := &LiftEnv{extra: extra}

	// tempType is built once across every func in the nest: an extra
	// variable the current func's own Free/Params never mentions but
	// inherited from a callee several hops away still needs its
	// declared type recovered from wherever it originated.
	tempType := map[mil.Temp]mil.Type{}
	for _, f := range funcs {
		for i, p := range f.Block.Params {
			tempType[p] = f.Block.ParamTypes[i]
		}

		for i, t := range f.Free {
			tempType[t] = f.FreeTypes[i]
		}
	}

	for _, f := range funcs {
		ts := extra[f.Block]
		if len(ts) == 0 {
			continue
		}

		f.Block.Params = append(append([]mil.Temp{}, f.Block.Params...), ts...)

		for _, t := range ts {
			f.Block.ParamTypes = append(f.Block.ParamTypes, tempType[t])
		}
	}

	for _, b := range prog.Blocks {
		b.Body = appendCallArgs(b.Body, extra)
	}

	for _, t := range prog.TopLevels {
		t.Tail = appendTailArgs(t.Tail, extra)
	}

	for _, cl := range prog.Closures {
		cl.Body = appendTailArgs(cl.Body, extra)
	}

	return env
}

// computeExtras runs the union-closure fixpoint: extra(f) starts as
// f's own free variables (minus its params), then grows to include
// every extra(callee) not already among f's params, propagated with a
// heap-ordered worklist (grounded on the teacher's back6.go job heap:
// process a node, and on change push everything that depends on it
// back onto the heap). The heap pops jobs by func index; Tarjan's
// reverse-topological order only decides the order of the initial
// pushes.
func computeExtras(tr tlog.Span, funcs []LocalFunc) map[*mil.Block][]mil.Temp {
	n := len(funcs)

	blockIdx := make(map[*mil.Block]int, n)
	for i, f := range funcs {
		blockIdx[f.Block] = i
	}

	isParam := make([]map[mil.Temp]bool, n)
	extraSet := make([]map[mil.Temp]bool, n)
	extraOrd := make([][]mil.Temp, n)
	callerOf := make([][]int, n)

	for i, f := range funcs {
		isParam[i] = map[mil.Temp]bool{}
		for _, p := range f.Block.Params {
			isParam[i][p] = true
		}

		extraSet[i] = map[mil.Temp]bool{}

		for _, t := range f.Free {
			if isParam[i][t] || extraSet[i][t] {
				continue
			}

			extraSet[i][t] = true
			extraOrd[i] = append(extraOrd[i], t)
		}
	}

	for i, f := range funcs {
		for _, callee := range f.Calls {
			if j, ok := blockIdx[callee]; ok {
				callerOf[j] = append(callerOf[j], i)
			}
		}
	}

	order := tarjanOrder(funcs, blockIdx)

	jobs := heap.Heap[liftJob]{Less: liftJobLess}
	queued := make([]bool, n)

	for _, idx := range order {
		jobs.Push(liftJob{idx: idx})
		queued[idx] = true
	}

	for jobs.Len() != 0 {
		j := jobs.Pop()
		i := j.idx
		queued[i] = false

		f := funcs[i]
		localChanged := false

		for _, callee := range f.Calls {
			cj, ok := blockIdx[callee]
			if !ok {
				continue
			}

			for _, t := range extraOrd[cj] {
				if isParam[i][t] || extraSet[i][t] {
					continue
				}

				extraSet[i][t] = true
				extraOrd[i] = append(extraOrd[i], t)
				localChanged = true
			}
		}

		if !localChanged {
			continue
		}

		tr.V("lift_grow").Printw("extra set grew", "func", f.Block.Name, "size", len(extraOrd[i]))

		for _, caller := range callerOf[i] {
			if !queued[caller] {
				jobs.Push(liftJob{idx: caller})
				queued[caller] = true
			}
		}
	}

	result := make(map[*mil.Block][]mil.Temp, n)
	for i, f := range funcs {
		result[f.Block] = extraOrd[i]
	}

	return result
}

func appendCallArgs(c mil.Code, extra map[*mil.Block][]mil.Temp) mil.Code {
	switch x := c.(type) {
	case mil.Bind:
		return mil.Bind{Vars: x.Vars, Tail: appendTailArgs(x.Tail, extra), Next: appendCallArgs(x.Next, extra)}
	case mil.Done:
		return mil.Done{Tail: appendTailArgs(x.Tail, extra)}
	case mil.If:
		return mil.If{Cond: x.Cond, Then: appendCallExtra(x.Then, extra), Else: appendCallExtra(x.Else, extra)}
	case mil.Case:
		alts := make([]mil.CaseAlt, len(x.Alts))
		for i, a := range x.Alts {
			alts[i] = mil.CaseAlt{Cfun: a.Cfun, Call: appendCallExtra(a.Call, extra)}
		}

		var def *mil.BlockCall
		if x.Default != nil {
			d := appendCallExtra(*x.Default, extra)
			def = &d
		}

		return mil.Case{Cond: x.Cond, Alts: alts, Default: def}
	default:
		return c
	}
}

func appendTailArgs(t mil.Tail, extra map[*mil.Block][]mil.Temp) mil.Tail {
	if bc, ok := t.(mil.BlockCall); ok {
		return appendCallExtra(bc, extra)
	}

	return t
}

func appendCallExtra(bc mil.BlockCall, extra map[*mil.Block][]mil.Temp) mil.BlockCall {
	ts, ok := extra[bc.Block]
	if !ok || len(ts) == 0 {
		return bc
	}

	args := append([]mil.Atom{}, bc.Args...)
	for _, t := range ts {
		args = append(args, t)
	}

	return mil.BlockCall{Block: bc.Block, Args: args}
}
