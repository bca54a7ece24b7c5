// Package interp is the primitive-level interpreter spec.md §7.3
// calls for: it executes a compiler/mil.Program directly, without any
// lowering to machine code, so tests can compare a program's observed
// printWord trace before and after an optimization pass runs (spec.md
// §8's round-trip property) and so divide-by-zero / halt / loop can be
// raised as distinguished runtime Traps rather than crashing the host
// process.
//
// Grounded on the teacher's compiler/back package's tree-walking
// evaluation of an already-typed ir.Block (the same
// bind-then-branch-then-tail walk, over compiler/mil's Code spine
// instead of the teacher's own IR generation).
package interp

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// Trap is a distinguished runtime failure raised by a primitive:
// divide-by-zero or an executed halt/loop (spec.md §7.3). compiler/emit
// lowers an executed halt/loop to a call to llmil.abort and emits
// div/mod as plain udiv/urem with no zero check; here every Trap
// simply stops interpretation.
type Trap struct {
	Reason string
}

func (t *Trap) Error() string { return "trap: " + t.Reason }

// Value is the closed set of runtime values the interpreter produces:
// Word (a machine word), Flag (a boolean), Data (a constructed value
// built by a Cfun) and Closure (an allocated closure awaiting Enter).
type Value interface{ value() }

type Word uint64

type Flag bool

type Data struct {
	Cfun   *mil.Cfun
	Fields []Value
}

type Closure struct {
	Def    *mil.ClosureDefn
	Stored []Value
}

func (Word) value()    {}
func (Flag) value()    {}
func (Data) value()    {}
func (Closure) value() {}

// State is one interpretation run: the mutable trace of printWord
// outputs, a flat byte-addressed memory backing load/store, and a
// memo table so each top-level (spec.md §3 "evaluated once") is
// forced at most once even if referenced from multiple places.
type State struct {
	prog *mil.Program

	Trace []uint64
	mem   map[uint64]byte

	topVals map[*mil.TopLevel][]Value
}

// New creates an interpreter State for prog with an empty memory and
// trace.
func New(prog *mil.Program) *State {
	return &State{
		prog:    prog,
		mem:     map[uint64]byte{},
		topVals: map[*mil.TopLevel][]Value{},
	}
}

// Run forces every entry-point top-level of prog in order and returns
// the accumulated printWord trace. A Trap or malformed-program error
// aborts the run immediately, per spec.md §7.2's "never silently
// continue."
func Run(ctx context.Context, prog *mil.Program) (trace []uint64, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "interp: run", "path", prog.Path)
	defer tr.Finish()

	_ = ctx

	st := New(prog)

	entries := prog.Entries
	if len(entries) == 0 {
		entries = prog.TopLevels
	}

	for _, top := range entries {
		if _, err := st.forceTop(top); err != nil {
			return st.Trace, errors.Wrap(err, "toplevel %s", top.Name)
		}
	}

	tr.Printw("interpreted", "prints", len(st.Trace))

	return st.Trace, nil
}

// RunBlock evaluates a single block by name with the given argument
// words (a flag-typed parameter takes any non-zero word as true), for
// tests that want to exercise one block directly rather than a whole
// program's entry points.
func RunBlock(ctx context.Context, prog *mil.Program, name string, args ...uint64) (results []uint64, trace []uint64, err error) {
	var b *mil.Block
	for _, cand := range prog.Blocks {
		if cand.Name == name {
			b = cand
			break
		}
	}

	if b == nil {
		return nil, nil, errors.New("no such block %s", name)
	}

	if len(args) != len(b.Params) {
		return nil, nil, errors.New("block %s: %d args, wants %d", name, len(args), len(b.Params))
	}

	st := New(prog)

	env := map[mil.Temp]Value{}
	for i, p := range b.Params {
		if i < len(b.ParamTypes) {
			if _, isFlag := b.ParamTypes[i].(mil.FlagType); isFlag {
				env[p] = Flag(args[i] != 0)
				continue
			}
		}

		env[p] = Word(args[i])
	}

	vals, err := st.evalCode(b.Body, env)
	if err != nil {
		return nil, st.Trace, err
	}

	for _, v := range vals {
		w, ok := v.(Word)
		if !ok {
			return nil, st.Trace, errors.New("block %s: non-word result %T", name, v)
		}

		results = append(results, uint64(w))
	}

	return results, st.Trace, nil
}

func (st *State) forceTop(top *mil.TopLevel) ([]Value, error) {
	if vs, ok := st.topVals[top]; ok {
		return vs, nil
	}

	vs, err := st.evalTail(top.Tail, map[mil.Temp]Value{})
	if err != nil {
		return nil, err
	}

	st.topVals[top] = vs

	return vs, nil
}

func (st *State) evalCode(c mil.Code, env map[mil.Temp]Value) ([]Value, error) {
	switch x := c.(type) {
	case mil.Bind:
		vs, err := st.evalTail(x.Tail, env)
		if err != nil {
			return nil, err
		}

		if len(vs) != len(x.Vars) {
			return nil, errors.New("bind: tail produced %d values, %d vars", len(vs), len(x.Vars))
		}

		next := extend(env, x.Vars, vs)

		return st.evalCode(x.Next, next)
	case mil.Done:
		return st.evalTail(x.Tail, env)
	case mil.If:
		cond, ok := env[x.Cond]
		if !ok {
			return nil, errors.New("if: condition temp %v not bound", x.Cond)
		}

		flag, ok := cond.(Flag)
		if !ok {
			return nil, errors.New("if: condition is not a flag: %T", cond)
		}

		if bool(flag) {
			return st.evalBlockCall(x.Then, env)
		}

		return st.evalBlockCall(x.Else, env)
	case mil.Case:
		cond, ok := env[x.Cond]
		if !ok {
			return nil, errors.New("case: scrutinee temp %v not bound", x.Cond)
		}

		data, ok := cond.(Data)
		if !ok {
			return nil, errors.New("case: scrutinee is not a data value: %T", cond)
		}

		for _, alt := range x.Alts {
			if alt.Cfun == data.Cfun {
				return st.evalBlockCall(alt.Call, env)
			}
		}

		if x.Default != nil {
			return st.evalBlockCall(*x.Default, env)
		}

		return nil, errors.New("case: no alternative matched cfun %v and no default", data.Cfun)
	default:
		return nil, errors.New("unsupported code node %T", c)
	}
}

func (st *State) evalBlockCall(bc mil.BlockCall, env map[mil.Temp]Value) ([]Value, error) {
	args, err := st.evalAtoms(bc.Args, env)
	if err != nil {
		return nil, errors.Wrap(err, "call %s", bc.Block.Name)
	}

	if len(args) != len(bc.Block.Params) {
		return nil, errors.New("call %s: %d args, block declares %d params", bc.Block.Name, len(args), len(bc.Block.Params))
	}

	next := map[mil.Temp]Value{}
	for i, p := range bc.Block.Params {
		next[p] = args[i]
	}

	return st.evalCode(bc.Block.Body, next)
}

func (st *State) evalTail(t mil.Tail, env map[mil.Temp]Value) ([]Value, error) {
	switch x := t.(type) {
	case mil.Return:
		return st.evalAtoms(x.Args, env)
	case mil.PrimCall:
		return st.evalPrim(x, env)
	case mil.BlockCall:
		return st.evalBlockCall(x, env)
	case mil.DataAlloc:
		args, err := st.evalAtoms(x.Args, env)
		if err != nil {
			return nil, errors.Wrap(err, "dataalloc")
		}

		return []Value{Data{Cfun: x.Cfun, Fields: args}}, nil
	case mil.ClosAlloc:
		stored, err := st.evalAtoms(x.Args, env)
		if err != nil {
			return nil, errors.Wrap(err, "closalloc")
		}

		return []Value{Closure{Def: x.Clos, Stored: stored}}, nil
	case mil.Enter:
		fn, err := st.evalAtom(x.Func, env)
		if err != nil {
			return nil, errors.Wrap(err, "enter")
		}

		clos, ok := fn.(Closure)
		if !ok {
			return nil, errors.New("enter: not a closure: %T", fn)
		}

		args, err := st.evalAtoms(x.Args, env)
		if err != nil {
			return nil, errors.Wrap(err, "enter")
		}

		if len(args) != len(clos.Def.Params) {
			return nil, errors.New("enter %s: %d args, closure declares %d params", clos.Def.Name, len(args), len(clos.Def.Params))
		}

		next := map[mil.Temp]Value{}
		for i, s := range clos.Def.Stored {
			next[s] = clos.Stored[i]
		}

		for i, p := range clos.Def.Params {
			next[p] = args[i]
		}

		return st.evalTail(clos.Def.Body, next)
	case mil.Sel:
		v, err := st.evalAtom(x.Atom, env)
		if err != nil {
			return nil, errors.Wrap(err, "sel")
		}

		data, ok := v.(Data)
		if !ok {
			return nil, errors.New("sel: not a data value: %T", v)
		}

		if data.Cfun != x.Cfun {
			return nil, errors.New("sel: value built by %v, selector expects %v", data.Cfun, x.Cfun)
		}

		if x.Index >= len(data.Fields) {
			return nil, errors.New("sel: index %d out of range (%d fields)", x.Index, len(data.Fields))
		}

		return []Value{data.Fields[x.Index]}, nil
	default:
		return nil, errors.New("unsupported tail %T", t)
	}
}

func (st *State) evalAtoms(as []mil.Atom, env map[mil.Temp]Value) ([]Value, error) {
	out := make([]Value, len(as))

	for i, a := range as {
		v, err := st.evalAtom(a, env)
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

func (st *State) evalAtom(a mil.Atom, env map[mil.Temp]Value) (Value, error) {
	switch a := a.(type) {
	case mil.Temp:
		v, ok := env[a]
		if !ok {
			return nil, errors.New("temp %v not bound", a)
		}

		return v, nil
	case mil.IntConst:
		return Word(a.Value), nil
	case mil.FlagConst:
		return Flag(a), nil
	case mil.TopRef:
		vs, err := st.forceTop(a.Top)
		if err != nil {
			return nil, err
		}

		if a.Index >= len(vs) {
			return nil, errors.New("topref %s#%d out of range", a.Top.Name, a.Index)
		}

		return vs[a.Index], nil
	default:
		return nil, errors.New("unsupported atom %T", a)
	}
}

func extend(env map[mil.Temp]Value, vars []mil.Temp, vals []Value) map[mil.Temp]Value {
	next := make(map[mil.Temp]Value, len(env)+len(vars))
	for k, v := range env {
		next[k] = v
	}

	for i, t := range vars {
		next[t] = vals[i]
	}

	return next
}
