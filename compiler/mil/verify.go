package mil

import "tlog.app/go/errors"

// Verify checks the scope, arity and tuple-typing invariants of spec
// §3 and §8 against every block, closure and top-level in p. It is
// run after every round of compiler/pass's pipeline; any violation is an internal error,
// never a silent no-op (spec §7.2).
func Verify(p *Program) error {
	for _, b := range p.Blocks {
		if err := verifyBlock(b); err != nil {
			return errors.Wrap(err, "block %s", b.Name)
		}
	}

	for _, f := range p.Closures {
		if err := verifyClosureBody(f); err != nil {
			return errors.Wrap(err, "closure %s", f.Name)
		}
	}

	for _, t := range p.TopLevels {
		scope := map[Temp]bool{}
		if err := verifyTail(t.Tail, scope); err != nil {
			return errors.Wrap(err, "toplevel %s", t.Name)
		}

		if len(t.Lhs) != t.Tail.Outity() {
			return errors.New("toplevel %s: %d lhs but tail produces %d results", t.Name, len(t.Lhs), t.Tail.Outity())
		}
	}

	return nil
}

func verifyBlock(b *Block) error {
	scope := map[Temp]bool{}
	for _, p := range b.Params {
		scope[p] = true
	}

	return verifyCode(b.Body, scope)
}

func verifyClosureBody(f *ClosureDefn) error {
	scope := map[Temp]bool{}
	for _, s := range f.Stored {
		scope[s] = true
	}

	for _, p := range f.Params {
		scope[p] = true
	}

	return verifyTail(f.Body, scope)
}

func verifyCode(c Code, scope map[Temp]bool) error {
	switch x := c.(type) {
	case Bind:
		if err := verifyTail(x.Tail, scope); err != nil {
			return err
		}

		if len(x.Vars) != x.Tail.Outity() {
			return errors.New("bind: %d vars but tail produces %d results", len(x.Vars), x.Tail.Outity())
		}

		for _, v := range x.Vars {
			if scope[v] {
				return errors.New("temp %v rebound", v)
			}

			scope[v] = true
		}

		return verifyCode(x.Next, scope)
	case Done:
		return verifyTail(x.Tail, scope)
	case If:
		if !scope[x.Cond] {
			return errors.New("if: cond %v not in scope", x.Cond)
		}

		if err := verifyTail(x.Then, scope); err != nil {
			return errors.Wrap(err, "then")
		}

		return verifyTail(x.Else, scope)
	case Case:
		if !scope[x.Cond] {
			return errors.New("case: cond %v not in scope", x.Cond)
		}

		for _, alt := range x.Alts {
			if err := verifyTail(alt.Call, scope); err != nil {
				return errors.Wrap(err, "alt %v", alt.Cfun.Data.Name)
			}
		}

		if x.Default != nil {
			return verifyTail(*x.Default, scope)
		}

		return nil
	default:
		return errors.New("unsupported code node %T", c)
	}
}

func verifyTail(t Tail, scope map[Temp]bool) error {
	for _, a := range InputAtoms(t) {
		if tp, ok := a.(Temp); ok && !scope[tp] {
			return errors.New("temp %v used out of scope", tp)
		}
	}

	switch t := t.(type) {
	case PrimCall:
		if len(t.Args) != t.Prim.Arity {
			return errors.New("%s: arity mismatch: want %d, got %d", t.Prim.Name, t.Prim.Arity, len(t.Args))
		}
	case BlockCall:
		if len(t.Args) != len(t.Block.ParamTypes) {
			return errors.New("call to %s: %d args, %d params", t.Block.Name, len(t.Args), len(t.Block.ParamTypes))
		}
	}

	return nil
}
