package mil

import "tlog.app/go/errors"

// NewPrimCall constructs a PrimCall, checking arity and normalizing
// shift amounts exactly once: a literal shift count is reduced modulo
// WordSize here, at construction time, so every later fact lookup
// and rewrite sees an already-normalized amount and never
// renormalizes (decided open question, see DESIGN.md).
func NewPrimCall(prims *PrimSet, id PrimID, args []Atom) (PrimCall, error) {
	p := prims.Get(id)
	if p == nil {
		return PrimCall{}, errors.New("unknown primitive id %d", id)
	}

	if len(args) != p.Arity {
		return PrimCall{}, errors.New("%s: arity mismatch: want %d, got %d", p.Name, p.Arity, len(args))
	}

	switch id {
	case PrimShl, PrimLshr, PrimAshr:
		if c, ok := args[1].(IntConst); ok {
			c.Value = c.Value % WordSize
			args = []Atom{args[0], c}
		}
	}

	return PrimCall{Prim: p, Args: args}, nil
}

// Bindn appends a Bind(vs, t, ...) in front of next, the usual way a
// rewrite prepends fresh bindings ahead of a replacement tail.
func Bindn(vs []Temp, t Tail, next Code) Code {
	return Bind{Vars: vs, Tail: t, Next: next}
}

// CodeOf turns a bare tail into a one-node Code spine.
func CodeOf(t Tail) Code {
	return Done{Tail: t}
}

// LastTail returns the terminal tail of a Code spine (the Tail of its
// Done); it reports false when the spine ends in an If or Case.
func LastTail(c Code) (Tail, bool) {
	for {
		switch x := c.(type) {
		case Done:
			return x.Tail, true
		case Bind:
			c = x.Next
		default:
			return nil, false
		}
	}
}
