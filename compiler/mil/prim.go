package mil

type (
	// PrimID names a primitive kind. Two *Prim values with the same
	// ID may differ after specialization (e.g. a load specialized to
	// a fixed size); identity of a primitive reference is by pointer,
	// never by ID alone.
	PrimID int

	// Purity classifies how freely a primitive call may be duplicated
	// or dropped by the rewriter (see IsRepeatable / HasNoEffect).
	Purity int

	Prim struct {
		ID     PrimID
		Name   string
		Arity  int
		Outity int
		Purity Purity
		Block  *BlockType
	}

	// PrimSet is the process-wide primitive interner (spec design note:
	// "a process-wide interner keyed by a PrimId and threaded through
	// passes as a handle, avoiding mutable globals"). One PrimSet is
	// created per Program and never shared or mutated after Build.
	PrimSet struct {
		byID map[PrimID]*Prim
	}
)

const (
	Pure Purity = iota
	Observer
	Volatile
	Impure
	DoesNotReturn
)

func (p Purity) String() string {
	switch p {
	case Pure:
		return "pure"
	case Observer:
		return "observer"
	case Volatile:
		return "volatile"
	case Impure:
		return "impure"
	case DoesNotReturn:
		return "does-not-return"
	default:
		return "unknown"
	}
}

const (
	PrimAdd PrimID = iota
	PrimSub
	PrimMul
	PrimDiv
	PrimMod
	PrimNeg

	PrimAnd
	PrimOr
	PrimXor
	PrimNot
	PrimShl
	PrimLshr
	PrimAshr

	PrimEq
	PrimNeq
	PrimLt
	PrimLte
	PrimGt
	PrimGte

	PrimFlagToWord
	PrimBnot

	PrimHalt
	PrimLoop

	PrimPrintWord

	PrimLoad
	PrimStore
)

// IsRepeatable reports whether a call to p may be duplicated: its
// purity is at most Observer (spec §3 "Purity contract").
func (p *Prim) IsRepeatable() bool { return p.Purity <= Observer }

// HasNoEffect reports whether a call to p may be dropped outright if
// its result is unused: its purity is at most Volatile.
func (p *Prim) HasNoEffect() bool { return p.Purity <= Volatile }

func (p *Prim) IsRelation() bool {
	switch p.ID {
	case PrimEq, PrimNeq, PrimLt, PrimLte, PrimGt, PrimGte:
		return true
	default:
		return false
	}
}

func (p *Prim) IsCommutative() bool {
	switch p.ID {
	case PrimAdd, PrimMul, PrimAnd, PrimOr, PrimXor, PrimEq, PrimNeq:
		return true
	default:
		return false
	}
}

func (p *Prim) IsAssociative() bool {
	switch p.ID {
	case PrimAdd, PrimMul, PrimAnd, PrimOr, PrimXor:
		return true
	default:
		return false
	}
}

// InvertRelation returns the PrimID p becomes under logical negation,
// per spec §4.3.1 ("relational inversion").
func InvertRelation(id PrimID) (PrimID, bool) {
	switch id {
	case PrimEq:
		return PrimNeq, true
	case PrimNeq:
		return PrimEq, true
	case PrimLt:
		return PrimGte, true
	case PrimGte:
		return PrimLt, true
	case PrimGt:
		return PrimLte, true
	case PrimLte:
		return PrimGt, true
	default:
		return 0, false
	}
}

// DualBitwise returns and<->or under deMorgan's law.
func DualBitwise(id PrimID) (PrimID, bool) {
	switch id {
	case PrimAnd:
		return PrimOr, true
	case PrimOr:
		return PrimAnd, true
	default:
		return 0, false
	}
}

func NewPrimSet() *PrimSet {
	s := &PrimSet{byID: make(map[PrimID]*Prim)}

	binary := func(id PrimID, name string, purity Purity) {
		s.byID[id] = &Prim{ID: id, Name: name, Arity: 2, Outity: 1, Purity: purity}
	}
	unary := func(id PrimID, name string, purity Purity) {
		s.byID[id] = &Prim{ID: id, Name: name, Arity: 1, Outity: 1, Purity: purity}
	}

	binary(PrimAdd, "add", Pure)
	binary(PrimSub, "sub", Pure)
	binary(PrimMul, "mul", Pure)
	binary(PrimDiv, "div", Volatile) // may trap: droppable when unused, but not repeatable
	binary(PrimMod, "mod", Volatile)
	unary(PrimNeg, "neg", Pure)

	binary(PrimAnd, "and", Pure)
	binary(PrimOr, "or", Pure)
	binary(PrimXor, "xor", Pure)
	unary(PrimNot, "not", Pure)
	binary(PrimShl, "shl", Pure)
	binary(PrimLshr, "lshr", Pure)
	binary(PrimAshr, "ashr", Pure)

	binary(PrimEq, "primEq", Pure)
	binary(PrimNeq, "primNeq", Pure)
	binary(PrimLt, "primLt", Pure)
	binary(PrimLte, "primLte", Pure)
	binary(PrimGt, "primGt", Pure)
	binary(PrimGte, "primGte", Pure)

	unary(PrimFlagToWord, "flagToWord", Pure)
	unary(PrimBnot, "bnot", Pure)

	s.byID[PrimHalt] = &Prim{ID: PrimHalt, Name: "halt", Arity: 0, Outity: 0, Purity: DoesNotReturn}
	s.byID[PrimLoop] = &Prim{ID: PrimLoop, Name: "loop", Arity: 0, Outity: 0, Purity: DoesNotReturn}

	s.byID[PrimPrintWord] = &Prim{ID: PrimPrintWord, Name: "printWord", Arity: 1, Outity: 0, Purity: Impure}

	// load(size, base, offset, index, mult)
	s.byID[PrimLoad] = &Prim{ID: PrimLoad, Name: "load", Arity: 5, Outity: 1, Purity: Observer}
	// store(size, base, offset, index, mult, value)
	s.byID[PrimStore] = &Prim{ID: PrimStore, Name: "store", Arity: 6, Outity: 0, Purity: Impure}

	return s
}

func (s *PrimSet) Get(id PrimID) *Prim {
	return s.byID[id]
}

// ByName looks up a primitive by its surface name, for use by
// compiler/tycheck and compiler/lower when resolving a parsed
// call to a PrimID.
func (s *PrimSet) ByName(name string) *Prim {
	for _, p := range s.byID {
		if p.Name == name {
			return p
		}
	}

	return nil
}
