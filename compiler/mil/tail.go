package mil

type (
	// Tail is a computation that produces a result tuple: the
	// right-hand side of a Bind, or the terminal computation of a
	// block.
	Tail interface {
		// Outity is the number of results this tail produces.
		Outity() int
		// IsRepeatable reports whether this tail may be duplicated by
		// a rewrite (purity <= Observer).
		IsRepeatable() bool
		// HasNoEffect reports whether this tail may be dropped if its
		// results are unused (purity <= Volatile).
		HasNoEffect() bool
		tail()
	}

	Return struct {
		Args []Atom
	}

	PrimCall struct {
		Prim *Prim
		Args []Atom
	}

	BlockCall struct {
		Block *Block
		Args  []Atom
	}

	DataAlloc struct {
		Cfun *Cfun
		Args []Atom
	}

	ClosAlloc struct {
		Clos *ClosureDefn
		Args []Atom
	}

	// Enter forces and applies a closure atom to arguments. NOut is
	// the declared result arity of the closure being entered.
	Enter struct {
		Func Atom
		Args []Atom
		NOut int
	}

	Sel struct {
		Cfun  *Cfun
		Index int
		Atom  Atom
	}
)

func (Return) tail()    {}
func (PrimCall) tail()  {}
func (BlockCall) tail() {}
func (DataAlloc) tail() {}
func (ClosAlloc) tail() {}
func (Enter) tail()     {}
func (Sel) tail()       {}

func (t Return) Outity() int    { return len(t.Args) }
func (t PrimCall) Outity() int  { return t.Prim.Outity }
func (t BlockCall) Outity() int { return t.Block.Outity() }
func (DataAlloc) Outity() int   { return 1 }
func (ClosAlloc) Outity() int   { return 1 }
func (t Enter) Outity() int     { return t.NOut }
func (Sel) Outity() int         { return 1 }

// Return and Sel are pure: they neither read mutable state nor
// require re-evaluation to be observed twice.
func (Return) IsRepeatable() bool { return true }
func (Return) HasNoEffect() bool  { return true }

func (t PrimCall) IsRepeatable() bool { return t.Prim.IsRepeatable() }
func (t PrimCall) HasNoEffect() bool  { return t.Prim.HasNoEffect() }

// BlockCall and Enter are conservatively treated as impure: a block
// or closure body may itself contain effects, and the rewriter never
// inlines through them to find out (that's inlining's job, not the
// peephole rewriter's).
func (BlockCall) IsRepeatable() bool { return false }
func (BlockCall) HasNoEffect() bool  { return false }

func (Enter) IsRepeatable() bool { return false }
func (Enter) HasNoEffect() bool  { return false }

// Allocation is repeatable (re-running it just allocates again with
// the same field values) but is not free of effect: it may exhaust
// the heap or interact with a collector, so it cannot be silently
// dropped even when its result is unused... unless the allocation is
// provably stack-local, which compiler/rep decides, not this layer.
func (DataAlloc) IsRepeatable() bool { return true }
func (DataAlloc) HasNoEffect() bool  { return false }

func (ClosAlloc) IsRepeatable() bool { return true }
func (ClosAlloc) HasNoEffect() bool  { return false }

// Sel reads a field of an already-built value; it is as pure as the
// value it projects from.
func (Sel) IsRepeatable() bool { return true }
func (Sel) HasNoEffect() bool  { return true }

// InputAtoms returns the atoms a tail reads, in order, for uses that
// need to walk def-use edges (lifting, liveness, verification).
func InputAtoms(t Tail) []Atom {
	switch t := t.(type) {
	case Return:
		return t.Args
	case PrimCall:
		return t.Args
	case BlockCall:
		return t.Args
	case DataAlloc:
		return t.Args
	case ClosAlloc:
		return t.Args
	case Enter:
		return append([]Atom{t.Func}, t.Args...)
	case Sel:
		return []Atom{t.Atom}
	default:
		return nil
	}
}
