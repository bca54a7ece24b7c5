package mil

import "fmt"

// mixConst is the fixed multiplier used to fold structural hashes
// together; the exact value doesn't matter beyond being odd and large
// enough to spread bits (FNV's prime serves fine).
const mixConst uint64 = 1099511628211

const fnvOffset uint64 = 14695981039346656037

func combine(h, x uint64) uint64 {
	return (h ^ x) * mixConst
}

func hashString(s string) uint64 {
	h := fnvOffset
	for i := 0; i < len(s); i++ {
		h = combine(h, uint64(s[i]))
	}

	return h
}

func hashPtr(p any) uint64 {
	return hashString(fmt.Sprintf("%p", p))
}

// Summary computes a hash over a block-like body such that
// alpha-equivalent (params, body) pairs receive the same summary; see
// AlphaCode for the corresponding equivalence check. params gives the
// initial temp numbering; renumber grows as Binds are walked.
func Summary(params []Temp, body Code) uint64 {
	renumber := make(map[Temp]int, len(params))
	for i, p := range params {
		renumber[p] = i
	}

	h := fnvOffset

	var walk func(c Code)
	walk = func(c Code) {
		switch x := c.(type) {
		case Bind:
			h = combine(h, summarizeTail(x.Tail, renumber))

			base := len(renumber)
			for i, v := range x.Vars {
				renumber[v] = base + i
			}

			walk(x.Next)
		case Done:
			h = combine(h, summarizeTail(x.Tail, renumber))
		case If:
			h = combine(h, hashString("if"))
			h = combine(h, summarizeAtom(x.Cond, renumber))
			h = combine(h, summarizeTail(x.Then, renumber))
			h = combine(h, summarizeTail(x.Else, renumber))
		case Case:
			h = combine(h, hashString("case"))
			h = combine(h, summarizeAtom(x.Cond, renumber))

			for i, alt := range x.Alts {
				h = combine(h, uint64(alt.Cfun.ID)*uint64(i+1))
				h = combine(h, summarizeTail(alt.Call, renumber))
			}

			if x.Default != nil {
				h = combine(h, summarizeTail(*x.Default, renumber))
			}
		}
	}

	walk(body)

	return h
}

func summarizeAtom(a Atom, renumber map[Temp]int) uint64 {
	switch a := a.(type) {
	case Temp:
		if idx, ok := renumber[a]; ok {
			return combine(hashString("temp"), uint64(idx))
		}

		return combine(hashString("freetemp"), uint64(a))
	case IntConst:
		return combine(hashString("int"), a.Value)
	case FlagConst:
		v := uint64(0)
		if a {
			v = 1
		}

		return combine(hashString("flag"), v)
	case TopRef:
		h := hashString("top")
		if a.Top != nil {
			h = combine(h, hashString(a.Top.Name))
		}

		return combine(h, uint64(a.Index))
	case GlobalRef:
		return combine(hashString("global"), hashString(a.Name))
	default:
		return hashString("atom?")
	}
}

func summarizeAtoms(as []Atom, renumber map[Temp]int) uint64 {
	h := hashString("atoms")
	for i, a := range as {
		h = combine(h, summarizeAtom(a, renumber)*uint64(i+31))
	}

	return h
}

func summarizeTail(t Tail, renumber map[Temp]int) uint64 {
	switch t := t.(type) {
	case Return:
		return combine(hashString("return"), summarizeAtoms(t.Args, renumber))
	case PrimCall:
		return combine(combine(hashString("prim"), uint64(t.Prim.ID)), summarizeAtoms(t.Args, renumber))
	case BlockCall:
		return combine(combine(hashString("blockcall"), hashPtr(t.Block)), summarizeAtoms(t.Args, renumber))
	case DataAlloc:
		return combine(combine(hashString("dataalloc"), uint64(t.Cfun.ID)), summarizeAtoms(t.Args, renumber))
	case ClosAlloc:
		return combine(combine(hashString("closalloc"), hashPtr(t.Clos)), summarizeAtoms(t.Args, renumber))
	case Enter:
		h := combine(hashString("enter"), summarizeAtom(t.Func, renumber))
		return combine(h, summarizeAtoms(t.Args, renumber))
	case Sel:
		h := combine(hashString("sel"), uint64(t.Cfun.ID))
		h = combine(h, uint64(t.Index))
		return combine(h, summarizeAtom(t.Atom, renumber))
	default:
		return hashString("tail?")
	}
}

// AlphaTail reports whether a and b are structurally equal modulo
// renaming, where vs1[i] in a corresponds to vs2[i] in b.
func AlphaTail(a Tail, vs1 []Temp, b Tail, vs2 []Temp) bool {
	eqAtom := func(x, y Atom) bool { return alphaAtom(x, vs1, y, vs2) }
	eqAtoms := func(xs, ys []Atom) bool {
		if len(xs) != len(ys) {
			return false
		}

		for i := range xs {
			if !eqAtom(xs[i], ys[i]) {
				return false
			}
		}

		return true
	}

	switch a := a.(type) {
	case Return:
		b, ok := b.(Return)
		return ok && eqAtoms(a.Args, b.Args)
	case PrimCall:
		b, ok := b.(PrimCall)
		return ok && a.Prim == b.Prim && eqAtoms(a.Args, b.Args)
	case BlockCall:
		b, ok := b.(BlockCall)
		return ok && a.Block == b.Block && eqAtoms(a.Args, b.Args)
	case DataAlloc:
		b, ok := b.(DataAlloc)
		return ok && a.Cfun == b.Cfun && eqAtoms(a.Args, b.Args)
	case ClosAlloc:
		b, ok := b.(ClosAlloc)
		return ok && a.Clos == b.Clos && eqAtoms(a.Args, b.Args)
	case Enter:
		b, ok := b.(Enter)
		return ok && a.NOut == b.NOut && eqAtom(a.Func, b.Func) && eqAtoms(a.Args, b.Args)
	case Sel:
		b, ok := b.(Sel)
		return ok && a.Cfun == b.Cfun && a.Index == b.Index && eqAtom(a.Atom, b.Atom)
	default:
		return false
	}
}

func alphaAtom(x Atom, vs1 []Temp, y Atom, vs2 []Temp) bool {
	xt, xok := x.(Temp)
	yt, yok := y.(Temp)

	if xok != yok {
		return false
	}

	if xok {
		ix, iy := indexOf(vs1, xt), indexOf(vs2, yt)
		if ix >= 0 || iy >= 0 {
			return ix == iy
		}

		return xt == yt
	}

	return AtomEqual(x, y)
}

func indexOf(vs []Temp, t Temp) int {
	for i, v := range vs {
		if v == t {
			return i
		}
	}

	return -1
}

// AlphaCode extends AlphaTail down a whole Code spine, growing the
// correspondence lists at every Bind.
func AlphaCode(a Code, vs1 []Temp, b Code, vs2 []Temp) bool {
	switch a := a.(type) {
	case Bind:
		b, ok := b.(Bind)
		if !ok || len(a.Vars) != len(b.Vars) {
			return false
		}

		if !AlphaTail(a.Tail, vs1, b.Tail, vs2) {
			return false
		}

		vs1 = append(append([]Temp{}, vs1...), a.Vars...)
		vs2 = append(append([]Temp{}, vs2...), b.Vars...)

		return AlphaCode(a.Next, vs1, b.Next, vs2)
	case Done:
		b, ok := b.(Done)
		return ok && AlphaTail(a.Tail, vs1, b.Tail, vs2)
	case If:
		b, ok := b.(If)
		if !ok {
			return false
		}

		return alphaAtom(a.Cond, vs1, b.Cond, vs2) &&
			AlphaTail(a.Then, vs1, b.Then, vs2) &&
			AlphaTail(a.Else, vs1, b.Else, vs2)
	case Case:
		b, ok := b.(Case)
		if !ok || len(a.Alts) != len(b.Alts) || !alphaAtom(a.Cond, vs1, b.Cond, vs2) {
			return false
		}

		for i := range a.Alts {
			if a.Alts[i].Cfun != b.Alts[i].Cfun {
				return false
			}

			if !AlphaTail(a.Alts[i].Call, vs1, b.Alts[i].Call, vs2) {
				return false
			}
		}

		if (a.Default == nil) != (b.Default == nil) {
			return false
		}

		if a.Default != nil && !AlphaTail(*a.Default, vs1, *b.Default, vs2) {
			return false
		}

		return true
	default:
		return false
	}
}
