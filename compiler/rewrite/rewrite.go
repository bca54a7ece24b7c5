package rewrite

import (
	"github.com/EmiliaPaz/mil-tools/compiler/fact"
	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// Rewrite implements the contract of spec §4.3: it returns (c, true)
// when tail should be replaced by the (possibly multi-binding) code
// fragment c, and (nil, false) when no rewrite applies. Only
// PrimCall tails are ever rewritten; every other tail kind falls
// through to "no rewrite" here (inlining and dead-binding elimination
// handle those in compiler/pass). prog supplies the canonical Prim
// interner and a source of fresh temps for rewrites that introduce
// intermediate bindings (e.g. redistribution).
func Rewrite(prog *mil.Program, tail mil.Tail, facts fact.Facts) (mil.Code, bool) {
	pc, ok := tail.(mil.PrimCall)
	if !ok {
		return none()
	}

	switch pc.Prim.ID {
	case mil.PrimLoad, mil.PrimStore:
		return rewriteAddressing(prog, pc, facts)
	}

	switch pc.Prim.Arity {
	case 1:
		return rewriteUnary(prog, pc, facts)
	case 2:
		return rewriteBinary(prog, pc, facts)
	default:
		return none()
	}
}

func rewriteBinary(prog *mil.Program, pc mil.PrimCall, facts fact.Facts) (mil.Code, bool) {
	a, b := pc.Args[0], pc.Args[1]

	litA, aIsLit := a.(mil.IntConst)
	litB, bIsLit := b.(mil.IntConst)

	switch {
	case aIsLit && bIsLit:
		return rewriteTwoLiterals(pc, litA.Value, litB.Value)
	case aIsLit || bIsLit:
		return rewriteOneLiteral(prog, pc, facts, aIsLit, litA, litB)
	default:
		return rewriteTwoVariables(prog, pc, facts)
	}
}
