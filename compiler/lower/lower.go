// Package lower translates a type-checked LC/MIL surface file
// (compiler/tycheck's TypedFile) into a real compiler/mil.Program
// (spec.md §1 "translate LC to MIL"). It is the direct producer of
// the mil.Block/mil.TopLevel trees compiler/pass optimizes; it builds
// no compiler/lift LocalFunc values.
//
// Grounded on the teacher's compiler/front package's
// AST-walk-and-emit shape (front/compile.go builds ir.Block bodies by
// walking an already-typed ast.Func one statement at a time); this
// package does the same walk over compiler/frontend's simpler grammar.
package lower

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/EmiliaPaz/mil-tools/compiler/frontend"
	"github.com/EmiliaPaz/mil-tools/compiler/mil"
	"github.com/EmiliaPaz/mil-tools/compiler/tycheck"
)

// scope maps a surface name (block param or let-bound variable) to
// the mil.Temp it lowers to. Lookups never cross a block boundary:
// each Block gets a fresh scope, matching spec.md §3's "linear
// scoping of Temps."
type scope map[string]mil.Temp

// Lower translates every block and top-level of tf into prog, in two
// passes: block/top signatures are pre-registered first (so forward
// references between blocks resolve), then bodies are lowered.
func Lower(ctx context.Context, prog *mil.Program, tf *tycheck.TypedFile) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower: translate", "file", tf.File.Name)
	defer func() {
		tr.Finish()
		_ = ctx
	}()

	blocks := map[string]*mil.Block{}

	for _, bd := range tf.File.Blocks {
		sig := tf.Blocks[bd.Name]

		b := &mil.Block{
			Name:        bd.Name,
			ParamTypes:  sig.ParamTypes,
			ResultTypes: sig.ResultTypes,
		}

		for range bd.Params {
			b.Params = append(b.Params, prog.FreshTemp())
		}

		blocks[bd.Name] = b
		prog.AddBlock(b)
	}

	for _, bd := range tf.File.Blocks {
		b := blocks[bd.Name]

		sc := scope{}
		for i, p := range bd.Params {
			sc[p.Name] = b.Params[i]
		}

		body, err := lowerBody(prog, bd.Lets, bd.Term, sc, blocks)
		if err != nil {
			return errors.Wrap(err, "block %s", bd.Name)
		}

		b.Body = body
	}

	for _, td := range tf.File.Tops {
		tail, err := lowerTailExpr(prog, td.Expr, scope{}, blocks)
		if err != nil {
			return errors.Wrap(err, "top %s", td.Name)
		}

		typ := tf.Tops[td.Name].Type

		top := &mil.TopLevel{
			Name: td.Name,
			Lhs:  []mil.TopLhs{{Name: td.Name, Type: typ}},
			Tail: tail,
		}

		prog.AddTopLevel(top)
		prog.Entries = append(prog.Entries, top)
	}

	tr.Printw("lowered file", "blocks", len(tf.File.Blocks), "tops", len(tf.File.Tops))

	return nil
}

// lowerBody lowers a block's let-bindings and terminal statement into
// a mil.Code spine, extending sc as each let introduces new names.
func lowerBody(prog *mil.Program, lets []*frontend.LetStmt, term frontend.Stmt, sc scope, blocks map[string]*mil.Block) (mil.Code, error) {
	if len(lets) == 0 {
		return lowerTerm(prog, term, sc, blocks)
	}

	l := lets[0]

	tail, err := lowerTailExpr(prog, l.Expr, sc, blocks)
	if err != nil {
		return nil, errors.Wrap(err, "let %v", l.Vars)
	}

	vars := make([]mil.Temp, len(l.Vars))
	next := scope{}
	for k, v := range sc {
		next[k] = v
	}

	for i, name := range l.Vars {
		t := prog.FreshTemp()
		vars[i] = t
		next[name] = t
	}

	rest, err := lowerBody(prog, lets[1:], term, next, blocks)
	if err != nil {
		return nil, err
	}

	return mil.Bindn(vars, tail, rest), nil
}

func lowerTerm(prog *mil.Program, term frontend.Stmt, sc scope, blocks map[string]*mil.Block) (mil.Code, error) {
	switch s := term.(type) {
	case *frontend.ReturnStmt:
		args, err := lowerAtoms(s.Args, sc)
		if err != nil {
			return nil, errors.Wrap(err, "return")
		}

		return mil.CodeOf(mil.Return{Args: args}), nil
	case *frontend.TailCallStmt:
		bc, err := lowerCall(s.Call, sc, blocks)
		if err != nil {
			return nil, errors.Wrap(err, "tail call")
		}

		return mil.CodeOf(bc), nil
	case *frontend.IfStmt:
		cond, err := lowerAtom(s.Cond, sc)
		if err != nil {
			return nil, errors.Wrap(err, "if condition")
		}

		condTemp, ok := cond.(mil.Temp)
		if !ok {
			return nil, errors.New("if condition must be a bound name")
		}

		thenCall, err := lowerCall(s.Then, sc, blocks)
		if err != nil {
			return nil, errors.Wrap(err, "then branch")
		}

		elseCall, err := lowerCall(s.Else, sc, blocks)
		if err != nil {
			return nil, errors.Wrap(err, "else branch")
		}

		return mil.If{Cond: condTemp, Then: thenCall, Else: elseCall}, nil
	default:
		return nil, errors.New("unsupported terminal statement %T", term)
	}
}

func lowerTailExpr(prog *mil.Program, e frontend.TailExpr, sc scope, blocks map[string]*mil.Block) (mil.Tail, error) {
	switch x := e.(type) {
	case frontend.PrimExpr:
		args, err := lowerAtoms(x.Args, sc)
		if err != nil {
			return nil, errors.Wrap(err, "%s", x.Name)
		}

		p := prog.Prims.ByName(x.Name)
		if p == nil {
			return nil, errors.New("unknown primitive %s", x.Name)
		}

		pc, err := mil.NewPrimCall(prog.Prims, p.ID, args)
		if err != nil {
			return nil, errors.Wrap(err, "%s", x.Name)
		}

		return pc, nil
	case frontend.CallExpr:
		bc, err := lowerCall(x, sc, blocks)
		if err != nil {
			return nil, err
		}

		return bc, nil
	default:
		return nil, errors.New("unsupported tail expression %T", e)
	}
}

func lowerCall(c frontend.CallExpr, sc scope, blocks map[string]*mil.Block) (mil.BlockCall, error) {
	b, ok := blocks[c.Target]
	if !ok {
		return mil.BlockCall{}, errors.New("call to undeclared block %s", c.Target)
	}

	args, err := lowerAtoms(c.Args, sc)
	if err != nil {
		return mil.BlockCall{}, errors.Wrap(err, "call %s", c.Target)
	}

	return mil.BlockCall{Block: b, Args: args}, nil
}

func lowerAtoms(es []frontend.AtomExpr, sc scope) ([]mil.Atom, error) {
	out := make([]mil.Atom, len(es))

	for i, e := range es {
		a, err := lowerAtom(e, sc)
		if err != nil {
			return nil, err
		}

		out[i] = a
	}

	return out, nil
}

func lowerAtom(e frontend.AtomExpr, sc scope) (mil.Atom, error) {
	switch x := e.(type) {
	case frontend.IdentExpr:
		t, ok := sc[x.Name]
		if !ok {
			return nil, errors.New("%s used out of scope", x.Name)
		}

		return t, nil
	case frontend.IntExpr:
		return mil.IntConst{Value: x.Value}, nil
	case frontend.BoolExpr:
		return mil.FlagConst(x.Value), nil
	default:
		return nil, errors.New("unsupported atom %T", e)
	}
}
