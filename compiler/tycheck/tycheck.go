// Package tycheck is the small checker that sits between
// compiler/frontend and compiler/lower: it resolves every declared
// surface type name to a mil.Type, checks that every reference is in
// scope, and checks call/primitive arity, so compiler/lower can build
// MIL without re-deriving any of this. It does no unification and does
// not check the types of atoms against parameter or result types.
package tycheck

import (
	"context"

	"tlog.app/go/errors"

	"github.com/EmiliaPaz/mil-tools/compiler/frontend"
	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// BlockSig is a block's checked parameter/result types.
type BlockSig struct {
	ParamTypes  []mil.Type
	ResultTypes []mil.Type
}

// TopSig is a top-level's checked type.
type TopSig struct {
	Type mil.Type
}

// TypedFile is frontend.File plus every declaration's resolved
// mil.Type, the input compiler/lower consumes.
type TypedFile struct {
	File   *frontend.File
	Blocks map[string]*BlockSig
	Tops   map[string]*TopSig
}

// resolveType maps a surface type name to a mil.Type. Only word and
// flag are supported by the surface syntax (spec_full.md §7's
// deliberately narrow frontend); anything else is a checked error,
// not a panic.
func resolveType(name string) (mil.Type, error) {
	switch name {
	case "word":
		return mil.WordType{}, nil
	case "flag":
		return mil.FlagType{}, nil
	default:
		return nil, errors.New("unknown type %q", name)
	}
}

// Check type-checks f: every block and top-level's declared types are
// resolved, every atom reference is checked to be in scope, and every
// primitive/block call's argument count is checked against its
// declared arity.
func Check(ctx context.Context, f *frontend.File) (*TypedFile, error) {
	tf := &TypedFile{
		File:   f,
		Blocks: map[string]*BlockSig{},
		Tops:   map[string]*TopSig{},
	}

	prims := mil.NewPrimSet()

	for _, b := range f.Blocks {
		sig, err := blockSig(b)
		if err != nil {
			return nil, errors.Wrap(err, "block %s", b.Name)
		}

		if _, dup := tf.Blocks[b.Name]; dup {
			return nil, errors.New("block %s: redeclared", b.Name)
		}

		tf.Blocks[b.Name] = sig
	}

	for _, t := range f.Tops {
		typ, err := resolveType(t.Type)
		if err != nil {
			return nil, errors.Wrap(err, "top %s", t.Name)
		}

		if _, dup := tf.Tops[t.Name]; dup {
			return nil, errors.New("top %s: redeclared", t.Name)
		}

		tf.Tops[t.Name] = &TopSig{Type: typ}
	}

	for _, t := range f.Tops {
		if err := checkTailExpr(t.Expr, map[string]bool{}, tf, prims); err != nil {
			return nil, errors.Wrap(err, "top %s", t.Name)
		}
	}

	for _, b := range f.Blocks {
		if err := checkBlock(b, tf, prims); err != nil {
			return nil, errors.Wrap(err, "block %s", b.Name)
		}
	}

	return tf, nil
}

func blockSig(b *frontend.BlockDecl) (*BlockSig, error) {
	sig := &BlockSig{}

	for _, p := range b.Params {
		typ, err := resolveType(p.Type)
		if err != nil {
			return nil, errors.Wrap(err, "param %s", p.Name)
		}

		sig.ParamTypes = append(sig.ParamTypes, typ)
	}

	for _, r := range b.ResultTypes {
		typ, err := resolveType(r)
		if err != nil {
			return nil, err
		}

		sig.ResultTypes = append(sig.ResultTypes, typ)
	}

	return sig, nil
}

func checkBlock(b *frontend.BlockDecl, tf *TypedFile, prims *mil.PrimSet) error {
	scope := map[string]bool{}
	for _, p := range b.Params {
		scope[p.Name] = true
	}

	for _, l := range b.Lets {
		if err := checkTailExpr(l.Expr, scope, tf, prims); err != nil {
			return errors.Wrap(err, "let %v", l.Vars)
		}

		n, err := outity(l.Expr, tf, prims)
		if err != nil {
			return errors.Wrap(err, "let %v", l.Vars)
		}

		if n != len(l.Vars) {
			return errors.New("let %v: expression produces %d value(s)", l.Vars, n)
		}

		for _, v := range l.Vars {
			scope[v] = true
		}
	}

	switch term := b.Term.(type) {
	case *frontend.ReturnStmt:
		for _, a := range term.Args {
			if err := checkAtom(a, scope); err != nil {
				return errors.Wrap(err, "return")
			}
		}

		if len(term.Args) != len(b.ResultTypes) {
			return errors.New("return: %d args, block declares %d result types", len(term.Args), len(b.ResultTypes))
		}
	case *frontend.TailCallStmt:
		if err := checkCall(term.Call, scope, tf); err != nil {
			return errors.Wrap(err, "tail call")
		}
	case *frontend.IfStmt:
		if err := checkAtom(term.Cond, scope); err != nil {
			return errors.Wrap(err, "if condition")
		}

		if _, ok := term.Cond.(frontend.IdentExpr); !ok {
			return errors.New("if condition must be a bound name, not a literal")
		}

		if err := checkCall(term.Then, scope, tf); err != nil {
			return errors.Wrap(err, "then branch")
		}

		if err := checkCall(term.Else, scope, tf); err != nil {
			return errors.Wrap(err, "else branch")
		}
	default:
		return errors.New("block has no terminal statement")
	}

	return nil
}

func checkCall(c frontend.CallExpr, scope map[string]bool, tf *TypedFile) error {
	sig, ok := tf.Blocks[c.Target]
	if !ok {
		return errors.New("call to undeclared block %s", c.Target)
	}

	if len(c.Args) != len(sig.ParamTypes) {
		return errors.New("call %s: %d args, block declares %d params", c.Target, len(c.Args), len(sig.ParamTypes))
	}

	for _, a := range c.Args {
		if err := checkAtom(a, scope); err != nil {
			return errors.Wrap(err, "call %s", c.Target)
		}
	}

	return nil
}

func checkTailExpr(e frontend.TailExpr, scope map[string]bool, tf *TypedFile, prims *mil.PrimSet) error {
	switch x := e.(type) {
	case frontend.PrimExpr:
		p := prims.ByName(x.Name)
		if p == nil {
			return errors.New("unknown primitive %s", x.Name)
		}

		if len(x.Args) != p.Arity {
			return errors.New("%s: %d args, arity is %d", x.Name, len(x.Args), p.Arity)
		}

		for _, a := range x.Args {
			if err := checkAtom(a, scope); err != nil {
				return errors.Wrap(err, "%s", x.Name)
			}
		}

		return nil
	case frontend.CallExpr:
		return checkCall(x, scope, tf)
	default:
		return errors.New("unsupported tail expression %T", e)
	}
}

func checkAtom(a frontend.AtomExpr, scope map[string]bool) error {
	id, ok := a.(frontend.IdentExpr)
	if !ok {
		return nil
	}

	if !scope[id.Name] {
		return errors.New("%s used out of scope", id.Name)
	}

	return nil
}

// outity is the number of values e produces, needed to check a let's
// variable count against its right-hand side.
func outity(e frontend.TailExpr, tf *TypedFile, prims *mil.PrimSet) (int, error) {
	switch x := e.(type) {
	case frontend.PrimExpr:
		p := prims.ByName(x.Name)
		if p == nil {
			return 0, errors.New("unknown primitive %s", x.Name)
		}

		return p.Outity, nil
	case frontend.CallExpr:
		sig, ok := tf.Blocks[x.Target]
		if !ok {
			return 0, errors.New("call to undeclared block %s", x.Target)
		}

		return len(sig.ResultTypes), nil
	default:
		return 0, errors.New("unsupported tail expression %T", e)
	}
}
