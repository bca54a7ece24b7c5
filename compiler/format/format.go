// Package format pretty-prints a compiler/mil.Program back to
// readable text, for cmd/milc's dump subcommand and for debugging a
// pass's before/after IR. Grounded on the teacher's deleted
// format/format.go recursive-descent-over-AST printer, adapted to
// walk MIL's Code spine instead of the teacher's statement list, and
// using the same github.com/nikandfor/hacked/hfmt.Appendf byte-
// buffer-building idiom.
package format

import (
	"tlog.app/go/errors"

	"github.com/nikandfor/hacked/hfmt"

	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// Program renders every top-level and block of prog, top-levels
// first, in the order they were added to the arena.
func Program(prog *mil.Program) ([]byte, error) {
	var b []byte

	for i, top := range prog.TopLevels {
		if i != 0 {
			b = append(b, '\n')
		}

		var err error

		b, err = topLevel(b, top)
		if err != nil {
			return nil, errors.Wrap(err, "top %s", top.Name)
		}
	}

	for _, blk := range prog.Blocks {
		b = append(b, '\n')

		var err error

		b, err = block(b, blk)
		if err != nil {
			return nil, errors.Wrap(err, "block %s", blk.Name)
		}
	}

	return b, nil
}

func topLevel(b []byte, top *mil.TopLevel) ([]byte, error) {
	b = hfmt.Appendf(b, "top %s = ", top.Name)

	b, err := tail(b, top.Tail)
	if err != nil {
		return nil, err
	}

	return append(b, '\n'), nil
}

func block(b []byte, blk *mil.Block) ([]byte, error) {
	b = hfmt.Appendf(b, "block %s(", blk.Name)

	for i, p := range blk.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = hfmt.Appendf(b, "%v: %v", p, typeName(paramType(blk, i)))
	}

	b = append(b, ") -> ("...)

	for i, r := range blk.ResultTypes {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = hfmt.Appendf(b, "%v", typeName(r))
	}

	b = append(b, ") {\n"...)

	b, err := code(b, blk.Body, 1)
	if err != nil {
		return nil, err
	}

	return append(b, "}\n"...), nil
}

func paramType(b *mil.Block, i int) mil.Type {
	if i < len(b.ParamTypes) {
		return b.ParamTypes[i]
	}

	return mil.WordType{}
}

func code(b []byte, c mil.Code, depth int) ([]byte, error) {
	switch x := c.(type) {
	case mil.Bind:
		b = indent(b, depth)
		b = hfmt.Appendf(b, "let %v = ", x.Vars)

		var err error

		b, err = tail(b, x.Tail)
		if err != nil {
			return nil, err
		}

		b = append(b, '\n')

		return code(b, x.Next, depth)
	case mil.Done:
		b = indent(b, depth)

		b, err := tail(b, x.Tail)
		if err != nil {
			return nil, err
		}

		return append(b, '\n'), nil
	case mil.If:
		b = indent(b, depth)
		b = hfmt.Appendf(b, "if %v then %s(%v) else %s(%v)\n",
			x.Cond, x.Then.Block.Name, x.Then.Args, x.Else.Block.Name, x.Else.Args)

		return b, nil
	case mil.Case:
		b = indent(b, depth)
		b = hfmt.Appendf(b, "case %v {\n", x.Cond)

		for _, alt := range x.Alts {
			b = indent(b, depth+1)
			b = hfmt.Appendf(b, "%v -> %s(%v)\n", alt.Cfun, alt.Call.Block.Name, alt.Call.Args)
		}

		if x.Default != nil {
			b = indent(b, depth+1)
			b = hfmt.Appendf(b, "_ -> %s(%v)\n", x.Default.Block.Name, x.Default.Args)
		}

		b = indent(b, depth)
		b = append(b, "}\n"...)

		return b, nil
	default:
		return nil, errors.New("unsupported code node %T", c)
	}
}

func tail(b []byte, t mil.Tail) ([]byte, error) {
	switch x := t.(type) {
	case mil.Return:
		return hfmt.Appendf(b, "return %v", x.Args), nil
	case mil.PrimCall:
		return hfmt.Appendf(b, "%s(%v)", x.Prim.Name, x.Args), nil
	case mil.BlockCall:
		return hfmt.Appendf(b, "%s(%v)", x.Block.Name, x.Args), nil
	case mil.DataAlloc:
		return hfmt.Appendf(b, "alloc %v(%v)", x.Cfun, x.Args), nil
	case mil.ClosAlloc:
		return hfmt.Appendf(b, "closure %s(%v)", x.Clos.Name, x.Args), nil
	case mil.Enter:
		return hfmt.Appendf(b, "enter %v(%v)", x.Func, x.Args), nil
	case mil.Sel:
		return hfmt.Appendf(b, "sel %v[%d](%v)", x.Cfun, x.Index, x.Atom), nil
	default:
		return nil, errors.New("unsupported tail %T", t)
	}
}

func typeName(t mil.Type) string {
	switch t.(type) {
	case mil.WordType:
		return "word"
	case mil.FlagType:
		return "flag"
	case mil.PtrType:
		return "ptr"
	case mil.DataType:
		return "data"
	default:
		return "?"
	}
}

func indent(b []byte, depth int) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	if depth > len(tabs) {
		depth = len(tabs)
	}

	return append(b, tabs[:depth]...)
}
