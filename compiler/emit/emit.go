// Package emit is the LLVM textual emitter spec.md §6 names as the
// output surface: it consumes a post-representation-lowering
// compiler/mil.Program (spec.md's contract: no remaining atom has a
// non-word representation, no Sel/DataAlloc/ClosAlloc survives except
// as calls to generated support blocks, and every block's tail
// position is Return, If, Case or a tail BlockCall) and produces an
// github.com/llir/llvm ir.Module.
//
// Grounded on _examples/epos-lang-epos/codegen/codegen.go's walk of a
// small statement AST into ir.NewModule()/module.NewFunc()/basic
// blocks; this package does the same walk over compiler/mil's Code
// spine instead of that example's parser.Stmt tree, one mil.Block
// becoming one LLVM function (the natural mapping, since a Block is
// already "the unit of control flow", spec.md's glossary).
package emit

import (
	"context"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// builder is the emission state for one module: the destination
// ir.Module, the per-block/per-top-level function table (so a
// forward-referencing BlockCall or TopRef resolves regardless of
// declaration order), and the two runtime support functions every
// emitted program links against.
type builder struct {
	prog *mil.Program
	m    *ir.Module

	blockFns map[*mil.Block]*ir.Func
	topFns   map[*mil.TopLevel]*ir.Func

	printFn *ir.Func
	abortFn *ir.Func

	labelSeq int
}

// freshLabel mints a unique basic-block label, since If/Case lowering
// synthesizes new blocks whose source-level name (a mil.Block has no
// notion of nested control flow) doesn't exist.
func (b *builder) freshLabel(prefix string) string {
	b.labelSeq++
	return prefix + "." + strconv.Itoa(b.labelSeq)
}

// EmitModule translates prog into an LLVM module: every mil.Block
// becomes an LLVM function of the same name, every entry-point
// mil.TopLevel becomes a zero-argument function named "top.<name>".
func EmitModule(ctx context.Context, prog *mil.Program) (*ir.Module, error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "emit: module", "path", prog.Path)
	defer tr.Finish()

	_ = ctx

	b := &builder{
		prog:     prog,
		m:        ir.NewModule(),
		blockFns: map[*mil.Block]*ir.Func{},
		topFns:   map[*mil.TopLevel]*ir.Func{},
	}

	b.printFn = b.m.NewFunc("llmil.print", types.Void, ir.NewParam("w", types.I64))
	b.abortFn = b.m.NewFunc("llmil.abort", types.Void)

	for _, blk := range prog.Blocks {
		fn, err := b.declareBlockFunc(blk)
		if err != nil {
			return nil, errors.Wrap(err, "block %s", blk.Name)
		}

		b.blockFns[blk] = fn
	}

	for _, top := range prog.TopLevels {
		rt, err := resultType([]mil.Type{top.Lhs[0].Type})
		if err != nil {
			return nil, errors.Wrap(err, "top %s", top.Name)
		}

		if len(top.Lhs) > 1 {
			types := make([]mil.Type, len(top.Lhs))
			for i, l := range top.Lhs {
				types[i] = l.Type
			}

			rt, err = resultType(types)
			if err != nil {
				return nil, errors.Wrap(err, "top %s", top.Name)
			}
		}

		b.topFns[top] = b.m.NewFunc("top."+top.Name, rt)
	}

	for _, blk := range prog.Blocks {
		if err := b.emitBlockBody(blk); err != nil {
			return nil, errors.Wrap(err, "block %s", blk.Name)
		}
	}

	for _, top := range prog.TopLevels {
		if err := b.emitTopBody(top); err != nil {
			return nil, errors.Wrap(err, "top %s", top.Name)
		}
	}

	tr.Printw("emitted module", "blocks", len(prog.Blocks), "tops", len(prog.TopLevels))

	return b.m, nil
}

func (b *builder) declareBlockFunc(blk *mil.Block) (*ir.Func, error) {
	params := make([]*ir.Param, len(blk.Params))

	for i, t := range blk.Params {
		typ, err := llvmType(paramType(blk, i))
		if err != nil {
			return nil, err
		}

		params[i] = ir.NewParam(t.String(), typ)
	}

	rt, err := resultType(blk.ResultTypes)
	if err != nil {
		return nil, err
	}

	return b.m.NewFunc(blk.Name, rt, params...), nil
}

func paramType(b *mil.Block, i int) mil.Type {
	if i < len(b.ParamTypes) {
		return b.ParamTypes[i]
	}

	return mil.WordType{}
}

func (b *builder) emitBlockBody(blk *mil.Block) error {
	fn := b.blockFns[blk]

	entry := fn.NewBlock("entry")

	env := map[mil.Temp]value.Value{}
	for i, p := range blk.Params {
		env[p] = fn.Params[i]
	}

	return b.emitCode(fn, entry, blk.Body, env, blk.ResultTypes)
}

// emitTopBody emits a top-level as a zero-argument function whose
// single Tail is evaluated directly in its entry block (a TopLevel
// has no Code spine of its own, per spec.md §3's data model).
func (b *builder) emitTopBody(top *mil.TopLevel) error {
	fn := b.topFns[top]
	entry := fn.NewBlock("entry")

	rts := make([]mil.Type, len(top.Lhs))
	for i, l := range top.Lhs {
		rts[i] = l.Type
	}

	_, _, err := b.emitTail(fn, entry, top.Tail, map[mil.Temp]value.Value{}, rts, true)

	return err
}

func llvmType(t mil.Type) (types.Type, error) {
	switch t.(type) {
	case mil.WordType:
		return types.I64, nil
	case mil.FlagType:
		return types.I1, nil
	case mil.PtrType:
		return types.I64, nil
	default:
		return nil, errors.New("unsupported type at emit time: %T (representation lowering must run first)", t)
	}
}

// resultType is the LLVM return type for a block/top-level of the
// given result types: void for none, the plain type for one, an
// unnamed struct for more than one (packed left to right in
// declaration order).
func resultType(rts []mil.Type) (types.Type, error) {
	switch len(rts) {
	case 0:
		return types.Void, nil
	case 1:
		return llvmType(rts[0])
	default:
		fields := make([]types.Type, len(rts))

		for i, t := range rts {
			typ, err := llvmType(t)
			if err != nil {
				return nil, err
			}

			fields[i] = typ
		}

		return types.NewStruct(fields...), nil
	}
}

// packReturn builds the single LLVM value a multi-result tuple
// collapses to for a Ret instruction: nil for zero results, the bare
// value for one, an insertvalue chain into an undef struct for more.
// Operands are runtime values in general (a call result, say), so the
// chain is built with instructions on cur, not constant folding.
func packReturn(cur *ir.Block, vals []value.Value, rt types.Type) value.Value {
	switch len(vals) {
	case 0:
		return nil
	case 1:
		return vals[0]
	default:
		acc := value.Value(constant.NewUndef(rt))

		for i, v := range vals {
			acc = cur.NewInsertValue(acc, v, uint64(i))
		}

		return acc
	}
}

func evalAtom(b *builder, cur *ir.Block, a mil.Atom, env map[mil.Temp]value.Value) (value.Value, error) {
	switch a := a.(type) {
	case mil.Temp:
		v, ok := env[a]
		if !ok {
			return nil, errors.New("temp %v not bound at emit time", a)
		}

		return v, nil
	case mil.IntConst:
		return constant.NewInt(types.I64, int64(a.Value)), nil
	case mil.FlagConst:
		if a {
			return constant.NewInt(types.I1, 1), nil
		}

		return constant.NewInt(types.I1, 0), nil
	case mil.TopRef:
		fn, ok := b.topFns[a.Top]
		if !ok {
			return nil, errors.New("top %s not emitted", a.Top.Name)
		}

		call := cur.NewCall(fn)

		if len(a.Top.Lhs) <= 1 {
			return call, nil
		}

		return cur.NewExtractValue(call, uint64(a.Index)), nil
	default:
		return nil, errors.New("unsupported atom at emit time: %T", a)
	}
}

func evalAtoms(b *builder, cur *ir.Block, as []mil.Atom, env map[mil.Temp]value.Value) ([]value.Value, error) {
	out := make([]value.Value, len(as))

	for i, a := range as {
		v, err := evalAtom(b, cur, a, env)
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

// invPred maps a relation PrimID to the (unsigned) LLVM integer
// predicate it emits, per the div-signedness Open Question decision
// in DESIGN.md ("div/mod unsigned") applied consistently to every
// word comparison.
func invPred(id mil.PrimID) (enum.IPred, bool) {
	switch id {
	case mil.PrimEq:
		return enum.IPredEQ, true
	case mil.PrimNeq:
		return enum.IPredNE, true
	case mil.PrimLt:
		return enum.IPredULT, true
	case mil.PrimLte:
		return enum.IPredULE, true
	case mil.PrimGt:
		return enum.IPredUGT, true
	case mil.PrimGte:
		return enum.IPredUGE, true
	default:
		return 0, false
	}
}
