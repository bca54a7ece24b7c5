package emit

import (
	"tlog.app/go/errors"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// emitCode walks a Code spine, threading the current insertion block
// forward and stopping as soon as a terminator has been emitted
// (either the natural end of the spine, or an early DoesNotReturn
// primitive).
func (b *builder) emitCode(fn *ir.Func, cur *ir.Block, c mil.Code, env map[mil.Temp]value.Value, rts []mil.Type) error {
	switch x := c.(type) {
	case mil.Bind:
		vals, next, err := b.emitTail(fn, cur, x.Tail, env, rts, false)
		if err != nil {
			return errors.Wrap(err, "let %v", x.Vars)
		}

		if next == nil {
			return nil // spine is unreachable past a DoesNotReturn tail
		}

		if len(vals) != len(x.Vars) {
			return errors.New("let %v: tail produced %d values", x.Vars, len(vals))
		}

		for i, v := range x.Vars {
			env[v] = vals[i]
		}

		return b.emitCode(fn, next, x.Next, env, rts)
	case mil.Done:
		_, _, err := b.emitTail(fn, cur, x.Tail, env, rts, true)
		return err
	case mil.If:
		cond, ok := env[x.Cond]
		if !ok {
			return errors.New("if: condition temp %v not bound", x.Cond)
		}

		thenBB := fn.NewBlock(b.freshLabel("if.then"))
		elseBB := fn.NewBlock(b.freshLabel("if.else"))
		cur.NewCondBr(cond, thenBB, elseBB)

		if err := b.emitTailCall(fn, thenBB, x.Then, env, rts); err != nil {
			return errors.Wrap(err, "then")
		}

		if err := b.emitTailCall(fn, elseBB, x.Else, env, rts); err != nil {
			return errors.Wrap(err, "else")
		}

		return nil
	case mil.Case:
		return b.emitCase(fn, cur, x, env, rts)
	default:
		return errors.New("unsupported code node at emit time: %T", c)
	}
}

// emitTailCall emits a call+return of a tail-position BlockCall into
// a dedicated block, the shape every If/Case arm collapses to.
func (b *builder) emitTailCall(fn *ir.Func, blk *ir.Block, bc mil.BlockCall, env map[mil.Temp]value.Value, rts []mil.Type) error {
	_, _, err := b.emitTail(fn, blk, bc, env, rts, true)
	return err
}

// emitCase lowers a surviving Case (one compiler/rep's bitdata
// treatment did not rewrite away, spec.md §6's "every block's tail
// position is Return, If, Case, or a tail BlockCall") to a chain of
// equality tests against each alternative's Cfun.TagIndex. This
// assumes the scrutinee is already the extracted tag word, which is
// the only shape reaching this point for the general (non-bitdata)
// word-vector representation compiler/rep assigns (spec.md §4.6).
func (b *builder) emitCase(fn *ir.Func, cur *ir.Block, c mil.Case, env map[mil.Temp]value.Value, rts []mil.Type) error {
	cond, ok := env[c.Cond]
	if !ok {
		return errors.New("case: scrutinee temp %v not bound", c.Cond)
	}

	for i, alt := range c.Alts {
		matchBB := fn.NewBlock(b.freshLabel("case.match"))
		nextBB := fn.NewBlock(b.freshLabel("case.next"))

		tag := constant.NewInt(types.I64, int64(alt.Cfun.TagIndex))
		eq := cur.NewICmp(enum.IPredEQ, cond, tag)
		cur.NewCondBr(eq, matchBB, nextBB)

		if err := b.emitTailCall(fn, matchBB, alt.Call, env, rts); err != nil {
			return errors.Wrap(err, "case alt %d", i)
		}

		cur = nextBB
	}

	if c.Default != nil {
		return b.emitTailCall(fn, cur, *c.Default, env, rts)
	}

	cur.NewCall(b.abortFn)
	cur.NewUnreachable()

	return nil
}

// emitTail evaluates one Tail. When terminal is true it must leave
// cur (or the block it returns as the new "current") with a
// terminator and reports the returned block as nil, signalling the
// caller that the Code spine ends here.
func (b *builder) emitTail(fn *ir.Func, cur *ir.Block, t mil.Tail, env map[mil.Temp]value.Value, rts []mil.Type, terminal bool) ([]value.Value, *ir.Block, error) {
	switch x := t.(type) {
	case mil.Return:
		vals, err := evalAtoms(b, cur, x.Args, env)
		if err != nil {
			return nil, nil, err
		}

		if !terminal {
			return vals, cur, nil
		}

		rt, err := resultType(rts)
		if err != nil {
			return nil, nil, err
		}

		cur.NewRet(packReturn(cur, vals, rt))

		return nil, nil, nil
	case mil.PrimCall:
		if x.Prim.Purity == mil.DoesNotReturn {
			cur.NewCall(b.abortFn)
			cur.NewUnreachable()

			return nil, nil, nil
		}

		vals, err := b.emitPrim(cur, x, env)
		if err != nil {
			return nil, nil, err
		}

		if !terminal {
			return vals, cur, nil
		}

		rt, err := resultType(rts)
		if err != nil {
			return nil, nil, err
		}

		cur.NewRet(packReturn(cur, vals, rt))

		return nil, nil, nil
	case mil.BlockCall:
		target, ok := b.blockFns[x.Block]
		if !ok {
			return nil, nil, errors.New("call to unemitted block %s", x.Block.Name)
		}

		args, err := evalAtoms(b, cur, x.Args, env)
		if err != nil {
			return nil, nil, errors.Wrap(err, "call %s", x.Block.Name)
		}

		call := cur.NewCall(target, args...)

		if terminal {
			if len(rts) == 0 {
				cur.NewRet(nil)
			} else {
				cur.NewRet(call)
			}

			return nil, nil, nil
		}

		n := x.Block.Outity()
		if n <= 1 {
			if n == 0 {
				return nil, cur, nil
			}

			return []value.Value{call}, cur, nil
		}

		vals := make([]value.Value, n)
		for i := range vals {
			vals[i] = cur.NewExtractValue(call, uint64(i))
		}

		return vals, cur, nil
	default:
		return nil, nil, errors.New("unsupported tail at emit time: %T (representation lowering must run first)", t)
	}
}
