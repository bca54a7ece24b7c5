package emit

import (
	"tlog.app/go/errors"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// emitPrim lowers one primitive call to the small abstract
// instruction vocabulary spec.md §6 names: arithmetic, bitwise,
// relations, the two conversions, printWord, and byte-addressed
// load/store. div/mod are UDiv/URem per the signed-vs-unsigned Open
// Question decision recorded in DESIGN.md.
func (b *builder) emitPrim(cur *ir.Block, pc mil.PrimCall, env map[mil.Temp]value.Value) ([]value.Value, error) {
	args, err := evalAtoms(b, cur, pc.Args, env)
	if err != nil {
		return nil, errors.Wrap(err, "%s", pc.Prim.Name)
	}

	switch pc.Prim.ID {
	case mil.PrimAdd:
		return one(cur.NewAdd(args[0], args[1])), nil
	case mil.PrimSub:
		return one(cur.NewSub(args[0], args[1])), nil
	case mil.PrimMul:
		return one(cur.NewMul(args[0], args[1])), nil
	case mil.PrimDiv:
		return one(cur.NewUDiv(args[0], args[1])), nil
	case mil.PrimMod:
		return one(cur.NewURem(args[0], args[1])), nil
	case mil.PrimNeg:
		return one(cur.NewSub(constant.NewInt(types.I64, 0), args[0])), nil

	case mil.PrimAnd:
		return one(cur.NewAnd(args[0], args[1])), nil
	case mil.PrimOr:
		return one(cur.NewOr(args[0], args[1])), nil
	case mil.PrimXor:
		return one(cur.NewXor(args[0], args[1])), nil
	case mil.PrimNot:
		return one(cur.NewXor(args[0], constant.NewInt(types.I64, -1))), nil
	case mil.PrimShl:
		return one(cur.NewShl(args[0], args[1])), nil
	case mil.PrimLshr:
		return one(cur.NewLShr(args[0], args[1])), nil
	case mil.PrimAshr:
		return one(cur.NewAShr(args[0], args[1])), nil

	case mil.PrimEq, mil.PrimNeq, mil.PrimLt, mil.PrimLte, mil.PrimGt, mil.PrimGte:
		pred, _ := invPred(pc.Prim.ID)
		return one(cur.NewICmp(pred, args[0], args[1])), nil

	case mil.PrimFlagToWord:
		return one(cur.NewZExt(args[0], types.I64)), nil
	case mil.PrimBnot:
		return one(cur.NewXor(args[0], constant.NewInt(types.I1, 1))), nil

	case mil.PrimPrintWord:
		cur.NewCall(b.printFn, args[0])
		return nil, nil

	case mil.PrimLoad:
		return b.emitLoad(cur, pc.Args, args)
	case mil.PrimStore:
		return nil, b.emitStore(cur, pc.Args, args)

	default:
		return nil, errors.New("unsupported primitive at emit time: %s", pc.Prim.Name)
	}
}

func one(v value.Value) []value.Value { return []value.Value{v} }

// litSize extracts a compile-time-constant byte size for a load/store
// operand: this emitter maps a MIL load/store directly to one LLVM
// load/store of a concrete integer width, which requires the size
// argument be a literal (spec.md's addressing operands are (size,
// base, offset, index, mult, [value]); a variable size can't select
// a static LLVM type here).
func litSize(a mil.Atom) (int, error) {
	c, ok := a.(mil.IntConst)
	if !ok {
		return 0, errors.New("load/store size must be a literal, got %T", a)
	}

	return int(c.Value), nil
}

// address folds the base/offset/index/mult operands into one i64
// address value, in the order spec.md §4.3's addressing-mode
// synthesis targets.
func address(cur *ir.Block, base, offset, index, mult value.Value) value.Value {
	scaled := cur.NewMul(index, mult)
	a := cur.NewAdd(base, offset)

	return cur.NewAdd(a, scaled)
}

func (b *builder) emitLoad(cur *ir.Block, litArgs []mil.Atom, args []value.Value) ([]value.Value, error) {
	size, err := litSize(litArgs[0])
	if err != nil {
		return nil, errors.Wrap(err, "load")
	}

	addr := address(cur, args[1], args[2], args[3], args[4])

	elemType := types.NewInt(uint64(size) * 8)
	ptr := cur.NewIntToPtr(addr, types.NewPointer(elemType))
	loaded := cur.NewLoad(elemType, ptr)

	if size == 8 {
		return one(loaded), nil
	}

	return one(cur.NewZExt(loaded, types.I64)), nil
}

func (b *builder) emitStore(cur *ir.Block, litArgs []mil.Atom, args []value.Value) error {
	size, err := litSize(litArgs[0])
	if err != nil {
		return errors.Wrap(err, "store")
	}

	addr := address(cur, args[1], args[2], args[3], args[4])

	elemType := types.NewInt(uint64(size) * 8)
	ptr := cur.NewIntToPtr(addr, types.NewPointer(elemType))

	val := args[5]
	if size != 8 {
		val = cur.NewTrunc(val, elemType)
	}

	cur.NewStore(val, ptr)

	return nil
}
