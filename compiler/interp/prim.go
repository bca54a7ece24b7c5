package interp

import (
	"tlog.app/go/errors"

	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// evalPrim implements spec.md §6's primitive vocabulary directly
// against runtime Values: arithmetic, bitwise, relations, the two
// conversions, halt/loop, printWord, and byte-addressed load/store.
func (st *State) evalPrim(pc mil.PrimCall, env map[mil.Temp]Value) ([]Value, error) {
	args, err := st.evalAtoms(pc.Args, env)
	if err != nil {
		return nil, errors.Wrap(err, "%s", pc.Prim.Name)
	}

	switch pc.Prim.ID {
	case mil.PrimAdd:
		return words1(word(args[0]) + word(args[1])), nil
	case mil.PrimSub:
		return words1(word(args[0]) - word(args[1])), nil
	case mil.PrimMul:
		return words1(word(args[0]) * word(args[1])), nil
	case mil.PrimDiv:
		if word(args[1]) == 0 {
			return nil, &Trap{Reason: "division by zero"}
		}

		return words1(word(args[0]) / word(args[1])), nil
	case mil.PrimMod:
		if word(args[1]) == 0 {
			return nil, &Trap{Reason: "division by zero"}
		}

		return words1(word(args[0]) % word(args[1])), nil
	case mil.PrimNeg:
		return words1(-word(args[0])), nil

	case mil.PrimAnd:
		return words1(word(args[0]) & word(args[1])), nil
	case mil.PrimOr:
		return words1(word(args[0]) | word(args[1])), nil
	case mil.PrimXor:
		return words1(word(args[0]) ^ word(args[1])), nil
	case mil.PrimNot:
		return words1(^word(args[0])), nil
	case mil.PrimShl:
		return words1(word(args[0]) << (word(args[1]) % mil.WordSize)), nil
	case mil.PrimLshr:
		return words1(word(args[0]) >> (word(args[1]) % mil.WordSize)), nil
	case mil.PrimAshr:
		return words1(uint64(int64(word(args[0])) >> (word(args[1]) % mil.WordSize))), nil

	case mil.PrimEq:
		return flags1(word(args[0]) == word(args[1])), nil
	case mil.PrimNeq:
		return flags1(word(args[0]) != word(args[1])), nil
	case mil.PrimLt:
		return flags1(word(args[0]) < word(args[1])), nil
	case mil.PrimLte:
		return flags1(word(args[0]) <= word(args[1])), nil
	case mil.PrimGt:
		return flags1(word(args[0]) > word(args[1])), nil
	case mil.PrimGte:
		return flags1(word(args[0]) >= word(args[1])), nil

	case mil.PrimFlagToWord:
		f, ok := args[0].(Flag)
		if !ok {
			return nil, errors.New("flagToWord: not a flag: %T", args[0])
		}

		if f {
			return words1(1), nil
		}

		return words1(0), nil
	case mil.PrimBnot:
		f, ok := args[0].(Flag)
		if !ok {
			return nil, errors.New("bnot: not a flag: %T", args[0])
		}

		return flags1(!bool(f)), nil

	case mil.PrimHalt:
		return nil, &Trap{Reason: "halt executed"}
	case mil.PrimLoop:
		return nil, &Trap{Reason: "loop executed"}

	case mil.PrimPrintWord:
		st.Trace = append(st.Trace, word(args[0]))
		return nil, nil

	case mil.PrimLoad:
		return st.evalLoad(args)
	case mil.PrimStore:
		return nil, st.evalStore(args)

	default:
		return nil, errors.New("unsupported primitive %s", pc.Prim.Name)
	}
}

// word coerces a Value known to hold a machine word.
func word(v Value) uint64 {
	w, ok := v.(Word)
	if !ok {
		return 0
	}

	return uint64(w)
}

func words1(v uint64) []Value { return []Value{Word(v)} }
func flags1(b bool) []Value   { return []Value{Flag(b)} }

// address computes the byte address (size, base, offset, index, mult)
// resolves to, matching the argument vector shape spec.md §4.3's
// addressing-mode synthesis targets.
func address(args []Value) uint64 {
	base := word(args[1])
	offset := word(args[2])
	index := word(args[3])
	mult := word(args[4])

	return base + offset + index*mult
}

func (st *State) evalLoad(args []Value) ([]Value, error) {
	size := word(args[0])
	addr := address(args)

	var v uint64
	for i := uint64(0); i < size; i++ {
		v |= uint64(st.mem[addr+i]) << (8 * i)
	}

	return words1(v), nil
}

func (st *State) evalStore(args []Value) error {
	size := word(args[0])
	addr := address(args)
	value := word(args[5])

	for i := uint64(0); i < size; i++ {
		st.mem[addr+i] = byte(value >> (8 * i))
	}

	return nil
}
