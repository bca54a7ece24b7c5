// Package rep implements spec §4.6's representation transform: it
// assigns every user data type a RepType (a vector of machine-word
// slots) and lowers DataAlloc/Sel/Case tails that reference it into
// plain PrimCall/BlockCall sequences a downstream emitter can turn
// into real loads, shifts, masks and branches.
//
// The block-construction idiom (mint fresh temps off the program's
// counter, build a Bind spine bottom-up, add the finished block to
// the arena) follows the teacher's own generated-block style in
// compiler/back6.go's merge-point synthesis; tracing follows the same
// file's tlog.SpawnFromContextAndWrap/tr.Printw pattern.
package rep

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// AssignWordVector computes the general (non-bitdata) representation
// for dn: one tag word plus one payload word per argument slot of its
// widest constructor, since every constructor of a DataName shares a
// single RepType (spec §4.6 "each high-level type has a
// representation vector").
func AssignWordVector(dn *mil.DataName) *mil.RepType {
	maxWords := 0

	for _, cf := range dn.Cfuns {
		w := len(cf.ArgTypes)
		if w > maxWords {
			maxWords = w
		}
	}

	slots := make([]mil.Type, 1+maxWords)
	for i := range slots {
		slots[i] = mil.WordType{}
	}

	rt := &mil.RepType{Slots: slots}
	dn.Rep = rt

	return rt
}

// Env is the program-wide record of representation decisions: which
// DataNames were assigned a packed single-word bitdata layout (and
// what that layout is per constructor), versus a plain word-vector
// RepType. Threaded explicitly through Transform's callers rather
// than kept in a package-level global, per spec §5's "no mutable
// globals" resource rule.
type Env struct {
	Layouts map[*mil.DataName]map[*mil.Cfun]Layout
}

// Transform runs the representation pass over prog: every DataName in
// env.Layouts gets its bitdata treatment (packed single-word
// constructor/selector/mask-test lowering); every other DataName gets
// the general word-vector RepType. All DataAlloc, Sel and Case tails
// referencing a bitdata type anywhere in the program's blocks,
// top-levels and closures are rewritten in place.
func Transform(ctx context.Context, prog *mil.Program, env *Env) error {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "rep: transform", "datanames", len(prog.DataNames))
	defer tr.Finish()

	_ = ctx

	for _, dn := range prog.DataNames {
		if _, ok := env.Layouts[dn]; ok {
			continue
		}

		rt := AssignWordVector(dn)
		tr.Printw("assigned word-vector rep", "type", dn.Name, "slots", len(rt.Slots))
	}

	for dn, layouts := range env.Layouts {
		if err := verifyDistinctTags(dn, layouts); err != nil {
			return errors.Wrap(err, "bitdata type %s", dn.Name)
		}

		dn.Rep = &mil.RepType{Slots: []mil.Type{mil.WordType{}}}
		tr.Printw("assigned bitdata rep", "type", dn.Name, "cfuns", len(layouts))
	}

	lowerer := &lowering{prog: prog, env: env, tr: tr}

	for _, b := range prog.Blocks {
		b.Body = lowerer.code(b.Body)
	}

	for _, top := range prog.TopLevels {
		if t, changed := lowerer.tail(top.Tail); changed {
			top.Tail = t
		}
	}

	for _, cl := range prog.Closures {
		if t, changed := lowerer.tail(cl.Body); changed {
			cl.Body = t
		}
	}

	return nil
}

// verifyDistinctTags checks that no two constructors of dn claim the
// same unshifted tag value, using a bitSet sized to the widest tag
// field in play (tag values are small and dense — at most 2^TagWidth
// of them — so a bitset beats a map here).
func verifyDistinctTags(dn *mil.DataName, layouts map[*mil.Cfun]Layout) error {
	width := 0
	for _, lay := range layouts {
		if lay.TagWidth > width {
			width = lay.TagWidth
		}
	}

	seen := newBitSet(1 << width)

	for cf, lay := range layouts {
		if seen.IsSet(int(lay.TagValue)) {
			return errors.New("constructor %s: tag value %#x already claimed by another constructor of %s",
				cfunLabel(cf), lay.TagValue, dn.Name)
		}

		seen.Set(int(lay.TagValue))
	}

	return nil
}

func cfunLabel(cf *mil.Cfun) string {
	name := "?"
	if cf.Data != nil {
		name = cf.Data.Name
	}

	return fmt.Sprintf("%s#%d", name, cf.ID)
}
