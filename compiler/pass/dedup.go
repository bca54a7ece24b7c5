package pass

import "github.com/EmiliaPaz/mil-tools/compiler/mil"

// eliminateDuplicates merges blocks and top-levels that are
// alpha-equivalent (spec §4.1's Summary law: equal Summary is
// necessary, AlphaCode/AlphaTail confirms it's sufficient) — for
// blocks, by redirecting every call to the duplicate at the surviving
// block and dropping the duplicate from the program; for top-levels,
// by rewriting the later duplicate's own Tail to Return the earlier
// one's results, since a top-level (unlike a block) is itself a named
// entry point other code may still reference by name and can't simply
// be dropped.
func eliminateDuplicates(prog *mil.Program) bool {
	changed := eliminateDuplicateTopLevels(prog)

	bySummary := map[uint64][]*mil.Block{}
	for _, b := range prog.Blocks {
		s := mil.Summary(b.Params, b.Body)
		bySummary[s] = append(bySummary[s], b)
	}

	dead := map[*mil.Block]*mil.Block{} // duplicate -> survivor

	for _, group := range bySummary {
		for i := 0; i < len(group); i++ {
			survivor := group[i]
			if dead[survivor] != nil {
				continue
			}

			for j := i + 1; j < len(group); j++ {
				dup := group[j]
				if dead[dup] != nil || dup == survivor {
					continue
				}

				if len(dup.Params) != len(survivor.Params) {
					continue
				}

				if !mil.AlphaCode(survivor.Body, survivor.Params, dup.Body, dup.Params) {
					continue
				}

				dead[dup] = survivor
			}
		}
	}

	if len(dead) == 0 {
		return changed
	}

	for old, survivor := range dead {
		for _, b := range prog.Blocks {
			b.Body = replaceBlockRefs(b.Body, old, survivor)
		}

		for _, t := range prog.TopLevels {
			t.Tail = replaceTailBlockRef(t.Tail, old, survivor)
		}

		for _, cl := range prog.Closures {
			cl.Body = replaceTailBlockRef(cl.Body, old, survivor)
		}

		changed = true
	}

	kept := prog.Blocks[:0]
	for _, b := range prog.Blocks {
		if dead[b] == nil {
			kept = append(kept, b)
		}
	}

	prog.Blocks = kept

	return changed
}

// eliminateDuplicateTopLevels finds top-levels whose Tail is
// alpha-equivalent to an earlier top-level's and rewrites the later
// one to Return the earlier one's results instead of recomputing them
// (seed scenario 7). A top-level has no parameters, so the summary and
// alpha-equivalence check both run with an empty correspondence list.
func eliminateDuplicateTopLevels(prog *mil.Program) bool {
	changed := false

	bySummary := map[uint64][]*mil.TopLevel{}
	for _, t := range prog.TopLevels {
		s := mil.Summary(nil, mil.CodeOf(t.Tail))
		bySummary[s] = append(bySummary[s], t)
	}

	merged := map[*mil.TopLevel]bool{}

	for _, group := range bySummary {
		for i := 0; i < len(group); i++ {
			survivor := group[i]
			if merged[survivor] {
				continue
			}

			for j := i + 1; j < len(group); j++ {
				dup := group[j]
				if merged[dup] || dup == survivor {
					continue
				}

				if len(dup.Lhs) != len(survivor.Lhs) {
					continue
				}

				if !mil.AlphaTail(survivor.Tail, nil, dup.Tail, nil) {
					continue
				}

				args := make([]mil.Atom, len(survivor.Lhs))
				for k := range survivor.Lhs {
					args[k] = mil.TopRef{Top: survivor, Index: k}
				}

				dup.Tail = mil.Return{Args: args}
				merged[dup] = true
				changed = true
			}
		}
	}

	return changed
}
