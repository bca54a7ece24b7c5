package pass

import "github.com/EmiliaPaz/mil-tools/compiler/mil"

// pruneUnreachableBlocks drops every block not reachable from a
// program entry point (TopLevel tail, closure body, or another
// reachable block's BlockCalls). Inlining and dedup routinely leave a
// callee with zero remaining callers; nothing else in this package
// reclaims it.
func pruneUnreachableBlocks(prog *mil.Program) bool {
	reachable := map[*mil.Block]bool{}

	seedTail := func(t mil.Tail) {
		if bc, ok := t.(mil.BlockCall); ok {
			markReachable(reachable, bc.Block)
		}
	}

	for _, t := range prog.TopLevels {
		seedTail(t.Tail)
	}

	for _, cl := range prog.Closures {
		seedTail(cl.Body)
	}

	if len(reachable) == 0 && len(prog.Blocks) > 0 {
		// No entry references a block directly (e.g. a unit test builds
		// a bare block with no TopLevel): treat every block as a root
		// rather than pruning a program with no discoverable entries.
		return false
	}

	if len(prog.Blocks) == len(reachable) {
		return false
	}

	kept := prog.Blocks[:0]
	for _, b := range prog.Blocks {
		if reachable[b] {
			kept = append(kept, b)
		}
	}

	changed := len(kept) != len(prog.Blocks)
	prog.Blocks = kept

	return changed
}

func markReachable(reachable map[*mil.Block]bool, b *mil.Block) {
	if b == nil || reachable[b] {
		return
	}

	reachable[b] = true

	callees := map[*mil.Block]bool{}
	allBlockCalls(b.Body, callees)

	for c := range callees {
		markReachable(reachable, c)
	}
}
