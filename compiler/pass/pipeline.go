package pass

import (
	"context"

	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/EmiliaPaz/mil-tools/compiler/mil"
)

// maxIterations bounds the fixpoint loop; every stage is individually
// monotone (it only ever shrinks or simplifies the program), so in
// practice this is a safety net against a rewrite bug oscillating
// rather than a real budget.
const maxIterations = 64

// Pass is one named stage of the pipeline (spec §9's "document the
// required order as a pipeline object and let each pass declare the
// invariants it assumes and establishes"). Name is what
// compiler/pipeline's YAML config disables by.
type Pass struct {
	name  string
	apply func(*mil.Program) bool
}

func (p Pass) Name() string { return p.name }

// DefaultPasses lists the five stages Pipeline.Run drives to a
// fixpoint, in spec §6's required order.
func DefaultPasses() []Pass {
	return []Pass{
		{name: "inline", apply: runOverBlocks(inline)},
		{name: "flow", apply: runOverBlocks(flow)},
		{name: "eliminate-duplicates", apply: eliminateDuplicates},
		{name: "remove-unused-args", apply: removeUnusedArgs},
		{name: "prune-unreachable", apply: pruneUnreachableBlocks},
	}
}

// blockJob is one block's slot in runOverBlocks's worklist. dirty
// jobs sort ahead of clean ones; runOverBlocks pushes every job, first
// visit and requeue alike, as dirty, so in practice jobs pop by idx.
type blockJob struct {
	idx   int
	dirty bool
}

func blockJobLess(d []blockJob, i, j int) bool {
	if d[i].dirty != d[j].dirty {
		return d[i].dirty
	}

	return d[i].idx < d[j].idx
}

// runOverBlocks turns a single-block pass f into a whole-program one,
// visiting every block through a nikand.dev/go/heap worklist (grounded
// on the teacher's compiler/back/back6.go job-heap scheduler) rather
// than a single static sweep: a block f changes is pushed straight
// back onto the heap ahead of blocks not yet visited this round, since
// a rewrite can expose a further one in the same block (e.g. inlining
// a callee that itself ends in a now-inlinable call).
func runOverBlocks(f func(*mil.Program, *mil.Block) bool) func(*mil.Program) bool {
	return func(prog *mil.Program) bool {
		changed := false

		jobs := heap.Heap[blockJob]{Less: blockJobLess}
		for i := range prog.Blocks {
			jobs.Push(blockJob{idx: i, dirty: true})
		}

		for jobs.Len() != 0 {
			j := jobs.Pop()
			if j.idx >= len(prog.Blocks) {
				continue // block was removed by a whole-program stage mid-round
			}

			if f(prog, prog.Blocks[j.idx]) {
				changed = true
				jobs.Push(blockJob{idx: j.idx, dirty: true})
			}
		}

		return changed
	}
}

// Pipeline runs an explicit, possibly-filtered list of named passes so
// compiler/pipeline's YAML config can disable one without a recompile
// (spec.md §6 "passes can be selectively disabled").
type Pipeline struct {
	Passes []Pass
}

// NewPipeline builds a Pipeline from DefaultPasses, dropping any whose
// Name is in disabled.
func NewPipeline(disabled map[string]bool) Pipeline {
	var kept []Pass

	for _, p := range DefaultPasses() {
		if disabled[p.name] {
			continue
		}

		kept = append(kept, p)
	}

	return Pipeline{Passes: kept}
}

// Run drives p.Passes to a fixpoint and calls mil.Verify after every
// round, returning any invariant violation as a fatal error rather
// than silently continuing (spec §7.2).
func (p Pipeline) Run(ctx context.Context, prog *mil.Program) error {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "pass: run pipeline", "path", prog.Path, "passes", len(p.Passes))
	defer tr.Finish()

	_ = ctx

	for iter := 0; iter < maxIterations; iter++ {
		changed := false

		for _, pass := range p.Passes {
			if pass.apply(prog) {
				changed = true
			}
		}

		if err := mil.Verify(prog); err != nil {
			return errors.Wrap(err, "pipeline round %d", iter)
		}

		tr.Printw("pipeline round", "iter", iter, "changed", changed, "blocks", len(prog.Blocks))

		if !changed {
			return nil
		}
	}

	return errors.New("pipeline did not reach a fixpoint within %d iterations", maxIterations)
}
