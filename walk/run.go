package walk

import (
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/notargets/gosph/nbrtree"
	"github.com/notargets/gosph/particle"
)

// RunWalk is the single-process tree-walk driver: active particle indices
// are partitioned across a worker pool via a shared atomic cursor
// (shared-mutable, advanced by atomic increment), each worker walks its
// target locally against spec.Finder, and accumulates via spec.VisitPair
// before calling spec.ReduceResult exactly once per target.
//
// The worker fan-out uses golang.org/x/sync/errgroup rather than a bare
// sync.WaitGroup, so a single worker's ResourceError or ConvergenceError
// aborts the whole pass instead of being silently dropped.
func RunWalk[R any](ctx *Context, spec WalkSpec[R], active []int) error {
	if len(active) == 0 {
		return nil
	}
	var cursor atomic.Int64
	g := new(errgroup.Group)
	workers := ctx.Workers
	if workers > len(active) {
		workers = len(active)
	}
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				i := int(cursor.Add(1)) - 1
				if i >= len(active) {
					return nil
				}
				if err := runOne(ctx, spec, active[i]); err != nil {
					return err
				}
			}
		})
	}
	return g.Wait()
}

func runOne[R any](ctx *Context, spec WalkSpec[R], targetIdx int) error {
	if !spec.IsActive(targetIdx) {
		return nil
	}
	scratch := spec.InitScratch(targetIdx)
	target := spec.Finder.Particle(targetIdx)

	var out R
	var cur nbrtree.Cursor
	if saved, ok := ctx.LoadCursor(targetIdx); ok {
		cur = nbrtree.Cursor(saved)
	}

	for {
		neighbors, next, err := spec.Finder.FindNeighbors(target.Pos, scratch.Radius, scratch.Mask, cur)
		if err != nil {
			return err
		}
		for _, nIdx := range neighbors {
			neighbor := spec.Finder.Particle(nIdx)
			dx := particle.PeriodicDelta(target.Pos, neighbor.Pos, spec.Finder.BoxSize())
			r := dx.Norm()
			spec.VisitPair(targetIdx, &scratch, &out, Primary, nIdx, neighbor, r, dx)
		}
		cur = next
		if cur.Done() {
			ctx.ClearCursor(targetIdx)
			break
		}
		ctx.SaveCursor(targetIdx, nbrtreeCursor(cur))
	}

	spec.ReduceResult(targetIdx, out, Primary)
	return nil
}
