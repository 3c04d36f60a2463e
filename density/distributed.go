package density

import (
	"github.com/notargets/gosph/kernel"
	"github.com/notargets/gosph/nbrtree"
	"github.com/notargets/gosph/particle"
	"github.com/notargets/gosph/sphfault"
	"github.com/notargets/gosph/walk"
)

// remoteVisitor implements walk.RemoteVisitor for the density pass: it
// queries a peer rank's own local particles against the origin's Hsml
// (density_ngbiter's asymmetric admission, same as VisitPair) and folds
// the reply straight into the origin particle's GasState, mirroring
// ReduceResult's PrimaryAccum branch rather than duplicating it.
type remoteVisitor struct {
	finder nbrtree.Finder
	cfg    PassConfig
}

func newRemoteVisitor(finder nbrtree.Finder, cfg PassConfig) *remoteVisitor {
	return &remoteVisitor{finder: finder, cfg: cfg}
}

func (v *remoteVisitor) SearchRadius(idx int) float64 {
	if v.cfg.SearchRadius != nil {
		return v.cfg.SearchRadius(idx)
	}
	return v.finder.Particle(idx).Hsml
}

func (v *remoteVisitor) BuildQuery(idx int) walk.Query {
	p := v.finder.Particle(idx)
	return walk.Query{Pos: p.Pos, Hsml: p.Hsml, Kind: p.Kind, Vel: p.Vel, TimeBin: p.TimeBin}
}

func (v *remoteVisitor) SecondaryPass(scoped *nbrtree.Scoped, radius float64, q walk.Query) walk.Result {
	desc := kernel.NewDescriptor(v.cfg.KernelName, q.Hsml, v.cfg.Dim)
	neighbors, _, err := scoped.FindNeighbors(q.Pos, radius, nbrtree.MaskGas, nbrtree.Cursor{})
	if err != nil {
		return walk.Result{}
	}
	var out Result
	for _, nIdx := range neighbors {
		neighbor := scoped.Particle(nIdx)
		dx := particle.PeriodicDelta(q.Pos, neighbor.Pos, scoped.BoxSize())
		r := dx.Norm()
		contributePair(desc, &out, q.Vel, neighbor, r, dx)
	}
	return walk.Result{Rho: out.Rho, DRhoDh: out.DRhoDh, NumNgb: out.NumNgb, DivVel: out.DivVel, CurlVel: out.CurlVel}
}

func (v *remoteVisitor) Accumulate(targetIdx int, res walk.Result) {
	target := v.finder.Particle(targetIdx)
	if !target.Participates() || target.Gas == nil {
		return
	}
	g := target.Gas
	g.Density += res.Rho
	g.DhsmlDensityFactor += res.DRhoDh
	target.NumNgb += res.NumNgb
	g.DivVel += res.DivVel
	g.CurlVel = g.CurlVel.Add(res.CurlVel)
}

// DistributedPass runs density_pass() collectively across numRanks
// simulated ranks: finder's index space is partitioned into numRanks
// contiguous buckets (walk.PartitionMap), each rank iterates its own
// partition's active particles against its own walk.RankContext.Finder
// exactly as Pass does, then RunWalkDistributed exchanges every active
// particle's query against every other rank so a neighbour owned by a
// different bucket still contributes. numRanks <= 1 runs the plain
// single-process Pass unchanged.
func DistributedPass(ctx *walk.Context, finder nbrtree.Finder, active []int, cfg PassConfig, numRanks, budgetBytes int) error {
	if numRanks <= 1 {
		return Pass(ctx, finder, active, cfg)
	}

	for _, idx := range active {
		finder.Particle(idx).DensityIterationDone = false
	}

	pm := walk.NewPartitionMap(numRanks, finder.Len())
	ranks := make([]*walk.RankContext, numRanks)
	pending := make([][]int, numRanks)
	for _, idx := range active {
		r := pm.BucketOf(idx)
		pending[r] = append(pending[r], idx)
	}
	for r := 0; r < numRanks; r++ {
		lo, hi := pm.Range(r)
		owned := make([]int, 0, hi-lo)
		for i := lo; i < hi; i++ {
			owned = append(owned, i)
		}
		ranks[r] = &walk.RankContext{ID: r, Finder: nbrtree.NewScoped(finder, owned)}
	}

	controller := Controller{
		DesNumNgb:          cfg.DesNumNgb,
		MaxNumNgbDeviation: cfg.MaxNumNgbDeviation,
		MinGasHsml:         cfg.MinGasHsml,
		Dim:                cfg.Dim,
	}
	remote := newRemoteVisitor(finder, cfg)

	iter := 0
	for {
		for r, rk := range ranks {
			rk.Active = pending[r]
			spec := walk.WalkSpec[Result]{
				IsActive:     func(idx int) bool { return !finder.Particle(idx).DensityIterationDone },
				InitScratch:  InitScratch(finder, cfg.KernelName, cfg.Dim, cfg.SearchRadius),
				VisitPair:    VisitPair(finder, cfg.Observers),
				ReduceResult: ReduceResult(finder),
				Finder:       rk.Finder,
			}
			if err := walk.RunWalk(ctx, spec, pending[r]); err != nil {
				return err
			}
		}

		if err := walk.RunWalkDistributed(ranks, remote, budgetBytes); err != nil {
			return err
		}

		var everyone []int
		for r := range ranks {
			everyone = append(everyone, pending[r]...)
		}

		next := make([][]int, numRanks)
		for _, idx := range everyone {
			p := finder.Particle(idx)
			if !p.Participates() {
				continue
			}
			if p.IsGas() {
				FinalizeDensity(p, cfg.Dim, cfg.EOS)
			} else {
				FinalizeSink(p)
			}
			if p.DensityIterationDone {
				return &sphfault.InvariantViolation{
					ParticleID: p.ID,
					Detail:     "DensityIterationDone already set when re-queued into the next density round",
				}
			}
			if err := controller.Update(p); err != nil {
				return err
			}
			if !p.DensityIterationDone {
				r := pm.BucketOf(idx)
				next[r] = append(next[r], idx)
			}
		}

		done := true
		for _, n := range next {
			if len(n) > 0 {
				done = false
				break
			}
		}
		if done {
			return nil
		}

		iter++
		if iter > cfg.MaxIter {
			for _, n := range next {
				if len(n) > 0 {
					p := finder.Particle(n[0])
					return &sphfault.ConvergenceError{
						ParticleID: p.ID,
						Hsml:       p.Hsml,
						Left:       p.Bracket.Left,
						Right:      p.Bracket.Right,
						NumNgb:     p.NumNgb,
						Pos:        [3]float64{p.Pos[0], p.Pos[1], p.Pos[2]},
						Iterations: iter,
					}
				}
			}
		}
		pending = next
	}
}
