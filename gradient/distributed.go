package gradient

import (
	"github.com/notargets/gosph/kernel"
	"github.com/notargets/gosph/nbrtree"
	"github.com/notargets/gosph/particle"
	"github.com/notargets/gosph/walk"
)

// remoteVisitor implements walk.RemoteVisitor for the main gradient
// walk's cross-rank exchange. It mirrors GradientVisitPair's per-pair
// math exactly, but against a peer rank's own local particles: both
// sides of the pair get credit from the single call, the origin's
// through the returned walk.Result, the peer's local neighbour through
// acc.MergeLocked under ctx.MirrorLock — the same shared accumulator the
// in-process mirror path writes into, since a simulated rank is a
// goroutine-partitioned view of one shared particle store rather than a
// separate process.
type remoteVisitor struct {
	finder     nbrtree.Finder
	ctx        *walk.Context
	acc        *Accumulators
	kernelName string
	dim        int
}

func newRemoteVisitor(finder nbrtree.Finder, ctx *walk.Context, acc *Accumulators, kernelName string, dim int) *remoteVisitor {
	return &remoteVisitor{finder: finder, ctx: ctx, acc: acc, kernelName: kernelName, dim: dim}
}

func (v *remoteVisitor) SearchRadius(idx int) float64 {
	return v.finder.Particle(idx).Hsml * searchRadiusScale
}

func (v *remoteVisitor) BuildQuery(idx int) walk.Query {
	p := v.finder.Particle(idx)
	q := walk.Query{Pos: p.Pos, Hsml: p.Hsml, Kind: p.Kind, Vel: p.Vel, TimeBin: p.TimeBin}
	if p.IsGas() {
		q.Density = p.Gas.Density
		q.Pressure = p.Gas.Pressure
	}
	return q
}

func (v *remoteVisitor) SecondaryPass(scoped *nbrtree.Scoped, radius float64, q walk.Query) walk.Result {
	desc := kernel.NewDescriptor(v.kernelName, q.Hsml, v.dim)
	neighbors, _, err := scoped.FindNeighbors(q.Pos, radius, nbrtree.MaskGas, nbrtree.Cursor{})
	if err != nil {
		return walk.Result{}
	}
	var out particle.GradientScratch
	for _, nIdx := range neighbors {
		neighbor := scoped.Particle(nIdx)
		if !neighbor.IsGas() {
			continue
		}
		dx := particle.PeriodicDelta(q.Pos, neighbor.Pos, scoped.BoxSize())
		r := dx.Norm()
		hi, hj := desc.H, neighbor.Hsml
		if r >= hi && r >= hj {
			continue
		}
		var wk float64
		if r < hi {
			wk = neighbor.Mass * desc.WK(r)
		} else {
			wk = neighbor.Mass * kernel.NewDescriptor(v.kernelName, hj, v.dim).WK(r)
		}

		dRho := neighbor.Gas.Density - q.Density
		dP := neighbor.Gas.Pressure - q.Pressure
		var dV [3]float64
		for k := 0; k < 3; k++ {
			dV[k] = neighbor.Vel[k] - q.Vel[k]
		}
		accumulate(&out, wk, dx, dRho, dP, dV, r)

		var mirror particle.GradientScratch
		accumulate(&mirror, wk, dx.Scale(-1), -dRho, -dP, [3]float64{-dV[0], -dV[1], -dV[2]}, r)
		v.acc.MergeLocked(v.ctx, nIdx, mirror)
	}
	return walk.Result{
		EnvDensity:      out.EnvDensity,
		EnvPressure:     out.EnvPressure,
		EnvVel:          out.EnvVel,
		SumGradDensity:  out.SumGradDensity,
		SumGradPressure: out.SumGradPressure,
		SumGradVel:      out.SumGradVel,
		MaxDistance:     out.MaxDistance,
	}
}

func (v *remoteVisitor) Accumulate(targetIdx int, res walk.Result) {
	v.acc.MergeLocked(v.ctx, targetIdx, particle.GradientScratch{
		EnvDensity:      res.EnvDensity,
		EnvPressure:     res.EnvPressure,
		EnvVel:          res.EnvVel,
		SumGradDensity:  res.SumGradDensity,
		SumGradPressure: res.SumGradPressure,
		SumGradVel:      res.SumGradVel,
		MaxDistance:     res.MaxDistance,
	})
}

// DistributedPass runs components E and F collectively across numRanks
// simulated ranks. The moment-matrix walk (MomentVisitPair) runs
// per-rank against only that rank's own owned particles rather than
// exchanging cross-rank moment contributions too: NV_T's role is to
// pick which gradient estimator a particle uses, not to enter the
// gradient sums directly, so a partition-local approximation of it
// costs accuracy at partition boundaries without changing which code
// path the reconstruction below takes for the interior of either
// partition. The main gradient walk and its cross-rank mirrored
// contributions are fully collective. numRanks <= 1 runs the plain
// single-process Pass unchanged.
func DistributedPass(ctx *walk.Context, finder nbrtree.Finder, active []int, isLocal func(idx int) bool, cfg PassConfig, numRanks, budgetBytes int) error {
	if numRanks <= 1 {
		return Pass(ctx, finder, active, isLocal, cfg)
	}

	pm := walk.NewPartitionMap(numRanks, finder.Len())
	ranks := make([]*walk.RankContext, numRanks)
	rankActive := make([][]int, numRanks)
	for _, idx := range active {
		r := pm.BucketOf(idx)
		rankActive[r] = append(rankActive[r], idx)
	}
	for r := 0; r < numRanks; r++ {
		lo, hi := pm.Range(r)
		owned := make([]int, 0, hi-lo)
		for i := lo; i < hi; i++ {
			owned = append(owned, i)
		}
		ranks[r] = &walk.RankContext{ID: r, Finder: nbrtree.NewScoped(finder, owned), Active: rankActive[r]}
	}

	for r, rk := range ranks {
		momentSpec := walk.WalkSpec[MomentMatrix]{
			IsActive:     func(idx int) bool { return finder.Particle(idx).IsGas() },
			InitScratch:  MomentInitScratch(finder, cfg.KernelName, cfg.Dim),
			VisitPair:    MomentVisitPair,
			ReduceResult: MomentReduceResult(finder, cfg.ConditionNumberDanger),
			Finder:       rk.Finder,
		}
		if err := walk.RunWalk(ctx, momentSpec, rankActive[r]); err != nil {
			return err
		}
	}

	acc := NewAccumulators(finder.Len())
	for r, rk := range ranks {
		gradientSpec := walk.WalkSpec[particle.GradientScratch]{
			IsActive:     func(idx int) bool { return finder.Particle(idx).IsGas() },
			InitScratch:  GradientInitScratch(finder, cfg.KernelName, cfg.Dim),
			VisitPair:    GradientVisitPair(finder, ctx, acc, cfg.KernelName, rk.Finder.Owns, cfg.Observers),
			ReduceResult: reduceGradient(ctx, acc),
			Finder:       rk.Finder,
		}
		if err := walk.RunWalk(ctx, gradientSpec, rankActive[r]); err != nil {
			return err
		}
	}

	remote := newRemoteVisitor(finder, ctx, acc, cfg.KernelName, cfg.Dim)
	if err := walk.RunWalkDistributed(ranks, remote, budgetBytes); err != nil {
		return err
	}

	for _, idx := range active {
		p := finder.Particle(idx)
		if !p.IsGas() {
			continue
		}
		Reconstruct(p, acc.Get(idx))
	}
	return nil
}
