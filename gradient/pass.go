package gradient

import (
	"github.com/notargets/gosph/nbrtree"
	"github.com/notargets/gosph/particle"
	"github.com/notargets/gosph/walk"
)

// PassConfig bundles the external parameters Pass needs.
type PassConfig struct {
	Dim                   int
	KernelName            string
	ConditionNumberDanger float64
	// Observers lets an optional physics overlay ride along
	// the gradient walk's per-pair loop without the visitor itself
	// knowing about any concrete overlay.
	Observers particle.Observers
}

// Pass runs component E and F of the core over
// finder's active particles: an unconditional moment-matrix walk builds
// every particle's NV_T and condition number first (this core's
// resolution of when NV_T must be ready, see DESIGN.md), then the main
// gradient walk accumulates raw pairwise sums (mirroring local pairs
// in-process via acc), then every participating particle's raw sums are
// reconstructed — left-multiplied by NV_T when well conditioned, else
// scaled by dρ/dh_factor/ρ_i — and finally slope-limited.
//
// isLocal reports whether a neighbour index is owned by this process, so
// the gradient walk only mirrors a pairwise contribution into a
// particle this process can safely mutate; a particle owned by a remote
// process gets its matching contribution from its own walk instead.
func Pass(ctx *walk.Context, finder nbrtree.Finder, active []int, isLocal func(idx int) bool, cfg PassConfig) error {
	momentSpec := walk.WalkSpec[MomentMatrix]{
		IsActive:     func(idx int) bool { return finder.Particle(idx).IsGas() },
		InitScratch:  MomentInitScratch(finder, cfg.KernelName, cfg.Dim),
		VisitPair:    MomentVisitPair,
		ReduceResult: MomentReduceResult(finder, cfg.ConditionNumberDanger),
		Finder:       finder,
	}
	if err := walk.RunWalk(ctx, momentSpec, active); err != nil {
		return err
	}

	acc := NewAccumulators(finder.Len())
	gradientSpec := walk.WalkSpec[particle.GradientScratch]{
		IsActive:     func(idx int) bool { return finder.Particle(idx).IsGas() },
		InitScratch:  GradientInitScratch(finder, cfg.KernelName, cfg.Dim),
		VisitPair:    GradientVisitPair(finder, ctx, acc, cfg.KernelName, isLocal, cfg.Observers),
		ReduceResult: reduceGradient(ctx, acc),
		Finder:       finder,
	}
	if err := walk.RunWalk(ctx, gradientSpec, active); err != nil {
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

// reduceGradient folds a target's own primary accumulation into acc's
// shared slot through the same merge path a mirrored write uses, so a
// particle's final scratch reflects both halves of every symmetric pair
// it took part in regardless of which side's walk discovered it.
func reduceGradient(ctx *walk.Context, acc *Accumulators) func(targetIdx int, out particle.GradientScratch, mode walk.Mode) {
	return func(targetIdx int, out particle.GradientScratch, mode walk.Mode) {
		acc.MergeLocked(ctx, targetIdx, out)
	}
}

// Reconstruct applies construct_gradient and local_slopelimiter to one
// particle's accumulated raw scratch, writing the finished gradients and
// MaxDistance into its GasState.
func Reconstruct(p *particle.Particle, s particle.GradientScratch) {
	g := p.Gas
	g.MaxDistance = s.MaxDistance
	g.GradDensity = s.SumGradDensity
	g.GradPressure = s.SumGradPressure
	g.GradVel = s.SumGradVel

	if g.WellConditioned {
		g.GradDensity = applyNVT(g.NVT, g.GradDensity)
		g.GradPressure = applyNVT(g.NVT, g.GradPressure)
		for k := 0; k < 3; k++ {
			g.GradVel[k] = applyNVT(g.NVT, g.GradVel[k])
		}
	} else if g.Density > 0 {
		fac := g.DhsmlDensityFactor / g.Density
		g.GradDensity = g.GradDensity.Scale(fac)
		g.GradPressure = g.GradPressure.Scale(fac)
		for k := 0; k < 3; k++ {
			g.GradVel[k] = g.GradVel[k].Scale(fac)
		}
	}

	alim := AggressivenessLimiter(g.ConditionNumber)
	hLim := CharacteristicLength(p.Hsml, s.MaxDistance)
	LimitAll(g, s, alim, hLim)
}

func applyNVT(nvt [3][3]float64, v particle.Vec3) particle.Vec3 {
	var out particle.Vec3
	for a := 0; a < 3; a++ {
		out[a] = nvt[a][0]*v[0] + nvt[a][1]*v[1] + nvt[a][2]*v[2]
	}
	return out
}
