package gradient

import (
	"github.com/notargets/gosph/kernel"
	"github.com/notargets/gosph/nbrtree"
	"github.com/notargets/gosph/particle"
	"github.com/notargets/gosph/walk"
)

// searchRadiusScale widens the gradient pass's query radius past the
// target's own Hsml so a neighbour with a larger smoothing length is
// still discovered (admission is evaluated at r² < max(h_i², h_j²), but
// a Finder can only be queried with one radius per call). 2x is
// generous against the density controller's own 1.26 per-iteration clamp
// (density.Controller.proposeHsml), which bounds how far apart two
// converged neighbours' h values can plausibly drift.
const searchRadiusScale = 2.0

// MomentInitScratch builds the PRIMARY-init scratch for the unconditional
// moment-matrix pass that must complete, for every particle, before the
// main gradient walk runs.
func MomentInitScratch(finder nbrtree.Finder, kernelName string, dim int) func(idx int) walk.Scratch {
	return func(idx int) walk.Scratch {
		h := finder.Particle(idx).Hsml
		return walk.Scratch{
			Kernel: kernel.NewDescriptor(kernelName, h, dim),
			Radius: h,
			Mask:   nbrtree.MaskGas,
		}
	}
}

// MomentVisitPair accumulates one neighbour's contribution to the raw
// second-moment matrix, the first of the two gradient-pass walks.
func MomentVisitPair(targetIdx int, scratch *walk.Scratch, out *MomentMatrix, mode walk.Mode, neighborIdx int, neighbor *particle.Particle, r float64, dx particle.Vec3) {
	if !scratch.Kernel.InSupport(r) {
		return
	}
	out.Accumulate(neighbor.Mass, scratch.Kernel.WK(r), dx)
}

// MomentReduceResult inverts the accumulated moment matrix into the
// target's NV_T, ConditionNumber, and WellConditioned fields.
func MomentReduceResult(finder nbrtree.Finder, conditionNumberDanger float64) func(targetIdx int, out MomentMatrix, mode walk.Mode) {
	return func(targetIdx int, out MomentMatrix, mode walk.Mode) {
		target := finder.Particle(targetIdx)
		if !target.IsGas() {
			return
		}
		Invert(out, target.Gas, target.Gas.Density, conditionNumberDanger)
	}
}

// GradientInitScratch builds the PRIMARY-init scratch for the main
// gradient walk, widening the search radius past the target's own Hsml
// (searchRadiusScale) so a larger-h neighbour is still visited.
func GradientInitScratch(finder nbrtree.Finder, kernelName string, dim int) func(idx int) walk.Scratch {
	return func(idx int) walk.Scratch {
		h := finder.Particle(idx).Hsml
		return walk.Scratch{
			Kernel:    kernel.NewDescriptor(kernelName, h, dim),
			Radius:    h * searchRadiusScale,
			Mask:      nbrtree.MaskGas,
			Symmetric: true,
		}
	}
}

// Accumulators is the shared, index-addressable store the gradient walk
// folds both a target's own (PRIMARY) contribution and every mirrored
// (written from a neighbour's own walk) contribution into. One slot per
// particle, merged under Context.MirrorLock so a particle visited as a
// neighbour from many concurrent target walks never races with its own
// primary walk's reduce step.
type Accumulators struct {
	scratch []particle.GradientScratch
}

func NewAccumulators(n int) *Accumulators {
	return &Accumulators{scratch: make([]particle.GradientScratch, n)}
}

func (a *Accumulators) Get(idx int) particle.GradientScratch {
	return a.scratch[idx]
}

func (a *Accumulators) merge(idx int, delta particle.GradientScratch) {
	s := &a.scratch[idx]
	s.SumGradDensity = s.SumGradDensity.Add(delta.SumGradDensity)
	s.SumGradPressure = s.SumGradPressure.Add(delta.SumGradPressure)
	for k := 0; k < 3; k++ {
		s.SumGradVel[k] = s.SumGradVel[k].Add(delta.SumGradVel[k])
	}
	s.EnvDensity.Observe(delta.EnvDensity.Min)
	s.EnvDensity.Observe(delta.EnvDensity.Max)
	s.EnvPressure.Observe(delta.EnvPressure.Min)
	s.EnvPressure.Observe(delta.EnvPressure.Max)
	for k := 0; k < 3; k++ {
		s.EnvVel[k].Observe(delta.EnvVel[k].Min)
		s.EnvVel[k].Observe(delta.EnvVel[k].Max)
	}
	if delta.MaxDistance > s.MaxDistance {
		s.MaxDistance = delta.MaxDistance
	}
}

// MergeLocked folds delta into slot idx under ctx's shard lock for idx.
// Exported so pass.go's reduce step can fold a target's own primary
// contribution in through the same path a mirrored write uses.
func (a *Accumulators) MergeLocked(ctx *walk.Context, idx int, delta particle.GradientScratch) {
	lock := ctx.MirrorLock(idx)
	lock.Lock()
	a.merge(idx, delta)
	lock.Unlock()
}

// accumulate folds one (Δx, Δφ) pair into a scratch accumulator, the
// shared body of both a target's own accumulation and the sign-flipped
// mirror written into a local neighbour's slot.
func accumulate(out *particle.GradientScratch, wk float64, dx particle.Vec3, dRho, dP float64, dV [3]float64, r float64) {
	for d := 0; d < 3; d++ {
		contrib := -wk * dx[d]
		out.SumGradDensity[d] += contrib * dRho
		out.SumGradPressure[d] += contrib * dP
		for k := 0; k < 3; k++ {
			out.SumGradVel[k][d] += contrib * dV[k]
		}
	}
	out.EnvDensity.Observe(dRho)
	out.EnvPressure.Observe(dP)
	for k := 0; k < 3; k++ {
		out.EnvVel[k].Observe(dV[k])
	}
	if r > out.MaxDistance {
		out.MaxDistance = r
	}
}

// GradientVisitPair is the per-pair gradient evaluation: admit the
// pair if r is within either particle's own kernel support, compute a
// kernel weight from whichever side's support admits it, accumulate the
// raw gradient sum -m_j·W_ij·Δx_d·Δφ for the primary target into out, and
// — when j is local to this process — mirror the sign-flipped
// contribution into acc's shared slot for j under ctx.MirrorLock.
// Grounded on construct_gradient's per-pair loop in
// original_source/libgadget/mfm/gradients.c; the mass-weighted kernel
// value w = m_j·W_ij is shared between this raw accumulation and
// MomentMatrix.Accumulate rather than reproducing gradients.c's wk_i
// branch-dependent reassignment (see DESIGN.md).
func GradientVisitPair(finder nbrtree.Finder, ctx *walk.Context, acc *Accumulators, kernelName string, isLocal func(idx int) bool, obs particle.Observers) func(targetIdx int, scratch *walk.Scratch, out *particle.GradientScratch, mode walk.Mode, neighborIdx int, neighbor *particle.Particle, r float64, dx particle.Vec3) {
	return func(targetIdx int, scratch *walk.Scratch, out *particle.GradientScratch, mode walk.Mode, neighborIdx int, neighbor *particle.Particle, r float64, dx particle.Vec3) {
		target := finder.Particle(targetIdx)
		if !target.IsGas() || !neighbor.IsGas() {
			return
		}
		hi := scratch.Kernel.H
		hj := neighbor.Hsml
		if r >= hi && r >= hj {
			return
		}

		var wk float64
		if r < hi {
			wk = neighbor.Mass * scratch.Kernel.WK(r)
		} else {
			wk = neighbor.Mass * kernel.NewDescriptor(kernelName, hj, scratch.Kernel.Dim).WK(r)
		}

		dRho := neighbor.Gas.Density - target.Gas.Density
		dP := neighbor.Gas.Pressure - target.Gas.Pressure
		var dV [3]float64
		for k := 0; k < 3; k++ {
			dV[k] = neighbor.Vel[k] - target.Vel[k]
		}

		accumulate(out, wk, dx, dRho, dP, dV, r)
		obs.NotifyGradientPair(particle.PairContext{Target: target, Neighbor: neighbor, Dx: dx, R: r, WK: wk})

		if isLocal == nil || !isLocal(neighborIdx) {
			return
		}
		var mirror particle.GradientScratch
		accumulate(&mirror, wk, dx.Scale(-1), -dRho, -dP, [3]float64{-dV[0], -dV[1], -dV[2]}, r)
		acc.MergeLocked(ctx, neighborIdx, mirror)
	}
}
