// Package density implements component C and D of the core: the density
// kernel visitor and the smoothing-length controller, grounded on
// original_source/density.c's density_ngbiter, density_post_process, and
// density_check_neighbours.
package density

import (
	"github.com/notargets/gosph/kernel"
	"github.com/notargets/gosph/nbrtree"
	"github.com/notargets/gosph/particle"
	"github.com/notargets/gosph/walk"
)

// Result is the per-pair accumulator the density visitor builds up before
// the post-reduce finalisation (density_ngbiter's O-> accumulators).
type Result struct {
	Rho     float64
	DRhoDh  float64
	NumNgb  float64
	DivVel  float64
	CurlVel particle.Vec3
}

// InitScratch builds the PRIMARY-init scratch for particle idx:
// kernel descriptor at h = target.Hsml, asymmetric search radius, gas-only
// mask (density_ngbiter's O == NULL branch).
func InitScratch(finder nbrtree.Finder, kernelName string, dim int, searchRadius func(idx int) float64) func(idx int) walk.Scratch {
	return func(idx int) walk.Scratch {
		target := finder.Particle(idx)
		h := target.Hsml
		radius := h
		if searchRadius != nil {
			radius = searchRadius(idx)
		}
		return walk.Scratch{
			Kernel:    kernel.NewDescriptor(kernelName, h, dim),
			Radius:    radius,
			Mask:      nbrtree.MaskGas,
			Symmetric: false,
		}
	}
}

// contributePair folds one neighbour's contribution to ρ, N_ngb, dρ/dh,
// divergence, and curl into out, restricted to r² < h² (the target's own
// kernel support; the density pass is asymmetric, so only the target's
// kernel gates admission). Shared between VisitPair's local walk and the
// distributed exchange's SecondaryPass, which runs the identical sum
// against a peer rank's own local particles.
func contributePair(desc kernel.Descriptor, out *Result, targetVel particle.Vec3, neighbor *particle.Particle, r float64, dx particle.Vec3) (wk, dwk float64, admitted bool) {
	if !desc.InSupport(r) {
		return 0, 0, false
	}
	massJ := neighbor.Mass
	wk = desc.WK(r)
	dwk = desc.DWDR(r)

	out.Rho += massJ * wk
	out.NumNgb += wk * desc.Kern.Volume()
	out.DRhoDh += massJ * desc.DWDH(r)

	if r > 0 {
		fac := massJ * dwk / r
		dv := targetVel.Sub(neighbor.Vel)
		out.DivVel -= fac * dv.Dot(dx)
		rot := dv.Cross(dx)
		out.CurlVel = out.CurlVel.Add(rot.Scale(fac))
	}
	return wk, dwk, true
}

// VisitPair is density_ngbiter's per-pair branch, the local-walk face of
// contributePair.
func VisitPair(finder nbrtree.Finder, obs particle.Observers) func(targetIdx int, scratch *walk.Scratch, out *Result, mode walk.Mode, neighborIdx int, neighbor *particle.Particle, r float64, dx particle.Vec3) {
	return func(targetIdx int, scratch *walk.Scratch, out *Result, mode walk.Mode, neighborIdx int, neighbor *particle.Particle, r float64, dx particle.Vec3) {
		target := finder.Particle(targetIdx)
		wk, dwk, admitted := contributePair(scratch.Kernel, out, target.Vel, neighbor, r, dx)
		if !admitted {
			return
		}
		obs.NotifyDensityPair(particle.PairContext{Target: target, Neighbor: neighbor, Dx: dx, R: r, WK: wk, DWK: dwk})
	}
}

// ReduceResult folds out into target's GasState accumulators. PRIMARY
// overwrites (the target's own local walk is the first and usually only
// contribution); PrimaryAccum adds an imported SECONDARY result from a
// remote peer. Sink-kind particles share the same accumulator fields as
// gas (density_ngbiter runs the identical O-> bookkeeping for both,
// distinguished only by the caller's search radius), so this gates on
// Participates rather than IsGas; a participating particle with a nil Gas
// pointer is skipped without error.
func ReduceResult(finder nbrtree.Finder) func(targetIdx int, out Result, mode walk.Mode) {
	return func(targetIdx int, out Result, mode walk.Mode) {
		target := finder.Particle(targetIdx)
		if !target.Participates() || target.Gas == nil {
			return
		}
		g := target.Gas
		switch mode {
		case walk.PrimaryAccum:
			g.Density += out.Rho
			g.DhsmlDensityFactor += out.DRhoDh
			target.NumNgb += out.NumNgb
			g.DivVel += out.DivVel
			g.CurlVel = g.CurlVel.Add(out.CurlVel)
		default:
			g.Density = out.Rho
			g.DhsmlDensityFactor = out.DRhoDh
			target.NumNgb = out.NumNgb
			g.DivVel = out.DivVel
			g.CurlVel = out.CurlVel
		}
	}
}
