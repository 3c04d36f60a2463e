// Package sph exposes the two top-level entry points of the core,
// DensityPass and GradientsPass, wiring config.Params into the density
// and gradient packages' own Pass orchestration.
package sph

import (
	"github.com/notargets/gosph/config"
	"github.com/notargets/gosph/density"
	"github.com/notargets/gosph/gradient"
	"github.com/notargets/gosph/nbrtree"
	"github.com/notargets/gosph/walk"
)

// DensityPass runs the collective smoothing-length/density iteration
// (components C and D) over finder's active particles. When p.Ranks > 1
// it partitions finder's index space into p.Ranks simulated ranks and
// runs the distributed cross-rank exchange each iteration instead of a
// single process's local-only walk.
func DensityPass(ctx *walk.Context, finder nbrtree.Finder, active []int, p config.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	cfg := density.PassConfig{
		DesNumNgb:          p.DesNumNgb,
		MaxNumNgbDeviation: p.MaxNumNgbDeviation,
		MinGasHsml:         p.MinGasHsml,
		MaxIter:            p.MaxIter,
		Dim:                p.Dim,
		KernelName:         p.KernelName,
		EOS:                density.EOS{Gamma: 5.0 / 3.0},
	}
	if p.Ranks > 1 {
		return density.DistributedPass(ctx, finder, active, cfg, p.Ranks, p.ExportBufferMiB<<20)
	}
	return density.Pass(ctx, finder, active, cfg)
}

// GradientsPass runs the moment-matrix construction and the matrix-based
// or SPH-fallback gradient reconstruction, with slope limiting
// (components E and F), over finder's active particles. It must run
// after DensityPass has converged every target it will query, since the
// gradient reconstruction reads each neighbour's converged Density,
// Pressure, and DhsmlDensityFactor.
//
// isLocal reports whether a given index is owned by this process; pass
// a function that always returns true for a single-process run. It is
// ignored when p.Ranks > 1, since the distributed exchange determines
// locality itself from each simulated rank's own partition.
func GradientsPass(ctx *walk.Context, finder nbrtree.Finder, active []int, isLocal func(idx int) bool, p config.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	cfg := gradient.PassConfig{
		Dim:                   p.Dim,
		KernelName:            p.KernelName,
		ConditionNumberDanger: p.ConditionNumberDanger,
	}
	if p.Ranks > 1 {
		return gradient.DistributedPass(ctx, finder, active, isLocal, cfg, p.Ranks, p.ExportBufferMiB<<20)
	}
	return gradient.Pass(ctx, finder, active, isLocal, cfg)
}
