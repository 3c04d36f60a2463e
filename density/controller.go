package density

import (
	"math"

	"github.com/notargets/gosph/particle"
	"github.com/notargets/gosph/sphfault"
)

// Controller holds the external parameters the smoothing-length search
// needs: target neighbour count, tolerance, dimension, and
// the H_min floor. One Controller is shared read-only across all
// particles in a pass.
type Controller struct {
	DesNumNgb          float64
	MaxNumNgbDeviation float64
	MinGasHsml         float64
	Dim                int
}

// Update runs one density_check_neighbours step on p: decide whether p is
// DONE, else tighten its Bracket and propose the next Hsml. It mutates
// p.Bracket, p.Hsml, and p.DensityIterationDone in place. It returns a
// *sphfault.InvariantViolation if proposeHsml reaches the "neither side
// bracketed" state, which should never happen once a bracket side has
// been set immediately above.
//
// The caller must run FinalizeDensity/FinalizeSink on p for this
// iteration's freshly-accumulated result before calling Update: the
// Newton-like branch inside proposeHsml reads p.Gas.DhsmlDensityFactor
// expecting the already-rescaled f_ij, not the raw accumulator.
func (c Controller) Update(p *particle.Particle) error {
	desNumNgb := c.DesNumNgb
	delta := c.MaxNumNgbDeviation

	within := math.Abs(p.NumNgb-desNumNgb) <= delta
	tooManyButClamped := p.NumNgb > desNumNgb+delta && p.Hsml <= 1.01*c.MinGasHsml

	if within || tooManyButClamped {
		p.DensityIterationDone = true
		return nil
	}

	if p.Bracket.Collapsed() {
		p.DensityIterationDone = true
		return nil
	}

	if p.NumNgb < desNumNgb-delta {
		if p.Hsml > p.Bracket.Left {
			p.Bracket.Left = p.Hsml
		}
	} else {
		if p.Bracket.Right != 0 {
			if p.Hsml < p.Bracket.Right {
				p.Bracket.Right = p.Hsml
			}
		} else {
			p.Bracket.Right = p.Hsml
		}
	}

	h, err := c.proposeHsml(p)
	if err != nil {
		return err
	}
	p.Hsml = h
	if p.Hsml < c.MinGasHsml {
		p.Hsml = c.MinGasHsml
	}
	p.DensityIterationDone = false
	return nil
}

// proposeHsml implements density_check_neighbours' h-update: geometric
// midpoint in volume when both sides are bracketed, else a Newton-like
// step bounded by the 1.26 multiplicative window, else grow/shrink by
// 1.26 flat. The default branch (neither side bracketed) is reached only
// if Update's bracket-tightening step above failed to set either side,
// which indicates a corrupted Bracket rather than a data condition; it
// reports that as a fatal InvariantViolation instead of silently
// returning p.Hsml unchanged.
func (c Controller) proposeHsml(p *particle.Particle) (float64, error) {
	left, right := p.Bracket.Left, p.Bracket.Right
	switch {
	case left > 0 && right > 0:
		return math.Cbrt(0.5 * (left*left*left + right*right*right)), nil
	case right == 0 && left > 0:
		if math.Abs(p.NumNgb-c.DesNumNgb) < 0.5*c.DesNumNgb {
			fac := c.newtonFactor(p)
			if fac < 1.26 {
				return p.Hsml * fac, nil
			}
			return p.Hsml * 1.26, nil
		}
		return p.Hsml * 1.26, nil
	case right > 0 && left == 0:
		if math.Abs(p.NumNgb-c.DesNumNgb) < 0.5*c.DesNumNgb {
			fac := c.newtonFactor(p)
			if fac > 1/1.26 {
				return p.Hsml * fac, nil
			}
			return p.Hsml / 1.26, nil
		}
		return p.Hsml / 1.26, nil
	default:
		return 0, &sphfault.InvariantViolation{
			ParticleID: p.ID,
			Detail:     "proposeHsml reached with neither bracket side established",
		}
	}
}

// newtonFactor is f = 1 - ((N_ngb - N*) / (D*N_ngb)) * f_ij, evaluated
// using p.Gas.DhsmlDensityFactor after it has already been rescaled from
// the raw Σm_j·dW/dh sum into the dimensionless f_ij factor by
// FinalizeDensity/FinalizeSink earlier this same iteration — callers must
// run the finalize step before Update, same as density_post_process runs
// unconditionally before density_check_neighbours every iteration.
func (c Controller) newtonFactor(p *particle.Particle) float64 {
	if !p.IsGas() || p.NumNgb == 0 {
		return 1
	}
	return 1 - ((p.NumNgb-c.DesNumNgb)/(float64(c.Dim)*p.NumNgb))*p.Gas.DhsmlDensityFactor
}
