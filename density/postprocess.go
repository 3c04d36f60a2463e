package density

import (
	"math"

	"github.com/notargets/gosph/particle"
)

// EOS evaluates pressure from density and the predicted entropy/energy
// variable.
// Gamma is the adiabatic index; 5/3 for monatomic gas is the typical
// cosmological-hydro default.
type EOS struct {
	Gamma float64
}

func (e EOS) Pressure(entropyPred, density float64) float64 {
	return entropyPred * math.Pow(density, e.Gamma)
}

// FinalizeDensity applies density_post_process to a single gas particle:
// rescale the raw dρ/dh accumulator into the dimensionless f_ij factor,
// normalise divergence and curl magnitude by ρ, and evaluate pressure.
// Like density_post_process, this runs unconditionally on every density
// iteration, immediately after the walk's accumulation and before
// Controller.Update reads DhsmlDensityFactor for the Newton-like h-step,
// not only once convergence is reached — Update's Newton branch depends
// on reading the already-rescaled f_ij, not the raw Σm_j·dW/dh sum.
func FinalizeDensity(p *particle.Particle, dim int, eos EOS) {
	if !p.IsGas() {
		return
	}
	g := p.Gas
	if g.Density <= 0 {
		return
	}

	g.DhsmlDensityFactor *= p.Hsml / (float64(dim) * g.Density)
	if g.DhsmlDensityFactor > -0.9 {
		g.DhsmlDensityFactor = 1 / (1 + g.DhsmlDensityFactor)
	} else {
		g.DhsmlDensityFactor = 1
	}

	g.CurlVelMag = g.CurlVel.Norm() / g.Density
	g.DivVel /= g.Density

	g.Pressure = eos.Pressure(g.EntropyPred, g.Density)
}

// FinalizeSink implements the non-gas averaging branch: a sink (or other
// participating kind) accumulates raw weighted sums the same way a gas
// particle does via the density/gradient observer hooks, then divides by
// its own ρ here to get averaged surrounding-fluid quantities. The core
// ships no sink-specific accumulator fields of its own (those live behind
// particle.DensityFeedbackObserver, out of scope here); this function
// exists so a caller wiring that capability in has a single place to
// finish the averaging, matching gas's normalisation pattern rather than
// re-deriving it.
func FinalizeSink(p *particle.Particle) {
	if p.Kind != particle.Sink || p.Gas == nil || p.Gas.Density <= 0 {
		return
	}
	g := p.Gas
	g.Pressure /= g.Density
}
