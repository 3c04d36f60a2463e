// Package gradient implements components E and F of the core: the
// matrix-based/SPH-fallback gradient visitor and the slope limiter,
// grounded on original_source/libgadget/mfm/gradients.c's
// construct_gradient, local_slopelimiter, and the NV_T second-moment
// matrix.
package gradient

import (
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gosph/particle"
)

// MomentMatrix accumulates the raw second-moment matrix
// M = Σ m_j (x_j - x_i) ⊗ (x_j - x_i) W_ij over a target's kernel
// neighbours. It is built in its own unconditional pass
// before the main gradient walk, since construct_gradient needs NV_T and
// ConditionNumber already resolved for every particle it might read
// (including remote j's, whose NV_T this core computes no differently
// than i's own).
type MomentMatrix struct {
	M [3][3]float64
}

func (mm *MomentMatrix) Accumulate(massJ, wk float64, dx particle.Vec3) {
	outer := dx.Outer(dx)
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			mm.M[a][b] += massJ * wk * outer[a][b]
		}
	}
}

// defaultConditionNumberDanger mirrors gradients.c's CONDITION_NUMBER_DANGER
// compile-time constant. The threshold itself is a parameter
// (config.Params.ConditionNumberDanger); Invert falls back to this value
// when it is given one <= 0.
const defaultConditionNumberDanger = 100.0

// Invert fills g.NVT, g.ConditionNumber, and g.WellConditioned from mm and
// g.Density, implementing SHOULD_I_USE_SPH_GRADIENTS's inverse: well
// conditioned when the condition number is at or below danger.
func Invert(mm MomentMatrix, g *particle.GasState, density float64, conditionNumberDanger float64) {
	if conditionNumberDanger <= 0 {
		conditionNumberDanger = defaultConditionNumberDanger
	}
	raw := mat.NewDense(3, 3, nil)
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			v := mm.M[a][b]
			if density > 0 {
				v /= density
			}
			raw.Set(a, b, v)
		}
	}

	cond := mat.Cond(raw, 2)
	g.ConditionNumber = cond
	g.WellConditioned = cond <= conditionNumberDanger && !isSingular(cond)

	if !g.WellConditioned {
		g.NVT = [3][3]float64{}
		return
	}

	var inv mat.Dense
	if err := inv.Inverse(raw); err != nil {
		g.WellConditioned = false
		g.NVT = [3][3]float64{}
		return
	}
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			g.NVT[a][b] = inv.At(a, b)
		}
	}
}

func isSingular(cond float64) bool {
	return cond > 1e12 || cond != cond // NaN guard: mat.Cond returns +Inf for a singular matrix, never NaN in practice, but be defensive
}
