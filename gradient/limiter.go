package gradient

import (
	"math"

	"github.com/notargets/gosph/particle"
)

// AggressivenessLimiter is a_limiter: 0.25 by default, raised toward a
// ceiling of 0.5 once the moment matrix's condition number climbs past
// 100.
func AggressivenessLimiter(conditionNumber float64) float64 {
	a := 0.25
	if conditionNumber > 100 {
		a = math.Min(0.5, 0.25+0.25*(conditionNumber-100)/100)
	}
	return a
}

// CharacteristicLength is h_lim: the larger of the particle's own Hsml
// and the largest neighbour separation actually visited during the
// gradient walk.
func CharacteristicLength(hsml, maxDistance float64) float64 {
	return math.Max(hsml, maxDistance)
}

// Limit implements local_slopelimiter in place: it scales grad down when
// its own magnitude, projected across h, would overshoot env's pairwise
// envelope by more than shootTol of the envelope's larger magnitude.
// alim is AggressivenessLimiter's result, h is CharacteristicLength's.
func Limit(grad *particle.Vec3, env particle.FieldEnvelope, alim, h, shootTol float64) {
	dAbs := grad.Dot(*grad)
	if dAbs <= 0 {
		return
	}
	cfac := 1 / (alim * h * math.Sqrt(dAbs))
	absMax := math.Abs(env.Max)
	absMin := math.Abs(env.Min)
	lo := math.Min(absMax, absMin)
	if shootTol > 0 {
		hi := math.Max(absMax, absMin)
		cfac *= math.Min(lo+shootTol*hi, hi)
	} else {
		cfac *= lo
	}
	if cfac < 1 {
		*grad = grad.Scale(cfac)
	}
}

// LimitAll applies Limit to every field the gradient pass tracks, using
// the shared a_limiter/h_lim for a particle and shoot_tol 0 for every
// field (this core always builds with the source's
// SLOPE_LIMITER_TOLERANCE==1 default).
func LimitAll(g *particle.GasState, s particle.GradientScratch, alim, hLim float64) {
	const shootTol = 0.0
	Limit(&g.GradDensity, s.EnvDensity, alim, hLim, shootTol)
	Limit(&g.GradPressure, s.EnvPressure, alim, hLim, shootTol)
	for k := 0; k < 3; k++ {
		Limit(&g.GradVel[k], s.EnvVel[k], alim, hLim, shootTol)
	}
}
