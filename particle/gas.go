package particle

// GasState is attached only to Gas-kind (and, for averaged quantities,
// Sink-kind) particles.
type GasState struct {
	Density  float64
	Pressure float64
	// EntropyPred is the predicted entropy/energy variable the equation of
	// state is evaluated from.
	EntropyPred float64

	// DhsmlDensityFactor is dρ/dh accumulated raw during the density pass,
	// later rescaled by the density post-processor into the dimensionless
	// f_ij factor.
	DhsmlDensityFactor float64

	CurlVel    Vec3
	CurlVelMag float64
	DivVel     float64

	// NVT is the inverse second-moment matrix used by the matrix-based
	// gradient estimator. It is valid only when
	// WellConditioned is true; otherwise the gradient visitor falls back
	// to the SPH-style estimator.
	NVT             [3][3]float64
	ConditionNumber float64
	WellConditioned bool

	GradDensity  Vec3
	GradPressure Vec3
	GradVel      [3]Vec3 // GradVel[a][b] = d(v_a)/d(x_b)

	// MaxDistance is the largest neighbour separation visited during the
	// gradient pass; it is the limiter's default characteristic length.
	MaxDistance float64
}

// FieldEnvelope tracks the pairwise min/max of (φ_j - φ_i) observed
// across a particle's kernel, the slope limiter's reconstruction
// envelope. Every gradient-tracked scalar field carries one.
type FieldEnvelope struct {
	Min, Max float64
}

// Observe folds a newly visited neighbour's field difference into the
// envelope. Both (φ_j - φ_i) and (φ_i - φ_j) orientations are tracked
// this way; callers pass whichever orientation they are accumulating.
func (e *FieldEnvelope) Observe(diff float64) {
	if diff < e.Min {
		e.Min = diff
	}
	if diff > e.Max {
		e.Max = diff
	}
}

// NewFieldEnvelope returns the zero envelope {0, 0}, the same value a
// zero GradientScratch starts from; Min never rises above 0 and Max never
// falls below 0.
func NewFieldEnvelope() FieldEnvelope {
	return FieldEnvelope{Min: 0, Max: 0}
}

// GradientScratch holds the per-particle accumulators the gradient
// visitor builds up pairwise before the post-pairwise reconstruction
// step. It is kept separate from GasState because it is transient
// per-pass state, not part of a particle's persisted record.
type GradientScratch struct {
	SumGradDensity  Vec3
	SumGradPressure Vec3
	SumGradVel      [3]Vec3

	EnvDensity  FieldEnvelope
	EnvPressure FieldEnvelope
	EnvVel      [3]FieldEnvelope

	MaxDistance float64
}
