package walk

import "github.com/notargets/gosph/particle"

// Query is the wire query record exported to a peer rank during a
// distributed walk: position, Hsml, kind, velocity predictor, timestep
// index, and a node-list cursor into the remote tree. Density and
// Pressure are only read by the gradient pass's symmetric exchange
// (the origin's own field values, needed to form Δρ/ΔP against a peer's
// local neighbours); the density pass's asymmetric query never reads
// them.
type Query struct {
	Pos      particle.Vec3
	Hsml     float64
	Kind     particle.Kind
	Vel      particle.Vec3
	TimeBin  int
	Density  float64
	Pressure float64
}

// querySizeBytes is a fixed estimate of a marshalled Query's footprint,
// used only for the export buffer's byte budget; the
// simulated distributed walk never actually serialises to bytes, so this
// is a conservative constant rather than a computed encoding length.
const querySizeBytes = 64

// Result is the combined result record: accumulated ρ, dρ/dh, N_ngb,
// ∇·v scalar, ∇×v 3-vector, and (for gradients) pairwise minima/maxima of
// every gradient-tracked field plus the partial gradient sums. One
// concrete struct serves both the density and gradient passes rather than
// two separate record types.
type Result struct {
	Rho, DRhoDh, NumNgb, DivVel float64
	CurlVel                     particle.Vec3

	EnvDensity, EnvPressure particle.FieldEnvelope
	EnvVel                  [3]particle.FieldEnvelope
	SumGradDensity          particle.Vec3
	SumGradPressure         particle.Vec3
	SumGradVel              [3]particle.Vec3
	MaxDistance             float64
}

const resultSizeBytes = 160

// exportEnvelope is the message posted to a peer rank's mailbox during
// the export phase: the origin rank, the exporting particle's global
// index (so the peer's reply can be routed back), the search radius to
// use, and the Query payload itself.
type exportEnvelope struct {
	Origin    int
	TargetIdx int
	Radius    float64
	Query     Query
}

func (e exportEnvelope) Size() int { return querySizeBytes + 24 }

// resultEnvelope is the reply posted back to the origin rank: the
// target's global index and the partial Result the peer computed from
// its own local neighbours.
type resultEnvelope struct {
	TargetIdx int
	Result    Result
}

func (e resultEnvelope) Size() int { return resultSizeBytes + 8 }
