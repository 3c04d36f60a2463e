package particle

// PairContext is what a per-pair observer receives: the target particle,
// the candidate neighbour, the separation, and the kernel values already
// computed by the visitor for this pair.
type PairContext struct {
	Target   *Particle
	Neighbor *Particle
	Dx       Vec3 // Target.Pos - Neighbor.Pos under the box metric
	R        float64
	WK, DWK  float64
}

// PairObserver is the capability interface optional physics overlays
// compose over. The core's density and gradient visitors call every
// registered observer after doing their own mainstream accumulation; none
// of the concrete overlays (feedback, magnetic fields, radiative
// transfer, metal diffusion) are implemented here — they are out of
// scope — but the extension point itself is part of the
// core's contract.
type PairObserver interface {
	ObservePair(pc PairContext)
}

// DensityFeedbackObserver is the density-pass capability variant, e.g.
// black-hole accretion feedback weighting.
type DensityFeedbackObserver interface {
	PairObserver
	ObserveDensityFeedback(pc PairContext)
}

// GradientMagneticObserver is the gradient-pass capability variant for
// magnetic field gradients.
type GradientMagneticObserver interface {
	PairObserver
	ObserveMagneticGradient(pc PairContext)
}

// GradientRTObserver is the gradient-pass capability variant for radiative
// transfer fields.
type GradientRTObserver interface {
	PairObserver
	ObserveRTGradient(pc PairContext)
}

// GradientMetalsObserver is the gradient-pass capability variant for metal
// diffusion fields.
type GradientMetalsObserver interface {
	PairObserver
	ObserveMetalsGradient(pc PairContext)
}

// Observers bundles whichever capability variants a caller has wired in.
// A visitor composes over the slice rather than branching on a kind
// discriminator.
type Observers struct {
	DensityFeedback  []DensityFeedbackObserver
	GradientMagnetic []GradientMagneticObserver
	GradientRT       []GradientRTObserver
	GradientMetals   []GradientMetalsObserver
}

func (o Observers) NotifyDensityPair(pc PairContext) {
	for _, ob := range o.DensityFeedback {
		ob.ObserveDensityFeedback(pc)
	}
}

func (o Observers) NotifyGradientPair(pc PairContext) {
	for _, ob := range o.GradientMagnetic {
		ob.ObserveMagneticGradient(pc)
	}
	for _, ob := range o.GradientRT {
		ob.ObserveRTGradient(pc)
	}
	for _, ob := range o.GradientMetals {
		ob.ObserveMetalsGradient(pc)
	}
}
