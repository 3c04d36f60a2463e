package particle

//go:generate stringer -type=Kind

// Kind replaces the source's integer Type field with an explicit sum type.
// Only Gas (and, for the averaged-quantity extension point, Sink)
// participate in the density/gradient core; Other is carried so a caller's
// mixed particle array can be passed through a Finder untouched.
type Kind uint8

const (
	Gas Kind = iota
	Sink
	Other
)

func (k Kind) String() string {
	switch k {
	case Gas:
		return "gas"
	case Sink:
		return "sink"
	default:
		return "other"
	}
}

// Bracket is the per-particle (Left, Right) smoothing-length search
// state. Zero means "not yet established" for either side.
type Bracket struct {
	Left, Right float64
}

// Collapsed reports whether the bracket has converged to within the
// relative tolerance used by the smoothing-length controller.
func (b Bracket) Collapsed() bool {
	return b.Left > 0 && b.Right > 0 && (b.Right-b.Left) < 1e-3*b.Left
}

// Established reports whether both sides of the bracket are set; a
// controller that reaches the "update bracket" step with neither side set
// after attempting an update is in a corrupted state.
func (b Bracket) Established() bool {
	return b.Left > 0 && b.Right > 0
}

// Particle is the universal entity shared by every kind that participates
// in the core. Position, Mass, and ID are read-only to this
// package's operations; Hsml, the Bracket, and DensityIterationDone are
// mutated by the density controller.
type Particle struct {
	ID   uint64
	Kind Kind

	Pos Vec3
	// Vel is the velocity predictor used in interactions, not necessarily
	// the particle's raw integrated velocity.
	Vel Vec3

	Mass float64
	Hsml float64

	TimeBin int
	Active  bool

	DensityIterationDone bool
	Bracket              Bracket

	// NumNgb is the kernel-weighted effective neighbour count accumulated
	// during the most recent density pass.
	NumNgb float64

	Gas *GasState
}

// IsGas reports whether this particle carries a GasState and participates
// in the mainstream density/gradient contract.
func (p *Particle) IsGas() bool {
	return p.Kind == Gas && p.Gas != nil
}

// Participates reports whether this particle takes part in the core at
// all.
func (p *Particle) Participates() bool {
	return p.Kind == Gas || p.Kind == Sink
}
