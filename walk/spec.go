package walk

import (
	"github.com/notargets/gosph/kernel"
	"github.com/notargets/gosph/nbrtree"
	"github.com/notargets/gosph/particle"
)

// Mode is mode ∈ {PRIMARY, SECONDARY}, extended with PrimaryAccum for the
// reduce step that folds an imported SECONDARY result back into the
// primary accumulator: the owner of i reduces it with mode = PRIMARY_ACCUM.
type Mode uint8

const (
	Primary Mode = iota
	Secondary
	PrimaryAccum
)

// Scratch is the per-target neighbor-iteration scratch: kernel
// descriptor, search radius, and kind mask. Symmetric records
// whether the query radius should be tested against both i's and j's
// kernels (gradient pass) or only the target's own h (density pass,
// "asymmetric; query uses target's h only").
type Scratch struct {
	Kernel    kernel.Descriptor
	Radius    float64
	Mask      nbrtree.KindMask
	Symmetric bool
}

// WalkSpec binds the five callables a tree-walk driver needs: is_active,
// fill_query (folded into InitScratch, since this Go rendition keeps the
// query implicit in the target index plus Scratch rather than
// serialising a separate Q value for the local-only path),
// neighbor_iter (VisitPair), reduce_result, and visit (Finder,
// consumed from package nbrtree).
type WalkSpec[R any] struct {
	IsActive    func(idx int) bool
	InitScratch func(idx int) Scratch
	// VisitPair is neighbor_iter: called once per candidate neighbor
	// within the target's search radius. mode is Primary for the
	// target's own local/remote walk.
	VisitPair func(targetIdx int, scratch *Scratch, out *R, mode Mode, neighborIdx int, neighbor *particle.Particle, r float64, dx particle.Vec3)
	// ReduceResult is reduce_result(i, R, mode); mode is Primary for a
	// wholly local reduction or PrimaryAccum when folding in an imported
	// SECONDARY result.
	ReduceResult func(targetIdx int, out R, mode Mode)
	Finder       nbrtree.Finder
}
