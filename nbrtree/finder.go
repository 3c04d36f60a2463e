// Package nbrtree defines the external interface the core consumes: a
// queryable spatial tree (Finder) and its periodic box size. It has no
// collective-communication primitives; the simulated ranks exchange
// through package walk. The tree itself is an out-of-scope external
// collaborator; this package defines only the capability surface
// run_walk (package walk) is written against, plus a rank-scoped view
// (Scoped) and a brute-force Finder used by the tests and the cmd
// harness. It
// follows the "externally supplied, internally consumed" pattern of a
// mesh that is built once and only ever queried by the solver, never
// mutated by it.
package nbrtree

import "github.com/notargets/gosph/particle"

// KindMask filters candidate neighbours by particle.Kind. The density and
// gradient visitors both use MaskGas.
type KindMask uint8

const (
	MaskGas KindMask = 1 << iota
	MaskSink
	MaskOther
)

func MaskFor(k particle.Kind) KindMask {
	switch k {
	case particle.Gas:
		return MaskGas
	case particle.Sink:
		return MaskSink
	default:
		return MaskOther
	}
}

func (m KindMask) Admits(k particle.Kind) bool {
	return m&MaskFor(k) != 0
}

// Cursor is the node-list cursor into the remote tree. It advances across
// export passes so a partially-walked target resumes instead of
// restarting. The zero Cursor starts a walk from the root.
type Cursor struct {
	// Remaining holds implementation-defined node identifiers still to be
	// visited for this target. A Finder populates and consumes this; the
	// walk driver only ever tests Done() and threads the value through.
	Remaining []int
	// Started distinguishes "never queried" from "queried and exhausted"
	// so Done() on a zero-value Cursor (before the first call) returns
	// false. Finder implementations set it on their first return.
	Started bool
}

func (c Cursor) Done() bool {
	return c.Started && len(c.Remaining) == 0
}

// Finder is the tree capability the driver consumes:
// tree_find_ngb(center, radius, mask, cursor) -> (list of j, new_cursor)
type Finder interface {
	FindNeighbors(center particle.Vec3, radius float64, mask KindMask, cur Cursor) (neighbors []int, next Cursor, err error)
	// Particle returns the particle at local index idx. The tree and the
	// particle store are a single external collaborator from the core's
	// point of view.
	Particle(idx int) *particle.Particle
	// Len returns the size of the index space Particle accepts; for a
	// Scoped view this is the whole base store, not the owned subset.
	Len() int
	// BoxSize is the periodic box side length used by the nearest-image
	// metric; <= 0 disables wrapping.
	BoxSize() float64
}
