package nbrtree

import "github.com/notargets/gosph/particle"

// BruteForce is a trivial O(N) Finder over an in-memory particle slice. The
// package tests and the cmd demo/bench harness use it in place of a real
// spatial tree implementation, which is out of scope here. A single query is resolved in one call — the returned
// Cursor is always Done(), since there is no subnode structure to resume
// across export passes for a brute-force scan.
type BruteForce struct {
	particles []*particle.Particle
	boxSize   float64
}

func NewBruteForce(particles []*particle.Particle, boxSize float64) *BruteForce {
	return &BruteForce{particles: particles, boxSize: boxSize}
}

func (b *BruteForce) Len() int                        { return len(b.particles) }
func (b *BruteForce) Particle(idx int) *particle.Particle { return b.particles[idx] }
func (b *BruteForce) BoxSize() float64                 { return b.boxSize }

func (b *BruteForce) FindNeighbors(center particle.Vec3, radius float64, mask KindMask, cur Cursor) (neighbors []int, next Cursor, err error) {
	if cur.Started {
		// Already fully resolved on the first call; nothing left.
		return nil, Cursor{Started: true}, nil
	}
	r2 := radius * radius
	for idx, p := range b.particles {
		if !mask.Admits(p.Kind) {
			continue
		}
		d := particle.PeriodicDelta(center, p.Pos, b.boxSize)
		if d.Dot(d) < r2 {
			neighbors = append(neighbors, idx)
		}
	}
	next = Cursor{Started: true}
	return neighbors, next, nil
}
