package nbrtree

import "github.com/notargets/gosph/particle"

// Scoped wraps a Finder so FindNeighbors only ever returns candidates
// whose global index is in owned. It models a single simulated rank's
// view of the particle store in package walk's distributed mode: a rank's
// own local walk must only ever touch particles it owns, with remote candidates reached exclusively through the
// export/import query protocol instead of direct lookup.
type Scoped struct {
	base  Finder
	owned map[int]bool
}

func NewScoped(base Finder, owned []int) *Scoped {
	m := make(map[int]bool, len(owned))
	for _, idx := range owned {
		m[idx] = true
	}
	return &Scoped{base: base, owned: m}
}

func (s *Scoped) Len() int                            { return s.base.Len() }
func (s *Scoped) Particle(idx int) *particle.Particle { return s.base.Particle(idx) }
func (s *Scoped) BoxSize() float64                    { return s.base.BoxSize() }

func (s *Scoped) FindNeighbors(center particle.Vec3, radius float64, mask KindMask, cur Cursor) (neighbors []int, next Cursor, err error) {
	all, next, err := s.base.FindNeighbors(center, radius, mask, cur)
	if err != nil {
		return nil, next, err
	}
	for _, idx := range all {
		if s.owned[idx] {
			neighbors = append(neighbors, idx)
		}
	}
	return neighbors, next, nil
}

// Owns reports whether idx is in this scope's owned set.
func (s *Scoped) Owns(idx int) bool {
	return s.owned[idx]
}
