package walk_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gosph/kernel"
	"github.com/notargets/gosph/nbrtree"
	"github.com/notargets/gosph/particle"
	"github.com/notargets/gosph/walk"
)

func gridParticles(n int, spacing float64) []*particle.Particle {
	ps := make([]*particle.Particle, n)
	for i := 0; i < n; i++ {
		ps[i] = &particle.Particle{
			ID:     uint64(i),
			Kind:   particle.Gas,
			Pos:    particle.Vec3{float64(i) * spacing, 0, 0},
			Mass:   1,
			Hsml:   1.5 * spacing,
			Active: true,
			Gas:    &particle.GasState{},
		}
	}
	return ps
}

func TestRunWalkCountsNeighborsOnce(t *testing.T) {
	ps := gridParticles(5, 1.0)
	finder := nbrtree.NewBruteForce(ps, 0)
	ctx := walk.NewContext(2)

	var mu sync.Mutex
	counts := make(map[int]int)

	spec := walk.WalkSpec[int]{
		IsActive: func(idx int) bool { return ps[idx].Active },
		InitScratch: func(idx int) walk.Scratch {
			return walk.Scratch{
				Kernel: kernel.NewDescriptor("cubic", ps[idx].Hsml, 1),
				Radius: ps[idx].Hsml,
				Mask:   nbrtree.MaskGas,
			}
		},
		VisitPair: func(targetIdx int, scratch *walk.Scratch, out *int, mode walk.Mode, neighborIdx int, neighbor *particle.Particle, r float64, dx particle.Vec3) {
			*out++
		},
		ReduceResult: func(targetIdx int, out int, mode walk.Mode) {
			mu.Lock()
			counts[targetIdx] = out
			mu.Unlock()
		},
		Finder: finder,
	}

	active := []int{0, 1, 2, 3, 4}
	require.NoError(t, walk.RunWalk(ctx, spec, active))

	for i := 0; i < 5; i++ {
		var want int
		// The target itself is visited as a zero-distance candidate.
		for j := 0; j < 5; j++ {
			dist := float64(j - i)
			if dist < 0 {
				dist = -dist
			}
			if dist < ps[i].Hsml {
				want++
			}
		}
		assert.Equal(t, want, counts[i], "particle %d neighbor count", i)
	}
}

func TestRunWalkEmptyActiveIsNoop(t *testing.T) {
	ps := gridParticles(3, 1.0)
	finder := nbrtree.NewBruteForce(ps, 0)
	ctx := walk.NewContext(1)
	spec := walk.WalkSpec[int]{
		IsActive:     func(idx int) bool { return true },
		InitScratch:  func(idx int) walk.Scratch { return walk.Scratch{Radius: 1} },
		VisitPair:    func(int, *walk.Scratch, *int, walk.Mode, int, *particle.Particle, float64, particle.Vec3) {},
		ReduceResult: func(int, int, walk.Mode) { t.Fatal("should not reduce with no active particles") },
		Finder:       finder,
	}
	require.NoError(t, walk.RunWalk(ctx, spec, nil))
}

// countingVisitor implements walk.RemoteVisitor by counting, for each
// exported target, how many of a peer rank's owned particles fall within
// range. It is deliberately simple: no kernel weighting, just a count, so
// the test can check the distributed exchange's arithmetic directly
// against a brute-force ground truth.
type countingVisitor struct {
	particles []*particle.Particle
	radius    float64
}

func (v *countingVisitor) SearchRadius(idx int) float64 { return v.radius }

func (v *countingVisitor) BuildQuery(idx int) walk.Query {
	return walk.Query{Pos: v.particles[idx].Pos, Hsml: v.radius, Kind: particle.Gas}
}

func (v *countingVisitor) SecondaryPass(scoped *nbrtree.Scoped, radius float64, q walk.Query) walk.Result {
	neighbors, _, err := scoped.FindNeighbors(q.Pos, radius, nbrtree.MaskGas, nbrtree.Cursor{})
	if err != nil {
		return walk.Result{}
	}
	return walk.Result{NumNgb: float64(len(neighbors))}
}

type accumulator struct {
	mu     sync.Mutex
	totals map[int]float64
}

func (a *accumulator) Accumulate(targetIdx int, res walk.Result) {
	a.mu.Lock()
	a.totals[targetIdx] += res.NumNgb
	a.mu.Unlock()
}

func TestRunWalkDistributedCrossRankCounts(t *testing.T) {
	ps := gridParticles(6, 1.0)
	base := nbrtree.NewBruteForce(ps, 0)
	pm := walk.NewPartitionMap(2, 6)

	ranks := make([]*walk.RankContext, 2)
	for r := 0; r < 2; r++ {
		lo, hi := pm.Range(r)
		owned := make([]int, 0, hi-lo)
		for i := lo; i < hi; i++ {
			owned = append(owned, i)
		}
		ranks[r] = &walk.RankContext{ID: r, Finder: nbrtree.NewScoped(base, owned), Active: owned}
	}

	acc := &accumulator{totals: make(map[int]float64)}
	v := &countingVisitor{particles: ps, radius: 1.5}
	av := &distributedVisitor{countingVisitor: v, accumulator: acc}
	require.NoError(t, walk.RunWalkDistributed(ranks, av, 1<<20))

	for r := 0; r < 2; r++ {
		lo, hi := pm.Range(r)
		for i := lo; i < hi; i++ {
			var wantRemote int
			for j := 0; j < 6; j++ {
				if j >= lo && j < hi {
					continue // same rank, not part of the remote exchange
				}
				if ps[i].Pos.Sub(ps[j].Pos).Norm() < 1.5 {
					wantRemote++
				}
			}
			acc.mu.Lock()
			got := acc.totals[i]
			acc.mu.Unlock()
			assert.Equal(t, float64(wantRemote), got, "particle %d cross-rank neighbor count", i)
		}
	}
}

// distributedVisitor composes countingVisitor's query-building with
// accumulator's fold step into the single walk.RemoteVisitor the driver
// wants; kept separate from both so neither needs to know about the other.
type distributedVisitor struct {
	*countingVisitor
	*accumulator
}

func (d *distributedVisitor) Accumulate(targetIdx int, res walk.Result) {
	d.accumulator.Accumulate(targetIdx, res)
}

func TestRunWalkDistributedSingleRankIsNoop(t *testing.T) {
	ps := gridParticles(3, 1.0)
	base := nbrtree.NewBruteForce(ps, 0)
	rk := &walk.RankContext{ID: 0, Finder: nbrtree.NewScoped(base, []int{0, 1, 2}), Active: []int{0, 1, 2}}
	v := &countingVisitor{particles: ps, radius: 1.5}
	acc := &accumulator{totals: make(map[int]float64)}
	av := &distributedVisitor{countingVisitor: v, accumulator: acc}
	require.NoError(t, walk.RunWalkDistributed([]*walk.RankContext{rk}, av, 1<<20))
	assert.Empty(t, acc.totals)
}
