package gradient_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gosph/gradient"
	"github.com/notargets/gosph/nbrtree"
	"github.com/notargets/gosph/particle"
	"github.com/notargets/gosph/walk"
)

// TestDistributedPassMatchesSingleProcess checks that running the
// gradient pass across several simulated ranks recovers the same
// gradients a single-process Pass would, since every pair still gets
// resolved exactly once regardless of which rank discovers it first.
func TestDistributedPassMatchesSingleProcess(t *testing.T) {
	n := 30
	build := func() []*particle.Particle {
		ps := make([]*particle.Particle, n)
		for i := 0; i < n; i++ {
			x := float64(i) * 0.1
			ps[i] = newGas(uint64(i), particle.Vec3{x, 0, 0}, 0.5, 1.0+x, 1.0, particle.Vec3{})
		}
		return ps
	}

	single := build()
	finderSingle := nbrtree.NewBruteForce(single, 0)
	ctxSingle := walk.NewContext(2)
	active := make([]int, n)
	for i := range active {
		active[i] = i
	}
	cfg := gradient.PassConfig{Dim: 3, KernelName: "cubic", ConditionNumberDanger: 100}
	require.NoError(t, gradient.Pass(ctxSingle, finderSingle, active, allLocal, cfg))

	distributed := build()
	finderDist := nbrtree.NewBruteForce(distributed, 0)
	ctxDist := walk.NewContext(2)
	require.NoError(t, gradient.DistributedPass(ctxDist, finderDist, active, allLocal, cfg, 3, 1<<20))

	for i := 5; i < n-5; i++ {
		assert.InDelta(t, single[i].Gas.GradDensity[0], distributed[i].Gas.GradDensity[0], 1e-6,
			"particle %d: distributed and single-process gradients must agree", i)
		assert.False(t, math.IsNaN(distributed[i].Gas.GradDensity[0]))
	}
}

func TestDistributedPassSingleRankFallsBackToPass(t *testing.T) {
	ps := []*particle.Particle{
		newGas(0, particle.Vec3{0, 0, 0}, 0.5, 1.0, 1.0, particle.Vec3{}),
		newGas(1, particle.Vec3{0.2, 0, 0}, 0.5, 1.1, 1.0, particle.Vec3{}),
	}
	finder := nbrtree.NewBruteForce(ps, 0)
	ctx := walk.NewContext(2)
	cfg := gradient.PassConfig{Dim: 3, KernelName: "cubic", ConditionNumberDanger: 100}
	require.NoError(t, gradient.DistributedPass(ctx, finder, []int{0, 1}, allLocal, cfg, 1, 1<<20))
	assert.False(t, math.IsNaN(ps[0].Gas.GradDensity[0]))
}
