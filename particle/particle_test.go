package particle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBracketCollapsed(t *testing.T) {
	b := Bracket{Left: 1.0, Right: 1.0005}
	assert.True(t, b.Collapsed())

	b = Bracket{Left: 1.0, Right: 1.1}
	assert.False(t, b.Collapsed())

	b = Bracket{Left: 0, Right: 1.1}
	assert.False(t, b.Collapsed())
	assert.False(t, b.Established())
}

func TestKindParticipation(t *testing.T) {
	gas := &Particle{Kind: Gas, Gas: &GasState{}}
	assert.True(t, gas.IsGas())
	assert.True(t, gas.Participates())

	sink := &Particle{Kind: Sink}
	assert.False(t, sink.IsGas())
	assert.True(t, sink.Participates())

	other := &Particle{Kind: Other}
	assert.False(t, other.Participates())
}

func TestVec3Basics(t *testing.T) {
	a := Vec3{1, 0, 0}
	b := Vec3{0, 1, 0}
	assert.Equal(t, Vec3{0, 0, 1}, a.Cross(b))
	assert.InDelta(t, 0.0, a.Dot(b), 1e-12)
	assert.InDelta(t, 1.0, a.Norm(), 1e-12)
}

func TestPeriodicDelta(t *testing.T) {
	a := Vec3{0.01, 0, 0}
	b := Vec3{0.99, 0, 0}
	d := PeriodicDelta(a, b, 1.0)
	assert.InDelta(t, 0.02, d[0], 1e-9)
}

func TestObserversEmpty(t *testing.T) {
	var o Observers
	// Must be safe to call with no observers registered.
	o.NotifyDensityPair(PairContext{})
	o.NotifyGradientPair(PairContext{})
}
