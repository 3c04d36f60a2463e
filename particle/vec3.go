// Package particle defines the per-particle data model shared by the
// density and gradient loops: positions, velocities, the gas sub-record,
// and the small sum type used to dispatch kind-specific behaviour.
package particle

import "math"

// Vec3 is a plain double-precision 3-vector. The core works in float64
// throughout (the source's MyDouble), so Vec3 does not need the float32
// specialization a graphics-facing vector type would.
type Vec3 [3]float64

func (v Vec3) Add(b Vec3) Vec3 {
	return Vec3{v[0] + b[0], v[1] + b[1], v[2] + b[2]}
}

func (v Vec3) Sub(b Vec3) Vec3 {
	return Vec3{v[0] - b[0], v[1] - b[1], v[2] - b[2]}
}

func (v Vec3) Scale(a float64) Vec3 {
	return Vec3{v[0] * a, v[1] * a, v[2] * a}
}

func (v Vec3) Dot(b Vec3) float64 {
	return v[0]*b[0] + v[1]*b[1] + v[2]*b[2]
}

func (v Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		v[1]*b[2] - v[2]*b[1],
		v[2]*b[0] - v[0]*b[2],
		v[0]*b[1] - v[1]*b[0],
	}
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Outer returns the outer product v ⊗ b as a 3x3 array, m[i][j] = v[i]·b[j].
func (v Vec3) Outer(b Vec3) [3][3]float64 {
	var m [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = v[i] * b[j]
		}
	}
	return m
}

// PeriodicDelta returns a - b under the nearest-image convention of a cubic
// periodic box of side boxSize. boxSize <= 0 disables wrapping.
func PeriodicDelta(a, b Vec3, boxSize float64) Vec3 {
	d := a.Sub(b)
	if boxSize <= 0 {
		return d
	}
	half := 0.5 * boxSize
	for k := 0; k < 3; k++ {
		if d[k] > half {
			d[k] -= boxSize
		} else if d[k] < -half {
			d[k] += boxSize
		}
	}
	return d
}
