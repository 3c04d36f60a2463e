// Package kernel implements Component A of the SPH core: the smoothing
// kernel W(r,h) and its derivatives, compactly supported on u = r/h ∈ [0,1].
//
// Grounded on the Kernel interface shape of andewx-dieselsph/fluid/kernel.go,
// re-derived in double precision with the analytic normalisations the
// source's densitykernel.h family (referenced from original_source/density.c
// as density_kernel_wk/dwk/dW/volume) requires.
package kernel

import "math"

// Kernel evaluates a compactly-supported radial smoothing function and its
// derivatives at u = r/h. All values are zero for u > 1.
type Kernel interface {
	// W returns the normalised weight at u = r/h, already scaled by h^-D
	// (the caller multiplies by nothing further to get W(r,h)).
	W(u float64) float64
	// DWDu returns dW/du at u = r/h, also h^-D scaled.
	DWDu(u float64) float64
	// Volume is V_kernel(h), the volume of the support sphere of radius h
	// in D dimensions (2h, πh², 4πh³/3). The density visitor multiplies
	// each W(r,h) by it, so N_ngb = Σ W·V_kernel is a kernel-weighted
	// neighbour count.
	Volume() float64
	// Dim is the spatial dimensionality D the kernel was built for.
	Dim() int
}

// CubicSpline is the classic B-spline (M4) kernel, dimension-generic via
// its normalisation constant.
type CubicSpline struct {
	h    float64
	dim  int
	norm float64
}

// NewCubicSpline builds a cubic-spline kernel of smoothing length h in D
// dimensions (D ∈ {1,2,3}).
func NewCubicSpline(h float64, dim int) *CubicSpline {
	return &CubicSpline{h: h, dim: dim, norm: cubicSplineNorm(dim) / math.Pow(h, float64(dim))}
}

func cubicSplineNorm(dim int) float64 {
	switch dim {
	case 1:
		return 4.0 / 3.0
	case 2:
		return 40.0 / (7.0 * math.Pi)
	default:
		return 8.0 / math.Pi
	}
}

func supportVolume(h float64, dim int) float64 {
	switch dim {
	case 1:
		return 2 * h
	case 2:
		return math.Pi * h * h
	default:
		return 4.0 / 3.0 * math.Pi * h * h * h
	}
}

func (k *CubicSpline) Dim() int { return k.dim }

func (k *CubicSpline) W(u float64) float64 {
	if u < 0 || u > 1 {
		return 0
	}
	var w float64
	switch {
	case u <= 0.5:
		w = 1 - 6*u*u + 6*u*u*u
	default:
		t := 1 - u
		w = 2 * t * t * t
	}
	return k.norm * w
}

func (k *CubicSpline) DWDu(u float64) float64 {
	if u < 0 || u > 1 {
		return 0
	}
	var dw float64
	switch {
	case u <= 0.5:
		dw = -12*u + 18*u*u
	default:
		t := 1 - u
		dw = -6 * t * t
	}
	return k.norm * dw
}

func (k *CubicSpline) Volume() float64 {
	return supportVolume(k.h, k.dim)
}

// WendlandC2 is the Wendland C2 kernel, preferred in the source for its
// absence of pairing instability at high neighbour counts.
type WendlandC2 struct {
	h    float64
	dim  int
	norm float64
}

func NewWendlandC2(h float64, dim int) *WendlandC2 {
	return &WendlandC2{h: h, dim: dim, norm: wendlandNorm(dim) / math.Pow(h, float64(dim))}
}

func wendlandNorm(dim int) float64 {
	switch dim {
	case 1:
		return 3.0 / 2.0
	case 2:
		return 7.0 / math.Pi
	default:
		return 21.0 / (2.0 * math.Pi)
	}
}

func (k *WendlandC2) Dim() int { return k.dim }

func (k *WendlandC2) W(u float64) float64 {
	if u < 0 || u > 1 {
		return 0
	}
	t := 1 - u
	t2 := t * t
	return k.norm * t2 * t2 * (1 + 4*u)
}

func (k *WendlandC2) DWDu(u float64) float64 {
	if u < 0 || u > 1 {
		return 0
	}
	t := 1 - u
	return k.norm * (-20 * u * t * t * t)
}

func (k *WendlandC2) Volume() float64 {
	return supportVolume(k.h, k.dim)
}

// NewKernel builds a kernel of the requested name ("cubic" or "wendland")
// at smoothing length h and dimension dim. Unknown names fall back to the
// cubic spline; rejecting an unrecognised name outright is left to
// configuration-time validation (config.Params.Validate) rather than a
// panic deep in the hot loop.
func NewKernel(name string, h float64, dim int) Kernel {
	switch name {
	case "wendland":
		return NewWendlandC2(h, dim)
	default:
		return NewCubicSpline(h, dim)
	}
}
