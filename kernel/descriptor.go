package kernel

// Descriptor is the per-target-particle kernel object: h, 1/h,
// dimensionality, and the kernel's radial function evaluator. It wraps a
// Kernel so the density and gradient visitors never divide by h inline;
// every radial derivative combination used by the hot loop (dW/dr, dW/dh)
// lives here once.
type Descriptor struct {
	H, HInv float64
	Dim     int
	Kern    Kernel
}

// NewDescriptor builds the kernel descriptor for smoothing length h using
// the given kernel family ("cubic" or "wendland") in dim dimensions.
func NewDescriptor(name string, h float64, dim int) Descriptor {
	return Descriptor{H: h, HInv: 1.0 / h, Dim: dim, Kern: NewKernel(name, h, dim)}
}

// WK returns W(r,h).
func (d Descriptor) WK(r float64) float64 {
	return d.Kern.W(r * d.HInv)
}

// DWDR returns dW/dr at the given radius.
func (d Descriptor) DWDR(r float64) float64 {
	u := r * d.HInv
	return d.Kern.DWDu(u) * d.HInv
}

// DWDH returns the analytic dW/dh needed for the dρ/dh accumulator,
// derived from W(r,h) = h^-D f(r/h):
//
//	dW/dh = -(1/h) * (D*W(u) + u*dW/du)
func (d Descriptor) DWDH(r float64) float64 {
	u := r * d.HInv
	wk := d.Kern.W(u)
	dwk := d.Kern.DWDu(u)
	return -d.HInv * (float64(d.Dim)*wk + u*dwk)
}

// InSupport reports whether r lies within the kernel's compact support.
func (d Descriptor) InSupport(r float64) bool {
	return r >= 0 && r < d.H
}
