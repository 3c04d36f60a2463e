// Package config holds the parameter bundle the core consumes:
// DesNumNgb, MaxNumNgbDeviation, MinGasHsml, MaxIter, and BufferSizeMiB,
// plus the dimensionality and kernel/limiter choices. Parsing follows
// InputParameters/InputParameters.go's yaml-tagged struct and
// ghodss/yaml.Unmarshal convention.
package config

import (
	"github.com/ghodss/yaml"

	"github.com/notargets/gosph/sphfault"
)

// Params is the configuration bundle consumed by sph.DensityPass and
// sph.GradientsPass.
type Params struct {
	// DesNumNgb is N*, the target kernel-weighted neighbour count.
	DesNumNgb float64 `yaml:"DesNumNgb"`
	// MaxNumNgbDeviation is Δ, the tolerance band around N*.
	MaxNumNgbDeviation float64 `yaml:"MaxNumNgbDeviation"`
	// MinGasHsml is H_min, the smoothing-length floor.
	MinGasHsml float64 `yaml:"MinGasHsml"`
	// MaxIter bounds both the smoothing-length controller and the
	// collective density iteration.
	MaxIter int `yaml:"MaxIter"`
	// BufferSizeMiB is checked to be positive by Validate; no pass reads
	// it. The distributed walk's export budget is ExportBufferMiB.
	BufferSizeMiB int `yaml:"BufferSizeMiB"`

	// Dim is the spatial dimensionality D used by the kernel, the dρ/dh
	// rescaling, and the Newton-like h update.
	Dim int `yaml:"Dim"`
	// KernelName selects the kernel family ("cubic" or "wendland").
	KernelName string `yaml:"KernelName"`
	// ConditionNumberDanger is the NV_T condition-number threshold above
	// which the gradient visitor falls back to the SPH estimator.
	ConditionNumberDanger float64 `yaml:"ConditionNumberDanger"`
	// LimiterBaseAlpha and LimiterMaxAlpha are range-checked by Validate;
	// the gradient pass does not read them. Its slope limiter uses a fixed
	// aggressiveness of 0.25, raised toward 0.5 (AggressivenessLimiter).
	LimiterBaseAlpha float64 `yaml:"LimiterBaseAlpha"`
	LimiterMaxAlpha  float64 `yaml:"LimiterMaxAlpha"`
	// LimiterOvershootTau is range-checked by Validate; the gradient pass
	// does not read it and limits every field with τ = 0 (LimitAll).
	LimiterOvershootTau float64 `yaml:"LimiterOvershootTau"`
	// BoxSize is not read by any pass: the periodic box side length comes
	// from the nbrtree.Finder's BoxSize.
	BoxSize float64 `yaml:"BoxSize"`
	// Workers bounds the per-process worker pool size for run_walk; 0
	// means "use GOMAXPROCS".
	Workers int `yaml:"Workers"`
	// Ranks is the number of simulated ranks sph.DensityPass and
	// sph.GradientsPass partition the particle set across for the
	// collective distributed walk; 1 (the default) runs the plain
	// single-process walk with no cross-rank exchange.
	Ranks int `yaml:"Ranks"`
	// ExportBufferMiB sizes the distributed walk's per-peer MailBox
	// budget; only consulted when Ranks > 1.
	ExportBufferMiB int `yaml:"ExportBufferMiB"`
}

// Default returns the parameter bundle used when no YAML file is
// supplied, matching the typical production ranges for these parameters.
func Default() Params {
	return Params{
		DesNumNgb:             32,
		MaxNumNgbDeviation:    1,
		MinGasHsml:            0,
		MaxIter:               150,
		BufferSizeMiB:         64,
		Dim:                   3,
		KernelName:            "cubic",
		ConditionNumberDanger: 100,
		LimiterBaseAlpha:      0.25,
		LimiterMaxAlpha:       0.5,
		LimiterOvershootTau:   0,
		BoxSize:               0,
		Workers:               0,
		Ranks:                 1,
		ExportBufferMiB:       64,
	}
}

// Parse unmarshals a YAML document into p, starting from Default() so a
// partial file only overrides the fields it names.
func Parse(data []byte) (Params, error) {
	p := Default()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks the preconditions that raise a ConfigError: N* ≤ Δ,
// negative tolerances, and the other out-of-range fields below.
func (p Params) Validate() error {
	switch {
	case p.DesNumNgb <= 0:
		return &sphfault.ConfigError{Field: "DesNumNgb", Reason: "must be positive"}
	case p.MaxNumNgbDeviation <= 0:
		return &sphfault.ConfigError{Field: "MaxNumNgbDeviation", Reason: "must be positive"}
	case p.DesNumNgb <= p.MaxNumNgbDeviation:
		return &sphfault.ConfigError{Field: "DesNumNgb", Reason: "must exceed MaxNumNgbDeviation"}
	case p.MinGasHsml < 0:
		return &sphfault.ConfigError{Field: "MinGasHsml", Reason: "must be non-negative"}
	case p.MaxIter <= 0:
		return &sphfault.ConfigError{Field: "MaxIter", Reason: "must be positive"}
	case p.BufferSizeMiB <= 0:
		return &sphfault.ConfigError{Field: "BufferSizeMiB", Reason: "must be positive"}
	case p.Dim < 1 || p.Dim > 3:
		return &sphfault.ConfigError{Field: "Dim", Reason: "must be 1, 2, or 3"}
	case p.KernelName != "cubic" && p.KernelName != "wendland":
		return &sphfault.ConfigError{Field: "KernelName", Reason: "must be \"cubic\" or \"wendland\""}
	case p.ConditionNumberDanger <= 0:
		return &sphfault.ConfigError{Field: "ConditionNumberDanger", Reason: "must be positive"}
	case p.Ranks < 1:
		return &sphfault.ConfigError{Field: "Ranks", Reason: "must be at least 1"}
	case p.Ranks > 1 && p.ExportBufferMiB <= 0:
		return &sphfault.ConfigError{Field: "ExportBufferMiB", Reason: "must be positive when Ranks > 1"}
	case p.LimiterBaseAlpha <= 0 || p.LimiterBaseAlpha > 0.5:
		return &sphfault.ConfigError{Field: "LimiterBaseAlpha", Reason: "must lie in (0, 0.5]"}
	case p.LimiterMaxAlpha < p.LimiterBaseAlpha || p.LimiterMaxAlpha > 0.5:
		return &sphfault.ConfigError{Field: "LimiterMaxAlpha", Reason: "must lie in [LimiterBaseAlpha, 0.5]"}
	case p.LimiterOvershootTau < 0:
		return &sphfault.ConfigError{Field: "LimiterOvershootTau", Reason: "must be non-negative"}
	}
	return nil
}
