// Package sphfault implements the core's fatal-error taxonomy. None of
// these are recoverable inside the core: all four variants surface as
// process-wide fatal termination once they reach a caller, the same
// contract original_source/density.c expresses with endrun(). The core
// returns them as typed errors instead of panicking mid-loop so a
// controlling harness (cmd/) can log a diagnostic and choose how to exit.
package sphfault

import "fmt"

// ConfigError reports a parameter bundle that violates a precondition,
// e.g. N* ≤ Δ or a negative tolerance. Detected at entry.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("sph: config error: field %q: %s", e.Field, e.Reason)
}

// ResourceError reports an export buffer that cannot hold even a single
// particle's node-list.
type ResourceError struct {
	BudgetBytes   int
	RequiredBytes int
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("sph: resource error: export buffer budget %d bytes cannot admit one particle (needs %d bytes)",
		e.BudgetBytes, e.RequiredBytes)
}

// ConvergenceError reports a particle that failed to satisfy the DONE
// predicate after MaxIter passes. It always carries a particle id, never
// a queue index.
type ConvergenceError struct {
	ParticleID uint64
	Hsml       float64
	Left       float64
	Right      float64
	NumNgb     float64
	Pos        [3]float64
	Iterations int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf(
		"sph: convergence error: particle id=%d failed to converge after %d iterations "+
			"(Hsml=%g Left=%g Right=%g NumNgb=%g Pos=%v)",
		e.ParticleID, e.Iterations, e.Hsml, e.Left, e.Right, e.NumNgb, e.Pos,
	)
}

// InvariantViolation reports a state the driver should never observe, e.g.
// DensityIterationDone already set when the particle is re-queued, or
// neither bracket side set when the controller reaches the "update
// bracket" step. It indicates memory corruption or a logic bug, not a
// data condition a caller can correct.
type InvariantViolation struct {
	ParticleID uint64
	Detail     string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("sph: invariant violation: particle id=%d: %s", e.ParticleID, e.Detail)
}
