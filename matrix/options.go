// SPDX-License-Identifier: MIT

// Package matrix: functional configuration for numeric policy and the
// randomized truncated SVD. This file defines:
//   - Option / Options (functional options with internal state),
//   - documented defaults (constants),
//   - WithX constructors with strong validation (panic on nonsensical values),
//   - gatherOptions helper (internal) that enforces invariants.
//
// Design goals:
//   - Deterministic behavior: no global state; randomness only via an explicit seed.
//   - No dead switches: each flag impacts behavior and is covered by tests.
//   - Safe by construction: panic only on invalid parameters (programmer error).
package matrix

// ---------- Defaults (single source of truth) ----------

// Numeric policy.
const (
	// DefaultEpsilon is the relative cutoff below which LowRankSVD reports a
	// singular value as zero.
	DefaultEpsilon = 1e-9

	// DefaultValidateNaNInf toggles strict finite-value validation on ingestion and Set.
	DefaultValidateNaNInf = true
)

// Randomized SVD policy.
const (
	// DefaultPowerIters is the number of subspace (power) iterations applied
	// to the Gaussian sketch before the final projection.
	DefaultPowerIters = 4

	// DefaultSeed seeds the Gaussian sketch when WithSeed is not supplied.
	DefaultSeed uint64 = 0
)

// ---------- Internal panic messages (no magic strings) ----------

const (
	panicEpsilonInvalid    = "matrix: WithEpsilon: eps must be finite, non-negative"
	panicPowerItersInvalid = "matrix: WithPowerIters: iterations must be >= 0"
)

// ---------- Public option type (functional) ----------

// Option mutates internal options. Safe to apply repeatedly (idempotent).
// Constructors MUST panic only on nonsensical values (programmer error).
type Option func(*Options)

// Options stores the effective configuration after applying Option setters.
// Fields are unexported; public entry points accept `...Option` and resolve
// them via gatherOptions.
type Options struct {
	// numeric policy
	eps float64 // >= 0; DefaultEpsilon

	// randomized SVD
	powerIters int    // >= 0; DefaultPowerIters
	seed       uint64 // DefaultSeed
}

// ---------- Constructors (WithX) ----------

// WithEpsilon sets the relative singular-value cutoff of LowRankSVD:
// values at or below eps·S[0] are reported as 0. eps = 0 keeps every value.
// Panics when eps is NaN, ±Inf or negative.
// Complexity: O(1).
func WithEpsilon(eps float64) Option {
	if isNonFinite(eps) || eps < 0 {
		panic(panicEpsilonInvalid)
	}

	return func(o *Options) { o.eps = eps }
}

// WithPowerIters sets the number of power iterations of LowRankSVD.
// More iterations sharpen the spectrum of slowly decaying inputs at the cost
// of two extra products with the input per iteration.
// Panics when n < 0.
func WithPowerIters(n int) Option {
	if n < 0 {
		panic(panicPowerItersInvalid)
	}

	return func(o *Options) { o.powerIters = n }
}

// WithSeed fixes the seed of the Gaussian sketch used by LowRankSVD.
func WithSeed(seed uint64) Option {
	return func(o *Options) { o.seed = seed }
}

// defaultOptions returns the package defaults.
func defaultOptions() Options {
	return Options{
		eps:        DefaultEpsilon,
		powerIters: DefaultPowerIters,
		seed:       DefaultSeed,
	}
}

// gatherOptions applies opts on top of defaults in order (last wins).
// nil options are skipped.
func gatherOptions(opts ...Option) Options {
	o := defaultOptions()
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	return o
}
