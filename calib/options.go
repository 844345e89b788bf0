// SPDX-License-Identifier: MIT

// Package calib: functional options shared by Estimate and SearchEta.
//
// Design goals:
//   - No global state; every knob is passed explicitly.
//   - Panic only on nonsensical values (programmer error).
package calib

import (
	"math"

	"go.uber.org/zap"
)

// DefaultEtaCandidates is the η grid searched by SearchEta, largest first.
var DefaultEtaCandidates = []float64{10, 5, 1, 0.5, 0.1, 0.05, 0.01, 0.005, 0.001, 0.0005, 0.0001}

const (
	panicCandidatesEmpty   = "calib: WithCandidates: at least one candidate required"
	panicCandidatesInvalid = "calib: WithCandidates: candidates must be finite"
)

// Option mutates internal options.
type Option func(*Options)

// Options stores the effective configuration after applying Option setters.
type Options struct {
	logger     *zap.Logger
	candidates []float64
	trainable  func(name string) bool
}

// WithLogger routes progress and diagnostics to l. nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCandidates replaces the η grid. Order matters: on equal losses the
// earlier candidate wins. The slice is copied.
// Panics on an empty grid or a non-finite value.
func WithCandidates(etas ...float64) Option {
	if len(etas) == 0 {
		panic(panicCandidatesEmpty)
	}
	cp := make([]float64, len(etas))
	for i, e := range etas {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			panic(panicCandidatesInvalid)
		}
		cp[i] = e
	}

	return func(o *Options) { o.candidates = cp }
}

// WithTrainable restricts Estimate to parameters accepted by keep.
// Gradients for other names are dropped before accumulation.
func WithTrainable(keep func(name string) bool) Option {
	return func(o *Options) { o.trainable = keep }
}

func gatherOptions(opts ...Option) Options {
	o := Options{
		logger:     zap.NewNop(),
		candidates: DefaultEtaCandidates,
	}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	return o
}
