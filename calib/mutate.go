// SPDX-License-Identifier: MIT
// File: mutate.go
// Role: scoped, self-reverting parameter updates.

package calib

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lorainit/matrix"
	"github.com/katalvlaran/lorainit/weights"
)

// WithMutation runs fn while every parameter p named in deltas holds
// p - eta·deltas[name], then restores the exact pre-call values.
// Implementation:
//   - Stage 1: validate eta and the shape of every delta that has a live
//     parameter (names without one are ignored, nil deltas are skipped).
//   - Stage 2: deep-copy the affected parameters.
//   - Stage 3: apply p -= eta·Δ in sorted name order.
//   - Stage 4: run fn; a deferred restore copies every snapshot back.
//
// Behavior highlights:
//   - Restoration happens on normal return, on error and on panic (the
//     panic keeps propagating after the restore).
//   - Restoration is bit-exact: values are copied back, not re-added.
//   - Nothing is written when Stage 1 fails.
//
// Errors:
//   - ErrNilArgument (nil params or fn), ErrInvalidEta, ErrShapeMismatch
//     (validation), or fn's error unchanged.
//
// Complexity:
//   - Time O(Σ|p|) plus fn, Space O(Σ|p|) for snapshots.
func WithMutation(params weights.Params, deltas GradientMap, eta float64, fn func() error) error {
	if params == nil || fn == nil {
		return calibErrorf(opWithMutation, ErrNilArgument)
	}
	if math.IsNaN(eta) || math.IsInf(eta, 0) {
		return calibErrorf(opWithMutation, fmt.Errorf("eta=%v: %w", eta, ErrInvalidEta))
	}

	type target struct {
		live  *matrix.Dense
		delta *matrix.Dense
	}
	names := deltas.Names()
	targets := make([]target, 0, len(names))
	for _, name := range names {
		d := deltas[name]
		if d == nil {
			continue
		}
		p, ok := params.Lookup(name)
		if !ok {
			continue
		}
		if e := matrix.ValidateShape(d, p.Rows(), p.Cols()); e != nil {
			return calibErrorf(opWithMutation, fmt.Errorf("%q: %w: %w", name, ErrShapeMismatch, e))
		}
		targets = append(targets, target{live: p, delta: d})
	}

	snapshots := make([]*matrix.Dense, len(targets))
	for i, tg := range targets {
		snapshots[i] = tg.live.CloneDense()
	}
	defer func() {
		for i, tg := range targets {
			_ = tg.live.CopyFrom(snapshots[i]) // same shape by construction
		}
	}()

	for _, tg := range targets {
		_ = matrix.SubInPlace(tg.live, tg.delta, eta) // shapes validated above
	}

	return fn()
}
