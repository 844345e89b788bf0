// SPDX-License-Identifier: MIT
// File: estimate.go
// Role: full-batch gradient estimation over a calibration set.
//
// Algorithm:
//  1. For i = 0, 1, ...: batch_i = data[i·bs, min((i+1)·bs, n)).
//  2. Step(batch_i) → per-parameter gradients g_i.
//  3. running[name] += g_i[name] (first sighting clones g_i[name]).
//  4. ZeroGrad().
//  5. After the last batch, running[name] /= number of batches.
//
// Complexity:
//   - Time O(batches · (cost(Step) + Σ|g|)), Space O(Σ|g|) for the running sum.

package calib

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/katalvlaran/lorainit/matrix"
)

// Accumulate adds every gradient of batch into running and returns running.
//
// Behavior highlights:
//   - running owns its matrices: the first time a name is seen its gradient
//     is cloned, later batches are added into that clone. batch matrices are
//     never retained, so callers may zero or reuse them right after.
//   - nil entries in batch are skipped (no gradient for that parameter).
//   - A nil running map is allocated.
//
// Errors:
//   - ErrShapeMismatch when a gradient's shape differs from the running sum.
//     On error running may hold partial sums for names earlier in sorted order.
func Accumulate(running, batch GradientMap) (GradientMap, error) {
	if running == nil {
		running = make(GradientMap, len(batch))
	}
	for _, name := range batch.Names() {
		g := batch[name]
		if g == nil {
			continue
		}
		acc, ok := running[name]
		if !ok {
			running[name] = g.CloneDense()
			continue
		}
		// acc -= (-1)·g
		if err := matrix.SubInPlace(acc, g, -1); err != nil {
			return running, calibErrorf(opAccumulate, fmt.Errorf("%q: %w: %w", name, ErrShapeMismatch, err))
		}
	}

	return running, nil
}

// Estimate returns the mean per-batch gradient of model over data.
// Implementation:
//   - Stage 1: validate model, data, batchSize.
//   - Stage 2: fixed-order batches; Step, Accumulate, ZeroGrad per batch.
//   - Stage 3: divide each sum by the number of processed batches.
//
// Behavior highlights:
//   - ZeroGrad is deferred, so a failing batch or a cancelled context still
//     leaves no pending gradients on the model.
//   - The final partial batch counts as one batch.
//   - ctx is checked before every batch.
//
// Errors:
//   - ErrNilArgument, ErrBadBatchSize, ErrEmptyDataset.
//   - Dataset/Step failures are fatal and wrapped with the batch index.
//   - ctx.Err() on cancellation.
func Estimate(ctx context.Context, model Model, data Dataset, batchSize int, opts ...Option) (GradientMap, error) {
	if model == nil || data == nil {
		return nil, calibErrorf(opEstimate, ErrNilArgument)
	}
	if batchSize <= 0 {
		return nil, calibErrorf(opEstimate, fmt.Errorf("batchSize=%d: %w", batchSize, ErrBadBatchSize))
	}
	n := data.Len()
	if n <= 0 {
		return nil, calibErrorf(opEstimate, ErrEmptyDataset)
	}
	o := gatherOptions(opts...)
	log := o.logger.With(zap.String("op", opEstimate))

	defer model.ZeroGrad()

	var (
		running GradientMap
		batches int
		lo, hi  int
	)
	for lo = 0; lo < n; lo += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, calibErrorf(opEstimate, err)
		}
		hi = min(lo+batchSize, n)

		b, err := data.Batch(lo, hi)
		if err != nil {
			return nil, calibErrorf(opEstimate, fmt.Errorf("batch %d: %w", batches, err))
		}
		step, err := model.Step(ctx, b)
		if err != nil {
			return nil, calibErrorf(opEstimate, fmt.Errorf("batch %d: %w", batches, err))
		}

		grads := step.Grads
		if o.trainable != nil {
			grads = filter(grads, o.trainable)
		}
		if running, err = Accumulate(running, grads); err != nil {
			return nil, calibErrorf(opEstimate, fmt.Errorf("batch %d: %w", batches, err))
		}
		model.ZeroGrad()
		batches++

		log.Debug("batch accumulated",
			zap.Int("batch", batches-1),
			zap.Int("examples", hi-lo),
			zap.Float64("loss", step.Loss))
	}

	inv := 1 / float64(batches)
	for _, g := range running {
		_ = matrix.ScaleInPlace(g, inv) // non-nil by construction
	}
	log.Info("gradient estimated", zap.Int("batches", batches), zap.Int("params", len(running)))

	return running, nil
}

// filter returns the entries of g whose names keep accepts.
func filter(g GradientMap, keep func(string) bool) GradientMap {
	out := make(GradientMap, len(g))
	for name, m := range g {
		if keep(name) {
			out[name] = m
		}
	}

	return out
}
