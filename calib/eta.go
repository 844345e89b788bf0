// SPDX-License-Identifier: MIT
// File: eta.go
// Role: step-size grid search along a fixed update direction.

package calib

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/katalvlaran/lorainit/weights"
)

// Candidate is the mean evaluation loss observed for one step size.
type Candidate struct {
	Eta  float64
	Loss float64
}

// EtaResult is the outcome of SearchEta.
type EtaResult struct {
	// Best is the candidate with the lowest finite loss.
	Best Candidate
	// Candidates lists every evaluated candidate in grid order.
	Candidates []Candidate
}

// SearchEta evaluates params - η·grads for every η in the candidate grid and
// returns the η with the lowest mean loss.
// Implementation:
//   - For each η (grid order): WithMutation(params, grads, η, epoch), where
//     epoch is one pass over data in fixed-order batches of batchSize,
//     returning the mean of per-batch losses.
//
// Behavior highlights:
//   - Strict "<" comparison: on ties the earlier (larger) η wins.
//   - Non-finite losses are recorded but never selected.
//   - Parameters are restored after every candidate, including on failure.
//
// Errors:
//   - ErrNilArgument, ErrBadBatchSize, ErrEmptyDataset (validation).
//   - Any batch failure aborts the search (wrapped with η and batch index).
//   - ErrNoFiniteLoss when no candidate produced a finite loss.
func SearchEta(ctx context.Context, model Model, params weights.Params, data Dataset, batchSize int, grads GradientMap, opts ...Option) (EtaResult, error) {
	if model == nil || data == nil || params == nil {
		return EtaResult{}, calibErrorf(opSearchEta, ErrNilArgument)
	}
	if batchSize <= 0 {
		return EtaResult{}, calibErrorf(opSearchEta, fmt.Errorf("batchSize=%d: %w", batchSize, ErrBadBatchSize))
	}
	if data.Len() <= 0 {
		return EtaResult{}, calibErrorf(opSearchEta, ErrEmptyDataset)
	}
	o := gatherOptions(opts...)
	log := o.logger.With(zap.String("op", opSearchEta))

	var (
		res   = EtaResult{Candidates: make([]Candidate, 0, len(o.candidates))}
		found bool
	)
	for _, eta := range o.candidates {
		var loss float64
		err := WithMutation(params, grads, eta, func() error {
			var e error
			loss, e = evalEpoch(ctx, model, data, batchSize)
			return e
		})
		if err != nil {
			return EtaResult{}, calibErrorf(opSearchEta, fmt.Errorf("eta=%g: %w", eta, err))
		}

		c := Candidate{Eta: eta, Loss: loss}
		res.Candidates = append(res.Candidates, c)
		log.Info("candidate evaluated", zap.Float64("eta", eta), zap.Float64("loss", loss))

		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			continue
		}
		if !found || loss < res.Best.Loss {
			res.Best = c
			found = true
		}
	}
	if !found {
		return res, calibErrorf(opSearchEta, ErrNoFiniteLoss)
	}
	log.Info("eta selected", zap.Float64("eta", res.Best.Eta), zap.Float64("loss", res.Best.Loss))

	return res, nil
}

// evalEpoch returns the mean per-batch loss of one pass over data.
// Gradients produced by Step are discarded.
func evalEpoch(ctx context.Context, model Model, data Dataset, batchSize int) (float64, error) {
	defer model.ZeroGrad()

	n := data.Len()
	var (
		sum     float64
		batches int
	)
	for lo := 0; lo < n; lo += batchSize {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		b, err := data.Batch(lo, min(lo+batchSize, n))
		if err != nil {
			return 0, fmt.Errorf("batch %d: %w", batches, err)
		}
		step, err := model.Step(ctx, b)
		if err != nil {
			return 0, fmt.Errorf("batch %d: %w", batches, err)
		}
		model.ZeroGrad()
		sum += step.Loss
		batches++
	}

	return sum / float64(batches), nil
}
