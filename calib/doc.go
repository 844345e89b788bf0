// SPDX-License-Identifier: MIT

// Package calib estimates full-batch gradients over a calibration set and
// evaluates hypothesized weight updates without leaving a trace on the model.
//
// What is inside:
//
//   - Estimate: averages per-batch gradients over fixed-order mini-batches
//     into an off-model GradientMap. The running sum lives outside the
//     model's gradient buffers; the model's buffers are zeroed after every
//     batch and again on return.
//   - Accumulate: the explicit accumulator behind Estimate.
//   - WithMutation: snapshot → p -= η·Δ → run fn → restore. Restoration runs
//     in a defer, so it happens on normal return, on error and on panic.
//   - SearchEta: grid search over η using WithMutation and one evaluation
//     epoch per candidate; ties keep the earliest (largest) candidate.
//   - Subset: prefix view of a Dataset (the calibration subset).
//
// Contracts:
//
//	Model and Dataset are the only coupling to a training stack. Model.Step
//	runs forward and backward for one batch and reports the mean loss and
//	the gradients of trainable parameters. Gradient buffers returned by
//	Step may be reused by the model after ZeroGrad; calib never retains them.
//
// Determinism:
//
//	Batches are [i·bs, min((i+1)·bs, n)) in increasing i. Two runs over the
//	same data with the same model state produce bit-identical averages.
package calib
