// SPDX-License-Identifier: MIT
// Package calib: sentinel error set.
// Every message is prefixed with "calib: ..."; operations wrap these with an
// operation tag via calibErrorf and callers match with errors.Is.

package calib

import (
	"errors"
	"fmt"
)

var (
	// ErrBadBatchSize indicates batchSize <= 0.
	ErrBadBatchSize = errors.New("calib: batch size must be > 0")

	// ErrEmptyDataset indicates a dataset with no examples.
	ErrEmptyDataset = errors.New("calib: dataset is empty")

	// ErrNilArgument indicates a nil model, dataset, parameter store or callback.
	ErrNilArgument = errors.New("calib: nil argument")

	// ErrShapeMismatch indicates a delta or gradient whose shape disagrees
	// with the parameter (or running sum) it is applied to.
	ErrShapeMismatch = errors.New("calib: shape mismatch")

	// ErrInvalidEta indicates a NaN or infinite step size.
	ErrInvalidEta = errors.New("calib: eta must be finite")

	// ErrNoFiniteLoss indicates that every eta candidate produced a
	// non-finite mean loss.
	ErrNoFiniteLoss = errors.New("calib: no candidate produced a finite loss")
)

// Operation tags.
const (
	opEstimate     = "Estimate"
	opAccumulate   = "Accumulate"
	opWithMutation = "WithMutation"
	opSearchEta    = "SearchEta"
	opSubset       = "Subset"
)

// calibErrorf wraps err with an operation tag, preserving it via %w.
func calibErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}
