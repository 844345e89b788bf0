// SPDX-License-Identifier: MIT
// Package adapter: sentinel error set.
//
// ERROR PRIORITY (enforced by Initialize/Finalize, covered by tests):
// configuration -> rank -> gradient presence/shape -> numerical failure.
// Every check runs before the first write to a weight or factor.

package adapter

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration indicates an unknown or inconsistent
	// configuration value. Messages name the field and the accepted values.
	ErrInvalidConfiguration = errors.New("adapter: invalid configuration")

	// ErrMissingGradient indicates gradient mode without a gradient entry
	// for the target.
	ErrMissingGradient = errors.New("adapter: missing gradient")

	// ErrInvalidRank indicates a rank incompatible with the weight shape.
	ErrInvalidRank = errors.New("adapter: invalid rank")

	// ErrShapeMismatch indicates factors, gradients or weights whose shapes
	// disagree. Raised before any mutation.
	ErrShapeMismatch = errors.New("adapter: shape mismatch")

	// ErrNumericalInstability indicates a non-finite offset. Clip-triggered
	// rescaling is reported through Report and a warning, not this error.
	ErrNumericalInstability = errors.New("adapter: numerical instability")

	// ErrDegenerateGradient indicates an all-zero gradient, which has no
	// leading singular direction.
	ErrDegenerateGradient = errors.New("adapter: degenerate gradient")
)

// Operation tags.
const (
	opNewConfig   = "NewConfig"
	opLoadConfig  = "LoadConfig"
	opInitialize  = "Initialize"
	opFinalize    = "Finalize"
	opReinit      = "Reinit"
	opTargets     = "TargetsFromStore"
	opRelative    = "RelativeRank"
	opNewInitiali = "NewInitializer"
)

// adapterErrorf wraps err with an operation tag, preserving it via %w.
func adapterErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// configErrorf builds an ErrInvalidConfiguration naming field and accepted values.
func configErrorf(field string, got any, accepted string) error {
	return fmt.Errorf("%s=%v (accepted: %s): %w", field, got, accepted, ErrInvalidConfiguration)
}
