// SPDX-License-Identifier: MIT

// Package adapter: post-initialization stabilization.
//
// Finalize brings freshly initialized factors into their storage format and
// makes the adapted model start from the pretrained function:
//
//	W ← W − s·B@A
//
// so that W + s·B@A equals the original W at step zero. LoRA-One gradient
// runs keep W unchanged.
//
// Everything is computed on scratch copies first. Weight and factors are
// written only after every check has passed, so an error leaves both as
// they were.
package adapter

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/katalvlaran/lorainit/matrix"
)

// Report describes what Finalize did.
type Report struct {
	// OffsetApplied is false for LoRA-One gradient runs.
	OffsetApplied bool
	// Clipped is set when the offset exceeded the weight range and was
	// rescaled by ClipRatio (< 1). A and B were scaled by √ClipRatio.
	Clipped   bool
	ClipRatio float64
}

// Finalize casts f to the configured precision (fp16 under weight
// decomposition) and subtracts the offset s·B@A from weight in place.
//
// Errors:
//   - ErrInvalidConfiguration: cfg fails Validate.
//   - ErrShapeMismatch: factor shapes disagree with weight, or a nil input.
//   - ErrNumericalInstability: the offset contains NaN or ±Inf.
//
// Complexity: O(out·in·rank) for the offset.
func Finalize(weight *matrix.Dense, f *Factors, cfg Config, opts ...RunOption) (Report, error) {
	o := gatherRunOptions(opts...)
	rep, err := finalize(weight, f, cfg, o.logger)
	if err != nil {
		return Report{}, adapterErrorf(opFinalize, err)
	}

	return rep, nil
}

func finalize(weight *matrix.Dense, f *Factors, cfg Config, log *zap.Logger) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	if err := checkFactors(weight, f); err != nil {
		return Report{}, err
	}

	// Stage 1: cast scratch copies.
	p := cfg.storagePrecision()
	a, b := f.A.CloneDense(), f.B.CloneDense()
	_ = matrix.RoundTo(a, p)
	_ = matrix.RoundTo(b, p)
	var mag []float64
	if f.Magnitude != nil {
		mag = append([]float64(nil), f.Magnitude...)
		matrix.RoundSlice(mag, p)
	}
	scratch := &Factors{A: a, B: b, Scaling: f.Scaling, Magnitude: mag}

	if cfg.skipsOffset() {
		commit(f, scratch)
		return Report{}, nil
	}

	// Stage 2: offset, finiteness, optional clip.
	offset, err := scratch.Delta()
	if err != nil {
		return Report{}, err
	}
	peakOff, _ := matrix.MaxAbs(offset)
	if math.IsNaN(peakOff) || math.IsInf(peakOff, 0) {
		return Report{}, fmt.Errorf("offset s*B@A: %w", ErrNumericalInstability)
	}

	rep := Report{OffsetApplied: true}
	if cfg.Clip && peakOff > 0 {
		peakW, _ := matrix.MaxAbs(weight)
		if ratio := peakW / peakOff; ratio < 1 {
			root := math.Sqrt(ratio)
			_ = matrix.ScaleInPlace(scratch.A, root)
			_ = matrix.ScaleInPlace(scratch.B, root)
			// The offset is rebuilt from the rounded factors that get committed.
			_ = matrix.RoundTo(scratch.A, p)
			_ = matrix.RoundTo(scratch.B, p)
			if offset, err = scratch.Delta(); err != nil {
				return Report{}, err
			}
			rep.Clipped, rep.ClipRatio = true, ratio
			log.Warn("offset clipped to weight range",
				zap.Float64("ratio", ratio),
				zap.Float64("max_abs_weight", peakW),
				zap.Float64("max_abs_offset", peakOff),
			)
		}
	}

	// Stage 3: commit.
	commit(f, scratch)
	_ = matrix.SubInPlace(weight, offset, 1)

	return rep, nil
}

// checkFactors validates f against an out×in weight.
func checkFactors(weight *matrix.Dense, f *Factors) error {
	if err := matrix.ValidateFinite(weight); err != nil {
		return fmt.Errorf("weight: %w", err)
	}
	if f == nil || f.A == nil || f.B == nil {
		return fmt.Errorf("nil factors: %w", ErrShapeMismatch)
	}
	out, in := weight.Shape()
	r := f.A.Rows()
	if err := matrix.ValidateShape(f.A, r, in); err != nil {
		return fmt.Errorf("A: %w: %w", ErrShapeMismatch, err)
	}
	if err := matrix.ValidateShape(f.B, out, r); err != nil {
		return fmt.Errorf("B: %w: %w", ErrShapeMismatch, err)
	}
	if f.Magnitude != nil {
		if err := matrix.ValidateVecLen(f.Magnitude, out); err != nil {
			return fmt.Errorf("magnitude: %w: %w", ErrShapeMismatch, err)
		}
	}

	return nil
}

// commit copies scratch factors into f.
func commit(f, scratch *Factors) {
	_ = f.A.CopyFrom(scratch.A)
	_ = f.B.CopyFrom(scratch.B)
	if f.Magnitude != nil {
		copy(f.Magnitude, scratch.Magnitude)
	}
}
