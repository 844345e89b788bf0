// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Provide the reductions needed by adapter initialization: per-row L2
//     norms (magnitude vectors) and scalar means (mean √σ for weight-spectrum
//     scaling).
//
// Determinism & Performance:
//   - Fixed i→j traversal for all explicit loops.
//   - Dense fast-paths avoid At/Set and operate on row-major flat buffers.

package matrix

import "math"

// Operation name constants for unified error wrapping.
const (
	opRowNormsL2 = "RowNormsL2"
)

// rowNormsL2 computes ‖X[i,:]‖₂ = sqrt(Σ_j x_ij^2) for every row.
// Implementation:
//   - Stage 1: Validate X (non-nil).
//   - Stage 2: Compute per-row sums of squares deterministically (Dense fast-path; At fallback).
//
// Returns:
//   - []float64: norms (len = Rows(X)).
//
// Errors:
//   - ErrNilMatrix from validation; wrapped At errors from the fallback path.
//
// Complexity:
//   - Time O(r*c), Space O(r).
func rowNormsL2(X Matrix) ([]float64, error) {
	if err := ValidateNotNil(X); err != nil {
		return nil, matrixErrorf(opRowNormsL2, err)
	}

	r, c := X.Rows(), X.Cols()
	norms := make([]float64, r)

	var i, j int
	var sq, v float64

	if d, ok := X.(*Dense); ok {
		for i = 0; i < r; i++ {
			sq = 0.0
			base := i * c
			for j = 0; j < c; j++ {
				v = d.data[base+j]
				sq += v * v
			}
			norms[i] = math.Sqrt(sq)
		}

		return norms, nil
	}

	var err error
	for i = 0; i < r; i++ {
		sq = 0.0
		for j = 0; j < c; j++ {
			v, err = X.At(i, j)
			if err != nil {
				return nil, matrixErrorf(opRowNormsL2, err)
			}
			sq += v * v
		}
		norms[i] = math.Sqrt(sq)
	}

	return norms, nil
}

// mean returns Σx/len(x), or 0 for an empty slice.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := ZeroSum
	for _, x := range xs {
		sum += x
	}

	return sum / float64(len(xs))
}
