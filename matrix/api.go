// SPDX-License-Identifier: MIT
// File: api.go
// Role: public API facades.
//
// Every facade delegates to the canonical implementation.

package matrix

// ---------- Constructors & Utilities ----------

// NewIdentity returns I_n (n×n identity; ones on the diagonal, zeros elsewhere).
// Complexity: O(n^2) zeroing (constructor) + O(n) writes on the diagonal.
func NewIdentity(n int) (*Dense, error) {
	I, err := NewDense(n, n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		I.data[i*n+i] = 1.0
	}

	return I, nil
}

// ---------- Broadcast scaling ----------

// ScaleCols returns X·diag(scale): column j multiplied by scale[j].
// Errors: ErrNilMatrix, ErrDimensionMismatch (len(scale) != Cols).
// Complexity: O(r*c).
func ScaleCols(X Matrix, scale []float64) (*Dense, error) { return ewScaleCols(X, scale) }

// ScaleRows returns diag(scale)·X: row i multiplied by scale[i].
// Errors: ErrNilMatrix, ErrDimensionMismatch (len(scale) != Rows).
// Complexity: O(r*c).
func ScaleRows(X Matrix, scale []float64) (*Dense, error) { return ewScaleRows(X, scale) }

// ---------- Comparison ----------

// AllClose checks element-wise |a-b| ≤ atol + rtol*|b| for identical shapes.
// Returns (true,nil) if all elements satisfy the relation; (false,nil) otherwise.
// NaN != anything; +Inf equals +Inf; -Inf equals -Inf. Deterministic.
// Time: O(r*c). Space: O(1).
func AllClose(a, b Matrix, rtol, atol float64) (bool, error) {
	return ewAllClose(a, b, rtol, atol)
}

// ---------- Statistics ----------

// RowNormsL2 returns ‖X[i,:]‖₂ for every row i.
// Time: O(r*c). Space: O(r).
func RowNormsL2(X Matrix) ([]float64, error) { return rowNormsL2(X) }

// Mean returns the arithmetic mean of xs (0 for an empty slice).
func Mean(xs []float64) float64 { return mean(xs) }
