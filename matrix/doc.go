// SPDX-License-Identifier: MIT

// Package matrix provides the dense linear-algebra layer used by the adapter
// initialization engine.
//
// What is inside:
//
//   - Dense: row-major float64 storage with bounds-checked At/Set and a
//     configurable NaN/Inf policy.
//   - Kernels: Add, Sub, Mul, Transpose, Scale and the in-place
//     SubInPlace/ScaleInPlace used when a weight must be mutated without
//     reallocating it.
//   - LowRankSVD: randomized truncated SVD (range finder + power iterations)
//     returning U (m×k), S (k) and V (n×k) with k = min(q, m, n).
//   - RoundTo: value-level emulation of fp32, bf16 and fp16 storage.
//   - RowNormsL2, MaxAbs, AllClose: reductions used by clipping and
//     magnitude-vector construction.
//
// Determinism:
//
//	Every loop has a fixed order. LowRankSVD draws its sketch from a seeded
//	source (WithSeed), so two calls with the same seed and input return the
//	same factors bit for bit.
//
// Usage:
//
//	w, _ := matrix.NewDenseFrom(4, 4, data)
//	u, s, v, err := matrix.LowRankSVD(w, 8, matrix.WithPowerIters(4))
package matrix
