// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Randomized truncated SVD for large weight and gradient matrices.
//   - Dense factorizations (thin QR of the sketch, SVD of the projected
//     k×n block) are delegated to gonum; everything around them is explicit
//     and deterministic.
//
// Algorithm (range finder with subspace iteration):
//  1. Draw a Gaussian test matrix Ω (n×k), k = min(q, m, n).
//  2. Y = A·Ω; Q = orth(Y).
//  3. Repeat powerIters times: Q = orth(Aᵀ·Q); Q = orth(A·Q).
//  4. B = Qᵀ·A (k×n); B = Ũ·Σ·Vᵀ (thin SVD).
//  5. U = Q·Ũ.
//
// Complexity:
//   - Time O((2·powerIters+2)·m·n·k + (m+n)·k²).
//   - Space O((m+n)·k) besides a; every basis is thin.

package matrix

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/lapack/lapack64"
	"gonum.org/v1/gonum/mat"
)

const opLowRankSVD = "LowRankSVD"

// seedStream decorrelates the two PCG words derived from a single seed.
const seedStream = 0x9e3779b97f4a7c15

// LowRankSVD computes an approximate rank-k SVD of a, a ≈ U·diag(S)·Vᵀ,
// with k = min(q, rows, cols).
// Implementation:
//   - Stage 1: validate a (non-nil, finite) and q ≥ 1.
//   - Stage 2: sketch, power-iterate and project as described in the file header.
//   - Stage 3: copy gonum results back into *Dense values.
//
// Behavior highlights:
//   - S is sorted in non-increasing order.
//   - Values at or below eps·S[0] (WithEpsilon) are reported as exactly 0.
//   - U has orthonormal columns (rows×k); V has orthonormal columns (cols×k).
//   - a is never mutated.
//
// Inputs:
//   - a: matrix to factor.
//   - q: requested numerical rank (sketch width); clamped to min(rows, cols).
//   - opts: WithPowerIters, WithSeed, WithEpsilon.
//
// Errors:
//   - ErrNilMatrix, ErrBadRank (q < 1), ErrNaNInf (non-finite input), ErrSVDFailed.
//
// Determinism:
//   - Same input, q and seed yield identical output.
func LowRankSVD(a *Dense, q int, opts ...Option) (u *Dense, s []float64, v *Dense, err error) {
	if err = ValidateFinite(a); err != nil {
		return nil, nil, nil, matrixErrorf(opLowRankSVD, err)
	}
	if q < 1 {
		return nil, nil, nil, matrixErrorf(opLowRankSVD, fmt.Errorf("q=%d: %w", q, ErrBadRank))
	}
	o := gatherOptions(opts...)

	m, n := a.r, a.c
	k := min(q, m, n)
	rng := rand.New(rand.NewPCG(o.seed, o.seed^seedStream))

	A := mat.NewDense(m, n, a.data) // shared, read-only

	// Stage 2: Gaussian sketch Ω (n×k).
	omega := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			omega.Set(i, j, rng.NormFloat64())
		}
	}

	var y mat.Dense
	y.Mul(A, omega)
	Q := orthonormalBasis(&y, k)

	var z mat.Dense
	for it := 0; it < o.powerIters; it++ {
		z.Reset()
		z.Mul(A.T(), Q) // n×k
		P := orthonormalBasis(&z, k)
		y.Reset()
		y.Mul(A, P) // m×k
		Q = orthonormalBasis(&y, k)
	}

	// Stage 2: project and factor the small block.
	var b mat.Dense
	b.Mul(Q.T(), A) // k×n

	var svd mat.SVD
	if ok := svd.Factorize(&b, mat.SVDThin); !ok {
		return nil, nil, nil, matrixErrorf(opLowRankSVD, ErrSVDFailed)
	}
	s = svd.Values(nil)
	flushTail(s, o.eps)

	var ub, vb mat.Dense
	svd.UTo(&ub) // k×k
	svd.VTo(&vb) // n×k

	var uu mat.Dense
	uu.Mul(Q, &ub) // m×k

	// Stage 3: back to *Dense.
	return fromGonum(&uu), s, fromGonum(&vb), nil
}

// orthonormalBasis returns the thin Q factor (rows×k) of x, built in place
// by Householder QR (Geqrf) and explicit formation of the first k columns
// (Orgqr). x must have at least k rows and exactly k columns.
func orthonormalBasis(x *mat.Dense, k int) *mat.Dense {
	q := mat.DenseCopyOf(x)
	g := q.RawMatrix()
	tau := make([]float64, k)

	work := []float64{0}
	lapack64.Geqrf(g, tau, work, -1)
	work = make([]float64, max(k, int(work[0])))
	lapack64.Geqrf(g, tau, work, len(work))

	lapack64.Orgqr(g, tau, work[:1], -1)
	if need := int(work[0]); need > len(work) {
		work = make([]float64, need)
	}
	lapack64.Orgqr(g, tau, work, len(work))

	return q
}

// flushTail zeroes singular values at or below eps·s[0]. Rank-deficient
// inputs then report exact zeros instead of round-off residue.
func flushTail(s []float64, eps float64) {
	if len(s) == 0 {
		return
	}
	cut := eps * s[0]
	for i := range s {
		if s[i] <= cut {
			s[i] = 0
		}
	}
}

// fromGonum copies any gonum matrix into a fresh *Dense (row-major, unit stride).
func fromGonum(g mat.Matrix) *Dense {
	r, c := g.Dims()
	out := &Dense{r: r, c: c, data: make([]float64, r*c), validateNaNInf: DefaultValidateNaNInf}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.data[i*c+j] = g.At(i, j)
		}
	}

	return out
}
