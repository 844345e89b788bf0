// SPDX-License-Identifier: MIT
// Package matrix_test contains tests for the randomized truncated SVD.
//
// Coverage:
//   - Exact recovery of low-rank inputs and of a known spectrum.
//   - Orthonormality of U and V, ordering of S, clamping of q.
//   - Determinism per seed, immutability of the input, sentinel errors.
//   - Relative cutoff of the spectral tail (WithEpsilon).
//   - Memory stays linear in the row count for tall inputs.

package matrix_test

import (
	"math"
	"runtime"
	"testing"

	"github.com/katalvlaran/lorainit/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lowRank returns X·Y with X (m×k) and Y (k×n) drawn from seeded U(-1,1).
func lowRank(t *testing.T, m, n, k int, seed int64) *matrix.Dense {
	t.Helper()
	x := RandFilledDense(t, m, k, seed)
	y := RandFilledDense(t, k, n, seed+1)
	a, err := matrix.Mul(x, y)
	require.NoError(t, err)

	return a
}

func TestLowRankSVD_RecoversLowRankInput(t *testing.T) {
	a := lowRank(t, 6, 5, 2, 7)

	u, s, v, err := matrix.LowRankSVD(a, 2, matrix.WithSeed(3))
	require.NoError(t, err)
	require.Len(t, s, 2)
	require.Equal(t, 6, u.Rows())
	require.Equal(t, 2, u.Cols())
	require.Equal(t, 5, v.Rows())
	require.Equal(t, 2, v.Cols())

	CompareClose(t, reconstruct(t, u, s, v), a, 0, AtolSVD)
}

func TestLowRankSVD_KnownSpectrum(t *testing.T) {
	a := NewFilledDense(t, 4, 4, []float64{
		0, 0, 3, 0,
		4, 0, 0, 0,
		0, 0, 0, 1,
		0, 2, 0, 0,
	})

	u, s, v, err := matrix.LowRankSVD(a, 4)
	require.NoError(t, err)
	sliceClose(t, s, []float64{4, 3, 2, 1}, 0, AtolSVD)
	CompareClose(t, reconstruct(t, u, s, v), a, 0, AtolSVD)

	// Leading singular pair: |u₀| = e₁, |v₀| = e₀.
	assert.InDelta(t, 1.0, math.Abs(MustAt(t, u, 1, 0)), AtolSVD)
	assert.InDelta(t, 1.0, math.Abs(MustAt(t, v, 0, 0)), AtolSVD)
}

func TestLowRankSVD_EpsilonCutoff(t *testing.T) {
	// Rank 2 sketched at q=4: the tail is round-off and reads as exact zeros.
	_, s, _, err := matrix.LowRankSVD(lowRank(t, 6, 5, 2, 7), 4, matrix.WithSeed(3))
	require.NoError(t, err)
	require.Len(t, s, 4)
	assert.Positive(t, s[1])
	assert.Equal(t, []float64{0, 0}, s[2:])

	a := NewFilledDense(t, 4, 4, []float64{
		4, 0, 0, 0,
		0, 3, 0, 0,
		0, 0, 2, 0,
		0, 0, 0, 1,
	})
	_, s, _, err = matrix.LowRankSVD(a, 4, matrix.WithEpsilon(0.6))
	require.NoError(t, err)
	sliceClose(t, s[:2], []float64{4, 3}, 0, AtolSVD)
	assert.Equal(t, []float64{0, 0}, s[2:])
}

func TestLowRankSVD_OrthonormalAndOrdered(t *testing.T) {
	a := RandFilledDense(t, 9, 6, 17)

	u, s, v, err := matrix.LowRankSVD(a, 4, matrix.WithPowerIters(2))
	require.NoError(t, err)

	id, err := matrix.NewIdentity(4)
	require.NoError(t, err)
	CompareClose(t, gram(t, u), id, 0, AtolSVD)
	CompareClose(t, gram(t, v), id, 0, AtolSVD)

	for i := 1; i < len(s); i++ {
		assert.GreaterOrEqual(t, s[i-1], s[i], "S must be non-increasing")
	}
	for _, sv := range s {
		assert.GreaterOrEqual(t, sv, 0.0)
	}
}

func TestLowRankSVD_ClampsRank(t *testing.T) {
	a := RandFilledDense(t, 3, 5, 2)

	u, s, v, err := matrix.LowRankSVD(a, 10)
	require.NoError(t, err)
	require.Len(t, s, 3)
	require.Equal(t, 3, u.Cols())
	require.Equal(t, 5, v.Rows())
	require.Equal(t, 3, v.Cols())

	// Full rank sketch reproduces the input exactly.
	CompareClose(t, reconstruct(t, u, s, v), a, 0, AtolSVD)
}

func TestLowRankSVD_DeterministicPerSeed(t *testing.T) {
	a := RandFilledDense(t, 8, 8, 99)
	before := a.CloneDense()

	u1, s1, v1, err := matrix.LowRankSVD(a, 3, matrix.WithSeed(42))
	require.NoError(t, err)
	u2, s2, v2, err := matrix.LowRankSVD(a, 3, matrix.WithSeed(42))
	require.NoError(t, err)

	require.Equal(t, s1, s2)
	require.Equal(t, u1.RawData(), u2.RawData())
	require.Equal(t, v1.RawData(), v2.RawData())

	// Input untouched.
	require.Equal(t, before.RawData(), a.RawData())
}

func TestLowRankSVD_ZeroMatrix(t *testing.T) {
	z := MustDense(t, 3, 4)

	_, s, _, err := matrix.LowRankSVD(z, 2)
	require.NoError(t, err)
	sliceClose(t, s, []float64{0, 0}, 0, AtolTiny)
}

func TestLowRankSVD_Errors(t *testing.T) {
	a := RandFilledDense(t, 3, 3, 1)

	_, _, _, err := matrix.LowRankSVD(a, 0)
	require.ErrorIs(t, err, matrix.ErrBadRank)

	_, _, _, err = matrix.LowRankSVD(nil, 2)
	require.ErrorIs(t, err, matrix.ErrNilMatrix)

	a.RawData()[0] = math.NaN()
	_, _, _, err = matrix.LowRankSVD(a, 2)
	require.ErrorIs(t, err, matrix.ErrNaNInf)
}

// A 4096×8 input at q=4 needs O(m·k) scratch. A rows×rows Q factor would
// allocate 128 MiB per orthonormalization.
func TestLowRankSVD_TallInputStaysThin(t *testing.T) {
	const m, n, q = 4096, 8, 4
	a := RandFilledDense(t, m, n, 11)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	u, s, _, err := matrix.LowRankSVD(a, q, matrix.WithPowerIters(4))
	runtime.ReadMemStats(&after)
	require.NoError(t, err)
	require.Len(t, s, q)
	require.Equal(t, m, u.Rows())

	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(8<<20))
	for j := range q {
		norm := 0.0
		for i := range m {
			v := u.RawData()[i*q+j]
			norm += v * v
		}
		assert.InDelta(t, 1, norm, 1e-9, "column %d", j)
	}
}
