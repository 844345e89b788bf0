// SPDX-License-Identifier: MIT

package adapter

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lorainit/matrix"
)

// weightSVDWidth is the sketch width of weight SVDs per unit of rank.
const weightSVDWidth = 4

// topFactors slices singular vectors into factors: B0 = U[:, from:from+r]
// (out×r) and A0 = Vᵀ[:r, :] (r×in). from > 0 pairs a lower block of left
// vectors with the leading right vectors.
func topFactors(u, v *matrix.Dense, from, rank int) (a0, b0 *matrix.Dense, err error) {
	if u.Cols() < from+rank {
		return nil, nil, fmt.Errorf("need %d singular triplets, got %d: %w", from+rank, u.Cols(), ErrInvalidRank)
	}
	if b0, err = u.ColRange(from, from+rank); err != nil {
		return nil, nil, err
	}
	vr, err := v.ColRange(0, rank)
	if err != nil {
		return nil, nil, err
	}
	if a0, err = matrix.Transpose(vr); err != nil {
		return nil, nil, err
	}

	return a0, b0, nil
}

// initSVD factors the weight with a randomized SVD of width 4·rank and
// applies the scale policy:
//
//	default:    B = U·√(S/s), A = √(S/s)·Vᵀ  so that s·B@A is the rank-r truncation of W
//	stable:     B = U·out^¼/√γ, A = Vᵀ·in^¼/√γ
//	unit:       B = U, A = Vᵀ
//	normalized: B = U·√S/√ΣS·√r, A = √S/√ΣS·√r·Vᵀ
func initSVD(cfg Config, t Target, seed uint64) (a, b *matrix.Dense, err error) {
	out, in := t.Weight.Shape()
	r := t.Rank

	u, s, v, err := matrix.LowRankSVD(t.Weight, weightSVDWidth*r,
		matrix.WithPowerIters(cfg.SVDPowerIters), matrix.WithSeed(seed))
	if err != nil {
		return nil, nil, err
	}
	a, b, err = topFactors(u, v, 0, r)
	if err != nil {
		return nil, nil, err
	}
	sr := s[:r]

	switch cfg.Scale {
	case ScaleDefault:
		root := make([]float64, r)
		for i, x := range sr {
			root[i] = math.Sqrt(x / t.Scaling)
		}
		return scaleBoth(a, b, root)
	case ScaleStable:
		g := math.Sqrt(cfg.Gamma)
		_ = matrix.ScaleInPlace(b, math.Pow(float64(out), 0.25)/g)
		_ = matrix.ScaleInPlace(a, math.Pow(float64(in), 0.25)/g)
	case ScaleUnit:
	case ScaleNormalized:
		sum := 0.0
		for _, x := range sr {
			sum += x
		}
		if sum == 0 {
			return nil, nil, fmt.Errorf("zero weight spectrum: %w", ErrNumericalInstability)
		}
		w := make([]float64, r)
		for i, x := range sr {
			w[i] = math.Sqrt(x) / math.Sqrt(sum) * math.Sqrt(float64(r))
		}
		return scaleBoth(a, b, w)
	default:
		return nil, nil, configErrorf("scale", cfg.Scale, scaleList(ModeSVD))
	}

	return a, b, nil
}

// scaleBoth multiplies column i of b and row i of a by w[i].
func scaleBoth(a, b *matrix.Dense, w []float64) (*matrix.Dense, *matrix.Dense, error) {
	bs, err := matrix.ScaleCols(b, w)
	if err != nil {
		return nil, nil, err
	}
	as, err := matrix.ScaleRows(a, w)
	if err != nil {
		return nil, nil, err
	}

	return as, bs, nil
}
