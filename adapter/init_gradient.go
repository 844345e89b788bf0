// SPDX-License-Identifier: MIT

package adapter

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lorainit/matrix"
)

// initGradient factors the estimated gradient g (already validated against
// the weight) and applies the direction and scale policy.
//
// LoRA-One: U, S, V = svd(-G)
//
//	B = U[:, :r]·diag(√S[:r])/√S₀   A = diag(√S[:r])·Vᵀ[:r, :]/√S₀
//
// LoRA-GA: U, S, V = svd(G)
//
//	B = U[:, r:2r]                  A = Vᵀ[:r, :]
//
// Scale policies:
//
//	gd:      A, B divided by s
//	unit:    unchanged
//	stable:  LoRA-One divides by √γ; LoRA-GA multiplies by out^¼/√γ
//	weightS: A, B multiplied by mean(√(S_W[:r]/s)) of the weight spectrum
func initGradient(cfg Config, t Target, g *matrix.Dense, seed uint64) (a, b *matrix.Dense, err error) {
	r := t.Rank
	out, _ := t.Weight.Shape()

	src := g
	need := r
	if cfg.Direction == DirectionLoRAOne {
		if src, err = matrix.Scale(g, -1); err != nil {
			return nil, nil, err
		}
	} else {
		need = 2 * r
	}

	u, s, v, err := matrix.LowRankSVD(src, max(cfg.GradientRank, need),
		matrix.WithPowerIters(cfg.GradientPowerIters), matrix.WithSeed(seed))
	if err != nil {
		return nil, nil, err
	}
	if len(s) == 0 || s[0] == 0 {
		return nil, nil, ErrDegenerateGradient
	}

	switch cfg.Direction {
	case DirectionLoRAOne:
		if a, b, err = topFactors(u, v, 0, r); err != nil {
			return nil, nil, err
		}
		w := make([]float64, r)
		s0 := math.Sqrt(s[0])
		for i := range w {
			w[i] = math.Sqrt(s[i]) / s0
		}
		if a, b, err = scaleBoth(a, b, w); err != nil {
			return nil, nil, err
		}
	case DirectionLoRAGA:
		if a, b, err = topFactors(u, v, r, r); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, configErrorf("direction", cfg.Direction, joinNames(directionNames))
	}

	var k float64
	switch cfg.Scale {
	case ScaleGD:
		k = 1 / t.Scaling
	case ScaleUnit:
		k = 1
	case ScaleStable:
		k = 1 / math.Sqrt(cfg.Gamma)
		if cfg.Direction == DirectionLoRAGA {
			k *= math.Pow(float64(out), 0.25)
		}
	case ScaleWeightS:
		if k, err = weightSpectrumScale(cfg, t, seed); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, configErrorf("scale", cfg.Scale, scaleList(ModeGradient))
	}
	_ = matrix.ScaleInPlace(a, k)
	_ = matrix.ScaleInPlace(b, k)

	return a, b, nil
}

// weightSpectrumScale returns mean_i √(S_W[i]/s) over the leading rank
// singular values of the weight.
func weightSpectrumScale(cfg Config, t Target, seed uint64) (float64, error) {
	_, s, _, err := matrix.LowRankSVD(t.Weight, weightSVDWidth*t.Rank,
		matrix.WithPowerIters(cfg.SVDPowerIters), matrix.WithSeed(seed))
	if err != nil {
		return 0, err
	}
	if len(s) < t.Rank {
		return 0, fmt.Errorf("need %d weight singular values, got %d: %w", t.Rank, len(s), ErrInvalidRank)
	}
	roots := make([]float64, t.Rank)
	for i := range roots {
		roots[i] = math.Sqrt(s[i] / t.Scaling)
	}

	return matrix.Mean(roots), nil
}
