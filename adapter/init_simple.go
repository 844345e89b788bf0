// SPDX-License-Identifier: MIT

package adapter

import (
	"math"
	"math/rand/v2"

	"github.com/katalvlaran/lorainit/matrix"
)

// initSimple samples A (rank×in) then B (out×rank) from the configured
// distributions. The stable policy multiplies B by out^¼/√γ and A by in^¼/√γ.
func initSimple(cfg Config, t Target, rng *rand.Rand) (a, b *matrix.Dense, err error) {
	out, in := t.Weight.Shape()

	if a, err = sample(cfg.LoraA, roleA, t.Rank, in, cfg.StdA, rng); err != nil {
		return nil, nil, err
	}
	if b, err = sample(cfg.LoraB, roleB, out, t.Rank, cfg.StdB, rng); err != nil {
		return nil, nil, err
	}

	if cfg.Scale == ScaleStable {
		g := math.Sqrt(cfg.Gamma)
		_ = matrix.ScaleInPlace(b, math.Pow(float64(out), 0.25)/g)
		_ = matrix.ScaleInPlace(a, math.Pow(float64(in), 0.25)/g)
	}

	return a, b, nil
}
