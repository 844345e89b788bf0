// SPDX-License-Identifier: MIT
// File: distribution.go
// Role: simple-mode samplers.
//
// Fan conventions follow the layout of a linear weight: for a rows×cols
// factor fan_in = cols and fan_out = rows. A (rank×in) therefore has
// fan_in = in; B (out×rank) has fan_in = rank.
//
// Samplers draw from a caller-supplied math/rand/v2 generator in row-major
// order, so a fixed seed reproduces the factor bit for bit.

package adapter

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/katalvlaran/lorainit/matrix"
)

// factorRole tells the composite "kaiming" sampler which variant to use.
type factorRole int

const (
	roleA factorRole = iota
	roleB
)

// sample fills a fresh rows×cols factor from dist.
// std is consulted by DistGaussian only.
func sample(dist Distribution, role factorRole, rows, cols int, std float64, rng *rand.Rand) (*matrix.Dense, error) {
	out, err := matrix.NewDense(rows, cols)
	if err != nil {
		return nil, err
	}
	fanIn, fanOut := float64(cols), float64(rows)

	switch dist {
	case DistZeros:
		return out, nil
	case DistGaussian:
		fillNormal(out, std, rng)
	case DistUnit:
		fillNormal(out, 1/math.Sqrt(float64(max(rows, cols))), rng)
	case DistKaiming:
		if role == roleA {
			fillUniform(out, 1/math.Sqrt(fanIn), rng)
		} else {
			fillNormal(out, math.Sqrt2/math.Sqrt(fanIn), rng)
		}
	case DistKaimingUniform:
		// gain √(2/(1+a²)) with a = √5, bound = √3·gain/√fan_in
		fillUniform(out, 1/math.Sqrt(fanIn), rng)
	case DistKaimingNormal:
		fillNormal(out, math.Sqrt2/math.Sqrt(fanIn), rng)
	case DistFanOutKaiming:
		fillNormal(out, math.Sqrt2/math.Sqrt(fanOut), rng)
	case DistXavier:
		fillNormal(out, math.Sqrt(2/(fanIn+fanOut)), rng)
	case DistOrthogonal:
		fillOrthogonal(out, rng)
	default:
		return nil, configErrorf("distribution", dist, joinNames(distributionNames))
	}

	return out, nil
}

func fillNormal(m *matrix.Dense, std float64, rng *rand.Rand) {
	_ = m.Apply(draw(distuv.Normal{Mu: 0, Sigma: std, Src: rng})) // finite draws
}

func fillUniform(m *matrix.Dense, bound float64, rng *rand.Rand) {
	_ = m.Apply(draw(distuv.Uniform{Min: -bound, Max: bound, Src: rng}))
}

// draw feeds successive samples of d to Dense.Apply in row-major order.
func draw(d interface{ Rand() float64 }) func(i, j int, v float64) float64 {
	return func(_, _ int, _ float64) float64 { return d.Rand() }
}

// fillOrthogonal writes a matrix with orthonormal rows (rows ≤ cols) or
// orthonormal columns (rows > cols): Q of a Gaussian matrix, with column
// signs fixed by diag(R) so the result is uniformly distributed.
func fillOrthogonal(m *matrix.Dense, rng *rand.Rand) {
	rows, cols := m.Shape()
	tall, short := max(rows, cols), min(rows, cols)

	g := mat.NewDense(tall, short, nil)
	d := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	for i := 0; i < tall; i++ {
		for j := 0; j < short; j++ {
			g.Set(i, j, d.Rand())
		}
	}

	var qr mat.QR
	qr.Factorize(g)
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)

	data := m.RawData()
	for j := 0; j < short; j++ {
		sign := 1.0
		if r.At(j, j) < 0 {
			sign = -1
		}
		for i := 0; i < tall; i++ {
			v := sign * q.At(i, j)
			if rows >= cols {
				data[i*cols+j] = v
			} else {
				data[j*cols+i] = v
			}
		}
	}
}
