// SPDX-License-Identifier: MIT
// Package adapter_test: shared fixtures.

package adapter_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lorainit/adapter"
	"github.com/katalvlaran/lorainit/matrix"
)

// relTol bounds ‖W' + s·B@A − W‖_F / ‖W‖_F for offset cancellation.
const relTol = 1e-5

func mustDense(t *testing.T, rows, cols int, data ...float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseFrom(rows, cols, data)
	require.NoError(t, err)

	return m
}

// diag builds a square diagonal matrix.
func diag(t *testing.T, d ...float64) *matrix.Dense {
	t.Helper()
	n := len(d)
	data := make([]float64, n*n)
	for i, v := range d {
		data[i*n+i] = v
	}

	return mustDense(t, n, n, data...)
}

// randDense returns a deterministic rows×cols matrix with entries in U(-1,1).
func randDense(t *testing.T, rows, cols int, seed int64) *matrix.Dense {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.Float64()*2 - 1
	}

	return mustDense(t, rows, cols, data...)
}

func mustConfig(t *testing.T, opts ...adapter.Option) adapter.Config {
	t.Helper()
	cfg, err := adapter.NewConfig(opts...)
	require.NoError(t, err)

	return cfg
}

func mustInit(t *testing.T, cfg adapter.Config, target adapter.Target, grads map[string]*matrix.Dense) *adapter.Factors {
	t.Helper()
	ini, err := adapter.NewInitializer(cfg)
	require.NoError(t, err)
	f, err := ini.Initialize(target, grads)
	require.NoError(t, err)

	return f
}

func frobenius(m *matrix.Dense) float64 {
	sum := 0.0
	for _, v := range m.RawData() {
		sum += v * v
	}

	return math.Sqrt(sum)
}

// cancellationError is ‖after + s·B@A − before‖_F / ‖before‖_F.
func cancellationError(t *testing.T, before, after *matrix.Dense, f *adapter.Factors) float64 {
	t.Helper()
	delta, err := f.Delta()
	require.NoError(t, err)
	merged, err := matrix.Add(after, delta)
	require.NoError(t, err)
	diff, err := matrix.Sub(merged, before)
	require.NoError(t, err)

	return frobenius(diff) / frobenius(before)
}

// absData returns |x| element-wise.
func absData(m *matrix.Dense) []float64 {
	out := make([]float64, len(m.RawData()))
	for i, v := range m.RawData() {
		out[i] = math.Abs(v)
	}

	return out
}
