// SPDX-License-Identifier: MIT
package linmodel_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lorainit/linmodel"
)

func TestDataset_Batch(t *testing.T) {
	d := linmodel.Dataset{
		{X: []float64{1}, Y: []float64{1}},
		{X: []float64{2}, Y: []float64{2}},
		{X: []float64{3}, Y: []float64{3}},
	}

	b, err := d.Batch(1, 3)
	require.NoError(t, err)
	require.Equal(t, 2, b.Len())
	assert.Equal(t, 2.0, b.(linmodel.Batch)[0].X[0])

	for _, r := range [][2]int{{-1, 1}, {2, 2}, {1, 4}} {
		_, err = d.Batch(r[0], r[1])
		assert.Error(t, err, "%v", r)
	}
}

func TestLoadDataset(t *testing.T) {
	d, err := linmodel.LoadDataset(strings.NewReader(`{"samples": [
		{"x": [1, 2], "y": [3]},
		{"x": [4, 5], "y": [6]}
	]}`))
	require.NoError(t, err)
	require.Equal(t, 2, d.Len())
	assert.Equal(t, []float64{4, 5}, d[1].X)
	assert.Equal(t, []float64{6}, d[1].Y)
}

func TestLoadDataset_Rejects(t *testing.T) {
	_, err := linmodel.LoadDataset(strings.NewReader(`{"samples": [{"x": [1, 2], "y": [3]}, {"x": [1], "y": [3]}]}`))
	require.ErrorIs(t, err, linmodel.ErrBadDataset)

	_, err = linmodel.LoadDataset(strings.NewReader(`{"samples": [{"x": [], "y": [3]}]}`))
	require.ErrorIs(t, err, linmodel.ErrBadDataset)

	_, err = linmodel.LoadDataset(strings.NewReader(`{"samples": [`))
	require.Error(t, err)
}
