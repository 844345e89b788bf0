// SPDX-License-Identifier: MIT
// Package weights_test verifies the store catalog, trainable flags,
// persistence and thread-safety of weights.Store.
package weights_test

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lorainit/matrix"
	"github.com/katalvlaran/lorainit/weights"
)

func mustDense(t *testing.T, rows, cols int, data ...float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseFrom(rows, cols, data)
	require.NoError(t, err)

	return m
}

func TestStore_RegisterLookup(t *testing.T) {
	s := weights.NewStore()
	w := mustDense(t, 2, 2, 1, 2, 3, 4)

	require.NoError(t, s.Register("q_proj", w))
	got, ok := s.Lookup("q_proj")
	require.True(t, ok)
	require.Same(t, w, got, "Lookup returns the live matrix")

	_, ok = s.Lookup("missing")
	require.False(t, ok)

	require.ErrorIs(t, s.Register("q_proj", w), weights.ErrDuplicate)
	require.ErrorIs(t, s.Register("", w), weights.ErrEmptyName)
	require.ErrorIs(t, s.Register("v_proj", nil), weights.ErrNilMatrix)
	require.Equal(t, 1, s.Len())
}

func TestStore_NamesSorted(t *testing.T) {
	s := weights.NewStore()
	for _, name := range []string{"b", "c", "a"} {
		require.NoError(t, s.Register(name, mustDense(t, 1, 1, 0)))
	}
	require.Equal(t, []string{"a", "b", "c"}, s.Names())
}

func TestStore_Trainable(t *testing.T) {
	s := weights.NewStore()
	require.NoError(t, s.Register("w", mustDense(t, 1, 1, 0)))

	require.True(t, s.Trainable("w"))
	require.NoError(t, s.SetTrainable("w", false))
	require.False(t, s.Trainable("w"))
	require.NoError(t, s.SetTrainable("w", true))
	require.True(t, s.Trainable("w"))

	require.False(t, s.Trainable("nope"))
	require.ErrorIs(t, s.SetTrainable("nope", true), weights.ErrNotFound)
}

func TestStore_SnapshotIsDeep(t *testing.T) {
	s := weights.NewStore()
	w := mustDense(t, 1, 2, 1, 2)
	require.NoError(t, s.Register("w", w))

	snap := s.Snapshot()
	w.RawData()[0] = 100

	require.Equal(t, []float64{1, 2}, snap["w"].RawData())
}

func TestSaveLoad(t *testing.T) {
	s := weights.NewStore()
	require.NoError(t, s.Register("layers.0.up_proj", mustDense(t, 2, 3, 1, -2, 3.5, 0, 1e-8, 6)))
	require.NoError(t, s.Register("lm_head", mustDense(t, 1, 2, 7, 8)))
	require.NoError(t, s.SetTrainable("lm_head", false))

	var buf bytes.Buffer
	require.NoError(t, weights.Save(&buf, s))

	back, err := weights.Load(&buf)
	require.NoError(t, err)

	require.Equal(t, s.Names(), back.Names())
	for _, name := range s.Names() {
		want, _ := s.Lookup(name)
		got, _ := back.Lookup(name)
		require.Equal(t, want.Rows(), got.Rows())
		require.Equal(t, want.Cols(), got.Cols())
		if diff := cmp.Diff(want.RawData(), got.RawData()); diff != "" {
			t.Fatalf("%s data mismatch (-want +got):\n%s", name, diff)
		}
		require.Equal(t, s.Trainable(name), back.Trainable(name))
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := weights.Load(strings.NewReader(`{"params":[{"name":"w","rows":2,"cols":2,"data":[1,2,3]}]}`))
	require.ErrorIs(t, err, weights.ErrBadFile)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	_, err = weights.Load(strings.NewReader(`{"params":[
		{"name":"w","rows":1,"cols":1,"data":[1]},
		{"name":"w","rows":1,"cols":1,"data":[2]}]}`))
	require.ErrorIs(t, err, weights.ErrDuplicate)

	_, err = weights.Load(strings.NewReader(`{"params":`))
	require.Error(t, err)
}

// TestStore_Concurrent registers and reads from many goroutines.
func TestStore_Concurrent(t *testing.T) {
	s := weights.NewStore()
	const num = 100
	var wg sync.WaitGroup
	wg.Add(2 * num)

	for i := 0; i < num; i++ {
		go func(id int) {
			defer wg.Done()
			m, err := matrix.NewDense(1, 1)
			if err != nil {
				t.Error(err)
				return
			}
			if err = s.Register(fmt.Sprintf("p%03d", id), m); err != nil {
				t.Error(err)
			}
		}(i)
		go func() {
			defer wg.Done()
			for _, name := range s.Names() {
				_, _ = s.Lookup(name)
				_ = s.Trainable(name)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, num, s.Len())
}
