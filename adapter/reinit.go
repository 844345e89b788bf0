// SPDX-License-Identifier: MIT
// File: reinit.go
// Role: store-level driver running Initialize + Finalize over many targets.
//
// Determinism:
//   - Targets are processed in ascending name order.
//
// Atomicity:
//   - All factors are initialized before any weight is touched. If a
//     Finalize step fails, weights already finalized in this call are
//     restored from snapshots, so Reinit either updates every target or none.

package adapter

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/katalvlaran/lorainit/calib"
	"github.com/katalvlaran/lorainit/matrix"
	"github.com/katalvlaran/lorainit/weights"
)

// DefaultExcluded lists name fragments never targeted by TargetsFromStore.
var DefaultExcluded = []string{"lm_head", "embed_tokens"}

// AllTargets selects every eligible matrix in TargetsFromStore.
const AllTargets = "all"

// AdapterSpec describes the adapter attached to every target.
type AdapterSpec struct {
	Rank   int
	Alpha  float64
	RSLoRA bool
}

// Scaling returns Scaling(Alpha, Rank, RSLoRA).
func (a AdapterSpec) Scaling() float64 { return Scaling(a.Alpha, a.Rank, a.RSLoRA) }

// Adapters maps a target name to its finalized factors.
type Adapters map[string]*Factors

// Names returns the target names in ascending order.
func (a Adapters) Names() []string {
	names := make([]string, 0, len(a))
	for n := range a {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}

// Reinit initializes and finalizes an adapter for every name in targets.
// Weights are updated in place through params. grads is required in
// gradient mode only.
func Reinit(params weights.Params, targets []string, spec AdapterSpec, cfg Config,
	grads calib.GradientMap, opts ...RunOption) (Adapters, error) {
	if params == nil {
		return nil, adapterErrorf(opReinit, fmt.Errorf("nil params: %w", ErrInvalidConfiguration))
	}
	o := gatherRunOptions(opts...)
	ini, err := NewInitializer(cfg, opts...)
	if err != nil {
		return nil, adapterErrorf(opReinit, err)
	}

	names := append([]string(nil), targets...)
	sort.Strings(names)
	names = slices.Compact(names)

	// Stage 1: initialize everything; no weight is written.
	live := make(map[string]*matrix.Dense, len(names))
	out := make(Adapters, len(names))
	for _, name := range names {
		w, ok := params.Lookup(name)
		if !ok {
			return nil, adapterErrorf(opReinit, fmt.Errorf("%s: %w", name, weights.ErrNotFound))
		}
		f, err := ini.Initialize(Target{Name: name, Weight: w, Rank: spec.Rank, Scaling: spec.Scaling()}, grads)
		if err != nil {
			return nil, adapterErrorf(opReinit, err)
		}
		live[name], out[name] = w, f
	}

	// Stage 2: finalize, restoring earlier targets on failure.
	saved := make(map[string]*matrix.Dense, len(names))
	for _, name := range names {
		saved[name] = live[name].CloneDense()
		rep, err := Finalize(live[name], out[name], cfg, opts...)
		if err != nil {
			for n, snap := range saved {
				_ = live[n].CopyFrom(snap)
			}
			return nil, adapterErrorf(opReinit, fmt.Errorf("%s: %w", name, err))
		}
		o.logger.Info("adapter initialized",
			zap.String("target", name),
			zap.Int("rank", spec.Rank),
			zap.Float64("scaling", out[name].Scaling),
			zap.Bool("offset_applied", rep.OffsetApplied),
			zap.Bool("clipped", rep.Clipped),
		)
	}

	return out, nil
}

// TargetsFromStore returns the sorted names of matrices whose module name
// (the last dot-separated segment, ignoring a trailing ".weight") is listed
// in include. An empty include, or one containing "all", accepts every
// module. Names containing any DefaultExcluded or exclude fragment are dropped.
func TargetsFromStore(params weights.Params, include, exclude []string) []string {
	all := len(include) == 0
	want := make(map[string]struct{}, len(include))
	for _, m := range include {
		if m == AllTargets {
			all = true
		}
		want[m] = struct{}{}
	}
	drop := append(append([]string(nil), DefaultExcluded...), exclude...)

	var out []string
	for _, name := range params.Names() {
		if containsAny(name, drop) {
			continue
		}
		if _, ok := want[moduleName(name)]; all || ok {
			out = append(out, name)
		}
	}

	return out
}

// RelativeRank returns ⌊hidden·ratio⌋, where hidden is the smaller dimension
// of the first parameter in name order.
func RelativeRank(params weights.Params, ratio float64) (int, error) {
	if !positive(ratio) {
		return 0, adapterErrorf(opRelative, configErrorf("lora_relative_r", ratio, "finite value > 0"))
	}
	names := params.Names()
	if len(names) == 0 {
		return 0, adapterErrorf(opRelative, weights.ErrNotFound)
	}
	w, ok := params.Lookup(names[0])
	if !ok {
		return 0, adapterErrorf(opRelative, fmt.Errorf("%s: %w", names[0], weights.ErrNotFound))
	}
	hidden := min(w.Rows(), w.Cols())
	r := int(float64(hidden) * ratio)
	if r < 1 {
		return 0, adapterErrorf(opRelative, fmt.Errorf("hidden=%d ratio=%g gives rank %d: %w", hidden, ratio, r, ErrInvalidRank))
	}

	return r, nil
}

func moduleName(name string) string {
	name = strings.TrimSuffix(name, ".weight")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}

	return name
}

func containsAny(s string, frags []string) bool {
	for _, f := range frags {
		if f != "" && strings.Contains(s, f) {
			return true
		}
	}

	return false
}
