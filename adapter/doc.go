// SPDX-License-Identifier: MIT

// Package adapter initializes low-rank adapters (W + s·B@A) attached to
// frozen weight matrices.
//
// 🚀 What is here?
//
//   - Config: closed enums (mode, distributions, scale policy, direction)
//     validated at construction, built with functional options or loaded
//     from YAML.
//   - Initializer.Initialize: produces A (rank×in) and B (out×rank) by
//     sampling (simple), from a randomized SVD of the weight (svd), or from
//     a randomized SVD of the estimated gradient (gradient; LoRA-One or
//     LoRA-GA), optionally with a DoRA magnitude vector.
//   - Finalize: casts factors to their storage precision and subtracts the
//     offset s·B@A from the weight, clipping it to the weight range on request.
//   - Reinit / TargetsFromStore / RelativeRank: drive a whole weight store.
//
// ⚙️ Usage:
//
//	cfg, _ := adapter.NewConfig(
//		adapter.WithMode(adapter.ModeSVD),
//		adapter.WithScale(adapter.ScaleUnit),
//	)
//	ini, _ := adapter.NewInitializer(cfg)
//	f, _ := ini.Initialize(adapter.Target{Name: "q_proj", Weight: w, Rank: 8, Scaling: 2}, nil)
//	rep, _ := adapter.Finalize(w, f, cfg)
//
// Errors are sentinels matched with errors.Is; every check runs before the
// first write, so a failed call leaves weights and factors untouched.
package adapter
