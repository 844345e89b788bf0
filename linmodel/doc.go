// SPDX-License-Identifier: MIT

// Package linmodel is a small reference model for calibration: a chain of
// linear layers stored in a weights.Store, trained with squared error.
//
// It implements calib.Model and calib.Dataset, so gradient estimation and
// η search can run end to end without an external framework:
//
//	m, _ := linmodel.New(store, "layers.0.weight", "layers.1.weight")
//	data, _ := linmodel.LoadDatasetFile("calib.json")
//	grads, _ := calib.Estimate(ctx, m, data, 8)
package linmodel
