// SPDX-License-Identifier: MIT

// Package weights provides a thread-safe, in-memory store of named weight
// matrices plus JSON persistence.
//
// A Store maps parameter names (e.g. "layers.0.q_proj.weight") to
// *matrix.Dense values. Shapes are fixed at registration time: nothing in
// this module resizes a registered matrix, and numeric updates happen in
// place on the returned pointer.
//
// Concurrency:
//
//   - The name catalog (register, lookup, enumerate, trainable flags) is
//     guarded by a sync.RWMutex.
//   - In-place numeric mutation of a returned matrix is NOT synchronized by
//     the store. Callers that mutate (adapter.Finalize, calib.WithMutation)
//     must hold exclusive access to the target for the duration of the call.
//
// Determinism:
//
//	Names() returns names sorted lexicographically ascending, so every
//	driver that walks the store (estimation, re-initialization, export)
//	visits parameters in the same order on every run.
//
// Persistence:
//
//	Load/Save read and write a single JSON document:
//
//	{"params":[{"name":"w","rows":2,"cols":2,"data":[1,2,3,4],"trainable":true}]}
//
// Params is the narrow read interface consumed by the calibration and
// initialization packages; *Store implements it.
package weights
