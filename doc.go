// SPDX-License-Identifier: MIT

// Package lorainit initializes low-rank adapters (LoRA) for dense weight
// matrices and calibrates them against a model's gradients.
//
// An adapter adds s·B·A to a frozen weight W, with A of shape rank×in and
// B of shape out×rank. How A and B start out decides how training begins;
// this module provides three families of starting points under one
// contract:
//
//	simple    random factors from a named distribution (kaiming, xavier, ...)
//	svd       the top singular triplets of W
//	gradient  the top singular triplets of the averaged gradient (LoRA-One, LoRA-GA)
//
// Packages:
//
//	matrix/   dense row-major matrices, randomized truncated SVD, precision rounding
//	weights/  named parameter store with JSON persistence
//	calib/    gradient averaging, scoped weight mutation, step-size search
//	adapter/  configuration, factor initialization, offset/clip finalization
//	linmodel/ linear least-squares reference model implementing the calib contracts
//
// The lorainit command (cmd/lorainit) wires them together over JSON weight
// and dataset files and a YAML run configuration:
//
//	lorainit estimate --weights model.json --data calib.json --out grads.json
//	lorainit search   --weights model.json --data calib.json --grads grads.json
//	lorainit init     --config run.yaml --weights model.json --data calib.json --out-dir out/
package lorainit
