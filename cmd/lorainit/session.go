// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/katalvlaran/lorainit/calib"
	"github.com/katalvlaran/lorainit/linmodel"
	"github.com/katalvlaran/lorainit/weights"
)

const defaultBatchSize = 8

var errMissingFlag = errors.New("required flag not set")

// session binds a weight store to the reference model and the calibration
// subset of the dataset.
type session struct {
	store *weights.Store
	model *linmodel.Model
	data  calib.Dataset
	batch int
}

func (a *app) loadStore() (*weights.Store, error) {
	if a.flags.Weights == "" {
		return nil, fmt.Errorf("--weights: %w", errMissingFlag)
	}

	return weights.LoadFile(a.flags.Weights)
}

func (a *app) openSession(store *weights.Store) (*session, error) {
	if a.flags.Data == "" {
		return nil, fmt.Errorf("--data: %w", errMissingFlag)
	}
	layers := a.flags.Layers
	if len(layers) == 0 {
		layers = store.Names()
	}
	model, err := linmodel.New(store, layers...)
	if err != nil {
		return nil, err
	}
	full, err := linmodel.LoadDatasetFile(a.flags.Data)
	if err != nil {
		return nil, err
	}

	bsz := a.flags.BatchSize
	if bsz == 0 {
		bsz = a.file.Init.BatchSize
	}
	if bsz == 0 {
		bsz = defaultBatchSize
	}
	var data calib.Dataset = full
	if iters := a.file.Init.Iters; iters > 0 {
		if data, err = calib.Subset(full, bsz*iters); err != nil {
			return nil, err
		}
	}
	a.log.Debug("calibration subset",
		zap.Int("samples", data.Len()),
		zap.Int("batch_size", bsz),
		zap.Strings("layers", layers))

	return &session{store: store, model: model, data: data, batch: bsz}, nil
}

// loadGradients reads a gradient file written by the estimate command.
func loadGradients(path string) (calib.GradientMap, error) {
	s, err := weights.LoadFile(path)
	if err != nil {
		return nil, err
	}
	grads := make(calib.GradientMap, s.Len())
	for _, name := range s.Names() {
		g, _ := s.Lookup(name)
		grads[name] = g
	}

	return grads, nil
}

// saveGradients writes grads in the weight file format.
func saveGradients(path string, grads calib.GradientMap) error {
	s := weights.NewStore()
	for _, name := range grads.Names() {
		if err := s.Register(name, grads[name]); err != nil {
			return err
		}
	}

	return weights.SaveFile(path, s)
}

// gradients loads path when set, otherwise estimates over the session.
func (a *app) gradients(ctx context.Context, sess *session, path string, opts ...calib.Option) (calib.GradientMap, error) {
	if path != "" {
		return loadGradients(path)
	}
	opts = append([]calib.Option{calib.WithLogger(a.log)}, opts...)

	return calib.Estimate(ctx, sess.model, sess.data, sess.batch, opts...)
}
