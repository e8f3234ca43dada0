// Copyright 2025 The light-cnn Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package loader builds ready-to-run inference pipelines from YAML model
// descriptions.
//
// Example usage:
//
//	import "github.com/jimbozhang/light-cnn/loader"
//
//	model, err := loader.OpenModel(ctx, "models/mnist.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := model.Pipeline.Forward(input)
package loader

import (
	"context"

	"github.com/jimbozhang/light-cnn/internal/loader"
	"github.com/jimbozhang/light-cnn/nn"
)

// Description is a parsed model description.
type Description = loader.Description

// LayerSpec describes one layer of a model description.
type LayerSpec = loader.LayerSpec

// Model is a loaded pipeline together with its name.
type Model = loader.Model

// Option configures OpenModel.
type Option = loader.Option

// ErrEmptyDescription is returned for a description without layers.
var ErrEmptyDescription = loader.ErrEmptyDescription

// LoadFile parses the model description at path.
func LoadFile(path string) (*Description, error) {
	return loader.LoadFile(path)
}

// OpenModel parses the description at path, builds its pipeline and loads
// the parameters of every layer.
//
// Relative parameter paths resolve against the description's directory
// unless WithOpener supplies another source.
func OpenModel(ctx context.Context, path string, opts ...Option) (*Model, error) {
	return loader.OpenModel(ctx, path, opts...)
}

// WithRegistry sets the registry used to construct layers.
func WithRegistry(r *nn.Registry) Option { return loader.WithRegistry(r) }

// WithOpener sets where parameter files are read from.
func WithOpener(o nn.Opener) Option { return loader.WithOpener(o) }

// WithWorkers bounds concurrent inputs in ForwardBatch.
func WithWorkers(n int) Option { return loader.WithWorkers(n) }
