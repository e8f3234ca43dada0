// Copyright 2025 The light-cnn Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/jimbozhang/light-cnn/internal/nn"
	"github.com/jimbozhang/light-cnn/internal/params"
)

// Layer is one stage of an inference pipeline.
type Layer = nn.Layer

// Base provides default behaviour for layers that embed it.
type Base = nn.Base

// Stateful is implemented by layers that keep state across Forward calls.
type Stateful = nn.Stateful

// HParams is an immutable set of string hyperparameters.
type HParams = nn.HParams

// NewHParams copies m into a new hyperparameter set.
func NewHParams(m map[string]string) HParams {
	return nn.NewHParams(m)
}

// HParamsOf builds a hyperparameter set from alternating keys and values.
func HParamsOf(kv ...string) HParams {
	return nn.HParamsOf(kv...)
}

// Layers

// Identity passes its input through unchanged.
type Identity = nn.Identity

// NewIdentity creates an identity layer.
func NewIdentity() *Identity { return nn.NewIdentity() }

// Conv2D is a 2D convolution over NHWC input.
type Conv2D = nn.Conv2D

// NewConv2D creates an unconfigured convolution layer.
//
// Hyperparameters: kernel_h, kernel_w, in_channels, out_channels, weights
// (required); stride (default 1), padding ("SAME" or "VALID"), biases.
func NewConv2D() *Conv2D { return nn.NewConv2D() }

// MaxPool2D is a 2D max pooling layer.
type MaxPool2D = nn.MaxPool2D

// NewMaxPool2D creates a pooling layer.
//
// Hyperparameters: ksize and stride, both defaulting to 2.
func NewMaxPool2D() *MaxPool2D { return nn.NewMaxPool2D() }

// Linear is a fully connected layer.
type Linear = nn.Linear

// NewLinear creates an unconfigured fully connected layer.
//
// Hyperparameters: in_features, out_features, weights (required); biases.
func NewLinear() *Linear { return nn.NewLinear() }

// Flatten collapses all but the batch dimension.
type Flatten = nn.Flatten

// NewFlatten creates a flatten layer.
func NewFlatten() *Flatten { return nn.NewFlatten() }

// Activations

// ReLU is the rectified linear unit.
type ReLU = nn.ReLU

// NewReLU creates a ReLU layer.
func NewReLU() *ReLU { return nn.NewReLU() }

// Softmax normalises the last dimension into probabilities.
type Softmax = nn.Softmax

// NewSoftmax creates a softmax layer.
func NewSoftmax() *Softmax { return nn.NewSoftmax() }

// Composition

// Pipeline runs layers in order.
type Pipeline = nn.Pipeline

// PipelineOption configures a Pipeline.
type PipelineOption = nn.PipelineOption

// NewPipeline creates a pipeline over layers.
func NewPipeline(layers []Layer, opts ...PipelineOption) *Pipeline {
	return nn.NewPipeline(layers, opts...)
}

// Opener resolves parameter file paths to readable streams.
type Opener = params.Opener

// WithOpener sets where layers read their parameter files.
func WithOpener(o Opener) PipelineOption { return nn.WithOpener(o) }

// WithWorkers bounds concurrent inputs in ForwardBatch.
func WithWorkers(n int) PipelineOption { return nn.WithWorkers(n) }

// Registry maps layer type names to constructors.
type Registry = nn.Registry

// Constructor creates an empty layer.
type Constructor = nn.Constructor

// NewRegistry returns a registry holding the built-in layers.
func NewRegistry() *Registry { return nn.NewRegistry() }

// Errors.
var (
	ErrMissingHParam = nn.ErrMissingHParam
	ErrInvalidHParam = nn.ErrInvalidHParam
	ErrParamCount    = nn.ErrParamCount
	ErrShapeMismatch = nn.ErrShapeMismatch
	ErrNotLoaded     = nn.ErrNotLoaded
	ErrUnknownLayer  = nn.ErrUnknownLayer
	ErrNonFinite     = nn.ErrNonFinite
)

// HParamError reports a missing or invalid hyperparameter.
type HParamError = nn.HParamError

// LayerError identifies the pipeline stage that failed.
type LayerError = nn.LayerError
