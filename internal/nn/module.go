// Package nn implements the layer pipeline of the light-cnn inference engine.
//
// This package provides:
//   - Layer interface: the contract every layer satisfies
//   - Base: embeddable default implementation (identity forward, no-op load)
//   - HParams: immutable per-layer hyperparameters
//   - Layers: Conv2D, MaxPool2D, ReLU, Flatten, Linear, Softmax, Identity
//   - Registry: layer construction by type name
//   - Pipeline: ordered forward execution over a fixed list of layers
//
// A layer goes through a fixed lifecycle: constructed empty, hyperparameters
// loaded once, parameters loaded once, then used for any number of forward
// passes. Inference only; there is no backward pass.
package nn

import (
	"context"
	"fmt"

	"github.com/jimbozhang/light-cnn/internal/params"
	"github.com/jimbozhang/light-cnn/internal/tensor"
)

// Layer is the interface for all pipeline stages.
//
// Layers can be composed into a Pipeline:
//
//	p := nn.NewPipeline([]nn.Layer{conv, relu, pool})
//	if err := p.LoadParams(ctx); err != nil { ... }
//	out, err := p.Forward(input)
type Layer interface {
	// Type returns the registry name of the layer (e.g. "conv2d").
	Type() string

	// LoadHParams stores hp as the layer's configuration, replacing any
	// previous value. No validation happens here; the layer checks its own
	// keys in LoadParams.
	LoadHParams(hp HParams)

	// HParams returns the stored configuration.
	HParams() HParams

	// LoadParams validates the configuration and reads trained parameters.
	//
	// Layers without weights still validate their hyperparameters here so
	// that configuration errors surface before the first forward pass.
	LoadParams(ctx context.Context) error

	// Forward computes the layer output.
	//
	// The result depends only on input and the loaded state. Implementations
	// must not mutate input unless they return it unchanged.
	Forward(input *tensor.Tensor) (*tensor.Tensor, error)
}

// Stateful is implemented by layers that mutate their own state during
// Forward. Such layers are not safe for concurrent inference, and a pipeline
// that contains one runs ForwardBatch sequentially.
type Stateful interface {
	Stateful() bool
}

// OpenerSetter is implemented by layers that read parameter files.
// The pipeline uses it to hand its Opener to each layer before loading.
type OpenerSetter interface {
	SetOpener(o params.Opener)
}

// Base provides the default Layer behavior: hyperparameter storage, a
// no-op LoadParams and an identity Forward. Concrete layers embed it and
// override what they need.
type Base struct {
	hparams HParams
	opener  params.Opener
}

// LoadHParams stores hp.
func (b *Base) LoadHParams(hp HParams) {
	b.hparams = hp
}

// HParams returns the stored hyperparameters.
func (b *Base) HParams() HParams {
	return b.hparams
}

// SetOpener sets where parameter files are read from.
func (b *Base) SetOpener(o params.Opener) {
	b.opener = o
}

// LoadParams does nothing.
func (b *Base) LoadParams(context.Context) error {
	return nil
}

// Forward returns input unchanged.
func (b *Base) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	return input, nil
}

// ReadParams loads the parameter file named by hyperparameter key.
//
// An absent key is not an error: it yields an empty slice, so optional
// weight slots can be skipped. An unreadable file or malformed token is.
func (b *Base) ReadParams(ctx context.Context, key string) ([]float64, error) {
	path, ok := b.hparams.Lookup(key)
	if !ok {
		return nil, nil
	}
	o := b.opener
	if o == nil {
		o = params.Local{}
	}
	values, err := params.Load(ctx, o, path)
	if err != nil {
		return nil, &HParamError{Key: key, Value: path, Err: err}
	}
	return values, nil
}

// ReadTensor loads the required parameter file named by key and shapes it.
//
// The file must hold exactly shape.NumElements() values.
func (b *Base) ReadTensor(ctx context.Context, key string, shape tensor.Shape) (*tensor.Tensor, error) {
	if !b.hparams.Has(key) {
		return nil, &HParamError{Key: key, Err: ErrMissingHParam}
	}
	return b.readShaped(ctx, key, shape)
}

// ReadOptionalTensor is ReadTensor for weight slots that may be omitted.
// It returns nil when key is absent.
func (b *Base) ReadOptionalTensor(ctx context.Context, key string, shape tensor.Shape) (*tensor.Tensor, error) {
	if !b.hparams.Has(key) {
		return nil, nil
	}
	return b.readShaped(ctx, key, shape)
}

func (b *Base) readShaped(ctx context.Context, key string, shape tensor.Shape) (*tensor.Tensor, error) {
	values, err := b.ReadParams(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(values) != shape.NumElements() {
		return nil, fmt.Errorf("%w: %s=%q: got %d values, want %d for shape %v",
			ErrParamCount, key, b.hparams.Get(key), len(values), shape.NumElements(), shape)
	}
	return tensor.FromSlice(values, shape)
}

// Identity is a layer that passes its input through unchanged.
type Identity struct {
	Base
}

// NewIdentity creates an identity layer.
func NewIdentity() *Identity {
	return &Identity{}
}

// Type implements Layer.
func (*Identity) Type() string { return "identity" }

// String returns a string representation of the layer.
func (*Identity) String() string { return "Identity()" }
