// Copyright 2025 The light-cnn Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides inference layers and the pipeline that runs them.
//
// # Overview
//
// This package contains:
//   - Layers: Conv2D, MaxPool2D, Linear, Flatten, Identity
//   - Activations: ReLU, Softmax
//   - Utilities: Layer interface, Base, HParams, Registry, Pipeline
//
// Every layer follows the same lifecycle: construct, configure with
// LoadHParams, read weights with LoadParams, then call Forward any number
// of times. Tensors use NHWC layout and convolution weights use
// [kernel_h, kernel_w, in_channels, out_channels].
//
// # Basic Usage
//
//	conv := nn.NewConv2D()
//	conv.LoadHParams(nn.HParamsOf(
//	    "kernel_h", "5", "kernel_w", "5",
//	    "in_channels", "1", "out_channels", "32",
//	    "weights", "model/0_conv1_weights",
//	    "biases", "model/1_conv1_biases",
//	))
//
//	p := nn.NewPipeline([]nn.Layer{conv, nn.NewReLU(), nn.NewMaxPool2D()})
//	if err := p.LoadParams(ctx); err != nil {
//	    return err
//	}
//	out, err := p.Forward(input)
//
// # Custom Layers
//
// Embed Base to inherit identity Forward, no-op LoadParams and parameter
// file helpers, then register the constructor:
//
//	type Scale struct {
//	    nn.Base
//	    factor []float64
//	}
//
//	func (*Scale) Type() string { return "scale" }
//
//	func (s *Scale) LoadParams(ctx context.Context) error {
//	    var err error
//	    s.factor, err = s.ReadParams(ctx, "factor")
//	    return err
//	}
//
//	reg := nn.NewRegistry()
//	reg.Register("scale", func() nn.Layer { return &Scale{} })
package nn
