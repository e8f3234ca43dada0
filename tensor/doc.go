// Copyright 2025 The light-cnn Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense float64 tensors passed between layers.
//
// Tensors are row-major. Image batches use NHWC layout:
// [batch, height, width, channels].
//
// Example:
//
//	x := tensor.New(tensor.Shape{1, 28, 28, 1})
//	x.Set(0.5, 0, 14, 14, 0)
//	fmt.Println(x.At(0, 14, 14, 0)) // 0.5
package tensor
