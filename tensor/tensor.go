// Copyright 2025 The light-cnn Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/jimbozhang/light-cnn/internal/tensor"
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Tensor is a dense row-major float64 array.
type Tensor = tensor.Tensor

// New creates a zero-filled tensor. It panics on an invalid shape.
func New(shape Shape) *Tensor {
	return tensor.New(shape)
}

// FromSlice creates a tensor holding a copy of data.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// ParseShape parses a comma-separated shape such as "1,28,28,1".
func ParseShape(text string) (Shape, error) {
	return tensor.ParseShape(text)
}
