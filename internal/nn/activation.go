package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/jimbozhang/light-cnn/internal/tensor"
)

// ReLU is a Rectified Linear Unit activation layer.
//
// Applies the element-wise function: f(x) = max(0, x)
type ReLU struct {
	Base
}

// NewReLU creates a new ReLU activation layer.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Type implements Layer.
func (*ReLU) Type() string { return "relu" }

// Forward applies ReLU activation: f(x) = max(0, x).
func (r *ReLU) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkFinite("relu", input.Data()); err != nil {
		return nil, err
	}
	output := tensor.New(input.Shape())
	dst := output.Data()
	for i, v := range input.Data() {
		if v > 0 {
			dst[i] = v
		}
	}
	return output, nil
}

// String returns a string representation of the layer.
func (*ReLU) String() string { return "ReLU()" }

// Softmax normalizes the last dimension into a probability distribution.
//
// softmax(x)_i = exp(x_i - max(x)) / sum_j exp(x_j - max(x))
type Softmax struct {
	Base
}

// NewSoftmax creates a new Softmax layer.
func NewSoftmax() *Softmax {
	return &Softmax{}
}

// Type implements Layer.
func (*Softmax) Type() string { return "softmax" }

// Forward applies softmax to every row of the last dimension.
func (s *Softmax) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if input.Rank() == 0 {
		return nil, fmt.Errorf("%w: softmax needs at least 1 dimension", ErrShapeMismatch)
	}
	if err := checkFinite("softmax", input.Data()); err != nil {
		return nil, err
	}
	output := input.Clone()
	dst := output.Data()
	n := input.Dim(input.Rank() - 1)

	for start := 0; start < len(dst); start += n {
		row := dst[start : start+n]
		floats.AddConst(-floats.Max(row), row)
		for i, v := range row {
			row[i] = math.Exp(v)
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	return output, nil
}

// String returns a string representation of the layer.
func (*Softmax) String() string { return "Softmax()" }

// checkFinite rejects NaN and infinite values, which would otherwise turn
// into silently wrong activations.
func checkFinite(op string, data []float64) error {
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s: %w: %v at flat index %d", op, ErrNonFinite, v, i)
		}
	}
	return nil
}
