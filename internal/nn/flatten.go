package nn

import (
	"fmt"

	"github.com/jimbozhang/light-cnn/internal/tensor"
)

// Flatten reshapes [batch, d1, d2, ...] to [batch, d1*d2*...].
type Flatten struct {
	Base
}

// NewFlatten creates a Flatten layer.
func NewFlatten() *Flatten {
	return &Flatten{}
}

// Type implements Layer.
func (*Flatten) Type() string { return "flatten" }

// Forward returns a flattened copy of input.
func (f *Flatten) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if input.Rank() < 2 {
		return nil, fmt.Errorf("%w: flatten expects [N, ...], got %v", ErrShapeMismatch, input.Shape())
	}
	batch := input.Dim(0)
	return input.Reshape(tensor.Shape{batch, input.NumElements() / batch})
}

// String returns a string representation of the layer.
func (*Flatten) String() string { return "Flatten()" }
