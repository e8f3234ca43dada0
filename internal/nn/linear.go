package nn

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/jimbozhang/light-cnn/internal/tensor"
)

// Linear is a fully connected layer.
//
// Computes: y = x·W + b
//
// Input of any rank >= 2 is flattened to [batch, in_features] first, so a
// Linear layer can follow a convolution directly.
//
// Weight shape: [in_features, out_features]
// Bias shape:   [out_features]
// Output shape: [batch, out_features]
//
// Hyperparameters:
//   - in_features, out_features: required
//   - weights: required parameter file path
//   - biases: optional parameter file path
type Linear struct {
	Base

	inFeatures  int
	outFeatures int

	weight *mat.Dense // [in_features, out_features]
	bias   []float64  // [out_features] or nil
}

// NewLinear creates an unconfigured fully connected layer.
func NewLinear() *Linear {
	return &Linear{}
}

// Type implements Layer.
func (*Linear) Type() string { return "fc" }

// LoadParams validates hyperparameters and reads weights and biases.
func (l *Linear) LoadParams(ctx context.Context) error {
	in, err := positiveInt(l.HParams(), HParamInFeatures, 0)
	if err != nil {
		return err
	}
	out, err := positiveInt(l.HParams(), HParamOutFeatures, 0)
	if err != nil {
		return err
	}

	weight, err := l.ReadTensor(ctx, HParamWeights, tensor.Shape{in, out})
	if err != nil {
		return err
	}
	bias, err := l.ReadOptionalTensor(ctx, HParamBiases, tensor.Shape{out})
	if err != nil {
		return err
	}

	l.inFeatures = in
	l.outFeatures = out
	l.weight = mat.NewDense(in, out, weight.Data())
	l.bias = nil
	if bias != nil {
		l.bias = bias.Data()
	}
	return nil
}

// Forward computes x·W + b.
func (l *Linear) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if l.weight == nil {
		return nil, fmt.Errorf("fc: %w", ErrNotLoaded)
	}
	if input.Rank() < 2 {
		return nil, fmt.Errorf("%w: fc expects [N, ...], got %v", ErrShapeMismatch, input.Shape())
	}
	batch := input.Dim(0)
	if input.NumElements() != batch*l.inFeatures {
		return nil, fmt.Errorf("%w: fc expects %d features per sample, got %v",
			ErrShapeMismatch, l.inFeatures, input.Shape())
	}

	output := tensor.New(tensor.Shape{batch, l.outFeatures})

	// Both matrices view tensor storage; gonum does not write to x.
	x := mat.NewDense(batch, l.inFeatures, input.Data())
	y := mat.NewDense(batch, l.outFeatures, output.Data())
	y.Mul(x, l.weight)

	if l.bias != nil {
		dst := output.Data()
		for b := 0; b < batch; b++ {
			row := dst[b*l.outFeatures : (b+1)*l.outFeatures]
			for i, v := range l.bias {
				row[i] += v
			}
		}
	}
	return output, nil
}

// String returns a string representation of the layer.
func (l *Linear) String() string {
	return fmt.Sprintf("Linear(in=%d, out=%d, bias=%t)", l.inFeatures, l.outFeatures, l.bias != nil)
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}
