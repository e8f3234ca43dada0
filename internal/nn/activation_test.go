package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimbozhang/light-cnn/internal/tensor"
)

func TestReLU(t *testing.T) {
	relu := loaded(t, NewReLU())
	input := mustTensor(t, []float64{-2, -0.5, 0, 0.5, 3, -1}, tensor.Shape{2, 3})

	out, err := relu.Forward(input)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assert.Equal(t, []float64{0, 0, 0, 0.5, 3, 0}, out.Data())
	assert.Equal(t, -2.0, input.At(0, 0), "input must not be modified")
}

func TestSoftmax(t *testing.T) {
	sm := loaded(t, NewSoftmax())
	input := mustTensor(t, []float64{1, 2, 3, 1000, 1000, 1000}, tensor.Shape{2, 3})

	out, err := sm.Forward(input)
	require.NoError(t, err)

	// Row 0 against the closed form.
	z := math.Exp(1) + math.Exp(2) + math.Exp(3)
	assert.InDelta(t, math.Exp(1)/z, out.At(0, 0), 1e-12)
	assert.InDelta(t, math.Exp(3)/z, out.At(0, 2), 1e-12)

	// Row 1 would overflow without max subtraction.
	for j := 0; j < 3; j++ {
		assert.InDelta(t, 1.0/3, out.At(1, j), 1e-12)
	}

	for b := 0; b < 2; b++ {
		sum := 0.0
		for j := 0; j < 3; j++ {
			sum += out.At(b, j)
		}
		assert.InDelta(t, 1.0, sum, 1e-12)
	}
	assert.Equal(t, 1.0, input.At(0, 0), "input must not be modified")
}

func TestSoftmax_Scalar(t *testing.T) {
	_, err := NewSoftmax().Forward(tensor.New(tensor.Shape{}))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestActivation_NonFiniteInput(t *testing.T) {
	tests := []struct {
		name  string
		layer Layer
		data  []float64
	}{
		{name: "softmax +Inf", layer: NewSoftmax(), data: []float64{math.Inf(1), 1}},
		{name: "softmax NaN", layer: NewSoftmax(), data: []float64{0, math.NaN()}},
		{name: "relu NaN", layer: NewReLU(), data: []float64{math.NaN(), -1}},
		{name: "relu -Inf", layer: NewReLU(), data: []float64{1, math.Inf(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.layer.Forward(mustTensor(t, tt.data, tensor.Shape{1, 2}))
			assert.Nil(t, out)
			assert.ErrorIs(t, err, ErrNonFinite)
		})
	}
}

func TestFlatten(t *testing.T) {
	f := loaded(t, NewFlatten())
	input := mustTensor(t, seq(24, 0), tensor.Shape{2, 3, 2, 2})

	out, err := f.Forward(input)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{2, 12}, out.Shape())
	assert.Equal(t, input.Data(), out.Data())

	_, err = f.Forward(mustTensor(t, seq(3, 0), tensor.Shape{3}))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
