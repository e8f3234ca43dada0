package nn

import (
	"context"
	"fmt"
	"math"

	"github.com/jimbozhang/light-cnn/internal/parallel"
	"github.com/jimbozhang/light-cnn/internal/tensor"
)

// MaxPool2D is a 2D max pooling layer.
//
// Max pooling reduces spatial dimensions by taking the maximum value in each
// window. It has no learnable parameters.
//
// Input shape:  [batch, height, width, channels]
// Output shape: [batch, out_height, out_width, channels]
//
// Where:
//
//	out_height = (height - ksize) / stride + 1
//	out_width = (width - ksize) / stride + 1
//
// Hyperparameters: ksize (default 2), stride (default 2).
type MaxPool2D struct {
	Base

	kernelSize int
	stride     int

	parallel parallel.Config
}

// NewMaxPool2D creates an unconfigured max pooling layer.
func NewMaxPool2D() *MaxPool2D {
	return &MaxPool2D{parallel: parallel.DefaultConfig()}
}

// Type implements Layer.
func (*MaxPool2D) Type() string { return "maxpool2d" }

// LoadParams validates ksize and stride.
func (m *MaxPool2D) LoadParams(context.Context) error {
	k, err := positiveInt(m.HParams(), HParamKSize, 2)
	if err != nil {
		return err
	}
	s, err := positiveInt(m.HParams(), HParamStride, 2)
	if err != nil {
		return err
	}
	m.kernelSize, m.stride = k, s
	return nil
}

// Forward performs the forward pass.
func (m *MaxPool2D) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if m.kernelSize == 0 {
		return nil, fmt.Errorf("maxpool2d: %w", ErrNotLoaded)
	}
	shape := input.Shape()
	if len(shape) != 4 {
		return nil, fmt.Errorf("%w: maxpool2d expects 4D input [N,H,W,C], got %v", ErrShapeMismatch, shape)
	}
	batch, height, width, channels := shape[0], shape[1], shape[2], shape[3]
	if height < m.kernelSize || width < m.kernelSize {
		return nil, fmt.Errorf("%w: maxpool2d window %d larger than input %v", ErrShapeMismatch, m.kernelSize, shape)
	}
	outH := (height-m.kernelSize)/m.stride + 1
	outW := (width-m.kernelSize)/m.stride + 1

	output := tensor.New(tensor.Shape{batch, outH, outW, channels})
	src := input.Data()
	dst := output.Data()

	parallel.ForBatch(batch, outH, func(b, oh int) {
		for ow := 0; ow < outW; ow++ {
			base := ((b*outH+oh)*outW + ow) * channels
			acc := dst[base : base+channels]
			for c := range acc {
				acc[c] = math.Inf(-1)
			}
			for i := 0; i < m.kernelSize; i++ {
				ih := oh*m.stride + i
				for j := 0; j < m.kernelSize; j++ {
					iw := ow*m.stride + j
					pix := ((b*height+ih)*width + iw) * channels
					for c, v := range src[pix : pix+channels] {
						if v > acc[c] {
							acc[c] = v
						}
					}
				}
			}
		}
	}, m.parallel)

	return output, nil
}

// String returns a string representation of the layer.
func (m *MaxPool2D) String() string {
	return fmt.Sprintf("MaxPool2D(kernel_size=%d, stride=%d)", m.kernelSize, m.stride)
}

// KernelSize returns the pooling kernel size.
func (m *MaxPool2D) KernelSize() int {
	return m.kernelSize
}

// Stride returns the stride.
func (m *MaxPool2D) Stride() int {
	return m.stride
}
