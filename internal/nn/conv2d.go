package nn

import (
	"context"
	"fmt"
	"strings"

	"github.com/jimbozhang/light-cnn/internal/parallel"
	"github.com/jimbozhang/light-cnn/internal/tensor"
)

// Padding selects how Conv2D treats image borders.
type Padding string

// Padding modes, named as in TensorFlow.
const (
	PaddingSame  Padding = "SAME"  // Output spatial size is ceil(in/stride)
	PaddingValid Padding = "VALID" // No padding; windows stay inside the input
)

func parsePadding(v string) (Padding, error) {
	switch Padding(strings.ToUpper(strings.TrimSpace(v))) {
	case "", PaddingSame:
		return PaddingSame, nil
	case PaddingValid:
		return PaddingValid, nil
	default:
		return "", invalidHParam(HParamPadding, v, fmt.Errorf("want SAME or VALID"))
	}
}

// outputSize returns the output extent along one spatial axis and the
// number of zero rows/columns padded before the input.
func outputSize(in, kernel, stride int, padding Padding) (out, padBefore int) {
	if padding == PaddingValid {
		if in < kernel {
			return 0, 0
		}
		return (in-kernel)/stride + 1, 0
	}
	out = (in + stride - 1) / stride
	padTotal := max((out-1)*stride+kernel-in, 0)
	return out, padTotal / 2
}

// Hyperparameter keys understood by the built-in layers.
const (
	HParamWeights     = "weights"
	HParamBiases      = "biases"
	HParamKernelH     = "kernel_h"
	HParamKernelW     = "kernel_w"
	HParamInChannels  = "in_channels"
	HParamOutChannels = "out_channels"
	HParamStride      = "stride"
	HParamPadding     = "padding"
	HParamKSize       = "ksize"
	HParamInFeatures  = "in_features"
	HParamOutFeatures = "out_features"
)

// Conv2D is a 2D convolutional layer.
//
// Performs convolution: output = Conv2D(input, weight) + bias
//
// Input shape:  [batch, height, width, in_channels]
// Weight shape: [kernel_h, kernel_w, in_channels, out_channels]
// Bias shape:   [out_channels]
// Output shape: [batch, out_h, out_w, out_channels]
//
// Hyperparameters:
//   - kernel_h, kernel_w, in_channels, out_channels: required
//   - stride: default 1
//   - padding: SAME (default) or VALID
//   - weights: required parameter file path
//   - biases: optional parameter file path
//
// Output rows are computed in parallel; every row is written by exactly one
// goroutine, so results do not depend on scheduling.
type Conv2D struct {
	Base

	inChannels  int
	outChannels int
	kernelSize  [2]int
	stride      int
	padding     Padding

	weight *tensor.Tensor // [kernel_h, kernel_w, in_channels, out_channels]
	bias   *tensor.Tensor // [out_channels] or nil

	parallel parallel.Config
}

// NewConv2D creates an unconfigured 2D convolutional layer.
func NewConv2D() *Conv2D {
	return &Conv2D{parallel: parallel.DefaultConfig()}
}

// Type implements Layer.
func (*Conv2D) Type() string { return "conv2d" }

// LoadParams validates hyperparameters and reads weights and biases.
func (c *Conv2D) LoadParams(ctx context.Context) error {
	hp := c.HParams()

	kh, err := positiveInt(hp, HParamKernelH, 0)
	if err != nil {
		return err
	}
	kw, err := positiveInt(hp, HParamKernelW, 0)
	if err != nil {
		return err
	}
	in, err := positiveInt(hp, HParamInChannels, 0)
	if err != nil {
		return err
	}
	out, err := positiveInt(hp, HParamOutChannels, 0)
	if err != nil {
		return err
	}
	stride, err := positiveInt(hp, HParamStride, 1)
	if err != nil {
		return err
	}
	padding, err := parsePadding(hp.Get(HParamPadding))
	if err != nil {
		return err
	}

	weight, err := c.ReadTensor(ctx, HParamWeights, tensor.Shape{kh, kw, in, out})
	if err != nil {
		return err
	}
	bias, err := c.ReadOptionalTensor(ctx, HParamBiases, tensor.Shape{out})
	if err != nil {
		return err
	}

	c.inChannels = in
	c.outChannels = out
	c.kernelSize = [2]int{kh, kw}
	c.stride = stride
	c.padding = padding
	c.weight = weight
	c.bias = bias
	return nil
}

// Forward performs the convolution.
//
// Input: [batch, height, width, in_channels]
// Output: [batch, out_h, out_w, out_channels].
func (c *Conv2D) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if c.weight == nil {
		return nil, fmt.Errorf("conv2d: %w", ErrNotLoaded)
	}
	shape := input.Shape()
	if len(shape) != 4 || shape[3] != c.inChannels {
		return nil, fmt.Errorf("%w: conv2d expects [N,H,W,%d], got %v", ErrShapeMismatch, c.inChannels, shape)
	}

	batch, height, width := shape[0], shape[1], shape[2]
	kh, kw := c.kernelSize[0], c.kernelSize[1]
	outH, padTop := outputSize(height, kh, c.stride, c.padding)
	outW, padLeft := outputSize(width, kw, c.stride, c.padding)
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("%w: conv2d %dx%d %s kernel does not fit input %v",
			ErrShapeMismatch, kh, kw, c.padding, shape)
	}

	output := tensor.New(tensor.Shape{batch, outH, outW, c.outChannels})

	src := input.Data()
	dst := output.Data()
	w := c.weight.Data()
	ic, oc := c.inChannels, c.outChannels

	var bias []float64
	if c.bias != nil {
		bias = c.bias.Data()
	}

	parallel.ForBatch(batch, outH, func(b, oh int) {
		for ow := 0; ow < outW; ow++ {
			base := ((b*outH+oh)*outW + ow) * oc
			acc := dst[base : base+oc]
			if bias != nil {
				copy(acc, bias)
			}
			for i := 0; i < kh; i++ {
				ih := oh*c.stride + i - padTop
				if ih < 0 || ih >= height {
					continue
				}
				for j := 0; j < kw; j++ {
					iw := ow*c.stride + j - padLeft
					if iw < 0 || iw >= width {
						continue
					}
					pix := ((b*height+ih)*width + iw) * ic
					for ci, x := range src[pix : pix+ic] {
						wo := ((i*kw+j)*ic + ci) * oc
						for co, wv := range w[wo : wo+oc] {
							acc[co] += x * wv
						}
					}
				}
			}
		}
	}, c.parallel)

	return output, nil
}

// String returns a string representation of the layer.
func (c *Conv2D) String() string {
	return fmt.Sprintf("Conv2D(in=%d, out=%d, kernel=%dx%d, stride=%d, padding=%s, bias=%t)",
		c.inChannels, c.outChannels, c.kernelSize[0], c.kernelSize[1], c.stride, c.padding, c.bias != nil)
}

// OutputShape returns the output shape for an NHWC input of the given size.
func (c *Conv2D) OutputShape(batch, height, width int) tensor.Shape {
	outH, _ := outputSize(height, c.kernelSize[0], c.stride, c.padding)
	outW, _ := outputSize(width, c.kernelSize[1], c.stride, c.padding)
	return tensor.Shape{batch, outH, outW, c.outChannels}
}
