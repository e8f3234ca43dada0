package nn

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimbozhang/light-cnn/internal/params"
	"github.com/jimbozhang/light-cnn/internal/tensor"
)

func TestIdentity_ReturnsInputUnmodified(t *testing.T) {
	id := loaded(t, NewIdentity())
	input := mustTensor(t, []float64{-1, 0, 2.5, 7}, tensor.Shape{2, 2})
	before := input.Clone()

	out, err := id.Forward(input)
	require.NoError(t, err)

	assert.Same(t, input, out)
	assert.True(t, before.Equal(out))
}

func TestBase_LoadParamsIsNoop(t *testing.T) {
	var b Base
	b.LoadHParams(HParamsOf("kernel_h", "3"))

	require.NoError(t, b.LoadParams(context.Background()))

	vals, err := b.ReadParams(context.Background(), "weights")
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestBase_LoadHParamsReplaces(t *testing.T) {
	var b Base
	b.LoadHParams(HParamsOf("a", "1"))
	b.LoadHParams(HParamsOf("b", "2"))

	assert.False(t, b.HParams().Has("a"))
	assert.Equal(t, "2", b.HParams().Get("b"))
}

func TestBase_ReadParamsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "w")
	require.NoError(t, os.WriteFile(path, []byte("1.0 2.0 3.0"), 0o600))

	var b Base
	b.LoadHParams(HParamsOf("weights", path))

	vals, err := b.ReadParams(context.Background(), "weights")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0, 2.0, 3.0}, vals)
}

func TestBase_ReadParamsMissingFile(t *testing.T) {
	var b Base
	b.LoadHParams(HParamsOf("weights", filepath.Join(t.TempDir(), "nope")))

	vals, err := b.ReadParams(context.Background(), "weights")
	require.Error(t, err)
	assert.Nil(t, vals)
	assert.ErrorIs(t, err, params.ErrOpen)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var hpErr *HParamError
	require.ErrorAs(t, err, &hpErr)
	assert.Equal(t, "weights", hpErr.Key)
}

func TestBase_ReadParamsMalformed(t *testing.T) {
	var b Base
	b.SetOpener(memOpener{"w": "1.0 two 3.0"})
	b.LoadHParams(HParamsOf("weights", "w"))

	_, err := b.ReadParams(context.Background(), "weights")
	assert.ErrorIs(t, err, params.ErrMalformed)
}

func TestBase_ReadTensor(t *testing.T) {
	var b Base
	b.SetOpener(memOpener{"w": "1 2 3 4 5 6", "short": "1 2"})
	ctx := context.Background()

	b.LoadHParams(HParamsOf("weights", "w", "biases", "short"))

	w, err := b.ReadTensor(ctx, "weights", tensor.Shape{2, 3})
	require.NoError(t, err)
	assert.Equal(t, 6.0, w.At(1, 2))

	_, err = b.ReadTensor(ctx, "biases", tensor.Shape{3})
	assert.ErrorIs(t, err, ErrParamCount)

	_, err = b.ReadTensor(ctx, "absent", tensor.Shape{3})
	assert.ErrorIs(t, err, ErrMissingHParam)

	opt, err := b.ReadOptionalTensor(ctx, "absent", tensor.Shape{3})
	require.NoError(t, err)
	assert.Nil(t, opt)
}

func TestHParamIsolationBetweenInstances(t *testing.T) {
	src := map[string]string{"weights": "a", "stride": "1"}

	x := NewConv2D()
	y := NewConv2D()
	x.LoadHParams(NewHParams(src))
	y.LoadHParams(NewHParams(src))

	src["weights"] = "changed"
	x.LoadHParams(HParamsOf("weights", "x-only"))

	assert.Equal(t, "x-only", x.HParams().Get("weights"))
	assert.Equal(t, "a", y.HParams().Get("weights"))
	assert.Equal(t, "1", y.HParams().Get("stride"))

	m := y.HParams().Map()
	m["stride"] = "9"
	assert.Equal(t, "1", y.HParams().Get("stride"))
}

func TestLayers_ForwardDeterministic(t *testing.T) {
	dir := t.TempDir()
	convW := writeParams(t, dir, "cw", seq(3*3*2*2, -4)...)
	convB := writeParams(t, dir, "cb", 0.5, -0.5)
	fcW := writeParams(t, dir, "fw", seq(2*2*2*3, -12)...)

	layers := []Layer{
		loaded(t, NewIdentity()),
		loaded(t, NewConv2D(), "kernel_h", "3", "kernel_w", "3", "in_channels", "2", "out_channels", "2",
			"weights", convW, "biases", convB),
		loaded(t, NewReLU()),
		loaded(t, NewMaxPool2D()),
		loaded(t, NewFlatten()),
		loaded(t, NewLinear(), "in_features", "8", "out_features", "3", "weights", fcW),
		loaded(t, NewSoftmax()),
	}

	input := mustTensor(t, seq(2*4*4*2, -10), tensor.Shape{2, 4, 4, 2})
	x := input
	for _, l := range layers {
		first, err := l.Forward(x)
		require.NoError(t, err, l.Type())
		second, err := l.Forward(x)
		require.NoError(t, err, l.Type())

		assert.True(t, first.Equal(second), "%s not deterministic", l.Type())
		x = first
	}
	assert.True(t, input.Equal(mustTensor(t, seq(2*4*4*2, -10), tensor.Shape{2, 4, 4, 2})), "input mutated")
}
