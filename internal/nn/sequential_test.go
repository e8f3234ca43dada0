package nn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimbozhang/light-cnn/internal/tensor"
)

func TestPipeline_SequentialComposition(t *testing.T) {
	var calls []string
	a := &affine{scale: 2, shift: 1, calls: &calls, name: "A"}
	b := &affine{scale: -1, calls: &calls, name: "B"}
	c := &affine{scale: 3, shift: -2, calls: &calls, name: "C"}

	p := NewPipeline([]Layer{a, b, c})
	require.NoError(t, p.LoadParams(context.Background()))

	input := mustTensor(t, []float64{0, 1, 2}, tensor.Shape{3})

	got, err := p.Forward(input)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, calls)

	ha, err := a.Forward(input)
	require.NoError(t, err)
	hb, err := b.Forward(ha)
	require.NoError(t, err)
	want, err := c.Forward(hb)
	require.NoError(t, err)

	assert.True(t, want.Equal(got))
	// ((x*2+1) * -1) * 3 - 2
	assert.Equal(t, []float64{-5, -11, -17}, got.Data())
}

func TestPipeline_VisitsEveryLayerInOrder(t *testing.T) {
	var calls []string
	layers := make([]Layer, 5)
	for i := range layers {
		layers[i] = &affine{scale: 1, calls: &calls, name: fmt.Sprint(i)}
	}
	p := NewPipeline(layers)
	require.NoError(t, p.LoadParams(context.Background()))

	for i := 0; i < 3; i++ {
		calls = nil
		_, err := p.Forward(tensor.New(tensor.Shape{1}))
		require.NoError(t, err)
		assert.Equal(t, []string{"0", "1", "2", "3", "4"}, calls)
	}
}

func TestPipeline_EmptyIsIdentity(t *testing.T) {
	p := NewPipeline(nil)
	require.NoError(t, p.LoadParams(context.Background()))

	input := tensor.New(tensor.Shape{2})
	out, err := p.Forward(input)
	require.NoError(t, err)
	assert.Same(t, input, out)
}

func TestPipeline_ForwardBeforeLoad(t *testing.T) {
	p := NewPipeline([]Layer{NewIdentity()})

	_, err := p.Forward(tensor.New(tensor.Shape{1}))
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = p.ForwardBatch(context.Background(), []*tensor.Tensor{tensor.New(tensor.Shape{1})})
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.False(t, p.Loaded())
}

func TestPipeline_LoadParamsUsesOpener(t *testing.T) {
	a := &affine{scale: 1}
	a.LoadHParams(HParamsOf("shift", "shift.txt"))

	p := NewPipeline([]Layer{a}, WithOpener(memOpener{"shift.txt": "10"}))
	require.NoError(t, p.LoadParams(context.Background()))

	out, err := p.Forward(mustTensor(t, []float64{1}, tensor.Shape{1}))
	require.NoError(t, err)
	assert.Equal(t, []float64{11}, out.Data())
}

func TestPipeline_LoadFailureIdentifiesLayer(t *testing.T) {
	bad := &affine{scale: 1}
	bad.LoadHParams(HParamsOf("shift", "missing.txt"))

	p := NewPipeline([]Layer{NewIdentity(), bad}, WithOpener(memOpener{}))
	err := p.LoadParams(context.Background())
	require.Error(t, err)

	var layerErr *LayerError
	require.ErrorAs(t, err, &layerErr)
	assert.Equal(t, 1, layerErr.Index)
	assert.Equal(t, "affine", layerErr.Type)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = p.Forward(tensor.New(tensor.Shape{1}))
	assert.ErrorIs(t, err, ErrNotLoaded, "failed load must not leave the pipeline runnable")
}

func TestPipeline_Reload(t *testing.T) {
	a := &affine{scale: 1}
	a.LoadHParams(HParamsOf("shift", "s"))
	files := memOpener{"s": "1"}

	p := NewPipeline([]Layer{a}, WithOpener(files))
	require.NoError(t, p.LoadParams(context.Background()))

	files["s"] = "5"
	require.NoError(t, p.LoadParams(context.Background()))

	out, err := p.Forward(tensor.New(tensor.Shape{1}))
	require.NoError(t, err)
	assert.Equal(t, []float64{5}, out.Data())
}

func TestPipeline_ForwardErrorIdentifiesLayer(t *testing.T) {
	p := NewPipeline([]Layer{NewIdentity(), loaded(t, NewMaxPool2D())})
	require.NoError(t, p.LoadParams(context.Background()))

	_, err := p.Forward(tensor.New(tensor.Shape{3}))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	var layerErr *LayerError
	require.ErrorAs(t, err, &layerErr)
	assert.Equal(t, 1, layerErr.Index)
	assert.Equal(t, "maxpool2d", layerErr.Type)
}

func TestPipeline_ForwardBatch(t *testing.T) {
	p := NewPipeline([]Layer{&affine{scale: 2}, NewReLU()}, WithWorkers(4))
	require.NoError(t, p.LoadParams(context.Background()))

	inputs := make([]*tensor.Tensor, 32)
	for i := range inputs {
		inputs[i] = mustTensor(t, []float64{float64(i), -float64(i)}, tensor.Shape{1, 2})
	}

	outs, err := p.ForwardBatch(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, outs, len(inputs))

	for i, out := range outs {
		want, err := p.Forward(inputs[i])
		require.NoError(t, err)
		assert.True(t, want.Equal(out), "input %d", i)
		assert.Equal(t, []float64{2 * float64(i), 0}, out.Data())
	}
}

func TestPipeline_ForwardBatchError(t *testing.T) {
	p := NewPipeline([]Layer{loaded(t, NewFlatten())}, WithWorkers(2))
	require.NoError(t, p.LoadParams(context.Background()))

	inputs := []*tensor.Tensor{
		tensor.New(tensor.Shape{1, 2}),
		tensor.New(tensor.Shape{2}),
	}
	outs, err := p.ForwardBatch(context.Background(), inputs)
	assert.Nil(t, outs)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.Contains(t, err.Error(), "input 1")
}

func TestPipeline_StatefulLayerRunsSequentially(t *testing.T) {
	c := &counter{}
	p := NewPipeline([]Layer{c}, WithWorkers(8))
	require.NoError(t, p.LoadParams(context.Background()))
	require.True(t, p.stateful())

	inputs := make([]*tensor.Tensor, 100)
	for i := range inputs {
		inputs[i] = tensor.New(tensor.Shape{1})
	}
	_, err := p.ForwardBatch(context.Background(), inputs)
	require.NoError(t, err)

	// An unsynchronised counter only adds up when calls never overlap.
	assert.Equal(t, 100, c.n)
}

func TestPipeline_ConcurrentForward(t *testing.T) {
	dir := t.TempDir()
	conv := loaded(t, NewConv2D(), "kernel_h", "3", "kernel_w", "3", "in_channels", "1", "out_channels", "2",
		"weights", writeParams(t, dir, "w", seq(18, -9)...))
	p := NewPipeline([]Layer{conv, NewReLU(), loaded(t, NewMaxPool2D())})
	require.NoError(t, p.LoadParams(context.Background()))

	input := mustTensor(t, seq(36, -18), tensor.Shape{1, 6, 6, 1})
	want, err := p.Forward(input)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.Forward(input)
			if err != nil {
				errs <- err
				return
			}
			if !got.Equal(want) {
				errs <- errors.New("concurrent forward diverged")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestPipeline_Accessors(t *testing.T) {
	p := NewPipeline([]Layer{NewIdentity(), NewReLU()})

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, "relu", p.Layer(1).Type())
	assert.Panics(t, func() { p.Layer(2) })
	assert.Equal(t, "Pipeline(\n  (0): Identity()\n  (1): ReLU()\n)", p.String())
}
