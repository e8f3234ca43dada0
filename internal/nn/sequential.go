package nn

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/jimbozhang/light-cnn/internal/params"
	"github.com/jimbozhang/light-cnn/internal/parallel"
	"github.com/jimbozhang/light-cnn/internal/tensor"
)

// Pipeline runs a fixed, ordered list of layers.
//
// Each layer's output becomes the next layer's input:
//
//	p := nn.NewPipeline([]nn.Layer{conv, relu, pool})
//	if err := p.LoadParams(ctx); err != nil {
//	    return err
//	}
//	output, err := p.Forward(input)
//
// This is equivalent to:
//
//	h1, _ := conv.Forward(input)
//	h2, _ := relu.Forward(h1)
//	output, _ := pool.Forward(h2)
//
// Forward and ForwardBatch may be called concurrently once LoadParams has
// returned. A reload waits for in-flight forwards and blocks new ones.
type Pipeline struct {
	layers  []Layer
	opener  params.Opener
	workers parallel.Config

	mu     sync.RWMutex
	loaded bool
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithOpener sets where layers read their parameter files from.
func WithOpener(o params.Opener) PipelineOption {
	return func(p *Pipeline) {
		p.opener = o
	}
}

// WithWorkers bounds the number of concurrent inference calls in
// ForwardBatch. n <= 1 makes ForwardBatch sequential.
func WithWorkers(n int) PipelineOption {
	return func(p *Pipeline) {
		if n <= 1 {
			p.workers = parallel.Sequential()
			return
		}
		p.workers = parallel.Config{Enabled: true, NumWorkers: n, MinChunkSize: 1}
	}
}

// NewPipeline creates a pipeline over layers, which must already have
// their hyperparameters loaded. The slice is copied; order is fixed from
// here on.
func NewPipeline(layers []Layer, opts ...PipelineOption) *Pipeline {
	cfg := parallel.DefaultConfig()
	cfg.MinChunkSize = 1
	p := &Pipeline{
		layers:  append([]Layer(nil), layers...),
		workers: cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Len returns the number of layers.
func (p *Pipeline) Len() int {
	return len(p.layers)
}

// Layer returns the layer at the given index.
//
// Panics if index is out of bounds.
func (p *Pipeline) Layer(index int) Layer {
	if index < 0 || index >= len(p.layers) {
		panic("Pipeline.Layer: index out of bounds")
	}
	return p.layers[index]
}

// Loaded reports whether LoadParams has completed successfully.
func (p *Pipeline) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// LoadParams loads every layer's parameters, in pipeline order.
//
// The first failure stops loading and is returned as a *LayerError; the
// pipeline then refuses to run until a later LoadParams succeeds.
func (p *Pipeline) LoadParams(ctx context.Context) error {
	log := klog.FromContext(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.loaded = false
	startedAt := time.Now()
	for i, l := range p.layers {
		if s, ok := l.(OpenerSetter); ok && p.opener != nil {
			s.SetOpener(p.opener)
		}
		if err := l.LoadParams(ctx); err != nil {
			return &LayerError{Index: i, Type: l.Type(), Err: err}
		}
		log.V(1).Info("loaded layer", "index", i, "type", l.Type(), "hparams", l.HParams().String())
	}
	p.loaded = true

	log.Info("pipeline loaded", "layers", len(p.layers), "duration", time.Since(startedAt))
	return nil
}

// Forward runs one inference call: every layer, in order, each consuming
// the previous layer's output.
func (p *Pipeline) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.forward(input)
}

func (p *Pipeline) forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if !p.loaded {
		return nil, fmt.Errorf("pipeline: %w", ErrNotLoaded)
	}
	output := input
	for i, l := range p.layers {
		next, err := l.Forward(output)
		if err != nil {
			return nil, &LayerError{Index: i, Type: l.Type(), Err: err}
		}
		if klog.V(4).Enabled() {
			klog.V(4).InfoS("forward", "index", i, "type", l.Type(), "in", output.Shape().String(), "out", next.Shape().String())
		}
		output = next
	}
	return output, nil
}

// ForwardBatch runs independent inference calls, one per input, and
// returns the outputs in input order.
//
// Calls run concurrently unless some layer reports itself Stateful. The
// first error cancels the calls that have not started yet.
func (p *Pipeline) ForwardBatch(ctx context.Context, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.loaded {
		return nil, fmt.Errorf("pipeline: %w", ErrNotLoaded)
	}

	cfg := p.workers
	if p.stateful() {
		cfg = parallel.Sequential()
	}

	outputs := make([]*tensor.Tensor, len(inputs))
	err := parallel.Map(ctx, len(inputs), func(_ context.Context, i int) error {
		out, err := p.forward(inputs[i])
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		outputs[i] = out
		return nil
	}, cfg)
	if err != nil {
		return nil, err
	}
	return outputs, nil
}

func (p *Pipeline) stateful() bool {
	for _, l := range p.layers {
		if s, ok := l.(Stateful); ok && s.Stateful() {
			return true
		}
	}
	return false
}

// String lists the layers, one per line.
func (p *Pipeline) String() string {
	var sb strings.Builder
	sb.WriteString("Pipeline(\n")
	for i, l := range p.layers {
		desc := l.Type()
		if s, ok := l.(fmt.Stringer); ok {
			desc = s.String()
		}
		fmt.Fprintf(&sb, "  (%d): %s\n", i, desc)
	}
	sb.WriteString(")")
	return sb.String()
}
