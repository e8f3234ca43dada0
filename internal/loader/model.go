package loader

import (
	"context"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/jimbozhang/light-cnn/internal/nn"
	"github.com/jimbozhang/light-cnn/internal/params"
)

// Model is a loaded, ready-to-run pipeline.
type Model struct {
	Name     string
	Path     string
	Pipeline *nn.Pipeline
}

type options struct {
	registry *nn.Registry
	opener   params.Opener
	workers  int
}

// Option configures OpenModel.
type Option func(*options)

// WithRegistry sets the registry used to construct layers.
// Defaults to nn.NewRegistry().
func WithRegistry(r *nn.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithOpener sets where parameter files are read from.
// Defaults to the local filesystem rooted at the description's directory.
func WithOpener(op params.Opener) Option {
	return func(o *options) { o.opener = op }
}

// WithWorkers bounds concurrent inference calls in ForwardBatch.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// OpenModel parses the description at path, builds its pipeline and loads
// every layer's parameters.
func OpenModel(ctx context.Context, path string, opts ...Option) (*Model, error) {
	log := klog.FromContext(ctx)

	o := options{registry: nn.NewRegistry()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.opener == nil {
		o.opener = params.Local{Root: filepath.Dir(path)}
	}

	desc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	layers, err := desc.Build(o.registry)
	if err != nil {
		return nil, err
	}

	pipeOpts := []nn.PipelineOption{nn.WithOpener(o.opener)}
	if o.workers > 0 {
		pipeOpts = append(pipeOpts, nn.WithWorkers(o.workers))
	}
	p := nn.NewPipeline(layers, pipeOpts...)

	log.Info("loading model", "name", desc.Name, "path", path, "layers", len(layers))
	if err := p.LoadParams(ctx); err != nil {
		return nil, err
	}

	return &Model{Name: desc.Name, Path: path, Pipeline: p}, nil
}
