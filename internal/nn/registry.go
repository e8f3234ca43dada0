package nn

import (
	"fmt"
	"sort"
)

// Constructor creates an unconfigured layer.
type Constructor func() Layer

// Registry maps layer type names to constructors.
//
// A Registry is not safe for concurrent Register calls; build it once
// before assembling pipelines.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns a registry holding the built-in layers:
// identity, conv2d, maxpool2d, relu, flatten, fc and softmax.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	r.Register("identity", func() Layer { return NewIdentity() })
	r.Register("conv2d", func() Layer { return NewConv2D() })
	r.Register("maxpool2d", func() Layer { return NewMaxPool2D() })
	r.Register("relu", func() Layer { return NewReLU() })
	r.Register("flatten", func() Layer { return NewFlatten() })
	r.Register("fc", func() Layer { return NewLinear() })
	r.Register("softmax", func() Layer { return NewSoftmax() })
	return r
}

// Register adds or replaces the constructor for name.
func (r *Registry) Register(name string, c Constructor) {
	r.constructors[name] = c
}

// New constructs an unconfigured layer of the named type.
func (r *Registry) New(name string) (Layer, error) {
	c, ok := r.constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownLayer, name)
	}
	return c(), nil
}

// Build constructs a layer and loads hp into it.
func (r *Registry) Build(name string, hp HParams) (Layer, error) {
	l, err := r.New(name)
	if err != nil {
		return nil, err
	}
	l.LoadHParams(hp)
	return l, nil
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
