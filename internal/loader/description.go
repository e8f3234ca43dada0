package loader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jimbozhang/light-cnn/internal/nn"
)

// ErrEmptyDescription is returned for a description without layers.
var ErrEmptyDescription = errors.New("model description has no layers")

// Description is the parsed form of a model description file.
type Description struct {
	Name   string      `yaml:"name"`
	Layers []LayerSpec `yaml:"layers"`
}

// LayerSpec describes one pipeline stage.
type LayerSpec struct {
	Type    string            `yaml:"type"`
	HParams map[string]string `yaml:"hparams"`
}

// Parse decodes a YAML model description. Unknown fields are rejected.
func Parse(r io.Reader) (*Description, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var d Description
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDescription
		}
		return nil, fmt.Errorf("failed to parse model description: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadFile reads and parses the description at path.
func LoadFile(path string) (*Description, error) {
	//nolint:gosec // G304: description path is supplied by the operator
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model description: %w", err)
	}
	defer f.Close()

	d, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Validate checks that every layer names a type.
func (d *Description) Validate() error {
	if len(d.Layers) == 0 {
		return ErrEmptyDescription
	}
	for i, spec := range d.Layers {
		if spec.Type == "" {
			return fmt.Errorf("layer %d: missing type", i)
		}
	}
	return nil
}

// Build constructs the layers in description order, each with its own
// copy of the hyperparameters loaded. Parameters are not loaded.
func (d *Description) Build(reg *nn.Registry) ([]nn.Layer, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	layers := make([]nn.Layer, 0, len(d.Layers))
	for i, spec := range d.Layers {
		l, err := reg.Build(spec.Type, nn.NewHParams(spec.HParams))
		if err != nil {
			return nil, &nn.LayerError{Index: i, Type: spec.Type, Err: err}
		}
		layers = append(layers, l)
	}
	return layers, nil
}
