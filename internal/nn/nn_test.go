package nn

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jimbozhang/light-cnn/internal/params"
	"github.com/jimbozhang/light-cnn/internal/tensor"
)

// writeParams writes values as a whitespace-separated parameter file and
// returns its path.
func writeParams(t *testing.T, dir, name string, values ...float64) string {
	t.Helper()

	toks := make([]string, len(values))
	for i, v := range values {
		toks[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(toks, " ")+"\n"), 0o600))
	return path
}

// mustTensor builds a tensor or fails the test.
func mustTensor(t *testing.T, data []float64, shape tensor.Shape) *tensor.Tensor {
	t.Helper()

	x, err := tensor.FromSlice(data, shape)
	require.NoError(t, err)
	return x
}

// seq returns [start, start+1, ..., start+n-1].
func seq(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

// loaded configures l with kv and loads its parameters.
func loaded[L Layer](t *testing.T, l L, kv ...string) L {
	t.Helper()

	l.LoadHParams(HParamsOf(kv...))
	require.NoError(t, l.LoadParams(context.Background()))
	return l
}

// affine is a test layer computing x*scale + shift, reading shift from the
// optional "shift" parameter file.
type affine struct {
	Base
	scale float64
	shift float64
	calls *[]string
	name  string
}

func (*affine) Type() string { return "affine" }

func (a *affine) LoadParams(ctx context.Context) error {
	vals, err := a.ReadParams(ctx, "shift")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		a.shift = vals[0]
	}
	return nil
}

func (a *affine) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if a.calls != nil {
		*a.calls = append(*a.calls, a.name)
	}
	out := tensor.New(input.Shape())
	for i, v := range input.Data() {
		out.Data()[i] = v*a.scale + a.shift
	}
	return out, nil
}

// counter is a Stateful test layer that counts its Forward calls.
type counter struct {
	Base
	n int
}

func (*counter) Type() string   { return "counter" }
func (*counter) Stateful() bool { return true }

func (c *counter) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	c.n++
	return input, nil
}

// memOpener serves parameter files from memory.
type memOpener map[string]string

var _ params.Opener = memOpener(nil)

func (m memOpener) Open(_ context.Context, path string) (io.ReadCloser, error) {
	body, ok := m[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(body)), nil
}
