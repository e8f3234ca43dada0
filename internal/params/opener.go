package params

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Opener resolves a parameter path to a readable stream.
//
// If the path does not exist, Open should return an error for which
// errors.Is(err, os.ErrNotExist) is true.
type Opener interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Local opens files from the local filesystem.
type Local struct {
	// Root is joined to relative paths. Empty means the working directory.
	Root string
}

var _ Opener = Local{}

// Open implements Opener.
func (l Local) Open(_ context.Context, path string) (io.ReadCloser, error) {
	if l.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(l.Root, path)
	}
	//nolint:gosec // G304: parameter paths come from the model description
	return os.Open(path)
}

// Mux routes paths of the form "scheme://..." to the opener registered for
// that scheme and everything else to Default.
type Mux struct {
	Default Opener
	Schemes map[string]Opener
}

var _ Opener = (*Mux)(nil)

// NewMux returns a Mux that falls back to def.
func NewMux(def Opener) *Mux {
	return &Mux{Default: def, Schemes: make(map[string]Opener)}
}

// Handle registers o for scheme (without "://").
func (m *Mux) Handle(scheme string, o Opener) {
	m.Schemes[scheme] = o
}

// Open implements Opener.
func (m *Mux) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if scheme, _, ok := strings.Cut(path, "://"); ok {
		o, found := m.Schemes[scheme]
		if !found {
			return nil, fmt.Errorf("no opener registered for scheme %q", scheme)
		}
		return o.Open(ctx, path)
	}
	if m.Default == nil {
		return nil, fmt.Errorf("no default opener for %q", path)
	}
	return m.Default.Open(ctx, path)
}
