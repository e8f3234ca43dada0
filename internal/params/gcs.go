package params

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"k8s.io/klog/v2"
)

// GCS opens gs://bucket/object URLs from Google Cloud Storage.
type GCS struct {
	client *storage.Client
}

var _ Opener = (*GCS)(nil)

// NewGCS creates a GCS opener using application default credentials.
func NewGCS(ctx context.Context) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS storage client: %w", err)
	}
	return &GCS{client: client}, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

// Open implements Opener.
func (g *GCS) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	log := klog.FromContext(ctx)

	bucket, object, err := parseGCSURL(path)
	if err != nil {
		return nil, err
	}

	log.V(2).Info("opening parameters from GCS", "url", path)

	r, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("object %q: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("opening object from GCS %q: %w", path, err)
	}
	return r, nil
}

func parseGCSURL(u string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(u, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// URL: %q", u)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("GCS URL %q must have the form gs://bucket/object", u)
	}
	return bucket, object, nil
}
