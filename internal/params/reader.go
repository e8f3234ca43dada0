package params

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"k8s.io/klog/v2"
)

// maxTokenSize bounds a single token; anything longer is not a number.
const maxTokenSize = 1 << 16

// Read parses every whitespace-separated token of r as a float64.
//
// Tokens are appended in input order until EOF. An empty input yields an
// empty slice. The first malformed token aborts the read with a *ParseError.
// Only finite decimal numbers are accepted: NaN, infinities and hex floats
// are malformed.
func Read(r io.Reader) ([]float64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxTokenSize)
	scanner.Split(bufio.ScanWords)

	values := make([]float64, 0, 1024)
	for scanner.Scan() {
		tok := scanner.Text()
		v, ok := parseDecimal(tok)
		if !ok {
			return nil, &ParseError{Index: len(values), Token: tok}
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading parameters: %w", err)
	}
	return values, nil
}

func parseDecimal(tok string) (float64, bool) {
	digits := strings.TrimLeft(tok, "+-")
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Load opens path through opener and reads all of its values.
//
// The file is closed on every return path. Open failures wrap ErrOpen,
// bad tokens wrap ErrMalformed.
func Load(ctx context.Context, opener Opener, path string) ([]float64, error) {
	log := klog.FromContext(ctx)

	startedAt := time.Now()
	rc, err := opener.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrOpen, path, err)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			log.Error(err, "closing parameter file", "path", path)
		}
	}()

	values, err := Read(rc)
	if err != nil {
		return nil, fmt.Errorf("parameter file %q: %w", path, err)
	}

	log.V(2).Info("loaded parameters", "path", path, "count", len(values), "duration", time.Since(startedAt))
	return values, nil
}
