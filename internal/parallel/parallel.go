// Package parallel provides fan-out helpers used by layer kernels and batch inference.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Config bounds the fan-out of For, ForBatch and Map.
type Config struct {
	Enabled bool

	// NumWorkers caps the goroutines For starts and the calls Map keeps
	// in flight.
	NumWorkers int

	// MinChunkSize is the smallest block of indices For hands to one
	// goroutine. Kernels with tiny rows set it high.
	MinChunkSize int
}

// DefaultConfig uses one worker per CPU.
func DefaultConfig() Config {
	cpus := runtime.NumCPU()
	return Config{Enabled: cpus > 1, NumWorkers: cpus, MinChunkSize: 16}
}

// Sequential returns a config that disables all fan-out.
func Sequential() Config {
	return Config{NumWorkers: 1, MinChunkSize: 1}
}

// For calls f(i) for every i in [0, n), splitting the range into contiguous
// blocks of at least cfg.MinChunkSize indices, one goroutine per block.
// f(i) must write only to locations owned by i.
func For(n int, f func(i int), cfg Config) {
	workers := 1
	if cfg.Enabled && cfg.MinChunkSize > 0 {
		workers = min(cfg.NumWorkers, n/cfg.MinChunkSize)
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		lo, hi := w*n/workers, (w+1)*n/workers
		go func() {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				f(i)
			}
		}()
	}
	wg.Wait()
}

// ForBatch iterates the batch*rows grid, the usual shape of NHWC kernels.
func ForBatch(batch, rows int, f func(b, r int), cfg Config) {
	For(batch*rows, func(k int) {
		f(k/rows, k%rows)
	}, cfg)
}

// Map runs f(ctx, i) for i in [0, n) with at most cfg.NumWorkers calls in flight.
//
// The first error cancels the context handed to the remaining calls and is
// returned. With parallelism disabled the calls run in index order.
func Map(ctx context.Context, n int, f func(ctx context.Context, i int) error, cfg Config) error {
	if !cfg.Enabled || cfg.NumWorkers <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := f(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.NumWorkers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return f(gctx, i)
		})
	}
	return g.Wait()
}
