// Package parallel contains the small fan-out helpers used by the estimators.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultThreshold is the row count below which ParallelizeWithThreshold
// stays on the calling goroutine.
const DefaultThreshold = 1000

// Workers resolves a worker count: n <= 0 means GOMAXPROCS.
func Workers(n int) int {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n < 1 {
		n = 1
	}
	return n
}

// ParallelizeWithThreshold splits [0, n) into contiguous chunks and calls fn
// on each chunk. Inputs smaller than threshold run serially.
// fn must only write to the part of shared state owned by its chunk.
func ParallelizeWithThreshold(n, threshold int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	workers := Workers(0)
	if n < threshold || workers == 1 {
		fn(0, n)
		return
	}
	if workers > n {
		workers = n
	}

	chunk := (n + workers - 1) / workers
	g := new(errgroup.Group)
	for start := 0; start < n; start += chunk {
		start, end := start, min(start+chunk, n)
		g.Go(func() error {
			fn(start, end)
			return nil
		})
	}
	_ = g.Wait()
}

// ForEach calls fn(ctx, i) for every i in [0, n) on at most workers
// goroutines (workers <= 0 means GOMAXPROCS). The first error cancels ctx for
// the remaining calls and is returned. Indices not yet started when ctx is
// cancelled are skipped.
func ForEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Workers(workers))

	for i := 0; i < n; i++ {
		if err := gctx.Err(); err != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
