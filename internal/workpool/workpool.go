// Package workpool runs indexed jobs on a bounded number of goroutines.
//
// Each job writes only its own output slot, so callers merge results in index
// order after Run returns and the outcome does not depend on scheduling.
package workpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Size resolves a configured worker count. Zero or negative means GOMAXPROCS.
func Size(workers int) int {
	if workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return workers
}

// Run calls fn(ctx, i) for every i in [0, n) using at most workers goroutines.
// The first error cancels the remaining jobs and is returned. Jobs not yet
// started when ctx is done are skipped and ctx.Err() is returned.
func Run(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(Size(workers), n))

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
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

// Map applies fn to every element of in and returns the outputs in input order.
func Map[T, R any](ctx context.Context, in []T, workers int, fn func(ctx context.Context, v T) (R, error)) ([]R, error) {
	out := make([]R, len(in))
	err := Run(ctx, len(in), workers, func(ctx context.Context, i int) error {
		r, err := fn(ctx, in[i])
		if err != nil {
			return err
		}
		out[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
