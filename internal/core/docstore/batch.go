package docstore

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchLimit bounds the number of in-flight writes of one batch.
const DefaultBatchLimit = 8

// Batch fires fns concurrently and waits for all of them. The first error is returned;
// writes that already succeeded are not rolled back.
func Batch(ctx context.Context, limit int, fns ...func(ctx context.Context) error) error {
	if len(fns) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultBatchLimit
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, fn := range fns {
		g.Go(func() error {
			return fn(gctx)
		})
	}
	return g.Wait()
}
