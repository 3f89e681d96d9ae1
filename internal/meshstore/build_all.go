package meshstore

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/meshletgen/pkg/meshlet"
)

// BuildAll builds every mesh on a pool of Options.Workers goroutines.
// Results keep the order of meshes; a failed mesh leaves a nil entry and
// its error is part of the combined error. Cancelling ctx stops meshes
// that have not started yet.
func (s *Store) BuildAll(ctx context.Context, meshes []*meshlet.Mesh, regenerate bool) ([]*Result, error) {
	results := make([]*Result, len(meshes))
	errs := make([]error, len(meshes))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(s.opts.Workers, len(meshes)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = s.Build(meshes[i], regenerate)
			}
		}()
	}

feed:
	for i := range meshes {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	err := multierr.Combine(errs...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = multierr.Append(err, ctxErr)
	}

	var built, failed int
	for i := range results {
		switch {
		case results[i] != nil:
			built++
		case errs[i] != nil:
			failed++
		}
	}
	s.log.Info("build finished",
		zap.Int("meshes", len(meshes)),
		zap.Int("built", built),
		zap.Int("failed", failed),
		zap.Bool("cancelled", ctx.Err() != nil),
	)
	return results, err
}
