// Package sched runs the backend over every entry point with bounded
// parallelism and folds the per-entry outcomes into one aggregate.
package sched

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rustproof/rustproof/internal/backend"
	"github.com/rustproof/rustproof/internal/domain"
)

// Run verifies all entries through the runner, at most workers at a time
// (available parallelism when workers <= 0). Entries are fully independent;
// completion order carries no meaning and there is no early exit on failure.
// onResult, when set, is called once per completed entry, serialized, in
// completion order. Each worker writes only its own result slot; the
// aggregate is computed by the coordinator after every entry has finished.
func Run(ctx context.Context, runner backend.Runner, artifact string, entries []domain.EntryPoint, workers int, onResult func(domain.Outcome)) ([]domain.Outcome, domain.Aggregate) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]domain.Outcome, len(entries))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, e := range entries {
		g.Go(func() error {
			out := runner.Verify(ctx, artifact, e)
			results[i] = out
			if onResult != nil {
				mu.Lock()
				onResult(out)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	agg := domain.Aggregate{Status: domain.StatusVerified}
	for _, o := range results {
		agg.Merge(o)
	}
	return results, agg
}
