package search

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/teamsplit/internal/domain/model"
)

// Result is the outcome of a complete search.
type Result struct {
	Best         model.Candidate
	Trials       int
	Improvements int
	Shards       int
}

// Better reports whether a beats b: lower cost wins, equal costs go to the
// earlier trial.
func Better(a, b model.Candidate) bool {
	if a.Metrics.Cost != b.Metrics.Cost {
		return a.Metrics.Cost < b.Metrics.Cost
	}
	return a.Trial < b.Trial
}

// Reducer collects shard results from concurrent workers and reduces them to
// the overall best. Improvements sums the per-shard counts.
type Reducer struct {
	mu      sync.Mutex
	results []model.ShardResult
	errs    []error
}

// NewReducer creates an empty Reducer.
func NewReducer() *Reducer {
	return &Reducer{}
}

// Collect records a shard's local best.
func (r *Reducer) Collect(_ context.Context, res model.ShardResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// Fail records a shard that could not be evaluated.
func (r *Reducer) Fail(_ context.Context, shard model.Shard, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, fmt.Errorf("shard %d: %w", shard.Index, err))
}

// Result returns the best candidate over all collected shards. It fails if
// any shard failed or if fewer than want shards reported.
func (r *Reducer) Result(want int) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.errs) > 0 {
		return Result{}, errors.Join(r.errs...)
	}
	if len(r.results) != want || want == 0 {
		return Result{}, fmt.Errorf("%w: %d of %d shards reported", ErrIncomplete, len(r.results), want)
	}

	out := Result{Shards: len(r.results)}
	for i, res := range r.results {
		out.Trials += res.Shard.Trials
		out.Improvements += res.Improvements
		if i == 0 || Better(res.Best, out.Best) {
			out.Best = res.Best
		}
	}
	if out.Best.Partition == nil {
		return Result{}, fmt.Errorf("%w: %d shards reported no partition", ErrNoCandidate, len(r.results))
	}
	return out, nil
}
