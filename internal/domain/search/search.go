// Package search runs the randomized partition search.
//
// Trial i always draws its partition from a PCG stream seeded with
// (seed, i). A trial's candidate therefore does not depend on which worker
// evaluates it, and the reduction below (lowest cost, then lowest trial)
// returns the same winner as a single sequential pass with a strict
// less-than comparison.
package search

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/okian/teamsplit/internal/domain/cost"
	"github.com/okian/teamsplit/internal/domain/model"
	"github.com/okian/teamsplit/internal/domain/partition"
)

// Default search configuration constants.
const (
	DefaultTrials    = 10_000
	DefaultShardSize = 500
	ctxCheckInterval = 256
)

// Searcher evaluates trials of a fixed player set and cost function.
// It holds no mutable state and may be shared by concurrent workers.
type Searcher struct {
	gen      *partition.Generator
	cost     *cost.Function
	seed     uint64
	observer func(model.Candidate)
}

// Option applies a configuration option to the Searcher.
type Option func(*Searcher)

// WithSeed sets the seed all trial streams derive from.
func WithSeed(seed uint64) Option {
	return func(s *Searcher) {
		s.seed = seed
	}
}

// WithObserver registers a callback invoked on every improvement of the
// best candidate, in trial order within a shard.
func WithObserver(fn func(model.Candidate)) Option {
	return func(s *Searcher) {
		s.observer = fn
	}
}

// New creates a Searcher.
func New(gen *partition.Generator, fn *cost.Function, opts ...Option) *Searcher {
	s := &Searcher{gen: gen, cost: fn}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed returns the seed trial streams derive from.
func (s *Searcher) Seed() uint64 { return s.seed }

// Trial draws and evaluates the candidate of trial index i.
func (s *Searcher) Trial(i int) model.Candidate {
	r := rand.New(rand.NewPCG(s.seed, uint64(i)))
	part := s.gen.Generate(r)
	return model.Candidate{Trial: i, Partition: part, Metrics: s.cost.Evaluate(part)}
}

// EvaluateShard runs the trials of one shard and keeps the first candidate
// with the lowest cost. It fails with ErrNoCandidate when no trial scores
// below +Inf, which happens when a rating is NaN or infinite.
func (s *Searcher) EvaluateShard(ctx context.Context, shard model.Shard) (model.ShardResult, error) {
	if shard.Trials <= 0 {
		return model.ShardResult{}, fmt.Errorf("%w: shard %d has %d trials", ErrNoTrials, shard.Index, shard.Trials)
	}

	res := model.ShardResult{Shard: shard}
	bestCost := math.Inf(1)
	for i := shard.FirstTrial; i < shard.End(); i++ {
		if (i-shard.FirstTrial)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return model.ShardResult{}, fmt.Errorf("shard %d interrupted at trial %d: %w", shard.Index, i, err)
			}
		}

		c := s.Trial(i)
		if c.Metrics.Cost < bestCost {
			bestCost = c.Metrics.Cost
			res.Best = c
			res.Improvements++
			if s.observer != nil {
				s.observer(c)
			}
		}
	}
	if res.Best.Partition == nil {
		return model.ShardResult{}, fmt.Errorf("%w: shard %d, trials %d-%d",
			ErrNoCandidate, shard.Index, shard.FirstTrial, shard.End()-1)
	}
	return res, nil
}

// Run evaluates trials 0..trials-1 in the calling goroutine.
func (s *Searcher) Run(ctx context.Context, trials int) (Result, error) {
	res, err := s.EvaluateShard(ctx, model.Shard{Trials: trials})
	if err != nil {
		return Result{}, err
	}
	return Result{Best: res.Best, Trials: trials, Improvements: res.Improvements, Shards: 1}, nil
}

// Shards splits trials into contiguous shards of at most size trials.
func Shards(trials, size int) []model.Shard {
	if trials <= 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultShardSize
	}
	out := make([]model.Shard, 0, (trials+size-1)/size)
	for first := 0; first < trials; first += size {
		n := size
		if first+n > trials {
			n = trials - first
		}
		out = append(out, model.Shard{Index: len(out), FirstTrial: first, Trials: n})
	}
	return out
}
