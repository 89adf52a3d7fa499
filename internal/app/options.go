package service

import (
	"github.com/okian/teamsplit/internal/domain/cost"
	"github.com/okian/teamsplit/internal/domain/scoring"
	"github.com/okian/teamsplit/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSchema sets the attribute roles used for scoring.
func WithSchema(schema scoring.Schema) Option {
	return func(s *Service) {
		s.schema = schema
	}
}

// WithWeights sets the cost weights.
func WithWeights(w cost.Weights) Option {
	return func(s *Service) {
		s.weights = w
	}
}

// WithIterations sets the number of trials per plan.
func WithIterations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.iterations = n
		}
	}
}

// WithWorkers sets the number of shard workers. 1 evaluates every trial in
// the calling goroutine; 0 keeps the default of one worker per CPU.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithShardSize sets the number of trials per shard.
func WithShardSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shardSize = n
		}
	}
}

// WithSeed fixes the search seed. 0 draws a new seed for every plan.
func WithSeed(seed uint64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}
