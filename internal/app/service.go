// Package service plans balanced teams: it resolves the active players,
// runs the partition search and packages the winning partition.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/teamsplit/internal/adapters/mq/queue"
	"github.com/okian/teamsplit/internal/adapters/mq/worker"
	"github.com/okian/teamsplit/internal/domain/cost"
	"github.com/okian/teamsplit/internal/domain/model"
	"github.com/okian/teamsplit/internal/domain/partition"
	"github.com/okian/teamsplit/internal/domain/scoring"
	"github.com/okian/teamsplit/internal/domain/search"
	"github.com/okian/teamsplit/pkg/logger"
	"github.com/okian/teamsplit/pkg/metrics"
)

// Service plans team splits. It is safe for concurrent use.
type Service struct {
	schema     scoring.Schema
	weights    cost.Weights
	iterations int
	workers    int
	shardSize  int
	seed       uint64

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		schema:     scoring.DefaultSchema(),
		weights:    cost.DefaultWeights(),
		iterations: search.DefaultTrials,
		workers:    runtime.NumCPU(),
		shardSize:  search.DefaultShardSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("planner")
	}
	return s
}

// TeamResult describes one team of the chosen partition.
type TeamResult struct {
	Players  []string  `json:"players"`
	Score    float64   `json:"score"`
	Variance float64   `json:"variance"`
	Profile  []float64 `json:"profile"`

	// DividedMean is the plain per-player mean of the divided attribute.
	// It is informational and takes no part in the cost.
	DividedMean float64 `json:"divided_mean"`
}

// Result is the outcome of a plan.
type Result struct {
	RunID        string `json:"run_id"`
	Seed         uint64 `json:"seed"`
	Trials       int    `json:"trials"`
	Improvements int    `json:"improvements"`
	BestTrial    int    `json:"best_trial"`

	Teams             []TeamResult `json:"teams"`
	Balance           float64      `json:"balance"`
	TotalVariance     float64      `json:"total_variance"`
	ProfileDifference float64      `json:"profile_difference"`
	Cost              float64      `json:"cost"`

	// ProfileAttributes orders TeamResult.Profile.
	ProfileAttributes []string `json:"profile_attributes"`
	DividedAttribute  string   `json:"divided_attribute"`

	Elapsed time.Duration `json:"elapsed_ns"`
}

// Plan splits the active players of roster into numTeams teams of teamSize
// players with the lowest cost found.
func (s *Service) Plan(ctx context.Context, roster []model.Player, active []string, numTeams, teamSize int) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := s.logger.With(logger.String("run_id", runID))

	players, err := s.Resolve(roster, active, numTeams, teamSize)
	if err != nil {
		return nil, err
	}

	fn, err := cost.New(s.schema, s.weights, teamSize)
	if err != nil {
		return nil, err
	}
	gen, err := partition.NewGenerator(players, numTeams, teamSize)
	if err != nil {
		return nil, err
	}

	seed := s.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	searcher := search.New(gen, fn, search.WithSeed(seed))

	log.Info(ctx, "search started",
		logger.Int("players", len(players)),
		logger.Int("teams", numTeams),
		logger.Int("team_size", teamSize),
		logger.Int("trials", s.iterations),
		logger.Int("workers", s.workers),
		logger.Any("seed", seed))

	var res search.Result
	if s.workers > 1 {
		res, err = s.runPool(ctx, log, searcher)
	} else {
		res, err = searcher.Run(ctx, s.iterations)
	}
	if err != nil {
		metrics.RecordErrorByComponent("planner", "search")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrInterrupted, ctxErr)
		}
		return nil, err
	}

	elapsed := time.Since(start)
	best := res.Best
	metrics.RecordRun(res.Trials, res.Improvements, best.Metrics.Cost, best.Metrics.Balance, elapsed)

	log.Info(ctx, "search finished",
		logger.Float64("cost", best.Metrics.Cost),
		logger.Float64("balance", best.Metrics.Balance),
		logger.Int("best_trial", best.Trial),
		logger.Int("improvements", res.Improvements),
		logger.Duration("elapsed", elapsed))

	return s.result(runID, seed, res, elapsed), nil
}

// Resolve returns the roster entries of the active names and checks that
// they fill numTeams teams of teamSize players.
func (s *Service) Resolve(roster []model.Player, active []string, numTeams, teamSize int) ([]model.Player, error) {
	players, err := resolve(roster, active)
	if err != nil {
		metrics.RecordErrorByComponent("planner", "roster")
		return nil, err
	}
	metrics.UpdatePlayersActive(len(players))

	want, err := partition.Capacity(numTeams, teamSize)
	if err != nil {
		metrics.RecordErrorByComponent("planner", "player_count")
		return nil, fmt.Errorf("%w: have %d active players: %w", ErrPlayerCount, len(players), err)
	}
	if len(players) != want {
		metrics.RecordErrorByComponent("planner", "player_count")
		return nil, fmt.Errorf("%w: have %d active players, need %d (%d teams of %d)",
			ErrPlayerCount, len(players), want, numTeams, teamSize)
	}
	return players, nil
}

// runPool shards the trials over a worker pool and reduces the shard bests.
func (s *Service) runPool(ctx context.Context, log logger.Logger, searcher *search.Searcher) (search.Result, error) {
	shards := search.Shards(s.iterations, s.shardSize)
	q := queue.NewInMemoryQueue(queue.WithCapacity(len(shards)))
	for _, sh := range shards {
		if !q.Enqueue(ctx, sh) {
			_ = q.Close()
			if err := ctx.Err(); err != nil {
				return search.Result{}, err
			}
			return search.Result{}, fmt.Errorf("enqueue shard %d: queue rejected it", sh.Index)
		}
	}
	if err := q.Close(); err != nil {
		return search.Result{}, err
	}

	workers := min(s.workers, len(shards))
	reducer := search.NewReducer()
	pool := worker.NewPool(workers, q, searcher, reducer, worker.WithLogger(log.Named("worker")))
	pool.Start(ctx)

	drained := make(chan struct{})
	go func() {
		pool.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		if err := pool.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}

	if err := ctx.Err(); err != nil {
		return search.Result{}, err
	}
	return reducer.Result(len(shards))
}

func (s *Service) result(runID string, seed uint64, res search.Result, elapsed time.Duration) *Result {
	best := res.Best
	out := &Result{
		RunID:             runID,
		Seed:              seed,
		Trials:            res.Trials,
		Improvements:      res.Improvements,
		BestTrial:         best.Trial,
		Teams:             make([]TeamResult, len(best.Partition)),
		Balance:           best.Metrics.Balance,
		TotalVariance:     best.Metrics.TotalVariance,
		ProfileDifference: best.Metrics.ProfileDifference,
		Cost:              best.Metrics.Cost,
		ProfileAttributes: append([]string(nil), s.schema.Profile...),
		DividedAttribute:  s.schema.Divided,
		Elapsed:           elapsed,
	}
	for i, team := range best.Partition {
		out.Teams[i] = TeamResult{
			Players:     team.Names(),
			Score:       best.Metrics.Scores[i],
			Variance:    best.Metrics.Variances[i],
			Profile:     best.Metrics.Profiles[i],
			DividedMean: scoring.AttributeMean(team, s.schema.Divided),
		}
	}
	return out
}

// resolve returns the roster entries of the active names, in active order.
// Names are trimmed and duplicates ignored. Every unknown name is reported.
func resolve(roster []model.Player, active []string) ([]model.Player, error) {
	idx := make(map[string]model.Player, len(roster))
	for _, p := range roster {
		idx[p.Name] = p
	}

	players := make([]model.Player, 0, len(active))
	seen := make(map[string]struct{}, len(active))
	var missing []string
	for _, name := range active {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		p, ok := idx[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		players = append(players, p)
	}
	if len(missing) > 0 {
		return nil, &MissingPlayersError{Names: missing}
	}
	return players, nil
}

// IsInputError reports whether err stems from the roster or active list
// rather than from the search itself.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingPlayers) || errors.Is(err, ErrPlayerCount)
}
