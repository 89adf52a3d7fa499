// Package worker evaluates search shards concurrently.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/teamsplit/internal/domain/model"
	"github.com/okian/teamsplit/pkg/logger"
	"github.com/okian/teamsplit/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Evaluator runs the trials of one shard and returns its local best.
type Evaluator interface {
	EvaluateShard(ctx context.Context, shard model.Shard) (model.ShardResult, error)
}

// Collector receives shard outcomes. Implementations must be safe for
// concurrent use.
type Collector interface {
	Collect(ctx context.Context, res model.ShardResult)
	Fail(ctx context.Context, shard model.Shard, err error)
}

// Queue defines how workers receive shards.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Shard
}

// Worker processes shards until its queue channel closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after the shard in progress.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	evaluator Evaluator
	collector Collector
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, evaluator Evaluator, collector Collector, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		evaluator: evaluator,
		collector: collector,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	w.logger = w.logger.With(logger.String("worker", w.name))

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	shards := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case shard, ok := <-shards:
			if !ok {
				return
			}
			if err := w.processShard(ctx, shard); err != nil {
				w.logger.Error(ctx, "error processing shard", logger.Int("shard", shard.Index), logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processShard evaluates a single shard and hands the outcome to the collector.
func (w *InMemoryWorker) processShard(ctx context.Context, shard model.Shard) error {
	start := time.Now()
	res, err := w.evaluator.EvaluateShard(ctx, shard)
	metrics.RecordShard(float64(time.Since(start).Microseconds()) / 1000)

	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "evaluate_error")
		w.collector.Fail(ctx, shard, err)
		return fmt.Errorf("failed to evaluate shard %d: %w", shard.Index, err)
	}

	w.logger.Debug(ctx, "shard evaluated",
		logger.Int("shard", shard.Index),
		logger.Int("trials", shard.Trials),
		logger.Int("best_trial", res.Best.Trial),
		logger.Float64("best_cost", res.Best.Metrics.Cost),
		logger.Duration("elapsed", time.Since(start)),
	)
	w.collector.Collect(ctx, res)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. A non-positive count uses one worker
// per CPU.
func NewPool(workerCount int, queue Queue, evaluator Evaluator, collector Collector, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
	}

	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, evaluator, collector, wopts...)
	}
	pool.logger = pool.workers[0].logger

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Wait blocks until every worker has returned, which happens once the queue
// is closed and drained or ctx is cancelled.
func (p *Pool) Wait() {
	for _, worker := range p.workers {
		<-worker.done
	}
}

// Shutdown closes the queue, signals all workers and waits for them until
// ctx or the pool timeout expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	for _, worker := range p.workers {
		worker.shutdownOnce.Do(func() { close(worker.shutdown) })
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		if err := worker.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("worker %d: %w", i, err)
		}
	}

	return nil
}
