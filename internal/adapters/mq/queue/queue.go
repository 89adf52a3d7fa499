// Package queue hands search shards to workers.
//
// The queue is bounded and in-memory: a run enqueues every shard up front,
// closes the queue, and workers drain it until the dequeue channel closes.
package queue

import (
	"context"
	"sync"

	"github.com/okian/teamsplit/internal/domain/model"
	"github.com/okian/teamsplit/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
)

// Shard is the payload type flowing through the queue.
type Shard = model.Shard

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a shard to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, s Shard) bool

	// Dequeue returns a channel that will receive shards as they become available.
	// The channel will be closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Shard

	// Close stops accepting shards. Queued shards are still delivered.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	shards   chan Shard
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.shards = make(chan Shard, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a shard to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s Shard) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.shards <- s:
		metrics.RecordQueueEnqueue()
		q.observe()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive shards as they become available.
// Each caller gets its own channel; callers compete for queued shards.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Shard {
	out := make(chan Shard)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-q.shards:
				if !ok {
					return
				}
				select {
				case out <- s:
					metrics.RecordQueueDequeue()
					q.observe()
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Close stops accepting shards.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.shards)
	q.closed = true

	return nil
}

func (q *InMemoryQueue) observe() {
	size := len(q.shards)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
