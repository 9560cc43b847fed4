package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/kernel6/internal/types"
)

const laneBuffer = 100

// ErrQueueFull is returned by Enqueue when a conversation's lane is full.
var ErrQueueFull = errors.New("lane full")

// Queue manages per-conversation lanes with a global concurrency semaphore.
// Each conversation gets its own FIFO channel (lane) so that its events are
// handled sequentially, while the semaphore limits the total number of
// concurrent processors across all conversations.
type Queue struct {
	lanes     map[types.SessionKey]chan *Run
	semaphore *semaphore.Weighted
	processor func(*Run) error
	queued    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// NewQueue creates a Queue that allows up to maxConcurrent runs to execute
// simultaneously across all lanes.
func NewQueue(maxConcurrent int64) *Queue {
	return &Queue{
		lanes:     make(map[types.SessionKey]chan *Run),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels the queue context, closes all lanes, and waits for in-flight
// processors to finish.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Lock()
	for key, lane := range q.lanes {
		close(lane)
		delete(q.lanes, key)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue adds a Run to its conversation's lane, creating the lane (and its
// goroutine) on first use.
func (q *Queue) Enqueue(run *Run) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ctx == nil || q.ctx.Err() != nil {
		return fmt.Errorf("queue not running")
	}

	lane, exists := q.lanes[run.SessionKey]
	if !exists {
		lane = make(chan *Run, laneBuffer)
		q.lanes[run.SessionKey] = lane
		q.wg.Add(1)
		go q.processLane(run.SessionKey, lane)
	}

	select {
	case lane <- run:
		q.queued.Add(1)
		return nil
	default:
		return fmt.Errorf("%w for session %s", ErrQueueFull, run.SessionKey)
	}
}

// processLane drains a single lane, acquiring a semaphore slot before
// running the processor synchronously. The lane is removed once it runs
// dry; the next event for the conversation starts a fresh one.
func (q *Queue) processLane(key types.SessionKey, lane chan *Run) {
	defer q.wg.Done()
	for {
		select {
		case run, ok := <-lane:
			if !ok {
				return
			}
			if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
				return
			}
			q.execute(run)
			q.semaphore.Release(1)
			q.queued.Add(-1)
			if q.reap(key, lane) {
				return
			}
		case <-q.ctx.Done():
			return
		}
	}
}

// reap drops the lane when it is empty. Enqueue sends under the same lock,
// so nothing can slip into a reaped lane.
func (q *Queue) reap(key types.SessionKey, lane chan *Run) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(lane) > 0 || q.lanes[key] != lane {
		return false
	}
	delete(q.lanes, key)
	return true
}

func (q *Queue) execute(run *Run) {
	if q.processor == nil {
		return
	}
	run.Ctx = q.ctx
	err := q.processor(run)
	if err != nil {
		slog.Error("run failed", "run_id", string(run.ID), "session_key", string(run.SessionKey), "error", err)
	}
	if run.OnComplete != nil {
		run.OnComplete(err)
	}
}

// WaitIdle blocks until every enqueued run has been processed, or the
// timeout expires. Returns true if idle.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.queued.Load() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// SetProcessor sets the function invoked for each dequeued Run.
func (q *Queue) SetProcessor(fn func(*Run) error) {
	q.processor = fn
}
