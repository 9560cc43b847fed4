package gateway

import (
	"context"

	"github.com/user/kernel6/internal/types"
)

// Processor handles one inbound event to completion.
type Processor interface {
	Process(ctx context.Context, ev *types.InboundEvent) error
}

// Gateway wraps inbound events in runs and feeds them through the queue, so
// that a conversation never has two events in flight.
type Gateway struct {
	proc  Processor
	Queue *Queue

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Gateway delivering events to proc with the given
// concurrency limit for simultaneous conversations.
func New(proc Processor, maxConcurrent ...int64) *Gateway {
	var concurrency int64 = 2
	if len(maxConcurrent) > 0 && maxConcurrent[0] > 0 {
		concurrency = maxConcurrent[0]
	}
	g := &Gateway{
		proc:  proc,
		Queue: NewQueue(concurrency),
	}
	g.Queue.SetProcessor(g.process)
	return g
}

// Start initialises the gateway's context and starts the internal queue.
func (g *Gateway) Start(ctx context.Context) {
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.Queue.Start(g.ctx)
}

// Stop cancels the gateway context, stops the queue, and waits for any
// outstanding work to finish.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.Queue.Stop()
}

// RunOption configures optional behavior on a Run.
type RunOption func(*Run)

// WithOnComplete sets a callback invoked once the run has been processed.
func WithOnComplete(fn func(error)) RunOption {
	return func(r *Run) { r.OnComplete = fn }
}

// HandleInbound wraps the event in a Run and enqueues it on its
// conversation's lane.
func (g *Gateway) HandleInbound(_ context.Context, event *types.InboundEvent, opts ...RunOption) error {
	run := NewRun(event)
	for _, opt := range opts {
		opt(run)
	}
	return g.Queue.Enqueue(run)
}

func (g *Gateway) process(run *Run) error {
	run.start()
	err := g.proc.Process(run.Ctx, run.Event)
	run.finish(err)
	return err
}
