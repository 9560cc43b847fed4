package gateway

import (
	"context"
	"time"

	"github.com/user/kernel6/internal/types"
)

// RunStatus represents the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run tracks the handling of a single inbound event.
type Run struct {
	ID         types.RunID
	SessionKey types.SessionKey
	Event      *types.InboundEvent
	Status     RunStatus
	Ctx        context.Context
	CreatedAt  time.Time
	StartedAt  *time.Time
	EndedAt    *time.Time
	Error      error
	OnComplete func(err error)
}

// NewRun creates a Run in the Queued state for the given event.
func NewRun(event *types.InboundEvent) *Run {
	return &Run{
		ID:         types.NewRunID(),
		SessionKey: event.SessionKey,
		Event:      event,
		Status:     RunStatusQueued,
		CreatedAt:  time.Now(),
	}
}

func (r *Run) start() {
	now := time.Now()
	r.StartedAt = &now
	r.Status = RunStatusRunning
}

func (r *Run) finish(err error) {
	now := time.Now()
	r.EndedAt = &now
	r.Error = err
	if err != nil {
		r.Status = RunStatusFailed
	} else {
		r.Status = RunStatusComplete
	}
}
