package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/user/kernel6/internal/types"
)

type recordingProcessor struct {
	mu     sync.Mutex
	events []*types.InboundEvent
	err    error
}

func (p *recordingProcessor) Process(_ context.Context, ev *types.InboundEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestGatewayHandleInbound(t *testing.T) {
	proc := &recordingProcessor{}
	gw := New(proc)
	ctx := context.Background()
	gw.Start(ctx)
	defer gw.Stop()

	inbound := &types.InboundEvent{
		Source:     "test",
		SessionKey: types.NewSessionKey("test", "123"),
		UserID:     "user1",
		Kind:       types.EventText,
		Text:       "hello",
	}

	if err := gw.HandleInbound(ctx, inbound); err != nil {
		t.Fatal(err)
	}
	if !gw.Queue.WaitIdle(2 * time.Second) {
		t.Fatal("timed out waiting for queue")
	}
	if proc.count() != 1 {
		t.Errorf("expected 1 processed event, got %d", proc.count())
	}
}

func TestGatewaySameSessionOrder(t *testing.T) {
	proc := &recordingProcessor{}
	gw := New(proc, 4)
	ctx := context.Background()
	gw.Start(ctx)
	defer gw.Stop()

	key := types.NewSessionKey("test", "same-key")
	for _, text := range []string{"one", "two", "three"} {
		inbound := &types.InboundEvent{SessionKey: key, Kind: types.EventText, Text: text}
		if err := gw.HandleInbound(ctx, inbound); err != nil {
			t.Fatal(err)
		}
	}
	if !gw.Queue.WaitIdle(2 * time.Second) {
		t.Fatal("timed out waiting for queue")
	}

	proc.mu.Lock()
	defer proc.mu.Unlock()
	for i, want := range []string{"one", "two", "three"} {
		if proc.events[i].Text != want {
			t.Errorf("event %d = %q, want %q", i, proc.events[i].Text, want)
		}
	}
}

func TestGatewayOnComplete(t *testing.T) {
	proc := &recordingProcessor{err: errors.New("boom")}
	gw := New(proc)
	ctx := context.Background()
	gw.Start(ctx)
	defer gw.Stop()

	done := make(chan error, 1)
	inbound := &types.InboundEvent{SessionKey: types.NewSessionKey("test", "x"), Kind: types.EventText}
	if err := gw.HandleInbound(ctx, inbound, WithOnComplete(func(err error) { done <- err })); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err == nil || err.Error() != "boom" {
			t.Errorf("expected processor error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnComplete not called")
	}
}

func TestGatewayRejectsAfterStop(t *testing.T) {
	gw := New(&recordingProcessor{})
	gw.Start(context.Background())
	gw.Stop()

	inbound := &types.InboundEvent{SessionKey: types.NewSessionKey("test", "x")}
	if err := gw.HandleInbound(context.Background(), inbound); err == nil {
		t.Error("expected error after stop")
	}
}

func TestRunLifecycle(t *testing.T) {
	run := NewRun(&types.InboundEvent{SessionKey: "test:1"})
	if run.Status != RunStatusQueued || run.SessionKey != "test:1" || run.ID == "" {
		t.Fatalf("unexpected new run %+v", run)
	}
	run.start()
	if run.Status != RunStatusRunning || run.StartedAt == nil {
		t.Errorf("unexpected running state %+v", run)
	}
	run.finish(errors.New("x"))
	if run.Status != RunStatusFailed || run.EndedAt == nil || run.Error == nil {
		t.Errorf("unexpected failed state %+v", run)
	}
}
