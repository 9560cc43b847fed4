package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/kernel6/internal/types"
)

func textRun(chat int, text string) *Run {
	key := types.NewSessionKey("telegram", fmt.Sprint(chat), fmt.Sprint(chat))
	return NewRun(&types.InboundEvent{SessionKey: key, Kind: types.EventText, Text: text})
}

func startedQueue(t *testing.T, limit int64, fn func(*Run) error) *Queue {
	t.Helper()
	q := NewQueue(limit)
	q.SetProcessor(fn)
	q.Start(context.Background())
	t.Cleanup(q.Stop)
	return q
}

func TestQueueLimitsConcurrentConversations(t *testing.T) {
	var running, maxSeen atomic.Int32
	q := startedQueue(t, 2, func(run *Run) error {
		n := running.Add(1)
		for {
			old := maxSeen.Load()
			if n <= old || maxSeen.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		running.Add(-1)
		return nil
	})

	for chat := range 5 {
		if err := q.Enqueue(textRun(chat, "oi")); err != nil {
			t.Fatal(err)
		}
	}
	if !q.WaitIdle(2 * time.Second) {
		t.Fatal("timed out waiting for queue")
	}
	if m := maxSeen.Load(); m > 2 {
		t.Errorf("expected at most 2 conversations in flight, saw %d", m)
	}
	if m := maxSeen.Load(); m < 2 {
		t.Errorf("distinct conversations should overlap, saw %d", m)
	}
}

func TestQueuePassesEventAndContext(t *testing.T) {
	var got *types.InboundEvent
	var hadCtx bool
	q := startedQueue(t, 1, func(run *Run) error {
		got = run.Event
		hadCtx = run.Ctx != nil
		return nil
	})

	run := textRun(7, "Poste quebrado")
	if err := q.Enqueue(run); err != nil {
		t.Fatal(err)
	}
	if !q.WaitIdle(time.Second) {
		t.Fatal("timed out waiting for queue")
	}
	if got == nil || got.Text != "Poste quebrado" {
		t.Errorf("processor did not receive the event, got %+v", got)
	}
	if !hadCtx {
		t.Error("run context should be set before processing")
	}
}

func TestQueueConversationOrdering(t *testing.T) {
	var mu sync.Mutex
	var order []string
	q := startedQueue(t, 3, func(run *Run) error {
		// Earlier events take longer so reordering would show.
		if run.Event.Text == "0" {
			time.Sleep(20 * time.Millisecond)
		}
		mu.Lock()
		order = append(order, run.Event.Text)
		mu.Unlock()
		return nil
	})

	for i := range 4 {
		if err := q.Enqueue(textRun(1, fmt.Sprint(i))); err != nil {
			t.Fatal(err)
		}
	}
	if !q.WaitIdle(2 * time.Second) {
		t.Fatal("timed out waiting for queue")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != fmt.Sprint(i) {
			t.Fatalf("events of one conversation reordered: %v", order)
		}
	}
}

func TestQueueOnComplete(t *testing.T) {
	boom := errors.New("boom")
	q := startedQueue(t, 1, func(run *Run) error { return boom })

	done := make(chan error, 1)
	run := textRun(3, "x")
	run.OnComplete = func(err error) { done <- err }
	if err := q.Enqueue(run); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("expected processor error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("OnComplete not called")
	}
}

func TestQueueNoProcessor(t *testing.T) {
	q := startedQueue(t, 1, nil)
	if err := q.Enqueue(textRun(1, "x")); err != nil {
		t.Fatal(err)
	}
	if !q.WaitIdle(time.Second) {
		t.Error("queue should drain without a processor")
	}
}

func TestQueueNotStarted(t *testing.T) {
	q := NewQueue(1)
	if err := q.Enqueue(textRun(1, "x")); err == nil {
		t.Error("expected error on a queue that was never started")
	}
}

func TestQueueFull(t *testing.T) {
	release := make(chan struct{})
	q := startedQueue(t, 1, func(run *Run) error {
		<-release
		return nil
	})
	defer close(release)

	var err error
	for i := 0; i < laneBuffer+2 && err == nil; i++ {
		err = q.Enqueue(textRun(9, "spam"))
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func laneCount(q *Queue) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.lanes)
}

func TestQueueReapsIdleLanes(t *testing.T) {
	var processed atomic.Int32
	q := startedQueue(t, 4, func(run *Run) error {
		processed.Add(1)
		return nil
	})

	for chat := range 20 {
		if err := q.Enqueue(textRun(chat, "oi")); err != nil {
			t.Fatal(err)
		}
	}
	if !q.WaitIdle(2 * time.Second) {
		t.Fatal("timed out waiting for queue")
	}

	deadline := time.Now().Add(time.Second)
	for laneCount(q) > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected idle lanes to be reaped, %d left", laneCount(q))
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A reaped conversation gets a fresh lane on its next event.
	if err := q.Enqueue(textRun(3, "de novo")); err != nil {
		t.Fatal(err)
	}
	if !q.WaitIdle(time.Second) {
		t.Fatal("timed out waiting for queue")
	}
	if processed.Load() != 21 {
		t.Errorf("expected 21 processed runs, got %d", processed.Load())
	}
}
