package input

import (
	"errors"
	"sync"
	"testing"

	"duel-arena/server/internal/sim"
	"duel-arena/server/internal/telemetry"
)

func TestQueueWraparound(t *testing.T) {
	queue := NewQueue(3, nil)
	events := []Event{Action(1, sim.ActionLeft), Action(1, sim.ActionPunch), Sync(2, []byte{1})}
	for _, event := range events {
		if err := queue.Push(event); err != nil {
			t.Fatalf("expected push to succeed for %+v: %v", event, err)
		}
	}
	if err := queue.Push(Action(3, sim.ActionKick)); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected full queue, got %v", err)
	}
	chain := queue.Poll()
	if len(chain) != len(events) {
		t.Fatalf("expected %d events, got %d", len(events), len(chain))
	}
	for i, event := range chain {
		if event.Type != events[i].Type || event.Action != events[i].Action {
			t.Fatalf("expected drain order %+v, got %+v", events[i], event)
		}
	}
	for _, event := range []Event{Action(4, sim.ActionUp), Close()} {
		if err := queue.Push(event); err != nil {
			t.Fatalf("expected push after drain to succeed: %v", err)
		}
	}
	wrapped := queue.Poll()
	if len(wrapped) != 2 || wrapped[0].Action != sim.ActionUp || wrapped[1].Type != EventClose {
		t.Fatalf("unexpected order after wraparound: %+v", wrapped)
	}
}

func TestQueuePollIsEmptyWhenIdle(t *testing.T) {
	queue := NewQueue(4, nil)
	if chain := queue.Poll(); chain != nil || !chain.Empty() {
		t.Fatalf("expected empty chain, got %+v", chain)
	}
	var nilQueue *Queue
	if nilQueue.Poll() != nil || nilQueue.Len() != 0 {
		t.Fatalf("nil queue must behave as empty")
	}
}

func TestQueueCloseIsNeverDropped(t *testing.T) {
	counters := telemetry.NewCounters()
	queue := NewQueue(2, counters)
	_ = queue.Push(Action(1, sim.ActionLeft))
	_ = queue.Push(Action(1, sim.ActionRight))
	if err := queue.Push(Close()); err != nil {
		t.Fatalf("close must be accepted on a full queue: %v", err)
	}
	chain := queue.Poll()
	if len(chain) != 2 || chain[1].Type != EventClose {
		t.Fatalf("expected close to replace the newest event, got %+v", chain)
	}
	if counters.Get(queueOverflowMetricKey) != 1 {
		t.Fatalf("expected overflow to be counted")
	}
	if counters.Get(queueOccupancyMetricKey) != 0 {
		t.Fatalf("expected occupancy to reset after poll")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	queue := NewQueue(1000, nil)
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = queue.Push(Action(uint32(i), sim.ActionPunch))
			}
		}()
	}
	wg.Wait()
	if got := len(queue.Poll()); got != 400 {
		t.Fatalf("expected 400 events, got %d", got)
	}
}

func TestLeadingActions(t *testing.T) {
	chain := Chain{
		Action(1, sim.ActionLeft),
		Action(1, sim.ActionPunch),
		Sync(1, nil),
		Action(2, sim.ActionKick),
	}
	actions, next := chain.LeadingActions(0)
	if len(actions) != 2 || actions[1] != sim.ActionPunch || next != 2 {
		t.Fatalf("unexpected leading run %v next=%d", actions, next)
	}
	actions, next = chain.LeadingActions(2)
	if len(actions) != 0 || next != 2 {
		t.Fatalf("expected no actions at a sync, got %v next=%d", actions, next)
	}
	actions, next = chain.LeadingActions(3)
	if len(actions) != 1 || next != 4 {
		t.Fatalf("unexpected trailing run %v next=%d", actions, next)
	}
}
