package input

import (
	"errors"
	"sync"
)

const (
	queueOccupancyMetricKey = "input_queue_occupancy"
	queueOverflowMetricKey  = "input_queue_overflow_total"
)

// ErrQueueFull is returned by Push when the queue is at capacity.
var ErrQueueFull = errors.New("input queue full")

type queueMetrics interface {
	Add(string, uint64)
	Store(string, uint64)
}

// Queue stores pending events in a fixed-size ring. It is safe for concurrent
// producers and a single consumer.
type Queue struct {
	mu      sync.Mutex
	data    []Event
	head    int
	count   int
	metrics queueMetrics
}

// NewQueue constructs a ring with the provided capacity.
func NewQueue(capacity int, metrics queueMetrics) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		data:    make([]Event, capacity),
		metrics: metrics,
	}
}

// Capacity reports the maximum number of events the queue can hold.
func (q *Queue) Capacity() int {
	if q == nil {
		return 0
	}
	return len(q.data)
}

// Push appends an event. A full queue rejects everything except CLOSE, which
// overwrites the newest pending event so termination is never lost.
func (q *Queue) Push(event Event) error {
	if q == nil {
		return ErrQueueFull
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.data) {
		if q.metrics != nil {
			q.metrics.Add(queueOverflowMetricKey, 1)
		}
		if event.Type != EventClose {
			return ErrQueueFull
		}
		q.data[(q.head+q.count-1)%len(q.data)] = event
		return nil
	}
	q.data[(q.head+q.count)%len(q.data)] = event
	q.count++
	q.storeOccupancyLocked()
	return nil
}

// Poll drains every pending event in arrival order. It never blocks and
// returns nil when nothing is pending.
func (q *Queue) Poll() Chain {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	chain := make(Chain, q.count)
	for i := range chain {
		idx := (q.head + i) % len(q.data)
		chain[i] = q.data[idx]
		q.data[idx] = Event{}
	}
	q.head = 0
	q.count = 0
	q.storeOccupancyLocked()
	return chain
}

// Len reports the number of pending events.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *Queue) storeOccupancyLocked() {
	if q.metrics == nil {
		return
	}
	q.metrics.Store(queueOccupancyMetricKey, uint64(q.count))
}
