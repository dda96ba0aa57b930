package controller

import (
	"errors"
	"sync/atomic"

	"duel-arena/server/internal/input"
	"duel-arena/server/internal/sim"
	"duel-arena/server/internal/telemetry"
)

// ErrClosed is returned when pushing into a controller that has been closed.
var ErrClosed = errors.New("controller closed")

// Keyboard is a local controller fed by Push. The headless server wires a
// stdin reader or a bot into it.
type Keyboard struct {
	queue  *input.Queue
	closed atomic.Bool
}

// NewKeyboard constructs a local controller with a bounded queue.
func NewKeyboard(capacity int, metrics telemetry.Metrics) *Keyboard {
	return &Keyboard{queue: input.NewQueue(capacity, metrics)}
}

// Push queues a local action stamped with tick.
func (k *Keyboard) Push(tick uint32, action sim.Action) error {
	if k.closed.Load() {
		return ErrClosed
	}
	return k.queue.Push(input.Action(tick, action))
}

// Kind implements Controller.
func (k *Keyboard) Kind() Kind { return Local }

// Poll implements Controller.
func (k *Keyboard) Poll() input.Chain { return k.queue.Poll() }

// RoundTripTicks implements Controller.
func (k *Keyboard) RoundTripTicks() uint32 { return 0 }

// Send implements Controller. Local players have no remote side.
func (k *Keyboard) Send(uint32, []byte) error { return nil }

// Close implements Controller.
func (k *Keyboard) Close() error {
	k.closed.Store(true)
	return nil
}
