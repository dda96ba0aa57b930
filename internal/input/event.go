// Package input carries player input events from a controller to the match
// tick. Events for one player arrive in order and are drained once per tick.
package input

import (
	"fmt"

	"duel-arena/server/internal/sim"
)

// EventType tags an Event variant.
type EventType uint8

const (
	// EventAction carries one player action.
	EventAction EventType = iota + 1
	// EventSync carries a full snapshot from the authoritative peer.
	EventSync
	// EventClose signals the peer ended the session.
	EventClose
)

func (t EventType) String() string {
	switch t {
	case EventAction:
		return "action"
	case EventSync:
		return "sync"
	case EventClose:
		return "close"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

// Event is one queued input. Tick is the sender's simulation tick for
// actions and syncs.
type Event struct {
	Type     EventType
	Tick     uint32
	Action   sim.Action
	Snapshot []byte
}

// Action builds an ACTION event.
func Action(tick uint32, action sim.Action) Event {
	return Event{Type: EventAction, Tick: tick, Action: action}
}

// Sync builds a SYNC event. The snapshot bytes are owned by the event.
func Sync(tick uint32, snapshot []byte) Event {
	return Event{Type: EventSync, Tick: tick, Snapshot: snapshot}
}

// Close builds a CLOSE event.
func Close() Event {
	return Event{Type: EventClose}
}

// Chain is the ordered batch of events drained in one poll. It is owned by
// the caller and must not be retained past the tick it was polled in.
type Chain []Event

// Empty reports whether the chain has no events.
func (c Chain) Empty() bool {
	return len(c) == 0
}

// LeadingActions returns the run of consecutive ACTION events starting at
// index from, and the index of the first event after that run.
func (c Chain) LeadingActions(from int) ([]sim.Action, int) {
	var actions []sim.Action
	i := from
	for ; i < len(c) && c[i].Type == EventAction; i++ {
		actions = append(actions, c[i].Action)
	}
	return actions, i
}
