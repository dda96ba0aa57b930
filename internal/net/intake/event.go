// Package intake validates inbound peer messages and converts them into
// input events for the match queue.
package intake

import (
	"duel-arena/server/internal/input"
	"duel-arena/server/internal/net/proto"
	"duel-arena/server/internal/sim"
)

// Reject reasons reported back to the transport for logging.
const (
	RejectInvalidAction = "invalid_action"
	RejectEmptySnapshot = "empty_snapshot"
	RejectNotInput      = "not_input"
)

// Event converts msg into an input event. Control messages (ping, pong) are
// not input and are rejected with RejectNotInput.
func Event(msg proto.Message) (input.Event, bool, string) {
	switch msg.Type {
	case proto.TypeAction:
		action, err := sim.ParseAction(msg.Action)
		if err != nil {
			return input.Event{}, false, RejectInvalidAction
		}
		return input.Action(msg.Tick, action), true, ""
	case proto.TypeSync:
		if len(msg.Snapshot) == 0 {
			return input.Event{}, false, RejectEmptySnapshot
		}
		snapshot := make([]byte, len(msg.Snapshot))
		copy(snapshot, msg.Snapshot)
		return input.Sync(msg.Tick, snapshot), true, ""
	default:
		return input.Event{}, false, RejectNotInput
	}
}
