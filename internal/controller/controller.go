// Package controller defines the per-player input source a match polls each
// tick, plus the local implementations used by the headless server.
package controller

import (
	"duel-arena/server/internal/input"
	"duel-arena/server/internal/sim"
)

// Kind identifies who drives a player slot.
type Kind uint8

const (
	// Local controllers are driven on this machine.
	Local Kind = iota
	// Network controllers are driven by the remote peer.
	Network
)

func (k Kind) String() string {
	if k == Network {
		return "network"
	}
	return "local"
}

// Controller is the input source for one player slot.
type Controller interface {
	Kind() Kind
	// Poll drains the events accumulated since the previous poll.
	Poll() input.Chain
	// RoundTripTicks is the measured round trip in simulation ticks. Local
	// controllers report zero.
	RoundTripTicks() uint32
	// Send delivers an encoded snapshot to the remote side.
	Send(tick uint32, snapshot []byte) error
	Close() error
}

// ActionNotifier is implemented by network controllers that forward local
// actions to the remote peer.
type ActionNotifier interface {
	NotifyAction(tick uint32, action sim.Action) error
}
