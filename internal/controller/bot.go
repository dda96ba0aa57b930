package controller

import (
	"duel-arena/server/internal/input"
	"duel-arena/server/internal/sim"
)

// StateSource returns the live simulation state. The arena hands out its
// accessor because rollback may swap the state between ticks.
type StateSource func() *sim.State

// Bot is a deterministic local opponent. It approaches, attacks when in
// range and blocks now and then, all keyed off the in-state RNG seed so two
// machines running the same match pick the same actions.
type Bot struct {
	player int
	state  StateSource
	every  uint32
}

// NewBot drives player using the state returned by source. It decides once
// every interval ticks.
func NewBot(player int, source StateSource, interval uint32) *Bot {
	if interval == 0 {
		interval = 1
	}
	return &Bot{player: player, state: source, every: interval}
}

func (b *Bot) Kind() Kind { return Local }

func (b *Bot) RoundTripTicks() uint32 { return 0 }

func (b *Bot) Send(uint32, []byte) error { return nil }

func (b *Bot) Close() error { return nil }

// Poll returns at most one action for the current tick.
func (b *Bot) Poll() input.Chain {
	s := b.state()
	if s == nil || s.Tick%b.every != 0 {
		return nil
	}
	action := b.decide(s)
	return input.Chain{input.Action(s.Tick, action)}
}

func (b *Bot) decide(s *sim.State) sim.Action {
	self := s.HAR(b.player)
	foe := s.HAR(1 - b.player)
	gap := foe.X - self.X
	if gap < 0 {
		gap = -gap
	}
	roll := (s.Seed >> 8) % 10
	switch {
	case foe.State == sim.StateAttacking && roll < 3:
		return sim.ActionBlock
	case gap <= 45:
		if roll < 6 {
			return sim.ActionPunch
		}
		return sim.ActionKick
	case gap > 160 && roll == 0:
		return sim.ActionSpecial
	case foe.X < self.X:
		return sim.ActionLeft
	default:
		return sim.ActionRight
	}
}
