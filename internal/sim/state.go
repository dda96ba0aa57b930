// Package sim is the deterministic fighting simulation. A State advanced by
// the same ordered sequence of Act and Step calls always yields the same
// successor, which is what rollback and resync rely on.
package sim

import (
	"fmt"

	"duel-arena/server/internal/palette"
)

const (
	// Players is the number of HARs in a match.
	Players = 2
	// HARKinds is the number of selectable HAR models.
	HARKinds = 11

	ArenaLeft  int32 = 20
	ArenaRight int32 = 300
	FloorY     int32 = 190

	WalkSpeed    int32 = 3
	JumpVelocity int32 = -12
	JumpDrift    int32 = 2
	Gravity      int32 = 1

	DefaultHealth    int32 = 100
	DefaultEndurance int32 = 100

	StunTicks              uint16 = 60
	EnduranceRegenInterval uint16 = 8

	ProjectileSpeed  int32  = 6
	ProjectileTTL    uint16 = 60
	ProjectileRadius int32  = 20
)

var startX = [Players]int32{60, 260}
var startFacing = [Players]Facing{FaceRight, FaceLeft}

// Object is a free-flying projectile owned by a HAR.
type Object struct {
	Owner      uint8  `msgpack:"owner"`
	X          int32  `msgpack:"x"`
	Y          int32  `msgpack:"y"`
	VX         int32  `msgpack:"vx"`
	Move       MoveID `msgpack:"move"`
	TTL        uint16 `msgpack:"ttl"`
	Activation uint32 `msgpack:"activation"`
}

// Setup selects the HAR model and pilot for one player.
type Setup struct {
	HAR   uint8
	Pilot uint8
}

// State is the whole simulated world at one tick.
//
// Palettes and hooks are attachments: they are not serialized and Clone does
// not carry them, so anything that reconstructs a State must reattach them.
type State struct {
	Tick    uint32       `msgpack:"tick"`
	Seed    uint32       `msgpack:"seed"`
	HARs    [Players]HAR `msgpack:"hars"`
	Objects []Object     `msgpack:"objects"`

	palettes [Players]*palette.Palette
	hooks    [Players]harHooks
}

// New creates the state at match entry.
func New(seed uint32, setups [Players]Setup) (*State, error) {
	s := &State{Seed: seed}
	for i, setup := range setups {
		if setup.HAR >= HARKinds {
			return nil, fmt.Errorf("player %d: unknown har %d", i+1, setup.HAR)
		}
		s.HARs[i] = HAR{
			Kind:         setup.HAR,
			Pilot:        setup.Pilot,
			X:            startX[i],
			Y:            FloorY,
			Facing:       startFacing[i],
			State:        StateStanding,
			Anim:         AnimIdle,
			Health:       DefaultHealth,
			HealthMax:    DefaultHealth,
			Endurance:    DefaultEndurance,
			EnduranceMax: DefaultEndurance,
		}
	}
	return s, nil
}

// Clone returns a deep copy of the simulated data without attachments.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	cloned := &State{
		Tick: s.Tick,
		Seed: s.Seed,
		HARs: s.HARs,
	}
	if len(s.Objects) > 0 {
		cloned.Objects = append([]Object(nil), s.Objects...)
	}
	return cloned
}

// HAR returns a copy of the given player's HAR.
func (s *State) HAR(player int) HAR {
	return s.HARs[player]
}

// SetPalette attaches the cosmetic palette for player.
func (s *State) SetPalette(player int, p *palette.Palette) {
	s.palettes[player] = p
}

// Palette returns the attached palette for player, nil when none is attached.
func (s *State) Palette(player int) *palette.Palette {
	return s.palettes[player]
}

// SetOutcome poses the winner and the loser. Posing HARs ignore actions.
func (s *State) SetOutcome(winner int) {
	loser := 1 - winner
	w, l := &s.HARs[winner], &s.HARs[loser]
	for _, h := range []*HAR{w, l} {
		h.Move = MoveNone
		h.MoveElapsed = 0
		h.VX = 0
	}
	w.State, w.Anim = StateVictory, AnimVictory
	l.State, l.Anim = StateDefeat, AnimDefeat
}

// nextRandom advances the in-state LCG and returns the new seed.
func (s *State) nextRandom() uint32 {
	s.Seed = s.Seed*1103515245 + 12345
	return s.Seed
}
