package sim

import "fmt"

// Facing is the horizontal direction a HAR looks at.
type Facing int8

const (
	FaceLeft  Facing = -1
	FaceRight Facing = 1
)

// HARState is the high level behavior a HAR is in.
type HARState uint8

const (
	StateStanding HARState = iota
	StateWalking
	StateCrouching
	StateJumping
	StateAttacking
	StateBlocking
	StateStunned
	StateVictory
	StateDefeat
)

var harStateNames = [...]string{"standing", "walking", "crouching", "jumping", "attacking", "blocking", "stunned", "victory", "defeat"}

func (s HARState) String() string {
	if int(s) < len(harStateNames) {
		return harStateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Animation is the animation id a HAR is playing.
type Animation uint8

const (
	AnimIdle Animation = iota
	AnimWalk
	AnimCrouch
	AnimJump
	AnimPunch
	AnimKick
	AnimSpecial
	AnimBlock
	AnimStunned
	AnimVictory
	AnimDefeat
)

// HAR is the serialized combat state of one fighter.
type HAR struct {
	Kind         uint8     `msgpack:"kind"`
	Pilot        uint8     `msgpack:"pilot"`
	X            int32     `msgpack:"x"`
	Y            int32     `msgpack:"y"`
	VX           int32     `msgpack:"vx"`
	VY           int32     `msgpack:"vy"`
	Facing       Facing    `msgpack:"facing"`
	State        HARState  `msgpack:"state"`
	Anim         Animation `msgpack:"anim"`
	Health       int32     `msgpack:"health"`
	HealthMax    int32     `msgpack:"health_max"`
	Endurance    int32     `msgpack:"endurance"`
	EnduranceMax int32     `msgpack:"endurance_max"`
	Move         MoveID    `msgpack:"move"`
	MoveElapsed  uint16    `msgpack:"move_elapsed"`
	MoveHit      bool      `msgpack:"move_hit"`
	Activation   uint32    `msgpack:"activation"`
	Stun         uint16    `msgpack:"stun"`
	Regen        uint16    `msgpack:"regen"`
}

// Defeated reports whether both health and endurance are exhausted.
func (h HAR) Defeated() bool {
	return h.Health <= 0 && h.Endurance <= 0
}

// Finished reports whether the HAR is posing after the match outcome.
func (h HAR) Finished() bool {
	return h.State == StateVictory || h.State == StateDefeat
}

func (h HAR) turnable() bool {
	switch h.State {
	case StateStanding, StateCrouching, StateWalking, StateStunned:
		return true
	default:
		return false
	}
}

func (h *HAR) stand() {
	h.State = StateStanding
	h.Anim = AnimIdle
	h.VX = 0
}

func (h *HAR) clampX() {
	if h.X < ArenaLeft {
		h.X = ArenaLeft
	}
	if h.X > ArenaRight {
		h.X = ArenaRight
	}
}
