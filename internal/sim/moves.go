package sim

// MoveID identifies an attack.
type MoveID uint8

const (
	MoveNone MoveID = iota
	MovePunch
	MoveKick
	MoveSpecial
)

// Move describes the timing and effect of an attack. Frame counts are ticks.
type Move struct {
	ID       MoveID
	Name     string
	Startup  uint16
	Active   uint16
	Recovery uint16
	Range    int32
	Damage   int32
	Stun     int32
	Points   int
}

// Duration is the total number of ticks the move occupies the HAR.
func (m Move) Duration() uint16 {
	return m.Startup + m.Active + m.Recovery
}

// active reports whether elapsed falls inside the hit window.
func (m Move) active(elapsed uint16) bool {
	return elapsed >= m.Startup && elapsed < m.Startup+m.Active
}

var moves = map[MoveID]Move{
	MovePunch:   {ID: MovePunch, Name: "punch", Startup: 3, Active: 2, Recovery: 6, Range: 45, Damage: 6, Stun: 12, Points: 200},
	MoveKick:    {ID: MoveKick, Name: "kick", Startup: 5, Active: 3, Recovery: 9, Range: 55, Damage: 9, Stun: 16, Points: 300},
	MoveSpecial: {ID: MoveSpecial, Name: "special", Startup: 8, Active: 0, Recovery: 12, Range: ProjectileRadius, Damage: 12, Stun: 20, Points: 500},
}

// LookupMove returns the move table entry for id.
func LookupMove(id MoveID) (Move, bool) {
	move, ok := moves[id]
	return move, ok
}

func moveForAction(action Action) MoveID {
	switch action {
	case ActionPunch:
		return MovePunch
	case ActionKick:
		return MoveKick
	case ActionSpecial:
		return MoveSpecial
	default:
		return MoveNone
	}
}
