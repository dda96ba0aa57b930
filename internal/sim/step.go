package sim

// Act applies one input to player's HAR and reports whether it changed
// gameplay state. Action hooks fire only for effective actions.
func (s *State) Act(player int, action Action) bool {
	if !s.act(player, action) {
		return false
	}
	s.fireAction(player, action)
	return true
}

func (s *State) act(player int, action Action) bool {
	h := &s.HARs[player]
	if h.Finished() {
		return false
	}
	switch h.State {
	case StateStunned, StateAttacking, StateJumping:
		return false
	}

	switch action {
	case ActionNone:
		if h.State == StateStanding {
			return false
		}
		h.stand()
		return true
	case ActionLeft, ActionRight:
		dir := int32(1)
		if action == ActionLeft {
			dir = -1
		}
		before, prev := h.X, h.State
		h.X += dir * WalkSpeed
		h.clampX()
		h.State, h.Anim = StateWalking, AnimWalk
		return h.X != before || prev != StateWalking
	case ActionUp:
		h.State, h.Anim = StateJumping, AnimJump
		h.VY = JumpVelocity
		h.VX = int32(h.Facing) * JumpDrift
		return true
	case ActionDown:
		if h.State == StateCrouching {
			return false
		}
		h.State, h.Anim = StateCrouching, AnimCrouch
		return true
	case ActionBlock:
		if h.State == StateBlocking {
			return false
		}
		h.State, h.Anim = StateBlocking, AnimBlock
		return true
	case ActionPunch, ActionKick, ActionSpecial:
		return s.startMove(h, moveForAction(action))
	default:
		return false
	}
}

func (s *State) startMove(h *HAR, id MoveID) bool {
	if _, ok := LookupMove(id); !ok {
		return false
	}
	h.State = StateAttacking
	h.Move = id
	h.MoveElapsed = 0
	h.MoveHit = false
	h.Activation++
	switch id {
	case MovePunch:
		h.Anim = AnimPunch
	case MoveKick:
		h.Anim = AnimKick
	case MoveSpecial:
		h.Anim = AnimSpecial
	}
	return true
}

// Step advances the simulation by exactly one tick.
func (s *State) Step() {
	s.nextRandom()
	for i := range s.HARs {
		s.integrate(&s.HARs[i])
	}
	for i := range s.HARs {
		s.advanceMove(i)
	}
	s.advanceObjects()
	for i := range s.HARs {
		s.recover(&s.HARs[i])
	}
	s.faceOpponents()
	s.Tick++
}

func (s *State) integrate(h *HAR) {
	switch h.State {
	case StateJumping:
		h.X += h.VX
		h.Y += h.VY
		h.VY += Gravity
		if h.Y >= FloorY {
			h.Y = FloorY
			h.VY = 0
			h.stand()
		}
	case StateWalking:
		h.stand()
	}
	h.clampX()
}

func (s *State) advanceMove(player int) {
	h := &s.HARs[player]
	if h.Move == MoveNone {
		return
	}
	move, ok := LookupMove(h.Move)
	if !ok {
		h.Move = MoveNone
		h.stand()
		return
	}
	h.MoveElapsed++
	if move.ID == MoveSpecial && h.MoveElapsed == move.Startup {
		s.Objects = append(s.Objects, Object{
			Owner:      uint8(player),
			X:          h.X + int32(h.Facing)*ProjectileRadius,
			Y:          h.Y,
			VX:         int32(h.Facing) * ProjectileSpeed,
			Move:       move.ID,
			TTL:        ProjectileTTL,
			Activation: h.Activation,
		})
	}
	if move.active(h.MoveElapsed) && !h.MoveHit {
		defender := 1 - player
		if abs32(h.X-s.HARs[defender].X) <= move.Range {
			h.MoveHit = true
			s.applyHit(player, defender, move, h.Activation)
		}
	}
	if h.MoveElapsed >= move.Duration() {
		h.Move = MoveNone
		h.MoveElapsed = 0
		h.stand()
	}
}

func (s *State) advanceObjects() {
	if len(s.Objects) == 0 {
		return
	}
	var kept []Object
	for _, obj := range s.Objects {
		obj.X += obj.VX
		obj.TTL--
		defender := 1 - int(obj.Owner)
		if abs32(obj.X-s.HARs[defender].X) <= ProjectileRadius {
			if move, ok := LookupMove(obj.Move); ok {
				s.applyHit(int(obj.Owner), defender, move, obj.Activation)
			}
			continue
		}
		if obj.TTL == 0 || obj.X < ArenaLeft || obj.X > ArenaRight {
			continue
		}
		kept = append(kept, obj)
	}
	s.Objects = kept
}

func (s *State) applyHit(attacker, defender int, move Move, activation uint32) {
	d := &s.HARs[defender]
	if d.Finished() {
		return
	}
	damage := move.Damage + int32(s.Seed>>16%3) - 1
	stun := move.Stun
	if d.State == StateBlocking {
		damage /= 2
		stun /= 2
	}
	d.Health = max(d.Health-damage, 0)
	d.Endurance = max(d.Endurance-stun, 0)
	d.Regen = 0
	if d.State != StateBlocking && d.Move != MoveNone {
		d.Move = MoveNone
		d.MoveElapsed = 0
		d.stand()
	}
	if d.Endurance == 0 && d.Health > 0 {
		d.State, d.Anim = StateStunned, AnimStunned
		d.Stun = StunTicks
		d.Move = MoveNone
		d.VX = 0
	}
	s.fireHit(Hit{
		Tick:       s.Tick,
		Attacker:   attacker,
		Defender:   defender,
		Move:       move,
		Activation: activation,
		Damage:     damage,
	})
}

func (s *State) recover(h *HAR) {
	if h.State == StateStunned {
		if h.Stun > 0 {
			h.Stun--
		}
		if h.Stun == 0 {
			h.Endurance = h.EnduranceMax / 2
			h.stand()
		}
		return
	}
	if h.Health <= 0 || h.Endurance >= h.EnduranceMax || h.Finished() {
		return
	}
	h.Regen++
	if h.Regen >= EnduranceRegenInterval {
		h.Regen = 0
		h.Endurance++
	}
}

// faceOpponents turns both HARs toward each other when neither is busy. A
// stunned HAR is never turned.
func (s *State) faceOpponents() {
	h1, h2 := &s.HARs[0], &s.HARs[1]
	if !h1.turnable() || !h2.turnable() {
		return
	}
	switch {
	case h1.X > h2.X:
		if h1.Facing == FaceRight || h2.Facing == FaceLeft {
			if h1.State != StateStunned {
				h1.Facing = FaceLeft
			}
			if h2.State != StateStunned {
				h2.Facing = FaceRight
			}
		}
	case h1.X < h2.X:
		if h1.Facing == FaceLeft || h2.Facing == FaceRight {
			if h1.State != StateStunned {
				h1.Facing = FaceRight
			}
			if h2.State != StateStunned {
				h2.Facing = FaceLeft
			}
		}
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
