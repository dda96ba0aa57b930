package sim

// Hit describes a connecting attack.
type Hit struct {
	Tick       uint32
	Attacker   int
	Defender   int
	Move       Move
	Activation uint32
	Damage     int32
}

// HitHook observes hits landing on the HAR it is installed on.
type HitHook func(Hit)

// ActionHook observes non-idle actions performed by the HAR it is installed on.
type ActionHook func(player int, tick uint32, action Action)

type harHooks struct {
	hit    []HitHook
	action []ActionHook
}

// InstallHitHook attaches hook to player's HAR.
func (s *State) InstallHitHook(player int, hook HitHook) {
	if hook == nil {
		return
	}
	s.hooks[player].hit = append(s.hooks[player].hit, hook)
}

// InstallActionHook attaches hook to player's HAR.
func (s *State) InstallActionHook(player int, hook ActionHook) {
	if hook == nil {
		return
	}
	s.hooks[player].action = append(s.hooks[player].action, hook)
}

// ClearHooks detaches every hook from both HARs.
func (s *State) ClearHooks() {
	s.hooks = [Players]harHooks{}
}

// HookCount reports how many hooks of each kind player's HAR carries.
func (s *State) HookCount(player int) (hit, action int) {
	return len(s.hooks[player].hit), len(s.hooks[player].action)
}

func (s *State) fireHit(hit Hit) {
	for _, hook := range s.hooks[hit.Defender].hit {
		hook(hit)
	}
}

func (s *State) fireAction(player int, action Action) {
	for _, hook := range s.hooks[player].action {
		hook(player, s.Tick, action)
	}
}
