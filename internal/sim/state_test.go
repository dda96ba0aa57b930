package sim

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"testing"

	"duel-arena/server/internal/palette"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	s, err := New(0xC0FFEE, [Players]Setup{{HAR: 0, Pilot: 1}, {HAR: 3, Pilot: 2}})
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	return s
}

// scriptedActions derives a reproducible input script from a small LCG so
// the harness does not depend on package-level randomness.
func scriptedActions(ticks int, seed uint32) [][Players]Action {
	script := make([][Players]Action, ticks)
	for i := range script {
		for p := 0; p < Players; p++ {
			seed = seed*1664525 + 1013904223
			script[i][p] = Action((seed >> 24) % uint32(actionCount))
		}
	}
	return script
}

func runScript(s *State, script [][Players]Action) {
	for _, tick := range script {
		for p, action := range tick {
			s.Act(p, action)
		}
		s.Step()
	}
}

func digest(s *State) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%+v", *s.Clone())))
	return hex.EncodeToString(sum[:])
}

func TestStepIsDeterministic(t *testing.T) {
	script := scriptedActions(600, 7)
	a := newTestState(t)
	b := newTestState(t)
	runScript(a, script)
	runScript(b, script)
	if !reflect.DeepEqual(a.Clone(), b.Clone()) {
		t.Fatalf("identical inputs diverged:\n%+v\n%+v", a.Clone(), b.Clone())
	}
	if digest(a) != digest(b) {
		t.Fatalf("digest mismatch")
	}
	if a.Tick != 600 {
		t.Fatalf("expected tick 600, got %d", a.Tick)
	}
}

func TestNewRejectsUnknownHAR(t *testing.T) {
	if _, err := New(1, [Players]Setup{{HAR: HARKinds}, {HAR: 0}}); err == nil {
		t.Fatalf("expected setup error for unknown har")
	}
}

func TestNewPlacesHARs(t *testing.T) {
	s := newTestState(t)
	if s.HARs[0].X != 60 || s.HARs[1].X != 260 || s.HARs[0].Y != FloorY {
		t.Fatalf("unexpected start positions %+v", s.HARs)
	}
	if s.HARs[0].Facing != FaceRight || s.HARs[1].Facing != FaceLeft {
		t.Fatalf("unexpected start facings %+v", s.HARs)
	}
}

func TestPunchLandsOncePerActivation(t *testing.T) {
	s := newTestState(t)
	s.HARs[1].X = 100
	var hits []Hit
	s.InstallHitHook(1, func(hit Hit) { hits = append(hits, hit) })

	if !s.Act(0, ActionPunch) {
		t.Fatalf("expected punch to start")
	}
	if s.Act(0, ActionKick) {
		t.Fatalf("expected kick to be ignored while attacking")
	}
	punch, _ := LookupMove(MovePunch)
	for i := 0; i < int(punch.Duration()); i++ {
		s.Step()
	}
	if len(hits) != 1 {
		t.Fatalf("expected exactly one hit, got %d", len(hits))
	}
	hit := hits[0]
	if hit.Attacker != 0 || hit.Defender != 1 || hit.Move.ID != MovePunch || hit.Activation != 1 {
		t.Fatalf("unexpected hit %+v", hit)
	}
	if got := s.HARs[1].Health; got < DefaultHealth-punch.Damage-1 || got > DefaultHealth-punch.Damage+1 {
		t.Fatalf("unexpected defender health %d", got)
	}
	if s.HARs[0].State != StateStanding || s.HARs[0].Move != MoveNone {
		t.Fatalf("expected attacker to recover, got %+v", s.HARs[0])
	}
}

func TestOutOfRangeAttackMisses(t *testing.T) {
	s := newTestState(t)
	fired := 0
	s.InstallHitHook(1, func(Hit) { fired++ })
	s.Act(0, ActionKick)
	for i := 0; i < 20; i++ {
		s.Step()
	}
	if fired != 0 || s.HARs[1].Health != DefaultHealth {
		t.Fatalf("expected a miss at range, fired=%d health=%d", fired, s.HARs[1].Health)
	}
}

func TestEnduranceExhaustionStuns(t *testing.T) {
	s := newTestState(t)
	s.HARs[1].X = 100
	s.HARs[1].Endurance = 5
	s.Act(0, ActionPunch)
	for i := 0; i < 5; i++ {
		s.Step()
	}
	if s.HARs[1].State != StateStunned || s.HARs[1].Endurance != 0 {
		t.Fatalf("expected stunned defender, got %+v", s.HARs[1])
	}
	if s.Act(1, ActionPunch) {
		t.Fatalf("stunned HAR must not act")
	}
	for i := 0; i < int(StunTicks)+5; i++ {
		s.Step()
	}
	if s.HARs[1].State != StateStanding {
		t.Fatalf("expected recovery after stun, got %s", s.HARs[1].State)
	}
	if e := s.HARs[1].Endurance; e < DefaultEndurance/2 || e > DefaultEndurance/2+2 {
		t.Fatalf("expected endurance refilled to half, got %d", e)
	}
}

func TestProjectileTravelsAndHits(t *testing.T) {
	s := newTestState(t)
	s.HARs[1].X = 200
	var hits []Hit
	s.InstallHitHook(1, func(hit Hit) { hits = append(hits, hit) })
	s.Act(0, ActionSpecial)
	sawObject := false
	for i := 0; i < 40; i++ {
		s.Step()
		if len(s.Objects) > 0 {
			sawObject = true
		}
	}
	if !sawObject {
		t.Fatalf("expected a projectile to be spawned")
	}
	if len(hits) != 1 || hits[0].Move.ID != MoveSpecial {
		t.Fatalf("expected one projectile hit, got %+v", hits)
	}
	if len(s.Objects) != 0 {
		t.Fatalf("expected projectile to be consumed, got %+v", s.Objects)
	}
}

func TestFaceOpponentsNeverTurnsStunnedHAR(t *testing.T) {
	s := newTestState(t)
	s.HARs[0].X, s.HARs[1].X = 200, 100
	s.HARs[0].State = StateStunned
	s.HARs[0].Stun = 30
	s.Step()
	if s.HARs[0].Facing != FaceRight {
		t.Fatalf("stunned HAR was turned")
	}
	if s.HARs[1].Facing != FaceRight {
		t.Fatalf("expected the free HAR to turn toward the opponent")
	}
}

func TestActionHooksFireOnlyForEffectiveActions(t *testing.T) {
	s := newTestState(t)
	var seen []Action
	s.InstallActionHook(0, func(player int, tick uint32, action Action) {
		seen = append(seen, action)
	})
	s.Act(0, ActionNone)
	s.Act(0, ActionDown)
	s.Act(0, ActionDown)
	if !reflect.DeepEqual(seen, []Action{ActionDown}) {
		t.Fatalf("unexpected action hook calls %v", seen)
	}
}

func TestCloneDropsAttachments(t *testing.T) {
	s := newTestState(t)
	s.SetPalette(0, palette.Default())
	s.InstallHitHook(0, func(Hit) {})
	s.InstallActionHook(1, func(int, uint32, Action) {})
	s.Objects = []Object{{Owner: 0, X: 10}}

	cloned := s.Clone()
	if cloned.Palette(0) != nil {
		t.Fatalf("clone must not carry palettes")
	}
	if hit, action := cloned.HookCount(0); hit != 0 || action != 0 {
		t.Fatalf("clone must not carry hooks")
	}
	cloned.Objects[0].X = 99
	if s.Objects[0].X != 10 {
		t.Fatalf("clone shares object storage")
	}
	s.ClearHooks()
	if hit, _ := s.HookCount(0); hit != 0 {
		t.Fatalf("expected hooks to be cleared")
	}
}

func TestDefeated(t *testing.T) {
	cases := []struct {
		health, endurance int32
		want              bool
	}{
		{0, 0, true},
		{-3, 0, true},
		{0, 1, false},
		{1, 0, false},
		{50, 50, false},
	}
	for _, tc := range cases {
		h := HAR{Health: tc.health, Endurance: tc.endurance}
		if got := h.Defeated(); got != tc.want {
			t.Fatalf("Defeated(%d,%d) = %v, want %v", tc.health, tc.endurance, got, tc.want)
		}
	}
}

func TestSetOutcomeLocksActions(t *testing.T) {
	s := newTestState(t)
	s.SetOutcome(1)
	if s.HARs[1].State != StateVictory || s.HARs[0].State != StateDefeat {
		t.Fatalf("unexpected outcome states %+v", s.HARs)
	}
	if s.Act(0, ActionPunch) || s.Act(1, ActionLeft) {
		t.Fatalf("posing HARs must ignore actions")
	}
}

func TestParseAction(t *testing.T) {
	for a := ActionNone; a < actionCount; a++ {
		parsed, err := ParseAction(a.String())
		if err != nil || parsed != a {
			t.Fatalf("ParseAction(%q) = %v, %v", a.String(), parsed, err)
		}
	}
	if _, err := ParseAction("taunt"); err == nil {
		t.Fatalf("expected unknown action error")
	}
}
