package lifecycle

import (
	"testing"

	"duel-arena/server/internal/sim"
)

func newState(t *testing.T) *sim.State {
	t.Helper()
	s, err := sim.New(3, [sim.Players]sim.Setup{{HAR: 0}, {HAR: 1}})
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	return s
}

func fightingMachine(t *testing.T, s *sim.State) *Machine {
	t.Helper()
	m := NewMachine(Config{})
	for i := 0; i < 1000 && m.State() != Fighting; i++ {
		m.Tick(s)
	}
	if m.State() != Fighting {
		t.Fatalf("machine never reached fighting")
	}
	return m
}

func TestAdvanceDrivesAnimation(t *testing.T) {
	a := Animation{Banner: BannerReady, Length: 2}
	a = Advance(a)
	if a.State != AnimPlaying || a.Elapsed != 0 {
		t.Fatalf("expected pending banner to start, got %+v", a)
	}
	a = Advance(a)
	if a.State != AnimPlaying {
		t.Fatalf("expected banner to keep playing, got %+v", a)
	}
	a = Advance(a)
	if a.State != AnimFinished {
		t.Fatalf("expected banner to finish, got %+v", a)
	}
	if Advance(a) != a {
		t.Fatalf("finished banners must stay finished")
	}
}

func TestOpeningSequenceTiming(t *testing.T) {
	s := newState(t)
	m := NewMachine(Config{})
	want := 1 + DefaultBannerTicks + DefaultFightDelayTicks + DefaultBannerTicks

	sawFight := false
	for call := 1; call <= want; call++ {
		report := m.Tick(s)
		for _, banner := range m.Banners() {
			if banner.Banner == BannerFight {
				sawFight = true
			}
		}
		if call < want && report.To != Starting {
			t.Fatalf("left starting early at call %d", call)
		}
		if call == want && (!report.Changed() || report.To != Fighting) {
			t.Fatalf("expected fighting at call %d, got %+v", call, report)
		}
	}
	if !sawFight {
		t.Fatalf("expected FIGHT banner to be shown")
	}
	if !m.AcceptsActions() {
		t.Fatalf("expected actions to be accepted once fighting")
	}
}

func TestNoActionsBeforeFighting(t *testing.T) {
	m := NewMachine(Config{})
	if m.AcceptsActions() {
		t.Fatalf("actions must be dropped while starting")
	}
}

func TestWinnerThresholds(t *testing.T) {
	cases := []struct {
		name   string
		p1     [2]int32
		p2     [2]int32
		winner int
	}{
		{name: "both standing", p1: [2]int32{10, 0}, p2: [2]int32{0, 10}, winner: -1},
		{name: "player 2 down", p1: [2]int32{10, 10}, p2: [2]int32{0, 0}, winner: 0},
		{name: "player 1 down", p1: [2]int32{0, 0}, p2: [2]int32{50, 10}, winner: 1},
		{name: "both down favours player 1", p1: [2]int32{0, 0}, p2: [2]int32{-3, 0}, winner: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newState(t)
			s.HARs[0].Health, s.HARs[0].Endurance = tc.p1[0], tc.p1[1]
			s.HARs[1].Health, s.HARs[1].Endurance = tc.p2[0], tc.p2[1]
			if got := Winner(s); got != tc.winner {
				t.Fatalf("expected winner %d, got %d", tc.winner, got)
			}
		})
	}
}

func TestEndingScenarioExitsAfterDelay(t *testing.T) {
	s := newState(t)
	m := fightingMachine(t, s)

	s.HARs[0].Health, s.HARs[0].Endurance = 0, 0
	s.HARs[1].Health = 50

	report := m.Tick(s)
	if report.To != Ending || report.Winner != 1 {
		t.Fatalf("expected player 2 victory, got %+v", report)
	}
	if s.HARs[1].State != sim.StateVictory || s.HARs[0].State != sim.StateDefeat {
		t.Fatalf("expected victory/defeat poses, got %v/%v", s.HARs[1].State, s.HARs[0].State)
	}
	banners := m.Banners()
	if len(banners) != 1 || banners[0].Banner != BannerYouLose {
		t.Fatalf("expected YOU LOSE banner, got %+v", banners)
	}

	for i := 1; i < DefaultEndDelayTicks; i++ {
		if m.Tick(s).Exit {
			t.Fatalf("exited early after %d ticks", i)
		}
	}
	if !m.Tick(s).Exit {
		t.Fatalf("expected exit %d ticks after ending", DefaultEndDelayTicks)
	}
}

func TestMenuGatesVictoryCheck(t *testing.T) {
	s := newState(t)
	m := fightingMachine(t, s)
	s.HARs[1].Health, s.HARs[1].Endurance = 0, 0

	if !m.ToggleMenu() {
		t.Fatalf("expected menu to open")
	}
	if report := m.Tick(s); report.To != Fighting {
		t.Fatalf("victory must wait while the menu is open, got %+v", report)
	}
	m.ToggleMenu()
	if report := m.Tick(s); report.To != Ending || report.Winner != 0 {
		t.Fatalf("expected player 1 victory after closing the menu, got %+v", report)
	}
}

func TestTimersFireInOrder(t *testing.T) {
	var timers Timers
	var fired []int
	timers.Add(2, func() { fired = append(fired, 2) })
	timers.Add(1, func() { fired = append(fired, 1) })
	timers.Add(2, func() { fired = append(fired, 3) })
	timers.Tick()
	if len(fired) != 1 || fired[0] != 1 {
		t.Fatalf("unexpected first tick %v", fired)
	}
	timers.Tick()
	if len(fired) != 3 || fired[1] != 2 || fired[2] != 3 || timers.Len() != 0 {
		t.Fatalf("unexpected second tick %v", fired)
	}
}

func TestNextIsPure(t *testing.T) {
	if Next(Starting, false, 0) != Starting {
		t.Fatalf("starting must wait for the fight banner")
	}
	if Next(Starting, true, -1) != Fighting {
		t.Fatalf("expected fighting after the fight banner")
	}
	if Next(Fighting, false, -1) != Fighting || Next(Fighting, false, 1) != Ending {
		t.Fatalf("unexpected fighting transitions")
	}
	if Next(Ending, true, 0) != Ending {
		t.Fatalf("ending is terminal")
	}
}
