// Package lifecycle sequences a match through its opening banners, the fight
// itself and the closing announcement before handing control back.
package lifecycle

import "duel-arena/server/internal/sim"

// State is the match phase.
type State uint8

const (
	Starting State = iota
	Fighting
	Ending
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Fighting:
		return "fighting"
	case Ending:
		return "ending"
	default:
		return "unknown"
	}
}

// Defaults for Config.
const (
	DefaultBannerTicks     = 40
	DefaultFightDelayTicks = 10
	DefaultEndDelayTicks   = 120
)

// Config holds the lifecycle durations, in ticks.
type Config struct {
	BannerTicks     int
	FightDelayTicks int
	EndDelayTicks   int
}

func (c Config) withDefaults() Config {
	if c.BannerTicks <= 0 {
		c.BannerTicks = DefaultBannerTicks
	}
	if c.FightDelayTicks <= 0 {
		c.FightDelayTicks = DefaultFightDelayTicks
	}
	if c.EndDelayTicks <= 0 {
		c.EndDelayTicks = DefaultEndDelayTicks
	}
	return c
}

// Winner returns the winning player, or -1 while both still stand. Player 1
// is checked as the victor first.
func Winner(s *sim.State) int {
	switch {
	case s.HARs[1].Defeated():
		return 0
	case s.HARs[0].Defeated():
		return 1
	default:
		return -1
	}
}

// Next is the pure transition function.
func Next(current State, fightBannerDone bool, winner int) State {
	switch current {
	case Starting:
		if fightBannerDone {
			return Fighting
		}
	case Fighting:
		if winner >= 0 {
			return Ending
		}
	}
	return current
}

// Report describes what one Tick did.
type Report struct {
	From   State
	To     State
	Winner int
	Exit   bool
}

// Changed reports whether the phase moved.
func (r Report) Changed() bool {
	return r.From != r.To
}

// Machine drives the phases, banners, deferred timers and menu gate.
type Machine struct {
	cfg     Config
	state   State
	banners []Animation
	timers  Timers
	winner  int
	exit    bool
	menu    bool
}

// NewMachine starts a match in Starting with the READY banner queued.
func NewMachine(cfg Config) *Machine {
	m := &Machine{cfg: cfg.withDefaults(), winner: -1}
	m.show(BannerReady)
	return m
}

func (m *Machine) State() State { return m.state }

// Winner is the victor once Ending, otherwise -1.
func (m *Machine) Winner() int { return m.winner }

// MenuVisible reports whether the in-match menu gates the simulation.
func (m *Machine) MenuVisible() bool { return m.menu }

// ToggleMenu opens or closes the menu and returns the new visibility.
func (m *Machine) ToggleMenu() bool {
	m.menu = !m.menu
	return m.menu
}

// AcceptsActions reports whether player actions should reach the simulation.
func (m *Machine) AcceptsActions() bool {
	return m.state == Fighting
}

// Banners returns the banners queued or on screen.
func (m *Machine) Banners() []Animation {
	return append([]Animation(nil), m.banners...)
}

// Tick runs timers, drives banners and checks for a winner on s.
func (m *Machine) Tick(s *sim.State) Report {
	report := Report{From: m.state, Winner: -1}
	m.timers.Tick()

	fightDone := false
	for i, banner := range m.banners {
		wasPlaying := banner.State == AnimPlaying
		banner = Advance(banner)
		m.banners[i] = banner
		if !wasPlaying || banner.State != AnimFinished {
			continue
		}
		switch banner.Banner {
		case BannerReady:
			m.timers.Add(m.cfg.FightDelayTicks, func() { m.show(BannerFight) })
		case BannerFight:
			fightDone = true
		}
	}
	m.prune()

	winner := -1
	if m.state == Fighting && !m.menu {
		winner = Winner(s)
	}
	next := Next(m.state, fightDone, winner)
	if next == Ending && m.state != Ending {
		m.winner = winner
		s.SetOutcome(winner)
		if winner == 0 {
			m.show(BannerYouWin)
		} else {
			m.show(BannerYouLose)
		}
		m.timers.Add(m.cfg.EndDelayTicks, func() { m.exit = true })
	}
	m.state = next

	report.To = m.state
	report.Winner = m.winner
	report.Exit = m.exit
	return report
}

func (m *Machine) show(banner Banner) {
	m.banners = append(m.banners, Animation{Banner: banner, Length: m.cfg.BannerTicks})
}

func (m *Machine) prune() {
	kept := m.banners[:0]
	for _, banner := range m.banners {
		if banner.State != AnimFinished {
			kept = append(kept, banner)
		}
	}
	m.banners = kept
}
