package arena

import (
	"fmt"
	"strings"

	"duel-arena/server/internal/controller"
	"duel-arena/server/internal/sim"
)

// PlayerOverlay is the per-player part of the overlay.
type PlayerOverlay struct {
	Health    float64
	Endurance float64
	Flashing  bool
	Points    int
	ScoreText string
	Notices   []string
	Network   bool
	Ping      uint32
}

// Overlay is everything the overlay renderer reads each tick.
type Overlay struct {
	Tick        uint32
	Seed        uint32
	Phase       string
	Banners     []string
	Players     [sim.Players]PlayerOverlay
	MenuVisible bool
}

// Overlay builds the current overlay view.
func (a *Arena) Overlay() Overlay {
	s := a.State()
	view := Overlay{
		Tick:        s.Tick,
		Seed:        s.Seed,
		Phase:       a.lifecycle.State().String(),
		MenuVisible: a.lifecycle.MenuVisible(),
	}
	for _, banner := range a.lifecycle.Banners() {
		view.Banners = append(view.Banners, banner.Banner.String())
	}
	for player := 0; player < sim.Players; player++ {
		h := s.HAR(player)
		entry := a.score.Entry(player)
		p := PlayerOverlay{
			Health:    fraction(h.Health, h.HealthMax),
			Endurance: fraction(h.Endurance, h.EnduranceMax),
			Points:    entry.Points,
			ScoreText: entry.Format(),
		}
		p.Flashing = p.Endurance < 0.5 && s.Tick%8 < 4
		for _, notice := range entry.Notices {
			p.Notices = append(p.Notices, notice.Text)
		}
		if ctrl := a.deps.Controllers[player]; ctrl != nil && ctrl.Kind() == controller.Network {
			p.Network = true
			p.Ping = ctrl.RoundTripTicks()
		}
		view.Players[player] = p
	}
	return view
}

func fraction(value, max int32) float64 {
	if max <= 0 || value <= 0 {
		return 0
	}
	return float64(value) / float64(max)
}

// String renders the overlay as a single status line.
func (o Overlay) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tick=%d phase=%s", o.Tick, o.Phase)
	for i, p := range o.Players {
		fmt.Fprintf(&b, " p%d[hp=%.2f end=%.2f score=%s", i+1, p.Health, p.Endurance, p.ScoreText)
		if p.Network {
			fmt.Fprintf(&b, " ping=%d", p.Ping)
		}
		b.WriteString("]")
	}
	if len(o.Banners) > 0 {
		fmt.Fprintf(&b, " banner=%s", strings.Join(o.Banners, ","))
	}
	if o.MenuVisible {
		b.WriteString(" menu")
	}
	return b.String()
}
