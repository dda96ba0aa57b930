// Package arena is the match scene. It owns the live simulation through the
// rollback controller and runs the per-tick sequence: lifecycle, player
// input, resync and simulation step.
package arena

import (
	"context"
	"fmt"
	"time"

	"duel-arena/server/internal/controller"
	"duel-arena/server/internal/input"
	"duel-arena/server/internal/lifecycle"
	"duel-arena/server/internal/palette"
	"duel-arena/server/internal/resync"
	"duel-arena/server/internal/results"
	"duel-arena/server/internal/rollback"
	"duel-arena/server/internal/scene"
	"duel-arena/server/internal/score"
	"duel-arena/server/internal/sim"
	"duel-arena/server/internal/telemetry"
	"duel-arena/server/logging"
	loggingmatch "duel-arena/server/logging/match"
)

const metricDroppedActions = "arena_actions_dropped_total"

// Menu receives shell events while the in-match menu is open.
type Menu interface {
	HandleEvent(scene.Event) bool
}

// Renderer draws the overlay. The headless server logs it.
type Renderer interface {
	Render(Overlay)
}

// Recorder stores the finished match.
type Recorder interface {
	RecordResult(ctx context.Context, result results.Result) error
}

// Deps is everything a match needs. There are no package-level singletons.
type Deps struct {
	MatchID     string
	Seed        uint32
	Setups      [sim.Players]sim.Setup
	Colors      [sim.Players][palette.PlayerSlots]uint8
	BasePalette *palette.Palette
	Controllers [sim.Players]controller.Controller
	Role        resync.Role
	Window      int
	Lifecycle   lifecycle.Config

	Switcher scene.Switcher
	Menu     Menu
	Renderer Renderer
	Recorder Recorder

	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Logger    telemetry.Logger
	Now       func() time.Time
}

// Arena is one running match.
type Arena struct {
	deps        Deps
	palettes    [sim.Players]*palette.Palette
	rollback    *rollback.Controller
	score       *score.Registry
	lifecycle   *lifecycle.Machine
	broadcaster *resync.Broadcaster
	finished    bool
}

var _ scene.Scene = (*Arena)(nil)

// New instantiates the HARs, derives the palettes and wires the match.
func New(deps Deps) (*Arena, error) {
	if deps.Switcher == nil {
		return nil, fmt.Errorf("arena requires a scene switcher")
	}
	for player, ctrl := range deps.Controllers {
		if ctrl == nil {
			return nil, fmt.Errorf("player %d has no controller", player+1)
		}
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NopMetrics()
	}
	if deps.Logger == nil {
		deps.Logger = telemetry.LoggerFunc(nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.BasePalette == nil {
		deps.BasePalette = palette.Default()
	}
	if deps.MatchID == "" {
		deps.MatchID = results.NewMatchID()
	}

	state, err := sim.New(deps.Seed, deps.Setups)
	if err != nil {
		return nil, fmt.Errorf("create match state: %w", err)
	}

	a := &Arena{
		deps:      deps,
		score:     score.NewRegistry(deps.Publisher),
		lifecycle: lifecycle.NewMachine(deps.Lifecycle),
	}
	for player := range a.palettes {
		p, err := palette.ForPlayer(deps.BasePalette, deps.Colors[player])
		if err != nil {
			return nil, fmt.Errorf("derive palette for player %d: %w", player+1, err)
		}
		a.palettes[player] = p
	}
	a.broadcaster = resync.NewBroadcaster(deps.Role, deps.Controllers, deps.Publisher, deps.Metrics)
	a.rollback = rollback.New(state, rollback.Config{
		Window:    deps.Window,
		Palettes:  a.palettes,
		Binder:    a,
		Ledger:    a.score,
		Publisher: deps.Publisher,
		Metrics:   deps.Metrics,
	})
	return a, nil
}

// State returns the live simulation. Fetch it again after every Tick since
// rollback and sync replace it.
func (a *Arena) State() *sim.State {
	return a.rollback.State()
}

// Lifecycle exposes the match phase machine.
func (a *Arena) Lifecycle() *lifecycle.Machine {
	return a.lifecycle
}

// Score returns player's current entry.
func (a *Arena) Score(player int) score.Entry {
	return a.score.Entry(player)
}

// Tick runs one match tick.
func (a *Arena) Tick(ctx context.Context) error {
	if a.finished {
		return nil
	}
	a.score.Tick()

	report := a.lifecycle.Tick(a.State())
	if report.Changed() {
		loggingmatch.Lifecycle(ctx, a.deps.Publisher, uint64(a.State().Tick), loggingmatch.LifecyclePayload{
			From:   report.From.String(),
			To:     report.To.String(),
			Winner: report.Winner + 1,
		})
	}
	if report.Exit {
		a.finish(ctx, report.Winner)
		return nil
	}

	if !a.lifecycle.MenuVisible() {
		var flags [sim.Players]bool
		for player, ctrl := range a.deps.Controllers {
			chain := a.filter(ctrl.Poll())
			result, err := a.rollback.Apply(ctx, player, ctrl, chain)
			if err != nil {
				return fmt.Errorf("apply player %d input: %w", player+1, err)
			}
			if result.Closed {
				a.finished = true
				a.deps.Switcher.SetNext(scene.Menu)
				return nil
			}
			flags[player] = result.NeedsBroadcast
			switch {
			case result.Rewound:
				a.broadcaster.Note(resync.ReasonRemoteRollback, player)
			case result.NeedsBroadcast:
				a.broadcaster.Note(resync.ReasonLocalAction, player)
			}
		}
		if _, err := a.broadcaster.MaybeBroadcast(ctx, a.State(), flags[:]...); err != nil {
			a.deps.Logger.Printf("resync broadcast failed: %v", err)
		}
	}

	a.rollback.Step()
	return nil
}

// filter drops actions outside the fighting phase. Sync and close always
// pass.
func (a *Arena) filter(chain input.Chain) input.Chain {
	if len(chain) == 0 || a.lifecycle.AcceptsActions() {
		return chain
	}
	kept := chain[:0]
	for _, event := range chain {
		if event.Type == input.EventAction {
			a.deps.Metrics.Add(metricDroppedActions, 1)
			continue
		}
		kept = append(kept, event)
	}
	return kept
}

func (a *Arena) finish(ctx context.Context, winner int) {
	a.finished = true
	if a.deps.Recorder != nil && winner >= 0 {
		p1, p2 := a.score.Entry(0), a.score.Entry(1)
		result := results.Result{
			MatchID: a.deps.MatchID,
			Role:    a.deps.Role.String(),
			Winner:  winner,
			Points:  [2]int{p1.Points, p2.Points},
			Hits:    [2]int{p1.Hits, p2.Hits},
			Ticks:   a.State().Tick,
			EndedAt: a.deps.Now(),
		}
		if err := a.deps.Recorder.RecordResult(ctx, result); err != nil {
			a.deps.Logger.Printf("failed to record match %s: %v", a.deps.MatchID, err)
		}
	}
	a.deps.Switcher.SetNext(scene.Newsroom)
}

// HandleEvent toggles the menu on escape and otherwise routes events to the
// menu while it is open.
func (a *Arena) HandleEvent(ev scene.Event) bool {
	if ev.Key == scene.KeyEscape {
		a.lifecycle.ToggleMenu()
		return true
	}
	if a.lifecycle.MenuVisible() && a.deps.Menu != nil {
		return a.deps.Menu.HandleEvent(ev)
	}
	return false
}

// RenderOverlay hands the current overlay to the renderer.
func (a *Arena) RenderOverlay() {
	if a.deps.Renderer != nil {
		a.deps.Renderer.Render(a.Overlay())
	}
}

// Teardown detaches controllers and drops attachments from the live state.
func (a *Arena) Teardown() {
	s := a.State()
	s.ClearHooks()
	for player := range a.palettes {
		s.SetPalette(player, nil)
	}
	a.deps.Controllers = [sim.Players]controller.Controller{}
}

// BindHits attaches score hooks. Replay states only ever receive these.
func (a *Arena) BindHits(s *sim.State) {
	a.score.Bind(s)
}

// BindActions attaches action forwarding on the client, where local actions
// travel to the host instead of being covered by snapshots.
func (a *Arena) BindActions(s *sim.State) {
	if a.deps.Role != resync.Client {
		return
	}
	var notifier controller.ActionNotifier
	for _, ctrl := range a.deps.Controllers {
		if n, ok := ctrl.(controller.ActionNotifier); ok && ctrl.Kind() == controller.Network {
			notifier = n
		}
	}
	if notifier == nil {
		return
	}
	for player, ctrl := range a.deps.Controllers {
		if ctrl == nil || ctrl.Kind() != controller.Local {
			continue
		}
		s.InstallActionHook(player, func(_ int, tick uint32, action sim.Action) {
			if err := notifier.NotifyAction(tick, action); err != nil {
				a.deps.Logger.Printf("failed to forward %s at tick %d: %v", action, tick, err)
			}
		})
	}
}
