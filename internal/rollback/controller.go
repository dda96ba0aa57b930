// Package rollback keeps the live simulation consistent with a remote peer.
// Late remote actions rewind the simulation to the tick they happened at and
// replay the recorded inputs of both players back to the present.
package rollback

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"duel-arena/server/internal/controller"
	"duel-arena/server/internal/input"
	"duel-arena/server/internal/palette"
	"duel-arena/server/internal/sim"
	"duel-arena/server/internal/snapshot"
	"duel-arena/server/internal/telemetry"
	"duel-arena/server/logging"
	loggingmatch "duel-arena/server/logging/match"
)

const (
	metricRollbacks      = "rollback_total"
	metricClamped        = "rollback_clamped"
	metricReplayedTicks  = "rollback_replayed_ticks_total"
	metricDecodeFailures = "resync_decode_failures"
	metricSyncsApplied   = "resync_applied_total"
	metricSyncForwarded  = "resync_forwarded_ticks_total"

	// DefaultWindow is the number of ticks retained for rewinds.
	DefaultWindow = 64
)

// Source is the slice of a controller the rollback path needs.
type Source interface {
	Kind() controller.Kind
	RoundTripTicks() uint32
}

// Binder reattaches hooks to a state produced by rewind or sync. Replay
// states only ever receive hit hooks.
type Binder interface {
	BindHits(s *sim.State)
	BindActions(s *sim.State)
}

// Ledger retracts scoring done at or after a tick before it is replayed.
// Trim forgets entries older than the history window.
type Ledger interface {
	Rewind(tick uint32)
	Trim(before uint32)
}

// Config wires a Controller.
type Config struct {
	Window    int
	Palettes  [sim.Players]*palette.Palette
	Binder    Binder
	Ledger    Ledger
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Tracer    trace.Tracer
}

// Result reports what Apply did with a chain.
type Result struct {
	NeedsBroadcast bool
	Rewound        bool
	Closed         bool
}

// Controller owns the live state and its history window.
type Controller struct {
	live    *sim.State
	history *History
	cfg     Config
}

// New takes ownership of initial and starts the history window at its tick.
func New(initial *sim.State, cfg Config) *Controller {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("duel-arena/server/internal/rollback")
	}
	c := &Controller{
		live:    initial,
		history: NewHistory(cfg.Window),
		cfg:     cfg,
	}
	c.history.Reset(initial)
	c.attach(c.live)
	return c
}

// State returns the live state. Its identity changes after a rewind or sync.
func (c *Controller) State() *sim.State {
	return c.live
}

// History exposes the retained window.
func (c *Controller) History() *History {
	return c.history
}

// Step advances the live state one tick and records its start state.
func (c *Controller) Step() {
	c.live.Step()
	c.history.Push(c.live)
	if c.cfg.Ledger != nil {
		c.cfg.Ledger.Trim(c.history.Oldest())
	}
}

// Apply processes one player's chain for the current tick.
func (c *Controller) Apply(ctx context.Context, player int, src Source, chain input.Chain) (Result, error) {
	var result Result
	for i := 0; i < len(chain); {
		event := chain[i]
		switch event.Type {
		case input.EventAction:
			actions, next := chain.LeadingActions(i)
			i = next
			if src.Kind() == controller.Network && src.RoundTripTicks() > 0 {
				if err := c.rewind(ctx, player, src.RoundTripTicks(), actions); err != nil {
					return result, err
				}
				result.Rewound = true
				result.NeedsBroadcast = true
				continue
			}
			if c.applyLive(player, actions) {
				result.NeedsBroadcast = true
			}
		case input.EventSync:
			i++
			c.applySync(ctx, player, event)
		case input.EventClose:
			loggingmatch.Closed(ctx, c.cfg.Publisher, uint64(c.live.Tick), player)
			result.Closed = true
			return result, nil
		default:
			return result, fmt.Errorf("unknown input event %s", event.Type)
		}
	}
	return result, nil
}

func (c *Controller) applyLive(player int, actions []sim.Action) bool {
	changed := false
	for _, action := range actions {
		if c.live.Act(player, action) {
			changed = true
		}
		c.history.Record(c.live.Tick, player, action)
	}
	return changed
}

func (c *Controller) rewind(ctx context.Context, player int, rtt uint32, actions []sim.Action) error {
	now := c.live.Tick
	oldest := c.history.Oldest()
	target := oldest
	clamped := true
	if rtt <= now && now-rtt >= oldest {
		target = now - rtt
		clamped = false
	}
	if clamped {
		c.cfg.Metrics.Add(metricClamped, 1)
	}

	ctx, span := c.cfg.Tracer.Start(ctx, "rollback.rewind", trace.WithAttributes(
		attribute.Int("player", player),
		attribute.Int64("from", int64(now)),
		attribute.Int64("to", int64(target)),
		attribute.Int64("rtt", int64(rtt)),
		attribute.Bool("clamped", clamped),
	))
	defer span.End()

	if !c.history.Record(target, player, actions...) {
		err := fmt.Errorf("rewind target %d outside history [%d,%d]", target, oldest, c.history.Newest())
		span.RecordError(err)
		return err
	}
	if c.cfg.Ledger != nil {
		c.cfg.Ledger.Rewind(target)
	}

	replayed, err := c.replay(target, now)
	if err != nil {
		span.RecordError(err)
		return err
	}
	c.cfg.Metrics.Add(metricRollbacks, 1)
	c.cfg.Metrics.Add(metricReplayedTicks, uint64(replayed))

	loggingmatch.Rollback(ctx, c.cfg.Publisher, uint64(now), player, loggingmatch.RollbackPayload{
		From:     now,
		To:       target,
		RTT:      rtt,
		Actions:  len(actions),
		Replayed: replayed,
		Clamped:  clamped,
	})
	return nil
}

// replay rebuilds the present from the start state of from, reapplying the
// recorded inputs of every tick with player 1 first.
func (c *Controller) replay(from, now uint32) (int, error) {
	s, ok := c.history.Restore(from)
	if !ok {
		return 0, fmt.Errorf("no start state for tick %d", from)
	}
	if c.cfg.Binder != nil {
		c.cfg.Binder.BindHits(s)
	}

	replayed := 0
	for tick := from; ; tick++ {
		for player := 0; player < sim.Players; player++ {
			for _, action := range c.history.Inputs(tick, player) {
				s.Act(player, action)
			}
		}
		if tick == now {
			break
		}
		s.Step()
		replayed++
		c.history.Rewrite(s)
	}

	c.live = s
	c.restorePalettes(s)
	if c.cfg.Binder != nil {
		c.cfg.Binder.BindActions(s)
	}
	return replayed, nil
}

// applySync replaces the live state with a decoded snapshot and steps it
// forward to the tick the peer was at, so the live tick never moves back.
func (c *Controller) applySync(ctx context.Context, player int, event input.Event) {
	now := c.live.Tick
	decoded, err := snapshot.Decode(event.Snapshot)
	if err != nil {
		c.cfg.Metrics.Add(metricDecodeFailures, 1)
		loggingmatch.SyncRejected(ctx, c.cfg.Publisher, uint64(now), player, len(event.Snapshot), err)
		return
	}
	synced := decoded.Tick
	if c.cfg.Ledger != nil {
		c.cfg.Ledger.Rewind(synced)
	}
	c.history.Reset(decoded)
	if c.cfg.Binder != nil {
		c.cfg.Binder.BindHits(decoded)
	}
	forwarded := 0
	for decoded.Tick < now {
		decoded.Step()
		c.history.Push(decoded)
		forwarded++
	}
	c.live = decoded
	c.attach(decoded)

	c.cfg.Metrics.Add(metricSyncsApplied, 1)
	c.cfg.Metrics.Add(metricSyncForwarded, uint64(forwarded))
	loggingmatch.SyncApplied(ctx, c.cfg.Publisher, uint64(decoded.Tick), player, loggingmatch.SyncPayload{
		Tick:      synced,
		Bytes:     len(event.Snapshot),
		Forwarded: forwarded,
	})
}

func (c *Controller) attach(s *sim.State) {
	c.restorePalettes(s)
	if c.cfg.Binder != nil {
		c.cfg.Binder.BindHits(s)
		c.cfg.Binder.BindActions(s)
	}
}

func (c *Controller) restorePalettes(s *sim.State) {
	for player, p := range c.cfg.Palettes {
		if p != nil {
			s.SetPalette(player, p)
		}
	}
}
