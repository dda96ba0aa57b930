package scene

import (
	"context"
	"sync"
	"time"

	"duel-arena/server/internal/telemetry"
	"duel-arena/server/logging"
)

// RunnerConfig tunes the fixed-timestep runner.
type RunnerConfig struct {
	TickRate int
	Clock    logging.Clock
	Metrics  telemetry.Metrics
	// AfterTick observes every completed tick.
	AfterTick func(TickResult)
}

// TickResult describes one runner iteration.
type TickResult struct {
	Tick     uint64
	Duration time.Duration
	Budget   time.Duration
	Overrun  bool
}

const (
	metricTicks    = "scene_ticks_total"
	metricOverruns = "scene_tick_overruns_total"
)

// Runner drives one scene at a fixed rate until the scene asks for another.
type Runner struct {
	cfg  RunnerConfig
	mu   sync.Mutex
	next ID
}

var _ Switcher = (*Runner)(nil)

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	if cfg.Clock == nil {
		cfg.Clock = logging.SystemClock{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics()
	}
	return &Runner{cfg: cfg}
}

// SetNext implements Switcher. The runner stops after the current tick.
func (r *Runner) SetNext(id ID) {
	r.mu.Lock()
	r.next = id
	r.mu.Unlock()
}

// Next returns the pending scene request.
func (r *Runner) Next() ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next
}

// TickDuration is the wall-clock budget of one tick.
func (r *Runner) TickDuration() time.Duration {
	return time.Second / time.Duration(r.cfg.TickRate)
}

// Run ticks s, forwarding shell events, until s requests a switch, a tick
// fails or ctx ends. The scene is torn down before Run returns.
func (r *Runner) Run(ctx context.Context, s Scene, events <-chan Event) (ID, error) {
	defer s.Teardown()

	budget := r.TickDuration()
	ticker := time.NewTicker(budget)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return None, ctx.Err()
		case ev := <-events:
			s.HandleEvent(ev)
		case <-ticker.C:
			tick++
			start := r.cfg.Clock.Now()
			if err := s.Tick(ctx); err != nil {
				return None, err
			}
			s.RenderOverlay()

			result := TickResult{Tick: tick, Duration: r.cfg.Clock.Now().Sub(start), Budget: budget}
			result.Overrun = result.Duration > budget
			r.cfg.Metrics.Add(metricTicks, 1)
			if result.Overrun {
				r.cfg.Metrics.Add(metricOverruns, 1)
			}
			if r.cfg.AfterTick != nil {
				r.cfg.AfterTick(result)
			}
			if next := r.Next(); next != None {
				return next, nil
			}
		}
	}
}
