// Package config loads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"duel-arena/server/internal/lifecycle"
	"duel-arena/server/internal/observability"
	"duel-arena/server/internal/palette"
	"duel-arena/server/internal/resync"
	"duel-arena/server/internal/rollback"
	"duel-arena/server/internal/sim"
	"duel-arena/server/logging"
)

// Controller kinds selectable for the local player and the opponent.
const (
	ControllerKeyboard = "keyboard"
	ControllerBot      = "bot"
	ControllerNetwork  = "network"
)

// Config is the full process configuration.
type Config struct {
	Role       string `env:"DUEL_ROLE"        envDefault:"host"`
	ListenAddr string `env:"DUEL_LISTEN_ADDR" envDefault:":8080"`
	PeerURL    string `env:"DUEL_PEER_URL"`
	Local      string `env:"DUEL_LOCAL"       envDefault:"keyboard"`
	Opponent   string `env:"DUEL_OPPONENT"    envDefault:"network"`

	TickRate       int           `env:"DUEL_TICK_RATE"       envDefault:"60"`
	RollbackWindow int           `env:"DUEL_ROLLBACK_WINDOW" envDefault:"64"`
	InputQueue     int           `env:"DUEL_INPUT_QUEUE"     envDefault:"64"`
	PingInterval   time.Duration `env:"DUEL_PING_INTERVAL"   envDefault:"1s"`
	BotInterval    uint32        `env:"DUEL_BOT_INTERVAL"    envDefault:"12"`

	BannerTicks     int `env:"DUEL_BANNER_TICKS"      envDefault:"40"`
	FightDelayTicks int `env:"DUEL_FIGHT_DELAY_TICKS" envDefault:"10"`
	EndDelayTicks   int `env:"DUEL_END_DELAY_TICKS"   envDefault:"120"`

	Seed      uint32  `env:"DUEL_SEED"`
	P1HAR     uint8   `env:"DUEL_P1_HAR"`
	P2HAR     uint8   `env:"DUEL_P2_HAR"    envDefault:"1"`
	P1Pilot   uint8   `env:"DUEL_P1_PILOT"`
	P2Pilot   uint8   `env:"DUEL_P2_PILOT"  envDefault:"1"`
	P1Colors  []uint8 `env:"DUEL_P1_COLORS" envDefault:"8,0,15" envSeparator:","`
	P2Colors  []uint8 `env:"DUEL_P2_COLORS" envDefault:"4,0,15" envSeparator:","`

	// OverlayEvery logs the match overlay every N ticks; 0 disables it.
	OverlayEvery int `env:"DUEL_OVERLAY_EVERY" envDefault:"60"`

	LogSinks    []string `env:"DUEL_LOG_SINKS"     envDefault:"console" envSeparator:","`
	LogLevel    string   `env:"DUEL_LOG_LEVEL"     envDefault:"info"`
	LogJSONPath string   `env:"DUEL_LOG_JSON_PATH" envDefault:"duel-events.jsonl"`

	ResultsDB string `env:"DUEL_RESULTS_DB" envDefault:"duel-results.db"`

	OTelEndpoint string `env:"DUEL_OTEL_ENDPOINT"`
	ServiceName  string `env:"DUEL_SERVICE_NAME" envDefault:"duel-arena"`
	EnablePprof  bool   `env:"DUEL_ENABLE_PPROF"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the match cannot run with.
func (c Config) Validate() error {
	var errs []error
	role, err := resync.ParseRole(c.Role)
	if err != nil {
		errs = append(errs, err)
	}
	if role == resync.Client && c.PeerURL == "" {
		errs = append(errs, errors.New("DUEL_PEER_URL is required for the client role"))
	}
	switch c.Local {
	case ControllerKeyboard, ControllerBot:
	default:
		errs = append(errs, fmt.Errorf("unknown local controller %q", c.Local))
	}
	switch c.Opponent {
	case ControllerNetwork, ControllerBot:
	default:
		errs = append(errs, fmt.Errorf("unknown opponent %q", c.Opponent))
	}
	if role == resync.Client && c.Opponent != ControllerNetwork {
		errs = append(errs, errors.New("the client role always plays a network opponent"))
	}
	if c.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tick rate must be positive, got %d", c.TickRate))
	}
	if c.RollbackWindow < 2 {
		errs = append(errs, fmt.Errorf("rollback window must hold at least 2 ticks, got %d", c.RollbackWindow))
	}
	if c.InputQueue < 1 {
		errs = append(errs, fmt.Errorf("input queue must hold at least 1 event, got %d", c.InputQueue))
	}
	for i, har := range []uint8{c.P1HAR, c.P2HAR} {
		if har >= sim.HARKinds {
			errs = append(errs, fmt.Errorf("player %d: unknown har %d", i+1, har))
		}
	}
	for i, colors := range [][]uint8{c.P1Colors, c.P2Colors} {
		if len(colors) != palette.PlayerSlots {
			errs = append(errs, fmt.Errorf("player %d: expected %d colors, got %d", i+1, palette.PlayerSlots, len(colors)))
			continue
		}
		for _, color := range colors {
			if int(color) >= palette.ColorCount {
				errs = append(errs, fmt.Errorf("player %d: color %d out of range", i+1, color))
			}
		}
	}
	return errors.Join(errs...)
}

// ParsedRole returns the validated resync role.
func (c Config) ParsedRole() resync.Role {
	role, _ := resync.ParseRole(c.Role)
	return role
}

// TickDuration is the wall-clock length of one tick.
func (c Config) TickDuration() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.TickRate)
}

// Setups returns the per-player HAR selection.
func (c Config) Setups() [sim.Players]sim.Setup {
	return [sim.Players]sim.Setup{
		{HAR: c.P1HAR, Pilot: c.P1Pilot},
		{HAR: c.P2HAR, Pilot: c.P2Pilot},
	}
}

// Colors returns the per-player color triples. Validate guarantees lengths.
func (c Config) Colors() [sim.Players][palette.PlayerSlots]uint8 {
	var out [sim.Players][palette.PlayerSlots]uint8
	copy(out[0][:], c.P1Colors)
	copy(out[1][:], c.P2Colors)
	return out
}

func (c Config) Lifecycle() lifecycle.Config {
	return lifecycle.Config{
		BannerTicks:     c.BannerTicks,
		FightDelayTicks: c.FightDelayTicks,
		EndDelayTicks:   c.EndDelayTicks,
	}
}

// Window returns the rollback history size, falling back to the default.
func (c Config) Window() int {
	if c.RollbackWindow <= 0 {
		return rollback.DefaultWindow
	}
	return c.RollbackWindow
}

// Logging maps the sink settings onto the router config.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if len(c.LogSinks) > 0 {
		cfg.EnabledSinks = append([]string(nil), c.LogSinks...)
	}
	cfg.MinimumSeverity = logging.ParseSeverity(c.LogLevel)
	cfg.JSON.FilePath = c.LogJSONPath
	cfg.Fields = map[string]any{"role": c.Role}
	return cfg
}

func (c Config) Observability() observability.Config {
	return observability.Config{
		ServiceName:  c.ServiceName,
		OTelEndpoint: c.OTelEndpoint,
		EnablePprof:  c.EnablePprof,
	}
}
