package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"duel-arena/server/internal/arena"
	"duel-arena/server/internal/config"
	"duel-arena/server/internal/controller"
	"duel-arena/server/internal/net/ws"
	"duel-arena/server/internal/results"
	"duel-arena/server/internal/resync"
	"duel-arena/server/internal/scene"
	"duel-arena/server/internal/sim"
	"duel-arena/server/internal/telemetry"
	"duel-arena/server/logging"
)

// session runs one match from controller setup to the newsroom.
type session struct {
	settings  config.Config
	matchID   string
	logger    telemetry.Logger
	publisher logging.Publisher
	counters  *telemetry.Counters
	store     *results.Store
	peers     *ws.Handler
	peerCfg   ws.PeerConfig
	input     io.Reader
	renderer  *logRenderer
}

// slots returns the local and remote player indices. The host is player 1.
func (s *session) slots() (local, remote int) {
	if s.settings.ParsedRole() == resync.Client {
		return 1, 0
	}
	return 0, 1
}

// controllers builds both players. The caller closes them after the match.
func (s *session) controllers(ctx context.Context, source controller.StateSource) ([sim.Players]controller.Controller, *controller.Keyboard, error) {
	var ctrls [sim.Players]controller.Controller
	local, remote := s.slots()

	var keyboard *controller.Keyboard
	switch s.settings.Local {
	case config.ControllerBot:
		ctrls[local] = controller.NewBot(local, source, s.settings.BotInterval)
	default:
		keyboard = controller.NewKeyboard(s.settings.InputQueue, s.counters)
		ctrls[local] = keyboard
	}

	switch {
	case s.settings.Opponent == config.ControllerBot:
		ctrls[remote] = controller.NewBot(remote, source, s.settings.BotInterval)
	case s.settings.ParsedRole() == resync.Client:
		peer, err := ws.Dial(ctx, s.settings.PeerURL, s.peerCfg)
		if err != nil {
			return ctrls, nil, fmt.Errorf("dial host %s: %w", s.settings.PeerURL, err)
		}
		go func() {
			if err := peer.Run(ctx); err != nil {
				s.logger.Printf("host connection ended: %v", err)
			}
		}()
		s.logger.Printf("connected to host %s", s.settings.PeerURL)
		ctrls[remote] = peer
	default:
		if s.peers == nil {
			return ctrls, nil, errors.New("network opponent requires a peer handler")
		}
		s.logger.Printf("waiting for peer on %s/ws", s.settings.ListenAddr)
		peer, err := s.peers.Accept(ctx)
		if err != nil {
			return ctrls, nil, err
		}
		s.logger.Printf("peer joined")
		ctrls[remote] = peer
	}
	return ctrls, keyboard, nil
}

// run plays the match and returns the scene the shell should show next.
func (s *session) run(ctx context.Context) (scene.ID, error) {
	var match *arena.Arena
	source := func() *sim.State {
		if match == nil {
			return nil
		}
		return match.State()
	}

	ctrls, keyboard, err := s.controllers(ctx, source)
	defer func() {
		for _, ctrl := range ctrls {
			if ctrl != nil {
				ctrl.Close()
			}
		}
	}()
	if err != nil {
		return scene.None, err
	}

	var tick atomic.Uint32
	runner := scene.NewRunner(scene.RunnerConfig{
		TickRate: s.settings.TickRate,
		Metrics:  s.counters,
		AfterTick: func(scene.TickResult) {
			tick.Store(match.State().Tick)
		},
	})
	menu := &pauseMenu{switcher: runner}

	match, err = arena.New(arena.Deps{
		MatchID:     s.matchID,
		Seed:        s.settings.Seed,
		Setups:      s.settings.Setups(),
		Colors:      s.settings.Colors(),
		Controllers: ctrls,
		Role:        s.settings.ParsedRole(),
		Window:      s.settings.Window(),
		Lifecycle:   s.settings.Lifecycle(),
		Switcher:    runner,
		Menu:        menu,
		Renderer:    s.renderer,
		Recorder:    s.store,
		Publisher:   s.publisher,
		Metrics:     s.counters,
		Logger:      s.logger,
	})
	if err != nil {
		return scene.None, fmt.Errorf("create arena: %w", err)
	}
	menu.match = match.Lifecycle()

	events := make(chan scene.Event, 8)
	if s.input != nil {
		console := &consoleInput{keyboard: keyboard, tick: &tick, events: events, logger: s.logger}
		go console.run(ctx, s.input)
	}

	s.logger.Printf("match %s started as %s", s.matchID, s.settings.ParsedRole())
	next, err := runner.Run(ctx, match, events)
	if err != nil {
		return scene.None, err
	}
	s.logger.Printf("match %s left for %s", s.matchID, next)
	if next == scene.Newsroom {
		s.reportResult(ctx)
	}
	return next, nil
}

func (s *session) reportResult(ctx context.Context) {
	recent, err := s.store.ListRecent(ctx, 1)
	if err != nil {
		s.logger.Printf("failed to read match result: %v", err)
		return
	}
	if len(recent) == 0 || recent[0].MatchID != s.matchID {
		s.logger.Printf("match %s ended without a recorded result", s.matchID)
		return
	}
	r := recent[0]
	s.logger.Printf("player %d wins: %08d vs %08d after %d ticks", r.Winner+1, r.Points[0], r.Points[1], r.Ticks)
}
