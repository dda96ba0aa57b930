package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"duel-arena/server/internal/config"
	servernet "duel-arena/server/internal/net"
	"duel-arena/server/internal/net/ws"
	"duel-arena/server/internal/observability"
	"duel-arena/server/internal/results"
	"duel-arena/server/internal/resync"
	"duel-arena/server/internal/telemetry"
	"duel-arena/server/logging"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Logger   telemetry.Logger
	Settings config.Config
	// Input feeds the local keyboard controller. Nil leaves it idle.
	Input io.Reader
	// Stdout receives the console log sink. Defaults to os.Stdout.
	Stdout io.Writer
}

// Run hosts or joins one match and serves the HTTP surface until the match
// is over or ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	settings := cfg.Settings
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	shutdownTracing, err := observability.SetupTracing(ctx, settings.Observability())
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			telemetryLogger.Printf("failed to flush traces: %v", err)
		}
	}()

	eventLog, err := newEventLog(settings.Logging(), stdout)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := eventLog.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	store, err := results.Open(settings.ResultsDB)
	if err != nil {
		return fmt.Errorf("failed to open results store: %w", err)
	}
	defer store.Close()

	counters := telemetry.NewCounters()
	matchID := results.NewMatchID()
	peerCfg := ws.PeerConfig{
		TickDuration:  settings.TickDuration(),
		PingInterval:  settings.PingInterval,
		QueueCapacity: settings.InputQueue,
		Logger:        telemetryLogger,
		Metrics:       counters,
	}
	renderer := &logRenderer{logger: telemetryLogger, every: settings.OverlayEvery}

	handlerCfg := servernet.HTTPHandlerConfig{
		Results:       store,
		Counters:      counters,
		Status:        renderer.Latest,
		TickRate:      settings.TickRate,
		Observability: settings.Observability(),
		Logger:        telemetryLogger,
	}
	var peers *ws.Handler
	if settings.ParsedRole() == resync.Host && settings.Opponent == config.ControllerNetwork {
		peers = ws.NewHandler(ws.HandlerConfig{Peer: peerCfg, Logger: telemetryLogger})
		handlerCfg.Peers = peers
	}
	srv := &http.Server{Addr: settings.ListenAddr, Handler: servernet.NewHTTPHandler(handlerCfg)}

	sess := &session{
		settings:  settings,
		matchID:   matchID,
		logger:    telemetryLogger,
		publisher: logging.WithFields(eventLog.router, map[string]any{"match_id": matchID}),
		counters:  counters,
		store:     store,
		peers:     peers,
		peerCfg:   peerCfg,
		input:     cfg.Input,
		renderer:  renderer,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		telemetryLogger.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		defer cancel()
		_, err := sess.run(gctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})

	return g.Wait()
}
