package net

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"duel-arena/server/internal/observability"
	"duel-arena/server/internal/results"
	"duel-arena/server/internal/telemetry"
)

const (
	defaultResultsLimit = 20
	maxResultsLimit     = 100
)

// ResultLister reads recorded matches.
type ResultLister interface {
	ListRecent(ctx context.Context, limit int) ([]results.Result, error)
}

// CounterSnapshotter exposes the metrics registry.
type CounterSnapshotter interface {
	Snapshot() map[string]uint64
}

type HTTPHandlerConfig struct {
	// Peers accepts the remote player on /ws. Nil leaves the route unmounted.
	Peers    nethttp.Handler
	Results  ResultLister
	Counters CounterSnapshotter
	// Status reports the current match for /diagnostics.
	Status        func() any
	TickRate      int
	Observability observability.Config
	Logger        telemetry.Logger
	Now           func() time.Time
}

type resultPayload struct {
	MatchID string `json:"matchId"`
	Role    string `json:"role"`
	Winner  int    `json:"winner"`
	Points  [2]int `json:"points"`
	Hits    [2]int `json:"hits"`
	Ticks   uint32 `json:"ticks"`
	EndedAt int64  `json:"endedAt"`
}

func NewHTTPHandler(cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var match any
		if cfg.Status != nil {
			match = cfg.Status()
		}
		var counters map[string]uint64
		if cfg.Counters != nil {
			counters = cfg.Counters.Snapshot()
		}
		payload := struct {
			Status     string            `json:"status"`
			ServerTime int64             `json:"serverTime"`
			TickRate   int               `json:"tickRate"`
			Match      any               `json:"match"`
			Telemetry  map[string]uint64 `json:"telemetry"`
			Tracing    bool              `json:"tracing"`
		}{
			Status:     "ok",
			ServerTime: now().UnixMilli(),
			TickRate:   cfg.TickRate,
			Match:      match,
			Telemetry:  counters,
			Tracing:    cfg.Observability.TracingEnabled(),
		}
		writeJSON(w, logger, payload)
	})

	mux.HandleFunc("/results", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		if cfg.Results == nil {
			httpError(w, "results store unavailable", nethttp.StatusServiceUnavailable)
			return
		}
		limit := defaultResultsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil || value <= 0 {
				httpError(w, "invalid limit", nethttp.StatusBadRequest)
				return
			}
			limit = min(value, maxResultsLimit)
		}

		recent, err := cfg.Results.ListRecent(r.Context(), limit)
		if err != nil {
			logger.Printf("failed to list results: %v", err)
			httpError(w, "failed to list results", nethttp.StatusInternalServerError)
			return
		}
		payload := make([]resultPayload, 0, len(recent))
		for _, result := range recent {
			payload = append(payload, resultPayload{
				MatchID: result.MatchID,
				Role:    result.Role,
				Winner:  result.Winner + 1,
				Points:  result.Points,
				Hits:    result.Hits,
				Ticks:   result.Ticks,
				EndedAt: result.EndedAt.UnixMilli(),
			})
		}
		writeJSON(w, logger, struct {
			Results []resultPayload `json:"results"`
		}{Results: payload})
	})

	if cfg.Peers != nil {
		mux.Handle("/ws", cfg.Peers)
	}

	if cfg.Observability.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, logger telemetry.Logger, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("failed to encode response: %v", err)
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
