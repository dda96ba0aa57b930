// Package resync pushes authoritative snapshots from the host to its remote
// peer after ticks that changed the state in ways the peer may have missed.
package resync

import (
	"context"
	"fmt"

	"duel-arena/server/internal/controller"
	"duel-arena/server/internal/sim"
	"duel-arena/server/internal/snapshot"
	"duel-arena/server/internal/telemetry"
	"duel-arena/server/logging"
	loggingmatch "duel-arena/server/logging/match"
)

const (
	metricBroadcasts  = "resync_broadcasts_total"
	metricBytes       = "resync_bytes_total"
	metricSendFailure = "resync_send_failures_total"
)

// Role is which side of the match this process plays.
type Role uint8

const (
	// Host is authoritative and pushes snapshots.
	Host Role = iota
	// Client follows the host's snapshots.
	Client
)

func (r Role) String() string {
	if r == Client {
		return "client"
	}
	return "host"
}

// ParseRole accepts "host" or "client".
func ParseRole(value string) (Role, error) {
	switch value {
	case "host", "":
		return Host, nil
	case "client":
		return Client, nil
	default:
		return Host, fmt.Errorf("unknown role %q", value)
	}
}

// Broadcaster sends one encoded snapshot to every network controller.
type Broadcaster struct {
	role      Role
	players   [sim.Players]controller.Controller
	policy    *Policy
	publisher logging.Publisher
	metrics   telemetry.Metrics
}

// NewBroadcaster constructs a broadcaster over the match's controllers.
func NewBroadcaster(role Role, players [sim.Players]controller.Controller, pub logging.Publisher, metrics telemetry.Metrics) *Broadcaster {
	if pub == nil {
		pub = logging.NopPublisher()
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &Broadcaster{
		role:      role,
		players:   players,
		policy:    NewPolicy(),
		publisher: pub,
		metrics:   metrics,
	}
}

// Note records why a broadcast is wanted this tick.
func (b *Broadcaster) Note(kind string, player int) {
	b.policy.Note(kind, player)
}

// MaybeBroadcast sends s to every network player when any flag is set. It
// returns the number of peers the snapshot reached. Send failures are logged
// and counted; only an encode failure is returned.
func (b *Broadcaster) MaybeBroadcast(ctx context.Context, s *sim.State, flags ...bool) (int, error) {
	signal, _ := b.policy.Consume()
	if b.role != Host || !anySet(flags) {
		return 0, nil
	}
	var recipients []int
	for player, ctrl := range b.players {
		if ctrl != nil && ctrl.Kind() == controller.Network {
			recipients = append(recipients, player)
		}
	}
	if len(recipients) == 0 {
		return 0, nil
	}

	data, err := snapshot.Encode(s)
	if err != nil {
		return 0, fmt.Errorf("encode snapshot at tick %d: %w", s.Tick, err)
	}

	sent := make([]int, 0, len(recipients))
	for _, player := range recipients {
		if err := b.players[player].Send(s.Tick, data); err != nil {
			b.metrics.Add(metricSendFailure, 1)
			loggingmatch.SendFailed(ctx, b.publisher, uint64(s.Tick), player, err)
			continue
		}
		sent = append(sent, player)
	}
	b.metrics.Add(metricBroadcasts, 1)
	b.metrics.Add(metricBytes, uint64(len(data)*len(sent)))
	loggingmatch.ResyncSent(ctx, b.publisher, uint64(s.Tick), loggingmatch.ResyncPayload{
		Bytes:      len(data),
		Recipients: sent,
		Reasons:    signal.Strings(),
	})
	return len(sent), nil
}

func anySet(flags []bool) bool {
	for _, flag := range flags {
		if flag {
			return true
		}
	}
	return false
}
