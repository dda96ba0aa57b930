package match

import (
	"context"
	"strconv"

	"duel-arena/server/logging"
)

const (
	// EventRollback is emitted when a remote action rewinds and replays the simulation.
	EventRollback logging.EventType = "match.rollback"
	// EventResyncSent is emitted when the host pushes a snapshot to its peers.
	EventResyncSent logging.EventType = "match.resync_sent"
	// EventSendFailed is emitted when a peer transport rejects a snapshot.
	EventSendFailed logging.EventType = "match.send_failed"
	// EventSyncApplied is emitted when a peer snapshot replaces the live state.
	EventSyncApplied logging.EventType = "match.sync_applied"
	// EventSyncRejected is emitted when a peer snapshot fails to decode.
	EventSyncRejected logging.EventType = "match.sync_rejected"
	// EventLifecycle is emitted on every match state transition.
	EventLifecycle logging.EventType = "match.lifecycle"
	// EventHit is emitted when a scored hit lands.
	EventHit logging.EventType = "match.hit"
	// EventClosed is emitted when a peer closes the session.
	EventClosed logging.EventType = "match.closed"
)

// RollbackPayload describes one rewind/replay pass.
type RollbackPayload struct {
	From     uint32 `json:"from"`
	To       uint32 `json:"to"`
	RTT      uint32 `json:"rtt"`
	Actions  int    `json:"actions"`
	Replayed int    `json:"replayed"`
	Clamped  bool   `json:"clamped,omitempty"`
}

// ResyncPayload describes a snapshot broadcast.
type ResyncPayload struct {
	Bytes      int      `json:"bytes"`
	Recipients []int    `json:"recipients"`
	Reasons    []string `json:"reasons,omitempty"`
}

// SyncPayload describes a received snapshot.
type SyncPayload struct {
	Tick      uint32 `json:"tick,omitempty"`
	Bytes     int    `json:"bytes"`
	Forwarded int    `json:"forwarded,omitempty"`
	Error     string `json:"error,omitempty"`
}

// LifecyclePayload describes a match state transition.
type LifecyclePayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Winner int    `json:"winner,omitempty"`
}

// HitPayload describes a scored hit.
type HitPayload struct {
	Move   string `json:"move"`
	Points int    `json:"points"`
	Total  int    `json:"total"`
}

// PlayerRef identifies a player slot (0 or 1) in events.
func PlayerRef(player int) logging.EntityRef {
	return logging.EntityRef{ID: strconv.Itoa(player + 1), Kind: logging.EntityKindPlayer}
}

// Rollback publishes a rollback event.
func Rollback(ctx context.Context, pub logging.Publisher, tick uint64, player int, payload RollbackPayload) {
	severity := logging.SeverityDebug
	if payload.Clamped {
		severity = logging.SeverityWarn
	}
	publish(ctx, pub, logging.Event{
		Type:     EventRollback,
		Tick:     tick,
		Actor:    PlayerRef(player),
		Severity: severity,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// ResyncSent publishes a broadcast event.
func ResyncSent(ctx context.Context, pub logging.Publisher, tick uint64, payload ResyncPayload) {
	targets := make([]logging.EntityRef, 0, len(payload.Recipients))
	for _, player := range payload.Recipients {
		targets = append(targets, PlayerRef(player))
	}
	publish(ctx, pub, logging.Event{
		Type:     EventResyncSent,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindMatch},
		Targets:  targets,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// SendFailed publishes a transport failure for one recipient.
func SendFailed(ctx context.Context, pub logging.Publisher, tick uint64, player int, err error) {
	publish(ctx, pub, logging.Event{
		Type:     EventSendFailed,
		Tick:     tick,
		Actor:    PlayerRef(player),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  SyncPayload{Error: errString(err)},
	})
}

// SyncApplied publishes a successful snapshot replace.
func SyncApplied(ctx context.Context, pub logging.Publisher, tick uint64, player int, payload SyncPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventSyncApplied,
		Tick:     tick,
		Actor:    PlayerRef(player),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// SyncRejected publishes a discarded snapshot.
func SyncRejected(ctx context.Context, pub logging.Publisher, tick uint64, player int, size int, err error) {
	publish(ctx, pub, logging.Event{
		Type:     EventSyncRejected,
		Tick:     tick,
		Actor:    PlayerRef(player),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  SyncPayload{Bytes: size, Error: errString(err)},
	})
}

// Lifecycle publishes a match state transition.
func Lifecycle(ctx context.Context, pub logging.Publisher, tick uint64, payload LifecyclePayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventLifecycle,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindMatch},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// Hit publishes a scored hit from attacker on defender.
func Hit(ctx context.Context, pub logging.Publisher, tick uint64, attacker, defender int, payload HitPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventHit,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: strconv.Itoa(attacker + 1), Kind: logging.EntityKindHAR},
		Targets:  []logging.EntityRef{{ID: strconv.Itoa(defender + 1), Kind: logging.EntityKindHAR}},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

// Closed publishes a peer session termination.
func Closed(ctx context.Context, pub logging.Publisher, tick uint64, player int) {
	publish(ctx, pub, logging.Event{
		Type:     EventClosed,
		Tick:     tick,
		Actor:    PlayerRef(player),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, event.WithTrace(ctx))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
