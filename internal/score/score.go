// Package score accumulates points from landed hits and keeps the short-lived
// point notices shown next to each score.
package score

import (
	"context"
	"fmt"
	"sort"

	"duel-arena/server/internal/sim"
	"duel-arena/server/logging"
	loggingmatch "duel-arena/server/logging/match"
)

// NoticeLifetime is how many ticks a point notice stays visible.
const NoticeLifetime = 60

// Notice is one floating "+points" text.
type Notice struct {
	Text string
	Age  int
	key  ledgerKey
}

// Entry is one player's accumulated score.
type Entry struct {
	Points  int
	Hits    int
	Notices []Notice
}

// Format renders the score the way the overlay prints it.
func (e Entry) Format() string {
	return fmt.Sprintf("%08d", e.Points)
}

type ledgerKey struct {
	tick       uint32
	attacker   int
	activation uint32
}

type ledgerHit struct {
	points int
	move   string
}

// Registry owns both score entries. Hits are recorded in a ledger so a
// rollback can retract everything at or after the rewind tick and replay
// can count each contact exactly once.
type Registry struct {
	entries   [sim.Players]Entry
	ledger    map[ledgerKey]ledgerHit
	bound     *sim.State
	publisher logging.Publisher
}

// NewRegistry constructs an empty registry. pub may be nil.
func NewRegistry(pub logging.Publisher) *Registry {
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Registry{
		ledger:    make(map[ledgerKey]ledgerHit),
		publisher: pub,
	}
}

// Bind installs the hit hook on both HARs of s. Binding the same state again
// is a no-op.
func (r *Registry) Bind(s *sim.State) {
	if s == nil || r.bound == s {
		return
	}
	for player := 0; player < sim.Players; player++ {
		s.InstallHitHook(player, r.OnHit)
	}
	r.bound = s
}

// OnHit credits the attacker with the move's points.
func (r *Registry) OnHit(hit sim.Hit) {
	key := ledgerKey{tick: hit.Tick, attacker: hit.Attacker, activation: hit.Activation}
	if _, seen := r.ledger[key]; seen {
		return
	}
	points := hit.Move.Points
	r.ledger[key] = ledgerHit{points: points, move: hit.Move.Name}

	entry := &r.entries[hit.Attacker]
	entry.Points += points
	entry.Hits++
	entry.Notices = append(entry.Notices, Notice{Text: fmt.Sprintf("+%d", points), key: key})

	loggingmatch.Hit(context.Background(), r.publisher, uint64(hit.Tick), hit.Attacker, hit.Defender, loggingmatch.HitPayload{
		Move:   hit.Move.Name,
		Points: points,
		Total:  entry.Points,
	})
}

// Rewind retracts every hit recorded at or after tick.
func (r *Registry) Rewind(tick uint32) {
	for key, hit := range r.ledger {
		if key.tick < tick {
			continue
		}
		entry := &r.entries[key.attacker]
		entry.Points -= hit.points
		entry.Hits--
		entry.Notices = dropNotice(entry.Notices, key)
		delete(r.ledger, key)
	}
}

// Trim forgets ledger entries older than before. Their points stay
// credited; they only stop being retractable.
func (r *Registry) Trim(before uint32) {
	for key := range r.ledger {
		if key.tick < before {
			delete(r.ledger, key)
		}
	}
}

// Tick ages the point notices and drops expired ones.
func (r *Registry) Tick() {
	for i := range r.entries {
		kept := r.entries[i].Notices[:0]
		for _, notice := range r.entries[i].Notices {
			notice.Age++
			if notice.Age < NoticeLifetime {
				kept = append(kept, notice)
			}
		}
		r.entries[i].Notices = kept
	}
}

// Entry returns a copy of player's score.
func (r *Registry) Entry(player int) Entry {
	entry := r.entries[player]
	entry.Notices = append([]Notice(nil), entry.Notices...)
	return entry
}

// Ledger lists the recorded hit ticks in ascending order.
func (r *Registry) Ledger() []uint32 {
	ticks := make([]uint32, 0, len(r.ledger))
	for key := range r.ledger {
		ticks = append(ticks, key.tick)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	return ticks
}

func dropNotice(notices []Notice, key ledgerKey) []Notice {
	for i, notice := range notices {
		if notice.key == key {
			return append(notices[:i], notices[i+1:]...)
		}
	}
	return notices
}
