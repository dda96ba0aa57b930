package resync

import (
	"fmt"
)

// Reason kinds noted by the arena.
const (
	ReasonRemoteRollback = "remote_rollback"
	ReasonLocalAction    = "local_action"
)

// Reason explains why a snapshot push was requested.
type Reason struct {
	Kind   string
	Player int
}

func (r Reason) String() string {
	return fmt.Sprintf("%s:p%d", r.Kind, r.Player+1)
}

// Signal summarises the reasons accumulated since the last broadcast.
type Signal struct {
	Requests uint64
	Reasons  []Reason
}

// Policy accumulates broadcast requests between ticks.
type Policy struct {
	requests uint64
	pending  bool
	reasons  []Reason
}

const reasonLimit = 8

func NewPolicy() *Policy {
	return &Policy{reasons: make([]Reason, 0, reasonLimit)}
}

// Note records a broadcast request. Only the first few reasons are kept.
func (p *Policy) Note(kind string, player int) {
	if p == nil {
		return
	}
	p.requests++
	p.pending = true
	if len(p.reasons) < reasonLimit {
		p.reasons = append(p.reasons, Reason{Kind: kind, Player: player})
	}
}

// Pending reports whether a request is waiting to be consumed.
func (p *Policy) Pending() bool {
	return p != nil && p.pending
}

// Consume returns and clears the pending signal.
func (p *Policy) Consume() (Signal, bool) {
	if p == nil || !p.pending {
		return Signal{}, false
	}
	signal := Signal{
		Requests: p.requests,
		Reasons:  append([]Reason(nil), p.reasons...),
	}
	p.pending = false
	p.requests = 0
	if len(p.reasons) > 0 {
		p.reasons = p.reasons[:0]
	}
	return signal, true
}

// Strings renders the reasons for logging.
func (s Signal) Strings() []string {
	if len(s.Reasons) == 0 {
		return nil
	}
	out := make([]string, len(s.Reasons))
	for i, reason := range s.Reasons {
		out[i] = reason.String()
	}
	return out
}

func (s Signal) Summary() string {
	if s.Requests == 0 {
		return ""
	}
	return fmt.Sprintf("requests=%d reasons=%v", s.Requests, s.Strings())
}
