package rollback

import "duel-arena/server/internal/sim"

// frame holds the state at the start of a tick, before any input, and the
// inputs applied during that tick.
type frame struct {
	tick   uint32
	state  *sim.State
	inputs [sim.Players][]sim.Action
}

// History is a fixed window of the most recent frames, indexed by tick.
type History struct {
	frames []frame
	first  uint32
	newest uint32
}

// NewHistory retains up to capacity ticks.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{frames: make([]frame, capacity)}
}

// Capacity reports how many ticks the window can hold.
func (h *History) Capacity() int {
	return len(h.frames)
}

// Reset discards every frame and starts the window at s.Tick.
func (h *History) Reset(s *sim.State) {
	for i := range h.frames {
		h.frames[i] = frame{}
	}
	h.first = s.Tick
	h.newest = s.Tick
	*h.slot(s.Tick) = frame{tick: s.Tick, state: s.Clone()}
}

// Push opens the frame for s.Tick, evicting the oldest one when full.
func (h *History) Push(s *sim.State) {
	h.newest = s.Tick
	*h.slot(s.Tick) = frame{tick: s.Tick, state: s.Clone()}
}

// Rewrite replaces the stored start state of s.Tick and keeps its inputs.
func (h *History) Rewrite(s *sim.State) {
	if f, ok := h.frame(s.Tick); ok {
		f.state = s.Clone()
	}
}

// Oldest is the earliest tick that can still be restored.
func (h *History) Oldest() uint32 {
	span := uint64(h.newest-h.first) + 1
	if span > uint64(len(h.frames)) {
		return h.newest - uint32(len(h.frames)) + 1
	}
	return h.first
}

// Newest is the most recently pushed tick.
func (h *History) Newest() uint32 {
	return h.newest
}

// Record appends actions to player's inputs at tick. It reports false when
// tick is outside the window.
func (h *History) Record(tick uint32, player int, actions ...sim.Action) bool {
	f, ok := h.frame(tick)
	if !ok {
		return false
	}
	f.inputs[player] = append(f.inputs[player], actions...)
	return true
}

// Inputs returns the actions player applied at tick.
func (h *History) Inputs(tick uint32, player int) []sim.Action {
	f, ok := h.frame(tick)
	if !ok {
		return nil
	}
	return append([]sim.Action(nil), f.inputs[player]...)
}

// Restore returns an isolated copy of the start state of tick.
func (h *History) Restore(tick uint32) (*sim.State, bool) {
	f, ok := h.frame(tick)
	if !ok {
		return nil, false
	}
	return f.state.Clone(), true
}

func (h *History) slot(tick uint32) *frame {
	return &h.frames[int(tick%uint32(len(h.frames)))]
}

func (h *History) frame(tick uint32) (*frame, bool) {
	if tick < h.Oldest() || tick > h.newest {
		return nil, false
	}
	f := h.slot(tick)
	if f.state == nil || f.tick != tick {
		return nil, false
	}
	return f, true
}
