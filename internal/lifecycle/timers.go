package lifecycle

type timer struct {
	remaining int
	fire      func()
}

// Timers runs callbacks a fixed number of ticks in the future.
type Timers struct {
	pending []timer
}

// Add schedules fn to run on the delay-th call to Tick from now.
func (t *Timers) Add(delay int, fn func()) {
	if delay < 1 {
		delay = 1
	}
	t.pending = append(t.pending, timer{remaining: delay, fire: fn})
}

// Tick counts every timer down and fires the due ones in scheduling order.
func (t *Timers) Tick() {
	var due []func()
	kept := t.pending[:0]
	for _, tm := range t.pending {
		tm.remaining--
		if tm.remaining <= 0 {
			due = append(due, tm.fire)
			continue
		}
		kept = append(kept, tm)
	}
	t.pending = kept
	for _, fn := range due {
		fn()
	}
}

// Len reports how many timers are pending.
func (t *Timers) Len() int {
	return len(t.pending)
}
