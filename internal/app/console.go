package app

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"

	"duel-arena/server/internal/arena"
	"duel-arena/server/internal/controller"
	"duel-arena/server/internal/scene"
	"duel-arena/server/internal/sim"
	"duel-arena/server/internal/telemetry"
)

// logRenderer stands in for the overlay renderer on a headless server. It
// keeps the latest overlay for diagnostics and prints every Nth one.
type logRenderer struct {
	logger telemetry.Logger
	every  int
	frames int
	last   atomic.Pointer[arena.Overlay]
}

func (r *logRenderer) Render(o arena.Overlay) {
	r.last.Store(&o)
	r.frames++
	if r.every > 0 && r.frames%r.every == 0 {
		r.logger.Printf("%s", o)
	}
}

// Latest returns the last rendered overlay, or nil before the first tick.
func (r *logRenderer) Latest() any {
	if o := r.last.Load(); o != nil {
		return o
	}
	return nil
}

// Menu entries.
const (
	menuResume = iota
	menuQuit
	menuEntries
)

// menuToggler closes the menu on resume. lifecycle.Machine implements it.
type menuToggler interface {
	ToggleMenu() bool
}

// pauseMenu is the in-match menu: resume or quit to the main menu.
type pauseMenu struct {
	selected int
	match    menuToggler
	switcher scene.Switcher
}

func (m *pauseMenu) HandleEvent(ev scene.Event) bool {
	switch ev.Key {
	case scene.KeyUp:
		m.selected = (m.selected + menuEntries - 1) % menuEntries
	case scene.KeyDown:
		m.selected = (m.selected + 1) % menuEntries
	case scene.KeyEnter:
		if m.selected == menuQuit {
			m.switcher.SetNext(scene.Menu)
		} else if m.match != nil {
			m.match.ToggleMenu()
		}
	default:
		return false
	}
	return true
}

// consoleInput turns stdin lines into shell events and local actions. Lines
// naming a shell key (esc, menu-up, menu-down, enter) become events. Anything
// else is parsed as an action for the keyboard controller.
type consoleInput struct {
	keyboard *controller.Keyboard
	tick     *atomic.Uint32
	events   chan<- scene.Event
	logger   telemetry.Logger
}

func (c *consoleInput) run(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if !c.handle(ctx, strings.TrimSpace(scanner.Text())) {
			return
		}
	}
}

// handle processes one line and reports whether reading should continue.
func (c *consoleInput) handle(ctx context.Context, line string) bool {
	if line == "" {
		return true
	}
	key := scene.KeyOther
	switch strings.ToLower(line) {
	case "esc", "escape":
		key = scene.KeyEscape
	case "menu-up":
		key = scene.KeyUp
	case "menu-down":
		key = scene.KeyDown
	case "enter":
		key = scene.KeyEnter
	}
	if key != scene.KeyOther {
		select {
		case c.events <- scene.Event{Key: key, Text: line}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	action, err := sim.ParseAction(strings.ToLower(line))
	if err != nil {
		c.logger.Printf("ignoring console input: %v", err)
		return true
	}
	if c.keyboard == nil {
		c.logger.Printf("ignoring %s: local player is not keyboard driven", action)
		return true
	}
	if err := c.keyboard.Push(c.tick.Load(), action); err != nil {
		c.logger.Printf("dropping %s: %v", action, err)
		return !errors.Is(err, controller.ErrClosed)
	}
	return true
}
