package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"duel-arena/server/internal/arena"
	"duel-arena/server/internal/config"
	"duel-arena/server/internal/controller"
	"duel-arena/server/internal/lifecycle"
	"duel-arena/server/internal/scene"
	"duel-arena/server/internal/sim"
	"duel-arena/server/internal/telemetry"
	"duel-arena/server/logging"
)

type recordingSwitcher struct {
	next scene.ID
}

func (s *recordingSwitcher) SetNext(id scene.ID) { s.next = id }

func botSettings(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("DUEL_LOCAL", "bot")
	t.Setenv("DUEL_OPPONENT", "bot")
	t.Setenv("DUEL_LISTEN_ADDR", "127.0.0.1:0")
	t.Setenv("DUEL_RESULTS_DB", filepath.Join(t.TempDir(), "results.db"))
	t.Setenv("DUEL_TICK_RATE", "500")
	t.Setenv("DUEL_OVERLAY_EVERY", "0")
	t.Setenv("DUEL_LOG_SINKS", "memory")
	settings, err := config.Load()
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	return settings
}

func TestRunBotMatchStopsOnCancel(t *testing.T) {
	settings := botSettings(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := Run(ctx, Config{Settings: settings, Logger: telemetry.LoggerFunc(nil)}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(settings.ResultsDB); err != nil {
		t.Fatalf("expected results database to exist: %v", err)
	}
}

func TestRunRejectsInvalidSettings(t *testing.T) {
	settings := botSettings(t)
	settings.TickRate = 0

	err := Run(context.Background(), Config{Settings: settings, Logger: telemetry.LoggerFunc(nil)})
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestConsoleInputRoutesKeysAndActions(t *testing.T) {
	keyboard := controller.NewKeyboard(8, nil)
	events := make(chan scene.Event, 4)
	var tick atomic.Uint32
	tick.Store(77)
	console := &consoleInput{keyboard: keyboard, tick: &tick, events: events, logger: telemetry.LoggerFunc(nil)}

	console.run(context.Background(), strings.NewReader("punch\nesc\n\nsomersault\nmenu-down\nENTER\n"))

	chain := keyboard.Poll()
	if len(chain) != 1 || chain[0].Action != sim.ActionPunch || chain[0].Tick != 77 {
		t.Fatalf("expected one punch at tick 77, got %+v", chain)
	}
	want := []scene.Key{scene.KeyEscape, scene.KeyDown, scene.KeyEnter}
	for _, key := range want {
		select {
		case ev := <-events:
			if ev.Key != key {
				t.Fatalf("expected key %v, got %v", key, ev.Key)
			}
		default:
			t.Fatalf("missing key %v", key)
		}
	}
}

func TestConsoleInputStopsAfterKeyboardClosed(t *testing.T) {
	keyboard := controller.NewKeyboard(8, nil)
	keyboard.Close()
	var tick atomic.Uint32
	console := &consoleInput{keyboard: keyboard, tick: &tick, logger: telemetry.LoggerFunc(nil)}

	if console.handle(context.Background(), "kick") {
		t.Fatalf("expected reading to stop once the keyboard is closed")
	}
}

func TestPauseMenu(t *testing.T) {
	switcher := &recordingSwitcher{}
	machine := lifecycle.NewMachine(lifecycle.Config{})
	machine.ToggleMenu()
	menu := &pauseMenu{switcher: switcher, match: machine}

	menu.HandleEvent(scene.Event{Key: scene.KeyEnter})
	if machine.MenuVisible() || switcher.next != scene.None {
		t.Fatalf("expected resume to close the menu, got visible=%v next=%v", machine.MenuVisible(), switcher.next)
	}

	menu.HandleEvent(scene.Event{Key: scene.KeyUp})
	if menu.selected != menuQuit {
		t.Fatalf("expected up to wrap to quit, got %d", menu.selected)
	}
	menu.HandleEvent(scene.Event{Key: scene.KeyEnter})
	if switcher.next != scene.Menu {
		t.Fatalf("expected quit to request the main menu, got %v", switcher.next)
	}

	if menu.HandleEvent(scene.Event{Key: scene.KeyOther}) {
		t.Fatalf("unbound keys should not be consumed")
	}
}

func TestLogRendererCadence(t *testing.T) {
	var lines []string
	renderer := &logRenderer{
		logger: telemetry.LoggerFunc(func(format string, args ...any) { lines = append(lines, format) }),
		every:  3,
	}
	if renderer.Latest() != nil {
		t.Fatalf("expected no overlay before the first frame")
	}
	for tick := uint32(1); tick <= 7; tick++ {
		renderer.Render(arena.Overlay{Tick: tick})
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 printed frames, got %d", len(lines))
	}
	latest, ok := renderer.Latest().(*arena.Overlay)
	if !ok || latest.Tick != 7 {
		t.Fatalf("expected latest overlay at tick 7, got %v", renderer.Latest())
	}
}

func TestEventLogSinks(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"telegraph"}
	if _, err := newEventLog(cfg, nil); err == nil {
		t.Fatalf("expected unknown sink error")
	}

	path := filepath.Join(t.TempDir(), "events.jsonl")
	cfg.EnabledSinks = []string{"json", "memory"}
	cfg.JSON.FilePath = path
	cfg.JSON.FlushInterval = 0
	el, err := newEventLog(cfg, nil)
	if err != nil {
		t.Fatalf("new event log: %v", err)
	}
	el.router.Publish(context.Background(), logging.Event{Type: "match.hit", Severity: logging.SeverityInfo})
	if err := el.Close(context.Background()); err != nil {
		t.Fatalf("close event log: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json log: %v", err)
	}
	if !strings.Contains(string(data), "match.hit") {
		t.Fatalf("expected event in json log, got %q", data)
	}
}
