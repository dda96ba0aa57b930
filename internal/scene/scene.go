// Package scene is the narrow shell contract a match scene is driven
// through, plus the fixed-rate runner that drives it.
package scene

import "context"

// ID names a scene the shell can switch to.
type ID uint8

const (
	None ID = iota
	Arena
	Menu
	Newsroom
)

func (id ID) String() string {
	switch id {
	case Arena:
		return "arena"
	case Menu:
		return "menu"
	case Newsroom:
		return "newsroom"
	default:
		return "none"
	}
}

// Key is a shell-level key press.
type Key uint8

const (
	KeyOther Key = iota
	KeyEscape
	KeyUp
	KeyDown
	KeyEnter
)

// Event is a raw shell event forwarded to the active scene.
type Event struct {
	Key  Key
	Text string
}

// Scene is what the shell drives once per tick.
type Scene interface {
	Tick(ctx context.Context) error
	// HandleEvent reports whether the scene consumed the event.
	HandleEvent(Event) bool
	RenderOverlay()
	Teardown()
}

// Switcher requests a transition to another scene.
type Switcher interface {
	SetNext(ID)
}
