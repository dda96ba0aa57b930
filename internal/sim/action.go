package sim

import "fmt"

// Action is a single player input applied to a HAR.
type Action uint8

const (
	ActionNone Action = iota
	ActionLeft
	ActionRight
	ActionUp
	ActionDown
	ActionPunch
	ActionKick
	ActionBlock
	ActionSpecial
	actionCount
)

var actionNames = [actionCount]string{
	ActionNone:    "stop",
	ActionLeft:    "left",
	ActionRight:   "right",
	ActionUp:      "up",
	ActionDown:    "down",
	ActionPunch:   "punch",
	ActionKick:    "kick",
	ActionBlock:   "block",
	ActionSpecial: "special",
}

func (a Action) String() string {
	if a < actionCount {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// Valid reports whether a names a known action.
func (a Action) Valid() bool {
	return a < actionCount
}

// ParseAction resolves an action name as produced by String.
func ParseAction(name string) (Action, error) {
	for i, candidate := range actionNames {
		if candidate == name {
			return Action(i), nil
		}
	}
	return ActionNone, fmt.Errorf("unknown action %q", name)
}
