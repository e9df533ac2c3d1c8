package workspace

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/codecanvas/internal/domain/buffer"
)

var (
	ErrUnknownAction = errors.New("unknown ui action")
	ErrInvalidTheme  = errors.New("invalid theme")
)

// Theme is the editor color scheme
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

func (t Theme) valid() bool {
	return t == ThemeDark || t == ThemeLight
}

// UIState is the editor chrome state of one workspace. The page renders
// from it and never flips its own classes; every change goes through
// Reduce on the server and comes back as a new state.
type UIState struct {
	Theme        Theme     `json:"theme"`
	Expanded     bool      `json:"expanded"`
	ActiveBuffer buffer.ID `json:"active_buffer"`
}

// DefaultUIState is dark, collapsed, on the markup tab
func DefaultUIState() UIState {
	return UIState{Theme: ThemeDark, ActiveBuffer: buffer.Markup}
}

// ActionType names a UI transition
type ActionType string

const (
	ActionToggleTheme    ActionType = "toggle_theme"
	ActionSetTheme       ActionType = "set_theme"
	ActionToggleExpanded ActionType = "toggle_expanded"
	ActionSelectBuffer   ActionType = "select_buffer"
)

// Action is one UI transition request
type Action struct {
	Type   ActionType `json:"type"`
	Theme  Theme      `json:"theme,omitempty"`
	Buffer string     `json:"buffer,omitempty"`
}

// Reduce applies action to state. It is pure; an invalid action leaves
// the state unchanged and returns an error.
func Reduce(state UIState, action Action) (UIState, error) {
	switch action.Type {
	case ActionToggleTheme:
		if state.Theme == ThemeLight {
			state.Theme = ThemeDark
		} else {
			state.Theme = ThemeLight
		}
	case ActionSetTheme:
		if !action.Theme.valid() {
			return state, fmt.Errorf("%w: %q", ErrInvalidTheme, action.Theme)
		}
		state.Theme = action.Theme
	case ActionToggleExpanded:
		state.Expanded = !state.Expanded
	case ActionSelectBuffer:
		id, err := buffer.ParseID(action.Buffer)
		if err != nil {
			return state, err
		}
		state.ActiveBuffer = id
	default:
		return state, fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}
	return state, nil
}
