package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/codecanvas/internal/domain/buffer"
)

func TestReduce(t *testing.T) {
	tests := []struct {
		name   string
		state  UIState
		action Action
		want   UIState
	}{
		{
			name:   "toggle theme dark to light",
			state:  DefaultUIState(),
			action: Action{Type: ActionToggleTheme},
			want:   UIState{Theme: ThemeLight, ActiveBuffer: buffer.Markup},
		},
		{
			name:   "toggle theme light to dark",
			state:  UIState{Theme: ThemeLight},
			action: Action{Type: ActionToggleTheme},
			want:   UIState{Theme: ThemeDark},
		},
		{
			name:   "set theme",
			state:  DefaultUIState(),
			action: Action{Type: ActionSetTheme, Theme: ThemeLight},
			want:   UIState{Theme: ThemeLight, ActiveBuffer: buffer.Markup},
		},
		{
			name:   "toggle expanded",
			state:  DefaultUIState(),
			action: Action{Type: ActionToggleExpanded},
			want:   UIState{Theme: ThemeDark, Expanded: true, ActiveBuffer: buffer.Markup},
		},
		{
			name:   "select buffer by alias",
			state:  DefaultUIState(),
			action: Action{Type: ActionSelectBuffer, Buffer: "css"},
			want:   UIState{Theme: ThemeDark, ActiveBuffer: buffer.Style},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reduce(tt.state, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReduceRejectsInvalid(t *testing.T) {
	state := DefaultUIState()

	got, err := Reduce(state, Action{Type: "explode"})
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Equal(t, state, got)

	_, err = Reduce(state, Action{Type: ActionSetTheme, Theme: "neon"})
	assert.ErrorIs(t, err, ErrInvalidTheme)

	_, err = Reduce(state, Action{Type: ActionSelectBuffer, Buffer: "python"})
	assert.ErrorIs(t, err, buffer.ErrUnknownBuffer)
}

func TestReduceIsPure(t *testing.T) {
	state := DefaultUIState()
	_, err := Reduce(state, Action{Type: ActionToggleExpanded})
	require.NoError(t, err)
	assert.False(t, state.Expanded)
}
