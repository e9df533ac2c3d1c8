package workspace

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/codecanvas/internal/domain/preview"
	"github.com/GriffinCanCode/codecanvas/internal/domain/preview/sandbox"
	"github.com/GriffinCanCode/codecanvas/internal/shared/id"
)

// Workspace is one editor session: three buffers, the coordinator that
// keeps its previews in sync, and the chrome state
type Workspace struct {
	ID        id.WorkspaceID
	Template  string
	CreatedAt time.Time

	coordinator *preview.Coordinator
	headless    *sandbox.Target

	mu       sync.Mutex
	ui       UIState
	attached int
	lastSeen time.Time
}

// Info is a read-only summary of a workspace
type Info struct {
	ID        id.WorkspaceID `json:"id"`
	Template  string         `json:"template"`
	CreatedAt time.Time      `json:"created_at"`
	Attached  int            `json:"attached"`
	Modified  bool           `json:"modified"`
	Detached  string         `json:"detached"`
	Revision  uint64         `json:"revision"`
	Headless  bool           `json:"headless"`
	UI        UIState        `json:"ui"`
}

// Coordinator returns the preview coordinator
func (w *Workspace) Coordinator() *preview.Coordinator {
	return w.coordinator
}

// Headless returns the headless target, or nil when disabled
func (w *Workspace) Headless() *sandbox.Target {
	return w.headless
}

// UI returns the current chrome state
func (w *Workspace) UI() UIState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ui
}

// Dispatch reduces action into the chrome state and returns the result
func (w *Workspace) Dispatch(action Action) (UIState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next, err := Reduce(w.ui, action)
	if err != nil {
		return w.ui, err
	}
	w.ui = next
	return next, nil
}

// Info summarizes the workspace
func (w *Workspace) Info() Info {
	w.mu.Lock()
	attached := w.attached
	ui := w.ui
	w.mu.Unlock()

	return Info{
		ID:        w.ID,
		Template:  w.Template,
		CreatedAt: w.CreatedAt,
		Attached:  attached,
		Modified:  w.coordinator.IsModified(),
		Detached:  w.coordinator.State().String(),
		Revision:  w.coordinator.Revision(),
		Headless:  w.headless != nil,
		UI:        ui,
	}
}

func (w *Workspace) attach(now time.Time) {
	w.mu.Lock()
	w.attached++
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) detach(now time.Time) {
	w.mu.Lock()
	if w.attached > 0 {
		w.attached--
	}
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince(now time.Time) (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.attached > 0 {
		return 0, false
	}
	return now.Sub(w.lastSeen), true
}

func (w *Workspace) close() {
	w.coordinator.Close()
	if w.headless != nil {
		w.headless.Close()
	}
}
