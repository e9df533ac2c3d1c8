package ws

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/codecanvas/internal/domain/preview"
	"github.com/GriffinCanCode/codecanvas/internal/shared/id"
)

var ErrAlreadyAttached = errors.New("preview window already attached")

func presentMessage(document string, revision uint64) map[string]interface{} {
	return map[string]interface{}{
		"type":      "present",
		"document":  document,
		"revision":  revision,
		"timestamp": time.Now().Unix(),
	}
}

// EmbeddedTarget is the preview frame inside the editor page. Every
// editor socket of the workspace receives each document; with no socket
// connected the document is only remembered.
type EmbeddedTarget struct {
	hub       *Hub
	workspace id.WorkspaceID
	released  atomic.Bool

	mu       sync.Mutex
	document string
	revision uint64
}

// Kind implements preview.Target
func (t *EmbeddedTarget) Kind() preview.Kind { return preview.Embedded }

// Alive implements preview.Target. The frame lives as long as the
// workspace does.
func (t *EmbeddedTarget) Alive() bool { return !t.released.Load() }

// Present sends document to every editor of the workspace as one frame
func (t *EmbeddedTarget) Present(document string) error {
	if !t.Alive() {
		return nil
	}

	t.mu.Lock()
	t.revision++
	t.document = document
	msg := presentMessage(document, t.revision)
	t.mu.Unlock()

	t.hub.broadcast(t.workspace, msg)
	return nil
}

// Document returns the last presented document and its revision
func (t *EmbeddedTarget) Document() (string, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.document, t.revision
}

// DetachedTarget is a preview window opened from the editor. It starts
// pending and becomes attached when the window's socket connects. Done
// closes when that socket goes away, or when no socket arrives within the
// attach timeout.
type DetachedTarget struct {
	id        id.TargetID
	workspace id.WorkspaceID
	hub       *Hub
	logger    *zap.Logger

	alive atomic.Bool
	done  chan struct{}
	once  sync.Once
	timer *time.Timer

	mu       sync.Mutex
	client   *client // nil while pending
	document string
	revision uint64
}

func newDetachedTarget(hub *Hub, workspace id.WorkspaceID) *DetachedTarget {
	tid := id.NewTargetID()
	t := &DetachedTarget{
		id:        tid,
		workspace: workspace,
		hub:       hub,
		logger: hub.logger.With(
			zap.String("workspace", workspace.String()),
			zap.String("target", tid.String()),
		),
		done: make(chan struct{}),
	}
	t.alive.Store(true)
	t.timer = time.AfterFunc(hub.config.AttachTimeout, t.expire)
	return t
}

// ID returns the target id used in the preview window URL
func (t *DetachedTarget) ID() id.TargetID { return t.id }

// Workspace returns the owning workspace
func (t *DetachedTarget) Workspace() id.WorkspaceID { return t.workspace }

// Path returns the page the editor opens for this target
func (t *DetachedTarget) Path() string {
	return "/preview/" + t.workspace.String() + "/" + t.id.String()
}

// Kind implements preview.Target
func (t *DetachedTarget) Kind() preview.Kind { return preview.Detached }

// Alive implements preview.Target
func (t *DetachedTarget) Alive() bool { return t.alive.Load() }

// Done implements preview.DetachedTarget
func (t *DetachedTarget) Done() <-chan struct{} { return t.done }

// Attached reports whether a window socket is connected
func (t *DetachedTarget) Attached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client != nil
}

// Present sends document to the window. While pending, the document is
// kept and delivered on attach.
func (t *DetachedTarget) Present(document string) error {
	if !t.Alive() {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.revision++
	t.document = document
	if t.client == nil {
		return nil
	}
	if err := t.client.sendJSON(presentMessage(document, t.revision)); err != nil {
		return preview.ErrTargetClosed
	}
	return nil
}

// Close tears the window down. Safe to call more than once.
func (t *DetachedTarget) Close() {
	t.once.Do(func() {
		t.alive.Store(false)
		t.timer.Stop()

		t.mu.Lock()
		c := t.client
		t.mu.Unlock()
		if c != nil {
			c.close()
		}

		t.hub.forget(t)
		close(t.done)
		t.logger.Debug("Detached preview closed")
	})
}

// attach binds the window socket and flushes the latest document
func (t *DetachedTarget) attach(c *client) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.Alive() {
		return preview.ErrTargetClosed
	}
	if t.client != nil {
		return ErrAlreadyAttached
	}
	t.client = c
	t.timer.Stop()

	if t.revision > 0 {
		return c.sendJSON(presentMessage(t.document, t.revision))
	}
	return nil
}

func (t *DetachedTarget) expire() {
	t.mu.Lock()
	if t.client != nil {
		t.mu.Unlock()
		return
	}
	// attach checks alive under mu, so no socket can slip in after this
	t.alive.Store(false)
	t.mu.Unlock()

	t.logger.Info("Preview window never attached")
	t.Close()
}
