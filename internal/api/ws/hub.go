package ws

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/codecanvas/internal/domain/preview"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codecanvas/internal/shared/id"
)

var ErrUnknownTarget = errors.New("unknown preview target")

// Config tunes socket behavior
type Config struct {
	AttachTimeout   time.Duration // How long a detached window may take to connect
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	SendBuffer      int   // Queued frames per socket before it is dropped
	MaxMessageBytes int64 // Largest inbound frame
}

// DefaultConfig returns the socket defaults
func DefaultConfig() Config {
	return Config{
		AttachTimeout:   10 * time.Second,
		WriteTimeout:    5 * time.Second,
		PingInterval:    30 * time.Second,
		SendBuffer:      64,
		MaxMessageBytes: 8 << 20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AttachTimeout <= 0 {
		c.AttachTimeout = d.AttachTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = d.MaxMessageBytes
	}
	return c
}

// Hub tracks the sockets of every workspace and hands out the
// socket-backed render targets. It implements workspace.TargetFactory.
//
// The hub never calls into a coordinator while holding mu; coordinators
// call into the hub while holding theirs.
type Hub struct {
	config Config

	mu       sync.RWMutex
	editors  map[id.WorkspaceID]map[*client]struct{}
	embedded map[id.WorkspaceID]*EmbeddedTarget
	detached map[id.TargetID]*DetachedTarget

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewHub creates a hub
func NewHub(config Config) *Hub {
	return &Hub{
		config:   config.withDefaults(),
		editors:  make(map[id.WorkspaceID]map[*client]struct{}),
		embedded: make(map[id.WorkspaceID]*EmbeddedTarget),
		detached: make(map[id.TargetID]*DetachedTarget),
		logger:   zap.NewNop(),
	}
}

// WithLogger sets the logger
func (h *Hub) WithLogger(logger *zap.Logger) *Hub {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithMetrics adds metrics tracking to the hub
func (h *Hub) WithMetrics(metrics *monitoring.Metrics) *Hub {
	h.metrics = metrics
	return h
}

// Embedded returns the editor-frame target of a workspace
func (h *Hub) Embedded(ws id.WorkspaceID) preview.Target {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.embedded[ws]
	if !ok {
		t = &EmbeddedTarget{hub: h, workspace: ws}
		h.embedded[ws] = t
	}
	return t
}

// Opener returns the detached-window opener of a workspace
func (h *Hub) Opener(ws id.WorkspaceID) preview.Opener {
	return preview.OpenerFunc(func() (preview.DetachedTarget, error) {
		h.mu.Lock()
		defer h.mu.Unlock()

		if _, ok := h.embedded[ws]; !ok {
			return nil, preview.ErrTargetClosed
		}
		t := newDetachedTarget(h, ws)
		h.detached[t.id] = t
		return t, nil
	})
}

// Release closes every socket and target of a workspace
func (h *Hub) Release(ws id.WorkspaceID) {
	h.mu.Lock()
	if t, ok := h.embedded[ws]; ok {
		t.released.Store(true)
		delete(h.embedded, ws)
	}
	var targets []*DetachedTarget
	for _, t := range h.detached {
		if t.workspace == ws {
			targets = append(targets, t)
		}
	}
	var clients []*client
	for c := range h.editors[ws] {
		clients = append(clients, c)
	}
	delete(h.editors, ws)
	h.mu.Unlock()

	for _, t := range targets {
		t.Close()
	}
	for _, c := range clients {
		c.close()
	}
}

// Detached looks up a detached target of a workspace
func (h *Hub) Detached(ws id.WorkspaceID, tid id.TargetID) (*DetachedTarget, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	t, ok := h.detached[tid]
	if !ok || t.workspace != ws {
		return nil, ErrUnknownTarget
	}
	return t, nil
}

// EmbeddedTarget returns the frame target of a workspace, if any
func (h *Hub) EmbeddedTarget(ws id.WorkspaceID) (*EmbeddedTarget, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.embedded[ws]
	return t, ok
}

// Editors returns the number of editor sockets of a workspace
func (h *Hub) Editors(ws id.WorkspaceID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.editors[ws])
}

// Close releases every workspace
func (h *Hub) Close() {
	h.mu.RLock()
	seen := make(map[id.WorkspaceID]struct{})
	for ws := range h.embedded {
		seen[ws] = struct{}{}
	}
	for ws := range h.editors {
		seen[ws] = struct{}{}
	}
	h.mu.RUnlock()

	for ws := range seen {
		h.Release(ws)
	}
}

func (h *Hub) addEditor(ws id.WorkspaceID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.editors[ws]
	if !ok {
		set = make(map[*client]struct{})
		h.editors[ws] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) removeEditor(ws id.WorkspaceID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.editors[ws]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.editors, ws)
		}
	}
}

// broadcast sends msg to every editor socket of a workspace. The frame is
// encoded once.
func (h *Hub) broadcast(ws id.WorkspaceID, msg map[string]interface{}) {
	frame, err := encode(msg)
	if err != nil {
		h.logger.Error("Encode failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.editors[ws]))
	for c := range h.editors[ws] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if c.enqueue(frame) == nil {
			c.record("out", msg["type"])
		}
	}
}

func (h *Hub) forget(t *DetachedTarget) {
	h.mu.Lock()
	if h.detached[t.id] == t {
		delete(h.detached, t.id)
	}
	h.mu.Unlock()
}
