package preview

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/codecanvas/internal/domain/buffer"
	"github.com/GriffinCanCode/codecanvas/internal/domain/compose"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/monitoring"
)

var ErrCoordinatorClosed = errors.New("preview coordinator is closed")

// Coordinator keeps every render target of a workspace in sync with its
// buffers.
//
// All events (edits, detached-window requests, close notifications) are
// serialized: each runs to completion under mu before the next starts, so
// the store and target handles are never touched concurrently.
type Coordinator struct {
	mu       sync.Mutex
	store    *buffer.Store
	tracker  *buffer.Tracker
	embedded Target
	opener   Opener
	detached DetachedTarget
	mirrors  []Target
	document string
	revision uint64
	closed   bool

	onDetachedClosed func()
	onChanged        func()

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewCoordinator creates a coordinator and composes the initial document.
// Nothing is presented until the first event.
func NewCoordinator(store *buffer.Store, embedded Target, opener Opener) *Coordinator {
	c := &Coordinator{
		store:    store,
		tracker:  buffer.NewTracker(store),
		embedded: embedded,
		opener:   opener,
		logger:   zap.NewNop(),
	}
	c.document = c.compose()
	return c
}

// WithLogger sets the logger used for present failures and lifecycle events
func (c *Coordinator) WithLogger(logger *zap.Logger) *Coordinator {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithMetrics adds metrics tracking to the coordinator
func (c *Coordinator) WithMetrics(metrics *monitoring.Metrics) *Coordinator {
	c.metrics = metrics
	return c
}

// OnDetachedClosed registers fn to run after the detached target is
// dropped. fn runs outside the coordinator lock.
func (c *Coordinator) OnDetachedClosed(fn func()) {
	c.mu.Lock()
	c.onDetachedClosed = fn
	c.mu.Unlock()
}

// OnChanged registers fn to run after every successful OnBufferChanged or
// Load. fn runs outside the coordinator lock.
func (c *Coordinator) OnChanged(fn func()) {
	c.mu.Lock()
	c.onChanged = fn
	c.mu.Unlock()
}

// AddMirror registers an extra target that receives every document
func (c *Coordinator) AddMirror(t Target) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mirrors = append(c.mirrors, t)
	if !c.closed {
		c.present(t, c.document)
	}
}

// OnBufferChanged stores an edit, recomposes and pushes the document to
// every live target, once each.
func (c *Coordinator) OnBufferChanged(id buffer.ID, text string) error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return ErrCoordinatorClosed
	}
	if err := c.store.SetChecked(id, text); err != nil {
		c.mu.Unlock()
		return err
	}

	c.document = c.compose()
	dropped := c.pushAll()
	notify, changed := c.onDetachedClosed, c.onChanged
	c.mu.Unlock()

	if dropped && notify != nil {
		notify()
	}
	if changed != nil {
		changed()
	}
	return nil
}

// RequestDetachedPreview opens a detached surface and presents the current
// document to it. When a live detached surface already exists it is
// returned unchanged and created is false.
func (c *Coordinator) RequestDetachedPreview() (target DetachedTarget, created bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, false, ErrCoordinatorClosed
	}

	if c.detached != nil {
		if c.detached.Alive() {
			return c.detached, false, nil
		}
		c.dropDetached("stale")
	}

	t, err := c.opener.OpenDetached()
	if err != nil {
		return nil, false, err
	}

	c.detached = t
	if c.metrics != nil {
		c.metrics.IncDetachedOpened()
	}
	c.logger.Debug("Detached preview opened", zap.Uint64("revision", c.revision))

	go c.watch(t)

	c.present(t, c.document)
	return t, true, nil
}

// Load replaces several buffers at once and presents the result a single
// time. Buffers missing from snapshot keep their text.
func (c *Coordinator) Load(snapshot buffer.Snapshot) error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return ErrCoordinatorClosed
	}
	for id := range snapshot {
		if !id.Valid() {
			c.mu.Unlock()
			return fmt.Errorf("%w: %d", buffer.ErrUnknownBuffer, int(id))
		}
	}
	for id, text := range snapshot {
		c.store.Set(id, text)
	}

	c.document = c.compose()
	dropped := c.pushAll()
	notify, changed := c.onDetachedClosed, c.onChanged
	c.mu.Unlock()

	if dropped && notify != nil {
		notify()
	}
	if changed != nil {
		changed()
	}
	return nil
}

// Refresh re-presents the current document to every live target
func (c *Coordinator) Refresh() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	dropped := c.pushAll()
	notify := c.onDetachedClosed
	c.mu.Unlock()

	if dropped && notify != nil {
		notify()
	}
}

// State reports whether a detached target is currently tracked
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.detached != nil {
		return DetachedTargetActive
	}
	return NoDetachedTarget
}

// Document returns the most recently composed document
func (c *Coordinator) Document() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.document
}

// Revision counts compositions since the coordinator was created
func (c *Coordinator) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

// Snapshot returns the current buffer contents
func (c *Coordinator) Snapshot() buffer.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Snapshot()
}

// Baselines returns the initial contents of every buffer
func (c *Coordinator) Baselines() buffer.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Baselines()
}

// Get returns the current content of one buffer
func (c *Coordinator) Get(id buffer.ID) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Get(id)
}

// IsModified reports whether any buffer differs from its baseline
func (c *Coordinator) IsModified() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.IsModified()
}

// ModifiedBuffers lists the buffers that differ from their baseline
func (c *Coordinator) ModifiedBuffers() []buffer.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Modified()
}

// Close stops all presentation and closes the detached surface if any
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.detached != nil {
		c.detached.Close()
		c.dropDetached("coordinator closed")
	}
}

// watch waits for the detached surface to go away. It is the only
// asynchronous registration and has no timeout.
func (c *Coordinator) watch(t DetachedTarget) {
	<-t.Done()

	c.mu.Lock()
	if c.detached != t {
		c.mu.Unlock()
		return
	}
	c.dropDetached("closed by host")
	notify := c.onDetachedClosed
	c.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// pushAll presents the current document to every target; must hold mu.
// It reports whether the detached target failed its liveness check.
func (c *Coordinator) pushAll() (droppedDetached bool) {
	doc := c.document

	if c.embedded != nil {
		c.present(c.embedded, doc)
	}

	if c.detached != nil {
		if c.detached.Alive() {
			c.present(c.detached, doc)
		} else {
			c.recordPresent(Detached, "skipped")
			c.dropDetached("liveness check failed")
			droppedDetached = true
		}
	}

	for _, m := range c.mirrors {
		if m.Alive() {
			c.present(m, doc)
		} else {
			c.recordPresent(m.Kind(), "skipped")
		}
	}
	return droppedDetached
}

// present writes one document to one target; must hold mu
func (c *Coordinator) present(t Target, doc string) {
	if err := t.Present(doc); err != nil {
		c.logger.Warn("Present failed",
			zap.String("kind", t.Kind().String()),
			zap.Uint64("revision", c.revision),
			zap.Error(err),
		)
		c.recordPresent(t.Kind(), "error")
		return
	}
	c.recordPresent(t.Kind(), "ok")
}

// dropDetached forgets the detached target; must hold mu
func (c *Coordinator) dropDetached(reason string) {
	c.detached = nil
	if c.metrics != nil {
		c.metrics.DecDetachedActive()
	}
	c.logger.Debug("Detached preview dropped", zap.String("reason", reason))
}

// compose rebuilds the document from the store; must hold mu
func (c *Coordinator) compose() string {
	start := time.Now()
	doc := compose.Snapshot(c.store.Snapshot())
	c.revision++
	if c.metrics != nil {
		c.metrics.RecordComposition(time.Since(start))
	}
	return doc
}

func (c *Coordinator) recordPresent(kind Kind, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordPresent(kind.String(), outcome)
	}
}
