// Package testutil provides fakes shared by package tests.
package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/codecanvas/internal/domain/preview"
	"github.com/GriffinCanCode/codecanvas/internal/shared/id"
)

// RecordingTarget is a preview target that keeps every presented document
type RecordingTarget struct {
	mu        sync.Mutex
	kind      preview.Kind
	alive     bool
	documents []string
	done      chan struct{}
	closeOnce sync.Once
}

// NewRecordingTarget returns a live target of the given kind
func NewRecordingTarget(kind preview.Kind) *RecordingTarget {
	return &RecordingTarget{kind: kind, alive: true, done: make(chan struct{})}
}

// Kind implements preview.Target
func (r *RecordingTarget) Kind() preview.Kind { return r.kind }

// Alive implements preview.Target
func (r *RecordingTarget) Alive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alive
}

// Present implements preview.Target
func (r *RecordingTarget) Present(document string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.alive {
		r.documents = append(r.documents, document)
	}
	return nil
}

// Done implements preview.DetachedTarget
func (r *RecordingTarget) Done() <-chan struct{} { return r.done }

// Close implements preview.DetachedTarget
func (r *RecordingTarget) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.alive = false
		r.mu.Unlock()
		close(r.done)
	})
}

// Documents returns a copy of everything presented so far
func (r *RecordingTarget) Documents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.documents...)
}

// Last returns the most recent document, or ""
func (r *RecordingTarget) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.documents) == 0 {
		return ""
	}
	return r.documents[len(r.documents)-1]
}

// MockTargetFactory is a mock implementation of workspace.TargetFactory
type MockTargetFactory struct {
	mock.Mock

	mu       sync.Mutex
	embedded map[id.WorkspaceID]*RecordingTarget
	detached map[id.WorkspaceID][]*RecordingTarget
}

// Embedded mocks the Embedded method
func (m *MockTargetFactory) Embedded(ws id.WorkspaceID) preview.Target {
	args := m.Called(ws)
	if fn, ok := args.Get(0).(func(id.WorkspaceID) preview.Target); ok {
		return fn(ws)
	}
	return args.Get(0).(preview.Target)
}

// Opener mocks the Opener method
func (m *MockTargetFactory) Opener(ws id.WorkspaceID) preview.Opener {
	args := m.Called(ws)
	if fn, ok := args.Get(0).(func(id.WorkspaceID) preview.Opener); ok {
		return fn(ws)
	}
	return args.Get(0).(preview.Opener)
}

// Release mocks the Release method
func (m *MockTargetFactory) Release(ws id.WorkspaceID) {
	m.Called(ws)
}

// EmbeddedFor returns the recording target handed out for ws
func (m *MockTargetFactory) EmbeddedFor(ws id.WorkspaceID) *RecordingTarget {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedded[ws]
}

// DetachedFor returns the detached targets opened for ws, oldest first
func (m *MockTargetFactory) DetachedFor(ws id.WorkspaceID) []*RecordingTarget {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*RecordingTarget(nil), m.detached[ws]...)
}

// NewMockTargetFactory creates a factory whose default behavior hands out
// recording targets
func NewMockTargetFactory(t *testing.T) *MockTargetFactory {
	t.Helper()
	m := &MockTargetFactory{
		embedded: make(map[id.WorkspaceID]*RecordingTarget),
		detached: make(map[id.WorkspaceID][]*RecordingTarget),
	}

	m.On("Embedded", mock.Anything).
		Return(func(ws id.WorkspaceID) preview.Target {
			target := NewRecordingTarget(preview.Embedded)
			m.mu.Lock()
			m.embedded[ws] = target
			m.mu.Unlock()
			return target
		}).
		Maybe()

	m.On("Opener", mock.Anything).
		Return(func(ws id.WorkspaceID) preview.Opener {
			return preview.OpenerFunc(func() (preview.DetachedTarget, error) {
				target := NewRecordingTarget(preview.Detached)
				m.mu.Lock()
				m.detached[ws] = append(m.detached[ws], target)
				m.mu.Unlock()
				return target, nil
			})
		}).
		Maybe()

	m.On("Release", mock.Anything).Return().Maybe()

	return m
}
