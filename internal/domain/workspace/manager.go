package workspace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/codecanvas/internal/domain/buffer"
	"github.com/GriffinCanCode/codecanvas/internal/domain/preview"
	"github.com/GriffinCanCode/codecanvas/internal/domain/preview/sandbox"
	"github.com/GriffinCanCode/codecanvas/internal/domain/starter"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/codecanvas/internal/shared/id"
)

var (
	ErrNotFound          = errors.New("workspace not found")
	ErrTooManyWorkspaces = errors.New("workspace limit reached")
)

// TargetFactory supplies the socket-backed surfaces of a workspace
type TargetFactory interface {
	// Embedded returns the target for the editor page's preview frame
	Embedded(ws id.WorkspaceID) preview.Target
	// Opener returns the opener for detached preview windows
	Opener(ws id.WorkspaceID) preview.Opener
	// Release drops every connection of a deleted workspace
	Release(ws id.WorkspaceID)
}

// Config bounds the manager
type Config struct {
	MaxWorkspaces int           // 0 means unlimited
	IdleTTL       time.Duration // Unattached workspaces older than this are reaped
	ReapInterval  time.Duration
}

type headlessConfig struct {
	sandbox  sandbox.Config
	settings resilience.Settings
	build    func(sandbox.Config, resilience.Settings) (*sandbox.Target, error)
}

// Manager creates, tracks and reaps workspaces
type Manager struct {
	mu         sync.RWMutex
	workspaces map[id.WorkspaceID]*Workspace // Protected by mu

	templates *starter.Registry
	factory   TargetFactory
	config    Config
	headless  *headlessConfig

	logger  *zap.Logger
	metrics *monitoring.Metrics
	now     func() time.Time
}

// NewManager creates a workspace manager
func NewManager(templates *starter.Registry, factory TargetFactory, config Config) *Manager {
	if config.ReapInterval <= 0 {
		config.ReapInterval = time.Minute
	}
	return &Manager{
		workspaces: make(map[id.WorkspaceID]*Workspace),
		templates:  templates,
		factory:    factory,
		config:     config,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
}

// WithLogger sets the logger
func (m *Manager) WithLogger(logger *zap.Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// WithHeadless gives every new workspace a headless mirror target
func (m *Manager) WithHeadless(config sandbox.Config, settings resilience.Settings) *Manager {
	m.headless = &headlessConfig{sandbox: config, settings: settings, build: sandbox.NewTarget}
	return m
}

// Create makes a workspace seeded from the named template ("" for the
// default). The template contents become the baselines.
func (m *Manager) Create(template string) (*Workspace, error) {
	tpl, err := m.templates.Resolve(template)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	count := len(m.workspaces)
	m.mu.RUnlock()
	if m.config.MaxWorkspaces > 0 && count >= m.config.MaxWorkspaces {
		return nil, ErrTooManyWorkspaces
	}

	wid := id.NewWorkspaceID()
	logger := m.logger.With(zap.String("workspace", wid.String()))

	coord := preview.NewCoordinator(
		buffer.New(tpl.Snapshot()),
		m.factory.Embedded(wid),
		m.factory.Opener(wid),
	).WithLogger(logger).WithMetrics(m.metrics)

	now := m.now()
	ws := &Workspace{
		ID:          wid,
		Template:    tpl.Name,
		CreatedAt:   now,
		coordinator: coord,
		ui:          DefaultUIState(),
		lastSeen:    now,
	}

	if m.headless != nil {
		target, err := m.headless.build(m.headless.sandbox, m.headless.settings)
		if err != nil {
			coord.Close()
			m.factory.Release(wid)
			return nil, fmt.Errorf("headless target: %w", err)
		}
		target.WithLogger(logger).WithMetrics(m.metrics)
		ws.headless = target
		coord.AddMirror(target)
	}

	m.mu.Lock()
	if m.config.MaxWorkspaces > 0 && len(m.workspaces) >= m.config.MaxWorkspaces {
		m.mu.Unlock()
		ws.close()
		m.factory.Release(wid)
		return nil, ErrTooManyWorkspaces
	}
	m.workspaces[wid] = ws
	active := len(m.workspaces)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncWorkspacesTotal()
		m.metrics.SetWorkspacesActive(active)
	}
	logger.Info("Workspace created", zap.String("template", tpl.Name))

	return ws, nil
}

// Get retrieves a workspace by ID
func (m *Manager) Get(wid id.WorkspaceID) (*Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ws, ok := m.workspaces[wid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, wid)
	}
	return ws, nil
}

// Attach records a socket connecting to the workspace
func (m *Manager) Attach(wid id.WorkspaceID) (*Workspace, error) {
	ws, err := m.Get(wid)
	if err != nil {
		return nil, err
	}
	ws.attach(m.now())
	return ws, nil
}

// Detach records a socket leaving the workspace
func (m *Manager) Detach(wid id.WorkspaceID) {
	if ws, err := m.Get(wid); err == nil {
		ws.detach(m.now())
	}
}

// Delete closes and forgets a workspace
func (m *Manager) Delete(wid id.WorkspaceID) error {
	m.mu.Lock()
	ws, ok := m.workspaces[wid]
	if ok {
		delete(m.workspaces, wid)
	}
	active := len(m.workspaces)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, wid)
	}

	ws.close()
	m.factory.Release(wid)

	if m.metrics != nil {
		m.metrics.SetWorkspacesActive(active)
	}
	m.logger.Info("Workspace deleted", zap.String("workspace", wid.String()))
	return nil
}

// List returns summaries of all workspaces, oldest first
func (m *Manager) List() []Info {
	m.mu.RLock()
	all := make([]*Workspace, 0, len(m.workspaces))
	for _, ws := range m.workspaces {
		all = append(all, ws)
	}
	m.mu.RUnlock()

	// ULIDs sort by creation time
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	out := make([]Info, len(all))
	for i, ws := range all {
		out[i] = ws.Info()
	}
	return out
}

// Count returns the number of live workspaces
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workspaces)
}

// Reap deletes workspaces with no attached sockets for longer than IdleTTL
func (m *Manager) Reap() int {
	if m.config.IdleTTL <= 0 {
		return 0
	}

	now := m.now()
	var idle []id.WorkspaceID

	m.mu.RLock()
	for wid, ws := range m.workspaces {
		if d, ok := ws.idleSince(now); ok && d > m.config.IdleTTL {
			idle = append(idle, wid)
		}
	}
	m.mu.RUnlock()

	reaped := 0
	for _, wid := range idle {
		if err := m.Delete(wid); err == nil {
			reaped++
		}
	}
	if reaped > 0 {
		m.logger.Info("Reaped idle workspaces", zap.Int("count", reaped))
	}
	return reaped
}

// Run reaps idle workspaces until ctx is done
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Reap()
		}
	}
}

// Close deletes every workspace
func (m *Manager) Close() {
	m.mu.RLock()
	ids := make([]id.WorkspaceID, 0, len(m.workspaces))
	for wid := range m.workspaces {
		ids = append(ids, wid)
	}
	m.mu.RUnlock()

	for _, wid := range ids {
		_ = m.Delete(wid)
	}
}
