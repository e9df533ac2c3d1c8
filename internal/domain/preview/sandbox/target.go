package sandbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/codecanvas/internal/domain/preview"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/resilience"
)

// Snapshot is the observable state of the headless surface after the last
// present
type Snapshot struct {
	HTML      string        `json:"html"`
	Title     string        `json:"title"`
	Console   []LogEntry    `json:"console"`
	Errors    []ScriptError `json:"errors"`
	Scripts   int           `json:"scripts"`
	TimedOut  bool          `json:"timed_out"`
	Presents  uint64        `json:"presents"`
	Duration  time.Duration `json:"duration_ns"`
	Suspended bool          `json:"suspended"`
}

// Target is a headless render target backed by a dedicated runtime.
//
// A breaker counts execution timeouts; once it opens the target reports
// itself dead and the coordinator skips it until the breaker lets a probe
// through.
type Target struct {
	mu       sync.Mutex
	runtime  *Runtime
	breaker  *resilience.Breaker
	last     *Result
	presents uint64
	closed   bool

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewTarget creates a headless target. settings configures the breaker;
// IsFailure is always restricted to execution timeouts.
func NewTarget(config Config, settings resilience.Settings) (*Target, error) {
	rt, err := New(config)
	if err != nil {
		return nil, err
	}

	t := &Target{runtime: rt, logger: zap.NewNop()}

	onChange := settings.OnStateChange
	settings.IsFailure = func(err error) bool {
		return errors.Is(err, ErrExecutionTimeout)
	}
	settings.OnStateChange = func(name string, from, to resilience.State) {
		t.logger.Info("Headless breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		if onChange != nil {
			onChange(name, from, to)
		}
	}
	t.breaker = resilience.New("headless", settings)

	return t, nil
}

// WithLogger sets the logger
func (t *Target) WithLogger(logger *zap.Logger) *Target {
	if logger != nil {
		t.logger = logger
	}
	return t
}

// WithMetrics adds metrics tracking
func (t *Target) WithMetrics(metrics *monitoring.Metrics) *Target {
	t.metrics = metrics
	return t
}

// Kind implements preview.Target
func (t *Target) Kind() preview.Kind {
	return preview.Headless
}

// Alive implements preview.Target
func (t *Target) Alive() bool {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()

	return !closed && t.breaker.Allow()
}

// Present renders document from scratch. Script errors are captured in
// the snapshot; only timeouts and breaker rejections are returned.
func (t *Target) Present(document string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	return t.breaker.Do(func() error {
		result, err := t.runtime.Render(context.Background(), document)
		if result != nil {
			t.last = result
			t.presents++
			t.recordErrors(result)
		}
		return err
	})
}

// Snapshot returns the state left by the last present
func (t *Target) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		Presents:  t.presents,
		Suspended: t.breaker.State() == resilience.StateOpen,
	}
	if t.last == nil {
		return snap
	}

	snap.HTML = t.last.HTML
	snap.Title = t.last.Title
	snap.Console = append([]LogEntry(nil), t.last.Console...)
	snap.Errors = append([]ScriptError(nil), t.last.Errors...)
	snap.Scripts = t.last.Scripts
	snap.TimedOut = t.last.TimedOut
	snap.Duration = t.last.Duration
	return snap
}

// Eval evaluates expr against the state left by the last present
func (t *Target) Eval(ctx context.Context, expr string) (*Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrRuntimeClosed
	}
	return t.runtime.Eval(ctx, expr)
}

// Close releases the runtime. Later presents are no-ops.
func (t *Target) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.runtime.Close()
}

func (t *Target) recordErrors(result *Result) {
	if len(result.Errors) == 0 {
		return
	}
	t.logger.Debug("Headless render reported script errors",
		zap.Int("count", len(result.Errors)),
		zap.Bool("timed_out", result.TimedOut),
	)
	if t.metrics == nil {
		return
	}
	for range result.Errors {
		t.metrics.RecordScriptError()
	}
}
