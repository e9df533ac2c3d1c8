package tracing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/codecanvas/internal/shared/id"
)

// Propagation headers
const (
	TraceHeader = "X-Trace-ID"
	SpanHeader  = "X-Span-ID"
)

// TraceID represents a unique trace identifier
type TraceID string

// SpanID represents a unique span identifier
type SpanID string

// Span represents a single operation in a trace
type Span struct {
	TraceID    TraceID
	SpanID     SpanID
	ParentID   SpanID
	Name       string
	Service    string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Tags       map[string]string
	Error      error
	StatusCode int
}

// Tracer collects finished spans and logs them
type Tracer struct {
	service string
	logger  *zap.Logger
	spans   chan *Span

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
}

// New creates a tracer and starts its collector
func New(service string, logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracer{
		service: service,
		logger:  logger,
		spans:   make(chan *Span, 1000),
		done:    make(chan struct{}),
	}

	go t.collectSpans()

	return t
}

// StartSpan creates a span, continuing the trace carried by ctx if any
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = TraceID(id.NewRequestID())
	}

	span := &Span{
		TraceID:   traceID,
		SpanID:    SpanID(id.NewRequestID()),
		ParentID:  GetSpanID(ctx),
		Name:      name,
		Service:   t.service,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
	}

	return span, WithTrace(ctx, traceID, span.SpanID)
}

// Finish marks the span as complete
func (s *Span) Finish() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// SetError records an error in the span
func (s *Span) SetError(err error) {
	s.Error = err
	if s.StatusCode < 400 {
		s.StatusCode = 500
	}
}

// SetStatus sets the HTTP status code
func (s *Span) SetStatus(code int) {
	s.StatusCode = code
}

func (t *Tracer) collectSpans() {
	defer close(t.done)
	for span := range t.spans {
		t.processSpan(span)
	}
}

func (t *Tracer) processSpan(span *Span) {
	fields := []zap.Field{
		zap.String("trace_id", string(span.TraceID)),
		zap.String("span_id", string(span.SpanID)),
		zap.String("operation", span.Name),
		zap.Duration("duration", span.Duration),
		zap.String("service", span.Service),
	}
	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(span.ParentID)))
	}
	if span.StatusCode != 0 {
		fields = append(fields, zap.Int("status", span.StatusCode))
	}
	for k, v := range span.Tags {
		fields = append(fields, zap.String(k, v))
	}

	if span.Error != nil {
		fields = append(fields, zap.Error(span.Error))
		t.logger.Error("span completed with error", fields...)
		return
	}
	t.logger.Debug("span completed", fields...)
}

// Submit sends a span to the collector. Spans submitted after Close or
// while the buffer is full are dropped.
func (t *Tracer) Submit(span *Span) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return
	}
	select {
	case t.spans <- span:
	default:
		t.logger.Warn("span buffer full, dropping span",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("span_id", string(span.SpanID)),
		)
	}
}

// Close stops the collector after logging buffered spans
func (t *Tracer) Close() {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		close(t.spans)
		t.mu.Unlock()
		<-t.done
	})
}

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// WithTrace returns ctx carrying the trace and span ids. Empty ids are
// not stored.
func WithTrace(ctx context.Context, traceID TraceID, spanID SpanID) context.Context {
	if traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, traceID)
	}
	if spanID != "" {
		ctx = context.WithValue(ctx, spanIDKey, spanID)
	}
	return ctx
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) TraceID {
	if traceID, ok := ctx.Value(traceIDKey).(TraceID); ok {
		return traceID
	}
	return ""
}

// GetSpanID retrieves the span ID from context
func GetSpanID(ctx context.Context) SpanID {
	if spanID, ok := ctx.Value(spanIDKey).(SpanID); ok {
		return spanID
	}
	return ""
}

// FormatTrace returns a formatted trace string for logging
func FormatTrace(traceID TraceID, spanID SpanID) string {
	return fmt.Sprintf("[trace:%s span:%s]", traceID, spanID)
}
