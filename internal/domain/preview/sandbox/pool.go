package sandbox

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// latencyWindow is how many recent renders Stats summarizes
const latencyWindow = 256

var (
	ErrPoolClosed = errors.New("sandbox pool is closed")
	ErrTimeout    = errors.New("sandbox acquisition timeout")
)

// Pool manages reusable runtimes for one-off renders
type Pool struct {
	config   Config
	runtimes chan *Runtime
	size     int
	wait     time.Duration
	mu       sync.RWMutex
	closed   bool

	latencyMu sync.Mutex
	latencies []float64 // Ring of recent render times in ms
	next      int
	renders   uint64
}

// PoolStats describes pool occupancy
type PoolStats struct {
	Size      int     `json:"size"`
	Available int     `json:"available"`
	InUse     int     `json:"in_use"`
	Closed    bool    `json:"closed"`
	Renders   uint64  `json:"renders"`
	MeanMs    float64 `json:"latency_mean_ms"`
	P50Ms     float64 `json:"latency_p50_ms"`
	P95Ms     float64 `json:"latency_p95_ms"`
}

// NewPool creates a pool of size runtimes. wait bounds how long Acquire
// blocks when every runtime is busy.
func NewPool(config Config, size int, wait time.Duration) (*Pool, error) {
	if size <= 0 {
		size = 4
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}

	pool := &Pool{
		config:   config,
		runtimes: make(chan *Runtime, size),
		size:     size,
		wait:     wait,
	}

	for i := 0; i < size; i++ {
		rt, err := New(config)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.runtimes <- rt
	}

	return pool, nil
}

// Acquire takes a runtime from the pool
func (p *Pool) Acquire(ctx context.Context) (*Runtime, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	timer := time.NewTimer(p.wait)
	defer timer.Stop()

	select {
	case rt := <-p.runtimes:
		return rt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// Release returns a runtime to the pool. Render resets state on entry, so
// nothing is cleared here.
func (p *Pool) Release(rt *Runtime) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		rt.Close()
		return
	}

	select {
	case p.runtimes <- rt:
	default:
		rt.Close()
	}
}

// Render renders document on a pooled runtime
func (p *Pool) Render(ctx context.Context, document string) (*Result, error) {
	rt, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(rt)

	start := time.Now()
	result, err := rt.Render(ctx, document)
	p.observe(time.Since(start))
	return result, err
}

func (p *Pool) observe(d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)

	p.latencyMu.Lock()
	defer p.latencyMu.Unlock()

	p.renders++
	if len(p.latencies) < latencyWindow {
		p.latencies = append(p.latencies, ms)
		return
	}
	p.latencies[p.next] = ms
	p.next = (p.next + 1) % latencyWindow
}

// Close closes the pool and all idle runtimes
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	close(p.runtimes)
	for rt := range p.runtimes {
		rt.Close()
	}
	return nil
}

// Stats returns pool statistics
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	available := len(p.runtimes)
	stats := PoolStats{
		Size:      p.size,
		Available: available,
		InUse:     p.size - available,
		Closed:    p.closed,
	}

	p.latencyMu.Lock()
	stats.Renders = p.renders
	sorted := append([]float64(nil), p.latencies...)
	p.latencyMu.Unlock()

	if len(sorted) > 0 {
		sort.Float64s(sorted)
		stats.MeanMs = stat.Mean(sorted, nil)
		stats.P50Ms = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		stats.P95Ms = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	}
	return stats
}
