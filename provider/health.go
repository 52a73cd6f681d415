package provider

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Capability is one row of the health monitor's matrix. It is mutated only
// by the monitor and read by the orchestrator at dispatch time.
type Capability struct {
	Name          string    `json:"name"`
	Available     bool      `json:"available"`
	LastError     string    `json:"last_error,omitempty"`
	LastCheckedAt time.Time `json:"last_checked_at"`
}

// CapabilityMatrix maps adapter name to its current capability.
type CapabilityMatrix map[string]Capability

// Available reports whether the named adapter is usable.
func (m CapabilityMatrix) Available(name string) bool {
	return m[name].Available
}

// HealthMonitor probes adapters and caches the capability matrix with a TTL.
// Concurrent checks coalesce into a single in-flight refresh, so two
// simultaneous requests never trigger duplicate probe calls.
type HealthMonitor struct {
	adapters     []Adapter
	ttl          time.Duration
	probeTimeout time.Duration
	log          zerolog.Logger

	mu        sync.Mutex
	cache     CapabilityMatrix
	checkedAt time.Time
	inflight  chan struct{} // non-nil while a refresh is running
}

// HealthOption configures a HealthMonitor.
type HealthOption func(*HealthMonitor)

// WithTTL sets how long a capability matrix stays fresh.
func WithTTL(ttl time.Duration) HealthOption {
	return func(m *HealthMonitor) { m.ttl = ttl }
}

// WithProbeTimeout bounds each individual probe call.
func WithProbeTimeout(d time.Duration) HealthOption {
	return func(m *HealthMonitor) { m.probeTimeout = d }
}

// WithHealthLogger sets the monitor's logger.
func WithHealthLogger(log zerolog.Logger) HealthOption {
	return func(m *HealthMonitor) { m.log = log }
}

// NewHealthMonitor creates a monitor over the given adapters.
func NewHealthMonitor(adapters []Adapter, opts ...HealthOption) *HealthMonitor {
	m := &HealthMonitor{
		adapters:     adapters,
		ttl:          60 * time.Second,
		probeTimeout: 10 * time.Second,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Check returns the capability matrix, refreshing it if older than the TTL.
// The returned map is a copy; callers may read it freely.
func (m *HealthMonitor) Check(ctx context.Context) CapabilityMatrix {
	m.mu.Lock()
	if m.cache != nil && time.Since(m.checkedAt) < m.ttl {
		snapshot := m.snapshotLocked()
		m.mu.Unlock()
		return snapshot
	}

	if m.inflight != nil {
		// Another goroutine is already refreshing; wait for it.
		done := m.inflight
		m.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		m.mu.Lock()
		snapshot := m.snapshotLocked()
		m.mu.Unlock()
		return snapshot
	}

	done := make(chan struct{})
	m.inflight = done
	m.mu.Unlock()

	matrix := m.probeAll(ctx)

	m.mu.Lock()
	m.cache = matrix
	m.checkedAt = time.Now()
	m.inflight = nil
	close(done)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()
	return snapshot
}

// Matrix returns the cached matrix without refreshing. It may be empty if
// Check has never run.
func (m *HealthMonitor) Matrix() CapabilityMatrix {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *HealthMonitor) snapshotLocked() CapabilityMatrix {
	snapshot := make(CapabilityMatrix, len(m.cache))
	for name, cap := range m.cache {
		snapshot[name] = cap
	}
	return snapshot
}

// probeAll checks every adapter concurrently. Unconfigured adapters are
// reported unavailable without any network call.
func (m *HealthMonitor) probeAll(ctx context.Context) CapabilityMatrix {
	matrix := make(CapabilityMatrix, len(m.adapters))
	results := make([]Capability, len(m.adapters))

	var wg sync.WaitGroup
	for i, adapter := range m.adapters {
		wg.Add(1)
		go func(idx int, a Adapter) {
			defer wg.Done()
			results[idx] = m.probeOne(ctx, a)
		}(i, adapter)
	}
	wg.Wait()

	for _, cap := range results {
		matrix[cap.Name] = cap
	}
	return matrix
}

func (m *HealthMonitor) probeOne(ctx context.Context, a Adapter) Capability {
	cap := Capability{Name: a.Name(), LastCheckedAt: time.Now()}

	if !a.Configured() {
		cap.LastError = "credential not configured"
		return cap
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	if err := a.Probe(probeCtx); err != nil {
		// The kind is enough for operators; raw provider text may carry
		// configuration details and is kept out of the matrix.
		cap.LastError = string(KindOf(err))
		m.log.Warn().Str("adapter", a.Name()).Str("kind", cap.LastError).Msg("health probe failed")
		return cap
	}

	cap.Available = true
	return cap
}
