package utils

import (
	"context"
	"sync"
	"time"
)

// Pinger is anything the health monitor can probe.
type Pinger func(ctx context.Context) error

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Services  map[string]bool `json:"services"`
	CheckedAt time.Time       `json:"checkedAt"`
}

// Healthy reports whether every probed service answered.
func (h HealthStatus) Healthy() bool {
	for _, ok := range h.Services {
		if !ok {
			return false
		}
	}
	return true
}

// HealthMonitor keeps the latest probe results in memory.
type HealthMonitor struct {
	pingers map[string]Pinger

	mu      sync.RWMutex
	current HealthStatus
}

// NewHealthMonitor creates a monitor over the named pingers.
func NewHealthMonitor(pingers map[string]Pinger) *HealthMonitor {
	return &HealthMonitor{pingers: pingers}
}

// Status returns latest stored health snapshot.
func (m *HealthMonitor) Status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Check probes every service once and stores the result.
func (m *HealthMonitor) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Services: make(map[string]bool, len(m.pingers)), CheckedAt: time.Now()}
	for name, ping := range m.pingers {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		status.Services[name] = ping(pctx) == nil
		cancel()
	}

	m.mu.Lock()
	m.current = status
	m.mu.Unlock()
	return status
}

// Run performs periodic health checks until ctx is done.
func (m *HealthMonitor) Run(ctx context.Context, every time.Duration) {
	m.Check(ctx)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
