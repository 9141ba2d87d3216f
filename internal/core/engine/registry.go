package engine

import (
	"sort"
	"sync"

	"github.com/personalens/personalens/internal/core"
)

// ServiceSettings bundles the limiter configuration for one service.
type ServiceSettings struct {
	Limits     Limits
	Backoff    BackoffPolicy
	MaxRetries int
}

// Registry maps service identities to their limiters. It is constructed
// once at startup and passed explicitly to callers; services not
// configured up front are created on first use with defaults.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*ServiceLimiter
	settings map[string]ServiceSettings
}

// NewRegistry builds a registry with per-service settings. Limiters for
// configured services are created eagerly so Stats covers them before
// first use.
func NewRegistry(settings map[string]ServiceSettings) *Registry {
	r := &Registry{
		limiters: make(map[string]*ServiceLimiter, len(settings)),
		settings: make(map[string]ServiceSettings, len(settings)),
	}
	for service, s := range settings {
		r.settings[service] = s
		r.limiters[service] = NewServiceLimiter(service, s.Limits, s.Backoff)
	}
	return r
}

// Limiter returns the limiter for a service, creating one with defaults
// when the service was not configured.
func (r *Registry) Limiter(service string) *ServiceLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter, ok := r.limiters[service]; ok {
		return limiter
	}
	limiter := NewServiceLimiter(service, DefaultLimits, DefaultBackoff)
	r.limiters[service] = limiter
	return limiter
}

// MaxRetries returns the configured retry bound for a service, or the
// fallback when none was configured.
func (r *Registry) MaxRetries(service string, fallback int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.settings[service]; ok {
		return s.MaxRetries
	}
	return fallback
}

// Services lists known service identities in stable order.
func (r *Registry) Services() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.limiters))
	for name := range r.limiters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats snapshots every known service.
func (r *Registry) Stats() []Stats {
	stats := make([]Stats, 0)
	for _, service := range r.Services() {
		stats = append(stats, r.Limiter(service).Stats())
	}
	return stats
}

// Snapshots exports all limiter state for persistence.
func (r *Registry) Snapshots() []core.LimiterSnapshot {
	snapshots := make([]core.LimiterSnapshot, 0)
	for _, service := range r.Services() {
		snapshots = append(snapshots, r.Limiter(service).Snapshot())
	}
	return snapshots
}

// Restore loads persisted snapshots into their limiters.
func (r *Registry) Restore(snapshots []core.LimiterSnapshot) {
	for _, snapshot := range snapshots {
		if snapshot.Service == "" {
			continue
		}
		r.Limiter(snapshot.Service).Restore(snapshot)
	}
}
