package engine

import (
	"math"
	"sync"
	"time"

	"github.com/personalens/personalens/internal/core"
)

// Granularity identifies one sliding window.
type Granularity int

const (
	GranularityMinute Granularity = iota
	GranularityHour
	GranularityDay

	granularityCount = 3
)

// Duration returns the window's trailing duration.
func (g Granularity) Duration() time.Duration {
	switch g {
	case GranularityMinute:
		return time.Minute
	case GranularityHour:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

func (g Granularity) String() string {
	switch g {
	case GranularityMinute:
		return "minute"
	case GranularityHour:
		return "hour"
	default:
		return "day"
	}
}

// Granularities lists the windows in most-to-least restrictive order.
var Granularities = []Granularity{GranularityMinute, GranularityHour, GranularityDay}

// Limits holds per-window request ceilings for one service.
type Limits struct {
	Minute int
	Hour   int
	Day    int
}

// Ceiling returns the configured ceiling for a window.
func (l Limits) Ceiling(g Granularity) int {
	switch g {
	case GranularityMinute:
		return l.Minute
	case GranularityHour:
		return l.Hour
	default:
		return l.Day
	}
}

// BackoffPolicy controls the adaptive retry delay.
type BackoffPolicy struct {
	Base       time.Duration
	Multiplier float64
	Max        time.Duration
}

// DefaultLimits and DefaultBackoff apply to services without explicit
// configuration.
var (
	DefaultLimits  = Limits{Minute: 60, Hour: 1000, Day: 10000}
	DefaultBackoff = BackoffPolicy{Base: time.Second, Multiplier: 2.0, Max: 5 * time.Minute}
)

// windowSlack bounds stored timestamps beyond the ceiling so a caller
// that records without checking cannot grow a window without bound.
const windowSlack = 32

// WindowStats is a read-only view of one window.
type WindowStats struct {
	Granularity string `json:"granularity"`
	Used        int    `json:"used"`
	Limit       int    `json:"limit"`
	Remaining   int    `json:"remaining"`
}

// Stats is a point-in-time snapshot of a service's limiter state. It is
// derived data; mutating it has no effect on the limiter.
type Stats struct {
	Service             string        `json:"service"`
	Windows             []WindowStats `json:"windows"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	BackoffWait         time.Duration `json:"backoff_wait"`
	TakenAt             time.Time     `json:"taken_at"`
}

// ServiceLimiter enforces sliding-window rate limits and tracks adaptive
// backoff state for one service identity. All methods are safe for
// concurrent use; window mutation and admission checks run under a
// single per-service mutex.
type ServiceLimiter struct {
	service string
	limits  Limits
	policy  BackoffPolicy

	mu            sync.Mutex
	windows       [granularityCount][]time.Time
	failures      int
	lastFailureAt time.Time

	clock func() time.Time
}

// NewServiceLimiter builds a limiter for a service. Non-positive limit
// or policy fields fall back to defaults.
func NewServiceLimiter(service string, limits Limits, policy BackoffPolicy) *ServiceLimiter {
	if limits.Minute <= 0 {
		limits.Minute = DefaultLimits.Minute
	}
	if limits.Hour <= 0 {
		limits.Hour = DefaultLimits.Hour
	}
	if limits.Day <= 0 {
		limits.Day = DefaultLimits.Day
	}
	if policy.Base <= 0 {
		policy.Base = DefaultBackoff.Base
	}
	if policy.Multiplier <= 1 {
		policy.Multiplier = DefaultBackoff.Multiplier
	}
	if policy.Max <= 0 {
		policy.Max = DefaultBackoff.Max
	}

	return &ServiceLimiter{
		service: service,
		limits:  limits,
		policy:  policy,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source. Test hook.
func (l *ServiceLimiter) SetClock(clock func() time.Time) {
	if clock == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = clock
}

// Service returns the limiter's service identity.
func (l *ServiceLimiter) Service() string { return l.service }

// Allow answers "may I call now, and if not, for how long must I wait".
// Admission requires every window to be strictly under its ceiling. The
// returned wait is the time until the most restrictive saturated window
// regains capacity, i.e. the longest of the per-window waits, since all
// windows must have room before a call is admitted.
func (l *ServiceLimiter) Allow() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.evictLocked(now)

	var wait time.Duration
	saturated := false
	for _, g := range Granularities {
		window := l.windows[g]
		if len(window) < l.limits.Ceiling(g) {
			continue
		}
		saturated = true
		until := window[0].Add(g.Duration()).Sub(now)
		if until > wait {
			wait = until
		}
	}

	if saturated {
		if wait < 0 {
			wait = 0
		}
		return false, wait
	}
	return true, 0
}

// RecordRequest appends the current timestamp to every window. It is
// called once per dispatched request, whether or not the caller checked
// Allow first; the defensive cap keeps unchecked callers from growing a
// window past its ceiling plus slack.
func (l *ServiceLimiter) RecordRequest() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.evictLocked(now)

	for _, g := range Granularities {
		window := append(l.windows[g], now)
		if cap := l.limits.Ceiling(g) + windowSlack; len(window) > cap {
			window = window[len(window)-cap:]
		}
		l.windows[g] = window
	}
}

// RecordSuccess resets the consecutive-failure counter.
func (l *ServiceLimiter) RecordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = 0
}

// RecordFailure increments the consecutive-failure counter and stamps
// the failure time.
func (l *ServiceLimiter) RecordFailure() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures++
	l.lastFailureAt = l.clock()
}

// BackoffWait returns the adaptive retry delay: zero at zero consecutive
// failures, then base * multiplier^(failures-1), capped at the policy
// maximum. The function is monotonically non-decreasing in the failure
// counter.
func (l *ServiceLimiter) BackoffWait() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backoffWaitLocked()
}

func (l *ServiceLimiter) backoffWaitLocked() time.Duration {
	if l.failures <= 0 {
		return 0
	}
	wait := float64(l.policy.Base) * math.Pow(l.policy.Multiplier, float64(l.failures-1))
	if wait > float64(l.policy.Max) {
		return l.policy.Max
	}
	return time.Duration(wait)
}

// Stats returns a read-only snapshot of window usage and backoff state.
// Its only side effect on the limiter is lazy eviction of stale entries.
func (l *ServiceLimiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.evictLocked(now)

	stats := Stats{
		Service:             l.service,
		Windows:             make([]WindowStats, 0, granularityCount),
		ConsecutiveFailures: l.failures,
		BackoffWait:         l.backoffWaitLocked(),
		TakenAt:             now,
	}
	for _, g := range Granularities {
		limit := l.limits.Ceiling(g)
		used := len(l.windows[g])
		remaining := limit - used
		if remaining < 0 {
			remaining = 0
		}
		stats.Windows = append(stats.Windows, WindowStats{
			Granularity: g.String(),
			Used:        used,
			Limit:       limit,
			Remaining:   remaining,
		})
	}
	return stats
}

// Snapshot exports the limiter state for persistence.
func (l *ServiceLimiter) Snapshot() core.LimiterSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.evictLocked(now)

	snapshot := core.LimiterSnapshot{
		Service:             l.service,
		Minute:              append([]time.Time(nil), l.windows[GranularityMinute]...),
		Hour:                append([]time.Time(nil), l.windows[GranularityHour]...),
		Day:                 append([]time.Time(nil), l.windows[GranularityDay]...),
		ConsecutiveFailures: l.failures,
		SavedAt:             now,
	}
	if !l.lastFailureAt.IsZero() {
		at := l.lastFailureAt
		snapshot.LastFailureAt = &at
	}
	return snapshot
}

// Restore loads persisted state into the limiter. Timestamps outside
// their window, or in the future, are discarded; restored state is
// advisory and never makes the limiter stricter than its windows imply.
func (l *ServiceLimiter) Restore(snapshot core.LimiterSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	sets := [granularityCount][]time.Time{
		GranularityMinute: snapshot.Minute,
		GranularityHour:   snapshot.Hour,
		GranularityDay:    snapshot.Day,
	}
	for _, g := range Granularities {
		window := make([]time.Time, 0, len(sets[g]))
		for _, ts := range sets[g] {
			if ts.After(now) {
				continue
			}
			if now.Sub(ts) >= g.Duration() {
				continue
			}
			window = append(window, ts)
		}
		l.windows[g] = window
	}

	l.failures = snapshot.ConsecutiveFailures
	if l.failures < 0 {
		l.failures = 0
	}
	if snapshot.LastFailureAt != nil {
		l.lastFailureAt = *snapshot.LastFailureAt
	}
}

// evictLocked drops timestamps that have aged out of their windows.
// Eviction is lazy: it runs only on access, never on a background
// schedule.
func (l *ServiceLimiter) evictLocked(now time.Time) {
	for _, g := range Granularities {
		window := l.windows[g]
		cutoff := now.Add(-g.Duration())
		idx := 0
		for idx < len(window) && !window[idx].After(cutoff) {
			idx++
		}
		if idx > 0 {
			l.windows[g] = window[idx:]
		}
	}
}
