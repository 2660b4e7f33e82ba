package nistvalidator

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks validation metrics using lock-free atomic operations.
// All methods are safe for concurrent use.
type Metrics struct {
	// Validation outcomes
	validationsTotal atomic.Uint64
	validated        atomic.Uint64
	unresolved       atomic.Uint64
	faults           atomic.Uint64

	// Remote call timing (stored as nanoseconds)
	remoteCalls     atomic.Uint64
	remoteTimeTotal atomic.Uint64
	remoteTimeMin   atomic.Uint64
	remoteTimeMax   atomic.Uint64

	// Cache metrics
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64

	// Record counts by severity
	warnTotal  atomic.Uint64
	errorTotal atomic.Uint64
	infoTotal  atomic.Uint64
	suppressed atomic.Uint64

	// Per-resource stats
	resources sync.Map // map[string]*resourceMetrics
}

// resourceMetrics tracks metrics for a single validation profile.
type resourceMetrics struct {
	calls     atomic.Uint64
	totalTime atomic.Uint64 // nanoseconds
	records   atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	// Initialize min to max uint64 so first value becomes the minimum
	m.remoteTimeMin.Store(^uint64(0))
	return m
}

// --- Recording Methods ---

// RecordValidation records one validation request, whatever its outcome.
func (m *Metrics) RecordValidation() {
	m.validationsTotal.Add(1)
}

// RecordValidated records a message checked by the service.
func (m *Metrics) RecordValidated() {
	m.validated.Add(1)
}

// RecordUnresolved records a message no profile applied to.
func (m *Metrics) RecordUnresolved() {
	m.unresolved.Add(1)
}

// RecordFault records a failed remote call.
func (m *Metrics) RecordFault() {
	m.faults.Add(1)
}

// RecordRemoteCall records a completed remote call for resource.
func (m *Metrics) RecordRemoteCall(resource string, duration time.Duration, records int) {
	m.remoteCalls.Add(1)

	ns := uint64(duration.Nanoseconds()) //nolint:gosec // Safe: nanoseconds are always positive for valid durations
	m.remoteTimeTotal.Add(ns)

	// Update min (CAS loop)
	for {
		old := m.remoteTimeMin.Load()
		if ns >= old {
			break
		}
		if m.remoteTimeMin.CompareAndSwap(old, ns) {
			break
		}
	}

	// Update max (CAS loop)
	for {
		old := m.remoteTimeMax.Load()
		if ns <= old {
			break
		}
		if m.remoteTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}

	rm := m.getOrCreateResourceMetrics(resource)
	rm.calls.Add(1)
	rm.totalTime.Add(ns)
	rm.records.Add(uint64(records)) //nolint:gosec // Safe: records is a small positive integer
}

func (m *Metrics) getOrCreateResourceMetrics(name string) *resourceMetrics {
	if v, ok := m.resources.Load(name); ok {
		return v.(*resourceMetrics)
	}
	rm := &resourceMetrics{}
	actual, _ := m.resources.LoadOrStore(name, rm)
	return actual.(*resourceMetrics)
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// RecordSeverity records a surfaced record based on its severity.
func (m *Metrics) RecordSeverity(severity Severity) {
	switch severity {
	case SeverityError:
		m.errorTotal.Add(1)
	case SeverityWarn:
		m.warnTotal.Add(1)
	case SeverityInfo:
		m.infoTotal.Add(1)
	}
}

// RecordSuppressed records n records removed by suppression rules.
func (m *Metrics) RecordSuppressed(n int) {
	if n > 0 {
		m.suppressed.Add(uint64(n))
	}
}

// --- Query Methods ---

// ValidationsTotal returns the total number of validation requests.
func (m *Metrics) ValidationsTotal() uint64 {
	return m.validationsTotal.Load()
}

// Validated returns the number of messages checked by the service.
func (m *Metrics) Validated() uint64 {
	return m.validated.Load()
}

// Unresolved returns the number of messages no profile applied to.
func (m *Metrics) Unresolved() uint64 {
	return m.unresolved.Load()
}

// Faults returns the number of failed remote calls.
func (m *Metrics) Faults() uint64 {
	return m.faults.Load()
}

// RemoteCalls returns the number of completed remote calls.
func (m *Metrics) RemoteCalls() uint64 {
	return m.remoteCalls.Load()
}

// AverageRemoteTime returns the average remote call duration.
func (m *Metrics) AverageRemoteTime() time.Duration {
	total := m.remoteCalls.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.remoteTimeTotal.Load() / total) //nolint:gosec // Safe: nanoseconds within int64 range
}

// MinRemoteTime returns the minimum remote call duration.
func (m *Metrics) MinRemoteTime() time.Duration {
	minVal := m.remoteTimeMin.Load()
	if minVal == ^uint64(0) {
		return 0
	}
	return time.Duration(minVal) //nolint:gosec // Safe: nanoseconds within int64 range
}

// MaxRemoteTime returns the maximum remote call duration.
func (m *Metrics) MaxRemoteTime() time.Duration {
	return time.Duration(m.remoteTimeMax.Load()) //nolint:gosec // Safe: nanoseconds within int64 range
}

// CacheHits returns the total cache hits.
func (m *Metrics) CacheHits() uint64 {
	return m.cacheHits.Load()
}

// CacheMisses returns the total cache misses.
func (m *Metrics) CacheMisses() uint64 {
	return m.cacheMisses.Load()
}

// CacheHitRate returns the cache hit rate (0.0 to 1.0).
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// WarnTotal returns the total WARN records surfaced.
func (m *Metrics) WarnTotal() uint64 {
	return m.warnTotal.Load()
}

// ErrorTotal returns the total ERROR records surfaced.
func (m *Metrics) ErrorTotal() uint64 {
	return m.errorTotal.Load()
}

// InfoTotal returns the total INFO records surfaced.
func (m *Metrics) InfoTotal() uint64 {
	return m.infoTotal.Load()
}

// Suppressed returns the total records removed by suppression rules.
func (m *Metrics) Suppressed() uint64 {
	return m.suppressed.Load()
}

// ResourceStats holds remote call statistics for one profile.
type ResourceStats struct {
	Name      string        `json:"name"`
	Calls     uint64        `json:"calls"`
	TotalTime time.Duration `json:"total_time_ns"`
	AvgTime   time.Duration `json:"avg_time_ns"`
	Records   uint64        `json:"records"`
}

func (rm *resourceMetrics) stats(name string) ResourceStats {
	calls := rm.calls.Load()
	totalTime := rm.totalTime.Load()

	var avgTime time.Duration
	if calls > 0 {
		avgTime = time.Duration(totalTime / calls) //nolint:gosec // Safe: nanoseconds within int64 range
	}
	return ResourceStats{
		Name:      name,
		Calls:     calls,
		TotalTime: time.Duration(totalTime), //nolint:gosec // Safe: nanoseconds within int64 range
		AvgTime:   avgTime,
		Records:   rm.records.Load(),
	}
}

// ResourceStats returns statistics for one profile.
func (m *Metrics) ResourceStats(resource string) (ResourceStats, bool) {
	v, ok := m.resources.Load(resource)
	if !ok {
		return ResourceStats{Name: resource}, false
	}
	return v.(*resourceMetrics).stats(resource), true
}

// AllResourceStats returns statistics for every profile used, sorted by name.
func (m *Metrics) AllResourceStats() []ResourceStats {
	var stats []ResourceStats
	m.resources.Range(func(key, value any) bool {
		stats = append(stats, value.(*resourceMetrics).stats(key.(string)))
		return true
	})
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// --- Export Methods ---

// Snapshot represents a point-in-time snapshot of all metrics.
type Snapshot struct {
	// Timestamp when the snapshot was taken
	Timestamp time.Time `json:"timestamp"`

	// Validation outcomes
	ValidationsTotal uint64 `json:"validations_total"`
	Validated        uint64 `json:"validated"`
	Unresolved       uint64 `json:"unresolved"`
	Faults           uint64 `json:"faults"`

	// Remote timing (in nanoseconds for precision)
	RemoteCalls     uint64 `json:"remote_calls"`
	AvgRemoteTimeNs uint64 `json:"avg_remote_time_ns"`
	MinRemoteTimeNs uint64 `json:"min_remote_time_ns"`
	MaxRemoteTimeNs uint64 `json:"max_remote_time_ns"`

	// Cache metrics
	CacheHits    uint64  `json:"cache_hits"`
	CacheMisses  uint64  `json:"cache_misses"`
	CacheHitRate float64 `json:"cache_hit_rate"`

	// Record metrics
	WarnTotal  uint64 `json:"warn_total"`
	ErrorTotal uint64 `json:"error_total"`
	InfoTotal  uint64 `json:"info_total"`
	Suppressed uint64 `json:"suppressed"`

	// Per-resource metrics
	Resources []ResourceStats `json:"resources,omitempty"`
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	calls := m.remoteCalls.Load()
	var avg uint64
	if calls > 0 {
		avg = m.remoteTimeTotal.Load() / calls
	}

	minTime := m.remoteTimeMin.Load()
	if minTime == ^uint64(0) {
		minTime = 0
	}

	return Snapshot{
		Timestamp:        time.Now(),
		ValidationsTotal: m.validationsTotal.Load(),
		Validated:        m.validated.Load(),
		Unresolved:       m.unresolved.Load(),
		Faults:           m.faults.Load(),
		RemoteCalls:      calls,
		AvgRemoteTimeNs:  avg,
		MinRemoteTimeNs:  minTime,
		MaxRemoteTimeNs:  m.remoteTimeMax.Load(),
		CacheHits:        m.cacheHits.Load(),
		CacheMisses:      m.cacheMisses.Load(),
		CacheHitRate:     m.CacheHitRate(),
		WarnTotal:        m.warnTotal.Load(),
		ErrorTotal:       m.errorTotal.Load(),
		InfoTotal:        m.infoTotal.Load(),
		Suppressed:       m.suppressed.Load(),
		Resources:        m.AllResourceStats(),
	}
}

// Export returns metrics as a flat map for external systems.
func (m *Metrics) Export() map[string]interface{} {
	s := m.Snapshot()
	return map[string]interface{}{
		"validations_total":  s.ValidationsTotal,
		"validated":          s.Validated,
		"unresolved":         s.Unresolved,
		"faults":             s.Faults,
		"remote_calls":       s.RemoteCalls,
		"avg_remote_time_ns": s.AvgRemoteTimeNs,
		"min_remote_time_ns": s.MinRemoteTimeNs,
		"max_remote_time_ns": s.MaxRemoteTimeNs,
		"cache_hits":         s.CacheHits,
		"cache_misses":       s.CacheMisses,
		"cache_hit_rate":     s.CacheHitRate,
		"warn_total":         s.WarnTotal,
		"error_total":        s.ErrorTotal,
		"info_total":         s.InfoTotal,
		"suppressed":         s.Suppressed,
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.validationsTotal.Store(0)
	m.validated.Store(0)
	m.unresolved.Store(0)
	m.faults.Store(0)
	m.remoteCalls.Store(0)
	m.remoteTimeTotal.Store(0)
	m.remoteTimeMin.Store(^uint64(0))
	m.remoteTimeMax.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.warnTotal.Store(0)
	m.errorTotal.Store(0)
	m.infoTotal.Store(0)
	m.suppressed.Store(0)

	m.resources.Range(func(key, _ any) bool {
		m.resources.Delete(key)
		return true
	})
}
