// Package memmonitor samples process RSS and classifies memory pressure,
// feeding the result cache's adaptive TTL factor and the turn engine's
// backpressure decisions.
package memmonitor

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Pressure classifies the current memory state against fixed thresholds.
type Pressure string

const (
	PressureNormal   Pressure = "normal"
	PressureWarning  Pressure = "warning"
	PressureCritical Pressure = "critical"
)

// Default byte thresholds for RSS-based classification.
const (
	DefaultWarningBytes  uint64 = 768 << 20  // 768 MiB
	DefaultCriticalBytes uint64 = 1536 << 20 // 1.5 GiB
)

// minCheckpointDelta is the smallest RSS change recorded as a checkpoint;
// smaller deltas are noise and are dropped.
const minCheckpointDelta = 1 << 20 // 1 MiB

// maxCheckpoints bounds the in-memory checkpoint history.
const maxCheckpoints = 200

// Checkpoint records a labeled RSS sample.
type Checkpoint struct {
	Label     string
	RSSBytes  uint64
	Pressure  Pressure
	Timestamp time.Time
}

// Report summarizes the monitor's current state for diagnostics.
type Report struct {
	RSSBytes    uint64
	Pressure    Pressure
	Checkpoints []Checkpoint
	Supported   bool
}

// Monitor samples this process's resident set size via gopsutil and
// classifies it against the Warning/Critical thresholds.
type Monitor struct {
	mu            sync.Mutex
	warningBytes  uint64
	criticalBytes uint64
	checkpoints   []Checkpoint
	lastRSS       uint64
	supported     bool
	proc          *process.Process
}

// New creates a Monitor for the current process. If the platform-specific
// RSS probe cannot be initialized, the monitor degrades to "unsupported"
// and CheckPressure always reports Normal with AdaptiveTTLFactor of 1.0.
func New() *Monitor {
	m := &Monitor{
		warningBytes:  DefaultWarningBytes,
		criticalBytes: DefaultCriticalBytes,
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		m.proc = proc
		m.supported = true
	}
	return m
}

// WithThresholds overrides the Warning/Critical byte thresholds.
func (m *Monitor) WithThresholds(warning, critical uint64) *Monitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warningBytes = warning
	m.criticalBytes = critical
	return m
}

// CheckPressure samples current RSS and returns its classification.
// Unsupported platforms always classify Normal.
func (m *Monitor) CheckPressure(ctx context.Context) Pressure {
	rss, ok := m.sampleRSS(ctx)
	if !ok {
		return PressureNormal
	}
	return m.classify(rss)
}

func (m *Monitor) classify(rss uint64) Pressure {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case rss >= m.criticalBytes:
		return PressureCritical
	case rss >= m.warningBytes:
		return PressureWarning
	default:
		return PressureNormal
	}
}

func (m *Monitor) sampleRSS(ctx context.Context) (uint64, bool) {
	m.mu.Lock()
	proc := m.proc
	supported := m.supported
	m.mu.Unlock()
	if !supported || proc == nil {
		return 0, false
	}
	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil || info == nil {
		return 0, false
	}
	m.mu.Lock()
	m.lastRSS = info.RSS
	m.mu.Unlock()
	return info.RSS, true
}

// RecordCheckpoint samples RSS and appends a labeled checkpoint, dropped if
// the delta from the prior sample is smaller than minCheckpointDelta.
// History is bounded to maxCheckpoints, dropping the oldest on overflow.
func (m *Monitor) RecordCheckpoint(ctx context.Context, label string) {
	rss, ok := m.sampleRSS(ctx)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.checkpoints) > 0 {
		last := m.checkpoints[len(m.checkpoints)-1].RSSBytes
		delta := int64(rss) - int64(last)
		if delta < 0 {
			delta = -delta
		}
		if uint64(delta) < minCheckpointDelta {
			return
		}
	}
	m.checkpoints = append(m.checkpoints, Checkpoint{
		Label:     label,
		RSSBytes:  rss,
		Pressure:  m.classifyLocked(rss),
		Timestamp: time.Now(),
	})
	if len(m.checkpoints) > maxCheckpoints {
		m.checkpoints = m.checkpoints[len(m.checkpoints)-maxCheckpoints:]
	}
}

func (m *Monitor) classifyLocked(rss uint64) Pressure {
	switch {
	case rss >= m.criticalBytes:
		return PressureCritical
	case rss >= m.warningBytes:
		return PressureWarning
	default:
		return PressureNormal
	}
}

// AdaptiveTTLFactor returns the result cache's TTL multiplier for the
// current pressure: Normal 1.0, Warning 0.5, Critical 0.1.
func (m *Monitor) AdaptiveTTLFactor(ctx context.Context) float64 {
	switch m.CheckPressure(ctx) {
	case PressureCritical:
		return 0.1
	case PressureWarning:
		return 0.5
	default:
		return 1.0
	}
}

// GetReport returns a snapshot of the monitor's current state and recorded
// checkpoint history.
func (m *Monitor) GetReport(ctx context.Context) Report {
	rss, ok := m.sampleRSS(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	checkpoints := make([]Checkpoint, len(m.checkpoints))
	copy(checkpoints, m.checkpoints)
	pressure := PressureNormal
	if ok {
		pressure = m.classifyLocked(rss)
	}
	return Report{
		RSSBytes:    rss,
		Pressure:    pressure,
		Checkpoints: checkpoints,
		Supported:   m.supported,
	}
}
