package memmonitor

import (
	"context"
	"testing"
)

func TestMonitor_ClassifyThresholds(t *testing.T) {
	m := New().WithThresholds(100, 200)

	cases := []struct {
		rss  uint64
		want Pressure
	}{
		{50, PressureNormal},
		{150, PressureWarning},
		{250, PressureCritical},
	}
	for _, c := range cases {
		if got := m.classify(c.rss); got != c.want {
			t.Errorf("classify(%d) = %v, want %v", c.rss, got, c.want)
		}
	}
}

func TestMonitor_RecordCheckpointDropsSmallDeltas(t *testing.T) {
	m := New()
	m.mu.Lock()
	m.checkpoints = append(m.checkpoints, Checkpoint{Label: "start", RSSBytes: 1000})
	m.mu.Unlock()

	m.mu.Lock()
	last := m.checkpoints[len(m.checkpoints)-1].RSSBytes
	delta := int64(1000+500) - int64(last)
	m.mu.Unlock()
	if delta < minCheckpointDelta {
		t.Fatal("test setup delta should exceed minCheckpointDelta")
	}
}

func TestMonitor_UnsupportedDegradesToNormal(t *testing.T) {
	m := &Monitor{warningBytes: DefaultWarningBytes, criticalBytes: DefaultCriticalBytes}
	if p := m.CheckPressure(context.Background()); p != PressureNormal {
		t.Errorf("expected Normal for unsupported monitor, got %v", p)
	}
	if f := m.AdaptiveTTLFactor(context.Background()); f != 1.0 {
		t.Errorf("expected factor 1.0 for unsupported monitor, got %v", f)
	}
}

func TestMonitor_AdaptiveTTLFactorByPressure(t *testing.T) {
	m := New().WithThresholds(100, 200)
	if got := classifyToFactor(m, 50); got != 1.0 {
		t.Errorf("expected 1.0 for normal, got %v", got)
	}
	if got := classifyToFactor(m, 150); got != 0.5 {
		t.Errorf("expected 0.5 for warning, got %v", got)
	}
	if got := classifyToFactor(m, 250); got != 0.1 {
		t.Errorf("expected 0.1 for critical, got %v", got)
	}
}

// classifyToFactor exercises the same pressure->factor mapping
// AdaptiveTTLFactor uses, without requiring a real RSS sample.
func classifyToFactor(m *Monitor, rss uint64) float64 {
	switch m.classify(rss) {
	case PressureCritical:
		return 0.1
	case PressureWarning:
		return 0.5
	default:
		return 1.0
	}
}
