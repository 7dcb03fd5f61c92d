package agent

import (
	"context"

	"github.com/vtcode/vtcode/internal/memmonitor"
)

// monitorPressure adapts a memmonitor.Monitor (whose AdaptiveTTLFactor takes
// a context) to resultcache.PressureSource (which does not), using a fixed
// background context for the periodic sample. The cache only needs a coarse,
// best-effort pressure reading, not one scoped to a particular request.
type monitorPressure struct {
	monitor *memmonitor.Monitor
}

func newMonitorPressure(m *memmonitor.Monitor) monitorPressure {
	return monitorPressure{monitor: m}
}

func (p monitorPressure) AdaptiveTTLFactor() float64 {
	if p.monitor == nil {
		return 1.0
	}
	return p.monitor.AdaptiveTTLFactor(context.Background())
}
