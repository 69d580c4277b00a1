package monitor

import (
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// PressureFunc is invoked with the observed usage ratio whenever heap usage
// crosses the configured fraction of GOMEMLIMIT. Typical actions shed
// in-memory snapshot history and force a collection.
type PressureFunc func(ratio float64)

// MemoryPressureMonitor polls the Go runtime and reports when memory usage
// approaches GOMEMLIMIT. Snapshot histories across a large fleet are the main
// heap consumer, so the pressure action usually trims them.
type MemoryPressureMonitor struct {
	logger     *slog.Logger
	fraction   float64
	interval   time.Duration
	onPressure PressureFunc
	readStats  func(*runtime.MemStats)

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewMemoryPressureMonitor creates a monitor that calls onPressure when heap
// usage exceeds fraction of GOMEMLIMIT. readStats may be nil, in which case
// the real runtime is read.
func NewMemoryPressureMonitor(logger *slog.Logger, fraction float64, interval time.Duration, onPressure PressureFunc, readStats func(*runtime.MemStats)) *MemoryPressureMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	if readStats == nil {
		readStats = runtime.ReadMemStats
	}
	return &MemoryPressureMonitor{
		logger:     logger.With("component", "mempressure"),
		fraction:   fraction,
		interval:   interval,
		onPressure: onPressure,
		readStats:  readStats,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins the background polling goroutine.
func (m *MemoryPressureMonitor) Start() {
	if m.started.CompareAndSwap(false, true) {
		go m.run()
	}
}

func (m *MemoryPressureMonitor) run() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			if ratio, over := m.usageRatio(); over {
				m.logger.Warn("memory pressure detected",
					"usage_ratio", ratio, "threshold", m.fraction)
				m.onPressure(ratio)
			}
		}
	}
}

// usageRatio reads the current limit without changing it; a non-positive
// result means GOMEMLIMIT is unset and pressure cannot be judged.
func (m *MemoryPressureMonitor) usageRatio() (float64, bool) {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 {
		return 0, false
	}

	var stats runtime.MemStats
	m.readStats(&stats)

	ratio := float64(stats.Sys-stats.HeapReleased) / float64(limit)
	return ratio, ratio > m.fraction
}

// Stop halts the polling goroutine and waits for it to exit. Safe to call
// multiple times.
func (m *MemoryPressureMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	if m.started.Load() {
		<-m.done
	}
}
