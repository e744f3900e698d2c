package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// SystemMetrics samples the Go runtime after each stage. The pipeline holds
// every table in memory, so the heap after a stage is its working set.
type SystemMetrics struct {
	goRoutines  metric.Int64Gauge
	heapInUse   metric.Int64Gauge
	memorySys   metric.Int64Gauge
	gcCount     metric.Int64Gauge
	lastGCPause metric.Float64Gauge
}

// SystemStats is one runtime sample
type SystemStats struct {
	GoRoutines  int64
	HeapInUse   int64
	MemorySys   int64
	GCCount     uint32
	LastGCPause time.Duration
}

// NewSystemMetrics creates the runtime gauges. A nil meter yields no-op gauges.
func NewSystemMetrics(meter metric.Meter) (*SystemMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(MeterName)
	}

	goRoutines, err := meter.Int64Gauge(
		"etl_goroutines",
		metric.WithDescription("Number of goroutines after a stage"),
	)
	if err != nil {
		return nil, err
	}

	heapInUse, err := meter.Int64Gauge(
		"etl_heap_inuse_bytes",
		metric.WithDescription("Heap in use after a stage"),
	)
	if err != nil {
		return nil, err
	}

	memorySys, err := meter.Int64Gauge(
		"etl_memory_sys_bytes",
		metric.WithDescription("Memory obtained from the OS after a stage"),
	)
	if err != nil {
		return nil, err
	}

	gcCount, err := meter.Int64Gauge(
		"etl_gc_cycles",
		metric.WithDescription("Completed GC cycles after a stage"),
	)
	if err != nil {
		return nil, err
	}

	lastGCPause, err := meter.Float64Gauge(
		"etl_gc_last_pause_seconds",
		metric.WithDescription("Most recent GC pause"),
	)
	if err != nil {
		return nil, err
	}

	return &SystemMetrics{
		goRoutines:  goRoutines,
		heapInUse:   heapInUse,
		memorySys:   memorySys,
		gcCount:     gcCount,
		lastGCPause: lastGCPause,
	}, nil
}

// Collect samples the runtime and records it under the stage attribute
func (sm *SystemMetrics) Collect(ctx context.Context, stage string) *SystemStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := &SystemStats{
		GoRoutines:  int64(runtime.NumGoroutine()),
		HeapInUse:   int64(memStats.HeapInuse),
		MemorySys:   int64(memStats.Sys),
		GCCount:     memStats.NumGC,
		LastGCPause: time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256]),
	}
	if sm == nil {
		return stats
	}

	attrs := metric.WithAttributes(attribute.String("stage", stage))
	sm.goRoutines.Record(ctx, stats.GoRoutines, attrs)
	sm.heapInUse.Record(ctx, stats.HeapInUse, attrs)
	sm.memorySys.Record(ctx, stats.MemorySys, attrs)
	sm.gcCount.Record(ctx, int64(stats.GCCount), attrs)
	sm.lastGCPause.Record(ctx, stats.LastGCPause.Seconds(), attrs)

	return stats
}
