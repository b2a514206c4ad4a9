package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics reports process resource usage on every collection
type RuntimeMetrics struct {
	registration metric.Registration
	started      time.Time
}

// RegisterRuntimeMetrics registers observable runtime gauges on meter.
// Call Unregister when the process is done collecting.
func RegisterRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	goroutines, err := meter.Int64ObservableGauge("roster_runtime_goroutines",
		metric.WithDescription("Number of live goroutines"))
	if err != nil {
		return nil, fmt.Errorf("failed to create goroutine gauge: %w", err)
	}
	heap, err := meter.Int64ObservableGauge("roster_runtime_heap_bytes",
		metric.WithDescription("Heap bytes in use"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("failed to create heap gauge: %w", err)
	}
	gcCycles, err := meter.Int64ObservableCounter("roster_runtime_gc_cycles_total",
		metric.WithDescription("Completed GC cycles"))
	if err != nil {
		return nil, fmt.Errorf("failed to create gc counter: %w", err)
	}
	uptime, err := meter.Float64ObservableGauge("roster_process_uptime_seconds",
		metric.WithDescription("Seconds since the process started collecting"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create uptime gauge: %w", err)
	}

	rm := &RuntimeMetrics{started: time.Now()}
	rm.registration, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)

		o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
		o.ObserveInt64(heap, int64(ms.HeapAlloc))
		o.ObserveInt64(gcCycles, int64(ms.NumGC))
		o.ObserveFloat64(uptime, time.Since(rm.started).Seconds())
		return nil
	}, goroutines, heap, gcCycles, uptime)
	if err != nil {
		return nil, fmt.Errorf("failed to register runtime callback: %w", err)
	}
	return rm, nil
}

// Unregister stops observing
func (rm *RuntimeMetrics) Unregister() error {
	if rm == nil || rm.registration == nil {
		return nil
	}
	return rm.registration.Unregister()
}
