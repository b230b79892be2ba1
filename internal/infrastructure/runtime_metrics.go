package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeStats is a snapshot of process resource usage
type RuntimeStats struct {
	Goroutines     int     `json:"goroutines"`
	HeapAllocBytes uint64  `json:"heap_alloc_bytes"`
	SysBytes       uint64  `json:"sys_bytes"`
	NumGC          uint32  `json:"num_gc"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	GoVersion      string  `json:"go_version"`
	OS             string  `json:"os"`
	Arch           string  `json:"arch"`
	NumCPU         int     `json:"num_cpu"`
}

// CollectRuntimeStats reads the Go runtime counters
func CollectRuntimeStats(start time.Time) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return RuntimeStats{
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
		SysBytes:       mem.Sys,
		NumGC:          mem.NumGC,
		UptimeSeconds:  time.Since(start).Seconds(),
		GoVersion:      runtime.Version(),
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
		NumCPU:         runtime.NumCPU(),
	}
}

// RegisterRuntimeMetrics exposes goroutine, memory and uptime gauges that
// are sampled on every metrics scrape.
func RegisterRuntimeMetrics(meter metric.Meter, start time.Time) (metric.Registration, error) {
	goroutines, err := meter.Int64ObservableGauge("system_goroutines",
		metric.WithDescription("Number of active goroutines"))
	if err != nil {
		return nil, err
	}
	heap, err := meter.Int64ObservableGauge("system_memory_heap_bytes",
		metric.WithDescription("Heap bytes allocated by the Go runtime"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}
	sys, err := meter.Int64ObservableGauge("system_memory_system_bytes",
		metric.WithDescription("Memory obtained from the OS"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}
	uptime, err := meter.Float64ObservableGauge("system_process_uptime_seconds",
		metric.WithDescription("Process uptime"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := CollectRuntimeStats(start)
		o.ObserveInt64(goroutines, int64(s.Goroutines))
		o.ObserveInt64(heap, int64(s.HeapAllocBytes))
		o.ObserveInt64(sys, int64(s.SysBytes))
		o.ObserveFloat64(uptime, s.UptimeSeconds)
		return nil
	}, goroutines, heap, sys, uptime)
}
