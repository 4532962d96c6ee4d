package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type perfGauges struct {
	cpu         metric.Float64Gauge
	memory      metric.Int64Gauge
	liveObjects metric.Int64Gauge
	goroutines  metric.Int64Gauge
}

// the meter is resolved lazily so gauges bind to the provider installed by Setup
func newPerfGauges() perfGauges {
	meter := otel.Meter("go.perf_stats")
	cpuGauge, _ := meter.Float64Gauge("cpu_usage")
	memoryGauge, _ := meter.Int64Gauge("allocated_mb")
	liveObjectsGauge, _ := meter.Int64Gauge("live_objects")
	goroutineGauge, _ := meter.Int64Gauge("goroutine_count")
	return perfGauges{
		cpu:         cpuGauge,
		memory:      memoryGauge,
		liveObjects: liveObjectsGauge,
		goroutines:  goroutineGauge,
	}
}

// InstrumentPerfStats records process gauges every `interval` until ctx is done.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	gauges := newPerfGauges()

	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				cpuUsage, err := cpu.PercentWithContext(ctx, time.Second, false)
				if err == nil && len(cpuUsage) > 0 {
					gauges.cpu.Record(ctx, cpuUsage[0])
				} else if err != nil {
					slog.DebugContext(ctx, "failed to read cpu usage", "err", err)
				}

				gauges.memory.Record(ctx, int64(memStats.Alloc/1_000_000))
				gauges.liveObjects.Record(ctx, int64(memStats.Mallocs)-int64(memStats.Frees))
				gauges.goroutines.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
}
