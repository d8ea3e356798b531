// Package profiler tracks runtime resource usage and per-stage timings of the
// motion pipeline and reports them periodically through slog.
package profiler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"
)

// MetricsCollector is polled on every sample for extra gauges, e.g. the
// controller's processed-frame counters.
type MetricsCollector interface {
	CollectMetrics() map[string]float64
}

// RuntimeProfiler samples memory and goroutine counts, aggregates custom
// metrics and operation timings, and logs a summary every ReportInterval.
// All methods are safe for concurrent use; a nil *RuntimeProfiler is a no-op.
type RuntimeProfiler struct {
	reportInterval time.Duration
	sampleInterval time.Duration
	maxSamples     int
	logger         *slog.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	startTime   time.Time
	memStats    runtime.MemStats
	lastGCCount uint32
	goroutines  int

	metrics    map[string]*series
	operations map[string]*timings
	collectors []MetricsCollector
}

// series keeps a bounded window of samples for one metric.
type series struct {
	values []float64
	sum    float64
	min    float64
	max    float64
}

func (s *series) add(v float64, limit int) {
	if len(s.values) == 0 {
		s.min, s.max = v, v
	}
	s.values = append(s.values, v)
	s.sum += v
	if len(s.values) > limit {
		s.sum -= s.values[0]
		s.values = s.values[1:]
	}
	s.min = min(s.min, v)
	s.max = max(s.max, v)
}

// timings keeps a bounded window of durations for one operation.
type timings struct {
	durations []time.Duration
	total     time.Duration
	min       time.Duration
	max       time.Duration
	count     int64
}

func (t *timings) add(d time.Duration, limit int) {
	if t.count == 0 {
		t.min, t.max = d, d
	}
	t.durations = append(t.durations, d)
	t.total += d
	if len(t.durations) > limit {
		t.total -= t.durations[0]
		t.durations = t.durations[1:]
	}
	t.count++
	t.min = min(t.min, d)
	t.max = max(t.max, d)
}

// ProfilingOptions configures the runtime profiler.
type ProfilingOptions struct {
	// ReportInterval specifies how often to emit status reports (default: 2s)
	ReportInterval time.Duration
	// SampleInterval specifies how often to collect samples (default: 100ms)
	SampleInterval time.Duration
	// MaxSamples specifies maximum number of samples to keep (default: 600)
	MaxSamples int
	// Logger receives the reports (default: slog.Default())
	Logger *slog.Logger
}

// NewRuntimeProfiler creates a profiler. It does nothing until Start.
func NewRuntimeProfiler(opts ProfilingOptions) *RuntimeProfiler {
	if opts.ReportInterval == 0 {
		opts.ReportInterval = 2 * time.Second
	}
	if opts.SampleInterval == 0 {
		opts.SampleInterval = 100 * time.Millisecond
	}
	if opts.MaxSamples == 0 {
		opts.MaxSamples = 600 // 1 minute of samples at 100ms intervals
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &RuntimeProfiler{
		reportInterval: opts.ReportInterval,
		sampleInterval: opts.SampleInterval,
		maxSamples:     opts.MaxSamples,
		logger:         opts.Logger,
		startTime:      time.Now(),
		metrics:        make(map[string]*series),
		operations:     make(map[string]*timings),
	}
}

// Start launches the sampling and reporting goroutines. Calling Start on a
// running profiler does nothing.
func (rp *RuntimeProfiler) Start() {
	if rp == nil {
		return
	}
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if rp.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rp.cancel = cancel
	rp.running = true
	rp.startTime = time.Now()

	rp.wg.Add(2)
	go rp.loop(ctx, rp.sampleInterval, rp.sample)
	go rp.loop(ctx, rp.reportInterval, rp.report)
}

// Stop halts the goroutines, emits a final report and waits for them.
func (rp *RuntimeProfiler) Stop() {
	if rp == nil {
		return
	}
	rp.mu.Lock()
	if !rp.running {
		rp.mu.Unlock()
		return
	}
	rp.running = false
	cancel := rp.cancel
	rp.mu.Unlock()

	cancel()
	rp.wg.Wait()
	rp.report()
}

func (rp *RuntimeProfiler) loop(ctx context.Context, every time.Duration, fn func()) {
	defer rp.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// AddMetricsCollector registers a collector polled on every sample.
func (rp *RuntimeProfiler) AddMetricsCollector(collector MetricsCollector) {
	if rp == nil {
		return
	}
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.collectors = append(rp.collectors, collector)
}

// RecordMetric adds one sample to the named metric.
func (rp *RuntimeProfiler) RecordMetric(name string, value float64) {
	if rp == nil {
		return
	}
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.record(name, value)
}

func (rp *RuntimeProfiler) record(name string, value float64) {
	s, ok := rp.metrics[name]
	if !ok {
		s = &series{}
		rp.metrics[name] = s
	}
	s.add(value, rp.maxSamples)
}

// StartOperation begins timing an operation.
//
// Arguments:
//   - name: The pipeline stage, e.g. "downscale" or "extract".
//
// Returns:
//   - func(): Call when the operation completes.
//
// @example
// done := prof.StartOperation("apply")
// mask, err := model.Apply(frame)
// done()
func (rp *RuntimeProfiler) StartOperation(name string) func() {
	if rp == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		rp.RecordDuration(name, time.Since(start))
	}
}

// RecordDuration adds a completed operation timing.
func (rp *RuntimeProfiler) RecordDuration(name string, d time.Duration) {
	if rp == nil {
		return
	}
	rp.mu.Lock()
	defer rp.mu.Unlock()

	t, ok := rp.operations[name]
	if !ok {
		t = &timings{}
		rp.operations[name] = t
	}
	t.add(d, rp.maxSamples)
}

func (rp *RuntimeProfiler) sample() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	rp.mu.Lock()
	collectors := append([]MetricsCollector(nil), rp.collectors...)
	rp.memStats = ms
	rp.goroutines = runtime.NumGoroutine()
	rp.mu.Unlock()

	// Collectors may take their own locks; call them unlocked.
	for _, c := range collectors {
		values := c.CollectMetrics()
		rp.mu.Lock()
		for name, v := range values {
			rp.record(name, v)
		}
		rp.mu.Unlock()
	}
}

func (rp *RuntimeProfiler) report() {
	stats := rp.Stats()

	rp.mu.Lock()
	newGC := stats.GCCycles - rp.lastGCCount
	rp.lastGCCount = stats.GCCycles
	rp.mu.Unlock()

	rp.logger.Info("runtime profile",
		"uptime", stats.Uptime.Truncate(time.Millisecond),
		"goroutines", stats.Goroutines,
		"alloc", formatBytes(stats.Alloc),
		"heap_objects", stats.HeapObjects,
		"gc_cycles", stats.GCCycles,
		"gc_new", newGC,
	)
	for _, m := range stats.Metrics {
		rp.logger.Info("metric", "name", m.Name, "avg", fmt.Sprintf("%.2f", m.Avg),
			"min", m.Min, "max", m.Max, "samples", m.Samples)
	}
	for _, op := range stats.Operations {
		rp.logger.Info("operation", "name", op.Name,
			"avg", op.Avg.Truncate(time.Microsecond),
			"min", op.Min.Truncate(time.Microsecond),
			"max", op.Max.Truncate(time.Microsecond),
			"count", op.Count)
	}
}

// MetricStats summarises one metric over the sample window.
type MetricStats struct {
	Name    string
	Avg     float64
	Min     float64
	Max     float64
	Samples int
}

// OperationStats summarises one operation over the sample window.
type OperationStats struct {
	Name  string
	Avg   time.Duration
	Min   time.Duration
	Max   time.Duration
	Count int64
}

// Stats is a point-in-time snapshot of the profiler.
type Stats struct {
	Uptime      time.Duration
	Goroutines  int
	Alloc       uint64
	HeapObjects uint64
	GCCycles    uint32
	Metrics     []MetricStats
	Operations  []OperationStats
}

// Operation returns the stats of the named operation.
func (s Stats) Operation(name string) (OperationStats, bool) {
	for _, op := range s.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return OperationStats{}, false
}

// Stats returns a snapshot sorted by name.
func (rp *RuntimeProfiler) Stats() Stats {
	if rp == nil {
		return Stats{}
	}
	rp.mu.Lock()
	defer rp.mu.Unlock()

	out := Stats{
		Uptime:      time.Since(rp.startTime),
		Goroutines:  rp.goroutines,
		Alloc:       rp.memStats.Alloc,
		HeapObjects: rp.memStats.HeapObjects,
		GCCycles:    rp.memStats.NumGC,
	}
	for name, s := range rp.metrics {
		if len(s.values) == 0 {
			continue
		}
		out.Metrics = append(out.Metrics, MetricStats{
			Name:    name,
			Avg:     s.sum / float64(len(s.values)),
			Min:     s.min,
			Max:     s.max,
			Samples: len(s.values),
		})
	}
	for name, t := range rp.operations {
		if len(t.durations) == 0 {
			continue
		}
		out.Operations = append(out.Operations, OperationStats{
			Name:  name,
			Avg:   t.total / time.Duration(len(t.durations)),
			Min:   t.min,
			Max:   t.max,
			Count: t.count,
		})
	}
	sort.Slice(out.Metrics, func(i, j int) bool { return out.Metrics[i].Name < out.Metrics[j].Name })
	sort.Slice(out.Operations, func(i, j int) bool { return out.Operations[i].Name < out.Operations[j].Name })
	return out
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
