package benchmark

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/nvr-ai/go-motion/controller"
	"github.com/nvr-ai/go-motion/profiler"
	"github.com/nvr-ai/go-motion/source"
	"github.com/pkg/errors"
)

// Stages are the detector operations reported per scenario.
var Stages = []string{"downscale", "blur", "apply", "open", "extract"}

// Suite runs scenarios and keeps their results.
type Suite struct {
	outputDir string
	logger    *slog.Logger

	mu        sync.RWMutex
	scenarios []Scenario
	results   []PerformanceMetrics
}

// NewSuite creates a suite writing results to outputDir.
func NewSuite(outputDir string, logger *slog.Logger) *Suite {
	if logger == nil {
		logger = slog.Default()
	}
	return &Suite{outputDir: outputDir, logger: logger}
}

// AddScenario queues a scenario for RunAll.
func (s *Suite) AddScenario(scenario Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios = append(s.scenarios, scenario)
}

// AddSet queues every scenario of set.
func (s *Suite) AddSet(set *ScenarioSet) {
	for _, sc := range set.Scenarios {
		s.AddScenario(sc)
	}
}

// RunScenario processes scenario.Frames generated frames as fast as possible.
//
// Arguments:
//   - ctx: Cancels the run.
//   - scenario: The scene size and pipeline configuration.
//
// Returns:
//   - *PerformanceMetrics: Throughput, stage timings and memory deltas.
//   - error: Configuration errors, or the final status if the run did not
//     complete.
func (s *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	res := scenario.Resolution
	src, err := source.NewSynthetic(source.DemoScene(res.Width, res.Height, scenario.Frames))
	if err != nil {
		return nil, err
	}
	defer src.Close()

	prof := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{
		MaxSamples: max(scenario.Frames, 1),
		Logger:     s.logger,
	})
	ctl, err := controller.New(scenario.Config, src, nil,
		controller.WithPacer(controller.NoPacer{}),
		controller.WithProfiler(prof),
		controller.WithLogger(s.logger),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", scenario.Name)
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	start := time.Now()
	if err := ctl.Start(ctx); err != nil {
		return nil, err
	}
	ctl.Wait()
	total := time.Since(start)

	if ctl.State() != controller.Completed {
		return nil, errors.Errorf("scenario %s did not complete: %s", scenario.Name, ctl.Status())
	}

	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	stats := ctl.Stats()
	metrics := &PerformanceMetrics{
		Scenario:        scenario,
		Timestamp:       start,
		TotalDuration:   total,
		StageDurations:  make(map[string]time.Duration),
		FramesPerSecond: float64(stats.FramesRead) / total.Seconds(),
		NumCPU:          runtime.NumCPU(),
		FramesDetected:  stats.FramesDetected,
		ObjectCount:     stats.ObjectsDetected,
		MemoryStats: MemoryMetrics{
			AllocBytes:      endMem.Alloc,
			TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
			SysBytes:        endMem.Sys,
			NumGC:           endMem.NumGC - startMem.NumGC,
			HeapAllocBytes:  endMem.HeapAlloc,
			HeapSysBytes:    endMem.HeapSys,
		},
	}
	profStats := prof.Stats()
	for _, stage := range Stages {
		if op, ok := profStats.Operation(stage); ok {
			metrics.StageDurations[stage] = op.Avg
		}
	}

	s.mu.Lock()
	s.results = append(s.results, *metrics)
	s.mu.Unlock()
	return metrics, nil
}

// RunAll runs every queued scenario and saves the results. A failing
// scenario is logged and skipped.
func (s *Suite) RunAll(ctx context.Context) error {
	s.mu.RLock()
	scenarios := append([]Scenario(nil), s.scenarios...)
	s.mu.RUnlock()

	for _, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			return err
		}
		metrics, err := s.RunScenario(ctx, sc)
		if err != nil {
			s.logger.Error("scenario failed", "scenario", sc.Name, "error", err)
			continue
		}
		s.logger.Info("scenario completed",
			"scenario", sc.Name,
			"fps", fmt.Sprintf("%.2f", metrics.FramesPerSecond),
			"objects", metrics.ObjectCount,
		)
	}
	return s.SaveResults()
}

// SaveResults writes all results as JSON plus a CSV summary named by the
// current time.
func (s *Suite) SaveResults() error {
	results := s.Results()

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal results")
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write results file")
	}

	summaryFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return errors.Wrap(err, "failed to save summary CSV")
	}

	s.logger.Info("benchmark results saved", "results", resultsFile, "summary", summaryFile)
	return nil
}

func saveSummaryCSV(filename string, results []PerformanceMetrics) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{"scenario", "resolution", "resize", "workers", "fps", "total_ms", "alloc_mb", "objects"}
	for _, stage := range Stages {
		header = append(header, stage+"_us")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		row := []string{
			r.Scenario.Name,
			fmt.Sprintf("%dx%d", r.Scenario.Resolution.Width, r.Scenario.Resolution.Height),
			strconv.FormatFloat(r.Scenario.Config.ResizeFactor, 'f', 2, 64),
			strconv.Itoa(r.Scenario.Config.Model.Workers),
			strconv.FormatFloat(r.FramesPerSecond, 'f', 2, 64),
			strconv.FormatFloat(float64(r.TotalDuration.Nanoseconds())/1e6, 'f', 2, 64),
			strconv.FormatFloat(float64(r.MemoryStats.TotalAllocBytes)/(1024*1024), 'f', 2, 64),
			strconv.Itoa(r.ObjectCount),
		}
		for _, stage := range Stages {
			row = append(row, strconv.FormatInt(r.StageDurations[stage].Microseconds(), 10))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Results returns a copy of all results so far.
func (s *Suite) Results() []PerformanceMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]PerformanceMetrics(nil), s.results...)
}
