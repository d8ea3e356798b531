// Package benchmark - Throughput measurements of the motion pipeline over
// generated scenes.
package benchmark

import "time"

// PerformanceMetrics captures detailed performance data
type PerformanceMetrics struct {
	Scenario        Scenario                 `json:"scenario"`
	Timestamp       time.Time                `json:"timestamp"`
	TotalDuration   time.Duration            `json:"total_duration"`
	StageDurations  map[string]time.Duration `json:"stage_durations"`
	FramesPerSecond float64                  `json:"frames_per_second"`
	MemoryStats     MemoryMetrics            `json:"memory_stats"`
	NumCPU          int                      `json:"num_cpu"`
	FramesDetected  int                      `json:"frames_detected"`
	ObjectCount     int                      `json:"object_count"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
}
