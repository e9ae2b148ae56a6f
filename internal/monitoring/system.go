// Package monitoring samples process and host resource usage for the health
// endpoint.
package monitoring

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemStats is a point-in-time snapshot of resource usage.
type SystemStats struct {
	UptimeSeconds  int64   `json:"uptime_seconds"`
	Goroutines     int     `json:"goroutines"`
	ProcessRSS     uint64  `json:"process_rss_bytes"`
	MemUsedPercent float64 `json:"mem_used_percent"`
	Load1          float64 `json:"load_1"`
}

// Sampler reads resource usage of the running process and its host.
type Sampler struct {
	proc    *process.Process
	started time.Time
	now     func() time.Time
}

// NewSampler creates a Sampler bound to the current process.
func NewSampler() (*Sampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open own process: %w", err)
	}

	started := time.Now()
	if ms, err := proc.CreateTime(); err == nil {
		started = time.UnixMilli(ms)
	}

	return &Sampler{proc: proc, started: started, now: time.Now}, nil
}

// Sample collects a fresh snapshot.
func (s *Sampler) Sample(ctx context.Context) (SystemStats, error) {
	stats := SystemStats{
		UptimeSeconds: int64(s.now().Sub(s.started).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
	}

	memInfo, err := s.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return SystemStats{}, fmt.Errorf("process memory: %w", err)
	}
	stats.ProcessRSS = memInfo.RSS

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return SystemStats{}, fmt.Errorf("host memory: %w", err)
	}
	stats.MemUsedPercent = vm.UsedPercent

	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return SystemStats{}, fmt.Errorf("load average: %w", err)
	}
	stats.Load1 = avg.Load1

	return stats, nil
}
