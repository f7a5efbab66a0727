package monitoring

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostStats is a snapshot of the host and of this process.
type HostStats struct {
	MemoryUsedPercent float64 `json:"memoryUsedPercent"`
	MemoryTotalMB     uint64  `json:"memoryTotalMB"`
	ProcessRSSMB      uint64  `json:"processRssMB"`
	Goroutines        int     `json:"goroutines"`
	UptimeSeconds     int64   `json:"uptimeSeconds"`
}

var startedAt = time.Now()

// CollectHostStats gathers memory figures via gopsutil. Fields it cannot
// read are left zero; the error reports the first failure.
func CollectHostStats(ctx context.Context) (HostStats, error) {
	stats := HostStats{
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(startedAt).Seconds()),
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return stats, err
	}
	stats.MemoryUsedPercent = vm.UsedPercent
	stats.MemoryTotalMB = vm.Total / 1024 / 1024

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return stats, err
	}
	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return stats, err
	}
	stats.ProcessRSSMB = info.RSS / 1024 / 1024
	return stats, nil
}
