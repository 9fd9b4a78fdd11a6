package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// hostResourceThresholds gates the host_resources deep health check: above
// either threshold the host is considered too saturated to take on more
// execution load reliably.
const (
	maxMemoryPercent = 90.0
	maxCPUPercent    = 95.0
)

// hostResourcesCheck reports host memory and CPU utilization as a deep
// health check dependency, so an operator dashboard can see the process is
// up but the box it runs on is out of headroom before it starts missing
// fills.
func hostResourcesCheck(ctx context.Context) error {
	memStat, err := mem.VirtualMemory()
	if err != nil {
		return fmt.Errorf("memory stats: %w", err)
	}
	if memStat.UsedPercent > maxMemoryPercent {
		return fmt.Errorf("memory at %.1f%%, exceeds %.1f%%", memStat.UsedPercent, maxMemoryPercent)
	}

	cpuPercent, err := cpu.PercentWithContext(ctx, 100*time.Millisecond, false)
	if err != nil {
		return fmt.Errorf("cpu stats: %w", err)
	}
	if len(cpuPercent) > 0 && cpuPercent[0] > maxCPUPercent {
		return fmt.Errorf("cpu at %.1f%%, exceeds %.1f%%", cpuPercent[0], maxCPUPercent)
	}

	return nil
}
