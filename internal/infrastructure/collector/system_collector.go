package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
)

// SystemCollector собирает показатели хоста для секции system дашборда
// Реализует интерфейс port.SystemCollector
type SystemCollector struct {
	cpuCollector    *CPUCollector
	memoryCollector *MemoryCollector
	diskCollector   *DiskCollector
}

// NewSystemCollector создает новый системный collector
func NewSystemCollector(cpuInterval time.Duration, diskPath string) *SystemCollector {
	return &SystemCollector{
		cpuCollector:    NewCPUCollector(cpuInterval),
		memoryCollector: NewMemoryCollector(),
		diskCollector:   NewDiskCollector(diskPath),
	}
}

// Collect собирает показатели параллельно.
// Ошибка возвращается, только если не удалось получить ни одного показателя.
func (c *SystemCollector) Collect(ctx context.Context) (entity.SystemMetrics, error) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		metrics entity.SystemMetrics
		errs    []error
	)

	collect := func(read func(context.Context) (float64, error), dst *float64) {
		defer wg.Done()
		value, err := read(ctx)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = value
	}

	wg.Add(3)
	go collect(c.cpuCollector.Collect, &metrics.CPUUsage)
	go collect(c.memoryCollector.Collect, &metrics.MemoryUsage)
	go collect(c.diskCollector.Collect, &metrics.DiskUsage)
	wg.Wait()

	if len(errs) == 3 {
		return entity.SystemMetrics{}, errors.Join(errs...)
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		metrics.UptimeSec = uptime
	}

	return metrics, nil
}
