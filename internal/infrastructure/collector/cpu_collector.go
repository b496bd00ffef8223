package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// CPUCollector собирает загрузку CPU
type CPUCollector struct {
	// interval окно измерения; 0 считает загрузку с предыдущего вызова без блокировки
	interval time.Duration
}

// NewCPUCollector создает новый CPU collector
func NewCPUCollector(interval time.Duration) *CPUCollector {
	return &CPUCollector{interval: interval}
}

// Collect возвращает общую загрузку CPU в процентах
func (c *CPUCollector) Collect(ctx context.Context) (float64, error) {
	percentages, err := cpu.PercentWithContext(ctx, c.interval, false)
	if err != nil {
		return 0, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(percentages) == 0 {
		return 0, fmt.Errorf("failed to read cpu usage: no data")
	}
	return percentages[0], nil
}
