package collector

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryCollector собирает использование памяти
type MemoryCollector struct{}

// NewMemoryCollector создает новый Memory collector
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

// Collect возвращает процент использованной памяти
func (c *MemoryCollector) Collect(ctx context.Context) (float64, error) {
	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read memory usage: %w", err)
	}
	return vmStat.UsedPercent, nil
}
