package collector

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"
)

// DiskCollector собирает заполненность раздела
type DiskCollector struct {
	path string
}

// NewDiskCollector создает новый Disk collector для раздела path ("/" по умолчанию)
func NewDiskCollector(path string) *DiskCollector {
	if path == "" {
		path = "/"
	}
	return &DiskCollector{path: path}
}

// Collect возвращает процент заполненности раздела
func (c *DiskCollector) Collect(ctx context.Context) (float64, error) {
	usage, err := disk.UsageWithContext(ctx, c.path)
	if err != nil {
		return 0, fmt.Errorf("failed to read disk usage of %s: %w", c.path, err)
	}
	return usage.UsedPercent, nil
}
