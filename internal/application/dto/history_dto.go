package dto

import (
	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
)

// Источники истории
const (
	HistorySourceWindow  = "window"
	HistorySourceArchive = "archive"
)

// SampleHistoryDTO представляет точки истории TPS с агрегатами
type SampleHistoryDTO struct {
	Source   string                `json:"source"`
	Duration string                `json:"duration"`
	Samples  []entity.MetricSample `json:"samples"`
	Average  float64               `json:"average"`
	Min      float64               `json:"min"`
	Max      float64               `json:"max"`
	P95      float64               `json:"p95"`
	DipCount int                   `json:"dipCount"`
}
