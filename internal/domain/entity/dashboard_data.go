package entity

import "time"

// NetworkMetrics показатели сети Solana, как их отдает upstream
type NetworkMetrics struct {
	TPS              float64 `json:"tps"`
	Slot             uint64  `json:"slot,omitempty"`
	BlockHeight      uint64  `json:"blockHeight,omitempty"`
	Epoch            uint64  `json:"epoch,omitempty"`
	ActiveValidators int     `json:"activeValidators,omitempty"`
	AvgBlockTimeMs   float64 `json:"avgBlockTimeMs,omitempty"`
	Health           string  `json:"health,omitempty"`
}

// ProtocolMetrics показатели одного протокола, ключ по имени
type ProtocolMetrics struct {
	Name            string  `json:"name"`
	TVL             float64 `json:"tvl,omitempty"`
	Volume24h       float64 `json:"volume24h,omitempty"`
	Users24h        int     `json:"users24h,omitempty"`
	Transactions24h int     `json:"transactions24h,omitempty"`
	HealthScore     float64 `json:"healthScore,omitempty"`
	Status          string  `json:"status,omitempty"`
}

// Key возвращает имя протокола
func (p ProtocolMetrics) Key() string {
	return p.Name
}

// SystemMetrics состояние хоста
type SystemMetrics struct {
	CPUUsage    float64 `json:"cpuUsage"`
	MemoryUsage float64 `json:"memoryUsage"`
	DiskUsage   float64 `json:"diskUsage"`
	UptimeSec   uint64  `json:"uptimeSec,omitempty"`
}

// BuildStats агрегаты по сборкам из /api/metrics/overview
type BuildStats struct {
	Total          int     `json:"total"`
	Success        int     `json:"success"`
	Failed         int     `json:"failed"`
	Running        int     `json:"running"`
	SuccessRate    float64 `json:"successRate"`
	AvgDurationSec float64 `json:"avgDurationSec"`
}

// DeploymentStats агрегаты по деплоям из /api/metrics/overview
type DeploymentStats struct {
	Total       int     `json:"total"`
	Success     int     `json:"success"`
	Failed      int     `json:"failed"`
	Pending     int     `json:"pending"`
	SuccessRate float64 `json:"successRate"`
}

// Overview ответ /api/metrics/overview
type Overview struct {
	Builds      BuildStats      `json:"builds"`
	Deployments DeploymentStats `json:"deployments"`
}

// DashboardData полный снимок мониторинга (/api/dashboard/data)
type DashboardData struct {
	Network   *NetworkMetrics   `json:"network,omitempty"`
	Protocols []ProtocolMetrics `json:"protocols"`
	Alerts    []Alert           `json:"alerts"`
	System    *SystemMetrics    `json:"system,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
