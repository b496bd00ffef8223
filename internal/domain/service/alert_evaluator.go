package service

import (
	"fmt"
	"time"

	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
)

// Thresholds пороги для alert по системным и сетевым показателям
type Thresholds struct {
	UsageWarning  float64 // %, CPU/Memory/Disk
	UsageCritical float64
	TPSWarning    float64 // ниже порога
	TPSCritical   float64
}

// DefaultThresholds 75% / 90% по ресурсам хоста, 1500 / 500 TPS по сети
func DefaultThresholds() Thresholds {
	return Thresholds{
		UsageWarning:  75,
		UsageCritical: 90,
		TPSWarning:    1500,
		TPSCritical:   500,
	}
}

// AlertEvaluator превращает показатели в alerts (Domain Service).
// Id alert стабилен для условия ("system-cpu", "network-tps"), поэтому повторная
// оценка обновляет alert на месте, а пропавшее условие отмечает его разрешенным.
type AlertEvaluator struct {
	thresholds Thresholds
}

// NewAlertEvaluator создает новый AlertEvaluator
func NewAlertEvaluator(thresholds Thresholds) *AlertEvaluator {
	return &AlertEvaluator{thresholds: thresholds}
}

// Evaluate возвращает alerts для всех отслеживаемых условий.
// active хранит время срабатывания активных alerts: условие, которое все еще нарушено,
// сохраняет это время, а условие без нарушения возвращается с Resolved=true.
func (e *AlertEvaluator) Evaluate(
	network *entity.NetworkMetrics,
	system *entity.SystemMetrics,
	active map[string]time.Time,
	now time.Time,
) []entity.Alert {
	var alerts []entity.Alert

	add := func(id, source string, severity valueobject.Severity, message string) {
		raisedAt, wasActive := active[id]
		if severity == "" {
			if wasActive {
				alerts = append(alerts, entity.Alert{
					ID:        id,
					Severity:  valueobject.SeverityInfo,
					Message:   source + " back to normal",
					Source:    source,
					Timestamp: now,
					Resolved:  true,
				})
			}
			return
		}
		if !wasActive {
			raisedAt = now
		}
		alerts = append(alerts, entity.Alert{
			ID:        id,
			Severity:  severity,
			Message:   message,
			Source:    source,
			Timestamp: raisedAt,
		})
	}

	if system != nil {
		usage := []struct {
			id    string
			name  string
			value float64
		}{
			{"system-cpu", "cpu", system.CPUUsage},
			{"system-memory", "memory", system.MemoryUsage},
			{"system-disk", "disk", system.DiskUsage},
		}
		for _, u := range usage {
			severity := e.usageSeverity(u.value)
			add(u.id, u.name, severity, fmt.Sprintf("%s usage %.1f%%", u.name, u.value))
		}
	}

	if network != nil {
		severity := e.tpsSeverity(network.TPS)
		add("network-tps", "network", severity, fmt.Sprintf("network TPS dropped to %.0f", network.TPS))
	}

	return alerts
}

func (e *AlertEvaluator) usageSeverity(value float64) valueobject.Severity {
	switch {
	case value > e.thresholds.UsageCritical:
		return valueobject.SeverityCritical
	case value > e.thresholds.UsageWarning:
		return valueobject.SeverityWarning
	default:
		return ""
	}
}

func (e *AlertEvaluator) tpsSeverity(tps float64) valueobject.Severity {
	switch {
	case tps < e.thresholds.TPSCritical:
		return valueobject.SeverityCritical
	case tps < e.thresholds.TPSWarning:
		return valueobject.SeverityWarning
	default:
		return ""
	}
}
