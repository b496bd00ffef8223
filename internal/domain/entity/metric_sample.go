package entity

import "time"

// MetricSample точка временного ряда для графиков.
// Value основное значение (TPS сети), Fields производные значения той же точки.
type MetricSample struct {
	Timestamp time.Time          `json:"timestamp"`
	Value     float64            `json:"value"`
	Fields    map[string]float64 `json:"fields,omitempty"`
}

// Field возвращает производное значение по имени
func (s MetricSample) Field(name string) (float64, bool) {
	v, ok := s.Fields[name]
	return v, ok
}
