package service

import (
	"errors"
	"sort"

	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
)

// ErrNoSamples агрегат по пустому набору точек
var ErrNoSamples = errors.New("no samples to aggregate")

// SampleAggregator агрегаты по точкам истории (Domain Service)
type SampleAggregator struct{}

// NewSampleAggregator создает новый SampleAggregator
func NewSampleAggregator() *SampleAggregator {
	return &SampleAggregator{}
}

// CalculateAverage вычисляет среднее значение
func (a *SampleAggregator) CalculateAverage(samples []entity.MetricSample) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	var sum float64
	for _, s := range samples {
		sum += s.Value
	}

	return sum / float64(len(samples)), nil
}

// CalculateMin находит минимальное значение
func (a *SampleAggregator) CalculateMin(samples []entity.MetricSample) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	min := samples[0].Value
	for _, s := range samples[1:] {
		if s.Value < min {
			min = s.Value
		}
	}

	return min, nil
}

// CalculateMax находит максимальное значение
func (a *SampleAggregator) CalculateMax(samples []entity.MetricSample) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	max := samples[0].Value
	for _, s := range samples[1:] {
		if s.Value > max {
			max = s.Value
		}
	}

	return max, nil
}

// FindBelow находит точки со значением ниже порога (просадки TPS)
func (a *SampleAggregator) FindBelow(samples []entity.MetricSample, threshold float64) []entity.MetricSample {
	var dips []entity.MetricSample
	for _, s := range samples {
		if s.Value < threshold {
			dips = append(dips, s)
		}
	}
	return dips
}

// SortByTime сортирует точки по времени, не меняя исходный слайс
func (a *SampleAggregator) SortByTime(samples []entity.MetricSample, descending bool) []entity.MetricSample {
	sorted := make([]entity.MetricSample, len(samples))
	copy(sorted, samples)

	sort.SliceStable(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].Timestamp.After(sorted[j].Timestamp)
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	return sorted
}

// CalculatePercentile вычисляет процентиль значения
func (a *SampleAggregator) CalculatePercentile(samples []entity.MetricSample, percentile float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	if percentile < 0 || percentile > 100 {
		return 0, errors.New("percentile must be between 0 and 100")
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	sort.Float64s(values)

	index := int(float64(len(values)-1) * (percentile / 100.0))
	return values[index], nil
}
