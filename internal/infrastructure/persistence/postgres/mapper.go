package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
)

// SampleDBModel представляет точку истории в БД
type SampleDBModel struct {
	Feed      string
	SampledAt time.Time
	Value     float64
	Fields    []byte // JSON
}

// ToDBModel конвертирует точку истории в DB Model
func ToDBModel(feed string, sample entity.MetricSample) (*SampleDBModel, error) {
	var fields []byte
	if len(sample.Fields) > 0 {
		var err error
		fields, err = json.Marshal(sample.Fields)
		if err != nil {
			return nil, err
		}
	}

	return &SampleDBModel{
		Feed:      feed,
		SampledAt: sample.Timestamp.UTC(),
		Value:     sample.Value,
		Fields:    fields,
	}, nil
}

// ToEntity конвертирует DB Model в точку истории
func ToEntity(model *SampleDBModel) (entity.MetricSample, error) {
	var fields map[string]float64
	if len(model.Fields) > 0 {
		if err := json.Unmarshal(model.Fields, &fields); err != nil {
			return entity.MetricSample{}, err
		}
	}

	return entity.MetricSample{
		Timestamp: model.SampledAt,
		Value:     model.Value,
		Fields:    fields,
	}, nil
}

// ScanSampleRow сканирует строку БД в SampleDBModel
func ScanSampleRow(row interface {
	Scan(dest ...interface{}) error
}) (*SampleDBModel, error) {
	var model SampleDBModel
	var fields sql.NullString

	if err := row.Scan(&model.Feed, &model.SampledAt, &model.Value, &fields); err != nil {
		return nil, err
	}

	if fields.Valid {
		model.Fields = []byte(fields.String)
	}

	return &model, nil
}
