package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
)

// PostgresSampleRepository реализует repository.SampleRepository для PostgreSQL.
// Все запросы ограничены одним feed.
type PostgresSampleRepository struct {
	db   *sql.DB
	feed string
}

// NewPostgresSampleRepository создает новый PostgreSQL repository
func NewPostgresSampleRepository(db *sql.DB, feed string) *PostgresSampleRepository {
	return &PostgresSampleRepository{
		db:   db,
		feed: feed,
	}
}

// SaveBatch сохраняет точки одной транзакцией; повтор той же точки игнорируется
func (r *PostgresSampleRepository) SaveBatch(ctx context.Context, samples []entity.MetricSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO metric_samples (feed, sampled_at, value, fields)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (feed, sampled_at) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, sample := range samples {
		model, err := ToDBModel(r.feed, sample)
		if err != nil {
			return fmt.Errorf("failed to convert sample to DB model: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			model.Feed,
			model.SampledAt,
			model.Value,
			nullableJSON(model.Fields),
		)
		if err != nil {
			return fmt.Errorf("failed to insert sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByTimeRange находит точки в диапазоне, от старых к новым
func (r *PostgresSampleRepository) FindByTimeRange(
	ctx context.Context,
	timeRange valueobject.TimeRange,
) ([]entity.MetricSample, error) {
	query := `
		SELECT feed, sampled_at, value, fields
		FROM metric_samples
		WHERE feed = $1 AND sampled_at BETWEEN $2 AND $3
		ORDER BY sampled_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, r.feed, timeRange.Start(), timeRange.End())
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	return r.scanSamples(rows)
}

// FindLatest возвращает последние limit точек, от старых к новым
func (r *PostgresSampleRepository) FindLatest(ctx context.Context, limit int) ([]entity.MetricSample, error) {
	query := `
		SELECT feed, sampled_at, value, fields
		FROM (
			SELECT feed, sampled_at, value, fields
			FROM metric_samples
			WHERE feed = $1
			ORDER BY sampled_at DESC
			LIMIT $2
		) latest
		ORDER BY sampled_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, r.feed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest samples: %w", err)
	}
	defer rows.Close()

	return r.scanSamples(rows)
}

// DeleteOlderThan удаляет точки старше before и возвращает их количество
func (r *PostgresSampleRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM metric_samples WHERE feed = $1 AND sampled_at < $2`,
		r.feed, before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old samples: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return deleted, nil
}

// Count возвращает количество точек feed
func (r *PostgresSampleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM metric_samples WHERE feed = $1`,
		r.feed,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count samples: %w", err)
	}

	return count, nil
}

// scanSamples сканирует несколько строк в слайс точек
func (r *PostgresSampleRepository) scanSamples(rows *sql.Rows) ([]entity.MetricSample, error) {
	samples := make([]entity.MetricSample, 0)

	for rows.Next() {
		model, err := ScanSampleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample row: %w", err)
		}

		sample, err := ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert to entity: %w", err)
		}

		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return samples, nil
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
