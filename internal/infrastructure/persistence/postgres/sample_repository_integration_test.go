//go:build integration
// +build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
)

func TestPostgresSampleRepository(t *testing.T) {
	dsn := os.Getenv("INTEGRATION_POSTGRES_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5432 user=postgres password=postgres dbname=devex sslmode=disable"
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn, 4, 1, time.Minute, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db))

	repo := NewPostgresSampleRepository(db, "integration-"+time.Now().Format("150405.000"))
	base := time.Now().UTC().Truncate(time.Second)

	samples := []entity.MetricSample{
		{Timestamp: base.Add(-3 * time.Minute), Value: 1000, Fields: map[string]float64{"slot": 1}},
		{Timestamp: base.Add(-2 * time.Minute), Value: 2000},
		{Timestamp: base.Add(-1 * time.Minute), Value: 3000},
	}
	require.NoError(t, repo.SaveBatch(ctx, samples))
	// дубликаты игнорируются
	require.NoError(t, repo.SaveBatch(ctx, samples[2:]))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	latest, err := repo.FindLatest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 2000.0, latest[0].Value)
	assert.Equal(t, 3000.0, latest[1].Value)

	tr, err := valueobject.NewTimeRangeEndingAt(base, 150*time.Second)
	require.NoError(t, err)
	ranged, err := repo.FindByTimeRange(ctx, tr)
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	deleted, err := repo.DeleteOlderThan(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}
