package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cozy-creator/classify-server/internal/db/drivers"
	"github.com/cozy-creator/classify-server/internal/db/migrations"
	"github.com/cozy-creator/classify-server/internal/db/models"
	"github.com/cozy-creator/classify-server/internal/db/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	ctx := context.Background()
	driver, err := drivers.NewSQLiteDriver(ctx, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close() })

	require.NoError(t, migrations.Migrate(ctx, driver.GetDB()))
	return driver.GetDB()
}

func TestPredictionRepositoryListRecent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPredictionRepository(newTestDB(t))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		prediction := models.NewPrediction(fmt.Sprintf("img%d.jpg", i), "image/jpeg", 10)
		prediction.ClassName = "Parang"
		prediction.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := repo.Create(ctx, prediction)
		require.NoError(t, err)
	}

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "img2.jpg", recent[0].Filename)
	assert.Equal(t, "img1.jpg", recent[1].Filename)

	all, err := repo.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	got, err := repo.GetByID(ctx, recent[0].ID.String())
	require.NoError(t, err)
	assert.Equal(t, "img2.jpg", got.Filename)

	counts, err := repo.CountByClass(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Parang": 3}, counts)

	require.NoError(t, repo.DeleteByID(ctx, got.ID.String()))
	_, err = repo.GetByID(ctx, got.ID.String())
	assert.Error(t, err)
}

func TestPredictionRepositoryRejectsNil(t *testing.T) {
	repo := repository.NewPredictionRepository(newTestDB(t))

	_, err := repo.Create(context.Background(), nil)
	assert.Error(t, err)
}

func TestAPIKeyRepositoryRevoke(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewAPIKeyRepository(newTestDB(t))

	_, err := repo.Create(ctx, models.NewAPIKey("hash-1", "csk_****abcd"))
	require.NoError(t, err)

	key, err := repo.GetAPIKeyWithHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.False(t, key.IsRevoked)

	revoked, err := repo.RevokeAPIKeyWithHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	key, err = repo.GetAPIKeyWithHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.True(t, key.IsRevoked)

	revoked, err = repo.RevokeAPIKeyWithHash(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, revoked)

	keys, err := repo.ListAPIKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

