package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jmylchreest/tvee/internal/models"
)

func setupFavoriteTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Favorite{}))
	return db
}

func TestFavoriteRepo_AddExistsRemove(t *testing.T) {
	ctx := context.Background()
	repo := NewFavoriteRepository(setupFavoriteTestDB(t))

	ok, err := repo.Exists(ctx, 501)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Add(ctx, 501))
	ok, err = repo.Exists(ctx, 501)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Remove(ctx, 501))
	ok, err = repo.Exists(ctx, 501)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFavoriteRepo_AddTwiceIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := NewFavoriteRepository(setupFavoriteTestDB(t))

	require.NoError(t, repo.Add(ctx, 7))
	require.NoError(t, repo.Add(ctx, 7))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestFavoriteRepo_RemoveMissing(t *testing.T) {
	repo := NewFavoriteRepository(setupFavoriteTestDB(t))
	assert.NoError(t, repo.Remove(context.Background(), 404))
}

func TestFavoriteRepo_GetAll(t *testing.T) {
	ctx := context.Background()
	repo := NewFavoriteRepository(setupFavoriteTestDB(t))

	for _, id := range []int{503, 501, 502} {
		require.NoError(t, repo.Add(ctx, id))
	}

	favorites, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, 3)

	ids := make([]int, 0, len(favorites))
	for _, f := range favorites {
		assert.False(t, f.ID.IsZero())
		ids = append(ids, f.StreamID)
	}
	assert.ElementsMatch(t, []int{501, 502, 503}, ids)
}
