package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jmylchreest/tvee/internal/config"
	"github.com/jmylchreest/tvee/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      ":memory:",
		LogLevel: "silent",
	}, nil, &Options{PrepareStmt: false})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestNew_SQLite(t *testing.T) {
	db := setupTestDB(t)

	assert.NoError(t, db.Ping(context.Background()))
	assert.Equal(t, "sqlite", db.Driver())
}

func TestNew_InMemoryPinnedToOneConnection(t *testing.T) {
	db := setupTestDB(t)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpen)
}

func TestNew_InvalidDriver(t *testing.T) {
	db, err := New(config.DatabaseConfig{Driver: "oracle", DSN: ":memory:"}, nil, nil)
	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestDB_Close(t *testing.T) {
	db, err := New(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, db.Close())
	assert.Error(t, db.Ping(context.Background()))
}

func TestDB_Migrate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	require.NoError(t, db.Migrate(ctx))
	assert.True(t, db.DB.Migrator().HasTable(&models.Favorite{}))

	require.NoError(t, db.DB.Create(&models.Favorite{StreamID: 501}).Error)
	err := db.DB.Create(&models.Favorite{StreamID: 501}).Error
	assert.Error(t, err, "stream_id is unique")

	// Re-running is a no-op.
	require.NoError(t, db.Migrate(ctx))
}

func TestDB_SQLitePragmas(t *testing.T) {
	db := setupTestDB(t)

	var journalMode string
	require.NoError(t, db.DB.Raw("PRAGMA journal_mode").Scan(&journalMode).Error)
	assert.Equal(t, "memory", journalMode)

	var foreignKeys int
	require.NoError(t, db.DB.Raw("PRAGMA foreign_keys").Scan(&foreignKeys).Error)
	assert.Equal(t, 1, foreignKeys)
}

func TestGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected logger.LogLevel
	}{
		{"silent", logger.Silent},
		{"error", logger.Error},
		{"warn", logger.Warn},
		{"info", logger.Info},
		{"unknown", logger.Warn},
		{"", logger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, gormLogLevel(tt.level))
		})
	}
}

func TestTruncateSQL(t *testing.T) {
	short := "SELECT 1"
	assert.Equal(t, short, truncateSQL(short))

	long := strings.Repeat("x", maxSQLInLog+50)
	got := truncateSQL(long)
	assert.Len(t, got, maxSQLInLog+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSlogLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := newSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)), "warn")
	fc := func() (string, int64) { return "SELECT * FROM favorites", 0 }

	l.Trace(context.Background(), time.Now(), fc, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String(), "not-found is not an error")

	l.Trace(context.Background(), time.Now(), fc, errors.New("database is locked"))
	assert.Contains(t, buf.String(), "database error")
	assert.Contains(t, buf.String(), "database is locked")
}
