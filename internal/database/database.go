// Package database opens the GORM connection that backs the favorites store.
// SQLite is the default; PostgreSQL and MySQL are accepted for shared installs.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jmylchreest/tvee/internal/config"
	"github.com/jmylchreest/tvee/internal/database/migrations"
)

// sqlitePragmas are appended to every SQLite DSN so each pooled connection gets them.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
}

// DB is a GORM handle plus the settings it was opened with.
type DB struct {
	*gorm.DB
	driver string
	logger *slog.Logger
}

// Options tweaks how the connection is opened.
type Options struct {
	// PrepareStmt caches prepared statements. Tests using :memory: turn it off.
	PrepareStmt bool
}

// PoolStats is a snapshot of the connection pool.
type PoolStats struct {
	MaxOpen int `json:"max_open_connections"`
	Open    int `json:"open_connections"`
	InUse   int `json:"in_use"`
	Idle    int `json:"idle"`
}

// New opens the configured database. A nil opts enables statement caching.
func New(cfg config.DatabaseConfig, log *slog.Logger, opts *Options) (*DB, error) {
	if opts == nil {
		opts = &Options{PrepareStmt: true}
	}
	if log == nil {
		log = slog.Default()
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newSlogLogger(log, cfg.LogLevel),
		SkipDefaultTransaction: true,
		PrepareStmt:            opts.PrepareStmt,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	maxOpen, maxIdle := poolLimits(cfg)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	log.Debug("database opened",
		slog.String("driver", cfg.Driver),
		slog.Int("max_open_conns", maxOpen),
	)

	return &DB{DB: gdb, driver: cfg.Driver, logger: log}, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		sep := "?"
		if strings.Contains(cfg.DSN, "?") {
			sep = "&"
		}
		return sqlite.Open(cfg.DSN + sep + "_pragma=" + strings.Join(sqlitePragmas, "&_pragma=")), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// poolLimits returns the max open and idle connections. SQLite has a single
// writer, and an in-memory database only exists on the connection that made it.
func poolLimits(cfg config.DatabaseConfig) (int, int) {
	switch {
	case cfg.Driver != "sqlite":
		return cfg.MaxOpenConns, cfg.MaxIdleConns
	case strings.Contains(cfg.DSN, ":memory:"):
		return 1, 1
	default:
		return 4, 2
	}
}

// Migrate brings the schema up to date.
func (db *DB) Migrate(ctx context.Context) error {
	m := migrations.NewMigrator(db.DB, db.logger)
	m.RegisterAll(migrations.AllMigrations())
	if err := m.Up(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Driver returns the configured driver name.
func (db *DB) Driver() string {
	return db.driver
}

// Stats returns connection pool statistics.
func (db *DB) Stats() (PoolStats, error) {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return PoolStats{}, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	s := sqlDB.Stats()
	return PoolStats{MaxOpen: s.MaxOpenConnections, Open: s.OpenConnections, InUse: s.InUse, Idle: s.Idle}, nil
}
