package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sifan077/linkqr/config"
	"github.com/sifan077/linkqr/internal/infra/postgres"
	"github.com/sifan077/linkqr/internal/infra/sqlite"
	"gorm.io/gorm"
)

// DB is the storage handle for the configured backend. Pool is set only for Postgres.
type DB struct {
	Gorm *gorm.DB
	pool *pgxpool.Pool
}

// Open connects to the configured storage backend.
func Open(ctx context.Context, cfg *config.Config) (*DB, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		gormDB, err := postgres.NewGorm(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return &DB{Gorm: gormDB, pool: pool}, nil
	case config.DriverSQLite:
		gormDB, err := sqlite.NewGorm(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &DB{Gorm: gormDB}, nil
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", cfg.Database.Driver)
	}
}

// FromGorm wraps an already opened gorm handle.
func FromGorm(db *gorm.DB) *DB {
	return &DB{Gorm: db}
}

// Ping checks the backend is reachable.
func (d *DB) Ping(ctx context.Context) error {
	if d.pool != nil {
		return d.pool.Ping(ctx)
	}
	sqlDB, err := d.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the gorm connections and, for Postgres, the pgx pool behind them.
func (d *DB) Close() error {
	sqlDB, err := d.Gorm.DB()
	if err != nil {
		return err
	}
	closeErr := sqlDB.Close()
	if d.pool != nil {
		d.pool.Close()
	}
	return closeErr
}

// AutoMigrate uses GORM to perform schema migrations for the provided models.
func AutoMigrate(ctx context.Context, db *gorm.DB, models ...interface{}) error {
	if db == nil || len(models) == 0 {
		return nil
	}

	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("database: auto migrate: %w", err)
	}

	return nil
}
