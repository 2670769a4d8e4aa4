package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"visionguard/pkg/logging"
)

// Config holds the connection-pool settings for the cameras/angle-ranges
// database. The core never writes through this connection — only the three
// read queries behind resolver.Repository.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig mirrors the teacher's pooling defaults.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// Connect opens and pings a Postgres connection pool.
func Connect(cfg Config, logger logging.Logger) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.WithFields(logging.Fields{
		"max_open_conns":    cfg.MaxOpenConns,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime,
	}).Info("camera routing database connected")

	return db, nil
}

// MustConnect is like Connect but exits the process on failure, matching
// the teacher's startup-time fail-fast convention.
func MustConnect(cfg Config, logger logging.Logger) *sql.DB {
	db, err := Connect(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to camera routing database")
	}
	return db
}
