// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mergington-activities/internal/common/config"

	_ "github.com/lib/pq"
)

// Roster transactions hold a row lock for a handful of statements, so
// connections turn over quickly. Recycling them keeps the pool from pinning
// a server that was failed over behind the same host name.
const (
	pgConnMaxLifetime = 5 * time.Minute
	pgConnMaxIdleTime = 2 * time.Minute
)

// PostgresClient owns the connection pool behind the postgres storage driver.
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens the roster database pool. sql.Open does not dial, so a
// bad host or a TLS mismatch from sslmode only shows up on the first Ping.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open roster database %s/%s: %w", cfg.Host, cfg.Database, err)
	}

	// Every signup and unregister takes one connection for the length of its
	// transaction; max_connections caps concurrent roster writes.
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(min(cfg.MaxIdle, cfg.MaxConnections))
	db.SetConnMaxLifetime(pgConnMaxLifetime)
	db.SetConnMaxIdleTime(pgConnMaxIdleTime)

	return &PostgresClient{DB: db}, nil
}

// Ping backs /ready when the postgres driver is selected.
func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
