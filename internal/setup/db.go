// Package setup builds the process-wide shared resources (DB pool, Redis
// client, migration connection) from configuration, following the
// connect-then-ping pattern the teacher uses for its database/sql pool.
package setup

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq" // goose migration driver, database/sql-based
	"github.com/redis/go-redis/v9"
)

// ConnectPool establishes a pgxpool.Pool, the connection pool used by every
// repository (C4, C6, C7, C8).
func ConnectPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("setup: ConnectPool: database URL is required")
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("setup: ConnectPool: parse config: %w", err)
	}
	cfg.MaxConns = 25
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("setup: ConnectPool: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("setup: ConnectPool: ping: %w", err)
	}

	return pool, nil
}

// ConnectMigrationDB opens a database/sql connection over lib/pq, the only
// driver shape goose's runner accepts, used solely by cmd/migrate.
func ConnectMigrationDB(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("setup: ConnectMigrationDB: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setup: ConnectMigrationDB: ping: %w", err)
	}
	return db, nil
}

// ConnectRedis builds a redis.Client for the session store (C11).
func ConnectRedis(ctx context.Context, redisURI string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, fmt.Errorf("setup: ConnectRedis: parse URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup: ConnectRedis: ping: %w", err)
	}
	return client, nil
}
