// Package db opens the platform Postgres pool and applies the application schema.
package db

import (
	"context"
	"fmt"
	"time"

	"volunteerhub/pkg/types"

	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "volunteerhub"

// Connect opens a pool against the platform Postgres. The search path is
// pinned to the application schema unless the URL already sets one.
func Connect(ctx context.Context, config *types.Config) (*pgxpool.Pool, error) {
	poolConfig, err := poolConfigFor(config)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func poolConfigFor(config *types.Config) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	params := poolConfig.ConnConfig.RuntimeParams
	if _, ok := params["search_path"]; !ok && config.DatabaseSchema != "" {
		params["search_path"] = config.DatabaseSchema
	}
	if _, ok := params["application_name"]; !ok {
		params["application_name"] = applicationName
	}

	if config.DatabaseMaxConn > 0 {
		poolConfig.MaxConns = config.DatabaseMaxConn
	}
	poolConfig.MaxConnIdleTime = 15 * time.Minute
	poolConfig.MaxConnLifetime = 45 * time.Minute

	return poolConfig, nil
}
