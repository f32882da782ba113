// Package pg provides PostgreSQL database connection and utility functions.
//
// It offers abstractions for creating connection pools, working with the Bun ORM,
// handling PostgreSQL-specific errors, and managing database models with automatic
// timestamp tracking.
package pg

import (
	"github.com/code19m/errx"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/deedvault/fileguard/logger"
	"github.com/deedvault/fileguard/pg/hooks"
)

// NewBunDB creates a new Bun database connection with the provided configuration.
// Query logging goes through the provided logger when cfg.Debug is set.
func NewBunDB(cfg Config, log logger.Logger) (*bun.DB, error) {
	pool, err := NewPool(cfg)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	sqldb := stdlib.OpenDBFromPool(pool)

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	bunDB.AddQueryHook(
		hooks.NewDebugHook(log,
			hooks.WithEnabled(cfg.Debug),
			hooks.WithVerbose(true),
		),
	)

	return bunDB, nil
}
