// Package store picks the order repository once at startup: PostgreSQL when
// it answers, otherwise the in-memory store if fallback is allowed.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"scoopflow/pkg/logger"
	"scoopflow/pkg/order"
	"scoopflow/pkg/order/memory"
	"scoopflow/pkg/order/postgres"
)

// Options controls store selection.
type Options struct {
	DatabaseURL    string
	Fallback       bool
	ConnectTimeout time.Duration
}

// Store is the selected repository.
type Store struct {
	Repository order.Repository
	// Fallback is true when the memory store replaced an unreachable
	// database.
	Fallback bool
	db       *sql.DB
}

// Close releases the database connection, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Open probes the database and returns the repository to use. With no
// DatabaseURL the memory store is used outright.
func Open(ctx context.Context, opts Options, log *logger.Logger) (*Store, error) {
	if opts.DatabaseURL == "" {
		log.Info(ctx, "no database configured, using in-memory store")
		return &Store{Repository: memory.New()}, nil
	}

	repo, db, err := openPostgres(ctx, opts)
	if err != nil {
		if !opts.Fallback {
			return nil, err
		}
		log.Warn(ctx, "database unreachable, falling back to in-memory store", "error", err)
		return &Store{Repository: memory.New(), Fallback: true}, nil
	}

	log.Info(ctx, "connected to database")
	return &Store{Repository: repo, db: db}, nil
}

func openPostgres(ctx context.Context, opts Options) (*postgres.Repository, *sql.DB, error) {
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	db, err := postgres.Open(ctx, opts.DatabaseURL, timeout)
	if err != nil {
		return nil, nil, err
	}

	repo := postgres.New(db)
	migrateCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := repo.Migrate(migrateCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return repo, db, nil
}
