package main

import (
	"context"
	"log/slog"

	postgresadapter "github.com/ericfisherdev/prpoller/internal/adapter/driven/postgres"
	sqliteadapter "github.com/ericfisherdev/prpoller/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/prpoller/internal/config"
	"github.com/ericfisherdev/prpoller/internal/domain/port/driven"
)

// stores bundles the persistence ports and the function that releases them.
type stores struct {
	state   driven.StateStore
	changes driven.ChangeStore
	close   func() error
}

// openStores opens Postgres when DATABASE_URL names it and SQLite otherwise,
// applying migrations in both cases.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.UsePostgres() {
		db, err := postgresadapter.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("database opened", "backend", "postgres")

		return &stores{
			state:   postgresadapter.NewStateRepo(db),
			changes: postgresadapter.NewChangeRepo(db),
			close:   db.Close,
		}, nil
	}

	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "backend", "sqlite", "path", db.Path())

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("migrations complete")

	return &stores{
		state:   sqliteadapter.NewStateRepo(db),
		changes: sqliteadapter.NewChangeRepo(db),
		close:   db.Close,
	}, nil
}
