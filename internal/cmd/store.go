package cmd

import (
	"context"

	"github.com/skystats/skystats/internal/config"
	"github.com/skystats/skystats/internal/core/store"
)

// openStore opens and migrates the local database.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
