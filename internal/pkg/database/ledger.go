package database

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
)

// OpenLedger opens the document store the engines run on. driver is
// "memory" for local runs; anything else means PostgreSQL.
func OpenLedger(driver, databaseURL string, pool PoolConfig) (ledger.Store, error) {
	if driver == "memory" {
		log.Warn().Msg("Using in-memory ledger, data is lost on restart")
		return ledger.NewMemoryStore(), nil
	}

	db, err := NewPostgres(databaseURL, pool)
	if err != nil {
		return nil, err
	}
	store := ledger.NewPostgresStore(db)
	if err := store.EnsureSchema(context.Background()); err != nil {
		ClosePostgres(db)
		return nil, err
	}
	return store, nil
}
