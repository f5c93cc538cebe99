package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/auction-ledger/internal/config"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/auction-ledger/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

// ledgerBackend is the chosen store plus what it needs at runtime.
type ledgerBackend struct {
	store ledger.Store
	// listen relays commits from other processes; nil for the memory store.
	listen func(ctx context.Context) error
	close  func()
}

func openLedger(ctx context.Context, cfg config.Config, logger *logging.Logger) (*ledgerBackend, error) {
	switch cfg.LedgerDriver {
	case config.LedgerDriverPostgres:
		return openPostgresLedger(ctx, cfg, logger)
	default:
		store := memory.NewLedgerStore(cfg.LedgerRetry(), logger)
		return &ledgerBackend{store: store, close: store.Close}, nil
	}
}

func openPostgresLedger(ctx context.Context, cfg config.Config, logger *logging.Logger) (*ledgerBackend, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.ServiceName)

	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(dsn)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger database: %w", err)
	}

	store := postgres.NewLedgerStore(db, cfg.LedgerNotifyChannel, cfg.LedgerRetry(), logger)
	return &ledgerBackend{
		store: store,
		listen: func(ctx context.Context) error {
			return store.Listen(ctx, dsn)
		},
		close: func() {
			store.Close()
			closeDB(db, logger)
		},
	}, nil
}

func closeDB(db *sqlx.DB, logger *logging.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("close ledger database", "error", err)
	}
}
