package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/riskibarqy/auction-ledger/internal/bidding"
	"github.com/riskibarqy/auction-ledger/internal/config"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/infrastructure/account/anubis"
	"github.com/riskibarqy/auction-ledger/internal/infrastructure/events"
	"github.com/riskibarqy/auction-ledger/internal/interfaces/httpapi"
	idgen "github.com/riskibarqy/auction-ledger/internal/platform/id"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
	"github.com/riskibarqy/auction-ledger/internal/usecase"
	"github.com/sourcegraph/conc/pool"
)

const shutdownTimeout = 10 * time.Second

// App owns every long-running piece of the service.
type App struct {
	cfg    config.Config
	logger *logging.Logger

	ledger  *ledgerBackend
	roster  *usecase.RosterService
	board   *usecase.BoardService
	console *bidding.Coordinator
	feed    *httpapi.ConsoleFeed
	nc      *nats.Conn
	relay   *events.Relay
	server  *http.Server
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	backend, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger.Named("app"), ledger: backend}

	rules := cfg.AuctionRules
	auctionSvc := usecase.NewAuctionService(backend.store, rules, logger)
	a.roster = usecase.NewRosterService(backend.store, rules, idgen.NewUUIDGenerator(), logger)
	a.board = usecase.NewBoardService(backend.store, cfg.BoardCacheTTL, logger)

	a.feed = httpapi.NewConsoleFeed()
	a.console, err = bidding.New(auctionSvc, bidding.Options{
		Rules:          rules,
		FlushThreshold: cfg.CoordinatorFlushThreshold,
		FlushDelay:     cfg.CoordinatorFlushDelay,
		Increment:      rules.BidIncrement,
		Workers:        cfg.CoordinatorWorkers,
		Logger:         logger,
		OnProjection:   a.feed.Publish,
		OnNotice:       a.logNotice,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build bid coordinator: %w", err)
	}

	if cfg.NATSURL != "" {
		a.nc, err = events.Connect(cfg.NATSURL, cfg.ServiceName, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.relay = events.NewRelay(a.nc, events.RelayConfig{SubjectPrefix: cfg.NATSSubjectPrefix}, logger)
	}

	var verifier httpapi.TokenVerifier
	if cfg.AdminAuthEnabled {
		verifier = anubis.NewClient(nil, anubis.Config{
			BaseURL:        cfg.AnubisBaseURL,
			IntrospectPath: cfg.AnubisIntrospectURL,
			AdminKey:       cfg.AnubisAdminKey,
			Timeout:        cfg.AnubisTimeout,
			CircuitBreaker: cfg.AnubisCircuitBreaker(),
			CacheTTL:       cfg.AnubisCacheTTL,
		}, logger)
	}

	handler := httpapi.NewHandler(auctionSvc, a.roster, a.board, a.console, a.feed, backend.store, cfg.CORSAllowedOrigins, logger)
	router := httpapi.NewRouter(handler, verifier, logger, httpapi.RouterOptions{
		SwaggerEnabled:     cfg.SwaggerEnabled,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AdminAuthEnabled:   cfg.AdminAuthEnabled,
	})

	a.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	return a, nil
}

// Run seeds the singleton documents, then serves until ctx is done or one
// of the background loops fails.
func (a *App) Run(ctx context.Context) error {
	if _, err := a.roster.EnsureTournament(ctx); err != nil {
		return fmt.Errorf("ensure tournament: %w", err)
	}
	if _, err := a.roster.EnsureAuctionState(ctx); err != nil {
		return fmt.Errorf("ensure auction state: %w", err)
	}

	consoleSub, err := a.ledger.store.Subscribe(ctx, ledger.TopicTournament, ledger.TopicAuctionState, ledger.TopicTeams)
	if err != nil {
		return fmt.Errorf("subscribe bid coordinator: %w", err)
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		return ignoreCanceled(a.console.Run(ctx, consoleSub))
	})
	p.Go(func(ctx context.Context) error {
		return ignoreCanceled(a.board.Run(ctx))
	})
	if a.ledger.listen != nil {
		p.Go(func(ctx context.Context) error {
			return ignoreCanceled(a.ledger.listen(ctx))
		})
	}
	if a.relay != nil {
		p.Go(func(ctx context.Context) error {
			return ignoreCanceled(a.relay.Run(ctx, a.ledger.store))
		})
	}
	p.Go(a.serveHTTP)

	return p.Wait()
}

func (a *App) serveHTTP(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", "addr", a.cfg.HTTPAddr, "ledger_driver", a.cfg.LedgerDriver)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		a.logger.Info("http server stopped")
		return nil
	}
}

// Close releases resources in reverse order of construction. Safe after a
// partial New.
func (a *App) Close() {
	if a.console != nil {
		a.console.Close()
	}
	if a.feed != nil {
		a.feed.Close()
	}
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			a.logger.Warn("drain nats connection", "error", err)
		}
	}
	if a.ledger != nil {
		a.ledger.close()
	}
}

func (a *App) logNotice(n bidding.Notice) {
	switch n.Kind {
	case bidding.NoticeFlushFailed:
		a.logger.Warn("console batch rejected", "player_id", n.PlayerID, "count", n.Count, "error", n.Err)
	case bidding.NoticeDiscarded:
		a.logger.Info("console bids discarded", "player_id", n.PlayerID, "count", n.Count)
	default:
		a.logger.Debug("console batch committed", "player_id", n.PlayerID, "count", n.Count)
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
