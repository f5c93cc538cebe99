package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/domain/tournament"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
	"github.com/riskibarqy/auction-ledger/internal/platform/pubsub"
	qb "github.com/riskibarqy/auction-ledger/internal/platform/querybuilder"
	"github.com/riskibarqy/auction-ledger/internal/platform/resilience"
)

const (
	tableLedgerMeta   = "ledger_meta"
	tableTournament   = "tournament"
	tableAuctionState = "auction_state"
	tableTeams        = "teams"
	tablePlayers      = "players"
)

// LedgerStore keeps the ledger in postgres. Transactions run SERIALIZABLE
// and every commit bumps ledger_meta.version, so any two concurrent writers
// conflict and the loser is rerun. Commits announce themselves with
// pg_notify so every process can refresh its subscribers.
type LedgerStore struct {
	db      *sqlx.DB
	channel string
	retry   resilience.RetryConfig
	logger  *logging.Logger

	// attempt and load default to the database; tests swap them out.
	attempt func(context.Context, ledger.TxFunc) (uint64, []ledger.Topic, error)
	load    func(context.Context) (ledger.Snapshot, error)

	hub           *pubsub.Hub[ledger.Snapshot]
	publishMu     sync.Mutex
	lastPublished uint64
}

func NewLedgerStore(db *sqlx.DB, channel string, retry resilience.RetryConfig, logger *logging.Logger) *LedgerStore {
	if logger == nil {
		logger = logging.Default()
	}
	s := &LedgerStore{
		db:      db,
		channel: channel,
		hub:     pubsub.NewHub[ledger.Snapshot](),
		logger:  logger.Named("ledger.postgres"),
	}
	s.attempt = s.runOnce
	s.load = s.Snapshot
	retry.OnRetry = func(err error, wait time.Duration) {
		s.logger.Debug("ledger transaction conflict, retrying", "wait", wait, "error", err)
	}
	s.retry = retry
	return s
}

func (s *LedgerStore) RunTx(ctx context.Context, fn ledger.TxFunc) error {
	var (
		committed uint64
		topics    []ledger.Topic
		attempts  int
	)
	err := resilience.Retry(ctx, s.retry, isRetryable, func(ctx context.Context) error {
		attempts++
		version, touched, err := s.attempt(ctx, fn)
		if err != nil {
			return err
		}
		committed, topics = version, touched
		return nil
	})
	if err != nil {
		if isRetryable(err) {
			s.logger.WarnContext(ctx, "ledger transaction aborted", "attempts", attempts, "error", err)
			return crerr.Wrapf(crerr.Mark(err, ledger.ErrConflict), "ledger transaction aborted after %d attempts", attempts)
		}
		return err
	}
	if committed > 0 {
		s.refresh(ctx, committed, topics)
	}
	return nil
}

func (s *LedgerStore) runOnce(ctx context.Context, fn ledger.TxFunc) (uint64, []ledger.Topic, error) {
	sqlTx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, nil, fmt.Errorf("begin ledger transaction: %w", err)
	}
	tx := &pgTx{tx: sqlTx}

	if err := fn(ctx, tx); err != nil {
		_ = sqlTx.Rollback()
		return 0, nil, err
	}
	if tx.Empty() {
		return 0, nil, sqlTx.Commit()
	}

	version, err := tx.flush(ctx, s.channel)
	if err != nil {
		_ = sqlTx.Rollback()
		return 0, nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("commit ledger transaction: %w", err)
	}
	return version, tx.Topics(), nil
}

func (s *LedgerStore) Snapshot(ctx context.Context) (ledger.Snapshot, error) {
	sqlTx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	tx := &pgTx{tx: sqlTx}
	snap := ledger.Snapshot{Topics: append([]ledger.Topic(nil), ledger.AllTopics...)}

	var version int64
	if err := sqlTx.GetContext(ctx, &version, "SELECT version FROM "+tableLedgerMeta+" WHERE id = 1"); err != nil && !isNotFound(err) {
		return ledger.Snapshot{}, fmt.Errorf("select ledger version: %w", err)
	}
	snap.Version = uint64(version)

	if snap.Tournament, snap.HasTournament, err = tx.Tournament(ctx); err != nil {
		return ledger.Snapshot{}, err
	}
	if snap.Auction, snap.HasAuction, err = tx.AuctionState(ctx); err != nil {
		return ledger.Snapshot{}, err
	}
	if snap.Teams, err = tx.Teams(ctx); err != nil {
		return ledger.Snapshot{}, err
	}
	if snap.Players, err = tx.Players(ctx); err != nil {
		return ledger.Snapshot{}, err
	}
	return snap, nil
}

func (s *LedgerStore) Subscribe(ctx context.Context, topics ...ledger.Topic) (ledger.Subscription, error) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sub := s.hub.Subscribe(snap, func(next ledger.Snapshot) bool {
		return next.Touches(topics...)
	})
	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub, nil
}

func (s *LedgerStore) Close() {
	s.hub.Close()
}

// refresh publishes the snapshot for version unless a newer one already went out.
// A snapshot that has moved past version may fold in other commits, so it
// is announced as touching every topic.
func (s *LedgerStore) refresh(ctx context.Context, version uint64, topics []ledger.Topic) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	if version != 0 && version <= s.lastPublished {
		return
	}
	snap, err := s.load(context.WithoutCancel(ctx))
	if err != nil {
		s.logger.WarnContext(ctx, "load ledger snapshot for subscribers", "version", version, "error", err)
		return
	}
	if snap.Version <= s.lastPublished {
		return
	}
	if version == 0 || snap.Version != version || len(topics) == 0 {
		topics = ledger.AllTopics
	}
	snap.Topics = append([]ledger.Topic(nil), topics...)
	s.lastPublished = snap.Version
	s.hub.Publish(snap)
}

type pgTx struct {
	ledger.Changeset
	tx *sqlx.Tx
}

func (t *pgTx) Tournament(ctx context.Context) (tournament.Tournament, bool, error) {
	if staged, ok := t.StagedTournament(); ok {
		return staged, true, nil
	}
	query, args, err := qb.Select(qb.Columns(tournamentTableModel{})...).
		From(tableTournament).
		Where(qb.Eq("id", singletonID)).
		ToSQL()
	if err != nil {
		return tournament.Tournament{}, false, fmt.Errorf("build select tournament query: %w", err)
	}

	var row tournamentTableModel
	if err := t.tx.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return tournament.Tournament{}, false, nil
		}
		return tournament.Tournament{}, false, fmt.Errorf("select tournament: %w", err)
	}
	return tournamentFromRow(row), true, nil
}

func (t *pgTx) AuctionState(ctx context.Context) (auction.State, bool, error) {
	if staged, ok := t.StagedAuctionState(); ok {
		return staged, true, nil
	}
	query, args, err := qb.Select(qb.Columns(auctionStateTableModel{})...).
		From(tableAuctionState).
		Where(qb.Eq("id", singletonID)).
		ToSQL()
	if err != nil {
		return auction.State{}, false, fmt.Errorf("build select auction state query: %w", err)
	}

	var row auctionStateTableModel
	if err := t.tx.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return auction.State{}, false, nil
		}
		return auction.State{}, false, fmt.Errorf("select auction state: %w", err)
	}
	state, err := auctionStateFromRow(row)
	if err != nil {
		return auction.State{}, false, err
	}
	return state, true, nil
}

func (t *pgTx) Team(ctx context.Context, id string) (team.Team, bool, error) {
	if staged, deleted, ok := t.StagedTeam(id); ok {
		return staged, !deleted, nil
	}
	query, args, err := qb.Select(qb.Columns(teamTableModel{})...).
		From(tableTeams).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build select team query: %w", err)
	}

	var row teamTableModel
	if err := t.tx.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("select team id=%s: %w", id, err)
	}
	return teamFromRow(row), true, nil
}

func (t *pgTx) Player(ctx context.Context, id string) (player.Player, bool, error) {
	if staged, deleted, ok := t.StagedPlayer(id); ok {
		return staged, !deleted, nil
	}
	query, args, err := qb.Select(qb.Columns(playerTableModel{})...).
		From(tablePlayers).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build select player query: %w", err)
	}

	var row playerTableModel
	if err := t.tx.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("select player id=%s: %w", id, err)
	}
	p, err := playerFromRow(row)
	if err != nil {
		return player.Player{}, false, err
	}
	return p, true, nil
}

func (t *pgTx) Teams(ctx context.Context) ([]team.Team, error) {
	query, args, err := qb.Select(qb.Columns(teamTableModel{})...).
		From(tableTeams).
		OrderBy("created_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select teams query: %w", err)
	}

	var rows []teamTableModel
	if err := t.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select teams: %w", err)
	}
	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, teamFromRow(row))
	}
	return t.OverlayTeams(out), nil
}

func (t *pgTx) Players(ctx context.Context) ([]player.Player, error) {
	query, args, err := qb.Select(qb.Columns(playerTableModel{})...).
		From(tablePlayers).
		OrderBy("created_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players query: %w", err)
	}

	var rows []playerTableModel
	if err := t.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}
	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		p, err := playerFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return t.OverlayPlayers(out), nil
}

// flush writes the changeset under a fresh ledger version and queues the
// change notification, which postgres delivers only if the commit succeeds.
func (t *pgTx) flush(ctx context.Context, channel string) (uint64, error) {
	query, args, err := qb.Update(tableLedgerMeta).
		SetExpr("version", "version + 1").
		Where(qb.Eq("id", singletonID)).
		Suffix("RETURNING version").
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build bump version query: %w", err)
	}
	var version int64
	if err := t.tx.GetContext(ctx, &version, query, args...); err != nil {
		return 0, fmt.Errorf("bump ledger version: %w", err)
	}

	if staged, ok := t.StagedTournament(); ok {
		if err := t.upsert(ctx, tableTournament, tournamentToRow(staged, version)); err != nil {
			return 0, err
		}
	}
	if staged, ok := t.StagedAuctionState(); ok {
		row, err := auctionStateToRow(staged, version)
		if err != nil {
			return 0, err
		}
		if err := t.upsert(ctx, tableAuctionState, row); err != nil {
			return 0, err
		}
	}
	if err := t.EachTeam(func(id string, staged *team.Team) error {
		if staged == nil {
			return t.delete(ctx, tableTeams, id)
		}
		return t.upsert(ctx, tableTeams, teamToRow(*staged, version))
	}); err != nil {
		return 0, err
	}
	if err := t.EachPlayer(func(id string, staged *player.Player) error {
		if staged == nil {
			return t.delete(ctx, tablePlayers, id)
		}
		row, err := playerToRow(*staged, version)
		if err != nil {
			return err
		}
		return t.upsert(ctx, tablePlayers, row)
	}); err != nil {
		return 0, err
	}

	if channel != "" {
		payload := formatNotification(uint64(version), t.Topics())
		if _, err := t.tx.ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, payload); err != nil {
			return 0, fmt.Errorf("notify ledger change: %w", err)
		}
	}
	return uint64(version), nil
}

func (t *pgTx) upsert(ctx context.Context, table string, row any) error {
	query, args, err := qb.UpsertModel(table, row, "id")
	if err != nil {
		return fmt.Errorf("build upsert %s query: %w", table, err)
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

func (t *pgTx) delete(ctx context.Context, table, id string) error {
	query, args, err := qb.DeleteFrom(table).Where(qb.Eq("id", id)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete %s query: %w", table, err)
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %s id=%s: %w", table, id, err)
	}
	return nil
}
