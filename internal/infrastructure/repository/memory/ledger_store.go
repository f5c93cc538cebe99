package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/domain/tournament"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
	"github.com/riskibarqy/auction-ledger/internal/platform/pubsub"
	"github.com/riskibarqy/auction-ledger/internal/platform/resilience"
)

const (
	keyTournament = "tournament"
	keyAuction    = "auctionState"
	keyTeams      = "teams/*"
	keyPlayers    = "players/*"
)

type versioned[T any] struct {
	value   T
	version uint64
}

// LedgerStore is an in-process ledger with optimistic concurrency: every
// document carries the version that last wrote it, a transaction records
// the versions it read, and commit rejects the transaction if any of them
// moved. Rejected transactions are rerun against fresh state.
type LedgerStore struct {
	mu sync.RWMutex

	version    uint64
	tournament *versioned[tournament.Tournament]
	auction    *versioned[auction.State]
	teams      map[string]versioned[team.Team]
	players    map[string]versioned[player.Player]
	// Bumped by any team or player write; guards list reads.
	teamsVersion   uint64
	playersVersion uint64

	hub    *pubsub.Hub[ledger.Snapshot]
	retry  resilience.RetryConfig
	logger *logging.Logger
}

func NewLedgerStore(retry resilience.RetryConfig, logger *logging.Logger) *LedgerStore {
	if logger == nil {
		logger = logging.Default()
	}
	s := &LedgerStore{
		teams:   make(map[string]versioned[team.Team]),
		players: make(map[string]versioned[player.Player]),
		hub:     pubsub.NewHub[ledger.Snapshot](),
		logger:  logger.Named("ledger.memory"),
	}
	retry.OnRetry = func(err error, wait time.Duration) {
		s.logger.Debug("ledger transaction conflict, retrying", "wait", wait, "error", err)
	}
	s.retry = retry
	return s
}

func (s *LedgerStore) RunTx(ctx context.Context, fn ledger.TxFunc) error {
	attempts := 0
	err := resilience.Retry(ctx, s.retry, isConflict, func(ctx context.Context) error {
		attempts++
		tx := &memoryTx{store: s, reads: make(map[string]uint64)}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return s.commit(tx)
	})
	if isConflict(err) {
		s.logger.WarnContext(ctx, "ledger transaction aborted", "attempts", attempts)
		return crerr.Wrapf(err, "ledger transaction aborted after %d attempts", attempts)
	}
	return err
}

func (s *LedgerStore) Snapshot(_ context.Context) (ledger.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(ledger.AllTopics), nil
}

func (s *LedgerStore) Subscribe(ctx context.Context, topics ...ledger.Topic) (ledger.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := s.hub.Subscribe(s.snapshotLocked(ledger.AllTopics), func(snap ledger.Snapshot) bool {
		return snap.Touches(topics...)
	})
	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub, nil
}

// Close ends every subscription.
func (s *LedgerStore) Close() {
	s.hub.Close()
}

func (s *LedgerStore) commit(tx *memoryTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, seen := range tx.reads {
		if current := s.versionLocked(key); current != seen {
			return fmt.Errorf("%w: %s read at v%d, now v%d", ledger.ErrConflict, key, seen, current)
		}
	}
	if tx.Empty() {
		return nil
	}

	s.version++
	v := s.version
	if t, ok := tx.StagedTournament(); ok {
		s.tournament = &versioned[tournament.Tournament]{value: t, version: v}
	}
	if st, ok := tx.StagedAuctionState(); ok {
		s.auction = &versioned[auction.State]{value: st, version: v}
	}
	_ = tx.EachTeam(func(id string, t *team.Team) error {
		s.teamsVersion = v
		if t == nil {
			delete(s.teams, id)
			return nil
		}
		s.teams[id] = versioned[team.Team]{value: *t, version: v}
		return nil
	})
	_ = tx.EachPlayer(func(id string, p *player.Player) error {
		s.playersVersion = v
		if p == nil {
			delete(s.players, id)
			return nil
		}
		s.players[id] = versioned[player.Player]{value: p.Clone(), version: v}
		return nil
	})

	s.hub.Publish(s.snapshotLocked(tx.Topics()))
	return nil
}

func (s *LedgerStore) versionLocked(key string) uint64 {
	switch key {
	case keyTournament:
		if s.tournament == nil {
			return 0
		}
		return s.tournament.version
	case keyAuction:
		if s.auction == nil {
			return 0
		}
		return s.auction.version
	case keyTeams:
		return s.teamsVersion
	case keyPlayers:
		return s.playersVersion
	}
	if id, ok := strings.CutPrefix(key, "team/"); ok {
		return s.teams[id].version
	}
	if id, ok := strings.CutPrefix(key, "player/"); ok {
		return s.players[id].version
	}
	return 0
}

func (s *LedgerStore) snapshotLocked(topics []ledger.Topic) ledger.Snapshot {
	snap := ledger.Snapshot{
		Version: s.version,
		Topics:  append([]ledger.Topic(nil), topics...),
		Teams:   make([]team.Team, 0, len(s.teams)),
		Players: make([]player.Player, 0, len(s.players)),
	}
	if s.tournament != nil {
		snap.Tournament = s.tournament.value
		snap.HasTournament = true
	}
	if s.auction != nil {
		snap.Auction = s.auction.value.Clone()
		snap.HasAuction = true
	}
	for _, t := range s.teams {
		snap.Teams = append(snap.Teams, t.value)
	}
	for _, p := range s.players {
		snap.Players = append(snap.Players, p.value.Clone())
	}
	ledger.SortTeams(snap.Teams)
	ledger.SortPlayers(snap.Players)
	return snap
}

func isConflict(err error) bool {
	return errors.Is(err, ledger.ErrConflict)
}

// memoryTx reads straight from the store and records what it saw.
type memoryTx struct {
	ledger.Changeset
	store *LedgerStore
	reads map[string]uint64
}

func (tx *memoryTx) observe(key string, version uint64) {
	if _, ok := tx.reads[key]; !ok {
		tx.reads[key] = version
	}
}

func (tx *memoryTx) Tournament(_ context.Context) (tournament.Tournament, bool, error) {
	if t, ok := tx.StagedTournament(); ok {
		return t, true, nil
	}
	s := tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tournament == nil {
		tx.observe(keyTournament, 0)
		return tournament.Tournament{}, false, nil
	}
	tx.observe(keyTournament, s.tournament.version)
	return s.tournament.value, true, nil
}

func (tx *memoryTx) AuctionState(_ context.Context) (auction.State, bool, error) {
	if st, ok := tx.StagedAuctionState(); ok {
		return st, true, nil
	}
	s := tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.auction == nil {
		tx.observe(keyAuction, 0)
		return auction.State{}, false, nil
	}
	tx.observe(keyAuction, s.auction.version)
	return s.auction.value.Clone(), true, nil
}

func (tx *memoryTx) Team(_ context.Context, id string) (team.Team, bool, error) {
	if t, deleted, staged := tx.StagedTeam(id); staged {
		return t, !deleted, nil
	}
	s := tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.teams[id]
	tx.observe("team/"+id, v.version)
	return v.value, ok, nil
}

func (tx *memoryTx) Player(_ context.Context, id string) (player.Player, bool, error) {
	if p, deleted, staged := tx.StagedPlayer(id); staged {
		return p, !deleted, nil
	}
	s := tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.players[id]
	tx.observe("player/"+id, v.version)
	return v.value.Clone(), ok, nil
}

func (tx *memoryTx) Teams(_ context.Context) ([]team.Team, error) {
	s := tx.store
	s.mu.RLock()
	tx.observe(keyTeams, s.teamsVersion)
	out := make([]team.Team, 0, len(s.teams))
	for _, v := range s.teams {
		out = append(out, v.value)
	}
	s.mu.RUnlock()

	ledger.SortTeams(out)
	return tx.OverlayTeams(out), nil
}

func (tx *memoryTx) Players(_ context.Context) ([]player.Player, error) {
	s := tx.store
	s.mu.RLock()
	tx.observe(keyPlayers, s.playersVersion)
	out := make([]player.Player, 0, len(s.players))
	for _, v := range s.players {
		out = append(out, v.value.Clone())
	}
	s.mu.RUnlock()

	ledger.SortPlayers(out)
	return tx.OverlayPlayers(out), nil
}
