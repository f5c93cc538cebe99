package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/domain/tournament"
	"github.com/riskibarqy/auction-ledger/internal/platform/cache"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
)

const boardCacheKey = "board"

// Board is the read model shown to viewers and the auction console.
type Board struct {
	Version       uint64
	Tournament    tournament.Tournament
	Auction       auction.State
	Teams         []team.Team
	Players       []player.Player
	CurrentPlayer *player.Player
	LeadingTeam   *team.Team
	// Available is the pickable pool without the player on the block.
	Available []player.Player
	Completed []player.Player
}

// BoardService serves derived read views from a short-lived cache that
// ledger subscriptions invalidate.
type BoardService struct {
	store  ledger.Store
	cache  *cache.Store[Board]
	logger *logging.Logger
}

func NewBoardService(store ledger.Store, ttl time.Duration, logger *logging.Logger) *BoardService {
	if logger == nil {
		logger = logging.Default()
	}
	return &BoardService{
		store:  store,
		cache:  cache.NewStore[Board](ttl),
		logger: logger.Named("usecase.board"),
	}
}

func (s *BoardService) Board(ctx context.Context) (Board, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BoardService.Board")
	defer span.End()

	board, err := s.cache.GetOrLoad(ctx, boardCacheKey, func(ctx context.Context) (Board, error) {
		snap, err := s.store.Snapshot(ctx)
		if err != nil {
			return Board{}, err
		}
		return BuildBoard(snap), nil
	})
	if err != nil {
		return Board{}, wrapLedgerError("load board", err)
	}
	return board, nil
}

func (s *BoardService) AvailablePlayers(ctx context.Context) ([]player.Player, error) {
	board, err := s.Board(ctx)
	if err != nil {
		return nil, err
	}
	return board.Available, nil
}

func (s *BoardService) CompletedPlayers(ctx context.Context, order player.CompletedSort) ([]player.Player, error) {
	if _, ok := player.ParseCompletedSort(string(order)); !ok {
		return nil, fmt.Errorf("%w: unknown sort %q", ErrInvalidInput, order)
	}
	board, err := s.Board(ctx)
	if err != nil {
		return nil, err
	}
	return player.Completed(board.Players, order), nil
}

// Run drops the cached board on every commit until ctx is done.
func (s *BoardService) Run(ctx context.Context) error {
	sub, err := s.store.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe ledger: %w", err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			s.cache.Purge(ctx)
			s.logger.DebugContext(ctx, "board cache invalidated", "version", snap.Version)
		}
	}
}

// BuildBoard derives every read view from one snapshot.
func BuildBoard(snap ledger.Snapshot) Board {
	board := Board{
		Version:    snap.Version,
		Tournament: snap.Tournament,
		Auction:    snap.Auction.Clone(),
		Teams:      snap.Teams,
		Players:    snap.Players,
		Completed:  player.Completed(snap.Players, player.SortTimeDesc),
	}
	if !snap.HasTournament {
		board.Tournament = tournament.Default()
	}
	if !snap.HasAuction {
		board.Auction = auction.IdleState()
	}

	if p, ok := snap.Player(board.Auction.CurrentPlayerID); ok {
		board.CurrentPlayer = &p
	}
	if t, ok := snap.Team(board.Auction.LeadingTeamID); ok {
		board.LeadingTeam = &t
	}

	available := player.Available(snap.Players)
	board.Available = make([]player.Player, 0, len(available))
	for _, p := range available {
		if p.ID != board.Auction.CurrentPlayerID {
			board.Available = append(board.Available, p)
		}
	}
	return board
}
