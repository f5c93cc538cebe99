package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// PlaceBidInput is one bid raised directly against the ledger.
type PlaceBidInput struct {
	TeamID string
	Amount int64
}

// SaleResult is what markPlayerSold wrote.
type SaleResult struct {
	Player player.Player
	Team   team.Team
	Amount int64
}

// AuctionService runs every auction mutation as one ledger transaction.
// Transaction bodies may run more than once, so results are captured in
// locals that each attempt overwrites.
type AuctionService struct {
	store  ledger.Store
	rules  auction.Rules
	logger *logging.Logger
	now    func() time.Time
	intn   func(n int) int
}

func NewAuctionService(store ledger.Store, rules auction.Rules, logger *logging.Logger) *AuctionService {
	if logger == nil {
		logger = logging.Default()
	}

	return &AuctionService{
		store:  store,
		rules:  rules,
		logger: logger.Named("usecase.auction"),
		now:    time.Now,
		intn:   rand.IntN,
	}
}

func (s *AuctionService) Rules() auction.Rules {
	return s.rules
}

// SetCurrentPlayer puts a player on the block with an empty history and the
// opening amount as the current bid.
func (s *AuctionService) SetCurrentPlayer(ctx context.Context, playerID string) (auction.State, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuctionService.SetCurrentPlayer", playerAttr(playerID))
	defer span.End()

	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return auction.State{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}

	var next auction.State
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		state, err := txAuctionState(ctx, tx)
		if err != nil {
			return err
		}
		if state.Status == auction.StatusLive {
			return fmt.Errorf("%w: player=%s is on the block", auction.ErrAuctionLive, state.CurrentPlayerID)
		}

		p, err := txPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}
		if p.IsAssigned() {
			return fmt.Errorf("%w: player=%s status=%s", auction.ErrPlayerAlreadyAssigned, p.ID, p.Status)
		}

		p.BidHistory = nil
		tx.PutPlayer(p)

		next = auction.State{
			CurrentPlayerID: p.ID,
			CurrentBid:      s.rules.OpeningBid,
			Status:          auction.StatusIdle,
		}
		tx.PutAuctionState(next)
		return nil
	})
	if err != nil {
		return auction.State{}, wrapLedgerError("set current player", err)
	}

	s.logger.InfoContext(ctx, "current player set", "player_id", playerID)
	return next, nil
}

// StartAuction opens bidding on the current player.
func (s *AuctionService) StartAuction(ctx context.Context) (auction.State, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuctionService.StartAuction")
	defer span.End()

	var next auction.State
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		state, err := txAuctionState(ctx, tx)
		if err != nil {
			return err
		}
		if !state.HasCurrentPlayer() {
			return auction.ErrNoActivePlayer
		}
		if state.Status == auction.StatusLive {
			return auction.ErrAuctionLive
		}

		next = auction.State{
			CurrentPlayerID: state.CurrentPlayerID,
			CurrentBid:      s.rules.OpeningBid,
			Status:          auction.StatusLive,
		}
		tx.PutAuctionState(next)
		return nil
	})
	if err != nil {
		return auction.State{}, wrapLedgerError("start auction", err)
	}

	s.logger.InfoContext(ctx, "auction started", "player_id", next.CurrentPlayerID)
	return next, nil
}

// StopAuction closes bidding and resets the block to the no-bids baseline.
// The player stays on the block.
func (s *AuctionService) StopAuction(ctx context.Context) (auction.State, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuctionService.StopAuction")
	defer span.End()

	var next auction.State
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		state, err := requireLive(ctx, tx)
		if err != nil {
			return err
		}

		next = auction.State{
			CurrentPlayerID: state.CurrentPlayerID,
			CurrentBid:      s.rules.OpeningBid,
			Status:          auction.StatusIdle,
		}
		tx.PutAuctionState(next)
		return nil
	})
	if err != nil {
		return auction.State{}, wrapLedgerError("stop auction", err)
	}

	s.logger.InfoContext(ctx, "auction stopped", "player_id", next.CurrentPlayerID)
	return next, nil
}

// PlaceBid records one bid on the current player. Checks run in order:
// opening floor, strictly above the current bid, not the leading team
// again, then the team's purse and roster.
func (s *AuctionService) PlaceBid(ctx context.Context, input PlaceBidInput) (auction.State, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuctionService.PlaceBid",
		teamAttr(input.TeamID), amountAttr(input.Amount))
	defer span.End()

	input.TeamID = strings.TrimSpace(input.TeamID)
	if input.TeamID == "" {
		return auction.State{}, fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}
	if input.Amount <= 0 {
		return auction.State{}, fmt.Errorf("%w: bid amount must be > 0", ErrInvalidInput)
	}

	var next auction.State
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		state, err := requireLive(ctx, tx)
		if err != nil {
			return err
		}
		if err := s.rules.CheckOpening(input.Amount); err != nil {
			return err
		}
		if len(state.BidHistory) > 0 && input.Amount <= state.CurrentBid {
			return fmt.Errorf("%w: amount=%d current=%d", auction.ErrBidNotHigher, input.Amount, state.CurrentBid)
		}
		if err := auction.CheckConsecutive(state.BidHistory, input.TeamID); err != nil {
			return err
		}

		p, err := txPlayer(ctx, tx, state.CurrentPlayerID)
		if err != nil {
			return err
		}
		t, err := txTeam(ctx, tx, input.TeamID)
		if err != nil {
			return err
		}
		teamSize, err := txTeamSize(ctx, tx, s.rules)
		if err != nil {
			return err
		}
		if err := t.Funds(s.rules, teamSize).CheckPurse(input.Amount); err != nil {
			return err
		}

		bid := auction.Bid{
			TeamID:    t.ID,
			TeamName:  t.Name,
			Amount:    input.Amount,
			Timestamp: s.now().UTC(),
		}
		next = state.Clone()
		next.BidHistory = auction.Append(state.BidHistory, bid)
		next.CurrentBid = bid.Amount
		next.LeadingTeamID = bid.TeamID
		p.BidHistory = auction.Append(p.BidHistory, bid)

		tx.PutAuctionState(next)
		tx.PutPlayer(p)
		return nil
	})
	if err != nil {
		return auction.State{}, wrapLedgerError("place bid", err)
	}

	s.logger.InfoContext(ctx, "bid placed",
		"player_id", next.CurrentPlayerID,
		"team_id", input.TeamID,
		"amount", input.Amount,
	)
	return next, nil
}

// CommitPendingBids appends a buffered batch to both bid histories in one
// transaction. It fails without writing if the block has moved to another
// player. Bids are otherwise trusted unless the rules ask for strict batches.
func (s *AuctionService) CommitPendingBids(ctx context.Context, playerID string, bids []auction.Bid) (auction.State, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuctionService.CommitPendingBids",
		playerAttr(playerID), attribute.Int("auction.batch_size", len(bids)))
	defer span.End()

	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return auction.State{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}
	for i, bid := range bids {
		if strings.TrimSpace(bid.TeamID) == "" {
			return auction.State{}, fmt.Errorf("%w: bid %d has no team id", ErrInvalidInput, i)
		}
		if bid.Amount <= 0 {
			return auction.State{}, fmt.Errorf("%w: bid %d amount must be > 0", ErrInvalidInput, i)
		}
	}

	var next auction.State
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		state, err := txAuctionState(ctx, tx)
		if err != nil {
			return err
		}
		if state.CurrentPlayerID != playerID {
			return fmt.Errorf("%w: batch for player=%s, block has player=%s",
				auction.ErrPlayerChanged, playerID, state.CurrentPlayerID)
		}
		if len(bids) == 0 {
			next = state
			return nil
		}

		batch, err := s.prepareBatch(ctx, tx, state.BidHistory, bids)
		if err != nil {
			return err
		}
		p, err := txPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}

		next = state.Clone()
		next.BidHistory = auction.Append(state.BidHistory, batch...)
		next.CurrentBid, next.LeadingTeamID = auction.Lead(next.BidHistory)
		p.BidHistory = auction.Append(p.BidHistory, batch...)

		tx.PutAuctionState(next)
		tx.PutPlayer(p)
		return nil
	})
	if err != nil {
		return auction.State{}, wrapLedgerError("commit pending bids", err)
	}

	if len(bids) > 0 {
		s.logger.InfoContext(ctx, "pending bids committed",
			"player_id", playerID,
			"count", len(bids),
			"current_bid", next.CurrentBid,
			"leading_team_id", next.LeadingTeamID,
		)
	}
	return next, nil
}

// prepareBatch fills team names and timestamps the caller left empty and,
// with strict batches, checks every bid against the history before it.
func (s *AuctionService) prepareBatch(ctx context.Context, tx ledger.Tx, committed, bids []auction.Bid) ([]auction.Bid, error) {
	batch := make([]auction.Bid, 0, len(bids))
	teams := make(map[string]team.Team)
	needTeam := func(id string) (team.Team, error) {
		if t, ok := teams[id]; ok {
			return t, nil
		}
		t, err := txTeam(ctx, tx, id)
		if err != nil {
			return team.Team{}, err
		}
		teams[id] = t
		return t, nil
	}

	teamSize := 0
	if s.rules.StrictBatches {
		size, err := txTeamSize(ctx, tx, s.rules)
		if err != nil {
			return nil, err
		}
		teamSize = size
	}

	now := s.now().UTC()
	for _, bid := range bids {
		if bid.TeamName == "" || s.rules.StrictBatches {
			t, err := needTeam(bid.TeamID)
			if err != nil {
				return nil, err
			}
			if bid.TeamName == "" {
				bid.TeamName = t.Name
			}
			if s.rules.StrictBatches {
				if err := s.checkBatchedBid(auction.Combine(committed, batch), bid, t, teamSize); err != nil {
					return nil, err
				}
			}
		}
		if bid.Timestamp.IsZero() {
			bid.Timestamp = now
		}
		batch = append(batch, bid)
	}
	return batch, nil
}

func (s *AuctionService) checkBatchedBid(history []auction.Bid, bid auction.Bid, t team.Team, teamSize int) error {
	if err := s.rules.CheckOpening(bid.Amount); err != nil {
		return err
	}
	if last, ok := auction.Last(history); ok && bid.Amount <= last.Amount {
		return fmt.Errorf("%w: amount=%d current=%d", auction.ErrBidNotHigher, bid.Amount, last.Amount)
	}
	if err := auction.CheckConsecutive(history, bid.TeamID); err != nil {
		return err
	}
	return t.Funds(s.rules, teamSize).CheckMaxBid(bid.Amount)
}

// UpdateLiveBid writes the lightweight current-bid hint without touching the
// history. Hints arrive asynchronously, so one raised for another player, one
// landing after bidding closed, or one at or below the last committed bid is
// ignored.
func (s *AuctionService) UpdateLiveBid(ctx context.Context, playerID, teamID string, amount int64) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuctionService.UpdateLiveBid",
		playerAttr(playerID), teamAttr(teamID), amountAttr(amount))
	defer span.End()

	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: bid amount must be > 0", ErrInvalidInput)
	}

	applied := false
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		applied = false
		state, err := txAuctionState(ctx, tx)
		if err != nil {
			return err
		}
		if !state.HasCurrentPlayer() {
			return auction.ErrNoActivePlayer
		}
		if state.CurrentPlayerID != playerID || !state.IsLive() {
			return nil
		}
		if last, ok := auction.Last(state.BidHistory); ok && amount <= last.Amount {
			return nil
		}
		if amount < state.CurrentBid || (amount == state.CurrentBid && teamID == state.LeadingTeamID) {
			return nil
		}

		state.CurrentBid = amount
		state.LeadingTeamID = teamID
		tx.PutAuctionState(state)
		applied = true
		return nil
	})
	if err != nil {
		return wrapLedgerError("update live bid", err)
	}
	if !applied {
		s.logger.DebugContext(ctx, "live bid hint ignored", "player_id", playerID, "team_id", teamID, "amount", amount)
	}
	return nil
}

// MarkPlayerSold sells the current player to the team holding the last bid.
func (s *AuctionService) MarkPlayerSold(ctx context.Context) (SaleResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuctionService.MarkPlayerSold")
	defer span.End()

	var result SaleResult
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		state, err := requireLive(ctx, tx)
		if err != nil {
			return err
		}
		winning, ok := auction.Last(state.BidHistory)
		if !ok {
			return auction.ErrNoBids
		}

		t, err := txTeam(ctx, tx, winning.TeamID)
		if err != nil {
			return err
		}
		teamSize, err := txTeamSize(ctx, tx, s.rules)
		if err != nil {
			return err
		}
		if err := t.Funds(s.rules, teamSize).CheckPurse(winning.Amount); err != nil {
			return err
		}
		p, err := txPlayer(ctx, tx, state.CurrentPlayerID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		t.Charge(winning.Amount, s.rules, teamSize, now)
		p.Status = player.StatusSold
		p.SoldToTeamID = t.ID
		p.SoldPrice = winning.Amount
		p.SoldAt = now
		p.BidHistory = auction.Combine(state.BidHistory)

		tx.PutTeam(t)
		tx.PutPlayer(p)
		tx.PutAuctionState(auction.IdleState())

		result = SaleResult{Player: p, Team: t, Amount: winning.Amount}
		return nil
	})
	if err != nil {
		return SaleResult{}, wrapLedgerError("mark player sold", err)
	}

	s.logger.InfoContext(ctx, "player sold",
		"player_id", result.Player.ID,
		"team_id", result.Team.ID,
		"amount", result.Amount,
	)
	return result, nil
}

// MarkPlayerUnsold closes a block that drew no bids. The player returns to
// the pool behind every AVAILABLE player.
func (s *AuctionService) MarkPlayerUnsold(ctx context.Context) (player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuctionService.MarkPlayerUnsold")
	defer span.End()

	var result player.Player
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		state, err := requireLive(ctx, tx)
		if err != nil {
			return err
		}
		if len(state.BidHistory) > 0 {
			return fmt.Errorf("%w: %d bids recorded", auction.ErrHasBids, len(state.BidHistory))
		}

		p, err := txPlayer(ctx, tx, state.CurrentPlayerID)
		if err != nil {
			return err
		}
		p.Status = player.StatusUnsold
		p.ClearSale()
		// SoldAt doubles as the closing time so completed views can order unsold players.
		p.SoldAt = s.now().UTC()
		p.BidHistory = nil

		tx.PutPlayer(p)
		tx.PutAuctionState(auction.IdleState())
		result = p
		return nil
	})
	if err != nil {
		return player.Player{}, wrapLedgerError("mark player unsold", err)
	}

	s.logger.InfoContext(ctx, "player unsold", "player_id", result.ID)
	return result, nil
}

// DeleteBidAtIndex removes one bid from the block and re-derives the lead
// from the new last bid.
func (s *AuctionService) DeleteBidAtIndex(ctx context.Context, index int) (auction.State, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuctionService.DeleteBidAtIndex")
	defer span.End()

	var (
		next    auction.State
		removed auction.Bid
	)
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		state, err := txAuctionState(ctx, tx)
		if err != nil {
			return err
		}
		if !state.HasCurrentPlayer() {
			return auction.ErrNoActivePlayer
		}

		history, bid, err := auction.RemoveAt(state.BidHistory, index)
		if err != nil {
			return err
		}
		p, err := txPlayer(ctx, tx, state.CurrentPlayerID)
		if err != nil {
			return err
		}
		p.BidHistory = auction.RemoveMirrored(p.BidHistory, len(state.BidHistory), index, bid)

		next = state.Clone()
		next.BidHistory = history
		next.CurrentBid, next.LeadingTeamID = auction.Lead(history)

		tx.PutAuctionState(next)
		tx.PutPlayer(p)
		removed = bid
		return nil
	})
	if err != nil {
		return auction.State{}, wrapLedgerError("delete bid", err)
	}

	s.logger.InfoContext(ctx, "bid deleted",
		"player_id", next.CurrentPlayerID,
		"index", index,
		"team_id", removed.TeamID,
		"amount", removed.Amount,
	)
	return next, nil
}

// PickRandomPlayer draws uniformly from the available pool, skipping the
// player on the block and excludeID. ok is false when the pool is empty.
func (s *AuctionService) PickRandomPlayer(ctx context.Context, excludeID string) (player.Player, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuctionService.PickRandomPlayer")
	defer span.End()

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return player.Player{}, false, wrapLedgerError("pick random player", err)
	}

	candidates := make([]player.Player, 0, len(snap.Players))
	for _, p := range player.Available(snap.Players) {
		if p.ID == excludeID || p.ID == snap.Auction.CurrentPlayerID {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return player.Player{}, false, nil
	}
	return candidates[s.intn(len(candidates))], true, nil
}

// DeletePlayer removes a player, refunding the owning team first when the
// player was sold or drafted.
func (s *AuctionService) DeletePlayer(ctx context.Context, playerID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuctionService.DeletePlayer", playerAttr(playerID))
	defer span.End()

	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}

	var refunded int64
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		refunded = 0
		p, err := txPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}

		if p.IsAssigned() && p.SoldToTeamID != "" {
			t, ok, err := tx.Team(ctx, p.SoldToTeamID)
			if err != nil {
				return fmt.Errorf("get team id=%s: %w", p.SoldToTeamID, err)
			}
			if !ok {
				return fmt.Errorf("%w: team id=%s owning player id=%s", ErrNotFound, p.SoldToTeamID, p.ID)
			}
			teamSize, err := txTeamSize(ctx, tx, s.rules)
			if err != nil {
				return err
			}
			now := s.now().UTC()
			if p.Status == player.StatusDrafted {
				t.ReleaseFree(s.rules, teamSize, now)
			} else {
				t.Refund(p.SoldPrice, s.rules, teamSize, now)
				refunded = p.SoldPrice
			}
			tx.PutTeam(t)
		}

		state, err := txAuctionState(ctx, tx)
		if err != nil {
			return err
		}
		if state.CurrentPlayerID == p.ID {
			tx.PutAuctionState(auction.IdleState())
		}

		tx.DeletePlayer(p.ID)
		return nil
	})
	if err != nil {
		return wrapLedgerError("delete player", err)
	}

	s.logger.InfoContext(ctx, "player deleted", "player_id", playerID, "refunded", refunded)
	return nil
}

// AssignPlayerToTeamNoPurse drafts a player onto a team at no cost.
func (s *AuctionService) AssignPlayerToTeamNoPurse(ctx context.Context, playerID, teamID string) (player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuctionService.AssignPlayerToTeamNoPurse",
		playerAttr(playerID), teamAttr(teamID))
	defer span.End()

	playerID = strings.TrimSpace(playerID)
	teamID = strings.TrimSpace(teamID)
	if playerID == "" || teamID == "" {
		return player.Player{}, fmt.Errorf("%w: player id and team id are required", ErrInvalidInput)
	}

	var result player.Player
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		p, err := txPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}
		if p.IsAssigned() {
			return fmt.Errorf("%w: player=%s status=%s", auction.ErrPlayerAlreadyAssigned, p.ID, p.Status)
		}

		state, err := txAuctionState(ctx, tx)
		if err != nil {
			return err
		}
		if state.CurrentPlayerID == p.ID {
			if state.Status == auction.StatusLive {
				return fmt.Errorf("%w: player=%s is on the block", auction.ErrAuctionLive, p.ID)
			}
			tx.PutAuctionState(auction.IdleState())
		}

		t, err := txTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}
		teamSize, err := txTeamSize(ctx, tx, s.rules)
		if err != nil {
			return err
		}
		if t.OpenSlots(s.rules, teamSize) <= 0 {
			return fmt.Errorf("%w: team=%s", auction.ErrRosterFull, t.ID)
		}

		now := s.now().UTC()
		t.AddFree(s.rules, teamSize, now)
		p.Status = player.StatusDrafted
		p.SoldToTeamID = t.ID
		p.SoldPrice = 0
		p.SoldAt = now
		p.BidHistory = nil

		tx.PutTeam(t)
		tx.PutPlayer(p)
		result = p
		return nil
	})
	if err != nil {
		return player.Player{}, wrapLedgerError("assign player", err)
	}

	s.logger.InfoContext(ctx, "player drafted", "player_id", playerID, "team_id", teamID)
	return result, nil
}
