package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/domain/tournament"
)

// The helpers below read documents inside a ledger transaction and turn
// missing documents into usecase errors.

func txAuctionState(ctx context.Context, tx ledger.Tx) (auction.State, error) {
	state, ok, err := tx.AuctionState(ctx)
	if err != nil {
		return auction.State{}, fmt.Errorf("get auction state: %w", err)
	}
	if !ok {
		return auction.IdleState(), nil
	}
	return state, nil
}

func txTournament(ctx context.Context, tx ledger.Tx) (tournament.Tournament, error) {
	t, ok, err := tx.Tournament(ctx)
	if err != nil {
		return tournament.Tournament{}, fmt.Errorf("get tournament: %w", err)
	}
	if !ok {
		return tournament.Default(), nil
	}
	return t, nil
}

// txTeamSize returns the roster capacity, falling back to the configured default.
func txTeamSize(ctx context.Context, tx ledger.Tx, rules auction.Rules) (int, error) {
	t, ok, err := tx.Tournament(ctx)
	if err != nil {
		return 0, fmt.Errorf("get tournament: %w", err)
	}
	if !ok {
		return rules.DefaultTeamSize, nil
	}
	return rules.TeamSize(t.TeamSize), nil
}

func txTeam(ctx context.Context, tx ledger.Tx, id string) (team.Team, error) {
	t, ok, err := tx.Team(ctx, id)
	if err != nil {
		return team.Team{}, fmt.Errorf("get team id=%s: %w", id, err)
	}
	if !ok {
		return team.Team{}, fmt.Errorf("%w: team id=%s", ErrNotFound, id)
	}
	return t, nil
}

func txPlayer(ctx context.Context, tx ledger.Tx, id string) (player.Player, error) {
	p, ok, err := tx.Player(ctx, id)
	if err != nil {
		return player.Player{}, fmt.Errorf("get player id=%s: %w", id, err)
	}
	if !ok {
		return player.Player{}, fmt.Errorf("%w: player id=%s", ErrNotFound, id)
	}
	return p, nil
}

// requireLive returns the auction state when a player is on the block and bidding is open.
func requireLive(ctx context.Context, tx ledger.Tx) (auction.State, error) {
	state, err := txAuctionState(ctx, tx)
	if err != nil {
		return auction.State{}, err
	}
	if !state.HasCurrentPlayer() {
		return auction.State{}, auction.ErrNoActivePlayer
	}
	if state.Status != auction.StatusLive {
		return auction.State{}, auction.ErrAuctionNotLive
	}
	return state, nil
}
