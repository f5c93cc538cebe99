package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	ledgermock "github.com/riskibarqy/auction-ledger/internal/mocks/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

func TestAuctionService_PlaceBid_ExhaustedConflictIsDependencyUnavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := ledgermock.NewStore(t)
	store.
		On("RunTx", mock.MatchedBy(func(v context.Context) bool { return v == ctx }), mock.Anything).
		Return(fmt.Errorf("ledger transaction aborted after 10 attempts: %w", ledger.ErrConflict)).
		Once()

	service := NewAuctionService(store, auction.DefaultRules(), logging.NewNop())
	_, err := service.PlaceBid(ctx, PlaceBidInput{TeamID: "team-1", Amount: 25000})
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected conflict to stay in the chain, got %v", err)
	}
}

func TestAuctionService_PlaceBid_InvalidInputSkipsStore(t *testing.T) {
	t.Parallel()

	store := ledgermock.NewStore(t)
	service := NewAuctionService(store, auction.DefaultRules(), logging.NewNop())

	_, err := service.PlaceBid(context.Background(), PlaceBidInput{TeamID: "team-1", Amount: -5})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	store.AssertNotCalled(t, "RunTx", mock.Anything, mock.Anything)
}

func TestAuctionService_PickRandomPlayer_EmptyPool(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := ledgermock.NewStore(t)
	store.
		On("Snapshot", mock.MatchedBy(func(v context.Context) bool { return v == ctx })).
		Return(ledger.Snapshot{
			Players: []player.Player{{ID: "p1", Status: player.StatusSold}},
		}, nil).
		Once()

	service := NewAuctionService(store, auction.DefaultRules(), logging.NewNop())
	_, ok, err := service.PickRandomPlayer(ctx, "")
	if err != nil {
		t.Fatalf("pick random player: %v", err)
	}
	if ok {
		t.Fatalf("expected empty pool")
	}
}
