package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
)

func TestBoardService_BoardViews(t *testing.T) {
	f := newAuctionFixture(t)
	teamA := f.createTeam(t, "Team A", 500000)
	p := f.createPlayer(t, "Player P")
	q := f.createPlayer(t, "Player Q")
	r := f.createPlayer(t, "Player R")

	f.openBlock(t, p.ID)
	f.bid(t, teamA.ID, 50000)
	if _, err := f.auction.MarkPlayerSold(t.Context()); err != nil {
		t.Fatalf("mark sold: %v", err)
	}
	if _, err := f.auction.AssignPlayerToTeamNoPurse(t.Context(), r.ID, teamA.ID); err != nil {
		t.Fatalf("assign player: %v", err)
	}
	f.openBlock(t, q.ID)
	f.bid(t, teamA.ID, 20000)

	service := NewBoardService(f.store, time.Minute, logging.NewNop())
	board, err := service.Board(t.Context())
	if err != nil {
		t.Fatalf("board: %v", err)
	}

	if board.CurrentPlayer == nil || board.CurrentPlayer.ID != q.ID {
		t.Fatalf("expected current player %s, got %+v", q.ID, board.CurrentPlayer)
	}
	if board.LeadingTeam == nil || board.LeadingTeam.ID != teamA.ID {
		t.Fatalf("expected leading team %s, got %+v", teamA.ID, board.LeadingTeam)
	}
	if len(board.Available) != 0 {
		t.Fatalf("expected no pickable players besides the block, got %+v", board.Available)
	}

	completed, err := service.CompletedPlayers(t.Context(), player.SortPriceDesc)
	if err != nil {
		t.Fatalf("completed players: %v", err)
	}
	if len(completed) != 2 || completed[0].ID != p.ID || completed[1].ID != r.ID {
		t.Fatalf("unexpected completed order: %+v", completed)
	}

	// Drafted after the sale, so it leads the default newest-first order.
	if board.Completed[0].ID != r.ID {
		t.Fatalf("expected newest completion first, got %s", board.Completed[0].ID)
	}

	if _, err := service.CompletedPlayers(t.Context(), "cheapest"); err == nil {
		t.Fatalf("expected error for unknown sort")
	}
}

func TestBoardService_RunInvalidatesCache(t *testing.T) {
	f := newAuctionFixture(t)
	service := NewBoardService(f.store, time.Hour, logging.NewNop())

	board, err := service.Board(t.Context())
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(board.Available) != 0 {
		t.Fatalf("expected empty pool, got %d", len(board.Available))
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()

	f.createPlayer(t, "Player P")

	deadline := time.Now().Add(2 * time.Second)
	for {
		available, err := service.AvailablePlayers(t.Context())
		if err != nil {
			t.Fatalf("available players: %v", err)
		}
		if len(available) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("cache was not invalidated after commit")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("run did not stop after cancel")
	}
}
