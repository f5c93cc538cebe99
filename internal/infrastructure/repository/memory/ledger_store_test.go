package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
	"github.com/riskibarqy/auction-ledger/internal/platform/resilience"
)

func newTestStore(attempts uint) *LedgerStore {
	return NewLedgerStore(resilience.RetryConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}, logging.NewNop())
}

func seedTeam(t *testing.T, store *LedgerStore, tm team.Team) {
	t.Helper()
	if err := store.RunTx(context.Background(), func(_ context.Context, tx ledger.Tx) error {
		tx.PutTeam(tm)
		return nil
	}); err != nil {
		t.Fatalf("seed team: %v", err)
	}
}

func spend(ctx context.Context, tx ledger.Tx, id string, amount int64) error {
	tm, ok, err := tx.Team(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("team missing")
	}
	tm.SpentAmount += amount
	tm.RemainingPurse -= amount
	tx.PutTeam(tm)
	return nil
}

func TestLedgerStore_RetriesOnConflictWithFreshSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(5)
	seedTeam(t, store, team.Team{ID: "a", Name: "Alpha", TotalPurse: 100, RemainingPurse: 100})

	attempts := 0
	err := store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		attempts++
		if err := spend(ctx, tx, "a", 5); err != nil {
			return err
		}
		if attempts == 1 {
			return store.RunTx(ctx, func(ctx context.Context, inner ledger.Tx) error {
				return spend(ctx, inner, "a", 10)
			})
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run tx: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts=%d, want 2", attempts)
	}

	snap, _ := store.Snapshot(ctx)
	got, _ := snap.Team("a")
	if got.SpentAmount != 15 || got.RemainingPurse != 85 {
		t.Fatalf("lost update: %+v", got)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("team should remain balanced: %v", err)
	}
}

func TestLedgerStore_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(3)
	seedTeam(t, store, team.Team{ID: "a", Name: "Alpha", TotalPurse: 100, RemainingPurse: 100})

	attempts := 0
	err := store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		attempts++
		if err := spend(ctx, tx, "a", 1); err != nil {
			return err
		}
		return store.RunTx(ctx, func(ctx context.Context, inner ledger.Tx) error {
			return spend(ctx, inner, "a", 1)
		})
	})
	if !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts=%d, want 3", attempts)
	}
}

func TestLedgerStore_DomainErrorIsNotRetriedAndDiscardsWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(5)
	seedTeam(t, store, team.Team{ID: "a", Name: "Alpha", TotalPurse: 100, RemainingPurse: 100})

	attempts := 0
	err := store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		attempts++
		if err := spend(ctx, tx, "a", 50); err != nil {
			return err
		}
		return auction.ErrInsufficientPurse
	})
	if !errors.Is(err, auction.ErrInsufficientPurse) {
		t.Fatalf("expected domain error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts=%d, want 1", attempts)
	}

	snap, _ := store.Snapshot(ctx)
	got, _ := snap.Team("a")
	if got.SpentAmount != 0 {
		t.Fatalf("failed transaction leaked writes: %+v", got)
	}
}

func TestLedgerStore_ListReadConflictsWithInsert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(5)

	attempts := 0
	var seen int
	err := store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		attempts++
		teams, err := tx.Teams(ctx)
		if err != nil {
			return err
		}
		seen = len(teams)
		if attempts == 1 {
			if err := store.RunTx(ctx, func(_ context.Context, inner ledger.Tx) error {
				inner.PutTeam(team.Team{ID: "late", Name: "Late"})
				return nil
			}); err != nil {
				return err
			}
		}
		tx.PutAuctionState(auction.IdleState())
		return nil
	})
	if err != nil {
		t.Fatalf("run tx: %v", err)
	}
	if attempts != 2 || seen != 1 {
		t.Fatalf("attempts=%d seen=%d, want 2/1", attempts, seen)
	}
}

func TestLedgerStore_ReadYourWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(1)
	seedTeam(t, store, team.Team{ID: "a", Name: "Alpha"})

	err := store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		tx.DeleteTeam("a")
		if _, ok, _ := tx.Team(ctx, "a"); ok {
			t.Errorf("deleted team still visible in tx")
		}
		tx.PutTeam(team.Team{ID: "b", Name: "Bravo"})
		teams, _ := tx.Teams(ctx)
		if len(teams) != 1 || teams[0].ID != "b" {
			t.Errorf("unexpected staged teams: %+v", teams)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run tx: %v", err)
	}
}

func TestLedgerStore_SubscribeDeliversLatestMatchingSnapshot(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := newTestStore(1)

	sub, err := store.Subscribe(ctx, ledger.TopicAuctionState)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	initial := <-sub.Updates()
	if initial.Version != 0 || !initial.Touches(ledger.TopicTeams) {
		t.Fatalf("unexpected initial snapshot: %+v", initial)
	}

	seedTeam(t, store, team.Team{ID: "a", Name: "Alpha"})
	for _, bid := range []int64{20000, 25000} {
		if err := store.RunTx(ctx, func(_ context.Context, tx ledger.Tx) error {
			tx.PutAuctionState(auction.State{Status: auction.StatusLive, CurrentPlayerID: "p1", CurrentBid: bid})
			return nil
		}); err != nil {
			t.Fatalf("put auction state: %v", err)
		}
	}
	if err := store.RunTx(ctx, func(context.Context, ledger.Tx) error { return nil }); err != nil {
		t.Fatalf("empty tx: %v", err)
	}

	select {
	case snap := <-sub.Updates():
		if snap.Version != 3 || snap.Auction.CurrentBid != 25000 {
			t.Fatalf("expected latest auction snapshot v3, got v%d bid=%d", snap.Version, snap.Auction.CurrentBid)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}

	cancel()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub.Updates():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("subscription not closed after context cancel")
		}
	}
}
