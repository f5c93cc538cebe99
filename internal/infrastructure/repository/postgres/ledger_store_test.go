package postgres

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/lib/pq"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/platform/resilience"
)

func newTestLedgerStore(t *testing.T, attempts uint) *LedgerStore {
	t.Helper()

	s := NewLedgerStore(nil, "ledger_events", resilience.RetryConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}, nil)
	t.Cleanup(s.Close)
	return s
}

func noopTx(context.Context, ledger.Tx) error { return nil }

func TestLedgerStore_RunTxRetriesSerializationFailure(t *testing.T) {
	t.Parallel()

	s := newTestLedgerStore(t, 5)
	current := ledger.Snapshot{Version: 6}
	s.load = func(context.Context) (ledger.Snapshot, error) { return current, nil }

	sub, err := s.Subscribe(context.Background(), ledger.TopicAuctionState)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	if got := <-sub.Updates(); got.Version != 6 {
		t.Fatalf("expected initial version 6, got %d", got.Version)
	}

	calls := 0
	s.attempt = func(ctx context.Context, fn ledger.TxFunc) (uint64, []ledger.Topic, error) {
		calls++
		if calls < 3 {
			return 0, nil, &pq.Error{Code: codeSerializationFailure}
		}
		current = ledger.Snapshot{Version: 7}
		return 7, []ledger.Topic{ledger.TopicAuctionState}, nil
	}

	if err := s.RunTx(context.Background(), noopTx); err != nil {
		t.Fatalf("run tx: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}

	select {
	case got := <-sub.Updates():
		if got.Version != 7 {
			t.Fatalf("expected version 7, got %d", got.Version)
		}
		if !slices.Equal(got.Topics, []ledger.Topic{ledger.TopicAuctionState}) {
			t.Fatalf("unexpected topics: %v", got.Topics)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a snapshot for the committed version")
	}
}

func TestLedgerStore_RunTxReportsConflictAfterRetries(t *testing.T) {
	t.Parallel()

	s := newTestLedgerStore(t, 3)
	calls := 0
	s.attempt = func(context.Context, ledger.TxFunc) (uint64, []ledger.Topic, error) {
		calls++
		return 0, nil, &pq.Error{Code: codeDeadlockDetected}
	}

	err := s.RunTx(context.Background(), noopTx)
	if !crerr.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestLedgerStore_RunTxDoesNotRetryDomainErrors(t *testing.T) {
	t.Parallel()

	s := newTestLedgerStore(t, 5)
	rejected := errors.New("roster full")
	calls := 0
	s.attempt = func(context.Context, ledger.TxFunc) (uint64, []ledger.Topic, error) {
		calls++
		return 0, nil, rejected
	}
	s.load = func(context.Context) (ledger.Snapshot, error) {
		t.Fatal("a failed transaction must not publish")
		return ledger.Snapshot{}, nil
	}

	if err := s.RunTx(context.Background(), noopTx); !errors.Is(err, rejected) {
		t.Fatalf("expected the domain error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestLedgerStore_RefreshWidensTopicsWhenSnapshotMovedOn(t *testing.T) {
	t.Parallel()

	s := newTestLedgerStore(t, 1)
	current := ledger.Snapshot{Version: 1}
	s.load = func(context.Context) (ledger.Snapshot, error) { return current, nil }

	sub, err := s.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	<-sub.Updates()

	// Another writer committed version 3 before version 2's refresh loaded.
	current = ledger.Snapshot{Version: 3}
	s.refresh(context.Background(), 2, []ledger.Topic{ledger.TopicTeams})

	got := <-sub.Updates()
	if got.Version != 3 || !slices.Equal(got.Topics, ledger.AllTopics) {
		t.Fatalf("expected version 3 touching every topic, got %+v", got)
	}

	// The late notification for version 3 is already covered.
	s.refresh(context.Background(), 3, []ledger.Topic{ledger.TopicPlayers})
	select {
	case extra := <-sub.Updates():
		t.Fatalf("unexpected duplicate snapshot: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}
