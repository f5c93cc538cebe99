package team

import (
	"testing"
	"time"

	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
)

func TestTeam_ChargeAndRefundKeepPurseBalanced(t *testing.T) {
	t.Parallel()

	rules := auction.DefaultRules()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tm := New("t1", " Bravo ", "Cap", 500000, rules, 9, now)

	if tm.Name != "Bravo" {
		t.Fatalf("name should be trimmed, got %q", tm.Name)
	}
	if tm.MaxBidAmount != 340000 {
		t.Fatalf("initial max bid=%d, want 340000", tm.MaxBidAmount)
	}

	tm.Charge(45000, rules, 9, now)
	if tm.RemainingPurse != 455000 || tm.SpentAmount != 45000 || tm.PlayersCount != 1 {
		t.Fatalf("unexpected team after charge: %+v", tm)
	}
	if tm.MaxBidAmount != 455000-7*20000 {
		t.Fatalf("max bid after charge=%d", tm.MaxBidAmount)
	}
	if err := tm.Validate(); err != nil {
		t.Fatalf("team should stay balanced: %v", err)
	}

	tm.Refund(45000, rules, 9, now)
	if tm.RemainingPurse != 500000 || tm.SpentAmount != 0 || tm.PlayersCount != 0 {
		t.Fatalf("unexpected team after refund: %+v", tm)
	}
	if err := tm.Validate(); err != nil {
		t.Fatalf("team should stay balanced after refund: %v", err)
	}
}

func TestTeam_FreeSlotsLeavePurse(t *testing.T) {
	t.Parallel()

	rules := auction.DefaultRules()
	now := time.Now()
	tm := New("t1", "Alpha", "", 200000, rules, 2, now)

	tm.AddFree(rules, 2, now)
	if tm.RemainingPurse != 200000 || tm.PlayersCount != 1 {
		t.Fatalf("free assignment changed purse: %+v", tm)
	}
	if tm.MaxBidAmount != 200000 {
		t.Fatalf("last slot max bid=%d, want 200000", tm.MaxBidAmount)
	}

	tm.AddFree(rules, 2, now)
	if got := tm.OpenSlots(rules, 2); got != 0 {
		t.Fatalf("open slots=%d, want 0", got)
	}
	if tm.MaxBidAmount != 0 {
		t.Fatalf("full roster max bid=%d, want 0", tm.MaxBidAmount)
	}

	tm.ReleaseFree(rules, 2, now)
	if tm.PlayersCount != 1 {
		t.Fatalf("players count=%d, want 1", tm.PlayersCount)
	}
}
