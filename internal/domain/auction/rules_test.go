package auction

import (
	"errors"
	"testing"
	"time"
)

func TestMaxBid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		remaining    int64
		playersCount int
		teamSize     int
		want         int64
	}{
		{name: "empty roster reserves eight slots", remaining: 500000, playersCount: 0, teamSize: 9, want: 340000},
		{name: "last open slot keeps whole purse", remaining: 70000, playersCount: 8, teamSize: 9, want: 70000},
		{name: "full roster", remaining: 90000, playersCount: 9, teamSize: 9, want: 0},
		{name: "over full roster", remaining: 90000, playersCount: 11, teamSize: 9, want: 0},
		{name: "negative when purse cannot cover reserve", remaining: 30000, playersCount: 6, teamSize: 9, want: -10000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := MaxBid(tc.remaining, tc.playersCount, tc.teamSize, 20000); got != tc.want {
				t.Fatalf("MaxBid()=%d, want %d", got, tc.want)
			}
		})
	}
}

func TestRules_MinimumNextBid(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if got := rules.MinimumNextBid(nil, 0); got != 20000 {
		t.Fatalf("opening minimum=%d, want 20000", got)
	}

	history := []Bid{{TeamID: "t1", Amount: 40000, Timestamp: now}}
	if got := rules.MinimumNextBid(history, 0); got != 45000 {
		t.Fatalf("minimum after 40000=%d, want 45000", got)
	}
	if got := rules.MinimumNextBid(history, 2000); got != 45000 {
		t.Fatalf("requested increment below floor should be raised, got %d", got)
	}
	if got := rules.MinimumNextBid(history, 15000); got != 55000 {
		t.Fatalf("minimum with requested 15000=%d, want 55000", got)
	}

	high := []Bid{{TeamID: "t1", Amount: 100000, Timestamp: now}}
	if got := rules.MinimumNextBid(high, 5000); got != 110000 {
		t.Fatalf("minimum above threshold=%d, want 110000", got)
	}
}

func TestRules_CheckOpening(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	if err := rules.CheckOpening(20000); err != nil {
		t.Fatalf("opening amount should be accepted: %v", err)
	}
	if err := rules.CheckOpening(19999); !errors.Is(err, ErrBidBelowOpening) {
		t.Fatalf("expected ErrBidBelowOpening, got %v", err)
	}
	if err := rules.CheckOpening(0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestFunds_CheckMaxBid(t *testing.T) {
	t.Parallel()

	funds := Funds{RemainingPurse: 100000, MaxBid: 60000, OpenSlots: 3}

	if err := funds.CheckMaxBid(60000); err != nil {
		t.Fatalf("bid at max should pass: %v", err)
	}
	if err := funds.CheckMaxBid(60001); !errors.Is(err, ErrExceedsMaxBid) {
		t.Fatalf("expected ErrExceedsMaxBid, got %v", err)
	}
	if err := funds.CheckPurse(100001); !errors.Is(err, ErrInsufficientPurse) {
		t.Fatalf("expected ErrInsufficientPurse, got %v", err)
	}

	full := Funds{RemainingPurse: 100000, MaxBid: 0, OpenSlots: 0}
	if err := full.CheckPurse(20000); !errors.Is(err, ErrRosterFull) {
		t.Fatalf("expected ErrRosterFull, got %v", err)
	}
}

func TestCheckConsecutive(t *testing.T) {
	t.Parallel()

	history := []Bid{{TeamID: "a", Amount: 40000}}
	if err := CheckConsecutive(history, "a"); !errors.Is(err, ErrSameTeamConsecutive) {
		t.Fatalf("expected ErrSameTeamConsecutive, got %v", err)
	}
	if err := CheckConsecutive(history, "b"); err != nil {
		t.Fatalf("other team should be accepted: %v", err)
	}
	if err := CheckConsecutive(nil, "a"); err != nil {
		t.Fatalf("empty history should be accepted: %v", err)
	}
}
