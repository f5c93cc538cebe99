package auction

import (
	"errors"
	"testing"
	"time"
)

func bidsFixture() []Bid {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []Bid{
		{TeamID: "a", TeamName: "Alpha", Amount: 20000, Timestamp: base},
		{TeamID: "b", TeamName: "Bravo", Amount: 25000, Timestamp: base.Add(time.Second)},
		{TeamID: "a", TeamName: "Alpha", Amount: 30000, Timestamp: base.Add(2 * time.Second)},
		{TeamID: "b", TeamName: "Bravo", Amount: 35000, Timestamp: base.Add(3 * time.Second)},
		{TeamID: "a", TeamName: "Alpha", Amount: 40000, Timestamp: base.Add(4 * time.Second)},
	}
}

func TestRemoveAt(t *testing.T) {
	t.Parallel()

	history := bidsFixture()
	out, removed, err := RemoveAt(history, 4)
	if err != nil {
		t.Fatalf("remove last: %v", err)
	}
	if len(out) != 4 || removed.Amount != 40000 {
		t.Fatalf("unexpected result len=%d removed=%d", len(out), removed.Amount)
	}
	if len(history) != 5 {
		t.Fatalf("input history must not be mutated, len=%d", len(history))
	}

	amount, team := Lead(out)
	if amount != 35000 || team != "b" {
		t.Fatalf("lead after removal = %d/%s, want 35000/b", amount, team)
	}

	if _, _, err := RemoveAt(history, 5); !errors.Is(err, ErrBidNotFound) {
		t.Fatalf("expected ErrBidNotFound, got %v", err)
	}
	if _, _, err := RemoveAt(history, -1); !errors.Is(err, ErrBidNotFound) {
		t.Fatalf("expected ErrBidNotFound for negative index, got %v", err)
	}
}

func TestLead_EmptyHistory(t *testing.T) {
	t.Parallel()

	amount, team := Lead(nil)
	if amount != 0 || team != "" {
		t.Fatalf("expected zero lead, got %d/%q", amount, team)
	}
}

func TestRemoveMirrored_Positional(t *testing.T) {
	t.Parallel()

	history := bidsFixture()
	_, removed, err := RemoveAt(history, 2)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	mirror := RemoveMirrored(bidsFixture(), len(history), 2, removed)
	if len(mirror) != 4 {
		t.Fatalf("mirror len=%d, want 4", len(mirror))
	}
	if mirror[2].Amount != 35000 {
		t.Fatalf("mirror[2]=%d, want 35000", mirror[2].Amount)
	}
}

func TestRemoveMirrored_DivergedRemovesFirstMatchOnly(t *testing.T) {
	t.Parallel()

	authoritative := bidsFixture()
	// The mirror lags by two bids and carries a duplicate of the target.
	target := authoritative[1]
	mirror := []Bid{authoritative[0], target, target}

	out := RemoveMirrored(mirror, len(authoritative), 1, target)
	if len(out) != 2 {
		t.Fatalf("mirror len=%d, want 2", len(out))
	}
	if !out[0].Matches(authoritative[0]) || !out[1].Matches(target) {
		t.Fatalf("unexpected mirror after removal: %+v", out)
	}
	if len(mirror) != 3 {
		t.Fatalf("input mirror must not be mutated")
	}
}

func TestRemoveMirrored_DivergedNoMatchKeepsMirror(t *testing.T) {
	t.Parallel()

	authoritative := bidsFixture()
	mirror := authoritative[:3]

	out := RemoveMirrored(mirror, len(authoritative), 4, authoritative[4])
	if len(out) != 3 {
		t.Fatalf("mirror len=%d, want 3", len(out))
	}
}

func TestCombine_DoesNotAlias(t *testing.T) {
	t.Parallel()

	committed := make([]Bid, 1, 4)
	committed[0] = Bid{TeamID: "a", Amount: 20000}
	pending := []Bid{{TeamID: "b", Amount: 25000}}

	combined := Combine(committed, pending)
	combined[0].Amount = 1

	if committed[0].Amount != 20000 {
		t.Fatalf("Combine aliased committed slice")
	}
	if len(combined) != 2 {
		t.Fatalf("combined len=%d, want 2", len(combined))
	}
}
