package team

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
)

// Team is a bidding franchise with a fixed purse and a capped roster.
type Team struct {
	ID             string
	Name           string
	CaptainName    string
	TotalPurse     int64
	RemainingPurse int64
	SpentAmount    int64
	PlayersCount   int
	MaxBidAmount   int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// New builds a team with an untouched purse and its max bid already derived.
func New(id, name, captainName string, purse int64, rules auction.Rules, teamSize int, now time.Time) Team {
	t := Team{
		ID:             id,
		Name:           strings.TrimSpace(name),
		CaptainName:    strings.TrimSpace(captainName),
		TotalPurse:     purse,
		RemainingPurse: purse,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	t.Recompute(rules, teamSize)
	return t
}

func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("team id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}
	if t.TotalPurse < 0 {
		return fmt.Errorf("team purse must be >= 0")
	}
	if t.PlayersCount < 0 {
		return fmt.Errorf("team players count must be >= 0")
	}
	if t.RemainingPurse != t.TotalPurse-t.SpentAmount {
		return fmt.Errorf("team %s purse is unbalanced: remaining=%d total=%d spent=%d",
			t.ID, t.RemainingPurse, t.TotalPurse, t.SpentAmount)
	}
	return nil
}

// Recompute refreshes the cached max bid. Call after any purse or roster change.
func (t *Team) Recompute(rules auction.Rules, teamSize int) {
	t.MaxBidAmount = rules.MaxBid(t.RemainingPurse, t.PlayersCount, teamSize)
}

func (t Team) OpenSlots(rules auction.Rules, teamSize int) int {
	return max(0, rules.TeamSize(teamSize)-t.PlayersCount)
}

func (t Team) Funds(rules auction.Rules, teamSize int) auction.Funds {
	return auction.Funds{
		RemainingPurse: t.RemainingPurse,
		MaxBid:         t.MaxBidAmount,
		OpenSlots:      t.OpenSlots(rules, teamSize),
	}
}

// Charge books a purchase against the purse and takes one roster slot.
func (t *Team) Charge(amount int64, rules auction.Rules, teamSize int, now time.Time) {
	t.RemainingPurse -= amount
	t.SpentAmount += amount
	t.PlayersCount++
	t.UpdatedAt = now
	t.Recompute(rules, teamSize)
}

// Refund returns a purchase to the purse and frees one roster slot.
func (t *Team) Refund(amount int64, rules auction.Rules, teamSize int, now time.Time) {
	amount = min(amount, t.SpentAmount)
	t.RemainingPurse += amount
	t.SpentAmount -= amount
	t.PlayersCount = max(0, t.PlayersCount-1)
	t.UpdatedAt = now
	t.Recompute(rules, teamSize)
}

// AddFree takes one roster slot without touching the purse.
func (t *Team) AddFree(rules auction.Rules, teamSize int, now time.Time) {
	t.PlayersCount++
	t.UpdatedAt = now
	t.Recompute(rules, teamSize)
}

// ReleaseFree frees one roster slot without touching the purse.
func (t *Team) ReleaseFree(rules auction.Rules, teamSize int, now time.Time) {
	t.PlayersCount = max(0, t.PlayersCount-1)
	t.UpdatedAt = now
	t.Recompute(rules, teamSize)
}
