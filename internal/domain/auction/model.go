package auction

import (
	"slices"
	"time"
)

// Status is the lifecycle state of the auction block.
type Status string

const (
	StatusIdle Status = "IDLE"
	StatusLive Status = "LIVE"
	StatusSold Status = "SOLD"
)

// Bid is one recorded offer for the player on the block.
type Bid struct {
	TeamID    string
	TeamName  string
	Amount    int64
	Timestamp time.Time
}

// Matches reports whether two bids carry the same team, amount and timestamp.
func (b Bid) Matches(other Bid) bool {
	return b.TeamID == other.TeamID &&
		b.Amount == other.Amount &&
		b.Timestamp.Equal(other.Timestamp)
}

// State is the singleton auction document. An empty CurrentPlayerID or
// LeadingTeamID means no player is on the block or no team leads.
type State struct {
	CurrentPlayerID string
	CurrentBid      int64
	LeadingTeamID   string
	Status          Status
	BidHistory      []Bid
}

// IdleState is the state after a sale, an unsold close, or initialization.
func IdleState() State {
	return State{Status: StatusIdle}
}

func (s State) HasCurrentPlayer() bool {
	return s.CurrentPlayerID != ""
}

func (s State) IsLive() bool {
	return s.Status == StatusLive && s.HasCurrentPlayer()
}

func (s State) Clone() State {
	s.BidHistory = slices.Clone(s.BidHistory)
	return s
}

func (s State) Validate() error {
	switch s.Status {
	case StatusIdle, StatusLive, StatusSold:
	default:
		return ErrUnknownStatus
	}
	if s.CurrentBid < 0 {
		return ErrInvalidAmount
	}
	return nil
}
