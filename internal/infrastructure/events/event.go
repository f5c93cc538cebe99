package events

import (
	"time"

	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/domain/tournament"
)

// Event is the message body published for one changed topic.
type Event struct {
	Topic       string    `json:"topic"`
	Version     uint64    `json:"version"`
	PublishedAt time.Time `json:"publishedAt"`
	Data        any       `json:"data"`
}

type tournamentEvent struct {
	Name      string `json:"name"`
	Season    string `json:"season"`
	TeamPurse int64  `json:"teamPurse"`
	TeamSize  int    `json:"teamSize"`
}

type bidEvent struct {
	TeamID    string    `json:"teamId"`
	TeamName  string    `json:"teamName"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

type auctionEvent struct {
	CurrentPlayerID string     `json:"currentPlayerId"`
	CurrentBid      int64      `json:"currentBid"`
	LeadingTeamID   string     `json:"leadingTeamId"`
	Status          string     `json:"status"`
	BidHistory      []bidEvent `json:"bidHistory"`
}

type teamEvent struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	RemainingPurse int64  `json:"remainingPurse"`
	SpentAmount    int64  `json:"spentAmount"`
	PlayersCount   int    `json:"playersCount"`
	MaxBidAmount   int64  `json:"maxBidAmount"`
}

type playerEvent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	SoldToTeamID string `json:"soldToTeamId,omitempty"`
	SoldPrice    int64  `json:"soldPrice,omitempty"`
}

// BuildEvent projects the topic's slice of snap into its wire form.
func BuildEvent(topic ledger.Topic, snap ledger.Snapshot, now time.Time) Event {
	return Event{
		Topic:       string(topic),
		Version:     snap.Version,
		PublishedAt: now.UTC(),
		Data:        topicPayload(topic, snap),
	}
}

func topicPayload(topic ledger.Topic, snap ledger.Snapshot) any {
	switch topic {
	case ledger.TopicTournament:
		t := snap.Tournament
		if !snap.HasTournament {
			t = tournament.Default()
		}
		return tournamentEvent{Name: t.Name, Season: t.Season, TeamPurse: t.TeamPurse, TeamSize: t.TeamSize}
	case ledger.TopicAuctionState:
		state := snap.Auction
		if !snap.HasAuction {
			state = auction.IdleState()
		}
		bids := make([]bidEvent, 0, len(state.BidHistory))
		for _, b := range state.BidHistory {
			bids = append(bids, bidEvent{TeamID: b.TeamID, TeamName: b.TeamName, Amount: b.Amount, Timestamp: b.Timestamp.UTC()})
		}
		return auctionEvent{
			CurrentPlayerID: state.CurrentPlayerID,
			CurrentBid:      state.CurrentBid,
			LeadingTeamID:   state.LeadingTeamID,
			Status:          string(state.Status),
			BidHistory:      bids,
		}
	case ledger.TopicTeams:
		return teamEvents(snap.Teams)
	default:
		return playerEvents(snap.Players)
	}
}

func teamEvents(teams []team.Team) []teamEvent {
	out := make([]teamEvent, 0, len(teams))
	for _, t := range teams {
		out = append(out, teamEvent{
			ID:             t.ID,
			Name:           t.Name,
			RemainingPurse: t.RemainingPurse,
			SpentAmount:    t.SpentAmount,
			PlayersCount:   t.PlayersCount,
			MaxBidAmount:   t.MaxBidAmount,
		})
	}
	return out
}

func playerEvents(players []player.Player) []playerEvent {
	out := make([]playerEvent, 0, len(players))
	for _, p := range players {
		out = append(out, playerEvent{
			ID:           p.ID,
			Name:         p.Name,
			Role:         string(p.Role),
			Status:       string(p.Status),
			SoldToTeamID: p.SoldToTeamID,
			SoldPrice:    p.SoldPrice,
		})
	}
	return out
}
