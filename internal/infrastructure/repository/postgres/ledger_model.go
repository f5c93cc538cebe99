package postgres

import (
	"database/sql"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/domain/tournament"
)

const singletonID = 1

type tournamentTableModel struct {
	ID        int    `db:"id"`
	Name      string `db:"name"`
	Season    string `db:"season"`
	TeamPurse int64  `db:"team_purse"`
	TeamSize  int    `db:"team_size"`
	Version   int64  `db:"version"`
}

type auctionStateTableModel struct {
	ID              int            `db:"id"`
	CurrentPlayerID sql.NullString `db:"current_player_id"`
	CurrentBid      int64          `db:"current_bid"`
	LeadingTeamID   sql.NullString `db:"leading_team_id"`
	Status          string         `db:"status"`
	BidHistory      string         `db:"bid_history"`
	Version         int64          `db:"version"`
}

type teamTableModel struct {
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	CaptainName    string    `db:"captain_name"`
	TotalPurse     int64     `db:"total_purse"`
	RemainingPurse int64     `db:"remaining_purse"`
	SpentAmount    int64     `db:"spent_amount"`
	PlayersCount   int       `db:"players_count"`
	MaxBidAmount   int64     `db:"max_bid_amount"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
	Version        int64     `db:"version"`
}

type playerTableModel struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	ContactNumber string         `db:"contact_number"`
	Area          string         `db:"area"`
	Role          string         `db:"role"`
	BasePrice     int64          `db:"base_price"`
	RegularTeam   string         `db:"regular_team"`
	Status        string         `db:"status"`
	SoldToTeamID  sql.NullString `db:"sold_to_team_id"`
	SoldPrice     sql.NullInt64  `db:"sold_price"`
	SoldAt        sql.NullTime   `db:"sold_at"`
	BidHistory    string         `db:"bid_history"`
	CreatedAt     time.Time      `db:"created_at"`
	Version       int64          `db:"version"`
}

// bidRecord is the jsonb shape of one bid.
type bidRecord struct {
	TeamID    string    `json:"teamId"`
	TeamName  string    `json:"teamName"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

func encodeBids(bids []auction.Bid) (string, error) {
	records := make([]bidRecord, 0, len(bids))
	for _, b := range bids {
		records = append(records, bidRecord{
			TeamID:    b.TeamID,
			TeamName:  b.TeamName,
			Amount:    b.Amount,
			Timestamp: b.Timestamp.UTC(),
		})
	}
	encoded, err := sonic.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshal bid history: %w", err)
	}
	return string(encoded), nil
}

func decodeBids(raw string) ([]auction.Bid, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var records []bidRecord
	if err := sonic.UnmarshalString(raw, &records); err != nil {
		return nil, fmt.Errorf("unmarshal bid history: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	out := make([]auction.Bid, 0, len(records))
	for _, r := range records {
		out = append(out, auction.Bid{
			TeamID:    r.TeamID,
			TeamName:  r.TeamName,
			Amount:    r.Amount,
			Timestamp: r.Timestamp,
		})
	}
	return out, nil
}

func tournamentFromRow(row tournamentTableModel) tournament.Tournament {
	return tournament.Tournament{
		Name:      row.Name,
		Season:    row.Season,
		TeamPurse: row.TeamPurse,
		TeamSize:  row.TeamSize,
	}
}

func tournamentToRow(t tournament.Tournament, version int64) tournamentTableModel {
	return tournamentTableModel{
		ID:        singletonID,
		Name:      t.Name,
		Season:    t.Season,
		TeamPurse: t.TeamPurse,
		TeamSize:  t.TeamSize,
		Version:   version,
	}
}

func auctionStateFromRow(row auctionStateTableModel) (auction.State, error) {
	history, err := decodeBids(row.BidHistory)
	if err != nil {
		return auction.State{}, err
	}
	return auction.State{
		CurrentPlayerID: row.CurrentPlayerID.String,
		CurrentBid:      row.CurrentBid,
		LeadingTeamID:   row.LeadingTeamID.String,
		Status:          auction.Status(row.Status),
		BidHistory:      history,
	}, nil
}

func auctionStateToRow(s auction.State, version int64) (auctionStateTableModel, error) {
	history, err := encodeBids(s.BidHistory)
	if err != nil {
		return auctionStateTableModel{}, err
	}
	return auctionStateTableModel{
		ID:              singletonID,
		CurrentPlayerID: nullString(s.CurrentPlayerID),
		CurrentBid:      s.CurrentBid,
		LeadingTeamID:   nullString(s.LeadingTeamID),
		Status:          string(s.Status),
		BidHistory:      history,
		Version:         version,
	}, nil
}

func teamFromRow(row teamTableModel) team.Team {
	return team.Team{
		ID:             row.ID,
		Name:           row.Name,
		CaptainName:    row.CaptainName,
		TotalPurse:     row.TotalPurse,
		RemainingPurse: row.RemainingPurse,
		SpentAmount:    row.SpentAmount,
		PlayersCount:   row.PlayersCount,
		MaxBidAmount:   row.MaxBidAmount,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func teamToRow(t team.Team, version int64) teamTableModel {
	return teamTableModel{
		ID:             t.ID,
		Name:           t.Name,
		CaptainName:    t.CaptainName,
		TotalPurse:     t.TotalPurse,
		RemainingPurse: t.RemainingPurse,
		SpentAmount:    t.SpentAmount,
		PlayersCount:   t.PlayersCount,
		MaxBidAmount:   t.MaxBidAmount,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		Version:        version,
	}
}

func playerFromRow(row playerTableModel) (player.Player, error) {
	history, err := decodeBids(row.BidHistory)
	if err != nil {
		return player.Player{}, fmt.Errorf("player %s: %w", row.ID, err)
	}
	p := player.Player{
		ID:            row.ID,
		Name:          row.Name,
		ContactNumber: row.ContactNumber,
		Area:          row.Area,
		Role:          player.Role(row.Role),
		BasePrice:     row.BasePrice,
		RegularTeam:   row.RegularTeam,
		Status:        player.Status(row.Status),
		SoldToTeamID:  row.SoldToTeamID.String,
		SoldPrice:     row.SoldPrice.Int64,
		BidHistory:    history,
		CreatedAt:     row.CreatedAt,
	}
	if row.SoldAt.Valid {
		p.SoldAt = row.SoldAt.Time
	}
	return p, nil
}

func playerToRow(p player.Player, version int64) (playerTableModel, error) {
	history, err := encodeBids(p.BidHistory)
	if err != nil {
		return playerTableModel{}, fmt.Errorf("player %s: %w", p.ID, err)
	}
	row := playerTableModel{
		ID:            p.ID,
		Name:          p.Name,
		ContactNumber: p.ContactNumber,
		Area:          p.Area,
		Role:          string(p.Role),
		BasePrice:     p.BasePrice,
		RegularTeam:   p.RegularTeam,
		Status:        string(p.Status),
		SoldToTeamID:  nullString(p.SoldToTeamID),
		BidHistory:    history,
		CreatedAt:     p.CreatedAt,
		Version:       version,
	}
	if p.IsAssigned() {
		row.SoldPrice = sql.NullInt64{Int64: p.SoldPrice, Valid: true}
	}
	if !p.SoldAt.IsZero() {
		row.SoldAt = sql.NullTime{Time: p.SoldAt, Valid: true}
	}
	return row, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
