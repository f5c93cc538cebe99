package httpapi

import (
	"context"
	"time"

	"github.com/riskibarqy/auction-ledger/internal/bidding"
	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/domain/tournament"
	"github.com/riskibarqy/auction-ledger/internal/usecase"
)

type configureTournamentRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	Season    string `json:"season" validate:"omitempty,max=40"`
	TeamPurse int64  `json:"teamPurse" validate:"gte=0"`
	TeamSize  int    `json:"teamSize" validate:"gte=1,lte=50"`
}

type createTeamRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	CaptainName string `json:"captainName" validate:"omitempty,max=100"`
	TotalPurse  int64  `json:"totalPurse" validate:"gte=0"`
}

type updateTeamRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	CaptainName string `json:"captainName" validate:"omitempty,max=100"`
}

type playerRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	ContactNumber string `json:"contactNumber" validate:"omitempty,max=40"`
	Area          string `json:"area" validate:"omitempty,max=100"`
	Role          string `json:"role" validate:"required"`
	BasePrice     int64  `json:"basePrice" validate:"gte=0"`
	RegularTeam   string `json:"regularTeam" validate:"omitempty,max=100"`
}

type assignPlayerRequest struct {
	TeamID string `json:"teamId" validate:"required"`
}

type setCurrentPlayerRequest struct {
	PlayerID string `json:"playerId" validate:"required"`
}

type randomPlayerRequest struct {
	ExcludePlayerID string `json:"excludePlayerId"`
}

type placeBidRequest struct {
	TeamID string `json:"teamId" validate:"required"`
	Amount int64  `json:"amount" validate:"gt=0"`
}

type tournamentDTO struct {
	Name      string `json:"name"`
	Season    string `json:"season"`
	TeamPurse int64  `json:"teamPurse"`
	TeamSize  int    `json:"teamSize"`
}

type bidDTO struct {
	TeamID    string `json:"teamId"`
	TeamName  string `json:"teamName"`
	Amount    int64  `json:"amount"`
	Timestamp string `json:"timestamp"`
}

type auctionStateDTO struct {
	CurrentPlayerID string   `json:"currentPlayerId,omitempty"`
	CurrentBid      int64    `json:"currentBid"`
	LeadingTeamID   string   `json:"leadingTeamId,omitempty"`
	Status          string   `json:"status"`
	BidHistory      []bidDTO `json:"bidHistory"`
}

type teamDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CaptainName    string `json:"captainName"`
	TotalPurse     int64  `json:"totalPurse"`
	RemainingPurse int64  `json:"remainingPurse"`
	SpentAmount    int64  `json:"spentAmount"`
	PlayersCount   int    `json:"playersCount"`
	MaxBidAmount   int64  `json:"maxBidAmount"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

type playerDTO struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	ContactNumber string   `json:"contactNumber"`
	Area          string   `json:"area"`
	Role          string   `json:"role"`
	BasePrice     int64    `json:"basePrice"`
	RegularTeam   string   `json:"regularTeam,omitempty"`
	Status        string   `json:"status"`
	SoldToTeamID  string   `json:"soldToTeamId,omitempty"`
	SoldPrice     int64    `json:"soldPrice,omitempty"`
	SoldAt        string   `json:"soldAt,omitempty"`
	BidHistory    []bidDTO `json:"bidHistory"`
	CreatedAt     string   `json:"createdAt"`
}

type boardDTO struct {
	Version       uint64          `json:"version"`
	Tournament    tournamentDTO   `json:"tournament"`
	Auction       auctionStateDTO `json:"auction"`
	Teams         []teamDTO       `json:"teams"`
	CurrentPlayer *playerDTO      `json:"currentPlayer,omitempty"`
	LeadingTeam   *teamDTO        `json:"leadingTeam,omitempty"`
	Available     []playerDTO     `json:"availablePlayers"`
	Completed     []playerDTO     `json:"completedPlayers"`
}

type saleDTO struct {
	Player     playerDTO  `json:"player"`
	Team       teamDTO    `json:"team"`
	Amount     int64      `json:"amount"`
	NextPlayer *playerDTO `json:"nextPlayer,omitempty"`
}

type unsoldDTO struct {
	Player     playerDTO  `json:"player"`
	NextPlayer *playerDTO `json:"nextPlayer,omitempty"`
}

type consoleDTO struct {
	Version         uint64   `json:"version"`
	PlayerID        string   `json:"playerId,omitempty"`
	Status          string   `json:"status"`
	CurrentBid      int64    `json:"currentBid"`
	LeadingTeamID   string   `json:"leadingTeamId,omitempty"`
	LeadingTeamName string   `json:"leadingTeamName,omitempty"`
	MinimumNextBid  int64    `json:"minimumNextBid"`
	Committed       []bidDTO `json:"committed"`
	Inflight        []bidDTO `json:"inflight"`
	Pending         []bidDTO `json:"pending"`
}

func formatTime(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339Nano)
}

func bidsToDTO(bids []auction.Bid) []bidDTO {
	items := make([]bidDTO, 0, len(bids))
	for _, b := range bids {
		items = append(items, bidDTO{
			TeamID:    b.TeamID,
			TeamName:  b.TeamName,
			Amount:    b.Amount,
			Timestamp: formatTime(b.Timestamp),
		})
	}
	return items
}

func tournamentToDTO(v tournament.Tournament) tournamentDTO {
	return tournamentDTO{
		Name:      v.Name,
		Season:    v.Season,
		TeamPurse: v.TeamPurse,
		TeamSize:  v.TeamSize,
	}
}

func auctionStateToDTO(v auction.State) auctionStateDTO {
	return auctionStateDTO{
		CurrentPlayerID: v.CurrentPlayerID,
		CurrentBid:      v.CurrentBid,
		LeadingTeamID:   v.LeadingTeamID,
		Status:          string(v.Status),
		BidHistory:      bidsToDTO(v.BidHistory),
	}
}

func teamToDTO(v team.Team) teamDTO {
	return teamDTO{
		ID:             v.ID,
		Name:           v.Name,
		CaptainName:    v.CaptainName,
		TotalPurse:     v.TotalPurse,
		RemainingPurse: v.RemainingPurse,
		SpentAmount:    v.SpentAmount,
		PlayersCount:   v.PlayersCount,
		MaxBidAmount:   v.MaxBidAmount,
		CreatedAt:      formatTime(v.CreatedAt),
		UpdatedAt:      formatTime(v.UpdatedAt),
	}
}

func teamsToDTO(teams []team.Team) []teamDTO {
	items := make([]teamDTO, 0, len(teams))
	for _, t := range teams {
		items = append(items, teamToDTO(t))
	}
	return items
}

func playerToDTO(v player.Player) playerDTO {
	return playerDTO{
		ID:            v.ID,
		Name:          v.Name,
		ContactNumber: v.ContactNumber,
		Area:          v.Area,
		Role:          string(v.Role),
		BasePrice:     v.BasePrice,
		RegularTeam:   v.RegularTeam,
		Status:        string(v.Status),
		SoldToTeamID:  v.SoldToTeamID,
		SoldPrice:     v.SoldPrice,
		SoldAt:        formatTime(v.SoldAt),
		BidHistory:    bidsToDTO(v.BidHistory),
		CreatedAt:     formatTime(v.CreatedAt),
	}
}

func playersToDTO(players []player.Player) []playerDTO {
	items := make([]playerDTO, 0, len(players))
	for _, p := range players {
		items = append(items, playerToDTO(p))
	}
	return items
}

func boardToDTO(ctx context.Context, v usecase.Board) boardDTO {
	_, span := startSpan(ctx, "httpapi.boardToDTO")
	defer span.End()

	out := boardDTO{
		Version:    v.Version,
		Tournament: tournamentToDTO(v.Tournament),
		Auction:    auctionStateToDTO(v.Auction),
		Teams:      teamsToDTO(v.Teams),
		Available:  playersToDTO(v.Available),
		Completed:  playersToDTO(v.Completed),
	}
	if v.CurrentPlayer != nil {
		p := playerToDTO(*v.CurrentPlayer)
		out.CurrentPlayer = &p
	}
	if v.LeadingTeam != nil {
		t := teamToDTO(*v.LeadingTeam)
		out.LeadingTeam = &t
	}
	return out
}

func projectionToDTO(v bidding.Projection) consoleDTO {
	return consoleDTO{
		Version:         v.Version,
		PlayerID:        v.PlayerID,
		Status:          string(v.Status),
		CurrentBid:      v.CurrentBid,
		LeadingTeamID:   v.LeadingTeamID,
		LeadingTeamName: v.LeadingTeamName,
		MinimumNextBid:  v.MinimumNextBid,
		Committed:       bidsToDTO(v.Committed),
		Inflight:        bidsToDTO(v.Inflight),
		Pending:         bidsToDTO(v.Pending),
	}
}
