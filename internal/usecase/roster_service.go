package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/domain/tournament"
	idgen "github.com/riskibarqy/auction-ledger/internal/platform/id"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
)

type ConfigureTournamentInput struct {
	Name      string
	Season    string
	TeamPurse int64
	TeamSize  int
}

// CreateTeamInput creates a team. A zero TotalPurse takes the tournament's team purse.
type CreateTeamInput struct {
	Name        string
	CaptainName string
	TotalPurse  int64
}

type UpdateTeamInput struct {
	ID          string
	Name        string
	CaptainName string
}

// CreatePlayerInput registers a player. A zero BasePrice takes the opening bid.
type CreatePlayerInput struct {
	Name          string
	ContactNumber string
	Area          string
	Role          player.Role
	BasePrice     int64
	RegularTeam   string
}

type UpdatePlayerInput struct {
	ID            string
	Name          string
	ContactNumber string
	Area          string
	Role          player.Role
	BasePrice     int64
	RegularTeam   string
}

// RosterService owns setup: the tournament singleton, teams and player registrations.
type RosterService struct {
	store  ledger.Store
	rules  auction.Rules
	idGen  idgen.Generator
	logger *logging.Logger
	now    func() time.Time
}

func NewRosterService(store ledger.Store, rules auction.Rules, idGen idgen.Generator, logger *logging.Logger) *RosterService {
	if logger == nil {
		logger = logging.Default()
	}

	return &RosterService{
		store:  store,
		rules:  rules,
		idGen:  idGen,
		logger: logger.Named("usecase.roster"),
		now:    time.Now,
	}
}

// EnsureTournament writes the default tournament if none exists.
func (s *RosterService) EnsureTournament(ctx context.Context) (tournament.Tournament, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.EnsureTournament")
	defer span.End()

	var out tournament.Tournament
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		existing, ok, err := tx.Tournament(ctx)
		if err != nil {
			return fmt.Errorf("get tournament: %w", err)
		}
		if ok {
			out = existing
			return nil
		}
		out = tournament.Default()
		out.TeamSize = s.rules.DefaultTeamSize
		tx.PutTournament(out)
		return nil
	})
	if err != nil {
		return tournament.Tournament{}, wrapLedgerError("ensure tournament", err)
	}
	return out, nil
}

// EnsureAuctionState writes the idle auction state if none exists.
func (s *RosterService) EnsureAuctionState(ctx context.Context) (auction.State, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.EnsureAuctionState")
	defer span.End()

	var out auction.State
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		existing, ok, err := tx.AuctionState(ctx)
		if err != nil {
			return fmt.Errorf("get auction state: %w", err)
		}
		if ok {
			out = existing
			return nil
		}
		out = auction.IdleState()
		tx.PutAuctionState(out)
		return nil
	})
	if err != nil {
		return auction.State{}, wrapLedgerError("ensure auction state", err)
	}
	return out, nil
}

// ConfigureTournament replaces the tournament settings and re-derives every
// team's max bid against the new roster size.
func (s *RosterService) ConfigureTournament(ctx context.Context, input ConfigureTournamentInput) (tournament.Tournament, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.ConfigureTournament")
	defer span.End()

	next := tournament.Tournament{
		Name:      strings.TrimSpace(input.Name),
		Season:    strings.TrimSpace(input.Season),
		TeamPurse: input.TeamPurse,
		TeamSize:  input.TeamSize,
	}
	if err := next.Validate(); err != nil {
		return tournament.Tournament{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		teams, err := tx.Teams(ctx)
		if err != nil {
			return fmt.Errorf("list teams: %w", err)
		}
		for _, t := range teams {
			before := t.MaxBidAmount
			t.Recompute(s.rules, next.TeamSize)
			if t.MaxBidAmount != before {
				tx.PutTeam(t)
			}
		}
		tx.PutTournament(next)
		return nil
	})
	if err != nil {
		return tournament.Tournament{}, wrapLedgerError("configure tournament", err)
	}

	s.logger.InfoContext(ctx, "tournament configured", "team_size", next.TeamSize, "team_purse", next.TeamPurse)
	return next, nil
}

func (s *RosterService) CreateTeam(ctx context.Context, input CreateTeamInput) (team.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.CreateTeam")
	defer span.End()

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return team.Team{}, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}
	if input.TotalPurse < 0 {
		return team.Team{}, fmt.Errorf("%w: team purse must be >= 0", ErrInvalidInput)
	}

	id, err := s.idGen.NewID()
	if err != nil {
		return team.Team{}, fmt.Errorf("generate team id: %w", err)
	}

	var created team.Team
	err = s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		t, err := txTournament(ctx, tx)
		if err != nil {
			return err
		}
		purse := input.TotalPurse
		if purse == 0 {
			purse = t.TeamPurse
		}
		created = team.New(id, input.Name, input.CaptainName, purse, s.rules, s.rules.TeamSize(t.TeamSize), s.now().UTC())
		if err := created.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		tx.PutTeam(created)
		return nil
	})
	if err != nil {
		return team.Team{}, wrapLedgerError("create team", err)
	}

	s.logger.InfoContext(ctx, "team created", "team_id", created.ID, "purse", created.TotalPurse)
	return created, nil
}

// UpdateTeam changes identity fields only; the purse is fixed at creation.
func (s *RosterService) UpdateTeam(ctx context.Context, input UpdateTeamInput) (team.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.UpdateTeam", teamAttr(input.ID))
	defer span.End()

	input.ID = strings.TrimSpace(input.ID)
	input.Name = strings.TrimSpace(input.Name)
	if input.ID == "" {
		return team.Team{}, fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}
	if input.Name == "" {
		return team.Team{}, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}

	var updated team.Team
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		t, err := txTeam(ctx, tx, input.ID)
		if err != nil {
			return err
		}
		t.Name = input.Name
		t.CaptainName = strings.TrimSpace(input.CaptainName)
		t.UpdatedAt = s.now().UTC()
		tx.PutTeam(t)
		updated = t
		return nil
	})
	if err != nil {
		return team.Team{}, wrapLedgerError("update team", err)
	}
	return updated, nil
}

// DeleteTeam removes a team that owns no players.
func (s *RosterService) DeleteTeam(ctx context.Context, id string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.DeleteTeam", teamAttr(id))
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}

	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, err := txTeam(ctx, tx, id); err != nil {
			return err
		}
		players, err := tx.Players(ctx)
		if err != nil {
			return fmt.Errorf("list players: %w", err)
		}
		for _, p := range players {
			if p.IsAssigned() && p.SoldToTeamID == id {
				return fmt.Errorf("%w: team=%s player=%s", team.ErrHasPlayers, id, p.ID)
			}
		}
		tx.DeleteTeam(id)
		return nil
	})
	if err != nil {
		return wrapLedgerError("delete team", err)
	}

	s.logger.InfoContext(ctx, "team deleted", "team_id", id)
	return nil
}

func (s *RosterService) CreatePlayer(ctx context.Context, input CreatePlayerInput) (player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.CreatePlayer")
	defer span.End()

	id, err := s.idGen.NewID()
	if err != nil {
		return player.Player{}, fmt.Errorf("generate player id: %w", err)
	}

	basePrice := input.BasePrice
	if basePrice == 0 {
		basePrice = s.rules.OpeningBid
	}
	created := player.Player{
		ID:            id,
		Name:          strings.TrimSpace(input.Name),
		ContactNumber: strings.TrimSpace(input.ContactNumber),
		Area:          strings.TrimSpace(input.Area),
		Role:          input.Role,
		BasePrice:     basePrice,
		RegularTeam:   strings.TrimSpace(input.RegularTeam),
		Status:        player.StatusAvailable,
		CreatedAt:     s.now().UTC(),
	}
	if err := created.Validate(); err != nil {
		return player.Player{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	err = s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		tx.PutPlayer(created)
		return nil
	})
	if err != nil {
		return player.Player{}, wrapLedgerError("create player", err)
	}

	s.logger.InfoContext(ctx, "player created", "player_id", created.ID, "role", created.Role)
	return created, nil
}

// UpdatePlayer changes profile fields only; status, sale and bids are left alone.
func (s *RosterService) UpdatePlayer(ctx context.Context, input UpdatePlayerInput) (player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.UpdatePlayer", playerAttr(input.ID))
	defer span.End()

	input.ID = strings.TrimSpace(input.ID)
	if input.ID == "" {
		return player.Player{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}

	var updated player.Player
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		p, err := txPlayer(ctx, tx, input.ID)
		if err != nil {
			return err
		}
		p.Name = strings.TrimSpace(input.Name)
		p.ContactNumber = strings.TrimSpace(input.ContactNumber)
		p.Area = strings.TrimSpace(input.Area)
		p.Role = input.Role
		if input.BasePrice > 0 {
			p.BasePrice = input.BasePrice
		}
		p.RegularTeam = strings.TrimSpace(input.RegularTeam)
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		tx.PutPlayer(p)
		updated = p
		return nil
	})
	if err != nil {
		return player.Player{}, wrapLedgerError("update player", err)
	}
	return updated, nil
}
