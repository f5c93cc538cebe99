package usecase

import (
	"errors"
	"testing"

	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
)

func TestRosterService_EnsureIsIdempotent(t *testing.T) {
	f := newAuctionFixture(t)

	configured, err := f.roster.ConfigureTournament(t.Context(), ConfigureTournamentInput{
		Name:      "Summer Cup",
		Season:    "2026",
		TeamPurse: 800000,
		TeamSize:  11,
	})
	if err != nil {
		t.Fatalf("configure tournament: %v", err)
	}

	again, err := f.roster.EnsureTournament(t.Context())
	if err != nil {
		t.Fatalf("ensure tournament: %v", err)
	}
	if again != configured {
		t.Fatalf("ensure must not overwrite the tournament: got %+v want %+v", again, configured)
	}

	f.openBlock(t, f.createPlayer(t, "Player P").ID)
	state, err := f.roster.EnsureAuctionState(t.Context())
	if err != nil {
		t.Fatalf("ensure auction state: %v", err)
	}
	if !state.IsLive() {
		t.Fatalf("ensure must not reset a live auction, got %+v", state)
	}
}

func TestRosterService_CreateTeamUsesTournamentPurse(t *testing.T) {
	f := newAuctionFixture(t)
	if _, err := f.roster.ConfigureTournament(t.Context(), ConfigureTournamentInput{
		Name:      "Summer Cup",
		TeamPurse: 600000,
		TeamSize:  9,
	}); err != nil {
		t.Fatalf("configure tournament: %v", err)
	}

	created := f.createTeam(t, "Team A", 0)
	if created.TotalPurse != 600000 || created.RemainingPurse != 600000 || created.SpentAmount != 0 {
		t.Fatalf("unexpected purse: %+v", created)
	}
	if created.MaxBidAmount != 600000-8*20000 {
		t.Fatalf("unexpected max bid: %d", created.MaxBidAmount)
	}

	if _, err := f.roster.CreateTeam(t.Context(), CreateTeamInput{Name: " "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank name, got %v", err)
	}
	if _, err := f.roster.CreateTeam(t.Context(), CreateTeamInput{Name: "X", TotalPurse: -1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative purse, got %v", err)
	}
}

func TestRosterService_ConfigureRecomputesMaxBids(t *testing.T) {
	f := newAuctionFixture(t)
	teamA := f.createTeam(t, "Team A", 500000)

	if _, err := f.roster.ConfigureTournament(t.Context(), ConfigureTournamentInput{
		Name:     "Short",
		TeamSize: 5,
	}); err != nil {
		t.Fatalf("configure tournament: %v", err)
	}
	if got := f.team(t, teamA.ID).MaxBidAmount; got != 500000-4*20000 {
		t.Fatalf("expected max bid %d, got %d", 500000-4*20000, got)
	}

	_, err := f.roster.ConfigureTournament(t.Context(), ConfigureTournamentInput{Name: "Bad", TeamSize: 0})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRosterService_UpdateTeamKeepsPurse(t *testing.T) {
	f := newAuctionFixture(t)
	teamA := f.createTeam(t, "Team A", 500000)

	updated, err := f.roster.UpdateTeam(t.Context(), UpdateTeamInput{ID: teamA.ID, Name: "Renamed", CaptainName: "New Captain"})
	if err != nil {
		t.Fatalf("update team: %v", err)
	}
	if updated.Name != "Renamed" || updated.CaptainName != "New Captain" {
		t.Fatalf("unexpected identity: %+v", updated)
	}
	if updated.TotalPurse != 500000 || updated.RemainingPurse != 500000 || !updated.CreatedAt.Equal(teamA.CreatedAt) {
		t.Fatalf("update must keep ledger fields: %+v", updated)
	}

	if _, err := f.roster.UpdateTeam(t.Context(), UpdateTeamInput{ID: "missing", Name: "X"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRosterService_DeleteTeam(t *testing.T) {
	f := newAuctionFixture(t)
	teamA := f.createTeam(t, "Team A", 500000)
	teamB := f.createTeam(t, "Team B", 500000)
	p := f.createPlayer(t, "Player P")

	if _, err := f.auction.AssignPlayerToTeamNoPurse(t.Context(), p.ID, teamA.ID); err != nil {
		t.Fatalf("assign player: %v", err)
	}
	if err := f.roster.DeleteTeam(t.Context(), teamA.ID); !errors.Is(err, team.ErrHasPlayers) {
		t.Fatalf("expected ErrHasPlayers, got %v", err)
	}
	if err := f.roster.DeleteTeam(t.Context(), teamB.ID); err != nil {
		t.Fatalf("delete team: %v", err)
	}
	if err := f.roster.DeleteTeam(t.Context(), teamB.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRosterService_CreateAndUpdatePlayer(t *testing.T) {
	f := newAuctionFixture(t)

	created, err := f.roster.CreatePlayer(t.Context(), CreatePlayerInput{
		Name:          " Rahul ",
		ContactNumber: "0812",
		Area:          "North",
		Role:          player.RoleSpinBowler,
	})
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	if created.Name != "Rahul" || created.Status != player.StatusAvailable || created.BasePrice != 20000 {
		t.Fatalf("unexpected player: %+v", created)
	}

	if _, err := f.roster.CreatePlayer(t.Context(), CreatePlayerInput{Name: "X", Role: "Goalkeeper"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}

	updated, err := f.roster.UpdatePlayer(t.Context(), UpdatePlayerInput{
		ID:        created.ID,
		Name:      "Rahul K",
		Role:      player.RoleAllRounderSpin,
		BasePrice: 30000,
	})
	if err != nil {
		t.Fatalf("update player: %v", err)
	}
	if updated.Name != "Rahul K" || updated.Role != player.RoleAllRounderSpin || updated.BasePrice != 30000 {
		t.Fatalf("unexpected update: %+v", updated)
	}
	if updated.Status != player.StatusAvailable || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("update must keep status and creation time: %+v", updated)
	}
}
