package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/infrastructure/repository/memory"
	idgen "github.com/riskibarqy/auction-ledger/internal/platform/id"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
	"github.com/riskibarqy/auction-ledger/internal/platform/resilience"
)

var fixtureNow = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

type auctionFixture struct {
	store   *memory.LedgerStore
	roster  *RosterService
	auction *AuctionService
	tick    time.Time
}

// newAuctionFixture wires both services over a fresh memory ledger with a
// 9-slot tournament. Every call to now advances the clock by one second.
func newAuctionFixture(t *testing.T) *auctionFixture {
	t.Helper()

	logger := logging.NewNop()
	store := memory.NewLedgerStore(resilience.RetryConfig{MaxAttempts: 5, InitialInterval: time.Millisecond}, logger)
	t.Cleanup(store.Close)

	f := &auctionFixture{
		store:   store,
		roster:  NewRosterService(store, auction.DefaultRules(), &idgen.Sequence{Prefix: "id-"}, logger),
		auction: NewAuctionService(store, auction.DefaultRules(), logger),
		tick:    fixtureNow,
	}
	f.roster.now = f.now
	f.auction.now = f.now

	if _, err := f.roster.EnsureTournament(t.Context()); err != nil {
		t.Fatalf("ensure tournament: %v", err)
	}
	if _, err := f.roster.EnsureAuctionState(t.Context()); err != nil {
		t.Fatalf("ensure auction state: %v", err)
	}
	return f
}

func (f *auctionFixture) now() time.Time {
	f.tick = f.tick.Add(time.Second)
	return f.tick
}

func (f *auctionFixture) createTeam(t *testing.T, name string, purse int64) team.Team {
	t.Helper()
	created, err := f.roster.CreateTeam(t.Context(), CreateTeamInput{Name: name, CaptainName: name + " captain", TotalPurse: purse})
	if err != nil {
		t.Fatalf("create team %s: %v", name, err)
	}
	return created
}

func (f *auctionFixture) createPlayer(t *testing.T, name string) player.Player {
	t.Helper()
	created, err := f.roster.CreatePlayer(t.Context(), CreatePlayerInput{
		Name:      name,
		Role:      player.RoleBatsman,
		BasePrice: 20000,
	})
	if err != nil {
		t.Fatalf("create player %s: %v", name, err)
	}
	return created
}

func (f *auctionFixture) openBlock(t *testing.T, playerID string) {
	t.Helper()
	if _, err := f.auction.SetCurrentPlayer(t.Context(), playerID); err != nil {
		t.Fatalf("set current player: %v", err)
	}
	if _, err := f.auction.StartAuction(t.Context()); err != nil {
		t.Fatalf("start auction: %v", err)
	}
}

func (f *auctionFixture) bid(t *testing.T, teamID string, amount int64) auction.State {
	t.Helper()
	state, err := f.auction.PlaceBid(t.Context(), PlaceBidInput{TeamID: teamID, Amount: amount})
	if err != nil {
		t.Fatalf("place bid team=%s amount=%d: %v", teamID, amount, err)
	}
	return state
}

func (f *auctionFixture) team(t *testing.T, id string) team.Team {
	t.Helper()
	snap, err := f.store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	got, ok := snap.Team(id)
	if !ok {
		t.Fatalf("team %s not found", id)
	}
	return got
}

func (f *auctionFixture) player(t *testing.T, id string) player.Player {
	t.Helper()
	snap, err := f.store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	got, ok := snap.Player(id)
	if !ok {
		t.Fatalf("player %s not found", id)
	}
	return got
}

func (f *auctionFixture) state(t *testing.T) auction.State {
	t.Helper()
	snap, err := f.store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return snap.Auction
}
