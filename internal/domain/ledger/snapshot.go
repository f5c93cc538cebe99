package ledger

import (
	"cmp"
	"slices"

	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/domain/tournament"
)

// Snapshot is a consistent copy of the whole ledger at one committed version.
type Snapshot struct {
	Version uint64
	// Topics lists what the producing commit changed. The first snapshot a
	// subscriber receives carries every topic.
	Topics        []Topic
	Tournament    tournament.Tournament
	HasTournament bool
	Auction       auction.State
	HasAuction    bool
	Teams         []team.Team
	Players       []player.Player
}

func (s Snapshot) Touches(topics ...Topic) bool {
	if len(topics) == 0 {
		return true
	}
	for _, topic := range topics {
		if slices.Contains(s.Topics, topic) {
			return true
		}
	}
	return false
}

func (s Snapshot) Team(id string) (team.Team, bool) {
	i := slices.IndexFunc(s.Teams, func(t team.Team) bool { return t.ID == id })
	if i < 0 {
		return team.Team{}, false
	}
	return s.Teams[i], true
}

func (s Snapshot) Player(id string) (player.Player, bool) {
	return player.Find(s.Players, id)
}

// TeamSize is the configured roster size, or 0 when no tournament exists.
func (s Snapshot) TeamSize() int {
	if !s.HasTournament {
		return 0
	}
	return s.Tournament.TeamSize
}

// SortTeams orders teams by creation time, then id.
func SortTeams(teams []team.Team) {
	slices.SortFunc(teams, func(a, b team.Team) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortPlayers orders players by creation time, then id.
func SortPlayers(players []player.Player) {
	slices.SortFunc(players, func(a, b player.Player) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
