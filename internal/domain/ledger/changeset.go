package ledger

import (
	"maps"
	"slices"

	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
	"github.com/riskibarqy/auction-ledger/internal/domain/player"
	"github.com/riskibarqy/auction-ledger/internal/domain/team"
	"github.com/riskibarqy/auction-ledger/internal/domain/tournament"
)

// Changeset buffers the writes of one transaction. Stores embed it in their
// Tx implementation and apply it at commit. A nil map entry is a delete.
type Changeset struct {
	tournament *tournament.Tournament
	auction    *auction.State
	teams      map[string]*team.Team
	players    map[string]*player.Player
}

func (c *Changeset) PutTournament(t tournament.Tournament) {
	c.tournament = &t
}

func (c *Changeset) PutAuctionState(s auction.State) {
	s = s.Clone()
	c.auction = &s
}

func (c *Changeset) PutTeam(t team.Team) {
	if c.teams == nil {
		c.teams = make(map[string]*team.Team)
	}
	c.teams[t.ID] = &t
}

func (c *Changeset) PutPlayer(p player.Player) {
	if c.players == nil {
		c.players = make(map[string]*player.Player)
	}
	p = p.Clone()
	c.players[p.ID] = &p
}

func (c *Changeset) DeleteTeam(id string) {
	if c.teams == nil {
		c.teams = make(map[string]*team.Team)
	}
	c.teams[id] = nil
}

func (c *Changeset) DeletePlayer(id string) {
	if c.players == nil {
		c.players = make(map[string]*player.Player)
	}
	c.players[id] = nil
}

func (c *Changeset) Empty() bool {
	return c.tournament == nil && c.auction == nil && len(c.teams) == 0 && len(c.players) == 0
}

// Topics lists the topics the changeset touches.
func (c *Changeset) Topics() []Topic {
	var out []Topic
	if c.tournament != nil {
		out = append(out, TopicTournament)
	}
	if c.auction != nil {
		out = append(out, TopicAuctionState)
	}
	if len(c.teams) > 0 {
		out = append(out, TopicTeams)
	}
	if len(c.players) > 0 {
		out = append(out, TopicPlayers)
	}
	return out
}

func (c *Changeset) StagedTournament() (tournament.Tournament, bool) {
	if c.tournament == nil {
		return tournament.Tournament{}, false
	}
	return *c.tournament, true
}

func (c *Changeset) StagedAuctionState() (auction.State, bool) {
	if c.auction == nil {
		return auction.State{}, false
	}
	return c.auction.Clone(), true
}

// StagedTeam reports a buffered write for id. staged is false when the
// transaction has not touched the team; deleted is true for a buffered delete.
func (c *Changeset) StagedTeam(id string) (t team.Team, deleted, staged bool) {
	v, ok := c.teams[id]
	if !ok {
		return team.Team{}, false, false
	}
	if v == nil {
		return team.Team{}, true, true
	}
	return *v, false, true
}

func (c *Changeset) StagedPlayer(id string) (p player.Player, deleted, staged bool) {
	v, ok := c.players[id]
	if !ok {
		return player.Player{}, false, false
	}
	if v == nil {
		return player.Player{}, true, true
	}
	return v.Clone(), false, true
}

// EachTeam visits buffered team writes in id order. t is nil for a delete.
func (c *Changeset) EachTeam(fn func(id string, t *team.Team) error) error {
	for _, id := range slices.Sorted(maps.Keys(c.teams)) {
		if err := fn(id, c.teams[id]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Changeset) EachPlayer(fn func(id string, p *player.Player) error) error {
	for _, id := range slices.Sorted(maps.Keys(c.players)) {
		if err := fn(id, c.players[id]); err != nil {
			return err
		}
	}
	return nil
}

// OverlayTeams applies buffered team writes to a committed list.
func (c *Changeset) OverlayTeams(base []team.Team) []team.Team {
	if len(c.teams) == 0 {
		return base
	}
	out := make([]team.Team, 0, len(base)+len(c.teams))
	seen := make(map[string]struct{}, len(base))
	for _, t := range base {
		seen[t.ID] = struct{}{}
		if v, ok := c.teams[t.ID]; ok {
			if v != nil {
				out = append(out, *v)
			}
			continue
		}
		out = append(out, t)
	}
	for _, id := range slices.Sorted(maps.Keys(c.teams)) {
		if _, ok := seen[id]; ok || c.teams[id] == nil {
			continue
		}
		out = append(out, *c.teams[id])
	}
	SortTeams(out)
	return out
}

func (c *Changeset) OverlayPlayers(base []player.Player) []player.Player {
	if len(c.players) == 0 {
		return base
	}
	out := make([]player.Player, 0, len(base)+len(c.players))
	seen := make(map[string]struct{}, len(base))
	for _, p := range base {
		seen[p.ID] = struct{}{}
		if v, ok := c.players[p.ID]; ok {
			if v != nil {
				out = append(out, v.Clone())
			}
			continue
		}
		out = append(out, p)
	}
	for _, id := range slices.Sorted(maps.Keys(c.players)) {
		if _, ok := seen[id]; ok || c.players[id] == nil {
			continue
		}
		out = append(out, c.players[id].Clone())
	}
	SortPlayers(out)
	return out
}
