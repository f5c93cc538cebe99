package player

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/riskibarqy/auction-ledger/internal/domain/auction"
)

// Role is the playing role a player registers with.
type Role string

const (
	RoleBatsman        Role = "Batsman"
	RoleWicketKeeper   Role = "Wicket-keeper Batsman"
	RoleFastBowler     Role = "Fast Bowler"
	RoleSpinBowler     Role = "Spin Bowler"
	RoleAllRounderPace Role = "All-Rounder (Pace)"
	RoleAllRounderSpin Role = "All-Rounder (Spin)"
)

var AllRoles = map[Role]struct{}{
	RoleBatsman:        {},
	RoleWicketKeeper:   {},
	RoleFastBowler:     {},
	RoleSpinBowler:     {},
	RoleAllRounderPace: {},
	RoleAllRounderSpin: {},
}

// Status is where a player sits in the auction pool.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusUnsold    Status = "UNSOLD"
	StatusDrafted   Status = "DRAFTED"
	StatusSold      Status = "SOLD"
)

var AllStatuses = map[Status]struct{}{
	StatusAvailable: {},
	StatusUnsold:    {},
	StatusDrafted:   {},
	StatusSold:      {},
}

// Player is a registrant that can be auctioned or drafted onto a team.
// Zero SoldToTeamID, SoldPrice and SoldAt mean no sale is recorded.
type Player struct {
	ID            string
	Name          string
	ContactNumber string
	Area          string
	Role          Role
	BasePrice     int64
	RegularTeam   string
	Status        Status
	SoldToTeamID  string
	SoldPrice     int64
	SoldAt        time.Time
	BidHistory    []auction.Bid
	CreatedAt     time.Time
}

func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("player name is required")
	}
	if _, ok := AllRoles[p.Role]; !ok {
		return fmt.Errorf("invalid player role: %s", p.Role)
	}
	if _, ok := AllStatuses[p.Status]; !ok {
		return fmt.Errorf("invalid player status: %s", p.Status)
	}
	if p.BasePrice < 0 {
		return fmt.Errorf("player base price must be >= 0")
	}

	return nil
}

// IsAssigned reports whether the player already belongs to a team.
func (p Player) IsAssigned() bool {
	return p.Status == StatusSold || p.Status == StatusDrafted
}

// IsBiddable reports whether the player may be put on the block.
func (p Player) IsBiddable() bool {
	return p.Status == StatusAvailable || p.Status == StatusUnsold
}

func (p Player) Clone() Player {
	p.BidHistory = slices.Clone(p.BidHistory)
	return p
}

// ClearSale drops every sold field.
func (p *Player) ClearSale() {
	p.SoldToTeamID = ""
	p.SoldPrice = 0
	p.SoldAt = time.Time{}
}
