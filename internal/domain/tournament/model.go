package tournament

import (
	"fmt"
	"strings"
)

// Tournament is the singleton configuration for the auction.
type Tournament struct {
	Name      string
	Season    string
	TeamPurse int64
	TeamSize  int
}

// Default is written once when no tournament exists yet.
func Default() Tournament {
	return Tournament{
		Name:      "Softball Auction",
		Season:    "2025",
		TeamPurse: 0,
		TeamSize:  9,
	}
}

func (t Tournament) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("tournament name is required")
	}
	if t.TeamPurse < 0 {
		return fmt.Errorf("tournament team purse must be >= 0")
	}
	if t.TeamSize < 1 {
		return fmt.Errorf("tournament team size must be >= 1")
	}
	return nil
}
