package player

import (
	"cmp"
	"slices"
)

// CompletedSort orders the completed list.
type CompletedSort string

const (
	SortTimeDesc  CompletedSort = "timeDesc"
	SortTimeAsc   CompletedSort = "timeAsc"
	SortPriceDesc CompletedSort = "priceDesc"
	SortPriceAsc  CompletedSort = "priceAsc"
)

func ParseCompletedSort(raw string) (CompletedSort, bool) {
	switch CompletedSort(raw) {
	case "":
		return SortTimeDesc, true
	case SortTimeDesc, SortTimeAsc, SortPriceDesc, SortPriceAsc:
		return CompletedSort(raw), true
	default:
		return "", false
	}
}

// Available returns biddable players, AVAILABLE before UNSOLD, then oldest first.
func Available(players []Player) []Player {
	out := make([]Player, 0, len(players))
	for _, p := range players {
		if p.IsBiddable() {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b Player) int {
		if c := cmp.Compare(poolRank(a.Status), poolRank(b.Status)); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Completed returns every player that has left the AVAILABLE pool.
func Completed(players []Player, order CompletedSort) []Player {
	out := make([]Player, 0, len(players))
	for _, p := range players {
		if p.Status != StatusAvailable {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b Player) int {
		switch order {
		case SortTimeAsc:
			return a.SoldAt.Compare(b.SoldAt)
		case SortPriceDesc:
			return cmp.Compare(b.SoldPrice, a.SoldPrice)
		case SortPriceAsc:
			return cmp.Compare(a.SoldPrice, b.SoldPrice)
		default:
			return b.SoldAt.Compare(a.SoldAt)
		}
	})
	return out
}

// Find returns the player with id.
func Find(players []Player, id string) (Player, bool) {
	if id == "" {
		return Player{}, false
	}
	i := slices.IndexFunc(players, func(p Player) bool { return p.ID == id })
	if i < 0 {
		return Player{}, false
	}
	return players[i], true
}

func poolRank(status Status) int {
	if status == StatusAvailable {
		return 0
	}
	return 1
}
