package auction

import (
	"fmt"
	"slices"
)

// Last returns the most recent bid in history.
func Last(history []Bid) (Bid, bool) {
	if len(history) == 0 {
		return Bid{}, false
	}
	return history[len(history)-1], true
}

// Lead derives currentBid and leadingTeamID from the tail of history.
func Lead(history []Bid) (int64, string) {
	last, ok := Last(history)
	if !ok {
		return 0, ""
	}
	return last.Amount, last.TeamID
}

// Combine concatenates history segments into a new slice without aliasing any input.
func Combine(segments ...[]Bid) []Bid {
	return slices.Concat(segments...)
}

// Append returns history with bids appended, leaving the input untouched.
func Append(history []Bid, bids ...Bid) []Bid {
	return slices.Concat(history, bids)
}

// RemoveAt drops the bid at index and returns the shortened copy and the removed bid.
func RemoveAt(history []Bid, index int) ([]Bid, Bid, error) {
	if index < 0 || index >= len(history) {
		return nil, Bid{}, fmt.Errorf("%w: index=%d len=%d", ErrBidNotFound, index, len(history))
	}
	removed := history[index]
	return slices.Delete(slices.Clone(history), index, index+1), removed, nil
}

// RemoveMirrored removes removed from a mirror of the authoritative history.
// When the mirror has the same length as the authoritative history before
// the removal, the same position is dropped. Otherwise the arrays have
// diverged and only the first bid matching removed is dropped.
func RemoveMirrored(mirror []Bid, authoritativeLen, index int, removed Bid) []Bid {
	out := slices.Clone(mirror)
	if len(out) == authoritativeLen && index >= 0 && index < len(out) {
		return slices.Delete(out, index, index+1)
	}
	if i := slices.IndexFunc(out, removed.Matches); i >= 0 {
		return slices.Delete(out, i, i+1)
	}
	return out
}
