package auction

import "fmt"

// Rules stores the auction's monetary parameters.
type Rules struct {
	MinReserve       int64
	OpeningBid       int64
	DefaultTeamSize  int
	BidIncrement     int64
	HighBidThreshold int64
	HighBidIncrement int64
	// StrictBatches makes batched commits re-check every bid like a single placement.
	StrictBatches bool
}

func DefaultRules() Rules {
	return Rules{
		MinReserve:       20000,
		OpeningBid:       20000,
		DefaultTeamSize:  9,
		BidIncrement:     5000,
		HighBidThreshold: 100000,
		HighBidIncrement: 10000,
	}
}

func (r Rules) Validate() error {
	if r.MinReserve < 0 {
		return fmt.Errorf("min reserve must be >= 0")
	}
	if r.OpeningBid <= 0 {
		return fmt.Errorf("opening bid must be > 0")
	}
	if r.DefaultTeamSize <= 0 {
		return fmt.Errorf("default team size must be > 0")
	}
	if r.BidIncrement <= 0 || r.HighBidIncrement <= 0 {
		return fmt.Errorf("bid increments must be > 0")
	}
	return nil
}

// TeamSize returns size, or the default when size is unset.
func (r Rules) TeamSize(size int) int {
	if size <= 0 {
		return r.DefaultTeamSize
	}
	return size
}

// MaxBid is the largest amount a team may bid while still reserving
// minReserve for every other open slot. A full roster yields 0. The result
// may be negative; callers compare it against bids as is.
func MaxBid(remainingPurse int64, playersCount, teamSize int, minReserve int64) int64 {
	remainingSlots := max(0, teamSize-playersCount)
	if remainingSlots == 0 {
		return 0
	}
	return remainingPurse - int64(remainingSlots-1)*minReserve
}

func (r Rules) MaxBid(remainingPurse int64, playersCount, teamSize int) int64 {
	return MaxBid(remainingPurse, playersCount, r.TeamSize(teamSize), r.MinReserve)
}

// Increment returns the step added to the last amount. Above the high bid
// threshold the step is raised to at least HighBidIncrement.
func (r Rules) Increment(lastAmount, requested int64) int64 {
	step := max(requested, r.BidIncrement)
	if r.HighBidThreshold > 0 && lastAmount >= r.HighBidThreshold {
		step = max(step, r.HighBidIncrement)
	}
	return step
}

// MinimumNextBid is the opening floor for an empty history, otherwise the
// last amount plus the increment.
func (r Rules) MinimumNextBid(history []Bid, requestedIncrement int64) int64 {
	last, ok := Last(history)
	if !ok {
		return r.OpeningBid
	}
	return last.Amount + r.Increment(last.Amount, requestedIncrement)
}

// Funds is the slice of a team's ledger a bid is checked against.
type Funds struct {
	RemainingPurse int64
	MaxBid         int64
	OpenSlots      int
}

// CheckOpening rejects non-positive amounts and amounts below the opening floor.
func (r Rules) CheckOpening(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount < r.OpeningBid {
		return fmt.Errorf("%w: amount=%d opening=%d", ErrBidBelowOpening, amount, r.OpeningBid)
	}
	return nil
}

// CheckConsecutive rejects a bid from the team that already leads history.
func CheckConsecutive(history []Bid, teamID string) error {
	if last, ok := Last(history); ok && last.TeamID == teamID {
		return fmt.Errorf("%w: team=%s", ErrSameTeamConsecutive, teamID)
	}
	return nil
}

// CheckPurse rejects a bid the team cannot pay or that would leave no slot for the player.
func (f Funds) CheckPurse(amount int64) error {
	if f.OpenSlots <= 0 {
		return ErrRosterFull
	}
	if f.RemainingPurse < amount {
		return fmt.Errorf("%w: remaining=%d amount=%d", ErrInsufficientPurse, f.RemainingPurse, amount)
	}
	return nil
}

// CheckMaxBid additionally enforces the reserve held back for open slots.
func (f Funds) CheckMaxBid(amount int64) error {
	if f.OpenSlots <= 0 {
		return ErrRosterFull
	}
	if amount > f.MaxBid {
		return fmt.Errorf("%w: max=%d amount=%d", ErrExceedsMaxBid, f.MaxBid, amount)
	}
	return f.CheckPurse(amount)
}
