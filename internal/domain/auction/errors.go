package auction

import "errors"

var (
	ErrUnknownStatus         = errors.New("unknown auction status")
	ErrInvalidAmount         = errors.New("bid amount must be greater than zero")
	ErrAuctionNotLive        = errors.New("auction is not live")
	ErrAuctionLive           = errors.New("auction is already live")
	ErrNoActivePlayer        = errors.New("no player on the block")
	ErrBidBelowOpening       = errors.New("bid is below the opening amount")
	ErrBidNotHigher          = errors.New("bid must be higher than the current bid")
	ErrBidBelowMinimum       = errors.New("bid is below the minimum next bid")
	ErrSameTeamConsecutive   = errors.New("team already holds the highest bid")
	ErrInsufficientPurse     = errors.New("team purse is insufficient")
	ErrExceedsMaxBid         = errors.New("bid exceeds the team's max bid")
	ErrRosterFull            = errors.New("team roster is full")
	ErrPlayerAlreadyAssigned = errors.New("player is already assigned to a team")
	ErrNoBids                = errors.New("no bids have been placed")
	ErrHasBids               = errors.New("player has bids")
	ErrPlayerChanged         = errors.New("player on the block has changed")
	ErrBidNotFound           = errors.New("bid not found")
)
