package team

import "errors"

// ErrHasPlayers is returned when deleting a team that still owns players.
var ErrHasPlayers = errors.New("team still has sold or drafted players")
