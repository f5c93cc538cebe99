package usecase

import (
	"errors"
	"fmt"

	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// wrapLedgerError names the operation and turns an exhausted conflict retry
// into ErrDependencyUnavailable. Domain errors keep their identity.
func wrapLedgerError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ledger.ErrConflict) {
		return fmt.Errorf("%s: %w: %w", op, ErrDependencyUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
