package postgres

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isRetryable reports failures postgres expects the client to resolve by
// rerunning the whole transaction.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return true
		}
	}
	return isUnnamedPreparedStatementMissing(err)
}

// Transaction-pooling proxies can drop the unnamed statement between Parse
// and Bind; a fresh attempt on a new backend succeeds.
func isUnnamedPreparedStatementMissing(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unnamed prepared statement does not exist") ||
		(strings.Contains(msg, "prepared statement") && strings.Contains(msg, "(26000)"))
}
