// Package resilience classifies infrastructure failures and retries the
// transient ones with exponential backoff. Reconciliation stages run many
// concurrent batched writes against the same tables, so storage deadlocks
// and provider rate limits are expected operating conditions, not bugs.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes that resolve on retry.
const (
	pgDeadlockDetected   = "40P01"
	pgSerializationFail  = "40001"
	pgTooManyConnections = "53300"
)

// TransientError marks an error as safe to retry, optionally carrying
// the HTTP status that produced it.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient with an optional HTTP status.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsDeadlock reports whether err is a Postgres deadlock or
// serialization failure, both of which are safe to retry.
func IsDeadlock(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDeadlockDetected || pgErr.Code == pgSerializationFail
	}
	return false
}

// IsRateLimited reports whether err represents a provider rate limit
// (HTTP 429). Stages count these separately: a sustained run of them
// inside one batch means the quota is gone and the batch must abort.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) && te.StatusCode == 429 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "rate limit")
}

// IsTransient reports whether err (or anything in its chain) is worth
// retrying: explicit TransientError, network timeout, connection reset,
// or a retryable Postgres state.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	if IsDeadlock(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgTooManyConnections {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"i/o timeout",
		"tls handshake timeout",
		"no such host",
		"server closed idle connection",
		"unexpected eof",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether an HTTP status is worth retrying.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
