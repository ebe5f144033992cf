package resilience

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient_Nil(t *testing.T) {
	assert.False(t, IsTransient(nil))
}

func TestIsTransient_ExplicitWrap(t *testing.T) {
	err := NewTransientError(errors.New("service unavailable"), 503)
	assert.True(t, IsTransient(err))
}

func TestIsTransient_PgDeadlock(t *testing.T) {
	err := &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
	assert.True(t, IsTransient(err))
	assert.True(t, IsDeadlock(err))
}

func TestIsTransient_PgSerialization(t *testing.T) {
	err := &pgconn.PgError{Code: "40001"}
	assert.True(t, IsDeadlock(err))
}

func TestIsTransient_PgConstraintViolation(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	assert.False(t, IsTransient(err))
	assert.False(t, IsDeadlock(err))
}

func TestIsTransient_ConnectionReset(t *testing.T) {
	assert.True(t, IsTransient(errors.New("read tcp: connection reset by peer")))
}

func TestIsTransient_PlainError(t *testing.T) {
	assert.False(t, IsTransient(errors.New("column does not exist")))
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(NewTransientError(errors.New("too many requests"), 429)))
	assert.True(t, IsRateLimited(errors.New("anthropic: rate limit exceeded")))
	assert.False(t, IsRateLimited(NewTransientError(errors.New("bad gateway"), 502)))
	assert.False(t, IsRateLimited(nil))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}
