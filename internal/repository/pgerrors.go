package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

// Bounded retry for transactions that lose a serialization or deadlock
// race. Contention is per trip row, so a couple of attempts is enough;
// after that the caller gets ErrConflict and may retry client-side.
const maxTxAttempts = 3

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func withTxRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || !isRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrConflict, err)
}
