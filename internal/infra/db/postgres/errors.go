package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"eduplatform/internal/domain"
	"eduplatform/internal/infra/metrics"
)

// SQLSTATE codes this package reacts to.
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// classify maps a pgx error to the domain sentinels. Serialization failures,
// deadlocks and connection faults become StoreUnavailable; they are never
// retried here.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation:
			return fmt.Errorf("%s: %w (%s)", op, domain.ErrAlreadyExists, pgErr.ConstraintName)
		case sqlStateSerializationFailure:
			metrics.IncDBError("serialization")
			return domain.StoreUnavailable(fmt.Errorf("%s: %w", op, err))
		case sqlStateDeadlockDetected:
			metrics.IncDBError("deadlock")
			return domain.StoreUnavailable(fmt.Errorf("%s: %w", op, err))
		}
		metrics.IncDBError("other")
		return fmt.Errorf("%s: %w", op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) ||
		errors.Is(err, context.DeadlineExceeded) {
		metrics.IncDBError("connection")
		return domain.StoreUnavailable(fmt.Errorf("%s: %w", op, err))
	}
	metrics.IncDBError("other")
	return fmt.Errorf("%s: %w", op, err)
}
