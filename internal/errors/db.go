package errors

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// MapStoreError maps storage driver errors to AppError instances.
// It handles common patterns across the key-value backends:
// - pgx.ErrNoRows, sql.ErrNoRows and redis.Nil → NotFound
// - PostgreSQL connection failures → Unavailable
// - Context timeouts/cancellations → Timeout/Canceled
//
// If the error is not a recognized storage error, it returns the original error.
func MapStoreError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{
			Code:    ErrCodeTimeout,
			Message: "Storage request timed out.",
			Cause:   err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{
			Code:    ErrCodeCanceled,
			Message: "Storage request was canceled.",
			Cause:   err,
		}
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) || errors.Is(err, redis.Nil) {
		return &AppError{
			Code:    ErrCodeNotFound,
			Message: "Key not found",
			Cause:   err,
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	return err
}

// IsUndefinedTable reports whether err is a PostgreSQL "relation does not exist" error.
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch {
	case pgerrcode.IsConnectionException(pgErr.Code),
		pgerrcode.IsInsufficientResources(pgErr.Code),
		pgErr.Code == pgerrcode.AdminShutdown,
		pgErr.Code == pgerrcode.CannotConnectNow:
		return &AppError{
			Code:    ErrCodeUnavailable,
			Message: "Storage backend unavailable.",
			Cause:   pgErr,
		}
	case pgErr.Code == pgerrcode.QueryCanceled:
		return &AppError{
			Code:    ErrCodeTimeout,
			Message: "Storage request timed out.",
			Cause:   pgErr,
		}
	case pgErr.Code == pgerrcode.StringDataRightTruncationDataException,
		pgErr.Code == pgerrcode.NotNullViolation:
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "Invalid key or value.",
			Field:   pgErr.ColumnName,
			Cause:   pgErr,
		}
	default:
		return &AppError{
			Code:    ErrCodeInternal,
			Message: "A storage error occurred.",
			Cause:   pgErr,
		}
	}
}
