package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/nezasa/credstore/internal/errors"
)

const pgSerializationFailure = "40001"

// TransactionManager executes a function inside a serializable transaction,
// retrying with exponential backoff when postgres reports a serialization
// failure. Exhausted retries surface as a Conflict so the caller can retry.
type TransactionManager[T any] struct {
	logger *slog.Logger
}

func NewTransactionManager[T any](logger *slog.Logger) *TransactionManager[T] {
	return &TransactionManager[T]{logger: logger}
}

func (tm *TransactionManager[T]) ExecuteInTransaction(
	ctx context.Context,
	db *pgxpool.Pool,
	fn func(context.Context, pgx.Tx) (T, error),
) (T, error) {
	var result T
	var err error
	var zero T

	const maxRetries = 5
	const baseDelay = 10 * time.Millisecond
	const maxDelay = 250 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		tx, txErr := db.BeginTx(ctx, pgx.TxOptions{
			IsoLevel: pgx.Serializable,
		})
		if txErr != nil {
			return zero, fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		result, err = fn(ctx, tx)
		if err == nil {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				if isSerializationFailure(commitErr) {
					err = commitErr
					tm.logger.WarnContext(ctx, "serialization error on commit, retrying",
						"attempt", i+1, "max_attempts", maxRetries)
				} else {
					_ = tx.Rollback(ctx)
					return zero, fmt.Errorf("failed to commit transaction: %w", commitErr)
				}
			} else {
				return result, nil
			}
		}

		_ = tx.Rollback(ctx)

		if isSerializationFailure(err) {
			delay := baseDelay * time.Duration(1<<uint(i))
			if delay > maxDelay {
				delay = maxDelay
			}
			jitter := time.Duration(rand.Intn(int(delay / 10)))
			select {
			case <-time.After(delay + jitter):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
			continue
		}

		return zero, err
	}

	return zero, fmt.Errorf("%w: transaction failed after %d retries: %v", apperrors.ErrConflict, 5, err)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgSerializationFailure
}
