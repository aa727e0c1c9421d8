package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/agrobazaar/marketplace/internal/core/domain"
	"github.com/agrobazaar/marketplace/internal/port"
)

const (
	maxTxAttempts  = 3
	retryBaseDelay = 50 * time.Millisecond
)

// querier is satisfied by both *sql.DB and *sql.Tx so every repository
// method works inside and outside an explicit transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q querier
}

// MySQLStore is the authoritative store: it implements port.Repository in
// auto-commit mode and port.TxRunner for all-or-nothing units of work.
type MySQLStore struct {
	db *sql.DB
	queries
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db, queries: queries{q: db}}
}

// RunInTransaction executes fn inside one transaction. Transient failures
// (deadlock, lock wait timeout, dropped connection) re-run fn up to
// maxTxAttempts with jittered backoff; business errors are returned as-is
// after rollback.
func (s *MySQLStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, repo port.Repository) error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			delay += time.Duration(rand.Int63n(int64(delay)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, lastErr)
}

func (s *MySQLStore) runOnce(ctx context.Context, fn func(ctx context.Context, repo port.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &queries{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// isTransient reports whether the error is worth a full re-run of the unit
// of work. Business errors and context cancellation never are.
func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1205, 1213: // lock wait timeout, deadlock
			return true
		}
	}
	return false
}
