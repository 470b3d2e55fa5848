package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const beginMaxElapsed = 10 * time.Second

// Tx is a unit of work. All reads and writes go through a Tx so a caller
// never touches the single pooled connection outside its transaction.
type Tx struct {
	tx  *sql.Tx
	now time.Time
	sp  int
}

// Now is the timestamp stamped on every row written by this transaction.
func (t *Tx) Now() time.Time { return t.now }

func (t *Tx) stamp() string { return formatTime(t.now) }

// WithTx runs fn inside one transaction and commits if fn returns nil.
// Starting the transaction is retried with exponential backoff while the
// database is busy; fn itself runs exactly once.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) (err error) {
	sqlTx, err := s.begin(ctx)
	if err != nil {
		return err
	}

	tx := &Tx{tx: sqlTx, now: s.now()}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Warn("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", classify(err))
	}
	return nil
}

func (s *Store) begin(ctx context.Context) (*sql.Tx, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = beginMaxElapsed

	var sqlTx *sql.Tx
	err := backoff.Retry(func() error {
		var err error
		sqlTx, err = s.db.BeginTx(ctx, nil)
		if err != nil && isBusy(err) {
			slog.Debug("database busy, retrying begin", "error", err)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return sqlTx, nil
}

// Savepoint runs fn inside a named savepoint. On error the savepoint is
// rolled back, leaving the enclosing transaction usable, and fn's error is
// returned unchanged.
func (t *Tx) Savepoint(ctx context.Context, fn func(*Tx) error) (err error) {
	t.sp++
	name := fmt.Sprintf("sp_%d", t.sp)

	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}

	released := false
	defer func() {
		if released {
			return
		}
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			slog.Warn("rollback to savepoint failed", "savepoint", name, "error", rbErr)
			if err == nil {
				err = fmt.Errorf("rollback savepoint: %w", rbErr)
			}
			return
		}
		if _, relErr := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); relErr != nil && err == nil {
			err = fmt.Errorf("release savepoint: %w", relErr)
		}
	}()

	if err := fn(t); err != nil {
		return err
	}

	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	released = true
	return nil
}

func (t *Tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	return res, classify(err)
}

func (t *Tx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *Tx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}
