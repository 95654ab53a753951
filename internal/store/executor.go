package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	DefaultAttempts = 3
	DefaultBackoff  = 500 * time.Millisecond
)

// Tx is the part of *sqlx.Tx the executor drives.
type Tx interface {
	sqlx.ExtContext
	Commit() error
	Rollback() error
}

// BeginFunc opens the transaction a single attempt runs in.
type BeginFunc func(ctx context.Context) (Tx, error)

// Executor runs one statement per transaction with a fixed retry policy:
// on any failure roll back, wait Backoff, try again; after Attempts tries
// give up with a NotifyUserError. Errors are not classified, a syntax error
// is retried like a dropped connection.
type Executor struct {
	begin    BeginFunc
	attempts int
	backoff  time.Duration
	sleep    func(context.Context, time.Duration)
	logger   *slog.Logger
}

func NewExecutor(begin BeginFunc, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		begin:    begin,
		attempts: DefaultAttempts,
		backoff:  DefaultBackoff,
		sleep:    sleepCtx,
		logger:   logger,
	}
}

// BeginSQLX adapts a *sqlx.DB to BeginFunc.
func BeginSQLX(db *sqlx.DB) BeginFunc {
	return func(ctx context.Context) (Tx, error) {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return nil, err
		}
		return tx, nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Exec runs a data or schema changing statement and commits it.
func (e *Executor) Exec(ctx context.Context, query string, args ...any) error {
	return e.run(ctx, query, func(tx Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		return err
	})
}

// Select scans every row of query into dest.
func (e *Executor) Select(ctx context.Context, dest any, query string, args ...any) error {
	return e.run(ctx, query, func(tx Tx) error {
		return sqlx.SelectContext(ctx, tx, dest, tx.Rebind(query), args...)
	})
}

// Get scans exactly one row into dest; sql.ErrNoRows is returned untouched.
func (e *Executor) Get(ctx context.Context, dest any, query string, args ...any) error {
	return e.run(ctx, query, func(tx Tx) error {
		return sqlx.GetContext(ctx, tx, dest, tx.Rebind(query), args...)
	})
}

// Rows hands the open cursor to fn; fn must not keep it past its return.
func (e *Executor) Rows(ctx context.Context, query string, fn func(*sqlx.Rows) error, args ...any) error {
	return e.run(ctx, query, func(tx Tx) error {
		rows, err := tx.QueryxContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		if err := fn(rows); err != nil {
			return err
		}
		return rows.Err()
	})
}

func (e *Executor) run(ctx context.Context, stmt string, fn func(Tx) error) error {
	var err error
	for attempt := 0; attempt < e.attempts; attempt++ {
		if attempt > 0 {
			e.sleep(ctx, e.backoff)
		}
		err = e.once(ctx, fn)
		if err == nil {
			return nil
		}
		if isNoRows(err) {
			return err
		}
		e.logger.Warn("statement failed", "stmt", stmt, "attempt", attempt+1, "error", err)
	}
	return &NotifyUserError{Stmt: stmt, Err: err}
}

func (e *Executor) once(ctx context.Context, fn func(Tx) error) error {
	tx, err := e.begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit()
}
