// Package store is the attendance store: players, spectators, games and
// one attendance column per registered player on the games table.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// NextGame selects the chronologically next game in AttendanceSummaryText.
const NextGame int64 = 0

type Store struct {
	db     *sqlx.DB
	exec   *Executor
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger

	backoff time.Duration

	// The HTTP export runs beside the bot loop, so the caches are guarded.
	mu     sync.Mutex
	names  map[int64]string
	labels map[string]int64
}

type Option func(*Store)

func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithBackoff overrides the pause between statement retries.
func WithBackoff(d time.Duration) Option {
	return func(s *Store) { s.backoff = d }
}

// Open connects, applies migrations and warms the player name cache.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	// One long-lived session per process; no reconnect-on-demand.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(24 * time.Hour)
	db.SetConnMaxLifetime(0)

	if err := Migrate(driver, dsn); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := New(db, opts...)
	if err := s.loadNames(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already migrated database.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		loc:    time.Local,
		now:    time.Now,
		names:  map[int64]string{},
		labels: map[string]int64{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.exec = NewExecutor(BeginSQLX(db), s.logger)
	if s.backoff > 0 {
		s.exec.backoff = s.backoff
	}
	return s
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Location() *time.Location { return s.loc }

func (s *Store) loadNames(ctx context.Context) error {
	players, err := s.Players(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range players {
		s.names[p.ID] = p.Name()
	}
	return nil
}

func (s *Store) playerName(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.names[id]; ok {
		return n
	}
	return fmt.Sprintf("player %d", id)
}

func (s *Store) rememberLabel(label string, id int64) {
	s.mu.Lock()
	s.labels[label] = id
	s.mu.Unlock()
}

func (s *Store) cachedLabel(label string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.labels[label]
	return id, ok
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
