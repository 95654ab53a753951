// Package storetest opens throwaway in-memory stores for tests.
package storetest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"roster-bot/internal/store"
)

// Clock is a settable time source for store.WithClock.
type Clock struct {
	T time.Time
}

func (c *Clock) Now() time.Time { return c.T }

// Open returns a migrated store on a private in-memory SQLite database.
// The main handle connects first so the shared cache outlives the
// migration handle.
func Open(t testing.TB, clock *Clock, opts ...store.Option) *store.Store {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := sqlx.Connect("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, store.Migrate("sqlite3", dsn))

	all := append([]store.Option{
		store.WithLocation(time.UTC),
		store.WithClock(clock.Now),
		store.WithBackoff(time.Millisecond),
	}, opts...)
	return store.New(db, all...)
}
