package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// alterFailTx runs everything on the real transaction except schema changes.
type alterFailTx struct {
	*sqlx.Tx
	alters *int
}

func (tx alterFailTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if strings.HasPrefix(query, "ALTER TABLE") {
		*tx.alters++
		return nil, errors.New("disk I/O error")
	}
	return tx.Tx.ExecContext(ctx, query, args...)
}

func openMemory(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := sqlx.Connect("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate("sqlite3", dsn))
	return New(db, WithLocation(time.UTC), WithBackoff(time.Millisecond))
}

func TestInsertPlayerKeepsRowWhenColumnFails(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	var alters int
	s.exec.begin = func(ctx context.Context) (Tx, error) {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return nil, err
		}
		return alterFailTx{Tx: tx, alters: &alters}, nil
	}

	err := s.InsertPlayer(ctx, 5, "Anna", "A")
	var nu *NotifyUserError
	require.ErrorAs(t, err, &nu)
	assert.Equal(t, "ALTER TABLE games ADD COLUMN p5 SMALLINT NOT NULL DEFAULT 0", nu.Stmt)
	assert.Equal(t, DefaultAttempts, alters)

	exists, err := s.PlayerExists(ctx, 5)
	require.NoError(t, err)
	assert.True(t, exists, "player row stays behind")

	hasColumn, err := s.hasGamesColumn(ctx, "p5")
	require.NoError(t, err)
	assert.False(t, hasColumn)
	_, cached := s.names[5]
	assert.False(t, cached)
}
