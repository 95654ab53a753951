package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster-bot/internal/models"
	"roster-bot/internal/store"
	"roster-bot/internal/store/storetest"
)

var now = time.Date(2020, 9, 1, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*store.Store, *storetest.Clock) {
	t.Helper()
	clock := &storetest.Clock{T: now}
	return storetest.Open(t, clock), clock
}

func addGame(t *testing.T, s *store.Store, at time.Time, adversary string) int64 {
	t.Helper()
	id, err := s.InsertGame(context.Background(), models.Game{DateTime: at, Place: "Hall", Adversary: adversary})
	require.NoError(t, err)
	return id
}

func TestAttendanceColumn(t *testing.T) {
	col, err := store.AttendanceColumn(42)
	require.NoError(t, err)
	assert.Equal(t, "p42", col)

	_, err = store.AttendanceColumn(0)
	assert.ErrorIs(t, err, store.ErrInvalidPlayerID)
	_, err = store.AttendanceColumn(-7)
	assert.ErrorIs(t, err, store.ErrInvalidPlayerID)
}

func TestInsertPlayerAddsColumnToExistingGames(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	g1 := addGame(t, s, now.Add(48*time.Hour), "Lions")
	g2 := addGame(t, s, now.Add(72*time.Hour), "Bears")

	require.NoError(t, s.InsertPlayer(ctx, 7, "Anna", "Muster"))

	for _, g := range []int64{g1, g2} {
		a, err := s.Attendance(ctx, g, 7)
		require.NoError(t, err)
		assert.Equal(t, models.Unsure, a)
	}

	p, err := s.Player(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.StateInit, p.State)
	assert.Equal(t, "Anna Muster", p.Name())

	exists, err := s.PlayerExists(ctx, 7)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.PlayerExists(ctx, 8)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGamesInsertedAfterPlayerDefaultToUnsure(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, s.InsertPlayer(ctx, 7, "Anna", "Muster"))

	g := addGame(t, s, now.Add(24*time.Hour), "Lions")
	a, err := s.Attendance(ctx, g, 7)
	require.NoError(t, err)
	assert.Equal(t, models.Unsure, a)
}

func TestSetAttendanceRoundTrip(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, s.InsertPlayer(ctx, 7, "Anna", "Muster"))
	g := addGame(t, s, now.Add(24*time.Hour), "Lions")

	for _, in := range []string{"yes", "NO", "Unsure", "YES"} {
		require.NoError(t, s.SetAttendance(ctx, g, 7, in))
		a, err := s.Attendance(ctx, g, 7)
		require.NoError(t, err)
		want, _ := models.ParseAttendance(in)
		assert.Equal(t, want, a)
	}

	err := s.SetAttendance(ctx, g, 7, "MAYBE")
	assert.ErrorIs(t, err, store.ErrInvalidStatus)
	a, err := s.Attendance(ctx, g, 7)
	require.NoError(t, err)
	assert.Equal(t, models.Yes, a, "invalid input must not touch the cell")
}

func TestGamesWithAttendanceOnlyUpcoming(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, s.InsertPlayer(ctx, 7, "Anna", "Muster"))

	addGame(t, s, now.Add(-time.Hour), "Past")
	later := addGame(t, s, now.Add(72*time.Hour), "Bears")
	sooner := addGame(t, s, now.Add(24*time.Hour), "Lions")
	require.NoError(t, s.SetAttendance(ctx, later, 7, "NO"))

	games, err := s.GamesWithAttendance(ctx, 7)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, sooner, games[0].ID)
	assert.Equal(t, models.Unsure, games[0].Status)
	assert.Equal(t, later, games[1].ID)
	assert.Equal(t, models.No, games[1].Status)
}

func TestResolveGameID(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	at := time.Date(2020, 9, 5, 17, 30, 0, 0, time.UTC)
	g := addGame(t, s, at, "Lions")

	// Empty label cache: falls back to the store.
	id, err := s.ResolveGameID(ctx, "05.09.2020 17:30 | Lions")
	require.NoError(t, err)
	assert.Equal(t, g, id)

	id, err = s.ResolveGameID(ctx, "05.09.2020 17:30")
	require.NoError(t, err)
	assert.Equal(t, g, id)

	id, err = s.ResolveGameID(ctx, "06.09.2020 17:30")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), id)

	id, err = s.ResolveGameID(ctx, "not a game")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), id)
}

func TestGamesExactlyInNDays(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, s.InsertPlayer(ctx, 1, "Anna", "A"))
	require.NoError(t, s.InsertPlayer(ctx, 2, "Ben", "B"))

	in4 := addGame(t, s, time.Date(2020, 9, 5, 20, 0, 0, 0, time.UTC), "Lions")
	addGame(t, s, time.Date(2020, 9, 6, 0, 0, 0, 0, time.UTC), "Bears")
	require.NoError(t, s.SetAttendance(ctx, in4, 1, "YES"))

	due, err := s.GamesExactlyInNDays(ctx, 4)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, in4, due[0].ID)
	assert.Equal(t, []int64{2}, due[0].Unsure)

	due, err = s.GamesExactlyInNDays(ctx, 5)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.ElementsMatch(t, []int64{1, 2}, due[0].Unsure)

	due, err = s.GamesExactlyInNDays(ctx, 13)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestAttendanceSummaryText(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	text, err := s.AttendanceSummaryText(ctx, store.NextGame)
	require.NoError(t, err)
	assert.Equal(t, store.NoUpcomingGamesText, text)

	require.NoError(t, s.InsertPlayer(ctx, 1, "Anna", "A"))
	require.NoError(t, s.InsertPlayer(ctx, 2, "Ben", "B"))
	require.NoError(t, s.InsertPlayer(ctx, 3, "Cleo", "C"))
	g := addGame(t, s, time.Date(2020, 9, 5, 17, 30, 0, 0, time.UTC), "Lions")
	addGame(t, s, time.Date(2020, 9, 12, 17, 30, 0, 0, time.UTC), "Bears")
	require.NoError(t, s.SetAttendance(ctx, g, 1, "YES"))
	require.NoError(t, s.SetAttendance(ctx, g, 3, "YES"))

	text, err = s.AttendanceSummaryText(ctx, store.NextGame)
	require.NoError(t, err)
	assert.Equal(t, "05.09.2020 17:30 | Hall vs Lions\n"+
		"\nYES 2/3:\n - Anna A\n - Cleo C\n"+
		"\nUNSURE 1/3:\n - Ben B", text)

	byID, err := s.AttendanceSummaryText(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, text, byID)
}

func TestFormatSummaryEmptyYes(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, s.InsertPlayer(ctx, 1, "Anna", "A"))
	g := addGame(t, s, time.Date(2020, 9, 5, 17, 30, 0, 0, time.UTC), "")
	require.NoError(t, s.SetAttendance(ctx, g, 1, "NO"))

	text, err := s.AttendanceSummaryText(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, "05.09.2020 17:30 | Hall\n"+
		"\nYES 0/1:\n - nobody yet\n"+
		"\nNO 1/1:\n - Anna A", text)
}

func TestPlayerStats(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, s.InsertPlayer(ctx, 1, "Anna", "A"))
	g1 := addGame(t, s, now.Add(24*time.Hour), "Lions")
	g2 := addGame(t, s, now.Add(48*time.Hour), "Bears")
	addGame(t, s, now.Add(72*time.Hour), "Wolves")
	require.NoError(t, s.SetAttendance(ctx, g1, 1, "YES"))
	require.NoError(t, s.SetAttendance(ctx, g2, 1, "NO"))

	stats, err := s.PlayerStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Yes)
	assert.Equal(t, 1, stats[0].No)
	assert.Equal(t, 1, stats[0].Unsure)
}

func TestStatesAndSpectators(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, s.InsertPlayer(ctx, 1, "Anna", "A"))
	require.NoError(t, s.SetPlayerState(ctx, 1, models.StateEditGame))

	states, err := s.PlayerStates(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]models.PlayerState{1: models.StateEditGame}, states)

	require.NoError(t, s.InsertSpectator(ctx, 99, "Sam", "Fan"))
	pending, err := s.PendingSpectators(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Sam Fan", pending[0].Name())

	require.NoError(t, s.SetSpectatorState(ctx, 99, models.SpectatorDefault))
	pending, err = s.PendingSpectators(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	sp, err := s.Spectator(ctx, 99)
	require.NoError(t, err)
	require.NotNil(t, sp)
	assert.Equal(t, models.SpectatorDefault, sp.State)

	missing, err := s.Spectator(ctx, 100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
