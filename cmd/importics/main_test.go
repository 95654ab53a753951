package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster-bot/internal/models"
)

const schedule = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//league//schedule//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:g1@league\r\n" +
	"DTSTART:20200905T153000Z\r\n" +
	"DTEND:20200905T170000Z\r\n" +
	"SUMMARY:M3 - Zueri West 1 - HC Lions\r\n" +
	"LOCATION:Saalsporthalle\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:g2@league\r\n" +
	"DTSTART:20200912T170000Z\r\n" +
	"DTEND:20200912T183000Z\r\n" +
	"SUMMARY:M3 - SG Wolves - Zueri West 1\r\n" +
	"LOCATION:Away Hall\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestAdversary(t *testing.T) {
	got, err := adversary("M3 - Zueri West 1 - HC Lions", "Zueri West 1")
	require.NoError(t, err)
	assert.Equal(t, "HC Lions", got)

	got, err = adversary("M3 - SG Wolves - zueri west 1", "Zueri West 1")
	require.NoError(t, err)
	assert.Equal(t, "SG Wolves", got)

	_, err = adversary("Training", "Zueri West 1")
	assert.ErrorIs(t, err, errSummary)
}

func TestParseCalendar(t *testing.T) {
	zurich, err := time.LoadLocation("Europe/Zurich")
	require.NoError(t, err)

	games, err := parseCalendar(strings.NewReader(schedule), "Zueri West 1", zurich)
	require.NoError(t, err)
	require.Len(t, games, 2)

	assert.Equal(t, "05.09.2020 17:30", games[0].DateTime.Format("02.01.2006 15:04"))
	assert.Equal(t, "Saalsporthalle", games[0].Place)
	assert.Equal(t, "HC Lions", games[0].Adversary)
	assert.Equal(t, "SG Wolves", games[1].Adversary)
}

type fakeWriter struct {
	known    map[time.Time]int64
	inserted []models.Game
}

func (w *fakeWriter) FindGameAt(_ context.Context, t time.Time) (int64, error) {
	if id, ok := w.known[t]; ok {
		return id, nil
	}
	return -1, nil
}

func (w *fakeWriter) InsertGame(_ context.Context, g models.Game) (int64, error) {
	w.inserted = append(w.inserted, g)
	return int64(len(w.inserted)), nil
}

func TestImportGamesSkipsKnownDates(t *testing.T) {
	known := time.Date(2020, 9, 5, 17, 30, 0, 0, time.UTC)
	w := &fakeWriter{known: map[time.Time]int64{known: 7}}
	games := []models.Game{
		{DateTime: known, Adversary: "HC Lions"},
		{DateTime: known.Add(7 * 24 * time.Hour), Adversary: "SG Wolves"},
	}

	added, skipped, err := importGames(context.Background(), w, games)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, skipped)
	require.Len(t, w.inserted, 1)
	assert.Equal(t, "SG Wolves", w.inserted[0].Adversary)
}
