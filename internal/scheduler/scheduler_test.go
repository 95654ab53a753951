package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster-bot/internal/chat"
	"roster-bot/internal/config"
	"roster-bot/internal/models"
	"roster-bot/internal/tgbot"
)

type fakeSource struct {
	byDay   map[int][]models.DueGame
	failDay int
	summary string
}

func (f *fakeSource) GamesExactlyInNDays(_ context.Context, n int) ([]models.DueGame, error) {
	if n == f.failDay {
		return nil, errors.New("db down")
	}
	return f.byDay[n], nil
}

func (f *fakeSource) AttendanceSummaryText(context.Context, int64) (string, error) {
	return f.summary, nil
}

type sent struct {
	chatID int64
	text   string
	kb     *chat.Keyboard
}

type fakeGateway struct{ sent []sent }

func (g *fakeGateway) Send(_ context.Context, chatID int64, text string, kb *chat.Keyboard, _ string) error {
	g.sent = append(g.sent, sent{chatID, text, kb})
	return nil
}
func (g *fakeGateway) SendLink(context.Context, int64, string, string, string) error { return nil }
func (g *fakeGateway) IsGroupMember(context.Context, int64, int64) (bool, error)     { return true, nil }
func (g *fakeGateway) AnswerCallback(context.Context, string, string) error          { return nil }
func (g *fakeGateway) Username() string                                              { return "roster_bot" }

type fakeSessions struct{ states map[int64]models.PlayerState }

func (f *fakeSessions) SetPlayer(_ context.Context, id int64, st models.PlayerState) error {
	f.states[id] = st
	return nil
}

type inlineRunner struct{}

func (inlineRunner) Submit(ctx context.Context, job tgbot.Job) error {
	job(ctx)
	return nil
}

const (
	maintainer = int64(1000)
	group      = int64(-500)
)

func game(id int64, day int) models.Game {
	return models.Game{ID: id, DateTime: time.Date(2020, 9, day, 19, 0, 0, 0, time.UTC), Adversary: "Team"}
}

func newScheduler(src *fakeSource, gw *fakeGateway, sess *fakeSessions, now func() time.Time) *Scheduler {
	return New(Config{
		Schedule:       config.DefaultSchedule(),
		Location:       time.UTC,
		GroupChatID:    group,
		MaintainerTGID: maintainer,
		Source:         src,
		Sessions:       sess,
		Gateway:        gw,
		Runner:         inlineRunner{},
		Now:            now,
	})
}

func fourOffsets() *fakeSource {
	return &fakeSource{failDay: -1, byDay: map[int][]models.DueGame{
		4:  {{Game: game(1, 5), Unsure: []int64{10, 11}}},
		5:  {{Game: game(2, 6), Unsure: []int64{11}}},
		6:  {{Game: game(3, 7), Unsure: []int64{12}}},
		13: {{Game: game(4, 14), Unsure: []int64{10, 13}}},
	}}
}

func TestLoadSchedulesMergesOffsets(t *testing.T) {
	s := newScheduler(fourOffsets(), &fakeGateway{}, &fakeSessions{}, nil)

	got, err := s.LoadSchedules(context.Background())
	require.NoError(t, err)

	ids := func(games []models.Game) []int64 {
		var out []int64
		for _, g := range games {
			out = append(out, g.ID)
		}
		return out
	}
	require.Len(t, got, 4)
	assert.Equal(t, []int64{1, 4}, ids(got[10]))
	assert.Equal(t, []int64{1, 2}, ids(got[11]))
	assert.Equal(t, []int64{3}, ids(got[12]))
	assert.Equal(t, []int64{4}, ids(got[13]))
}

func TestLoadSchedulesAbortsOnAnyFailure(t *testing.T) {
	src := fourOffsets()
	src.failDay = 13
	s := newScheduler(src, &fakeGateway{}, &fakeSessions{}, nil)

	got, err := s.LoadSchedules(context.Background())
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestSendReminders(t *testing.T) {
	gw := &fakeGateway{}
	sess := &fakeSessions{states: map[int64]models.PlayerState{}}
	s := newScheduler(fourOffsets(), gw, sess, nil)

	s.SendReminders(context.Background())

	require.Len(t, gw.sent, 4)
	first := gw.sent[0]
	assert.Equal(t, int64(10), first.chatID)
	assert.Equal(t, reminderIntro+"05.09.2020 19:00 | Team\n14.09.2020 19:00 | Team", first.text)
	assert.Equal(t, [][]string{{"continue later"}, {"05.09.2020 19:00 | Team"}, {"14.09.2020 19:00 | Team"}}, first.kb.Rows)
	for _, id := range []int64{10, 11, 12, 13} {
		assert.Equal(t, models.StateEditChooseGame, sess.states[id])
	}
}

func TestSendRemindersFailureNotifiesMaintainerOnly(t *testing.T) {
	src := fourOffsets()
	src.failDay = 5
	gw := &fakeGateway{}
	sess := &fakeSessions{states: map[int64]models.PlayerState{}}
	s := newScheduler(src, gw, sess, nil)

	s.SendReminders(context.Background())

	require.Len(t, gw.sent, 1)
	assert.Equal(t, maintainer, gw.sent[0].chatID)
	assert.Contains(t, gw.sent[0].text, "no scheduled messages today")
	assert.Empty(t, sess.states)
}

func TestSendDailyGroupStats(t *testing.T) {
	gw := &fakeGateway{}
	src := &fakeSource{failDay: -1, summary: "05.09.2020 19:00 | Hall vs Team", byDay: map[int][]models.DueGame{}}
	s := newScheduler(src, gw, &fakeSessions{}, nil)

	s.SendDailyGroupStats(context.Background())
	assert.Empty(t, gw.sent)

	src.byDay[4] = []models.DueGame{{Game: game(1, 5)}}
	s.SendDailyGroupStats(context.Background())
	require.Len(t, gw.sent, 1)
	assert.Equal(t, group, gw.sent[0].chatID)
	assert.Equal(t, groupStatsIntro+"05.09.2020 19:00 | Hall vs Team", gw.sent[0].text)
}

func TestHousekeeping(t *testing.T) {
	now := time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
	gw := &fakeGateway{}
	s := newScheduler(&fakeSource{}, gw, &fakeSessions{}, func() time.Time { return now })

	now = now.Add(24 * time.Hour)
	s.Housekeeping(context.Background())
	assert.Empty(t, gw.sent)

	now = now.Add(7 * 24 * time.Hour)
	s.Housekeeping(context.Background())
	require.Len(t, gw.sent, 1)
	assert.Equal(t, maintainer, gw.sent[0].chatID)
}

func TestStartRejectsBadTimes(t *testing.T) {
	s := newScheduler(&fakeSource{}, &fakeGateway{}, &fakeSessions{}, nil)
	s.cfg.Schedule.ReminderTime = "25:00"
	assert.Error(t, s.Start(context.Background()))
}
