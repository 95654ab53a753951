// Package scheduler fires the reminder, group stats and housekeeping jobs.
// Cron only decides when; every job runs inside the bot loop so it never
// overlaps with message handling.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	cronlib "github.com/robfig/cron/v3"

	"roster-bot/internal/chat"
	"roster-bot/internal/config"
	"roster-bot/internal/models"
	"roster-bot/internal/store"
	"roster-bot/internal/tgbot"
)

const (
	reminderIntro   = "Hey, we still need to know whether you will play in the following games:\n"
	groupStatsIntro = "The stats for our next game are:\n"
)

// Source is the part of the store the jobs read.
type Source interface {
	GamesExactlyInNDays(ctx context.Context, n int) ([]models.DueGame, error)
	AttendanceSummaryText(ctx context.Context, gameID int64) (string, error)
}

// StateSetter moves a reminded player into the edit overview.
type StateSetter interface {
	SetPlayer(ctx context.Context, id int64, st models.PlayerState) error
}

// Runner executes jobs on the bot loop.
type Runner interface {
	Submit(ctx context.Context, job tgbot.Job) error
}

type Config struct {
	Schedule       config.Schedule
	Location       *time.Location
	GroupChatID    int64
	MaintainerTGID int64

	Source   Source
	Sessions StateSetter
	Gateway  chat.Gateway
	Runner   Runner
	Logger   *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

type Scheduler struct {
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
	started time.Time
	cron    *cronlib.Cron
}

func New(cfg Config) *Scheduler {
	s := &Scheduler{cfg: cfg, logger: cfg.Logger, now: cfg.Now}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.cfg.Location == nil {
		s.cfg.Location = time.Local
	}
	s.started = s.now()
	return s
}

// Start registers the three triggers and runs cron until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	reminderSpec, err := config.CronSpec(s.cfg.Schedule.ReminderTime)
	if err != nil {
		return fmt.Errorf("reminder_time: %w", err)
	}
	statsSpec, err := config.CronSpec(s.cfg.Schedule.GroupStatsTime)
	if err != nil {
		return fmt.Errorf("group_stats_time: %w", err)
	}

	c := cronlib.New(cronlib.WithLocation(s.cfg.Location))
	jobs := []struct {
		name string
		spec string
		fn   func(context.Context)
	}{
		{"reminders", reminderSpec, s.SendReminders},
		{"group_stats", statsSpec, s.SendDailyGroupStats},
		{"housekeeping", "@every " + s.cfg.Schedule.HousekeepingInterval.String(), s.Housekeeping},
	}
	for _, j := range jobs {
		if _, err := c.AddFunc(j.spec, s.submit(ctx, j.name, j.fn)); err != nil {
			return fmt.Errorf("schedule %s: %w", j.name, err)
		}
	}
	s.cron = c
	c.Start()
	s.logger.Info("scheduler started", "reminders", reminderSpec, "group_stats", statsSpec,
		"housekeeping", s.cfg.Schedule.HousekeepingInterval)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		s.logger.Info("scheduler stopped")
	}()
	return nil
}

// submit hands a fired trigger to the bot loop.
func (s *Scheduler) submit(ctx context.Context, name string, fn func(context.Context)) func() {
	return func() {
		runID := uuid.NewString()
		s.logger.Info("job fired", "job", name, "run_id", runID)
		err := s.cfg.Runner.Submit(ctx, func(ctx context.Context) {
			start := s.now()
			fn(ctx)
			s.logger.Info("job done", "job", name, "run_id", runID, "took", s.now().Sub(start))
		})
		if err != nil {
			s.logger.Warn("job not submitted", "job", name, "run_id", runID, "error", err)
		}
	}
}

func (s *Scheduler) notifyMaintainer(ctx context.Context, text string) {
	if err := s.cfg.Gateway.Send(ctx, s.cfg.MaintainerTGID, text, nil, chat.ModePlain); err != nil {
		s.logger.Error("notify maintainer failed", "error", err)
	}
}

// LoadSchedules maps every player still unsure about a game at one of the
// reminder offsets to those games. One failing query aborts the whole run.
func (s *Scheduler) LoadSchedules(ctx context.Context) (map[int64][]models.Game, error) {
	out := map[int64][]models.Game{}
	seen := map[int64]map[int64]bool{}
	for _, n := range s.cfg.Schedule.ReminderOffsets {
		due, err := s.cfg.Source.GamesExactlyInNDays(ctx, n)
		if err != nil {
			return nil, &store.NotifyAdminError{Op: fmt.Sprintf("load schedules (%d days)", n), Err: err}
		}
		for _, g := range due {
			for _, pid := range g.Unsure {
				if seen[pid] == nil {
					seen[pid] = map[int64]bool{}
				}
				if seen[pid][g.ID] {
					continue
				}
				seen[pid][g.ID] = true
				out[pid] = append(out[pid], g.Game)
			}
		}
	}
	for pid := range out {
		games := out[pid]
		sort.Slice(games, func(i, j int) bool { return games[i].DateTime.Before(games[j].DateTime) })
	}
	return out, nil
}

// SendReminders sends one message per unsure player listing their games,
// and moves them into the edit overview so a tap on a game works directly.
func (s *Scheduler) SendReminders(ctx context.Context) {
	byPlayer, err := s.LoadSchedules(ctx)
	if err != nil {
		s.logger.Error("load schedules failed", "error", err)
		s.notifyMaintainer(ctx, fmt.Sprintf("loading schedules did not succeed - no scheduled messages today\n%v", err))
		return
	}

	ids := make([]int64, 0, len(byPlayer))
	for id := range byPlayer {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		text, kb := ReminderMessage(byPlayer[id])
		if err := s.cfg.Gateway.Send(ctx, id, text, kb, chat.ModePlain); err != nil {
			s.logger.Error("reminder not sent", "chat_id", id, "error", err)
			continue
		}
		if err := s.cfg.Sessions.SetPlayer(ctx, id, models.StateEditChooseGame); err != nil {
			s.logger.Error("reminder state not set", "chat_id", id, "error", err)
			var nu *store.NotifyUserError
			if errors.As(err, &nu) {
				s.notifyMaintainer(ctx, "Error in executing the following query:\n"+nu.Stmt)
			}
		}
	}
	s.logger.Info("reminders sent", "players", len(ids))
}

// ReminderMessage builds the reminder text and its keyboard.
func ReminderMessage(games []models.Game) (string, *chat.Keyboard) {
	var b strings.Builder
	b.WriteString(reminderIntro)
	buttons := []string{"continue later"}
	for _, g := range games {
		label := tgbot.GameButton(g)
		b.WriteString(label + "\n")
		buttons = append(buttons, label)
	}
	return strings.TrimRight(b.String(), "\n"), chat.Column(buttons...)
}

// SendDailyGroupStats posts the summary to the team group when a game is
// exactly GroupStatsOffset days away.
func (s *Scheduler) SendDailyGroupStats(ctx context.Context) {
	due, err := s.cfg.Source.GamesExactlyInNDays(ctx, s.cfg.Schedule.GroupStatsOffset)
	if err != nil {
		s.notifyMaintainer(ctx, (&store.NotifyAdminError{Op: "group stats", Err: err}).Error())
		return
	}
	if len(due) == 0 {
		return
	}
	text, err := s.cfg.Source.AttendanceSummaryText(ctx, due[0].ID)
	if err != nil {
		s.notifyMaintainer(ctx, (&store.NotifyAdminError{Op: "group stats", Err: err}).Error())
		return
	}
	if err := s.cfg.Gateway.Send(ctx, s.cfg.GroupChatID, groupStatsIntro+text, nil, chat.ModePlain); err != nil {
		s.logger.Error("group stats not sent", "error", err)
	}
}

// Housekeeping alerts the maintainer once the process has outlived its
// expected restart window, which usually means the host stopped cycling it.
func (s *Scheduler) Housekeeping(ctx context.Context) {
	up := s.now().Sub(s.started)
	s.logger.Info("housekeeping", "uptime", up.Round(time.Second).String())
	if s.cfg.Schedule.RestartWindow > 0 && up > s.cfg.Schedule.RestartWindow {
		s.notifyMaintainer(ctx, fmt.Sprintf("bot has been running for %s without a restart (window %s), check the host",
			up.Round(time.Minute), s.cfg.Schedule.RestartWindow))
	}
}
