package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Schedule holds the reminder scheduler's trigger settings.
type Schedule struct {
	ReminderTime         string        `yaml:"reminder_time"`
	GroupStatsTime       string        `yaml:"group_stats_time"`
	ReminderOffsets      []int         `yaml:"reminder_offsets"`
	GroupStatsOffset     int           `yaml:"group_stats_offset"`
	HousekeepingInterval time.Duration `yaml:"housekeeping_interval"`
	RestartWindow        time.Duration `yaml:"restart_window"`
}

func DefaultSchedule() Schedule {
	return Schedule{
		ReminderTime:         "08:00",
		GroupStatsTime:       "19:00",
		ReminderOffsets:      []int{4, 5, 6, 13},
		GroupStatsOffset:     4,
		HousekeepingInterval: 24 * time.Hour,
		RestartWindow:        7 * 24 * time.Hour,
	}
}

// LoadSchedule reads a YAML overlay; keys absent from the file keep their defaults.
func LoadSchedule(path string) (Schedule, error) {
	s := DefaultSchedule()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read schedule file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse schedule file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (s Schedule) Validate() error {
	if _, err := CronSpec(s.ReminderTime); err != nil {
		return fmt.Errorf("reminder_time: %w", err)
	}
	if _, err := CronSpec(s.GroupStatsTime); err != nil {
		return fmt.Errorf("group_stats_time: %w", err)
	}
	if len(s.ReminderOffsets) == 0 {
		return fmt.Errorf("reminder_offsets is empty")
	}
	for _, d := range s.ReminderOffsets {
		if d < 0 {
			return fmt.Errorf("reminder_offsets: negative offset %d", d)
		}
	}
	if s.HousekeepingInterval <= 0 {
		return fmt.Errorf("housekeeping_interval must be positive")
	}
	return nil
}

// CronSpec turns a daily "HH:MM" into a five-field cron expression.
func CronSpec(hhmm string) (string, error) {
	parts := strings.Split(strings.TrimSpace(hhmm), ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("want HH:MM, got %q", hhmm)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return "", fmt.Errorf("bad hour in %q", hhmm)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return "", fmt.Errorf("bad minute in %q", hhmm)
	}
	return fmt.Sprintf("%d %d * * *", m, h), nil
}
