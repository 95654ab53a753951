package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramToken string

	// MaintainerTGID receives every error report.
	MaintainerTGID int64
	AdminTGIDs     map[int64]bool
	GroupChatID    int64

	DBDriver string
	DBDSN    string

	Location *time.Location
	TeamName string

	WebsiteURL   string
	WebsiteLabel string

	SpreadsheetID            string
	GoogleServiceAccountJSON string

	HTTPAddr      string
	BasePublicURL string
	ExportSecret  string

	LogLevel  string
	LogFormat string

	Schedule Schedule
}

func FromEnv() (Config, error) {
	var c Config
	c.TelegramToken = env("TELEGRAM_BOT_TOKEN", "")
	if c.TelegramToken == "" {
		return c, fmt.Errorf("TELEGRAM_BOT_TOKEN is empty")
	}

	var err error
	if c.MaintainerTGID, err = requiredID("MAINTAINER_TG_ID"); err != nil {
		return c, err
	}
	if c.GroupChatID, err = requiredID("GROUP_CHAT_ID"); err != nil {
		return c, err
	}
	c.AdminTGIDs = parseAdminIDs(os.Getenv("ADMIN_TG_IDS"))
	c.AdminTGIDs[c.MaintainerTGID] = true

	c.DBDriver = env("DB_DRIVER", "sqlite3")
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		return c, fmt.Errorf("DB_DRIVER must be sqlite3 or postgres, got %q", c.DBDriver)
	}
	c.DBDSN = env("DB_DSN", "file:roster.db?_foreign_keys=on")

	tz := env("TIMEZONE", "Europe/Zurich")
	if c.Location, err = time.LoadLocation(tz); err != nil {
		return c, fmt.Errorf("TIMEZONE: %w", err)
	}

	c.TeamName = env("TEAM_NAME", "Züri West 1")
	c.WebsiteURL = env("WEBSITE_URL", "https://www.handball.ch/de/matchcenter/teams/34393")
	c.WebsiteLabel = env("WEBSITE_LABEL", "handball.ch/Züri West 1")

	c.SpreadsheetID = env("GOOGLE_SHEETS_SPREADSHEET_ID", "")
	c.GoogleServiceAccountJSON = env("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	if (c.SpreadsheetID == "") != (c.GoogleServiceAccountJSON == "") {
		return c, fmt.Errorf("GOOGLE_SHEETS_SPREADSHEET_ID and GOOGLE_SERVICE_ACCOUNT_JSON must be set together")
	}

	// HTTP_ADDR set to an empty value disables the side server.
	c.HTTPAddr = ":8080"
	if v, ok := os.LookupEnv("HTTP_ADDR"); ok {
		c.HTTPAddr = strings.TrimSpace(v)
	}
	c.BasePublicURL = strings.TrimRight(env("BASE_PUBLIC_URL", ""), "/")
	c.ExportSecret = env("EXPORT_SECRET", "change-me")

	c.LogLevel = env("LOG_LEVEL", "info")
	c.LogFormat = env("LOG_FORMAT", "text")

	c.Schedule = DefaultSchedule()
	if path := env("BOT_SCHEDULE_FILE", ""); path != "" {
		if c.Schedule, err = LoadSchedule(path); err != nil {
			return c, err
		}
	}
	return c, nil
}

// SheetsEnabled reports whether the Google Sheets export is configured.
func (c Config) SheetsEnabled() bool {
	return c.SpreadsheetID != "" && c.GoogleServiceAccountJSON != ""
}

func (c Config) IsAdmin(tgID int64) bool {
	return c.AdminTGIDs[tgID]
}

func env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func requiredID(key string) (int64, error) {
	raw := env(key, "")
	if raw == "" {
		return 0, fmt.Errorf("%s is empty", key)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func parseAdminIDs(raw string) map[int64]bool {
	m := map[int64]bool{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return m
	}
	parts := strings.Split(raw, ",")
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		m[v] = true
	}
	return m
}
