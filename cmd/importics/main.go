// Command importics loads games from an iCalendar export of the league
// schedule into the games table.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	ics "github.com/arran4/golang-ical"
	"github.com/joho/godotenv"

	"roster-bot/internal/models"
	"roster-bot/internal/store"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("importics", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	driver := fs.String("driver", envOr("DB_DRIVER", "sqlite3"), "database driver (sqlite3 or postgres)")
	dsn := fs.String("dsn", envOr("DB_DSN", "file:roster.db?_foreign_keys=on"), "database DSN")
	team := fs.String("team", envOr("TEAM_NAME", ""), "own team name as it appears in event summaries")
	tz := fs.String("tz", envOr("TIMEZONE", "Europe/Zurich"), "timezone the games are stored in")
	dry := fs.Bool("dry-run", false, "print the games without inserting them")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || *team == "" {
		fmt.Fprintln(os.Stderr, "usage: importics [-driver sqlite3] [-dsn ...] -team NAME [-dry-run] schedule.ics")
		return 2
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "timezone: %v\n", err)
		return 1
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		return 1
	}
	defer f.Close()

	games, err := parseCalendar(f, *team, loc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse: %v\n", err)
		return 1
	}
	if *dry {
		for _, g := range games {
			fmt.Printf("%s | %s | %s\n", g.DateTime.Format("02.01.2006 15:04"), g.Place, g.Adversary)
		}
		return 0
	}

	st, err := store.Open(ctx, *driver, *dsn, store.WithLocation(loc))
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		return 1
	}
	defer st.Close()

	added, skipped, err := importGames(ctx, st, games)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		return 1
	}
	fmt.Printf("imported %d games, skipped %d already known\n", added, skipped)
	return 0
}

type gameWriter interface {
	FindGameAt(ctx context.Context, t time.Time) (int64, error)
	InsertGame(ctx context.Context, g models.Game) (int64, error)
}

// importGames inserts every game whose start minute is not taken yet.
func importGames(ctx context.Context, w gameWriter, games []models.Game) (added, skipped int, err error) {
	for _, g := range games {
		id, err := w.FindGameAt(ctx, g.DateTime)
		if err != nil {
			return added, skipped, err
		}
		if id >= 0 {
			skipped++
			continue
		}
		if _, err := w.InsertGame(ctx, g); err != nil {
			return added, skipped, err
		}
		added++
	}
	return added, skipped, nil
}

// parseCalendar turns each VEVENT into a game. Events without a start time
// or an opponent are rejected.
func parseCalendar(r io.Reader, team string, loc *time.Location) ([]models.Game, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, err
	}
	var games []models.Game
	for _, ev := range cal.Events() {
		start, err := ev.GetStartAt()
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.Id(), err)
		}
		summary := propValue(ev, ics.ComponentPropertySummary)
		adv, err := adversary(summary, team)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.Id(), err)
		}
		games = append(games, models.Game{
			DateTime:  start.In(loc),
			Place:     propValue(ev, ics.ComponentPropertyLocation),
			Adversary: adv,
		})
	}
	return games, nil
}

func propValue(ev *ics.VEvent, p ics.ComponentProperty) string {
	if prop := ev.GetProperty(p); prop != nil {
		return strings.TrimSpace(strings.ReplaceAll(prop.Value, `\,`, ","))
	}
	return ""
}

var errSummary = errors.New("summary is not \"League - Home - Away\"")

// adversary picks the side of a "League - Home - Away" summary that is not
// the own team.
func adversary(summary, team string) (string, error) {
	parts := strings.Split(summary, " - ")
	if len(parts) < 3 {
		return "", fmt.Errorf("%w: %q", errSummary, summary)
	}
	home := strings.TrimSpace(parts[len(parts)-2])
	away := strings.TrimSpace(parts[len(parts)-1])
	if strings.EqualFold(away, team) {
		return home, nil
	}
	return away, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
