package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"roster-bot/internal/models"
	"roster-bot/internal/util"
)

const (
	NoUpcomingGamesText = "There are no upcoming games"
	emptyYesLine        = " - nobody yet"
)

// AttendanceSummaryText renders the YES/NO/UNSURE breakdown of gameID, or
// of the next upcoming game when gameID is NextGame.
func (s *Store) AttendanceSummaryText(ctx context.Context, gameID int64) (string, error) {
	var (
		games []models.GameSummary
		err   error
	)
	if gameID == NextGame {
		games, _, err = s.summaries(ctx, "date_time > ?", s.nowText())
	} else {
		games, _, err = s.summaries(ctx, "id = ?", gameID)
	}
	if err != nil {
		return "", err
	}
	if len(games) == 0 {
		return NoUpcomingGamesText, nil
	}
	return s.FormatSummary(games[0]), nil
}

// FormatSummary lays out one game as three sections YES, NO, UNSURE with a
// count/total header each. An empty YES section prints a placeholder; empty
// NO and UNSURE sections are left out.
func (s *Store) FormatSummary(g models.GameSummary) string {
	groups := map[models.Attendance][]string{}
	for id, a := range g.Statuses {
		groups[a] = append(groups[a], s.playerName(id))
	}
	total := len(g.Statuses)

	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s", util.MakeDateTimePretty(g.DateTime), g.Place)
	if g.Adversary != "" {
		fmt.Fprintf(&b, " vs %s", g.Adversary)
	}
	b.WriteString("\n")

	for _, a := range []models.Attendance{models.Yes, models.No, models.Unsure} {
		names := groups[a]
		if len(names) == 0 && a != models.Yes {
			continue
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "\n%s %d/%d:\n", a, len(names), total)
		if len(names) == 0 {
			b.WriteString(emptyYesLine + "\n")
			continue
		}
		for _, n := range names {
			b.WriteString(" - " + n + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// PlayerStats counts every active player's answers over upcoming games.
func (s *Store) PlayerStats(ctx context.Context) ([]models.PlayerStats, error) {
	games, players, err := s.summaries(ctx, "date_time > ?", s.nowText())
	if err != nil {
		return nil, err
	}
	out := make([]models.PlayerStats, 0, len(players))
	for _, p := range players {
		st := models.PlayerStats{Player: p}
		for _, g := range games {
			switch g.Statuses[p.ID] {
			case models.Yes:
				st.Yes++
			case models.No:
				st.No++
			default:
				st.Unsure++
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// UpcomingTable returns upcoming games with every active player's answer,
// plus those players, for the tabular exports.
func (s *Store) UpcomingTable(ctx context.Context) ([]models.GameSummary, []models.Player, error) {
	return s.summaries(ctx, "date_time > ?", s.nowText())
}
