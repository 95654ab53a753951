package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"roster-bot/internal/models"
	"roster-bot/internal/util"
)

const (
	insertGameQuery = `INSERT INTO games (date_time, place, adversary) VALUES (?, ?, ?) RETURNING id`
	findGameQuery   = `
		SELECT id FROM games
		WHERE date_time >= ? AND date_time < ?
		ORDER BY id
		LIMIT 1
	`
)

type gameRow struct {
	ID        int64  `db:"id"`
	DateTime  string `db:"date_time"`
	Place     string `db:"place"`
	Adversary string `db:"adversary"`
	Status    int    `db:"status"`
}

func (s *Store) toGame(r gameRow) (models.Game, error) {
	t, err := util.ParseStore(r.DateTime, s.loc)
	if err != nil {
		return models.Game{}, fmt.Errorf("game %d: %w", r.ID, err)
	}
	return models.Game{ID: r.ID, DateTime: t, Place: r.Place, Adversary: r.Adversary}, nil
}

func (s *Store) nowText() string {
	return util.FormatStore(s.now().In(s.loc))
}

func (s *Store) InsertGame(ctx context.Context, g models.Game) (int64, error) {
	var id int64
	err := s.exec.Get(ctx, &id, insertGameQuery, util.FormatStore(g.DateTime.In(s.loc)), g.Place, g.Adversary)
	if err != nil {
		return 0, err
	}
	s.logger.Info("added new game", "game_id", id, "date_time", util.MakeDateTimePretty(g.DateTime), "adversary", g.Adversary)
	return id, nil
}

// FindGameAt returns the id of the game in the minute of t, or -1.
func (s *Store) FindGameAt(ctx context.Context, t time.Time) (int64, error) {
	from := t.In(s.loc).Truncate(time.Minute)
	var id int64
	err := s.exec.Get(ctx, &id, findGameQuery, util.FormatStore(from), util.FormatStore(from.Add(time.Minute)))
	if isNoRows(err) {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	return id, nil
}

// GamesWithAttendance lists upcoming games with forPlayer's answer, oldest first.
func (s *Store) GamesWithAttendance(ctx context.Context, forPlayer int64) ([]models.GameStatus, error) {
	col, err := AttendanceColumn(forPlayer)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT id, date_time, place, adversary, %s AS status FROM games
		WHERE date_time > ?
		ORDER BY date_time
	`, col)

	var rows []gameRow
	if err := s.exec.Select(ctx, &rows, query, s.nowText()); err != nil {
		return nil, err
	}
	out := make([]models.GameStatus, 0, len(rows))
	for _, r := range rows {
		g, err := s.toGame(r)
		if err != nil {
			return nil, err
		}
		s.rememberLabel(util.MakeDateTimePretty(g.DateTime), g.ID)
		out = append(out, models.GameStatus{Game: g, Status: models.Attendance(r.Status)})
	}
	return out, nil
}

// GamesSummary lists upcoming games with every active player's answer.
func (s *Store) GamesSummary(ctx context.Context) ([]models.GameSummary, error) {
	games, _, err := s.summaries(ctx, "date_time > ?", s.nowText())
	if err != nil {
		return nil, err
	}
	for _, g := range games {
		s.rememberLabel(util.MakeDateTimePretty(g.DateTime), g.ID)
	}
	return games, nil
}

// GamesExactlyInNDays returns the games on today+n with their unsure players.
func (s *Store) GamesExactlyInNDays(ctx context.Context, n int) ([]models.DueGame, error) {
	now := s.now().In(s.loc)
	day := time.Date(now.Year(), now.Month(), now.Day()+n, 0, 0, 0, 0, s.loc)
	games, players, err := s.summaries(ctx, "date_time >= ? AND date_time < ?",
		util.FormatStore(day), util.FormatStore(day.AddDate(0, 0, 1)))
	if err != nil {
		return nil, err
	}

	out := make([]models.DueGame, 0, len(games))
	for _, g := range games {
		due := models.DueGame{Game: g.Game}
		for _, p := range players {
			if g.Statuses[p.ID] == models.Unsure {
				due.Unsure = append(due.Unsure, p.ID)
			}
		}
		out = append(out, due)
	}
	return out, nil
}

// summaries selects games matching where plus one column per active player.
func (s *Store) summaries(ctx context.Context, where string, args ...any) ([]models.GameSummary, []models.Player, error) {
	players, err := s.Players(ctx)
	if err != nil {
		return nil, nil, err
	}
	cols := []string{"id", "date_time", "place", "adversary"}
	for _, p := range players {
		col, err := AttendanceColumn(p.ID)
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, col)
	}
	query := fmt.Sprintf("SELECT %s FROM games WHERE %s ORDER BY date_time", strings.Join(cols, ", "), where)

	var out []models.GameSummary
	err = s.exec.Rows(ctx, query, func(rows *sqlx.Rows) error {
		out = out[:0]
		for rows.Next() {
			m := map[string]any{}
			if err := rows.MapScan(m); err != nil {
				return err
			}
			g, err := s.toGame(gameRow{
				ID:        asInt64(m["id"]),
				DateTime:  asString(m["date_time"]),
				Place:     asString(m["place"]),
				Adversary: asString(m["adversary"]),
			})
			if err != nil {
				return err
			}
			sum := models.GameSummary{Game: g, Statuses: make(map[int64]models.Attendance, len(players))}
			for _, p := range players {
				col, _ := AttendanceColumn(p.ID)
				sum.Statuses[p.ID] = models.Attendance(asInt64(m[col]))
			}
			out = append(out, sum)
		}
		return nil
	}, args...)
	if err != nil {
		return nil, nil, err
	}
	return out, players, nil
}

// SetAttendance stores status (YES, NO or UNSURE, any case) for one cell.
func (s *Store) SetAttendance(ctx context.Context, gameID, playerID int64, status string) error {
	a, err := models.ParseAttendance(status)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	col, err := AttendanceColumn(playerID)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE games SET %s = ? WHERE id = ?", col)
	if err := s.exec.Exec(ctx, query, int(a), gameID); err != nil {
		return err
	}
	s.logger.Info("attendance updated", "game_id", gameID, "chat_id", playerID, "status", a.String())
	return nil
}

func (s *Store) Attendance(ctx context.Context, gameID, playerID int64) (models.Attendance, error) {
	col, err := AttendanceColumn(playerID)
	if err != nil {
		return models.Unsure, err
	}
	var v int
	if err := s.exec.Get(ctx, &v, fmt.Sprintf("SELECT %s FROM games WHERE id = ?", col), gameID); err != nil {
		return models.Unsure, err
	}
	return models.Attendance(v), nil
}

// ResolveGameID maps a keyboard label back to its game. The first 16
// characters are the date-time; the label cache from earlier listings is
// tried first, then the store. -1 means no such game.
func (s *Store) ResolveGameID(ctx context.Context, label string) (int64, error) {
	label = strings.TrimSpace(label)
	if len(label) > len(util.PrettyLayout) {
		label = label[:len(util.PrettyLayout)]
	}
	if id, ok := s.cachedLabel(label); ok {
		return id, nil
	}
	t, err := util.ParsePretty(label, s.loc)
	if err != nil {
		return -1, nil
	}
	id, err := s.FindGameAt(ctx, t)
	if err != nil {
		return -1, err
	}
	if id >= 0 {
		s.rememberLabel(label, id)
	}
	return id, nil
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return util.FormatStore(x)
	}
	return fmt.Sprint(v)
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case []byte:
		n, _ := strconv.ParseInt(string(x), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(x, 10, 64)
		return n
	}
	return 0
}
