package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"roster-bot/internal/models"
)

const (
	playerExistsQuery = `SELECT COUNT(*) FROM players WHERE id = ?`
	insertPlayerQuery = `INSERT INTO players (id, first_name, last_name, state) VALUES (?, ?, ?, ?)`
	selectPlayerQuery = `SELECT id, first_name, last_name, state, retired FROM players WHERE id = ?`
	listPlayersQuery  = `
		SELECT id, first_name, last_name, state, retired FROM players
		WHERE NOT retired
		ORDER BY first_name, last_name, id
	`
	playerStatesQuery   = `SELECT id, state FROM players`
	setPlayerStateQuery = `UPDATE players SET state = ? WHERE id = ?`
	gamesColumnsQuery   = `SELECT * FROM games LIMIT 0`
)

// AttendanceColumn names the games column holding id's answers. Only the
// numeric id ever becomes part of the identifier.
func AttendanceColumn(id int64) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidPlayerID, id)
	}
	return fmt.Sprintf("p%d", id), nil
}

func (s *Store) PlayerExists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := s.exec.Get(ctx, &n, playerExistsQuery, id); err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertPlayer adds the player row and then the player's attendance column.
// The two statements are separate transactions: if the column step fails
// the row stays and the schema has to be reconciled by hand.
func (s *Store) InsertPlayer(ctx context.Context, id int64, first, last string) error {
	col, err := AttendanceColumn(id)
	if err != nil {
		return err
	}
	if err := s.exec.Exec(ctx, insertPlayerQuery, id, first, last, int(models.StateInit)); err != nil {
		return err
	}

	exists, err := s.hasGamesColumn(ctx, col)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Info("attendance column already present", "column", col)
	} else {
		alter := fmt.Sprintf("ALTER TABLE games ADD COLUMN %s SMALLINT NOT NULL DEFAULT %d", col, int(models.Unsure))
		if err := s.exec.Exec(ctx, alter); err != nil {
			s.logger.Error("player row inserted but attendance column missing", "chat_id", id, "error", err)
			return err
		}
	}

	s.mu.Lock()
	s.names[id] = first + " " + last
	s.mu.Unlock()
	s.logger.Info("added new player", "chat_id", id, "first_name", first, "last_name", last)
	return nil
}

func (s *Store) hasGamesColumn(ctx context.Context, col string) (bool, error) {
	var cols []string
	err := s.exec.Rows(ctx, gamesColumnsQuery, func(rows *sqlx.Rows) error {
		var err error
		cols, err = rows.Columns()
		return err
	})
	if err != nil {
		return false, err
	}
	for _, c := range cols {
		if strings.EqualFold(c, col) {
			return true, nil
		}
	}
	return false, nil
}

// Player returns nil when id is not registered.
func (s *Store) Player(ctx context.Context, id int64) (*models.Player, error) {
	var p models.Player
	err := s.exec.Get(ctx, &p, selectPlayerQuery, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Players lists every non-retired player.
func (s *Store) Players(ctx context.Context) ([]models.Player, error) {
	var players []models.Player
	if err := s.exec.Select(ctx, &players, listPlayersQuery); err != nil {
		return nil, err
	}
	return players, nil
}

type idState struct {
	ID    int64 `db:"id"`
	State int   `db:"state"`
}

func (s *Store) PlayerStates(ctx context.Context) (map[int64]models.PlayerState, error) {
	var rows []idState
	if err := s.exec.Select(ctx, &rows, playerStatesQuery); err != nil {
		return nil, err
	}
	out := make(map[int64]models.PlayerState, len(rows))
	for _, r := range rows {
		out[r.ID] = models.PlayerState(r.State)
	}
	return out, nil
}

func (s *Store) SetPlayerState(ctx context.Context, id int64, st models.PlayerState) error {
	return s.exec.Exec(ctx, setPlayerStateQuery, int(st), id)
}
