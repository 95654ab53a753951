package store

import (
	"context"

	"roster-bot/internal/models"
)

const (
	insertSpectatorQuery = `INSERT INTO spectators (id, first_name, last_name, state) VALUES (?, ?, ?, ?)`
	selectSpectatorQuery = `SELECT id, first_name, last_name, state FROM spectators WHERE id = ?`
	pendingSpectatorsQuery = `
		SELECT id, first_name, last_name, state FROM spectators
		WHERE state = ?
		ORDER BY id
	`
	spectatorStatesQuery   = `SELECT id, state FROM spectators`
	setSpectatorStateQuery = `UPDATE spectators SET state = ? WHERE id = ?`
)

// InsertSpectator registers a non-member awaiting administrator approval.
func (s *Store) InsertSpectator(ctx context.Context, id int64, first, last string) error {
	if err := s.exec.Exec(ctx, insertSpectatorQuery, id, first, last, int(models.SpectatorAwaitApprove)); err != nil {
		return err
	}
	s.logger.Info("added new spectator", "chat_id", id, "first_name", first, "last_name", last)
	return nil
}

// Spectator returns nil when id is unknown.
func (s *Store) Spectator(ctx context.Context, id int64) (*models.Spectator, error) {
	var sp models.Spectator
	err := s.exec.Get(ctx, &sp, selectSpectatorQuery, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (s *Store) PendingSpectators(ctx context.Context) ([]models.Spectator, error) {
	var out []models.Spectator
	if err := s.exec.Select(ctx, &out, pendingSpectatorsQuery, int(models.SpectatorAwaitApprove)); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SpectatorStates(ctx context.Context) (map[int64]models.SpectatorState, error) {
	var rows []idState
	if err := s.exec.Select(ctx, &rows, spectatorStatesQuery); err != nil {
		return nil, err
	}
	out := make(map[int64]models.SpectatorState, len(rows))
	for _, r := range rows {
		out[r.ID] = models.SpectatorState(r.State)
	}
	return out, nil
}

func (s *Store) SetSpectatorState(ctx context.Context, id int64, st models.SpectatorState) error {
	return s.exec.Exec(ctx, setSpectatorStateQuery, int(st), id)
}
