// Package session keeps every known chat's dialog position in memory,
// mirrored to the store. A transition is written to the store first and only
// then applied in memory, so a failed write leaves the old state in place.
package session

import (
	"context"
	"errors"
	"fmt"

	"roster-bot/internal/models"
)

var ErrUnknownUser = errors.New("unknown chat id")

// StateObject is one player's dialog context.
type StateObject struct {
	State models.PlayerState
	// GameNumber is the pending game while in EDIT_GAME, -1 otherwise.
	GameNumber int64
	// SpectatorID is the pending spectator while in SPECTATOR_APP_OR_REF.
	SpectatorID int64
	Draft       *models.AddDraft
}

func newStateObject(st models.PlayerState) *StateObject {
	return &StateObject{State: st, GameNumber: -1, SpectatorID: -1}
}

// Persister is the part of the store the session map writes through.
type Persister interface {
	PlayerStates(ctx context.Context) (map[int64]models.PlayerState, error)
	SpectatorStates(ctx context.Context) (map[int64]models.SpectatorState, error)
	SetPlayerState(ctx context.Context, id int64, st models.PlayerState) error
	SetSpectatorState(ctx context.Context, id int64, st models.SpectatorState) error
}

// Map is owned by the bot loop and is not safe for concurrent use.
type Map struct {
	store      Persister
	players    map[int64]*StateObject
	spectators map[int64]models.SpectatorState
}

func New(store Persister) *Map {
	return &Map{
		store:      store,
		players:    map[int64]*StateObject{},
		spectators: map[int64]models.SpectatorState{},
	}
}

// Load replaces both maps with what the store holds. Callers treat an error
// as fatal.
func (m *Map) Load(ctx context.Context) error {
	ps, err := m.store.PlayerStates(ctx)
	if err != nil {
		return fmt.Errorf("load player states: %w", err)
	}
	ss, err := m.store.SpectatorStates(ctx)
	if err != nil {
		return fmt.Errorf("load spectator states: %w", err)
	}
	players := make(map[int64]*StateObject, len(ps))
	for id, st := range ps {
		players[id] = newStateObject(st)
	}
	m.players = players
	m.spectators = ss
	return nil
}

// Player returns the live state object, or nil if id is not a player.
func (m *Map) Player(id int64) *StateObject {
	return m.players[id]
}

func (m *Map) IsPlayer(id int64) bool {
	_, ok := m.players[id]
	return ok
}

// AddPlayer whitelists a group member in INIT. Nothing is persisted until
// the player sends /start.
func (m *Map) AddPlayer(id int64) *StateObject {
	so := newStateObject(models.StateInit)
	m.players[id] = so
	return so
}

// SetPlayer persists st for id and then updates memory. The pending game
// survives only into EDIT_GAME and the pending spectator only into
// SPECTATOR_APP_OR_REF; the add-game draft only within the ADD states.
func (m *Map) SetPlayer(ctx context.Context, id int64, st models.PlayerState) error {
	so, ok := m.players[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownUser, id)
	}
	if err := m.store.SetPlayerState(ctx, id, st); err != nil {
		return err
	}
	so.State = st
	if st != models.StateEditGame {
		so.GameNumber = -1
	}
	if st != models.StateSpectatorAppOrRef {
		so.SpectatorID = -1
	}
	if !st.IsAdd() {
		so.Draft = nil
	}
	return nil
}

// ForceDefault puts id back to DEFAULT in memory only. Error recovery uses it
// when even the state write failed; the store catches up on the next
// successful SetPlayer.
func (m *Map) ForceDefault(id int64) {
	if so, ok := m.players[id]; ok {
		so.State = models.StateDefault
		so.GameNumber = -1
		so.SpectatorID = -1
		so.Draft = nil
	}
}

// Spectator returns the spectator state and whether id is a spectator.
func (m *Map) Spectator(id int64) (models.SpectatorState, bool) {
	st, ok := m.spectators[id]
	return st, ok
}

// AddSpectator records a spectator the store already holds.
func (m *Map) AddSpectator(id int64, st models.SpectatorState) {
	m.spectators[id] = st
}

func (m *Map) SetSpectator(ctx context.Context, id int64, st models.SpectatorState) error {
	if _, ok := m.spectators[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownUser, id)
	}
	if err := m.store.SetSpectatorState(ctx, id, st); err != nil {
		return err
	}
	m.spectators[id] = st
	return nil
}

// Players returns the ids of all known players.
func (m *Map) Players() []int64 {
	out := make([]int64, 0, len(m.players))
	for id := range m.players {
		out = append(out, id)
	}
	return out
}
