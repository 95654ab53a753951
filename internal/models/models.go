package models

import "time"

// NoNameGiven is stored when Telegram did not send a first or last name.
// An administrator has to patch such rows by hand.
const NoNameGiven = " No Name Given"

type Player struct {
	ID        int64       `db:"id"`
	FirstName string      `db:"first_name"`
	LastName  string      `db:"last_name"`
	State     PlayerState `db:"state"`
	Retired   bool        `db:"retired"`
}

func (p Player) Name() string {
	return p.FirstName + " " + p.LastName
}

// NeedsName reports whether the player still carries the placeholder name.
func (p Player) NeedsName() bool {
	return p.FirstName == NoNameGiven || p.LastName == NoNameGiven
}

type Spectator struct {
	ID        int64          `db:"id"`
	FirstName string         `db:"first_name"`
	LastName  string         `db:"last_name"`
	State     SpectatorState `db:"state"`
}

func (s Spectator) Name() string {
	return s.FirstName + " " + s.LastName
}

type Game struct {
	ID        int64
	DateTime  time.Time
	Place     string
	Adversary string
}

// GameStatus is one upcoming game joined with a single player's attendance.
type GameStatus struct {
	Game
	Status Attendance
}

// GameSummary is one upcoming game with the attendance of every active player.
type GameSummary struct {
	Game
	Statuses map[int64]Attendance
}

// Count returns how many players answered with a.
func (g GameSummary) Count(a Attendance) int {
	n := 0
	for _, s := range g.Statuses {
		if s == a {
			n++
		}
	}
	return n
}

// DueGame is a game on a given day plus the players still unsure about it.
type DueGame struct {
	Game
	Unsure []int64
}

type PlayerStats struct {
	Player
	Yes    int
	No     int
	Unsure int
}

// AddDraft collects the answers of the admin "add game" flow.
type AddDraft struct {
	Timekeeper bool
	DateTime   time.Time
	Place      string
	Adversary  string
}
