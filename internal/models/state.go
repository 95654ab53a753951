package models

import (
	"fmt"
	"strings"
)

// PlayerState is the persisted dialog position of a player.
type PlayerState int

const (
	StateInit    PlayerState = -1
	StateDefault PlayerState = 0

	StateGetStats PlayerState = 1

	StateAdd        PlayerState = 100
	StateAddHB1     PlayerState = 110
	StateAddHB2     PlayerState = 111
	StateAddHB3     PlayerState = 112
	StateAddTK1     PlayerState = 120
	StateAddTK2     PlayerState = 121
	StateAddTK3     PlayerState = 122
	StateAddConfirm PlayerState = 199

	StateEditChooseGame PlayerState = 200
	StateEditGame       PlayerState = 201

	// StateGroupChat marks the team group; no player is ever in it.
	StateGroupChat PlayerState = -42

	StateSpectatorChoosePending PlayerState = 300
	StateSpectatorAppOrRef      PlayerState = 301
)

var playerStateNames = map[PlayerState]string{
	StateInit:                   "INIT",
	StateDefault:                "DEFAULT",
	StateGetStats:               "GET_STATS",
	StateAdd:                    "ADD",
	StateAddHB1:                 "ADD_HB_1",
	StateAddHB2:                 "ADD_HB_2",
	StateAddHB3:                 "ADD_HB_3",
	StateAddTK1:                 "ADD_TK_1",
	StateAddTK2:                 "ADD_TK_2",
	StateAddTK3:                 "ADD_TK_3",
	StateAddConfirm:             "ADD_CONFIRM",
	StateEditChooseGame:         "EDIT_CHOOSE_GAME",
	StateEditGame:               "EDIT_GAME",
	StateGroupChat:              "GROUP_CHAT",
	StateSpectatorChoosePending: "SPECTATOR_CHOOSE_PENDING",
	StateSpectatorAppOrRef:      "SPECTATOR_APP_OR_REF",
}

// PlayerStates lists every declared player state.
func PlayerStates() []PlayerState {
	out := make([]PlayerState, 0, len(playerStateNames))
	for s := range playerStateNames {
		out = append(out, s)
	}
	return out
}

func (s PlayerState) Valid() bool {
	_, ok := playerStateNames[s]
	return ok
}

func (s PlayerState) String() string {
	if name, ok := playerStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PlayerState(%d)", int(s))
}

// IsAdd reports whether s belongs to the admin "add game" flow.
func (s PlayerState) IsAdd() bool {
	return strings.HasPrefix(s.String(), "ADD")
}

type SpectatorState int

const (
	SpectatorRefused      SpectatorState = -999
	SpectatorAwaitApprove SpectatorState = -1
	SpectatorDefault      SpectatorState = 0
	SpectatorChooseGame   SpectatorState = 10
)

func (s SpectatorState) String() string {
	switch s {
	case SpectatorRefused:
		return "REFUSED"
	case SpectatorAwaitApprove:
		return "AWAIT_APPROVE"
	case SpectatorDefault:
		return "DEFAULT"
	case SpectatorChooseGame:
		return "CHOOSE_GAME"
	}
	return fmt.Sprintf("SpectatorState(%d)", int(s))
}
