package tgbot

import (
	"context"
	"fmt"

	"roster-bot/internal/chat"
	"roster-bot/internal/models"
	"roster-bot/internal/store"
)

// playerHandlers has one entry per declared PlayerState; TestEveryStateHasHandler
// keeps it that way.
func (a *App) playerHandlers() map[models.PlayerState]handler {
	return map[models.PlayerState]handler{
		models.StateInit:                   a.handleInit,
		models.StateDefault:                a.handleDefault,
		models.StateGetStats:               a.handleGetStats,
		models.StateEditChooseGame:         a.handleEditChooseGame,
		models.StateEditGame:               a.handleEditGame,
		models.StateAdd:                    a.handleAdd,
		models.StateAddHB1:                 a.handleAddWhen,
		models.StateAddTK1:                 a.handleAddWhen,
		models.StateAddHB2:                 a.handleAddWhere,
		models.StateAddTK2:                 a.handleAddWhere,
		models.StateAddHB3:                 a.handleAddWhat,
		models.StateAddTK3:                 a.handleAddWhat,
		models.StateAddConfirm:             a.handleAddConfirm,
		models.StateSpectatorChoosePending: a.handleChoosePending,
		models.StateSpectatorAppOrRef:      a.handleApproveOrRefuse,
		// Nobody is ever in the group sentinel state.
		models.StateGroupChat: a.handleInvalidState,
	}
}

func (a *App) handleInit(ctx context.Context, r *request) error {
	if r.cmd != cmdStart {
		a.send(ctx, r.id, initText, initKeyboard)
		return nil
	}
	exists, err := a.st.PlayerExists(ctx, r.id)
	if err != nil {
		return err
	}
	if !exists {
		if err := a.st.InsertPlayer(ctx, r.id, r.ev.FirstName, r.ev.LastName); err != nil {
			return err
		}
		if r.ev.FirstName == models.NoNameGiven || r.ev.LastName == models.NoNameGiven {
			a.NotifyMaintainer(ctx, fmt.Sprintf("New player %d registered without a full name (%s %s), please patch it",
				r.id, r.ev.FirstName, r.ev.LastName))
		}
	}
	if err := a.sessions.SetPlayer(ctx, r.id, models.StateDefault); err != nil {
		return err
	}
	a.send(ctx, r.id, a.startText(r.first()), defaultKeyboard(r.admin))
	return nil
}

func (a *App) handleDefault(ctx context.Context, r *request) error {
	switch r.cmd {
	case cmdAdd, cmdSpectators, cmdGetPlayerStats, cmdExport:
		if !r.admin {
			return a.handleElse(ctx, r)
		}
		return a.handleAdminCommand(ctx, r)
	case cmdEditGames:
		return a.showEditList(ctx, r)
	case cmdStats:
		return a.showStatsList(ctx, r)
	case cmdHelp:
		a.send(ctx, r.id, a.helpText(r.first(), r.admin), defaultKeyboard(r.admin))
		return nil
	case cmdStart:
		a.send(ctx, r.id, a.startText(r.first()), defaultKeyboard(r.admin))
		return nil
	case cmdWebsite:
		if err := a.gw.SendLink(ctx, r.id, websiteText, a.cfg.WebsiteLabel, a.cfg.WebsiteURL); err != nil {
			a.logger.Error("send link failed", "chat_id", r.id, "error", err)
		}
		return nil
	}
	return a.handleElse(ctx, r)
}

// handleElse answers "hi" in any state and otherwise falls back to /help
// in DEFAULT.
func (a *App) handleElse(ctx context.Context, r *request) error {
	if r.cmd == "hi" || r.cmd == "/hi" {
		a.send(ctx, r.id, hiText(r.first()), nil)
		return nil
	}
	if err := a.sessions.SetPlayer(ctx, r.id, models.StateDefault); err != nil {
		return err
	}
	a.send(ctx, r.id, a.helpText(r.first(), r.admin), defaultKeyboard(r.admin))
	return nil
}

func (a *App) continueLater(ctx context.Context, r *request) error {
	if err := a.sessions.SetPlayer(ctx, r.id, models.StateDefault); err != nil {
		return err
	}
	a.send(ctx, r.id, farewellText(r.first()), defaultKeyboard(r.admin))
	return nil
}

func (a *App) noGames(ctx context.Context, r *request) error {
	if err := a.sessions.SetPlayer(ctx, r.id, models.StateDefault); err != nil {
		return err
	}
	a.send(ctx, r.id, store.NoUpcomingGamesText, defaultKeyboard(r.admin))
	return nil
}

// ---------- Stats ----------

func (a *App) showStatsList(ctx context.Context, r *request) error {
	games, err := a.st.GamesSummary(ctx)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		return a.noGames(ctx, r)
	}
	if err := a.sessions.SetPlayer(ctx, r.id, models.StateGetStats); err != nil {
		return err
	}
	a.sendMode(ctx, r.id, statsOverviewText, statsListKeyboard(games), chat.ModeMarkdownV2)
	return nil
}

func (a *App) handleGetStats(ctx context.Context, r *request) error {
	if r.cmd == btnContinueLater {
		return a.continueLater(ctx, r)
	}
	if !isGameLabel(r.cmd) {
		return a.handleElse(ctx, r)
	}
	id, err := a.st.ResolveGameID(ctx, r.cmd)
	if err != nil {
		return err
	}
	if id < 0 {
		a.logger.Warn("game not found", "command", r.cmd, "chat_id", r.id)
		return a.handleElse(ctx, r)
	}
	text, err := a.st.AttendanceSummaryText(ctx, id)
	if err != nil {
		return err
	}
	games, err := a.st.GamesSummary(ctx)
	if err != nil {
		return err
	}
	a.send(ctx, r.id, text, statsListKeyboard(games))
	return nil
}

// ---------- Edit attendance ----------

// showEditList enters EDIT_CHOOSE_GAME with the player's upcoming games, or
// stays in DEFAULT when there are none.
func (a *App) showEditList(ctx context.Context, r *request) error {
	games, err := a.st.GamesWithAttendance(ctx, r.id)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		return a.noGames(ctx, r)
	}
	if err := a.sessions.SetPlayer(ctx, r.id, models.StateEditChooseGame); err != nil {
		return err
	}
	a.sendMode(ctx, r.id, editGamesText, editListKeyboard(games), chat.ModeMarkdownV2)
	return nil
}

func (a *App) handleEditChooseGame(ctx context.Context, r *request) error {
	if r.cmd == btnContinueLater {
		return a.continueLater(ctx, r)
	}
	if !isGameLabel(r.cmd) {
		return a.handleElse(ctx, r)
	}
	id, err := a.st.ResolveGameID(ctx, r.cmd)
	if err != nil {
		return err
	}
	if id < 0 {
		a.logger.Warn("game not found", "command", r.cmd, "chat_id", r.id)
		return a.handleElse(ctx, r)
	}
	if err := a.sessions.SetPlayer(ctx, r.id, models.StateEditGame); err != nil {
		return err
	}
	r.so.GameNumber = id
	a.send(ctx, r.id, selectionText, selectKeyboard)
	return nil
}

func (a *App) handleEditGame(ctx context.Context, r *request) error {
	switch {
	case models.StatusIsValid(r.cmd):
		// The pending game is not persisted; after a restart go back to the list.
		if r.so.GameNumber < 0 {
			return a.showEditList(ctx, r)
		}
		if err := a.st.SetAttendance(ctx, r.so.GameNumber, r.id, r.cmd); err != nil {
			return err
		}
		return a.showEditList(ctx, r)
	case r.cmd == "overview":
		return a.showEditList(ctx, r)
	case r.cmd == btnContinueLater:
		return a.continueLater(ctx, r)
	}
	return a.handleElse(ctx, r)
}
