package tgbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"roster-bot/internal/chat"
	"roster-bot/internal/models"
	"roster-bot/internal/store"
)

// dispatchSpectator serves approved spectators read-only stats. Refused
// spectators are dropped without an answer.
func (a *App) dispatchSpectator(ctx context.Context, ev chat.Event, st models.SpectatorState) {
	id := ev.SenderID
	cmd := strings.ToLower(strings.TrimSpace(ev.Text))

	var err error
	switch st {
	case models.SpectatorRefused:
		a.logger.Debug("dropped message from refused spectator", "chat_id", id)
		return
	case models.SpectatorAwaitApprove:
		a.send(ctx, id, awaitApproval, &chat.Keyboard{Remove: true})
		return
	case models.SpectatorDefault:
		err = a.spectatorDefault(ctx, ev, cmd)
	case models.SpectatorChooseGame:
		err = a.spectatorChooseGame(ctx, ev, cmd)
	default:
		a.NotifyMaintainer(ctx, fmt.Sprintf("Spectator (%d) in no valid state: %d", id, int(st)))
		err = fmt.Errorf("%w: spectator %d", errInvalidState, int(st))
	}
	if err == nil {
		return
	}

	a.logger.Error("handling failed", "chat_id", id, "state", st.String(), "error", err)
	if serr := a.sessions.SetSpectator(ctx, id, models.SpectatorDefault); serr != nil {
		a.logger.Error("spectator state reset failed", "chat_id", id, "error", serr)
	}
	if !errors.Is(err, errInvalidState) {
		a.NotifyMaintainer(ctx, "Error in executing the following query:\n"+store.StatementOf(err))
	}
	a.send(ctx, id, errorText, spectatorKeyboard())
}

func (a *App) spectatorDefault(ctx context.Context, ev chat.Event, cmd string) error {
	id := ev.SenderID
	switch cmd {
	case cmdStats:
		games, err := a.st.GamesSummary(ctx)
		if err != nil {
			return err
		}
		if len(games) == 0 {
			a.send(ctx, id, store.NoUpcomingGamesText, spectatorKeyboard())
			return nil
		}
		if err := a.sessions.SetSpectator(ctx, id, models.SpectatorChooseGame); err != nil {
			return err
		}
		a.sendMode(ctx, id, statsOverviewText, statsListKeyboard(games), chat.ModeMarkdownV2)
	case cmdWebsite:
		if err := a.gw.SendLink(ctx, id, websiteText, a.cfg.WebsiteLabel, a.cfg.WebsiteURL); err != nil {
			a.logger.Error("send link failed", "chat_id", id, "error", err)
		}
	case "hi", "/hi":
		a.send(ctx, id, hiText(ev.FirstName), nil)
	default:
		a.send(ctx, id, spectatorHelpText(ev.FirstName), spectatorKeyboard())
	}
	return nil
}

func (a *App) spectatorChooseGame(ctx context.Context, ev chat.Event, cmd string) error {
	id := ev.SenderID
	if cmd == btnContinueLater || !isGameLabel(cmd) {
		if err := a.sessions.SetSpectator(ctx, id, models.SpectatorDefault); err != nil {
			return err
		}
		text := farewellText(ev.FirstName)
		if cmd != btnContinueLater {
			text = spectatorHelpText(ev.FirstName)
		}
		a.send(ctx, id, text, spectatorKeyboard())
		return nil
	}

	gameID, err := a.st.ResolveGameID(ctx, cmd)
	if err != nil {
		return err
	}
	if gameID < 0 {
		if err := a.sessions.SetSpectator(ctx, id, models.SpectatorDefault); err != nil {
			return err
		}
		a.send(ctx, id, spectatorHelpText(ev.FirstName), spectatorKeyboard())
		return nil
	}
	text, err := a.st.AttendanceSummaryText(ctx, gameID)
	if err != nil {
		return err
	}
	games, err := a.st.GamesSummary(ctx)
	if err != nil {
		return err
	}
	a.send(ctx, id, text, statsListKeyboard(games))
	return nil
}
