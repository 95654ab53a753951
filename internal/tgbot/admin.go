package tgbot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"roster-bot/internal/chat"
	"roster-bot/internal/models"
	"roster-bot/internal/server"
	"roster-bot/internal/util"
)

func (a *App) handleAdminCommand(ctx context.Context, r *request) error {
	switch r.cmd {
	case cmdAdd:
		return a.startAdd(ctx, r)
	case cmdSpectators:
		return a.showPendingSpectators(ctx, r)
	case cmdGetPlayerStats:
		return a.sendPlayerStats(ctx, r)
	case cmdExport:
		return a.export(ctx, r)
	}
	return a.handleElse(ctx, r)
}

// ---------- Add game ----------

func (a *App) startAdd(ctx context.Context, r *request) error {
	if err := a.sessions.SetPlayer(ctx, r.id, models.StateAdd); err != nil {
		return err
	}
	a.send(ctx, r.id, addText, addKeyboard)
	return nil
}

func (a *App) cancelAdd(ctx context.Context, r *request, text string) error {
	if err := a.sessions.SetPlayer(ctx, r.id, models.StateDefault); err != nil {
		return err
	}
	a.send(ctx, r.id, text, defaultKeyboard(r.admin))
	return nil
}

// addStep checks what every ADD state has in common: admin only, /cancel
// aborts, and a draft must exist (it does not survive a restart).
func (a *App) addStep(ctx context.Context, r *request) (done bool, err error) {
	switch {
	case !r.admin:
		return true, a.handleElse(ctx, r)
	case r.cmd == cmdCancel:
		return true, a.cancelAdd(ctx, r, cancelledText)
	case r.so.Draft == nil && r.so.State != models.StateAdd:
		return true, a.cancelAdd(ctx, r, interruptedText)
	}
	return false, nil
}

func (a *App) handleAdd(ctx context.Context, r *request) error {
	if done, err := a.addStep(ctx, r); done {
		return err
	}
	var next models.PlayerState
	switch r.cmd {
	case strings.ToLower(btnHandball):
		next = models.StateAddHB1
	case strings.ToLower(btnTimekeeper):
		next = models.StateAddTK1
	default:
		a.send(ctx, r.id, addText, addKeyboard)
		return nil
	}
	if err := a.sessions.SetPlayer(ctx, r.id, next); err != nil {
		return err
	}
	r.so.Draft = &models.AddDraft{Timekeeper: next == models.StateAddTK1}
	a.send(ctx, r.id, whenText, cancelKeyboard)
	return nil
}

func (a *App) handleAddWhen(ctx context.Context, r *request) error {
	if done, err := a.addStep(ctx, r); done {
		return err
	}
	t, err := util.ParsePretty(r.ev.Text, a.st.Location())
	if err != nil {
		a.send(ctx, r.id, whenFailText, cancelKeyboard)
		return nil
	}
	next := models.StateAddHB2
	if r.so.State == models.StateAddTK1 {
		next = models.StateAddTK2
	}
	if err := a.sessions.SetPlayer(ctx, r.id, next); err != nil {
		return err
	}
	r.so.Draft.DateTime = t
	a.send(ctx, r.id, whereText, cancelKeyboard)
	return nil
}

func (a *App) handleAddWhere(ctx context.Context, r *request) error {
	if done, err := a.addStep(ctx, r); done {
		return err
	}
	next, prompt := models.StateAddHB3, opponentText
	if r.so.State == models.StateAddTK2 {
		next, prompt = models.StateAddTK3, whichMatchText
	}
	if err := a.sessions.SetPlayer(ctx, r.id, next); err != nil {
		return err
	}
	r.so.Draft.Place = strings.TrimSpace(r.ev.Text)
	a.send(ctx, r.id, prompt, cancelKeyboard)
	return nil
}

func (a *App) handleAddWhat(ctx context.Context, r *request) error {
	if done, err := a.addStep(ctx, r); done {
		return err
	}
	if err := a.sessions.SetPlayer(ctx, r.id, models.StateAddConfirm); err != nil {
		return err
	}
	what := strings.TrimSpace(r.ev.Text)
	if r.so.Draft.Timekeeper {
		what = "Timekeeper: " + what
	}
	r.so.Draft.Adversary = what
	a.send(ctx, r.id, confirmText(r.so.Draft), okOrCancelKeyboard)
	return nil
}

func (a *App) handleAddConfirm(ctx context.Context, r *request) error {
	if done, err := a.addStep(ctx, r); done {
		return err
	}
	if r.cmd != cmdOK {
		a.send(ctx, r.id, confirmText(r.so.Draft), okOrCancelKeyboard)
		return nil
	}
	d := r.so.Draft
	if _, err := a.st.InsertGame(ctx, models.Game{DateTime: d.DateTime, Place: d.Place, Adversary: d.Adversary}); err != nil {
		return err
	}
	if err := a.sessions.SetPlayer(ctx, r.id, models.StateDefault); err != nil {
		return err
	}
	a.send(ctx, r.id, fmt.Sprintf("Saved: %s | %s | %s", util.MakeDateTimePretty(d.DateTime), d.Place, d.Adversary),
		defaultKeyboard(r.admin))
	return nil
}

// ---------- Spectators ----------

func (a *App) showPendingSpectators(ctx context.Context, r *request) error {
	pending, err := a.st.PendingSpectators(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		a.send(ctx, r.id, noPendingText, defaultKeyboard(r.admin))
		return nil
	}
	if err := a.sessions.SetPlayer(ctx, r.id, models.StateSpectatorChoosePending); err != nil {
		return err
	}
	buttons := []string{btnContinueLater}
	for _, s := range pending {
		buttons = append(buttons, spectatorButton(s))
	}
	a.send(ctx, r.id, "Choose the spectator to approve or refuse", chat.Column(buttons...))
	return nil
}

// parseSpectatorButton reads the id off an "id | name" button.
func parseSpectatorButton(s string) (int64, bool) {
	head, _, ok := strings.Cut(s, "|")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(head), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (a *App) handleChoosePending(ctx context.Context, r *request) error {
	if !r.admin {
		return a.handleElse(ctx, r)
	}
	if r.cmd == btnContinueLater {
		return a.continueLater(ctx, r)
	}
	id, ok := parseSpectatorButton(r.cmd)
	if !ok {
		return a.handleElse(ctx, r)
	}
	sp, err := a.st.Spectator(ctx, id)
	if err != nil {
		return err
	}
	if sp == nil || sp.State != models.SpectatorAwaitApprove {
		a.logger.Warn("spectator not pending", "spectator_id", id, "chat_id", r.id)
		return a.handleElse(ctx, r)
	}
	if err := a.sessions.SetPlayer(ctx, r.id, models.StateSpectatorAppOrRef); err != nil {
		return err
	}
	r.so.SpectatorID = id
	a.send(ctx, r.id, fmt.Sprintf("Approve or refuse %s?", sp.Name()), approveKeyboard)
	return nil
}

func (a *App) handleApproveOrRefuse(ctx context.Context, r *request) error {
	if !r.admin {
		return a.handleElse(ctx, r)
	}
	if r.cmd == btnContinueLater {
		return a.continueLater(ctx, r)
	}
	sid := r.so.SpectatorID
	if sid < 0 {
		return a.handleElse(ctx, r)
	}

	var (
		next         models.SpectatorState
		toSpectator  string
		confirmation string
	)
	switch r.cmd {
	case btnApprove:
		next, toSpectator, confirmation = models.SpectatorDefault, approvedText, "Spectator approved"
	case btnRefuse:
		next, toSpectator, confirmation = models.SpectatorRefused, noAssociation, "Spectator refused"
	default:
		return a.handleElse(ctx, r)
	}

	if err := a.sessions.SetSpectator(ctx, sid, next); err != nil {
		return err
	}
	if err := a.sessions.SetPlayer(ctx, r.id, models.StateDefault); err != nil {
		return err
	}
	kb := spectatorKeyboard()
	if next == models.SpectatorRefused {
		kb = nil
	}
	a.send(ctx, sid, toSpectator, kb)
	a.send(ctx, r.id, confirmation, defaultKeyboard(r.admin))
	return nil
}

// ---------- Reports ----------

func (a *App) sendPlayerStats(ctx context.Context, r *request) error {
	stats, err := a.st.PlayerStats(ctx)
	if err != nil {
		return err
	}
	a.send(ctx, r.id, PlayerStatsText(stats), defaultKeyboard(r.admin))
	return nil
}

// PlayerStatsText renders one line per player; placeholder names are flagged.
func PlayerStatsText(stats []models.PlayerStats) string {
	if len(stats) == 0 {
		return "No players registered yet"
	}
	var b strings.Builder
	b.WriteString("Answers over upcoming games:")
	for _, s := range stats {
		fmt.Fprintf(&b, "\n%s: %d YES - %d NO - %d UNSURE", s.Name(), s.Yes, s.No, s.Unsure)
		if s.NeedsName() {
			fmt.Fprintf(&b, " (name missing, patch player %d)", s.ID)
		}
	}
	return b.String()
}

func (a *App) export(ctx context.Context, r *request) error {
	var sent bool
	if a.exporter != nil {
		where, err := a.exporter.Export(ctx)
		if err != nil {
			a.logger.Error("sheets export failed", "error", err)
			a.NotifyMaintainer(ctx, fmt.Sprintf("Sheets export failed: %v", err))
		} else {
			a.send(ctx, r.id, "Attendance exported to "+where, defaultKeyboard(r.admin))
			sent = true
		}
	}
	if a.cfg.BasePublicURL != "" && a.cfg.HTTPAddr != "" {
		url := server.ExportURL(a.cfg.BasePublicURL, a.cfg.ExportSecret)
		if err := a.gw.SendLink(ctx, r.id, "Attendance as CSV:", "games.csv", url); err != nil {
			a.logger.Error("send link failed", "chat_id", r.id, "error", err)
		}
		sent = true
	}
	if !sent {
		a.send(ctx, r.id, exportOffText, defaultKeyboard(r.admin))
	}
	return nil
}
