package tgbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"roster-bot/internal/chat"
	"roster-bot/internal/config"
	"roster-bot/internal/models"
	"roster-bot/internal/session"
	"roster-bot/internal/store"
)

// Exporter pushes the attendance table somewhere outside the bot.
type Exporter interface {
	Export(ctx context.Context) (string, error)
}

// Job is work submitted from outside the loop, run between two events.
type Job func(ctx context.Context)

type App struct {
	cfg      config.Config
	gw       chat.Gateway
	st       *store.Store
	sessions *session.Map
	exporter Exporter
	logger   *slog.Logger

	jobs     chan Job
	handlers map[models.PlayerState]handler
}

type Option func(*App)

func WithExporter(e Exporter) Option {
	return func(a *App) { a.exporter = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

func New(cfg config.Config, gw chat.Gateway, st *store.Store, sessions *session.Map, opts ...Option) *App {
	a := &App{
		cfg:      cfg,
		gw:       gw,
		st:       st,
		sessions: sessions,
		jobs:     make(chan Job, 16),
	}
	for _, o := range opts {
		o(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.handlers = a.playerHandlers()
	return a
}

// Run handles events and submitted jobs one at a time until ctx is done or
// events is closed.
func (a *App) Run(ctx context.Context, events <-chan chat.Event) error {
	a.logger.Info("bot started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return errEventsClosed
			}
			a.Handle(ctx, ev)
		case job := <-a.jobs:
			job(ctx)
		}
	}
}

// Submit queues job for the run loop. It blocks while the queue is full.
func (a *App) Submit(ctx context.Context, job Job) error {
	select {
	case a.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle dispatches one inbound event.
func (a *App) Handle(ctx context.Context, ev chat.Event) {
	switch ev.Kind {
	case chat.PrivateCallback:
		if err := a.gw.AnswerCallback(ctx, ev.CallbackID, ""); err != nil {
			a.logger.Warn("answer callback", "error", err)
		}
		a.handlePrivate(ctx, ev)
	case chat.PrivateText:
		a.handlePrivate(ctx, ev)
	case chat.GroupText:
		a.handleGroup(ctx, ev)
	default:
		a.handleOther(ctx, ev)
	}
}

// ---------- Outbound helpers ----------

func (a *App) send(ctx context.Context, chatID int64, text string, kb *chat.Keyboard) {
	a.sendMode(ctx, chatID, text, kb, chat.ModePlain)
}

func (a *App) sendMode(ctx context.Context, chatID int64, text string, kb *chat.Keyboard, mode string) {
	if err := a.gw.Send(ctx, chatID, text, kb, mode); err != nil {
		a.logger.Error("send failed", "chat_id", chatID, "error", err)
	}
}

// NotifyMaintainer reports text to the maintainer chat.
func (a *App) NotifyMaintainer(ctx context.Context, text string) {
	a.send(ctx, a.cfg.MaintainerTGID, text, nil)
}

// ---------- Private chats ----------

func (a *App) handlePrivate(ctx context.Context, ev chat.Event) {
	id := ev.SenderID
	if so := a.sessions.Player(id); so != nil {
		a.dispatchPlayer(ctx, ev, so)
		return
	}
	if st, ok := a.sessions.Spectator(id); ok {
		a.dispatchSpectator(ctx, ev, st)
		return
	}
	a.firstContact(ctx, ev)
}

// firstContact whitelists group members as players in INIT and registers
// everybody else as a spectator awaiting approval. Either way the event is
// dispatched again.
func (a *App) firstContact(ctx context.Context, ev chat.Event) {
	id := ev.SenderID
	member, err := a.gw.IsGroupMember(ctx, a.cfg.GroupChatID, id)
	if err != nil {
		a.logger.Error("membership check failed", "chat_id", id, "error", err)
		a.NotifyMaintainer(ctx, fmt.Sprintf("Membership check for %d failed: %v", id, err))
		return
	}
	if member {
		a.logger.Info("new player whitelisted", "chat_id", id)
		a.sessions.AddPlayer(id)
		a.handlePrivate(ctx, ev)
		return
	}

	if err := a.st.InsertSpectator(ctx, id, ev.FirstName, ev.LastName); err != nil {
		a.NotifyMaintainer(ctx, "Error in executing the following query:\n"+store.StatementOf(err))
		a.send(ctx, id, errorText, nil)
		return
	}
	a.sessions.AddSpectator(id, models.SpectatorAwaitApprove)
	a.NotifyMaintainer(ctx, fmt.Sprintf("New spectator %d | %s %s awaits approval, see /spectators", id, ev.FirstName, ev.LastName))
	a.handlePrivate(ctx, ev)
}

// request is one private text from a known player.
type request struct {
	ev    chat.Event
	id    int64
	so    *session.StateObject
	cmd   string
	admin bool
}

func (r *request) first() string { return r.ev.FirstName }

type handler func(ctx context.Context, r *request) error

var (
	errInvalidState = errors.New("user in no valid state")
	errEventsClosed = errors.New("event stream closed")
)

func (a *App) dispatchPlayer(ctx context.Context, ev chat.Event, so *session.StateObject) {
	r := &request{
		ev:    ev,
		id:    ev.SenderID,
		so:    so,
		cmd:   strings.ToLower(strings.TrimSpace(ev.Text)),
		admin: a.cfg.IsAdmin(ev.SenderID),
	}
	a.logger.Info("got command", "command", r.cmd, "chat_id", r.id, "state", so.State.String())

	h, ok := a.handlers[so.State]
	if !ok {
		h = a.handleInvalidState
	}
	if err := h(ctx, r); err != nil {
		a.recoverPlayer(ctx, r, err)
	}
}

// recoverPlayer is the single place a failed player interaction ends up:
// state back to DEFAULT, maintainer gets the statement, user an apology.
func (a *App) recoverPlayer(ctx context.Context, r *request, err error) {
	a.logger.Error("handling failed", "chat_id", r.id, "state", r.so.State.String(), "error", err)
	if serr := a.sessions.SetPlayer(ctx, r.id, models.StateDefault); serr != nil {
		a.logger.Error("state reset failed", "chat_id", r.id, "error", serr)
		a.sessions.ForceDefault(r.id)
	}
	// handleInvalidState has already reported the state itself.
	if !errors.Is(err, errInvalidState) {
		a.NotifyMaintainer(ctx, "Error in executing the following query:\n"+store.StatementOf(err))
	}
	a.send(ctx, r.id, errorText, defaultKeyboard(r.admin))
}

func (a *App) handleInvalidState(ctx context.Context, r *request) error {
	a.NotifyMaintainer(ctx, fmt.Sprintf("User (%d) in no valid state: %d", r.id, int(r.so.State)))
	return fmt.Errorf("%w: %d", errInvalidState, int(r.so.State))
}

// ---------- Group chats ----------

func (a *App) handleGroup(ctx context.Context, ev chat.Event) {
	if ev.ChatID != a.cfg.GroupChatID {
		a.NotifyMaintainer(ctx, fmt.Sprintf("Unauthorized usage from group chat: %d", ev.ChatID))
		return
	}
	a.logger.Info("group message", "chat_id", ev.ChatID, "command", ev.Text)

	mention := "@" + strings.ToLower(a.gw.Username())
	if a.gw.Username() == "" || !strings.HasPrefix(strings.ToLower(ev.Text), mention) {
		return
	}
	if !strings.Contains(strings.ToLower(ev.Text[len(mention):]), "stats") {
		return
	}
	text, err := a.st.AttendanceSummaryText(ctx, store.NextGame)
	if err != nil {
		a.NotifyMaintainer(ctx, "Error in executing the following query:\n"+store.StatementOf(err))
		return
	}
	a.send(ctx, ev.ChatID, groupStatsIntro+text, nil)
}

func (a *App) handleOther(ctx context.Context, ev chat.Event) {
	switch ev.ChatType {
	case chat.ChatPrivate:
		a.logger.Info("ignored content", "content", ev.ContentType, "chat_id", ev.ChatID)
	case chat.ChatGroup, chat.ChatSupergroup:
		if ev.ChatID == a.cfg.GroupChatID {
			a.logger.Info("ignored group content", "content", ev.ContentType, "chat_id", ev.ChatID)
			return
		}
		a.NotifyMaintainer(ctx, fmt.Sprintf("Unauthorized usage from group chat: %d", ev.ChatID))
	case chat.ChatChannel:
		a.NotifyMaintainer(ctx, fmt.Sprintf("bot added to channel: %d", ev.ChatID))
	default:
		a.NotifyMaintainer(ctx, fmt.Sprintf("unknown chat_type %s", ev.ChatType))
	}
}
