package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"roster-bot/internal/models"
	"roster-bot/internal/util"
)

// Telegram implements Gateway over the Bot API with long polling.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
	stop   sync.Once
}

func NewTelegram(token string, logger *slog.Logger) (*Telegram, error) {
	return newTelegram(token, tgbotapi.APIEndpoint, logger)
}

func newTelegram(token, endpoint string, logger *slog.Logger) (*Telegram, error) {
	b, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram init failed: %w", err)
	}
	b.Debug = false
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("telegram bot authorized", "user", b.Self.UserName)
	return &Telegram{bot: b, logger: logger}, nil
}

func (t *Telegram) Username() string {
	return t.bot.Self.UserName
}

// Events streams updates until ctx is done. The library poller is started
// once for the lifetime of the bot and retries failed polls on its own;
// a BotAPI cannot be restarted after StopReceivingUpdates.
func (t *Telegram) Events(ctx context.Context) <-chan Event {
	out := make(chan Event)
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		defer close(out)
		defer t.stop.Do(t.bot.StopReceivingUpdates)
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					t.logger.Warn("telegram update channel closed")
					return
				}
				ev, ok := EventFromUpdate(upd)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// EventFromUpdate converts an update; ok is false for update types the bot
// does not handle (edits, inline queries, polls).
func EventFromUpdate(u tgbotapi.Update) (Event, bool) {
	switch {
	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		ev := Event{
			Kind:        PrivateCallback,
			ChatType:    ChatPrivate,
			SenderID:    q.From.ID,
			ChatID:      q.From.ID,
			Text:        q.Data,
			CallbackID:  q.ID,
			ContentType: "callback",
		}
		if q.Message != nil && q.Message.Chat != nil {
			ev.ChatID = q.Message.Chat.ID
			ev.ChatType = q.Message.Chat.Type
		}
		ev.FirstName, ev.LastName = names(q.From)
		return ev, true

	case u.Message != nil:
		return fromMessage(u.Message), true

	case u.ChannelPost != nil:
		ev := fromMessage(u.ChannelPost)
		ev.Kind = OtherContent
		return ev, true
	}
	return Event{}, false
}

func fromMessage(m *tgbotapi.Message) Event {
	ev := Event{
		ChatID:      m.Chat.ID,
		ChatType:    m.Chat.Type,
		Text:        m.Text,
		ContentType: contentType(m),
	}
	if m.From != nil {
		ev.SenderID = m.From.ID
	}
	ev.FirstName, ev.LastName = names(m.From)

	switch {
	case ev.ContentType != "text":
		ev.Kind = OtherContent
	case m.Chat.IsPrivate():
		ev.Kind = PrivateText
	case m.Chat.IsGroup() || m.Chat.IsSuperGroup():
		ev.Kind = GroupText
	default:
		ev.Kind = OtherContent
	}
	return ev
}

func names(u *tgbotapi.User) (first, last string) {
	first, last = models.NoNameGiven, models.NoNameGiven
	if u == nil {
		return first, last
	}
	if u.FirstName != "" {
		first = util.Capitalize(u.FirstName)
	}
	if u.LastName != "" {
		last = util.Capitalize(u.LastName)
	}
	return first, last
}

func contentType(m *tgbotapi.Message) string {
	switch {
	case m.Text != "":
		return "text"
	case len(m.Photo) > 0:
		return "photo"
	case m.Sticker != nil:
		return "sticker"
	case m.Document != nil:
		return "document"
	case m.Voice != nil:
		return "voice"
	case m.Video != nil:
		return "video"
	case m.Location != nil:
		return "location"
	case m.Contact != nil:
		return "contact"
	case len(m.NewChatMembers) > 0:
		return "new_chat_members"
	case m.LeftChatMember != nil:
		return "left_chat_member"
	}
	return "other"
}

func (t *Telegram) Send(_ context.Context, chatID int64, text string, kb *Keyboard, mode string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = mode
	if kb != nil {
		msg.ReplyMarkup = replyMarkup(kb)
	}
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

func replyMarkup(kb *Keyboard) any {
	if kb.Remove {
		return tgbotapi.NewRemoveKeyboard(false)
	}
	rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Rows))
	for _, r := range kb.Rows {
		row := make([]tgbotapi.KeyboardButton, 0, len(r))
		for _, label := range r {
			row = append(row, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, row)
	}
	m := tgbotapi.NewReplyKeyboard(rows...)
	m.OneTimeKeyboard = kb.OneTime
	return m
}

func (t *Telegram) SendLink(_ context.Context, chatID int64, text, label, url string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(label, url)),
	)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send link to %d: %w", chatID, err)
	}
	return nil
}

func (t *Telegram) IsGroupMember(_ context.Context, groupID, userID int64) (bool, error) {
	cm, err := t.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: groupID, UserID: userID},
	})
	if err != nil {
		return false, fmt.Errorf("get chat member %d: %w", userID, err)
	}
	return IsMemberStatus(cm.Status, cm.IsMember), nil
}

// IsMemberStatus reports whether a chat member status counts as belonging
// to the group. Restricted users count only while still in the chat.
func IsMemberStatus(status string, restrictedIsMember bool) bool {
	switch strings.ToLower(status) {
	case "creator", "administrator", "member":
		return true
	case "restricted":
		return restrictedIsMember
	}
	return false
}

func (t *Telegram) AnswerCallback(_ context.Context, callbackID, text string) error {
	_, err := t.bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}
