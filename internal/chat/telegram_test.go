package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster-bot/internal/models"
)

func TestEventFromPrivateText(t *testing.T) {
	ev, ok := EventFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7, FirstName: "aNNA", LastName: "muster"},
		Chat: &tgbotapi.Chat{ID: 7, Type: "private"},
		Text: "/start",
	}})
	require.True(t, ok)
	assert.Equal(t, PrivateText, ev.Kind)
	assert.Equal(t, int64(7), ev.SenderID)
	assert.Equal(t, "/start", ev.Text)
	assert.Equal(t, "Anna", ev.FirstName)
	assert.Equal(t, "Muster", ev.LastName)
}

func TestEventMissingNames(t *testing.T) {
	ev, ok := EventFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7, FirstName: "Anna"},
		Chat: &tgbotapi.Chat{ID: 7, Type: "private"},
		Text: "hi",
	}})
	require.True(t, ok)
	assert.Equal(t, "Anna", ev.FirstName)
	assert.Equal(t, models.NoNameGiven, ev.LastName)
}

func TestEventKinds(t *testing.T) {
	group, _ := EventFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7},
		Chat: &tgbotapi.Chat{ID: -100, Type: "supergroup"},
		Text: "@bot stats",
	}})
	assert.Equal(t, GroupText, group.Kind)
	assert.Equal(t, int64(-100), group.ChatID)

	sticker, _ := EventFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		From:    &tgbotapi.User{ID: 7},
		Chat:    &tgbotapi.Chat{ID: 7, Type: "private"},
		Sticker: &tgbotapi.Sticker{},
	}})
	assert.Equal(t, OtherContent, sticker.Kind)
	assert.Equal(t, "sticker", sticker.ContentType)

	channel, _ := EventFromUpdate(tgbotapi.Update{ChannelPost: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: -5, Type: "channel"},
		Text: "news",
	}})
	assert.Equal(t, OtherContent, channel.Kind)
	assert.Equal(t, ChatChannel, channel.ChatType)

	cb, _ := EventFromUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: &tgbotapi.User{ID: 7, FirstName: "anna"},
		Data: "YES",
	}})
	assert.Equal(t, PrivateCallback, cb.Kind)
	assert.Equal(t, "cb1", cb.CallbackID)
	assert.Equal(t, "YES", cb.Text)
	assert.Equal(t, int64(7), cb.ChatID)

	_, ok := EventFromUpdate(tgbotapi.Update{EditedMessage: &tgbotapi.Message{}})
	assert.False(t, ok)
}

func TestIsMemberStatus(t *testing.T) {
	assert.True(t, IsMemberStatus("creator", false))
	assert.True(t, IsMemberStatus("administrator", false))
	assert.True(t, IsMemberStatus("member", false))
	assert.True(t, IsMemberStatus("restricted", true))
	assert.False(t, IsMemberStatus("restricted", false))
	assert.False(t, IsMemberStatus("left", false))
	assert.False(t, IsMemberStatus("kicked", false))
}

func TestColumn(t *testing.T) {
	kb := Column("a", "b")
	assert.Equal(t, [][]string{{"a"}, {"b"}}, kb.Rows)
}

// botAPI serves getMe and getUpdates: one private message first, then empty
// long-poll replies.
func botAPI(t *testing.T, polls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Roster","username":"roster_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if polls.Add(1) == 1 {
				fmt.Fprint(w, `{"ok":true,"result":[{"update_id":1,"message":{"message_id":1,"date":0,`+
					`"from":{"id":7,"is_bot":false,"first_name":"anna"},"chat":{"id":7,"type":"private"},"text":"/start"}}]}`)
				return
			}
			time.Sleep(10 * time.Millisecond)
			fmt.Fprint(w, `{"ok":true,"result":[]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEventsSurviveIdlePolling(t *testing.T) {
	var polls atomic.Int32
	srv := botAPI(t, &polls)
	tg, err := newTelegram("123:abc", srv.URL+"/bot%s/%s", nil)
	require.NoError(t, err)
	assert.Equal(t, "roster_bot", tg.Username())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := tg.Events(ctx)

	select {
	case ev := <-events:
		assert.Equal(t, PrivateText, ev.Kind)
		assert.Equal(t, "/start", ev.Text)
		assert.Equal(t, "Anna", ev.FirstName)
	case <-time.After(5 * time.Second):
		t.Fatal("no event delivered")
	}

	// Empty polls must keep the stream open.
	require.Eventually(t, func() bool { return polls.Load() > 10 }, 5*time.Second, 10*time.Millisecond)
	select {
	case _, ok := <-events:
		require.True(t, ok, "event stream closed while idle")
	default:
	}

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("event stream not closed after cancel")
	}
}
