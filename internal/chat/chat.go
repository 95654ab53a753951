// Package chat is the messaging gateway seen by the bot: inbound events
// and outbound text with optional reply keyboards.
package chat

import "context"

type Kind int

const (
	PrivateText Kind = iota
	PrivateCallback
	GroupText
	OtherContent
)

func (k Kind) String() string {
	switch k {
	case PrivateText:
		return "private-text"
	case PrivateCallback:
		return "private-callback"
	case GroupText:
		return "group-text"
	case OtherContent:
		return "other-content"
	}
	return "unknown"
}

// Chat types as reported by the gateway.
const (
	ChatPrivate    = "private"
	ChatGroup      = "group"
	ChatSupergroup = "supergroup"
	ChatChannel    = "channel"
)

// Event is one inbound update. FirstName and LastName are capitalised, or
// models.NoNameGiven when the gateway did not send them.
type Event struct {
	Kind        Kind
	ChatID      int64
	ChatType    string
	SenderID    int64
	Text        string
	CallbackID  string
	FirstName   string
	LastName    string
	ContentType string
}

// Keyboard is a reply keyboard of text buttons. Remove hides any keyboard
// the user currently has.
type Keyboard struct {
	Rows    [][]string
	OneTime bool
	Remove  bool
}

// Column lays out one button per row.
func Column(buttons ...string) *Keyboard {
	kb := &Keyboard{}
	for _, b := range buttons {
		kb.Rows = append(kb.Rows, []string{b})
	}
	return kb
}

// Parse modes for Send.
const (
	ModePlain      = ""
	ModeMarkdownV2 = "MarkdownV2"
)

type Gateway interface {
	Send(ctx context.Context, chatID int64, text string, kb *Keyboard, mode string) error
	SendLink(ctx context.Context, chatID int64, text, label, url string) error
	IsGroupMember(ctx context.Context, groupID, userID int64) (bool, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
	Username() string
}
