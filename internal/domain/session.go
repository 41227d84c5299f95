package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is the transport state of one conversation with the bot.
// ConversationID and Token are always replaced together.
type Session struct {
	ConversationID string
	Token          string
	TokenExpiry    time.Time
	Watermark      string
}

// TokenValid reports whether the cached token outlives now by more than buffer.
func (s *Session) TokenValid(now time.Time, buffer time.Duration) bool {
	return s.Token != "" && s.TokenExpiry.After(now.Add(buffer))
}

type Message struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	IsUser     bool      `json:"isUser"`
	IsMarkdown bool      `json:"isMarkdown"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewMessage(text string, isUser, isMarkdown bool, at time.Time) Message {
	return Message{
		ID:         uuid.NewString(),
		Text:       text,
		IsUser:     isUser,
		IsMarkdown: isMarkdown,
		Timestamp:  at,
	}
}

// Conversation is everything the widget keeps for one browser.
type Conversation struct {
	Session  Session
	UserID   string
	Messages []Message
}

func NewUserID() string {
	return "user_" + uuid.NewString()
}

// Snapshot is the persisted form of a Conversation.
type Snapshot struct {
	ConversationID string    `json:"conversationId"`
	Messages       []Message `json:"messages"`
	Token          string    `json:"token"`
	TokenExpiry    int64     `json:"tokenExpiry"` // unix millis
	Watermark      string    `json:"watermark,omitempty"`
	UserID         string    `json:"userId,omitempty"`
}

func (c *Conversation) Snapshot() *Snapshot {
	var expiry int64
	if !c.Session.TokenExpiry.IsZero() {
		expiry = c.Session.TokenExpiry.UnixMilli()
	}
	msgs := make([]Message, len(c.Messages))
	copy(msgs, c.Messages)
	return &Snapshot{
		ConversationID: c.Session.ConversationID,
		Messages:       msgs,
		Token:          c.Session.Token,
		TokenExpiry:    expiry,
		Watermark:      c.Session.Watermark,
		UserID:         c.UserID,
	}
}

func (s *Snapshot) Expiry() time.Time {
	if s.TokenExpiry == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.TokenExpiry)
}
