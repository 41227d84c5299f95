package widget

import (
	"log/slog"

	"github.com/set-night/shopassist/internal/domain"
	"github.com/set-night/shopassist/internal/markdown"
)

// MessageView is a history entry ready for display. Markdown messages carry rendered HTML
// and the product cards found in them; plain messages only carry text.
type MessageView struct {
	domain.Message
	HTML     string                     `json:"html,omitempty"`
	Products []domain.ProductSuggestion `json:"products,omitempty"`
}

type State struct {
	ConversationID string                     `json:"conversationId"`
	Messages       []MessageView              `json:"messages"`
	Typing         bool                       `json:"typing"`
	Products       []domain.ProductSuggestion `json:"products"`
}

func renderMessages(msgs []domain.Message, cards markdown.Extractor) []MessageView {
	views := make([]MessageView, len(msgs))
	for i, m := range msgs {
		views[i] = MessageView{Message: m}
		if !m.IsMarkdown {
			continue
		}
		html, err := markdown.Render(m.Text)
		if err != nil {
			slog.Warn("render message", "error", err, "message_id", m.ID)
		}
		views[i].HTML = html
		views[i].Products = cards.Extract(m.Text)
	}
	return views
}
