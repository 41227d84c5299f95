package domain

const ActivityTypeMessage = "message"

type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Activity is one unit of traffic in a Direct Line conversation.
type Activity struct {
	ID   string         `json:"id,omitempty"`
	Type string         `json:"type"`
	From ChannelAccount `json:"from"`
	Text string         `json:"text,omitempty"`
}
