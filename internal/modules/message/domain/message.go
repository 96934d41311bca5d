package domain

import "time"

// Message represents one Discord message as read from channel history
type Message struct {
	ID        string     `json:"id"`
	ChannelID string     `json:"channel_id"`
	Author    string     `json:"author"`
	Timestamp time.Time  `json:"timestamp"`
	Content   string     `json:"content"`
	Reactions []Reaction `json:"reactions,omitempty"`
}

// Reaction is one emoji annotation on a message
type Reaction struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// Page is one batch of history, newest message first.
// An empty page means there is no older history.
type Page []Message

// Oldest returns the last message of the page, which is the watermark for
// the next request.
func (p Page) Oldest() (Message, bool) {
	if len(p) == 0 {
		return Message{}, false
	}
	return p[len(p)-1], true
}

// Channel is the metadata of a Discord channel
type Channel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	GuildID string `json:"guild_id,omitempty"`
}
