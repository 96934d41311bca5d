package repository

import (
	"context"

	"github.com/reshetovitsme/discord-scribe/internal/modules/message/domain"
)

// Repository is the read side of a channel's message history.
// Implementations mirror Discord's pagination: FetchPage returns at most
// limit messages strictly older than beforeID (the newest page when beforeID
// is empty), newest first. An empty page means the history is exhausted.
type Repository interface {
	FetchPage(ctx context.Context, channelID, beforeID string, limit int) (domain.Page, error)
	GetChannel(ctx context.Context, channelID string) (*domain.Channel, error)
}
