package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/gorilla/feeds"
	"github.com/reshetovitsme/discord-scribe/internal/modules/feed/domain"
	messageDomain "github.com/reshetovitsme/discord-scribe/internal/modules/message/domain"
	messageRepo "github.com/reshetovitsme/discord-scribe/internal/modules/message/repository"
	transcriptDomain "github.com/reshetovitsme/discord-scribe/internal/modules/transcript/domain"
	transcriptService "github.com/reshetovitsme/discord-scribe/internal/modules/transcript/service"
	"github.com/reshetovitsme/discord-scribe/internal/shared/config"
	scribeErrors "github.com/reshetovitsme/discord-scribe/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// FeedSize is the number of latest messages published in a feed
const FeedSize = 50

// itemOptions formats the description of every feed item
const itemOptions = transcriptDomain.IncludeUsernames | transcriptDomain.IncludeReactions

// Service publishes the latest messages of allow-listed channels as feeds
type Service struct {
	cfg         *config.Config
	messageRepo messageRepo.Repository
}

// New creates a new feed service
func New(cfg *config.Config, messageRepo messageRepo.Repository) *Service {
	return &Service{
		cfg:         cfg,
		messageRepo: messageRepo,
	}
}

// GenerateFeed builds the feed of a channel's latest messages. Channels that
// are not listed in feed_channels are reported as not found.
func (s *Service) GenerateFeed(ctx context.Context, channelID string, baseURL string) (*feeds.Feed, error) {
	if !s.cfg.IsFeedChannel(channelID) {
		return nil, oops.With("channel_id", channelID, "context", "channel is not published").Wrap(scribeErrors.ErrNotFound)
	}

	channel, err := s.messageRepo.GetChannel(ctx, channelID)
	if err != nil {
		return nil, oops.With("channel_id", channelID, "context", "channel not found").Wrap(err)
	}

	page, err := s.messageRepo.FetchPage(ctx, channelID, "", FeedSize)
	if err != nil {
		return nil, oops.With("channel_id", channelID, "context", "failed to get messages").Wrap(err)
	}

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("#%s - Discord channel feed", channel.Name),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/feed/%s", baseURL, channel.ID)},
		Description: fmt.Sprintf("Latest messages of Discord channel #%s", channel.Name),
		Id:          channel.ID,
	}

	if newest, ok := lo.First(page); ok {
		feed.Updated = newest.Timestamp
	}
	if oldest, ok := page.Oldest(); ok {
		feed.Created = oldest.Timestamp
	}

	feed.Items = lo.Map(page, func(msg messageDomain.Message, _ int) *feeds.Item {
		return messageToFeedItem(channel, msg)
	})

	slog.Debug("Feed generated", "channel_id", channelID, "items", len(feed.Items))
	return feed, nil
}

// Render serializes the feed in the requested format
func (s *Service) Render(feed *feeds.Feed, format domain.Format) (string, error) {
	var (
		out string
		err error
	)
	switch format {
	case domain.FormatAtom:
		out, err = feed.ToAtom()
	case domain.FormatJson:
		out, err = feed.ToJSON()
	default:
		out, err = feed.ToRss()
	}
	if err != nil {
		return "", oops.With("format", format.String()).Wrap(err)
	}
	return out, nil
}

func messageToFeedItem(channel *messageDomain.Channel, msg messageDomain.Message) *feeds.Item {
	description := transcriptService.FormatLine(msg, itemOptions)

	title := truncate(transcriptService.StripMentions(msg.Content), 100)
	if title == "" {
		title = fmt.Sprintf("Message from %s", msg.Author)
	}

	return &feeds.Item{
		Title:       title,
		Link:        &feeds.Link{Href: MessageLink(channel, msg.ID)},
		Description: description,
		Content:     fmt.Sprintf("<p>%s</p>", html.EscapeString(description)),
		Author:      &feeds.Author{Name: msg.Author},
		Created:     msg.Timestamp,
		Id:          fmt.Sprintf("%s-%s", channel.ID, msg.ID),
	}
}

// MessageLink returns the Discord jump link of a message
func MessageLink(channel *messageDomain.Channel, messageID string) string {
	guild := channel.GuildID
	if guild == "" {
		guild = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guild, channel.ID, messageID)
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
