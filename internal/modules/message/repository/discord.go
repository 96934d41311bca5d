package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/reshetovitsme/discord-scribe/internal/modules/message/domain"
	"github.com/reshetovitsme/discord-scribe/internal/shared/config"
	scribeErrors "github.com/reshetovitsme/discord-scribe/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

const defaultBackoff = 500 * time.Millisecond

// DiscordSource implements Repository on top of the Discord REST API
type DiscordSource struct {
	session *discordgo.Session
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	logger  *slog.Logger
}

// NewDiscordSource creates a history reader that paces requests to
// cfg.FetchRate per second and retries transient failures cfg.FetchRetries times
func NewDiscordSource(session *discordgo.Session, cfg *config.Config) *DiscordSource {
	limit := rate.Inf
	if cfg.FetchRate > 0 {
		limit = rate.Limit(cfg.FetchRate)
	}

	return &DiscordSource{
		session: session,
		limiter: rate.NewLimiter(limit, 1),
		retries: cfg.FetchRetries,
		backoff: defaultBackoff,
		logger:  slog.Default(),
	}
}

// SetLogger sets the logger
func (s *DiscordSource) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

func (s *DiscordSource) FetchPage(ctx context.Context, channelID, beforeID string, limit int) (domain.Page, error) {
	var messages []*discordgo.Message
	err := s.call(ctx, func() error {
		var err error
		messages, err = s.session.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return nil, oops.
			With("channel_id", channelID, "before_id", beforeID, "limit", limit).
			Wrapf(err, "fetching message page")
	}

	return lo.FilterMap(messages, func(m *discordgo.Message, _ int) (domain.Message, bool) {
		if m == nil {
			return domain.Message{}, false
		}
		return toMessage(channelID, m), true
	}), nil
}

func (s *DiscordSource) GetChannel(ctx context.Context, channelID string) (*domain.Channel, error) {
	var channel *discordgo.Channel
	err := s.call(ctx, func() error {
		var err error
		channel, err = s.session.Channel(channelID, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return nil, oops.With("channel_id", channelID).Wrapf(err, "fetching channel")
	}

	return &domain.Channel{
		ID:      channel.ID,
		Name:    channel.Name,
		GuildID: channel.GuildID,
	}, nil
}

// call runs fn under the pacing limiter and retries it while it fails with a
// transient error. Backoff grows quadratically and aborts on cancellation.
func (s *DiscordSource) call(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		err := classify(fn())
		if err == nil || !scribeErrors.IsTransient(err) || attempt >= s.retries {
			return err
		}

		backoff := time.Duration((attempt+1)*(attempt+1)) * s.backoff
		s.logger.Warn("Discord request failed, will retry", "attempt", attempt+1, "backoff", backoff, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// classify maps a discordgo failure onto the shared error kinds.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		status, code := 0, 0
		if restErr.Response != nil {
			status = restErr.Response.StatusCode
		}
		if restErr.Message != nil {
			code = restErr.Message.Code
		}

		switch {
		case code == discordgo.ErrCodeUnknownChannel || status == http.StatusNotFound:
			return kindError(scribeErrors.ErrNotFound, err, status, code)
		case code == discordgo.ErrCodeMissingAccess || code == discordgo.ErrCodeMissingPermissions,
			status == http.StatusUnauthorized || status == http.StatusForbidden:
			return kindError(scribeErrors.ErrAccess, err, status, code)
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
			return kindError(scribeErrors.ErrTransient, err, status, code)
		default:
			return err
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return oops.With("network", true).Wrap(fmt.Errorf("%w: %w", scribeErrors.ErrTransient, err))
	}

	return err
}

func kindError(kind, err error, status, code int) error {
	return oops.With("status", status, "discord_code", code).Wrap(fmt.Errorf("%w: %w", kind, err))
}

func toMessage(channelID string, m *discordgo.Message) domain.Message {
	author := ""
	if m.Author != nil {
		author = m.Author.Username
	}

	reactions := lo.FilterMap(m.Reactions, func(r *discordgo.MessageReactions, _ int) (domain.Reaction, bool) {
		if r == nil || r.Emoji == nil {
			return domain.Reaction{}, false
		}
		return domain.Reaction{Emoji: r.Emoji.Name, Count: r.Count}, true
	})

	return domain.Message{
		ID:        m.ID,
		ChannelID: channelID,
		Author:    author,
		Timestamp: m.Timestamp,
		Content:   m.Content,
		Reactions: reactions,
	}
}
