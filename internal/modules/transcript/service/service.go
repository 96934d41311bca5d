package service

import (
	"bytes"
	"context"
	"log/slog"

	messageDomain "github.com/reshetovitsme/discord-scribe/internal/modules/message/domain"
	messageRepo "github.com/reshetovitsme/discord-scribe/internal/modules/message/repository"
	"github.com/reshetovitsme/discord-scribe/internal/modules/transcript/domain"
	"github.com/reshetovitsme/discord-scribe/internal/shared/config"
	scribeErrors "github.com/reshetovitsme/discord-scribe/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Service assembles channel transcripts. It keeps no per-request state and is
// safe for concurrent use.
type Service struct {
	messageRepo messageRepo.Repository
	pageSize    int
	maxMessages int
	logger      *slog.Logger
}

// New creates a new transcript service
func New(cfg *config.Config, messageRepo messageRepo.Repository) *Service {
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > config.MaxPageSize {
		pageSize = config.MaxPageSize
	}

	return &Service{
		messageRepo: messageRepo,
		pageSize:    pageSize,
		maxMessages: cfg.MaxMessages,
		logger:      slog.Default(),
	}
}

// SetLogger sets the logger
func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// BuildTranscript walks the whole channel history backwards, page by page,
// and returns it formatted oldest message first. The first error aborts the
// walk and nothing accumulated so far is returned.
func (s *Service) BuildTranscript(ctx context.Context, req domain.Request) (*domain.Transcript, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// blocks[i] holds the lines of the i-th fetched page in chronological
	// order; later blocks are older.
	var blocks [][]string
	total, size := 0, 0
	before := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, oops.With("channel_id", req.ChannelID, "fetched", total).Wrap(err)
		}

		page, err := s.messageRepo.FetchPage(ctx, req.ChannelID, before, s.pageSize)
		if err != nil {
			return nil, oops.With("channel_id", req.ChannelID, "fetched", total, "page", len(blocks)+1).Wrap(err)
		}

		oldest, ok := page.Oldest()
		if !ok {
			break
		}

		total += len(page)
		if s.maxMessages > 0 && total > s.maxMessages {
			return nil, oops.With("channel_id", req.ChannelID, "max_messages", s.maxMessages).Wrap(scribeErrors.ErrHistoryTooLarge)
		}

		lines := lo.Map(page, func(m messageDomain.Message, _ int) string {
			return FormatLine(m, req.Options)
		})
		for _, line := range lines {
			size += len(line) + len(domain.LineSeparator)
		}
		blocks = append(blocks, lo.Reverse(lines))
		before = oldest.ID

		s.logger.Debug("Fetched history page", "channel_id", req.ChannelID, "page", len(blocks), "messages", len(page), "watermark", before)
	}

	transcript := &domain.Transcript{
		Content:      join(blocks, size),
		Filename:     s.filename(ctx, req),
		MessageCount: total,
	}

	s.logger.Info("Transcript assembled",
		"channel_id", req.ChannelID,
		"messages", transcript.MessageCount,
		"pages", len(blocks),
		"bytes", len(transcript.Content),
		"options", req.Options.String(),
	)

	return transcript, nil
}

// join concatenates the blocks oldest first, one blank line between messages.
func join(blocks [][]string, size int) []byte {
	var buf bytes.Buffer
	buf.Grow(size)

	first := true
	for i := len(blocks) - 1; i >= 0; i-- {
		for _, line := range blocks[i] {
			if !first {
				buf.WriteString(domain.LineSeparator)
			}
			buf.WriteString(line)
			first = false
		}
	}
	return buf.Bytes()
}

// filename derives the attachment name from the custom filename, the channel
// name or the fallback, in that order.
func (s *Service) filename(ctx context.Context, req domain.Request) string {
	if req.Filename != "" {
		return SanitizeFilename(req.Filename) + domain.FileExtension
	}

	name := req.ChannelName
	if name == "" {
		channel, err := s.messageRepo.GetChannel(ctx, req.ChannelID)
		if err != nil {
			s.logger.Debug("Channel name unavailable, using fallback filename", "channel_id", req.ChannelID, "error", err)
		} else {
			name = channel.Name
		}
	}
	if name == "" {
		name = domain.FallbackFilename
	}

	return SanitizeFilename(name) + domain.FileExtension
}
