package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	transcriptDomain "github.com/reshetovitsme/discord-scribe/internal/modules/transcript/domain"
	transcriptService "github.com/reshetovitsme/discord-scribe/internal/modules/transcript/service"
	userDomain "github.com/reshetovitsme/discord-scribe/internal/modules/user/domain"
	userService "github.com/reshetovitsme/discord-scribe/internal/modules/user/service"
	"github.com/reshetovitsme/discord-scribe/internal/shared/config"
	scribeErrors "github.com/reshetovitsme/discord-scribe/internal/shared/errors"
	"github.com/samber/oops"
)

// Handler handles Discord interactions. Every scribe invocation runs as a
// background job bound to the handler's lifetime.
type Handler struct {
	cfg               *config.Config
	session           *discordgo.Session
	transcriptService *transcriptService.Service
	userService       *userService.Service
	logger            *slog.Logger
	ctx               context.Context
	cancel            context.CancelFunc
	mu                sync.Mutex
	stopped           bool
	wg                sync.WaitGroup
}

// New creates a new Discord handler
func New(cfg *config.Config, session *discordgo.Session, transcriptService *transcriptService.Service, userService *userService.Service) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		cfg:               cfg,
		session:           session,
		transcriptService: transcriptService,
		userService:       userService,
		logger:            slog.Default(),
		ctx:               ctx,
		cancel:            cancel,
	}
}

// SetLogger sets the logger
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logger
}

// Register adds the gateway event handlers to the session
func (h *Handler) Register(s *discordgo.Session) {
	s.AddHandler(h.handleReady)
	s.AddHandler(h.handleGuildCreate)
	s.AddHandler(h.handleInteractionCreate)
}

// Stop cancels running jobs and waits for them to finish. Interactions
// dispatched afterwards are dropped.
func (h *Handler) Stop() {
	h.mu.Lock()
	h.stopped = true
	h.cancel()
	h.mu.Unlock()

	h.wg.Wait()
}

func (h *Handler) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	h.logger.Info("Logged in", "user", r.User.Username, "guilds", len(r.Guilds))

	appID := h.cfg.DiscordApplicationID
	if appID == "" {
		appID = r.User.ID
	}

	registered, err := RegisterCommands(s, appID, h.cfg.DiscordGuildID)
	if err != nil {
		h.logger.Error("Failed to register application commands", "error", err)
		return
	}
	h.logger.Info("Registered application commands", "count", len(registered), "guild_id", h.cfg.DiscordGuildID)
}

func (h *Handler) handleGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil {
		return
	}
	h.logger.Info("Guild available", "guild", g.Name, "guild_id", g.ID)
}

func (h *Handler) handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !IsScribeCommand(i.Interaction) {
		return
	}

	if err := s.InteractionRespond(i.Interaction, DeferredResponse()); err != nil {
		h.logger.Error("Failed to acknowledge interaction", "interaction_id", i.ID, "error", err)
		return
	}

	h.Dispatch(i.Interaction)
}

// IsScribeCommand reports whether the interaction invokes the scribe command
func IsScribeCommand(i *discordgo.Interaction) bool {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return false
	}
	data, ok := i.Data.(discordgo.ApplicationCommandInteractionData)
	return ok && data.Name == CommandName
}

// DeferredResponse acknowledges a command privately; the result follows as
// an edit of the original response
func DeferredResponse() *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	}
}

// Dispatch runs an acknowledged scribe interaction in the background
func (h *Handler) Dispatch(i *discordgo.Interaction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		h.logger.Warn("Handler stopped, dropping interaction", "interaction_id", i.ID)
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run(i)
	}()
}

func (h *Handler) run(i *discordgo.Interaction) {
	logger := h.logger.With("job_id", uuid.NewString(), "channel_id", i.ChannelID, "interaction_id", i.ID)

	ctx, cancel := context.WithTimeout(h.ctx, h.cfg.CommandTimeout)
	defer cancel()

	reply, err := h.Execute(ctx, i)
	if err != nil {
		logger.Error("Scribe command failed", "kind", scribeErrors.Kind(err), "error", err)
		reply = errorReply(err)
	}

	if _, err := h.session.InteractionResponseEdit(i, reply); err != nil {
		logger.Error("Failed to deliver scribe reply", "error", err)
		return
	}
	logger.Info("Scribe reply delivered", "attachments", len(reply.Files))
}

// Execute checks the invoking user, builds the transcript and returns the reply
func (h *Handler) Execute(ctx context.Context, i *discordgo.Interaction) (*discordgo.WebhookEdit, error) {
	if err := h.userService.Authorize(InteractionUser(i)); err != nil {
		return nil, err
	}

	req, err := ParseRequest(i)
	if err != nil {
		return nil, err
	}

	transcript, err := h.transcriptService.BuildTranscript(ctx, req)
	if err != nil {
		return nil, err
	}

	return transcriptReply(req.ChannelID, transcript), nil
}

// ParseRequest translates the command options into a transcript request
func ParseRequest(i *discordgo.Interaction) (transcriptDomain.Request, error) {
	req := transcriptDomain.Request{ChannelID: i.ChannelID}

	for _, opt := range i.ApplicationCommandData().Options {
		if opt == nil || opt.Type != discordgo.ApplicationCommandOptionString {
			continue
		}
		switch opt.Name {
		case optionFlags:
			options, err := transcriptDomain.ParseOptions(opt.StringValue())
			if err != nil {
				return req, err
			}
			req.Options |= options
		case optionFilename:
			req.Filename = strings.TrimSpace(opt.StringValue())
		}
	}

	return req, nil
}

// InteractionUser returns the invoking user of a guild or direct message interaction
func InteractionUser(i *discordgo.Interaction) *userDomain.User {
	var u *discordgo.User
	switch {
	case i.Member != nil && i.Member.User != nil:
		u = i.Member.User
	case i.User != nil:
		u = i.User
	default:
		return nil
	}
	return &userDomain.User{ID: u.ID, Username: u.Username}
}

func transcriptReply(channelID string, t *transcriptDomain.Transcript) *discordgo.WebhookEdit {
	if t.Empty() {
		return textReply("📭 This channel has no messages to export.")
	}

	reply := textReply(fmt.Sprintf("📜 Transcript of %d messages from <#%s>: `%s`", t.MessageCount, channelID, t.Filename))
	reply.Files = []*discordgo.File{
		{
			Name:        t.Filename,
			ContentType: "text/markdown; charset=utf-8",
			Reader:      t.Reader(),
		},
	}
	return reply
}

func errorReply(err error) *discordgo.WebhookEdit {
	return textReply(UserMessage(err))
}

func textReply(content string) *discordgo.WebhookEdit {
	return &discordgo.WebhookEdit{Content: &content}
}

// UserMessage translates a failure into the text shown to the invoking user
func UserMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "⌛ The export timed out. The channel history may be too large."
	case errors.Is(err, context.Canceled):
		return "⚠️ The export was cancelled because the bot is shutting down."
	case errors.Is(err, scribeErrors.ErrUnauthorized):
		return "❌ You are not authorized to use this command."
	case errors.Is(err, scribeErrors.ErrHistoryTooLarge):
		return "❌ This channel's history exceeds the export limit."
	case errors.Is(err, transcriptDomain.ErrInvalidFormatFlag):
		return fmt.Sprintf("❌ Unknown formatting flag. Use: %s.", strings.Join(transcriptDomain.FormatFlagNames(), ", "))
	case errors.Is(err, scribeErrors.ErrValidation):
		return "❌ Invalid request."
	case errors.Is(err, scribeErrors.ErrAccess):
		return "❌ I don't have permission to read this channel's history."
	case errors.Is(err, scribeErrors.ErrNotFound):
		return "❌ This channel no longer exists."
	case errors.Is(err, scribeErrors.ErrTransient):
		return "⚠️ Discord is busy right now. Please try again in a moment."
	default:
		if public := oopsPublic(err); public != "" {
			return "❌ " + public
		}
		return "❌ Failed to export the transcript."
	}
}

func oopsPublic(err error) string {
	if o, ok := oops.AsOops(err); ok {
		return o.Public()
	}
	return ""
}
