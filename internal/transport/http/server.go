package http

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	feedDomain "github.com/reshetovitsme/discord-scribe/internal/modules/feed/domain"
	feedService "github.com/reshetovitsme/discord-scribe/internal/modules/feed/service"
	"github.com/reshetovitsme/discord-scribe/internal/shared/config"
	scribeErrors "github.com/reshetovitsme/discord-scribe/internal/shared/errors"
	discordHandler "github.com/reshetovitsme/discord-scribe/internal/transport/discord"
	"github.com/samber/oops"
	sloghttp "github.com/samber/slog-http"
)

// maxInteractionSize bounds the body of an interaction request
const maxInteractionSize = 1 << 20

// InteractionDispatcher runs an acknowledged scribe interaction
type InteractionDispatcher interface {
	Dispatch(i *discordgo.Interaction)
}

// Server serves the interactions endpoint, channel feeds and health checks
type Server struct {
	cfg         *config.Config
	feedService *feedService.Service
	dispatcher  InteractionDispatcher
	publicKey   ed25519.PublicKey
	logger      *slog.Logger
	server      *http.Server
}

// New creates a new HTTP server. Interactions are only accepted when
// discord_public_key is configured.
func New(cfg *config.Config, feedService *feedService.Service, dispatcher InteractionDispatcher) (*Server, error) {
	s := &Server{
		cfg:         cfg,
		feedService: feedService,
		dispatcher:  dispatcher,
		logger:      slog.Default(),
	}

	if cfg.DiscordPublicKey != "" {
		key, err := hex.DecodeString(cfg.DiscordPublicKey)
		if err != nil || len(key) != ed25519.PublicKeySize {
			return nil, oops.With("context", "invalid discord_public_key").Wrapf(scribeErrors.ErrValidation, "expected %d hex encoded bytes", ed25519.PublicKeySize)
		}
		s.publicKey = key
	}

	return s, nil
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Handler returns the routes wrapped in access logging and panic recovery
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Discord HTTP interactions
	mux.HandleFunc("POST /interactions", s.handleInteraction)

	// Channel feeds
	mux.HandleFunc("GET /feed/{channelID}", s.handleFeed)

	// Health check endpoint
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /{$}", s.handleRoot)

	handler := sloghttp.Recovery(mux)
	return sloghttp.New(s.logger)(handler)
}

// Start starts the HTTP server and blocks until it is shut down
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)
	s.logger.Info("HTTP server starting", "addr", addr, "interactions", s.publicKey != nil)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return oops.With("addr", addr).Wrap(err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	if s.publicKey == nil {
		http.NotFound(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxInteractionSize)
	if !discordgo.VerifyInteraction(r, s.publicKey) {
		http.Error(w, "invalid request signature", http.StatusUnauthorized)
		return
	}

	var interaction discordgo.Interaction
	if err := json.NewDecoder(r.Body).Decode(&interaction); err != nil {
		http.Error(w, "malformed interaction", http.StatusBadRequest)
		return
	}

	switch {
	case interaction.Type == discordgo.InteractionPing:
		writeJSON(w, &discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong})
	case discordHandler.IsScribeCommand(&interaction):
		writeJSON(w, discordHandler.DeferredResponse())
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		s.dispatcher.Dispatch(&interaction)
	default:
		s.logger.Warn("Unsupported interaction", "type", interaction.Type.String(), "interaction_id", interaction.ID)
		http.Error(w, "unsupported interaction", http.StatusBadRequest)
	}
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channelID")

	format := feedDomain.FormatRss
	if raw := r.URL.Query().Get("format"); raw != "" {
		parsed, err := feedDomain.ParseFormat(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		format = parsed
	}

	baseURL := fmt.Sprintf("%s://%s", getScheme(r), r.Host)

	feed, err := s.feedService.GenerateFeed(r.Context(), channelID, baseURL)
	if err != nil {
		status := feedStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("Error generating feed", "channel_id", channelID, "error", err)
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	body, err := s.feedService.Render(feed, format)
	if err != nil {
		s.logger.Error("Error rendering feed", "channel_id", channelID, "format", format, "error", err)
		http.Error(w, "Failed to render feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "public, max-age=300") // Cache for 5 minutes
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func feedStatus(err error) int {
	switch {
	case errors.Is(err, scribeErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scribeErrors.ErrAccess):
		return http.StatusForbidden
	case errors.Is(err, scribeErrors.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Discord Scribe</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #333; }
        .info { background: #f5f5f5; padding: 15px; border-radius: 5px; margin: 20px 0; }
        code { background: #e8e8e8; padding: 2px 6px; border-radius: 3px; }
    </style>
</head>
<body>
    <h1>Discord Scribe</h1>
    <div class="info">
        <p>Run <code>/scribe</code> in a Discord channel to receive its transcript.</p>
        <p>Published channels are available as feeds: <code>/feed/{channelID}?format=rss|atom|json</code></p>
    </div>
    <p><a href="/health">Health Check</a></p>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
