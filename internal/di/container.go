package di

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	feedService "github.com/reshetovitsme/discord-scribe/internal/modules/feed/service"
	messageRepo "github.com/reshetovitsme/discord-scribe/internal/modules/message/repository"
	transcriptService "github.com/reshetovitsme/discord-scribe/internal/modules/transcript/service"
	userService "github.com/reshetovitsme/discord-scribe/internal/modules/user/service"
	"github.com/reshetovitsme/discord-scribe/internal/shared/config"
	discordHandler "github.com/reshetovitsme/discord-scribe/internal/transport/discord"
	httpServer "github.com/reshetovitsme/discord-scribe/internal/transport/http"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// shutdownTimeout bounds how long in-flight HTTP requests may take on shutdown
const shutdownTimeout = 10 * time.Second

// Setup initializes the dependency injection container
func Setup() (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register Discord session
	do.Provide(injector, func(i do.Injector) (*discordgo.Session, error) {
		cfg := do.MustInvoke[*config.Config](i)
		session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			return nil, oops.With("context", "failed to create discord session").Wrap(err)
		}
		session.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent
		return session, nil
	})

	// Register Message Repository
	do.Provide(injector, func(i do.Injector) (messageRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		session := do.MustInvoke[*discordgo.Session](i)
		repo := messageRepo.NewDiscordSource(session, cfg)
		repo.SetLogger(slog.Default())
		return repo, nil
	})

	// Register Transcript Service
	do.Provide(injector, func(i do.Injector) (*transcriptService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[messageRepo.Repository](i)
		svc := transcriptService.New(cfg, repo)
		svc.SetLogger(slog.Default())
		return svc, nil
	})

	// Register User Service
	do.Provide(injector, func(i do.Injector) (*userService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return userService.New(cfg), nil
	})

	// Register Feed Service
	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[messageRepo.Repository](i)
		return feedService.New(cfg, repo), nil
	})

	// Register Discord Handler
	do.Provide(injector, func(i do.Injector) (*discordHandler.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		session := do.MustInvoke[*discordgo.Session](i)
		transcriptService := do.MustInvoke[*transcriptService.Service](i)
		userService := do.MustInvoke[*userService.Service](i)
		handler := discordHandler.New(cfg, session, transcriptService, userService)
		handler.SetLogger(slog.Default())
		return handler, nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		feedService := do.MustInvoke[*feedService.Service](i)
		handler := do.MustInvoke[*discordHandler.Handler](i)
		server, err := httpServer.New(cfg, feedService, handler)
		if err != nil {
			return nil, oops.With("context", "failed to create http server").Wrap(err)
		}
		server.SetLogger(slog.Default())
		return server, nil
	})

	return injector, nil
}

// Shutdown gracefully shuts down the services that were started. Services
// the container never built are left alone.
func Shutdown(injector do.Injector) error {
	var errs []error

	// Stop accepting interactions first, then let running exports finish
	if server, ok := invoked[*httpServer.Server](injector); ok {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, oops.With("context", "http server shutdown").Wrap(err))
		}
	}

	// Closing the gateway stops new interactions before the jobs are drained
	if session, ok := invoked[*discordgo.Session](injector); ok {
		if err := session.Close(); err != nil {
			errs = append(errs, oops.With("context", "discord session close").Wrap(err))
		}
	}

	if handler, ok := invoked[*discordHandler.Handler](injector); ok {
		handler.Stop()
	}

	return errors.Join(errs...)
}

// invoked returns the service of type T only when the container already built it
func invoked[T any](injector do.Injector) (T, bool) {
	name := do.NameOf[T]()
	built := lo.ContainsBy(injector.ListInvokedServices(), func(svc do.ServiceDescription) bool {
		return svc.Service == name
	})
	if !built {
		var zero T
		return zero, false
	}

	service, err := do.Invoke[T](injector)
	return service, err == nil
}
