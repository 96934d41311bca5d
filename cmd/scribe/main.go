package main

import (
	"log/slog"
	"os"

	"github.com/reshetovitsme/discord-scribe/internal/di"
	"github.com/reshetovitsme/discord-scribe/internal/shared/config"
	"github.com/samber/do/v2"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"
)

func main() {
	setupLogger(slog.LevelInfo)

	root := &cobra.Command{
		Use:           "scribe",
		Short:         "Discord bot that exports channel history as transcripts",
		Long:          "Scribe answers the /scribe slash command with a Markdown transcript of the channel it was run in.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(registerCmd())
	root.AddCommand(exportCmd())

	if err := root.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// setupLogger sends everything from level up to stdout as text and errors to
// stderr as JSON
func setupLogger(level slog.Level) {
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})

	logger := slog.New(slogmulti.Fanout(textHandler, jsonHandler))
	slog.SetDefault(logger)
}

// bootstrap sets up the container and loads the configuration. Services are
// built lazily afterwards so they pick up the configured logger.
func bootstrap() (do.Injector, *config.Config, error) {
	injector, err := di.Setup()
	if err != nil {
		return nil, nil, err
	}

	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return nil, nil, err
	}

	if cfg.AppEnv.Verbose() {
		setupLogger(slog.LevelDebug)
	}
	slog.Debug("Configuration loaded", "app_env", cfg.AppEnv, "page_size", cfg.PageSize, "fetch_rate", cfg.FetchRate)

	return injector, cfg, nil
}

func shutdown(injector do.Injector) {
	if err := di.Shutdown(injector); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}
}
