package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	discordHandler "github.com/reshetovitsme/discord-scribe/internal/transport/discord"
	httpServer "github.com/reshetovitsme/discord-scribe/internal/transport/http"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to the Discord gateway and serve HTTP endpoints",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	injector, cfg, err := bootstrap()
	if err != nil {
		return err
	}
	defer shutdown(injector)

	session := do.MustInvoke[*discordgo.Session](injector)
	handler := do.MustInvoke[*discordHandler.Handler](injector)
	server, err := do.Invoke[*httpServer.Server](injector)
	if err != nil {
		return err
	}

	handler.Register(session)
	if err := session.Open(); err != nil {
		return oops.With("context", "failed to open discord gateway").Wrap(err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	slog.Info("Application started", "port", cfg.HTTPPort, "app_env", cfg.AppEnv)
	slog.Info("Press Ctrl+C to stop")

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down...")
		return nil
	case err := <-serverErr:
		return err
	}
}
