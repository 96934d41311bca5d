package main

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	discordHandler "github.com/reshetovitsme/discord-scribe/internal/transport/discord"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

func registerCmd() *cobra.Command {
	var guildID string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register the /scribe slash command without starting the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			injector, cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer shutdown(injector)

			session := do.MustInvoke[*discordgo.Session](injector)

			appID := cfg.DiscordApplicationID
			if appID == "" {
				me, err := session.User("@me")
				if err != nil {
					return oops.With("context", "failed to resolve application id").Wrap(err)
				}
				appID = me.ID
			}
			if !cmd.Flags().Changed("guild") {
				guildID = cfg.DiscordGuildID
			}

			registered, err := discordHandler.RegisterCommands(session, appID, guildID)
			if err != nil {
				return err
			}
			for _, c := range registered {
				slog.Info("Registered command", "name", c.Name, "id", c.ID, "guild_id", guildID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&guildID, "guild", "", "register for a single guild instead of globally (default: discord_guild_id)")
	return cmd
}
