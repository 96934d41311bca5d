package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/reshetovitsme/discord-scribe/internal/modules/transcript/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const (
	CommandName    = "scribe"
	optionFlags    = "flags"
	optionFilename = "filename"
)

// Commands returns the application commands of the bot
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandName,
			Description: "Fetches and formats the chatlog of this channel as a transcript file.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optionFlags,
					Description: "Select formatting options",
					Required:    false,
					Choices:     flagChoices(),
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optionFilename,
					Description: "Custom filename for the transcript (defaults to channel name)",
					Required:    false,
					MaxLength:   100,
				},
			},
		},
	}
}

// flagChoices offers every non-empty combination of formatting flags, since a
// string option can only carry one selected value.
func flagChoices() []*discordgo.ApplicationCommandOptionChoice {
	flags := []domain.FormatFlag{domain.FormatFlagUsernames, domain.FormatFlagTimestamps, domain.FormatFlagReactions}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for mask := 1; mask < 1<<len(flags); mask++ {
		selected := lo.Filter(flags, func(_ domain.FormatFlag, i int) bool {
			return mask&(1<<i) != 0
		})
		names := lo.Map(selected, func(f domain.FormatFlag, _ int) string {
			return strings.ToUpper(f.String()[:1]) + f.String()[1:]
		})
		values := lo.Map(selected, func(f domain.FormatFlag, _ int) string {
			return f.String()
		})
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  strings.Join(names, " + "),
			Value: strings.Join(values, ","),
		})
	}
	return choices
}

// RegisterCommands overwrites the bot's commands, globally when guildID is
// empty or for a single guild otherwise
func RegisterCommands(s *discordgo.Session, appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	registered, err := s.ApplicationCommandBulkOverwrite(appID, guildID, Commands())
	if err != nil {
		return nil, oops.With("application_id", appID, "guild_id", guildID, "context", "failed to register commands").Wrap(err)
	}
	return registered, nil
}
