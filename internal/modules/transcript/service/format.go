package service

import (
	"regexp"
	"strings"
	"unicode/utf16"

	messageDomain "github.com/reshetovitsme/discord-scribe/internal/modules/message/domain"
	"github.com/reshetovitsme/discord-scribe/internal/modules/transcript/domain"
	"github.com/samber/lo"
)

// timestampLayout renders UTC timestamps with millisecond precision, e.g. 2024-03-01T10:00:05.000Z
const timestampLayout = "2006-01-02T15:04:05.000Z"

// userMention matches <@123> and the legacy nickname form <@!123>.
var userMention = regexp.MustCompile(`<@!?\d+>`)

// FormatLine renders one message as a transcript line:
//
//	[timestamp] author: content reactions
//
// Each part except the content is controlled by opts; a message without
// reactions gets no reaction suffix. The result depends on nothing but its
// arguments.
func FormatLine(m messageDomain.Message, opts domain.FormattingOptions) string {
	var b strings.Builder

	if opts.Has(domain.IncludeTimestamps) {
		b.WriteString("[")
		b.WriteString(m.Timestamp.UTC().Format(timestampLayout))
		b.WriteString("] ")
	}
	if opts.Has(domain.IncludeUsernames) {
		b.WriteString(m.Author)
		b.WriteString(": ")
	}

	b.WriteString(StripMentions(m.Content))

	if opts.Has(domain.IncludeReactions) && len(m.Reactions) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(lo.Map(m.Reactions, func(r messageDomain.Reaction, _ int) string {
			return r.Emoji
		}), " "))
	}

	return b.String()
}

// StripMentions removes user mention markup so an exported transcript can not
// ping anyone when it is pasted back into Discord. Surrounding text is kept as is.
func StripMentions(content string) string {
	return userMention.ReplaceAllString(content, "")
}

// SanitizeFilename replaces every character outside [A-Za-z0-9] with an
// underscore and lowercases the result. Characters outside the Basic
// Multilingual Plane, such as most emoji, are two UTF-16 code units and
// become two underscores.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteString(strings.Repeat("_", max(utf16.RuneLen(r), 1)))
		}
	}
	return b.String()
}
