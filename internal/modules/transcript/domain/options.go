package domain

import (
	"fmt"
	"strings"

	scribeErrors "github.com/reshetovitsme/discord-scribe/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// FormattingOptions is the set of formatting flags applied to every line.
// The zero value formats bare message content.
type FormattingOptions uint8

const (
	IncludeUsernames FormattingOptions = 1 << iota
	IncludeTimestamps
	IncludeReactions
)

var flagOptions = map[FormatFlag]FormattingOptions{
	FormatFlagUsernames:  IncludeUsernames,
	FormatFlagTimestamps: IncludeTimestamps,
	FormatFlagReactions:  IncludeReactions,
}

// OptionsOf builds the option set enabling each given flag
func OptionsOf(flags ...FormatFlag) FormattingOptions {
	var o FormattingOptions
	for _, flag := range flags {
		o |= flagOptions[flag]
	}
	return o
}

// ParseOptions parses a list of flag names separated by commas, spaces or
// plus signs. Names are case-insensitive; an empty string enables nothing.
func ParseOptions(s string) (FormattingOptions, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '+' || r == ' ' || r == '\t'
	})

	var o FormattingOptions
	for _, part := range parts {
		flag, err := ParseFormatFlag(part)
		if err != nil {
			return 0, oops.
				With("flag", part, "allowed", FormatFlagNames()).
				Wrap(fmt.Errorf("%w: %w", scribeErrors.ErrValidation, err))
		}
		o |= flagOptions[flag]
	}
	return o, nil
}

// Has reports whether every bit of opt is set
func (o FormattingOptions) Has(opt FormattingOptions) bool {
	return o&opt == opt
}

// Flags lists the enabled flags in declaration order
func (o FormattingOptions) Flags() []FormatFlag {
	return lo.Filter([]FormatFlag{FormatFlagUsernames, FormatFlagTimestamps, FormatFlagReactions}, func(flag FormatFlag, _ int) bool {
		return o.Has(flagOptions[flag])
	})
}

func (o FormattingOptions) String() string {
	flags := o.Flags()
	if len(flags) == 0 {
		return "none"
	}
	return strings.Join(lo.Map(flags, func(flag FormatFlag, _ int) string { return flag.String() }), ",")
}
