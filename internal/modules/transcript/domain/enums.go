//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// FormatFlag names one formatting option of the scribe command
// ENUM(usernames,timestamps,reactions)
type FormatFlag string
