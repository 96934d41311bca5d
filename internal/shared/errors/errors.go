package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMissingBotToken = errors.New("DISCORD_BOT_TOKEN environment variable is required")
	ErrUnauthorized    = errors.New("unauthorized user")

	// Failure kinds of a transcript request. Wrapped errors keep the kind,
	// so callers classify with errors.Is or Kind.
	ErrValidation = errors.New("invalid request")
	ErrAccess     = errors.New("channel access denied")
	ErrNotFound   = errors.New("channel not found")
	ErrTransient  = errors.New("temporary upstream failure")

	ErrHistoryTooLarge = fmt.Errorf("channel history exceeds the configured limit: %w", ErrValidation)
)

// Kind names the failure class of err, or "internal" when it matches none.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAccess):
		return "access"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "internal"
	}
}

// IsTransient reports whether err may succeed when retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
