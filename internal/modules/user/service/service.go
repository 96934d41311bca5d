package service

import (
	"github.com/reshetovitsme/discord-scribe/internal/modules/user/domain"
	"github.com/reshetovitsme/discord-scribe/internal/shared/config"
	scribeErrors "github.com/reshetovitsme/discord-scribe/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Service handles user authorization
type Service struct {
	cfg *config.Config
}

// New creates a new user service
func New(cfg *config.Config) *Service {
	return &Service{cfg: cfg}
}

// IsAuthorized checks if a user may export transcripts
func (s *Service) IsAuthorized(user *domain.User) bool {
	if len(s.cfg.AllowedUsers) == 0 {
		return true // No restrictions
	}
	return user != nil && lo.Contains(s.cfg.AllowedUsers, user.ID)
}

// Authorize returns ErrUnauthorized for users outside allowed_users
func (s *Service) Authorize(user *domain.User) error {
	if s.IsAuthorized(user) {
		return nil
	}
	id := ""
	if user != nil {
		id = user.ID
	}
	return oops.With("user_id", id).Wrap(scribeErrors.ErrUnauthorized)
}
