package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/staffdesk/ops-system/internal/core/domain"
	"github.com/staffdesk/ops-system/internal/core/ports"
)

// UserService is the administration view over accounts. Authorization is
// enforced at the transport layer; the service assumes the caller was
// already vetted.
type UserService struct {
	repo   ports.UserRepository
	logger zerolog.Logger
}

func NewUserService(repo ports.UserRepository, logger zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	if !role.Valid() {
		return domain.ErrInvalidCredentials
	}
	if err := s.repo.UpdateRole(ctx, userID, role); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to update role")
		return err
	}
	s.logger.Info().Str("user_id", userID).Str("role", string(role)).Msg("user role updated")
	return nil
}
