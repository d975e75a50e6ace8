package user

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/carenet/identity-service/internal/identity"
)

// Service maps verified external identities onto internal user records
// (the account resolver).
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Resolve finds the user behind a verified external identity, creating one on
// first sight. Idempotent per external id modulo the last-seen timestamp
// touch: two concurrent calls never produce two rows, that is delegated to
// the store's uniqueness constraint.
func (s *Service) Resolve(id *identity.ExternalIdentity) (*User, error) {
	existing, err := s.repo.GetByExternalID(id.ExternalID, id.ExternalTenantID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("resolve external identity: %w", err)
	}

	if existing != nil {
		if err := s.repo.TouchLastSeen(existing.ID); err != nil {
			// last-seen is a marker, not a correctness requirement
			s.logger.Warn("failed to touch last seen", "user_id", existing.ID, "error", err)
		}
		return existing, nil
	}

	name := id.DisplayName
	if name == "" {
		name = id.Email
	}

	created, err := s.repo.CreateIfAbsent(&User{
		Email:            id.Email,
		Name:             name,
		ExternalID:       id.ExternalID,
		ExternalTenantID: id.ExternalTenantID,
		IsActive:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("create user for external identity: %w", err)
	}

	s.logger.Info("created user on first sighting", "user_id", created.ID, "email", created.Email)

	return created, nil
}

// GetByID loads a user by internal id.
func (s *Service) GetByID(userID int64) (*User, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	return u, nil
}
