package grant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carenet/identity-service/internal/audit"
)

// ServiceAPI is the surface the session manager and handlers consume.
type ServiceAPI interface {
	ListActive(userID int64) ([]*AccessGrant, error)
	ListActiveForHospital(userID, hospitalID int64) ([]*AccessGrant, error)
	Grant(ctx context.Context, userID, hospitalID, profileID int64, grantedBy *int64) (*AccessGrant, error)
	Revoke(ctx context.Context, userID, hospitalID, profileID int64, revokedBy *int64) error
}

type Service struct {
	repo     Repository
	recorder audit.Recorder
	logger   *slog.Logger
}

func NewService(repo Repository, recorder audit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		logger:   logger,
	}
}

func (s *Service) ListActive(userID int64) ([]*AccessGrant, error) {
	return s.repo.ListActive(userID)
}

func (s *Service) ListActiveForHospital(userID, hospitalID int64) ([]*AccessGrant, error) {
	return s.repo.ListActiveForHospital(userID, hospitalID)
}

// Grant is idempotent: an existing active grant for the triple is returned
// unchanged, an inactive one is reactivated under the new granter, and only
// a never-seen triple produces a new row.
func (s *Service) Grant(ctx context.Context, userID, hospitalID, profileID int64, grantedBy *int64) (*AccessGrant, error) {
	existing, err := s.repo.FindByTriple(userID, hospitalID, profileID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find grant: %w", err)
	}

	var result *AccessGrant
	alreadyActive := false
	switch {
	case existing != nil && existing.IsActive:
		// idempotent no-op, but the administrative attempt is still audited
		result = existing
		alreadyActive = true

	case existing != nil:
		result, err = s.repo.Reactivate(existing.ID, grantedBy, time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("reactivate grant: %w", err)
		}

	default:
		result, err = s.repo.Create(&AccessGrant{
			UserID:     userID,
			HospitalID: hospitalID,
			ProfileID:  profileID,
			IsActive:   true,
			GrantedBy:  grantedBy,
			GrantedAt:  time.Now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("create grant: %w", err)
		}
	}

	s.recorder.Record(ctx, audit.Entry{
		UserID:     grantedBy,
		HospitalID: &hospitalID,
		Action:     audit.ActionGrantProfile,
		Description: fmt.Sprintf("granted profile %d at hospital %d to user %d",
			profileID, hospitalID, userID),
		Metadata: map[string]any{
			"grant_id":       result.ID,
			"user_id":        userID,
			"profile_id":     profileID,
			"already_active": alreadyActive,
		},
	})

	return result, nil
}

// Revoke soft-deletes the active grant for the triple, recording who revoked
// it. The row stays behind for the audit trail.
func (s *Service) Revoke(ctx context.Context, userID, hospitalID, profileID int64, revokedBy *int64) error {
	existing, err := s.repo.FindByTriple(userID, hospitalID, profileID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find grant: %w", err)
	}
	if !existing.IsActive {
		return ErrNotFound
	}

	if err := s.repo.Deactivate(existing.ID, revokedBy, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate grant: %w", err)
	}

	s.recorder.Record(ctx, audit.Entry{
		UserID:     revokedBy,
		HospitalID: &hospitalID,
		Action:     audit.ActionRevokeProfile,
		Description: fmt.Sprintf("revoked profile %d at hospital %d from user %d",
			profileID, hospitalID, userID),
		Metadata: map[string]any{
			"grant_id":   existing.ID,
			"user_id":    userID,
			"profile_id": profileID,
		},
	})

	s.logger.Info("access grant revoked",
		"grant_id", existing.ID,
		"user_id", userID,
		"hospital_id", hospitalID,
		"profile_id", profileID)

	return nil
}
