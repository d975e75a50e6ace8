package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/carenet/identity-service/internal/session"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(s *session.Session) error {
	return r.db.Create(s).Error
}

// DeactivateByUserAndToken retires every active session row matching the
// pair. Zero affected rows is a valid outcome, not an error.
func (r *SessionRepository) DeactivateByUserAndToken(userID int64, tokenValue string) (int64, error) {
	result := r.db.Model(&session.Session{}).
		Where("user_id = ? AND token = ? AND is_active = ?", userID, tokenValue, true).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}
