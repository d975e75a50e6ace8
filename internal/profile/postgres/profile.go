package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/carenet/identity-service/internal/profile"
)

// ProfileRepository implements the profile.Repository interface using GORM
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) profile.Repository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByID(id int64) (*profile.Profile, error) {
	var p profile.Profile
	err := r.db.Where("id = ? AND is_active = true", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, profile.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) ListActive() ([]*profile.Profile, error) {
	var profiles []*profile.Profile
	err := r.db.Where("is_active = true").
		Order("created_at DESC").
		Find(&profiles).Error
	return profiles, err
}
