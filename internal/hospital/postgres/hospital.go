package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/carenet/identity-service/internal/hospital"
)

// HospitalRepository implements the hospital.Repository interface using GORM
type HospitalRepository struct {
	db *gorm.DB
}

func NewHospitalRepository(db *gorm.DB) hospital.Repository {
	return &HospitalRepository{db: db}
}

func (r *HospitalRepository) GetByID(id int64) (*hospital.Hospital, error) {
	var h hospital.Hospital
	err := r.db.Where("id = ? AND is_active = true", id).First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, hospital.ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (r *HospitalRepository) ListActive() ([]*hospital.Hospital, error) {
	var hospitals []*hospital.Hospital
	err := r.db.Where("is_active = true").
		Order("created_at DESC").
		Find(&hospitals).Error
	return hospitals, err
}
