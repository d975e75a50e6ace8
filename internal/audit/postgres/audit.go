package postgres

import (
	"gorm.io/gorm"

	"github.com/carenet/identity-service/internal/audit"
)

// AuditRepository implements the audit.Repository interface using GORM
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(e *audit.Entry) error {
	return r.db.Create(e).Error
}
