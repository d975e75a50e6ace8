package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/carenet/identity-service/internal/grant"
)

// GrantRepository implements the grant.Repository interface using GORM
type GrantRepository struct {
	db *gorm.DB
}

func NewGrantRepository(db *gorm.DB) grant.Repository {
	return &GrantRepository{db: db}
}

func (r *GrantRepository) ListActive(userID int64) ([]*grant.AccessGrant, error) {
	var grants []*grant.AccessGrant
	err := r.db.
		Preload("Hospital").
		Preload("Profile").
		Where("user_id = ? AND is_active = true", userID).
		Order("created_at DESC").
		Find(&grants).Error
	return grants, err
}

func (r *GrantRepository) ListActiveForHospital(userID, hospitalID int64) ([]*grant.AccessGrant, error) {
	var grants []*grant.AccessGrant
	err := r.db.
		Preload("Hospital").
		Preload("Profile").
		Where("user_id = ? AND hospital_id = ? AND is_active = true", userID, hospitalID).
		Order("created_at DESC").
		Find(&grants).Error
	return grants, err
}

// FindByTriple returns the most recent row for the triple regardless of its
// active flag, so revoked grants can be reactivated instead of duplicated.
func (r *GrantRepository) FindByTriple(userID, hospitalID, profileID int64) (*grant.AccessGrant, error) {
	var g grant.AccessGrant
	err := r.db.
		Where("user_id = ? AND hospital_id = ? AND profile_id = ?", userID, hospitalID, profileID).
		Order("created_at DESC").
		First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, grant.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// Create inserts an active grant, tolerating a concurrent insert of the same
// triple: the partial unique index admits one active row per triple, so on
// conflict the insert becomes a no-op and the winning row is fetched instead.
// Correctness rests on the index, not on application-level locking.
func (r *GrantRepository) Create(g *grant.AccessGrant) (*grant.AccessGrant, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "user_id"}, {Name: "hospital_id"}, {Name: "profile_id"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "is_active"}}},
		DoNothing:   true,
	}).Create(g)
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		// lost the race; someone else granted this triple first
		existing, err := r.FindByTriple(g.UserID, g.HospitalID, g.ProfileID)
		if err != nil {
			return nil, err
		}
		return r.reload(existing.ID)
	}
	return r.reload(g.ID)
}

// Reactivate flips a revoked grant back to active under a new granter,
// clearing the revoker fields. Same row, same id.
func (r *GrantRepository) Reactivate(id int64, grantedBy *int64, grantedAt time.Time) (*grant.AccessGrant, error) {
	err := r.db.Model(&grant.AccessGrant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  true,
			"granted_by": grantedBy,
			"granted_at": grantedAt,
			"revoked_by": nil,
			"revoked_at": nil,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return nil, err
	}
	return r.reload(id)
}

func (r *GrantRepository) Deactivate(id int64, revokedBy *int64, revokedAt time.Time) error {
	return r.db.Model(&grant.AccessGrant{}).
		Where("id = ? AND is_active = true", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"revoked_by": revokedBy,
			"revoked_at": revokedAt,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *GrantRepository) reload(id int64) (*grant.AccessGrant, error) {
	var g grant.AccessGrant
	err := r.db.
		Preload("Hospital").
		Preload("Profile").
		Where("id = ?", id).
		First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}
