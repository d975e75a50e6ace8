package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/carenet/identity-service/internal/user"
)

// UserRepository implements the user.Repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByExternalID(externalID, externalTenantID string) (*user.User, error) {
	var u user.User
	err := r.db.Where("external_id = ? AND external_tenant_id = ?", externalID, externalTenantID).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(id int64) (*user.User, error) {
	var u user.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateIfAbsent inserts the user, tolerating a concurrent insert of the same
// external identity: on conflict the insert becomes a no-op and the winning
// row is fetched instead. Correctness rests on the unique constraint, not on
// application-level locking.
func (r *UserRepository) CreateIfAbsent(u *user.User) (*user.User, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}, {Name: "external_tenant_id"}},
		DoNothing: true,
	}).Create(u)
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		// lost the race; someone else inserted this identity first
		return r.GetByExternalID(u.ExternalID, u.ExternalTenantID)
	}
	return u, nil
}

func (r *UserRepository) TouchLastSeen(id int64) error {
	return r.db.Model(&user.User{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).Error
}
