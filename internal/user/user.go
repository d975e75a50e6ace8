package user

import (
	"errors"
	"time"
)

// User is the internal identity record for an externally authenticated
// person. Never hard-deleted; deactivation clears IsActive.
type User struct {
	ID               int64     `json:"id" gorm:"primaryKey"`
	Email            string    `json:"email" gorm:"column:email;uniqueIndex;not null"`
	Name             string    `json:"name" gorm:"column:name;not null"`
	Phone            *string   `json:"phone,omitempty" gorm:"column:phone"`
	AvatarURL        *string   `json:"avatar_url,omitempty" gorm:"column:avatar_url"`
	ExternalID       string    `json:"-" gorm:"column:external_id;not null;uniqueIndex:idx_users_external_identity"`
	ExternalTenantID string    `json:"-" gorm:"column:external_tenant_id;uniqueIndex:idx_users_external_identity"`
	IsActive         bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt        time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsActiveUser() bool {
	return u.IsActive
}

// Repository is the store contract the resolver relies on. CreateIfAbsent
// must be conflict-tolerant: a race between two concurrent logins for the
// same external identity must resolve to a single row.
type Repository interface {
	GetByExternalID(externalID, externalTenantID string) (*User, error)
	GetByID(id int64) (*User, error)
	CreateIfAbsent(u *User) (*User, error)
	TouchLastSeen(id int64) error
}

var ErrNotFound = errors.New("user not found")
