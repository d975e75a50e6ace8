package grant

import (
	"errors"
	"time"

	"github.com/carenet/identity-service/internal/hospital"
	"github.com/carenet/identity-service/internal/profile"
)

// AccessGrant is the (user, hospital, profile) authorization record. Revoked
// grants are kept for the audit trail; the active flag plus revoker fields
// carry the lifecycle. At most one active row exists per triple.
type AccessGrant struct {
	ID         int64      `json:"id" gorm:"primaryKey"`
	UserID     int64      `json:"user_id" gorm:"column:user_id;not null"`
	HospitalID int64      `json:"hospital_id" gorm:"column:hospital_id;not null"`
	ProfileID  int64      `json:"profile_id" gorm:"column:profile_id;not null"`
	IsActive   bool       `json:"is_active" gorm:"column:is_active;default:true"`
	GrantedBy  *int64     `json:"granted_by,omitempty" gorm:"column:granted_by"`
	GrantedAt  time.Time  `json:"granted_at" gorm:"column:granted_at"`
	RevokedBy  *int64     `json:"revoked_by,omitempty" gorm:"column:revoked_by"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty" gorm:"column:revoked_at"`
	CreatedAt  time.Time  `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"column:updated_at;default:now()"`

	Hospital hospital.Hospital `json:"hospital" gorm:"foreignKey:HospitalID"`
	Profile  profile.Profile   `json:"profile" gorm:"foreignKey:ProfileID"`
}

func (AccessGrant) TableName() string {
	return "user_hospital_profiles"
}

// HospitalProfile is the joined view returned to clients after login and
// hospital selection.
type HospitalProfile struct {
	Hospital *hospital.Hospital `json:"hospital"`
	Profile  *profile.Profile   `json:"profile"`
}

func (g *AccessGrant) Summary() HospitalProfile {
	h := g.Hospital
	p := g.Profile
	return HospitalProfile{Hospital: &h, Profile: &p}
}

func Summaries(grants []*AccessGrant) []HospitalProfile {
	out := make([]HospitalProfile, 0, len(grants))
	for _, g := range grants {
		out = append(out, g.Summary())
	}
	return out
}

// Repository is the store contract for grants. FindByTriple returns the row
// regardless of its active flag so the service can reactivate instead of
// duplicating.
type Repository interface {
	ListActive(userID int64) ([]*AccessGrant, error)
	ListActiveForHospital(userID, hospitalID int64) ([]*AccessGrant, error)
	FindByTriple(userID, hospitalID, profileID int64) (*AccessGrant, error)
	Create(g *AccessGrant) (*AccessGrant, error)
	Reactivate(id int64, grantedBy *int64, grantedAt time.Time) (*AccessGrant, error)
	Deactivate(id int64, revokedBy *int64, revokedAt time.Time) error
}

var ErrNotFound = errors.New("access grant not found")
