package session

import (
	"context"
	"time"

	"github.com/carenet/identity-service/internal/grant"
	"github.com/carenet/identity-service/internal/identity"
	"github.com/carenet/identity-service/internal/token"
	"github.com/carenet/identity-service/internal/user"
)

// Session records an issued hospital-scoped token for audit and explicit
// revocation. Token verification never consults this table; trust lives in
// the signature.
type Session struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	UserID     int64     `json:"user_id" gorm:"column:user_id;not null"`
	HospitalID int64     `json:"hospital_id" gorm:"column:hospital_id;not null"`
	Token      string    `json:"-" gorm:"column:token;not null"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"column:expires_at"`
	IPAddress  string    `json:"ip_address,omitempty" gorm:"column:ip_address"`
	UserAgent  string    `json:"user_agent,omitempty" gorm:"column:user_agent"`
	IsActive   bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Session) TableName() string {
	return "sessions"
}

// Repository is the session store contract. DeactivateByUserAndToken
// returns the number of rows touched; zero is not an error, logging out
// twice must be safe.
type Repository interface {
	Create(s *Session) error
	DeactivateByUserAndToken(userID int64, tokenValue string) (int64, error)
}

// AccountResolver is the slice of the user service the session manager needs.
type AccountResolver interface {
	Resolve(id *identity.ExternalIdentity) (*user.User, error)
	GetByID(userID int64) (*user.User, error)
}

// GrantLister supplies the caller's tenant/role grants.
type GrantLister interface {
	ListActive(userID int64) ([]*grant.AccessGrant, error)
	ListActiveForHospital(userID, hospitalID int64) ([]*grant.AccessGrant, error)
}

// ServiceAPI is the surface the HTTP layer consumes.
type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (*LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	SelectHospital(ctx context.Context, userID, hospitalID int64) (*SelectHospitalResponse, error)
	Logout(ctx context.Context, userID int64, tokenValue string) error
	VerifyAccess(tokenString string) (*token.Claims, error)
}
