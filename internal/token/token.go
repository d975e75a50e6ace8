package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind discriminates what a token may be used for. A refresh token presented
// where an access token is required must fail verification, and vice versa.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindContext Kind = "context"
)

// ProfileSummary is the role information embedded in hospital-scoped tokens.
// Downstream services read it straight from the claims without a store lookup.
type ProfileSummary struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Claims are the self-contained payload of every internal bearer token.
// HospitalID, HospitalCode and Profiles are only present on context tokens.
type Claims struct {
	UserID       int64            `json:"user_id"`
	Email        string           `json:"email"`
	Kind         Kind             `json:"token_kind"`
	HospitalID   *int64           `json:"hospital_id,omitempty"`
	HospitalCode string           `json:"hospital_code,omitempty"`
	Profiles     []ProfileSummary `json:"profiles,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies internal bearer tokens. Verification is pure and
// stateless; no store lookup is involved.
type Codec interface {
	Issue(claims Claims, ttl time.Duration) (string, error)
	Verify(tokenString string, want Kind) (*Claims, error)
}

// ErrTokenExpired wraps ErrInvalidToken: expiry is a refinement callers may
// inspect, but every expired token is also an invalid one.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrUnknownKind  = errors.New("unknown token kind")
)
