package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTCodec signs claims with HS256. Access and context tokens share the
// access secret; refresh tokens use a separate secret so a leaked access key
// can never mint long-lived credentials.
type JWTCodec struct {
	accessSecret  []byte
	refreshSecret []byte
}

func NewJWTCodec(accessSecret, refreshSecret string) *JWTCodec {
	return &JWTCodec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
	}
}

func (c *JWTCodec) secretFor(kind Kind) ([]byte, error) {
	switch kind {
	case KindAccess, KindContext:
		return c.accessSecret, nil
	case KindRefresh:
		return c.refreshSecret, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Issue produces a signed token embedding the claims with an expiry derived
// from ttl. The claims' Kind must be set by the caller.
func (c *JWTCodec) Issue(claims Claims, ttl time.Duration) (string, error) {
	secret, err := c.secretFor(claims.Kind)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(claims.UserID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify decodes and validates a token, requiring it to carry the wanted
// kind. Malformed, tampered, expired or wrong-kind tokens all fail.
func (c *JWTCodec) Verify(tokenString string, want Kind) (*Claims, error) {
	secret, err := c.secretFor(want)
	if err != nil {
		return nil, err
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	// The kind discriminator is checked at every verification call site.
	if claims.Kind != want {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
