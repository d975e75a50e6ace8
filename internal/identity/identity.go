package identity

import (
	"context"
	"errors"
)

// ExternalIdentity is the normalized result of both provider flows. ExternalID
// is the stable de-duplication key for account resolution.
type ExternalIdentity struct {
	ExternalID       string
	ExternalTenantID string
	DisplayName      string
	Email            string
}

// Bridge exchanges an external provider credential for a verified identity.
//
// ExchangeCode runs the authorization-code flow against the provider token
// endpoint. FromAccessToken takes a provider-issued bearer token and asks the
// provider identity-info endpoint who it belongs to; rawIDToken is optional
// and, when present and verifiable, its claims take precedence.
type Bridge interface {
	ExchangeCode(ctx context.Context, code string) (*ExternalIdentity, error)
	FromAccessToken(ctx context.Context, accessToken, rawIDToken string) (*ExternalIdentity, error)
}

var (
	ErrExternalAuthFailure = errors.New("external identity provider rejected the credential")
	ErrMissingIdentityID   = errors.New("identity provider returned no subject id")
)
