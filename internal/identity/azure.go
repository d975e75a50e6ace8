package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/carenet/identity-service/internal"
)

// accountDescriptor is the shape the Azure AD identity-info endpoint returns.
type accountDescriptor struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	TenantID          string `json:"tid"`
}

// AzureBridge implements Bridge against Azure AD shaped endpoints. The only
// network calls with independent failure characteristics live here, so every
// call carries a bounded timeout and no local retry: retrying a one-time
// authorization code would fail anyway.
type AzureBridge struct {
	oauth       *oauth2.Config
	userInfoURL string
	tenantID    string
	httpClient  *http.Client
	verifier    *oidc.IDTokenVerifier
	logger      *slog.Logger
}

func NewAzureBridge(ctx context.Context, cfg internal.ProviderConfig, logger *slog.Logger) (*AzureBridge, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	bridge := &AzureBridge{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthEndpoint(),
				TokenURL: cfg.TokenEndpoint(),
			},
		},
		userInfoURL: cfg.UserInfoURL,
		tenantID:    cfg.TenantID,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}

	// ID token verification is optional; when an issuer is configured the
	// provider metadata is discovered once at startup.
	if cfg.IssuerURL != "" {
		provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("discover oidc provider: %w", err)
		}
		bridge.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	}

	return bridge, nil
}

// ExchangeCode trades a one-time authorization code for a provider access
// token, then resolves the account behind it.
func (b *AzureBridge) ExchangeCode(ctx context.Context, code string) (*ExternalIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)

	providerToken, err := b.oauth.Exchange(ctx, code)
	if err != nil {
		b.logger.Warn("authorization code exchange failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExternalAuthFailure, err)
	}

	return b.FromAccessToken(ctx, providerToken.AccessToken, rawIDTokenFrom(providerToken))
}

// FromAccessToken asks the provider identity-info endpoint who the bearer
// token belongs to. When a verifiable ID token accompanies it, the verified
// claims win over the endpoint response.
func (b *AzureBridge) FromAccessToken(ctx context.Context, accessToken, rawIDToken string) (*ExternalIdentity, error) {
	if accessToken == "" {
		return nil, ErrExternalAuthFailure
	}

	account, err := b.fetchAccount(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if rawIDToken != "" && b.verifier != nil {
		if verified, err := b.claimsFromIDToken(ctx, rawIDToken); err != nil {
			b.logger.Warn("id token verification failed, falling back to identity-info response", "error", err)
		} else {
			mergeAccount(account, verified)
		}
	}

	return normalize(account, b.tenantID)
}

func (b *AzureBridge) fetchAccount(ctx context.Context, accessToken string) (*accountDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build identity-info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.logger.Warn("identity-info endpoint unreachable", "url", b.userInfoURL, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExternalAuthFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		b.logger.Warn("identity-info endpoint rejected token",
			"status", resp.StatusCode,
			"body", string(body))
		return nil, fmt.Errorf("%w: identity-info returned %d", ErrExternalAuthFailure, resp.StatusCode)
	}

	var account accountDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return nil, fmt.Errorf("%w: decode identity-info response: %v", ErrExternalAuthFailure, err)
	}
	return &account, nil
}

func (b *AzureBridge) claimsFromIDToken(ctx context.Context, rawIDToken string) (*accountDescriptor, error) {
	idToken, err := b.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}

	var claims struct {
		Sub               string `json:"sub"`
		OID               string `json:"oid"`
		Name              string `json:"name"`
		Email             string `json:"email"`
		PreferredUsername string `json:"preferred_username"`
		TID               string `json:"tid"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, err
	}

	externalID := claims.OID
	if externalID == "" {
		externalID = claims.Sub
	}
	return &accountDescriptor{
		ID:                externalID,
		DisplayName:       claims.Name,
		Mail:              claims.Email,
		UserPrincipalName: claims.PreferredUsername,
		TenantID:          claims.TID,
	}, nil
}

func mergeAccount(dst, verified *accountDescriptor) {
	if verified.ID != "" {
		dst.ID = verified.ID
	}
	if verified.DisplayName != "" {
		dst.DisplayName = verified.DisplayName
	}
	if verified.Mail != "" {
		dst.Mail = verified.Mail
	}
	if verified.UserPrincipalName != "" {
		dst.UserPrincipalName = verified.UserPrincipalName
	}
	if verified.TenantID != "" {
		dst.TenantID = verified.TenantID
	}
}

func rawIDTokenFrom(providerToken *oauth2.Token) string {
	if raw, ok := providerToken.Extra("id_token").(string); ok {
		return raw
	}
	return ""
}

// normalize maps a provider account onto the common identity shape. Email is
// preferred over the principal name; the external id must be present.
func normalize(account *accountDescriptor, defaultTenantID string) (*ExternalIdentity, error) {
	if account == nil || account.ID == "" {
		return nil, ErrMissingIdentityID
	}

	email := account.Mail
	if email == "" {
		email = account.UserPrincipalName
	}

	tenantID := account.TenantID
	if tenantID == "" {
		tenantID = defaultTenantID
	}

	return &ExternalIdentity{
		ExternalID:       account.ID,
		ExternalTenantID: tenantID,
		DisplayName:      account.DisplayName,
		Email:            email,
	}, nil
}
