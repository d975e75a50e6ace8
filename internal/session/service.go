package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carenet/identity-service/internal"
	"github.com/carenet/identity-service/internal/audit"
	"github.com/carenet/identity-service/internal/grant"
	"github.com/carenet/identity-service/internal/identity"
	"github.com/carenet/identity-service/internal/profile"
	"github.com/carenet/identity-service/internal/token"
	"github.com/carenet/identity-service/internal/user"
)

// Service orchestrates login, refresh, hospital selection and logout. It is
// the only layer that translates leaf errors into the caller-facing taxonomy.
type Service struct {
	bridge   identity.Bridge
	users    AccountResolver
	grants   GrantLister
	sessions Repository
	codec    token.Codec
	recorder audit.Recorder
	logger   *slog.Logger

	accessTTL  time.Duration
	refreshTTL time.Duration
	contextTTL time.Duration
	scheme     string
	baseDomain string
}

func NewService(
	bridge identity.Bridge,
	users AccountResolver,
	grants GrantLister,
	sessions Repository,
	codec token.Codec,
	recorder audit.Recorder,
	security internal.SecurityConfig,
	routing internal.RoutingConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		bridge:     bridge,
		users:      users,
		grants:     grants,
		sessions:   sessions,
		codec:      codec,
		recorder:   recorder,
		logger:     logger,
		accessTTL:  security.AccessTokenDuration,
		refreshTTL: security.RefreshTokenDuration,
		contextTTL: security.ContextDuration(),
		scheme:     routing.URLScheme(),
		baseDomain: routing.BaseDomain,
	}
}

// Login drives the full chain: external credential verification, account
// resolution, grant lookup and token issuance. Success leaves the caller
// authenticated with no hospital bound yet.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*LoginResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var (
		externalID *identity.ExternalIdentity
		err        error
	)
	if dto.Code != "" {
		externalID, err = s.bridge.ExchangeCode(ctx, dto.Code)
	} else {
		externalID, err = s.bridge.FromAccessToken(ctx, dto.AzureAccessToken, dto.AzureIDToken)
	}
	if err != nil {
		return nil, s.translateIdentityError(err)
	}

	u, err := s.users.Resolve(externalID)
	if err != nil {
		return nil, internal.NewInternalError("Internal server error", err)
	}
	if !u.IsActiveUser() {
		return nil, internal.ErrUserInactive
	}

	grants, err := s.grants.ListActive(u.ID)
	if err != nil {
		return nil, internal.NewInternalError("Internal server error", err)
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return nil, internal.NewInternalError("Internal server error", err)
	}

	origin := internal.OriginFromContext(ctx)
	s.recorder.Record(ctx, audit.Entry{
		UserID:      &u.ID,
		Action:      audit.ActionLogin,
		Description: fmt.Sprintf("user %s logged in", u.Email),
		IPAddress:   origin.IPAddress,
		UserAgent:   origin.UserAgent,
		Metadata:    audit.Metadata{"hospital_count": len(grants)},
	})

	s.logger.Info("login succeeded", "user_id", u.ID, "hospitals", len(grants))

	return &LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		User:         u,
		Hospitals:    grant.Summaries(grants),
	}, nil
}

// Refresh rotates a token pair. This is the designated re-validation point:
// access tokens are never re-checked against the store, so a deactivated or
// deleted user is cut off here.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		return nil, s.translateTokenError(err)
	}

	u, err := s.users.GetByID(claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, internal.ErrUserInactive
		}
		return nil, internal.NewInternalError("Internal server error", err)
	}
	if !u.IsActiveUser() {
		return nil, internal.ErrUserInactive
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return nil, internal.NewInternalError("Internal server error", err)
	}
	return pair, nil
}

// SelectHospital narrows an authenticated user down to one tenant: it issues
// a hospital-bound context token, records a session row and computes the
// redirect target.
func (s *Service) SelectHospital(ctx context.Context, userID, hospitalID int64) (*SelectHospitalResponse, error) {
	grants, err := s.grants.ListActiveForHospital(userID, hospitalID)
	if err != nil {
		return nil, internal.NewInternalError("Internal server error", err)
	}
	if len(grants) == 0 {
		return nil, internal.ErrNoAccessToHospital
	}

	u, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, internal.ErrUserInactive
		}
		return nil, internal.NewInternalError("Internal server error", err)
	}
	if !u.IsActiveUser() {
		return nil, internal.ErrUserInactive
	}

	h := grants[0].Hospital

	summaries := make([]token.ProfileSummary, 0, len(grants))
	profiles := make([]*profile.Profile, 0, len(grants))
	for _, g := range grants {
		p := g.Profile
		profiles = append(profiles, &p)
		summaries = append(summaries, token.ProfileSummary{ID: p.ID, Code: p.Code, Name: p.Name})
	}

	contextToken, err := s.codec.Issue(token.Claims{
		UserID:       u.ID,
		Email:        u.Email,
		Kind:         token.KindContext,
		HospitalID:   &h.ID,
		HospitalCode: h.Code,
		Profiles:     summaries,
	}, s.contextTTL)
	if err != nil {
		return nil, internal.NewInternalError("Internal server error", err)
	}

	origin := internal.OriginFromContext(ctx)
	if err := s.sessions.Create(&Session{
		UserID:     u.ID,
		HospitalID: h.ID,
		Token:      contextToken,
		ExpiresAt:  time.Now().UTC().Add(s.contextTTL),
		IPAddress:  origin.IPAddress,
		UserAgent:  origin.UserAgent,
		IsActive:   true,
	}); err != nil {
		return nil, internal.NewInternalError("Internal server error", err)
	}

	s.recorder.Record(ctx, audit.Entry{
		UserID:      &u.ID,
		HospitalID:  &h.ID,
		Action:      audit.ActionSelectHospital,
		Description: fmt.Sprintf("user %s selected hospital %s", u.Email, h.Code),
		IPAddress:   origin.IPAddress,
		UserAgent:   origin.UserAgent,
		Metadata:    audit.Metadata{"profile_count": len(profiles)},
	})

	return &SelectHospitalResponse{
		AccessToken: contextToken,
		RedirectURL: h.RedirectURL(s.scheme, s.baseDomain),
		Hospital:    &h,
		Profiles:    profiles,
	}, nil
}

// Logout deactivates the caller's matching session rows. The bearer token
// itself stays cryptographically valid until natural expiry; only the
// session record is retired. Logging out twice is a safe no-op.
func (s *Service) Logout(ctx context.Context, userID int64, tokenValue string) error {
	affected, err := s.sessions.DeactivateByUserAndToken(userID, tokenValue)
	if err != nil {
		return internal.NewInternalError("Internal server error", err)
	}
	if affected == 0 {
		s.logger.Debug("logout matched no active session", "user_id", userID)
	}

	origin := internal.OriginFromContext(ctx)
	s.recorder.Record(ctx, audit.Entry{
		UserID:      &userID,
		Action:      audit.ActionLogout,
		Description: "user logged out",
		IPAddress:   origin.IPAddress,
		UserAgent:   origin.UserAgent,
		Metadata:    audit.Metadata{"sessions_closed": affected},
	})

	return nil
}

// VerifyAccess validates a bearer token for request authentication. Both
// plain access tokens and hospital-bound context tokens are acceptable.
func (s *Service) VerifyAccess(tokenString string) (*token.Claims, error) {
	claims, err := s.codec.Verify(tokenString, token.KindAccess)
	if err == nil {
		return claims, nil
	}

	claims, ctxErr := s.codec.Verify(tokenString, token.KindContext)
	if ctxErr == nil {
		return claims, nil
	}

	return nil, s.translateTokenError(err)
}

func (s *Service) issuePair(u *user.User) (*TokenPair, error) {
	accessToken, err := s.codec.Issue(token.Claims{
		UserID: u.ID,
		Email:  u.Email,
		Kind:   token.KindAccess,
	}, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.codec.Issue(token.Claims{
		UserID: u.ID,
		Email:  u.Email,
		Kind:   token.KindRefresh,
	}, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Service) translateIdentityError(err error) error {
	switch {
	case errors.Is(err, identity.ErrMissingIdentityID):
		return internal.ErrMissingIdentityID
	case errors.Is(err, identity.ErrExternalAuthFailure):
		return internal.ErrExternalAuthFailed
	default:
		return internal.NewInternalError("Internal server error", err)
	}
}

func (s *Service) translateTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return internal.ErrTokenExpired
	case errors.Is(err, token.ErrInvalidToken), errors.Is(err, token.ErrUnknownKind):
		return internal.ErrInvalidToken
	default:
		return internal.NewInternalError("Internal server error", err)
	}
}
