package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/carenet/identity-service/internal"
	"github.com/carenet/identity-service/internal/grant"
	"github.com/carenet/identity-service/internal/token"
	"github.com/carenet/identity-service/internal/transport"
	"github.com/carenet/identity-service/pkg/logger"
)

type claimsCtxKey struct{}

// ContextClaimsKey carries the verified token claims for the request.
var ContextClaimsKey = claimsCtxKey{}

func ContextWithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, ContextClaimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(ContextClaimsKey).(*token.Claims)
	return claims
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	grants  GrantLister
}

func NewHandler(svc ServiceAPI, grants GrantLister) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		grants:      grants,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.Logger.Error("login failed", "error", err)
		h.writeSessionError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := h.Service.Refresh(r.Context(), dto.RefreshToken)
	if err != nil {
		h.Logger.Error("token refresh failed", "error", err)
		h.writeSessionError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, pair)
}

func (h *Handler) SelectHospital(w http.ResponseWriter, r *http.Request) {
	var dto SelectHospitalDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := internal.UserIDFromContext(r.Context())
	if userID == 0 {
		h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	resp, err := h.Service.SelectHospital(r.Context(), userID, dto.HospitalID)
	if err != nil {
		h.Logger.Error("hospital selection failed", "error", err, "user_id", userID, "hospital_id", dto.HospitalID)
		h.writeSessionError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	tokenValue := h.ExtractTokenFromHeader(r)
	if tokenValue == "" {
		h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	claims, err := h.Service.VerifyAccess(tokenValue)
	if err != nil {
		h.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	if err := h.Service.Logout(r.Context(), claims.UserID, tokenValue); err != nil {
		h.Logger.Error("logout failed", "error", err, "user_id", claims.UserID)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware verifies the bearer token and stores the caller's identity
// in the request context for downstream handlers.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenValue := h.ExtractTokenFromHeader(r)
		if tokenValue == "" {
			h.Logger.Error("auth middleware: missing authorization token")
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims, err := h.Service.VerifyAccess(tokenValue)
		if err != nil {
			h.Logger.Error("auth middleware: token verification failed", "error", err)
			if errors.Is(err, internal.ErrTokenExpired) {
				h.WriteError(w, http.StatusUnauthorized, "token expired")
				return
			}
			h.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := internal.ContextWithUserID(r.Context(), claims.UserID)
		ctx = ContextWithClaims(ctx, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission gates a route on a permission key granted through any of
// the caller's active profiles. With a context token the hospital scope is
// honored; with a plain access token all active grants are considered.
func (h *Handler) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
				return
			}

			var grants []*grant.AccessGrant
			var err error
			if claims.HospitalID != nil {
				grants, err = h.grants.ListActiveForHospital(claims.UserID, *claims.HospitalID)
			} else {
				grants, err = h.grants.ListActive(claims.UserID)
			}
			if err != nil {
				h.Logger.Error("permission check: failed to load grants", "error", err, "user_id", claims.UserID)
				h.WriteError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			for _, g := range grants {
				if g.Profile.Permissions.Allows(permission) {
					next.ServeHTTP(w, r)
					return
				}
			}

			h.Logger.Warn("permission denied", "user_id", claims.UserID, "permission", permission)
			h.WriteError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

func (h *Handler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, internal.ErrExternalAuthFailed):
		h.WriteError(w, http.StatusUnauthorized, "external authentication failed")
	case errors.Is(err, internal.ErrMissingIdentityID):
		h.WriteError(w, http.StatusUnauthorized, "identity provider returned no subject id")
	case errors.Is(err, internal.ErrInvalidToken):
		h.WriteError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, internal.ErrTokenExpired):
		h.WriteError(w, http.StatusUnauthorized, "token expired")
	case errors.Is(err, internal.ErrUserInactive):
		h.WriteError(w, http.StatusUnauthorized, "user is inactive")
	case errors.Is(err, internal.ErrNoAccessToHospital):
		h.WriteError(w, http.StatusForbidden, "no access to this hospital")
	default:
		var vErr ValidationError
		if errors.As(err, &vErr) {
			h.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
