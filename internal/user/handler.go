package user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/carenet/identity-service/internal"
	"github.com/carenet/identity-service/internal/grant"
	"github.com/carenet/identity-service/internal/transport"
	"github.com/carenet/identity-service/pkg/logger"
)

type ServiceAPI interface {
	GetByID(userID int64) (*User, error)
}

// GrantLister supplies the caller's active hospital/profile grants for the
// profile endpoint.
type GrantLister interface {
	ListActive(userID int64) ([]*grant.AccessGrant, error)
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

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == 0 {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.Service.GetByID(userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		h.Logger.Error("failed to load current user", "user_id", userID, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	grants, err := h.grants.ListActive(userID)
	if err != nil {
		h.Logger.Error("failed to load user grants", "user_id", userID, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, CurrentUserResponse{
		User:      u,
		Hospitals: grant.Summaries(grants),
	})
}
