package grant

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/carenet/identity-service/internal"
	"github.com/carenet/identity-service/internal/transport"
	"github.com/carenet/identity-service/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// CreateGrant handles POST /grants. The granter is the authenticated caller.
func (h *Handler) CreateGrant(w http.ResponseWriter, r *http.Request) {
	var dto GrantDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if appErr := dto.Validate(); appErr != nil {
		h.WriteError(w, appErr.StatusCode, appErr.GetDetailedMessage())
		return
	}

	granterID := internal.UserIDFromContext(r.Context())
	var grantedBy *int64
	if granterID != 0 {
		grantedBy = &granterID
	}

	g, err := h.Service.Grant(r.Context(), dto.UserID, dto.HospitalID, dto.ProfileID, grantedBy)
	if err != nil {
		h.Logger.Error("grant failed", "error", err,
			"user_id", dto.UserID, "hospital_id", dto.HospitalID, "profile_id", dto.ProfileID)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusCreated, g)
}

// RevokeGrant handles DELETE /grants.
func (h *Handler) RevokeGrant(w http.ResponseWriter, r *http.Request) {
	var dto GrantDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if appErr := dto.Validate(); appErr != nil {
		h.WriteError(w, appErr.StatusCode, appErr.GetDetailedMessage())
		return
	}

	revokerID := internal.UserIDFromContext(r.Context())
	var revokedBy *int64
	if revokerID != 0 {
		revokedBy = &revokerID
	}

	err := h.Service.Revoke(r.Context(), dto.UserID, dto.HospitalID, dto.ProfileID, revokedBy)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.WriteError(w, http.StatusNotFound, "access grant not found")
			return
		}
		h.Logger.Error("revoke failed", "error", err,
			"user_id", dto.UserID, "hospital_id", dto.HospitalID, "profile_id", dto.ProfileID)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
