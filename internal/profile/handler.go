package profile

import (
	"log/slog"
	"net/http"

	"github.com/carenet/identity-service/internal/transport"
	"github.com/carenet/identity-service/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Repo Repository
}

func NewHandler(repo Repository) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Repo:        repo,
	}
}

// ListProfiles handles GET /profiles. Administrators granting access need
// the catalogue of assignable roles.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Repo.ListActive()
	if err != nil {
		h.Logger.Error("failed to list profiles", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}
