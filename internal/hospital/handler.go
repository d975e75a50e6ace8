package hospital

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

// ListHospitals handles GET /hospitals, the directory of active tenants.
func (h *Handler) ListHospitals(w http.ResponseWriter, r *http.Request) {
	hospitals, err := h.Repo.ListActive()
	if err != nil {
		h.Logger.Error("failed to list hospitals", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"hospitals": hospitals})
}
