package periods

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the period-control probe endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers period routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/periods/current", h.handleCurrent)
	r.Get("/periods/open", h.handleOpen)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	p, err := h.service.CurrentPeriod(r.Context(), actor.OrgID)
	if err != nil {
		if !ledger.UserFacing(err) {
			h.logger.Error("current period", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}
	actor := shared.ActorFromContext(r.Context())
	open, err := h.service.IsDateInOpenPeriod(r.Context(), actor.OrgID, date)
	if err != nil {
		h.logger.Error("open period probe", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"date": date.Format("2006-01-02"),
		"open": open,
	})
}
