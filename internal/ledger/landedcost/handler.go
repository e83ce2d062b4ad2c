package landedcost

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler manages landed cost endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers landed cost routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/landed-costs/{id}", h.handleGet)
	r.Post("/landed-costs/{id}/apply", h.handleApply)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	doc, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, "get landed cost document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	doc, err := h.service.Apply(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, "apply landed cost document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) respondError(w http.ResponseWriter, what string, err error) {
	if !ledger.UserFacing(err) {
		h.logger.Error(what, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
